package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/beer-orders/internal/adapter/handler"
	"github.com/rl1809/beer-orders/internal/adapter/storage"
	"github.com/rl1809/beer-orders/internal/config"
	"github.com/rl1809/beer-orders/internal/core/service"
	"github.com/rl1809/beer-orders/internal/logging"
	"github.com/rl1809/beer-orders/internal/port"
	"github.com/rl1809/beer-orders/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	decimal.MarshalJSONWithoutQuotes = true

	probes := map[string]handler.Pinger{}

	// Initialize storage
	var repo port.DatabaseRepository
	switch cfg.Storage {
	case config.StorageMemory:
		mem := storage.NewMemoryAdapter()
		repo = mem
		probes["memory"] = mem
		logger.Warn("using in-memory storage, data is lost on restart")
	default:
		db, err := storage.OpenMySQL(cfg.MySQLDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.MySQLMaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQLMaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQLConnMaxLifetime)

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping mysql: %w", err)
		}
		logger.Info("connected to mysql")

		mysqlAdapter := storage.NewMySQLAdapter(db)
		if cfg.MigrateOnStart {
			if err := mysqlAdapter.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("schema applied")
		}
		repo = mysqlAdapter
		probes["mysql"] = mysqlAdapter
	}

	// Initialize Redis
	var cache port.CacheRepository
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

		redisAdapter := storage.NewRedisAdapter(rdb, cfg.BeerCacheTTL, cfg.IdempotencyTTL)
		repo = storage.NewCachedRepository(repo, redisAdapter, logger)
		cache = redisAdapter
		probes["redis"] = redisAdapter
	}

	// Initialize services
	beerService := service.NewBeerService(repo, logger)
	orderService := service.NewOrderService(repo, repo, logger)

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	healthHandler := handler.NewGRPCHandler(probes, cfg.HealthInterval, logger)
	healthHandler.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		healthHandler.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	if !cfg.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	httpHandler := handler.NewHTTPHandler(beerService, orderService, validation.New(), logger)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.NewRouter(httpHandler, cache, logger),
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
			cancel()
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	healthHandler.Shutdown()

	// Stop HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	// Stop gRPC server and the health probe loop
	grpcServer.GracefulStop()
	cancel()
	wg.Wait()
	logger.Info("gRPC server stopped")

	return nil
}
