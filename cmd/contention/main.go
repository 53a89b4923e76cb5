package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/beer-orders/internal/adapter/storage"
	"github.com/rl1809/beer-orders/internal/config"
	"github.com/rl1809/beer-orders/internal/core/dto"
	"github.com/rl1809/beer-orders/internal/core/service"
	"github.com/rl1809/beer-orders/internal/port"
)

const totalRequests = 50

// contention fires concurrent PATCHes at a single order and reports how many
// won and how many were rejected by the version check.
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var repo port.DatabaseRepository
	if cfg.Storage == config.StorageMemory {
		repo = storage.NewMemoryAdapter()
	} else {
		db, err := storage.OpenMySQL(cfg.MySQLDSN)
		if err != nil {
			log.Fatalf("failed to open mysql: %v", err)
		}
		defer db.Close()

		mysqlAdapter := storage.NewMySQLAdapter(db)
		if err := mysqlAdapter.Migrate(ctx); err != nil {
			log.Fatalf("failed to apply schema: %v", err)
		}
		repo = mysqlAdapter
	}

	orderService := service.NewOrderService(repo, repo, zap.NewNop())

	order, err := orderService.Create(ctx, dto.BeerOrderDTO{})
	if err != nil {
		log.Fatalf("failed to create order: %v", err)
	}
	defer orderService.Delete(ctx, order.ID)

	// Counters
	var successCount atomic.Int32
	var conflictCount atomic.Int32
	var errorCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ref := uuid.NewString()
			_, err := orderService.Patch(ctx, order.ID, dto.BeerOrderPatchDTO{CustomerRef: &ref})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, port.ErrOptimisticLock):
				conflictCount.Add(1)
			default:
				errorCount.Add(1)
				log.Printf("patch failed: %v", err)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	conflicts := conflictCount.Load()

	final, err := orderService.Get(ctx, order.ID)
	if err != nil {
		log.Fatalf("failed to reload order: %v", err)
	}

	fmt.Println("========== CONTENTION RESULTS ==========")
	fmt.Printf("Storage:          %s\n", cfg.Storage)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Version Conflict: %d\n", conflicts)
	fmt.Printf("Other Errors:     %d\n", errorCount.Load())
	fmt.Printf("Final Version:    %d\n", final.Version)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=========================================")

	// every successful patch bumps the version exactly once
	if int32(final.Version) == success {
		fmt.Println("PASS: final version matches successful writes")
	} else {
		fmt.Printf("FAIL: expected version %d, got %d\n", success, final.Version)
	}
}
