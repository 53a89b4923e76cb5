package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/beer-orders/internal/port"
)

const (
	requestIDHeader   = "X-Request-Id"
	idempotencyHeader = "Idempotency-Key"
	requestIDKey      = "request_id"
)

// NewRouter wires the REST routes. idempotency may be nil, in which case
// Idempotency-Key headers are ignored.
func NewRouter(h *HTTPHandler, idempotency port.CacheRepository, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(requestID(), accessLog(log), recovery(log))

	r.GET("/health", h.HealthCheck)

	post := []gin.HandlerFunc{}
	if idempotency != nil {
		post = append(post, idempotencyGuard(idempotency, log))
	}

	beers := r.Group("/beers")
	beers.POST("", append(post, h.CreateBeer)...)
	beers.GET("", h.ListBeers)
	beers.GET("/:beerId", h.GetBeer)
	beers.PUT("/:beerId", h.UpdateBeer)
	beers.DELETE("/:beerId", h.DeleteBeer)

	orders := r.Group("/orders")
	orders.POST("", append(post, h.CreateOrder)...)
	orders.GET("", h.ListOrders)
	orders.GET("/:orderId", h.GetOrder)
	orders.PUT("/:orderId", h.UpdateOrder)
	orders.PATCH("/:orderId", h.PatchOrder)
	orders.DELETE("/:orderId", h.DeleteOrder)
	orders.POST("/:orderId/lines", append(post, h.AddLine)...)
	orders.PUT("/:orderId/lines/:lineId", h.UpdateLine)
	orders.DELETE("/:orderId/lines/:lineId", h.DeleteLine)

	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDKey)),
		)
	}
}

func recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic in handler",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(requestIDKey)),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	})
}

// idempotencyGuard rejects a POST whose Idempotency-Key was already used on
// the same path by a request that succeeded. A key is released again when its
// request fails, so the client can retry. Requests without the header pass
// through, and so do requests made while the key store is unreachable.
func idempotencyGuard(store port.CacheRepository, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		scoped := c.Request.URL.Path + ":" + key
		ok, err := store.SetIdempotency(c.Request.Context(), scoped)
		if err != nil {
			log.Warn("idempotency check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "duplicate_request"})
			return
		}

		defer func() {
			if c.Writer.Written() && c.Writer.Status() < http.StatusBadRequest {
				return
			}
			if err := store.ReleaseIdempotency(context.WithoutCancel(c.Request.Context()), scoped); err != nil {
				log.Warn("idempotency release failed", zap.String("key", key), zap.Error(err))
			}
		}()
		c.Next()
	}
}
