package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"stockpos/internal/apierror"
	"stockpos/internal/infra"
	"stockpos/internal/service"
	"stockpos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity and reports the SMTP breaker and the alert
// dead letter queue; never exposes credentials or internals.
func Health(db *gorm.DB, rdb *redis.Client, smtpCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		if db == nil {
			dbStatus = "error"
		} else if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		var dlqLen int64
		if rdb == nil || rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else {
			dlqLen, _ = worker.DLQLength(ctx, rdb, worker.QueueAlerts)
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":         status == http.StatusOK,
			"db":         dbStatus,
			"redis":      redisStatus,
			"alerts_dlq": dlqLen,
		}
		if smtpCB != nil {
			body["smtp"] = smtpCB.Snapshot()
		}
		c.JSON(status, body)
	}
}

// DeadLetters lists the newest failed alert jobs without removing them.
// ?limit caps the result (default 20, max 100).
func DeadLetters(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.JSON(http.StatusServiceUnavailable, apierror.New("Alert queue is not configured."))
			return
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, apierror.New("limit must be a positive integer"))
			return
		}
		limit = min(limit, 100)

		entries, err := worker.PeekDLQ(c.Request.Context(), rdb, worker.QueueAlerts, int64(limit))
		if err != nil {
			writeError(c, service.ErrStoreUnavailable)
			return
		}
		c.JSON(http.StatusOK, gin.H{"queue": worker.QueueAlerts, "entries": entries})
	}
}
