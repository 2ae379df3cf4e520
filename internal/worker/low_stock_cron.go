package worker

// low_stock_cron.go
// Background goroutine that periodically scans for low stock products and
// enqueues a single digest alert. A Redis lock makes sure only one instance
// scans per tick when several servers run.

import (
	"context"
	"errors"
	"time"

	"stockpos/internal/model"

	"github.com/bsm/redislock"
	"github.com/rs/zerolog/log"
)

const lowStockLockKey = "lock:low_stock_scan"

// LowStockLister is the read the scan needs; repository.ProductRepository
// satisfies it.
type LowStockLister interface {
	ListBelow(ctx context.Context, threshold, limit int) ([]model.Product, error)
}

// LowStockEnqueuer is satisfied by *Dispatcher.
type LowStockEnqueuer interface {
	EnqueueLowStock(ctx context.Context, payload LowStockPayload) error
}

// LowStockCronConfig holds all dependencies for the scan goroutine.
type LowStockCronConfig struct {
	Products  LowStockLister
	Queue     LowStockEnqueuer
	Locker    *redislock.Client // nil = no cross-instance locking
	Threshold int
	Interval  time.Duration
}

// StartLowStockCron launches a goroutine that ticks every cfg.Interval and
// respects ctx for graceful shutdown.
func StartLowStockCron(ctx context.Context, cfg LowStockCronConfig) {
	if cfg.Interval <= 0 {
		log.Info().Msg("low_stock_cron: disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("low_stock_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("low_stock_cron: shutting down")
				return
			case <-ticker.C:
				if _, err := scanLowStock(ctx, cfg); err != nil {
					log.Error().Err(err).Msg("low_stock_cron: scan failed")
				}
			}
		}
	}()
}

// scanLowStock returns the number of products reported.
func scanLowStock(ctx context.Context, cfg LowStockCronConfig) (int, error) {
	if cfg.Locker != nil {
		// Not released: the TTL spans most of the interval so a slower peer
		// skips this tick instead of scanning again.
		_, err := cfg.Locker.Obtain(ctx, lowStockLockKey, cfg.Interval*3/4, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			log.Debug().Msg("low_stock_cron: another instance holds the lock")
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
	}

	products, err := cfg.Products.ListBelow(ctx, cfg.Threshold, 0)
	if err != nil {
		return 0, err
	}
	if len(products) == 0 {
		return 0, nil
	}

	payload := LowStockPayload{Source: LowStockSourceScan, Threshold: cfg.Threshold}
	for _, p := range products {
		payload.Items = append(payload.Items, LowStockItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    p.Quantity,
		})
	}
	if err := cfg.Queue.EnqueueLowStock(ctx, payload); err != nil {
		return 0, err
	}
	log.Info().Int("count", len(products)).Msg("low_stock_cron: digest enqueued")
	return len(products), nil
}
