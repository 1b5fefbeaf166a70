package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

var ErrPoolUnhealthy = errors.New("database pool unhealthy")

type Pinger interface {
	Ping(ctx context.Context) error
}

// Watchdog pings the pool on an interval. A failed ping is not retried: Run
// returns it so the caller can stop the process and let the supervisor restart it.
type Watchdog struct {
	db       Pinger
	interval time.Duration
	logger   *zap.Logger
}

func NewWatchdog(db Pinger, interval time.Duration, logger *zap.Logger) *Watchdog {
	return &Watchdog{db: db, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled (returning nil) or a ping fails.
func (w *Watchdog) Run(ctx context.Context) error {
	if w.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := w.db.Ping(pingCtx)
			cancel()

			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Error("Unexpected error on idle database connection", zap.Error(err))
				return fmt.Errorf("%w: %w", ErrPoolUnhealthy, err)
			}
		}
	}
}
