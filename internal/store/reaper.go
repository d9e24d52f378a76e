package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Reaper is implemented by backends without native expiry that must delete
// expired rows themselves.
type Reaper interface {
	Reap(ctx context.Context) (int64, error)
}

// RunReaper calls r.Reap every interval until ctx is cancelled.
func RunReaper(ctx context.Context, r Reaper, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.Reap(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn().Err(err).Msg("expired entry reap failed")
				}
				continue
			}
			if n > 0 {
				logger.Debug().Int64("removed", n).Msg("reaped expired entries")
			}
		}
	}
}
