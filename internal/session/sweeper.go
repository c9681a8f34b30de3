package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RunSweeper reclaims expired sessions every interval until the context is
// cancelled. It runs out-of-band and never blocks request-path validation;
// the expiry check in Validate stays authoritative.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session sweeper stopped")
			return
		case <-ticker.C:
			removed, err := s.Sweep(ctx)
			if err != nil {
				log.Error().Err(err).Msg("session sweep failed")
				continue
			}

			if removed > 0 {
				log.Debug().Int64("removed", removed).Msg("swept expired sessions")
			}
		}
	}
}
