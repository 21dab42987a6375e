// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package campaign

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically closes expired campaigns so observers learn about
// expiry even when nobody reads or votes.
type Sweeper struct {
	service  *Service
	interval time.Duration
}

func NewSweeper(service *Service, interval time.Duration) *Sweeper {
	return &Sweeper{service: service, interval: interval}
}

// Run sweeps until ctx is cancelled. It always returns nil.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.service.ExpireDue(ctx)
			if err != nil {
				slog.Warn("expiry sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expiry sweep closed campaigns", "count", n)
			}
		}
	}
}
