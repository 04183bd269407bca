package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/plantCo2/water-device/logging"
)

// Sweeper deletes readings older than a retention window.
type Sweeper interface {
	Sweep(ctx context.Context, retention time.Duration) (int64, error)
}

// RetentionService prunes old readings when asked to. It keeps no timer of
// its own; an external scheduler hits the maintenance endpoint.
type RetentionService struct {
	sweeper Sweeper
	window  time.Duration
	log     *slog.Logger
}

func NewRetentionService(sweeper Sweeper, defaultWindow time.Duration) *RetentionService {
	return &RetentionService{
		sweeper: sweeper,
		window:  defaultWindow,
		log:     logging.Component("retention"),
	}
}

// Run sweeps readings older than window and returns the number removed
// along with the window actually applied. A zero window means the default.
func (s *RetentionService) Run(ctx context.Context, window time.Duration) (int64, time.Duration, error) {
	if window == 0 {
		window = s.window
	}

	start := time.Now()
	deleted, err := s.sweeper.Sweep(ctx, window)
	if err != nil {
		s.log.Error("retention sweep failed", "window", window, "error", err)
		return 0, window, err
	}
	if deleted == 0 {
		s.log.Debug("no expired readings", "window", window)
	} else {
		s.log.Info("expired readings removed", "deleted", deleted, "window", window, "took", time.Since(start))
	}
	return deleted, window, nil
}
