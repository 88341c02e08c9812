package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/openveil/veilforum/internal/config"
	"github.com/openveil/veilforum/internal/models"
)

// MessageStore is the message-side surface the sweeper needs
type MessageStore interface {
	DeactivateOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Stats(ctx context.Context, visibilityCutoff, dayStart time.Time) (*models.MessageStats, error)
}

// SessionStore is the session-side surface the sweeper needs
type SessionStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper periodically retires messages that have aged out of the
// visibility window and purges rows past the retention horizon, along
// with expired sessions. Exactly one sweeper runs per process.
type Sweeper struct {
	messages MessageStore
	sessions SessionStore
	logger   *slog.Logger
	cfg      config.ForumConfig
	stopCh   chan struct{}
}

// NewSweeper creates a new sweeper
func NewSweeper(
	messages MessageStore,
	sessions SessionStore,
	logger *slog.Logger,
	cfg config.ForumConfig,
) *Sweeper {
	return &Sweeper{
		messages: messages,
		sessions: sessions,
		logger:   logger,
		cfg:      cfg,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep. It runs one sweep immediately so a
// restart cannot extend the lifetime of already expired messages.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopCh:
			s.logger.Info("sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("sweeper context cancelled")
			return
		}
	}
}

// runSweep executes one pass: deactivate, purge, drop dead sessions, then
// report the resulting message totals. Each step logs and continues on
// failure; a failed sweep is retried on the next tick and readers never
// depend on it for correctness.
func (s *Sweeper) runSweep(ctx context.Context) {
	now := time.Now()
	s.logger.Info("starting message sweep")

	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var deactivated, purged int64
	var err error

	deactivated, err = s.messages.DeactivateOlderThan(sweepCtx, now.Add(-s.cfg.VisibilityWindow))
	if err != nil {
		s.logger.Error("failed to deactivate stale messages", slog.Any("error", err))
	}

	purged, err = s.messages.DeleteOlderThan(sweepCtx, now.Add(-s.cfg.HardRetention))
	if err != nil {
		s.logger.Error("failed to purge retained messages", slog.Any("error", err))
	}

	sessions, err := s.sessions.DeleteExpired(sweepCtx, now)
	if err != nil {
		s.logger.Error("failed to delete expired sessions", slog.Any("error", err))
	} else if sessions > 0 {
		s.logger.Info("deleted expired sessions", slog.Int64("rows", sessions))
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	stats, err := s.messages.Stats(sweepCtx, now.Add(-s.cfg.VisibilityWindow), dayStart)
	if err != nil {
		s.logger.Error("failed to gather post-sweep message stats", slog.Any("error", err))
		return
	}

	s.logger.Info("sweep completed",
		slog.Int64("deactivated", deactivated),
		slog.Int64("purged", purged),
		slog.Int("total_messages", stats.Total),
		slog.Int("active_messages", stats.Active),
	)
}

// Stop signals the sweeper to stop
func (s *Sweeper) Stop() {
	close(s.stopCh)
}
