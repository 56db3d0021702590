package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/jumpgate/internal/domain"
	"github.com/MrSnakeDoc/jumpgate/internal/logger"
)

const (
	// DefaultSessionGrace is how long an expired session is kept before it
	// is deleted. Until then the pipeline answers invalid_session for it.
	DefaultSessionGrace = 30 * 24 * time.Hour // 30 days
)

// SessionStore lists and deletes sessions.
type SessionStore interface {
	ListSessions(ctx context.Context) ([]*domain.Session, error)
	DeleteSessions(ctx context.Context, tokens ...string) error
}

// SessionCollector deletes sessions that expired more than grace ago.
type SessionCollector struct {
	store    SessionStore
	logger   logger.Logger
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
	stopCh   chan struct{}
}

// NewSessionCollector creates a new session collector
func NewSessionCollector(
	store SessionStore,
	log logger.Logger,
	interval time.Duration,
	grace time.Duration,
) *SessionCollector {
	if grace == 0 {
		grace = DefaultSessionGrace
	}

	return &SessionCollector{
		store:    store,
		logger:   log,
		interval: interval,
		grace:    grace,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic collection
func (sc *SessionCollector) Start(ctx context.Context) error {
	if _, err := sc.Collect(ctx); err != nil {
		sc.logger.Warn("initial session collection failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(sc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := sc.Collect(ctx); err != nil {
					sc.logger.Error("session collection failed",
						logger.Error(err))
				}
			case <-sc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the collector
func (sc *SessionCollector) Stop() {
	close(sc.stopCh)
}

// Collect deletes the sessions past their grace period and returns how many
// were removed.
func (sc *SessionCollector) Collect(ctx context.Context) (int, error) {
	sessions, err := sc.store.ListSessions(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := sc.now().Add(-sc.grace)
	var stale []string
	for _, s := range sessions {
		if s.ExpiresAt().Before(cutoff) {
			stale = append(stale, s.Token)
		}
	}

	if len(stale) == 0 {
		sc.logger.Debug("no sessions to collect",
			logger.Int("scanned", len(sessions)))
		return 0, nil
	}

	if err := sc.store.DeleteSessions(ctx, stale...); err != nil {
		return 0, fmt.Errorf("failed to delete %d sessions: %w", len(stale), err)
	}

	sc.logger.Info("collected expired sessions",
		logger.Int("deleted", len(stale)),
		logger.Int("scanned", len(sessions)),
		logger.Duration("grace", sc.grace))

	return len(stale), nil
}
