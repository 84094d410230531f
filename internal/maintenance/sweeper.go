// Package maintenance runs background upkeep jobs for the Stratum server.
package maintenance

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SweeperStore defines the data access the stale sweeper needs.
type SweeperStore interface {
	MarkStaleAssessments(ctx context.Context, cutoff time.Time) (int64, error)
}

// StaleSweeper periodically flags open assessments that have seen no activity
// for longer than the idle threshold.
type StaleSweeper struct {
	store      SweeperStore
	staleAfter time.Duration
	schedule   string
	cron       *cron.Cron
	logger     zerolog.Logger
	mu         sync.Mutex
	running    bool
}

// NewStaleSweeper creates a sweeper with the given idle threshold and cron
// schedule expression.
func NewStaleSweeper(store SweeperStore, staleAfter time.Duration, schedule string, logger zerolog.Logger) *StaleSweeper {
	return &StaleSweeper{
		store:      store,
		staleAfter: staleAfter,
		schedule:   schedule,
		cron:       cron.New(),
		logger:     logger.With().Str("component", "stale_sweeper").Logger(),
	}
}

// Start begins the sweep schedule.
func (s *StaleSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("stale sweeper already running")
	}

	if _, err := s.cron.AddFunc(s.schedule, s.runSweep); err != nil {
		return err
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", s.schedule).
		Dur("stale_after", s.staleAfter).
		Msg("stale sweeper started")

	return nil
}

// Stop stops the sweeper gracefully; the returned context is done once any
// in-flight sweep has finished.
func (s *StaleSweeper) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	s.running = false
	s.logger.Info().Msg("stopping stale sweeper")
	return s.cron.Stop()
}

// runSweep flags assessments idle past the threshold.
func (s *StaleSweeper) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.staleAfter)
	flagged, err := s.store.MarkStaleAssessments(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("stale sweep failed")
		return
	}

	if flagged > 0 {
		s.logger.Info().
			Int64("flagged", flagged).
			Time("cutoff", cutoff).
			Msg("stale sweep completed")
	}
}

// RunNow triggers an immediate sweep (useful for testing).
func (s *StaleSweeper) RunNow() {
	s.runSweep()
}
