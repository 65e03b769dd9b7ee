package session

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rb-om1999/ensofinal/internal/infra"
)

// Sweeper periodically deletes sessions idle for longer than the TTL.
type Sweeper struct {
	cron   *cron.Cron
	store  Store
	ttl    time.Duration
	logger *infra.Logger
	now    func() time.Time
	hooks  []func(cutoff time.Time)
}

// NewSweeper registers the sweep on schedule (standard cron syntax or a
// descriptor such as "@every 10m").
func NewSweeper(store Store, schedule string, ttl time.Duration, logger *infra.Logger) (*Sweeper, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("session: sweep ttl must be positive")
	}
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	s := &Sweeper{
		cron:   cron.New(),
		store:  store,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_, _ = s.RunOnce(ctx)
	}); err != nil {
		return nil, fmt.Errorf("session: register sweep %q: %w", schedule, err)
	}
	return s, nil
}

// OnSweep registers fn to run with the cutoff on every sweep, before the store
// is swept. It must be called before Start.
func (s *Sweeper) OnSweep(fn func(cutoff time.Time)) {
	s.hooks = append(s.hooks, fn)
}

// RunOnce sweeps immediately and returns the number of removed sessions.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.ttl).UTC()
	for _, fn := range s.hooks {
		fn(cutoff)
	}
	n, err := s.store.Sweep(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("session: sweep failed")
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int("removed", n).Time("cutoff", cutoff).Msg("session: swept idle sessions")
	}
	return n, nil
}

// Start runs the schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep, bounded by ctx.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
