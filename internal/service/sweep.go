package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Expirer expires lapsed subscriptions. Implemented by SubscriptionService.
type Expirer interface {
	ExpireLapsed(ctx context.Context) (int, error)
}

// ExpirySweeper periodically expires subscriptions whose paid period ended
// without a renewal webhook.
type ExpirySweeper struct {
	cron    *cron.Cron
	expirer Expirer
	spec    string
	timeout time.Duration
	log     *slog.Logger
}

// NewExpirySweeper creates a sweeper running on a cron spec such as "@every 1h".
func NewExpirySweeper(expirer Expirer, spec string, log *slog.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		expirer: expirer,
		spec:    spec,
		timeout: 2 * time.Minute,
		log:     log,
	}
}

// Start registers the job, runs one sweep immediately in the background and
// starts the scheduler.
func (s *ExpirySweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	s.log.Info("expiry sweep scheduled", "spec", s.spec)

	go s.RunOnce(ctx)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *ExpirySweeper) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("expiry sweep stopped")
}

// RunOnce performs a single sweep.
func (s *ExpirySweeper) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.expirer.ExpireLapsed(ctx)
	if err != nil {
		s.log.Error("expiry sweep failed", "error", err)
		return
	}
	s.log.Debug("expiry sweep complete", "expired", n)
}
