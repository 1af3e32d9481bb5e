package services

import (
	"context"
	"sync"
	"time"

	"foodlink/internal/core/domain"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ============================================================
// Expiry sweep: reconcile stored status with expiry dates
// ============================================================

// ExpirySweepService runs DonationService.ExpireOverdue on a cron schedule
type ExpirySweepService struct {
	donations *DonationService
	spec      string
	timeout   time.Duration
	log       *zap.Logger

	mu       sync.Mutex
	cron     *cron.Cron
	running  bool
	initial  sync.WaitGroup
	cleanups []CleanupFunc
}

// CleanupFunc is housekeeping run after every sweep
type CleanupFunc func(ctx context.Context) error

// NewExpirySweepService creates a new sweep service; spec is a standard
// cron expression or descriptor such as "@hourly"
func NewExpirySweepService(donations *DonationService, spec string, loc *time.Location, log *zap.Logger) *ExpirySweepService {
	if loc == nil {
		loc = time.UTC
	}
	return &ExpirySweepService{
		donations: donations,
		spec:      spec,
		timeout:   5 * time.Minute,
		log:       log,
		cron:      cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// OnSweep registers housekeeping to run after each sweep, such as purging
// expired refresh tokens
func (s *ExpirySweepService) OnSweep(fn CleanupFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanups = append(s.cleanups, fn)
}

// Start schedules the sweep and runs it once immediately
func (s *ExpirySweepService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return err
	}
	s.cron.Start()
	s.running = true
	s.log.Info("expiry sweep started", zap.String("schedule", s.spec))

	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.RunOnce(context.Background())
	}()
	return nil
}

// Stop stops the scheduler and waits for running sweeps, including the one
// kicked off by Start, to finish
func (s *ExpirySweepService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.initial.Wait()
	s.log.Info("expiry sweep stopped")
}

// RunOnce performs a single sweep and returns how many donations expired
func (s *ExpirySweepService) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	expired, err := s.donations.ExpireOverdue(ctx, domain.SystemActor)
	s.runCleanups(ctx)
	if err != nil {
		s.log.Error("expiry sweep failed", zap.Error(err), zap.Int("expired", expired))
		return expired
	}

	if expired > 0 {
		s.log.Info("expiry sweep finished",
			zap.Int("expired", expired),
			zap.Duration("took", time.Since(started)))
	} else {
		s.log.Debug("expiry sweep finished, nothing to expire")
	}
	return expired
}

func (s *ExpirySweepService) runCleanups(ctx context.Context) {
	s.mu.Lock()
	cleanups := append([]CleanupFunc(nil), s.cleanups...)
	s.mu.Unlock()

	for _, fn := range cleanups {
		if err := fn(ctx); err != nil {
			s.log.Warn("sweep cleanup failed", zap.Error(err))
		}
	}
}
