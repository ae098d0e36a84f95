package scheduler

import (
	"context"
	"sync"
	"time"

	"ccce-notify/pkg/logger"

	"github.com/rs/zerolog"
)

// Sweeper dispatches the notifications that are due
type Sweeper interface {
	ProcessDue(ctx context.Context) (int, error)
}

// SweepScheduler periodically picks up pending notifications whose send time has passed
type SweepScheduler struct {
	sweeper  Sweeper
	interval time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	done     chan struct{}
}

// NewSweepScheduler creates a new scheduler
func NewSweepScheduler(sweeper Sweeper, interval time.Duration) *SweepScheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SweepScheduler{
		sweeper:  sweeper,
		interval: interval,
		log:      logger.Component("sweep"),
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the scheduler loop. It does nothing once started or stopped.
func (s *SweepScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true

	s.log.Info().Dur("interval", s.interval).Msg("starting due notification sweep")

	ctx := s.ctx
	go func() {
		defer close(s.done)

		// Run immediately on start
		s.sweep(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-s.stopChan:
				s.log.Info().Msg("sweep stopped")
				return
			}
		}
	}()
}

// Stop ends the loop, cancels an in-flight sweep and waits for it to return
func (s *SweepScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		started := s.started
		s.mu.Unlock()

		close(s.stopChan)
		s.cancel()
		if !started {
			close(s.done)
		}
	})
	<-s.done
}

func (s *SweepScheduler) sweep(ctx context.Context) {
	start := time.Now()
	count, err := s.sweeper.ProcessDue(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep failed")
		return
	}
	if count > 0 {
		s.log.Info().Int("count", count).Dur("took", time.Since(start)).Msg("sweep finished")
	}
}
