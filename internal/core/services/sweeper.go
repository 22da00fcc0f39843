package services

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper periodically drops expired rate-limit windows.
type Sweeper struct {
	limiter *RateLimiter
	logger  *slog.Logger

	// Internal state
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration
}

// SweeperConfig holds configuration for the sweeper.
type SweeperConfig struct {
	Limiter  *RateLimiter
	Logger   *slog.Logger
	Interval time.Duration // How often to sweep (default: RateWindow)
}

// NewSweeper creates a new sweeper.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = RateWindow
	}
	return &Sweeper{
		limiter:  cfg.Limiter,
		logger:   logger,
		interval: interval,
	}
}

// Run sweeps until ctx is cancelled or Stop is called.
func (s *Sweeper) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("sweeper starting", "interval", s.interval)
	s.run(ctx)
	return nil
}

// Stop stops a running sweeper and waits for it to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh
}

func (s *Sweeper) run(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.running = false
		close(s.doneCh)
		s.mu.Unlock()
		s.logger.Info("sweeper stopped")
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}

// Sweep runs one pass and returns the number of dropped windows.
func (s *Sweeper) Sweep(now time.Time) int {
	n := s.limiter.Sweep(now)
	if n > 0 {
		s.logger.Debug("rate limit windows expired", "count", n, "remaining", s.limiter.Len())
	}
	return n
}
