package offline

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Prober checks whether the server is reachable
type Prober interface {
	Ping(ctx context.Context) error
}

// Flusher is the part of Queue the monitor drives
type Flusher interface {
	Flush(ctx context.Context) (FlushResult, error)
	ResetBackoff()
	Kicks() <-chan struct{}
}

// Monitor probes the server and replays the queue when it comes back
type Monitor struct {
	prober   Prober
	queue    Flusher
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	online   atomic.Bool

	// OnChange, when set, is called from Run after every connectivity change
	OnChange func(online bool)
}

// NewMonitor creates a monitor probing every interval
func NewMonitor(prober Prober, queue Flusher, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := interval / 2
	if timeout > 5*time.Second {
		timeout = 5 * time.Second
	}
	return &Monitor{
		prober:   prober,
		queue:    queue,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Online reports the result of the last probe
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Run probes until ctx is done. Probing and flushing happen on the calling
// goroutine, so nothing started here outlives Run.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.tick(ctx)
		case <-m.queue.Kicks():
			if m.Online() {
				m.flush(ctx)
			}
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.prober.Ping(probeCtx)
	cancel()
	if ctx.Err() != nil {
		return
	}

	online := err == nil
	was := m.online.Swap(online)
	if online != was {
		if online {
			m.logger.Info("Server reachable, replaying queue")
			m.queue.ResetBackoff()
		} else {
			m.logger.Warn("Server unreachable, working offline", zap.Error(err))
		}
		if m.OnChange != nil {
			m.OnChange(online)
		}
	}
	if online {
		// also retries after a backoff expires while staying online
		m.flush(ctx)
	}
}

func (m *Monitor) flush(ctx context.Context) {
	if _, err := m.queue.Flush(ctx); err != nil && ctx.Err() == nil {
		m.logger.Warn("Queue flush stopped", zap.Error(err))
	}
}
