package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type versionSource interface {
	Version() uint64
}

// Poller watches a version counter for hosts that cannot push change notifications and
// calls onChange whenever the counter moved since the last check.
type Poller struct {
	source   versionSource
	onChange func()
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}

	mu       sync.Mutex
	lastSeen uint64
	primed   bool
}

type PollerConfig struct {
	Interval time.Duration
}

func NewPoller(source versionSource, onChange func(), cfg PollerConfig, logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		source:   source,
		onChange: onChange,
		interval: cfg.Interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("host poller started", "interval", p.interval.String())
	ticker := time.NewTicker(p.interval)
	go func() {
		defer ticker.Stop()
		p.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				p.logger.Info("host poller stopped")
				close(p.stopCh)
				return
			case <-ticker.C:
				p.RunOnce(ctx)
			}
		}
	}()
}

func (p *Poller) StopWait(timeout time.Duration) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	select {
	case <-p.stopCh:
	case <-time.After(timeout):
	}
}

// RunOnce checks the counter once and reports whether onChange fired. The first check
// only records the current version.
func (p *Poller) RunOnce(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}

	current := p.source.Version()

	p.mu.Lock()
	changed := p.primed && current != p.lastSeen
	p.lastSeen = current
	p.primed = true
	p.mu.Unlock()

	if changed {
		p.logger.Debug("host version changed", "version", current)
		p.onChange()
	}
	return changed
}
