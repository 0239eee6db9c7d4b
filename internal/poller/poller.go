// Package poller runs repeating refresh tasks, at most one timer per subscriber.
package poller

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	"sync"
	"time"
)

// MinInterval is the shortest interval a subscriber may poll at.
const MinInterval = 5 * time.Second

// Func is one poll. Errors are logged and never stop the subscriber.
type Func func(ctx context.Context) error

// Options configures a Poller.
type Options struct {
	Logger *slog.Logger
	// Jitter delays each subscriber's first run by up to 10% of its interval.
	Jitter bool
	// MinInterval overrides the package minimum; tests use it for short intervals.
	MinInterval time.Duration
	// Observer, when set, is told the outcome of every poll.
	Observer func(name string, err error, elapsed time.Duration)
}

type subscriber struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Poller owns the timers of its subscribers.
type Poller struct {
	logger   *slog.Logger
	jitter   bool
	min      time.Duration
	observer func(name string, err error, elapsed time.Duration)

	mu   sync.Mutex
	subs map[string]*subscriber
}

// New creates a Poller with no subscribers.
func New(opts Options) *Poller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = MinInterval
	}
	return &Poller{
		logger:   opts.Logger.With("component", "poller"),
		jitter:   opts.Jitter,
		min:      opts.MinInterval,
		observer: opts.Observer,
		subs:     make(map[string]*subscriber),
	}
}

// Start runs fn immediately and then every interval until Stop, StopAll or
// ctx is done. Starting a name that is already running is a no-op and
// reports false.
func (p *Poller) Start(ctx context.Context, name string, interval time.Duration, fn Func) bool {
	if interval < p.min {
		interval = p.min
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, running := p.subs[name]; running {
		return false
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscriber{cancel: cancel, done: make(chan struct{})}
	p.subs[name] = sub

	go p.loop(subCtx, name, interval, fn, sub)
	return true
}

func (p *Poller) loop(ctx context.Context, name string, interval time.Duration, fn Func, sub *subscriber) {
	defer close(sub.done)
	defer p.forget(name, sub)

	p.logger.InfoContext(ctx, "poller subscriber started", "name", name, "interval", interval)
	if p.jitter && !p.waitJitter(ctx, interval) {
		return
	}
	p.poll(ctx, name, fn)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "poller subscriber stopping", "name", name, "reason", ctx.Err())
			return
		case <-ticker.C:
			p.poll(ctx, name, fn)
		}
	}
}

func (p *Poller) poll(ctx context.Context, name string, fn Func) {
	start := time.Now()
	err := fn(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.logger.WarnContext(ctx, "poll failed", "name", name, "error", err)
	}
	if p.observer != nil {
		p.observer(name, err, time.Since(start))
	}
}

// waitJitter sleeps up to a tenth of interval. It reports false if ctx ended first.
func (p *Poller) waitJitter(ctx context.Context, interval time.Duration) bool {
	maxJitter := int64(interval / 10)
	if maxJitter <= 0 {
		return true
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		p.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return true
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter
	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// forget removes sub if it is still the registered subscriber for name.
func (p *Poller) forget(name string, sub *subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subs[name] == sub {
		delete(p.subs, name)
	}
}

// Running reports whether name has an active timer.
func (p *Poller) Running(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.subs[name]
	return ok
}

// Stop cancels name's timer and waits for an in-flight poll to return.
func (p *Poller) Stop(name string) {
	p.mu.Lock()
	sub, ok := p.subs[name]
	p.mu.Unlock()
	if !ok {
		return
	}
	sub.cancel()
	<-sub.done
}

// StopAll stops every subscriber.
func (p *Poller) StopAll() {
	p.mu.Lock()
	subs := make([]*subscriber, 0, len(p.subs))
	for _, sub := range p.subs {
		subs = append(subs, sub)
	}
	p.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}
	for _, sub := range subs {
		<-sub.done
	}
}

// Run blocks until ctx is done and then stops every subscriber, so a Poller
// can be supervised like any other background service.
func (p *Poller) Run(ctx context.Context) error {
	<-ctx.Done()
	p.StopAll()
	return nil
}
