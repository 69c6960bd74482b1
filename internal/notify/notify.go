// Package notify plays a short alert for incoming chat messages without ever
// blocking the caller. Requests beyond the queue capacity or arriving faster
// than the configured interval are dropped.
package notify

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"multicast-chat/internal/logger"

	"golang.org/x/time/rate"
)

// Player produces the actual alert. Play runs on the dispatcher's worker.
type Player interface {
	Play() error
}

type PlayerFunc func() error

func (f PlayerFunc) Play() error { return f() }

// BellPlayer rings the terminal bell.
type BellPlayer struct {
	W io.Writer
}

func (b BellPlayer) Play() error {
	_, err := b.W.Write([]byte{'\a'})
	return err
}

type Options struct {
	QueueSize   int
	MinInterval time.Duration
}

type Dispatcher struct {
	player  Player
	queue   chan struct{}
	limiter *rate.Limiter
	log     *logger.Logger

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Uint64
	played  atomic.Uint64
}

func NewDispatcher(p Player, opts Options, log *logger.Logger) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	if log == nil {
		log = logger.Discard()
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	d := &Dispatcher{
		player:  p,
		queue:   make(chan struct{}, opts.QueueSize),
		limiter: rate.NewLimiter(limit, 1),
		log:     log.Named("notify"),
	}

	d.wg.Add(1)
	go d.run()
	return d
}

// Notify requests one alert and reports whether it was accepted.
func (d *Dispatcher) Notify() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed || !d.limiter.Allow() {
		d.dropped.Add(1)
		return false
	}

	select {
	case d.queue <- struct{}{}:
		return true
	default:
		d.dropped.Add(1)
		return false
	}
}

func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

func (d *Dispatcher) Played() uint64 {
	return d.played.Load()
}

// Close stops accepting requests, plays what is already queued and waits for
// the worker to exit.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for range d.queue {
		if err := d.player.Play(); err != nil {
			d.log.Warn("failed to play notification: %v", err)
			continue
		}
		d.played.Add(1)
	}
}
