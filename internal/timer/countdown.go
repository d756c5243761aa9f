package timer

import (
	"sync"
	"time"
)

// Ticker is the tick source driving a Countdown. *time.Ticker satisfies it via RealTicker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds a ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// RealTicker wraps time.NewTicker.
func RealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Option configures a Countdown.
type Option func(*Countdown)

// WithTicker swaps the tick source, mainly for tests.
func WithTicker(f TickerFactory) Option {
	return func(c *Countdown) { c.newTicker = f }
}

// WithOnTick registers an observer called after every decrement with the remaining seconds.
func WithOnTick(fn func(left int)) Option {
	return func(c *Countdown) { c.onTick = fn }
}

// Countdown is a cancellable single-shot timer counting whole seconds down to zero.
// Expiry is signalled by closing a channel, so it is delivered at most once per Start.
type Countdown struct {
	newTicker TickerFactory
	onTick    func(left int)

	mu      sync.Mutex
	left    int
	running bool
	halt    chan struct{}
	expired chan struct{}
}

func New(opts ...Option) *Countdown {
	c := &Countdown{
		newTicker: RealTicker,
		expired:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a fresh countdown of durationSeconds, cancelling any previous run.
// The returned channel is closed when the time left reaches zero.
func (c *Countdown) Start(durationSeconds int) <-chan struct{} {
	c.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.left = durationSeconds
	c.expired = make(chan struct{})
	c.halt = make(chan struct{})
	if durationSeconds <= 0 {
		c.left = 0
		close(c.expired)
		return c.expired
	}
	c.running = true

	go c.run(c.newTicker(time.Second), c.halt, c.expired)
	return c.expired
}

func (c *Countdown) run(t Ticker, halt <-chan struct{}, expired chan struct{}) {
	defer t.Stop()
	for {
		select {
		case <-halt:
			return
		case <-t.C():
		}

		c.mu.Lock()
		// Stop may have won the race with this tick.
		select {
		case <-halt:
			c.mu.Unlock()
			return
		default:
		}
		c.left--
		left := c.left
		if left <= 0 {
			c.left = 0
			c.running = false
			close(expired)
		}
		c.mu.Unlock()

		if c.onTick != nil {
			c.onTick(left)
		}
		if left <= 0 {
			return
		}
	}
}

// TimeLeft reports the remaining whole seconds.
func (c *Countdown) TimeLeft() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.left
}

// Running reports whether a countdown is in progress.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Expired returns the expiry channel of the current (or last) run.
func (c *Countdown) Expired() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// Stop halts the countdown. It is safe to call repeatedly or before Start;
// once it returns no further decrement or expiry is delivered.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.halt)
}
