package timer

import "time"

// ManualTicker is a Ticker advanced by hand. Every Countdown built from its
// Factory shares the same unbuffered channel.
type ManualTicker struct {
	ch chan time.Time
}

func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time)}
}

// Factory returns a TickerFactory that always hands out m.
func (m *ManualTicker) Factory() TickerFactory {
	return func(time.Duration) Ticker { return m }
}

func (m *ManualTicker) C() <-chan time.Time { return m.ch }

func (m *ManualTicker) Stop() {}

// Tick delivers one tick and blocks until a countdown receives it.
func (m *ManualTicker) Tick() {
	m.ch <- time.Now()
}

// TryTick delivers one tick unless nobody receives it within wait.
func (m *ManualTicker) TryTick(wait time.Duration) bool {
	select {
	case m.ch <- time.Now():
		return true
	case <-time.After(wait):
		return false
	}
}
