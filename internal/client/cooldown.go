package client

import (
	"sync"
	"time"
)

// DefaultCooldownSeconds applies when a server omits cooldownSeconds.
const DefaultCooldownSeconds = 60

// Ticker delivers countdown ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

func newStdTicker(d time.Duration) Ticker { return stdTicker{t: time.NewTicker(d)} }

// Cooldown counts down whole seconds to zero. At most one countdown runs at
// a time; starting again replaces it.
type Cooldown struct {
	mu        sync.Mutex
	value     int
	stop      chan struct{}
	newTicker func(time.Duration) Ticker
	onChange  func(int)
}

type CooldownOption func(*Cooldown)

// WithTicker replaces the one-second tick source.
func WithTicker(fn func(time.Duration) Ticker) CooldownOption {
	return func(c *Cooldown) { c.newTicker = fn }
}

// NewCooldown creates a stopped Cooldown at zero.
func NewCooldown(opts ...CooldownOption) *Cooldown {
	c := &Cooldown{newTicker: newStdTicker}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnChange registers fn to be called with the new value after each tick.
func (c *Cooldown) OnChange(fn func(int)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Value returns the remaining seconds.
func (c *Cooldown) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Active reports whether a countdown is running.
func (c *Cooldown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

// Start sets the value to seconds and counts down once per second,
// cancelling any running countdown. seconds <= 0 sets zero.
func (c *Cooldown) Start(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	if seconds <= 0 {
		c.value = 0
		return
	}

	c.value = seconds
	stop := make(chan struct{})
	c.stop = stop
	go c.run(c.newTicker(time.Second), stop)
}

// Stop cancels the running countdown, keeping the current value.
func (c *Cooldown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

func (c *Cooldown) cancelLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Cooldown) run(t Ticker, stop chan struct{}) {
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C():
			c.mu.Lock()
			if c.stop != stop {
				c.mu.Unlock()
				return
			}
			if c.value > 0 {
				c.value--
			}
			v := c.value
			if v == 0 {
				c.stop = nil
			}
			fn := c.onChange
			c.mu.Unlock()

			if fn != nil {
				fn(v)
			}
			if v == 0 {
				return
			}
		}
	}
}
