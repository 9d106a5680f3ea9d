// Package timer provides the countdown primitive behind the preparation
// clock and the per-speaker speech clocks.
package timer

import (
	"sync"
	"time"
)

// State is a point-in-time view of a countdown.
type State struct {
	SecondsLeft int
	Running     bool
}

// Countdown is a pausable, second-resolution countdown.
//
// It measures real elapsed time between observations instead of assuming
// fixed-interval tick delivery, so a suspended host process consumes the
// right number of seconds on the next tick rather than double-counting or
// silently stalling. Seconds never go below zero; reaching zero stops the
// countdown. All methods are safe for concurrent use.
type Countdown struct {
	mu       sync.Mutex
	now      func() time.Time
	seconds  int
	running  bool
	lastSeen time.Time
	carry    time.Duration
}

// New creates a stopped countdown with the given number of seconds.
// A nil now falls back to time.Now.
func New(seconds int, now func() time.Time) *Countdown {
	if now == nil {
		now = time.Now
	}
	if seconds < 0 {
		seconds = 0
	}
	return &Countdown{now: now, seconds: seconds}
}

// Start begins counting down. It is a no-op when already running or when no
// time is left.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running || c.seconds == 0 {
		return
	}
	c.running = true
	c.lastSeen = c.now()
	c.carry = 0
}

// Pause stops the countdown, first consuming any elapsed time since the
// last observation. It is a no-op when not running.
func (c *Countdown) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.advanceLocked()
	c.running = false
}

// Reset stops the countdown and sets it to the given number of seconds.
func (c *Countdown) Reset(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	c.running = false
	c.seconds = seconds
	c.carry = 0
}

// Tick consumes the real time elapsed since the previous observation and
// returns the resulting state. Sub-second remainders carry over so that one
// second of wall time always costs exactly one second of countdown.
func (c *Countdown) Tick() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.advanceLocked()
	}
	return State{SecondsLeft: c.seconds, Running: c.running}
}

// State returns the current state without consuming elapsed time.
func (c *Countdown) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{SecondsLeft: c.seconds, Running: c.running}
}

func (c *Countdown) advanceLocked() {
	now := c.now()
	elapsed := now.Sub(c.lastSeen) + c.carry
	if elapsed < 0 {
		elapsed = 0
	}
	c.lastSeen = now

	whole := int(elapsed / time.Second)
	c.carry = elapsed % time.Second

	c.seconds -= whole
	if c.seconds <= 0 {
		c.seconds = 0
		c.running = false
		c.carry = 0
	}
}
