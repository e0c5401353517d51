// Package clock is injectable monotonic time source for the main loop.
// Time is expressed as duration since process start, like millis() on a board.
package clock

import (
	"sync"
	"time"

	"github.com/temoto/powerdash/helpers/atomic_clock"
)

type Clock interface {
	// Monotonic time since clock creation.
	Now() time.Duration
	Sleep(d time.Duration)
}

type Monotonic struct{ start *atomic_clock.Clock }

func NewMonotonic() *Monotonic { return &Monotonic{start: atomic_clock.Now()} }

func (self *Monotonic) Now() time.Duration    { return atomic_clock.Since(self.start) }
func (self *Monotonic) Sleep(d time.Duration) { time.Sleep(d) }

// Mock never blocks, Sleep advances time instantly.
// OnSleep hook runs after each Sleep, tests use it to change world state mid-wait.
type Mock struct {
	mu      sync.Mutex
	now     time.Duration
	slept   []time.Duration
	OnSleep func(now time.Duration)
}

func NewMock(start time.Duration) *Mock { return &Mock{now: start} }

func (self *Mock) Now() time.Duration {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.now
}

func (self *Mock) Sleep(d time.Duration) {
	self.mu.Lock()
	self.now += d
	self.slept = append(self.slept, d)
	now, hook := self.now, self.OnSleep
	self.mu.Unlock()
	if hook != nil {
		hook(now)
	}
}

func (self *Mock) Advance(d time.Duration) time.Duration {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.now += d
	return self.now
}

func (self *Mock) Set(now time.Duration) {
	self.mu.Lock()
	self.now = now
	self.mu.Unlock()
}

// Slept returns and resets recorded Sleep durations.
func (self *Mock) Slept() []time.Duration {
	self.mu.Lock()
	defer self.mu.Unlock()
	s := self.slept
	self.slept = nil
	return s
}

// SleptTotal is sum of recorded Sleep durations, does not reset.
func (self *Mock) SleptTotal() time.Duration {
	self.mu.Lock()
	defer self.mu.Unlock()
	var total time.Duration
	for _, d := range self.slept {
		total += d
	}
	return total
}
