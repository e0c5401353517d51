package helpers

import (
	"time"
)

// Backoff is limited exponential retry delay.
// After N consecutive failures Delay() is min(Min*K^N, Max), success resets it to Min.
// Use scenario:
//
//	for {
//	  sleep(backoff.Delay())
//	  err := op()
//	  backoff.Update(err==nil)
//	}
//
// Not safe for concurrent use, owner is the main loop.
type Backoff struct {
	Min time.Duration
	Max time.Duration
	K   float32       // default=2
	Res time.Duration // delay resolution for nice logs, default=1ms

	next     time.Duration
	failures int
}

func (b *Backoff) Delay() time.Duration {
	if b.next == 0 {
		b.next = b.limit(b.Min)
	}
	return b.next
}

// Failures since last success.
func (b *Backoff) Failures() int { return b.failures }

// Increase next Delay()
func (b *Backoff) Failure() {
	k := b.K
	if k == 0 {
		k = 2
	}
	b.next = b.limit(time.Duration(float32(b.Delay()) * k))
	b.failures++
}

func (b *Backoff) Reset() {
	b.next = b.limit(b.Min)
	b.failures = 0
}

func (b *Backoff) Update(success bool) {
	if success {
		b.Reset()
	} else {
		b.Failure()
	}
}

func (b *Backoff) limit(d time.Duration) time.Duration {
	if d < b.Min {
		d = b.Min
	}
	if b.Max != 0 && d > b.Max {
		d = b.Max
	}
	return b.round(d)
}

func (b *Backoff) round(d time.Duration) time.Duration {
	res := b.Res
	if res == 0 {
		res = 1 * time.Millisecond
	}
	return d / res * res
}
