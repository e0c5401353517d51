// Package atomic_clock is convenient API around atomic int64 clock.
// Values are unix nanoseconds at process start plus monotonic elapsed time,
// so wall clock jumps (NTP sync after boot) do not affect durations.
package atomic_clock

import (
	"sync/atomic"
	"time"
)

var epoch = time.Now()

type Clock struct{ v int64 }

func source() int64 { return epoch.UnixNano() + int64(time.Since(epoch)) }

func (c *Clock) get() int64    { return atomic.LoadInt64(&c.v) }
func (c *Clock) set(new int64) { atomic.StoreInt64(&c.v, new) }

func (c *Clock) IsZero() bool { return c.get() == 0 }

func (c *Clock) Set(new int64) { c.set(new) }
func (c *Clock) SetNow()       { c.set(source()) }

func (c *Clock) Sub(begin *Clock) time.Duration { return time.Duration(c.get() - begin.get()) }

func (c *Clock) UnixNano() int64 { return c.get() }

func New(v int64) *Clock { return &Clock{v: v} }
func Now() *Clock        { return New(source()) }

func Since(begin *Clock) time.Duration { return time.Duration(source() - begin.get()) }
