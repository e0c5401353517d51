package watchdog

import (
	"sync/atomic"
	"time"

	"github.com/temoto/powerdash/log2"
)

// Soft is in-process watchdog for boards without hardware one.
// Catches stuck main loop as long as Go runtime timers still run.
type Soft struct {
	log     *log2.Log
	timeout time.Duration
	timer   *time.Timer
	r       Restarter
	closed  uint32 // atomic bool
}

func NewSoft(timeout time.Duration, r Restarter, log *log2.Log) *Soft {
	self := &Soft{log: log, timeout: timeout, r: r}
	self.timer = time.AfterFunc(timeout, self.expire)
	return self
}

func (self *Soft) Kick() {
	if atomic.LoadUint32(&self.closed) == 0 {
		self.timer.Reset(self.timeout)
	}
}

// Close disarms timer, later kicks do not rearm it.
func (self *Soft) Close() error {
	atomic.StoreUint32(&self.closed, 1)
	self.timer.Stop()
	return nil
}

func (self *Soft) expire() {
	if atomic.LoadUint32(&self.closed) == 1 {
		return
	}
	self.log.Errorf("watchdog: no kick for %v", self.timeout)
	self.r.Restart("watchdog timeout")
}
