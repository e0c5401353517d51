// Package watchdog keeps liveness proof flowing to whatever will reset the board
// when the main loop hangs, and owns the restart fail-safe.
package watchdog

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/powerdash/helpers"
	"github.com/temoto/powerdash/helpers/atomic_clock"
	"github.com/temoto/powerdash/log2"
)

const (
	DefaultTimeout = 5 * time.Second
	MinSlice       = 10 * time.Millisecond
)

// Kicker proves liveness. Close releases the watchdog on graceful stop
// so it no longer resets the board.
type Kicker interface {
	Kick()
	Close() error
}

// Slice is the longest blocking wait allowed between kicks.
func Slice(timeout time.Duration) time.Duration {
	s := timeout / 4
	if s < MinSlice {
		s = MinSlice
	}
	return s
}

type Config struct {
	// comma separated list: systemd,dev,soft,none
	Driver  string
	Device  string
	Timeout time.Duration
}

// New builds combined Kicker from config. Soft driver needs Restarter.
func New(cfg Config, r Restarter, log *log2.Log) (Kicker, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	var ks Multi
	var errs []error
	for _, name := range strings.Split(cfg.Driver, ",") {
		switch strings.TrimSpace(name) {
		case "", "none":
		case "systemd":
			ks = append(ks, NewSystemd(log))
		case "dev":
			d, err := OpenDevice(cfg.Device, cfg.Timeout, log)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			ks = append(ks, d)
		case "soft":
			ks = append(ks, NewSoft(cfg.Timeout, r, log))
		default:
			errs = append(errs, errors.NotSupportedf("watchdog driver=%s", name))
		}
	}
	if err := helpers.FoldErrors(errs); err != nil {
		return nil, err
	}
	return ks, nil
}

type Multi []Kicker

func (self Multi) Kick() {
	for _, k := range self {
		k.Kick()
	}
}

func (self Multi) Close() error {
	errs := make([]error, 0, len(self))
	for _, k := range self {
		errs = append(errs, k.Close())
	}
	return helpers.FoldErrors(errs)
}

// limiter passes at most one event per interval.
type limiter struct {
	last     atomic_clock.Clock
	interval time.Duration
}

func (self *limiter) allow() bool {
	if !self.last.IsZero() && atomic_clock.Since(&self.last) < self.interval {
		return false
	}
	self.last.SetNow()
	return true
}

// Counter is Kicker for tests.
type Counter struct {
	n      int64
	closed uint32
}

func (self *Counter) Kick()        { atomic.AddInt64(&self.n, 1) }
func (self *Counter) Count() int64 { return atomic.LoadInt64(&self.n) }
func (self *Counter) Closed() bool { return atomic.LoadUint32(&self.closed) == 1 }

func (self *Counter) Close() error {
	atomic.StoreUint32(&self.closed, 1)
	return nil
}
