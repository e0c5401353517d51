package watchdog

import (
	"github.com/coreos/go-systemd/daemon"
	"github.com/temoto/powerdash/log2"
)

// Systemd sends WATCHDOG=1 when unit has WatchdogSec= set.
type Systemd struct {
	log     *log2.Log
	enabled bool
	limit   limiter
}

func NewSystemd(log *log2.Log) *Systemd {
	self := &Systemd{log: log}
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		log.Errorf("watchdog: systemd err=%v", err)
		return self
	}
	if interval == 0 {
		log.Debugf("watchdog: systemd WatchdogSec not set")
		return self
	}
	self.enabled = true
	self.limit.interval = Slice(interval)
	log.Debugf("watchdog: systemd interval=%v", interval)
	return self
}

func (self *Systemd) Kick() {
	if !self.enabled || !self.limit.allow() {
		return
	}
	if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
		self.log.Errorf("watchdog: sdnotify err=%v", err)
	}
}

// Close is no-op, systemd stops watching when unit stops.
func (self *Systemd) Close() error { return nil }
