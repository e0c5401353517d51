package watchdog

import (
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/powerdash/log2"
	"golang.org/x/sys/unix"
)

const DefaultDevice = "/dev/watchdog"

// Device is Linux hardware watchdog, board resets if not kicked within timeout.
type Device struct {
	f     *os.File
	log   *log2.Log
	limit limiter
}

func OpenDevice(path string, timeout time.Duration, log *log2.Log) (*Device, error) {
	if path == "" {
		path = DefaultDevice
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, errors.Annotatef(err, "watchdog open %s", path)
	}
	secs := int(timeout / time.Second)
	if secs < 1 {
		secs = 1
	}
	if err = unix.IoctlSetPointerInt(int(f.Fd()), unix.WDIOC_SETTIMEOUT, secs); err != nil {
		_ = f.Close()
		return nil, errors.Annotatef(err, "watchdog %s set timeout=%ds", path, secs)
	}
	log.Debugf("watchdog: device=%s timeout=%ds", path, secs)
	return &Device{f: f, log: log, limit: limiter{interval: Slice(timeout)}}, nil
}

func (self *Device) Kick() {
	if !self.limit.allow() {
		return
	}
	if err := unix.IoctlSetPointerInt(int(self.f.Fd()), unix.WDIOC_KEEPALIVE, 0); err != nil {
		self.log.Errorf("watchdog: keepalive err=%v", err)
	}
}

// Close disarms watchdog with magic close character.
func (self *Device) Close() error {
	_, err := self.f.Write([]byte("V"))
	if err != nil {
		self.log.Errorf("watchdog: magic close err=%v", err)
	}
	return errors.Annotate(self.f.Close(), "watchdog close")
}
