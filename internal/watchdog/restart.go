package watchdog

import (
	"os"
	"sync"

	"github.com/coreos/go-systemd/daemon"
	"github.com/temoto/powerdash/log2"
	"golang.org/x/sys/unix"
)

// Restarter is the terminal fail-safe: process starts over from boot.
type Restarter interface {
	Restart(reason string)
}

// Exec restarts current binary in place. Under systemd it exits instead
// and lets Restart= policy start fresh process.
type Exec struct {
	Log  *log2.Log
	once sync.Once
	// test code sets exit and exec
	exit func(int)
	exec func(argv0 string, argv []string, envv []string) error
}

func NewExec(log *log2.Log) *Exec {
	return &Exec{Log: log, exit: os.Exit, exec: unix.Exec}
}

func (self *Exec) Restart(reason string) {
	self.once.Do(func() { self.restart(reason) })
}

func (self *Exec) restart(reason string) {
	self.Log.Errorf("restart reason=%s", reason)
	supervised, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		self.Log.Errorf("sdnotify err=%v", err)
	}
	if supervised {
		self.exit(1)
		return
	}
	exe, err := os.Executable()
	if err == nil {
		err = self.exec(exe, os.Args, os.Environ())
	}
	self.Log.Errorf("restart exec err=%v", err)
	self.exit(1)
}

// MockRestarter records requests instead of restarting.
type MockRestarter struct {
	mu      sync.Mutex
	reasons []string
}

func (self *MockRestarter) Restart(reason string) {
	self.mu.Lock()
	self.reasons = append(self.reasons, reason)
	self.mu.Unlock()
}

func (self *MockRestarter) Reasons() []string {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]string(nil), self.reasons...)
}
