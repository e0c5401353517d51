// Package network reports and drives association of the link below MQTT.
package network

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/temoto/powerdash/log2"
)

// Network contract:
// - Begin starts association and returns quickly, Connected is polled afterwards
// - Connected is cheap and never blocks on the network
type Network interface {
	Begin() error
	Connected() bool
	Disconnect() error
	String() string
}

const (
	DriverSysfs  = "sysfs"
	DriverAlways = "always"
)

type Config struct {
	Driver            string
	Interface         string
	ConnectCommand    string
	DisconnectCommand string
}

func New(cfg Config, log *log2.Log) (Network, error) {
	switch cfg.Driver {
	case "", DriverSysfs:
		if cfg.Interface == "" {
			return nil, errors.NotValidf("network interface=empty")
		}
		return NewSysfs(cfg, log), nil
	case DriverAlways:
		return Always{}, nil
	}
	return nil, errors.NotSupportedf("network driver=%s", cfg.Driver)
}

// Always is for wired or development hosts where link is managed elsewhere.
type Always struct{}

func (Always) Begin() error      { return nil }
func (Always) Connected() bool   { return true }
func (Always) Disconnect() error { return nil }
func (Always) String() string    { return DriverAlways }

func splitCommand(s string) []string { return strings.Fields(s) }

func commandString(argv []string) string { return fmt.Sprintf("%q", argv) }
