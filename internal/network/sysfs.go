package network

import (
	"bytes"
	"context"
	"io/ioutil"
	"net"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/powerdash/log2"
)

const (
	DefaultSysfsRoot = "/sys/class/net"
	commandTimeout   = 10 * time.Second
)

// Sysfs considers interface connected when kernel reports operstate=up
// and it has global IPv4 address. Association is delegated to external
// command such as `wpa_cli -i wlan0 reconnect`.
type Sysfs struct {
	log   *log2.Log
	cfg   Config
	root  string
	addrs func(iface string) ([]net.Addr, error)
}

func NewSysfs(cfg Config, log *log2.Log) *Sysfs {
	return &Sysfs{
		log:   log.Named("network"),
		cfg:   cfg,
		root:  DefaultSysfsRoot,
		addrs: interfaceAddrs,
	}
}

func (self *Sysfs) String() string { return DriverSysfs + ":" + self.cfg.Interface }

func (self *Sysfs) Begin() error {
	return errors.Annotate(self.run(self.cfg.ConnectCommand), "network begin")
}

func (self *Sysfs) Disconnect() error {
	return errors.Annotate(self.run(self.cfg.DisconnectCommand), "network disconnect")
}

func (self *Sysfs) Connected() bool {
	state, err := ioutil.ReadFile(filepath.Join(self.root, self.cfg.Interface, "operstate"))
	if err != nil {
		self.log.Debugf("operstate err=%v", err)
		return false
	}
	if string(bytes.TrimSpace(state)) != "up" {
		return false
	}
	addrs, err := self.addrs(self.cfg.Interface)
	if err != nil {
		self.log.Debugf("addrs err=%v", err)
		return false
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok {
			if ip4 := ipnet.IP.To4(); ip4 != nil && ip4.IsGlobalUnicast() {
				return true
			}
		}
	}
	return false
}

func (self *Sysfs) run(command string) error {
	argv := splitCommand(command)
	if len(argv) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return errors.Annotatef(err, "command=%s output=%s", commandString(argv), bytes.TrimSpace(out))
	}
	self.log.Debugf("command=%s ok", commandString(argv))
	return nil
}

func interfaceAddrs(name string) ([]net.Addr, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	return iface.Addrs()
}
