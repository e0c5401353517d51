package network

import (
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/powerdash/log2"
)

func TestSysfsConnected(t *testing.T) {
	t.Parallel()

	global := &net.IPNet{IP: net.IPv4(192, 168, 1, 20), Mask: net.CIDRMask(24, 32)}
	linkLocal := &net.IPNet{IP: net.IPv4(169, 254, 3, 4), Mask: net.CIDRMask(16, 32)}
	v6 := &net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)}
	cases := []struct {
		name      string
		operstate string
		addrs     []net.Addr
		expect    bool
	}{
		{"up", "up\n", []net.Addr{v6, global}, true},
		{"down", "down\n", []net.Addr{global}, false},
		{"dormant", "dormant\n", []net.Addr{global}, false},
		{"no-ipv4", "up\n", []net.Addr{v6}, false},
		{"link-local", "up\n", []net.Addr{linkLocal}, false},
		{"missing", "", nil, false},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			root, err := ioutil.TempDir("", "powerdash-sysfs")
			require.NoError(t, err)
			defer os.RemoveAll(root)
			if c.operstate != "" {
				require.NoError(t, os.MkdirAll(filepath.Join(root, "wlan0"), 0755))
				require.NoError(t, ioutil.WriteFile(filepath.Join(root, "wlan0", "operstate"), []byte(c.operstate), 0644))
			}
			n := NewSysfs(Config{Interface: "wlan0"}, log2.NewTest(t, log2.LDebug))
			n.root = root
			n.addrs = func(string) ([]net.Addr, error) { return c.addrs, nil }
			assert.Equal(t, c.expect, n.Connected())
		})
	}
}

func TestSysfsCommand(t *testing.T) {
	t.Parallel()

	log := log2.NewTest(t, log2.LDebug)
	n := NewSysfs(Config{Interface: "wlan0", ConnectCommand: "true", DisconnectCommand: "false"}, log)
	assert.NoError(t, n.Begin())
	assert.Error(t, n.Disconnect())
	assert.NoError(t, NewSysfs(Config{Interface: "wlan0"}, log).Begin())
}

func TestNew(t *testing.T) {
	t.Parallel()

	log := log2.NewTest(t, log2.LDebug)
	n, err := New(Config{Driver: DriverAlways}, log)
	require.NoError(t, err)
	assert.True(t, n.Connected())
	_, err = New(Config{}, log)
	assert.True(t, errors.IsNotValid(err))
	n, err = New(Config{Interface: "eth0"}, log)
	require.NoError(t, err)
	assert.Equal(t, "sysfs:eth0", n.String())
	_, err = New(Config{Driver: "ppp"}, log)
	assert.True(t, errors.IsNotSupported(err))
}

func TestMock(t *testing.T) {
	t.Parallel()

	m := NewMock(false)
	m.UpAfter = 2
	assert.False(t, m.Connected())
	require.NoError(t, m.Begin())
	assert.False(t, m.Connected())
	assert.False(t, m.Connected())
	assert.True(t, m.Connected())
	m.Set(false)
	m.UpAfter = -1
	require.NoError(t, m.Begin())
	for i := 0; i < 5; i++ {
		assert.False(t, m.Connected())
	}
}
