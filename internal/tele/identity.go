package tele

import (
	"net"
	"strings"

	"github.com/google/uuid"
)

const ClientIDPrefix = "powerdash-"

// ClientID is stable per board when a hardware address is available.
func ClientID() string {
	if mac := hardwareAddr(); mac != "" {
		return ClientIDPrefix + mac
	}
	return ClientIDPrefix + uuid.New().String()
}

func hardwareAddr() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		return strings.ToUpper(strings.Replace(iface.HardwareAddr.String(), ":", "", -1))
	}
	return ""
}
