// Package telemetry owns dashboard readings: channel identities, parsed values,
// the single-writer store and validation of inbound MQTT payloads.
package telemetry

import (
	"fmt"
	"strings"
)

type Channel uint8

const (
	Generation Channel = iota
	Grid
	Storage
	Battery
	Autarky
	ChannelCount int = iota
)

var channelNames = [ChannelCount]string{"generation", "grid", "storage", "battery", "autarky"}

func (c Channel) String() string {
	if int(c) < ChannelCount {
		return channelNames[c]
	}
	return fmt.Sprintf("channel(%d)", uint8(c))
}

func Channels() []Channel {
	cs := make([]Channel, ChannelCount)
	for i := range cs {
		cs[i] = Channel(i)
	}
	return cs
}

func ParseChannel(s string) (Channel, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range channelNames {
		if name == s {
			return Channel(i), true
		}
	}
	return 0, false
}

// Topics binds every channel to one subscription topic.
type Topics [ChannelCount]string

func DefaultTopics() Topics {
	return Topics{
		Generation: "PV/generationPower",
		Grid:       "PV/grid_powerFast",
		Storage:    "VenusData/PowerShelly",
		Battery:    "VenusData/Ladezustand",
		Autarky:    "VenusData/Autarkie_heute",
	}
}

func (self Topics) List() []string {
	ts := make([]string, 0, ChannelCount)
	for _, t := range self {
		if t != "" {
			ts = append(ts, t)
		}
	}
	return ts
}

type Update struct {
	Channel Channel
	Value   Value
}

func (u Update) String() string { return fmt.Sprintf("%s=%s", u.Channel, u.Value) }
