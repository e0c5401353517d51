package telemetry

import (
	"math/rand"
	"time"

	"github.com/temoto/powerdash/helpers"
)

const DefaultSynthInterval = 5 * time.Second

// Synth produces random readings for test mode, through the same Update path as MQTT.
type Synth struct {
	Interval time.Duration
	rand     *rand.Rand
	last     time.Duration
	started  bool
}

type synthRange struct{ min, max int64 }

var synthRanges = [ChannelCount]synthRange{
	Generation: {0, 10000},
	Grid:       {-500, 1000},
	Storage:    {-200, 500},
	Battery:    {20, 90},
	Autarky:    {0, 100},
}

func NewSynth(interval time.Duration, r *rand.Rand) *Synth {
	if interval == 0 {
		interval = DefaultSynthInterval
	}
	if r == nil {
		r = helpers.RandUnix()
	}
	return &Synth{Interval: interval, rand: r}
}

// Tick returns a full set of updates when more than Interval passed since last batch.
func (self *Synth) Tick(now time.Duration) []Update {
	if self.started && now-self.last <= self.Interval {
		return nil
	}
	self.started = true
	self.last = now
	return self.Generate()
}

func (self *Synth) Generate() []Update {
	us := make([]Update, ChannelCount)
	for i, r := range synthRanges {
		n := r.min + self.rand.Int63n(r.max-r.min)
		us[i] = Update{Channel: Channel(i), Value: IntValue(n)}
	}
	return us
}
