package render

import (
	"time"

	"github.com/temoto/powerdash/internal/telemetry"
	"github.com/temoto/powerdash/log2"
)

const DefaultInterval = 500 * time.Millisecond

// Pipeline owns last rendered snapshot of every field.
// Draw happens only when visible key of value changed or repaint is forced.
type Pipeline struct {
	log      *log2.Log
	canvas   Canvas
	interval time.Duration
	last     time.Duration
	rendered [telemetry.ChannelCount]string
	valid    [telemetry.ChannelCount]bool
	redraws  uint64
}

func NewPipeline(log *log2.Log, cv Canvas, interval time.Duration) *Pipeline {
	if interval == 0 {
		interval = DefaultInterval
	}
	return &Pipeline{log: log, canvas: cv, interval: interval}
}

// Chrome paints static background and frame then every field.
func (self *Pipeline) Chrome(store *telemetry.Store) {
	self.canvas.FillScreen(Navy)
	self.canvas.DrawRoundRect(1, 1, Width-2, Height-2, 10, LightGrey)
	self.canvas.DrawRoundRect(2, 2, Width-4, Height-4, 8, DarkGrey)
	self.Render(store, true)
}

// Render redraws changed fields, or all when force. Returns redrawn channels.
func (self *Pipeline) Render(store *telemetry.Store, force bool) []telemetry.Channel {
	var out []telemetry.Channel
	for i := range Layout {
		f := &Layout[i]
		v := store.Get(f.Channel)
		key := f.Key(v)
		if !force && self.valid[i] && self.rendered[i] == key {
			continue
		}
		f.Draw(self.canvas, v)
		self.rendered[i] = key
		self.valid[i] = true
		self.redraws++
		out = append(out, f.Channel)
	}
	if len(out) != 0 {
		self.log.Debugf("render %v", out)
	}
	return out
}

// Tick renders when more than interval passed since previous render tick.
func (self *Pipeline) Tick(now time.Duration, store *telemetry.Store) (bool, []telemetry.Channel) {
	if now-self.last <= self.interval {
		return false, nil
	}
	self.last = now
	return true, self.Render(store, false)
}

// Redraws counts field draws since creation.
func (self *Pipeline) Redraws() uint64 { return self.redraws }
