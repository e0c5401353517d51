// Abstract input events
package input

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/powerdash/helpers"
	"github.com/temoto/powerdash/log2"
)

const DefaultBufferSize = 16

type Key uint16

type Event struct {
	Source string
	Key    Key
	Up     bool
}

func (e Event) String() string {
	dir := "down"
	if e.Up {
		dir = "up"
	}
	return fmt.Sprintf("%s:%d:%s", e.Source, e.Key, dir)
}

type Source interface {
	Read() (Event, error)
	String() string
	io.Closer
}

func Drain(ch <-chan Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// Dispatch fans in blocking sources into bounded buffer.
// Source goroutines only enqueue, consumer polls with Pending.
type Dispatch struct {
	Log     *log2.Log
	bus     chan Event
	dropped uint32
	sources []Source
}

func NewDispatch(log *log2.Log, size int) *Dispatch {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Dispatch{
		Log: log,
		bus: make(chan Event, size),
	}
}

// Run starts reader goroutine per source, tracked by a.
func (self *Dispatch) Run(a *alive.Alive, sources []Source) {
	self.sources = append(self.sources, sources...)
	for _, source := range sources {
		if !a.Add(1) {
			return
		}
		go func(s Source) {
			defer a.Done()
			self.readSource(a, s)
		}(source)
	}
}

// Close closes all sources, unblocking their readers.
func (self *Dispatch) Close() error {
	errs := make([]error, 0, len(self.sources))
	for _, s := range self.sources {
		errs = append(errs, s.Close())
	}
	return helpers.FoldErrors(errs)
}

// Emit enqueues event without blocking, drops on overflow.
func (self *Dispatch) Emit(event Event) bool {
	select {
	case self.bus <- event:
		self.Log.Debugf("input emit=%s", event)
		return true
	default:
		atomic.AddUint32(&self.dropped, 1)
		self.Log.Errorf("input buffer full, dropped event=%s", event)
		return false
	}
}

// Pending appends buffered events to buf and returns immediately.
func (self *Dispatch) Pending(buf []Event) []Event {
	for {
		select {
		case e := <-self.bus:
			buf = append(buf, e)
		default:
			return buf
		}
	}
}

func (self *Dispatch) Dropped() uint32 { return atomic.LoadUint32(&self.dropped) }

func (self *Dispatch) readSource(a *alive.Alive, source Source) {
	tag := source.String()
	for a.IsRunning() {
		event, err := source.Read()
		if err != nil {
			if !a.IsRunning() || errors.Cause(err) == io.EOF {
				self.Log.Debugf("input source=%s closed", tag)
				return
			}
			err = errors.Annotatef(err, "input source=%s", tag)
			self.Log.Error(err)
			return
		}
		self.Emit(event)
	}
}
