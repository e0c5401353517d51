package input

import (
	"io"
	"sync"
)

const MockTag = "mock"

// MockSource replays events pushed by test, Close ends Read with io.EOF.
type MockSource struct {
	ch   chan Event
	once sync.Once
}

// compile-time interface compliance test
var _ Source = new(MockSource)

func NewMockSource() *MockSource { return &MockSource{ch: make(chan Event)} }

func (self *MockSource) String() string { return MockTag }

func (self *MockSource) Push(key Key, up bool) {
	self.ch <- Event{Source: MockTag, Key: key, Up: up}
}

func (self *MockSource) Read() (Event, error) {
	e, ok := <-self.ch
	if !ok {
		return Event{}, io.EOF
	}
	return e, nil
}

func (self *MockSource) Close() error {
	self.once.Do(func() { close(self.ch) })
	return nil
}
