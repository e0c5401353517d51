package network

import "sync"

// Mock link for supervisor tests.
// After Begin, Connected turns true once UpAfter more polls happened. Negative UpAfter means never.
type Mock struct {
	mu          sync.Mutex
	up          bool
	pending     int
	begun       bool
	UpAfter     int
	BeginErr    error
	Begins      int
	Disconnects int
	Polls       int
}

func NewMock(up bool) *Mock { return &Mock{up: up} }

func (self *Mock) String() string { return "mock" }

func (self *Mock) Begin() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Begins++
	self.begun = self.UpAfter >= 0
	self.pending = self.UpAfter
	return self.BeginErr
}

func (self *Mock) Connected() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Polls++
	if !self.up && self.begun {
		if self.pending <= 0 {
			self.up = true
			self.begun = false
		} else {
			self.pending--
		}
	}
	return self.up
}

func (self *Mock) Disconnect() error {
	self.mu.Lock()
	self.Disconnects++
	self.up = false
	self.mu.Unlock()
	return nil
}

// Set forces link state, e.g. to simulate drop.
func (self *Mock) Set(up bool) {
	self.mu.Lock()
	self.up = up
	self.begun = false
	self.mu.Unlock()
}
