package telemetry

// Store is the single source of truth for current readings.
// Owned by main loop goroutine, no locking.
type Store struct {
	values  [ChannelCount]Value
	applied uint64
}

func NewStore() *Store {
	s := &Store{}
	for i := range s.values {
		s.values[i] = Zero
	}
	return s
}

func (self *Store) Apply(u Update) {
	if int(u.Channel) >= ChannelCount {
		return
	}
	self.values[u.Channel] = u.Value
	self.applied++
}

func (self *Store) Get(c Channel) Value { return self.values[c] }

func (self *Store) Snapshot() [ChannelCount]Value { return self.values }

// Applied counts updates since creation.
func (self *Store) Applied() uint64 { return self.applied }
