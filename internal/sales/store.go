package sales

import "sync"

// State is the lifecycle state of a Store.
type State int

// Store states.
const (
	Empty State = iota
	Loaded
)

func (s State) String() string {
	if s == Loaded {
		return "loaded"
	}

	return "empty"
}

// ChangeKind says what kind of mutation happened.
type ChangeKind string

// Change kinds.
const (
	ChangeReplace ChangeKind = "replace"
	ChangeReset   ChangeKind = "reset"
)

// Change is delivered to observers after every mutation.
type Change struct {
	Kind ChangeKind
	Rows int
}

// Store holds the single current dataset. It is owned by whoever creates it
// and passed explicitly to collaborators; readers always receive copies.
type Store struct {
	mu        sync.RWMutex
	ds        Dataset
	loaded    bool
	observers []func(Change)
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{ds: Dataset{}.normalize()}
}

// Subscribe registers fn to be called after every Replace or Reset.
func (s *Store) Subscribe(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observers = append(s.observers, fn)
}

// Replace swaps the whole dataset. The store keeps its own copy.
func (s *Store) Replace(ds Dataset) {
	s.mu.Lock()
	s.ds = ds.Clone()
	s.loaded = true
	rows := len(s.ds.Hourly)
	observers := append([]func(Change){}, s.observers...)
	s.mu.Unlock()

	notify(observers, Change{Kind: ChangeReplace, Rows: rows})
}

// Reset empties the store.
func (s *Store) Reset() {
	s.mu.Lock()
	s.ds = Dataset{}.normalize()
	s.loaded = false
	observers := append([]func(Change){}, s.observers...)
	s.mu.Unlock()

	notify(observers, Change{Kind: ChangeReset})
}

// Snapshot returns a deep copy of the current dataset.
func (s *Store) Snapshot() Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ds.Clone()
}

// Records returns a copy of the hourly rows.
func (s *Store) Records() []HourlyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]HourlyRecord, len(s.ds.Hourly))
	copy(out, s.ds.Hourly)

	return out
}

// Len returns the number of hourly rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.ds.Hourly)
}

// State reports Loaded once a dataset has been placed with Replace.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.loaded {
		return Loaded
	}

	return Empty
}

func notify(observers []func(Change), c Change) {
	for _, fn := range observers {
		fn(c)
	}
}
