package session

import (
	"sync"

	"github.com/anivault/anivault/internal/domain"
	"github.com/anivault/anivault/internal/identity"
)

// State is the process-wide authentication state.
type State struct {
	User        *domain.User
	Session     *identity.Session
	Loading     bool
	Err         error
	Initialized bool
}

// Authenticated reports whether both a session and a profile are present.
func (s State) Authenticated() bool { return s.Session != nil && s.User != nil }

// Store holds State and notifies subscribers after every change. It
// performs no validation; callers decide what to write.
type Store struct {
	mu     sync.RWMutex
	state  State
	nextID int
	subs   map[int]func(State)
	closed bool
}

func NewStore() *Store {
	return &Store{subs: make(map[int]func(State))}
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

func (s *Store) SetUser(u *domain.User) {
	s.update(func(st *State) {
		if u == nil {
			st.User = nil
			return
		}
		cp := *u
		st.User = &cp
	})
}

func (s *Store) SetSession(sess *identity.Session) {
	s.update(func(st *State) { st.Session = sess.Clone() })
}

func (s *Store) SetLoading(v bool) { s.update(func(st *State) { st.Loading = v }) }

func (s *Store) SetError(err error) { s.update(func(st *State) { st.Err = err }) }

func (s *Store) SetInitialized(v bool) { s.update(func(st *State) { st.Initialized = v }) }

// Reset clears user, session, error and loading in one step. Initialized is
// kept.
func (s *Store) Reset() {
	s.update(func(st *State) {
		st.User = nil
		st.Session = nil
		st.Err = nil
		st.Loading = false
	})
}

// Subscribe registers fn to receive a snapshot after each change and returns
// a function that removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close drops all subscribers. Later writes still apply but notify nobody.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[int]func(State))
}

func (s *Store) update(mut func(*State)) {
	s.mu.Lock()
	mut(&s.state)
	snap := s.copyLocked()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Store) copyLocked() State {
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	st.Session = st.Session.Clone()
	return st
}
