package identity

import "sync"

type EventKind string

const (
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
	EventUserUpdated    EventKind = "USER_UPDATED"
)

// Event is an auth-state change. Session is nil for EventSignedOut.
// Interactive marks a password sign-in made by this process, whose caller
// applies the result itself.
type Event struct {
	Kind        EventKind
	Session     *Session
	Interactive bool
}

const subscriptionBuffer = 32

// Hub fans auth events out to subscribers. Each subscriber receives events
// in publish order.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*Subscription
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]*Subscription)}
}

type Subscription struct {
	C <-chan Event

	id   int
	hub  *Hub
	ch   chan Event
	done chan struct{}
	once sync.Once
}

func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ch := make(chan Event, subscriptionBuffer)
	sub := &Subscription{C: ch, id: h.nextID, hub: h, ch: ch, done: make(chan struct{})}
	h.subs[sub.id] = sub
	return sub
}

// Unsubscribe stops delivery. The channel is never closed; readers select on
// Done instead.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()
	})
}

func (s *Subscription) Done() <-chan struct{} { return s.done }

// Publish delivers ev to every current subscriber, blocking on a full buffer
// until the subscriber drains or unsubscribes.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.ch <- Event{Kind: ev.Kind, Session: ev.Session.Clone(), Interactive: ev.Interactive}:
		case <-s.done:
		}
	}
}
