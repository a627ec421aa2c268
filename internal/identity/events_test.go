package identity

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestHubDeliversInOrderAndStopsAfterUnsubscribe(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()

	kinds := []EventKind{EventSignedIn, EventTokenRefreshed, EventSignedOut}
	for _, k := range kinds {
		hub.Publish(Event{Kind: k, Session: &Session{UserID: uuid.New()}})
	}
	for _, want := range kinds {
		if got := (<-sub.C).Kind; got != want {
			t.Fatalf("got %s want %s", got, want)
		}
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
	hub.Publish(Event{Kind: EventSignedIn})
	select {
	case ev := <-sub.C:
		t.Fatalf("unexpected delivery after unsubscribe: %+v", ev)
	default:
	}
}

func TestHubPublishUnblocksOnUnsubscribe(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()
	for i := 0; i < subscriptionBuffer; i++ {
		hub.Publish(Event{Kind: EventTokenRefreshed})
	}

	done := make(chan struct{})
	go func() {
		hub.Publish(Event{Kind: EventSignedOut})
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("publish should block on a full subscriber")
	case <-time.After(30 * time.Millisecond):
	}
	sub.Unsubscribe()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish stayed blocked after unsubscribe")
	}
}
