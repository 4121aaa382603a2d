package core

import (
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v received: %+v", kind, ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// online registers a client for username straight into the presence
// registry, bypassing the hub hello flow.
func online(t *testing.T, p *Presence, username string) *Client {
	t.Helper()
	c := NewClient(username, username)
	if prev := p.Register(username, c); prev != nil {
		t.Fatalf("unexpected replaced client for %s", username)
	}
	return c
}

func containsUser(users []string, name string) bool {
	for _, u := range users {
		if u == name {
			return true
		}
	}
	return false
}
