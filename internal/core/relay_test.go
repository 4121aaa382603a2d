package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func newRelayFixture() (*Presence, *Rooms, *CallManager, *Relay) {
	presence := NewPresence()
	rooms := NewRooms("general")
	calls := NewCallManager(presence, rooms)
	relay := NewRelay(calls, presence)
	return presence, rooms, calls, relay
}

func TestRelayOfferDirected(t *testing.T) {
	presence, _, calls, relay := newRelayFixture()
	online(t, presence, "alice")
	bob := online(t, presence, "bob")

	callID, _ := calls.Start("alice", CallVoice, TargetUser, "bob")

	payload := json.RawMessage(`{"sdp":"v=0"}`)
	if err := relay.Offer(callID, "alice", "bob", payload); err != nil {
		t.Fatalf("offer failed: %v", err)
	}

	ev := mustEvent(t, bob.Events, EventSignalOffer)
	if ev.Signal == nil || ev.Signal.From != "alice" || ev.Signal.CallID != callID {
		t.Fatalf("unexpected signal event: %+v", ev.Signal)
	}
	if string(ev.Signal.Payload) != `{"sdp":"v=0"}` {
		t.Fatalf("payload must pass through opaque, got %s", ev.Signal.Payload)
	}
}

func TestRelayGroupFanOutExcludesSender(t *testing.T) {
	presence, rooms, calls, relay := newRelayFixture()
	alice := online(t, presence, "alice")
	bob := online(t, presence, "bob")
	carol := online(t, presence, "carol")

	info := rooms.CreateGroup("alice", "team", []string{"bob", "carol"})
	callID, _ := calls.Start("alice", CallVoice, TargetGroup, info.ID)
	if err := calls.Accept(callID, "bob"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if err := calls.Accept(callID, "carol"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	// Empty to: every other participant, never the sender.
	if err := relay.ICECandidate(callID, "alice", "", json.RawMessage(`{"c":1}`)); err != nil {
		t.Fatalf("fan-out failed: %v", err)
	}
	mustEvent(t, bob.Events, EventSignalICECandidate)
	mustEvent(t, carol.Events, EventSignalICECandidate)
	mustNoEvent(t, alice.Events, EventSignalICECandidate)
}

func TestRelayRefusesOutsiders(t *testing.T) {
	presence, _, calls, relay := newRelayFixture()
	online(t, presence, "alice")
	online(t, presence, "bob")
	online(t, presence, "mallory")

	callID, _ := calls.Start("alice", CallVoice, TargetUser, "bob")

	payload := json.RawMessage(`{}`)
	if err := relay.Offer(callID, "mallory", "bob", payload); !errors.Is(err, ErrNotInCall) {
		t.Fatalf("expected ErrNotInCall for outsider sender, got %v", err)
	}
	if err := relay.Offer(callID, "alice", "mallory", payload); !errors.Is(err, ErrNotInCall) {
		t.Fatalf("expected ErrNotInCall for outsider target, got %v", err)
	}
}

func TestRelayUnknownAndTerminalCall(t *testing.T) {
	presence, _, calls, relay := newRelayFixture()
	online(t, presence, "alice")
	online(t, presence, "bob")

	payload := json.RawMessage(`{}`)
	if err := relay.Offer("no-such-call", "alice", "bob", payload); !errors.Is(err, ErrCallNotFound) {
		t.Fatalf("expected ErrCallNotFound, got %v", err)
	}

	callID, _ := calls.Start("alice", CallVoice, TargetUser, "bob")
	_ = calls.End(callID, "alice")

	if err := relay.Offer(callID, "alice", "bob", payload); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after teardown, got %v", err)
	}
}

func TestRelayCacheAndEviction(t *testing.T) {
	presence, _, calls, relay := newRelayFixture()
	online(t, presence, "alice")
	online(t, presence, "bob")

	callID, _ := calls.Start("alice", CallVoice, TargetUser, "bob")

	payload := json.RawMessage(`{"sdp":"offer"}`)
	if err := relay.Offer(callID, "alice", "bob", payload); err != nil {
		t.Fatalf("offer failed: %v", err)
	}

	cached, from, ok := relay.LastOffer(callID)
	if !ok || from != "alice" || string(cached) != `{"sdp":"offer"}` {
		t.Fatalf("expected cached offer from alice, got %q %q %v", cached, from, ok)
	}

	// Teardown evicts the cache through the terminal hook.
	_ = calls.End(callID, "alice")
	if _, _, ok := relay.LastOffer(callID); ok {
		t.Fatalf("expected cache evicted after call end")
	}
}

func TestRelayAfterDisconnectCascade(t *testing.T) {
	presence, rooms, calls, relay := newRelayFixture()
	online(t, presence, "alice")
	bob := online(t, presence, "bob")

	info := rooms.CreateGroup("alice", "team", []string{"bob"})
	callID, _ := calls.Start("alice", CallVoice, TargetGroup, info.ID)
	if err := calls.Accept(callID, "bob"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	// Bob drops off; the presence cascade ends his sessions.
	presence.Unregister(bob)
	calls.HandleDisconnect("bob")

	// After the cascade the session is gone; relaying reports the state.
	if err := relay.Offer(callID, "alice", "", json.RawMessage(`{}`)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState once session ended, got %v", err)
	}
}
