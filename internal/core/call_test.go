package core

import (
	"errors"
	"testing"
)

func newCallFixture() (*Presence, *Rooms, *CallManager) {
	presence := NewPresence()
	rooms := NewRooms("general")
	calls := NewCallManager(presence, rooms)
	return presence, rooms, calls
}

func TestCallOfflineTargetRejectsImmediately(t *testing.T) {
	presence, _, calls := newCallFixture()
	alice := online(t, presence, "alice")

	callID, err := calls.Start("alice", CallVoice, TargetUser, "bob")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	ev := mustEvent(t, alice.Events, EventCallRejected)
	if ev.Call == nil || ev.Call.By != "bob" || ev.Call.Reason != "offline" {
		t.Fatalf("expected synthesized offline rejection, got %+v", ev.Call)
	}

	st, ok := calls.State(callID)
	if !ok || st != StateRejected {
		t.Fatalf("expected REJECTED state, got %v %v", st, ok)
	}
}

func TestCallAcceptMovesToActive(t *testing.T) {
	presence, _, calls := newCallFixture()
	alice := online(t, presence, "alice")
	bob := online(t, presence, "bob")

	callID, err := calls.Start("alice", CallVideo, TargetUser, "bob")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	started := mustEvent(t, alice.Events, EventCallStarted)
	if started.Call.CallID != callID || started.Call.Kind != CallVideo {
		t.Fatalf("unexpected started event: %+v", started.Call)
	}
	incoming := mustEvent(t, bob.Events, EventCallIncoming)
	if incoming.Call.Caller != "alice" || incoming.Call.CallID != callID {
		t.Fatalf("unexpected incoming event: %+v", incoming.Call)
	}

	if st, _ := calls.State(callID); st != StateRinging {
		t.Fatalf("expected RINGING before accept, got %v", st)
	}

	if err := calls.Accept(callID, "bob"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if st, _ := calls.State(callID); st != StateActive {
		t.Fatalf("expected ACTIVE after accept, got %v", st)
	}

	accepted := mustEvent(t, alice.Events, EventCallAccepted)
	if accepted.Call.By != "bob" {
		t.Fatalf("expected accept by bob, got %+v", accepted.Call)
	}
	if !containsUser(accepted.Call.Participants, "alice") || !containsUser(accepted.Call.Participants, "bob") {
		t.Fatalf("expected both participants, got %v", accepted.Call.Participants)
	}
	mustEvent(t, bob.Events, EventCallAccepted)
}

func TestCallSecondAcceptOnActiveOneToOne(t *testing.T) {
	presence, _, calls := newCallFixture()
	online(t, presence, "alice")
	online(t, presence, "bob")

	callID, _ := calls.Start("alice", CallVoice, TargetUser, "bob")
	if err := calls.Accept(callID, "bob"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if err := calls.Accept(callID, "bob"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on re-accept, got %v", err)
	}
}

func TestCallRejectOneToOneTerminates(t *testing.T) {
	presence, _, calls := newCallFixture()
	alice := online(t, presence, "alice")
	online(t, presence, "bob")

	callID, _ := calls.Start("alice", CallVoice, TargetUser, "bob")
	if err := calls.Reject(callID, "bob"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	rejected := mustEvent(t, alice.Events, EventCallRejected)
	if rejected.Call.By != "bob" {
		t.Fatalf("expected reject by bob, got %+v", rejected.Call)
	}
	mustEvent(t, alice.Events, EventCallEnded)

	if st, _ := calls.State(callID); st != StateRejected {
		t.Fatalf("expected REJECTED, got %v", st)
	}
	if err := calls.Accept(callID, "bob"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on late accept, got %v", err)
	}
}

func TestCallGroupPartialRejectStaysRinging(t *testing.T) {
	presence, rooms, calls := newCallFixture()
	online(t, presence, "alice")
	online(t, presence, "bob")
	online(t, presence, "carol")

	info := rooms.CreateGroup("alice", "team", []string{"bob", "carol"})
	callID, err := calls.Start("alice", CallVoice, TargetGroup, info.ID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := calls.Reject(callID, "bob"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if st, _ := calls.State(callID); st != StateRinging {
		t.Fatalf("expected RINGING while carol is still rung, got %v", st)
	}

	// Carol can still accept.
	if err := calls.Accept(callID, "carol"); err != nil {
		t.Fatalf("carol accept failed: %v", err)
	}
	if st, _ := calls.State(callID); st != StateActive {
		t.Fatalf("expected ACTIVE after carol accepts, got %v", st)
	}

	// Bob rejected already; he cannot sneak in afterwards.
	if err := calls.Accept(callID, "bob"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for rejected member, got %v", err)
	}
}

func TestCallGroupAllRejectedTerminates(t *testing.T) {
	presence, rooms, calls := newCallFixture()
	alice := online(t, presence, "alice")
	online(t, presence, "bob")
	online(t, presence, "carol")

	info := rooms.CreateGroup("alice", "team", []string{"bob", "carol"})
	callID, _ := calls.Start("alice", CallVoice, TargetGroup, info.ID)

	if err := calls.Reject(callID, "bob"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if err := calls.Reject(callID, "carol"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	if st, _ := calls.State(callID); st != StateRejected {
		t.Fatalf("expected REJECTED when everyone declined, got %v", st)
	}
	mustEvent(t, alice.Events, EventCallEnded)
}

func TestCallGroupRingsOnlyOnlineMembers(t *testing.T) {
	presence, rooms, calls := newCallFixture()
	online(t, presence, "alice")
	bob := online(t, presence, "bob")
	// carol is a member but offline.

	info := rooms.CreateGroup("alice", "team", []string{"bob", "carol"})
	callID, err := calls.Start("alice", CallVoice, TargetGroup, info.ID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	mustEvent(t, bob.Events, EventCallIncoming)

	_, invited, err := calls.Roster(callID)
	if err != nil {
		t.Fatalf("roster failed: %v", err)
	}
	if len(invited) != 1 || invited[0] != "bob" {
		t.Fatalf("expected only bob invited, got %v", invited)
	}
}

func TestCallEndIsIdempotent(t *testing.T) {
	presence, _, calls := newCallFixture()
	alice := online(t, presence, "alice")
	bob := online(t, presence, "bob")

	callID, _ := calls.Start("alice", CallVoice, TargetUser, "bob")
	if err := calls.Accept(callID, "bob"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if err := calls.End(callID, "alice"); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	mustEvent(t, alice.Events, EventCallEnded)
	mustEvent(t, bob.Events, EventCallEnded)

	// Second end and unknown id are both no-ops.
	if err := calls.End(callID, "bob"); err != nil {
		t.Fatalf("repeated end must be a no-op, got %v", err)
	}
	if err := calls.End("no-such-call", "bob"); err != nil {
		t.Fatalf("end of unknown id must be a no-op, got %v", err)
	}
}

func TestCallEndWhileRingingNotifiesInvitees(t *testing.T) {
	presence, _, calls := newCallFixture()
	online(t, presence, "alice")
	bob := online(t, presence, "bob")

	callID, _ := calls.Start("alice", CallVoice, TargetUser, "bob")
	mustEvent(t, bob.Events, EventCallIncoming)

	if err := calls.End(callID, "alice"); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	// Bob never accepted but his ring must stop.
	mustEvent(t, bob.Events, EventCallEnded)
}

func TestCallAcceptUnknownAndTerminal(t *testing.T) {
	presence, _, calls := newCallFixture()
	online(t, presence, "alice")
	online(t, presence, "bob")

	if err := calls.Accept("no-such-call", "bob"); !errors.Is(err, ErrCallNotFound) {
		t.Fatalf("expected ErrCallNotFound, got %v", err)
	}

	callID, _ := calls.Start("alice", CallVoice, TargetUser, "bob")
	_ = calls.End(callID, "alice")

	// Terminal is remembered: late accept is invalid_state, not not_found.
	if err := calls.Accept(callID, "bob"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after end, got %v", err)
	}
	if err := calls.Reject(callID, "bob"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after end, got %v", err)
	}
}

func TestCallAcceptByOutsider(t *testing.T) {
	presence, _, calls := newCallFixture()
	online(t, presence, "alice")
	online(t, presence, "bob")
	online(t, presence, "mallory")

	callID, _ := calls.Start("alice", CallVoice, TargetUser, "bob")
	if err := calls.Accept(callID, "mallory"); !errors.Is(err, ErrNotInCall) {
		t.Fatalf("expected ErrNotInCall, got %v", err)
	}
	if err := calls.Reject(callID, "mallory"); !errors.Is(err, ErrNotInCall) {
		t.Fatalf("expected ErrNotInCall, got %v", err)
	}
}

func TestCallSelfCallRefused(t *testing.T) {
	presence, _, calls := newCallFixture()
	online(t, presence, "alice")

	if _, err := calls.Start("alice", CallVoice, TargetUser, "alice"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for self call, got %v", err)
	}
}

func TestCallGroupUnknownRoom(t *testing.T) {
	presence, _, calls := newCallFixture()
	online(t, presence, "alice")

	if _, err := calls.Start("alice", CallVoice, TargetGroup, "ghost"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestCallDisconnectEndsSessions(t *testing.T) {
	presence, _, calls := newCallFixture()
	alice := online(t, presence, "alice")
	online(t, presence, "bob")

	callID, _ := calls.Start("alice", CallVoice, TargetUser, "bob")
	if err := calls.Accept(callID, "bob"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	calls.HandleDisconnect("bob")

	if st, _ := calls.State(callID); st != StateEnded {
		t.Fatalf("expected ENDED after disconnect, got %v", st)
	}
	mustEvent(t, alice.Events, EventCallEnded)
}

func TestCallTerminalHookFires(t *testing.T) {
	presence, _, calls := newCallFixture()
	online(t, presence, "alice")
	online(t, presence, "bob")

	var terminated []string
	calls.OnTerminal(func(callID string) {
		terminated = append(terminated, callID)
	})

	callID, _ := calls.Start("alice", CallVoice, TargetUser, "bob")
	_ = calls.End(callID, "alice")

	if len(terminated) != 1 || terminated[0] != callID {
		t.Fatalf("expected terminal hook for %s, got %v", callID, terminated)
	}
}
