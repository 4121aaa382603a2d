package core

import (
	"encoding/json"
	"sync"
)

type exchange struct {
	lastOffer  json.RawMessage
	offerFrom  string
	lastAnswer json.RawMessage
	answerFrom string
}

// Relay passes WebRTC negotiation payloads between call participants. It
// holds no authoritative state: the per-call offer/answer cache only lets a
// late group joiner retrieve the most recent negotiation payload and may be
// dropped at any time. The relay never buffers and never retries; delivery to
// an offline target is a silent no-op.
type Relay struct {
	calls    *CallManager
	presence *Presence

	mu    sync.Mutex
	cache map[string]*exchange
}

// NewRelay builds the relay and hooks the cache eviction to call teardown.
func NewRelay(calls *CallManager, presence *Presence) *Relay {
	r := &Relay{
		calls:    calls,
		presence: presence,
		cache:    make(map[string]*exchange),
	}
	calls.OnTerminal(r.Forget)
	return r
}

// Offer relays an SDP offer. An empty to fans out to every other online
// participant of the session.
func (r *Relay) Offer(callID, from, to string, payload json.RawMessage) error {
	if err := r.forward(callID, from, to, &Event{
		Kind:   EventSignalOffer,
		Signal: &SignalEvent{CallID: callID, From: from, Payload: payload},
	}); err != nil {
		return err
	}
	r.mu.Lock()
	ex := r.ensure(callID)
	ex.lastOffer = payload
	ex.offerFrom = from
	r.mu.Unlock()
	return nil
}

// Answer relays an SDP answer.
func (r *Relay) Answer(callID, from, to string, payload json.RawMessage) error {
	if err := r.forward(callID, from, to, &Event{
		Kind:   EventSignalAnswer,
		Signal: &SignalEvent{CallID: callID, From: from, Payload: payload},
	}); err != nil {
		return err
	}
	r.mu.Lock()
	ex := r.ensure(callID)
	ex.lastAnswer = payload
	ex.answerFrom = from
	r.mu.Unlock()
	return nil
}

// ICECandidate relays an ICE candidate. Candidates are not cached.
func (r *Relay) ICECandidate(callID, from, to string, payload json.RawMessage) error {
	return r.forward(callID, from, to, &Event{
		Kind:   EventSignalICECandidate,
		Signal: &SignalEvent{CallID: callID, From: from, Payload: payload},
	})
}

// LastOffer returns the cached offer for a call and its sender, if any. Used
// to catch a late group joiner up on the current negotiation.
func (r *Relay) LastOffer(callID string) (json.RawMessage, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.cache[callID]
	if !ok || ex.lastOffer == nil {
		return nil, "", false
	}
	return ex.lastOffer, ex.offerFrom, true
}

// Forget drops the ephemeral cache for a call.
func (r *Relay) Forget(callID string) {
	r.mu.Lock()
	delete(r.cache, callID)
	r.mu.Unlock()
}

// forward resolves to against the session's live roster. from must belong to
// the session; a to outside the session is refused so signaling cannot leak
// to users that were never part of the call.
func (r *Relay) forward(callID, from, to string, ev *Event) error {
	participants, invited, err := r.calls.Roster(callID)
	if err != nil {
		return err
	}

	inSession := make(map[string]struct{}, len(participants)+len(invited))
	for _, u := range participants {
		inSession[u] = struct{}{}
	}
	for _, u := range invited {
		inSession[u] = struct{}{}
	}

	if _, ok := inSession[from]; !ok {
		return ErrNotInCall
	}

	if to != "" {
		if _, ok := inSession[to]; !ok {
			return ErrNotInCall
		}
		r.deliver(to, ev)
		return nil
	}

	// Group fan-out: every other online participant.
	for _, u := range participants {
		if u == from {
			continue
		}
		r.deliver(u, ev)
	}
	return nil
}

func (r *Relay) deliver(username string, ev *Event) {
	if client, ok := r.presence.Lookup(username); ok {
		client.Send(ev)
	}
}

func (r *Relay) ensure(callID string) *exchange {
	ex, ok := r.cache[callID]
	if !ok {
		ex = &exchange{}
		r.cache[callID] = ex
	}
	return ex
}
