package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// CallKind is the media flavor requested by the caller.
type CallKind string

const (
	CallVoice CallKind = "voice"
	CallVideo CallKind = "video"
)

// TargetType says whether a call rings a single user or a group room.
type TargetType string

const (
	TargetUser  TargetType = "user"
	TargetGroup TargetType = "group"
)

// CallState is the lifecycle of a call session.
//
//	RINGING -> ACTIVE -> ENDED
//	RINGING -> REJECTED
//
// ENDED and REJECTED are terminal.
type CallState int

const (
	StateRinging CallState = iota
	StateActive
	StateEnded
	StateRejected
)

func (s CallState) String() string {
	switch s {
	case StateRinging:
		return "ringing"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

func (s CallState) terminal() bool {
	return s == StateEnded || s == StateRejected
}

type callSession struct {
	id         string
	kind       CallKind
	caller     string
	targetType TargetType
	target     string
	groupName  string

	state        CallState
	participants map[string]struct{}
	invited      map[string]struct{} // receiver set resolved at start
	rejected     map[string]struct{}
	createdAt    time.Time
}

func (s *callSession) participantList() []string {
	out := make([]string, 0, len(s.participants))
	for p := range s.participants {
		out = append(out, p)
	}
	return out
}

// CallManager owns every call session and is the only component allowed to
// mutate one. Sessions are referenced by id everywhere else. Notifications go
// straight to clients resolved through the presence registry; delivery to an
// offline participant is a silent no-op.
type CallManager struct {
	mu       sync.RWMutex
	presence *Presence
	rooms    *Rooms
	sessions map[string]*callSession
	// Terminal states are remembered so a late Accept gets invalid_state
	// rather than call_not_found, and repeated End stays a no-op.
	terminal   map[string]CallState
	onTerminal func(callID string)
}

// NewCallManager builds the manager on top of presence and membership.
func NewCallManager(presence *Presence, rooms *Rooms) *CallManager {
	return &CallManager{
		presence: presence,
		rooms:    rooms,
		sessions: make(map[string]*callSession),
		terminal: make(map[string]CallState),
	}
}

// OnTerminal registers a hook invoked (outside the manager lock) whenever a
// session reaches a terminal state. The signaling relay uses it to drop its
// ephemeral cache. Wire before serving traffic.
func (m *CallManager) OnTerminal(fn func(callID string)) {
	m.onTerminal = fn
}

// Start allocates a fresh session in RINGING with participants = {caller},
// resolves the receiver set, and notifies each resolved receiver. A 1:1 call
// against an offline target is rejected immediately on the target's behalf;
// there is no ringing against an offline user.
func (m *CallManager) Start(caller string, kind CallKind, targetType TargetType, target string) (string, error) {
	sess := &callSession{
		id:           uuid.NewString(),
		kind:         kind,
		caller:       caller,
		targetType:   targetType,
		target:       target,
		state:        StateRinging,
		participants: map[string]struct{}{caller: {}},
		invited:      make(map[string]struct{}),
		rejected:     make(map[string]struct{}),
		createdAt:    time.Now(),
	}

	switch targetType {
	case TargetUser:
		if target == caller {
			return "", ErrInvalidState
		}
		if _, online := m.presence.Lookup(target); !online {
			// Synthesized rejection: the caller learns immediately
			// instead of ringing into the void.
			m.mu.Lock()
			m.terminal[sess.id] = StateRejected
			m.mu.Unlock()
			m.deliver(caller, &Event{Kind: EventCallRejected, Call: &CallEvent{
				CallID: sess.id,
				Kind:   kind,
				Caller: caller,
				By:     target,
				Reason: "offline",
			}})
			m.fireTerminal(sess.id)
			return sess.id, nil
		}
		sess.invited[target] = struct{}{}
	case TargetGroup:
		info, ok := m.rooms.Get(target)
		if !ok {
			return "", ErrRoomNotFound
		}
		sess.groupName = info.Name
		for _, member := range info.Members {
			if member == caller {
				continue
			}
			if _, online := m.presence.Lookup(member); online {
				sess.invited[member] = struct{}{}
			}
		}
	default:
		return "", ErrInvalidState
	}

	m.mu.Lock()
	m.sessions[sess.id] = sess
	invited := make([]string, 0, len(sess.invited))
	for u := range sess.invited {
		invited = append(invited, u)
	}
	m.mu.Unlock()

	incoming := &CallEvent{
		CallID:     sess.id,
		Kind:       kind,
		Caller:     caller,
		TargetType: targetType,
		Target:     target,
		GroupName:  sess.groupName,
	}
	for _, user := range invited {
		m.deliver(user, &Event{Kind: EventCallIncoming, Call: incoming})
	}
	m.deliver(caller, &Event{Kind: EventCallStarted, Call: incoming})

	return sess.id, nil
}

// Accept adds username to the participants and moves the session to ACTIVE.
// Valid while the session is non-terminal: a group call keeps accepting late
// joiners after it went active. Every current participant is notified of the
// updated participant set.
func (m *CallManager) Accept(callID, username string) error {
	m.mu.Lock()
	sess, ok := m.sessions[callID]
	if !ok {
		_, wasTerminal := m.terminal[callID]
		m.mu.Unlock()
		if wasTerminal {
			return ErrInvalidState
		}
		return ErrCallNotFound
	}
	if sess.state.terminal() {
		m.mu.Unlock()
		return ErrInvalidState
	}
	if sess.state == StateActive && sess.targetType == TargetUser {
		m.mu.Unlock()
		return ErrInvalidState
	}
	if _, invited := sess.invited[username]; !invited {
		m.mu.Unlock()
		return ErrNotInCall
	}
	if _, rejected := sess.rejected[username]; rejected {
		m.mu.Unlock()
		return ErrInvalidState
	}

	sess.participants[username] = struct{}{}
	sess.state = StateActive
	participants := sess.participantList()
	ev := &CallEvent{
		CallID:       callID,
		Kind:         sess.kind,
		Caller:       sess.caller,
		By:           username,
		Participants: participants,
	}
	m.mu.Unlock()

	for _, user := range participants {
		m.deliver(user, &Event{Kind: EventCallAccepted, Call: ev})
	}
	return nil
}

// Reject refuses a ringing call. The caller is notified. A 1:1 call
// terminates on the single reject; a group call terminates only when every
// invited receiver has rejected and nobody accepted.
func (m *CallManager) Reject(callID, username string) error {
	m.mu.Lock()
	sess, ok := m.sessions[callID]
	if !ok {
		_, wasTerminal := m.terminal[callID]
		m.mu.Unlock()
		if wasTerminal {
			return ErrInvalidState
		}
		return ErrCallNotFound
	}
	if sess.state != StateRinging {
		m.mu.Unlock()
		return ErrInvalidState
	}
	if _, invited := sess.invited[username]; !invited {
		m.mu.Unlock()
		return ErrNotInCall
	}

	sess.rejected[username] = struct{}{}
	caller := sess.caller
	rejectedEv := &CallEvent{
		CallID: callID,
		Kind:   sess.kind,
		Caller: caller,
		By:     username,
	}

	allRejected := len(sess.rejected) == len(sess.invited) && len(sess.participants) == 1
	var endEv *CallEvent
	if allRejected {
		sess.state = StateRejected
		delete(m.sessions, callID)
		m.terminal[callID] = StateRejected
		endEv = &CallEvent{
			CallID: callID,
			Kind:   sess.kind,
			Caller: caller,
			Reason: "rejected by all receivers",
		}
	}
	m.mu.Unlock()

	m.deliver(caller, &Event{Kind: EventCallRejected, Call: rejectedEv})
	if endEv != nil {
		m.deliver(caller, &Event{Kind: EventCallEnded, Call: endEv})
		m.fireTerminal(callID)
	}
	return nil
}

// End terminates a ringing or active call, notifying every current
// participant plus any receiver still being rung. Idempotent: ending an
// already-terminal or unknown call id is a no-op, not an error.
func (m *CallManager) End(callID, username string) error {
	m.mu.Lock()
	sess, ok := m.sessions[callID]
	if !ok {
		m.mu.Unlock()
		return nil
	}

	sess.state = StateEnded
	delete(m.sessions, callID)
	m.terminal[callID] = StateEnded

	recipients := sess.participantList()
	// Pending invitees hear the ring stop too.
	for user := range sess.invited {
		if _, isParticipant := sess.participants[user]; isParticipant {
			continue
		}
		if _, rejected := sess.rejected[user]; rejected {
			continue
		}
		recipients = append(recipients, user)
	}
	ev := &CallEvent{
		CallID: callID,
		Kind:   sess.kind,
		Caller: sess.caller,
		By:     username,
		Reason: "ended",
	}
	m.mu.Unlock()

	for _, user := range recipients {
		m.deliver(user, &Event{Kind: EventCallEnded, Call: ev})
	}
	m.fireTerminal(callID)
	return nil
}

// HandleDisconnect ends every non-terminal session that counts username among
// its participants. Invoked from the presence cascade, for true disconnects
// and for replace-on-reconnect alike. After it returns no non-terminal
// session contains the user.
func (m *CallManager) HandleDisconnect(username string) {
	m.mu.RLock()
	var affected []string
	for id, sess := range m.sessions {
		if _, ok := sess.participants[username]; ok {
			affected = append(affected, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range affected {
		_ = m.End(id, username)
	}
}

// State reports the current state of a call id.
func (m *CallManager) State(callID string) (CallState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[callID]; ok {
		return sess.state, true
	}
	if st, ok := m.terminal[callID]; ok {
		return st, true
	}
	return 0, false
}

// Roster returns the live participant and invited sets of a non-terminal
// session. The signaling relay resolves targets exclusively through this, so
// payloads can never leak outside the session.
func (m *CallManager) Roster(callID string) (participants, invited []string, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[callID]
	if !ok {
		if _, wasTerminal := m.terminal[callID]; wasTerminal {
			return nil, nil, ErrInvalidState
		}
		return nil, nil, ErrCallNotFound
	}
	participants = sess.participantList()
	invited = make([]string, 0, len(sess.invited))
	for u := range sess.invited {
		invited = append(invited, u)
	}
	return participants, invited, nil
}

func (m *CallManager) deliver(username string, ev *Event) bool {
	client, ok := m.presence.Lookup(username)
	if !ok {
		return false
	}
	return client.Send(ev)
}

func (m *CallManager) fireTerminal(callID string) {
	if m.onTerminal != nil {
		m.onTerminal(callID)
	}
}
