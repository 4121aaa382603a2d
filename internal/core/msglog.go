package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageLog keeps a per-room ordered log of messages. Appends are serialized
// under one lock, which is the single authoritative point assigning sequence
// numbers: within a room, Seq is gap-free and strictly increasing in append
// order.
type MessageLog struct {
	mu    sync.RWMutex
	rooms *Rooms
	logs  map[string][]Message
	seqs  map[string]uint64
}

// NewMessageLog builds an empty log backed by the given membership manager.
func NewMessageLog(rooms *Rooms) *MessageLog {
	return &MessageLog{
		rooms: rooms,
		logs:  make(map[string][]Message),
		seqs:  make(map[string]uint64),
	}
}

// Append assigns the next sequence number for the room, stores the message,
// and returns it. Public seed rooms auto-create on first use; any other
// unknown room fails with ErrRoomNotFound.
func (l *MessageLog) Append(roomID, from, text string, file *FileRef, kind MessageKind) (Message, error) {
	if _, ok := l.rooms.Get(roomID); !ok {
		// Delegates the auto-create decision: Join knows which ids are
		// public seeds.
		if err := l.rooms.Join(from, roomID); err != nil {
			return Message{}, err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seqs[roomID]++
	msg := Message{
		ID:        uuid.NewString(),
		Room:      roomID,
		From:      from,
		Text:      text,
		File:      file,
		Kind:      kind,
		Seq:       l.seqs[roomID],
		CreatedAt: time.Now(),
	}
	l.logs[roomID] = append(l.logs[roomID], msg)
	return msg, nil
}

// Recent returns the most recent limit messages in append order. A fresh call
// re-reads current state.
func (l *MessageLog) Recent(roomID string, limit int) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	log := l.logs[roomID]
	if limit <= 0 || limit > len(log) {
		limit = len(log)
	}
	out := make([]Message, limit)
	copy(out, log[len(log)-limit:])
	return out
}

// Seed pre-loads a room's log, typically from a persisted snapshot at
// startup. The room's sequence counter continues after the highest seeded
// sequence.
func (l *MessageLog) Seed(roomID string, msgs []Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range msgs {
		l.logs[roomID] = append(l.logs[roomID], m)
		if m.Seq > l.seqs[roomID] {
			l.seqs[roomID] = m.Seq
		}
	}
}
