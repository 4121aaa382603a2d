package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/noknowgram/server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if created.ID == 0 || created.Username != "alice" {
		t.Fatalf("unexpected created user: %+v", created)
	}

	byName, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("lookup by username failed: %v", err)
	}
	if byName.ID != created.ID || byName.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", byName)
	}

	if _, err := s.GetUserByUsername(ctx, "ghost"); err == nil {
		t.Fatalf("expected error for unknown user")
	}

	// Username is unique.
	if _, err := s.CreateUser(ctx, "alice", "hash2"); err == nil {
		t.Fatalf("expected duplicate username to fail")
	}
}

func seedMessage(t *testing.T, s *SQLiteStore, id, room string, seq uint64) {
	t.Helper()
	err := s.SaveMessage(context.Background(), &store.Message{
		ID:        id,
		Room:      room,
		Sender:    "alice",
		Text:      "m" + id,
		Kind:      "text",
		Seq:       seq,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("save message failed: %v", err)
	}
}

func TestRecentMessagesOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := uint64(1); i <= 5; i++ {
		seedMessage(t, s, "id"+string(rune('0'+i)), "general", i)
	}

	msgs, err := s.RecentMessages(ctx, "general", 3)
	if err != nil {
		t.Fatalf("recent messages failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	// Tail of the log, re-ordered into append order.
	if msgs[0].Seq != 3 || msgs[2].Seq != 5 {
		t.Fatalf("expected seqs 3..5 ascending, got %d..%d", msgs[0].Seq, msgs[2].Seq)
	}
}

func TestSaveMessageIgnoresDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedMessage(t, s, "dup", "general", 1)
	seedMessage(t, s, "dup", "general", 1)

	msgs, err := s.RecentMessages(ctx, "general", 10)
	if err != nil {
		t.Fatalf("recent messages failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected duplicate insert to be ignored, got %d rows", len(msgs))
	}
}

func TestRoomsListsDistinct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedMessage(t, s, "a", "general", 1)
	seedMessage(t, s, "b", "general", 2)
	seedMessage(t, s, "c", "gaming", 1)

	rooms, err := s.Rooms(ctx)
	if err != nil {
		t.Fatalf("rooms failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %v", rooms)
	}
}

func TestFileMessageRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.SaveMessage(ctx, &store.Message{
		ID:        "f1",
		Room:      "general",
		Sender:    "alice",
		FileID:    "u1",
		FileName:  "pic.png",
		FileURL:   "/uploads/u1.png",
		Kind:      "file",
		Seq:       1,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("save file message failed: %v", err)
	}

	msgs, err := s.RecentMessages(ctx, "general", 1)
	if err != nil {
		t.Fatalf("recent messages failed: %v", err)
	}
	got := msgs[0]
	if got.Kind != "file" || got.FileURL != "/uploads/u1.png" || got.FileName != "pic.png" {
		t.Fatalf("unexpected file message: %+v", got)
	}
}
