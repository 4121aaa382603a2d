package store

import (
	"context"
	"time"
)

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Message is a persisted chat message, the best-effort snapshot of the
// in-memory log.
type Message struct {
	ID        string
	Room      string
	Sender    string
	Text      string
	FileID    string
	FileName  string
	FileURL   string
	Kind      string
	Seq       uint64
	CreatedAt time.Time
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
}

// MessageStore persists the message snapshot.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *Message) error
	RecentMessages(ctx context.Context, room string, limit int) ([]*Message, error)
	Rooms(ctx context.Context) ([]string, error)
}

// Store is the full persistence surface.
type Store interface {
	UserStore
	MessageStore
	Close() error
}
