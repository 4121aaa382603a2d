package core

import "time"

// MessageKind distinguishes chat payloads.
type MessageKind string

const (
	MessageText   MessageKind = "text"
	MessageFile   MessageKind = "file"
	MessageSystem MessageKind = "system"
)

// FileRef points at an uploaded file. Messages carry only the reference,
// never the bytes.
type FileRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Message is the domain model for a chat message. Immutable once appended.
type Message struct {
	ID        string
	Room      string
	From      string
	Text      string
	File      *FileRef
	Kind      MessageKind
	Seq       uint64
	CreatedAt time.Time
}
