package domain

import "time"

type MessageID string

// MessageKind separates ordinary text messages from records the hub
// synthesizes itself (currently only call history).
type MessageKind string

const (
	MessageText      MessageKind = "text"
	MessageCallEnded MessageKind = "call_ended"
)

// Message is the persisted chat record returned by the message store.
// Bodies are opaque to the hub; it never inspects Content.
type Message struct {
	ID        MessageID   `json:"id"`
	ChannelID ChannelID   `json:"channel_id"`
	AuthorID  IdentityID  `json:"author_id"`
	Kind      MessageKind `json:"kind"`
	Content   string      `json:"content,omitempty"`
	// CallDuration is in milliseconds, set only for call_ended records.
	CallDuration int64     `json:"call_duration_ms,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
