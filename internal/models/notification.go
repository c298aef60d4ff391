// internal/models/notification.go
package models

// Channel is a delivery medium.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
)

// Recipient is a user identity targeted by a notification derived from an event.
type Recipient struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
}

// Notification is the per-recipient delivery intent produced from an event.
// It is ephemeral; the event row is the durable record.
type Notification struct {
	UserID   string            `json:"userId"`
	Channels []Channel         `json:"channels"`
	Title    string            `json:"title"`
	Message  string            `json:"message"`
	Type     string            `json:"type"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
