// internal/channels/provider.go
package channels

import (
	"context"

	"warehouse-notify/internal/models"
)

// Message is the channel-agnostic content of one delivery.
type Message struct {
	Title string
	Body  string
}

// SendResult reports one delivery attempt. Provider failures are always
// returned as values, never panics, so the dispatcher can aggregate partial
// failures across channels.
type SendResult struct {
	OK     bool
	Reason string
}

// Failure builds a failed SendResult with a human-readable reason.
func Failure(reason string) SendResult {
	return SendResult{OK: false, Reason: reason}
}

// Success is the zero-reason successful result.
func Success() SendResult {
	return SendResult{OK: true}
}

// BulkEntry is one destination/message pair of a bulk send.
type BulkEntry struct {
	To      string
	Message Message
}

// Provider attempts delivery through one channel via one concrete service.
// Destination formats are provider-specific and must not leak to callers.
type Provider interface {
	Kind() models.Channel
	Send(ctx context.Context, to string, msg Message) SendResult
	SendBulk(ctx context.Context, entries []BulkEntry) []SendResult
}
