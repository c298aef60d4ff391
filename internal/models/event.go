// internal/models/event.go
package models

import "time"

// EventStatus is the lifecycle state of a NotificationEvent. The state
// machine only moves forward: pending -> processing -> completed|failed.
// A failed event below the retry ceiling becomes eligible again without
// being rewritten to pending.
type EventStatus string

const (
	StatusPending    EventStatus = "pending"
	StatusProcessing EventStatus = "processing"
	StatusCompleted  EventStatus = "completed"
	StatusFailed     EventStatus = "failed"
)

// Event types produced by the booking platform.
const (
	EventBookingRequested        = "booking.requested"
	EventBookingProposalCreated  = "booking.proposal.created"
	EventBookingProposalAccepted = "booking.proposal.accepted"
	EventBookingProposalRejected = "booking.proposal.rejected"
	EventBookingApproved         = "booking.approved"
	EventBookingRejected         = "booking.rejected"
	EventBookingModified         = "booking.modified"
	EventInvoiceGenerated        = "invoice.generated"
	EventInvoiceOverdue          = "invoice.overdue"
	EventInvoicePaid             = "invoice.paid"
	EventOccupancyUpdated        = "warehouse.occupancy.updated"
	EventTeamMemberInvited       = "team.member.invited"
	EventTeamMemberJoined        = "team.member.joined"
)

// Payload is the event-type-specific bag of fields written by the producer.
// It must contain everything recipient resolution and content building need;
// the pipeline never reaches back into booking or invoice tables.
type Payload map[string]interface{}

// GetString returns the string value for key, or "" when absent or not a string.
func (p Payload) GetString(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// GetStringSlice returns the string elements for key. JSON arrays decode as
// []interface{}, so both representations are accepted.
func (p Payload) GetStringSlice(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// GetFloat returns the numeric value for key, or 0 when absent.
func (p Payload) GetFloat(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// NotificationEvent is the durable unit of work consumed by the pipeline.
type NotificationEvent struct {
	ID           string      `json:"id"`
	EventType    string      `json:"eventType"`
	EntityType   string      `json:"entityType"`
	EntityID     string      `json:"entityId"`
	Payload      Payload     `json:"payload"`
	Status       EventStatus `json:"status"`
	RetryCount   int         `json:"retryCount"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	ProcessedAt  *time.Time  `json:"processedAt,omitempty"`
}
