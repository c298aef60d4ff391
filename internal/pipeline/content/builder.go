// internal/pipeline/content/builder.go
package content

import (
	"fmt"

	"warehouse-notify/internal/models"
)

// Content is the resolved, static notification content for one recipient.
// Localization and templating are deliberately out: every event type maps to
// fixed text.
type Content struct {
	Title    string
	Message  string
	Type     string
	Channels []models.Channel
}

var defaultChannels = []models.Channel{models.ChannelEmail, models.ChannelPush}

// urgent event types additionally go out over SMS.
var urgentChannels = []models.Channel{models.ChannelEmail, models.ChannelPush, models.ChannelSMS}

var contentTable = map[string]Content{
	models.EventBookingRequested: {
		Title:    "New Booking Request",
		Message:  "You have received a new booking request for your warehouse",
		Type:     "booking",
		Channels: defaultChannels,
	},
	models.EventBookingProposalCreated: {
		Title:    "New Proposal",
		Message:  "You have received a proposal for your booking request",
		Type:     "booking",
		Channels: defaultChannels,
	},
	models.EventBookingProposalAccepted: {
		Title:    "Proposal Accepted",
		Message:  "Your proposal has been accepted",
		Type:     "booking",
		Channels: defaultChannels,
	},
	models.EventBookingProposalRejected: {
		Title:    "Proposal Rejected",
		Message:  "Your proposal has been rejected",
		Type:     "booking",
		Channels: defaultChannels,
	},
	models.EventBookingApproved: {
		Title:    "Booking Approved",
		Message:  "Your booking request has been approved",
		Type:     "booking",
		Channels: urgentChannels,
	},
	models.EventBookingRejected: {
		Title:    "Booking Rejected",
		Message:  "Your booking request has been rejected",
		Type:     "booking",
		Channels: defaultChannels,
	},
	models.EventBookingModified: {
		Title:    "Booking Modified",
		Message:  "A booking for your warehouse has been modified",
		Type:     "booking",
		Channels: defaultChannels,
	},
	models.EventInvoiceGenerated: {
		Title:    "New Invoice",
		Message:  "A new invoice has been generated for your booking",
		Type:     "invoice",
		Channels: defaultChannels,
	},
	models.EventInvoiceOverdue: {
		Title:    "Invoice Overdue",
		Message:  "Your invoice payment is overdue",
		Type:     "invoice",
		Channels: urgentChannels,
	},
	models.EventInvoicePaid: {
		Title:    "Payment Received",
		Message:  "Your invoice payment has been received",
		Type:     "invoice",
		Channels: defaultChannels,
	},
	models.EventTeamMemberInvited: {
		Title:    "Invitation Sent",
		Message:  "Your team invitation has been sent",
		Type:     "team",
		Channels: []models.Channel{models.ChannelEmail},
	},
	models.EventTeamMemberJoined: {
		Title:    "Team Member Joined",
		Message:  "A new member has joined your company",
		Type:     "team",
		Channels: []models.Channel{models.ChannelEmail},
	},
}

// Builder turns an event into notification content, or nil when the event
// should not notify the given recipient.
type Builder struct {
	occupancyThreshold float64
}

func NewBuilder(occupancyThreshold float64) *Builder {
	return &Builder{occupancyThreshold: occupancyThreshold}
}

// Build returns nil to suppress: occupancy updates below the threshold exist
// for analytics and must not reach warehouse owners.
func (b *Builder) Build(event *models.NotificationEvent, recipientUserID string) *Content {
	if event.EventType == models.EventOccupancyUpdated {
		occupancy := event.Payload.GetFloat("occupancyRate")
		if occupancy < b.occupancyThreshold {
			return nil
		}
		return &Content{
			Title:    "Warehouse Almost Full",
			Message:  fmt.Sprintf("Your warehouse occupancy has reached %.0f%%", occupancy),
			Type:     "warehouse",
			Channels: defaultChannels,
		}
	}

	if c, ok := contentTable[event.EventType]; ok {
		return &c
	}
	return nil
}
