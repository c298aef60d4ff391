// internal/pipeline/resolver/resolver.go
package resolver

import (
	"context"
	"fmt"

	"warehouse-notify/internal/common/logger"
	"warehouse-notify/internal/models"
)

// MembershipLookup answers role questions the payload cannot carry.
type MembershipLookup interface {
	CompanyAdmins(ctx context.Context, companyID string) ([]string, error)
}

// Resolver maps a raw event to the set of users that must be notified.
// An empty result is a valid outcome, not an error: unknown event types and
// payloads missing the relevant identifier resolve to nobody.
type Resolver struct {
	members MembershipLookup
	logger  logger.Logger
}

func New(members MembershipLookup, log logger.Logger) *Resolver {
	return &Resolver{members: members, logger: log}
}

func (r *Resolver) Resolve(ctx context.Context, event *models.NotificationEvent) ([]models.Recipient, error) {
	payload := event.Payload

	switch event.EventType {
	case models.EventBookingRequested,
		models.EventBookingProposalAccepted,
		models.EventBookingProposalRejected,
		models.EventBookingModified,
		models.EventOccupancyUpdated:
		return single(payload.GetString("ownerId"), "owner"), nil

	case models.EventBookingProposalCreated,
		models.EventBookingRejected,
		models.EventInvoiceGenerated,
		models.EventInvoiceOverdue,
		models.EventInvoicePaid:
		return single(payload.GetString("customerId"), "customer"), nil

	case models.EventBookingApproved:
		recipients := single(payload.GetString("customerId"), "customer")
		for _, staffID := range payload.GetStringSlice("warehouseStaffIds") {
			if staffID == "" {
				continue
			}
			recipients = append(recipients, models.Recipient{UserID: staffID, Role: "staff"})
		}
		return recipients, nil

	case models.EventTeamMemberInvited:
		return single(payload.GetString("inviterId"), "inviter"), nil

	case models.EventTeamMemberJoined:
		companyID := payload.GetString("companyId")
		if companyID == "" {
			return nil, nil
		}
		adminIDs, err := r.members.CompanyAdmins(ctx, companyID)
		if err != nil {
			return nil, fmt.Errorf("resolve company admins: %w", err)
		}
		recipients := make([]models.Recipient, 0, len(adminIDs))
		for _, id := range adminIDs {
			recipients = append(recipients, models.Recipient{UserID: id, Role: "admin"})
		}
		return recipients, nil
	}

	r.logger.Debug("no recipient rule for event type", map[string]interface{}{
		"eventType": event.EventType,
	})
	return nil, nil
}

func single(userID, role string) []models.Recipient {
	if userID == "" {
		return nil
	}
	return []models.Recipient{{UserID: userID, Role: role}}
}
