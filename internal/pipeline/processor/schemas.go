// internal/pipeline/processor/schemas.go
package processor

import (
	"warehouse-notify/internal/common/validation"
	"warehouse-notify/internal/models"
)

// payloadSchemas type-checks the fields each event type is known to carry.
// Fields are optional: a missing identifier resolves to an empty recipient
// list downstream, which is a success, not a malformed payload. A field that
// is present with the wrong type is malformed and fails the event.
var payloadSchemas = map[string]validation.Schema{
	models.EventBookingRequested: {Fields: map[string]validation.FieldType{
		"ownerId":     validation.TypeString,
		"bookingId":   validation.TypeString,
		"warehouseId": validation.TypeString,
	}},
	models.EventBookingProposalCreated: {Fields: map[string]validation.FieldType{
		"customerId": validation.TypeString,
		"proposalId": validation.TypeString,
	}},
	models.EventBookingProposalAccepted: {Fields: map[string]validation.FieldType{
		"ownerId":    validation.TypeString,
		"proposalId": validation.TypeString,
	}},
	models.EventBookingProposalRejected: {Fields: map[string]validation.FieldType{
		"ownerId":    validation.TypeString,
		"proposalId": validation.TypeString,
	}},
	models.EventBookingApproved: {Fields: map[string]validation.FieldType{
		"customerId":        validation.TypeString,
		"warehouseStaffIds": validation.TypeStringArray,
		"bookingId":         validation.TypeString,
	}},
	models.EventBookingRejected: {Fields: map[string]validation.FieldType{
		"customerId": validation.TypeString,
		"bookingId":  validation.TypeString,
	}},
	models.EventBookingModified: {Fields: map[string]validation.FieldType{
		"ownerId":   validation.TypeString,
		"bookingId": validation.TypeString,
	}},
	models.EventInvoiceGenerated: {Fields: map[string]validation.FieldType{
		"customerId": validation.TypeString,
		"invoiceId":  validation.TypeString,
	}},
	models.EventInvoiceOverdue: {Fields: map[string]validation.FieldType{
		"customerId": validation.TypeString,
		"invoiceId":  validation.TypeString,
	}},
	models.EventInvoicePaid: {Fields: map[string]validation.FieldType{
		"customerId": validation.TypeString,
		"invoiceId":  validation.TypeString,
	}},
	models.EventOccupancyUpdated: {Fields: map[string]validation.FieldType{
		"ownerId":       validation.TypeString,
		"warehouseId":   validation.TypeString,
		"occupancyRate": validation.TypeNumber,
	}},
	models.EventTeamMemberInvited: {Fields: map[string]validation.FieldType{
		"inviterId": validation.TypeString,
		"email":     validation.TypeString,
	}},
	models.EventTeamMemberJoined: {Fields: map[string]validation.FieldType{
		"companyId": validation.TypeString,
		"userId":    validation.TypeString,
	}},
}

func validatePayload(event *models.NotificationEvent) *validation.ValidationResult {
	schema, ok := payloadSchemas[event.EventType]
	if !ok {
		return &validation.ValidationResult{Valid: true}
	}
	return validation.Validate(event.Payload, schema)
}
