// internal/pipeline/processor/pipeline_test.go
package processor

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehouse-notify/internal/channels"
	"warehouse-notify/internal/common/logger"
	"warehouse-notify/internal/models"
	"warehouse-notify/internal/pipeline/content"
	"warehouse-notify/internal/pipeline/dispatch"
	"warehouse-notify/internal/pipeline/resolver"
	"warehouse-notify/internal/store"
)

// Full pipeline below the store: real resolver, content builder and
// dispatcher, mock providers and contacts.

type recordingProvider struct {
	kind models.Channel
	fail map[string]string

	mu   sync.Mutex
	sent []string
}

func (p *recordingProvider) Kind() models.Channel { return p.kind }

func (p *recordingProvider) Send(ctx context.Context, to string, msg channels.Message) channels.SendResult {
	p.mu.Lock()
	p.sent = append(p.sent, to)
	p.mu.Unlock()
	if reason, ok := p.fail[to]; ok {
		return channels.Failure(reason)
	}
	return channels.Success()
}

func (p *recordingProvider) SendBulk(ctx context.Context, entries []channels.BulkEntry) []channels.SendResult {
	results := make([]channels.SendResult, len(entries))
	for i, e := range entries {
		results[i] = p.Send(ctx, e.To, e.Message)
	}
	return results
}

func (p *recordingProvider) sentSorted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := append([]string(nil), p.sent...)
	sort.Strings(out)
	return out
}

type contactTable map[string]store.Contact

func (c contactTable) Lookup(ctx context.Context, userID string) (store.Contact, error) {
	return c[userID], nil
}

type noMemberships struct{}

func (noMemberships) CompanyAdmins(context.Context, string) ([]string, error) { return nil, nil }

func TestPipeline_BookingApproved(t *testing.T) {
	log := logger.NewNoOpLogger()

	repo := repoReturning(&models.NotificationEvent{
		ID:         "evt-approved",
		EventType:  models.EventBookingApproved,
		EntityType: "booking",
		EntityID:   "bk-42",
		Payload: models.Payload{
			"customerId":        "cust-1",
			"bookingId":         "bk-42",
			"warehouseStaffIds": []interface{}{"staff-1"},
		},
		Status: models.StatusPending,
	})

	email := &recordingProvider{kind: models.ChannelEmail}
	push := &recordingProvider{kind: models.ChannelPush}
	sms := &recordingProvider{kind: models.ChannelSMS}

	contacts := contactTable{
		"cust-1": {
			UserID:       "cust-1",
			Email:        "customer@example.com",
			Phone:        "+905416393028",
			DeviceTokens: []string{"cust-tok"},
		},
		// Staff has no phone: the SMS leg must be skipped, not failed.
		"staff-1": {
			UserID:       "staff-1",
			Email:        "staff@example.com",
			DeviceTokens: []string{"staff-tok-1", "staff-tok-2"},
		},
	}

	d := dispatch.New(map[models.Channel]channels.Provider{
		models.ChannelEmail: email,
		models.ChannelPush:  push,
		models.ChannelSMS:   sms,
	}, contacts, nil, time.Second, log)

	p := New(repo, resolver.New(noMemberships{}, log), content.NewBuilder(90), d, log)

	err := p.Process(context.Background(), "evt-approved")
	require.NoError(t, err)

	assert.Equal(t, []string{"evt-approved"}, repo.CompletedIDs)
	assert.Empty(t, repo.FailedIDs)

	assert.Equal(t, []string{"customer@example.com", "staff@example.com"}, email.sentSorted())
	assert.Equal(t, []string{"cust-tok", "staff-tok-1", "staff-tok-2"}, push.sentSorted())
	assert.Equal(t, []string{"+905416393028"}, sms.sentSorted())
}

func TestPipeline_BookingApproved_StaffFailureFailsEvent(t *testing.T) {
	log := logger.NewNoOpLogger()

	repo := repoReturning(&models.NotificationEvent{
		ID:        "evt-approved",
		EventType: models.EventBookingApproved,
		Payload: models.Payload{
			"customerId":        "cust-1",
			"warehouseStaffIds": []interface{}{"staff-1"},
		},
		Status: models.StatusFailed,
	})

	email := &recordingProvider{
		kind: models.ChannelEmail,
		fail: map[string]string{"staff@example.com": "ses send: mailbox full"},
	}

	contacts := contactTable{
		"cust-1":  {UserID: "cust-1", Email: "customer@example.com"},
		"staff-1": {UserID: "staff-1", Email: "staff@example.com"},
	}

	d := dispatch.New(map[models.Channel]channels.Provider{
		models.ChannelEmail: email,
		models.ChannelPush:  &recordingProvider{kind: models.ChannelPush},
		models.ChannelSMS:   &recordingProvider{kind: models.ChannelSMS},
	}, contacts, nil, time.Second, log)

	p := New(repo, resolver.New(noMemberships{}, log), content.NewBuilder(90), d, log)

	err := p.Process(context.Background(), "evt-approved")
	require.Error(t, err)

	// The customer was reached, but the event as a whole still fails and
	// stays eligible for retry.
	assert.Equal(t, []string{"customer@example.com", "staff@example.com"}, email.sentSorted())
	assert.Equal(t, []string{"evt-approved"}, repo.FailedIDs)
	assert.Contains(t, repo.FailedMessages[0], "mailbox full")
	assert.Empty(t, repo.CompletedIDs)
}

func TestPipeline_OccupancySuppression(t *testing.T) {
	log := logger.NewNoOpLogger()

	repo := repoReturning(&models.NotificationEvent{
		ID:        "evt-occ",
		EventType: models.EventOccupancyUpdated,
		Payload: models.Payload{
			"ownerId":       "owner-1",
			"occupancyRate": 45.0,
		},
		Status: models.StatusPending,
	})

	email := &recordingProvider{kind: models.ChannelEmail}

	d := dispatch.New(map[models.Channel]channels.Provider{
		models.ChannelEmail: email,
	}, contactTable{"owner-1": {UserID: "owner-1", Email: "owner@example.com"}}, nil, time.Second, log)

	p := New(repo, resolver.New(noMemberships{}, log), content.NewBuilder(90), d, log)

	err := p.Process(context.Background(), "evt-occ")
	require.NoError(t, err)

	// Below-threshold occupancy completes without a single send.
	assert.Equal(t, []string{"evt-occ"}, repo.CompletedIDs)
	assert.Empty(t, email.sentSorted())
}
