// internal/pipeline/processor/processor.go
package processor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"warehouse-notify/internal/common/logger"
	"warehouse-notify/internal/common/metrics"
	"warehouse-notify/internal/models"
	"warehouse-notify/internal/pipeline/content"
	"warehouse-notify/internal/pipeline/dispatch"
)

// EventRepository is the slice of the event store the processor needs.
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*models.NotificationEvent, error)
	ClaimProcessing(ctx context.Context, id string) (bool, error)
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
}

// RecipientResolver maps an event to the users it must notify.
type RecipientResolver interface {
	Resolve(ctx context.Context, event *models.NotificationEvent) ([]models.Recipient, error)
}

// ContentBuilder produces per-recipient content, or nil to suppress.
type ContentBuilder interface {
	Build(event *models.NotificationEvent, recipientUserID string) *content.Content
}

// NotificationDispatcher delivers one notification over its channels.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, n models.Notification) (dispatch.DispatchResult, error)
}

// Processor drives a single event from claim to terminal state. Terminal
// policy is all-or-nothing: an event completes only when every recipient
// succeeded on every attempted channel, otherwise the whole event is retried.
type Processor struct {
	events     EventRepository
	resolver   RecipientResolver
	builder    ContentBuilder
	dispatcher NotificationDispatcher
	logger     logger.Logger
}

func New(events EventRepository, resolver RecipientResolver, builder ContentBuilder, dispatcher NotificationDispatcher, log logger.Logger) *Processor {
	return &Processor{
		events:     events,
		resolver:   resolver,
		builder:    builder,
		dispatcher: dispatcher,
		logger:     log,
	}
}

// Process runs one attempt for the given event id. A nil return means the
// event is in (or already was in) the completed state, or another worker
// holds the claim. A non-nil return means the attempt failed and the event
// was marked failed with its retry count incremented.
func (p *Processor) Process(ctx context.Context, eventID string) (err error) {
	metrics.EventsInFlight.Inc()
	defer metrics.EventsInFlight.Dec()

	event, err := p.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}

	// A crash between dispatch and finalize must not fail the row silently.
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("panic during processing: %v", r)
			p.logger.Error(msg, map[string]interface{}{"eventId": eventID})
			if markErr := p.events.MarkFailed(ctx, eventID, msg); markErr != nil {
				p.logger.Error("failed to mark panicked event", map[string]interface{}{
					"eventId": eventID,
					"error":   markErr.Error(),
				})
			}
			metrics.EventsProcessed.WithLabelValues("failed").Inc()
			err = fmt.Errorf("process event %s: %s", eventID, msg)
		}
	}()

	// Replayed completed events succeed without touching any provider.
	if event.Status == models.StatusCompleted {
		p.logger.Debug("event already completed", map[string]interface{}{"eventId": eventID})
		return nil
	}

	claimed, err := p.events.ClaimProcessing(ctx, eventID)
	if err != nil {
		return err
	}
	if !claimed {
		p.logger.Debug("event claimed elsewhere", map[string]interface{}{"eventId": eventID})
		return nil
	}

	if result := validatePayload(event); !result.Valid {
		return p.fail(ctx, eventID, result.Error())
	}

	recipients, err := p.resolver.Resolve(ctx, event)
	if err != nil {
		return p.fail(ctx, eventID, fmt.Sprintf("resolve recipients: %v", err))
	}

	notifications := p.buildNotifications(event, recipients)

	// No recipients, or all content suppressed: the event is done.
	if len(notifications) == 0 {
		if err := p.events.MarkCompleted(ctx, eventID); err != nil {
			return err
		}
		metrics.EventsProcessed.WithLabelValues("completed").Inc()
		p.logger.Info("event completed with no deliveries", map[string]interface{}{
			"eventId":   eventID,
			"eventType": event.EventType,
		})
		return nil
	}

	reasons := p.dispatchAll(ctx, notifications)
	if len(reasons) > 0 {
		return p.fail(ctx, eventID, strings.Join(reasons, "; "))
	}

	if err := p.events.MarkCompleted(ctx, eventID); err != nil {
		return err
	}
	metrics.EventsProcessed.WithLabelValues("completed").Inc()
	p.logger.Info("event completed", map[string]interface{}{
		"eventId":    eventID,
		"eventType":  event.EventType,
		"recipients": len(notifications),
	})
	return nil
}

func (p *Processor) buildNotifications(event *models.NotificationEvent, recipients []models.Recipient) []models.Notification {
	var out []models.Notification
	for _, r := range recipients {
		c := p.builder.Build(event, r.UserID)
		if c == nil {
			continue
		}
		out = append(out, models.Notification{
			UserID:   r.UserID,
			Channels: c.Channels,
			Title:    c.Title,
			Message:  c.Message,
			Type:     c.Type,
			Metadata: map[string]string{
				"eventId":    event.ID,
				"entityType": event.EntityType,
				"entityId":   event.EntityID,
			},
		})
	}
	return out
}

// dispatchAll fans out over recipients concurrently and joins all of them
// before deciding the terminal state. Returned reasons are sorted so retries
// of the same failure produce the same error message.
func (p *Processor) dispatchAll(ctx context.Context, notifications []models.Notification) []string {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	var reasons []string

	for _, n := range notifications {
		wg.Add(1)
		go func(n models.Notification) {
			defer wg.Done()
			// Recover here too: the outer recover cannot see this goroutine.
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					reasons = append(reasons, fmt.Sprintf("user %s: panic: %v", n.UserID, r))
					mu.Unlock()
				}
			}()
			result, err := p.dispatcher.Dispatch(ctx, n)
			if err != nil {
				mu.Lock()
				reasons = append(reasons, err.Error())
				mu.Unlock()
				return
			}
			if result.Failed() {
				mu.Lock()
				reasons = append(reasons, fmt.Sprintf("user %s: %s", n.UserID, result.FailureReasons()))
				mu.Unlock()
			}
		}(n)
	}
	wg.Wait()

	sort.Strings(reasons)
	return reasons
}

func (p *Processor) fail(ctx context.Context, eventID, reason string) error {
	if err := p.events.MarkFailed(ctx, eventID, reason); err != nil {
		p.logger.Error("failed to mark event failed", map[string]interface{}{
			"eventId": eventID,
			"error":   err.Error(),
		})
		return err
	}
	metrics.EventsProcessed.WithLabelValues("failed").Inc()
	p.logger.Warn("event failed", map[string]interface{}{
		"eventId": eventID,
		"reason":  reason,
	})
	return fmt.Errorf("process event %s: %s", eventID, reason)
}
