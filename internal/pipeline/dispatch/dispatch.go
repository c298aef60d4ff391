// internal/pipeline/dispatch/dispatch.go
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"warehouse-notify/internal/channels"
	"warehouse-notify/internal/common/logger"
	"warehouse-notify/internal/common/metrics"
	"warehouse-notify/internal/common/ratelimit"
	"warehouse-notify/internal/models"
	"warehouse-notify/internal/store"
)

// ContactLookup resolves a user id to delivery destinations.
type ContactLookup interface {
	Lookup(ctx context.Context, userID string) (store.Contact, error)
}

// ChannelOutcome is the result of one channel attempt for one recipient.
// Skipped outcomes (no destination on file) count as success: a user without
// a phone number must not block an otherwise delivered notification.
type ChannelOutcome struct {
	Channel models.Channel
	Skipped bool
	OK      bool
	Reason  string
}

// DispatchResult aggregates the channel outcomes of one notification.
type DispatchResult struct {
	UserID   string
	Outcomes []ChannelOutcome
}

// Failed reports whether any attempted channel failed.
func (r DispatchResult) Failed() bool {
	for _, o := range r.Outcomes {
		if !o.Skipped && !o.OK {
			return true
		}
	}
	return false
}

// FailureReasons collects the reasons of all failed outcomes, one per line
// fragment, for the event error message.
func (r DispatchResult) FailureReasons() string {
	var parts []string
	for _, o := range r.Outcomes {
		if o.Skipped || o.OK {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", o.Channel, o.Reason))
	}
	return strings.Join(parts, "; ")
}

// Dispatcher fans a notification out over its channels. Providers are fixed
// at startup; a channel with no provider is unconfigured and its attempts
// fail rather than silently drop.
type Dispatcher struct {
	providers map[models.Channel]channels.Provider
	contacts  ContactLookup
	limiter   ratelimit.Limiter
	timeout   time.Duration
	logger    logger.Logger
}

func New(providers map[models.Channel]channels.Provider, contacts ContactLookup, limiter ratelimit.Limiter, timeout time.Duration, log logger.Logger) *Dispatcher {
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	return &Dispatcher{
		providers: providers,
		contacts:  contacts,
		limiter:   limiter,
		timeout:   timeout,
		logger:    log,
	}
}

// Dispatch delivers one notification to one user over every requested
// channel. A contact lookup failure fails the whole notification since no
// channel can proceed without destinations.
func (d *Dispatcher) Dispatch(ctx context.Context, n models.Notification) (DispatchResult, error) {
	result := DispatchResult{UserID: n.UserID}

	contact, err := d.contacts.Lookup(ctx, n.UserID)
	if err != nil {
		return result, fmt.Errorf("dispatch to %s: %w", n.UserID, err)
	}

	msg := channels.Message{Title: n.Title, Body: n.Message}

	for _, ch := range n.Channels {
		outcome := d.dispatchChannel(ctx, ch, contact, msg)
		result.Outcomes = append(result.Outcomes, outcome)

		label := "ok"
		switch {
		case outcome.Skipped:
			label = "skipped"
		case !outcome.OK:
			label = "failed"
		}
		metrics.DispatchAttempts.WithLabelValues(string(ch), label).Inc()
	}

	return result, nil
}

func (d *Dispatcher) dispatchChannel(ctx context.Context, ch models.Channel, contact store.Contact, msg channels.Message) ChannelOutcome {
	to := d.destination(ch, contact)
	if to == nil {
		return ChannelOutcome{Channel: ch, Skipped: true}
	}

	provider, ok := d.providers[ch]
	if !ok || provider == nil {
		return ChannelOutcome{Channel: ch, Reason: "channel not configured"}
	}

	if !d.limiter.Allow(ctx, contact.UserID+":"+string(ch)) {
		d.logger.Warn("dispatch rate limited", map[string]interface{}{
			"userId":  contact.UserID,
			"channel": string(ch),
		})
		return ChannelOutcome{Channel: ch, Reason: "rate limit exceeded"}
	}

	sendCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	for _, dest := range to {
		res := provider.Send(sendCtx, dest, msg)
		if !res.OK {
			return ChannelOutcome{Channel: ch, Reason: res.Reason}
		}
	}
	return ChannelOutcome{Channel: ch, OK: true}
}

// destination returns the concrete send targets for a channel, or nil when
// the user has none on file. Push fans out over every registered device.
func (d *Dispatcher) destination(ch models.Channel, contact store.Contact) []string {
	switch ch {
	case models.ChannelEmail:
		if contact.Email == "" {
			return nil
		}
		return []string{contact.Email}
	case models.ChannelPush:
		return contact.DeviceTokens
	case models.ChannelSMS:
		if contact.Phone == "" {
			return nil
		}
		return []string{contact.Phone}
	}
	return nil
}
