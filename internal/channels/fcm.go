// internal/channels/fcm.go
package channels

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"warehouse-notify/internal/models"
)

// FCMSender is the slice of the Firebase messaging client the push provider
// needs, local for mocking.
type FCMSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushProvider delivers through Firebase Cloud Messaging. The destination is
// a single device token; the dispatcher fans out over a user's tokens.
type PushProvider struct {
	client FCMSender
}

func NewPushProvider(ctx context.Context, projectID, credentialsFile string) (*PushProvider, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	return &PushProvider{client: client}, nil
}

// NewPushProviderWithClient wires an existing messaging client (tests).
func NewPushProviderWithClient(client FCMSender) *PushProvider {
	return &PushProvider{client: client}
}

func (p *PushProvider) Kind() models.Channel { return models.ChannelPush }

func (p *PushProvider) Send(ctx context.Context, to string, msg Message) SendResult {
	if to == "" {
		return Failure("no device token registered")
	}

	_, err := p.client.Send(ctx, &messaging.Message{
		Token: to,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
	})
	if err != nil {
		return Failure(fmt.Sprintf("fcm send: %v", err))
	}
	return Success()
}

func (p *PushProvider) SendBulk(ctx context.Context, entries []BulkEntry) []SendResult {
	results := make([]SendResult, len(entries))
	for i, e := range entries {
		results[i] = p.Send(ctx, e.To, e.Message)
	}
	return results
}
