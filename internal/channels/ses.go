// internal/channels/ses.go
package channels

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"warehouse-notify/internal/models"
)

// SESAPI is the slice of the SES client the email provider needs. Kept local
// so tests can substitute a mock.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailProvider delivers through AWS SES.
type EmailProvider struct {
	client SESAPI
	from   string
}

func NewEmailProvider(ctx context.Context, region, fromEmail string) (*EmailProvider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &EmailProvider{client: ses.NewFromConfig(awsCfg), from: fromEmail}, nil
}

// NewEmailProviderWithClient wires an existing SES client (tests).
func NewEmailProviderWithClient(client SESAPI, fromEmail string) *EmailProvider {
	return &EmailProvider{client: client, from: fromEmail}
}

func (p *EmailProvider) Kind() models.Channel { return models.ChannelEmail }

func (p *EmailProvider) Send(ctx context.Context, to string, msg Message) SendResult {
	if to == "" {
		return Failure("no email address on file")
	}

	_, err := p.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Title)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body)},
			},
		},
		Source: aws.String(p.from),
	})
	if err != nil {
		return Failure(fmt.Sprintf("ses send: %v", err))
	}
	return Success()
}

// SendBulk sends sequentially; SES has no batch send for distinct bodies.
func (p *EmailProvider) SendBulk(ctx context.Context, entries []BulkEntry) []SendResult {
	results := make([]SendResult, len(entries))
	for i, e := range entries {
		results[i] = p.Send(ctx, e.To, e.Message)
	}
	return results
}
