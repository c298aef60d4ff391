// internal/channels/sms_sns.go
package channels

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"warehouse-notify/internal/models"
)

// SNSAPI is the slice of the SNS client the fallback provider needs.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSProvider is the fallback SMS provider. SNS expects E.164, so the
// normalization here differs from the gateway's and stays inside this type.
type SNSProvider struct {
	client   SNSAPI
	senderID string
}

func NewSNSProvider(ctx context.Context, region, senderID string) (*SNSProvider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SNSProvider{client: sns.NewFromConfig(awsCfg), senderID: senderID}, nil
}

// NewSNSProviderWithClient wires an existing SNS client (tests).
func NewSNSProviderWithClient(client SNSAPI, senderID string) *SNSProvider {
	return &SNSProvider{client: client, senderID: senderID}
}

func (p *SNSProvider) Kind() models.Channel { return models.ChannelSMS }

// toE164 converts the normalized national number back to +90 E.164 form.
func toE164(phone string) string {
	n := FormatPhoneNumber(phone)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "+") {
		return n
	}
	return "+90" + n
}

func (p *SNSProvider) Send(ctx context.Context, to string, msg Message) SendResult {
	dest := toE164(to)
	if dest == "" {
		return Failure("no phone number on file")
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(dest),
		Message:     aws.String(msg.Body),
	}
	if p.senderID != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(p.senderID),
			},
		}
	}

	if _, err := p.client.Publish(ctx, input); err != nil {
		return Failure(fmt.Sprintf("sns publish: %v", err))
	}
	return Success()
}

// SendBulk publishes per entry; SNS has no multi-destination publish for
// direct SMS. Results align with entries by index.
func (p *SNSProvider) SendBulk(ctx context.Context, entries []BulkEntry) []SendResult {
	results := make([]SendResult, len(entries))
	for i, e := range entries {
		results[i] = p.Send(ctx, e.To, e.Message)
	}
	return results
}
