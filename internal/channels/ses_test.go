// internal/channels/ses_test.go
package channels

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
)

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

func TestEmailProvider_Send(t *testing.T) {
	mock := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			assert.Equal(t, "owner@example.com", params.Destination.ToAddresses[0])
			assert.Equal(t, "no-reply@example.com", *params.Source)
			assert.Equal(t, "Booking Approved", *params.Message.Subject.Data)
			assert.Equal(t, "Your booking request has been approved", *params.Message.Body.Text.Data)
			return &ses.SendEmailOutput{}, nil
		},
	}

	p := NewEmailProviderWithClient(mock, "no-reply@example.com")
	res := p.Send(context.Background(), "owner@example.com", Message{
		Title: "Booking Approved",
		Body:  "Your booking request has been approved",
	})

	assert.True(t, res.OK)
}

func TestEmailProvider_Send_SESError(t *testing.T) {
	mock := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("rate exceeded")
		},
	}

	p := NewEmailProviderWithClient(mock, "no-reply@example.com")
	res := p.Send(context.Background(), "owner@example.com", Message{Body: "hi"})

	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "ses send")
}

func TestEmailProvider_Send_EmptyAddress(t *testing.T) {
	p := NewEmailProviderWithClient(&MockSESService{}, "no-reply@example.com")
	res := p.Send(context.Background(), "", Message{Body: "hi"})

	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "no email address")
}

func TestEmailProvider_SendBulk(t *testing.T) {
	calls := 0
	mock := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			calls++
			if params.Destination.ToAddresses[0] == "bad@example.com" {
				return nil, errors.New("rejected")
			}
			return &ses.SendEmailOutput{}, nil
		},
	}

	p := NewEmailProviderWithClient(mock, "no-reply@example.com")
	results := p.SendBulk(context.Background(), []BulkEntry{
		{To: "a@example.com", Message: Message{Body: "a"}},
		{To: "bad@example.com", Message: Message{Body: "b"}},
	})

	assert.Equal(t, 2, calls)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
}
