// internal/channels/sms_gateway_test.go
package channels

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"warehouse-notify/internal/common/httpclient"
)

func newGatewayTestServer(t *testing.T, codes []string, capture *gatewaySendRequest) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/sms/send", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		if capture != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(gatewaySendResponse{Codes: codes})
	}))
}

func TestGatewayProvider_Send_Success(t *testing.T) {
	var captured gatewaySendRequest
	srv := newGatewayTestServer(t, []string{"00"}, &captured)
	defer srv.Close()

	p := NewGatewayProvider(srv.URL, "key-123", "WAREHOUSE", httpclient.New(time.Second))
	res := p.Send(context.Background(), "+905416393028", Message{Title: "Booking Approved", Body: "Your booking request has been approved"})

	assert.True(t, res.OK)
	assert.Equal(t, "key-123", captured.APIKey)
	assert.Equal(t, "WAREHOUSE", captured.Sender)
	// The gateway gets the bare national form regardless of input format.
	assert.Equal(t, "5416393028", captured.Messages[0].To)
	assert.Equal(t, "Your booking request has been approved", captured.Messages[0].Message)
}

func TestGatewayProvider_CodeMapping(t *testing.T) {
	tests := []struct {
		code       string
		wantOK     bool
		wantReason string
	}{
		{code: "00", wantOK: true},
		{code: "01", wantOK: true},
		{code: "02", wantOK: true},
		{code: "20", wantReason: "message text rejected"},
		{code: "30", wantReason: "invalid gateway credentials"},
		{code: "40", wantReason: "sender name not registered"},
		{code: "50", wantReason: "recipient rejected by gateway"},
		{code: "70", wantReason: "malformed request parameters"},
		// Unknown codes must fail closed, never pass as delivered.
		{code: "99", wantReason: "unrecognized gateway code 99"},
		{code: "", wantReason: "unrecognized gateway code"},
	}

	for _, tt := range tests {
		t.Run("code "+tt.code, func(t *testing.T) {
			srv := newGatewayTestServer(t, []string{tt.code}, nil)
			defer srv.Close()

			p := NewGatewayProvider(srv.URL, "key", "WH", httpclient.New(time.Second))
			res := p.Send(context.Background(), "5416393028", Message{Body: "hi"})

			assert.Equal(t, tt.wantOK, res.OK)
			if !tt.wantOK {
				assert.Contains(t, res.Reason, tt.wantReason)
			}
		})
	}
}

func TestGatewayProvider_SendBulk_AlignsByIndex(t *testing.T) {
	srv := newGatewayTestServer(t, []string{"00", "50", "00"}, nil)
	defer srv.Close()

	p := NewGatewayProvider(srv.URL, "key", "WH", httpclient.New(time.Second))
	results := p.SendBulk(context.Background(), []BulkEntry{
		{To: "5416393028", Message: Message{Body: "a"}},
		{To: "5426393028", Message: Message{Body: "b"}},
		{To: "5436393028", Message: Message{Body: "c"}},
	})

	assert.Len(t, results, 3)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.Contains(t, results[1].Reason, "recipient rejected")
	assert.True(t, results[2].OK)
}

func TestGatewayProvider_SendBulk_ShortResponse(t *testing.T) {
	srv := newGatewayTestServer(t, []string{"00"}, nil)
	defer srv.Close()

	p := NewGatewayProvider(srv.URL, "key", "WH", httpclient.New(time.Second))
	results := p.SendBulk(context.Background(), []BulkEntry{
		{To: "5416393028", Message: Message{Body: "a"}},
		{To: "5426393028", Message: Message{Body: "b"}},
	})

	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.Contains(t, results[1].Reason, "missing result code")
}

func TestGatewayProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewGatewayProvider(srv.URL, "key", "WH", httpclient.New(time.Second))
	res := p.Send(context.Background(), "5416393028", Message{Body: "hi"})

	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "HTTP 502")
}

func TestGatewayProvider_UnreachableGateway(t *testing.T) {
	p := NewGatewayProvider("http://127.0.0.1:1", "key", "WH", httpclient.New(200*time.Millisecond))
	res := p.Send(context.Background(), "5416393028", Message{Body: "hi"})

	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "gateway request")
}
