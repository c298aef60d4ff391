// internal/channels/sms_gateway.go
package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"warehouse-notify/internal/common/httpclient"

	"warehouse-notify/internal/models"
)

// Gateway response codes. Everything not listed here fails closed.
var gatewayCodes = map[string]struct {
	ok     bool
	reason string
}{
	"00": {true, ""},
	"01": {true, ""}, // accepted, scheduled start adjusted
	"02": {true, ""}, // accepted, scheduled end adjusted
	"20": {false, "message text rejected"},
	"30": {false, "invalid gateway credentials"},
	"40": {false, "sender name not registered"},
	"50": {false, "recipient rejected by gateway"},
	"70": {false, "malformed request parameters"},
}

// GatewayProvider delivers SMS through the primary HTTP gateway. The gateway
// wants bare ten-digit national numbers and answers with a numeric code per
// message.
type GatewayProvider struct {
	baseURL string
	apiKey  string
	sender  string
	httpc   *httpclient.Client
}

func NewGatewayProvider(baseURL, apiKey, sender string, httpc *httpclient.Client) *GatewayProvider {
	return &GatewayProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		sender:  sender,
		httpc:   httpc,
	}
}

func (p *GatewayProvider) Kind() models.Channel { return models.ChannelSMS }

type gatewaySendRequest struct {
	APIKey   string               `json:"apiKey"`
	Sender   string               `json:"sender"`
	Messages []gatewayMessageItem `json:"messages"`
}

type gatewayMessageItem struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type gatewaySendResponse struct {
	Codes []string `json:"codes"`
}

func (p *GatewayProvider) Send(ctx context.Context, to string, msg Message) SendResult {
	results := p.SendBulk(ctx, []BulkEntry{{To: to, Message: msg}})
	return results[0]
}

// SendBulk posts every destination/message pair in one request. The gateway
// answers one code per message, in order.
func (p *GatewayProvider) SendBulk(ctx context.Context, entries []BulkEntry) []SendResult {
	results := make([]SendResult, len(entries))

	reqBody := gatewaySendRequest{
		APIKey: p.apiKey,
		Sender: p.sender,
	}
	for _, e := range entries {
		reqBody.Messages = append(reqBody.Messages, gatewayMessageItem{
			To:      FormatPhoneNumber(e.To),
			Message: e.Message.Body,
		})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return failAll(results, fmt.Sprintf("encode gateway request: %v", err))
	}

	req, err := http.NewRequest(http.MethodPost, p.baseURL+"/v1/sms/send", bytes.NewReader(payload))
	if err != nil {
		return failAll(results, fmt.Sprintf("build gateway request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpc.DoWithContext(ctx, req)
	if err != nil {
		return failAll(results, fmt.Sprintf("gateway request: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return failAll(results, fmt.Sprintf("gateway returned HTTP %d", resp.StatusCode))
	}

	var body gatewaySendResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return failAll(results, fmt.Sprintf("decode gateway response: %v", err))
	}

	for i := range results {
		if i >= len(body.Codes) {
			results[i] = Failure("gateway response missing result code")
			continue
		}
		results[i] = mapGatewayCode(body.Codes[i])
	}
	return results
}

// mapGatewayCode translates a gateway code into a result. Unmapped codes are
// failures: a code we do not recognize must never pass as delivered.
func mapGatewayCode(code string) SendResult {
	if m, ok := gatewayCodes[code]; ok {
		if m.ok {
			return Success()
		}
		return Failure(fmt.Sprintf("gateway code %s: %s", code, m.reason))
	}
	return Failure(fmt.Sprintf("unrecognized gateway code %s", code))
}

func failAll(results []SendResult, reason string) []SendResult {
	for i := range results {
		results[i] = Failure(reason)
	}
	return results
}
