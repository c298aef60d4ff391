// internal/channels/sms.go
package channels

import (
	"context"
	"strings"

	"warehouse-notify/internal/common/config"
	"warehouse-notify/internal/common/httpclient"
	"warehouse-notify/internal/common/logger"
)

// FormatPhoneNumber normalizes a Turkish mobile number to the bare
// ten-digit form the SMS gateway expects: country code (+90 or 90) and the
// trunk-prefix 0 are stripped. "+905416393028", "05416393028" and
// "5416393028" all normalize to "5416393028".
func FormatPhoneNumber(phone string) string {
	p := strings.TrimSpace(phone)
	p = strings.ReplaceAll(p, " ", "")
	p = strings.TrimPrefix(p, "+")
	if strings.HasPrefix(p, "90") && len(p) == 12 {
		p = p[2:]
	}
	p = strings.TrimPrefix(p, "0")
	return p
}

// NewSMSProvider selects the active SMS provider once at startup. Primary
// gateway credentials win; otherwise the SNS fallback is used when enabled.
// With neither configured the channel is disabled and the returned provider
// is nil: every SMS dispatch then short-circuits to a failure without a
// network call.
func NewSMSProvider(ctx context.Context, cfg config.SMSConfig, log logger.Logger) (Provider, error) {
	if cfg.Primary.APIKey != "" {
		log.Info("sms channel using primary gateway", map[string]interface{}{
			"sender": cfg.Primary.Sender,
		})
		httpc := httpclient.New(config.GetDuration(cfg.Primary.TimeoutMs))
		return NewGatewayProvider(cfg.Primary.BaseURL, cfg.Primary.APIKey, cfg.Primary.Sender, httpc), nil
	}

	if cfg.Fallback.Enabled {
		log.Info("sms channel using SNS fallback", map[string]interface{}{
			"region": cfg.Fallback.AWSRegion,
		})
		return NewSNSProvider(ctx, cfg.Fallback.AWSRegion, cfg.Fallback.SenderID)
	}

	log.Warn("sms channel disabled: no provider credentials configured", nil)
	return nil, nil
}
