// internal/store/audit.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

// AuditRecord is the per-event outcome indexed after each batch so that
// operations can search processing history without touching the event table.
type AuditRecord struct {
	BatchID     string    `json:"batchId,omitempty"`
	EventID     string    `json:"eventId"`
	EventType   string    `json:"eventType,omitempty"`
	Succeeded   bool      `json:"succeeded"`
	Error       string    `json:"error,omitempty"`
	ProcessedAt time.Time `json:"processedAt"`
}

// AuditIndexer writes processing outcomes to Elasticsearch. Indexing is
// best effort: callers log errors and move on.
type AuditIndexer struct {
	client *elasticsearch.Client
	index  string
}

func NewAuditIndexer(client *elasticsearch.Client, index string) *AuditIndexer {
	if index == "" {
		index = "notification-audit"
	}
	return &AuditIndexer{client: client, index: index}
}

// IndexBatch indexes each record individually. The batch sizes here are
// bounded by the scheduler's batch size, so the bulk API is not worth the
// payload assembly.
func (a *AuditIndexer) IndexBatch(ctx context.Context, records []AuditRecord) error {
	for _, rec := range records {
		body, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode audit record %s: %w", rec.EventID, err)
		}

		res, err := a.client.Index(
			a.index,
			bytes.NewReader(body),
			a.client.Index.WithContext(ctx),
		)
		if err != nil {
			return fmt.Errorf("index audit record %s: %w", rec.EventID, err)
		}
		res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("index audit record %s: %s", rec.EventID, res.Status())
		}
	}
	return nil
}
