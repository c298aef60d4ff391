// internal/store/events.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"warehouse-notify/internal/models"
)

// ErrEventNotFound is returned when the referenced event id does not exist.
// Callers treat this as a processor-level error, not a retryable failure.
var ErrEventNotFound = errors.New("notification event not found")

// EventStore persists NotificationEvent rows. Producers insert rows with
// status='pending'; this store only claims and finalizes them.
type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

// GetByID fetches a single event.
func (s *EventStore) GetByID(ctx context.Context, id string) (*models.NotificationEvent, error) {
	var (
		ev         models.NotificationEvent
		rawPayload []byte
		errMsg     sql.NullString
		processed  sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, event_type, entity_type, entity_id, payload, status,
		       retry_count, error_message, created_at, processed_at
		FROM notification_events WHERE id = $1`, id).
		Scan(&ev.ID, &ev.EventType, &ev.EntityType, &ev.EntityID, &rawPayload,
			&ev.Status, &ev.RetryCount, &errMsg, &ev.CreatedAt, &processed)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}

	if len(rawPayload) > 0 {
		if err := json.Unmarshal(rawPayload, &ev.Payload); err != nil {
			return nil, fmt.Errorf("decode payload for event %s: %w", id, err)
		}
	}
	if errMsg.Valid {
		ev.ErrorMessage = errMsg.String
	}
	if processed.Valid {
		t := processed.Time
		ev.ProcessedAt = &t
	}
	return &ev, nil
}

// ClaimProcessing marks an event as processing. The conditional update is the
// cooperative lock between concurrent schedulers: only one caller observes
// claimed=true for a given attempt.
func (s *EventStore) ClaimProcessing(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notification_events SET status = $1
		WHERE id = $2 AND status IN ($3, $4)`,
		models.StatusProcessing, id, models.StatusPending, models.StatusFailed)
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", id, err)
	}
	return n == 1, nil
}

// MarkCompleted finalizes an event successfully and stamps processed_at.
func (s *EventStore) MarkCompleted(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notification_events
		SET status = $1, error_message = NULL, processed_at = NOW()
		WHERE id = $2`,
		models.StatusCompleted, id)
	if err != nil {
		return fmt.Errorf("complete event %s: %w", id, err)
	}
	return nil
}

// MarkFailed records a failed attempt. retry_count is only ever incremented,
// exactly once per attempt regardless of how many recipients failed.
func (s *EventStore) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notification_events
		SET status = $1, retry_count = retry_count + 1, error_message = $2
		WHERE id = $3`,
		models.StatusFailed, errMsg, id)
	if err != nil {
		return fmt.Errorf("fail event %s: %w", id, err)
	}
	return nil
}

// SelectPending returns up to limit eligible event ids, oldest first. Events
// at or above the retry ceiling are never selected again.
func (s *EventStore) SelectPending(ctx context.Context, limit, maxRetries int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM notification_events
		WHERE status = $1 AND retry_count < $2
		ORDER BY created_at ASC
		LIMIT $3`,
		models.StatusPending, maxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending events: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SelectRetryable returns failed events still below the retry ceiling, oldest
// first. Kept separate from SelectPending so the scheduler can interleave
// fresh work and retries explicitly.
func (s *EventStore) SelectRetryable(ctx context.Context, limit, maxRetries int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM notification_events
		WHERE status = $1 AND retry_count < $2
		ORDER BY created_at ASC
		LIMIT $3`,
		models.StatusFailed, maxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("select retryable events: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan retryable event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
