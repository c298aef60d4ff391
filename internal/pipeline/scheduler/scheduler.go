// internal/pipeline/scheduler/scheduler.go
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"warehouse-notify/internal/common/logger"
	"warehouse-notify/internal/common/metrics"
	"warehouse-notify/internal/common/observability"
	"warehouse-notify/internal/store"
)

// EventSelector picks the event ids a batch should work on.
type EventSelector interface {
	SelectPending(ctx context.Context, limit, maxRetries int) ([]string, error)
	SelectRetryable(ctx context.Context, limit, maxRetries int) ([]string, error)
}

// EventProcessor runs one processing attempt for one event.
type EventProcessor interface {
	Process(ctx context.Context, eventID string) error
}

// AuditSink records batch outcomes. Nil-able: audit is optional wiring.
type AuditSink interface {
	IndexBatch(ctx context.Context, records []store.AuditRecord) error
}

// Config bounds one scheduler instance.
type Config struct {
	BatchSize    int
	RetryLimit   int
	WorkerPool   int
	PollInterval time.Duration
}

// Scheduler polls the event table and fans batches out over a bounded worker
// pool. Batches fully join before the next poll; an event is never processed
// twice within one batch because ids are selected once up front.
type Scheduler struct {
	selector  EventSelector
	processor EventProcessor
	audit     AuditSink
	obs       *observability.Observability
	cfg       Config
	logger    logger.Logger
}

func New(selector EventSelector, processor EventProcessor, audit AuditSink, obs *observability.Observability, cfg Config, log logger.Logger) *Scheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.WorkerPool <= 0 {
		cfg.WorkerPool = 10
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	return &Scheduler{
		selector:  selector,
		processor: processor,
		audit:     audit,
		obs:       obs,
		cfg:       cfg,
		logger:    log,
	}
}

// ProcessedEvent is the outcome of one attempt within a batch.
type ProcessedEvent struct {
	EventID   string
	Succeeded bool
	Err       error
}

// ProcessPendingEvents runs one batch: fresh pending events first, then
// failed events still under the retry ceiling filling the remaining slots.
func (s *Scheduler) ProcessPendingEvents(ctx context.Context) ([]ProcessedEvent, error) {
	start := time.Now()
	batchID := uuid.NewString()

	ids, err := s.selector.SelectPending(ctx, s.cfg.BatchSize, s.cfg.RetryLimit)
	if err != nil {
		metrics.BatchDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, err
	}
	if remaining := s.cfg.BatchSize - len(ids); remaining > 0 {
		retryable, err := s.selector.SelectRetryable(ctx, remaining, s.cfg.RetryLimit)
		if err != nil {
			metrics.BatchDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
			return nil, err
		}
		ids = append(ids, retryable...)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	results := s.runBatch(ctx, ids)

	outcome := "ok"
	for _, r := range results {
		if !r.Succeeded {
			outcome = "partial"
			break
		}
	}
	metrics.BatchDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	s.recordAudit(ctx, batchID, results)

	s.logger.Info("batch processed", map[string]interface{}{
		"batchId":  batchID,
		"events":   len(results),
		"outcome":  outcome,
		"duration": time.Since(start).String(),
	})
	return results, nil
}

// runBatch executes attempts on a semaphore-bounded pool and joins all of
// them. Results arrive in completion order; callers must not assume the
// selection order survives.
func (s *Scheduler) runBatch(ctx context.Context, ids []string) []ProcessedEvent {
	sem := make(chan struct{}, s.cfg.WorkerPool)
	out := make(chan ProcessedEvent, len(ids))

	for _, id := range ids {
		sem <- struct{}{}
		go func(id string) {
			defer func() { <-sem }()

			attemptStart := time.Now()
			err := s.processor.Process(ctx, id)

			status := "completed"
			if err != nil {
				status = "failed"
			}
			if s.obs != nil {
				s.obs.RecordEventProcessed(ctx, status)
				s.obs.RecordEventDuration(ctx, time.Since(attemptStart), status)
			}
			out <- ProcessedEvent{EventID: id, Succeeded: err == nil, Err: err}
		}(id)
	}

	results := make([]ProcessedEvent, 0, len(ids))
	for range ids {
		results = append(results, <-out)
	}
	return results
}

func (s *Scheduler) recordAudit(ctx context.Context, batchID string, results []ProcessedEvent) {
	if s.audit == nil {
		return
	}
	records := make([]store.AuditRecord, 0, len(results))
	now := time.Now().UTC()
	for _, r := range results {
		rec := store.AuditRecord{
			BatchID:     batchID,
			EventID:     r.EventID,
			Succeeded:   r.Succeeded,
			ProcessedAt: now,
		}
		if r.Err != nil {
			rec.Error = r.Err.Error()
		}
		records = append(records, rec)
	}
	if err := s.audit.IndexBatch(ctx, records); err != nil {
		s.logger.Warn("audit indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Run polls until the context is cancelled. Each tick triggers at most one
// batch; a long batch simply delays the next tick's work.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", map[string]interface{}{
		"pollInterval": interval.String(),
		"batchSize":    s.cfg.BatchSize,
		"workerPool":   s.cfg.WorkerPool,
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", nil)
			return
		case <-ticker.C:
			if _, err := s.ProcessPendingEvents(ctx); err != nil {
				s.logger.Error("batch selection failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}
