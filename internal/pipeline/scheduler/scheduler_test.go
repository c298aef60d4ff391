// internal/pipeline/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehouse-notify/internal/common/logger"
	"warehouse-notify/internal/store"
)

// ==========================
// Mock Implementations
// ==========================

type MockSelector struct {
	SelectPendingFunc   func(ctx context.Context, limit, maxRetries int) ([]string, error)
	SelectRetryableFunc func(ctx context.Context, limit, maxRetries int) ([]string, error)
}

func (m *MockSelector) SelectPending(ctx context.Context, limit, maxRetries int) ([]string, error) {
	return m.SelectPendingFunc(ctx, limit, maxRetries)
}

func (m *MockSelector) SelectRetryable(ctx context.Context, limit, maxRetries int) ([]string, error) {
	if m.SelectRetryableFunc != nil {
		return m.SelectRetryableFunc(ctx, limit, maxRetries)
	}
	return nil, nil
}

type MockProcessor struct {
	ProcessFunc func(ctx context.Context, eventID string) error

	mu        sync.Mutex
	Processed []string
}

func (m *MockProcessor) Process(ctx context.Context, eventID string) error {
	m.mu.Lock()
	m.Processed = append(m.Processed, eventID)
	m.mu.Unlock()
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, eventID)
	}
	return nil
}

type MockAuditSink struct {
	mu      sync.Mutex
	Batches [][]store.AuditRecord
	Err     error
}

func (m *MockAuditSink) IndexBatch(ctx context.Context, records []store.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Batches = append(m.Batches, records)
	return m.Err
}

func selectorWith(pending, retryable []string) *MockSelector {
	return &MockSelector{
		SelectPendingFunc: func(ctx context.Context, limit, maxRetries int) ([]string, error) {
			return pending, nil
		},
		SelectRetryableFunc: func(ctx context.Context, limit, maxRetries int) ([]string, error) {
			return retryable, nil
		},
	}
}

func testConfig() Config {
	return Config{BatchSize: 10, RetryLimit: 3, WorkerPool: 4, PollInterval: time.Second}
}

// ==========================
// Batch Tests
// ==========================

func TestScheduler_ProcessPendingEvents(t *testing.T) {
	proc := &MockProcessor{}
	s := New(selectorWith([]string{"evt-1", "evt-2", "evt-3"}, nil), proc, nil, nil, testConfig(), logger.NewNoOpLogger())

	results, err := s.ProcessPendingEvents(context.Background())

	require.NoError(t, err)
	assert.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Succeeded)
	}

	sort.Strings(proc.Processed)
	assert.Equal(t, []string{"evt-1", "evt-2", "evt-3"}, proc.Processed)
}

func TestScheduler_ProcessPendingEvents_FillsBatchWithRetryable(t *testing.T) {
	var retryLimit, retryBudget int
	selector := &MockSelector{
		SelectPendingFunc: func(ctx context.Context, limit, maxRetries int) ([]string, error) {
			return []string{"evt-1", "evt-2"}, nil
		},
		SelectRetryableFunc: func(ctx context.Context, limit, maxRetries int) ([]string, error) {
			retryBudget = limit
			retryLimit = maxRetries
			return []string{"evt-failed"}, nil
		},
	}

	proc := &MockProcessor{}
	s := New(selector, proc, nil, nil, testConfig(), logger.NewNoOpLogger())

	results, err := s.ProcessPendingEvents(context.Background())

	require.NoError(t, err)
	assert.Len(t, results, 3)
	// Retries only get the slots fresh events left over.
	assert.Equal(t, 8, retryBudget)
	assert.Equal(t, 3, retryLimit)
}

func TestScheduler_ProcessPendingEvents_EmptyBatch(t *testing.T) {
	audit := &MockAuditSink{}
	s := New(selectorWith(nil, nil), &MockProcessor{}, audit, nil, testConfig(), logger.NewNoOpLogger())

	results, err := s.ProcessPendingEvents(context.Background())

	assert.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, audit.Batches)
}

func TestScheduler_ProcessPendingEvents_SelectorError(t *testing.T) {
	selector := &MockSelector{
		SelectPendingFunc: func(ctx context.Context, limit, maxRetries int) ([]string, error) {
			return nil, errors.New("db down")
		},
	}

	s := New(selector, &MockProcessor{}, nil, nil, testConfig(), logger.NewNoOpLogger())

	_, err := s.ProcessPendingEvents(context.Background())
	assert.Error(t, err)
}

func TestScheduler_ProcessPendingEvents_PartialFailures(t *testing.T) {
	proc := &MockProcessor{
		ProcessFunc: func(ctx context.Context, eventID string) error {
			if eventID == "evt-2" {
				return errors.New("process event evt-2: sms: recipient rejected")
			}
			return nil
		},
	}

	s := New(selectorWith([]string{"evt-1", "evt-2"}, nil), proc, nil, nil, testConfig(), logger.NewNoOpLogger())

	results, err := s.ProcessPendingEvents(context.Background())
	require.NoError(t, err)

	byID := make(map[string]ProcessedEvent, len(results))
	for _, r := range results {
		byID[r.EventID] = r
	}
	assert.True(t, byID["evt-1"].Succeeded)
	assert.False(t, byID["evt-2"].Succeeded)
	assert.Error(t, byID["evt-2"].Err)
}

func TestScheduler_ProcessPendingEvents_WorkerPoolBound(t *testing.T) {
	var inFlight, peak int32

	proc := &MockProcessor{
		ProcessFunc: func(ctx context.Context, eventID string) error {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return nil
		},
	}

	cfg := testConfig()
	cfg.WorkerPool = 2
	ids := []string{"a", "b", "c", "d", "e", "f"}

	s := New(selectorWith(ids, nil), proc, nil, nil, cfg, logger.NewNoOpLogger())

	results, err := s.ProcessPendingEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, len(ids))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

// ==========================
// Audit Tests
// ==========================

func TestScheduler_AuditRecordsBatchOutcomes(t *testing.T) {
	proc := &MockProcessor{
		ProcessFunc: func(ctx context.Context, eventID string) error {
			if eventID == "evt-2" {
				return errors.New("boom")
			}
			return nil
		},
	}

	audit := &MockAuditSink{}
	s := New(selectorWith([]string{"evt-1", "evt-2"}, nil), proc, audit, nil, testConfig(), logger.NewNoOpLogger())

	_, err := s.ProcessPendingEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, audit.Batches, 1)

	byID := make(map[string]store.AuditRecord)
	for _, rec := range audit.Batches[0] {
		assert.NotEmpty(t, rec.BatchID)
		assert.Equal(t, audit.Batches[0][0].BatchID, rec.BatchID)
		byID[rec.EventID] = rec
	}
	assert.True(t, byID["evt-1"].Succeeded)
	assert.Empty(t, byID["evt-1"].Error)
	assert.False(t, byID["evt-2"].Succeeded)
	assert.Contains(t, byID["evt-2"].Error, "boom")
}

func TestScheduler_AuditFailureDoesNotFailBatch(t *testing.T) {
	audit := &MockAuditSink{Err: errors.New("es unreachable")}
	s := New(selectorWith([]string{"evt-1"}, nil), &MockProcessor{}, audit, nil, testConfig(), logger.NewNoOpLogger())

	results, err := s.ProcessPendingEvents(context.Background())

	// Audit is best effort; delivery outcomes stand regardless.
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.True(t, results[0].Succeeded)
}

// ==========================
// Poll Loop Tests
// ==========================

func TestScheduler_Run_StopsOnContextCancel(t *testing.T) {
	var batches int32
	selector := &MockSelector{
		SelectPendingFunc: func(ctx context.Context, limit, maxRetries int) ([]string, error) {
			atomic.AddInt32(&batches, 1)
			return nil, nil
		},
	}

	cfg := testConfig()
	cfg.PollInterval = 10 * time.Millisecond

	s := New(selector, &MockProcessor{}, nil, nil, cfg, logger.NewNoOpLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}

	assert.Greater(t, atomic.LoadInt32(&batches), int32(0))
}
