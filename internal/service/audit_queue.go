package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/ebulletin-go-api/internal/observability"
)

// ErrAuditQueueClosed is returned by Shutdown when called twice.
var ErrAuditQueueClosed = errors.New("audit queue already closed")

// AuditQueue writes audit entries off the request path. Entries are buffered in a
// bounded channel drained by a fixed set of workers; when the buffer is full the
// entry is dropped rather than blocking the request.
type AuditQueue struct {
	service AuditLogService
	entries chan LogActionInput
	logger  zerolog.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewAuditQueue starts workers that persist queued entries through service.
func NewAuditQueue(service AuditLogService, size, workers int, logger zerolog.Logger) *AuditQueue {
	if size <= 0 {
		size = 1024
	}
	if workers <= 0 {
		workers = 2
	}

	q := &AuditQueue{
		service: service,
		entries: make(chan LogActionInput, size),
		logger:  logger.With().Str("component", "audit_queue").Logger(),
	}

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work()
	}

	return q
}

// Enqueue schedules an entry for persistence. It never blocks and reports
// whether the entry was accepted.
func (q *AuditQueue) Enqueue(input LogActionInput) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		observability.AuditDropped().Inc()
		q.logger.Warn().Str("action_type", input.ActionType).Msg("audit queue closed, entry dropped")
		return false
	}

	select {
	case q.entries <- input:
		observability.AuditEnqueued().Inc()
		observability.AuditQueueDepth().Set(float64(len(q.entries)))
		return true
	default:
		observability.AuditDropped().Inc()
		q.logger.Warn().
			Str("action_type", input.ActionType).
			Str("target_table", input.TargetTable).
			Int("capacity", cap(q.entries)).
			Msg("audit queue full, entry dropped")
		return false
	}
}

// Record satisfies the middleware sink contract.
func (q *AuditQueue) Record(input LogActionInput) {
	q.Enqueue(input)
}

// Len returns the number of buffered entries.
func (q *AuditQueue) Len() int {
	return len(q.entries)
}

// Shutdown stops intake and waits for buffered entries to be written or for
// ctx to expire, whichever comes first.
func (q *AuditQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrAuditQueueClosed
	}
	q.closed = true
	close(q.entries)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info().Msg("audit queue drained")
		return nil
	case <-ctx.Done():
		q.logger.Warn().Int("pending", len(q.entries)).Msg("audit queue drain interrupted")
		return ctx.Err()
	}
}

func (q *AuditQueue) work() {
	defer q.wg.Done()
	for input := range q.entries {
		observability.AuditQueueDepth().Set(float64(len(q.entries)))
		q.service.LogAction(context.Background(), input)
	}
}
