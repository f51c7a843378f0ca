package repository

import (
	"context"
	"sync"
	"time"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	domrepo "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/repository"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/logger"
)

// AsyncAudit decouples request latency from the sink. Events go through a
// buffered channel drained by one writer goroutine; when the buffer is
// full the event is dropped, never blocking the caller.
type AsyncAudit struct {
	sink    domrepo.Audit
	events  chan queuedEvent
	logger  *logger.Logger
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

type queuedEvent struct {
	event models.AuditEvent
	ok    bool
}

// writeTimeout bounds one sink write so a stuck backend cannot wedge the
// drain goroutine forever.
const writeTimeout = 10 * time.Second

func NewAsyncAudit(sink domrepo.Audit, bufferSize int, log *logger.Logger) *AsyncAudit {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	a := &AsyncAudit{
		sink:   sink,
		events: make(chan queuedEvent, bufferSize),
		logger: log,
	}
	a.wg.Add(1)
	go a.drain()
	return a
}

func (a *AsyncAudit) drain() {
	defer a.wg.Done()
	for q := range a.events {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if q.ok {
			a.sink.RecordSuccess(ctx, q.event)
		} else {
			a.sink.RecordFailure(ctx, q.event)
		}
		cancel()
	}
}

func (a *AsyncAudit) enqueue(e models.AuditEvent, ok bool) {
	a.closeMu.Lock()
	if a.closed {
		a.closeMu.Unlock()
		return
	}
	select {
	case a.events <- queuedEvent{event: e, ok: ok}:
	default:
		a.logger.Warn("audit buffer full, dropping event",
			logger.String("endpoint", e.Endpoint),
			logger.String("symbol", e.Symbol))
	}
	a.closeMu.Unlock()
}

func (a *AsyncAudit) RecordSuccess(ctx context.Context, e models.AuditEvent) { a.enqueue(e, true) }
func (a *AsyncAudit) RecordFailure(ctx context.Context, e models.AuditEvent) { a.enqueue(e, false) }

func (a *AsyncAudit) Health(ctx context.Context) error { return a.sink.Health(ctx) }

// Close drains buffered events and closes the underlying sink.
func (a *AsyncAudit) Close() error {
	a.closeMu.Lock()
	if a.closed {
		a.closeMu.Unlock()
		return nil
	}
	a.closed = true
	close(a.events)
	a.closeMu.Unlock()

	a.wg.Wait()
	return a.sink.Close()
}

var _ domrepo.Audit = (*AsyncAudit)(nil)

// NopAudit is the "none" backend: it discards everything.
type NopAudit struct{}

func (NopAudit) RecordSuccess(ctx context.Context, e models.AuditEvent) {}
func (NopAudit) RecordFailure(ctx context.Context, e models.AuditEvent) {}
func (NopAudit) Health(ctx context.Context) error                       { return nil }
func (NopAudit) Close() error                                           { return nil }
