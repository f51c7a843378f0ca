package repository

import (
	"context"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
)

// QuoteStream is a live price feed (WebSocket-backed in production).
type QuoteStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols []string) error
	Read(ctx context.Context) (<-chan *models.Quote, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Audit is the observability boundary. Implementations append events to
// durable log storage; every implementation swallows its own failures so
// audit can never change the outcome of the primary request.
type Audit interface {
	RecordSuccess(ctx context.Context, e models.AuditEvent)
	RecordFailure(ctx context.Context, e models.AuditEvent)
	Health(ctx context.Context) error
	Close() error
}

// Metrics abstracts operational counters so use cases stay Prometheus-free.
type Metrics interface {
	RecordVendorAttempt(vendor, kind, result string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
