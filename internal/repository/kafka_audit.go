package repository

import (
	"context"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/kafka"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/logger"
)

// KafkaAudit publishes audit events to a topic instead of writing them to
// ClickHouse directly. Downstream consumers own durability; this sink only
// guarantees best-effort delivery.
type KafkaAudit struct {
	producer *kafka.Producer
	topic    string
	logger   *logger.Logger
}

func NewKafkaAudit(producer *kafka.Producer, topic string, log *logger.Logger) *KafkaAudit {
	return &KafkaAudit{producer: producer, topic: topic, logger: log}
}

type auditRecord struct {
	Endpoint  string                 `json:"endpoint"`
	Symbol    string                 `json:"symbol"`
	Source    string                 `json:"source"`
	OK        bool                   `json:"ok"`
	Error     string                 `json:"error,omitempty"`
	LatencyMS float64                `json:"latency_ms"`
	Attempts  []models.VendorAttempt `json:"attempts"`
	At        string                 `json:"at"`
}

func (a *KafkaAudit) publish(ctx context.Context, e models.AuditEvent, ok bool) {
	rec := auditRecord{
		Endpoint:  e.Endpoint,
		Symbol:    e.Symbol,
		Source:    e.Source,
		OK:        ok,
		Error:     e.Err,
		LatencyMS: float64(e.Latency.Microseconds()) / 1000.0,
		Attempts:  e.Attempts,
		At:        e.At.Format("2006-01-02T15:04:05.000Z07:00"),
	}
	// Keyed by symbol so one symbol's trail stays ordered per partition.
	if err := a.producer.Publish(ctx, a.topic, []byte(e.Symbol), rec); err != nil {
		a.logger.Error("audit publish failed", logger.Error(err))
	}
}

func (a *KafkaAudit) RecordSuccess(ctx context.Context, e models.AuditEvent) { a.publish(ctx, e, true) }
func (a *KafkaAudit) RecordFailure(ctx context.Context, e models.AuditEvent) { a.publish(ctx, e, false) }

func (a *KafkaAudit) Health(ctx context.Context) error { return nil }

func (a *KafkaAudit) Close() error { return a.producer.Close() }
