// Package repository holds the audit sink implementations. Audit is
// append-only and best-effort: nothing here may influence the outcome of
// the request that produced the event.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/clickhouse"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/logger"
)

// auditSchema creates the append-only audit table. MergeTree ordered by
// time so retention can TTL old partitions.
var auditSchema = []string{
	`CREATE TABLE IF NOT EXISTS audit_log (
		ts         DateTime64(3, 'UTC'),
		endpoint   LowCardinality(String),
		symbol     LowCardinality(String),
		source     LowCardinality(String),
		ok         UInt8,
		error      String,
		latency_ms Float64,
		attempts   String
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(ts)
	ORDER BY (endpoint, ts)`,
}

// ClickHouseAudit writes audit events into the audit_log table.
type ClickHouseAudit struct {
	client *clickhouse.Client
	logger *logger.Logger
}

// NewClickHouseAudit ensures the schema exists and returns the sink.
func NewClickHouseAudit(ctx context.Context, client *clickhouse.Client, log *logger.Logger) (*ClickHouseAudit, error) {
	if err := client.InitSchema(ctx, auditSchema); err != nil {
		return nil, fmt.Errorf("audit schema: %w", err)
	}
	return &ClickHouseAudit{client: client, logger: log}, nil
}

func (a *ClickHouseAudit) write(ctx context.Context, e models.AuditEvent, ok bool) {
	trail, err := json.Marshal(e.Attempts)
	if err != nil {
		trail = []byte("[]")
	}
	okFlag := uint8(0)
	if ok {
		okFlag = 1
	}
	_, err = a.client.DB().ExecContext(ctx,
		`INSERT INTO audit_log (ts, endpoint, symbol, source, ok, error, latency_ms, attempts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.At, e.Endpoint, e.Symbol, e.Source, okFlag, e.Err,
		float64(e.Latency.Microseconds())/1000.0, string(trail))
	if err != nil {
		// Swallowed: audit never fails the request.
		a.logger.Error("audit insert failed", logger.Error(err))
	}
}

func (a *ClickHouseAudit) RecordSuccess(ctx context.Context, e models.AuditEvent) { a.write(ctx, e, true) }
func (a *ClickHouseAudit) RecordFailure(ctx context.Context, e models.AuditEvent) { a.write(ctx, e, false) }

func (a *ClickHouseAudit) Health(ctx context.Context) error { return a.client.Health(ctx) }

func (a *ClickHouseAudit) Close() error { return a.client.Close() }
