package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	domrepo "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/repository"
)

// ErrNoData is returned when every vendor in a failover chain failed or
// answered empty. Live data only: callers must fail closed on it, never
// substitute placeholder rows.
var ErrNoData = errors.New("no data source available")

// ErrNotConfigured is returned when an endpoint's vendor chain is empty
// because no API key was configured for any of its vendors.
var ErrNotConfigured = errors.New("no vendor configured")

// VendorError wraps a single vendor's failure with its name, so the
// failover trail can report which step failed and why.
type VendorError struct {
	Vendor string
	Err    error
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("vendor %s: %v", e.Vendor, e.Err)
}

func (e *VendorError) Unwrap() error { return e.Err }

// CandleVendor fetches OHLCV history for a symbol. Implementations return
// candles ascending by time, or an error; an empty slice without error is
// treated as failure by the sequencer.
type CandleVendor interface {
	Name() string
	Candles(ctx context.Context, symbol string, interval domrepo.Interval, horizon string) ([]models.Candle, error)
}

// NewsVendor fetches recent articles for a symbol.
type NewsVendor interface {
	Name() string
	News(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error)
}

// FlowVendor fetches institutional position data for a symbol.
type FlowVendor interface {
	Name() string
	Flows(ctx context.Context, symbol string, limit int) ([]models.InstitutionalFlow, error)
}

// QuoteVendor fetches a single spot price snapshot (REST fallback when the
// live stream has nothing fresh).
type QuoteVendor interface {
	Name() string
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}
