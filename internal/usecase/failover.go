// Package usecase composes vendor chains, the annotator and the audit sink
// into the operations behind the API endpoints.
package usecase

import (
	"context"
	"time"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	domrepo "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/repository"
	domsvc "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/service"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/logger"
)

// chainStep is one vendor in a failover chain: a name plus a bound fetch.
type chainStep[T any] struct {
	Vendor string
	Fetch  func(ctx context.Context) (T, error)
}

// Sequencer runs failover chains. Attempts are strictly sequential in
// priority order; each vendor gets one attempt under its own timeout.
type Sequencer struct {
	timeout time.Duration
	metrics domrepo.Metrics
	logger  *logger.Logger
}

func NewSequencer(timeout time.Duration, m domrepo.Metrics, log *logger.Logger) *Sequencer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Sequencer{timeout: timeout, metrics: m, logger: log}
}

// runChain folds over the chain and returns the first non-empty success,
// the winning vendor's name and the ordered attempt trail. A nil error with
// an empty payload counts as a failed attempt. When every vendor failed the
// zero value is returned with ErrNoData; an empty chain returns
// ErrNotConfigured without recording any attempt.
func runChain[T any](ctx context.Context, s *Sequencer, kind string, steps []chainStep[T], empty func(T) bool) (T, string, []models.VendorAttempt, error) {
	var zero T
	if len(steps) == 0 {
		return zero, "", nil, domsvc.ErrNotConfigured
	}

	chainStart := time.Now()
	defer func() {
		s.metrics.RecordLatency(kind, time.Since(chainStart).Seconds())
	}()

	attempts := make([]models.VendorAttempt, 0, len(steps))
	for _, step := range steps {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, s.timeout)
		data, err := step.Fetch(stepCtx)
		cancel()
		elapsed := time.Since(start)

		switch {
		case err != nil:
			s.metrics.RecordVendorAttempt(step.Vendor, kind, "error")
			s.logger.Warn("vendor attempt failed",
				logger.String("vendor", step.Vendor),
				logger.String("kind", kind),
				logger.Error(err))
			attempts = append(attempts, models.VendorAttempt{
				Vendor:  step.Vendor,
				Err:     err.Error(),
				Latency: elapsed,
			})
		case empty(data):
			s.metrics.RecordVendorAttempt(step.Vendor, kind, "empty")
			attempts = append(attempts, models.VendorAttempt{
				Vendor:  step.Vendor,
				Err:     "empty payload",
				Latency: elapsed,
			})
		default:
			s.metrics.RecordVendorAttempt(step.Vendor, kind, "success")
			attempts = append(attempts, models.VendorAttempt{
				Vendor:  step.Vendor,
				OK:      true,
				Latency: elapsed,
			})
			return data, step.Vendor, attempts, nil
		}

		// A canceled parent context ends the chain early.
		if ctx.Err() != nil {
			return zero, "", attempts, ctx.Err()
		}
	}
	return zero, "", attempts, domsvc.ErrNoData
}

func candleSteps(chain []domsvc.CandleVendor, symbol string, interval domrepo.Interval, horizon string) []chainStep[[]models.Candle] {
	steps := make([]chainStep[[]models.Candle], 0, len(chain))
	for _, v := range chain {
		v := v
		steps = append(steps, chainStep[[]models.Candle]{
			Vendor: v.Name(),
			Fetch: func(ctx context.Context) ([]models.Candle, error) {
				return v.Candles(ctx, symbol, interval, horizon)
			},
		})
	}
	return steps
}

func newsSteps(chain []domsvc.NewsVendor, symbol string, limit int) []chainStep[[]models.NewsArticle] {
	steps := make([]chainStep[[]models.NewsArticle], 0, len(chain))
	for _, v := range chain {
		v := v
		steps = append(steps, chainStep[[]models.NewsArticle]{
			Vendor: v.Name(),
			Fetch: func(ctx context.Context) ([]models.NewsArticle, error) {
				return v.News(ctx, symbol, limit)
			},
		})
	}
	return steps
}

func flowSteps(chain []domsvc.FlowVendor, symbol string, limit int) []chainStep[[]models.InstitutionalFlow] {
	steps := make([]chainStep[[]models.InstitutionalFlow], 0, len(chain))
	for _, v := range chain {
		v := v
		steps = append(steps, chainStep[[]models.InstitutionalFlow]{
			Vendor: v.Name(),
			Fetch: func(ctx context.Context) ([]models.InstitutionalFlow, error) {
				return v.Flows(ctx, symbol, limit)
			},
		})
	}
	return steps
}

func quoteSteps(chain []domsvc.QuoteVendor, symbol string) []chainStep[*models.Quote] {
	steps := make([]chainStep[*models.Quote], 0, len(chain))
	for _, v := range chain {
		v := v
		steps = append(steps, chainStep[*models.Quote]{
			Vendor: v.Name(),
			Fetch: func(ctx context.Context) (*models.Quote, error) {
				return v.Quote(ctx, symbol)
			},
		})
	}
	return steps
}

func emptySlice[E any](s []E) bool { return len(s) == 0 }

func emptyQuote(q *models.Quote) bool { return q == nil || q.Price <= 0 }
