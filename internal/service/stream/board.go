package stream

import (
	"context"
	"sync"
	"time"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	domrepo "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/repository"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/logger"
)

// QuoteBoard sits between the WebSocket feed and the quote endpoint. It
// throttles per-symbol updates and keeps only the latest accepted quote,
// so a burst of trades never turns into a burst of work downstream.
type QuoteBoard struct {
	stream  domrepo.QuoteStream
	metrics domrepo.Metrics
	logger  *logger.Logger
	symbols []string

	maxUpdatesPerSec int
	staleAfter       time.Duration

	mu       sync.RWMutex
	latest   map[string]*models.Quote
	lastSeen map[string]time.Time

	stopCh  chan struct{}
	started bool
}

type BoardOption func(*QuoteBoard)

// WithMaxUpdatesPerSec caps accepted updates per symbol per second.
func WithMaxUpdatesPerSec(n int) BoardOption {
	return func(b *QuoteBoard) {
		if n > 0 {
			b.maxUpdatesPerSec = n
		}
	}
}

// WithStaleAfter sets how old a live quote may be before Latest stops
// returning it.
func WithStaleAfter(d time.Duration) BoardOption {
	return func(b *QuoteBoard) {
		if d > 0 {
			b.staleAfter = d
		}
	}
}

// NewQuoteBoard creates a board over the given stream for the given symbols.
func NewQuoteBoard(s domrepo.QuoteStream, m domrepo.Metrics, symbols []string, log *logger.Logger, opts ...BoardOption) *QuoteBoard {
	b := &QuoteBoard{
		stream:           s,
		metrics:          m,
		logger:           log,
		symbols:          symbols,
		maxUpdatesPerSec: 20,
		staleAfter:       15 * time.Second,
		latest:           make(map[string]*models.Quote),
		lastSeen:         make(map[string]time.Time),
		stopCh:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start connects, subscribes and consumes the feed until ctx is done.
// Transport errors trigger reconnects; the board itself never fails.
func (b *QuoteBoard) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go b.run(ctx)
}

func (b *QuoteBoard) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stopCh:
			return
		default:
		}

		if err := b.stream.Connect(ctx); err != nil {
			b.logger.Warn("quote board connect failed", logger.Error(err))
			b.metrics.RecordError("stream_connect")
			if !sleepCtx(ctx, 3*time.Second) {
				return
			}
			continue
		}
		if err := b.stream.Subscribe(ctx, b.symbols); err != nil {
			b.logger.Warn("quote board subscribe failed", logger.Error(err))
			b.metrics.RecordError("stream_subscribe")
			_ = b.stream.Close()
			continue
		}

		quotes, errs := b.stream.Read(ctx)
		b.consume(ctx, quotes, errs)
		_ = b.stream.Close()
	}
}

func (b *QuoteBoard) consume(ctx context.Context, quotes <-chan *models.Quote, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stopCh:
			return
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil {
				b.logger.Warn("quote board stream error", logger.Error(err))
				b.metrics.RecordError("stream_read")
			}
			return
		case q, ok := <-quotes:
			if !ok {
				return
			}
			b.accept(q)
		}
	}
}

// accept applies the per-symbol throttle and stores the quote.
func (b *QuoteBoard) accept(q *models.Quote) {
	if q == nil || q.Symbol == "" || q.Price <= 0 {
		return
	}
	now := time.Now()
	minGap := time.Second / time.Duration(b.maxUpdatesPerSec)

	b.mu.Lock()
	if last, ok := b.lastSeen[q.Symbol]; ok && now.Sub(last) < minGap {
		b.mu.Unlock()
		return
	}
	b.lastSeen[q.Symbol] = now
	b.latest[q.Symbol] = q
	b.mu.Unlock()

	b.metrics.RecordLastPrice(q.Symbol, q.Price)
}

// Latest returns the most recent live quote for symbol, or nil when none
// was seen or the last one has gone stale.
func (b *QuoteBoard) Latest(symbol string) *models.Quote {
	b.mu.RLock()
	q, ok := b.latest[symbol]
	seen := b.lastSeen[symbol]
	b.mu.RUnlock()
	if !ok || time.Since(seen) > b.staleAfter {
		return nil
	}
	return q
}

// IsConnected reports the underlying feed's connectivity.
func (b *QuoteBoard) IsConnected() bool { return b.stream.IsConnected() }

// Stop ends the consume loop and closes the stream.
func (b *QuoteBoard) Stop() {
	close(b.stopCh)
	_ = b.stream.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
