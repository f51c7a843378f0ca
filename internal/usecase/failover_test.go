package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	domrepo "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/repository"
	domsvc "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/service"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordVendorAttempt(vendor, kind, result string) {}
func (nopMetrics) RecordError(kind string)                         {}
func (nopMetrics) RecordLastPrice(symbol string, price float64)    {}
func (nopMetrics) RecordLatency(op string, seconds float64)        {}

func testSequencer() *Sequencer {
	return NewSequencer(time.Second, nopMetrics{}, logger.NewNop())
}

// fakeCandleVendor counts calls so tests can assert one attempt per vendor.
type fakeCandleVendor struct {
	name     string
	candles  []models.Candle
	err      error
	delay    time.Duration
	calls    int
	interval domrepo.Interval
}

func (f *fakeCandleVendor) Name() string { return f.name }

func (f *fakeCandleVendor) Candles(ctx context.Context, symbol string, interval domrepo.Interval, horizon string) ([]models.Candle, error) {
	f.calls++
	f.interval = interval
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.candles, f.err
}

func someCandles(n int) []models.Candle {
	out := make([]models.Candle, n)
	base := time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = models.Candle{Time: base.Add(time.Duration(i) * time.Hour), Open: 1, High: 2, Low: 0.5, Close: 1.5}
	}
	return out
}

func run(t *testing.T, chain []domsvc.CandleVendor) ([]models.Candle, string, []models.VendorAttempt, error) {
	t.Helper()
	return runChain(context.Background(), testSequencer(), "candles",
		candleSteps(chain, "AAPL", domrepo.IV1h, "1mo"), emptySlice)
}

func TestFailoverFirstSuccessWins(t *testing.T) {
	primary := &fakeCandleVendor{name: "primary", candles: someCandles(3)}
	secondary := &fakeCandleVendor{name: "secondary", candles: someCandles(5)}

	candles, source, attempts, err := run(t, []domsvc.CandleVendor{primary, secondary})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != "primary" {
		t.Fatalf("source = %s, want primary", source)
	}
	if len(candles) != 3 {
		t.Fatalf("expected the primary payload, got %d candles", len(candles))
	}
	if secondary.calls != 0 {
		t.Fatalf("secondary must not be called after primary success")
	}
	if len(attempts) != 1 || !attempts[0].OK {
		t.Fatalf("attempt trail = %+v", attempts)
	}
}

func TestFailoverAdvancesOnError(t *testing.T) {
	primary := &fakeCandleVendor{name: "primary", err: errors.New("boom")}
	secondary := &fakeCandleVendor{name: "secondary", candles: someCandles(5)}

	candles, source, attempts, err := run(t, []domsvc.CandleVendor{primary, secondary})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != "secondary" || len(candles) != 5 {
		t.Fatalf("source = %s candles = %d", source, len(candles))
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if attempts[0].OK || attempts[0].Err == "" {
		t.Fatalf("first attempt should be a recorded failure: %+v", attempts[0])
	}
	if !attempts[1].OK {
		t.Fatalf("second attempt should be a success: %+v", attempts[1])
	}
}

func TestFailoverEmptyPayloadIsFailure(t *testing.T) {
	primary := &fakeCandleVendor{name: "primary", candles: []models.Candle{}}
	secondary := &fakeCandleVendor{name: "secondary", candles: someCandles(2)}

	_, source, attempts, err := run(t, []domsvc.CandleVendor{primary, secondary})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != "secondary" {
		t.Fatalf("empty payload must advance the chain, source = %s", source)
	}
	if attempts[0].Err != "empty payload" {
		t.Fatalf("attempt err = %q", attempts[0].Err)
	}
}

func TestFailoverExhaustionReturnsErrNoData(t *testing.T) {
	a := &fakeCandleVendor{name: "a", err: errors.New("down")}
	b := &fakeCandleVendor{name: "b", candles: nil}
	c := &fakeCandleVendor{name: "c", err: errors.New("down too")}

	_, _, attempts, err := run(t, []domsvc.CandleVendor{a, b, c})
	if !errors.Is(err, domsvc.ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("expected full trail on exhaustion, got %d", len(attempts))
	}
	for _, v := range []*fakeCandleVendor{a, b, c} {
		if v.calls != 1 {
			t.Fatalf("vendor %s called %d times, want exactly 1", v.name, v.calls)
		}
	}
}

func TestFailoverEmptyChainNotConfigured(t *testing.T) {
	_, _, attempts, err := run(t, nil)
	if !errors.Is(err, domsvc.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
	if len(attempts) != 0 {
		t.Fatalf("no attempts expected for an empty chain")
	}
}

func TestFailoverPerVendorTimeout(t *testing.T) {
	seq := NewSequencer(30*time.Millisecond, nopMetrics{}, logger.NewNop())
	slow := &fakeCandleVendor{name: "slow", candles: someCandles(3), delay: 500 * time.Millisecond}
	fast := &fakeCandleVendor{name: "fast", candles: someCandles(2)}

	candles, source, _, err := runChain(context.Background(), seq, "candles",
		candleSteps([]domsvc.CandleVendor{slow, fast}, "AAPL", domrepo.IV1h, "1mo"), emptySlice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != "fast" || len(candles) != 2 {
		t.Fatalf("slow vendor should time out and yield to fast, source = %s", source)
	}
}

func TestFailoverStopsWhenParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &fakeCandleVendor{name: "a", err: errors.New("down")}
	b := &fakeCandleVendor{name: "b", candles: someCandles(2)}

	_, _, _, err := runChain(ctx, testSequencer(), "candles",
		candleSteps([]domsvc.CandleVendor{a, b}, "AAPL", domrepo.IV1h, "1mo"), emptySlice)
	if err == nil {
		t.Fatalf("expected error with canceled parent context")
	}
	if b.calls != 0 {
		t.Fatalf("chain must stop once the parent context is canceled")
	}
}

// latencyMetrics records RecordLatency calls.
type latencyMetrics struct {
	nopMetrics
	ops []string
}

func (m *latencyMetrics) RecordLatency(op string, seconds float64) {
	m.ops = append(m.ops, op)
}

func TestFailoverRecordsChainLatency(t *testing.T) {
	m := &latencyMetrics{}
	seq := NewSequencer(time.Second, m, logger.NewNop())

	_, _, _, err := runChain(context.Background(), seq, "candles",
		candleSteps([]domsvc.CandleVendor{&fakeCandleVendor{name: "polygon", candles: someCandles(1)}}, "AAPL", domrepo.IV1h, "1mo"), emptySlice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.ops) != 1 || m.ops[0] != "candles" {
		t.Fatalf("latency ops = %v", m.ops)
	}

	_, _, _, err = runChain(context.Background(), seq, "news",
		newsSteps(nil, "AAPL", 10), emptySlice)
	if !errors.Is(err, domsvc.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
	if len(m.ops) != 1 {
		t.Fatalf("empty chain must not record latency, ops = %v", m.ops)
	}
}
