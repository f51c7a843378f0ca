package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	domrepo "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/repository"
	domsvc "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/service"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/logger"
)

type fakeNewsVendor struct {
	name     string
	articles []models.NewsArticle
	err      error
}

func (f *fakeNewsVendor) Name() string { return f.name }
func (f *fakeNewsVendor) News(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	return f.articles, f.err
}

type fakeFlowVendor struct {
	name  string
	flows []models.InstitutionalFlow
	err   error
}

func (f *fakeFlowVendor) Name() string { return f.name }
func (f *fakeFlowVendor) Flows(ctx context.Context, symbol string, limit int) ([]models.InstitutionalFlow, error) {
	return f.flows, f.err
}

type fakeQuoteVendor struct {
	name  string
	quote *models.Quote
	err   error
}

func (f *fakeQuoteVendor) Name() string { return f.name }
func (f *fakeQuoteVendor) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	return f.quote, f.err
}

type fakeAnnotator struct {
	annotation models.Annotation
	bundles    []*models.MarketBundle
}

func (f *fakeAnnotator) Annotate(ctx context.Context, b *models.MarketBundle) models.Annotation {
	f.bundles = append(f.bundles, b)
	return f.annotation
}

type recordingAudit struct {
	mu        sync.Mutex
	successes []models.AuditEvent
	failures  []models.AuditEvent
}

func (a *recordingAudit) RecordSuccess(ctx context.Context, e models.AuditEvent) {
	a.mu.Lock()
	a.successes = append(a.successes, e)
	a.mu.Unlock()
}

func (a *recordingAudit) RecordFailure(ctx context.Context, e models.AuditEvent) {
	a.mu.Lock()
	a.failures = append(a.failures, e)
	a.mu.Unlock()
}

func (a *recordingAudit) Health(ctx context.Context) error { return nil }
func (a *recordingAudit) Close() error                     { return nil }

type fakeLive struct {
	quote *models.Quote
}

func (f *fakeLive) Latest(symbol string) *models.Quote { return f.quote }

func newService(chains Chains, ann domsvc.Annotator, audit *recordingAudit, live LiveQuotes) *MarketDataService {
	if ann == nil {
		ann = &fakeAnnotator{annotation: models.FallbackAnnotation()}
	}
	if audit == nil {
		audit = &recordingAudit{}
	}
	return NewMarketDataService(chains, testSequencer(), ann, audit, live, logger.NewNop())
}

func TestChartReportsWinningSource(t *testing.T) {
	audit := &recordingAudit{}
	svc := newService(Chains{
		Candles: []domsvc.CandleVendor{
			&fakeCandleVendor{name: "polygon", err: errors.New("503")},
			&fakeCandleVendor{name: "finnhub", candles: someCandles(5)},
		},
	}, nil, audit, nil)

	res, err := svc.Chart(context.Background(), &models.ChartRequest{Symbol: "aapl", Interval: "1h", Horizon: "1mo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != "finnhub" {
		t.Fatalf("source = %s", res.Source)
	}
	if res.Symbol != "AAPL" {
		t.Fatalf("symbol not normalized: %s", res.Symbol)
	}
	if len(audit.successes) != 1 {
		t.Fatalf("expected one audit success, got %d", len(audit.successes))
	}
	if got := audit.successes[0].Attempts; len(got) != 2 {
		t.Fatalf("audit trail = %+v", got)
	}
}

func TestChartNormalizesInterval(t *testing.T) {
	vendor := &fakeCandleVendor{name: "polygon", candles: someCandles(2)}
	svc := newService(Chains{Candles: []domsvc.CandleVendor{vendor}}, nil, nil, nil)

	_, err := svc.Chart(context.Background(), &models.ChartRequest{Symbol: "AAPL", Interval: "", Horizon: "1mo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vendor.interval != domrepo.DefaultInterval() {
		t.Fatalf("empty interval reached vendor as %q", vendor.interval)
	}

	_, err = svc.Chart(context.Background(), &models.ChartRequest{Symbol: "AAPL", Interval: "7h", Horizon: "1mo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vendor.interval != domrepo.DefaultInterval() {
		t.Fatalf("unknown interval reached vendor as %q", vendor.interval)
	}
}

func TestChartExhaustionAuditsFailure(t *testing.T) {
	audit := &recordingAudit{}
	svc := newService(Chains{
		Candles: []domsvc.CandleVendor{&fakeCandleVendor{name: "polygon", err: errors.New("down")}},
	}, nil, audit, nil)

	_, err := svc.Chart(context.Background(), &models.ChartRequest{Symbol: "AAPL", Interval: "1h", Horizon: "1mo"})
	if !errors.Is(err, domsvc.ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
	if len(audit.failures) != 1 {
		t.Fatalf("expected one audit failure, got %d", len(audit.failures))
	}
	if audit.failures[0].Err == "" {
		t.Fatalf("audit failure should carry the error string")
	}
}

func TestNewsDedupesKeepingFirst(t *testing.T) {
	articles := []models.NewsArticle{
		{Headline: "Apple beats estimates", Source: "first"},
		{Headline: "apple beats estimates ", Source: "repeat"},
		{Headline: "New chip announced", Source: "other"},
	}
	svc := newService(Chains{
		News: []domsvc.NewsVendor{&fakeNewsVendor{name: "marketaux", articles: articles}},
	}, nil, nil, nil)

	res, err := svc.News(context.Background(), &models.NewsRequest{Symbol: "AAPL", Limit: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Articles) != 2 {
		t.Fatalf("expected 2 deduped articles, got %d", len(res.Articles))
	}
	if res.Articles[0].Source != "first" {
		t.Fatalf("dedup must keep the first occurrence, kept %s", res.Articles[0].Source)
	}
}

func TestFlowsDropsUnchangedPositions(t *testing.T) {
	flows := []models.InstitutionalFlow{
		{Institution: "Alpha Capital", Shares: 1000, ChangeShares: 200, Side: "buy"},
		{Institution: "Beta Holdings", Shares: 5000, ChangeShares: 0, Side: "hold"},
	}
	svc := newService(Chains{
		Flows: []domsvc.FlowVendor{&fakeFlowVendor{name: "fmp", flows: flows}},
	}, nil, nil, nil)

	res, err := svc.Flows(context.Background(), &models.FlowsRequest{Symbol: "AAPL", Limit: 25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Flows) != 1 || res.Flows[0].Institution != "Alpha Capital" {
		t.Fatalf("flows = %+v", res.Flows)
	}

	inst, err := svc.Institutional(context.Background(), &models.InstitutionalRequest{Symbol: "AAPL", Limit: 25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inst.Holders) != 2 {
		t.Fatalf("institutional must keep unchanged positions, got %d", len(inst.Holders))
	}
}

func TestQuotePrefersLiveStream(t *testing.T) {
	live := &fakeLive{quote: &models.Quote{Symbol: "AAPL", Price: 231.5, Live: true}}
	audit := &recordingAudit{}
	svc := newService(Chains{
		Quotes: []domsvc.QuoteVendor{&fakeQuoteVendor{name: "finnhub", quote: &models.Quote{Symbol: "AAPL", Price: 230}}},
	}, nil, audit, live)

	res, err := svc.Quote(context.Background(), &models.QuoteRequest{Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != "stream" || res.Quote.Price != 231.5 {
		t.Fatalf("expected live quote, got %s %+v", res.Source, res.Quote)
	}
	if len(audit.successes) != 1 {
		t.Fatalf("stream-served quote must still audit, got %d events", len(audit.successes))
	}
	if audit.successes[0].Source != "stream" {
		t.Fatalf("audit source = %s", audit.successes[0].Source)
	}
}

func TestQuoteFallsBackToRest(t *testing.T) {
	svc := newService(Chains{
		Quotes: []domsvc.QuoteVendor{&fakeQuoteVendor{name: "finnhub", quote: &models.Quote{Symbol: "AAPL", Price: 230}}},
	}, nil, nil, &fakeLive{})

	res, err := svc.Quote(context.Background(), &models.QuoteRequest{Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != "finnhub" {
		t.Fatalf("source = %s", res.Source)
	}
}

func TestTraderProDegradesFailedKinds(t *testing.T) {
	ann := &fakeAnnotator{annotation: models.Annotation{Trend: models.TrendBullish, Confidence: 0.8}}
	svc := newService(Chains{
		Candles: []domsvc.CandleVendor{&fakeCandleVendor{name: "polygon", candles: someCandles(3)}},
		News:    []domsvc.NewsVendor{&fakeNewsVendor{name: "marketaux", err: errors.New("quota exceeded")}},
		Flows:   []domsvc.FlowVendor{&fakeFlowVendor{name: "fmp", flows: []models.InstitutionalFlow{{Institution: "Alpha", ChangeShares: 5}}}},
	}, ann, nil, nil)

	res, err := svc.TraderPro(context.Background(), &models.TraderProRequest{Symbol: "AAPL", Interval: "1h", Horizon: "1mo", Mode: "full"})
	if err != nil {
		t.Fatalf("a failed kind must not fail the bundle: %v", err)
	}
	if len(res.Bundle.Candles) != 3 {
		t.Fatalf("candles missing from bundle")
	}
	if len(res.Bundle.News) != 0 {
		t.Fatalf("failed news kind should be empty")
	}
	if len(res.Bundle.Flows) != 1 {
		t.Fatalf("sibling flows should be unaffected")
	}
	if res.Annotation.Trend != models.TrendBullish {
		t.Fatalf("annotation = %+v", res.Annotation)
	}
	if len(ann.bundles) != 1 {
		t.Fatalf("annotator must run exactly once, ran %d times", len(ann.bundles))
	}
}

func TestTraderProAllKindsEmptyFails(t *testing.T) {
	audit := &recordingAudit{}
	svc := newService(Chains{
		Candles: []domsvc.CandleVendor{&fakeCandleVendor{name: "polygon", err: errors.New("down")}},
		News:    []domsvc.NewsVendor{&fakeNewsVendor{name: "marketaux", err: errors.New("down")}},
		Flows:   []domsvc.FlowVendor{&fakeFlowVendor{name: "fmp", err: errors.New("down")}},
	}, nil, audit, nil)

	_, err := svc.TraderPro(context.Background(), &models.TraderProRequest{Symbol: "AAPL", Interval: "1h", Horizon: "1mo", Mode: "full"})
	if !errors.Is(err, domsvc.ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
	if len(audit.failures) != 1 {
		t.Fatalf("expected one audit failure, got %d", len(audit.failures))
	}
}

func TestTraderProLiteSkipsNewsAndFlows(t *testing.T) {
	newsVendor := &fakeNewsVendor{name: "marketaux", articles: []models.NewsArticle{{Headline: "x"}}}
	svc := newService(Chains{
		Candles: []domsvc.CandleVendor{&fakeCandleVendor{name: "polygon", candles: someCandles(3)}},
		News:    []domsvc.NewsVendor{newsVendor},
	}, nil, nil, nil)

	res, err := svc.TraderPro(context.Background(), &models.TraderProRequest{Symbol: "AAPL", Interval: "1h", Horizon: "1mo", Mode: "lite"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Bundle.News) != 0 {
		t.Fatalf("lite mode must not fetch news")
	}
	if res.Source != "polygon" {
		t.Fatalf("source = %s", res.Source)
	}
}

func TestTraderProStampsLiveQuote(t *testing.T) {
	live := &fakeLive{quote: &models.Quote{Symbol: "AAPL", Price: 232.1, Live: true, Timestamp: time.Now().UTC()}}
	svc := newService(Chains{
		Candles: []domsvc.CandleVendor{&fakeCandleVendor{name: "polygon", candles: someCandles(3)}},
	}, nil, nil, live)

	res, err := svc.TraderPro(context.Background(), &models.TraderProRequest{Symbol: "AAPL", Interval: "1h", Horizon: "1mo", Mode: "lite"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Bundle.Quote == nil || !res.Bundle.Quote.Live {
		t.Fatalf("bundle should carry the live quote")
	}
}
