package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	domrepo "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/repository"
	domsvc "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/service"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/logger"
)

// LiveQuotes is the optional streaming-side price source. Latest returns
// nil when nothing fresh is available for the symbol.
type LiveQuotes interface {
	Latest(symbol string) *models.Quote
}

// MarketDataService runs the vendor chains behind every endpoint. Chains
// are built at startup from the configured vendors; a chain may be empty
// when no vendor for that kind has a key.
type MarketDataService struct {
	candleChain []domsvc.CandleVendor
	newsChain   []domsvc.NewsVendor
	flowChain   []domsvc.FlowVendor
	quoteChain  []domsvc.QuoteVendor

	seq       *Sequencer
	annotator domsvc.Annotator
	audit     domrepo.Audit
	live      LiveQuotes
	logger    *logger.Logger
}

// Chains groups the per-kind vendor priority lists.
type Chains struct {
	Candles []domsvc.CandleVendor
	News    []domsvc.NewsVendor
	Flows   []domsvc.FlowVendor
	Quotes  []domsvc.QuoteVendor
}

func NewMarketDataService(chains Chains, seq *Sequencer, annotator domsvc.Annotator, audit domrepo.Audit, live LiveQuotes, log *logger.Logger) *MarketDataService {
	return &MarketDataService{
		candleChain: chains.Candles,
		newsChain:   chains.News,
		flowChain:   chains.Flows,
		quoteChain:  chains.Quotes,
		seq:         seq,
		annotator:   annotator,
		audit:       audit,
		live:        live,
		logger:      log,
	}
}

// ChartResult is the /api/chart payload.
type ChartResult struct {
	Symbol   string          `json:"symbol"`
	Interval string          `json:"interval"`
	Horizon  string          `json:"horizon"`
	Candles  []models.Candle `json:"candles"`
	Source   string          `json:"source"`
}

// Chart fetches candles through the price chain.
func (s *MarketDataService) Chart(ctx context.Context, req *models.ChartRequest) (*ChartResult, error) {
	symbol := normalizeSymbol(req.Symbol)
	start := time.Now()

	candles, source, attempts, err := runChain(ctx, s.seq, "candles",
		candleSteps(s.candleChain, symbol, domrepo.NormalizeInterval(req.Interval), req.Horizon), emptySlice)
	s.record(ctx, "chart", symbol, source, attempts, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &ChartResult{
		Symbol:   symbol,
		Interval: req.Interval,
		Horizon:  req.Horizon,
		Candles:  candles,
		Source:   source,
	}, nil
}

// NewsResult is the /api/news payload.
type NewsResult struct {
	Symbol   string               `json:"symbol"`
	Articles []models.NewsArticle `json:"articles"`
	Source   string               `json:"source"`
}

// News fetches articles through the news chain and dedupes them by
// normalized headline, keeping the first occurrence.
func (s *MarketDataService) News(ctx context.Context, req *models.NewsRequest) (*NewsResult, error) {
	symbol := normalizeSymbol(req.Symbol)
	start := time.Now()

	articles, source, attempts, err := runChain(ctx, s.seq, "news",
		newsSteps(s.newsChain, symbol, req.Limit), emptySlice)
	s.record(ctx, "news", symbol, source, attempts, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &NewsResult{
		Symbol:   symbol,
		Articles: dedupeNews(articles),
		Source:   source,
	}, nil
}

// FlowsResult is the /api/flows payload.
type FlowsResult struct {
	Symbol string                     `json:"symbol"`
	Flows  []models.InstitutionalFlow `json:"flows"`
	Source string                     `json:"source"`
}

// Flows fetches institutional position changes. Entries with no change are
// dropped: this endpoint reports activity, not the full holder roster.
func (s *MarketDataService) Flows(ctx context.Context, req *models.FlowsRequest) (*FlowsResult, error) {
	symbol := normalizeSymbol(req.Symbol)
	start := time.Now()

	flows, source, attempts, err := runChain(ctx, s.seq, "flows",
		flowSteps(s.flowChain, symbol, req.Limit), emptySlice)
	s.record(ctx, "flows", symbol, source, attempts, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	active := make([]models.InstitutionalFlow, 0, len(flows))
	for _, f := range flows {
		if f.ChangeShares != 0 {
			active = append(active, f)
		}
	}
	return &FlowsResult{Symbol: symbol, Flows: active, Source: source}, nil
}

// InstitutionalResult is the /api/institutional payload.
type InstitutionalResult struct {
	Symbol  string                     `json:"symbol"`
	Holders []models.InstitutionalFlow `json:"holders"`
	Source  string                     `json:"source"`
}

// Institutional fetches the full holder roster including unchanged positions.
func (s *MarketDataService) Institutional(ctx context.Context, req *models.InstitutionalRequest) (*InstitutionalResult, error) {
	symbol := normalizeSymbol(req.Symbol)
	start := time.Now()

	holders, source, attempts, err := runChain(ctx, s.seq, "institutional",
		flowSteps(s.flowChain, symbol, req.Limit), emptySlice)
	s.record(ctx, "institutional", symbol, source, attempts, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &InstitutionalResult{Symbol: symbol, Holders: holders, Source: source}, nil
}

// QuoteResult is the /api/quote payload.
type QuoteResult struct {
	Quote  *models.Quote `json:"quote"`
	Source string        `json:"source"`
}

// Quote prefers the live stream; when nothing fresh is on the board it
// falls back to the REST quote chain.
func (s *MarketDataService) Quote(ctx context.Context, req *models.QuoteRequest) (*QuoteResult, error) {
	symbol := normalizeSymbol(req.Symbol)
	start := time.Now()

	if s.live != nil {
		if q := s.live.Latest(symbol); q != nil {
			s.record(ctx, "quote", symbol, "stream", nil, time.Since(start), nil)
			return &QuoteResult{Quote: q, Source: "stream"}, nil
		}
	}

	quote, source, attempts, err := runChain(ctx, s.seq, "quote",
		quoteSteps(s.quoteChain, symbol), emptyQuote)
	s.record(ctx, "quote", symbol, source, attempts, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return &QuoteResult{Quote: quote, Source: source}, nil
}

// TraderProResult is the /api/trader-pro payload: every data kind plus one
// annotation over the combined bundle.
type TraderProResult struct {
	Bundle     *models.MarketBundle `json:"bundle"`
	Annotation models.Annotation    `json:"annotation"`
	Source     string               `json:"source"`
}

// TraderPro fetches candles, news and flows concurrently. A failed kind
// degrades to empty without cancelling its siblings; the request fails only
// when every kind came back empty. Mode "lite" skips news and flows.
func (s *MarketDataService) TraderPro(ctx context.Context, req *models.TraderProRequest) (*TraderProResult, error) {
	symbol := normalizeSymbol(req.Symbol)
	start := time.Now()

	bundle := &models.MarketBundle{Symbol: symbol, Interval: req.Interval}
	lite := req.Mode == "lite"

	type kindResult struct {
		kind     string
		source   string
		attempts []models.VendorAttempt
		err      error
	}
	n := 1
	if !lite {
		n = 3
	}
	ch := make(chan kindResult, n)
	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		candles, source, attempts, err := runChain(ctx, s.seq, "candles",
			candleSteps(s.candleChain, symbol, domrepo.NormalizeInterval(req.Interval), req.Horizon), emptySlice)
		if err == nil {
			mu.Lock()
			bundle.Candles = candles
			bundle.CandleSource = source
			mu.Unlock()
		}
		ch <- kindResult{"candles", source, attempts, err}
	}()
	if !lite {
		wg.Add(1)
		go func() {
			defer wg.Done()
			articles, source, attempts, err := runChain(ctx, s.seq, "news",
				newsSteps(s.newsChain, symbol, 20), emptySlice)
			if err == nil {
				mu.Lock()
				bundle.News = dedupeNews(articles)
				bundle.NewsSource = source
				mu.Unlock()
			}
			ch <- kindResult{"news", source, attempts, err}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			flows, source, attempts, err := runChain(ctx, s.seq, "flows",
				flowSteps(s.flowChain, symbol, 25), emptySlice)
			if err == nil {
				mu.Lock()
				bundle.Flows = flows
				bundle.FlowSource = source
				mu.Unlock()
			}
			ch <- kindResult{"flows", source, attempts, err}
		}()
	}
	go func() { wg.Wait(); close(ch) }()

	var allAttempts []models.VendorAttempt
	for r := range ch {
		allAttempts = append(allAttempts, r.attempts...)
		if r.err != nil {
			s.logger.Warn("bundle kind degraded to empty",
				logger.String("kind", r.kind),
				logger.String("symbol", symbol),
				logger.Error(r.err))
		}
	}

	if bundle.Empty() {
		s.record(ctx, "trader-pro", symbol, "", allAttempts, time.Since(start), domsvc.ErrNoData)
		return nil, domsvc.ErrNoData
	}

	if s.live != nil {
		if q := s.live.Latest(symbol); q != nil {
			bundle.Quote = q
		}
	}

	annotation := s.annotator.Annotate(ctx, bundle)
	source := bundleSource(bundle)
	s.record(ctx, "trader-pro", symbol, source, allAttempts, time.Since(start), nil)

	return &TraderProResult{
		Bundle:     bundle,
		Annotation: annotation,
		Source:     source,
	}, nil
}

// record sends the audit event. The sink is fire-and-forget; nothing here
// can fail the request.
func (s *MarketDataService) record(ctx context.Context, endpoint, symbol, source string, attempts []models.VendorAttempt, latency time.Duration, err error) {
	e := models.AuditEvent{
		Endpoint: endpoint,
		Symbol:   symbol,
		Source:   source,
		Attempts: attempts,
		Latency:  latency,
		At:       time.Now().UTC(),
	}
	if err != nil {
		e.Err = err.Error()
		s.audit.RecordFailure(ctx, e)
		return
	}
	s.audit.RecordSuccess(ctx, e)
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// dedupeNews drops repeated headlines, keeping the first occurrence.
// Headlines are compared case-insensitively after trimming.
func dedupeNews(articles []models.NewsArticle) []models.NewsArticle {
	seen := make(map[string]struct{}, len(articles))
	out := make([]models.NewsArticle, 0, len(articles))
	for _, a := range articles {
		key := strings.ToLower(strings.TrimSpace(a.Headline))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

// bundleSource is the candle vendor when candles are present; otherwise the
// first kind that produced data. Per-kind sources stay on the bundle itself.
func bundleSource(b *models.MarketBundle) string {
	for _, s := range []string{b.CandleSource, b.NewsSource, b.FlowSource} {
		if s != "" {
			return s
		}
	}
	return ""
}
