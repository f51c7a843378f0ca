package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	domrepo "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/repository"
	domsvc "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/service"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/repository"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/service/cache"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/service/llm"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/usecase"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordVendorAttempt(vendor, kind, result string) {}
func (nopMetrics) RecordError(kind string)                         {}
func (nopMetrics) RecordLastPrice(symbol string, price float64)    {}
func (nopMetrics) RecordLatency(op string, seconds float64)        {}

type stubCandleVendor struct {
	name    string
	candles []models.Candle
	err     error
}

func (s *stubCandleVendor) Name() string { return s.name }
func (s *stubCandleVendor) Candles(ctx context.Context, symbol string, interval domrepo.Interval, horizon string) ([]models.Candle, error) {
	return s.candles, s.err
}

type stubAnnotator struct {
	annotation models.Annotation
}

func (s *stubAnnotator) Annotate(ctx context.Context, b *models.MarketBundle) models.Annotation {
	return s.annotation
}

func nCandles(n int) []models.Candle {
	out := make([]models.Candle, n)
	base := time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = models.Candle{Time: base.Add(time.Duration(i) * time.Hour), Open: 1, High: 2, Low: 0.5, Close: 1.5}
	}
	return out
}

type handlerConfig struct {
	chains    usecase.Chains
	annotator domsvc.Annotator
	audit     domrepo.Audit
	cache     cache.BytesCache
	rlCap     float64
}

func newTestHandler(cfg handlerConfig) *echo.Echo {
	log := logger.NewNop()
	if cfg.annotator == nil {
		cfg.annotator = &stubAnnotator{annotation: models.FallbackAnnotation()}
	}
	if cfg.audit == nil {
		cfg.audit = repository.NopAudit{}
	}
	if cfg.rlCap == 0 {
		cfg.rlCap = 1000
	}
	seq := usecase.NewSequencer(time.Second, nopMetrics{}, log)
	svc := usecase.NewMarketDataService(cfg.chains, seq, cfg.annotator, cfg.audit, nil, log)
	h := NewMarketHandler(log, svc, cfg.cache, CacheTTLs{}, cfg.audit, WithRateLimit(cfg.rlCap, 0))

	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func post(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func dataField(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Status int                    `json:"status"`
		Data   map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad envelope: %v\n%s", err, rec.Body.String())
	}
	return envelope.Data
}

func TestChartPrimarySuccess(t *testing.T) {
	e := newTestHandler(handlerConfig{chains: usecase.Chains{
		Candles: []domsvc.CandleVendor{
			&stubCandleVendor{name: "polygon", candles: nCandles(3)},
			&stubCandleVendor{name: "finnhub", candles: nCandles(5)},
		},
	}})

	rec := post(e, "/api/chart", `{"symbol":"AAPL"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	data := dataField(t, rec)
	if data["source"] != "polygon" {
		t.Fatalf("source = %v", data["source"])
	}
	if candles := data["candles"].([]interface{}); len(candles) != 3 {
		t.Fatalf("expected the primary's 3 candles, got %d", len(candles))
	}
	if _, ok := data["timestamp"].(string); !ok {
		t.Fatalf("missing timestamp in response")
	}
}

func TestChartFailoverToSecondary(t *testing.T) {
	e := newTestHandler(handlerConfig{chains: usecase.Chains{
		Candles: []domsvc.CandleVendor{
			&stubCandleVendor{name: "polygon", err: errors.New("503")},
			&stubCandleVendor{name: "finnhub", candles: nCandles(5)},
		},
	}})

	rec := post(e, "/api/chart", `{"symbol":"AAPL"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := dataField(t, rec)
	if data["source"] != "finnhub" {
		t.Fatalf("source = %v", data["source"])
	}
	if candles := data["candles"].([]interface{}); len(candles) != 5 {
		t.Fatalf("expected 5 candles from the fallback, got %d", len(candles))
	}
}

func TestChartAllVendorsEmptyFailsClosed(t *testing.T) {
	e := newTestHandler(handlerConfig{chains: usecase.Chains{
		Candles: []domsvc.CandleVendor{
			&stubCandleVendor{name: "polygon", candles: nil},
			&stubCandleVendor{name: "finnhub", candles: []models.Candle{}},
		},
	}})

	rec := post(e, "/api/chart", `{"symbol":"AAPL"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad error envelope: %v", err)
	}
	if envelope.Error == "" {
		t.Fatalf("error envelope missing error field: %s", rec.Body.String())
	}
	// Fail closed: no candles anywhere in the body.
	if strings.Contains(rec.Body.String(), `"candles"`) {
		t.Fatalf("placeholder data leaked into a failed response")
	}
}

func TestChartNoVendorConfigured(t *testing.T) {
	e := newTestHandler(handlerConfig{})

	rec := post(e, "/api/chart", `{"symbol":"AAPL"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no vendor configured") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestChartValidation(t *testing.T) {
	e := newTestHandler(handlerConfig{chains: usecase.Chains{
		Candles: []domsvc.CandleVendor{&stubCandleVendor{name: "polygon", candles: nCandles(3)}},
	}})

	rec := post(e, "/api/chart", `{"interval":"1h"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing symbol should 400, got %d", rec.Code)
	}

	rec = post(e, "/api/chart", `{"symbol":"AAPL","interval":"2w"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad interval should 400, got %d", rec.Code)
	}
}

func TestChartRateLimited(t *testing.T) {
	e := newTestHandler(handlerConfig{
		chains: usecase.Chains{
			Candles: []domsvc.CandleVendor{&stubCandleVendor{name: "polygon", candles: nCandles(3)}},
		},
		rlCap: 2,
	})

	post(e, "/api/chart", `{"symbol":"AAPL"}`)
	post(e, "/api/chart", `{"symbol":"AAPL"}`)
	rec := post(e, "/api/chart", `{"symbol":"MSFT"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

func TestChartCacheHit(t *testing.T) {
	vendor := &stubCandleVendor{name: "polygon", candles: nCandles(3)}
	e := newTestHandler(handlerConfig{
		chains: usecase.Chains{Candles: []domsvc.CandleVendor{vendor}},
		cache:  cache.NewTTLCache(),
	})

	first := post(e, "/api/chart", `{"symbol":"AAPL"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first request failed: %d", first.Code)
	}
	// Vendor breaks; the cached payload must still serve.
	vendor.err = errors.New("down")
	vendor.candles = nil

	second := post(e, "/api/chart", `{"symbol":"AAPL"}`)
	if second.Code != http.StatusOK {
		t.Fatalf("cached request failed: %d", second.Code)
	}
	data := dataField(t, second)
	if data["source"] != "polygon" {
		t.Fatalf("cached source = %v", data["source"])
	}
}

func TestTraderProUnparseableModelReply(t *testing.T) {
	// The model returns prose instead of JSON. The request still succeeds
	// with the neutral fallback annotation.
	modelSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Looks volatile, who knows."}}]}`))
	}))
	defer modelSrv.Close()

	annotator := llm.NewOpenAIAnnotator("sk-test", llm.Options{
		BaseURL: modelSrv.URL,
		Model:   "test-model",
		Timeout: 2 * time.Second,
	}, logger.NewNop())

	e := newTestHandler(handlerConfig{
		chains: usecase.Chains{
			Candles: []domsvc.CandleVendor{&stubCandleVendor{name: "polygon", candles: nCandles(3)}},
		},
		annotator: annotator,
	})

	rec := post(e, "/api/trader-pro", `{"symbol":"AAPL","mode":"lite"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite unparseable model reply", rec.Code)
	}
	data := dataField(t, rec)
	ann := data["annotation"].(map[string]interface{})
	if ann["trend"] != "neutral" {
		t.Fatalf("trend = %v, want neutral fallback", ann["trend"])
	}
	if conf := ann["confidence"].(float64); conf > 0.5 {
		t.Fatalf("fallback confidence = %v, want <= 0.5", conf)
	}
}

type explodingAudit struct{}

func (explodingAudit) RecordSuccess(ctx context.Context, e models.AuditEvent) {}
func (explodingAudit) RecordFailure(ctx context.Context, e models.AuditEvent) {}
func (explodingAudit) Health(ctx context.Context) error                       { return errors.New("sink down") }
func (explodingAudit) Close() error                                           { return errors.New("sink down") }

func TestAuditFailureDoesNotChangeResponse(t *testing.T) {
	e := newTestHandler(handlerConfig{
		chains: usecase.Chains{
			Candles: []domsvc.CandleVendor{&stubCandleVendor{name: "polygon", candles: nCandles(3)}},
		},
		audit: explodingAudit{},
	})

	rec := post(e, "/api/chart", `{"symbol":"AAPL"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit trouble leaked into the response: %d", rec.Code)
	}
}

func TestHealthzReportsDegradedAudit(t *testing.T) {
	e := newTestHandler(handlerConfig{
		chains: usecase.Chains{
			Candles: []domsvc.CandleVendor{&stubCandleVendor{name: "polygon", candles: nCandles(3)}},
		},
		audit: explodingAudit{},
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	data := dataField(t, rec)
	if data["audit"] != "degraded" {
		t.Fatalf("audit health = %v", data["audit"])
	}
}
