// Package api wires the market-data operations onto the HTTP surface.
package api

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	domrepo "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/repository"
	domsvc "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/service"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/service/cache"
	svcmetrics "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/service/metrics"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/service/ratelimit"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/usecase"
	xhttp "github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/http"
	xlogger "github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/logger"
)

// StreamStatus reports live-feed connectivity for the health endpoint.
type StreamStatus interface {
	IsConnected() bool
}

// CacheTTLs holds per-kind cache lifetimes. Zero values fall back to a
// minute, which suits every kind except quotes.
type CacheTTLs struct {
	Chart time.Duration
	News  time.Duration
	Flows time.Duration
}

func (t CacheTTLs) forEndpoint(endpoint string) time.Duration {
	var d time.Duration
	switch endpoint {
	case "chart":
		d = t.Chart
	case "news":
		d = t.News
	case "flows", "institutional":
		d = t.Flows
	}
	if d <= 0 {
		d = time.Minute
	}
	return d
}

// MarketHandler implements the Echo handlers for every market-data endpoint.
type MarketHandler struct {
	logger  *xlogger.Logger
	svc     *usecase.MarketDataService
	cache   cache.BytesCache
	ttls    CacheTTLs
	limiter *ratelimit.Limiter
	audit   domrepo.Audit
	stream  StreamStatus

	rlCapacity float64
	rlRefill   float64
}

type MarketHandlerOption func(*MarketHandler)

// WithRateLimit overrides the per-IP token bucket parameters.
func WithRateLimit(capacity, refillPerSec float64) MarketHandlerOption {
	return func(h *MarketHandler) {
		h.rlCapacity = capacity
		h.rlRefill = refillPerSec
	}
}

// WithStreamStatus attaches the live feed for /healthz reporting.
func WithStreamStatus(s StreamStatus) MarketHandlerOption {
	return func(h *MarketHandler) { h.stream = s }
}

func NewMarketHandler(log *xlogger.Logger, svc *usecase.MarketDataService, c cache.BytesCache, ttls CacheTTLs, audit domrepo.Audit, opts ...MarketHandlerOption) *MarketHandler {
	h := &MarketHandler{
		logger:     log,
		svc:        svc,
		cache:      c,
		ttls:       ttls,
		limiter:    ratelimit.New(),
		audit:      audit,
		rlCapacity: 10,
		rlRefill:   5,
	}
	for _, opt := range opts {
		opt(h)
	}
	svcmetrics.Register()
	return h
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/chart", h.Chart)
	g.POST("/news", h.News)
	g.POST("/flows", h.Flows)
	g.POST("/institutional", h.Institutional)
	g.POST("/trader-pro", h.TraderPro)
	g.POST("/quote", h.Quote)
	e.GET("/healthz", h.Healthz)
}

// stamped adds the response timestamp next to the embedded result fields.
type stamped struct {
	Result    interface{} `json:"-"`
	Timestamp string      `json:"timestamp"`
}

// MarshalJSON flattens the result's fields and the timestamp into one object.
func (s stamped) MarshalJSON() ([]byte, error) {
	inner, err := json.Marshal(s.Result)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(inner, &m); err != nil {
		return nil, err
	}
	ts, _ := json.Marshal(s.Timestamp)
	m["timestamp"] = ts
	return json.Marshal(m)
}

func stamp(result interface{}) stamped {
	return stamped{Result: result, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// allow applies the per-IP token bucket for one endpoint.
func (h *MarketHandler) allow(c echo.Context, endpoint string) bool {
	return h.limiter.Allow(endpoint+":"+c.RealIP(), h.rlCapacity, h.rlRefill)
}

// fromCache writes a cached payload if one exists.
func (h *MarketHandler) fromCache(c echo.Context, key, endpoint string) bool {
	if h.cache == nil {
		return false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil || !ok {
		return false
	}
	svcmetrics.CacheHits.WithLabelValues(endpoint).Inc()
	_ = xhttp.SuccessResponse(c, json.RawMessage(b))
	return true
}

func (h *MarketHandler) store(key, endpoint string, payload interface{}) {
	if h.cache == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = h.cache.SetBytes(key, b, h.ttls.forEndpoint(endpoint))
}

// fail maps domain errors onto the HTTP error envelope and records metrics.
func (h *MarketHandler) fail(c echo.Context, endpoint string, err error) error {
	svcmetrics.EndpointErrors.WithLabelValues(endpoint).Inc()
	h.logger.Error(endpoint+" failed", xlogger.Error(err))

	switch {
	case errors.Is(err, domsvc.ErrNoData):
		return xhttp.AppErrorResponse(c, xhttp.NoDataError(domsvc.ErrNoData.Error()))
	case errors.Is(err, domsvc.ErrNotConfigured):
		return xhttp.AppErrorResponse(c, xhttp.NotConfiguredError(domsvc.ErrNotConfigured.Error()))
	default:
		return xhttp.AppErrorResponse(c, xhttp.InternalError("request failed"))
	}
}

func (h *MarketHandler) observe(endpoint string, start time.Time) {
	svcmetrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (h *MarketHandler) Chart(c echo.Context) error {
	start := time.Now()
	defer h.observe("chart", start)

	req := &models.ChartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, "chart") {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests"))
	}

	key := cache.Key("chart", req.Symbol, req.Interval, req.Horizon)
	if h.fromCache(c, key, "chart") {
		return nil
	}

	res, err := h.svc.Chart(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "chart", err)
	}
	payload := stamp(res)
	h.store(key, "chart", payload)
	return xhttp.SuccessResponse(c, payload)
}

func (h *MarketHandler) News(c echo.Context) error {
	start := time.Now()
	defer h.observe("news", start)

	req := &models.NewsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, "news") {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests"))
	}

	key := cache.Key("news", req.Symbol)
	if h.fromCache(c, key, "news") {
		return nil
	}

	res, err := h.svc.News(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "news", err)
	}
	payload := stamp(res)
	h.store(key, "news", payload)
	return xhttp.SuccessResponse(c, payload)
}

func (h *MarketHandler) Flows(c echo.Context) error {
	start := time.Now()
	defer h.observe("flows", start)

	req := &models.FlowsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, "flows") {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests"))
	}

	key := cache.Key("flows", req.Symbol)
	if h.fromCache(c, key, "flows") {
		return nil
	}

	res, err := h.svc.Flows(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "flows", err)
	}
	payload := stamp(res)
	h.store(key, "flows", payload)
	return xhttp.SuccessResponse(c, payload)
}

func (h *MarketHandler) Institutional(c echo.Context) error {
	start := time.Now()
	defer h.observe("institutional", start)

	req := &models.InstitutionalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, "institutional") {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests"))
	}

	key := cache.Key("institutional", req.Symbol)
	if h.fromCache(c, key, "institutional") {
		return nil
	}

	res, err := h.svc.Institutional(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "institutional", err)
	}
	payload := stamp(res)
	h.store(key, "institutional", payload)
	return xhttp.SuccessResponse(c, payload)
}

func (h *MarketHandler) TraderPro(c echo.Context) error {
	start := time.Now()
	defer h.observe("trader-pro", start)

	req := &models.TraderProRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, "trader-pro") {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests"))
	}

	// Trader-pro carries a fresh annotation per call and is never cached.
	res, err := h.svc.TraderPro(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "trader-pro", err)
	}
	return xhttp.SuccessResponse(c, stamp(res))
}

func (h *MarketHandler) Quote(c echo.Context) error {
	start := time.Now()
	defer h.observe("quote", start)

	req := &models.QuoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, "quote") {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests"))
	}

	res, err := h.svc.Quote(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "quote", err)
	}
	return xhttp.SuccessResponse(c, stamp(res))
}

// Healthz reports audit backend health and stream connectivity. The server
// is considered up as long as it can answer; degraded collaborators are
// reported, not fatal.
func (h *MarketHandler) Healthz(c echo.Context) error {
	status := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if h.audit != nil {
		if err := h.audit.Health(c.Request().Context()); err != nil {
			status["audit"] = "degraded"
		} else {
			status["audit"] = "ok"
		}
	}
	if h.stream != nil {
		status["stream_connected"] = h.stream.IsConnected()
	}
	return xhttp.SuccessResponse(c, status)
}
