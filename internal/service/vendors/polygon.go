package vendors

import (
	"context"
	"fmt"
	"time"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	domrepo "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/repository"
	xhttp "github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/http"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/util"
)

const polygonDefaultURL = "https://api.polygon.io"

// Polygon is the primary candle vendor.
type Polygon struct {
	base
}

// NewPolygon creates a Polygon client. apiKey must be non-empty; callers
// exclude keyless vendors from failover chains before construction.
func NewPolygon(apiKey, baseURL string, timeout time.Duration) *Polygon {
	if baseURL == "" {
		baseURL = polygonDefaultURL
	}
	return &Polygon{base: newBase("polygon", apiKey, baseURL, timeout)}
}

// polygonAggsResponse is the vendor-native aggregates shape.
// Timestamps arrive in milliseconds.
type polygonAggsResponse struct {
	Ticker       string `json:"ticker"`
	ResultsCount int    `json:"resultsCount"`
	Results      []struct {
		T int64    `json:"t"` // ms
		O float64  `json:"o"`
		H float64  `json:"h"`
		L float64  `json:"l"`
		C float64  `json:"c"`
		V *float64 `json:"v"`
	} `json:"results"`
	Status string `json:"status"`
}

func polygonRange(iv domrepo.Interval) (multiplier int, span string) {
	switch iv {
	case domrepo.IV1m:
		return 1, "minute"
	case domrepo.IV5m:
		return 5, "minute"
	case domrepo.IV15m:
		return 15, "minute"
	case domrepo.IV30m:
		return 30, "minute"
	case domrepo.IV1h:
		return 1, "hour"
	case domrepo.IV4h:
		return 4, "hour"
	case domrepo.IV1d:
		return 1, "day"
	default:
		return 1, "hour"
	}
}

// Candles fetches aggregate bars and normalizes them.
func (p *Polygon) Candles(ctx context.Context, symbol string, interval domrepo.Interval, horizon string) ([]models.Candle, error) {
	to := time.Now().UTC()
	from := to.Add(-util.HorizonDuration(horizon))
	mult, span := polygonRange(interval)

	var raw polygonAggsResponse
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL: p.url(fmt.Sprintf("/v2/aggs/ticker/%s/range/%d/%s/%s/%s",
			symbol, mult, span, from.Format("2006-01-02"), to.Format("2006-01-02"))),
		QueryParams: map[string][]string{
			"adjusted": {"true"},
			"sort":     {"asc"},
			"limit":    {"5000"},
			"apiKey":   {p.apiKey},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("polygon aggs: %w", err)
	}

	return normalizePolygonAggs(&raw)
}

// normalizePolygonAggs converts vendor-native aggregates to canonical candles.
// Pure so the idempotence property holds trivially.
func normalizePolygonAggs(raw *polygonAggsResponse) ([]models.Candle, error) {
	if raw.Status != "OK" && raw.Status != "DELAYED" {
		return nil, errMalformed("polygon", "status "+raw.Status)
	}
	out := make([]models.Candle, 0, len(raw.Results))
	for _, r := range raw.Results {
		if r.T <= 0 {
			return nil, errMalformed("polygon", "non-positive bar timestamp")
		}
		out = append(out, models.Candle{
			Time:   time.UnixMilli(r.T).UTC(),
			Open:   r.O,
			High:   r.H,
			Low:    r.L,
			Close:  r.C,
			Volume: r.V,
		})
	}
	return out, nil
}
