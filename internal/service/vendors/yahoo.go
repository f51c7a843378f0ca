package vendors

import (
	"context"
	"fmt"
	"time"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	domrepo "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/repository"
	xhttp "github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/http"
)

const yahooDefaultURL = "https://query1.finance.yahoo.com"

// Yahoo is the tertiary, key-free candle fallback.
type Yahoo struct {
	base
}

// NewYahoo creates a Yahoo chart client. No API key required.
func NewYahoo(baseURL string, timeout time.Duration) *Yahoo {
	if baseURL == "" {
		baseURL = yahooDefaultURL
	}
	return &Yahoo{base: newBase("yahoo", "", baseURL, timeout)}
}

// yahooChartResponse is the deeply nested vendor-native shape. Bars with
// null fields appear as nil pointers.
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"` // sec
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func yahooInterval(iv domrepo.Interval) string {
	switch iv {
	case domrepo.IV1m:
		return "1m"
	case domrepo.IV5m:
		return "5m"
	case domrepo.IV15m:
		return "15m"
	case domrepo.IV30m:
		return "30m"
	case domrepo.IV1h, domrepo.IV4h:
		return "1h"
	case domrepo.IV1d:
		return "1d"
	default:
		return "1h"
	}
}

// Candles fetches chart bars and normalizes the nested arrays.
func (y *Yahoo) Candles(ctx context.Context, symbol string, interval domrepo.Interval, horizon string) ([]models.Candle, error) {
	var raw yahooChartResponse
	err := y.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    y.url("/v8/finance/chart/" + symbol),
		QueryParams: map[string][]string{
			"interval": {yahooInterval(interval)},
			"range":    {horizon},
		},
		Headers: map[string]string{
			"User-Agent": "Mozilla/5.0",
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart: %w", err)
	}

	return normalizeYahooChart(&raw)
}

// normalizeYahooChart converts the nested chart shape to canonical candles.
// Bars missing any OHLC value are skipped; missing volume alone keeps the
// bar with a nil volume.
func normalizeYahooChart(raw *yahooChartResponse) ([]models.Candle, error) {
	if raw.Chart.Error != nil {
		return nil, errMalformed("yahoo", raw.Chart.Error.Code)
	}
	if len(raw.Chart.Result) == 0 {
		return []models.Candle{}, nil
	}
	res := raw.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return []models.Candle{}, nil
	}
	q := res.Indicators.Quote[0]
	n := len(res.Timestamp)
	if len(q.Open) != n || len(q.High) != n || len(q.Low) != n || len(q.Close) != n {
		return nil, errMalformed("yahoo", "quote array length mismatch")
	}

	out := make([]models.Candle, 0, n)
	for i := 0; i < n; i++ {
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil {
			continue
		}
		c := models.Candle{
			Time:  time.Unix(res.Timestamp[i], 0).UTC(),
			Open:  *q.Open[i],
			High:  *q.High[i],
			Low:   *q.Low[i],
			Close: *q.Close[i],
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			c.Volume = q.Volume[i]
		}
		out = append(out, c)
	}
	return out, nil
}
