package vendors

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	domrepo "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/repository"
	xhttp "github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/http"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/util"
)

const finnhubDefaultURL = "https://finnhub.io"

// Finnhub serves as the secondary candle vendor, the news fallback, the
// ownership fallback, and the REST quote snapshot.
type Finnhub struct {
	base
}

// NewFinnhub creates a Finnhub REST client.
func NewFinnhub(apiKey, baseURL string, timeout time.Duration) *Finnhub {
	if baseURL == "" {
		baseURL = finnhubDefaultURL
	}
	return &Finnhub{base: newBase("finnhub", apiKey, baseURL, timeout)}
}

// finnhubCandleResponse is the vendor-native parallel-array shape.
// Timestamps arrive in seconds.
type finnhubCandleResponse struct {
	C      []float64 `json:"c"`
	H      []float64 `json:"h"`
	L      []float64 `json:"l"`
	O      []float64 `json:"o"`
	T      []int64   `json:"t"` // sec
	V      []float64 `json:"v"`
	Status string    `json:"s"` // "ok" or "no_data"
}

func finnhubResolution(iv domrepo.Interval) string {
	switch iv {
	case domrepo.IV1m:
		return "1"
	case domrepo.IV5m:
		return "5"
	case domrepo.IV15m:
		return "15"
	case domrepo.IV30m:
		return "30"
	case domrepo.IV1h, domrepo.IV4h:
		// Finnhub has no 4h resolution; callers get hourly bars.
		return "60"
	case domrepo.IV1d:
		return "D"
	default:
		return "60"
	}
}

// Candles fetches stock candles and normalizes the parallel arrays.
func (f *Finnhub) Candles(ctx context.Context, symbol string, interval domrepo.Interval, horizon string) ([]models.Candle, error) {
	to := time.Now().UTC()
	from := to.Add(-util.HorizonDuration(horizon))

	var raw finnhubCandleResponse
	err := f.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    f.url("/api/v1/stock/candle"),
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"resolution": {finnhubResolution(interval)},
			"from":       {strconv.FormatInt(from.Unix(), 10)},
			"to":         {strconv.FormatInt(to.Unix(), 10)},
			"token":      {f.apiKey},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("finnhub candles: %w", err)
	}

	return normalizeFinnhubCandles(&raw)
}

// normalizeFinnhubCandles converts parallel arrays to canonical candles.
func normalizeFinnhubCandles(raw *finnhubCandleResponse) ([]models.Candle, error) {
	if raw.Status == "no_data" {
		return []models.Candle{}, nil
	}
	if raw.Status != "ok" {
		return nil, errMalformed("finnhub", "status "+raw.Status)
	}
	n := len(raw.T)
	if len(raw.O) != n || len(raw.H) != n || len(raw.L) != n || len(raw.C) != n {
		return nil, errMalformed("finnhub", "parallel array length mismatch")
	}
	hasVol := len(raw.V) == n

	out := make([]models.Candle, 0, n)
	for i := 0; i < n; i++ {
		c := models.Candle{
			Time:  time.Unix(raw.T[i], 0).UTC(),
			Open:  raw.O[i],
			High:  raw.H[i],
			Low:   raw.L[i],
			Close: raw.C[i],
		}
		if hasVol {
			v := raw.V[i]
			c.Volume = &v
		}
		out = append(out, c)
	}
	return out, nil
}

type finnhubNewsItem struct {
	Datetime int64  `json:"datetime"` // sec
	Headline string `json:"headline"`
	Source   string `json:"source"`
	URL      string `json:"url"`
}

// News fetches company news. Finnhub carries no sentiment score.
func (f *Finnhub) News(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	to := time.Now().UTC()
	from := to.Add(-7 * 24 * time.Hour)

	var raw []finnhubNewsItem
	err := f.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    f.url("/api/v1/company-news"),
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"from":   {from.Format("2006-01-02")},
			"to":     {to.Format("2006-01-02")},
			"token":  {f.apiKey},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("finnhub news: %w", err)
	}

	out := make([]models.NewsArticle, 0, len(raw))
	for _, item := range raw {
		if item.Headline == "" {
			continue
		}
		out = append(out, models.NewsArticle{
			Headline:    item.Headline,
			Source:      item.Source,
			URL:         item.URL,
			PublishedAt: time.Unix(item.Datetime, 0).UTC(),
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type finnhubOwnershipResponse struct {
	Ownership []struct {
		Name       string  `json:"name"`
		Share      float64 `json:"share"`
		Change     float64 `json:"change"`
		FilingDate string  `json:"filingDate"`
	} `json:"ownership"`
}

// Flows fetches institutional ownership as the fallback flow source.
func (f *Finnhub) Flows(ctx context.Context, symbol string, limit int) ([]models.InstitutionalFlow, error) {
	var raw finnhubOwnershipResponse
	err := f.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    f.url("/api/v1/stock/ownership"),
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"limit":  {strconv.Itoa(limit)},
			"token":  {f.apiKey},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("finnhub ownership: %w", err)
	}

	out := make([]models.InstitutionalFlow, 0, len(raw.Ownership))
	for _, o := range raw.Ownership {
		reported, _ := time.Parse("2006-01-02", o.FilingDate)
		out = append(out, models.InstitutionalFlow{
			Institution:  o.Name,
			Shares:       o.Share,
			ChangeShares: o.Change,
			Side:         flowSide(o.Change),
			ReportedAt:   reported,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type finnhubQuoteResponse struct {
	Current   float64 `json:"c"`
	Timestamp int64   `json:"t"` // sec
}

// Quote fetches a spot price snapshot, the REST fallback behind the live stream.
func (f *Finnhub) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	var raw finnhubQuoteResponse
	err := f.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    f.url("/api/v1/quote"),
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"token":  {f.apiKey},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("finnhub quote: %w", err)
	}
	if raw.Current <= 0 {
		return nil, errMalformed("finnhub", "quote without price")
	}
	return &models.Quote{
		Symbol:    symbol,
		Price:     raw.Current,
		Timestamp: time.Unix(raw.Timestamp, 0).UTC(),
	}, nil
}

func flowSide(change float64) string {
	switch {
	case change > 0:
		return "buy"
	case change < 0:
		return "sell"
	default:
		return "hold"
	}
}
