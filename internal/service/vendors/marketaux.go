package vendors

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	xhttp "github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/http"
)

const marketauxDefaultURL = "https://api.marketaux.com"

// Marketaux is the primary news vendor; it carries per-entity sentiment.
type Marketaux struct {
	base
}

// NewMarketaux creates a Marketaux client.
func NewMarketaux(apiKey, baseURL string, timeout time.Duration) *Marketaux {
	if baseURL == "" {
		baseURL = marketauxDefaultURL
	}
	return &Marketaux{base: newBase("marketaux", apiKey, baseURL, timeout)}
}

type marketauxResponse struct {
	Data []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Source      string `json:"source"`
		PublishedAt string `json:"published_at"`
		Entities    []struct {
			Symbol         string   `json:"symbol"`
			SentimentScore *float64 `json:"sentiment_score"`
		} `json:"entities"`
	} `json:"data"`
}

// News fetches articles mentioning the symbol.
func (m *Marketaux) News(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	var raw marketauxResponse
	err := m.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    m.url("/v1/news/all"),
		QueryParams: map[string][]string{
			"symbols":   {symbol},
			"limit":     {strconv.Itoa(limit)},
			"language":  {"en"},
			"api_token": {m.apiKey},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("marketaux news: %w", err)
	}

	return normalizeMarketauxNews(&raw, symbol, limit)
}

// normalizeMarketauxNews converts articles, attaching the sentiment score of
// the matching entity when present.
func normalizeMarketauxNews(raw *marketauxResponse, symbol string, limit int) ([]models.NewsArticle, error) {
	out := make([]models.NewsArticle, 0, len(raw.Data))
	for _, item := range raw.Data {
		if item.Title == "" {
			continue
		}
		published, err := time.Parse(time.RFC3339, item.PublishedAt)
		if err != nil {
			// Some feeds drop the zone suffix.
			published, err = time.Parse("2006-01-02T15:04:05", item.PublishedAt)
			if err != nil {
				return nil, errMalformed("marketaux", "bad published_at "+item.PublishedAt)
			}
		}

		article := models.NewsArticle{
			Headline:    item.Title,
			Source:      item.Source,
			URL:         item.URL,
			PublishedAt: published.UTC(),
		}
		for _, e := range item.Entities {
			if e.Symbol == symbol && e.SentimentScore != nil {
				s := clampSentiment(*e.SentimentScore)
				article.Sentiment = &s
				break
			}
		}
		out = append(out, article)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
