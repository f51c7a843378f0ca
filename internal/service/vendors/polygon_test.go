package vendors

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	domrepo "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/repository"
	domsvc "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/service"
)

const polygonAggsBody = `{
  "ticker": "AAPL",
  "status": "OK",
  "resultsCount": 2,
  "results": [
    {"t": 1757314800000, "o": 230.1, "h": 232.5, "l": 229.8, "c": 231.9, "v": 1200000},
    {"t": 1757318400000, "o": 231.9, "h": 233.0, "l": 231.5, "c": 232.4, "v": 900000}
  ]
}`

func TestPolygonCandlesNormalization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apiKey") != "pk-test" {
			t.Errorf("missing apiKey query param")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(polygonAggsBody))
	}))
	defer srv.Close()

	p := NewPolygon("pk-test", srv.URL, 2*time.Second)
	candles, err := p.Candles(context.Background(), "AAPL", domrepo.IV1h, "1mo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	// Millisecond timestamp converted to seconds-precision UTC time.
	want := time.UnixMilli(1757314800000).UTC()
	if !candles[0].Time.Equal(want) {
		t.Fatalf("time = %v, want %v", candles[0].Time, want)
	}
	if candles[0].Close != 231.9 {
		t.Fatalf("close = %v", candles[0].Close)
	}
	if candles[0].Volume == nil || *candles[0].Volume != 1200000 {
		t.Fatalf("volume = %v", candles[0].Volume)
	}
}

func TestPolygonEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ticker":"ZZZZ","status":"OK","resultsCount":0,"results":[]}`))
	}))
	defer srv.Close()

	p := NewPolygon("pk-test", srv.URL, 2*time.Second)
	candles, err := p.Candles(context.Background(), "ZZZZ", domrepo.IV1h, "1mo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 0 {
		t.Fatalf("expected no candles, got %d", len(candles))
	}
}

func TestPolygonMalformedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ERROR","results":[]}`))
	}))
	defer srv.Close()

	p := NewPolygon("pk-test", srv.URL, 2*time.Second)
	_, err := p.Candles(context.Background(), "AAPL", domrepo.IV1h, "1mo")
	if err == nil {
		t.Fatalf("expected error for ERROR status")
	}
	var verr *domsvc.VendorError
	if !errors.As(err, &verr) || verr.Vendor != "polygon" {
		t.Fatalf("expected VendorError naming polygon, got %v", err)
	}
}

func TestPolygonNormalizeIdempotent(t *testing.T) {
	v := 100.0
	raw := &polygonAggsResponse{Status: "OK"}
	raw.Results = append(raw.Results, struct {
		T int64    `json:"t"`
		O float64  `json:"o"`
		H float64  `json:"h"`
		L float64  `json:"l"`
		C float64  `json:"c"`
		V *float64 `json:"v"`
	}{T: 1757314800000, O: 1, H: 2, L: 0.5, C: 1.5, V: &v})

	first, err := normalizePolygonAggs(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := normalizePolygonAggs(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalization is not idempotent: %v vs %v", first, second)
	}
}
