package models

import "time"

// Candle is the canonical OHLCV record every price vendor normalizes into.
// Volume is a pointer because some vendors omit it entirely.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume *float64  `json:"volume"`
}

// NewsArticle is the canonical news record. Sentiment is normalized to
// [-1, 1] where the vendor provides a score, nil otherwise.
type NewsArticle struct {
	Headline    string    `json:"headline"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Sentiment   *float64  `json:"sentiment,omitempty"`
}

// InstitutionalFlow is one institution's reported position change.
type InstitutionalFlow struct {
	Institution  string    `json:"institution"`
	Shares       float64   `json:"shares"`
	ChangeShares float64   `json:"change_shares"`
	Value        float64   `json:"value"`
	Side         string    `json:"side"` // "buy", "sell", "hold"
	ReportedAt   time.Time `json:"reported_at"`
}

// Quote is the latest known price for a symbol. Live indicates the value
// came from the streaming feed rather than a REST snapshot.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Live      bool      `json:"live"`
}

// VendorAttempt records one step of the failover chain. The ordered trail
// feeds the response "source" field and the audit log.
type VendorAttempt struct {
	Vendor  string        `json:"vendor"`
	OK      bool          `json:"ok"`
	Err     string        `json:"error,omitempty"`
	Latency time.Duration `json:"-"`
}

// AuditEvent is the fire-and-forget record written after every request.
type AuditEvent struct {
	Endpoint string
	Symbol   string
	Source   string
	Attempts []VendorAttempt
	Latency  time.Duration
	Err      string
	At       time.Time
}
