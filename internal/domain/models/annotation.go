package models

// Trend values the annotator may emit.
const (
	TrendBullish = "bullish"
	TrendBearish = "bearish"
	TrendNeutral = "neutral"
)

// Annotation is the structured interpretation produced by the language
// model over a normalized bundle. Confidence is always within [0, 1].
type Annotation struct {
	Trend      string   `json:"trend"`
	Confidence float64  `json:"confidence"`
	Signals    []string `json:"signals,omitempty"`
	Notes      []string `json:"notes,omitempty"`
	Model      string   `json:"model,omitempty"`
}

// FallbackAnnotation is returned whenever the model call fails or its reply
// cannot be parsed. It distinguishes "we could not analyze this" from a real
// analysis without turning the request into an error.
func FallbackAnnotation() Annotation {
	return Annotation{
		Trend:      TrendNeutral,
		Confidence: 0.3,
		Notes:      []string{"insufficient data for analysis"},
	}
}

// ClampConfidence bounds a raw model confidence into [0, 1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// MarketBundle is the combined multi-kind payload the trader-pro endpoint
// assembles before annotation. Any kind may be empty when its chain failed;
// per-kind sources are kept alongside the data.
type MarketBundle struct {
	Symbol        string              `json:"symbol"`
	Interval      string              `json:"interval"`
	Candles       []Candle            `json:"candles"`
	News          []NewsArticle       `json:"news"`
	Flows         []InstitutionalFlow `json:"flows"`
	Quote         *Quote              `json:"quote,omitempty"`
	CandleSource  string              `json:"candle_source,omitempty"`
	NewsSource    string              `json:"news_source,omitempty"`
	FlowSource    string              `json:"flow_source,omitempty"`
}

// Empty reports whether no data kind produced anything at all.
func (b *MarketBundle) Empty() bool {
	return len(b.Candles) == 0 && len(b.News) == 0 && len(b.Flows) == 0
}
