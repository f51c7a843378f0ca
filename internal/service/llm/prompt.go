package llm

import (
	"fmt"
	"strings"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
)

const systemPrompt = `You are a market data analyst. Given candles, news and institutional flows for one symbol, reply with a single JSON object and nothing else:
{"trend":"bullish"|"bearish"|"neutral","confidence":0.0-1.0,"signals":["..."],"notes":["..."]}
Base every statement strictly on the data provided. Do not fabricate prices, events or numbers that are not in the input.`

// Bars and articles included in the prompt are capped so prompt size, and
// with it model behavior, stays stable regardless of how much a vendor
// returned.
const (
	promptMaxCandles = 30
	promptMaxNews    = 10
	promptMaxFlows   = 10
)

// BuildPrompt renders a bundle into a deterministic prompt. Identical
// bundles always produce identical prompts; no timestamps or randomness
// are introduced here.
func BuildPrompt(bundle *models.MarketBundle) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Symbol: %s\nInterval: %s\n", bundle.Symbol, bundle.Interval)

	candles := bundle.Candles
	if len(candles) > promptMaxCandles {
		candles = candles[len(candles)-promptMaxCandles:]
	}
	fmt.Fprintf(&b, "\nCandles (%d most recent of %d):\n", len(candles), len(bundle.Candles))
	for _, c := range candles {
		fmt.Fprintf(&b, "%s o=%.4f h=%.4f l=%.4f c=%.4f", c.Time.Format("2006-01-02T15:04:05Z"), c.Open, c.High, c.Low, c.Close)
		if c.Volume != nil {
			fmt.Fprintf(&b, " v=%.0f", *c.Volume)
		}
		b.WriteString("\n")
	}

	news := bundle.News
	if len(news) > promptMaxNews {
		news = news[:promptMaxNews]
	}
	fmt.Fprintf(&b, "\nNews (%d):\n", len(news))
	for _, n := range news {
		fmt.Fprintf(&b, "[%s] %s", n.PublishedAt.Format("2006-01-02"), n.Headline)
		if n.Sentiment != nil {
			fmt.Fprintf(&b, " (sentiment %.2f)", *n.Sentiment)
		}
		b.WriteString("\n")
	}

	flows := bundle.Flows
	if len(flows) > promptMaxFlows {
		flows = flows[:promptMaxFlows]
	}
	fmt.Fprintf(&b, "\nInstitutional flows (%d):\n", len(flows))
	for _, f := range flows {
		fmt.Fprintf(&b, "%s %s shares=%.0f change=%.0f\n", f.Institution, f.Side, f.Shares, f.ChangeShares)
	}

	if bundle.Quote != nil {
		fmt.Fprintf(&b, "\nLast price: %.4f\n", bundle.Quote.Price)
	}

	return b.String()
}
