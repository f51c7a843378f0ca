// Package llm implements the market annotator on an OpenAI-compatible
// chat completions API. Model failures never surface to callers; every
// failure path yields the neutral fallback annotation.
package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	domsvc "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/service"
	xhttp "github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/http"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/logger"
)

const (
	openAIDefaultURL = "https://api.openai.com"
	completionsPath  = "/v1/chat/completions"
)

// OpenAIAnnotator calls a chat completions endpoint with a deterministic
// prompt and parses the structured JSON reply.
type OpenAIAnnotator struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	client      *xhttp.Client
	logger      *logger.Logger
}

// Options configures the annotator beyond its required API key.
type Options struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// NewOpenAIAnnotator builds the annotator. The API key is validated at
// config load time, so an empty key here is a programming error.
func NewOpenAIAnnotator(apiKey string, opts Options, log *logger.Logger) *OpenAIAnnotator {
	if opts.BaseURL == "" {
		opts.BaseURL = openAIDefaultURL
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &OpenAIAnnotator{
		apiKey:      apiKey,
		baseURL:     opts.BaseURL,
		model:       opts.Model,
		temperature: opts.Temperature,
		client:      xhttp.NewClient(xhttp.WithTimeout(opts.Timeout)),
		logger:      log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// annotationReply is the shape the prompt instructs the model to emit.
type annotationReply struct {
	Trend      string   `json:"trend"`
	Confidence float64  `json:"confidence"`
	Signals    []string `json:"signals"`
	Notes      []string `json:"notes"`
}

// Annotate sends the bundle to the model and parses its reply. On any
// transport, API or parse failure it returns the fallback annotation.
func (a *OpenAIAnnotator) Annotate(ctx context.Context, bundle *models.MarketBundle) models.Annotation {
	req := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(bundle)},
		},
		Temperature: a.temperature,
	}

	var resp chatResponse
	err := a.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    a.baseURL + completionsPath,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + a.apiKey,
		},
		Body: req,
	}, &resp)
	if err != nil {
		a.logger.Warn("annotation request failed, using fallback",
			logger.String("symbol", bundle.Symbol),
			logger.Error(err))
		return models.FallbackAnnotation()
	}
	if len(resp.Choices) == 0 {
		a.logger.Warn("annotation reply had no choices, using fallback",
			logger.String("symbol", bundle.Symbol))
		return models.FallbackAnnotation()
	}

	ann, ok := ParseAnnotation(resp.Choices[0].Message.Content)
	if !ok {
		a.logger.Warn("annotation reply unparseable, using fallback",
			logger.String("symbol", bundle.Symbol),
			logger.String("model", a.model))
		return models.FallbackAnnotation()
	}
	ann.Model = a.model
	return ann
}

// ParseAnnotation extracts the structured annotation from a model reply.
// Replies wrapped in markdown fences are unwrapped first. Returns ok=false
// when no valid JSON object with a recognized trend can be recovered.
func ParseAnnotation(content string) (models.Annotation, bool) {
	text := strings.TrimSpace(content)
	if i := strings.Index(text, "{"); i >= 0 {
		if j := strings.LastIndex(text, "}"); j > i {
			text = text[i : j+1]
		}
	}

	var reply annotationReply
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		return models.Annotation{}, false
	}
	switch reply.Trend {
	case models.TrendBullish, models.TrendBearish, models.TrendNeutral:
	default:
		return models.Annotation{}, false
	}

	return models.Annotation{
		Trend:      reply.Trend,
		Confidence: models.ClampConfidence(reply.Confidence),
		Signals:    reply.Signals,
		Notes:      reply.Notes,
	}, true
}

var _ domsvc.Annotator = (*OpenAIAnnotator)(nil)
