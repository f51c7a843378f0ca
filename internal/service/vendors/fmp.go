package vendors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	xhttp "github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/http"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/util"
)

const fmpDefaultURL = "https://financialmodelingprep.com"

// FMP (Financial Modeling Prep) is the primary institutional-data vendor.
type FMP struct {
	base
}

// NewFMP creates an FMP client.
func NewFMP(apiKey, baseURL string, timeout time.Duration) *FMP {
	if baseURL == "" {
		baseURL = fmpDefaultURL
	}
	return &FMP{base: newBase("fmp", apiKey, baseURL, timeout)}
}

type fmpHolder struct {
	Holder       string    `json:"holder"`
	Shares       flexFloat `json:"shares"`
	Change       flexFloat `json:"change"`
	DateReported string    `json:"dateReported"`
}

// flexFloat accepts both number and quoted-string encodings. FMP has
// shipped share counts either way depending on the endpoint version.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	if len(b) > 1 && b[0] == '"' {
		s := string(bytes.Trim(b, `"`))
		if s == "" {
			*f = 0
			return nil
		}
		v, ok := util.ParseFloat(s)
		if !ok {
			return fmt.Errorf("parse numeric string %q", s)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// Flows fetches institutional holders and their position changes.
func (f *FMP) Flows(ctx context.Context, symbol string, limit int) ([]models.InstitutionalFlow, error) {
	var raw []fmpHolder
	err := f.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    f.url("/api/v3/institutional-holder/" + symbol),
		QueryParams: map[string][]string{
			"apikey": {f.apiKey},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("fmp institutional holders: %w", err)
	}

	return normalizeFMPHolders(raw, limit)
}

func normalizeFMPHolders(raw []fmpHolder, limit int) ([]models.InstitutionalFlow, error) {
	out := make([]models.InstitutionalFlow, 0, len(raw))
	for _, h := range raw {
		if h.Holder == "" {
			continue
		}
		reported, _ := time.Parse("2006-01-02", h.DateReported)
		out = append(out, models.InstitutionalFlow{
			Institution:  h.Holder,
			Shares:       float64(h.Shares),
			ChangeShares: float64(h.Change),
			Side:         flowSide(float64(h.Change)),
			ReportedAt:   reported,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
