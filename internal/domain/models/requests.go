package models

// Requests for market-data HTTP endpoints. Defined in domain for consistency and reuse.

type ChartRequest struct {
	Symbol   string `json:"symbol" validate:"required,min=1,max=12"`
	Interval string `json:"interval" default:"1h" validate:"oneof=1m 5m 15m 30m 1h 4h 1d"`
	Horizon  string `json:"horizon" default:"1mo" validate:"oneof=1d 5d 1mo 3mo 6mo 1y"`
}

type NewsRequest struct {
	Symbol string `json:"symbol" validate:"required,min=1,max=12"`
	Limit  int    `json:"limit" default:"20" validate:"gte=1,lte=100"`
}

type FlowsRequest struct {
	Symbol string `json:"symbol" validate:"required,min=1,max=12"`
	Limit  int    `json:"limit" default:"25" validate:"gte=1,lte=100"`
}

type InstitutionalRequest struct {
	Symbol string `json:"symbol" validate:"required,min=1,max=12"`
	Limit  int    `json:"limit" default:"25" validate:"gte=1,lte=100"`
}

type TraderProRequest struct {
	Symbol   string `json:"symbol" validate:"required,min=1,max=12"`
	Interval string `json:"interval" default:"1h" validate:"oneof=1m 5m 15m 30m 1h 4h 1d"`
	Horizon  string `json:"horizon" default:"1mo" validate:"oneof=1d 5d 1mo 3mo 6mo 1y"`
	Mode     string `json:"mode" default:"full" validate:"oneof=full lite"`
}

type QuoteRequest struct {
	Symbol string `json:"symbol" validate:"required,min=1,max=12"`
}
