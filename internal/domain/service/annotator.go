package service

import (
	"context"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
)

// Annotator produces a structured interpretation of a normalized bundle.
// Implementations never propagate model or parse errors: they return the
// documented fallback annotation instead, so a request that fetched real
// data always returns 200 with some analysis attached.
type Annotator interface {
	Annotate(ctx context.Context, bundle *models.MarketBundle) models.Annotation
}
