//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/config"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Vendor chains and pipeline
		ProvideChains,
		ProvideSequencer,
		ProvideAnnotator,

		// Infrastructure
		ProvideAudit,
		ProvideCache,
		ProvideQuoteBoard,

		// Use case and HTTP surface
		ProvideMarketDataService,
		ProvideMarketHandler,

		ProvideApp,
	)
	return &server.App{}, nil
}
