//go:build wireinject
// +build wireinject

package di

import (
	"CoinCast/pkg/config"
	"CoinCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideClickHouseClient,
		ProvideEventPublisher,

		// Repositories
		ProvideMarketData,
		ProvideArtifactStore,
		ProvideForecastLog,
		ProvideTickerStream,

		// Use cases
		ProvideTrainer,
		ProvideForecastService,

		// HTTP surface
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
