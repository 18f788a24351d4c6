//go:build wireinject
// +build wireinject

package di

import (
	"AutoTrade/pkg/config"
	"AutoTrade/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideStateStore,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideBrokerClient,
		ProvideBroker,
		ProvideEventPump,

		// Repositories
		ProvideStore,

		// Use cases
		ProvideNormalizer,
		ProvideRiskGate,
		ProvideResolver,
		ProvideExecutor,
		ProvideLedger,
		ProvidePipeline,
		ProvideKafkaHandlers,

		// Transport
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
