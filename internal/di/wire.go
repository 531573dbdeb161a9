//go:build wireinject
// +build wireinject

package di

import (
	"DigitPulse/pkg/config"
	"DigitPulse/pkg/server"

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
		ProvideKVStore,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideJobQueue,

		// Repositories
		ProvideStateStore,
		ProvideTradeLog,
		ProvideEventSink,
		ProvideNotifier,
		ProvideVenueStream,

		// Engine and use cases
		ProvideEngine,
		ProvideArchiver,
		ProvideCollector,
		ProvideFlusher,
		ProvideReplayHandler,
		ProvideNotifyJob,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
