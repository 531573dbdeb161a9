package di

import (
	"fmt"
	"time"

	"DigitPulse/internal/domain/repository"
	"DigitPulse/internal/engine"
	"DigitPulse/internal/handler/api"
	internalrepo "DigitPulse/internal/repository"
	"DigitPulse/internal/service/venue"
	"DigitPulse/internal/usecase"
	pkgch "DigitPulse/pkg/clickhouse"
	"DigitPulse/pkg/config"
	xhttp "DigitPulse/pkg/http"
	pkgkafka "DigitPulse/pkg/kafka"
	"DigitPulse/pkg/kv"
	"DigitPulse/pkg/logger"
	"DigitPulse/pkg/metrics"
	"DigitPulse/pkg/queue"
	"DigitPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideKVStore creates the Redis-backed KV store for engine state.
func ProvideKVStore(cfg *config.Config) (*kv.RedisStore, error) {
	store, err := kv.NewRedisStore(
		kv.WithAddr(cfg.Persistence.Addr),
		kv.WithAuth(cfg.Persistence.Password, cfg.Persistence.DB),
		kv.WithPrefix(cfg.Persistence.KeyPrefix),
	)
	if err != nil {
		return nil, fmt.Errorf("kv store: %w", err)
	}
	return store, nil
}

// ProvideStateStore wraps the KV store as the engine's state store.
func ProvideStateStore(store *kv.RedisStore) repository.StateStore {
	return internalrepo.NewRedisStateStore(store)
}

// ProvideJobQueue creates the notification queue over the shared Redis
// client. Nil when notifications are disabled.
func ProvideJobQueue(cfg *config.Config, log *logger.Logger, store *kv.RedisStore) *queue.RedisQueue {
	if !cfg.Notify.Enabled {
		return nil
	}
	return queue.NewRedisQueue(log, &queue.Config{
		Workers:    cfg.Notify.Workers,
		RetryLimit: cfg.Notify.RetryLimit,
		RetryDelay: cfg.Notify.RetryDelay,
	}, store.Client(), queue.WithKeyPrefix(cfg.Persistence.KeyPrefix+":queue"))
}

// ProvideNotifyJob creates the webhook delivery job.
func ProvideNotifyJob(cfg *config.Config, log *logger.Logger) queue.Job {
	if !cfg.Notify.Enabled {
		return nil
	}
	client := xhttp.NewClient(xhttp.WithTimeout(10 * time.Second))
	return usecase.NewNotifyJob(cfg.Notify.WebhookURL, client, log)
}

// ProvideNotifier enqueues notifications; nil when the queue is off.
func ProvideNotifier(q *queue.RedisQueue) repository.Notifier {
	if q == nil {
		return nil
	}
	return internalrepo.NewQueueNotifier(q)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the
// trade archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, false),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideTradeLog creates the ClickHouse trade archive.
func ProvideTradeLog(chClient *pkgch.Client, cfg *config.Config) repository.TradeLog {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseTradeLog(chClient.DB(), cfg.ClickHouse.Database+".trades")
}

// ProvideKafkaProducer creates the event producer, or nil when Kafka
// is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventSink publishes engine events to Kafka.
func ProvideEventSink(producer *pkgkafka.Producer, cfg *config.Config) repository.EventSink {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEventSink(producer, cfg.Kafka.EventsTopic)
}

// ProvideKafkaConsumer creates the replay consumer, or nil when replay
// is off.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Replay.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Replay.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Replay.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Replay.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Replay.RetryMax, cfg.Kafka.Replay.BackoffMin, cfg.Kafka.Replay.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Replay.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideVenueStream creates the venue WebSocket stream.
func ProvideVenueStream(cfg *config.Config, log *logger.Logger) repository.VenueStream {
	return venue.New(venue.Config{
		APIToken:       cfg.Venue.APIToken,
		AppID:          cfg.Venue.AppID,
		WebSocketURL:   cfg.Venue.WebSocketURL,
		Symbol:         cfg.Venue.Symbol,
		ReconnectDelay: cfg.Venue.ReconnectDelay,
		PingInterval:   cfg.Venue.PingInterval,
		MaxBuysPerMin:  cfg.Venue.MaxBuysPerMin,
	}, log)
}

// ProvideEngine creates the decision engine from configuration.
func ProvideEngine(cfg *config.Config, log *logger.Logger, m repository.Metrics) *engine.Engine {
	return engine.New(engine.Params{
		TradingEnabled:    cfg.Engine.TradingEnabled,
		Symbol:            cfg.Venue.Symbol,
		PipDigits:         cfg.Venue.PipDigits,
		BufferCapacity:    cfg.Engine.BufferCapacity,
		BaseStake:         cfg.Engine.BaseStake,
		Martingale:        cfg.Engine.Martingale,
		ContractTicks:     cfg.Engine.ContractTicks,
		BaseThreshold:     cfg.Engine.BaseThreshold,
		BaseLearningRate:  cfg.Engine.BaseLearningRate,
		LearningRateDecay: cfg.Engine.LearningRateDecay,
		Discount:          cfg.Engine.Discount,
		Epsilon:           cfg.Engine.Epsilon,
		CooldownTicks:     cfg.Engine.CooldownTicks,
		PatternCapacity:   cfg.Engine.PatternCapacity,
		ContextCapacity:   cfg.Engine.ContextCapacity,
		RecordCapacity:    cfg.Engine.RecordCapacity,
		TuneEvery:         cfg.Engine.TuneEvery,
	}, log, m)
}

// ProvideArchiver batches resolved trades to the trade log.
func ProvideArchiver(tradeLog repository.TradeLog, m repository.Metrics, log *logger.Logger) *usecase.TradeArchiver {
	if tradeLog == nil {
		return nil
	}
	return usecase.NewTradeArchiver(tradeLog, m, log)
}

// ProvideCollector wires the dispatch loop to the engine.
func ProvideCollector(
	stream repository.VenueStream,
	eng *engine.Engine,
	events repository.EventSink,
	notifier repository.Notifier,
	archiver *usecase.TradeArchiver,
	log *logger.Logger,
) *usecase.TickCollector {
	return usecase.NewTickCollector(stream, eng, events, notifier, archiver, log)
}

// ProvideFlusher persists engine state on an interval.
func ProvideFlusher(collector *usecase.TickCollector, state repository.StateStore, cfg *config.Config, log *logger.Logger) *usecase.StateFlusher {
	return usecase.NewStateFlusher(collector, state, cfg.Persistence.FlushEvery, log)
}

// ProvideReplayHandler decodes archived ticks into the collector.
func ProvideReplayHandler(cfg *config.Config, collector *usecase.TickCollector, log *logger.Logger) pkgkafka.MessageHandler {
	return usecase.NewReplayHandler(cfg.Kafka.ReplayTopic, collector, log)
}

// ProvideHTTPHandler creates the status API handler.
func ProvideHTTPHandler(
	log *logger.Logger,
	collector *usecase.TickCollector,
	stream repository.VenueStream,
	state repository.StateStore,
	trades repository.TradeLog,
) xhttp.Handler {
	return api.NewStatusHandler(log, collector, stream, state, trades)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	collector *usecase.TickCollector,
	archiver *usecase.TradeArchiver,
	flusher *usecase.StateFlusher,
	consumer *pkgkafka.Consumer,
	replay pkgkafka.MessageHandler,
	jobQueue *queue.RedisQueue,
	notifyJob queue.Job,
	tradeLog repository.TradeLog,
	events repository.EventSink,
	state repository.StateStore,
	chClient *pkgch.Client,
	httpHandler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, log, collector, archiver, flusher, consumer, replay,
		jobQueue, notifyJob, tradeLog, events, state, chClient, httpHandler)
}
