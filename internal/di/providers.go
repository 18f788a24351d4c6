package di

import (
	"context"
	"fmt"
	"time"

	"AutoTrade/internal/broker/ibgw"
	"AutoTrade/internal/domain/repository"
	"AutoTrade/internal/handler/api"
	internalrepo "AutoTrade/internal/repository"
	"AutoTrade/internal/usecase"
	pkgch "AutoTrade/pkg/clickhouse"
	"AutoTrade/pkg/config"
	xhttp "AutoTrade/pkg/http"
	pkgkafka "AutoTrade/pkg/kafka"
	applogger "AutoTrade/pkg/logger"
	"AutoTrade/pkg/metrics"
	"AutoTrade/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
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

// ProvideClickHouseClient creates a ClickHouse client and runs schema init.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := append([]string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}, internalrepo.SchemaStatements...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideStore creates the ClickHouse-backed store.
func ProvideStore(chClient *pkgch.Client, l *applogger.Logger) repository.Store {
	store := internalrepo.NewCHStore(chClient)
	store.SetLogger(l)
	return store
}

// ProvideStateStore creates the Redis-backed system state store.
func ProvideStateStore(cfg *config.Config) (*internalrepo.RedisStateStore, error) {
	return internalrepo.NewRedisStateStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NoopHook{})
	return consumer, nil
}

// ProvideBrokerClient creates the gateway WebSocket client.
func ProvideBrokerClient(cfg *config.Config, l *applogger.Logger) *ibgw.Client {
	return ibgw.NewClient(cfg.Broker, l)
}

// ProvideBroker exposes the gateway client as the domain Broker.
func ProvideBroker(client *ibgw.Client) repository.Broker {
	return client
}

// ProvideEventPump creates the push-event republisher.
func ProvideEventPump(client *ibgw.Client, producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger) *ibgw.EventPump {
	return ibgw.NewEventPump(client, producer, cfg.Kafka.OrderStatusTopic, cfg.Kafka.FillTopic, l)
}

// ProvideNormalizer creates the signal normalizer.
func ProvideNormalizer(l *applogger.Logger) *usecase.Normalizer {
	return usecase.NewNormalizer(l)
}

// ProvideRiskGate creates the risk gate.
func ProvideRiskGate(cfg *config.Config, state *internalrepo.RedisStateStore, l *applogger.Logger) *usecase.RiskGate {
	return usecase.NewRiskGate(cfg.Trading, state, l)
}

// ProvideResolver creates the quantity resolver.
func ProvideResolver(broker repository.Broker, l *applogger.Logger) *usecase.QuantityResolver {
	return usecase.NewQuantityResolver(broker, l)
}

// ProvideExecutor creates the execution orchestrator.
func ProvideExecutor(broker repository.Broker, store repository.Store, m repository.Metrics, cfg *config.Config, l *applogger.Logger) *usecase.Executor {
	return usecase.NewExecutor(broker, store, m, cfg.Broker, l)
}

// ProvideLedger creates the reconciliation ledger.
func ProvideLedger(store repository.Store, broker repository.Broker, m repository.Metrics, l *applogger.Logger) *usecase.Ledger {
	return usecase.NewLedger(store, broker, m, l)
}

// ProvidePipeline creates the signal pipeline.
func ProvidePipeline(
	normalizer *usecase.Normalizer,
	gate *usecase.RiskGate,
	resolver *usecase.QuantityResolver,
	executor *usecase.Executor,
	broker repository.Broker,
	store repository.Store,
	state *internalrepo.RedisStateStore,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(normalizer, gate, resolver, executor, broker, store, state, m, l)
}

// ProvideKafkaHandlers registers ledger handlers for both event topics.
func ProvideKafkaHandlers(cfg *config.Config, ledger *usecase.Ledger) []pkgkafka.MessageHandler {
	return []pkgkafka.MessageHandler{
		usecase.NewOrderStatusHandler(cfg.Kafka.OrderStatusTopic, ledger),
		usecase.NewFillHandler(cfg.Kafka.FillTopic, ledger),
	}
}

// ProvideHTTPHandler creates the Echo route handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	pipeline *usecase.Pipeline,
	ledger *usecase.Ledger,
	broker repository.Broker,
	store repository.Store,
	cfg *config.Config,
) xhttp.Handler {
	return api.NewTradingHandler(l, pipeline, ledger, broker, store, cfg.Trading)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	broker *ibgw.Client,
	pump *ibgw.EventPump,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	ledger *usecase.Ledger,
	handler xhttp.Handler,
	chClient *pkgch.Client,
	state *internalrepo.RedisStateStore,
) *server.App {
	return server.New(cfg, l, broker, pump, producer, consumer, handlers, ledger, handler, chClient, state)
}
