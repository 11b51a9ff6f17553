package di

import (
	"context"
	"fmt"
	"time"

	"CoinCast/internal/domain/repository"
	"CoinCast/internal/forecast"
	"CoinCast/internal/handler/api"
	internalrepo "CoinCast/internal/repository"
	"CoinCast/internal/service/cache"
	"CoinCast/internal/service/ticker"
	"CoinCast/internal/service/yahoo"
	"CoinCast/internal/usecase"
	pkgch "CoinCast/pkg/clickhouse"
	"CoinCast/pkg/config"
	xhttp "CoinCast/pkg/http"
	pkgkafka "CoinCast/pkg/kafka"
	"CoinCast/pkg/logger"
	"CoinCast/pkg/metrics"
	"CoinCast/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the configured cache backend.
func ProvideCache(cfg *config.Config) repository.Cache {
	if cfg.Cache.Backend == "redis" {
		return cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
	}
	return cache.NewTTLCache()
}

// ProvideMarketData creates the Yahoo chart API client.
func ProvideMarketData(cfg *config.Config, c repository.Cache, log *logger.Logger) repository.MarketData {
	return yahoo.NewClient(c, log,
		yahoo.WithBaseURL(cfg.MarketData.BaseURL),
		yahoo.WithTimeout(cfg.MarketData.Timeout),
		yahoo.WithTTLs(cfg.Cache.HistoryTTL, cfg.Cache.LiveTTL),
	)
}

// ProvideArtifactStore creates the file-backed model and scaler store.
func ProvideArtifactStore(cfg *config.Config) (forecast.ArtifactStore, error) {
	return internalrepo.NewFileStore(cfg.Forecast.ModelDir, cfg.Forecast.ScalerDir)
}

// ProvideTrainer creates the training pipeline.
func ProvideTrainer(market repository.MarketData, store forecast.ArtifactStore, log *logger.Logger) *forecast.Trainer {
	return forecast.NewTrainer(market, store, log)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the
// audit log is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	table := cfg.ClickHouse.Database + "." + cfg.ClickHouse.Table
	stmts := append(
		[]string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database)},
		internalrepo.ForecastLogSchema(table)...,
	)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideForecastLog creates the forecast audit log.
func ProvideForecastLog(chClient *pkgch.Client, cfg *config.Config) repository.ForecastLog {
	if chClient == nil {
		return internalrepo.NopForecastLog{}
	}
	table := cfg.ClickHouse.Database + "." + cfg.ClickHouse.Table
	return internalrepo.NewClickHouseForecastLog(chClient.DB(), table)
}

// ProvideEventPublisher creates the Kafka event publisher, or a no-op
// one when Kafka is disabled.
func ProvideEventPublisher(cfg *config.Config) (repository.EventPublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopEventPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideTickerStream creates the live price stream, or nil when it is
// disabled.
func ProvideTickerStream(cfg *config.Config, m repository.Metrics, log *logger.Logger) *ticker.Stream {
	if !cfg.Ticker.Enabled {
		return nil
	}
	return ticker.New(
		cfg.Ticker.WebSocketURL,
		cfg.Tickers(),
		cfg.Ticker.ReconnectDelay,
		cfg.Ticker.PingInterval,
		m,
		log,
	)
}

// ProvideForecastService wires the forecasting use case.
func ProvideForecastService(
	cfg *config.Config,
	trainer *forecast.Trainer,
	store forecast.ArtifactStore,
	market repository.MarketData,
	m repository.Metrics,
	flog repository.ForecastLog,
	events repository.EventPublisher,
	stream *ticker.Stream,
	log *logger.Logger,
) *usecase.ForecastService {
	return usecase.NewForecastService(cfg, trainer, store, market, m, flog, events, stream, log)
}

// ProvideHandler creates the HTTP handler.
func ProvideHandler(svc *usecase.ForecastService, log *logger.Logger) xhttp.Handler {
	return api.NewForecastHandler(svc, log)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	handler xhttp.Handler,
	stream *ticker.Stream,
	chClient *pkgch.Client,
	events repository.EventPublisher,
) *server.App {
	return server.New(cfg, log, handler, stream, chClient, events)
}
