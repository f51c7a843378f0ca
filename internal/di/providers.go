// Package di assembles the application graph. Providers hold the only
// construction logic that depends on configuration shape; wiring order is
// generated by google/wire.
package di

import (
	"context"
	"fmt"
	"time"

	domrepo "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/repository"
	domsvc "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/service"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/handler/api"
	internalrepo "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/repository"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/service/cache"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/service/llm"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/service/stream"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/service/vendors"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/usecase"
	pkgch "github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/clickhouse"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/config"
	pkgkafka "github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/kafka"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/logger"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/metrics"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return logger.New(&logger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideChains builds the per-kind vendor priority lists. Vendors without
// an API key are excluded here, so an unconfigured vendor never shows up
// in any attempt trail. Yahoo is key-free and always present as the last
// candle fallback.
func ProvideChains(cfg *config.Config) usecase.Chains {
	timeout := cfg.Vendors.Timeout
	var chains usecase.Chains

	if key := cfg.Vendors.Polygon.APIKey; key != "" {
		chains.Candles = append(chains.Candles,
			vendors.NewPolygon(key, cfg.Vendors.Polygon.BaseURL, timeout))
	}
	if key := cfg.Vendors.Finnhub.APIKey; key != "" {
		fh := vendors.NewFinnhub(key, cfg.Vendors.Finnhub.BaseURL, timeout)
		chains.Candles = append(chains.Candles, fh)
		chains.News = append(chains.News, fh)
		chains.Flows = append(chains.Flows, fh)
		chains.Quotes = append(chains.Quotes, fh)
	}
	chains.Candles = append(chains.Candles,
		vendors.NewYahoo(cfg.Vendors.Yahoo.BaseURL, timeout))

	if key := cfg.Vendors.Marketaux.APIKey; key != "" {
		chains.News = append([]domsvc.NewsVendor{
			vendors.NewMarketaux(key, cfg.Vendors.Marketaux.BaseURL, timeout),
		}, chains.News...)
	}
	if key := cfg.Vendors.FMP.APIKey; key != "" {
		chains.Flows = append([]domsvc.FlowVendor{
			vendors.NewFMP(key, cfg.Vendors.FMP.BaseURL, timeout),
		}, chains.Flows...)
	}
	return chains
}

// ProvideSequencer creates the failover sequencer with the per-vendor budget.
func ProvideSequencer(cfg *config.Config, m domrepo.Metrics, log *logger.Logger) *usecase.Sequencer {
	return usecase.NewSequencer(cfg.Vendors.Timeout, m, log)
}

// ProvideAnnotator creates the LLM annotator. The API key was already
// validated by config.Validate.
func ProvideAnnotator(cfg *config.Config, log *logger.Logger) domsvc.Annotator {
	return llm.NewOpenAIAnnotator(cfg.LLM.APIKey, llm.Options{
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, log)
}

// ProvideAudit builds the configured audit backend wrapped in the async
// writer. The "none" backend discards events.
func ProvideAudit(cfg *config.Config, log *logger.Logger) (domrepo.Audit, error) {
	var sink domrepo.Audit
	switch cfg.Audit.Backend {
	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sink, err = internalrepo.NewClickHouseAudit(ctx, client, log)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
	case "kafka":
		producer, err := ProvideKafkaProducer(cfg)
		if err != nil {
			return nil, err
		}
		sink = internalrepo.NewKafkaAudit(producer, cfg.Kafka.Topic, log)
		// Repeated error logs are aggregated and flushed through the same
		// producer on a sibling topic.
		log.AddCollector(&logger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.Topic + ".logs",
			Publisher:      producer,
		})
	default:
		sink = internalrepo.NopAudit{}
	}
	return internalrepo.NewAsyncAudit(sink, cfg.Audit.BufferSize, log), nil
}

// ProvideKafkaProducer creates a Kafka producer from config.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
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

// ProvideCache chooses the response cache backend.
func ProvideCache(cfg *config.Config) cache.BytesCache {
	if cfg.Cache.Backend == "redis" {
		return cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	}
	return cache.NewTTLCache()
}

// ProvideQuoteBoard creates the live quote board when streaming is enabled.
// Returns nil otherwise; the quote endpoint then relies on REST only.
func ProvideQuoteBoard(cfg *config.Config, m domrepo.Metrics, log *logger.Logger) *stream.QuoteBoard {
	if !cfg.Stream.Enabled || cfg.Vendors.Finnhub.APIKey == "" {
		return nil
	}
	s := stream.NewFinnhubStream(
		cfg.Vendors.Finnhub.APIKey,
		cfg.Vendors.Finnhub.WebSocketURL,
		cfg.Vendors.Finnhub.ReconnectDelay,
		cfg.Vendors.Finnhub.PingInterval,
		log,
	)
	return stream.NewQuoteBoard(s, m, cfg.Stream.Symbols, log)
}

// ProvideMarketDataService assembles the core use case.
func ProvideMarketDataService(chains usecase.Chains, seq *usecase.Sequencer, annotator domsvc.Annotator, audit domrepo.Audit, board *stream.QuoteBoard, log *logger.Logger) *usecase.MarketDataService {
	var live usecase.LiveQuotes
	if board != nil {
		live = board
	}
	return usecase.NewMarketDataService(chains, seq, annotator, audit, live, log)
}

// ProvideMarketHandler assembles the HTTP handler.
func ProvideMarketHandler(cfg *config.Config, svc *usecase.MarketDataService, c cache.BytesCache, audit domrepo.Audit, board *stream.QuoteBoard, log *logger.Logger) *api.MarketHandler {
	ttls := api.CacheTTLs{
		Chart: cfg.Cache.TTL.Chart,
		News:  cfg.Cache.TTL.News,
		Flows: cfg.Cache.TTL.Flows,
	}
	opts := []api.MarketHandlerOption{}
	if board != nil {
		opts = append(opts, api.WithStreamStatus(board))
	}
	return api.NewMarketHandler(log, svc, c, ttls, audit, opts...)
}

// ProvideApp assembles the application lifecycle.
func ProvideApp(cfg *config.Config, handler *api.MarketHandler, audit domrepo.Audit, board *stream.QuoteBoard, log *logger.Logger) *server.App {
	return server.New(cfg, handler, audit, board, log)
}
