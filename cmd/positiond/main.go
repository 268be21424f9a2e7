package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	kafkaBroker "github.com/iho/goposition/internal/adapter/broker/kafka"
	natsBroker "github.com/iho/goposition/internal/adapter/broker/nats"
	httpAdapter "github.com/iho/goposition/internal/adapter/http"
	"github.com/iho/goposition/internal/adapter/http/handler"
	postgresRepo "github.com/iho/goposition/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/goposition/internal/adapter/repository/redis"
	"github.com/iho/goposition/internal/infrastructure/config"
	"github.com/iho/goposition/internal/infrastructure/eventpublisher"
	"github.com/iho/goposition/internal/infrastructure/logger"
	"github.com/iho/goposition/internal/infrastructure/metrics"
	"github.com/iho/goposition/internal/infrastructure/postgres"
	"github.com/iho/goposition/internal/infrastructure/redis"
	"github.com/iho/goposition/internal/infrastructure/tracing"
	"github.com/iho/goposition/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}).
		With().Str("service", cfg.ServiceName).Logger()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("position handler stopped with error")
	}

	log.Info().Msg("position handler stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.OTelEnabled,
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTelExporterEndpoint,
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("failed to flush traces")
		}
	}()

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	cache := redisRepo.NewCache(redisClient, "")
	reference := redisRepo.NewCachedReferenceRepository(
		postgresRepo.NewReferenceDataRepository(pool), cache, cfg.ReferenceCacheTTL, log)

	// Fail fast on an empty or unreachable participant directory.
	accounts, err := reference.ListParticipantCurrencies(ctx)
	if err != nil {
		return fmt.Errorf("load participant directory: %w", err)
	}
	log.Info().Int("accounts", len(accounts)).Msg("participant directory loaded")

	consumer, producer, closeBroker, err := openBroker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBroker()

	recorder := metrics.New()
	status := handler.NewBatchStatus()
	order, _ := usecase.ParseCheckpointOrder(cfg.CheckpointOrder)

	batchConsumer := usecase.NewBatchConsumer(usecase.BatchConsumerConfig{
		Consumer:  consumer,
		TxManager: postgresRepo.NewTxManager(pool),
		Builder:   usecase.NewBinBuilder(otel.Tracer(cfg.ServiceName), recorder, log),
		Processor: usecase.NewBinProcessor(
			postgresRepo.NewPositionRepository(),
			reference,
			postgresRepo.NewULIDGenerator(),
			cfg.HubName,
			log,
		),
		Publisher: eventpublisher.NewPublisher(eventpublisher.Config{
			Producer:          producer,
			NotificationTopic: cfg.NotificationTopic,
			Recorder:          recorder,
			Logger:            log,
		}),
		Retrier:         postgresRepo.NewRetrier(postgresRepo.DefaultRetrierConfig(), log),
		Recorder:        recorder,
		Logger:          log,
		CheckpointOrder: order,
		OnState:         status.Observe,
	})

	server := &http.Server{
		Addr: opsAddr(cfg.OpsPort),
		Handler: httpAdapter.NewRouter(httpAdapter.RouterConfig{
			HealthHandler: handler.NewHealthHandler(pool, cache),
			BatchStatus:   status,
			Logger:        log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return batchConsumer.Run(gctx)
	})

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("starting ops server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down ops server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.OpsShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openBroker connects the position consumer and the outcome producer of the
// configured broker.
func openBroker(ctx context.Context, cfg *config.Config, log zerolog.Logger) (usecase.Consumer, usecase.Producer, func(), error) {
	switch cfg.Broker {
	case config.BrokerNATS:
		nc, js, err := natsBroker.Connect(cfg.NATSURL, log)
		if err != nil {
			return nil, nil, nil, err
		}

		if err := natsBroker.EnsureStream(ctx, js, cfg.NATSStream, cfg.PositionTopic, cfg.NotificationTopic); err != nil {
			nc.Close()
			return nil, nil, nil, err
		}

		consumer, err := natsBroker.NewConsumer(ctx, js, natsConsumerConfig(cfg, log))
		if err != nil {
			nc.Close()
			return nil, nil, nil, err
		}

		log.Info().Str("url", cfg.NATSURL).Str("stream", cfg.NATSStream).Msg("connected to nats")

		return consumer, natsBroker.NewProducer(js), func() {
			_ = consumer.Close()
			if err := nc.Drain(); err != nil {
				log.Warn().Err(err).Msg("failed to drain nats connection")
			}
		}, nil

	case config.BrokerKafka:
		consumer := kafkaBroker.NewConsumer(kafkaConsumerConfig(cfg, log))
		producer := kafkaBroker.NewProducer(kafkaBroker.ProducerConfig{
			Brokers:  cfg.KafkaBrokers,
			ClientID: cfg.KafkaClientID,
		})

		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("group", cfg.KafkaGroupID).Msg("kafka consumer group configured")

		return consumer, producer, func() {
			if err := consumer.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close kafka reader")
			}
			if err := producer.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close kafka writer")
			}
		}, nil
	}

	return nil, nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownBroker, cfg.Broker)
}

func kafkaConsumerConfig(cfg *config.Config, log zerolog.Logger) kafkaBroker.ConsumerConfig {
	return kafkaBroker.ConsumerConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		ClientID: cfg.KafkaClientID,
		Topic:    cfg.PositionTopic,
		MinBatch: cfg.BatchMinSize,
		MaxBatch: cfg.BatchMaxSize,
		Linger:   cfg.BatchLinger,
		Logger:   log,
	}
}

func natsConsumerConfig(cfg *config.Config, log zerolog.Logger) natsBroker.ConsumerConfig {
	return natsBroker.ConsumerConfig{
		Stream:   cfg.NATSStream,
		Durable:  cfg.NATSConsumer,
		Subject:  cfg.PositionTopic,
		MinBatch: cfg.BatchMinSize,
		MaxBatch: cfg.BatchMaxSize,
		Linger:   cfg.BatchLinger,
		Logger:   log,
	}
}

func opsAddr(port string) string {
	return fmt.Sprintf(":%s", port)
}
