package eventpublisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iho/goposition/internal/domain"
	"github.com/iho/goposition/internal/infrastructure/tracing"
	"github.com/iho/goposition/internal/usecase"
)

// ErrorRecorder counts records that could not be published.
type ErrorRecorder interface {
	RecordPublishError(topic string)
}

// Publisher republishes the outcomes of a committed batch.
type Publisher struct {
	producer          usecase.Producer
	notificationTopic string
	recorder          ErrorRecorder
	logger            zerolog.Logger
	concurrency       int
	chunkSize         int
	maxRetries        uint64
	initialInterval   time.Duration
}

// Config for Publisher.
type Config struct {
	Producer          usecase.Producer
	NotificationTopic string
	Recorder          ErrorRecorder
	Logger            zerolog.Logger
	Concurrency       int           // Parallel publish calls
	ChunkSize         int           // Records per publish call
	MaxRetries        uint64        // Retries per chunk
	InitialInterval   time.Duration // First retry delay
}

var _ usecase.OutcomePublisher = (*Publisher)(nil)

// NewPublisher creates a new Publisher.
func NewPublisher(cfg Config) *Publisher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 100
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 50 * time.Millisecond
	}

	return &Publisher{
		producer:          cfg.Producer,
		notificationTopic: cfg.NotificationTopic,
		recorder:          cfg.Recorder,
		logger:            cfg.Logger,
		concurrency:       cfg.Concurrency,
		chunkSize:         cfg.ChunkSize,
		maxRetries:        cfg.MaxRetries,
		initialInterval:   cfg.InitialInterval,
	}
}

// PublishOutcomes sends the notification of every decided item.
// Records keep arrival order within a chunk.
func (p *Publisher) PublishOutcomes(ctx context.Context, result *usecase.BatchResult) error {
	if result == nil {
		return nil
	}

	msgs, err := p.Messages(result)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for start := 0; start < len(msgs); start += p.chunkSize {
		chunk := msgs[start:min(start+p.chunkSize, len(msgs))]
		g.Go(func() error {
			return p.publishChunk(gctx, chunk)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	p.logger.Debug().Int("records", len(msgs)).Msg("batch outcomes published")

	return nil
}

// Messages builds the outbound records of a batch result.
func (p *Publisher) Messages(result *usecase.BatchResult) ([]domain.OutboundMessage, error) {
	var msgs []domain.OutboundMessage

	for _, item := range result.Items {
		outcome := item.Outcome
		if outcome == nil {
			continue
		}

		headers := traceHeaders(item)

		if outcome.Notification != nil {
			value, err := outcome.Notification.Encode()
			if err != nil {
				return nil, fmt.Errorf("encode notification for %s: %w", outcome.TransferID, err)
			}
			msgs = append(msgs, domain.OutboundMessage{
				Topic:   p.notificationTopic,
				Key:     []byte(outcome.TransferID),
				Value:   value,
				Headers: headers,
			})
		}
	}

	return msgs, nil
}

// publishChunk retries only the records the producer reports as unsent, so a
// partial failure does not duplicate records already written.
func (p *Publisher) publishChunk(ctx context.Context, chunk []domain.OutboundMessage) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialInterval

	pending := chunk
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := p.producer.Publish(ctx, pending...)
		if err == nil {
			pending = nil
			return nil
		}

		var pubErr *usecase.PublishError
		if errors.As(err, &pubErr) && len(pubErr.Failed) > 0 {
			pending = selectIndexes(pending, pubErr.Indexes())
		}

		p.logger.Warn().Err(err).
			Int("attempt", attempt).
			Int("records", len(pending)).
			Msg("publish failed")

		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, p.maxRetries), ctx))
	if err != nil {
		if p.recorder != nil {
			for _, topic := range topicsOf(pending) {
				p.recorder.RecordPublishError(topic)
			}
		}
		return fmt.Errorf("publish %d of %d records: %w", len(pending), len(chunk), err)
	}

	return nil
}

func selectIndexes(msgs []domain.OutboundMessage, idx []int) []domain.OutboundMessage {
	out := make([]domain.OutboundMessage, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(msgs) {
			out = append(out, msgs[i])
		}
	}
	return out
}

func traceHeaders(item *usecase.BinItem) map[string]string {
	ctx := item.Context()
	if ctx == nil {
		return map[string]string{}
	}
	return tracing.InjectQueueTraceContext(ctx)
}

func topicsOf(msgs []domain.OutboundMessage) []string {
	seen := make(map[string]struct{})
	var topics []string
	for _, m := range msgs {
		if _, ok := seen[m.Topic]; ok {
			continue
		}
		seen[m.Topic] = struct{}{}
		topics = append(topics, m.Topic)
	}
	return topics
}
