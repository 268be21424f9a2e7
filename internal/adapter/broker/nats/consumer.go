package nats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/iho/goposition/internal/domain"
	"github.com/iho/goposition/internal/usecase"
)

type fetcher interface {
	Fetch(batch int, opts ...jetstream.FetchOpt) (jetstream.MessageBatch, error)
}

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	Stream   string
	Durable  string
	Subject  string
	MinBatch int
	MaxBatch int
	Linger   time.Duration
	AckWait  time.Duration
	Logger   zerolog.Logger
}

// Consumer pulls position batches from a durable JetStream consumer. The
// stream sequence stands in for the offset and every subject is a single
// partition.
type Consumer struct {
	fetcher fetcher
	cfg     ConsumerConfig
	logger  zerolog.Logger

	mu      sync.Mutex
	pending map[uint64]jetstream.Msg
}

var _ usecase.Consumer = (*Consumer)(nil)

// NewConsumer creates the durable pull consumer and wraps it.
func NewConsumer(ctx context.Context, js jetstream.JetStream, cfg ConsumerConfig) (*Consumer, error) {
	if cfg.AckWait <= 0 {
		cfg.AckWait = 30 * time.Second
	}

	consumer, err := js.CreateOrUpdateConsumer(ctx, cfg.Stream, jetstream.ConsumerConfig{
		Durable:       cfg.Durable,
		FilterSubject: cfg.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       cfg.AckWait,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxAckPending: max(cfg.MaxBatch*2, 1000),
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer %s: %w", cfg.Durable, err)
	}

	return newConsumer(consumer, cfg), nil
}

func newConsumer(f fetcher, cfg ConsumerConfig) *Consumer {
	if cfg.MinBatch <= 0 {
		cfg.MinBatch = usecase.MinBatchSize
	}
	if cfg.MaxBatch < cfg.MinBatch {
		cfg.MaxBatch = cfg.MinBatch
	}
	if cfg.Linger <= 0 {
		cfg.Linger = 50 * time.Millisecond
	}

	return &Consumer{
		fetcher: f,
		cfg:     cfg,
		logger:  cfg.Logger.With().Str("component", "nats_consumer").Str("consumer", cfg.Durable).Logger(),
		pending: make(map[uint64]jetstream.Msg),
	}
}

// FetchBatch pulls until at least MinBatch messages are held. Each pull waits
// at most Linger and asks for the room left up to MaxBatch.
func (c *Consumer) FetchBatch(ctx context.Context) ([]domain.Message, error) {
	msgs := make([]domain.Message, 0, c.cfg.MinBatch)

	for len(msgs) < c.cfg.MinBatch {
		if err := ctx.Err(); err != nil {
			c.nak(msgs)
			return nil, err
		}

		batch, err := c.fetcher.Fetch(c.cfg.MaxBatch-len(msgs), jetstream.FetchMaxWait(c.cfg.Linger))
		if err != nil {
			c.nak(msgs)
			return nil, fmt.Errorf("fetch: %w", err)
		}

		for m := range batch.Messages() {
			msg, err := c.track(m)
			if err != nil {
				c.logger.Warn().Err(err).Str("subject", m.Subject()).Msg("dropping message without metadata")
				_ = m.Term()
				continue
			}
			msgs = append(msgs, msg)
		}

		if err := batch.Error(); err != nil && !errors.Is(err, jetstream.ErrNoMessages) && !errors.Is(err, context.DeadlineExceeded) {
			c.nak(msgs)
			return nil, fmt.Errorf("fetch: %w", err)
		}
	}

	return msgs, nil
}

func (c *Consumer) track(m jetstream.Msg) (domain.Message, error) {
	meta, err := m.Metadata()
	if err != nil {
		return domain.Message{}, err
	}

	headers := make(map[string]string, len(m.Headers()))
	for k := range m.Headers() {
		headers[k] = m.Headers().Get(k)
	}
	key := headers[HeaderRoutingKey]
	delete(headers, HeaderRoutingKey)

	c.mu.Lock()
	c.pending[meta.Sequence.Stream] = m
	c.mu.Unlock()

	return domain.Message{
		Topic:     m.Subject(),
		Offset:    int64(meta.Sequence.Stream),
		Key:       []byte(key),
		Value:     m.Data(),
		Headers:   headers,
		Timestamp: meta.Timestamp,
	}, nil
}

// Commit acknowledges every pending message at or below its subject's checkpoint.
func (c *Consumer) Commit(ctx context.Context, checkpoints []domain.Checkpoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cp := range checkpoints {
		for seq, m := range c.pending {
			if m.Subject() != cp.Topic || int64(seq) > cp.Offset {
				continue
			}
			if err := m.DoubleAck(ctx); err != nil {
				return fmt.Errorf("ack %s/%d: %w", cp.Topic, seq, err)
			}
			delete(c.pending, seq)
		}
	}

	return nil
}

// Reject negatively acknowledges the batch so JetStream redelivers it.
func (c *Consumer) Reject(ctx context.Context, msgs []domain.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, msg := range msgs {
		seq := uint64(msg.Offset)
		m, ok := c.pending[seq]
		if !ok {
			continue
		}
		if err := m.Nak(); err != nil {
			errs = append(errs, fmt.Errorf("nak %d: %w", seq, err))
		}
		delete(c.pending, seq)
	}

	return errors.Join(errs...)
}

func (c *Consumer) nak(msgs []domain.Message) {
	if err := c.Reject(context.Background(), msgs); err != nil {
		c.logger.Warn().Err(err).Msg("failed to release partial batch")
	}
}

// Close releases every message still held.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for seq, m := range c.pending {
		_ = m.Nak()
		delete(c.pending, seq)
	}
	return nil
}
