package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/iho/goposition/internal/domain"
	"github.com/iho/goposition/internal/usecase"
)

// reader is the part of *kafkago.Reader the consumer needs.
type reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	ClientID string
	Topic    string
	MinBatch int
	MaxBatch int
	Linger   time.Duration
	Logger   zerolog.Logger
}

// Consumer reads position batches from a Kafka consumer group.
type Consumer struct {
	cfg       ConsumerConfig
	newReader func() reader
	logger    zerolog.Logger

	mu     sync.Mutex
	reader reader
}

var _ usecase.Consumer = (*Consumer)(nil)

// NewConsumer creates a Consumer backed by a kafka-go group reader.
func NewConsumer(cfg ConsumerConfig) *Consumer {
	return newConsumer(cfg, func() reader {
		return kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:        cfg.Brokers,
			GroupID:        cfg.GroupID,
			Topic:          cfg.Topic,
			Dialer:         &kafkago.Dialer{ClientID: cfg.ClientID, Timeout: 10 * time.Second, DualStack: true},
			MinBytes:       1,
			MaxBytes:       10e6,
			MaxWait:        cfg.Linger,
			StartOffset:    kafkago.FirstOffset,
			CommitInterval: 0,
		})
	})
}

func newConsumer(cfg ConsumerConfig, newReader func() reader) *Consumer {
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
		cfg:       cfg,
		newReader: newReader,
		logger:    cfg.Logger.With().Str("component", "kafka_consumer").Str("topic", cfg.Topic).Logger(),
		reader:    newReader(),
	}
}

func (c *Consumer) current() reader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reader
}

// FetchBatch blocks until MinBatch messages arrive, then keeps reading for up
// to Linger or until MaxBatch messages are held. When a fetch fails after
// messages were already taken, the reader is reset so they are delivered again.
func (c *Consumer) FetchBatch(ctx context.Context) ([]domain.Message, error) {
	r := c.current()
	msgs := make([]domain.Message, 0, c.cfg.MinBatch)

	for len(msgs) < c.cfg.MinBatch {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			return nil, c.fetchFailed(r, msgs, err)
		}
		msgs = append(msgs, toDomain(m))
	}

	lingerCtx, cancel := context.WithTimeout(ctx, c.cfg.Linger)
	defer cancel()

	for len(msgs) < c.cfg.MaxBatch {
		m, err := r.FetchMessage(lingerCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				break
			}
			return nil, c.fetchFailed(r, msgs, err)
		}
		msgs = append(msgs, toDomain(m))
	}

	return msgs, nil
}

func (c *Consumer) fetchFailed(r reader, msgs []domain.Message, err error) error {
	err = fmt.Errorf("fetch message: %w", err)
	if len(msgs) == 0 {
		return err
	}

	c.logger.Warn().Err(err).Int("messages", len(msgs)).Msg("fetch failed mid batch, reader reset")

	if closeErr := c.reset(r); closeErr != nil {
		return errors.Join(err, closeErr)
	}
	return err
}

// reset replaces the reader if it is still r. Reads made through r but not
// committed are delivered again by the new reader.
func (c *Consumer) reset(r reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reader != r {
		return nil
	}

	err := c.reader.Close()
	c.reader = c.newReader()
	if err != nil {
		return fmt.Errorf("close reader: %w", err)
	}
	return nil
}

// Commit stores the checkpoints as the group's committed offsets.
func (c *Consumer) Commit(ctx context.Context, checkpoints []domain.Checkpoint) error {
	if len(checkpoints) == 0 {
		return nil
	}

	msgs := make([]kafkago.Message, 0, len(checkpoints))
	for _, cp := range checkpoints {
		msgs = append(msgs, kafkago.Message{Topic: cp.Topic, Partition: int(cp.Partition), Offset: cp.Offset})
	}

	if err := c.current().CommitMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("commit offsets: %w", err)
	}

	return nil
}

// Reject drops the reader so the group resumes from the last committed
// offsets and the batch is delivered again.
func (c *Consumer) Reject(ctx context.Context, msgs []domain.Message) error {
	err := c.reset(c.current())

	c.logger.Warn().Int("messages", len(msgs)).Msg("batch rejected, reader reset")

	return err
}

func (c *Consumer) Close() error {
	return c.current().Close()
}

func toDomain(m kafkago.Message) domain.Message {
	var headers map[string]string
	if len(m.Headers) > 0 {
		headers = make(map[string]string, len(m.Headers))
		for _, h := range m.Headers {
			headers[h.Key] = string(h.Value)
		}
	}

	return domain.Message{
		Topic:     m.Topic,
		Partition: int32(m.Partition),
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Headers:   headers,
		Timestamp: m.Time,
	}
}
