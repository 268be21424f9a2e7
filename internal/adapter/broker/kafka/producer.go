package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/iho/goposition/internal/domain"
	"github.com/iho/goposition/internal/usecase"
)

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// ProducerConfig configures a Producer.
type ProducerConfig struct {
	Brokers      []string
	ClientID     string
	BatchTimeout time.Duration
}

// Producer writes outbound records. Records with the same key land on the
// same partition.
type Producer struct {
	writer writer
}

var _ usecase.Producer = (*Producer)(nil)

// NewProducer creates a Producer backed by a kafka-go writer.
func NewProducer(cfg ProducerConfig) *Producer {
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}

	return &Producer{writer: &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: cfg.BatchTimeout,
		Transport:    &kafkago.Transport{ClientID: cfg.ClientID},
	}}
}

func newProducer(w writer) *Producer {
	return &Producer{writer: w}
}

// Publish writes msgs in one synchronous call.
func (p *Producer) Publish(ctx context.Context, msgs ...domain.OutboundMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	out := make([]kafkago.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, kafkago.Message{
			Topic:   m.Topic,
			Key:     m.Key,
			Value:   m.Value,
			Headers: toHeaders(m.Headers),
		})
	}

	if err := p.writer.WriteMessages(ctx, out...); err != nil {
		var writeErrs kafkago.WriteErrors
		if errors.As(err, &writeErrs) {
			return fmt.Errorf("write %d messages: %w", len(out), partialWriteError(writeErrs))
		}
		return fmt.Errorf("write %d messages: %w", len(out), err)
	}

	return nil
}

// partialWriteError keeps the indexes kafka-go reported as failed. A nil entry
// means that message was written.
func partialWriteError(writeErrs kafkago.WriteErrors) *usecase.PublishError {
	failed := make(map[int]error)
	for i, err := range writeErrs {
		if err != nil {
			failed[i] = err
		}
	}
	return &usecase.PublishError{Failed: failed}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func toHeaders(h map[string]string) []kafkago.Header {
	if len(h) == 0 {
		return nil
	}

	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]kafkago.Header, 0, len(keys))
	for _, k := range keys {
		out = append(out, kafkago.Header{Key: k, Value: []byte(h[k])})
	}
	return out
}
