package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/iho/goposition/internal/domain"
	"github.com/iho/goposition/internal/usecase"
)

type msgPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Producer publishes outbound records to JetStream subjects named after their topic.
type Producer struct {
	js msgPublisher
}

var _ usecase.Producer = (*Producer)(nil)

// NewProducer creates a new Producer.
func NewProducer(js jetstream.JetStream) *Producer {
	return &Producer{js: js}
}

// Publish sends msgs in order and waits for each stream ack. It stops at the
// first failure; that record and every later one are reported as failed.
func (p *Producer) Publish(ctx context.Context, msgs ...domain.OutboundMessage) error {
	for i, m := range msgs {
		out := nats.NewMsg(m.Topic)
		out.Data = m.Value
		for k, v := range m.Headers {
			out.Header.Set(k, v)
		}
		if len(m.Key) > 0 {
			out.Header.Set(HeaderRoutingKey, string(m.Key))
		}

		if _, err := p.js.PublishMsg(ctx, out); err != nil {
			failed := make(map[int]error, len(msgs)-i)
			failed[i] = fmt.Errorf("publish %s: %w", m.Topic, err)
			for j := i + 1; j < len(msgs); j++ {
				failed[j] = fmt.Errorf("publish %s: not attempted", msgs[j].Topic)
			}
			return &usecase.PublishError{Failed: failed}
		}
	}

	return nil
}

// Close is a no-op; the connection is owned by the caller.
func (p *Producer) Close() error {
	return nil
}
