package kafka

import (
	"context"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/goposition/internal/domain"
	"github.com/iho/goposition/internal/usecase"
)

type fakeWriter struct {
	written []kafkago.Message
	err     error
	closed  bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishWritesRecords(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w)

	err := p.Publish(context.Background(),
		domain.OutboundMessage{
			Topic:   "topic-notification-event",
			Key:     []byte("t1"),
			Value:   []byte(`{"id":"t1"}`),
			Headers: map[string]string{"tracestate": "x", "traceparent": "00-abc"},
		},
		domain.OutboundMessage{Topic: topic, Key: []byte("7"), Value: []byte(`{}`)},
	)
	require.NoError(t, err)

	require.Len(t, w.written, 2)
	assert.Equal(t, "topic-notification-event", w.written[0].Topic)
	assert.Equal(t, "t1", string(w.written[0].Key))
	assert.Equal(t, []kafkago.Header{
		{Key: "traceparent", Value: []byte("00-abc")},
		{Key: "tracestate", Value: []byte("x")},
	}, w.written[0].Headers)
	assert.Nil(t, w.written[1].Headers)
}

func TestPublishNothing(t *testing.T) {
	w := &fakeWriter{err: errors.New("must not be called")}
	p := newProducer(w)

	require.NoError(t, p.Publish(context.Background()))
}

func TestPublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("not leader for partition")}
	p := newProducer(w)

	err := p.Publish(context.Background(), domain.OutboundMessage{Topic: topic})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not leader for partition")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishReportsPartialWrite(t *testing.T) {
	leaderErr := errors.New("not leader for partition")
	w := &fakeWriter{err: kafkago.WriteErrors{nil, leaderErr, nil}}
	p := newProducer(w)

	err := p.Publish(context.Background(),
		domain.OutboundMessage{Topic: topic},
		domain.OutboundMessage{Topic: topic},
		domain.OutboundMessage{Topic: topic},
	)

	var pubErr *usecase.PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, []int{1}, pubErr.Indexes())
	assert.ErrorIs(t, err, leaderErr)
}
