package nats

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

type fakeMsg struct {
	jetstream.Msg

	subject string
	seq     uint64
	data    []byte
	headers nats.Header
	noMeta  bool

	mu     sync.Mutex
	acked  bool
	naked  bool
	termed bool
	ackErr error
}

func newFakeMsg(subject string, seq uint64, key string) *fakeMsg {
	h := nats.Header{}
	h.Set("traceparent", "00-abc")
	if key != "" {
		h.Set(HeaderRoutingKey, key)
	}
	return &fakeMsg{subject: subject, seq: seq, data: []byte(`{}`), headers: h}
}

func (m *fakeMsg) Metadata() (*jetstream.MsgMetadata, error) {
	if m.noMeta {
		return nil, errors.New("not a jetstream message")
	}
	return &jetstream.MsgMetadata{
		Sequence:  jetstream.SequencePair{Stream: m.seq, Consumer: m.seq},
		Timestamp: time.Unix(1700000000, 0),
	}, nil
}

func (m *fakeMsg) Data() []byte         { return m.data }
func (m *fakeMsg) Headers() nats.Header { return m.headers }
func (m *fakeMsg) Subject() string      { return m.subject }

func (m *fakeMsg) DoubleAck(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ackErr != nil {
		return m.ackErr
	}
	m.acked = true
	return nil
}

func (m *fakeMsg) Nak() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.naked = true
	return nil
}

func (m *fakeMsg) Term() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.termed = true
	return nil
}

type fakeBatch struct {
	msgs chan jetstream.Msg
	err  error
}

func (b *fakeBatch) Messages() <-chan jetstream.Msg { return b.msgs }
func (b *fakeBatch) Error() error                   { return b.err }

// fakeFetcher serves one scripted pull per Fetch call, then empty pulls.
type fakeFetcher struct {
	pulls    [][]*fakeMsg
	pullErrs []error
	fetchErr error
	asked    []int
}

func (f *fakeFetcher) Fetch(batch int, opts ...jetstream.FetchOpt) (jetstream.MessageBatch, error) {
	f.asked = append(f.asked, batch)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	var msgs []*fakeMsg
	var err error
	if len(f.pulls) > 0 {
		msgs = f.pulls[0]
		f.pulls = f.pulls[1:]
	} else {
		err = jetstream.ErrNoMessages
	}
	if len(f.pullErrs) > 0 {
		err = f.pullErrs[0]
		f.pullErrs = f.pullErrs[1:]
	}

	ch := make(chan jetstream.Msg, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)

	return &fakeBatch{msgs: ch, err: err}, nil
}

type fakePublisher struct {
	published []*nats.Msg
	err       error
	// okBefore lets that many publishes succeed before err is returned.
	okBefore int
}

func (p *fakePublisher) PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if p.err != nil && len(p.published) >= p.okBefore {
		return nil, p.err
	}
	p.published = append(p.published, msg)
	return &jetstream.PubAck{Stream: "POSITIONS", Sequence: uint64(len(p.published))}, nil
}
