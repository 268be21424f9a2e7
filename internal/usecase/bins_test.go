package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/iho/goposition/internal/domain"
	"github.com/iho/goposition/internal/usecase"
)

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestBinBuilder_GroupsByAccountAndAction(t *testing.T) {
	f := newFixture(t, domain.SettlementDelayDeferred)

	t1, t2, t3 := uuid.NewString(), uuid.NewString(), uuid.NewString()
	msgs := []domain.Message{
		prepareMessage(0, 100, usdPosition, t1, "5", "USD"),
		prepareMessage(0, 101, xofPosition, t2, "7", "XOF"),
		actionMessage(domain.ActionCommit, 0, 102, usdPosition, uuid.NewString()),
		prepareMessage(0, 103, usdPosition, t3, "9", "USD"),
	}

	bins := f.builder.Build(context.Background(), msgs, nil)

	assert.Equal(t, "100-103", bins.ID)
	assert.Equal(t, 4, bins.Len())
	assert.False(t, bins.Empty())
	assert.Equal(t, []int64{usdPosition, xofPosition}, bins.AccountIDs())
	assert.Equal(t, []domain.Action{domain.ActionCommit, domain.ActionPrepare}, bins.Actions(usdPosition))

	prepares := bins.Items(usdPosition, domain.ActionPrepare)
	require.Len(t, prepares, 2)
	assert.Equal(t, t1, prepares[0].TransferID)
	assert.Equal(t, t3, prepares[1].TransferID)
	assert.Equal(t, "9", prepares[1].Prepare.Amount.Amount.String())

	require.Len(t, bins.Items(xofPosition, domain.ActionPrepare), 1)
	assert.Empty(t, bins.Items(xofPosition, domain.ActionCommit))
}

func TestBinBuilder_TransferIDsDistinct(t *testing.T) {
	f := newFixture(t, domain.SettlementDelayDeferred)

	id := uuid.NewString()
	msgs := []domain.Message{
		prepareMessage(0, 1, usdPosition, id, "5", "USD"),
		prepareMessage(0, 2, usdPosition, id, "5", "USD"),
		actionMessage(domain.ActionCommit, 0, 3, usdPosition, "other"),
	}

	bins := f.builder.Build(context.Background(), msgs, nil)
	assert.Equal(t, []string{id, "other"}, bins.TransferIDs())
}

func TestBinBuilder_CheckpointsPerPartition(t *testing.T) {
	f := newFixture(t, domain.SettlementDelayDeferred)

	msgs := []domain.Message{
		prepareMessage(1, 40, usdPosition, uuid.NewString(), "1", "USD"),
		prepareMessage(0, 7, usdPosition, uuid.NewString(), "1", "USD"),
		prepareMessage(1, 42, usdPosition, uuid.NewString(), "1", "USD"),
		prepareMessage(0, 9, usdPosition, uuid.NewString(), "1", "USD"),
		prepareMessage(1, 41, usdPosition, uuid.NewString(), "1", "USD"),
	}

	bins := f.builder.Build(context.Background(), msgs, nil)

	assert.Equal(t, []domain.Checkpoint{
		{Topic: positionTopic, Partition: 0, Offset: 9},
		{Topic: positionTopic, Partition: 1, Offset: 42},
	}, bins.Checkpoints())
}

func TestBinBuilder_DecodeFailures(t *testing.T) {
	f := newFixture(t, domain.SettlementDelayDeferred)

	good := prepareMessage(0, 1, usdPosition, uuid.NewString(), "5", "USD")
	noKey := prepareMessage(0, 2, usdPosition, uuid.NewString(), "5", "USD")
	noKey.Key = nil
	garbage := domain.Message{Topic: positionTopic, Offset: 3, Key: []byte("10"), Value: []byte("{not json")}
	badAmount := prepareMessage(0, 4, usdPosition, uuid.NewString(), "-5", "USD")
	badKey := prepareMessage(0, 5, usdPosition, uuid.NewString(), "5", "USD")
	badKey.Key = []byte("dfsp1")
	badID := prepareMessage(0, 6, usdPosition, "nope", "5", "USD")
	unknown := actionMessage(domain.Action("settle"), 0, 7, usdPosition, uuid.NewString())

	var (
		mu     sync.Mutex
		failed = map[int64]error{}
	)
	bins := f.builder.Build(context.Background(), []domain.Message{good, noKey, garbage, badAmount, badKey, badID, unknown}, func(item *usecase.BinItem, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed[item.Message.Offset] = err
	})

	require.Len(t, failed, 5)
	assert.ErrorIs(t, failed[2], domain.ErrMissingRoutingKey)
	assert.Error(t, failed[3])
	assert.ErrorIs(t, failed[5], domain.ErrAccountNotResolved)
	assert.ErrorIs(t, failed[6], domain.ErrInvalidTransferID)
	assert.ErrorIs(t, failed[7], domain.ErrUnknownAction)
	assert.Len(t, bins.Rejected(), 5)

	// A prepare that parses but fails validation is binned so it can be answered.
	require.Equal(t, 2, bins.Len())
	items := bins.Items(usdPosition, domain.ActionPrepare)
	require.Len(t, items, 2)
	assert.NoError(t, items[0].Invalid)
	assert.ErrorIs(t, items[1].Invalid, domain.ErrInvalidAmount)
	assert.Equal(t, int64(4), items[1].Message.Offset)

	assert.Equal(t, []domain.Checkpoint{{Topic: positionTopic, Partition: 0, Offset: 7}}, bins.Checkpoints(),
		"undecodable messages still advance the checkpoint")

	assert.Equal(t, 7, f.recorder.Started)
	assert.Equal(t, 5, f.recorder.Failed)
	assert.Len(t, f.spans.Ended(), 5, "rejected spans end immediately")
}

func TestBinBuilder_AcceptsULIDTransferIDs(t *testing.T) {
	f := newFixture(t, domain.SettlementDelayDeferred)

	id := ulid.Make().String()
	bins := f.builder.Build(context.Background(), []domain.Message{
		prepareMessage(0, 1, usdPosition, id, "5", "USD"),
	}, nil)
	defer bins.Finish(nil)

	require.Equal(t, 1, bins.Len())
	item := bins.All()[0]
	assert.Equal(t, id, item.TransferID)
	assert.NoError(t, item.Invalid)
}

func TestBinBuilder_AllUndecodableIsEmpty(t *testing.T) {
	f := newFixture(t, domain.SettlementDelayDeferred)

	msgs := []domain.Message{
		{Topic: positionTopic, Offset: 1, Key: []byte("10"), Value: []byte("nope")},
		{Topic: positionTopic, Offset: 2, Value: []byte("{}")},
	}

	bins := f.builder.Build(context.Background(), msgs, nil)
	assert.True(t, bins.Empty())
	assert.Len(t, bins.Rejected(), 2)
}

func TestBinBuilder_Spans(t *testing.T) {
	f := newFixture(t, domain.SettlementDelayDeferred)

	id := uuid.NewString()
	bins := f.builder.Build(context.Background(), []domain.Message{
		prepareMessage(3, 77, usdPosition, id, "5", "USD"),
	}, nil)
	require.Empty(t, f.spans.Ended())

	bins.Finish(nil)
	bins.Finish(errors.New("ignored, already finished"))

	spans := f.spans.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, usecase.SpanTransferPosition, span.Name())
	assert.Equal(t, codes.Unset, span.Status().Code)

	v, ok := spanAttr(span, "processed_as_batch")
	require.True(t, ok)
	assert.True(t, v.AsBool())
	v, _ = spanAttr(span, "bin_id")
	assert.Equal(t, "77-77", v.AsString())
	v, _ = spanAttr(span, "transfer_id")
	assert.Equal(t, id, v.AsString())
	v, _ = spanAttr(span, "partition")
	assert.Equal(t, int64(3), v.AsInt64())

	assert.Equal(t, 1, f.recorder.Succeeded)
	assert.Equal(t, 0, f.recorder.Failed)
}

func TestBinBuilder_FinishWithError(t *testing.T) {
	f := newFixture(t, domain.SettlementDelayDeferred)

	bins := f.builder.Build(context.Background(), f.prepares(usdPosition, "USD", 0, "1", "2"), nil)
	bins.Finish(errors.New("boom"))

	spans := f.spans.Ended()
	require.Len(t, spans, 2)
	for _, s := range spans {
		assert.Equal(t, codes.Error, s.Status().Code)
	}
	assert.Equal(t, 2, f.recorder.Failed)
}

func TestBinBuilder_ExtractsParentTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	f := newFixture(t, domain.SettlementDelayDeferred)

	msg := prepareMessage(0, 1, usdPosition, uuid.NewString(), "1", "USD")
	msg.Headers = map[string]string{
		"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}

	bins := f.builder.Build(context.Background(), []domain.Message{msg}, nil)
	bins.Finish(nil)

	spans := f.spans.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
}

func TestBins_Each(t *testing.T) {
	f := newFixture(t, domain.SettlementDelayDeferred)

	bins := f.builder.Build(context.Background(), f.prepares(usdPosition, "USD", 0, "1", "2", "3"), nil)

	var visited, failed int
	bins.Each(func(item *usecase.BinItem) error {
		visited++
		if item.Message.Offset == 1 {
			return errors.New("bad item")
		}
		return nil
	}, func(item *usecase.BinItem, err error) {
		failed++
		assert.Equal(t, int64(1), item.Message.Offset)
	})

	assert.Equal(t, 3, visited)
	assert.Equal(t, 1, failed)
}

func TestBinID(t *testing.T) {
	assert.Equal(t, "-", usecase.BinID(nil))
	assert.Equal(t, "5-9", usecase.BinID([]domain.Message{{Offset: 5}, {Offset: 7}, {Offset: 9}}))
}

func TestIsIntegrityFault(t *testing.T) {
	assert.True(t, usecase.IsIntegrityFault(domain.ErrPositionNotFound))
	assert.True(t, usecase.IsIntegrityFault(errors.Join(errors.New("ctx"), domain.ErrLimitNotFound)))
	assert.False(t, usecase.IsIntegrityFault(errors.New("connection reset")))
}
