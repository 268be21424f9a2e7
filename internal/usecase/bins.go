package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iho/goposition/internal/domain"
	"github.com/iho/goposition/internal/infrastructure/tracing"
)

// BinItem is one consumed event together with its decoded payload and the
// span and timer opened for it.
type BinItem struct {
	Message    domain.Message
	AccountID  int64
	Action     domain.Action
	TransferID string
	Envelope   *domain.Envelope
	Prepare    *domain.PreparePayload
	// Invalid is set when the prepare parsed but failed validation. The
	// item is still binned so the request is rejected and answered.
	Invalid error
	Outcome *domain.Outcome

	ctx    context.Context
	span   trace.Span
	timer  Timer
	finish sync.Once
}

// Context returns the context carrying the item's span.
func (i *BinItem) Context() context.Context {
	return i.ctx
}

// Span returns the item's span.
func (i *BinItem) Span() trace.Span {
	return i.span
}

// Finish ends the span and stops the timer. Only the first call has an effect.
func (i *BinItem) Finish(err error) {
	i.finish.Do(func() {
		switch {
		case err != nil:
			tracing.HandleSpanError(i.span, "transfer position failed", err)
		case i.Outcome != nil:
			i.span.SetAttributes(
				attribute.Bool("accepted", i.Outcome.Accepted),
				attribute.String("transfer_state", string(i.Outcome.State)),
			)
			if i.Outcome.Error != nil {
				i.span.SetAttributes(attribute.Int("error_code", i.Outcome.Error.Code))
			}
		default:
			i.span.SetAttributes(attribute.String("action_kind", i.Action.Kind().String()))
		}
		i.span.End()
		if i.timer != nil {
			i.timer.ObserveDuration(err == nil)
		}
	})
}

type partitionKey struct {
	topic     string
	partition int32
}

// Bins groups one batch by account id then action. A Bins value belongs to a
// single batch and is never shared.
type Bins struct {
	ID string

	accounts    map[int64]map[domain.Action][]*BinItem
	items       []*BinItem
	rejected    []*BinItem
	checkpoints map[partitionKey]domain.Checkpoint
}

func newBins(id string) *Bins {
	return &Bins{
		ID:          id,
		accounts:    make(map[int64]map[domain.Action][]*BinItem),
		checkpoints: make(map[partitionKey]domain.Checkpoint),
	}
}

func (b *Bins) add(item *BinItem) {
	actions := b.accounts[item.AccountID]
	if actions == nil {
		actions = make(map[domain.Action][]*BinItem)
		b.accounts[item.AccountID] = actions
	}
	actions[item.Action] = append(actions[item.Action], item)
	b.items = append(b.items, item)
}

func (b *Bins) track(msg domain.Message) {
	key := partitionKey{topic: msg.Topic, partition: msg.Partition}
	if cp, ok := b.checkpoints[key]; ok && cp.Offset >= msg.Offset {
		return
	}
	b.checkpoints[key] = domain.Checkpoint{Topic: msg.Topic, Partition: msg.Partition, Offset: msg.Offset}
}

// Empty reports whether no item could be binned.
func (b *Bins) Empty() bool {
	return len(b.items) == 0
}

// Len returns the number of binned items.
func (b *Bins) Len() int {
	return len(b.items)
}

// AccountIDs returns the distinct account ids in ascending order.
func (b *Bins) AccountIDs() []int64 {
	ids := make([]int64, 0, len(b.accounts))
	for id := range b.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Actions returns the actions present for an account in a stable order.
func (b *Bins) Actions(accountID int64) []domain.Action {
	actions := make([]domain.Action, 0, len(b.accounts[accountID]))
	for a := range b.accounts[accountID] {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// Items returns the items of one account and action in arrival order.
func (b *Bins) Items(accountID int64, action domain.Action) []*BinItem {
	return b.accounts[accountID][action]
}

// All returns every binned item in arrival order.
func (b *Bins) All() []*BinItem {
	return b.items
}

// TransferIDs returns every distinct transfer id referenced by the batch.
func (b *Bins) TransferIDs() []string {
	seen := make(map[string]struct{}, len(b.items))
	ids := make([]string, 0, len(b.items))
	for _, item := range b.items {
		if item.TransferID == "" {
			continue
		}
		if _, ok := seen[item.TransferID]; ok {
			continue
		}
		seen[item.TransferID] = struct{}{}
		ids = append(ids, item.TransferID)
	}
	return ids
}

// Checkpoints returns the highest message seen per partition, ordered by topic and partition.
func (b *Bins) Checkpoints() []domain.Checkpoint {
	out := make([]domain.Checkpoint, 0, len(b.checkpoints))
	for _, cp := range b.checkpoints {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Topic != out[j].Topic {
			return out[i].Topic < out[j].Topic
		}
		return out[i].Partition < out[j].Partition
	})
	return out
}

// Each calls fn for every binned item. A failing item is reported through
// onErr and iteration continues.
func (b *Bins) Each(fn func(*BinItem) error, onErr func(*BinItem, error)) {
	for _, item := range b.items {
		if err := fn(item); err != nil && onErr != nil {
			onErr(item, err)
		}
	}
}

// Rejected returns the messages that could not be decoded. Their spans and
// timers are already finished.
func (b *Bins) Rejected() []*BinItem {
	return b.rejected
}

// Finish finishes the span and timer of every binned item.
func (b *Bins) Finish(err error) {
	for _, item := range b.items {
		item.Finish(err)
	}
}

// BinBuilder groups a consumed batch into bins.
type BinBuilder struct {
	tracer   trace.Tracer
	recorder Recorder
	logger   zerolog.Logger
}

// NewBinBuilder creates a new BinBuilder.
func NewBinBuilder(tracer trace.Tracer, recorder Recorder, logger zerolog.Logger) *BinBuilder {
	if tracer == nil {
		tracer = otel.Tracer("github.com/iho/goposition/usecase")
	}
	return &BinBuilder{tracer: tracer, recorder: recorder, logger: logger}
}

type decoded struct {
	item *BinItem
	err  error
}

// Build classifies every message. Decoding and span creation run concurrently;
// items are then binned sequentially so arrival order is preserved. A message
// that cannot be decoded is reported through onErr and left out of the bins.
func (bb *BinBuilder) Build(ctx context.Context, msgs []domain.Message, onErr func(*BinItem, error)) *Bins {
	bins := newBins(BinID(msgs))

	results := iter.Map(msgs, func(msg *domain.Message) decoded {
		return bb.decode(ctx, bins.ID, *msg)
	})

	for i, r := range results {
		bins.track(msgs[i])

		if r.err != nil {
			r.item.Finish(r.err)
			bins.rejected = append(bins.rejected, r.item)
			if onErr != nil {
				onErr(r.item, r.err)
			}
			continue
		}

		bins.add(r.item)
	}

	return bins
}

func (bb *BinBuilder) decode(ctx context.Context, binID string, msg domain.Message) decoded {
	parent := tracing.ExtractQueueTraceContext(ctx, msg.Headers)
	spanCtx, span := bb.tracer.Start(parent, SpanTransferPosition, trace.WithAttributes(
		attribute.Bool("processed_as_batch", true),
		attribute.String("bin_id", binID),
		attribute.String("topic", msg.Topic),
		attribute.Int64("partition", int64(msg.Partition)),
		attribute.Int64("offset", msg.Offset),
	))

	item := &BinItem{Message: msg, ctx: spanCtx, span: span}
	if bb.recorder != nil {
		item.timer = bb.recorder.StartEventTimer()
	}

	accountID, err := parseAccountID(msg.Key)
	if err != nil {
		return decoded{item: item, err: err}
	}
	item.AccountID = accountID

	env, err := domain.DecodeEnvelope(msg.Value)
	if err != nil {
		return decoded{item: item, err: err}
	}
	item.Envelope = env
	item.Action = env.Metadata.Event.Action
	span.SetAttributes(attribute.String("action", string(item.Action)))

	if !item.Action.Known() {
		return decoded{item: item, err: fmt.Errorf("%w: %q", domain.ErrUnknownAction, item.Action)}
	}

	switch item.Action.Kind() {
	case domain.ActionKindPrepare:
		p, err := env.DecodePrepare()
		if err != nil {
			return decoded{item: item, err: err}
		}
		item.Prepare = p
		item.TransferID = p.TransferID
		item.Invalid = p.Validate()
		if item.Invalid != nil {
			span.SetAttributes(attribute.String("validation_error", item.Invalid.Error()))
		}
	default:
		item.TransferID = env.Content.URIParams["id"]
		if item.TransferID == "" {
			item.TransferID = env.ID
		}
	}

	span.SetAttributes(attribute.String("transfer_id", item.TransferID))

	return decoded{item: item}
}

func parseAccountID(key []byte) (int64, error) {
	if len(key) == 0 {
		return 0, domain.ErrMissingRoutingKey
	}
	id, err := strconv.ParseInt(string(key), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrAccountNotResolved, key)
	}
	return id, nil
}

// BinID identifies a batch by its first and last offsets.
func BinID(msgs []domain.Message) string {
	if len(msgs) == 0 {
		return "-"
	}
	return fmt.Sprintf("%d-%d", msgs[0].Offset, msgs[len(msgs)-1].Offset)
}

// IsIntegrityFault reports whether err aborts a batch because of reference data.
func IsIntegrityFault(err error) bool {
	return errors.Is(err, domain.ErrAccountNotResolved) ||
		errors.Is(err, domain.ErrSettlementModelNotFound) ||
		errors.Is(err, domain.ErrSettlementAccountNotFound) ||
		errors.Is(err, domain.ErrPositionNotFound) ||
		errors.Is(err, domain.ErrLimitNotFound)
}
