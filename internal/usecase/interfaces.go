package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goposition/internal/domain"
)

// PositionRepository is the write side of a batch. Every call of one batch
// must use the same transaction.
type PositionRepository interface {
	// LockPositionsForUpdate locks the positions of the given participant currency
	// accounts in ascending id order and returns them keyed by participant currency id.
	LockPositionsForUpdate(ctx context.Context, tx Transaction, participantCurrencyIDs []int64) (map[int64]*domain.ParticipantPosition, error)
	LatestStatesByTransferIDs(ctx context.Context, tx Transaction, transferIDs []string) (map[string]domain.TransferState, error)
	UpdatePosition(ctx context.Context, tx Transaction, positionID int64, value, reservedValue decimal.Decimal, changedAt time.Time) error
	// BulkInsertStateChanges returns the generated ids in insertion order.
	BulkInsertStateChanges(ctx context.Context, tx Transaction, rows []domain.TransferStateChange) ([]int64, error)
	BulkInsertPositionChanges(ctx context.Context, tx Transaction, rows []domain.PositionChange) error
}

// ReferenceDataRepository reads participant reference data owned by other services.
type ReferenceDataRepository interface {
	ListParticipantCurrencies(ctx context.Context) ([]domain.ParticipantCurrency, error)
	ListSettlementModels(ctx context.Context) ([]domain.SettlementModel, error)
	GetNetDebitCap(ctx context.Context, tx Transaction, participantCurrencyID int64) (*domain.ParticipantLimit, error)
}

// ReferenceInvalidator is implemented by reference data caches that can be
// dropped so the next read sees fresh rows.
type ReferenceInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier retries an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Consumer pulls batches from the position stream.
type Consumer interface {
	FetchBatch(ctx context.Context) ([]domain.Message, error)
	// Commit advances the stream past the given checkpoints.
	Commit(ctx context.Context, checkpoints []domain.Checkpoint) error
	// Reject hands the batch back to the broker for redelivery.
	Reject(ctx context.Context, msgs []domain.Message) error
	Close() error
}

// Producer writes records to the broker.
type Producer interface {
	Publish(ctx context.Context, msgs ...domain.OutboundMessage) error
	Close() error
}

// PublishError reports the records of one Publish call that were not written,
// keyed by their index in the call. Records missing from Failed were written.
type PublishError struct {
	Failed map[int]error
}

func (e *PublishError) Error() string {
	idx := e.Indexes()
	if len(idx) == 0 {
		return "publish failed"
	}
	return fmt.Sprintf("%d of the records failed, first at %d: %v", len(idx), idx[0], e.Failed[idx[0]])
}

// Indexes returns the failed record indexes in ascending order.
func (e *PublishError) Indexes() []int {
	idx := make([]int, 0, len(e.Failed))
	for i := range e.Failed {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// Unwrap exposes the per-record errors to errors.Is and errors.As.
func (e *PublishError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, i := range e.Indexes() {
		errs = append(errs, e.Failed[i])
	}
	return errs
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Timer measures one event from receipt to completion.
type Timer interface {
	ObserveDuration(success bool)
}

// Recorder is the metrics sink of the pipeline.
type Recorder interface {
	StartEventTimer() Timer
	ObserveBatch(outcome string, size int, elapsed time.Duration)
	RecordDecision(result string)
	RecordLimitAlarm()
}

// BinsProcessor applies a grouped batch under an open transaction.
type BinsProcessor interface {
	ProcessBins(ctx context.Context, tx Transaction, bins *Bins) (*BatchResult, error)
}

// OutcomePublisher republishes the outcome of a committed batch.
type OutcomePublisher interface {
	PublishOutcomes(ctx context.Context, result *BatchResult) error
}
