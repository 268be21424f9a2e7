package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goposition/internal/domain"
	"github.com/iho/goposition/internal/infrastructure/postgres/generated"
	"github.com/iho/goposition/internal/usecase"
)

// PositionRepository implements usecase.PositionRepository. Every method
// runs on the batch transaction.
type PositionRepository struct{}

// NewPositionRepository creates a new PositionRepository.
func NewPositionRepository() *PositionRepository {
	return &PositionRepository{}
}

func queriesFor(tx usecase.Transaction) (*generated.Queries, error) {
	pgxTx, err := pgxTxOf(tx)
	if err != nil {
		return nil, err
	}
	return generated.New(pgxTx), nil
}

// LockPositionsForUpdate locks the position rows of the given participant
// currencies. Rows are locked in ascending participant currency id order so
// concurrent batches cannot deadlock on each other.
func (r *PositionRepository) LockPositionsForUpdate(ctx context.Context, tx usecase.Transaction, participantCurrencyIDs []int64) (map[int64]*domain.ParticipantPosition, error) {
	out := make(map[int64]*domain.ParticipantPosition, len(participantCurrencyIDs))
	if len(participantCurrencyIDs) == 0 {
		return out, nil
	}

	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	rows, err := queries.LockParticipantPositions(ctx, participantCurrencyIDs)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[row.ParticipantCurrencyID] = rowToPosition(row)
	}

	return out, nil
}

// LatestStatesByTransferIDs returns the most recent state of each transfer.
// Transfers without any state change are absent from the result.
func (r *PositionRepository) LatestStatesByTransferIDs(ctx context.Context, tx usecase.Transaction, transferIDs []string) (map[string]domain.TransferState, error) {
	out := make(map[string]domain.TransferState, len(transferIDs))
	if len(transferIDs) == 0 {
		return out, nil
	}

	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	rows, err := queries.LatestTransferStates(ctx, transferIDs)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[row.TransferID] = domain.TransferState(row.TransferStateID)
	}

	return out, nil
}

// UpdatePosition writes the new value of a position.
func (r *PositionRepository) UpdatePosition(ctx context.Context, tx usecase.Transaction, positionID int64, value, reservedValue decimal.Decimal, changedAt time.Time) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	return queries.UpdateParticipantPosition(ctx, generated.UpdateParticipantPositionParams{
		ParticipantPositionID: positionID,
		Value:                 decimalToNumeric(value),
		ReservedValue:         decimalToNumeric(reservedValue),
		ChangedDate:           timeToPgTimestamptz(changedAt),
	})
}

// BulkInsertStateChanges inserts the rows in one round trip and returns their
// ids in insertion order.
func (r *PositionRepository) BulkInsertStateChanges(ctx context.Context, tx usecase.Transaction, rows []domain.TransferStateChange) ([]int64, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	params := make([]generated.InsertTransferStateChangeParams, len(rows))
	for i, row := range rows {
		params[i] = generated.InsertTransferStateChangeParams{
			TransferID:      row.TransferID,
			TransferStateID: string(row.TransferStateID),
			Reason:          textOrNull(row.Reason),
			CreatedDate:     timeToPgTimestamptz(row.CreatedDate),
		}
	}

	ids := make([]int64, len(rows))
	var batchErr error
	queries.InsertTransferStateChange(ctx, params).QueryRow(func(i int, id int64, err error) {
		if err != nil {
			if batchErr == nil {
				batchErr = fmt.Errorf("row %d: %w", i, err)
			}
			return
		}
		ids[i] = id
	})
	if batchErr != nil {
		return nil, batchErr
	}

	return ids, nil
}

// BulkInsertPositionChanges copies the rows into participant_position_change.
func (r *PositionRepository) BulkInsertPositionChanges(ctx context.Context, tx usecase.Transaction, rows []domain.PositionChange) error {
	if len(rows) == 0 {
		return nil
	}

	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	params := make([]generated.InsertParticipantPositionChangesParams, len(rows))
	for i, row := range rows {
		params[i] = generated.InsertParticipantPositionChangesParams{
			ParticipantPositionID: row.ParticipantPositionID,
			ParticipantCurrencyID: row.ParticipantCurrencyID,
			TransferID:            row.TransferID,
			TransferStateChangeID: row.TransferStateChangeID,
			Value:                 decimalToNumeric(row.Value),
			Change:                decimalToNumeric(row.Change),
			ReservedValue:         decimalToNumeric(row.ReservedValue),
			CreatedDate:           timeToPgTimestamptz(row.CreatedDate),
		}
	}

	n, err := queries.InsertParticipantPositionChanges(ctx, params)
	if err != nil {
		return err
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("copied %d of %d position changes", n, len(rows))
	}

	return nil
}

func rowToPosition(row generated.ParticipantPosition) *domain.ParticipantPosition {
	return &domain.ParticipantPosition{
		ID:                    row.ParticipantPositionID,
		ParticipantCurrencyID: row.ParticipantCurrencyID,
		Value:                 numericToDecimal(row.Value),
		ReservedValue:         numericToDecimal(row.ReservedValue),
		ChangedDate:           row.ChangedDate.Time,
	}
}
