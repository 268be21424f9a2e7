package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/goposition/internal/domain"
	"github.com/iho/goposition/internal/infrastructure/postgres/generated"
	"github.com/iho/goposition/internal/usecase"
)

// ReferenceDataRepository implements usecase.ReferenceDataRepository.
// Directory reads go to the pool; the limit read joins the batch transaction.
type ReferenceDataRepository struct {
	queries *generated.Queries
}

// NewReferenceDataRepository creates a new ReferenceDataRepository.
func NewReferenceDataRepository(pool *pgxpool.Pool) *ReferenceDataRepository {
	return newReferenceDataRepository(pool)
}

func newReferenceDataRepository(db generated.DBTX) *ReferenceDataRepository {
	return &ReferenceDataRepository{queries: generated.New(db)}
}

// ListParticipantCurrencies returns every participant currency account.
func (r *ReferenceDataRepository) ListParticipantCurrencies(ctx context.Context) ([]domain.ParticipantCurrency, error) {
	rows, err := r.queries.ListParticipantCurrencies(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ParticipantCurrency, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ParticipantCurrency{
			ID:                row.ParticipantCurrencyID,
			ParticipantID:     row.ParticipantID,
			ParticipantName:   row.ParticipantName,
			Currency:          row.CurrencyID,
			LedgerAccountType: domain.LedgerAccountType(row.LedgerAccountTypeID),
			IsActive:          row.IsActive,
		})
	}

	return out, nil
}

// ListSettlementModels returns every settlement model.
func (r *ReferenceDataRepository) ListSettlementModels(ctx context.Context) ([]domain.SettlementModel, error) {
	rows, err := r.queries.ListSettlementModels(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SettlementModel, 0, len(rows))
	for _, row := range rows {
		m := domain.SettlementModel{
			ID:                    row.SettlementModelID,
			Name:                  row.Name,
			SettlementDelay:       domain.SettlementDelay(row.SettlementDelayID),
			LedgerAccountType:     domain.LedgerAccountType(row.LedgerAccountTypeID),
			SettlementAccountType: domain.LedgerAccountType(row.SettlementAccountTypeID),
			RequireLiquidityCheck: row.RequireLiquidityCheck,
			IsActive:              row.IsActive,
		}
		if row.CurrencyID.Valid {
			currency := row.CurrencyID.String
			m.Currency = &currency
		}
		out = append(out, m)
	}

	return out, nil
}

// GetNetDebitCap returns the active net debit cap of a participant currency.
func (r *ReferenceDataRepository) GetNetDebitCap(ctx context.Context, tx usecase.Transaction, participantCurrencyID int64) (*domain.ParticipantLimit, error) {
	queries := r.queries
	if tx != nil {
		q, err := queriesFor(tx)
		if err != nil {
			return nil, err
		}
		queries = q
	}

	row, err := queries.GetNetDebitCap(ctx, participantCurrencyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLimitNotFound
		}
		return nil, err
	}

	return &domain.ParticipantLimit{
		ID:                       row.ParticipantLimitID,
		ParticipantCurrencyID:    row.ParticipantCurrencyID,
		LimitType:                row.ParticipantLimitType,
		Value:                    numericToDecimal(row.Value),
		ThresholdAlarmPercentage: numericToDecimal(row.ThresholdAlarmPercentage),
	}, nil
}
