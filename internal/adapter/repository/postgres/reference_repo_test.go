package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/goposition/internal/domain"
)

func TestListParticipantCurrencies(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM participant_currency pc").
		WillReturnRows(pgxmock.NewRows([]string{"participant_currency_id", "participant_id", "participant_name", "currency_id", "ledger_account_type_id", "is_active"}).
			AddRow(int64(10), int64(1), "dfsp1", "USD", int16(1), true).
			AddRow(int64(11), int64(1), "dfsp1", "USD", int16(2), false))

	got, err := newReferenceDataRepository(pool).ListParticipantCurrencies(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].LedgerAccountType != domain.LedgerAccountTypePosition || got[0].ParticipantName != "dfsp1" || !got[0].IsActive {
		t.Errorf("unexpected first row: %+v", got[0])
	}
	if got[1].LedgerAccountType != domain.LedgerAccountTypeSettlement || got[1].IsActive {
		t.Errorf("unexpected second row: %+v", got[1])
	}

	assertExpectations(t, pool)
}

func TestListSettlementModels(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM settlement_model").
		WillReturnRows(pgxmock.NewRows([]string{"settlement_model_id", "name", "currency_id", "settlement_delay_id", "ledger_account_type_id", "settlement_account_type_id", "require_liquidity_check", "is_active"}).
			AddRow(int64(1), "DEFAULTDEFERREDNET", nil, int16(2), int16(1), int16(2), true, true).
			AddRow(int64(2), "XOFRTGS", "XOF", int16(1), int16(1), int16(2), true, true))

	got, err := newReferenceDataRepository(pool).ListSettlementModels(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got[0].Currency != nil || !got[0].IsDefault() {
		t.Errorf("first model should be the default: %+v", got[0])
	}
	if got[1].Currency == nil || *got[1].Currency != "XOF" || !got[1].IsImmediate() {
		t.Errorf("unexpected second model: %+v", got[1])
	}

	assertExpectations(t, pool)
}

func TestGetNetDebitCap(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM participant_limit").
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"participant_limit_id", "participant_currency_id", "participant_limit_type", "value", "threshold_alarm_percentage"}).
			AddRow(int64(7), int64(10), domain.LimitTypeNetDebitCap, "1000", "10"))

	got, err := newReferenceDataRepository(pool).GetNetDebitCap(context.Background(), nil, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ID != 7 || !got.Value.Equal(decimal.NewFromInt(1000)) || !got.ThresholdAlarmPercentage.Equal(decimal.NewFromInt(10)) {
		t.Errorf("unexpected limit: %+v", got)
	}

	assertExpectations(t, pool)
}

func TestGetNetDebitCapInTransaction(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	pool.ExpectQuery("FROM participant_limit").
		WithArgs(int64(10)).
		WillReturnError(pgx.ErrNoRows)

	_, err := newReferenceDataRepository(pool).GetNetDebitCap(context.Background(), tx, 10)
	if !errors.Is(err, domain.ErrLimitNotFound) {
		t.Fatalf("expected ErrLimitNotFound, got %v", err)
	}

	assertExpectations(t, pool)
}
