package domain

import (
	"github.com/shopspring/decimal"
)

// SettlementDelay describes when a settlement model settles.
type SettlementDelay int

const (
	SettlementDelayImmediate SettlementDelay = 1
	SettlementDelayDeferred  SettlementDelay = 2
)

// LimitTypeNetDebitCap is the only limit type enforced on prepare.
const LimitTypeNetDebitCap = "NET_DEBIT_CAP"

// SettlementModel is read-only reference data. A nil Currency marks the default model.
type SettlementModel struct {
	ID                    int64
	Name                  string
	Currency              *string
	SettlementDelay       SettlementDelay
	LedgerAccountType     LedgerAccountType
	SettlementAccountType LedgerAccountType
	RequireLiquidityCheck bool
	IsActive              bool
}

// IsImmediate reports whether the model settles immediately.
func (m SettlementModel) IsImmediate() bool {
	return m.SettlementDelay == SettlementDelayImmediate
}

// IsDefault reports whether the model applies to every currency.
func (m SettlementModel) IsDefault() bool {
	return m.Currency == nil
}

// ResolveSettlementModel picks the active model for currency and ledger account type,
// falling back to the currency-agnostic default.
func ResolveSettlementModel(models []SettlementModel, currency string, accountType LedgerAccountType) (SettlementModel, error) {
	var fallback *SettlementModel

	for i := range models {
		m := models[i]
		if !m.IsActive || m.LedgerAccountType != accountType {
			continue
		}

		if m.Currency != nil && *m.Currency == currency {
			return m, nil
		}

		if m.IsDefault() && fallback == nil {
			fallback = &models[i]
		}
	}

	if fallback != nil {
		return *fallback, nil
	}

	return SettlementModel{}, ErrSettlementModelNotFound
}

// ParticipantLimit is the net debit cap configured for a position account.
type ParticipantLimit struct {
	ID                       int64
	ParticipantCurrencyID    int64
	LimitType                string
	Value                    decimal.Decimal
	ThresholdAlarmPercentage decimal.Decimal
}

// LimitAlarm is raised when the available position crosses the alarm threshold.
type LimitAlarm struct {
	ParticipantCurrencyID    int64
	ParticipantLimitID       int64
	LimitValue               decimal.Decimal
	ThresholdAlarmPercentage decimal.Decimal
	AvailablePosition        decimal.Decimal
	SettlementPosition       decimal.Decimal
	TransferID               string
}
