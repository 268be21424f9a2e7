package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerAccountType identifies the purpose of a participant currency account.
type LedgerAccountType int

const (
	LedgerAccountTypePosition          LedgerAccountType = 1
	LedgerAccountTypeSettlement        LedgerAccountType = 2
	LedgerAccountTypeHubReconciliation LedgerAccountType = 3
	LedgerAccountTypeHubMultilateral   LedgerAccountType = 4
	LedgerAccountTypeInterchangeFee    LedgerAccountType = 5
)

// ParticipantCurrency is an entry of the account directory. Its ID is the
// routing key of inbound position events.
type ParticipantCurrency struct {
	ID                int64
	ParticipantID     int64
	ParticipantName   string
	Currency          string
	LedgerAccountType LedgerAccountType
	IsActive          bool
}

// ParticipantPosition is the live position of one participant currency account.
// Negative values mean the participant is able to send funds.
type ParticipantPosition struct {
	ID                    int64
	ParticipantCurrencyID int64
	Value                 decimal.Decimal
	ReservedValue         decimal.Decimal
	ChangedDate           time.Time
}

// Effective returns value plus reserved value.
func (p ParticipantPosition) Effective() decimal.Decimal {
	return p.Value.Add(p.ReservedValue)
}

// PositionChange is an append-only ledger entry linking a position movement
// to the state change that caused it.
type PositionChange struct {
	ID                    int64
	ParticipantPositionID int64
	ParticipantCurrencyID int64
	TransferStateChangeID int64
	TransferID            string
	Value                 decimal.Decimal
	Change                decimal.Decimal
	ReservedValue         decimal.Decimal
	CreatedDate           time.Time
}
