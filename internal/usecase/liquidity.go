package usecase

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goposition/internal/domain"
)

// PrepareRequest is one pending prepare of an account, in arrival order.
type PrepareRequest struct {
	TransferID string
	Amount     decimal.Decimal
	// Invalid rejects the request without touching liquidity.
	Invalid error
}

// PrepareBinInput is everything the liquidity check needs for one account.
type PrepareBinInput struct {
	Requests        []PrepareRequest
	Position        domain.ParticipantPosition
	TransferStates  map[string]domain.TransferState
	SettlementModel domain.SettlementModel
	Limit           domain.ParticipantLimit
	// SettlementPosition is the value of the linked settlement account. It only
	// adds to liquidity under an immediate settlement model.
	SettlementPosition decimal.Decimal
	Now                time.Time
}

// PrepareDecision is the result for one request.
type PrepareDecision struct {
	TransferID        string
	Accepted          bool
	PreviousState     domain.TransferState
	State             domain.TransferState
	Error             *domain.APIError
	AvailablePosition decimal.Decimal
}

// PrepareBinDecision is the accumulated result for one account. StateChanges,
// PositionChanges and Decisions are index-aligned with the requests.
type PrepareBinDecision struct {
	AvailablePosition decimal.Decimal
	PositionValue     decimal.Decimal
	ReservedValue     decimal.Decimal
	TransferStates    map[string]domain.TransferState
	StateChanges      []domain.TransferStateChange
	PositionChanges   []domain.PositionChange
	Decisions         []PrepareDecision
	Alarms            []domain.LimitAlarm
}

// decisionState is threaded through the fold. Each step returns a new value.
type decisionState struct {
	available decimal.Decimal
	position  decimal.Decimal
}

// AvailablePosition returns the liquidity left before the net debit cap is breached.
func AvailablePosition(position domain.ParticipantPosition, model domain.SettlementModel, limit domain.ParticipantLimit, settlementPosition decimal.Decimal) decimal.Decimal {
	capacity := limit.Value
	if model.IsImmediate() {
		capacity = settlementPosition.Add(limit.Value)
	}
	return capacity.Sub(position.Effective())
}

// DecidePrepareBin runs the liquidity check over the prepares of one account.
// It performs no I/O and does not modify its input.
func DecidePrepareBin(in PrepareBinInput) PrepareBinDecision {
	states := make(map[string]domain.TransferState, len(in.TransferStates)+len(in.Requests))
	for id, s := range in.TransferStates {
		states[id] = s
	}

	out := PrepareBinDecision{
		ReservedValue:   in.Position.ReservedValue,
		TransferStates:  states,
		StateChanges:    make([]domain.TransferStateChange, 0, len(in.Requests)),
		PositionChanges: make([]domain.PositionChange, 0, len(in.Requests)),
		Decisions:       make([]PrepareDecision, 0, len(in.Requests)),
	}

	alarmThreshold := in.Limit.ThresholdAlarmPercentage.Mul(in.SettlementPosition.Abs())

	st := decisionState{
		available: AvailablePosition(in.Position, in.SettlementModel, in.Limit, in.SettlementPosition),
		position:  in.Position.Value,
	}

	for _, req := range in.Requests {
		var d PrepareDecision
		st, d = st.decide(req, states[req.TransferID])
		states[req.TransferID] = d.State

		reason := ""
		change := decimal.Zero
		if d.Error != nil {
			reason = d.Error.Description
		} else {
			change = req.Amount
		}

		out.Decisions = append(out.Decisions, d)
		out.StateChanges = append(out.StateChanges, domain.TransferStateChange{
			TransferID:      req.TransferID,
			TransferStateID: d.State,
			Reason:          reason,
			CreatedDate:     in.Now,
		})
		out.PositionChanges = append(out.PositionChanges, domain.PositionChange{
			ParticipantPositionID: in.Position.ID,
			ParticipantCurrencyID: in.Position.ParticipantCurrencyID,
			TransferID:            req.TransferID,
			Value:                 st.available,
			Change:                change,
			ReservedValue:         in.Position.ReservedValue,
			CreatedDate:           in.Now,
		})

		if st.available.GreaterThan(alarmThreshold) {
			out.Alarms = append(out.Alarms, domain.LimitAlarm{
				ParticipantCurrencyID:    in.Position.ParticipantCurrencyID,
				ParticipantLimitID:       in.Limit.ID,
				LimitValue:               in.Limit.Value,
				ThresholdAlarmPercentage: in.Limit.ThresholdAlarmPercentage,
				AvailablePosition:        st.available,
				SettlementPosition:       in.SettlementPosition,
				TransferID:               req.TransferID,
			})
		}
	}

	out.AvailablePosition = st.available
	out.PositionValue = st.position

	return out
}

func (s decisionState) decide(req PrepareRequest, current domain.TransferState) (decisionState, PrepareDecision) {
	d := PrepareDecision{TransferID: req.TransferID, PreviousState: current}

	switch {
	case current != domain.TransferStateReceivedPrepare:
		apiErr := domain.APIErrorInternalServer
		d.State = domain.TransferStateAbortedRejected
		d.Error = &apiErr
	case req.Invalid != nil:
		apiErr := domain.NewValidationAPIError(req.Invalid)
		d.State = domain.TransferStateAbortedRejected
		d.Error = &apiErr
	case s.available.GreaterThanOrEqual(req.Amount):
		d.Accepted = true
		d.State = domain.TransferStateReserved
		s = decisionState{
			available: s.available.Sub(req.Amount),
			position:  s.position.Add(req.Amount),
		}
	default:
		apiErr := domain.APIErrorPayerInsufficientFunds
		d.State = domain.TransferStateAborted
		d.Error = &apiErr
	}

	d.AvailablePosition = s.available
	return s, d
}
