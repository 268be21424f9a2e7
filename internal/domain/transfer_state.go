package domain

import "time"

// TransferState is the internal state of a transfer.
type TransferState string

const (
	TransferStateReceivedPrepare TransferState = "RECEIVED_PREPARE"
	TransferStateReserved        TransferState = "RESERVED"
	TransferStateReceivedFulfil  TransferState = "RECEIVED_FULFIL"
	TransferStateCommitted       TransferState = "COMMITTED"
	TransferStateSettled         TransferState = "SETTLED"
	TransferStateReceivedReject  TransferState = "RECEIVED_REJECT"
	TransferStateAbortedRejected TransferState = "ABORTED_REJECTED"
	TransferStateAborted         TransferState = "ABORTED"
	TransferStateReceivedError   TransferState = "RECEIVED_ERROR"
	TransferStateAbortedError    TransferState = "ABORTED_ERROR"
	TransferStateReservedTimeout TransferState = "RESERVED_TIMEOUT"
	TransferStateExpiredPrepared TransferState = "EXPIRED_PREPARED"
	TransferStateExpiredReserved TransferState = "EXPIRED_RESERVED"
	TransferStateInvalid         TransferState = "INVALID"
)

var transferTransitions = map[TransferState][]TransferState{
	TransferStateReceivedPrepare: {
		TransferStateReserved,
		TransferStateAbortedRejected,
		TransferStateAborted,
		TransferStateExpiredPrepared,
		TransferStateInvalid,
	},
	TransferStateReserved: {
		TransferStateReceivedFulfil,
		TransferStateReceivedReject,
		TransferStateReceivedError,
		TransferStateReservedTimeout,
	},
	TransferStateReceivedFulfil:  {TransferStateCommitted, TransferStateAbortedError},
	TransferStateReceivedReject:  {TransferStateAbortedRejected},
	TransferStateReceivedError:   {TransferStateAbortedError},
	TransferStateReservedTimeout: {TransferStateExpiredReserved},
	TransferStateCommitted:       {TransferStateSettled},
}

// CanTransition reports whether moving from one state to another is allowed.
func CanTransition(from, to TransferState) bool {
	for _, next := range transferTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s TransferState) IsTerminal() bool {
	return len(transferTransitions[s]) == 0
}

// Prepare conflict kinds, reported when a prepare finds its transfer in a
// state other than RECEIVED_PREPARE.
const (
	ConflictUnknownTransfer = "unknown_transfer"
	ConflictTerminal        = "terminal"
	ConflictInFlight        = "in_flight"
)

// PrepareConflict classifies a transfer state a prepare cannot proceed from.
func (s TransferState) PrepareConflict() string {
	switch {
	case s == "":
		return ConflictUnknownTransfer
	case s.IsTerminal():
		return ConflictTerminal
	default:
		return ConflictInFlight
	}
}

// TransferStateChange is an append-only history row. The latest row for a
// transfer is its current state.
type TransferStateChange struct {
	ID              int64
	TransferID      string
	TransferStateID TransferState
	Reason          string
	CreatedDate     time.Time
}
