package domain

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from TransferState
		to   TransferState
		want bool
	}{
		{"prepare reserved", TransferStateReceivedPrepare, TransferStateReserved, true},
		{"prepare aborted on liquidity", TransferStateReceivedPrepare, TransferStateAborted, true},
		{"prepare aborted rejected", TransferStateReceivedPrepare, TransferStateAbortedRejected, true},
		{"reserved to fulfil", TransferStateReserved, TransferStateReceivedFulfil, true},
		{"fulfil committed", TransferStateReceivedFulfil, TransferStateCommitted, true},
		{"timeout expired", TransferStateReservedTimeout, TransferStateExpiredReserved, true},
		{"no going back", TransferStateReserved, TransferStateReceivedPrepare, false},
		{"committed cannot reserve", TransferStateCommitted, TransferStateReserved, false},
		{"terminal aborted", TransferStateAborted, TransferStateReserved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTransferState_IsTerminal(t *testing.T) {
	for _, s := range []TransferState{TransferStateAborted, TransferStateAbortedRejected, TransferStateAbortedError, TransferStateExpiredReserved, TransferStateSettled} {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}

	for _, s := range []TransferState{TransferStateReceivedPrepare, TransferStateReserved, TransferStateCommitted} {
		if s.IsTerminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
	}
}

func TestTransferState_PrepareConflict(t *testing.T) {
	tests := []struct {
		state TransferState
		want  string
	}{
		{"", ConflictUnknownTransfer},
		{TransferStateAborted, ConflictTerminal},
		{TransferStateExpiredReserved, ConflictTerminal},
		{TransferStateReserved, ConflictInFlight},
		{TransferStateCommitted, ConflictInFlight},
	}

	for _, tt := range tests {
		if got := tt.state.PrepareConflict(); got != tt.want {
			t.Errorf("%q.PrepareConflict() = %s, want %s", tt.state, got, tt.want)
		}
	}
}
