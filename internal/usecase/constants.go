package usecase

// Batch size bounds accepted by the consumer.
const (
	MinBatchSize = 1
	MaxBatchSize = 100000
)

// SpanTransferPosition is the per-event span name.
const SpanTransferPosition = "cl_transfer_position"

// Batch outcomes reported to the recorder.
const (
	BatchOutcomeIdle      = "idle"
	BatchOutcomeCommitted = "committed"
	BatchOutcomeAborted   = "aborted"
	// BatchOutcomeLost is a batch whose offsets were committed but whose
	// transaction was not. It will not be delivered again.
	BatchOutcomeLost = "lost"
)

// Decision results reported to the recorder.
const (
	DecisionReserved        = "reserved"
	DecisionRejectedState   = "rejected_state"
	DecisionRejectedLimit   = "rejected_limit"
	DecisionRejectedInvalid = "rejected_invalid"
	DecisionPassedThrough   = "unsupported"
)
