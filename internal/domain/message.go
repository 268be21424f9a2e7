package domain

import "time"

// Message is one record consumed from the position stream.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Checkpoint is the highest message seen on a partition within a batch.
type Checkpoint struct {
	Topic     string
	Partition int32
	Offset    int64
}

// OutboundMessage is a record to be produced after a batch commits.
type OutboundMessage struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Outcome is the per-transfer result of a processed batch item.
type Outcome struct {
	TransferID string
	Action     Action
	Accepted   bool
	State      TransferState
	Error      *APIError
	// PreviousState is the state the transfer was found in.
	PreviousState TransferState
	// Notification is sent to the counterparties once the batch commits.
	Notification *Envelope
}
