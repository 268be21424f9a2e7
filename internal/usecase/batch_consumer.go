package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/goposition/internal/domain"
)

// BatchState is a step of the per-batch state machine.
type BatchState string

const (
	BatchReceived     BatchState = "RECEIVED"
	BatchGrouped      BatchState = "GROUPED"
	BatchIdle         BatchState = "IDLE"
	BatchTxOpen       BatchState = "TX_OPEN"
	BatchProcessed    BatchState = "PROCESSED"
	BatchCheckpointed BatchState = "CHECKPOINTED"
	BatchTxCommitted  BatchState = "TX_COMMITTED"
	BatchRepublished  BatchState = "REPUBLISHED"
	BatchDone         BatchState = "DONE"
	BatchAborted      BatchState = "ABORTED"
)

// CheckpointOrder selects whether the broker offset or the database commit goes first.
type CheckpointOrder string

const (
	// CheckpointOffsetFirst commits the broker offset, then the transaction.
	CheckpointOffsetFirst CheckpointOrder = "offset-first"
	// CheckpointCommitFirst commits the transaction, then the broker offset.
	CheckpointCommitFirst CheckpointOrder = "commit-first"
)

var (
	// ErrInvalidCheckpointOrder is returned for an unknown checkpoint order.
	ErrInvalidCheckpointOrder = errors.New("invalid checkpoint order")
	// ErrBatchLost is returned when the offsets of a batch were committed but
	// its transaction was not. The broker will not deliver it again.
	ErrBatchLost = errors.New("batch lost")
)

// ParseCheckpointOrder validates a configured checkpoint order.
func ParseCheckpointOrder(s string) (CheckpointOrder, error) {
	switch CheckpointOrder(s) {
	case CheckpointOffsetFirst, CheckpointCommitFirst:
		return CheckpointOrder(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCheckpointOrder, s)
}

// BatchConsumerConfig holds the collaborators of a BatchConsumer.
type BatchConsumerConfig struct {
	Consumer        Consumer
	TxManager       TransactionManager
	Builder         *BinBuilder
	Processor       BinsProcessor
	Publisher       OutcomePublisher
	Retrier         Retrier
	Recorder        Recorder
	Logger          zerolog.Logger
	CheckpointOrder CheckpointOrder
	// PollBackoff is the pause after a failed fetch.
	PollBackoff time.Duration
	// OnState observes every state transition.
	OnState func(binID string, state BatchState)
}

// BatchConsumer drives one batch at a time from the broker to the database
// and back out to the broker.
type BatchConsumer struct {
	consumer  Consumer
	txManager TransactionManager
	builder   *BinBuilder
	processor BinsProcessor
	publisher OutcomePublisher
	retrier   Retrier
	recorder  Recorder
	logger    zerolog.Logger
	order     CheckpointOrder
	backoff   time.Duration
	onState   func(string, BatchState)
}

// NewBatchConsumer creates a new BatchConsumer.
func NewBatchConsumer(cfg BatchConsumerConfig) *BatchConsumer {
	if cfg.CheckpointOrder == "" {
		cfg.CheckpointOrder = CheckpointOffsetFirst
	}
	if cfg.PollBackoff == 0 {
		cfg.PollBackoff = time.Second
	}

	return &BatchConsumer{
		consumer:  cfg.Consumer,
		txManager: cfg.TxManager,
		builder:   cfg.Builder,
		processor: cfg.Processor,
		publisher: cfg.Publisher,
		retrier:   cfg.Retrier,
		recorder:  cfg.Recorder,
		logger:    cfg.Logger,
		order:     cfg.CheckpointOrder,
		backoff:   cfg.PollBackoff,
		onState:   cfg.OnState,
	}
}

// Run consumes batches until ctx is cancelled. A failed batch is logged and
// left to broker redelivery.
func (c *BatchConsumer) Run(ctx context.Context) error {
	c.logger.Info().Str("checkpoint_order", string(c.order)).Msg("position batch consumer started")

	for {
		if ctx.Err() != nil {
			c.logger.Info().Msg("position batch consumer shutting down")
			return nil
		}

		msgs, err := c.consumer.FetchBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error().Err(err).Msg("failed to fetch batch")
			select {
			case <-ctx.Done():
			case <-time.After(c.backoff):
			}
			continue
		}

		if len(msgs) == 0 {
			continue
		}

		if err := c.HandleBatch(ctx, msgs); err != nil {
			c.logger.Error().Err(err).Str("bin_id", BinID(msgs)).Msg("batch aborted")
		}
	}
}

// HandleBatch runs one batch through the state machine.
func (c *BatchConsumer) HandleBatch(ctx context.Context, msgs []domain.Message) error {
	start := time.Now()
	binID := BinID(msgs)
	logger := c.logger.With().Str("bin_id", binID).Int("batch_size", len(msgs)).Logger()
	c.transition(binID, BatchReceived)

	bins := c.builder.Build(ctx, msgs, func(item *BinItem, err error) {
		logger.Warn().Err(err).
			Int32("partition", item.Message.Partition).
			Int64("offset", item.Message.Offset).
			Msg("failed to decode position message")
	})
	c.transition(binID, BatchGrouped)

	if bins.Empty() {
		c.transition(binID, BatchIdle)
		c.observe(BatchOutcomeIdle, len(msgs), start)
		return nil
	}

	var (
		tx     Transaction
		result *BatchResult
	)

	process := func() error {
		var err error
		tx, err = c.txManager.Begin(ctx)
		if err != nil {
			tx = nil
			return fmt.Errorf("begin transaction: %w", err)
		}
		c.transition(binID, BatchTxOpen)

		result, err = c.processor.ProcessBins(ctx, tx, bins)
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error().Err(rbErr).Msg("rollback failed")
			}
			tx = nil
			return err
		}
		return nil
	}

	var err error
	if c.retrier != nil {
		err = c.retrier.Retry(ctx, process)
	} else {
		err = process()
	}
	if err != nil {
		return c.abort(ctx, logger, bins, msgs, nil, start, err)
	}
	c.transition(binID, BatchProcessed)

	switch c.order {
	case CheckpointCommitFirst:
		if err := tx.Commit(ctx); err != nil {
			return c.abort(ctx, logger, bins, msgs, tx, start, fmt.Errorf("commit transaction: %w", err))
		}
		c.transition(binID, BatchTxCommitted)

		if err := c.consumer.Commit(ctx, bins.Checkpoints()); err != nil {
			// The batch is durable; redelivery is rejected by the transfer state guard.
			logger.Error().Err(err).Msg("failed to commit offset after database commit")
		} else {
			c.transition(binID, BatchCheckpointed)
		}
	default:
		if err := c.consumer.Commit(ctx, bins.Checkpoints()); err != nil {
			return c.abort(ctx, logger, bins, msgs, tx, start, fmt.Errorf("commit offset: %w", err))
		}
		c.transition(binID, BatchCheckpointed)

		if err := tx.Commit(ctx); err != nil {
			return c.lose(ctx, logger, bins, msgs, tx, start, fmt.Errorf("commit transaction: %w", err))
		}
		c.transition(binID, BatchTxCommitted)
	}

	if c.recorder != nil {
		for _, item := range result.Items {
			c.recorder.RecordDecision(decisionResult(item.Outcome))
		}
		for range result.Alarms {
			c.recorder.RecordLimitAlarm()
		}
	}

	if c.publisher != nil {
		if err := c.publisher.PublishOutcomes(ctx, result); err != nil {
			logger.Error().Err(err).Msg("failed to publish batch outcomes")
		}
	}
	c.transition(binID, BatchRepublished)

	bins.Finish(nil)
	c.transition(binID, BatchDone)
	c.observe(BatchOutcomeCommitted, len(msgs), start)

	logger.Info().
		Int("outcomes", len(result.Outcomes())).
		Int("alarms", len(result.Alarms)).
		Dur("elapsed", time.Since(start)).
		Msg("batch committed")

	return nil
}

func (c *BatchConsumer) abort(
	ctx context.Context,
	logger zerolog.Logger,
	bins *Bins,
	msgs []domain.Message,
	tx Transaction,
	start time.Time,
	cause error,
) error {
	if tx != nil {
		if err := tx.Rollback(ctx); err != nil {
			logger.Error().Err(err).Msg("rollback failed")
		}
	}

	if IsIntegrityFault(cause) {
		logger.Error().Err(cause).Msg("batch integrity fault")
	}

	bins.Finish(cause)
	c.transition(bins.ID, BatchAborted)

	if err := c.consumer.Reject(ctx, msgs); err != nil {
		logger.Error().Err(err).Msg("failed to hand batch back for redelivery")
	}

	c.observe(BatchOutcomeAborted, len(msgs), start)

	return cause
}

// lose ends a batch whose offsets are already committed. Rejecting it would
// resume from those offsets, so the batch is reported and not handed back.
func (c *BatchConsumer) lose(
	ctx context.Context,
	logger zerolog.Logger,
	bins *Bins,
	msgs []domain.Message,
	tx Transaction,
	start time.Time,
	cause error,
) error {
	if err := tx.Rollback(ctx); err != nil {
		logger.Debug().Err(err).Msg("rollback after failed commit")
	}

	transferIDs := bins.TransferIDs()
	logger.Error().Err(cause).
		Strs("transfer_ids", transferIDs).
		Int64("first_offset", msgs[0].Offset).
		Int64("last_offset", msgs[len(msgs)-1].Offset).
		Msg("database commit failed after offset commit, batch will not be redelivered")

	bins.Finish(cause)
	c.transition(bins.ID, BatchAborted)
	c.observe(BatchOutcomeLost, len(msgs), start)

	return fmt.Errorf("%w: %w", ErrBatchLost, cause)
}

func (c *BatchConsumer) transition(binID string, state BatchState) {
	c.logger.Debug().Str("bin_id", binID).Str("state", string(state)).Msg("batch state")
	if c.onState != nil {
		c.onState(binID, state)
	}
}

func (c *BatchConsumer) observe(outcome string, size int, start time.Time) {
	if c.recorder != nil {
		c.recorder.ObserveBatch(outcome, size, time.Since(start))
	}
}
