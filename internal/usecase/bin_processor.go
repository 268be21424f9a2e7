package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/goposition/internal/domain"
)

// BatchResult is what a processed batch hands back to the consumer.
type BatchResult struct {
	// Items are the binned items. Items with a nil Outcome were passed through.
	Items  []*BinItem
	Alarms []domain.LimitAlarm
}

// Outcomes returns the outcome of every decided item in arrival order.
func (r *BatchResult) Outcomes() []domain.Outcome {
	out := make([]domain.Outcome, 0, len(r.Items))
	for _, item := range r.Items {
		if item.Outcome != nil {
			out = append(out, *item.Outcome)
		}
	}
	return out
}

// BinProcessor applies the bins of one batch under a caller-supplied
// transaction. It never commits or rolls back.
type BinProcessor struct {
	positions PositionRepository
	reference ReferenceDataRepository
	idGen     IDGenerator
	hubName   string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewBinProcessor creates a new BinProcessor.
func NewBinProcessor(
	positions PositionRepository,
	reference ReferenceDataRepository,
	idGen IDGenerator,
	hubName string,
	logger zerolog.Logger,
) *BinProcessor {
	return &BinProcessor{
		positions: positions,
		reference: reference,
		idGen:     idGen,
		hubName:   hubName,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used for persisted timestamps.
func (p *BinProcessor) WithClock(now func() time.Time) *BinProcessor {
	p.now = now
	return p
}

// resolvedAccount is a bin account with its reference data.
type resolvedAccount struct {
	account           domain.ParticipantCurrency
	settlementModel   domain.SettlementModel
	settlementAccount domain.ParticipantCurrency
}

// ProcessBins resolves reference data, locks every touched position, runs the
// liquidity check per account and persists the results.
func (p *BinProcessor) ProcessBins(ctx context.Context, tx Transaction, bins *Bins) (*BatchResult, error) {
	logger := p.logger.With().Str("bin_id", bins.ID).Int("batch_size", bins.Len()).Logger()

	// 1. Latest state of every referenced transfer
	states, err := p.positions.LatestStatesByTransferIDs(ctx, tx, bins.TransferIDs())
	if err != nil {
		return nil, fmt.Errorf("load transfer states: %w", err)
	}

	// 2-3. Resolve accounts, settlement models and settlement accounts
	accountIDs := bins.AccountIDs()
	resolved, err := p.resolveAccounts(ctx, accountIDs)
	if err != nil {
		return nil, err
	}

	// 4. Lock primary and settlement positions in ascending id order
	lockIDs := lockOrder(resolved)
	positions, err := p.positions.LockPositionsForUpdate(ctx, tx, lockIDs)
	if err != nil {
		return nil, fmt.Errorf("lock positions: %w", err)
	}
	for _, id := range lockIDs {
		if _, ok := positions[id]; !ok {
			return nil, fmt.Errorf("%w: participant currency %d", domain.ErrPositionNotFound, id)
		}
	}

	result := &BatchResult{Items: bins.All()}
	now := p.now()

	// 5-6. Decide and persist per account, sequentially
	for _, accountID := range accountIDs {
		acc := resolved[accountID]
		for _, action := range bins.Actions(accountID) {
			items := bins.Items(accountID, action)

			switch action.Kind() {
			case domain.ActionKindPrepare:
				alarms, err := p.processPrepareBin(ctx, tx, acc, positions, states, items, now)
				if err != nil {
					return nil, fmt.Errorf("account %d: %w", accountID, err)
				}
				result.Alarms = append(result.Alarms, alarms...)
			default:
				logger.Warn().
					Int64("account_id", accountID).
					Str("action", string(action)).
					Int("count", len(items)).
					Msg("unsupported position action, passing through")
			}
		}
	}

	for _, alarm := range result.Alarms {
		logger.Warn().
			Int64("account_id", alarm.ParticipantCurrencyID).
			Int64("limit_id", alarm.ParticipantLimitID).
			Str("available_position", alarm.AvailablePosition.String()).
			Str("transfer_id", alarm.TransferID).
			Msg("limit alarm threshold exceeded")
	}

	logger.Debug().Int("accounts", len(accountIDs)).Int("alarms", len(result.Alarms)).Msg("bins processed")

	return result, nil
}

// resolveAccounts resolves the bin accounts. When the reference data is cached
// and an account cannot be resolved, the cache is dropped and the lookup is
// made once more, so a participant onboarded since the last load is found.
func (p *BinProcessor) resolveAccounts(ctx context.Context, accountIDs []int64) (map[int64]resolvedAccount, error) {
	resolved, err := p.resolveOnce(ctx, accountIDs)
	if err == nil || !IsIntegrityFault(err) {
		return resolved, err
	}

	inv, ok := p.reference.(ReferenceInvalidator)
	if !ok {
		return nil, err
	}

	p.logger.Info().Err(err).Msg("reference data miss, reloading")

	if invErr := inv.Invalidate(ctx); invErr != nil {
		p.logger.Warn().Err(invErr).Msg("failed to invalidate reference data")
		return nil, err
	}

	return p.resolveOnce(ctx, accountIDs)
}

func (p *BinProcessor) resolveOnce(ctx context.Context, accountIDs []int64) (map[int64]resolvedAccount, error) {
	currencies, err := p.reference.ListParticipantCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("load participant currencies: %w", err)
	}

	byID := make(map[int64]domain.ParticipantCurrency, len(currencies))
	type settlementKey struct {
		participantID int64
		currency      string
		accountType   domain.LedgerAccountType
	}
	byOwner := make(map[settlementKey]domain.ParticipantCurrency, len(currencies))
	for _, c := range currencies {
		byID[c.ID] = c
		byOwner[settlementKey{c.ParticipantID, c.Currency, c.LedgerAccountType}] = c
	}

	accounts := make(map[int64]domain.ParticipantCurrency, len(accountIDs))
	for _, id := range accountIDs {
		c, ok := byID[id]
		if !ok || !c.IsActive {
			return nil, fmt.Errorf("%w: %d", domain.ErrAccountNotResolved, id)
		}
		accounts[id] = c
	}

	models, err := p.reference.ListSettlementModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settlement models: %w", err)
	}

	type modelKey struct {
		currency    string
		accountType domain.LedgerAccountType
	}
	modelFor := make(map[modelKey]domain.SettlementModel)

	resolved := make(map[int64]resolvedAccount, len(accountIDs))
	for _, id := range accountIDs {
		acc := accounts[id]
		key := modelKey{acc.Currency, acc.LedgerAccountType}

		model, ok := modelFor[key]
		if !ok {
			model, err = domain.ResolveSettlementModel(models, acc.Currency, acc.LedgerAccountType)
			if err != nil {
				return nil, fmt.Errorf("%w: currency %s", err, acc.Currency)
			}
			modelFor[key] = model
		}

		settlement, ok := byOwner[settlementKey{acc.ParticipantID, acc.Currency, model.SettlementAccountType}]
		if !ok {
			return nil, fmt.Errorf("%w: participant %d currency %s", domain.ErrSettlementAccountNotFound, acc.ParticipantID, acc.Currency)
		}

		resolved[id] = resolvedAccount{account: acc, settlementModel: model, settlementAccount: settlement}
	}

	return resolved, nil
}

func lockOrder(resolved map[int64]resolvedAccount) []int64 {
	seen := make(map[int64]struct{}, len(resolved)*2)
	ids := make([]int64, 0, len(resolved)*2)
	for _, r := range resolved {
		for _, id := range []int64{r.account.ID, r.settlementAccount.ID} {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (p *BinProcessor) processPrepareBin(
	ctx context.Context,
	tx Transaction,
	acc resolvedAccount,
	positions map[int64]*domain.ParticipantPosition,
	states map[string]domain.TransferState,
	items []*BinItem,
	now time.Time,
) ([]domain.LimitAlarm, error) {
	limit, err := p.reference.GetNetDebitCap(ctx, tx, acc.account.ID)
	if err != nil {
		return nil, fmt.Errorf("load net debit cap: %w", err)
	}
	if limit == nil {
		return nil, fmt.Errorf("%w: participant currency %d", domain.ErrLimitNotFound, acc.account.ID)
	}

	position := positions[acc.account.ID]
	settlementPosition := decimal.Zero
	if sp := positions[acc.settlementAccount.ID]; sp != nil {
		settlementPosition = sp.Value
	}

	requests := make([]PrepareRequest, len(items))
	for i, item := range items {
		requests[i] = PrepareRequest{
			TransferID: item.Prepare.TransferID,
			Amount:     item.Prepare.Amount.Amount,
			Invalid:    item.Invalid,
		}
	}

	decision := DecidePrepareBin(PrepareBinInput{
		Requests:           requests,
		Position:           *position,
		TransferStates:     states,
		SettlementModel:    acc.settlementModel,
		Limit:              *limit,
		SettlementPosition: settlementPosition,
		Now:                now,
	})

	if err := p.positions.UpdatePosition(ctx, tx, position.ID, decision.PositionValue, decision.ReservedValue, now); err != nil {
		return nil, fmt.Errorf("update position: %w", err)
	}

	ids, err := p.positions.BulkInsertStateChanges(ctx, tx, decision.StateChanges)
	if err != nil {
		return nil, fmt.Errorf("insert transfer state changes: %w", err)
	}
	if len(ids) != len(decision.PositionChanges) {
		return nil, fmt.Errorf("insert transfer state changes: got %d ids for %d rows", len(ids), len(decision.PositionChanges))
	}

	changes := make([]domain.PositionChange, len(decision.PositionChanges))
	for i, pc := range decision.PositionChanges {
		pc.TransferStateChangeID = ids[i]
		changes[i] = pc
	}
	if err := p.positions.BulkInsertPositionChanges(ctx, tx, changes); err != nil {
		return nil, fmt.Errorf("insert position changes: %w", err)
	}

	for id, s := range decision.TransferStates {
		states[id] = s
	}

	for i, item := range items {
		d := decision.Decisions[i]
		if d.PreviousState != domain.TransferStateReceivedPrepare {
			p.logger.Warn().
				Str("transfer_id", d.TransferID).
				Str("previous_state", string(d.PreviousState)).
				Str("conflict", d.PreviousState.PrepareConflict()).
				Bool("transition_allowed", domain.CanTransition(d.PreviousState, d.State)).
				Msg("prepare rejected, transfer not awaiting reservation")
		}

		notification, err := domain.NewPrepareNotification(p.idGen.Generate(), p.hubName, item.Envelope, item.Prepare, d.Error, now)
		if err != nil {
			return nil, fmt.Errorf("build notification for %s: %w", d.TransferID, err)
		}

		item.Outcome = &domain.Outcome{
			TransferID:    d.TransferID,
			Action:        item.Action,
			Accepted:      d.Accepted,
			State:         d.State,
			Error:         d.Error,
			PreviousState: d.PreviousState,
			Notification:  notification,
		}
	}

	return decision.Alarms, nil
}

func decisionResult(o *domain.Outcome) string {
	switch {
	case o == nil:
		return DecisionPassedThrough
	case o.Accepted:
		return DecisionReserved
	case o.Error != nil && o.Error.Code == domain.APIErrorValidation.Code:
		return DecisionRejectedInvalid
	case o.State == domain.TransferStateAbortedRejected:
		return DecisionRejectedState
	default:
		return DecisionRejectedLimit
	}
}
