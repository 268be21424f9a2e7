package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goposition/internal/domain"
	"github.com/iho/goposition/internal/usecase"
)

// MockStore is an in-memory implementation of TransactionManager and
// PositionRepository. Writes are staged per transaction and only become
// visible on commit.
type MockStore struct {
	mu sync.Mutex

	positions       map[int64]*domain.ParticipantPosition
	stateChanges    []domain.TransferStateChange
	positionChanges []domain.PositionChange
	nextID          int64

	LockCalls [][]int64
	Commits   int
	Rollbacks int

	BeginFunc                     func(ctx context.Context) (usecase.Transaction, error)
	CommitFunc                    func(ctx context.Context) error
	LockPositionsForUpdateFunc    func(ctx context.Context, tx usecase.Transaction, ids []int64) (map[int64]*domain.ParticipantPosition, error)
	LatestStatesByTransferIDsFunc func(ctx context.Context, tx usecase.Transaction, ids []string) (map[string]domain.TransferState, error)
	UpdatePositionFunc            func(ctx context.Context, tx usecase.Transaction, positionID int64, value, reservedValue decimal.Decimal, changedAt time.Time) error
	BulkInsertStateChangesFunc    func(ctx context.Context, tx usecase.Transaction, rows []domain.TransferStateChange) ([]int64, error)
	BulkInsertPositionChangesFunc func(ctx context.Context, tx usecase.Transaction, rows []domain.PositionChange) error
}

func NewMockStore() *MockStore {
	return &MockStore{positions: make(map[int64]*domain.ParticipantPosition)}
}

// SeedPosition stores a committed position for a participant currency.
func (m *MockStore) SeedPosition(participantCurrencyID int64, value decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[participantCurrencyID] = &domain.ParticipantPosition{
		ID:                    participantCurrencyID * 100,
		ParticipantCurrencyID: participantCurrencyID,
		Value:                 value,
		ReservedValue:         decimal.Zero,
	}
}

// SeedState records a committed transfer state.
func (m *MockStore) SeedState(transferID string, state domain.TransferState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.stateChanges = append(m.stateChanges, domain.TransferStateChange{ID: m.nextID, TransferID: transferID, TransferStateID: state})
}

// Position returns the committed position of a participant currency.
func (m *MockStore) Position(participantCurrencyID int64) domain.ParticipantPosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.positions[participantCurrencyID]; ok {
		return *p
	}
	return domain.ParticipantPosition{}
}

// StateChanges returns the committed state changes.
func (m *MockStore) StateChanges() []domain.TransferStateChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TransferStateChange(nil), m.stateChanges...)
}

// PositionChanges returns the committed position changes.
func (m *MockStore) PositionChanges() []domain.PositionChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PositionChange(nil), m.positionChanges...)
}

// MockStoreTx is a transaction of MockStore.
type MockStoreTx struct {
	store           *MockStore
	positions       map[int64]domain.ParticipantPosition
	stateChanges    []domain.TransferStateChange
	positionChanges []domain.PositionChange
	done            bool
}

func (m *MockStore) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockStoreTx{store: m, positions: make(map[int64]domain.ParticipantPosition)}, nil
}

func (t *MockStoreTx) Commit(ctx context.Context) error {
	if t.store.CommitFunc != nil {
		if err := t.store.CommitFunc(ctx); err != nil {
			return err
		}
	}
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.done {
		return fmt.Errorf("transaction already closed")
	}
	t.done = true
	m.Commits++
	for id, p := range t.positions {
		p := p
		m.positions[id] = &p
	}
	m.stateChanges = append(m.stateChanges, t.stateChanges...)
	m.positionChanges = append(m.positionChanges, t.positionChanges...)
	return nil
}

func (t *MockStoreTx) Rollback(ctx context.Context) error {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	m.Rollbacks++
	return nil
}

func (m *MockStore) LockPositionsForUpdate(ctx context.Context, tx usecase.Transaction, ids []int64) (map[int64]*domain.ParticipantPosition, error) {
	if m.LockPositionsForUpdateFunc != nil {
		return m.LockPositionsForUpdateFunc(ctx, tx, ids)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LockCalls = append(m.LockCalls, append([]int64(nil), ids...))
	out := make(map[int64]*domain.ParticipantPosition, len(ids))
	for _, id := range ids {
		if p, ok := m.positions[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *MockStore) LatestStatesByTransferIDs(ctx context.Context, tx usecase.Transaction, ids []string) (map[string]domain.TransferState, error) {
	if m.LatestStatesByTransferIDsFunc != nil {
		return m.LatestStatesByTransferIDsFunc(ctx, tx, ids)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	out := make(map[string]domain.TransferState)
	rows := m.stateChanges
	if t, ok := tx.(*MockStoreTx); ok {
		rows = append(append([]domain.TransferStateChange(nil), rows...), t.stateChanges...)
	}
	for _, sc := range rows {
		if _, ok := wanted[sc.TransferID]; ok {
			out[sc.TransferID] = sc.TransferStateID
		}
	}
	return out, nil
}

func (m *MockStore) UpdatePosition(ctx context.Context, tx usecase.Transaction, positionID int64, value, reservedValue decimal.Decimal, changedAt time.Time) error {
	if m.UpdatePositionFunc != nil {
		return m.UpdatePositionFunc(ctx, tx, positionID, value, reservedValue, changedAt)
	}
	t := tx.(*MockStoreTx)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.positions {
		if p.ID != positionID {
			continue
		}
		updated := *p
		updated.Value = value
		updated.ReservedValue = reservedValue
		updated.ChangedDate = changedAt
		t.positions[id] = updated
		return nil
	}
	return domain.ErrPositionNotFound
}

func (m *MockStore) BulkInsertStateChanges(ctx context.Context, tx usecase.Transaction, rows []domain.TransferStateChange) ([]int64, error) {
	if m.BulkInsertStateChangesFunc != nil {
		return m.BulkInsertStateChangesFunc(ctx, tx, rows)
	}
	t := tx.(*MockStoreTx)
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, len(rows))
	for i, row := range rows {
		m.nextID++
		row.ID = m.nextID
		ids[i] = row.ID
		t.stateChanges = append(t.stateChanges, row)
	}
	return ids, nil
}

func (m *MockStore) BulkInsertPositionChanges(ctx context.Context, tx usecase.Transaction, rows []domain.PositionChange) error {
	if m.BulkInsertPositionChangesFunc != nil {
		return m.BulkInsertPositionChangesFunc(ctx, tx, rows)
	}
	t := tx.(*MockStoreTx)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		m.nextID++
		row.ID = m.nextID
		t.positionChanges = append(t.positionChanges, row)
	}
	return nil
}

// MockReferenceDataRepository is a mock implementation of ReferenceDataRepository.
type MockReferenceDataRepository struct {
	mu         sync.RWMutex
	currencies []domain.ParticipantCurrency
	models     []domain.SettlementModel
	limits     map[int64]*domain.ParticipantLimit

	ListParticipantCurrenciesFunc func(ctx context.Context) ([]domain.ParticipantCurrency, error)
	ListSettlementModelsFunc      func(ctx context.Context) ([]domain.SettlementModel, error)
	GetNetDebitCapFunc            func(ctx context.Context, tx usecase.Transaction, participantCurrencyID int64) (*domain.ParticipantLimit, error)
}

func NewMockReferenceDataRepository() *MockReferenceDataRepository {
	return &MockReferenceDataRepository{limits: make(map[int64]*domain.ParticipantLimit)}
}

func (m *MockReferenceDataRepository) AddCurrency(c domain.ParticipantCurrency) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currencies = append(m.currencies, c)
}

func (m *MockReferenceDataRepository) AddSettlementModel(s domain.SettlementModel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models = append(m.models, s)
}

func (m *MockReferenceDataRepository) SetLimit(l domain.ParticipantLimit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits[l.ParticipantCurrencyID] = &l
}

func (m *MockReferenceDataRepository) ListParticipantCurrencies(ctx context.Context) ([]domain.ParticipantCurrency, error) {
	if m.ListParticipantCurrenciesFunc != nil {
		return m.ListParticipantCurrenciesFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.ParticipantCurrency(nil), m.currencies...), nil
}

func (m *MockReferenceDataRepository) ListSettlementModels(ctx context.Context) ([]domain.SettlementModel, error) {
	if m.ListSettlementModelsFunc != nil {
		return m.ListSettlementModelsFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.SettlementModel(nil), m.models...), nil
}

func (m *MockReferenceDataRepository) GetNetDebitCap(ctx context.Context, tx usecase.Transaction, participantCurrencyID int64) (*domain.ParticipantLimit, error) {
	if m.GetNetDebitCapFunc != nil {
		return m.GetNetDebitCapFunc(ctx, tx, participantCurrencyID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.limits[participantCurrencyID]; ok {
		return l, nil
	}
	return nil, domain.ErrLimitNotFound
}

// MockConsumer is a mock implementation of Consumer.
type MockConsumer struct {
	mu          sync.Mutex
	Checkpoints [][]domain.Checkpoint
	Rejected    [][]domain.Message
	Closed      bool

	FetchBatchFunc func(ctx context.Context) ([]domain.Message, error)
	CommitFunc     func(ctx context.Context, checkpoints []domain.Checkpoint) error
	RejectFunc     func(ctx context.Context, msgs []domain.Message) error
}

func NewMockConsumer() *MockConsumer {
	return &MockConsumer{}
}

func (m *MockConsumer) FetchBatch(ctx context.Context) ([]domain.Message, error) {
	if m.FetchBatchFunc != nil {
		return m.FetchBatchFunc(ctx)
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (m *MockConsumer) Commit(ctx context.Context, checkpoints []domain.Checkpoint) error {
	if m.CommitFunc != nil {
		if err := m.CommitFunc(ctx, checkpoints); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Checkpoints = append(m.Checkpoints, checkpoints)
	return nil
}

func (m *MockConsumer) Reject(ctx context.Context, msgs []domain.Message) error {
	if m.RejectFunc != nil {
		return m.RejectFunc(ctx, msgs)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rejected = append(m.Rejected, msgs)
	return nil
}

func (m *MockConsumer) Close() error {
	m.Closed = true
	return nil
}

// MockProducer is a mock implementation of Producer.
type MockProducer struct {
	mu        sync.Mutex
	Published []domain.OutboundMessage

	PublishFunc func(ctx context.Context, msgs ...domain.OutboundMessage) error
}

func NewMockProducer() *MockProducer {
	return &MockProducer{}
}

func (m *MockProducer) Publish(ctx context.Context, msgs ...domain.OutboundMessage) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, msgs...); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, msgs...)
	return nil
}

func (m *MockProducer) Messages() []domain.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OutboundMessage(nil), m.Published...)
}

func (m *MockProducer) Close() error {
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MockRecorder is a mock implementation of Recorder.
type MockRecorder struct {
	mu        sync.Mutex
	Started   int
	Succeeded int
	Failed    int
	Batches   map[string]int
	Decisions map[string]int
	Alarms    int
}

func NewMockRecorder() *MockRecorder {
	return &MockRecorder{Batches: make(map[string]int), Decisions: make(map[string]int)}
}

type mockTimer struct {
	r    *MockRecorder
	once sync.Once
}

func (t *mockTimer) ObserveDuration(success bool) {
	t.once.Do(func() {
		t.r.mu.Lock()
		defer t.r.mu.Unlock()
		if success {
			t.r.Succeeded++
		} else {
			t.r.Failed++
		}
	})
}

func (m *MockRecorder) StartEventTimer() usecase.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Started++
	return &mockTimer{r: m}
}

func (m *MockRecorder) ObserveBatch(outcome string, size int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Batches[outcome]++
}

func (m *MockRecorder) RecordDecision(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Decisions[result]++
}

func (m *MockRecorder) RecordLimitAlarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alarms++
}

// MockRetrier is a mock implementation of Retrier.
type MockRetrier struct {
	Attempts  int
	MaxTries  int
	Retryable func(err error) bool
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	tries := m.MaxTries
	if tries == 0 {
		tries = 1
	}
	var err error
	for i := 0; i < tries; i++ {
		m.Attempts++
		err = operation()
		if err == nil {
			return nil
		}
		if m.Retryable != nil && !m.Retryable(err) {
			return err
		}
	}
	return err
}
