package usecase_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/iho/goposition/internal/domain"
	"github.com/iho/goposition/internal/usecase"
	"github.com/iho/goposition/internal/usecase/mocks"
)

const (
	usdPosition   int64 = 10
	usdSettlement int64 = 11
	xofPosition   int64 = 20
	xofSettlement int64 = 21
	hubName             = "switch"
	positionTopic       = "topic-transfer-position-batch"
)

func newTracer(t *testing.T) (*tracetest.SpanRecorder, trace.Tracer) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, tp.Tracer("test")
}

func envelopeValue(action domain.Action, transferID, amount, currency string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"from":"dfsp1","to":"dfsp2","type":"application/json",`+
		`"content":{"uriParams":{"id":%q},"headers":{"fspiop-source":"dfsp1","fspiop-destination":"dfsp2"},`+
		`"payload":{"transferId":%q,"payerFsp":"dfsp1","payeeFsp":"dfsp2","amount":{"currency":%q,"amount":%q},"expiration":"2030-01-01T00:00:00Z"}},`+
		`"metadata":{"event":{"id":%q,"type":"position","action":%q,"createdAt":"2024-01-01T00:00:00Z","state":{"status":"success"}}}}`,
		transferID, transferID, transferID, currency, amount, uuid.NewString(), action))
}

func prepareMessage(partition int32, offset int64, accountID int64, transferID, amount, currency string) domain.Message {
	return domain.Message{
		Topic:     positionTopic,
		Partition: partition,
		Offset:    offset,
		Key:       []byte(fmt.Sprint(accountID)),
		Value:     envelopeValue(domain.ActionPrepare, transferID, amount, currency),
	}
}

func actionMessage(action domain.Action, partition int32, offset int64, accountID int64, transferID string) domain.Message {
	return domain.Message{
		Topic:     positionTopic,
		Partition: partition,
		Offset:    offset,
		Key:       []byte(fmt.Sprint(accountID)),
		Value:     envelopeValue(action, transferID, "1", "USD"),
	}
}

// fixture is a participant with USD and XOF position accounts.
type fixture struct {
	store     *mocks.MockStore
	reference *mocks.MockReferenceDataRepository
	recorder  *mocks.MockRecorder
	idGen     *mocks.MockIDGenerator
	spans     *tracetest.SpanRecorder
	builder   *usecase.BinBuilder
	processor *usecase.BinProcessor
}

func newFixture(t *testing.T, model domain.SettlementDelay) *fixture {
	t.Helper()

	f := &fixture{
		store:     mocks.NewMockStore(),
		reference: mocks.NewMockReferenceDataRepository(),
		recorder:  mocks.NewMockRecorder(),
		idGen:     mocks.NewMockIDGenerator(),
	}

	for _, c := range []domain.ParticipantCurrency{
		{ID: usdPosition, ParticipantID: 1, ParticipantName: "dfsp1", Currency: "USD", LedgerAccountType: domain.LedgerAccountTypePosition, IsActive: true},
		{ID: usdSettlement, ParticipantID: 1, ParticipantName: "dfsp1", Currency: "USD", LedgerAccountType: domain.LedgerAccountTypeSettlement, IsActive: true},
		{ID: xofPosition, ParticipantID: 1, ParticipantName: "dfsp1", Currency: "XOF", LedgerAccountType: domain.LedgerAccountTypePosition, IsActive: true},
		{ID: xofSettlement, ParticipantID: 1, ParticipantName: "dfsp1", Currency: "XOF", LedgerAccountType: domain.LedgerAccountTypeSettlement, IsActive: true},
	} {
		f.reference.AddCurrency(c)
	}

	f.reference.AddSettlementModel(domain.SettlementModel{
		ID:                    1,
		Name:                  "DEFAULT",
		SettlementDelay:       model,
		LedgerAccountType:     domain.LedgerAccountTypePosition,
		SettlementAccountType: domain.LedgerAccountTypeSettlement,
		IsActive:              true,
	})

	for _, id := range []int64{usdPosition, usdSettlement, xofPosition, xofSettlement} {
		f.store.SeedPosition(id, decimal.Zero)
	}

	f.setLimit(usdPosition, 1000)
	f.setLimit(xofPosition, 1000)

	var tracer trace.Tracer
	f.spans, tracer = newTracer(t)
	f.builder = usecase.NewBinBuilder(tracer, f.recorder, zerolog.Nop())
	f.processor = usecase.NewBinProcessor(f.store, f.reference, f.idGen, hubName, zerolog.Nop())

	return f
}

func (f *fixture) setLimit(accountID int64, value int64) {
	f.reference.SetLimit(domain.ParticipantLimit{
		ID:                       accountID * 7,
		ParticipantCurrencyID:    accountID,
		LimitType:                domain.LimitTypeNetDebitCap,
		Value:                    decimal.NewFromInt(value),
		ThresholdAlarmPercentage: decimal.RequireFromString("10"),
	})
}

// prepares builds n received prepares for one account and seeds their state.
func (f *fixture) prepares(accountID int64, currency string, startOffset int64, amounts ...string) []domain.Message {
	msgs := make([]domain.Message, 0, len(amounts))
	for i, amount := range amounts {
		id := uuid.NewString()
		f.store.SeedState(id, domain.TransferStateReceivedPrepare)
		msgs = append(msgs, prepareMessage(0, startOffset+int64(i), accountID, id, amount, currency))
	}
	return msgs
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
