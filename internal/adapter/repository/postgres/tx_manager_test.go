package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/goposition/internal/usecase"
)

var batchTxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}

func TestTxManagerBatchLifecycle(t *testing.T) {
	tests := []struct {
		name   string
		expect func(pgxmock.PgxPoolIface)
		finish func(context.Context, usecase.Transaction) error
	}{
		{
			name:   "commit",
			expect: func(p pgxmock.PgxPoolIface) { p.ExpectCommit() },
			finish: func(ctx context.Context, tx usecase.Transaction) error { return tx.Commit(ctx) },
		},
		{
			name:   "rollback",
			expect: func(p pgxmock.PgxPoolIface) { p.ExpectRollback() },
			finish: func(ctx context.Context, tx usecase.Transaction) error { return tx.Rollback(ctx) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPool := newMockPool(t)
			mockPool.ExpectBeginTx(batchTxOptions)
			tt.expect(mockPool)

			tx, err := newTxManagerWithPool(mockPool).Begin(context.Background())
			require.NoError(t, err)

			inner, err := pgxTxOf(tx)
			require.NoError(t, err)
			assert.Equal(t, tx.(*Tx).PgxTx(), inner)

			require.NoError(t, tt.finish(context.Background(), tx))
			assertExpectations(t, mockPool)
		})
	}
}

func TestTxManagerBeginWrapsPoolError(t *testing.T) {
	mockPool := newMockPool(t)
	poolErr := errors.New("too many connections")
	mockPool.ExpectBeginTx(batchTxOptions).WillReturnError(poolErr)

	tx, err := newTxManagerWithPool(mockPool).Begin(context.Background())
	assert.Nil(t, tx)
	assert.ErrorIs(t, err, poolErr)
	assert.Contains(t, err.Error(), "begin batch transaction")
}

type foreignTx struct{}

func (foreignTx) Commit(context.Context) error   { return nil }
func (foreignTx) Rollback(context.Context) error { return nil }

func TestPgxTxOfRejectsForeignTransaction(t *testing.T) {
	for _, tx := range []usecase.Transaction{nil, foreignTx{}, (*Tx)(nil)} {
		_, err := pgxTxOf(tx)
		assert.Error(t, err, "%T", tx)
	}
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	pool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func assertExpectations(t *testing.T, pool pgxmock.PgxPoolIface) {
	t.Helper()
	if err := pool.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations were not met: %v", err)
	}
}
