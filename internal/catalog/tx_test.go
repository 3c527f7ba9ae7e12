package catalog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func serializationFailure() error {
	return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
}

func TestRetryTx_RetriesSerializationFailure(t *testing.T) {
	calls := 0
	err := retryTx(zaptest.NewLogger(t), func() error {
		calls++
		if calls < 3 {
			return serializationFailure()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryTx_RetriesWrappedAbort(t *testing.T) {
	calls := 0
	err := retryTx(zaptest.NewLogger(t), func() error {
		calls++
		if calls == 1 {
			return fmt.Errorf("commit transaction: %w", serializationFailure())
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryTx_PersistentAbortSurfaces(t *testing.T) {
	calls := 0
	err := retryTx(zaptest.NewLogger(t), func() error {
		calls++
		return serializationFailure()
	})
	require.Error(t, err)
	assert.Equal(t, txAttempts, calls)

	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr))
}

func TestRetryTx_DomainErrorNotRetried(t *testing.T) {
	calls := 0
	err := retryTx(zaptest.NewLogger(t), func() error {
		calls++
		return fmt.Errorf("%w: sku", ErrAlreadyExists)
	})
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, 1, calls)
}

func TestRetryableTxError(t *testing.T) {
	assert.True(t, retryableTxError(&pgconn.PgError{Code: "40001"}))
	assert.True(t, retryableTxError(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, retryableTxError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, retryableTxError(errors.New("connection refused")))
	assert.False(t, retryableTxError(nil))
}
