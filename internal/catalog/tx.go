package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const txAttempts = 3

// withTx runs fn inside a serializable transaction and commits it. Under
// write contention serializable isolation aborts with SQLSTATE 40001 (or
// 40P01 on deadlock); the whole attempt is then retried, so fn must be safe
// to run again from scratch. Only a persistent failure surfaces.
func (s *catalogService) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return retryTx(s.logger, func() error {
		return s.runTx(ctx, fn)
	})
}

func (s *catalogService) runTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// retryTx retries run on serialization and deadlock aborts, up to
// txAttempts total attempts.
func retryTx(logger *zap.Logger, run func() error) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = run()
		if !retryableTxError(err) || attempt == txAttempts {
			return err
		}
		logger.Warn("transaction aborted by concurrent write, retrying",
			zap.Int("attempt", attempt), zap.Error(err))
	}
	return err
}

// retryableTxError reports whether err is a serialization failure or a
// deadlock, the two aborts a fresh attempt can resolve.
func retryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
