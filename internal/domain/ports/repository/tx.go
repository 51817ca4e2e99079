package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes a function within a database transaction,
// passing the underlying transaction handle via `tx`.
//
// Use-case interfaces stay clean of driver types; repository methods that
// accept a Tx detect the handle implementation-side and run their statements
// tx-bound. Repositories MUST gracefully accept a nil handle (the
// non-transactional path falls back to the pool).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
