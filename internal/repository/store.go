package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Store is the gorm-backed persistence surface for the ingestion core. A
// Store bound to a transaction is handed to callbacks by InTx; the same
// method set works inside and outside a transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// txTimeout bounds the finalization transaction. Callers treat a timeout as
// retryable: the database guarantees full rollback.
const txTimeout = 90 * time.Second

// InTx runs fn inside one database transaction. The Store passed to fn is
// bound to that transaction and the context passed to fn carries the timeout,
// so every statement issued through it is bounded; any error rolls the whole
// transaction back.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Store{db: tx})
	})
}
