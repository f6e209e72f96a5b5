package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/outcomelab/mutuel/internal/domain"
)

// Ledger implements domain.Ledger on a pgx connection pool. Each Update call
// is one database transaction; reads inside it take row locks so concurrent
// operations touching the same rows serialize, and any error rolls the whole
// unit back.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger creates a Ledger backed by the given connection pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Update runs fn inside a read-write transaction with FOR UPDATE row locking.
func (l *Ledger) Update(ctx context.Context, fn func(tx domain.Tx) error) error {
	return l.run(ctx, pgx.ReadWrite, fn)
}

// View runs fn inside a read-only transaction.
func (l *Ledger) View(ctx context.Context, fn func(tx domain.Tx) error) error {
	return l.run(ctx, pgx.ReadOnly, fn)
}

func (l *Ledger) run(ctx context.Context, mode pgx.TxAccessMode, fn func(tx domain.Tx) error) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: mode,
	})
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	pt := &pgTx{tx: tx, writable: mode == pgx.ReadWrite}
	if err := fn(pt); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// pgTx exposes the stores of one open transaction. Writable transactions use
// SELECT ... FOR UPDATE on rows they are about to mutate.
type pgTx struct {
	tx       pgx.Tx
	writable bool
}

func (t *pgTx) Registry() domain.RegistryStore  { return &registryStore{t} }
func (t *pgTx) Markets() domain.MarketStore     { return &marketStore{t} }
func (t *pgTx) Positions() domain.PositionStore { return &positionStore{t} }
func (t *pgTx) Treasury() domain.Treasury       { return &treasuryStore{t} }

// lockClause returns the row-lock suffix for reads inside write transactions.
func (t *pgTx) lockClause() string {
	if t.writable {
		return " FOR UPDATE"
	}
	return ""
}
