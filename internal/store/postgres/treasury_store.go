package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/outcomelab/mutuel/internal/domain"
)

// treasuryStore moves custodied funds between account rows. Source rows are
// locked with FOR UPDATE before the balance check, so two concurrent debits
// can never both observe the same balance.
type treasuryStore struct {
	t *pgTx
}

func (s *treasuryStore) Balance(ctx context.Context, account string) (uint64, error) {
	var balance int64
	err := s.t.tx.QueryRow(ctx,
		`SELECT balance FROM accounts WHERE account = $1`, account,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: balance %s: %w", account, err)
	}
	return uint64(balance), nil
}

func (s *treasuryStore) Transfer(ctx context.Context, from, to string, amount uint64) error {
	var balance int64
	err := s.t.tx.QueryRow(ctx,
		`SELECT balance FROM accounts WHERE account = $1 FOR UPDATE`, from,
	).Scan(&balance)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("postgres: lock account %s: %w", from, err)
	}
	if uint64(balance) < amount {
		return domain.ErrInsufficientFunds
	}

	if _, err := s.t.tx.Exec(ctx,
		`UPDATE accounts SET balance = balance - $2, updated_at = NOW() WHERE account = $1`,
		from, int64(amount),
	); err != nil {
		return fmt.Errorf("postgres: debit %s: %w", from, err)
	}

	if err := s.credit(ctx, to, amount); err != nil {
		return err
	}
	return s.record(ctx, from, to, amount, "transfer")
}

func (s *treasuryStore) Deposit(ctx context.Context, account string, amount uint64) error {
	if err := s.credit(ctx, account, amount); err != nil {
		return err
	}
	return s.record(ctx, "", account, amount, "deposit")
}

func (s *treasuryStore) credit(ctx context.Context, account string, amount uint64) error {
	const query = `
		INSERT INTO accounts (account, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (account) DO UPDATE
		SET balance = accounts.balance + EXCLUDED.balance, updated_at = NOW()`

	if _, err := s.t.tx.Exec(ctx, query, account, int64(amount)); err != nil {
		return fmt.Errorf("postgres: credit %s: %w", account, err)
	}
	return nil
}

func (s *treasuryStore) record(ctx context.Context, from, to string, amount uint64, kind string) error {
	const query = `
		INSERT INTO ledger_entries (ref, from_account, to_account, amount, kind)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.t.tx.Exec(ctx, query, uuid.New(), from, to, int64(amount), kind); err != nil {
		return fmt.Errorf("postgres: record ledger entry: %w", err)
	}
	return nil
}

// LedgerEntryStore reads the recorded fund movements outside any engine
// transaction, for archival.
type LedgerEntryStore struct {
	pool queryer
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// NewLedgerEntryStore creates a LedgerEntryStore on the given pool.
func NewLedgerEntryStore(pool queryer) *LedgerEntryStore {
	return &LedgerEntryStore{pool: pool}
}

// ListBefore returns entries created strictly before the cutoff.
func (s *LedgerEntryStore) ListBefore(ctx context.Context, before time.Time) ([]domain.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ref, from_account, to_account, amount, kind, created_at
		 FROM ledger_entries WHERE created_at < $1 ORDER BY created_at`,
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var ref uuid.UUID
		var amount int64
		if err := rows.Scan(&ref, &e.FromAccount, &e.ToAccount, &amount, &e.Kind, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan ledger entry: %w", err)
		}
		e.Ref = ref.String()
		e.Amount = uint64(amount)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
