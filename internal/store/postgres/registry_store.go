package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/outcomelab/mutuel/internal/domain"
)

// registryStore persists the singleton registry row.
type registryStore struct {
	t *pgTx
}

func (s *registryStore) Get(ctx context.Context) (domain.Registry, error) {
	query := `SELECT admin, vault_account, next_market_id, created_at FROM registry WHERE id = 1` + s.t.lockClause()

	var reg domain.Registry
	var nextID int64
	err := s.t.tx.QueryRow(ctx, query).Scan(&reg.Admin, &reg.VaultAccount, &nextID, &reg.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Registry{}, domain.ErrNotInitialized
	}
	if err != nil {
		return domain.Registry{}, fmt.Errorf("postgres: get registry: %w", err)
	}
	reg.NextMarketID = uint64(nextID)
	return reg, nil
}

func (s *registryStore) Init(ctx context.Context, reg domain.Registry) error {
	const query = `
		INSERT INTO registry (id, admin, vault_account, next_market_id, created_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`

	tag, err := s.t.tx.Exec(ctx, query, reg.Admin, reg.VaultAccount, int64(reg.NextMarketID), reg.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: init registry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyInitialized
	}
	return nil
}

func (s *registryStore) NextMarketID(ctx context.Context) (uint64, error) {
	const query = `
		UPDATE registry SET next_market_id = next_market_id + 1
		WHERE id = 1
		RETURNING next_market_id - 1`

	var id int64
	err := s.t.tx.QueryRow(ctx, query).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotInitialized
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: next market id: %w", err)
	}
	return uint64(id), nil
}
