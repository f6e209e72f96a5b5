package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/outcomelab/mutuel/internal/domain"
)

// marketStore persists markets keyed by their sequential id. Rows are never
// deleted; ORDER BY id reproduces the registry's ordered id list.
type marketStore struct {
	t *pgTx
}

const marketSelectCols = `id, name, description, yes_pool, no_pool, total_liquidity,
	expires_at, resolved, winning_outcome, created_at, resolved_at`

func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var id, yes, no, total int64
	var winning bool

	err := row.Scan(
		&id, &m.Name, &m.Description, &yes, &no, &total,
		&m.ExpiresAt, &m.Resolved, &winning, &m.CreatedAt, &m.ResolvedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.ID = uint64(id)
	m.YesPool = uint64(yes)
	m.NoPool = uint64(no)
	m.TotalLiquidity = uint64(total)
	m.WinningOutcome = domain.Outcome(winning)
	return m, nil
}

func (s *marketStore) Create(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			id, name, description, yes_pool, no_pool, total_liquidity,
			expires_at, resolved, winning_outcome, created_at, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.t.tx.Exec(ctx, query,
		int64(m.ID), m.Name, m.Description,
		int64(m.YesPool), int64(m.NoPool), int64(m.TotalLiquidity),
		m.ExpiresAt, m.Resolved, bool(m.WinningOutcome), m.CreatedAt, m.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create market: %w", err)
	}
	return nil
}

func (s *marketStore) Get(ctx context.Context, id uint64) (domain.Market, error) {
	query := `SELECT ` + marketSelectCols + ` FROM markets WHERE id = $1` + s.t.lockClause()

	m, err := scanMarket(s.t.tx.QueryRow(ctx, query, int64(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Market{}, domain.ErrMarketNotFound
	}
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: get market %d: %w", id, err)
	}
	return m, nil
}

func (s *marketStore) Update(ctx context.Context, m domain.Market) error {
	const query = `
		UPDATE markets SET
			yes_pool = $2, no_pool = $3, total_liquidity = $4,
			resolved = $5, winning_outcome = $6, resolved_at = $7
		WHERE id = $1`

	tag, err := s.t.tx.Exec(ctx, query,
		int64(m.ID),
		int64(m.YesPool), int64(m.NoPool), int64(m.TotalLiquidity),
		m.Resolved, bool(m.WinningOutcome), m.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update market %d: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMarketNotFound
	}
	return nil
}

func (s *marketStore) Count(ctx context.Context) (uint64, error) {
	var count int64
	if err := s.t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM markets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return uint64(count), nil
}

func (s *marketStore) IDAt(ctx context.Context, index uint64) (uint64, error) {
	const query = `SELECT id FROM markets ORDER BY id LIMIT 1 OFFSET $1`

	var id int64
	err := s.t.tx.QueryRow(ctx, query, int64(index)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrMarketNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: market id at %d: %w", index, err)
	}
	return uint64(id), nil
}

func (s *marketStore) List(ctx context.Context, limit, offset uint64) ([]domain.Market, error) {
	query := `SELECT ` + marketSelectCols + ` FROM markets ORDER BY id OFFSET $1`
	args := []any{int64(offset)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, int64(limit))
	}

	rows, err := s.t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}
