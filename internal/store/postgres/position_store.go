package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/outcomelab/mutuel/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for duplicate primary keys.
const uniqueViolation = "23505"

// positionStore persists positions keyed by (trader, market_id). Rows are
// append/mutate-only and never deleted.
type positionStore struct {
	t *pgTx
}

const positionSelectCols = `trader, market_id, yes_tokens, no_tokens, total_invested,
	created_at, updated_at`

func scanPosition(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	var marketID, yes, no, invested int64

	err := row.Scan(&p.Trader, &marketID, &yes, &no, &invested, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Position{}, err
	}
	p.MarketID = uint64(marketID)
	p.YesTokens = uint64(yes)
	p.NoTokens = uint64(no)
	p.TotalInvested = uint64(invested)
	return p, nil
}

func (s *positionStore) Get(ctx context.Context, trader string, marketID uint64) (domain.Position, error) {
	query := `SELECT ` + positionSelectCols + ` FROM positions WHERE trader = $1 AND market_id = $2` + s.t.lockClause()

	p, err := scanPosition(s.t.tx.QueryRow(ctx, query, trader, int64(marketID)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Position{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Position{}, fmt.Errorf("postgres: get position (%s,%d): %w", trader, marketID, err)
	}
	return p, nil
}

func (s *positionStore) Create(ctx context.Context, p domain.Position) error {
	const query = `
		INSERT INTO positions (trader, market_id, yes_tokens, no_tokens, total_invested, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.t.tx.Exec(ctx, query,
		p.Trader, int64(p.MarketID),
		int64(p.YesTokens), int64(p.NoTokens), int64(p.TotalInvested),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrPositionExists
		}
		return fmt.Errorf("postgres: create position (%s,%d): %w", p.Trader, p.MarketID, err)
	}
	return nil
}

func (s *positionStore) Update(ctx context.Context, p domain.Position) error {
	const query = `
		UPDATE positions SET yes_tokens = $3, no_tokens = $4, total_invested = $5, updated_at = $6
		WHERE trader = $1 AND market_id = $2`

	tag, err := s.t.tx.Exec(ctx, query,
		p.Trader, int64(p.MarketID),
		int64(p.YesTokens), int64(p.NoTokens), int64(p.TotalInvested),
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update position (%s,%d): %w", p.Trader, p.MarketID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *positionStore) ListByTrader(ctx context.Context, trader string) ([]domain.Position, error) {
	query := `SELECT ` + positionSelectCols + ` FROM positions WHERE trader = $1 ORDER BY market_id`

	rows, err := s.t.tx.Query(ctx, query, trader)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions for %s: %w", trader, err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}
