package settle

import (
	"context"
	"errors"
	"time"

	"github.com/outcomelab/mutuel/internal/domain"
)

// Views is the read-only projection layer over settlement state. All
// accessors are pure and non-failing by convention: unknown ids and missing
// positions yield zero-valued results, which keeps polling clients simple.
// Store/transport faults are the only errors surfaced.
type Views struct {
	ledger domain.Ledger
	cache  domain.SnapshotCache
	clock  func() time.Time
}

// NewViews creates the view layer. cache may be nil to read straight through
// to the ledger.
func NewViews(ledger domain.Ledger, cache domain.SnapshotCache, clock func() time.Time) *Views {
	if clock == nil {
		clock = time.Now
	}
	return &Views{ledger: ledger, cache: cache, clock: clock}
}

// MarketCount returns the number of markets ever created.
func (v *Views) MarketCount(ctx context.Context) (uint64, error) {
	var count uint64
	err := v.ledger.View(ctx, func(tx domain.Tx) error {
		var err error
		count, err = tx.Markets().Count(ctx)
		return err
	})
	return count, err
}

// MarketIDAt returns the market id at the given index of the ordered id
// list, or 0 when the index is out of range.
func (v *Views) MarketIDAt(ctx context.Context, index uint64) (uint64, error) {
	var id uint64
	err := v.ledger.View(ctx, func(tx domain.Tx) error {
		got, err := tx.Markets().IDAt(ctx, index)
		if errors.Is(err, domain.ErrMarketNotFound) {
			return nil
		}
		id = got
		return err
	})
	return id, err
}

// Market returns the full market detail, or a zero Market for unknown ids.
// The snapshot cache is consulted first when present.
func (v *Views) Market(ctx context.Context, id uint64) (domain.Market, error) {
	if v.cache != nil {
		if snap, err := v.cache.Get(ctx, id); err == nil {
			return snap.Market, nil
		}
	}

	var market domain.Market
	err := v.ledger.View(ctx, func(tx domain.Tx) error {
		got, err := tx.Markets().Get(ctx, id)
		if errors.Is(err, domain.ErrMarketNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		market = got
		return nil
	})
	if err != nil {
		return domain.Market{}, err
	}

	if v.cache != nil && market.ID != 0 {
		// Best effort; a cache miss next time is not a failure.
		_ = v.cache.Set(ctx, domain.MarketSnapshot{Market: market, FetchedAt: v.clock().UTC()})
	}
	return market, nil
}

// Markets lists markets ordered by id.
func (v *Views) Markets(ctx context.Context, limit, offset uint64) ([]domain.Market, error) {
	var markets []domain.Market
	err := v.ledger.View(ctx, func(tx domain.Tx) error {
		var err error
		markets, err = tx.Markets().List(ctx, limit, offset)
		return err
	})
	return markets, err
}

// Pools returns (yes, no, total) for a market; zeros for unknown ids.
func (v *Views) Pools(ctx context.Context, id uint64) (yes, no, total uint64, err error) {
	m, err := v.Market(ctx, id)
	if err != nil {
		return 0, 0, 0, err
	}
	return m.YesPool, m.NoPool, m.TotalLiquidity, nil
}

// Expiry returns a market's expiry timestamp; zero for unknown ids.
func (v *Views) Expiry(ctx context.Context, id uint64) (int64, error) {
	m, err := v.Market(ctx, id)
	if err != nil {
		return 0, err
	}
	return m.ExpiresAt, nil
}

// IsExpired reports whether a market's betting window has closed. Unknown
// ids report false.
func (v *Views) IsExpired(ctx context.Context, id uint64) (bool, error) {
	m, err := v.Market(ctx, id)
	if err != nil {
		return false, err
	}
	if m.ID == 0 {
		return false, nil
	}
	return m.Expired(v.clock()), nil
}

// Status returns the lifecycle status tuple; the zero status for unknown ids.
func (v *Views) Status(ctx context.Context, id uint64) (domain.MarketStatus, error) {
	m, err := v.Market(ctx, id)
	if err != nil {
		return domain.MarketStatus{}, err
	}
	if m.ID == 0 {
		return domain.MarketStatus{}, nil
	}
	return domain.MarketStatus{
		Resolved:       m.Resolved,
		WinningOutcome: m.WinningOutcome,
		Expired:        m.Expired(v.clock()),
	}, nil
}

// Position returns a trader's position for a market; a zero Position when the
// trader never bet. Note that token counters are also zero after a claim and
// on the losing side; use Status to disambiguate.
func (v *Views) Position(ctx context.Context, trader string, marketID uint64) (domain.Position, error) {
	var pos domain.Position
	err := v.ledger.View(ctx, func(tx domain.Tx) error {
		got, err := tx.Positions().Get(ctx, trader, marketID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		pos = got
		return nil
	})
	return pos, err
}

// Positions lists every position a trader holds.
func (v *Views) Positions(ctx context.Context, trader string) ([]domain.Position, error) {
	var positions []domain.Position
	err := v.ledger.View(ctx, func(tx domain.Tx) error {
		var err error
		positions, err = tx.Positions().ListByTrader(ctx, trader)
		return err
	})
	return positions, err
}

// VaultAddress returns the registry's custody account, or "" before
// initialization.
func (v *Views) VaultAddress(ctx context.Context) (string, error) {
	var vault string
	err := v.ledger.View(ctx, func(tx domain.Tx) error {
		reg, err := tx.Registry().Get(ctx)
		if errors.Is(err, domain.ErrNotInitialized) {
			return nil
		}
		if err != nil {
			return err
		}
		vault = reg.VaultAccount
		return nil
	})
	return vault, err
}

// Balance returns an account's treasury balance; unknown accounts hold zero.
func (v *Views) Balance(ctx context.Context, account string) (uint64, error) {
	var bal uint64
	err := v.ledger.View(ctx, func(tx domain.Tx) error {
		var err error
		bal, err = tx.Treasury().Balance(ctx, account)
		return err
	})
	return bal, err
}
