package settle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/outcomelab/mutuel/internal/domain"
)

// Engine owns the market lifecycle and the custody of staked funds. Every
// mutating operation runs in a single ledger transaction: it either commits
// wholesale or aborts with zero partial state change. Events are published
// only after the transaction commits.
type Engine struct {
	ledger domain.Ledger
	sink   domain.EventSink
	audit  domain.AuditStore
	logger *slog.Logger
	clock  func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithAudit attaches an append-only audit log written after each commit.
func WithAudit(audit domain.AuditStore) Option {
	return func(e *Engine) { e.audit = audit }
}

// NewEngine creates an Engine on top of the given ledger. sink may be nil
// when no consumer is wired.
func NewEngine(ledger domain.Ledger, sink domain.EventSink, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		ledger: ledger,
		sink:   sink,
		logger: logger.With(slog.String("component", "settle")),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize creates the registry and its vault account exactly once. A
// second call fails with ErrAlreadyInitialized.
func (e *Engine) Initialize(ctx context.Context, admin string) (domain.Registry, error) {
	now := e.clock().UTC()
	reg := domain.Registry{
		Admin:        admin,
		VaultAccount: vaultAccount(admin),
		NextMarketID: 1,
		CreatedAt:    now,
	}

	err := e.ledger.Update(ctx, func(tx domain.Tx) error {
		return tx.Registry().Init(ctx, reg)
	})
	if err != nil {
		return domain.Registry{}, fmt.Errorf("settle: initialize: %w", err)
	}

	e.logger.InfoContext(ctx, "settle: registry initialized",
		slog.String("admin", admin),
		slog.String("vault", reg.VaultAccount),
	)
	e.writeAudit(ctx, "registry_initialized", map[string]any{
		"admin": admin,
		"vault": reg.VaultAccount,
	})
	return reg, nil
}

// CreateMarket creates a new market with the seed liquidity split 50/50
// across the two pools. Admin-only; the seed is debited from the caller into
// the vault.
func (e *Engine) CreateMarket(ctx context.Context, caller, name, description string, initialLiquidity uint64, expiresAt int64) (domain.Market, error) {
	now := e.clock().UTC()

	var market domain.Market
	err := e.ledger.Update(ctx, func(tx domain.Tx) error {
		reg, err := tx.Registry().Get(ctx)
		if err != nil {
			return err
		}
		if caller != reg.Admin {
			return domain.ErrNotAdmin
		}

		if err := tx.Treasury().Transfer(ctx, caller, reg.VaultAccount, initialLiquidity); err != nil {
			return err
		}

		id, err := tx.Registry().NextMarketID(ctx)
		if err != nil {
			return err
		}

		yes, no := SplitSeed(initialLiquidity)
		market = domain.Market{
			ID:             id,
			Name:           name,
			Description:    description,
			YesPool:        yes,
			NoPool:         no,
			TotalLiquidity: initialLiquidity,
			ExpiresAt:      expiresAt,
			CreatedAt:      now,
		}
		return tx.Markets().Create(ctx, market)
	})
	if err != nil {
		return domain.Market{}, fmt.Errorf("settle: create market: %w", err)
	}

	e.logger.InfoContext(ctx, "settle: market created",
		slog.Uint64("market_id", market.ID),
		slog.String("name", name),
		slog.Uint64("initial_liquidity", initialLiquidity),
		slog.Int64("expires_at", expiresAt),
	)
	e.emit(ctx, domain.EventMarketCreated, market.ID, now, domain.MarketCreated{
		MarketID:         market.ID,
		Creator:          caller,
		Name:             name,
		Description:      description,
		InitialLiquidity: initialLiquidity,
		ExpiresAt:        expiresAt,
		Timestamp:        now.Unix(),
	})
	e.writeAudit(ctx, "market_created", map[string]any{
		"market_id": market.ID,
		"creator":   caller,
		"seed":      initialLiquidity,
	})
	return market, nil
}

// PlaceBet stakes amount on one side of an open market. A trader holds at
// most one position per market, on either side; re-bets, top-ups, and
// side-switches all fail with ErrPositionExists.
func (e *Engine) PlaceBet(ctx context.Context, trader string, marketID uint64, side domain.Outcome, amount uint64) (domain.Market, error) {
	if amount == 0 {
		return domain.Market{}, fmt.Errorf("settle: place bet: %w", domain.ErrInvalidAmount)
	}
	now := e.clock().UTC()

	var market domain.Market
	err := e.ledger.Update(ctx, func(tx domain.Tx) error {
		reg, err := tx.Registry().Get(ctx)
		if err != nil {
			return err
		}

		m, err := tx.Markets().Get(ctx, marketID)
		if err != nil {
			return err
		}
		if m.Resolved {
			return domain.ErrMarketResolved
		}
		if m.Expired(now) {
			return domain.ErrMarketExpired
		}

		if _, err := tx.Positions().Get(ctx, trader, marketID); err == nil {
			return domain.ErrPositionExists
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if err := tx.Treasury().Transfer(ctx, trader, reg.VaultAccount, amount); err != nil {
			return err
		}

		if side == domain.OutcomeYes {
			m.YesPool += amount
		} else {
			m.NoPool += amount
		}
		m.TotalLiquidity += amount
		if err := tx.Markets().Update(ctx, m); err != nil {
			return err
		}

		pos := domain.Position{
			Trader:        trader,
			MarketID:      marketID,
			TotalInvested: amount,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if side == domain.OutcomeYes {
			pos.YesTokens = amount
		} else {
			pos.NoTokens = amount
		}
		if err := tx.Positions().Create(ctx, pos); err != nil {
			return err
		}

		market = m
		return nil
	})
	if err != nil {
		return domain.Market{}, fmt.Errorf("settle: place bet: %w", err)
	}

	e.logger.InfoContext(ctx, "settle: bet placed",
		slog.Uint64("market_id", marketID),
		slog.String("trader", trader),
		slog.String("side", side.String()),
		slog.Uint64("amount", amount),
	)
	e.emit(ctx, domain.EventTrade, marketID, now, domain.Trade{
		MarketID:  marketID,
		Trader:    trader,
		Side:      side.String(),
		Amount:    amount,
		YesPool:   market.YesPool,
		NoPool:    market.NoPool,
		Timestamp: now.Unix(),
	})
	return market, nil
}

// ResolveMarket freezes a market on the winning outcome. Admin-only and
// write-once; no expiry check is performed, so the admin may resolve before
// or after the betting window closes.
func (e *Engine) ResolveMarket(ctx context.Context, caller string, marketID uint64, winner domain.Outcome) error {
	now := e.clock().UTC()

	err := e.ledger.Update(ctx, func(tx domain.Tx) error {
		reg, err := tx.Registry().Get(ctx)
		if err != nil {
			return err
		}
		if caller != reg.Admin {
			return domain.ErrNotAdmin
		}

		m, err := tx.Markets().Get(ctx, marketID)
		if err != nil {
			return err
		}
		if m.Resolved {
			return domain.ErrMarketResolved
		}

		m.Resolved = true
		m.WinningOutcome = winner
		m.ResolvedAt = &now
		return tx.Markets().Update(ctx, m)
	})
	if err != nil {
		return fmt.Errorf("settle: resolve market: %w", err)
	}

	e.logger.InfoContext(ctx, "settle: market resolved",
		slog.Uint64("market_id", marketID),
		slog.String("winning_outcome", winner.String()),
	)
	e.emit(ctx, domain.EventMarketResolved, marketID, now, domain.MarketResolved{
		MarketID:       marketID,
		Resolver:       caller,
		WinningOutcome: winner.String(),
		Timestamp:      now.Unix(),
	})
	e.writeAudit(ctx, "market_resolved", map[string]any{
		"market_id": marketID,
		"resolver":  caller,
		"outcome":   winner.String(),
	})
	return nil
}

// ClaimWinnings pays out a winner's proportional share of the market's total
// liquidity and consumes the position. Both token counters are zeroed
// unconditionally, so a second claim deterministically fails ErrNoWinnings,
// the same way a losing-side or never-bet claim does.
func (e *Engine) ClaimWinnings(ctx context.Context, claimer string, marketID uint64) (uint64, error) {
	now := e.clock().UTC()

	var payout uint64
	err := e.ledger.Update(ctx, func(tx domain.Tx) error {
		reg, err := tx.Registry().Get(ctx)
		if err != nil {
			return err
		}

		m, err := tx.Markets().Get(ctx, marketID)
		if err != nil {
			return err
		}
		if !m.Resolved {
			return domain.ErrMarketNotResolved
		}

		pos, err := tx.Positions().Get(ctx, claimer, marketID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNoWinnings
		} else if err != nil {
			return err
		}

		shares := pos.Tokens(m.WinningOutcome)
		if shares == 0 {
			return domain.ErrNoWinnings
		}

		payout = Payout(shares, m.TotalLiquidity, m.Pool(m.WinningOutcome))

		pos.YesTokens = 0
		pos.NoTokens = 0
		pos.UpdatedAt = now
		if err := tx.Positions().Update(ctx, pos); err != nil {
			return err
		}

		return tx.Treasury().Transfer(ctx, reg.VaultAccount, claimer, payout)
	})
	if err != nil {
		return 0, fmt.Errorf("settle: claim winnings: %w", err)
	}

	e.logger.InfoContext(ctx, "settle: winnings claimed",
		slog.Uint64("market_id", marketID),
		slog.String("claimer", claimer),
		slog.Uint64("payout", payout),
	)
	e.emit(ctx, domain.EventWinningsClaimed, marketID, now, domain.WinningsClaimed{
		MarketID:  marketID,
		Claimer:   claimer,
		Amount:    payout,
		Timestamp: now.Unix(),
	})
	return payout, nil
}

// Deposit credits a trader's account, standing in for the external wallet
// flow. Admin-gated at the transport layer.
func (e *Engine) Deposit(ctx context.Context, account string, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("settle: deposit: %w", domain.ErrInvalidAmount)
	}
	err := e.ledger.Update(ctx, func(tx domain.Tx) error {
		return tx.Treasury().Deposit(ctx, account, amount)
	})
	if err != nil {
		return fmt.Errorf("settle: deposit: %w", err)
	}
	e.writeAudit(ctx, "deposit", map[string]any{
		"account": account,
		"amount":  amount,
	})
	return nil
}

// emit publishes an event after a successful commit. Sink failures never
// affect the already-committed operation; they are logged and dropped.
func (e *Engine) emit(ctx context.Context, typ domain.EventType, marketID uint64, at time.Time, payload any) {
	if e.sink == nil {
		return
	}
	evt, err := domain.NewEvent(typ, marketID, at, payload)
	if err != nil {
		e.logger.ErrorContext(ctx, "settle: build event failed",
			slog.String("type", string(typ)),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := e.sink.Emit(ctx, evt); err != nil {
		e.logger.WarnContext(ctx, "settle: publish event failed",
			slog.String("type", string(typ)),
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) writeAudit(ctx context.Context, event string, detail map[string]any) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Log(ctx, event, detail); err != nil {
		e.logger.WarnContext(ctx, "settle: audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// vaultAccount derives the custody account name for a registry. The account
// exists only inside the treasury; no end user holds its identity.
func vaultAccount(admin string) string {
	return "vault:" + admin
}
