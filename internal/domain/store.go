package domain

import (
	"context"
	"time"
)

// Ledger is the unit-of-work boundary around all settlement state. Every
// mutating engine operation runs inside exactly one Update call: either every
// write in fn commits, or none do. View runs fn against a consistent
// read-only snapshot.
type Ledger interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes the stores of one atomic unit. Implementations guarantee that
// reads observe the latest committed state and that writes are invisible to
// other transactions until commit.
type Tx interface {
	Registry() RegistryStore
	Markets() MarketStore
	Positions() PositionStore
	Treasury() Treasury
}

// RegistryStore persists the singleton Registry.
type RegistryStore interface {
	// Get returns the registry, or ErrNotInitialized.
	Get(ctx context.Context) (Registry, error)
	// Init creates the registry, or fails with ErrAlreadyInitialized.
	Init(ctx context.Context, reg Registry) error
	// NextMarketID returns the next sequential id (starting at 1) and
	// advances the counter.
	NextMarketID(ctx context.Context) (uint64, error)
}

// MarketStore persists markets keyed by their sequential id. Markets are
// never deleted; the id ordering doubles as the registry's ordered id list.
type MarketStore interface {
	Create(ctx context.Context, m Market) error
	// Get returns the market, or ErrMarketNotFound.
	Get(ctx context.Context, id uint64) (Market, error)
	Update(ctx context.Context, m Market) error
	Count(ctx context.Context) (uint64, error)
	// IDAt returns the market id at the given zero-based index of the
	// ordered id list, or ErrMarketNotFound when out of range.
	IDAt(ctx context.Context, index uint64) (uint64, error)
	List(ctx context.Context, limit, offset uint64) ([]Market, error)
}

// PositionStore persists positions keyed by (trader, market id). Records are
// append/mutate-only, matching ledger semantics.
type PositionStore interface {
	// Get returns the position, or ErrNotFound.
	Get(ctx context.Context, trader string, marketID uint64) (Position, error)
	// Create inserts a new position, or fails with ErrPositionExists.
	Create(ctx context.Context, p Position) error
	Update(ctx context.Context, p Position) error
	ListByTrader(ctx context.Context, trader string) ([]Position, error)
}

// Treasury moves custodied funds between accounts. The vault account is
// program-controlled: the settlement engine is its only authorized caller,
// and there is no other path funds can exit through.
type Treasury interface {
	// Balance returns the account's balance; unknown accounts hold zero.
	Balance(ctx context.Context, account string) (uint64, error)
	// Transfer debits from and credits to atomically within the enclosing
	// transaction, or fails with ErrInsufficientFunds.
	Transfer(ctx context.Context, from, to string, amount uint64) error
	// Deposit credits an account from outside the system, standing in for
	// the external wallet flow.
	Deposit(ctx context.Context, account string, amount uint64) error
}

// LedgerEntry is one recorded fund movement, kept for audit and archival.
type LedgerEntry struct {
	Ref         string
	FromAccount string
	ToAccount   string
	Amount      uint64
	Kind        string // "seed", "stake", "payout", "deposit"
	CreatedAt   time.Time
}

// LedgerEntryStore reads recorded fund movements.
type LedgerEntryStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]LedgerEntry, error)
}

// AuditEntry is a single append-only audit row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists the append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	ListBefore(ctx context.Context, before time.Time) ([]AuditEntry, error)
}

// MarketSnapshot is the cached view-layer projection of a market.
type MarketSnapshot struct {
	Market    Market    `json:"market"`
	FetchedAt time.Time `json:"fetched_at"`
}

// SnapshotCache is a short-TTL cache for polling clients; misses return
// ErrNotFound.
type SnapshotCache interface {
	Set(ctx context.Context, snap MarketSnapshot) error
	Get(ctx context.Context, marketID uint64) (MarketSnapshot, error)
}
