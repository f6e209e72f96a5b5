// Package memory implements the settlement stores as one centrally owned
// in-process keyed store: markets in an id-ordered table, positions in a
// map keyed by (trader, market id), balances in an account map. Transactions
// are copy-on-write under a single mutex, so a failed update leaves no
// partial effects behind.
package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/outcomelab/mutuel/internal/domain"
)

// Ledger is the in-memory domain.Ledger implementation. It is safe for
// concurrent use; mutating transactions serialize on an exclusive lock,
// which is exactly the all-or-nothing, one-at-a-time execution model the
// engine assumes.
type Ledger struct {
	mu    sync.RWMutex
	state *state
}

type state struct {
	registry  *domain.Registry
	markets   map[uint64]domain.Market
	order     []uint64 // market ids in creation order
	positions map[domain.PositionKey]domain.Position
	balances  map[string]uint64
	entries   []domain.LedgerEntry
}

func newState() *state {
	return &state{
		markets:   make(map[uint64]domain.Market),
		positions: make(map[domain.PositionKey]domain.Position),
		balances:  make(map[string]uint64),
	}
}

func (s *state) clone() *state {
	out := &state{
		markets:   maps.Clone(s.markets),
		order:     slices.Clone(s.order),
		positions: maps.Clone(s.positions),
		balances:  maps.Clone(s.balances),
		entries:   slices.Clone(s.entries),
	}
	if s.registry != nil {
		reg := *s.registry
		out.registry = &reg
	}
	return out
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{state: newState()}
}

// Update runs fn against a private copy of the state and swaps the copy in
// only when fn succeeds.
func (l *Ledger) Update(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	work := l.state.clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}
	l.state = work
	return nil
}

// View runs fn against the committed state under a shared lock.
func (l *Ledger) View(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(&memTx{st: l.state})
}

// ListBefore implements domain.LedgerEntryStore over the recorded fund
// movements.
func (l *Ledger) ListBefore(ctx context.Context, before time.Time) ([]domain.LedgerEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.LedgerEntry
	for _, e := range l.state.entries {
		if e.CreatedAt.Before(before) {
			out = append(out, e)
		}
	}
	return out, nil
}

type memTx struct {
	st *state
}

func (t *memTx) Registry() domain.RegistryStore  { return (*registryStore)(t) }
func (t *memTx) Markets() domain.MarketStore     { return (*marketStore)(t) }
func (t *memTx) Positions() domain.PositionStore { return (*positionStore)(t) }
func (t *memTx) Treasury() domain.Treasury       { return (*treasuryStore)(t) }

// --- registry ---

type registryStore memTx

func (s *registryStore) Get(ctx context.Context) (domain.Registry, error) {
	if s.st.registry == nil {
		return domain.Registry{}, domain.ErrNotInitialized
	}
	return *s.st.registry, nil
}

func (s *registryStore) Init(ctx context.Context, reg domain.Registry) error {
	if s.st.registry != nil {
		return domain.ErrAlreadyInitialized
	}
	s.st.registry = &reg
	return nil
}

func (s *registryStore) NextMarketID(ctx context.Context) (uint64, error) {
	if s.st.registry == nil {
		return 0, domain.ErrNotInitialized
	}
	id := s.st.registry.NextMarketID
	s.st.registry.NextMarketID++
	return id, nil
}

// --- markets ---

type marketStore memTx

func (s *marketStore) Create(ctx context.Context, m domain.Market) error {
	s.st.markets[m.ID] = m
	s.st.order = append(s.st.order, m.ID)
	return nil
}

func (s *marketStore) Get(ctx context.Context, id uint64) (domain.Market, error) {
	m, ok := s.st.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrMarketNotFound
	}
	return m, nil
}

func (s *marketStore) Update(ctx context.Context, m domain.Market) error {
	if _, ok := s.st.markets[m.ID]; !ok {
		return domain.ErrMarketNotFound
	}
	s.st.markets[m.ID] = m
	return nil
}

func (s *marketStore) Count(ctx context.Context) (uint64, error) {
	return uint64(len(s.st.order)), nil
}

func (s *marketStore) IDAt(ctx context.Context, index uint64) (uint64, error) {
	if index >= uint64(len(s.st.order)) {
		return 0, domain.ErrMarketNotFound
	}
	return s.st.order[index], nil
}

func (s *marketStore) List(ctx context.Context, limit, offset uint64) ([]domain.Market, error) {
	if offset >= uint64(len(s.st.order)) {
		return nil, nil
	}
	end := offset + limit
	if limit == 0 || end > uint64(len(s.st.order)) {
		end = uint64(len(s.st.order))
	}
	out := make([]domain.Market, 0, end-offset)
	for _, id := range s.st.order[offset:end] {
		out = append(out, s.st.markets[id])
	}
	return out, nil
}

// --- positions ---

type positionStore memTx

func (s *positionStore) Get(ctx context.Context, trader string, marketID uint64) (domain.Position, error) {
	p, ok := s.st.positions[domain.PositionKey{Trader: trader, MarketID: marketID}]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *positionStore) Create(ctx context.Context, p domain.Position) error {
	key := domain.PositionKey{Trader: p.Trader, MarketID: p.MarketID}
	if _, ok := s.st.positions[key]; ok {
		return domain.ErrPositionExists
	}
	s.st.positions[key] = p
	return nil
}

func (s *positionStore) Update(ctx context.Context, p domain.Position) error {
	key := domain.PositionKey{Trader: p.Trader, MarketID: p.MarketID}
	if _, ok := s.st.positions[key]; !ok {
		return domain.ErrNotFound
	}
	s.st.positions[key] = p
	return nil
}

func (s *positionStore) ListByTrader(ctx context.Context, trader string) ([]domain.Position, error) {
	var out []domain.Position
	for key, p := range s.st.positions {
		if key.Trader == trader {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.Position) int {
		return cmp.Compare(a.MarketID, b.MarketID)
	})
	return out, nil
}

// --- treasury ---

type treasuryStore memTx

func (s *treasuryStore) Balance(ctx context.Context, account string) (uint64, error) {
	return s.st.balances[account], nil
}

func (s *treasuryStore) Transfer(ctx context.Context, from, to string, amount uint64) error {
	if s.st.balances[from] < amount {
		return domain.ErrInsufficientFunds
	}
	s.st.balances[from] -= amount
	s.st.balances[to] += amount
	s.record(from, to, amount, "transfer")
	return nil
}

func (s *treasuryStore) Deposit(ctx context.Context, account string, amount uint64) error {
	s.st.balances[account] += amount
	s.record("", account, amount, "deposit")
	return nil
}

func (s *treasuryStore) record(from, to string, amount uint64, kind string) {
	s.st.entries = append(s.st.entries, domain.LedgerEntry{
		Ref:         uuid.NewString(),
		FromAccount: from,
		ToAccount:   to,
		Amount:      amount,
		Kind:        kind,
		CreatedAt:   time.Now().UTC(),
	})
}
