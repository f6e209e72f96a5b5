package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/outcomelab/mutuel/internal/domain"
)

// AdminEngine defines the privileged operations the admin handler needs.
type AdminEngine interface {
	Initialize(ctx context.Context, admin string) (domain.Registry, error)
	CreateMarket(ctx context.Context, caller, name, description string, initialLiquidity uint64, expiresAt int64) (domain.Market, error)
	ResolveMarket(ctx context.Context, caller string, marketID uint64, winner domain.Outcome) error
	Deposit(ctx context.Context, account string, amount uint64) error
}

// AdminHandler serves the admin-gated mutation endpoints. The routes are
// wrapped in the admin auth middleware; the engine re-checks the registry
// admin on every call regardless.
type AdminHandler struct {
	engine AdminEngine
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler with the given engine and logger.
func NewAdminHandler(engine AdminEngine, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{engine: engine, logger: logger}
}

type initializeRequest struct {
	Admin string `json:"admin"`
}

// Initialize creates the registry once.
// POST /api/admin/initialize
func (h *AdminHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	admin, err := normalizeAccount(req.Admin)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reg, err := h.engine.Initialize(r.Context(), admin)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"admin": reg.Admin,
		"vault": reg.VaultAccount,
	})
}

type createMarketRequest struct {
	Caller           string `json:"caller"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	InitialLiquidity uint64 `json:"initial_liquidity"`
	ExpiresAt        int64  `json:"expires_at"`
}

// CreateMarket opens a new market seeded from the caller's balance.
// POST /api/admin/markets
func (h *AdminHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	caller, err := normalizeAccount(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing market name")
		return
	}

	market, err := h.engine.CreateMarket(r.Context(), caller, req.Name, req.Description, req.InitialLiquidity, req.ExpiresAt)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMarketResponse(market))
}

type resolveMarketRequest struct {
	Caller  string `json:"caller"`
	Outcome string `json:"outcome"`
}

// ResolveMarket freezes a market on its winning outcome.
// POST /api/admin/markets/{id}/resolve
func (h *AdminHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	marketID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req resolveMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	caller, err := normalizeAccount(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	winner, ok := domain.ParseOutcome(req.Outcome)
	if !ok {
		writeError(w, http.StatusBadRequest, "outcome must be \"yes\" or \"no\"")
		return
	}

	if err := h.engine.ResolveMarket(r.Context(), caller, marketID, winner); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"market_id":       marketID,
		"winning_outcome": winner.String(),
	})
}

type depositRequest struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

// Deposit credits a trader's account.
// POST /api/admin/deposits
func (h *AdminHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	account, err := normalizeAccount(req.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.Deposit(r.Context(), account, req.Amount); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"account": account,
		"amount":  req.Amount,
	})
}
