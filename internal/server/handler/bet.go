package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/outcomelab/mutuel/internal/domain"
)

// BetEngine defines the trading operations the bet handler needs.
type BetEngine interface {
	PlaceBet(ctx context.Context, trader string, marketID uint64, side domain.Outcome, amount uint64) (domain.Market, error)
	ClaimWinnings(ctx context.Context, claimer string, marketID uint64) (uint64, error)
}

// BetHandler serves bet placement and winnings claims.
type BetHandler struct {
	engine BetEngine
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler with the given engine and logger.
func NewBetHandler(engine BetEngine, logger *slog.Logger) *BetHandler {
	return &BetHandler{engine: engine, logger: logger}
}

type placeBetRequest struct {
	Trader string `json:"trader"`
	Side   string `json:"side"`
	Amount uint64 `json:"amount"`
}

// PlaceBet stakes an amount on one side of a market.
// POST /api/markets/{id}/bets
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	marketID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req placeBetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	trader, err := normalizeAccount(req.Trader)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	side, ok := domain.ParseOutcome(req.Side)
	if !ok {
		writeError(w, http.StatusBadRequest, "side must be \"yes\" or \"no\"")
		return
	}

	market, err := h.engine.PlaceBet(r.Context(), trader, marketID, side, req.Amount)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"market_id":       market.ID,
		"trader":          trader,
		"side":            side.String(),
		"amount":          req.Amount,
		"yes_pool":        market.YesPool,
		"no_pool":         market.NoPool,
		"total_liquidity": market.TotalLiquidity,
	})
}

type claimRequest struct {
	Claimer string `json:"claimer"`
}

// Claim pays out a winner's share of a resolved market.
// POST /api/markets/{id}/claims
func (h *BetHandler) Claim(w http.ResponseWriter, r *http.Request) {
	marketID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req claimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	claimer, err := normalizeAccount(req.Claimer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payout, err := h.engine.ClaimWinnings(r.Context(), claimer, marketID)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": marketID,
		"claimer":   claimer,
		"payout":    payout,
	})
}
