package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/outcomelab/mutuel/internal/domain"
)

// PositionViews defines the read operations the position handler needs.
type PositionViews interface {
	Position(ctx context.Context, trader string, marketID uint64) (domain.Position, error)
	Positions(ctx context.Context, trader string) ([]domain.Position, error)
	Balance(ctx context.Context, account string) (uint64, error)
}

// PositionHandler serves trader position and balance endpoints.
type PositionHandler struct {
	views  PositionViews
	logger *slog.Logger
}

// NewPositionHandler creates a PositionHandler with the given views and logger.
func NewPositionHandler(views PositionViews, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{views: views, logger: logger}
}

type positionResponse struct {
	Trader        string `json:"trader"`
	MarketID      uint64 `json:"market_id"`
	YesTokens     uint64 `json:"yes_tokens"`
	NoTokens      uint64 `json:"no_tokens"`
	TotalInvested uint64 `json:"total_invested"`
}

func toPositionResponse(trader string, marketID uint64, p domain.Position) positionResponse {
	return positionResponse{
		Trader:        trader,
		MarketID:      marketID,
		YesTokens:     p.YesTokens,
		NoTokens:      p.NoTokens,
		TotalInvested: p.TotalInvested,
	}
}

// GetPosition returns a trader's position in one market. Traders that never
// bet get an all-zero position rather than a 404.
// GET /api/traders/{trader}/positions/{id}
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	trader, err := normalizeAccount(r.PathValue("trader"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	marketID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pos, err := h.views.Position(r.Context(), trader, marketID)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toPositionResponse(trader, marketID, pos))
}

// ListPositions returns every position a trader holds.
// GET /api/traders/{trader}/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	trader, err := normalizeAccount(r.PathValue("trader"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	positions, err := h.views.Positions(r.Context(), trader)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	out := make([]positionResponse, 0, len(positions))
	for _, p := range positions {
		out = append(out, toPositionResponse(p.Trader, p.MarketID, p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trader":    trader,
		"positions": out,
	})
}

// GetBalance returns a trader's treasury balance.
// GET /api/traders/{trader}/balance
func (h *PositionHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	trader, err := normalizeAccount(r.PathValue("trader"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bal, err := h.views.Balance(r.Context(), trader)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account": trader,
		"balance": bal,
	})
}
