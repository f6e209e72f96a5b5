package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/outcomelab/mutuel/internal/domain"
)

// MarketViews defines the read operations the market handler needs. It is
// declared locally so the handler package does not depend on the concrete
// view layer.
type MarketViews interface {
	Market(ctx context.Context, id uint64) (domain.Market, error)
	Markets(ctx context.Context, limit, offset uint64) ([]domain.Market, error)
	MarketCount(ctx context.Context) (uint64, error)
	Pools(ctx context.Context, id uint64) (yes, no, total uint64, err error)
	Status(ctx context.Context, id uint64) (domain.MarketStatus, error)
	VaultAddress(ctx context.Context) (string, error)
}

// MarketHandler serves market read endpoints.
type MarketHandler struct {
	views  MarketViews
	logger *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given views and logger.
func NewMarketHandler(views MarketViews, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{views: views, logger: logger}
}

// marketResponse is the wire shape of a market.
type marketResponse struct {
	ID             uint64 `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	YesPool        uint64 `json:"yes_pool"`
	NoPool         uint64 `json:"no_pool"`
	TotalLiquidity uint64 `json:"total_liquidity"`
	ExpiresAt      int64  `json:"expires_at"`
	Resolved       bool   `json:"resolved"`
	WinningOutcome string `json:"winning_outcome,omitempty"`
}

func toMarketResponse(m domain.Market) marketResponse {
	resp := marketResponse{
		ID:             m.ID,
		Name:           m.Name,
		Description:    m.Description,
		YesPool:        m.YesPool,
		NoPool:         m.NoPool,
		TotalLiquidity: m.TotalLiquidity,
		ExpiresAt:      m.ExpiresAt,
		Resolved:       m.Resolved,
	}
	if m.Resolved {
		resp.WinningOutcome = m.WinningOutcome.String()
	}
	return resp
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []marketResponse `json:"markets"`
	Total   uint64           `json:"total"`
	Limit   uint64           `json:"limit"`
	Offset  uint64           `json:"offset"`
}

// ListMarkets returns markets ordered by id with pagination.
// GET /api/markets?limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePage(r)

	markets, err := h.views.Markets(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	total, err := h.views.MarketCount(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	out := make([]marketResponse, 0, len(markets))
	for _, m := range markets {
		out = append(out, toMarketResponse(m))
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: out,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	market, err := h.views.Market(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if market.ID == 0 {
		writeError(w, http.StatusNotFound, "market not found")
		return
	}

	writeJSON(w, http.StatusOK, toMarketResponse(market))
}

// GetPools returns the pool balances for a market.
// GET /api/markets/{id}/pools
func (h *MarketHandler) GetPools(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	yes, no, total, err := h.views.Pools(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]uint64{
		"yes_pool":        yes,
		"no_pool":         no,
		"total_liquidity": total,
	})
}

// GetStatus returns the lifecycle status of a market.
// GET /api/markets/{id}/status
func (h *MarketHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := h.views.Status(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	resp := map[string]any{
		"resolved": status.Resolved,
		"expired":  status.Expired,
	}
	if status.Resolved {
		resp["winning_outcome"] = status.WinningOutcome.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetVault returns the registry's custody account.
// GET /api/vault
func (h *MarketHandler) GetVault(w http.ResponseWriter, r *http.Request) {
	vault, err := h.views.VaultAddress(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if vault == "" {
		writeError(w, http.StatusNotFound, "registry not initialized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"vault": vault})
}
