package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outcomelab/mutuel/internal/settle"
	"github.com/outcomelab/mutuel/internal/store/memory"
)

const (
	adminAcct = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	aliceAcct = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	bobAcct   = "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"
)

// newTestAPI builds the full route table over a real engine and an in-memory
// ledger, bypassing the middleware chain.
func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := memory.NewLedger()
	engine := settle.NewEngine(ledger, nil, logger)
	views := settle.NewViews(ledger, nil, nil)

	markets := NewMarketHandler(views, logger)
	bets := NewBetHandler(engine, logger)
	positions := NewPositionHandler(views, logger)
	admin := NewAdminHandler(engine, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/markets", markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/pools", markets.GetPools)
	mux.HandleFunc("GET /api/markets/{id}/status", markets.GetStatus)
	mux.HandleFunc("GET /api/vault", markets.GetVault)
	mux.HandleFunc("POST /api/markets/{id}/bets", bets.PlaceBet)
	mux.HandleFunc("POST /api/markets/{id}/claims", bets.Claim)
	mux.HandleFunc("GET /api/traders/{trader}/positions", positions.ListPositions)
	mux.HandleFunc("GET /api/traders/{trader}/positions/{id}", positions.GetPosition)
	mux.HandleFunc("GET /api/traders/{trader}/balance", positions.GetBalance)
	mux.HandleFunc("POST /api/admin/initialize", admin.Initialize)
	mux.HandleFunc("POST /api/admin/markets", admin.CreateMarket)
	mux.HandleFunc("POST /api/admin/markets/{id}/resolve", admin.ResolveMarket)
	mux.HandleFunc("POST /api/admin/deposits", admin.Deposit)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func initAndFund(t *testing.T, srv *httptest.Server) {
	t.Helper()
	status, _ := doJSON(t, srv, http.MethodPost, "/api/admin/initialize",
		map[string]any{"admin": adminAcct})
	require.Equal(t, http.StatusCreated, status)

	status, _ = doJSON(t, srv, http.MethodPost, "/api/admin/deposits",
		map[string]any{"account": adminAcct, "amount": 100})
	require.Equal(t, http.StatusCreated, status)
}

func createMarket(t *testing.T, srv *httptest.Server) uint64 {
	t.Helper()
	status, body := doJSON(t, srv, http.MethodPost, "/api/admin/markets", map[string]any{
		"caller":            adminAcct,
		"name":              "rain tomorrow",
		"initial_liquidity": 100,
		"expires_at":        time.Now().Add(time.Hour).Unix(),
	})
	require.Equal(t, http.StatusCreated, status)
	return uint64(body["id"].(float64))
}

func TestLifecycleOverHTTP(t *testing.T) {
	srv := newTestAPI(t)

	// Vault is unknown until the registry exists.
	status, _ := doJSON(t, srv, http.MethodGet, "/api/vault", nil)
	assert.Equal(t, http.StatusNotFound, status)

	initAndFund(t, srv)

	status, body := doJSON(t, srv, http.MethodGet, "/api/vault", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "vault:"+adminAcct, body["vault"])

	id := createMarket(t, srv)
	require.Equal(t, uint64(1), id)

	status, body = doJSON(t, srv, http.MethodGet, "/api/markets/1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "rain tomorrow", body["name"])
	assert.Equal(t, float64(50), body["yes_pool"])
	assert.Equal(t, float64(50), body["no_pool"])
	assert.NotContains(t, body, "winning_outcome")

	// Fund and bet both traders.
	for acct, amount := range map[string]uint64{aliceAcct: 30, bobAcct: 20} {
		status, _ = doJSON(t, srv, http.MethodPost, "/api/admin/deposits",
			map[string]any{"account": acct, "amount": amount})
		require.Equal(t, http.StatusCreated, status)
	}

	status, body = doJSON(t, srv, http.MethodPost, "/api/markets/1/bets",
		map[string]any{"trader": aliceAcct, "side": "yes", "amount": 30})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(80), body["yes_pool"])

	status, _ = doJSON(t, srv, http.MethodPost, "/api/markets/1/bets",
		map[string]any{"trader": bobAcct, "side": "no", "amount": 20})
	require.Equal(t, http.StatusCreated, status)

	status, body = doJSON(t, srv, http.MethodGet, "/api/markets/1/pools", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(150), body["total_liquidity"])

	// Resolve YES and settle.
	status, _ = doJSON(t, srv, http.MethodPost, "/api/admin/markets/1/resolve",
		map[string]any{"caller": adminAcct, "outcome": "yes"})
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, srv, http.MethodGet, "/api/markets/1/status", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["resolved"])
	assert.Equal(t, "yes", body["winning_outcome"])

	status, body = doJSON(t, srv, http.MethodPost, "/api/markets/1/claims",
		map[string]any{"claimer": aliceAcct})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(56), body["payout"])

	status, body = doJSON(t, srv, http.MethodGet, "/api/traders/"+aliceAcct+"/balance", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(56), body["balance"])

	// Losing side and repeat claims surface as entitlement conflicts.
	status, body = doJSON(t, srv, http.MethodPost, "/api/markets/1/claims",
		map[string]any{"claimer": bobAcct})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "entitlement", body["kind"])

	status, _ = doJSON(t, srv, http.MethodPost, "/api/markets/1/claims",
		map[string]any{"claimer": aliceAcct})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestErrorStatusMapping(t *testing.T) {
	srv := newTestAPI(t)
	initAndFund(t, srv)
	createMarket(t, srv)

	t.Run("unknown market is 404", func(t *testing.T) {
		status, body := doJSON(t, srv, http.MethodGet, "/api/markets/42", nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "market not found", body["error"])

		status, body = doJSON(t, srv, http.MethodPost, "/api/markets/42/bets",
			map[string]any{"trader": aliceAcct, "side": "yes", "amount": 5})
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "not_found", body["kind"])
	})

	t.Run("non-admin mutation is 403", func(t *testing.T) {
		status, body := doJSON(t, srv, http.MethodPost, "/api/admin/markets", map[string]any{
			"caller":            aliceAcct,
			"name":              "rogue",
			"initial_liquidity": 1,
		})
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "authorization", body["kind"])
	})

	t.Run("double initialize is 409", func(t *testing.T) {
		status, body := doJSON(t, srv, http.MethodPost, "/api/admin/initialize",
			map[string]any{"admin": aliceAcct})
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "state_conflict", body["kind"])
	})

	t.Run("zero amount bet is 400", func(t *testing.T) {
		status, body := doJSON(t, srv, http.MethodPost, "/api/markets/1/bets",
			map[string]any{"trader": aliceAcct, "side": "yes", "amount": 0})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "validation", body["kind"])
	})

	t.Run("claim before resolution is 409", func(t *testing.T) {
		status, body := doJSON(t, srv, http.MethodPost, "/api/markets/1/claims",
			map[string]any{"claimer": aliceAcct})
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "market not resolved", body["error"])
	})
}

func TestRequestValidation(t *testing.T) {
	srv := newTestAPI(t)
	initAndFund(t, srv)
	createMarket(t, srv)

	t.Run("bad market id", func(t *testing.T) {
		for _, path := range []string{"/api/markets/abc", "/api/markets/0"} {
			status, _ := doJSON(t, srv, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusBadRequest, status, "path %s", path)
		}
	})

	t.Run("bad side", func(t *testing.T) {
		status, _ := doJSON(t, srv, http.MethodPost, "/api/markets/1/bets",
			map[string]any{"trader": aliceAcct, "side": "maybe", "amount": 5})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("unknown body field", func(t *testing.T) {
		status, _ := doJSON(t, srv, http.MethodPost, "/api/markets/1/bets",
			map[string]any{"trader": aliceAcct, "side": "yes", "amount": 5, "bogus": 1})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("malformed wallet address", func(t *testing.T) {
		status, _ := doJSON(t, srv, http.MethodPost, "/api/markets/1/bets",
			map[string]any{"trader": "0xnothex", "side": "yes", "amount": 5})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("missing market name", func(t *testing.T) {
		status, _ := doJSON(t, srv, http.MethodPost, "/api/admin/markets",
			map[string]any{"caller": adminAcct, "initial_liquidity": 1})
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestAddressNormalizationOverHTTP(t *testing.T) {
	srv := newTestAPI(t)
	initAndFund(t, srv)
	createMarket(t, srv)

	lower := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	status, _ := doJSON(t, srv, http.MethodPost, "/api/admin/deposits",
		map[string]any{"account": lower, "amount": 30})
	require.Equal(t, http.StatusCreated, status)

	status, body := doJSON(t, srv, http.MethodPost, "/api/markets/1/bets",
		map[string]any{"trader": lower, "side": "yes", "amount": 30})
	require.Equal(t, http.StatusCreated, status)
	// Both spellings fold to the checksummed form.
	assert.Equal(t, aliceAcct, body["trader"])

	status, body = doJSON(t, srv, http.MethodGet,
		fmt.Sprintf("/api/traders/%s/positions/1", aliceAcct), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(30), body["yes_tokens"])
}

func TestPositionEndpoints(t *testing.T) {
	srv := newTestAPI(t)
	initAndFund(t, srv)
	createMarket(t, srv)

	// A trader that never bet reads back all zeros, not a 404.
	status, body := doJSON(t, srv, http.MethodGet,
		"/api/traders/"+bobAcct+"/positions/1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["yes_tokens"])
	assert.Equal(t, float64(0), body["total_invested"])

	status, body = doJSON(t, srv, http.MethodGet,
		"/api/traders/"+bobAcct+"/positions", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["positions"])
}

func TestListMarketsPagination(t *testing.T) {
	srv := newTestAPI(t)
	initAndFund(t, srv)

	status, _ := doJSON(t, srv, http.MethodPost, "/api/admin/deposits",
		map[string]any{"account": adminAcct, "amount": 200})
	require.Equal(t, http.StatusCreated, status)

	for i := 0; i < 3; i++ {
		createMarket(t, srv)
	}

	status, body := doJSON(t, srv, http.MethodGet, "/api/markets?limit=2&offset=1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(2), body["limit"])
	assert.Equal(t, float64(1), body["offset"])
	assert.Len(t, body["markets"], 2)
}
