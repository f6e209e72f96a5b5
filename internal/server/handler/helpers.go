package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/outcomelab/mutuel/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps an engine error onto an HTTP status by its kind and
// sends the JSON error body. Internal errors are logged and masked.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := domain.KindOf(err)

	var status int
	switch kind {
	case domain.KindAuthorization:
		status = http.StatusForbidden
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindStateConflict:
		status = http.StatusConflict
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindTemporal:
		status = http.StatusGone
	case domain.KindEntitlement:
		status = http.StatusUnprocessableEntity
	default:
		logger.ErrorContext(r.Context(), "handler: internal error",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, status, map[string]string{
		"error": unwrapSentinel(err).Error(),
		"kind":  string(kind),
	})
}

// unwrapSentinel walks to the innermost error so clients see the sentinel
// message without the internal call-path prefixes.
func unwrapSentinel(err error) error {
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return err
		}
		err = inner
	}
}

// decodeJSON reads the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// pathID extracts a numeric path parameter using Go 1.22+ built-in routing.
func pathID(r *http.Request, name string) (uint64, error) {
	raw := r.PathValue(name)
	if raw == "" {
		return 0, errors.New("missing " + name)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// parsePage extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parsePage(r *http.Request) (limit, offset uint64) {
	q := r.URL.Query()

	limit = 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	if v := q.Get("offset"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			offset = n
		}
	}
	return limit, offset
}

// normalizeAccount canonicalizes account identifiers. Hex wallet addresses
// are rewritten into their EIP-55 checksummed form so the same wallet never
// appears under two spellings; other identifiers pass through unchanged.
func normalizeAccount(s string) (string, error) {
	if s == "" {
		return "", errors.New("missing account")
	}
	if has0xPrefix(s) {
		if !common.IsHexAddress(s) {
			return "", errors.New("malformed wallet address")
		}
		return common.HexToAddress(s).Hex(), nil
	}
	return s, nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
