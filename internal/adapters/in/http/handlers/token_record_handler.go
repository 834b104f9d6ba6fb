// internal/adapters/in/http/handlers/token_record_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"splforge/internal/application/usecase"
	dom "splforge/internal/domain/issuance"
)

// 1 record is well under this; larger bodies are rejected before decoding
const maxBodyBytes = 64 << 10

// TokenRecordHandler serves the record-keeping API.
type TokenRecordHandler struct {
	UC *usecase.RecordUsecase
}

func NewTokenRecordHandler(uc *usecase.RecordUsecase) *TokenRecordHandler {
	return &TokenRecordHandler{UC: uc}
}

// POST /api/create-token
func (h *TokenRecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rec dom.Record
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err)
		return
	}

	out, err := h.UC.Create(r.Context(), rec)
	if err != nil {
		h.writeUsecaseError(w, err)
		return
	}
	log.Printf("[record] created mint=%s symbol=%s", maskShort(out.MintAddress), out.Symbol)
	writeJSON(w, http.StatusCreated, out)
}

// GET /api/tokens/{mintAddress}
func (h *TokenRecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.UC.GetByMintAddress(r.Context(), chi.URLParam(r, "mintAddress"))
	if err != nil {
		h.writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/tokens?owner=...&limit=...
func (h *TokenRecordHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.UC.ListByOwner(r.Context(), q.Get("owner"), parseIntDefault(q.Get("limit"), 0))
	if err != nil {
		h.writeUsecaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "count": len(out)})
}

func (h *TokenRecordHandler) writeUsecaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, "invalid_record", err)
	case errors.Is(err, dom.ErrRecordConflict):
		writeError(w, http.StatusConflict, "already_recorded", err)
	case errors.Is(err, dom.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		log.Printf("[record] ERROR %v", err)
		writeError(w, http.StatusInternalServerError, "internal", errors.New("internal server error"))
	}
}

// ============================================================
// helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, map[string]string{"error": code, "detail": err.Error()})
}

func parseIntDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func maskShort(s string) string {
	t := strings.TrimSpace(s)
	if len(t) <= 10 {
		return t
	}
	return t[:4] + "***" + t[len(t)-4:]
}
