package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/clinical-rosetta/internal/index"
	"github.com/clinical-rosetta/internal/match"
	"github.com/clinical-rosetta/internal/model"
)

// Resolver is the engine contract the handlers serve
type Resolver interface {
	Translate(text string, minConfidence float64) match.Result
	BatchTranslate(texts []string, minConfidence float64) []match.Result
	Confirm(ctx context.Context, text string, id model.Identifier) (model.LearnedEntry, error)
	Search(query string, limit int) []index.SearchHit
	Concept(id model.Identifier) (model.Concept, bool)
	Stats() model.Stats
}

// MaxSearchLimit caps the limit a search request may ask for
const MaxSearchLimit = 100

// SearchResponse is the body of a search
type SearchResponse struct {
	Query   string            `json:"query"`
	Count   int               `json:"count"`
	Results []index.SearchHit `json:"results"`
}

// APIHandler handles the resolution API
type APIHandler struct {
	Engine   Resolver
	Logger   *zap.Logger
	MaxBatch int
}

// ConfirmRequest is the body of a confirmation
type ConfirmRequest struct {
	Text       string `json:"text"`
	Identifier string `json:"identifier"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Error string `json:"error"`
}

// Translate resolves the q parameter
func (h *APIHandler) Translate(w http.ResponseWriter, r *http.Request) {
	minConfidence, ok := parseMinConfidence(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Engine.Translate(r.URL.Query().Get("q"), minConfidence))
}

// BatchTranslate resolves a JSON array of texts, answering in input order
func (h *APIHandler) BatchTranslate(w http.ResponseWriter, r *http.Request) {
	minConfidence, ok := parseMinConfidence(w, r)
	if !ok {
		return
	}

	var texts []string
	if err := json.NewDecoder(r.Body).Decode(&texts); err != nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON array of strings")
		return
	}
	if h.MaxBatch > 0 && len(texts) > h.MaxBatch {
		writeError(w, http.StatusRequestEntityTooLarge, "batch exceeds "+strconv.Itoa(h.MaxBatch)+" texts")
		return
	}

	writeJSON(w, http.StatusOK, h.Engine.BatchTranslate(texts, minConfidence))
}

// Confirm records a user-confirmed mapping
func (h *APIHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	entry, err := h.Engine.Confirm(r.Context(), req.Text, model.Identifier(req.Identifier))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, entry)
	case errors.Is(err, model.ErrUnknownIdentifier):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrDataStoreUnavailable):
		h.logger().Error("confirmation not stored", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "learning store unavailable")
	default:
		h.logger().Error("confirmation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "confirmation failed")
	}
}

// Search browses concepts by name
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing required parameter: q")
		return
	}

	limit := index.DefaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	hits := h.Engine.Search(query, limit)
	writeJSON(w, http.StatusOK, SearchResponse{Query: query, Count: len(hits), Results: hits})
}

// GetConcept returns one canonical concept
func (h *APIHandler) GetConcept(w http.ResponseWriter, r *http.Request) {
	id := model.Identifier(mux.Vars(r)["id"])
	concept, ok := h.Engine.Concept(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown identifier "+strconv.Quote(string(id)))
		return
	}
	writeJSON(w, http.StatusOK, concept)
}

// GetStats returns the engine statistics
func (h *APIHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Stats())
}

// Health reports liveness
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// parseMinConfidence reads min_confidence, writing a 400 when it is not a
// number in [0,1]
func parseMinConfidence(w http.ResponseWriter, r *http.Request) (float64, bool) {
	raw := r.URL.Query().Get("min_confidence")
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 1 {
		writeError(w, http.StatusBadRequest, "min_confidence must be a number between 0 and 1")
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
