package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/gradecalc/internal/catalog"
	"github.com/MikeSquared-Agency/gradecalc/internal/grading"
	"github.com/MikeSquared-Agency/gradecalc/internal/session"
)

type SessionsHandler struct {
	calc *calculator
}

func NewSessionsHandler(calc *calculator) *SessionsHandler {
	return &SessionsHandler{calc: calc}
}

type EntryRequest struct {
	Course string `json:"course"`
	Title  string `json:"title"`
	Value  string `json:"value"`
}

type ComputeRequest struct {
	Entries []EntryRequest `json:"entries"`
}

type SessionResponse struct {
	SessionID string               `json:"session_id"`
	Entries   []grading.ScoreEntry `json:"entries"`
	Results   ResultsResponse      `json:"results"`
}

type CatalogResponse struct {
	Courses      []catalog.Course `json:"courses"`
	TotalCredits int              `json:"total_credits"`
	BestCredits  int              `json:"best_credits"`
	WorstCredits int              `json:"worst_credits"`
}

// Catalog returns the active course catalog.
// GET /api/v1/catalog
func (h *SessionsHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	cat := h.calc.catalog.Load()
	writeJSON(w, http.StatusOK, CatalogResponse{
		Courses:      cat.Courses(),
		TotalCredits: cat.TotalCredits(),
		BestCredits:  grading.BestCredits,
		WorstCredits: grading.WorstCredits,
	})
}

// Create opens an empty session.
// POST /api/v1/sessions
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := h.calc.store.Create(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id.String()})
}

// Get returns a session's entries and freshly computed results.
// GET /api/v1/sessions/{id}
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	entries, err := h.calc.store.Entries(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	h.writeSession(w, id, entries)
}

// SetEntry inserts or replaces one component value and returns the new results.
// PUT /api/v1/sessions/{id}/entries
func (h *SessionsHandler) SetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	entries, err := h.calc.edit(r.Context(), id, req.Course, req.Title, req.Value)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	h.writeSession(w, id, entries)
}

// Compute aggregates the given entries without touching any session. Repeated
// (course, title) pairs replace earlier ones.
// POST /api/v1/compute
func (h *SessionsHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var entries []grading.ScoreEntry
	for _, er := range req.Entries {
		e, err := h.calc.entry(er.Course, er.Title, er.Value)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		entries = grading.Upsert(entries, e)
	}

	cat, _, res := h.calc.compute(entries, surfaceCompute, "")
	writeJSON(w, http.StatusOK, newResultsResponse(cat, res))
}

func (h *SessionsHandler) writeSession(w http.ResponseWriter, id uuid.UUID, entries []grading.ScoreEntry) {
	cat, entries, res := h.calc.compute(entries, surfaceAPI, id.String())
	writeJSON(w, http.StatusOK, SessionResponse{
		SessionID: id.String(),
		Entries:   entries,
		Results:   newResultsResponse(cat, res),
	})
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, catalog.ErrUnknownComponent):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
