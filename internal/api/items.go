package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meur/comparador/internal/models"
	"github.com/meur/comparador/internal/service"
	"github.com/meur/comparador/internal/validate"
)

const saveFailedMessage = "No se pudieron guardar los datos."

// writeFailure reports a create/update failure. The submitted draft is echoed
// back so the form keeps the user's edits.
func writeFailure(w http.ResponseWriter, err error, draft models.Item) {
	var fields validate.Errors
	switch {
	case errors.As(err, &fields):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "Datos inválidos",
			"fields": fields,
			"item":   draft,
		})
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, "Item not found")
	default:
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": saveFailedMessage,
			"item":  draft,
		})
	}
}

// handleCreateItem creates a new item from a form draft
func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var draft map[string]interface{}
	if err := decodeJSON(r, &draft); err != nil || draft == nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := s.svc.Create(r.Context(), draft)
	if err != nil {
		writeFailure(w, err, item)
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

// handleUpdateItem replaces an existing item's name, color and indicators
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	category, ok := s.categoryParam(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var draft map[string]interface{}
	if err := decodeJSON(r, &draft); err != nil || draft == nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := s.svc.Update(r.Context(), category, id, draft)
	if err != nil {
		writeFailure(w, err, item)
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// handleSeedAll populates every empty category with demo rows
func (s *Server) handleSeedAll(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.SeedAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Error al poblar la base de datos")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// handleSeedCategory populates one category if it is empty
func (s *Server) handleSeedCategory(w http.ResponseWriter, r *http.Request) {
	category, ok := s.categoryParam(w, r)
	if !ok {
		return
	}

	n, err := s.svc.Seed(r.Context(), category)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Error al poblar la base de datos")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"category": category,
		"inserted": n,
	})
}

// handleGetStats returns per-category item counts
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
