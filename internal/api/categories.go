package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meur/comparador/internal/models"
	"github.com/meur/comparador/internal/service"
)

// categoryParam resolves the {category} path segment or writes a 404
func (s *Server) categoryParam(w http.ResponseWriter, r *http.Request) (models.Category, bool) {
	c, err := s.svc.ResolveCategory(chi.URLParam(r, "category"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Categoría no encontrada")
		return "", false
	}
	return c, true
}

// handleGetCategories returns every category with its ordered indicators
func (s *Server) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.svc.Registry().Describe())
}

// handleGetItems returns the normalized items of a category
func (s *Server) handleGetItems(w http.ResponseWriter, r *http.Request) {
	category, ok := s.categoryParam(w, r)
	if !ok {
		return
	}

	list, err := s.svc.List(r.Context(), category)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch items")
		return
	}

	respondJSON(w, http.StatusOK, list)
}

// handleGetItem returns a single item
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	category, ok := s.categoryParam(w, r)
	if !ok {
		return
	}

	item, err := s.svc.Get(r.Context(), category, chi.URLParam(r, "id"))
	if errors.Is(err, service.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Item not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch item")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// handleGetCharts returns per-indicator chart data for a category
func (s *Server) handleGetCharts(w http.ResponseWriter, r *http.Request) {
	category, ok := s.categoryParam(w, r)
	if !ok {
		return
	}

	charts, err := s.svc.Charts(r.Context(), category)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to build charts")
		return
	}

	respondJSON(w, http.StatusOK, charts)
}
