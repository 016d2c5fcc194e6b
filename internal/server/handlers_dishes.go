package server

import (
	"net/http"
	"strconv"

	"ai-menu-builder/internal/dishes"
	"ai-menu-builder/internal/shared"
)

type importDishRequest struct {
	URL string `json:"url" validate:"required,url"`
}

func (s *Server) handleImportDish(w http.ResponseWriter, r *http.Request) {
	var req importDishRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateStruct(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.deps.Importer.ImportFromURL(r.Context(), req.URL)
	s.recordMetas([]shared.AgentMeta{result.Meta})
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.deps.Library.Add(r.Context(), result.Dish); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, result.Dish)
}

func (s *Server) handleListDishes(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := s.deps.Dishes.List(r.Context(), limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []dishes.Dish{}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"dishes": list})
}

func (s *Server) handleSimilarDishes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "q query parameter is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 5
	}

	list, err := s.deps.Library.FindSimilar(r.Context(), query, limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []dishes.Dish{}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"dishes": list})
}
