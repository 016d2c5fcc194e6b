package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ai-menu-builder/internal/menu"
	"ai-menu-builder/internal/profile"
)

// handleSaveProfile upserts the raw profile record for a user code.
// The body is stored as-is; sub-field quirks are resolved by the
// loader at read time, so a record that arrives with string-encoded
// lists is legal here.
func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	if s.deps.Profiles == nil {
		s.respondError(w, http.StatusServiceUnavailable, "profile store is read-only")
		return
	}

	userCode := chi.URLParam(r, "userCode")
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if !json.Valid(body) {
		s.respondError(w, http.StatusBadRequest, "record must be valid JSON")
		return
	}

	if err := s.deps.Profiles.SaveRecord(r.Context(), userCode, body); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if s.deps.Profiles == nil {
		s.respondError(w, http.StatusServiceUnavailable, "profile store is read-only")
		return
	}

	userCode := chi.URLParam(r, "userCode")
	record, err := s.deps.Profiles.FetchRecord(r.Context(), userCode)
	if err != nil {
		if errors.Is(err, profile.ErrNoRecord) {
			s.respondError(w, http.StatusNotFound, "profile not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(record)
}

func (s *Server) handleRecentMenus(w http.ResponseWriter, r *http.Request) {
	userCode := r.URL.Query().Get("user_code")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := s.deps.Menus.ListRecent(r.Context(), userCode, limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []menu.Record{}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"menus": records})
}
