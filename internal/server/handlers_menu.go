package server

import (
	"net/http"

	"go.uber.org/zap"

	"ai-menu-builder/internal/menu"
	"ai-menu-builder/internal/profile"
)

type generateTemplateRequest struct {
	UserCode string `json:"user_code"`
}

type generateTemplateResponse struct {
	Template menu.Template `json:"template"`
}

type validateTemplateRequest struct {
	Template menu.Template `json:"template" validate:"required,min=1"`
	UserCode string        `json:"user_code"`
}

type validateMenuRequest struct {
	Template menu.Template `json:"template" validate:"required,min=1"`
	Menu     menu.Menu     `json:"menu" validate:"required,min=1"`
	UserCode string        `json:"user_code"`
}

type buildMenuRequest struct {
	Template menu.Template `json:"template"`
	UserCode string        `json:"user_code"`
}

type menuTotals struct {
	Main menu.MacroTotals `json:"main"`
	Alt  menu.MacroTotals `json:"alternative"`
}

type buildMenuResponse struct {
	ID     string     `json:"id,omitempty"`
	Menu   menu.Menu  `json:"menu"`
	Totals menuTotals `json:"totals"`
}

// loadPrefs resolves the preferences for a request, writing the error
// response itself when resolution fails.
func (s *Server) loadPrefs(w http.ResponseWriter, r *http.Request, userCode string) (*profile.Preferences, bool) {
	prefs, err := s.deps.Loader.Load(r.Context(), userCode)
	if err != nil {
		s.respondFailure(w, err)
		return nil, false
	}
	return prefs, true
}

func (s *Server) handleGenerateTemplate(w http.ResponseWriter, r *http.Request) {
	var req generateTemplateRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prefs, ok := s.loadPrefs(w, r, req.UserCode)
	if !ok {
		return
	}

	tpl, metas, err := s.deps.Orchestrator.GenerateTemplate(r.Context(), prefs)
	s.recordMetas(metas)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, generateTemplateResponse{Template: tpl})
}

func (s *Server) handleValidateTemplate(w http.ResponseWriter, r *http.Request) {
	var req validateTemplateRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateStruct(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	prefs, ok := s.loadPrefs(w, r, req.UserCode)
	if !ok {
		return
	}

	report := menu.ValidateTemplate(req.Template, prefs)
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleValidateMenu(w http.ResponseWriter, r *http.Request) {
	var req validateMenuRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateStruct(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	prefs, ok := s.loadPrefs(w, r, req.UserCode)
	if !ok {
		return
	}

	report := menu.ValidateMenu(req.Template, req.Menu, prefs)
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleBuildMenu(w http.ResponseWriter, r *http.Request) {
	var req buildMenuRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prefs, ok := s.loadPrefs(w, r, req.UserCode)
	if !ok {
		return
	}

	result, metas, err := s.deps.Orchestrator.Run(r.Context(), req.Template, prefs)
	s.recordMetas(metas)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	var id string
	if s.deps.Menus != nil {
		id, err = s.deps.Menus.Save(r.Context(), req.UserCode, result)
		if err != nil {
			s.logger.Error("Failed to persist menu", zap.Error(err))
			id = ""
		}
	}

	s.respondJSON(w, http.StatusOK, buildMenuResponse{
		ID:   id,
		Menu: result.Menu,
		Totals: menuTotals{
			Main: result.TotalsMain,
			Alt:  result.TotalsAlt,
		},
	})
}
