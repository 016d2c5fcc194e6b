package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"ai-menu-builder/internal/menu"
	"ai-menu-builder/internal/profile"
)

// failurePayload is the structured error body of the pipeline
// endpoints. FailureType names the stage that gave up; the issue
// channels are filled when a template validation report is available.
type failurePayload struct {
	Error            string            `json:"error"`
	FailureType      string            `json:"failure_type"`
	Meal             string            `json:"meal,omitempty"`
	Option           string            `json:"option,omitempty"`
	Attempts         int               `json:"attempts,omitempty"`
	LastIssues       []string          `json:"last_issues,omitempty"`
	Target           *menu.MacroTarget `json:"target,omitempty"`
	IssuesMain       []string          `json:"issues_main,omitempty"`
	IssuesAlt        []string          `json:"issues_alt,omitempty"`
	IssuesMainAlt    []string          `json:"issues_main_alt,omitempty"`
	IssuesSimilarity []string          `json:"issues_similarity,omitempty"`
}

// failureFrom maps a pipeline error to an HTTP status and payload.
func failureFrom(err error) (int, failurePayload) {
	var notFound *profile.NotFoundError
	if errors.As(err, &notFound) {
		return http.StatusNotFound, failurePayload{Error: err.Error(), FailureType: "profile_not_found"}
	}
	var loadErr *profile.LoadError
	if errors.As(err, &loadErr) {
		return http.StatusInternalServerError, failurePayload{Error: err.Error(), FailureType: "profile_load"}
	}
	var parseErr *menu.GenerationParseError
	if errors.As(err, &parseErr) {
		return http.StatusInternalServerError, failurePayload{Error: err.Error(), FailureType: parseErr.Stage + "_parse"}
	}
	var exhausted *menu.BuildExhausted
	if errors.As(err, &exhausted) {
		p := failurePayload{
			Error:       err.Error(),
			FailureType: exhausted.Stage + "_exhausted",
			Meal:        exhausted.MealName,
			Option:      exhausted.OptionKind,
			Attempts:    exhausted.Attempts,
			LastIssues:  exhausted.LastIssues,
		}
		if exhausted.Stage != "template" {
			target := exhausted.Target
			p.Target = &target
		}
		if exhausted.Report != nil {
			p.IssuesMain = exhausted.Report.IssuesMain
			p.IssuesAlt = exhausted.Report.IssuesAlt
			p.IssuesMainAlt = exhausted.Report.IssuesMainAlt
			p.IssuesSimilarity = exhausted.Report.IssuesSimilarity
		}
		return http.StatusInternalServerError, p
	}
	return http.StatusInternalServerError, failurePayload{Error: err.Error(), FailureType: "internal"}
}

// respondJSON writes data as a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// respondError writes a plain error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{
		"error": message,
	})
}

// respondFailure writes the structured failure payload for a pipeline
// error.
func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	status, payload := failureFrom(err)
	s.respondJSON(w, status, payload)
}

// decodeBody decodes a JSON request body into dst. An empty body is
// accepted and leaves dst at its zero value, for endpoints whose
// parameters are all optional.
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
