package server

import (
	"net/http"
	"strconv"

	"ai-menu-builder/internal/metrics"
)

type usageResponse struct {
	Days   int                  `json:"days"`
	Daily  []metrics.DailyUsage `json:"daily"`
	Agents []metrics.AgentUsage `json:"agents"`
	Health metrics.SysHealth    `json:"health"`
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 {
		days = 7
	}

	daily, err := s.deps.Metrics.GetDailyUsage(days)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	agents, err := s.deps.Metrics.GetAgentUsage(days)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if daily == nil {
		daily = []metrics.DailyUsage{}
	}
	if agents == nil {
		agents = []metrics.AgentUsage{}
	}

	s.respondJSON(w, http.StatusOK, usageResponse{
		Days:   days,
		Daily:  daily,
		Agents: agents,
		Health: metrics.GetSysHealth(s.cfg.DataDir),
	})
}
