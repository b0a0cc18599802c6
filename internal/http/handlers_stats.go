package http

import (
	"net/http"

	"transferdash/internal/core"
	"transferdash/internal/log"
)

type filterState struct {
	Filters     core.ReportFilter `json:"filters"`
	AutoRefresh bool              `json:"autoRefresh"`
}

func (s *Server) handleTodayStats(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.transfers.TodayStats()).Write(w)
}

func (s *Server) handleDynamicStats(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.transfers.DynamicStatsNow()).Write(w)
}

func (s *Server) currentFilters() filterState {
	return filterState{Filters: s.transfers.ReportFilters(), AutoRefresh: s.transfers.AutoRefresh()}
}

func (s *Server) handleGetFilters(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.currentFilters()).Write(w)
}

func (s *Server) handleSetFilters(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilterBody(r.Body, s.now())
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	s.transfers.SetReportFilters(f)
	s.logger.DebugContext(r.Context(), "Report filters updated", log.FieldCount, len(f.Accounts))
	NewJSONResponse().Body(s.currentFilters()).Write(w)
}

func (s *Server) handleSetAutoRefresh(w http.ResponseWriter, r *http.Request) {
	enabled, err := ParseAutoRefreshBody(r.Body)
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	s.transfers.SetAutoRefresh(enabled)
	NewJSONResponse().Body(s.currentFilters()).Write(w)
}
