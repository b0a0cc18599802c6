package http

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"transferdash/internal/core"
	"transferdash/internal/log"
	"transferdash/internal/report"
)

func reportTitle(r *http.Request) string {
	return sanitizeInput(r.URL.Query().Get(queryTitle))
}

// writeHTML renders into a buffer first so a template failure still yields
// a clean error response.
func (s *Server) writeHTML(w http.ResponseWriter, r *http.Request, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		writeError(w, r, log.OpRender, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleTransfersReport(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilterQuery(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	rep := report.BuildTransferReport(s.transfers.FilterTransfersNow(f), reportTitle(r), s.now())
	s.writeHTML(w, r, func(b *bytes.Buffer) error { return s.renderer.Transfers(b, rep) })
}

func (s *Server) handleDashboardReport(w http.ResponseWriter, r *http.Request) {
	rep := report.BuildDashboardReport(s.transfers.DynamicStatsNow(), reportTitle(r), s.now())
	s.writeHTML(w, r, func(b *bytes.Buffer) error { return s.renderer.Dashboard(b, rep) })
}

func (s *Server) handleAccountStatement(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	acc, ok := s.accounts.AccountByID(r.Context(), id)
	if !ok {
		writeError(w, r, log.OpRead, fmt.Errorf("account %s: %w", id, core.ErrNotFound))
		return
	}
	rep := report.BuildStatement(acc, s.transfers.Transfers(), reportTitle(r), s.now())
	s.writeHTML(w, r, func(b *bytes.Buffer) error { return s.renderer.Statement(b, rep) })
}

func (s *Server) handleTransfersCSV(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilterQuery(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	ts := s.transfers.FilterTransfersNow(f)

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, ts); err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	name := "transferencias-" + s.now().Format("2006-01-02") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = buf.WriteTo(w)
	s.logger.InfoContext(r.Context(), "Transfers exported",
		log.FieldOperation, log.OpExport, log.FieldCount, len(ts))
}
