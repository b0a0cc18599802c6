package http

import (
	"net/http"

	"transferdash/internal/log"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.Accounts(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(accounts).Write(w)
}

func (s *Server) handleRefreshAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.Refresh(r.Context())
	if err != nil {
		writeError(w, r, log.OpWrite, err)
		return
	}
	NewJSONResponse().Body(accounts).Write(w)
}
