package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"transferdash/internal/core"
	"transferdash/internal/log"
)

type transferListResponse struct {
	Count     int             `json:"count"`
	Transfers []core.Transfer `json:"transfers"`
}

type submitResponse struct {
	Success  bool           `json:"success"`
	Transfer *core.Transfer `json:"transfer,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func (s *Server) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilterQuery(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	ts := s.transfers.FilterTransfersNow(f)
	if ts == nil {
		ts = []core.Transfer{}
	}
	NewJSONResponse().Body(transferListResponse{Count: len(ts), Transfers: ts}).Write(w)
}

func (s *Server) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	t, ok := s.transfers.GetTransferByID(id)
	if !ok {
		writeError(w, r, log.OpRead, fmt.Errorf("transfer %s: %w", id, core.ErrNotFound))
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

// handleCreateTransfer resolves both accounts, applies the form rules and
// submits. Submission failures answer 502 with success=false.
func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	req, err := ParseTransferRequest(r.Body)
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}

	p, err := s.proposal(r.Context(), req)
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	if err := p.Validate(); err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	if err := p.CheckBalance(); err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()
	t, err := s.transfers.Submit(ctx, p)
	if err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentTransfer).
			Failure(ctx, "Transfer submission failed", log.OpAppend, err)
		NewJSONResponse().Status(http.StatusBadGateway).
			Body(submitResponse{Error: "No se pudo completar la transferencia"}).Write(w)
		return
	}

	if s.notifier != nil {
		if err := s.notifier.TransferCompleted(ctx, t); err != nil {
			s.logger.WarnContext(ctx, "Transfer notification failed",
				log.FieldTransferID, t.ID, log.FieldOperation, log.OpNotify, log.FieldError, err)
		}
	}

	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/transfers/"+t.ID).
		Body(submitResponse{Success: true, Transfer: &t}).Write(w)
}

// proposal looks up both sides of the request. An empty id is left for
// Validate to report; an unknown one is rejected here.
func (s *Server) proposal(ctx context.Context, req parsedTransfer) (core.TransferProposal, error) {
	p := core.TransferProposal{Amount: req.Amount, Description: req.Description}
	for _, side := range []struct {
		id  string
		dst *core.Account
	}{{req.FromAccountID, &p.FromAccount}, {req.ToAccountID, &p.ToAccount}} {
		if side.id == "" {
			continue
		}
		acc, ok := s.accounts.AccountByID(ctx, side.id)
		if !ok {
			return core.TransferProposal{}, fmt.Errorf("account %s: %w", side.id, core.ErrMissingAccount)
		}
		*side.dst = acc
	}
	return p, nil
}
