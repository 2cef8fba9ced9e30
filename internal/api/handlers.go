package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/marketplace-ledger-system/internal/ledger"
	"github.com/sheikh-saqib/marketplace-ledger-system/internal/query"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	caller := profileFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid contract id")
		return
	}

	contract, err := s.query.GetContract(r.Context(), caller, id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

func (s *Server) handleListContracts(w http.ResponseWriter, r *http.Request) {
	caller := profileFromContext(r.Context())

	contracts, err := s.query.ListContracts(r.Context(), caller)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contracts)
}

func (s *Server) handleListUnpaidJobs(w http.ResponseWriter, r *http.Request) {
	caller := profileFromContext(r.Context())

	jobs, err := s.query.ListUnpaidJobs(r.Context(), caller)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handlePayJob(w http.ResponseWriter, r *http.Request) {
	caller := profileFromContext(r.Context())
	jobID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid job id")
		return
	}

	if err := s.ledger.PayJob(r.Context(), caller, jobID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	// Note: the caller does not have to be the target profile; any
	// authenticated profile may deposit into any client account.
	targetID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if err := s.ledger.Deposit(r.Context(), targetID, req.Amount); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleBestProfession(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	best, err := s.query.BestProfession(r.Context(), start, end)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, best)
}

func (s *Server) handleBestClients(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid limit")
			return
		}
	}

	clients, err := s.query.BestClients(r.Context(), start, end, limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

// writeDomainError maps business-rule rejections to their HTTP statuses.
// Anything unrecognized is a genuine server fault and becomes a 500.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var capErr *ledger.DepositCapError
	switch {
	case errors.Is(err, ledger.ErrJobNotFound),
		errors.Is(err, query.ErrContractNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ledger.ErrNotClient),
		errors.Is(err, ledger.ErrAlreadyPaid),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, query.ErrNotContractParty):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, ledger.ErrMissingAmount):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.As(err, &capErr):
		writeError(w, http.StatusBadRequest, "bad_request", capErr.Error())
	default:
		s.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

// dateRange parses optional start/end query parameters, accepting RFC 3339
// timestamps or plain dates.
func dateRange(r *http.Request) (start, end *time.Time, err error) {
	if start, err = parseTimeParam(r.URL.Query().Get("start")); err != nil {
		return nil, nil, err
	}
	if end, err = parseTimeParam(r.URL.Query().Get("end")); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

func parseTimeParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", value)
}
