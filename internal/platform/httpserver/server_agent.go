package httpserver

import (
	"errors"
	"net/http"
	"strings"

	allowanceerrors "artix/contexts/agent-treasury/allowance-service/domain/errors"
	allowancehttp "artix/contexts/agent-treasury/allowance-service/transport/http"
	"artix/internal/platform/metrics"
	"artix/internal/shared/faults"
)

func (s *Server) handleGetAllowance(w http.ResponseWriter, r *http.Request) {
	account := strings.TrimSpace(r.URL.Query().Get("account"))
	if account == "" {
		account = callerID(r)
	}
	resp, err := s.allowance.Handler.GetAllowanceHandler(r.Context(), account)
	if err != nil {
		writeAllowanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegisterDelegation(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeAllowanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req allowancehttp.RegisterDelegationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAllowanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.allowance.Handler.RegisterDelegationHandler(r.Context(), caller, req)
	if err != nil {
		writeAllowanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeAllowanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req allowancehttp.SpendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAllowanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.allowance.Handler.SpendHandler(r.Context(), caller, req)
	metrics.SpendOutcomes.WithLabelValues(spendOutcome(err)).Inc()
	if err != nil {
		writeAllowanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func spendOutcome(err error) string {
	switch {
	case err == nil:
		return "executed"
	case errors.Is(err, allowanceerrors.ErrAllowanceExceeded):
		return "exceeded"
	case errors.Is(err, allowanceerrors.ErrStaleNonce):
		return "stale_nonce"
	case errors.Is(err, allowanceerrors.ErrSignatureRejected):
		return "signature_rejected"
	case errors.Is(err, faults.ErrConfirmationTimeout):
		return "unconfirmed"
	}
	return "failed"
}

func writeAllowanceDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, allowanceerrors.ErrInvalidSpend),
		errors.Is(err, allowanceerrors.ErrInvalidDelegation):
		writeAllowanceError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, allowanceerrors.ErrDelegationNotFound):
		writeAllowanceError(w, http.StatusNotFound, "delegation_not_found", err.Error())
	case errors.Is(err, allowanceerrors.ErrAllowanceExceeded):
		writeAllowanceError(w, http.StatusUnprocessableEntity, "allowance_exceeded", err.Error())
	case errors.Is(err, allowanceerrors.ErrSignatureRejected):
		writeAllowanceError(w, http.StatusUnprocessableEntity, "signature_rejected", err.Error())
	case errors.Is(err, faults.ErrPreconditionFailed):
		writeAllowanceError(w, http.StatusConflict, "precondition_failed", err.Error())
	case errors.Is(err, faults.ErrConfirmationTimeout):
		writeAllowanceError(w, http.StatusAccepted, "transfer_pending", err.Error())
	case errors.Is(err, faults.ErrTransientNetwork):
		writeAllowanceError(w, http.StatusServiceUnavailable, "module_unavailable", err.Error())
	default:
		writeAllowanceError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeAllowanceError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, allowancehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
