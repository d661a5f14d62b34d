package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	contestentities "artix/contexts/meme-contest/contest-service/domain/entities"
	contesterrors "artix/contexts/meme-contest/contest-service/domain/errors"
	contesthttp "artix/contexts/meme-contest/contest-service/transport/http"
	"artix/internal/platform/metrics"
	"artix/internal/shared/faults"
)

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	viewer := strings.TrimSpace(r.URL.Query().Get("viewer"))
	if viewer == "" {
		viewer = callerID(r)
	}
	resp, err := s.contest.Handler.ListEntriesHandler(r.Context(), contesthttp.ListEntriesRequest{
		Viewer: viewer,
		Fresh:  queryBool(r, "fresh"),
	})
	if err != nil {
		writeContestDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entryID, ok := entryIDParam(w, r)
	if !ok {
		return
	}
	resp, err := s.contest.Handler.GetEntryHandler(r.Context(), entryID, queryBool(r, "fresh"))
	if err != nil {
		writeContestDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	entryID, ok := entryIDParam(w, r)
	if !ok {
		return
	}
	var req contesthttp.VoteRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeContestError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
			return
		}
	}
	if strings.TrimSpace(req.Viewer) == "" {
		req.Viewer = callerID(r)
	}

	resp, err := s.contest.Handler.VoteHandler(r.Context(), entryID, req)
	switch {
	case err == nil:
		metrics.VoteOutcomes.WithLabelValues(resp.Outcome).Inc()
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, faults.ErrConfirmationTimeout):
		metrics.VoteOutcomes.WithLabelValues(string(contestentities.VoteOutcomePending)).Inc()
		writeJSON(w, http.StatusAccepted, resp)
	default:
		metrics.VoteOutcomes.WithLabelValues("failed").Inc()
		writeContestDomainError(w, err)
	}
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	entryID, ok := entryIDParam(w, r)
	if !ok {
		return
	}
	resp, err := s.contest.Handler.EligibilityHandler(r.Context(), entryID)
	if err != nil {
		writeContestDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	entryID, ok := entryIDParam(w, r)
	if !ok {
		return
	}
	resp, err := s.contest.Handler.MintHandler(r.Context(), entryID)
	s.writeMintResult(w, resp, err)
}

func (s *Server) handleRetryMint(w http.ResponseWriter, r *http.Request) {
	entryID, ok := entryIDParam(w, r)
	if !ok {
		return
	}
	var req contesthttp.RetryMintRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeContestError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
			return
		}
	}
	resp, err := s.contest.Handler.RetryMintHandler(r.Context(), entryID, req)
	s.writeMintResult(w, resp, err)
}

func (s *Server) writeMintResult(w http.ResponseWriter, resp contesthttp.MintResponse, err error) {
	switch {
	case err == nil:
		metrics.MintOutcomes.WithLabelValues(resp.State).Inc()
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, faults.ErrSagaPartialFailure):
		metrics.MintOutcomes.WithLabelValues("orphaned").Inc()
		writeContestDomainError(w, err)
	case errors.Is(err, faults.ErrPreconditionFailed):
		metrics.MintOutcomes.WithLabelValues("rejected").Inc()
		writeContestDomainError(w, err)
	default:
		metrics.MintOutcomes.WithLabelValues("failed").Inc()
		writeContestDomainError(w, err)
	}
}

func (s *Server) handleGenerateMeme(w http.ResponseWriter, r *http.Request) {
	var req contesthttp.GenerateMemeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeContestError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.contest.Handler.GenerateMemeHandler(r.Context(), req)
	if err != nil {
		writeContestDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitMeme(w http.ResponseWriter, r *http.Request) {
	var req contesthttp.SubmitMemeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeContestError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.UserAddress) == "" {
		req.UserAddress = callerID(r)
	}
	resp, err := s.contest.Handler.SubmitMemeHandler(r.Context(), req)
	if err != nil {
		writeContestDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegisterMeme(w http.ResponseWriter, r *http.Request) {
	var req contesthttp.RegisterMemeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeContestError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.Creator) == "" {
		req.Creator = callerID(r)
	}
	resp, err := s.contest.Handler.RegisterMemeHandler(r.Context(), req)
	if err != nil {
		writeContestDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFetchContent(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.contest.Handler.FetchContentHandler(r.Context(), r.PathValue("cid"))
	if err != nil {
		writeContestDomainError(w, err)
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func entryIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	entryID, err := strconv.ParseUint(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil {
		writeContestError(w, http.StatusBadRequest, "invalid_entry_id", "entry id must be a non-negative integer")
		return 0, false
	}
	return entryID, true
}

func writeContestDomainError(w http.ResponseWriter, err error) {
	var opErr *faults.OperationError
	errors.As(err, &opErr)

	switch {
	case errors.Is(err, contesterrors.ErrInvalidEntryID),
		errors.Is(err, contesterrors.ErrInvalidViewer),
		errors.Is(err, contesterrors.ErrInvalidMemeRequest):
		writeContestError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, contesterrors.ErrEntryNotFound):
		writeContestError(w, http.StatusNotFound, "entry_not_found", err.Error())
	case errors.Is(err, contesterrors.ErrContentNotFound):
		writeContestError(w, http.StatusNotFound, "content_not_found", err.Error())
	case errors.Is(err, contesterrors.ErrNoSigningSession):
		writeContestError(w, http.StatusUnauthorized, "no_signing_session", err.Error())
	case errors.Is(err, faults.ErrUserRejected),
		errors.Is(err, contesterrors.ErrNetworkSwitchFailed),
		errors.Is(err, contesterrors.ErrNetworkUnknown):
		writeContestError(w, http.StatusForbidden, "wallet_rejected", err.Error())
	case errors.Is(err, contesterrors.ErrSigningNotConfigured):
		writeContestError(w, http.StatusServiceUnavailable, "signing_not_configured", err.Error())
	case errors.Is(err, contesterrors.ErrVoteReverted):
		resp := contesthttp.ErrorResponse{Code: "vote_reverted", Message: err.Error()}
		if opErr != nil {
			resp.TxHash = opErr.TxHash
		}
		writeJSON(w, http.StatusConflict, resp)
	case errors.Is(err, contesterrors.ErrInsufficientVotes):
		writeContestError(w, http.StatusUnprocessableEntity, "insufficient_votes", err.Error())
	case errors.Is(err, faults.ErrPreconditionFailed):
		writeContestError(w, http.StatusConflict, "precondition_failed", err.Error())
	case errors.Is(err, faults.ErrConfirmationTimeout):
		resp := contesthttp.ErrorResponse{Code: "confirmation_pending", Message: err.Error()}
		if opErr != nil {
			resp.TxHash = opErr.TxHash
		}
		writeJSON(w, http.StatusAccepted, resp)
	case errors.Is(err, faults.ErrSagaPartialFailure):
		resp := contesthttp.ErrorResponse{Code: "mint_failed_after_registration", Message: err.Error()}
		if opErr != nil {
			resp.RegistrationID = opErr.RegistrationID
			resp.TxHash = opErr.TxHash
		}
		writeJSON(w, http.StatusBadGateway, resp)
	case errors.Is(err, faults.ErrTransientNetwork):
		writeContestError(w, http.StatusServiceUnavailable, "dependency_unavailable", err.Error())
	case errors.Is(err, contesterrors.ErrRegistrationFailed),
		errors.Is(err, contesterrors.ErrDependencyFailed):
		writeContestError(w, http.StatusBadGateway, "upstream_failed", err.Error())
	default:
		writeContestError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeContestError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, contesthttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
