package httpserver

import (
	"errors"
	"net/http"

	auctionerrors "artix/contexts/meme-contest/auction-service/domain/errors"
	auctionhttp "artix/contexts/meme-contest/auction-service/transport/http"
	"artix/internal/platform/metrics"
	"artix/internal/shared/faults"
)

func (s *Server) handleListAuctions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.auctions.Handler.ListAuctionsHandler(r.Context(), queryBool(r, "active"))
	if err != nil {
		writeAuctionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	resp, err := s.auctions.Handler.GetAuctionHandler(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAuctionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListBids(w http.ResponseWriter, r *http.Request) {
	resp, err := s.auctions.Handler.ListBidsHandler(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAuctionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeAuctionError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req auctionhttp.CreateAuctionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAuctionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.auctions.Handler.CreateAuctionHandler(r.Context(), caller, req)
	if err != nil {
		writeAuctionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeAuctionError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req auctionhttp.PlaceBidRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAuctionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.auctions.Handler.PlaceBidHandler(r.Context(), caller, req)
	if err != nil {
		metrics.BidsRejected.Inc()
		writeAuctionDomainError(w, err)
		return
	}
	metrics.BidsAccepted.Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSettleAuction(w http.ResponseWriter, r *http.Request) {
	resp, err := s.auctions.Handler.SettleAuctionHandler(r.Context(), callerID(r), r.PathValue("id"))
	if err != nil {
		writeAuctionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeAuctionDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auctionerrors.ErrInvalidAuction):
		writeAuctionError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		writeAuctionError(w, http.StatusNotFound, "auction_not_found", err.Error())
	case errors.Is(err, auctionerrors.ErrEntryNotFound):
		writeAuctionError(w, http.StatusNotFound, "entry_not_found", err.Error())
	case errors.Is(err, auctionerrors.ErrNotEntryCreator),
		errors.Is(err, auctionerrors.ErrNotSeller),
		errors.Is(err, auctionerrors.ErrSellerCannotBid):
		writeAuctionError(w, http.StatusForbidden, "not_permitted", err.Error())
	case errors.Is(err, auctionerrors.ErrEntryNotMinted),
		errors.Is(err, auctionerrors.ErrBidTooLow):
		writeAuctionError(w, http.StatusUnprocessableEntity, "precondition_failed", err.Error())
	case errors.Is(err, auctionerrors.ErrBidConflict),
		errors.Is(err, faults.ErrPreconditionFailed):
		writeAuctionError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, faults.ErrTransientNetwork):
		writeAuctionError(w, http.StatusServiceUnavailable, "dependency_unavailable", err.Error())
	default:
		writeAuctionError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeAuctionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, auctionhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
