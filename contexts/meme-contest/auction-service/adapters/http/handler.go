package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	application "artix/contexts/meme-contest/auction-service/application"
	"artix/contexts/meme-contest/auction-service/application/commands"
	"artix/contexts/meme-contest/auction-service/application/queries"
	"artix/contexts/meme-contest/auction-service/domain/entities"
	domainerrors "artix/contexts/meme-contest/auction-service/domain/errors"
	httptransport "artix/contexts/meme-contest/auction-service/transport/http"

	"github.com/ethereum/go-ethereum/common"
)

type Handler struct {
	Auctions commands.AuctionUseCase
	Queries  queries.AuctionQueries
	Logger   *slog.Logger
}

// ListAuctionsHandler godoc
// @Summary List auctions
// @Tags auctions
// @Produce json
// @Param active query bool false "Only auctions that accept bids"
// @Success 200 {object} httptransport.ListAuctionsResponse
// @Router /auctions [get]
func (h Handler) ListAuctionsHandler(ctx context.Context, activeOnly bool) (httptransport.ListAuctionsResponse, error) {
	items, err := h.Queries.ListAuctions(ctx, activeOnly)
	if err != nil {
		return httptransport.ListAuctionsResponse{}, err
	}
	resp := httptransport.ListAuctionsResponse{Items: make([]httptransport.AuctionResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, mapView(item))
	}
	return resp, nil
}

// GetAuctionHandler godoc
// @Summary Get one auction
// @Tags auctions
// @Produce json
// @Param id path string true "Auction id"
// @Success 200 {object} httptransport.AuctionResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /auctions/{id} [get]
func (h Handler) GetAuctionHandler(ctx context.Context, auctionID string) (httptransport.AuctionResponse, error) {
	view, err := h.Queries.GetAuction(ctx, auctionID)
	if err != nil {
		return httptransport.AuctionResponse{}, err
	}
	return mapView(view), nil
}

// ListBidsHandler godoc
// @Summary Bid history of an auction
// @Tags auctions
// @Produce json
// @Param id path string true "Auction id"
// @Success 200 {object} httptransport.ListBidsResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /auctions/{id}/bids [get]
func (h Handler) ListBidsHandler(ctx context.Context, auctionID string) (httptransport.ListBidsResponse, error) {
	bids, err := h.Queries.ListBids(ctx, auctionID)
	if err != nil {
		return httptransport.ListBidsResponse{}, err
	}
	resp := httptransport.ListBidsResponse{AuctionID: auctionID, Items: make([]httptransport.BidResponse, 0, len(bids))}
	for _, bid := range bids {
		resp.Items = append(resp.Items, httptransport.BidResponse{
			Bidder:   bid.Bidder.Hex(),
			Amount:   bid.Amount.String(),
			PlacedAt: bid.PlacedAt.UTC().Format(time.RFC3339),
		})
	}
	return resp, nil
}

// CreateAuctionHandler godoc
// @Summary Create an auction for a minted entry
// @Description Only the entry creator may auction it, and only one auction per entry may be active.
// @Tags auctions
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Caller address"
// @Param body body httptransport.CreateAuctionRequest true "Auction"
// @Success 201 {object} httptransport.AuctionResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /auctions [post]
func (h Handler) CreateAuctionHandler(ctx context.Context, caller string, req httptransport.CreateAuctionRequest) (httptransport.AuctionResponse, error) {
	seller, err := parseAddress(caller)
	if err != nil {
		return httptransport.AuctionResponse{}, err
	}
	price, err := parseWei(req.StartPrice)
	if err != nil {
		return httptransport.AuctionResponse{}, err
	}
	application.ResolveLogger(h.Logger).Info("create auction request received",
		"event", "http_auction_create_received",
		"module", "meme-contest/auction-service",
		"layer", "transport",
		"entry_id", req.EntryID,
		"seller", seller.Hex(),
	)
	auction, err := h.Auctions.CreateAuction(ctx, commands.CreateAuctionCommand{
		EntryID:    req.EntryID,
		Caller:     seller,
		StartPrice: price,
		Duration:   time.Duration(req.DurationHours) * time.Hour,
	})
	if err != nil {
		return httptransport.AuctionResponse{}, err
	}
	return h.mapAuction(auction), nil
}

// PlaceBidHandler godoc
// @Summary Bid on an auction
// @Tags auctions
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Bidder address"
// @Param body body httptransport.PlaceBidRequest true "Bid"
// @Success 200 {object} httptransport.AuctionResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /auctions/place-bid [post]
func (h Handler) PlaceBidHandler(ctx context.Context, caller string, req httptransport.PlaceBidRequest) (httptransport.AuctionResponse, error) {
	bidder, err := parseAddress(caller)
	if err != nil {
		return httptransport.AuctionResponse{}, err
	}
	amount, err := parseWei(req.Amount)
	if err != nil {
		return httptransport.AuctionResponse{}, err
	}
	auction, err := h.Auctions.PlaceBid(ctx, commands.PlaceBidCommand{
		AuctionID: strings.TrimSpace(req.AuctionID),
		Bidder:    bidder,
		Amount:    amount,
	})
	if err != nil {
		return httptransport.AuctionResponse{}, err
	}
	return h.mapAuction(auction), nil
}

// SettleAuctionHandler godoc
// @Summary End an auction
// @Description The seller may end an auction at any time; anyone may end one whose end time has passed.
// @Tags auctions
// @Produce json
// @Param X-User-Id header string false "Caller address"
// @Param id path string true "Auction id"
// @Success 200 {object} httptransport.AuctionResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /auctions/{id}/settle [post]
func (h Handler) SettleAuctionHandler(ctx context.Context, caller string, auctionID string) (httptransport.AuctionResponse, error) {
	var settler common.Address
	if strings.TrimSpace(caller) != "" {
		parsed, err := parseAddress(caller)
		if err != nil {
			return httptransport.AuctionResponse{}, err
		}
		settler = parsed
	}
	auction, err := h.Auctions.SettleAuction(ctx, commands.SettleAuctionCommand{AuctionID: auctionID, Caller: settler})
	if err != nil {
		return httptransport.AuctionResponse{}, err
	}
	return h.mapAuction(auction), nil
}

func (h Handler) mapAuction(auction entities.Auction) httptransport.AuctionResponse {
	now := time.Now().UTC()
	if h.Queries.Clock != nil {
		now = h.Queries.Clock.Now().UTC()
	}
	left := auction.TimeLeft(now)
	return mapView(queries.AuctionView{
		Auction:      auction,
		Status:       auction.Status(now),
		TimeLeft:     left,
		TimeLeftText: entities.FormatTimeLeft(left),
	})
}

func mapView(view queries.AuctionView) httptransport.AuctionResponse {
	auction := view.Auction
	resp := httptransport.AuctionResponse{
		AuctionID:    auction.AuctionID,
		EntryID:      auction.EntryID,
		Seller:       auction.Seller.Hex(),
		StartPrice:   auction.StartPrice.String(),
		CurrentPrice: auction.CurrentPrice.String(),
		EndTime:      auction.EndTime.UTC().Format(time.RFC3339),
		IsActive:     auction.IsActive,
		Status:       string(view.Status),
		TimeLeft:     int64(view.TimeLeft / time.Second),
		TimeLeftText: view.TimeLeftText,
	}
	if auction.HasBids() {
		resp.HighestBidder = auction.HighestBidder.Hex()
	}
	return resp
}

func parseAddress(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %q is not an address", domainerrors.ErrInvalidAuction, raw)
	}
	address := common.HexToAddress(raw)
	if address == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: zero address", domainerrors.ErrInvalidAuction)
	}
	return address, nil
}

func parseWei(raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || value.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %q is not a positive wei amount", domainerrors.ErrInvalidAuction, raw)
	}
	return value, nil
}
