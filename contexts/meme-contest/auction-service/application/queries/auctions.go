package queries

import (
	"context"
	"sort"
	"time"

	"artix/contexts/meme-contest/auction-service/domain/entities"
	"artix/contexts/meme-contest/auction-service/ports"
)

// AuctionView is an auction with its status derived at read time.
type AuctionView struct {
	Auction      entities.Auction
	Status       entities.AuctionStatus
	TimeLeft     time.Duration
	TimeLeftText string
}

type AuctionQueries struct {
	Repository ports.AuctionRepository
	Clock      ports.Clock
}

func (q AuctionQueries) GetAuction(ctx context.Context, auctionID string) (AuctionView, error) {
	auction, err := q.Repository.GetAuction(ctx, auctionID)
	if err != nil {
		return AuctionView{}, err
	}
	return q.view(auction), nil
}

// ListAuctions returns auctions ending soonest first. With activeOnly, only
// auctions that still accept bids are returned.
func (q AuctionQueries) ListAuctions(ctx context.Context, activeOnly bool) ([]AuctionView, error) {
	auctions, err := q.Repository.ListAuctions(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	now := q.now()
	items := make([]AuctionView, 0, len(auctions))
	for _, auction := range auctions {
		if activeOnly && !auction.Biddable(now) {
			continue
		}
		items = append(items, q.view(auction))
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Auction.EndTime.Before(items[j].Auction.EndTime)
	})
	return items, nil
}

// ListBids returns the bid history, newest first.
func (q AuctionQueries) ListBids(ctx context.Context, auctionID string) ([]entities.Bid, error) {
	if _, err := q.Repository.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}
	bids, err := q.Repository.ListBids(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].PlacedAt.After(bids[j].PlacedAt) })
	return bids, nil
}

func (q AuctionQueries) view(auction entities.Auction) AuctionView {
	now := q.now()
	left := auction.TimeLeft(now)
	return AuctionView{
		Auction:      auction,
		Status:       auction.Status(now),
		TimeLeft:     left,
		TimeLeftText: entities.FormatTimeLeft(left),
	}
}

func (q AuctionQueries) now() time.Time {
	if q.Clock == nil {
		return time.Now().UTC()
	}
	return q.Clock.Now().UTC()
}
