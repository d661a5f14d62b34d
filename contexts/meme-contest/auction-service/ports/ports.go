package ports

import (
	"context"
	"math/big"
	"time"

	"artix/contexts/meme-contest/auction-service/domain/entities"
	"artix/internal/shared/events"
)

// AuctionRepository stores auctions and bid history. CompareAndSetBid must
// apply bid only if the stored current price still equals expected and the
// auction is active; otherwise it returns domainerrors.ErrBidConflict.
type AuctionRepository interface {
	CreateAuction(ctx context.Context, auction entities.Auction) error
	GetAuction(ctx context.Context, auctionID string) (entities.Auction, error)
	GetActiveAuctionByEntry(ctx context.Context, entryID uint64) (entities.Auction, bool, error)
	ListAuctions(ctx context.Context, activeOnly bool) ([]entities.Auction, error)
	ListExpiredAuctions(ctx context.Context, now time.Time, limit int) ([]entities.Auction, error)
	CompareAndSetBid(ctx context.Context, expected *big.Int, bid entities.Bid) (entities.Auction, error)
	EndAuction(ctx context.Context, auctionID string, endedAt time.Time) (entities.Auction, error)
	ListBids(ctx context.Context, auctionID string) ([]entities.Bid, error)
}

// EntryReader reads a contest entry fresh from the ledger.
type EntryReader interface {
	GetEntrySnapshot(ctx context.Context, entryID uint64) (entities.EntrySnapshot, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event events.Envelope) error
}
