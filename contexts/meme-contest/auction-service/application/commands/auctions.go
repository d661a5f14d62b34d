package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	application "artix/contexts/meme-contest/auction-service/application"
	"artix/contexts/meme-contest/auction-service/domain/entities"
	domainerrors "artix/contexts/meme-contest/auction-service/domain/errors"
	"artix/contexts/meme-contest/auction-service/ports"
	"artix/internal/shared/events"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

const (
	auctionCreatedEventType = "auction.created"
	bidPlacedEventType      = "auction.bid.placed"
	auctionEndedEventType   = "auction.ended"

	defaultMaxBidAttempts = 3
	maxAuctionDuration    = 30 * 24 * time.Hour
)

type CreateAuctionCommand struct {
	EntryID    uint64
	Caller     common.Address
	StartPrice *big.Int
	Duration   time.Duration
}

type PlaceBidCommand struct {
	AuctionID string
	Bidder    common.Address
	Amount    *big.Int
}

type SettleAuctionCommand struct {
	AuctionID string
	Caller    common.Address
}

type AuctionUseCase struct {
	Repository     ports.AuctionRepository
	Entries        ports.EntryReader
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	Publisher      ports.EventPublisher
	MaxBidAttempts int
	Logger         *slog.Logger
}

// CreateAuction opens an auction for a minted entry on behalf of its
// creator. An expired auction that was never settled is ended first.
func (uc AuctionUseCase) CreateAuction(ctx context.Context, cmd CreateAuctionCommand) (entities.Auction, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := validateCreate(cmd); err != nil {
		return entities.Auction{}, err
	}

	snapshot, err := uc.Entries.GetEntrySnapshot(ctx, cmd.EntryID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrEntryNotFound) {
			return entities.Auction{}, err
		}
		return entities.Auction{}, fmt.Errorf("%w: %w", domainerrors.ErrEntryUnavailable, err)
	}
	if !snapshot.HasBeenMinted {
		return entities.Auction{}, domainerrors.ErrEntryNotMinted
	}
	if snapshot.Creator != cmd.Caller {
		return entities.Auction{}, domainerrors.ErrNotEntryCreator
	}

	now := uc.now()
	existing, found, err := uc.Repository.GetActiveAuctionByEntry(ctx, cmd.EntryID)
	if err != nil {
		return entities.Auction{}, err
	}
	if found {
		if !existing.Expired(now) {
			return entities.Auction{}, domainerrors.ErrAuctionAlreadyActive
		}
		if _, err := uc.end(ctx, logger, existing, now, "expired"); err != nil && !errors.Is(err, domainerrors.ErrAuctionEnded) {
			return entities.Auction{}, err
		}
	}

	auctionID, err := uc.newID(ctx)
	if err != nil {
		return entities.Auction{}, err
	}
	auction := entities.Auction{
		AuctionID:    auctionID,
		EntryID:      cmd.EntryID,
		Seller:       cmd.Caller,
		StartPrice:   new(big.Int).Set(cmd.StartPrice),
		CurrentPrice: new(big.Int).Set(cmd.StartPrice),
		EndTime:      now.Add(cmd.Duration),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.Repository.CreateAuction(ctx, auction); err != nil {
		return entities.Auction{}, err
	}

	uc.publish(ctx, logger, auctionCreatedEventType, auction.AuctionID, map[string]any{
		"auction_id":  auction.AuctionID,
		"entry_id":    auction.EntryID,
		"seller":      auction.Seller.Hex(),
		"start_price": auction.StartPrice.String(),
		"end_time":    auction.EndTime.Format(time.RFC3339),
	})
	logger.Info("auction created",
		"event", "auction_created",
		"module", "meme-contest/auction-service",
		"layer", "application",
		"auction_id", auction.AuctionID,
		"entry_id", auction.EntryID,
		"seller", auction.Seller.Hex(),
		"start_price", auction.StartPrice.String(),
		"end_time", auction.EndTime,
	)
	return auction, nil
}

// PlaceBid accepts a bid strictly above the current price. A concurrent bid
// that moves the price first forces a reload and re-validation, up to
// MaxBidAttempts times.
func (uc AuctionUseCase) PlaceBid(ctx context.Context, cmd PlaceBidCommand) (entities.Auction, error) {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.AuctionID == "" || cmd.Bidder == (common.Address{}) || cmd.Amount == nil || cmd.Amount.Sign() <= 0 {
		return entities.Auction{}, fmt.Errorf("%w: auction id, bidder and a positive amount are required", domainerrors.ErrInvalidAuction)
	}

	attempts := uc.MaxBidAttempts
	if attempts <= 0 {
		attempts = defaultMaxBidAttempts
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		auction, err := uc.Repository.GetAuction(ctx, cmd.AuctionID)
		if err != nil {
			return entities.Auction{}, err
		}
		now := uc.now()
		if !auction.Biddable(now) {
			return entities.Auction{}, domainerrors.ErrAuctionEnded
		}
		if cmd.Bidder == auction.Seller {
			return entities.Auction{}, domainerrors.ErrSellerCannotBid
		}
		if cmd.Amount.Cmp(auction.CurrentPrice) <= 0 {
			return entities.Auction{}, fmt.Errorf("%w: bid %s, current %s", domainerrors.ErrBidTooLow, cmd.Amount, auction.CurrentPrice)
		}

		updated, err := uc.Repository.CompareAndSetBid(ctx, auction.CurrentPrice, entities.Bid{
			AuctionID: cmd.AuctionID,
			Bidder:    cmd.Bidder,
			Amount:    new(big.Int).Set(cmd.Amount),
			PlacedAt:  now,
		})
		if errors.Is(err, domainerrors.ErrBidConflict) {
			logger.Info("bid lost price race, revalidating",
				"event", "auction_bid_conflict",
				"module", "meme-contest/auction-service",
				"layer", "application",
				"auction_id", cmd.AuctionID,
				"bidder", cmd.Bidder.Hex(),
				"attempt", attempt,
			)
			continue
		}
		if err != nil {
			return entities.Auction{}, err
		}

		uc.publish(ctx, logger, bidPlacedEventType, updated.AuctionID, map[string]any{
			"auction_id": updated.AuctionID,
			"entry_id":   updated.EntryID,
			"bidder":     cmd.Bidder.Hex(),
			"amount":     cmd.Amount.String(),
		})
		logger.Info("bid accepted",
			"event", "auction_bid_accepted",
			"module", "meme-contest/auction-service",
			"layer", "application",
			"auction_id", updated.AuctionID,
			"bidder", cmd.Bidder.Hex(),
			"amount", cmd.Amount.String(),
		)
		return updated, nil
	}
	return entities.Auction{}, fmt.Errorf("%w: gave up after %d attempts", domainerrors.ErrBidConflict, attempts)
}

// SettleAuction ends an auction. Before its end time only the seller may
// settle; afterwards anyone may.
func (uc AuctionUseCase) SettleAuction(ctx context.Context, cmd SettleAuctionCommand) (entities.Auction, error) {
	logger := application.ResolveLogger(uc.Logger)
	auction, err := uc.Repository.GetAuction(ctx, cmd.AuctionID)
	if err != nil {
		return entities.Auction{}, err
	}
	if !auction.IsActive {
		return entities.Auction{}, domainerrors.ErrAuctionEnded
	}
	now := uc.now()
	if !auction.Expired(now) && cmd.Caller != auction.Seller {
		return entities.Auction{}, domainerrors.ErrNotSeller
	}
	reason := "expired"
	if !auction.Expired(now) {
		reason = "seller"
	}
	return uc.end(ctx, logger, auction, now, reason)
}

// SettleExpired ends up to limit active auctions whose end time has passed.
func (uc AuctionUseCase) SettleExpired(ctx context.Context, limit int) (int, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.now()
	expired, err := uc.Repository.ListExpiredAuctions(ctx, now, limit)
	if err != nil {
		return 0, err
	}
	ended := 0
	for _, auction := range expired {
		if _, err := uc.end(ctx, logger, auction, now, "expired"); err != nil {
			if errors.Is(err, domainerrors.ErrAuctionEnded) {
				continue
			}
			return ended, err
		}
		ended++
	}
	return ended, nil
}

func (uc AuctionUseCase) end(ctx context.Context, logger *slog.Logger, auction entities.Auction, now time.Time, reason string) (entities.Auction, error) {
	ended, err := uc.Repository.EndAuction(ctx, auction.AuctionID, now)
	if err != nil {
		return entities.Auction{}, err
	}
	payload := map[string]any{
		"auction_id":  ended.AuctionID,
		"entry_id":    ended.EntryID,
		"final_price": ended.CurrentPrice.String(),
		"reason":      reason,
	}
	if ended.HasBids() {
		payload["winner"] = ended.HighestBidder.Hex()
	}
	uc.publish(ctx, logger, auctionEndedEventType, ended.AuctionID, payload)
	logger.Info("auction ended",
		"event", "auction_ended",
		"module", "meme-contest/auction-service",
		"layer", "application",
		"auction_id", ended.AuctionID,
		"entry_id", ended.EntryID,
		"reason", reason,
		"has_bids", ended.HasBids(),
	)
	return ended, nil
}

func (uc AuctionUseCase) publish(ctx context.Context, logger *slog.Logger, eventType string, auctionID string, payload map[string]any) {
	if uc.Publisher == nil {
		return
	}
	eventID, err := uc.newID(ctx)
	if err != nil {
		eventID = uuid.NewString()
	}
	err = uc.Publisher.Publish(ctx, events.TopicAuction, events.Envelope{
		EventID:        eventID,
		EventType:      eventType,
		SourceService:  "auction-service",
		OccurredAtUTC:  uc.now(),
		EntityType:     "auction",
		EntityID:       auctionID,
		PayloadVersion: 1,
		Payload:        payload,
	})
	if err != nil {
		logger.Warn("auction event publish failed",
			"event", "auction_event_publish_failed",
			"module", "meme-contest/auction-service",
			"layer", "application",
			"event_type", eventType,
			"auction_id", auctionID,
			"error", err.Error(),
		)
	}
}

func (uc AuctionUseCase) newID(ctx context.Context) (string, error) {
	if uc.IDGenerator == nil {
		return uuid.NewString(), nil
	}
	return uc.IDGenerator.NewID(ctx)
}

func (uc AuctionUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func validateCreate(cmd CreateAuctionCommand) error {
	switch {
	case cmd.Caller == (common.Address{}):
		return fmt.Errorf("%w: caller is required", domainerrors.ErrInvalidAuction)
	case cmd.StartPrice == nil || cmd.StartPrice.Sign() <= 0:
		return fmt.Errorf("%w: start price must be positive", domainerrors.ErrInvalidAuction)
	case cmd.Duration <= 0 || cmd.Duration > maxAuctionDuration:
		return fmt.Errorf("%w: duration must be between 1s and %s", domainerrors.ErrInvalidAuction, maxAuctionDuration)
	}
	return nil
}
