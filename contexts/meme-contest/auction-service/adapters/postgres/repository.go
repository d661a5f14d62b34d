package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"artix/contexts/meme-contest/auction-service/domain/entities"
	domainerrors "artix/contexts/meme-contest/auction-service/domain/errors"
	"artix/contexts/meme-contest/auction-service/ports"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Repository stores auctions with prices as base-10 wei strings. Bids are
// applied with a conditional UPDATE on current_price.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateAuction(ctx context.Context, auction entities.Auction) error {
	row := auctionModelFromEntity(auction)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAuctionAlreadyActive
		}
		return r.logError("auction_repo_create_failed", err, "auction_id", auction.AuctionID, "entry_id", auction.EntryID)
	}
	return nil
}

func (r *Repository) GetAuction(ctx context.Context, auctionID string) (entities.Auction, error) {
	return r.getAuction(r.db.WithContext(ctx), auctionID)
}

func (r *Repository) GetActiveAuctionByEntry(ctx context.Context, entryID uint64) (entities.Auction, bool, error) {
	var row auctionModel
	err := r.db.WithContext(ctx).
		Where("entry_id = ? AND is_active", int64(entryID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Auction{}, false, nil
		}
		return entities.Auction{}, false, r.logError("auction_repo_get_active_failed", err, "entry_id", entryID)
	}
	auction, err := row.toEntity()
	if err != nil {
		return entities.Auction{}, false, err
	}
	return auction, true, nil
}

func (r *Repository) ListAuctions(ctx context.Context, activeOnly bool) ([]entities.Auction, error) {
	query := r.db.WithContext(ctx).Order("created_at ASC")
	if activeOnly {
		query = query.Where("is_active")
	}
	var rows []auctionModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, r.logError("auction_repo_list_failed", err, "active_only", activeOnly)
	}
	return toEntities(rows)
}

func (r *Repository) ListExpiredAuctions(ctx context.Context, now time.Time, limit int) ([]entities.Auction, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []auctionModel
	err := r.db.WithContext(ctx).
		Where("is_active AND end_time <= ?", now.UTC()).
		Order("end_time ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("auction_repo_list_expired_failed", err)
	}
	return toEntities(rows)
}

func (r *Repository) CompareAndSetBid(ctx context.Context, expected *big.Int, bid entities.Bid) (entities.Auction, error) {
	var updated entities.Auction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&auctionModel{}).
			Where("auction_id = ? AND current_price = ? AND is_active AND end_time > ?",
				bid.AuctionID, expected.String(), bid.PlacedAt.UTC()).
			Updates(map[string]any{
				"current_price":  bid.Amount.String(),
				"highest_bidder": bid.Bidder.Hex(),
				"updated_at":     bid.PlacedAt.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			if _, err := r.getAuction(tx, bid.AuctionID); err != nil {
				return err
			}
			return domainerrors.ErrBidConflict
		}

		row := bidModel{
			AuctionID: bid.AuctionID,
			Bidder:    bid.Bidder.Hex(),
			Amount:    bid.Amount.String(),
			PlacedAt:  bid.PlacedAt.UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		auction, err := r.getAuction(tx, bid.AuctionID)
		if err != nil {
			return err
		}
		updated = auction
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrBidConflict) || errors.Is(err, domainerrors.ErrAuctionNotFound) {
			return entities.Auction{}, err
		}
		return entities.Auction{}, r.logError("auction_repo_place_bid_failed", err,
			"auction_id", bid.AuctionID,
			"bidder", bid.Bidder.Hex(),
		)
	}
	return updated, nil
}

func (r *Repository) EndAuction(ctx context.Context, auctionID string, endedAt time.Time) (entities.Auction, error) {
	db := r.db.WithContext(ctx)
	result := db.Model(&auctionModel{}).
		Where("auction_id = ? AND is_active", auctionID).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": endedAt.UTC(),
		})
	if result.Error != nil {
		return entities.Auction{}, r.logError("auction_repo_end_failed", result.Error, "auction_id", auctionID)
	}
	auction, err := r.getAuction(db, auctionID)
	if err != nil {
		return entities.Auction{}, err
	}
	if result.RowsAffected == 0 {
		return entities.Auction{}, domainerrors.ErrAuctionEnded
	}
	return auction, nil
}

func (r *Repository) ListBids(ctx context.Context, auctionID string) ([]entities.Bid, error) {
	var rows []bidModel
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("placed_at ASC, id ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("auction_repo_list_bids_failed", err, "auction_id", auctionID)
	}
	bids := make([]entities.Bid, 0, len(rows))
	for _, row := range rows {
		amount, ok := new(big.Int).SetString(row.Amount, 10)
		if !ok {
			return nil, fmt.Errorf("bid %d has malformed amount %q", row.ID, row.Amount)
		}
		bids = append(bids, entities.Bid{
			AuctionID: row.AuctionID,
			Bidder:    common.HexToAddress(row.Bidder),
			Amount:    amount,
			PlacedAt:  row.PlacedAt.UTC(),
		})
	}
	return bids, nil
}

func (r *Repository) getAuction(db *gorm.DB, auctionID string) (entities.Auction, error) {
	var row auctionModel
	if err := db.Where("auction_id = ?", auctionID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Auction{}, domainerrors.ErrAuctionNotFound
		}
		return entities.Auction{}, r.logError("auction_repo_get_failed", err, "auction_id", auctionID)
	}
	return row.toEntity()
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "meme-contest/auction-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("auction repository operation failed", fields...)
	return err
}

type auctionModel struct {
	AuctionID     string    `gorm:"column:auction_id;primaryKey"`
	EntryID       int64     `gorm:"column:entry_id"`
	Seller        string    `gorm:"column:seller"`
	StartPrice    string    `gorm:"column:start_price"`
	CurrentPrice  string    `gorm:"column:current_price"`
	HighestBidder string    `gorm:"column:highest_bidder"`
	EndTime       time.Time `gorm:"column:end_time"`
	IsActive      bool      `gorm:"column:is_active"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (auctionModel) TableName() string {
	return "auctions"
}

type bidModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	AuctionID string    `gorm:"column:auction_id"`
	Bidder    string    `gorm:"column:bidder"`
	Amount    string    `gorm:"column:amount"`
	PlacedAt  time.Time `gorm:"column:placed_at"`
}

func (bidModel) TableName() string {
	return "auction_bids"
}

func auctionModelFromEntity(auction entities.Auction) auctionModel {
	row := auctionModel{
		AuctionID:    auction.AuctionID,
		EntryID:      int64(auction.EntryID),
		Seller:       auction.Seller.Hex(),
		StartPrice:   auction.StartPrice.String(),
		CurrentPrice: auction.CurrentPrice.String(),
		EndTime:      auction.EndTime.UTC(),
		IsActive:     auction.IsActive,
		CreatedAt:    auction.CreatedAt.UTC(),
		UpdatedAt:    auction.UpdatedAt.UTC(),
	}
	if auction.HasBids() {
		row.HighestBidder = auction.HighestBidder.Hex()
	}
	return row
}

func (m auctionModel) toEntity() (entities.Auction, error) {
	start, ok := new(big.Int).SetString(m.StartPrice, 10)
	if !ok {
		return entities.Auction{}, fmt.Errorf("auction %s has malformed start price %q", m.AuctionID, m.StartPrice)
	}
	current, ok := new(big.Int).SetString(m.CurrentPrice, 10)
	if !ok {
		return entities.Auction{}, fmt.Errorf("auction %s has malformed current price %q", m.AuctionID, m.CurrentPrice)
	}
	auction := entities.Auction{
		AuctionID:    m.AuctionID,
		EntryID:      uint64(m.EntryID),
		Seller:       common.HexToAddress(m.Seller),
		StartPrice:   start,
		CurrentPrice: current,
		EndTime:      m.EndTime.UTC(),
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
	if m.HighestBidder != "" {
		auction.HighestBidder = common.HexToAddress(m.HighestBidder)
	}
	return auction, nil
}

func toEntities(rows []auctionModel) ([]entities.Auction, error) {
	items := make([]entities.Auction, 0, len(rows))
	for _, row := range rows {
		auction, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, auction)
	}
	return items, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.AuctionRepository = (*Repository)(nil)
