package entities

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type AuctionStatus string

const (
	AuctionStatusActive AuctionStatus = "active"
	AuctionStatusEnded  AuctionStatus = "ended"
)

// Auction is a timed sale of one minted entry. Prices are in wei.
type Auction struct {
	AuctionID     string
	EntryID       uint64
	Seller        common.Address
	StartPrice    *big.Int
	CurrentPrice  *big.Int
	HighestBidder common.Address
	EndTime       time.Time
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Biddable reports whether a bid may be accepted at now.
func (a Auction) Biddable(now time.Time) bool {
	return a.IsActive && now.Before(a.EndTime)
}

// Expired reports whether the auction is still marked active past its end.
func (a Auction) Expired(now time.Time) bool {
	return a.IsActive && !now.Before(a.EndTime)
}

func (a Auction) TimeLeft(now time.Time) time.Duration {
	if !a.IsActive || !now.Before(a.EndTime) {
		return 0
	}
	return a.EndTime.Sub(now)
}

func (a Auction) Status(now time.Time) AuctionStatus {
	if a.Biddable(now) {
		return AuctionStatusActive
	}
	return AuctionStatusEnded
}

func (a Auction) HasBids() bool {
	return a.HighestBidder != (common.Address{})
}

// Clone copies the price pointers so callers cannot mutate stored state.
func (a Auction) Clone() Auction {
	if a.StartPrice != nil {
		a.StartPrice = new(big.Int).Set(a.StartPrice)
	}
	if a.CurrentPrice != nil {
		a.CurrentPrice = new(big.Int).Set(a.CurrentPrice)
	}
	return a
}

// FormatTimeLeft renders a remaining duration the way the auction board
// shows it.
func FormatTimeLeft(d time.Duration) string {
	if d <= 0 {
		return "Ended"
	}
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

type Bid struct {
	AuctionID string
	Bidder    common.Address
	Amount    *big.Int
	PlacedAt  time.Time
}

// EntrySnapshot is what the auction needs to know about a contest entry.
type EntrySnapshot struct {
	EntryID       uint64
	Creator       common.Address
	HasBeenMinted bool
}
