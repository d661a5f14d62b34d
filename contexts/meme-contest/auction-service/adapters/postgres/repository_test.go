package postgresadapter

import (
	"fmt"
	"math/big"
	"testing"
	"time"

	"artix/contexts/meme-contest/auction-service/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuctionModelRoundTripKeepsWeiPrecision(t *testing.T) {
	price, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	auction := entities.Auction{
		AuctionID:     "a-1",
		EntryID:       4,
		Seller:        common.HexToAddress("0x1000000000000000000000000000000000000001"),
		StartPrice:    big.NewInt(1),
		CurrentPrice:  price,
		HighestBidder: common.HexToAddress("0x3000000000000000000000000000000000000003"),
		EndTime:       now.Add(time.Hour),
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	got, err := auctionModelFromEntity(auction).toEntity()
	require.NoError(t, err)
	assert.Equal(t, auction, got)
}

func TestAuctionWithoutBidsStoresEmptyBidder(t *testing.T) {
	row := auctionModelFromEntity(entities.Auction{StartPrice: big.NewInt(1), CurrentPrice: big.NewInt(1)})
	assert.Empty(t, row.HighestBidder)
}

func TestMalformedPriceIsRejected(t *testing.T) {
	_, err := auctionModel{AuctionID: "a", StartPrice: "1", CurrentPrice: "1e18"}.toEntity()
	assert.Error(t, err)
}

func TestUniqueViolationDetection(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
}
