package workers_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	auctionservice "artix/contexts/meme-contest/auction-service"
	"artix/contexts/meme-contest/auction-service/adapters/memory"
	"artix/contexts/meme-contest/auction-service/application/commands"
	"artix/contexts/meme-contest/auction-service/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlerEndsOnlyExpiredAuctions(t *testing.T) {
	creator := common.HexToAddress("0x1000000000000000000000000000000000000001")
	entries := memory.NewEntries(
		entities.EntrySnapshot{EntryID: 1, Creator: creator, HasBeenMinted: true},
		entities.EntrySnapshot{EntryID: 2, Creator: creator, HasBeenMinted: true},
	)
	module := auctionservice.NewInMemoryModule(entries, nil, nil)
	module.Clock.Set(time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC))
	ctx := context.Background()

	short, err := module.Handler.Auctions.CreateAuction(ctx, commands.CreateAuctionCommand{
		EntryID: 1, Caller: creator, StartPrice: big.NewInt(100), Duration: time.Hour,
	})
	require.NoError(t, err)
	long, err := module.Handler.Auctions.CreateAuction(ctx, commands.CreateAuctionCommand{
		EntryID: 2, Caller: creator, StartPrice: big.NewInt(100), Duration: 48 * time.Hour,
	})
	require.NoError(t, err)

	module.Clock.Advance(2 * time.Hour)
	require.NoError(t, module.Settler.RunOnce(ctx))

	got, err := module.Repository.GetAuction(ctx, short.AuctionID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	got, err = module.Repository.GetAuction(ctx, long.AuctionID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	require.NoError(t, module.Settler.RunOnce(ctx))
}
