package commands_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	auctionservice "artix/contexts/meme-contest/auction-service"
	"artix/contexts/meme-contest/auction-service/adapters/memory"
	"artix/contexts/meme-contest/auction-service/application/commands"
	"artix/contexts/meme-contest/auction-service/domain/entities"
	domainerrors "artix/contexts/meme-contest/auction-service/domain/errors"
	"artix/internal/shared/faults"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	seller  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	alice   = common.HexToAddress("0x2000000000000000000000000000000000000002")
	bob     = common.HexToAddress("0x3000000000000000000000000000000000000003")
	startAt = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
)

// eth converts hundredths of an ether to wei.
func eth(hundredths int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(hundredths), big.NewInt(10_000_000_000_000_000))
}

func newModule(t *testing.T, snapshots ...entities.EntrySnapshot) auctionservice.Module {
	t.Helper()
	if len(snapshots) == 0 {
		snapshots = []entities.EntrySnapshot{{EntryID: 1, Creator: seller, HasBeenMinted: true}}
	}
	module := auctionservice.NewInMemoryModule(memory.NewEntries(snapshots...), nil, nil)
	module.Clock.Set(startAt)
	return module
}

func openAuction(t *testing.T, module auctionservice.Module, price *big.Int) entities.Auction {
	t.Helper()
	auction, err := module.Handler.Auctions.CreateAuction(context.Background(), commands.CreateAuctionCommand{
		EntryID:    1,
		Caller:     seller,
		StartPrice: price,
		Duration:   24 * time.Hour,
	})
	require.NoError(t, err)
	return auction
}

func TestCreateAuctionForMintedEntry(t *testing.T) {
	module := newModule(t)

	auction := openAuction(t, module, eth(10))
	assert.NotEmpty(t, auction.AuctionID)
	assert.Equal(t, startAt.Add(24*time.Hour), auction.EndTime)
	assert.True(t, auction.IsActive)
	assert.Equal(t, 0, auction.CurrentPrice.Cmp(eth(10)))
}

func TestCreateAuctionPreconditions(t *testing.T) {
	module := newModule(t,
		entities.EntrySnapshot{EntryID: 1, Creator: seller, HasBeenMinted: true},
		entities.EntrySnapshot{EntryID: 2, Creator: seller},
	)
	auctions := module.Handler.Auctions
	ctx := context.Background()

	_, err := auctions.CreateAuction(ctx, commands.CreateAuctionCommand{EntryID: 2, Caller: seller, StartPrice: eth(1), Duration: time.Hour})
	assert.ErrorIs(t, err, domainerrors.ErrEntryNotMinted)

	_, err = auctions.CreateAuction(ctx, commands.CreateAuctionCommand{EntryID: 1, Caller: alice, StartPrice: eth(1), Duration: time.Hour})
	assert.ErrorIs(t, err, domainerrors.ErrNotEntryCreator)

	_, err = auctions.CreateAuction(ctx, commands.CreateAuctionCommand{EntryID: 9, Caller: seller, StartPrice: eth(1), Duration: time.Hour})
	assert.ErrorIs(t, err, domainerrors.ErrEntryNotFound)

	_, err = auctions.CreateAuction(ctx, commands.CreateAuctionCommand{EntryID: 1, Caller: seller, StartPrice: big.NewInt(0), Duration: time.Hour})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidAuction)

	_, err = auctions.CreateAuction(ctx, commands.CreateAuctionCommand{EntryID: 1, Caller: seller, StartPrice: eth(1)})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidAuction)

	openAuction(t, module, eth(1))
	_, err = auctions.CreateAuction(ctx, commands.CreateAuctionCommand{EntryID: 1, Caller: seller, StartPrice: eth(1), Duration: time.Hour})
	assert.ErrorIs(t, err, domainerrors.ErrAuctionAlreadyActive)
}

func TestCreateAuctionSettlesExpiredPredecessor(t *testing.T) {
	module := newModule(t)
	first := openAuction(t, module, eth(10))

	module.Clock.Advance(25 * time.Hour)
	second := openAuction(t, module, eth(20))
	assert.NotEqual(t, first.AuctionID, second.AuctionID)

	previous, err := module.Repository.GetAuction(context.Background(), first.AuctionID)
	require.NoError(t, err)
	assert.False(t, previous.IsActive)
}

func TestCreateAuctionReportsLedgerFailure(t *testing.T) {
	entries := memory.NewEntries()
	entries.Fail(errors.New("rpc unavailable"))
	module := auctionservice.NewInMemoryModule(entries, nil, nil)

	_, err := module.Handler.Auctions.CreateAuction(context.Background(), commands.CreateAuctionCommand{
		EntryID: 1, Caller: seller, StartPrice: eth(1), Duration: time.Hour,
	})
	assert.ErrorIs(t, err, domainerrors.ErrEntryUnavailable)
	assert.ErrorIs(t, err, faults.ErrTransientNetwork)
}

func TestBidBelowCurrentPriceIsRejected(t *testing.T) {
	module := newModule(t)
	auction := openAuction(t, module, eth(10))
	auctions := module.Handler.Auctions

	_, err := auctions.PlaceBid(context.Background(), commands.PlaceBidCommand{AuctionID: auction.AuctionID, Bidder: alice, Amount: eth(5)})
	assert.ErrorIs(t, err, domainerrors.ErrBidTooLow)
	assert.ErrorIs(t, err, faults.ErrPreconditionFailed)

	updated, err := auctions.PlaceBid(context.Background(), commands.PlaceBidCommand{AuctionID: auction.AuctionID, Bidder: alice, Amount: eth(15)})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.CurrentPrice.Cmp(eth(15)))
	assert.Equal(t, alice, updated.HighestBidder)
}

func TestBidEqualToCurrentPriceIsRejected(t *testing.T) {
	module := newModule(t)
	auction := openAuction(t, module, eth(10))

	_, err := module.Handler.Auctions.PlaceBid(context.Background(), commands.PlaceBidCommand{AuctionID: auction.AuctionID, Bidder: alice, Amount: eth(10)})
	assert.ErrorIs(t, err, domainerrors.ErrBidTooLow)
}

func TestBidAfterEndTimeIsRejected(t *testing.T) {
	module := newModule(t)
	auction := openAuction(t, module, eth(10))
	module.Clock.Advance(24 * time.Hour)

	_, err := module.Handler.Auctions.PlaceBid(context.Background(), commands.PlaceBidCommand{AuctionID: auction.AuctionID, Bidder: alice, Amount: eth(50)})
	assert.ErrorIs(t, err, domainerrors.ErrAuctionEnded)
}

func TestSellerCannotBid(t *testing.T) {
	module := newModule(t)
	auction := openAuction(t, module, eth(10))

	_, err := module.Handler.Auctions.PlaceBid(context.Background(), commands.PlaceBidCommand{AuctionID: auction.AuctionID, Bidder: seller, Amount: eth(50)})
	assert.ErrorIs(t, err, domainerrors.ErrSellerCannotBid)
}

func TestBidOnUnknownAuction(t *testing.T) {
	module := newModule(t)

	_, err := module.Handler.Auctions.PlaceBid(context.Background(), commands.PlaceBidCommand{AuctionID: "missing", Bidder: alice, Amount: eth(1)})
	assert.ErrorIs(t, err, domainerrors.ErrAuctionNotFound)
}

func TestLosingPriceRaceRevalidates(t *testing.T) {
	module := newModule(t)
	auction := openAuction(t, module, eth(10))
	auctions := module.Handler.Auctions

	var once sync.Once
	module.Repository.OnCompareAndSet(func(_ *big.Int, bid entities.Bid) {
		if bid.Bidder != alice {
			return
		}
		once.Do(func() {
			_, err := auctions.PlaceBid(context.Background(), commands.PlaceBidCommand{AuctionID: auction.AuctionID, Bidder: bob, Amount: eth(30)})
			require.NoError(t, err)
		})
	})

	// Alice's 0.20 passed validation against 0.10, but bob moved the price
	// to 0.30 before her compare-and-set; the retry sees 0.30 and rejects.
	_, err := auctions.PlaceBid(context.Background(), commands.PlaceBidCommand{AuctionID: auction.AuctionID, Bidder: alice, Amount: eth(20)})
	assert.ErrorIs(t, err, domainerrors.ErrBidTooLow)

	current, err := module.Repository.GetAuction(context.Background(), auction.AuctionID)
	require.NoError(t, err)
	assert.Equal(t, 0, current.CurrentPrice.Cmp(eth(30)))
	assert.Equal(t, bob, current.HighestBidder)
}

func TestConcurrentBidsKeepPriceStrictlyIncreasing(t *testing.T) {
	module := newModule(t)
	auction := openAuction(t, module, eth(1))
	auctions := module.Handler.Auctions

	var wg sync.WaitGroup
	for i := int64(2); i <= 40; i++ {
		wg.Add(1)
		go func(amount int64) {
			defer wg.Done()
			bidder := alice
			if amount%2 == 0 {
				bidder = bob
			}
			_, _ = auctions.PlaceBid(context.Background(), commands.PlaceBidCommand{
				AuctionID: auction.AuctionID,
				Bidder:    bidder,
				Amount:    eth(amount),
			})
		}(i)
	}
	wg.Wait()

	bids, err := module.Repository.ListBids(context.Background(), auction.AuctionID)
	require.NoError(t, err)
	require.NotEmpty(t, bids)
	previous := eth(1)
	for _, bid := range bids {
		assert.Equal(t, 1, bid.Amount.Cmp(previous), "bid %s must exceed %s", bid.Amount, previous)
		previous = bid.Amount
	}
	current, err := module.Repository.GetAuction(context.Background(), auction.AuctionID)
	require.NoError(t, err)
	assert.Equal(t, 0, current.CurrentPrice.Cmp(previous))
}

func TestSettleAuction(t *testing.T) {
	module := newModule(t)
	auction := openAuction(t, module, eth(10))
	auctions := module.Handler.Auctions
	ctx := context.Background()

	_, err := auctions.SettleAuction(ctx, commands.SettleAuctionCommand{AuctionID: auction.AuctionID, Caller: alice})
	assert.ErrorIs(t, err, domainerrors.ErrNotSeller)

	ended, err := auctions.SettleAuction(ctx, commands.SettleAuctionCommand{AuctionID: auction.AuctionID, Caller: seller})
	require.NoError(t, err)
	assert.False(t, ended.IsActive)

	_, err = auctions.SettleAuction(ctx, commands.SettleAuctionCommand{AuctionID: auction.AuctionID, Caller: seller})
	assert.ErrorIs(t, err, domainerrors.ErrAuctionEnded)

	_, err = auctions.PlaceBid(ctx, commands.PlaceBidCommand{AuctionID: auction.AuctionID, Bidder: alice, Amount: eth(50)})
	assert.ErrorIs(t, err, domainerrors.ErrAuctionEnded)
}

func TestAnyoneMaySettleExpiredAuction(t *testing.T) {
	module := newModule(t)
	auction := openAuction(t, module, eth(10))
	module.Clock.Advance(24*time.Hour + time.Second)

	ended, err := module.Handler.Auctions.SettleAuction(context.Background(), commands.SettleAuctionCommand{AuctionID: auction.AuctionID})
	require.NoError(t, err)
	assert.False(t, ended.IsActive)
}
