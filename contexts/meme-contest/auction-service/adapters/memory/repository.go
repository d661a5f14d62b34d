package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"artix/contexts/meme-contest/auction-service/domain/entities"
	domainerrors "artix/contexts/meme-contest/auction-service/domain/errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Repository keeps auctions and bids in process memory. The mutex makes
// CompareAndSetBid atomic.
type Repository struct {
	mu       sync.Mutex
	auctions map[string]entities.Auction
	bids     map[string][]entities.Bid

	// beforeSet runs inside CompareAndSetBid before the price check,
	// outside the lock.
	beforeSet func(expected *big.Int, bid entities.Bid)
}

func NewRepository() *Repository {
	return &Repository{
		auctions: make(map[string]entities.Auction),
		bids:     make(map[string][]entities.Bid),
	}
}

// OnCompareAndSet installs a hook used to interleave concurrent bids.
func (r *Repository) OnCompareAndSet(hook func(expected *big.Int, bid entities.Bid)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeSet = hook
}

func (r *Repository) CreateAuction(_ context.Context, auction entities.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.auctions {
		if existing.EntryID == auction.EntryID && existing.IsActive {
			return domainerrors.ErrAuctionAlreadyActive
		}
	}
	r.auctions[auction.AuctionID] = auction.Clone()
	return nil
}

func (r *Repository) GetAuction(_ context.Context, auctionID string) (entities.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	auction, ok := r.auctions[auctionID]
	if !ok {
		return entities.Auction{}, domainerrors.ErrAuctionNotFound
	}
	return auction.Clone(), nil
}

func (r *Repository) GetActiveAuctionByEntry(_ context.Context, entryID uint64) (entities.Auction, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, auction := range r.auctions {
		if auction.EntryID == entryID && auction.IsActive {
			return auction.Clone(), true, nil
		}
	}
	return entities.Auction{}, false, nil
}

func (r *Repository) ListAuctions(_ context.Context, activeOnly bool) ([]entities.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]entities.Auction, 0, len(r.auctions))
	for _, auction := range r.auctions {
		if activeOnly && !auction.IsActive {
			continue
		}
		items = append(items, auction.Clone())
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (r *Repository) ListExpiredAuctions(_ context.Context, now time.Time, limit int) ([]entities.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]entities.Auction, 0)
	for _, auction := range r.auctions {
		if auction.Expired(now) {
			items = append(items, auction.Clone())
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].EndTime.Before(items[j].EndTime) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *Repository) CompareAndSetBid(_ context.Context, expected *big.Int, bid entities.Bid) (entities.Auction, error) {
	r.mu.Lock()
	hook := r.beforeSet
	r.mu.Unlock()
	if hook != nil {
		hook(expected, bid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	auction, ok := r.auctions[bid.AuctionID]
	if !ok {
		return entities.Auction{}, domainerrors.ErrAuctionNotFound
	}
	if !auction.Biddable(bid.PlacedAt) || auction.CurrentPrice.Cmp(expected) != 0 {
		return entities.Auction{}, domainerrors.ErrBidConflict
	}
	auction.CurrentPrice = new(big.Int).Set(bid.Amount)
	auction.HighestBidder = bid.Bidder
	auction.UpdatedAt = bid.PlacedAt
	r.auctions[bid.AuctionID] = auction
	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], entities.Bid{
		AuctionID: bid.AuctionID,
		Bidder:    bid.Bidder,
		Amount:    new(big.Int).Set(bid.Amount),
		PlacedAt:  bid.PlacedAt,
	})
	return auction.Clone(), nil
}

func (r *Repository) EndAuction(_ context.Context, auctionID string, endedAt time.Time) (entities.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	auction, ok := r.auctions[auctionID]
	if !ok {
		return entities.Auction{}, domainerrors.ErrAuctionNotFound
	}
	if !auction.IsActive {
		return entities.Auction{}, domainerrors.ErrAuctionEnded
	}
	auction.IsActive = false
	auction.UpdatedAt = endedAt
	r.auctions[auctionID] = auction
	return auction.Clone(), nil
}

func (r *Repository) ListBids(_ context.Context, auctionID string) ([]entities.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bids := r.bids[auctionID]
	out := make([]entities.Bid, 0, len(bids))
	for _, bid := range bids {
		bid.Amount = new(big.Int).Set(bid.Amount)
		out = append(out, bid)
	}
	return out, nil
}

// Entries is a fixed set of entry snapshots standing in for the contest
// ledger.
type Entries struct {
	mu      sync.RWMutex
	entries map[uint64]entities.EntrySnapshot
	err     error
}

func NewEntries(snapshots ...entities.EntrySnapshot) *Entries {
	entries := &Entries{entries: make(map[uint64]entities.EntrySnapshot, len(snapshots))}
	for _, snapshot := range snapshots {
		entries.entries[snapshot.EntryID] = snapshot
	}
	return entries
}

func (e *Entries) Put(snapshot entities.EntrySnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries[snapshot.EntryID] = snapshot
}

func (e *Entries) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *Entries) GetEntrySnapshot(_ context.Context, entryID uint64) (entities.EntrySnapshot, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.err != nil {
		return entities.EntrySnapshot{}, e.err
	}
	snapshot, ok := e.entries[entryID]
	if !ok || snapshot.Creator == (common.Address{}) {
		return entities.EntrySnapshot{}, domainerrors.ErrEntryNotFound
	}
	return snapshot, nil
}

// Clock is a settable clock. The zero value reads the wall clock.
type Clock struct {
	mu  sync.RWMutex
	now time.Time
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now.UTC()
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now.IsZero() {
		c.now = time.Now().UTC()
	}
	c.now = c.now.Add(d)
}

func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.now.IsZero() {
		return time.Now().UTC()
	}
	return c.now
}

type IDGenerator struct{}

func (IDGenerator) NewID(context.Context) (string, error) {
	return uuid.NewString(), nil
}
