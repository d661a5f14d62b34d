package queries

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	application "artix/contexts/meme-contest/contest-service/application"
	"artix/contexts/meme-contest/contest-service/domain/entities"
	domainerrors "artix/contexts/meme-contest/contest-service/domain/errors"
	"artix/contexts/meme-contest/contest-service/ports"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheTTL          = 5 * time.Minute
	defaultMaxScan           = 100
	defaultEnrichConcurrency = 8
	defaultScanTimeout       = 30 * time.Second
	emptySlotsBeforeStop     = 3
)

type ListEntriesQuery struct {
	Viewer *common.Address
	Fresh  bool
}

type CatalogOptions struct {
	TTL               time.Duration
	MaxScan           uint64
	EnrichConcurrency int
	ScanTimeout       time.Duration
	Logger            *slog.Logger
}

// EntryCatalog is the read-through cache over the contest ledger. It is
// shared by every request; only the ledger mutates entries.
type EntryCatalog struct {
	ledger            ports.Ledger
	clock             ports.Clock
	ttl               time.Duration
	maxScan           uint64
	enrichConcurrency int
	scanTimeout       time.Duration
	logger            *slog.Logger

	fills singleflight.Group

	mu        sync.RWMutex
	entries   []entities.Entry
	observed  map[uint64]entities.Entry
	fetchedAt time.Time
	config    *entities.VotingConfiguration
	pending   map[pendingKey]entities.PendingVote
}

type pendingKey struct {
	entryID uint64
	viewer  common.Address
}

func NewEntryCatalog(ledger ports.Ledger, clock ports.Clock, opts CatalogOptions) *EntryCatalog {
	catalog := &EntryCatalog{
		ledger:            ledger,
		clock:             clock,
		ttl:               opts.TTL,
		maxScan:           opts.MaxScan,
		enrichConcurrency: opts.EnrichConcurrency,
		scanTimeout:       opts.ScanTimeout,
		logger:            application.ResolveLogger(opts.Logger),
		observed:          make(map[uint64]entities.Entry),
		pending:           make(map[pendingKey]entities.PendingVote),
	}
	if catalog.ttl <= 0 {
		catalog.ttl = defaultCacheTTL
	}
	if catalog.maxScan == 0 {
		catalog.maxScan = defaultMaxScan
	}
	if catalog.enrichConcurrency <= 0 {
		catalog.enrichConcurrency = defaultEnrichConcurrency
	}
	if catalog.scanTimeout <= 0 {
		catalog.scanTimeout = defaultScanTimeout
	}
	return catalog
}

// ListEntries returns every non-empty entry ordered by id. A ledger failure
// on the listing itself is returned; vote-status enrichment never fails the
// call.
func (c *EntryCatalog) ListEntries(ctx context.Context, query ListEntriesQuery) ([]entities.Entry, error) {
	entries, err := c.snapshot(ctx, query.Fresh)
	if err != nil {
		return nil, err
	}
	if query.Viewer == nil || *query.Viewer == (common.Address{}) {
		return entries, nil
	}

	viewer := *query.Viewer
	ids := make([]uint64, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	status := c.GetVoteStatus(ctx, ids, viewer)
	for i := range entries {
		entries[i].HasVoted = status[entries[i].ID]
		_, entries[i].VotePending = c.PendingVote(entries[i].ID, viewer)
	}
	return entries, nil
}

// GetVoteStatus reads hasVoted for each id in parallel. Read errors are
// logged and reported as false.
func (c *EntryCatalog) GetVoteStatus(ctx context.Context, entryIDs []uint64, viewer common.Address) map[uint64]bool {
	result := make(map[uint64]bool, len(entryIDs))
	var mu sync.Mutex

	var group errgroup.Group
	group.SetLimit(c.enrichConcurrency)
	for _, entryID := range entryIDs {
		group.Go(func() error {
			voted, err := c.ledger.HasVoted(ctx, entryID, viewer)
			if err != nil {
				c.logger.Warn("vote status read failed",
					"event", "contest_vote_status_read_failed",
					"module", "meme-contest/contest-service",
					"layer", "application",
					"entry_id", entryID,
					"viewer", viewer.Hex(),
					"error", err.Error(),
				)
				voted = false
			}
			mu.Lock()
			result[entryID] = voted
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	c.reconcilePending(viewer, result)
	return result
}

// GetEntry serves id from the cache when it is valid, otherwise reads it.
func (c *EntryCatalog) GetEntry(ctx context.Context, entryID uint64, fresh bool) (entities.Entry, error) {
	if !fresh {
		c.mu.RLock()
		entry, ok := c.observed[entryID]
		valid := c.validLocked()
		c.mu.RUnlock()
		if ok && valid {
			return entry, nil
		}
	}
	return c.RefreshEntry(ctx, entryID)
}

// RefreshEntry force-reads one entry from the ledger and folds it into the
// cache without resetting the listing TTL.
func (c *EntryCatalog) RefreshEntry(ctx context.Context, entryID uint64) (entities.Entry, error) {
	entry, err := c.ledger.GetEntry(ctx, entryID)
	if err != nil {
		return entities.Entry{}, fmt.Errorf("%w: read entry %d: %w", domainerrors.ErrLedgerUnavailable, entryID, err)
	}
	if entry.IsEmpty() {
		return entities.Entry{}, domainerrors.ErrEntryNotFound
	}
	entry.ID = entryID

	c.mu.Lock()
	defer c.mu.Unlock()
	merged := c.mergeLocked(entry)
	replaced := false
	for i := range c.entries {
		if c.entries[i].ID == entryID {
			c.entries[i] = merged
			replaced = true
			break
		}
	}
	if !replaced && !c.fetchedAt.IsZero() {
		c.entries = append(c.entries, merged)
		sort.Slice(c.entries, func(i, j int) bool { return c.entries[i].ID < c.entries[j].ID })
	}
	return merged, nil
}

// VotingConfiguration is cached for the process lifetime unless fresh is set.
func (c *EntryCatalog) VotingConfiguration(ctx context.Context, fresh bool) (entities.VotingConfiguration, error) {
	if !fresh {
		c.mu.RLock()
		cached := c.config
		c.mu.RUnlock()
		if cached != nil {
			return *cached, nil
		}
	}

	cfg, err := c.ledger.VotingConfiguration(ctx)
	if err != nil {
		return entities.VotingConfiguration{}, fmt.Errorf("%w: voting configuration: %w", domainerrors.ErrLedgerUnavailable, err)
	}
	c.mu.Lock()
	c.config = &cfg
	c.mu.Unlock()
	return cfg, nil
}

func (c *EntryCatalog) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

func (c *EntryCatalog) MarkPending(vote entities.PendingVote) {
	c.mu.Lock()
	c.pending[pendingKey{entryID: vote.EntryID, viewer: vote.Viewer}] = vote
	c.mu.Unlock()
}

func (c *EntryCatalog) ClearPending(entryID uint64, viewer common.Address) {
	c.mu.Lock()
	delete(c.pending, pendingKey{entryID: entryID, viewer: viewer})
	c.mu.Unlock()
}

func (c *EntryCatalog) PendingVote(entryID uint64, viewer common.Address) (entities.PendingVote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vote, ok := c.pending[pendingKey{entryID: entryID, viewer: viewer}]
	return vote, ok
}

func (c *EntryCatalog) PendingVotes() []entities.PendingVote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make([]entities.PendingVote, 0, len(c.pending))
	for _, vote := range c.pending {
		items = append(items, vote)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SubmittedAt.Before(items[j].SubmittedAt) })
	return items
}

func (c *EntryCatalog) snapshot(ctx context.Context, fresh bool) ([]entities.Entry, error) {
	if !fresh {
		c.mu.RLock()
		if c.validLocked() {
			entries := append([]entities.Entry(nil), c.entries...)
			c.mu.RUnlock()
			return entries, nil
		}
		c.mu.RUnlock()
	}

	// The fill is shared, so it must outlive the caller that started it.
	fill := c.fills.DoChan("entries", func() (any, error) {
		scanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.scanTimeout)
		defer cancel()
		return c.scan(scanCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-fill:
		if result.Err != nil {
			return nil, result.Err
		}
		return append([]entities.Entry(nil), result.Val.([]entities.Entry)...), nil
	}
}

// scan walks ids from zero and stops after three consecutive empty slots or
// at the scan bound.
func (c *EntryCatalog) scan(ctx context.Context) ([]entities.Entry, error) {
	started := c.now()
	found := make([]entities.Entry, 0)
	empty := 0
	for id := uint64(0); id < c.maxScan; id++ {
		entry, err := c.ledger.GetEntry(ctx, id)
		if err != nil {
			c.logger.Error("entry listing failed",
				"event", "contest_entry_listing_failed",
				"module", "meme-contest/contest-service",
				"layer", "application",
				"entry_id", id,
				"error", err.Error(),
			)
			return nil, fmt.Errorf("%w: list entry %d: %w", domainerrors.ErrLedgerUnavailable, id, err)
		}
		if entry.IsEmpty() {
			empty++
			if empty >= emptySlotsBeforeStop {
				break
			}
			continue
		}
		empty = 0
		entry.ID = id
		found = append(found, entry)
	}

	c.mu.Lock()
	for i := range found {
		found[i] = c.mergeLocked(found[i])
	}
	c.entries = found
	c.fetchedAt = c.now()
	c.mu.Unlock()

	c.logger.Info("entry listing refreshed",
		"event", "contest_entry_listing_refreshed",
		"module", "meme-contest/contest-service",
		"layer", "application",
		"entry_count", len(found),
		"duration_ms", c.now().Sub(started).Milliseconds(),
	)
	return found, nil
}

func (c *EntryCatalog) mergeLocked(entry entities.Entry) entities.Entry {
	entry.HasVoted = false
	entry.VotePending = false
	if previous, ok := c.observed[entry.ID]; ok {
		entry = previous.Merge(entry)
	}
	c.observed[entry.ID] = entry
	return entry
}

func (c *EntryCatalog) reconcilePending(viewer common.Address, status map[uint64]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for entryID, voted := range status {
		key := pendingKey{entryID: entryID, viewer: viewer}
		vote, ok := c.pending[key]
		if !ok || !voted {
			continue
		}
		delete(c.pending, key)
		c.logger.Info("pending vote reconciled from ledger",
			"event", "contest_pending_vote_reconciled",
			"module", "meme-contest/contest-service",
			"layer", "application",
			"entry_id", entryID,
			"viewer", viewer.Hex(),
			"tx_hash", vote.TxHash.Hex(),
		)
	}
}

func (c *EntryCatalog) validLocked() bool {
	return !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.ttl
}

func (c *EntryCatalog) now() time.Time {
	if c.clock == nil {
		return time.Now().UTC()
	}
	return c.clock.Now().UTC()
}
