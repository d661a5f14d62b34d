package bootstrap

import (
	"context"
	"errors"
	"fmt"

	auctionentities "artix/contexts/meme-contest/auction-service/domain/entities"
	auctionerrors "artix/contexts/meme-contest/auction-service/domain/errors"
	"artix/contexts/meme-contest/contest-service/domain/entities"
	contesterrors "artix/contexts/meme-contest/contest-service/domain/errors"
)

type entryRefresher interface {
	RefreshEntry(ctx context.Context, entryID uint64) (entities.Entry, error)
}

// contestEntryReader lets the auction context read entries through the
// contest catalog, so the minted flag it sees never reverts.
type contestEntryReader struct {
	catalog entryRefresher
}

func (r contestEntryReader) GetEntrySnapshot(ctx context.Context, entryID uint64) (auctionentities.EntrySnapshot, error) {
	entry, err := r.catalog.RefreshEntry(ctx, entryID)
	switch {
	case errors.Is(err, contesterrors.ErrEntryNotFound):
		return auctionentities.EntrySnapshot{}, auctionerrors.ErrEntryNotFound
	case err != nil:
		return auctionentities.EntrySnapshot{}, fmt.Errorf("%w: %w", auctionerrors.ErrEntryUnavailable, err)
	}
	return auctionentities.EntrySnapshot{
		EntryID:       entryID,
		Creator:       entry.Creator,
		HasBeenMinted: entry.HasBeenMinted,
	}, nil
}
