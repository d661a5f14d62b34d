package workers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	contestservice "artix/contexts/meme-contest/contest-service"
	"artix/contexts/meme-contest/contest-service/adapters/memory"
	"artix/contexts/meme-contest/contest-service/application/commands"
	"artix/contexts/meme-contest/contest-service/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eligibleEntries(n int) []entities.Entry {
	entries := make([]entities.Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, entities.Entry{
			ID:          uint64(i),
			Creator:     common.HexToAddress("0x1000000000000000000000000000000000000001"),
			ContentHash: "bafkretry",
			Title:       "retry",
			VoteCount:   3,
			IsActive:    true,
		})
	}
	return entries
}

func TestMintRetrierResumesFreshOrphanBehindExhaustedOnes(t *testing.T) {
	const exhausted = 25
	module := contestservice.NewInMemoryModule(eligibleEntries(exhausted+1), nil)
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	module.Store.SetNow(base.Add(time.Hour))
	ctx := context.Background()

	for i := 0; i < exhausted; i++ {
		require.NoError(t, module.Store.SaveMintAttempt(ctx, entities.MintAttempt{
			EntryID:        uint64(i),
			RegistrationID: "ip-stale",
			Status:         entities.MintAttemptMintFailed,
			Attempts:       5,
			LastError:      "execution reverted",
			CreatedAt:      base,
			UpdatedAt:      base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, module.Store.SaveMintAttempt(ctx, entities.MintAttempt{
		EntryID:        exhausted,
		RegistrationID: "ip-fresh",
		Status:         entities.MintAttemptMintFailed,
		Attempts:       1,
		CreatedAt:      base.Add(30 * time.Minute),
		UpdatedAt:      base.Add(30 * time.Minute),
	}))

	require.NoError(t, module.MintRetrier.RunOnce(ctx))

	entry, err := module.Catalog.RefreshEntry(ctx, exhausted)
	require.NoError(t, err)
	assert.True(t, entry.HasBeenMinted)
	assert.Equal(t, 1, module.Store.MintCalls())

	stale, err := module.Catalog.RefreshEntry(ctx, 0)
	require.NoError(t, err)
	assert.False(t, stale.HasBeenMinted)

	remaining, err := module.Store.ListOrphanedAttempts(ctx, 100, 5)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

type unavailableAttempts struct {
	*memory.Store
}

func (unavailableAttempts) SaveMintAttempt(context.Context, entities.MintAttempt) error {
	return errors.New("db down")
}

func TestMintRetrierResumesRegistrationTheRepositoryRefused(t *testing.T) {
	store := memory.NewStore(eligibleEntries(1))
	module := contestservice.NewModule(contestservice.Dependencies{
		Ledger:      store,
		Wallet:      store,
		Watcher:     store,
		Minter:      store,
		Registry:    store,
		Storage:     store,
		Images:      store,
		Attempts:    unavailableAttempts{Store: store},
		Clock:       store,
		IDGenerator: store,
		Network:     entities.BaseSepolia(),
	})
	store.FailMints(errors.New("nonce too low"))
	ctx := context.Background()

	_, err := module.Handler.Mints.Mint(ctx, commands.MintCommand{EntryID: 0})
	require.Error(t, err)

	require.NoError(t, module.MintRetrier.RunOnce(ctx))

	entry, err := module.Catalog.RefreshEntry(ctx, 0)
	require.NoError(t, err)
	assert.True(t, entry.HasBeenMinted)
	assert.Equal(t, 1, store.RegistrationCalls())
	assert.Equal(t, 2, store.MintCalls())
}
