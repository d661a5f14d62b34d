package commands_test

import (
	"context"
	"errors"
	"testing"

	contestservice "artix/contexts/meme-contest/contest-service"
	"artix/contexts/meme-contest/contest-service/adapters/memory"
	"artix/contexts/meme-contest/contest-service/application/commands"
	"artix/contexts/meme-contest/contest-service/domain/entities"
	domainerrors "artix/contexts/meme-contest/contest-service/domain/errors"
	"artix/internal/shared/faults"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentMintRegistersOnce(t *testing.T) {
	module := newModule(t, contestEntry(0, 3))
	entered := make(chan struct{})
	release := make(chan struct{})
	module.Store.OnRegister(func(entities.RegistrationRequest) {
		close(entered)
		<-release
	})

	mints := module.Handler.Mints
	type outcome struct {
		result commands.MintResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := mints.Mint(context.Background(), commands.MintCommand{EntryID: 0})
		done <- outcome{result: result, err: err}
	}()
	<-entered

	second, err := mints.Mint(context.Background(), commands.MintCommand{EntryID: 0})
	assert.ErrorIs(t, err, domainerrors.ErrMintInProgress)
	assert.Equal(t, entities.EligibilityRegistering, second.State)

	eligibility, err := mints.Evaluate(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, entities.EligibilityRegistering, eligibility.State)

	close(release)
	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, entities.EligibilityMinted, first.result.State)
	assert.Equal(t, "ip-1", first.result.RegistrationID)
	assert.NotEmpty(t, first.result.MintTxHash)

	assert.Equal(t, 1, module.Store.RegistrationCalls())
	assert.Equal(t, 1, module.Store.MintCalls())

	eligibility, err = mints.Evaluate(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, entities.EligibilityMinted, eligibility.State)
}

func TestMintRejectsEntryBelowThreshold(t *testing.T) {
	module := newModule(t, contestEntry(0, 2))

	_, err := module.Handler.Mints.Mint(context.Background(), commands.MintCommand{EntryID: 0})
	assert.ErrorIs(t, err, domainerrors.ErrInsufficientVotes)
	assert.ErrorIs(t, err, faults.ErrPreconditionFailed)
	assert.Equal(t, 0, module.Store.RegistrationCalls())
	assert.Equal(t, 0, module.Store.MintCalls())
}

func TestMintRejectsAlreadyMintedEntry(t *testing.T) {
	minted := contestEntry(0, 5)
	minted.HasBeenMinted = true
	module := newModule(t, minted)

	_, err := module.Handler.Mints.Mint(context.Background(), commands.MintCommand{EntryID: 0})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyMinted)
	assert.Equal(t, 0, module.Store.RegistrationCalls())
}

func TestRegistrationFailureLeavesEntryEligible(t *testing.T) {
	module := newModule(t, contestEntry(0, 3))
	module.Store.FailRegistration(errors.New("registry rpc unavailable"))
	mints := module.Handler.Mints

	result, err := mints.Mint(context.Background(), commands.MintCommand{EntryID: 0})
	assert.ErrorIs(t, err, domainerrors.ErrRegistrationFailed)
	assert.Equal(t, entities.EligibilityEligible, result.State)
	assert.Equal(t, 0, module.Store.MintCalls())

	eligibility, err := mints.Evaluate(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, entities.EligibilityEligible, eligibility.State)

	_, found, err := module.Store.GetMintAttempt(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMintFailureResumesWithRecordedRegistration(t *testing.T) {
	module := newModule(t, contestEntry(0, 3))
	module.Store.FailMints(errors.New("nonce too low"))
	mints := module.Handler.Mints

	result, err := mints.Mint(context.Background(), commands.MintCommand{EntryID: 0})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrMintFailed)
	assert.ErrorIs(t, err, faults.ErrSagaPartialFailure)
	var opErr *faults.OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "ip-1", opErr.RegistrationID)
	assert.Equal(t, "mint", opErr.Stage)
	assert.Equal(t, entities.EligibilityRegistering, result.State)

	eligibility, err := mints.Evaluate(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, entities.EligibilityRegistering, eligibility.State)
	assert.Equal(t, "ip-1", eligibility.RegistrationID)

	retried, err := mints.RetryOrphan(context.Background(), commands.RetryMintCommand{EntryID: 0, RegistrationID: "ip-1"})
	require.NoError(t, err)
	assert.True(t, retried.Resumed)
	assert.Equal(t, entities.EligibilityMinted, retried.State)
	assert.Equal(t, 1, module.Store.RegistrationCalls())
	assert.Equal(t, 2, module.Store.MintCalls())

	attempt, found, err := module.Store.GetMintAttempt(context.Background(), 0)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entities.MintAttemptMinted, attempt.Status)
	assert.Equal(t, 2, attempt.Attempts)
}

func TestMintAfterFailureDoesNotRegisterAgain(t *testing.T) {
	module := newModule(t, contestEntry(0, 3))
	module.Store.FailMints(errors.New("replacement transaction underpriced"))
	mints := module.Handler.Mints

	_, err := mints.Mint(context.Background(), commands.MintCommand{EntryID: 0})
	require.Error(t, err)

	result, err := mints.Mint(context.Background(), commands.MintCommand{EntryID: 0})
	require.NoError(t, err)
	assert.True(t, result.Resumed)
	assert.Equal(t, "ip-1", result.RegistrationID)
	assert.Equal(t, 1, module.Store.RegistrationCalls())
}

func TestRetryOrphanRejectsMismatchedRegistration(t *testing.T) {
	module := newModule(t, contestEntry(0, 3))
	module.Store.FailMints(errors.New("out of gas"))
	mints := module.Handler.Mints

	_, err := mints.Mint(context.Background(), commands.MintCommand{EntryID: 0})
	require.Error(t, err)

	_, err = mints.RetryOrphan(context.Background(), commands.RetryMintCommand{EntryID: 0, RegistrationID: "ip-9"})
	assert.ErrorIs(t, err, domainerrors.ErrRegistrationMismatch)
	assert.Equal(t, 1, module.Store.MintCalls())
}

func TestRetryOrphanWithoutAttempt(t *testing.T) {
	module := newModule(t, contestEntry(0, 3))

	_, err := module.Handler.Mints.RetryOrphan(context.Background(), commands.RetryMintCommand{EntryID: 0})
	assert.ErrorIs(t, err, domainerrors.ErrNoOrphanedAttempt)
}

func TestMintRetrierResumesOrphans(t *testing.T) {
	module := newModule(t, contestEntry(0, 3), contestEntry(1, 4))
	module.Store.FailMints(errors.New("rpc timeout"), errors.New("rpc timeout"))
	mints := module.Handler.Mints

	_, err := mints.Mint(context.Background(), commands.MintCommand{EntryID: 0})
	require.Error(t, err)
	_, err = mints.Mint(context.Background(), commands.MintCommand{EntryID: 1})
	require.Error(t, err)

	require.NoError(t, module.MintRetrier.RunOnce(context.Background()))

	for _, id := range []uint64{0, 1} {
		entry, err := module.Catalog.RefreshEntry(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, entry.HasBeenMinted, "entry %d", id)
	}
	orphans, err := module.Store.ListOrphanedAttempts(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, orphans)
	assert.Equal(t, 2, module.Store.RegistrationCalls())
}

func TestEvaluateReportsVotesNeeded(t *testing.T) {
	module := newModule(t, contestEntry(0, 1))

	eligibility, err := module.Handler.Mints.Evaluate(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, entities.EligibilityVoting, eligibility.State)
	assert.Equal(t, uint64(2), eligibility.VotesNeeded)
	assert.Equal(t, uint64(3), eligibility.MinVotesForWin)
}

// storeModule wires every port to store, letting edit replace some of them.
func storeModule(t *testing.T, edit func(*contestservice.Dependencies), seed ...entities.Entry) contestservice.Module {
	t.Helper()
	store := memory.NewStore(seed)
	store.ConnectViewer(viewer)
	deps := contestservice.Dependencies{
		Ledger:      store,
		Wallet:      store,
		Watcher:     store,
		Minter:      store,
		Registry:    store,
		Storage:     store,
		Images:      store,
		Attempts:    store,
		Clock:       store,
		IDGenerator: store,
		Network:     entities.BaseSepolia(),
	}
	edit(&deps)
	module := contestservice.NewModule(deps)
	module.Store = store
	return module
}

type refusingAttempts struct {
	*memory.Store
}

func (refusingAttempts) SaveMintAttempt(context.Context, entities.MintAttempt) error {
	return errors.New("db down")
}

func refusingSaves(deps *contestservice.Dependencies) {
	deps.Attempts = refusingAttempts{Store: deps.Attempts.(*memory.Store)}
}

func TestRetryOrphanResumesRegistrationTheRepositoryRefused(t *testing.T) {
	module := storeModule(t, refusingSaves, contestEntry(0, 3))
	module.Store.FailMints(errors.New("nonce too low"))
	mints := module.Handler.Mints

	_, err := mints.Mint(context.Background(), commands.MintCommand{EntryID: 0})
	var opErr *faults.OperationError
	require.True(t, errors.As(err, &opErr))
	require.Equal(t, "ip-1", opErr.RegistrationID)

	eligibility, err := mints.Evaluate(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, entities.EligibilityRegistering, eligibility.State)

	result, err := mints.RetryOrphan(context.Background(), commands.RetryMintCommand{EntryID: 0, RegistrationID: opErr.RegistrationID})
	require.NoError(t, err)
	assert.True(t, result.Resumed)
	assert.Equal(t, entities.EligibilityMinted, result.State)
	assert.Equal(t, 1, module.Store.RegistrationCalls())
}

func TestMintAfterRefusedSaveDoesNotRegisterAgain(t *testing.T) {
	module := storeModule(t, refusingSaves, contestEntry(0, 3))
	module.Store.FailMints(errors.New("nonce too low"))
	mints := module.Handler.Mints

	_, err := mints.Mint(context.Background(), commands.MintCommand{EntryID: 0})
	require.Error(t, err)

	result, err := mints.Mint(context.Background(), commands.MintCommand{EntryID: 0})
	require.NoError(t, err)
	assert.True(t, result.Resumed)
	assert.Equal(t, "ip-1", result.RegistrationID)
	assert.Equal(t, 1, module.Store.RegistrationCalls())
}

func TestRetryOrphanAdoptsCallerRegistrationWithoutRecord(t *testing.T) {
	module := newModule(t, contestEntry(0, 3), contestEntry(1, 1))
	mints := module.Handler.Mints

	result, err := mints.RetryOrphan(context.Background(), commands.RetryMintCommand{EntryID: 0, RegistrationID: "ip-external"})
	require.NoError(t, err)
	assert.Equal(t, entities.EligibilityMinted, result.State)
	assert.Equal(t, "ip-external", result.RegistrationID)
	assert.Equal(t, 0, module.Store.RegistrationCalls())

	attempt, found, err := module.Store.GetMintAttempt(context.Background(), 0)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entities.MintAttemptMinted, attempt.Status)

	_, err = mints.RetryOrphan(context.Background(), commands.RetryMintCommand{EntryID: 1, RegistrationID: "ip-external"})
	assert.ErrorIs(t, err, domainerrors.ErrInsufficientVotes)
	assert.Equal(t, 1, module.Store.MintCalls())
}

func TestMintWithoutSigningKeyCallsNothing(t *testing.T) {
	module := storeModule(t, func(deps *contestservice.Dependencies) {
		deps.Minter = nil
	}, contestEntry(0, 3))
	mints := module.Handler.Mints

	_, err := mints.Mint(context.Background(), commands.MintCommand{EntryID: 0})
	assert.ErrorIs(t, err, domainerrors.ErrSigningNotConfigured)
	assert.ErrorIs(t, err, faults.ErrPreconditionFailed)

	_, err = mints.RetryOrphan(context.Background(), commands.RetryMintCommand{EntryID: 0, RegistrationID: "ip-1"})
	assert.ErrorIs(t, err, domainerrors.ErrSigningNotConfigured)
	assert.Equal(t, 0, module.Store.RegistrationCalls())
	assert.Equal(t, 0, module.Store.MintCalls())
}
