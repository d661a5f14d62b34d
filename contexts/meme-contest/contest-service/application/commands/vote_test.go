package commands_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	contestservice "artix/contexts/meme-contest/contest-service"
	"artix/contexts/meme-contest/contest-service/adapters/memory"
	"artix/contexts/meme-contest/contest-service/application/commands"
	"artix/contexts/meme-contest/contest-service/domain/entities"
	domainerrors "artix/contexts/meme-contest/contest-service/domain/errors"
	"artix/internal/shared/faults"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	creator = common.HexToAddress("0x1000000000000000000000000000000000000001")
	viewer  = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

func contestEntry(id, votes uint64) entities.Entry {
	return entities.Entry{
		ID:          id,
		Creator:     creator,
		ContentHash: "bafkcontest",
		Title:       "Gas fees",
		Description: "when the mint costs more than the jpeg",
		VoteCount:   votes,
		IsActive:    true,
	}
}

func newModule(t *testing.T, seed ...entities.Entry) contestservice.Module {
	t.Helper()
	module := contestservice.NewInMemoryModule(seed, nil)
	module.Store.ConnectViewer(viewer)
	return module
}

func TestVoteConfirmedUpdatesEntryAndRanking(t *testing.T) {
	module := newModule(t, contestEntry(0, 0))

	result, err := module.Handler.Votes.Vote(context.Background(), commands.VoteCommand{EntryID: 0, Viewer: viewer})
	require.NoError(t, err)

	assert.Equal(t, entities.VoteOutcomeConfirmed, result.Outcome)
	assert.Equal(t, entities.ConfirmationConfirmed, result.Confirmation)
	assert.Equal(t, uint64(1), result.Entry.VoteCount)
	assert.True(t, result.Entry.HasVoted)
	assert.Equal(t, uint64(1), module.Store.RankingPoints(viewer))
	require.NotNil(t, result.Eligibility)
	assert.Equal(t, entities.EligibilityVoting, result.Eligibility.State)
	assert.Equal(t, uint64(2), result.Eligibility.VotesNeeded)
	assert.Equal(t, "100000000000000", result.VoteCost.String())
}

func TestSingleVoteMakesEntryEligibleAtThresholdOne(t *testing.T) {
	module := newModule(t, contestEntry(0, 0))
	module.Store.SetVotingConfiguration(entities.VotingConfiguration{
		MaxVotesPerUser: 1,
		MinVotesForWin:  1,
		VoteCost:        big.NewInt(10_000_000_000_000_000),
	})

	result, err := module.Handler.Votes.Vote(context.Background(), commands.VoteCommand{EntryID: 0, Viewer: viewer})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Entry.VoteCount)
	assert.Equal(t, "10000000000000000", result.VoteCost.String())
	require.NotNil(t, result.Eligibility)
	assert.Equal(t, entities.EligibilityEligible, result.Eligibility.State)
}

func TestVoteReachingThresholdReportsEligible(t *testing.T) {
	module := newModule(t, contestEntry(0, 2))

	result, err := module.Handler.Votes.Vote(context.Background(), commands.VoteCommand{EntryID: 0, Viewer: viewer})
	require.NoError(t, err)
	require.NotNil(t, result.Eligibility)
	assert.Equal(t, entities.EligibilityEligible, result.Eligibility.State)
}

func TestVoteRejectsSecondVote(t *testing.T) {
	module := newModule(t, contestEntry(0, 0))
	module.Store.RecordVote(0, viewer)

	_, err := module.Handler.Votes.Vote(context.Background(), commands.VoteCommand{EntryID: 0, Viewer: viewer})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyVoted)
	assert.ErrorIs(t, err, faults.ErrPreconditionFailed)
}

func TestVoteRejectsInactiveEntry(t *testing.T) {
	inactive := contestEntry(0, 0)
	inactive.IsActive = false
	module := newModule(t, inactive)

	_, err := module.Handler.Votes.Vote(context.Background(), commands.VoteCommand{EntryID: 0, Viewer: viewer})
	assert.ErrorIs(t, err, domainerrors.ErrEntryInactive)
}

func TestVoteRequiresSigningSession(t *testing.T) {
	module := contestservice.NewInMemoryModule([]entities.Entry{contestEntry(0, 0)}, nil)

	_, err := module.Handler.Votes.Vote(context.Background(), commands.VoteCommand{EntryID: 0, Viewer: viewer})
	assert.ErrorIs(t, err, domainerrors.ErrNoSigningSession)
}

func TestVoteRejectsZeroViewer(t *testing.T) {
	module := newModule(t, contestEntry(0, 0))

	_, err := module.Handler.Votes.Vote(context.Background(), commands.VoteCommand{EntryID: 0})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidViewer)
}

func TestVoteTimeoutReconciledFromLedger(t *testing.T) {
	module := newModule(t, contestEntry(0, 0))
	module.Store.SetConfirmationMode(memory.ConfirmNever)
	votes := module.Handler.Votes
	votes.ConfirmationTimeout = 50 * time.Millisecond

	result, err := votes.Vote(context.Background(), commands.VoteCommand{EntryID: 0, Viewer: viewer})
	require.NoError(t, err)
	assert.Equal(t, entities.VoteOutcomeReconciled, result.Outcome)
	assert.Equal(t, uint64(1), result.Entry.VoteCount)
	_, pending := module.Catalog.PendingVote(0, viewer)
	assert.False(t, pending)
}

func TestVoteTimeoutLeavesPendingAndBlocksRetry(t *testing.T) {
	module := newModule(t, contestEntry(0, 0))
	module.Store.SetConfirmationMode(memory.ConfirmNever)
	module.Store.SetVotesLand(false)
	votes := module.Handler.Votes
	votes.ConfirmationTimeout = 50 * time.Millisecond

	result, err := votes.Vote(context.Background(), commands.VoteCommand{EntryID: 0, Viewer: viewer})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrConfirmationTimeout)
	assert.ErrorIs(t, err, faults.ErrConfirmationTimeout)
	assert.Equal(t, entities.VoteOutcomePending, result.Outcome)

	var opErr *faults.OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, result.TxHash.Hex(), opErr.TxHash)

	_, err = votes.Vote(context.Background(), commands.VoteCommand{EntryID: 0, Viewer: viewer})
	assert.ErrorIs(t, err, domainerrors.ErrVotePending)
	assert.Equal(t, uint64(0), module.Store.RankingPoints(viewer))
}

func TestVoteRevertedClearsPending(t *testing.T) {
	module := newModule(t, contestEntry(0, 0))
	module.Store.SetConfirmationMode(memory.ConfirmRevert)

	_, err := module.Handler.Votes.Vote(context.Background(), commands.VoteCommand{EntryID: 0, Viewer: viewer})
	assert.ErrorIs(t, err, domainerrors.ErrVoteReverted)
	assert.ErrorIs(t, err, faults.ErrPreconditionFailed)
	assert.True(t, faults.IsTerminal(err))
	_, pending := module.Catalog.PendingVote(0, viewer)
	assert.False(t, pending)
	assert.Equal(t, uint64(0), module.Store.RankingPoints(viewer))
}

func TestVoteAddsUnknownNetworkBeforeSwitching(t *testing.T) {
	module := newModule(t, contestEntry(0, 0))
	module.Store.UseChain(1, false)
	require.False(t, module.Store.KnowsNetwork(entities.BaseSepolia().ChainID))

	result, err := module.Handler.Votes.Vote(context.Background(), commands.VoteCommand{EntryID: 0, Viewer: viewer})
	require.NoError(t, err)
	assert.Equal(t, entities.VoteOutcomeConfirmed, result.Outcome)
	assert.True(t, module.Store.KnowsNetwork(entities.BaseSepolia().ChainID))
}

func TestVoteNetworkSwitchRejectedByWallet(t *testing.T) {
	module := newModule(t, contestEntry(0, 0))
	module.Store.UseChain(1, true)
	module.Store.RejectNetworkSwitch(true)

	_, err := module.Handler.Votes.Vote(context.Background(), commands.VoteCommand{EntryID: 0, Viewer: viewer})
	assert.ErrorIs(t, err, faults.ErrUserRejected)
	assert.Equal(t, 0, countVotes(t, module))
}

func TestVoteRankingFailureDegradesOutcome(t *testing.T) {
	module := newModule(t, contestEntry(0, 0))
	module.Store.FailRanking(errors.New("ranking contract paused"))

	result, err := module.Handler.Votes.Vote(context.Background(), commands.VoteCommand{EntryID: 0, Viewer: viewer})
	require.NoError(t, err)
	assert.Equal(t, entities.VoteOutcomeConfirmedDegraded, result.Outcome)
	assert.Contains(t, result.RankingError, "paused")
	assert.Equal(t, uint64(1), result.Entry.VoteCount)
}

func countVotes(t *testing.T, module contestservice.Module) int {
	t.Helper()
	entry, err := module.Catalog.RefreshEntry(context.Background(), 0)
	require.NoError(t, err)
	return int(entry.VoteCount)
}

func TestVoteWithoutSigningKeyCallsNothing(t *testing.T) {
	module := storeModule(t, func(deps *contestservice.Dependencies) {
		deps.Wallet = nil
	}, contestEntry(0, 0))

	_, err := module.Handler.Votes.Vote(context.Background(), commands.VoteCommand{EntryID: 0, Viewer: viewer})
	assert.ErrorIs(t, err, domainerrors.ErrSigningNotConfigured)
	assert.Equal(t, 0, module.Store.LedgerReads())
	_, pending := module.Catalog.PendingVote(0, viewer)
	assert.False(t, pending)
}
