package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	application "artix/contexts/meme-contest/contest-service/application"
	"artix/contexts/meme-contest/contest-service/application/queries"
	"artix/contexts/meme-contest/contest-service/domain/entities"
	domainerrors "artix/contexts/meme-contest/contest-service/domain/errors"
	"artix/contexts/meme-contest/contest-service/ports"
	"artix/internal/shared/faults"

	"github.com/ethereum/go-ethereum/common"
)

const (
	voteConfirmedEventType     = "contest.vote.confirmed"
	defaultConfirmationTimeout = 60 * time.Second
)

type VoteCommand struct {
	EntryID uint64
	Viewer  common.Address
}

type VoteResult struct {
	EntryID       uint64
	Viewer        common.Address
	VoteCost      *big.Int
	TxHash        common.Hash
	Receipt       *entities.TxReceipt
	Confirmation  entities.ConfirmationState
	Outcome       entities.VoteOutcome
	RankingTxHash common.Hash
	RankingError  string
	Entry         entities.Entry
	Eligibility   *entities.Eligibility
}

type VoteUseCase struct {
	Catalog             *queries.EntryCatalog
	Ledger              ports.Ledger
	Wallet              ports.Wallet
	Watcher             ports.TxWatcher
	Eligibility         MintUseCase
	Publisher           ports.EventPublisher
	IDGenerator         ports.IDGenerator
	Clock               ports.Clock
	Network             entities.Network
	ConfirmationTimeout time.Duration
	RankingPoints       uint64
	Logger              *slog.Logger
}

// Vote runs the paid vote workflow in this order:
// 1) preconditions: signing session, active entry, no prior or pending vote
// 2) wallet network check, switching or adding the network when needed
// 3) fresh vote cost read and submission
// 4) bounded confirmation wait, reconciling against the ledger on timeout
// 5) ranking credit (failure degrades, never rolls back)
// 6) entry refresh and mint eligibility evaluation.
func (uc VoteUseCase) Vote(ctx context.Context, cmd VoteCommand) (VoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.Viewer == (common.Address{}) {
		return VoteResult{}, domainerrors.ErrInvalidViewer
	}
	if uc.Wallet == nil {
		return VoteResult{}, domainerrors.ErrSigningNotConfigured
	}

	logger.Info("vote started",
		"event", "contest_vote_started",
		"module", "meme-contest/contest-service",
		"layer", "application",
		"entry_id", cmd.EntryID,
		"viewer", cmd.Viewer.Hex(),
	)

	if err := uc.Wallet.Session(ctx, cmd.Viewer); err != nil {
		return VoteResult{}, err
	}

	entry, err := uc.Catalog.RefreshEntry(ctx, cmd.EntryID)
	if err != nil {
		return VoteResult{}, err
	}
	if !entry.IsActive {
		return VoteResult{}, domainerrors.ErrEntryInactive
	}
	if pending, ok := uc.Catalog.PendingVote(cmd.EntryID, cmd.Viewer); ok {
		logger.Warn("vote rejected while previous vote awaits confirmation",
			"event", "contest_vote_pending_rejected",
			"module", "meme-contest/contest-service",
			"layer", "application",
			"entry_id", cmd.EntryID,
			"viewer", cmd.Viewer.Hex(),
			"tx_hash", pending.TxHash.Hex(),
		)
		return VoteResult{}, domainerrors.ErrVotePending
	}
	voted, err := uc.Ledger.HasVoted(ctx, cmd.EntryID, cmd.Viewer)
	if err != nil {
		return VoteResult{}, fmt.Errorf("%w: has voted: %w", domainerrors.ErrLedgerUnavailable, err)
	}
	if voted {
		return VoteResult{}, domainerrors.ErrAlreadyVoted
	}

	if err := uc.ensureNetwork(ctx); err != nil {
		return VoteResult{}, uc.failure(logger, cmd, "network", common.Hash{}, err, nil)
	}

	cfg, err := uc.Catalog.VotingConfiguration(ctx, true)
	if err != nil {
		return VoteResult{}, uc.failure(logger, cmd, "vote_cost", common.Hash{}, err, nil)
	}

	txHash, err := uc.Wallet.SendVote(ctx, cmd.Viewer, cmd.EntryID, cfg.VoteCost)
	if err != nil {
		return VoteResult{}, uc.failure(logger, cmd, "submit", common.Hash{}, err, nil)
	}
	uc.Catalog.MarkPending(entities.PendingVote{
		EntryID:     cmd.EntryID,
		Viewer:      cmd.Viewer,
		TxHash:      txHash,
		SubmittedAt: uc.now(),
	})

	result := VoteResult{
		EntryID:  cmd.EntryID,
		Viewer:   cmd.Viewer,
		VoteCost: cfg.VoteCost,
		TxHash:   txHash,
		Entry:    entry,
	}

	state, receipt, err := uc.awaitConfirmation(ctx, txHash)
	if err != nil {
		// The caller went away; the transaction may still land and is
		// reconciled on the next read.
		result.Confirmation = entities.ConfirmationPending
		result.Outcome = entities.VoteOutcomePending
		return result, uc.failure(logger, cmd, "confirm", txHash, err, nil)
	}
	if state == entities.ConfirmationTimedOut {
		state = uc.reconcile(ctx, cmd)
	}
	result.Confirmation = state
	result.Receipt = receipt

	switch state {
	case entities.ConfirmationReverted:
		uc.Catalog.ClearPending(cmd.EntryID, cmd.Viewer)
		return result, uc.failure(logger, cmd, "confirm", txHash, domainerrors.ErrVoteReverted, nil)
	case entities.ConfirmationPending:
		result.Outcome = entities.VoteOutcomePending
		return result, uc.failure(logger, cmd, "confirm", txHash, domainerrors.ErrConfirmationTimeout, nil)
	case entities.ConfirmationReconciled:
		result.Outcome = entities.VoteOutcomeReconciled
	default:
		result.Outcome = entities.VoteOutcomeConfirmed
	}
	uc.Catalog.ClearPending(cmd.EntryID, cmd.Viewer)

	rankingHash, err := uc.creditRanking(ctx, cmd.Viewer)
	result.RankingTxHash = rankingHash
	if err != nil {
		result.Outcome = entities.VoteOutcomeConfirmedDegraded
		result.RankingError = err.Error()
		logger.Warn("ranking update failed after confirmed vote",
			"event", "contest_vote_ranking_failed",
			"module", "meme-contest/contest-service",
			"layer", "application",
			"entry_id", cmd.EntryID,
			"viewer", cmd.Viewer.Hex(),
			"tx_hash", txHash.Hex(),
			"error", err.Error(),
		)
	}

	fresh, err := uc.Catalog.RefreshEntry(ctx, cmd.EntryID)
	if err != nil {
		logger.Warn("entry refresh after vote failed",
			"event", "contest_vote_refresh_failed",
			"module", "meme-contest/contest-service",
			"layer", "application",
			"entry_id", cmd.EntryID,
			"error", err.Error(),
		)
	} else {
		fresh.HasVoted = true
		result.Entry = fresh
		eligibility, err := uc.Eligibility.EvaluateEntry(ctx, fresh)
		if err != nil {
			logger.Warn("eligibility evaluation after vote failed",
				"event", "contest_vote_eligibility_failed",
				"module", "meme-contest/contest-service",
				"layer", "application",
				"entry_id", cmd.EntryID,
				"error", err.Error(),
			)
		} else {
			result.Eligibility = &eligibility
		}
	}

	publish(ctx, uc.Publisher, uc.IDGenerator, uc.now(), logger, voteConfirmedEventType, cmd.EntryID, map[string]any{
		"entry_id": cmd.EntryID,
		"viewer":   cmd.Viewer.Hex(),
		"tx_hash":  txHash.Hex(),
		"outcome":  string(result.Outcome),
	})

	logger.Info("vote completed",
		"event", "contest_vote_completed",
		"module", "meme-contest/contest-service",
		"layer", "application",
		"entry_id", cmd.EntryID,
		"viewer", cmd.Viewer.Hex(),
		"tx_hash", txHash.Hex(),
		"outcome", string(result.Outcome),
		"vote_count", result.Entry.VoteCount,
	)
	return result, nil
}

// ensureNetwork switches the wallet to the contest network, adding the
// network first when the wallet does not know it.
func (uc VoteUseCase) ensureNetwork(ctx context.Context) error {
	network := uc.network()
	current, err := uc.Wallet.ChainID(ctx)
	if err != nil {
		return err
	}
	if current == network.ChainID {
		return nil
	}

	err = uc.Wallet.SwitchNetwork(ctx, network.ChainID)
	if err == nil {
		return nil
	}
	if errors.Is(err, faults.ErrUserRejected) {
		return err
	}
	if !errors.Is(err, domainerrors.ErrNetworkUnknown) {
		return fmt.Errorf("%w: %w", domainerrors.ErrNetworkSwitchFailed, err)
	}
	if err := uc.Wallet.AddNetwork(ctx, network); err != nil {
		return fmt.Errorf("%w: add %s: %w", domainerrors.ErrNetworkSwitchFailed, network.Name, err)
	}
	if err := uc.Wallet.SwitchNetwork(ctx, network.ChainID); err != nil {
		return fmt.Errorf("%w: %w", domainerrors.ErrNetworkSwitchFailed, err)
	}
	return nil
}

// awaitConfirmation returns an error only when the caller's own context ends.
// A wait that hits the confirmation bound, or a watcher failure, is reported
// as timed out so the outcome is re-checked against the ledger.
func (uc VoteUseCase) awaitConfirmation(ctx context.Context, txHash common.Hash) (entities.ConfirmationState, *entities.TxReceipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, uc.confirmationTimeout())
	defer cancel()

	receipt, err := uc.Watcher.WaitForReceipt(waitCtx, txHash)
	if err == nil {
		if receipt.Status == entities.TxStatusReverted {
			return entities.ConfirmationReverted, &receipt, nil
		}
		return entities.ConfirmationConfirmed, &receipt, nil
	}
	if ctx.Err() != nil {
		return entities.ConfirmationSubmitted, nil, ctx.Err()
	}

	application.ResolveLogger(uc.Logger).Warn("vote confirmation not observed",
		"event", "contest_vote_confirmation_timed_out",
		"module", "meme-contest/contest-service",
		"layer", "application",
		"tx_hash", txHash.Hex(),
		"timeout", uc.confirmationTimeout().String(),
		"error", err.Error(),
	)
	return entities.ConfirmationTimedOut, nil, nil
}

func (uc VoteUseCase) reconcile(ctx context.Context, cmd VoteCommand) entities.ConfirmationState {
	voted, err := uc.Ledger.HasVoted(ctx, cmd.EntryID, cmd.Viewer)
	if err == nil && voted {
		return entities.ConfirmationReconciled
	}
	return entities.ConfirmationPending
}

func (uc VoteUseCase) creditRanking(ctx context.Context, viewer common.Address) (common.Hash, error) {
	points := uc.RankingPoints
	if points == 0 {
		points = 1
	}
	txHash, err := uc.Wallet.SendRankingUpdate(ctx, viewer, points)
	if err != nil {
		return common.Hash{}, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, uc.confirmationTimeout())
	defer cancel()
	receipt, err := uc.Watcher.WaitForReceipt(waitCtx, txHash)
	if err != nil {
		return txHash, err
	}
	if receipt.Status == entities.TxStatusReverted {
		return txHash, errors.New("ranking update reverted")
	}
	return txHash, nil
}

func (uc VoteUseCase) failure(logger *slog.Logger, cmd VoteCommand, stage string, txHash common.Hash, kind error, cause error) error {
	opErr := &faults.OperationError{
		Op:      "vote",
		EntryID: cmd.EntryID,
		Stage:   stage,
		Kind:    kind,
		Err:     cause,
	}
	if txHash != (common.Hash{}) {
		opErr.TxHash = txHash.Hex()
	}
	logger.Error("vote failed",
		"event", "contest_vote_failed",
		"module", "meme-contest/contest-service",
		"layer", "application",
		"entry_id", cmd.EntryID,
		"viewer", cmd.Viewer.Hex(),
		"stage", stage,
		"tx_hash", opErr.TxHash,
		"error", opErr.Error(),
	)
	return opErr
}

func (uc VoteUseCase) network() entities.Network {
	if uc.Network.ChainID == 0 {
		return entities.BaseSepolia()
	}
	return uc.Network
}

func (uc VoteUseCase) confirmationTimeout() time.Duration {
	if uc.ConfirmationTimeout <= 0 {
		return defaultConfirmationTimeout
	}
	return uc.ConfirmationTimeout
}

func (uc VoteUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
