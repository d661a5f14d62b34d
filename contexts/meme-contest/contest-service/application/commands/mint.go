package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	application "artix/contexts/meme-contest/contest-service/application"
	"artix/contexts/meme-contest/contest-service/application/queries"
	"artix/contexts/meme-contest/contest-service/domain/entities"
	domainerrors "artix/contexts/meme-contest/contest-service/domain/errors"
	"artix/contexts/meme-contest/contest-service/domain/services"
	"artix/contexts/meme-contest/contest-service/ports"
	"artix/internal/shared/faults"
	"artix/internal/shared/inflight"
)

const entryMintedEventType = "contest.entry.minted"

type MintCommand struct {
	EntryID uint64
}

type RetryMintCommand struct {
	EntryID        uint64
	RegistrationID string
}

type MintResult struct {
	EntryID            uint64
	State              entities.EligibilityState
	RegistrationID     string
	RegistrationTxHash string
	MintTxHash         string
	Resumed            bool
}

// MintUseCase drives an eligible entry through registration and minting.
// The two steps are a saga: a registration that is not followed by a
// successful mint is recorded and resumed without registering again.
type MintUseCase struct {
	Catalog     *queries.EntryCatalog
	Attempts    ports.MintAttemptRepository
	Registry    ports.IPRegistry
	Minter      ports.Minter
	Storage     ports.ContentStorage
	Publisher   ports.EventPublisher
	IDGenerator ports.IDGenerator
	Guard       *inflight.Guard
	Unsaved     *AttemptJournal
	Clock       ports.Clock
	Logger      *slog.Logger
}

// Evaluate reads the entry fresh and reports its mint lifecycle state.
func (uc MintUseCase) Evaluate(ctx context.Context, entryID uint64) (entities.Eligibility, error) {
	entry, err := uc.Catalog.RefreshEntry(ctx, entryID)
	if err != nil {
		return entities.Eligibility{}, err
	}
	return uc.EvaluateEntry(ctx, entry)
}

// EvaluateEntry evaluates an entry the caller has just read from the ledger.
func (uc MintUseCase) EvaluateEntry(ctx context.Context, entry entities.Entry) (entities.Eligibility, error) {
	cfg, err := uc.Catalog.VotingConfiguration(ctx, false)
	if err != nil {
		return entities.Eligibility{}, err
	}
	var attempt *entities.MintAttempt
	if recorded, found, err := uc.lookupAttempt(ctx, entry.ID); err != nil {
		return entities.Eligibility{}, err
	} else if found {
		attempt = &recorded
	}
	return services.EvaluateEligibility(entry, cfg, attempt, uc.guard().Held(mintKey(entry.ID))), nil
}

// Mint registers and mints an eligible entry. Only one mint per entry runs at
// a time in this process; a concurrent caller gets ErrMintInProgress and
// nothing is called on its behalf.
func (uc MintUseCase) Mint(ctx context.Context, cmd MintCommand) (MintResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if uc.Minter == nil {
		return MintResult{EntryID: cmd.EntryID}, domainerrors.ErrSigningNotConfigured
	}
	release, ok := uc.guard().TryAcquire(mintKey(cmd.EntryID))
	if !ok {
		logger.Info("mint skipped, already in flight",
			"event", "contest_mint_in_flight",
			"module", "meme-contest/contest-service",
			"layer", "application",
			"entry_id", cmd.EntryID,
		)
		return MintResult{EntryID: cmd.EntryID, State: entities.EligibilityRegistering}, domainerrors.ErrMintInProgress
	}
	defer release()

	logger.Info("mint started",
		"event", "contest_mint_started",
		"module", "meme-contest/contest-service",
		"layer", "application",
		"entry_id", cmd.EntryID,
	)

	entry, err := uc.checkMintable(ctx, cmd.EntryID)
	if err != nil {
		return MintResult{EntryID: cmd.EntryID}, err
	}

	attempt, found, err := uc.lookupAttempt(ctx, cmd.EntryID)
	if err != nil {
		return MintResult{EntryID: cmd.EntryID}, err
	}
	if found && attempt.Status == entities.MintAttemptMinted {
		return MintResult{EntryID: cmd.EntryID, State: entities.EligibilityMinted, RegistrationID: attempt.RegistrationID}, domainerrors.ErrAlreadyMinted
	}

	resumed := found && attempt.Orphaned()
	if !resumed {
		attempt, err = uc.register(ctx, logger, entry)
		if err != nil {
			return MintResult{EntryID: cmd.EntryID, State: entities.EligibilityEligible}, err
		}
	} else {
		logger.Info("resuming mint with recorded registration",
			"event", "contest_mint_resumed",
			"module", "meme-contest/contest-service",
			"layer", "application",
			"entry_id", cmd.EntryID,
			"registration_id", attempt.RegistrationID,
			"attempts", attempt.Attempts,
		)
	}
	return uc.mint(ctx, logger, attempt, resumed)
}

// RetryOrphan resumes a recorded registration. registrationID must match the
// recorded one so a stale retry cannot mint under a different registration.
// With no record at all, a caller-supplied registrationID is adopted once the
// entry is still mintable.
func (uc MintUseCase) RetryOrphan(ctx context.Context, cmd RetryMintCommand) (MintResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if uc.Minter == nil {
		return MintResult{EntryID: cmd.EntryID}, domainerrors.ErrSigningNotConfigured
	}
	release, ok := uc.guard().TryAcquire(mintKey(cmd.EntryID))
	if !ok {
		return MintResult{EntryID: cmd.EntryID, State: entities.EligibilityRegistering}, domainerrors.ErrMintInProgress
	}
	defer release()

	attempt, found, err := uc.lookupAttempt(ctx, cmd.EntryID)
	if err != nil {
		return MintResult{EntryID: cmd.EntryID}, err
	}
	if !found && cmd.RegistrationID != "" {
		return uc.adoptRegistration(ctx, logger, cmd)
	}
	if !found || !attempt.Orphaned() {
		return MintResult{EntryID: cmd.EntryID}, domainerrors.ErrNoOrphanedAttempt
	}
	if cmd.RegistrationID != "" && cmd.RegistrationID != attempt.RegistrationID {
		return MintResult{EntryID: cmd.EntryID}, domainerrors.ErrRegistrationMismatch
	}

	entry, err := uc.Catalog.RefreshEntry(ctx, cmd.EntryID)
	if err != nil {
		return MintResult{EntryID: cmd.EntryID}, err
	}
	if entry.HasBeenMinted {
		// The earlier mint landed after its error was observed.
		attempt.Status = entities.MintAttemptMinted
		attempt.UpdatedAt = uc.now()
		uc.saveAttempt(ctx, logger, attempt)
		return MintResult{EntryID: cmd.EntryID, State: entities.EligibilityMinted, RegistrationID: attempt.RegistrationID}, domainerrors.ErrAlreadyMinted
	}
	return uc.mint(ctx, logger, attempt, true)
}

func (uc MintUseCase) adoptRegistration(ctx context.Context, logger *slog.Logger, cmd RetryMintCommand) (MintResult, error) {
	if _, err := uc.checkMintable(ctx, cmd.EntryID); err != nil {
		return MintResult{EntryID: cmd.EntryID}, err
	}
	now := uc.now()
	attempt := entities.MintAttempt{
		EntryID:        cmd.EntryID,
		RegistrationID: cmd.RegistrationID,
		Status:         entities.MintAttemptRegistered,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	uc.saveAttempt(ctx, logger, attempt)
	logger.Info("resuming mint with caller registration",
		"event", "contest_mint_registration_adopted",
		"module", "meme-contest/contest-service",
		"layer", "application",
		"entry_id", cmd.EntryID,
		"registration_id", cmd.RegistrationID,
	)
	return uc.mint(ctx, logger, attempt, true)
}

func (uc MintUseCase) checkMintable(ctx context.Context, entryID uint64) (entities.Entry, error) {
	entry, err := uc.Catalog.RefreshEntry(ctx, entryID)
	if err != nil {
		return entities.Entry{}, err
	}
	if entry.HasBeenMinted {
		return entities.Entry{}, domainerrors.ErrAlreadyMinted
	}
	cfg, err := uc.Catalog.VotingConfiguration(ctx, false)
	if err != nil {
		return entities.Entry{}, err
	}
	if entry.VoteCount < cfg.MinVotesForWin {
		return entities.Entry{}, fmt.Errorf("%w: %d of %d", domainerrors.ErrInsufficientVotes, entry.VoteCount, cfg.MinVotesForWin)
	}
	return entry, nil
}

func (uc MintUseCase) register(ctx context.Context, logger *slog.Logger, entry entities.Entry) (entities.MintAttempt, error) {
	content := entities.MemeContent{
		Title:       entry.Title,
		Description: entry.Description,
		Creator:     entry.Creator.Hex(),
		ImageURL:    uc.Storage.GatewayURL(entry.ContentHash),
		Tags:        []string{"meme", "contest"},
		Category:    "meme",
		AIGenerated: true,
	}
	req, err := prepareRegistration(ctx, uc.Storage, content)
	if err != nil {
		return entities.MintAttempt{}, uc.registrationFailure(logger, entry.ID, err)
	}
	req.EntryID = entry.ID
	req.ContentHash = entry.ContentHash

	registration, err := uc.Registry.Register(ctx, req)
	if err != nil {
		return entities.MintAttempt{}, uc.registrationFailure(logger, entry.ID, err)
	}

	now := uc.now()
	attempt := entities.MintAttempt{
		EntryID:            entry.ID,
		RegistrationID:     registration.IPID,
		RegistrationTxHash: registration.TxHash,
		Status:             entities.MintAttemptRegistered,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	uc.saveAttempt(ctx, logger, attempt)

	logger.Info("entry registered",
		"event", "contest_mint_registered",
		"module", "meme-contest/contest-service",
		"layer", "application",
		"entry_id", entry.ID,
		"registration_id", registration.IPID,
		"tx_hash", registration.TxHash,
	)
	return attempt, nil
}

func (uc MintUseCase) mint(ctx context.Context, logger *slog.Logger, attempt entities.MintAttempt, resumed bool) (MintResult, error) {
	result := MintResult{
		EntryID:            attempt.EntryID,
		RegistrationID:     attempt.RegistrationID,
		RegistrationTxHash: attempt.RegistrationTxHash,
		Resumed:            resumed,
	}

	receipt, err := uc.Minter.MintEntry(ctx, attempt.EntryID, attempt.RegistrationID)
	if err == nil && receipt.Status == entities.TxStatusReverted {
		err = errors.New("mint transaction reverted")
	}
	attempt.Attempts++
	attempt.UpdatedAt = uc.now()
	if err != nil {
		attempt.Status = entities.MintAttemptMintFailed
		attempt.LastError = err.Error()
		uc.saveAttempt(ctx, logger, attempt)

		opErr := &faults.OperationError{
			Op:             "mint",
			EntryID:        attempt.EntryID,
			Stage:          "mint",
			RegistrationID: attempt.RegistrationID,
			Kind:           domainerrors.ErrMintFailed,
			Err:            err,
		}
		logger.Error("mint failed after registration",
			"event", "contest_mint_failed",
			"module", "meme-contest/contest-service",
			"layer", "application",
			"entry_id", attempt.EntryID,
			"registration_id", attempt.RegistrationID,
			"attempts", attempt.Attempts,
			"error", err.Error(),
		)
		result.State = entities.EligibilityRegistering
		return result, opErr
	}

	attempt.Status = entities.MintAttemptMinted
	attempt.LastError = ""
	attempt.MintTxHash = receipt.TxHash.Hex()
	uc.saveAttempt(ctx, logger, attempt)

	if _, err := uc.Catalog.RefreshEntry(ctx, attempt.EntryID); err != nil {
		logger.Warn("entry refresh after mint failed",
			"event", "contest_mint_refresh_failed",
			"module", "meme-contest/contest-service",
			"layer", "application",
			"entry_id", attempt.EntryID,
			"error", err.Error(),
		)
	}

	publish(ctx, uc.Publisher, uc.IDGenerator, uc.now(), logger, entryMintedEventType, attempt.EntryID, map[string]any{
		"entry_id":        attempt.EntryID,
		"registration_id": attempt.RegistrationID,
		"mint_tx_hash":    attempt.MintTxHash,
		"resumed":         resumed,
	})

	logger.Info("entry minted",
		"event", "contest_mint_completed",
		"module", "meme-contest/contest-service",
		"layer", "application",
		"entry_id", attempt.EntryID,
		"registration_id", attempt.RegistrationID,
		"tx_hash", attempt.MintTxHash,
		"resumed", resumed,
	)
	result.State = entities.EligibilityMinted
	result.MintTxHash = attempt.MintTxHash
	return result, nil
}

func (uc MintUseCase) registrationFailure(logger *slog.Logger, entryID uint64, err error) error {
	logger.Error("ip registration failed",
		"event", "contest_mint_registration_failed",
		"module", "meme-contest/contest-service",
		"layer", "application",
		"entry_id", entryID,
		"error", err.Error(),
	)
	return &faults.OperationError{
		Op:      "mint",
		EntryID: entryID,
		Stage:   "register",
		Kind:    domainerrors.ErrRegistrationFailed,
		Err:     err,
	}
}

// saveAttempt does not fail the saga: the registration already happened and
// the caller still needs the registration id in the result. A record the
// repository refused stays in the journal until a later save succeeds.
func (uc MintUseCase) saveAttempt(ctx context.Context, logger *slog.Logger, attempt entities.MintAttempt) {
	if err := uc.Attempts.SaveMintAttempt(ctx, attempt); err != nil {
		uc.unsaved().remember(attempt)
		logger.Error("mint attempt record failed, kept in process",
			"event", "contest_mint_attempt_save_failed",
			"module", "meme-contest/contest-service",
			"layer", "application",
			"entry_id", attempt.EntryID,
			"registration_id", attempt.RegistrationID,
			"status", string(attempt.Status),
			"error", err.Error(),
		)
		return
	}
	uc.unsaved().forget(attempt.EntryID)
}

// lookupAttempt prefers a journaled record: it is newer than anything the
// repository holds for the entry.
func (uc MintUseCase) lookupAttempt(ctx context.Context, entryID uint64) (entities.MintAttempt, bool, error) {
	if attempt, ok := uc.unsaved().lookup(entryID); ok {
		return attempt, true, nil
	}
	return uc.Attempts.GetMintAttempt(ctx, entryID)
}

// UnsavedOrphans lists journaled orphans for the retry sweep.
func (uc MintUseCase) UnsavedOrphans(maxAttempts int) []entities.MintAttempt {
	return uc.unsaved().Orphans(maxAttempts)
}

func (uc MintUseCase) unsaved() *AttemptJournal {
	if uc.Unsaved == nil {
		return fallbackJournal
	}
	return uc.Unsaved
}

func (uc MintUseCase) guard() *inflight.Guard {
	if uc.Guard == nil {
		return fallbackGuard
	}
	return uc.Guard
}

func (uc MintUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

var (
	fallbackGuard   = inflight.NewGuard()
	fallbackJournal = NewAttemptJournal()
)

func mintKey(entryID uint64) string {
	return "mint:" + strconv.FormatUint(entryID, 10)
}
