package workers

import (
	"context"
	"errors"
	"log/slog"

	application "artix/contexts/meme-contest/contest-service/application"
	"artix/contexts/meme-contest/contest-service/application/commands"
	domainerrors "artix/contexts/meme-contest/contest-service/domain/errors"
	"artix/contexts/meme-contest/contest-service/ports"
)

// MintRetrier resumes orphaned registrations whose mint step failed. Orphans
// tried MaxAttempts times are left for manual reconciliation and never crowd
// newer ones out of a batch.
type MintRetrier struct {
	Attempts    ports.MintAttemptRepository
	Mint        commands.MintUseCase
	BatchSize   int
	MaxAttempts int
	Logger      *slog.Logger
}

func (j MintRetrier) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	limit := j.BatchSize
	if limit <= 0 {
		limit = 20
	}
	maxAttempts := j.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	// Records the repository refused come first; they exist nowhere else.
	orphans := j.Mint.UnsavedOrphans(maxAttempts)
	listed, listErr := j.Attempts.ListOrphanedAttempts(ctx, limit, maxAttempts)
	if listErr != nil {
		logger.Error("orphaned mint sweep failed",
			"event", "contest_mint_retry_sweep_failed",
			"module", "meme-contest/contest-service",
			"layer", "worker",
			"unsaved_count", len(orphans),
			"error", listErr.Error(),
		)
		if len(orphans) == 0 {
			return listErr
		}
	}
	seen := make(map[uint64]struct{}, len(orphans))
	for _, attempt := range orphans {
		seen[attempt.EntryID] = struct{}{}
	}
	for _, attempt := range listed {
		if _, ok := seen[attempt.EntryID]; !ok {
			orphans = append(orphans, attempt)
		}
	}

	resumed := 0
	for _, attempt := range orphans {
		_, err := j.Mint.RetryOrphan(ctx, commands.RetryMintCommand{
			EntryID:        attempt.EntryID,
			RegistrationID: attempt.RegistrationID,
		})
		switch {
		case err == nil:
			resumed++
		case errors.Is(err, domainerrors.ErrMintInProgress),
			errors.Is(err, domainerrors.ErrAlreadyMinted),
			errors.Is(err, domainerrors.ErrNoOrphanedAttempt):
		default:
			logger.Warn("orphaned mint retry failed",
				"event", "contest_mint_retry_failed",
				"module", "meme-contest/contest-service",
				"layer", "worker",
				"entry_id", attempt.EntryID,
				"registration_id", attempt.RegistrationID,
				"attempts", attempt.Attempts+1,
				"error", err.Error(),
			)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	if resumed > 0 {
		logger.Info("orphaned mint sweep completed",
			"event", "contest_mint_retry_sweep_completed",
			"module", "meme-contest/contest-service",
			"layer", "worker",
			"resumed_count", resumed,
		)
	}
	return listErr
}
