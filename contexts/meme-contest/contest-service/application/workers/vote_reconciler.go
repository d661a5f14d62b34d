package workers

import (
	"context"
	"log/slog"
	"time"

	application "artix/contexts/meme-contest/contest-service/application"
	"artix/contexts/meme-contest/contest-service/application/queries"
	"artix/contexts/meme-contest/contest-service/ports"
)

// VoteReconciler settles votes whose confirmation was not observed. A pending
// vote that shows up on the ledger is cleared; one that never does is
// dropped after MaxAge so the viewer can vote again.
type VoteReconciler struct {
	Catalog *queries.EntryCatalog
	Ledger  ports.Ledger
	Clock   ports.Clock
	MaxAge  time.Duration
	Logger  *slog.Logger
}

func (j VoteReconciler) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	now := time.Now().UTC()
	if j.Clock != nil {
		now = j.Clock.Now().UTC()
	}
	maxAge := j.MaxAge
	if maxAge <= 0 {
		maxAge = 30 * time.Minute
	}

	reconciled, expired := 0, 0
	for _, vote := range j.Catalog.PendingVotes() {
		voted, err := j.Ledger.HasVoted(ctx, vote.EntryID, vote.Viewer)
		if err != nil {
			logger.Warn("pending vote check failed",
				"event", "contest_vote_reconcile_read_failed",
				"module", "meme-contest/contest-service",
				"layer", "worker",
				"entry_id", vote.EntryID,
				"tx_hash", vote.TxHash.Hex(),
				"error", err.Error(),
			)
			continue
		}
		switch {
		case voted:
			j.Catalog.ClearPending(vote.EntryID, vote.Viewer)
			if _, err := j.Catalog.RefreshEntry(ctx, vote.EntryID); err != nil {
				logger.Warn("entry refresh after reconcile failed",
					"event", "contest_vote_reconcile_refresh_failed",
					"module", "meme-contest/contest-service",
					"layer", "worker",
					"entry_id", vote.EntryID,
					"error", err.Error(),
				)
			}
			reconciled++
		case now.Sub(vote.SubmittedAt) >= maxAge:
			j.Catalog.ClearPending(vote.EntryID, vote.Viewer)
			expired++
		}
	}
	if reconciled > 0 || expired > 0 {
		logger.Info("pending vote sweep completed",
			"event", "contest_vote_reconcile_completed",
			"module", "meme-contest/contest-service",
			"layer", "worker",
			"reconciled_count", reconciled,
			"expired_count", expired,
		)
	}
	return nil
}
