package workers

import (
	"context"
	"log/slog"

	application "artix/contexts/meme-contest/auction-service/application"
	"artix/contexts/meme-contest/auction-service/application/commands"
)

// AuctionSettler ends active auctions whose end time has passed.
type AuctionSettler struct {
	Auctions  commands.AuctionUseCase
	BatchSize int
	Logger    *slog.Logger
}

func (j AuctionSettler) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	limit := j.BatchSize
	if limit <= 0 {
		limit = 50
	}
	ended, err := j.Auctions.SettleExpired(ctx, limit)
	if err != nil {
		logger.Error("auction settlement sweep failed",
			"event", "auction_settle_sweep_failed",
			"module", "meme-contest/auction-service",
			"layer", "worker",
			"ended", ended,
			"error", err.Error(),
		)
		return err
	}
	if ended > 0 {
		logger.Info("expired auctions settled",
			"event", "auction_settle_sweep_completed",
			"module", "meme-contest/auction-service",
			"layer", "worker",
			"ended", ended,
		)
	}
	return nil
}
