package workers

import (
	"context"
	"log/slog"
	"time"

	application "artix/contexts/agent-treasury/allowance-service/application"
	"artix/contexts/agent-treasury/allowance-service/application/commands"
	"artix/contexts/agent-treasury/allowance-service/ports"
	"artix/internal/shared/inflight"
)

const defaultIdleAfter = 24 * time.Hour

// DelegationEvictor drops delegations nobody has used for IdleAfter. A
// delegation whose delegate has a spend in flight is left for the next run.
type DelegationEvictor struct {
	Delegations ports.DelegationStore
	Guard       *inflight.Guard
	Clock       ports.Clock
	IdleAfter   time.Duration
	BatchSize   int
	Logger      *slog.Logger
}

func (j DelegationEvictor) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	idleAfter := j.IdleAfter
	if idleAfter <= 0 {
		idleAfter = defaultIdleAfter
	}
	limit := j.BatchSize
	if limit <= 0 {
		limit = 100
	}
	now := time.Now().UTC()
	if j.Clock != nil {
		now = j.Clock.Now().UTC()
	}

	idle, err := j.Delegations.ListIdleDelegations(ctx, now.Add(-idleAfter), limit)
	if err != nil {
		return err
	}
	evicted := 0
	for _, delegation := range idle {
		if j.guard().Held(commands.SpendKey(delegation.Delegate)) {
			continue
		}
		if err := j.Delegations.DeleteDelegation(ctx, delegation.Account); err != nil {
			logger.Error("delegation eviction failed",
				"event", "allowance_delegation_evict_failed",
				"module", "agent-treasury/allowance-service",
				"layer", "worker",
				"account", delegation.Account.Hex(),
				"error", err.Error(),
			)
			return err
		}
		evicted++
	}
	if evicted > 0 {
		logger.Info("idle delegations evicted",
			"event", "allowance_delegation_evict_completed",
			"module", "agent-treasury/allowance-service",
			"layer", "worker",
			"evicted", evicted,
		)
	}
	return nil
}

func (j DelegationEvictor) guard() *inflight.Guard {
	if j.Guard == nil {
		return commands.DefaultSpendGuard()
	}
	return j.Guard
}
