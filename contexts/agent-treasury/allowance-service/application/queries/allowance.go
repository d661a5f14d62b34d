package queries

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	application "artix/contexts/agent-treasury/allowance-service/application"
	"artix/contexts/agent-treasury/allowance-service/domain/entities"
	domainerrors "artix/contexts/agent-treasury/allowance-service/domain/errors"
	"artix/contexts/agent-treasury/allowance-service/ports"

	"github.com/ethereum/go-ethereum/common"
)

type AllowanceView struct {
	Delegation entities.Delegation
	Allowance  entities.Allowance
	Remaining  *big.Int
}

type AllowanceQueries struct {
	Module      ports.AllowanceModule
	Delegations ports.DelegationStore
	Clock       ports.Clock
	Logger      *slog.Logger
}

// GetAllowance reads the allowance for the account's delegation fresh from
// the module. Reading counts as activity for idle eviction.
func (q AllowanceQueries) GetAllowance(ctx context.Context, account common.Address) (AllowanceView, error) {
	logger := application.ResolveLogger(q.Logger)
	if account == (common.Address{}) {
		return AllowanceView{}, fmt.Errorf("%w: account is required", domainerrors.ErrInvalidDelegation)
	}
	delegation, found, err := q.Delegations.GetDelegation(ctx, account)
	if err != nil {
		return AllowanceView{}, err
	}
	if !found {
		return AllowanceView{}, domainerrors.ErrDelegationNotFound
	}

	allowance, err := q.Module.GetTokenAllowance(ctx, delegation.Principal, delegation.Delegate, delegation.Token)
	if err != nil {
		return AllowanceView{}, fmt.Errorf("%w: %w", domainerrors.ErrModuleUnavailable, err)
	}

	now := q.now()
	if err := q.Delegations.TouchDelegation(ctx, account, now); err != nil {
		logger.Warn("delegation touch failed",
			"event", "allowance_delegation_touch_failed",
			"module", "agent-treasury/allowance-service",
			"layer", "application",
			"account", account.Hex(),
			"error", err.Error(),
		)
	}
	return AllowanceView{
		Delegation: delegation,
		Allowance:  allowance,
		Remaining:  allowance.RemainingAt(now),
	}, nil
}

func (q AllowanceQueries) now() time.Time {
	if q.Clock == nil {
		return time.Now().UTC()
	}
	return q.Clock.Now().UTC()
}
