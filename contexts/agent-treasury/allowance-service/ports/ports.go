package ports

import (
	"context"
	"time"

	"artix/contexts/agent-treasury/allowance-service/domain/entities"
	"artix/internal/shared/events"

	"github.com/ethereum/go-ethereum/common"
)

// AllowanceModule is the principal Safe's allowance module. SimulateTransfer
// and ExecuteTransfer map module reverts to domainerrors.ErrAllowanceExceeded,
// domainerrors.ErrStaleNonce or domainerrors.ErrSignatureRejected.
type AllowanceModule interface {
	GetTokenAllowance(ctx context.Context, principal, delegate, token common.Address) (entities.Allowance, error)
	GenerateTransferHash(ctx context.Context, req entities.TransferRequest) (common.Hash, error)
	SimulateTransfer(ctx context.Context, req entities.TransferRequest, signature []byte) error
	ExecuteTransfer(ctx context.Context, req entities.TransferRequest, signature []byte) (common.Hash, error)
}

// DelegateSigner holds the delegate key. Signatures use V in {27, 28}.
type DelegateSigner interface {
	Address() common.Address
	SignHash(hash common.Hash) ([]byte, error)
}

type DelegationStore interface {
	GetDelegation(ctx context.Context, account common.Address) (entities.Delegation, bool, error)
	SaveDelegation(ctx context.Context, delegation entities.Delegation) error
	TouchDelegation(ctx context.Context, account common.Address, at time.Time) error
	ListIdleDelegations(ctx context.Context, before time.Time, limit int) ([]entities.Delegation, error)
	DeleteDelegation(ctx context.Context, account common.Address) error
}

type Clock interface {
	Now() time.Time
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event events.Envelope) error
}
