package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	application "artix/contexts/agent-treasury/allowance-service/application"
	"artix/contexts/agent-treasury/allowance-service/domain/entities"
	domainerrors "artix/contexts/agent-treasury/allowance-service/domain/errors"
	"artix/contexts/agent-treasury/allowance-service/domain/services"
	"artix/contexts/agent-treasury/allowance-service/ports"
	"artix/internal/shared/events"
	"artix/internal/shared/faults"
	"artix/internal/shared/inflight"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

const (
	allowanceSpentEventType       = "agent.allowance.spent"
	delegationRegisteredEventType = "agent.delegation.registered"
)

type SpendCommand struct {
	Account common.Address
	Amount  *big.Int
}

type RegisterDelegationCommand struct {
	Account   common.Address
	Principal common.Address
	Token     common.Address
}

// SpendUseCase executes allowance transfers for the delegate key. Guard must
// be shared by every SpendUseCase in the process; a nil Guard uses
// DefaultSpendGuard.
type SpendUseCase struct {
	Module      ports.AllowanceModule
	Signer      ports.DelegateSigner
	Delegations ports.DelegationStore
	Guard       *inflight.Guard
	Clock       ports.Clock
	Publisher   ports.EventPublisher
	Logger      *slog.Logger
}

var defaultSpendGuard = inflight.NewGuard()

// DefaultSpendGuard serializes spends for use cases built without a Guard.
func DefaultSpendGuard() *inflight.Guard {
	return defaultSpendGuard
}

// SpendKey is the in-flight key for spends by delegate.
func SpendKey(delegate common.Address) string {
	return "spend:" + delegate.Hex()
}

// RegisterDelegation records which Safe an account's agent spends from.
// Registering again replaces the principal and token.
func (uc SpendUseCase) RegisterDelegation(ctx context.Context, cmd RegisterDelegationCommand) (entities.Delegation, error) {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.Account == (common.Address{}) {
		return entities.Delegation{}, fmt.Errorf("%w: account is required", domainerrors.ErrInvalidDelegation)
	}
	if cmd.Principal == (common.Address{}) {
		return entities.Delegation{}, fmt.Errorf("%w: safe address is required", domainerrors.ErrInvalidDelegation)
	}

	now := uc.now()
	delegation := entities.Delegation{
		Account:   cmd.Account,
		Principal: cmd.Principal,
		Delegate:  uc.Signer.Address(),
		Token:     cmd.Token,
		CreatedAt: now,
		LastSeen:  now,
	}
	existing, found, err := uc.Delegations.GetDelegation(ctx, cmd.Account)
	if err != nil {
		return entities.Delegation{}, err
	}
	if found {
		delegation.CreatedAt = existing.CreatedAt
	}
	if err := uc.Delegations.SaveDelegation(ctx, delegation); err != nil {
		return entities.Delegation{}, err
	}

	logger.Info("delegation registered",
		"event", "allowance_delegation_registered",
		"module", "agent-treasury/allowance-service",
		"layer", "application",
		"account", delegation.Account.Hex(),
		"principal", delegation.Principal.Hex(),
		"delegate", delegation.Delegate.Hex(),
	)
	uc.publish(ctx, delegationRegisteredEventType, delegation.Delegate, map[string]any{
		"account":   delegation.Account.Hex(),
		"principal": delegation.Principal.Hex(),
		"token":     delegation.Token.Hex(),
	})
	return delegation, nil
}

// Spend transfers amount from the account's principal to the delegate.
// Spends by one delegate run one at a time. The allowance is checked before
// anything is signed, and a nonce that moved between read and simulation is
// re-read and retried once.
func (uc SpendUseCase) Spend(ctx context.Context, cmd SpendCommand) (entities.SpendReceipt, error) {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.Account == (common.Address{}) {
		return entities.SpendReceipt{}, fmt.Errorf("%w: account is required", domainerrors.ErrInvalidSpend)
	}
	if cmd.Amount == nil || cmd.Amount.Sign() <= 0 {
		return entities.SpendReceipt{}, fmt.Errorf("%w: amount must be positive", domainerrors.ErrInvalidSpend)
	}
	if cmd.Amount.Cmp(services.MaxUint96) > 0 {
		return entities.SpendReceipt{}, fmt.Errorf("%w: amount exceeds uint96", domainerrors.ErrInvalidSpend)
	}

	delegation, found, err := uc.Delegations.GetDelegation(ctx, cmd.Account)
	if err != nil {
		return entities.SpendReceipt{}, err
	}
	if !found {
		return entities.SpendReceipt{}, domainerrors.ErrDelegationNotFound
	}

	release, err := uc.guard().Acquire(ctx, SpendKey(delegation.Delegate))
	if err != nil {
		return entities.SpendReceipt{}, err
	}
	defer release()

	receipt, err := uc.attempt(ctx, delegation, cmd.Amount)
	if errors.Is(err, domainerrors.ErrStaleNonce) {
		logger.Warn("allowance nonce moved, retrying once",
			"event", "allowance_spend_stale_nonce",
			"module", "agent-treasury/allowance-service",
			"layer", "application",
			"delegate", delegation.Delegate.Hex(),
		)
		receipt, err = uc.attempt(ctx, delegation, cmd.Amount)
		receipt.Retried = true
	}
	if err != nil {
		logger.Error("allowance spend failed",
			"event", "allowance_spend_failed",
			"module", "agent-treasury/allowance-service",
			"layer", "application",
			"account", cmd.Account.Hex(),
			"delegate", delegation.Delegate.Hex(),
			"amount", cmd.Amount.String(),
			"terminal", faults.IsTerminal(err),
			"error", err.Error(),
		)
		return receipt, err
	}

	if err := uc.Delegations.TouchDelegation(ctx, cmd.Account, uc.now()); err != nil {
		logger.Warn("delegation touch failed",
			"event", "allowance_delegation_touch_failed",
			"module", "agent-treasury/allowance-service",
			"layer", "application",
			"account", cmd.Account.Hex(),
			"error", err.Error(),
		)
	}
	logger.Info("allowance spend executed",
		"event", "allowance_spend_executed",
		"module", "agent-treasury/allowance-service",
		"layer", "application",
		"delegate", delegation.Delegate.Hex(),
		"nonce", receipt.Nonce,
		"tx_hash", receipt.TxHash.Hex(),
	)
	uc.publish(ctx, allowanceSpentEventType, delegation.Delegate, map[string]any{
		"account":   cmd.Account.Hex(),
		"principal": delegation.Principal.Hex(),
		"amount":    cmd.Amount.String(),
		"nonce":     receipt.Nonce,
		"tx_hash":   receipt.TxHash.Hex(),
	})
	return receipt, nil
}

func (uc SpendUseCase) attempt(ctx context.Context, delegation entities.Delegation, amount *big.Int) (entities.SpendReceipt, error) {
	allowance, err := uc.Module.GetTokenAllowance(ctx, delegation.Principal, delegation.Delegate, delegation.Token)
	if err != nil {
		return entities.SpendReceipt{}, moduleError("read allowance", err)
	}
	remaining := allowance.RemainingAt(uc.now())
	if amount.Cmp(remaining) > 0 {
		return entities.SpendReceipt{}, fmt.Errorf("%w: requested %s, remaining %s", domainerrors.ErrAllowanceExceeded, amount, remaining)
	}

	req := entities.TransferRequest{
		Principal: delegation.Principal,
		Token:     delegation.Token,
		Recipient: delegation.Delegate,
		Amount:    new(big.Int).Set(amount),
		Payment:   new(big.Int),
		Nonce:     allowance.Nonce,
		Delegate:  delegation.Delegate,
	}
	receipt := entities.SpendReceipt{Nonce: req.Nonce, Amount: req.Amount}

	hash, err := uc.Module.GenerateTransferHash(ctx, req)
	if err != nil {
		return receipt, moduleError("transfer hash", err)
	}
	signature, err := uc.Signer.SignHash(hash)
	if err != nil {
		return receipt, fmt.Errorf("sign transfer: %w", err)
	}
	if err := uc.Module.SimulateTransfer(ctx, req, signature); err != nil {
		return receipt, moduleError("simulate transfer", err)
	}
	txHash, err := uc.Module.ExecuteTransfer(ctx, req, signature)
	receipt.TxHash = txHash
	if err != nil {
		return receipt, moduleError("execute transfer", err)
	}
	return receipt, nil
}

func (uc SpendUseCase) publish(ctx context.Context, eventType string, delegate common.Address, payload map[string]any) {
	if uc.Publisher == nil {
		return
	}
	err := uc.Publisher.Publish(ctx, events.TopicAllowance, events.Envelope{
		EventID:        uuid.NewString(),
		EventType:      eventType,
		SourceService:  "allowance-service",
		OccurredAtUTC:  uc.now().UTC(),
		EntityType:     "delegate",
		EntityID:       delegate.Hex(),
		PayloadVersion: 1,
		Payload:        payload,
	})
	if err != nil {
		application.ResolveLogger(uc.Logger).Warn("allowance event publish failed",
			"event", "allowance_event_publish_failed",
			"module", "agent-treasury/allowance-service",
			"layer", "application",
			"event_type", eventType,
			"error", err.Error(),
		)
	}
}

func (uc SpendUseCase) guard() *inflight.Guard {
	if uc.Guard == nil {
		return defaultSpendGuard
	}
	return uc.Guard
}

func (uc SpendUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

// moduleError keeps classified module errors and marks the rest transient.
func moduleError(step string, err error) error {
	if faults.IsTerminal(err) || errors.Is(err, faults.ErrConfirmationTimeout) {
		return fmt.Errorf("%s: %w", step, err)
	}
	return fmt.Errorf("%s: %w: %w", step, domainerrors.ErrModuleUnavailable, err)
}
