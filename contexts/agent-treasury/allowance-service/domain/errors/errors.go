package errors

import (
	"errors"
	"fmt"

	"artix/internal/shared/faults"
)

var (
	ErrInvalidSpend        = errors.New("invalid spend request")
	ErrInvalidDelegation   = errors.New("invalid delegation request")
	ErrDelegationNotFound  = errors.New("no delegation registered for account")
	ErrAllowanceExceeded   = fmt.Errorf("amount exceeds remaining allowance: %w", faults.ErrPreconditionFailed)
	ErrStaleNonce          = fmt.Errorf("allowance nonce changed before execution: %w", faults.ErrPreconditionFailed)
	ErrSignatureRejected   = fmt.Errorf("allowance module rejected the delegate signature: %w", faults.ErrPreconditionFailed)
	ErrModuleUnavailable   = fmt.Errorf("allowance module unavailable: %w", faults.ErrTransientNetwork)
	ErrTransferUnconfirmed = fmt.Errorf("allowance transfer not confirmed: %w", faults.ErrConfirmationTimeout)
)
