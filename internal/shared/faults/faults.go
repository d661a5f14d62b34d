// Package faults holds the error taxonomy shared by every contest context.
//
// Service-level sentinels wrap one of the category errors below so callers can
// branch either on the precise condition or on the category.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransientNetwork marks retryable failures: ledger reads, storage fetches.
	ErrTransientNetwork = errors.New("transient network error")
	// ErrUserRejected marks a signing request declined by the wallet holder.
	ErrUserRejected = errors.New("user rejected request")
	// ErrPreconditionFailed marks terminal business-rule rejections.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrConfirmationTimeout marks an ambiguous outcome: the transaction may still land.
	ErrConfirmationTimeout = errors.New("confirmation timeout")
	// ErrSagaPartialFailure marks a saga whose first durable step succeeded and a later one did not.
	ErrSagaPartialFailure = errors.New("saga partial failure")
)

// OperationError carries the context needed for manual reconciliation of a
// failed write. It unwraps to both Kind and Err.
type OperationError struct {
	Op             string
	EntryID        uint64
	Stage          string
	TxHash         string
	RegistrationID string
	Kind           error
	Err            error
}

func (e *OperationError) Error() string {
	parts := []string{e.Op}
	if e.Stage != "" {
		parts = append(parts, "stage="+e.Stage)
	}
	parts = append(parts, fmt.Sprintf("entry=%d", e.EntryID))
	if e.TxHash != "" {
		parts = append(parts, "tx="+e.TxHash)
	}
	if e.RegistrationID != "" {
		parts = append(parts, "registration="+e.RegistrationID)
	}
	msg := strings.Join(parts, " ")
	switch {
	case e.Kind != nil && e.Err != nil:
		return msg + ": " + e.Kind.Error() + ": " + e.Err.Error()
	case e.Err != nil:
		return msg + ": " + e.Err.Error()
	case e.Kind != nil:
		return msg + ": " + e.Kind.Error()
	}
	return msg
}

func (e *OperationError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Transient wraps err so errors.Is(err, ErrTransientNetwork) holds.
func Transient(err error) error {
	if err == nil || errors.Is(err, ErrTransientNetwork) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransientNetwork, err)
}

// IsTerminal reports whether err must not be retried.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrUserRejected) || errors.Is(err, ErrPreconditionFailed)
}
