package errors

import (
	"errors"
	"fmt"

	"artix/internal/shared/faults"
)

var (
	ErrInvalidEntryID      = errors.New("invalid entry id")
	ErrInvalidViewer       = errors.New("viewer address is required")
	ErrInvalidMemeRequest  = errors.New("invalid meme request")
	ErrEntryNotFound       = errors.New("entry not found")
	ErrContentNotFound     = errors.New("content not found")
	ErrNoSigningSession    = errors.New("viewer has no active signing session")
	ErrNetworkUnknown      = errors.New("network unknown to wallet")
	ErrNetworkSwitchFailed = errors.New("could not switch wallet network")

	ErrEntryInactive        = fmt.Errorf("entry is not active: %w", faults.ErrPreconditionFailed)
	ErrAlreadyVoted         = fmt.Errorf("viewer already voted for entry: %w", faults.ErrPreconditionFailed)
	ErrVotePending          = fmt.Errorf("a vote by this viewer is awaiting confirmation: %w", faults.ErrPreconditionFailed)
	ErrInsufficientVotes    = fmt.Errorf("entry has insufficient votes: %w", faults.ErrPreconditionFailed)
	ErrAlreadyMinted        = fmt.Errorf("entry already minted: %w", faults.ErrPreconditionFailed)
	ErrMintInProgress       = fmt.Errorf("mint already in progress for entry: %w", faults.ErrPreconditionFailed)
	ErrRegistrationMismatch = fmt.Errorf("registration id does not match recorded attempt: %w", faults.ErrPreconditionFailed)
	ErrNoOrphanedAttempt    = fmt.Errorf("no orphaned registration for entry: %w", faults.ErrPreconditionFailed)
	ErrSigningNotConfigured = fmt.Errorf("no signing key configured for this deployment: %w", faults.ErrPreconditionFailed)
	ErrVoteReverted         = fmt.Errorf("vote transaction reverted: %w", faults.ErrPreconditionFailed)

	ErrUserRejected        = fmt.Errorf("wallet declined the request: %w", faults.ErrUserRejected)
	ErrConfirmationTimeout = fmt.Errorf("vote confirmation not observed in time: %w", faults.ErrConfirmationTimeout)
	ErrRegistrationFailed  = errors.New("ip registration failed")
	ErrMintFailed          = fmt.Errorf("mint failed after registration: %w", faults.ErrSagaPartialFailure)
	ErrLedgerUnavailable   = fmt.Errorf("ledger unavailable: %w", faults.ErrTransientNetwork)
	ErrStorageUnavailable  = fmt.Errorf("content storage unavailable: %w", faults.ErrTransientNetwork)
	ErrDependencyFailed    = errors.New("external dependency failed")
)
