package entities

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type TxStatus string

const (
	TxStatusSucceeded TxStatus = "succeeded"
	TxStatusReverted  TxStatus = "reverted"
)

type TxReceipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	Status      TxStatus
	GasUsed     uint64
}

// ConfirmationState tracks a submitted transaction until its outcome is known.
//
//	submitted -> confirmed | reverted | timed_out
//	timed_out -> reconciled | pending
type ConfirmationState string

const (
	ConfirmationSubmitted  ConfirmationState = "submitted"
	ConfirmationConfirmed  ConfirmationState = "confirmed"
	ConfirmationReverted   ConfirmationState = "reverted"
	ConfirmationTimedOut   ConfirmationState = "timed_out"
	ConfirmationReconciled ConfirmationState = "reconciled"
	ConfirmationPending    ConfirmationState = "pending"
)

var confirmationTransitions = map[ConfirmationState][]ConfirmationState{
	ConfirmationSubmitted: {ConfirmationConfirmed, ConfirmationReverted, ConfirmationTimedOut},
	ConfirmationTimedOut:  {ConfirmationReconciled, ConfirmationPending},
}

func (s ConfirmationState) CanTransitionTo(next ConfirmationState) bool {
	for _, allowed := range confirmationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Landed reports whether the transaction is known to have taken effect.
func (s ConfirmationState) Landed() bool {
	return s == ConfirmationConfirmed || s == ConfirmationReconciled
}

type VoteOutcome string

const (
	VoteOutcomeConfirmed         VoteOutcome = "confirmed"
	VoteOutcomeConfirmedDegraded VoteOutcome = "confirmed_degraded"
	VoteOutcomeReconciled        VoteOutcome = "reconciled"
	VoteOutcomePending           VoteOutcome = "pending"
)

// PendingVote is a submitted vote whose confirmation was not observed.
type PendingVote struct {
	EntryID     uint64
	Viewer      common.Address
	TxHash      common.Hash
	SubmittedAt time.Time
}
