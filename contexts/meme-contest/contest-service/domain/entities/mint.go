package entities

import "time"

type EligibilityState string

const (
	EligibilityVoting      EligibilityState = "voting"
	EligibilityEligible    EligibilityState = "eligible"
	EligibilityRegistering EligibilityState = "registering"
	EligibilityMinted      EligibilityState = "minted"
)

type Eligibility struct {
	EntryID        uint64
	State          EligibilityState
	VoteCount      uint64
	MinVotesForWin uint64
	VotesNeeded    uint64
	RegistrationID string
}

type MintAttemptStatus string

const (
	MintAttemptRegistered MintAttemptStatus = "registered"
	MintAttemptMintFailed MintAttemptStatus = "mint_failed"
	MintAttemptMinted     MintAttemptStatus = "minted"
)

// MintAttempt records a registration so that a failed mint can resume
// without registering the same content again.
type MintAttempt struct {
	EntryID            uint64
	RegistrationID     string
	RegistrationTxHash string
	Status             MintAttemptStatus
	Attempts           int
	LastError          string
	MintTxHash         string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Orphaned reports whether the registration exists without a completed mint.
func (a MintAttempt) Orphaned() bool {
	return a.RegistrationID != "" && a.Status != MintAttemptMinted
}

type Registration struct {
	IPID   string
	TxHash string
}

type RegistrationRequest struct {
	EntryID         uint64
	Title           string
	Description     string
	Creator         string
	ImageURL        string
	ContentHash     string
	MetadataURI     string
	MetadataHash    string
	NFTMetadataURI  string
	NFTMetadataHash string
}
