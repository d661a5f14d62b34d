package entities

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Entry is one contest submission as recorded on the ledger.
// HasVoted and VotePending are per-viewer enrichment and are never stored.
type Entry struct {
	ID             uint64
	Creator        common.Address
	ContentHash    string
	Title          string
	Description    string
	SocialLink     string
	NetworkID      uint64
	VoteCount      uint64
	SubmissionTime time.Time
	IsActive       bool
	HasBeenMinted  bool

	HasVoted    bool
	VotePending bool
}

// IsEmpty reports whether the ledger slot holds no submission.
func (e Entry) IsEmpty() bool {
	return e.Creator == (common.Address{}) || e.ContentHash == ""
}

// Merge folds a newer ledger read into a previously observed entry without
// letting the vote count go backwards or the minted flag revert.
func (e Entry) Merge(next Entry) Entry {
	merged := next
	if e.VoteCount > merged.VoteCount {
		merged.VoteCount = e.VoteCount
	}
	if e.HasBeenMinted {
		merged.HasBeenMinted = true
	}
	return merged
}

type VotingConfiguration struct {
	MaxVotesPerUser uint64
	ContestDuration time.Duration
	MinVotesForWin  uint64
	VoteCost        *big.Int
}

// Network describes the chain the signing provider must be connected to.
type Network struct {
	ChainID          uint64
	Name             string
	RPCURL           string
	ExplorerURL      string
	CurrencyName     string
	CurrencySymbol   string
	CurrencyDecimals uint8
}

func BaseSepolia() Network {
	return Network{
		ChainID:          84532,
		Name:             "Base Sepolia",
		RPCURL:           "https://sepolia.base.org",
		ExplorerURL:      "https://sepolia.basescan.org",
		CurrencyName:     "ETH",
		CurrencySymbol:   "ETH",
		CurrencyDecimals: 18,
	}
}
