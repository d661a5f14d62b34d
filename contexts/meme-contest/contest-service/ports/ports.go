package ports

import (
	"context"
	"math/big"
	"time"

	"artix/contexts/meme-contest/contest-service/domain/entities"
	"artix/internal/shared/events"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger is the read side of the contest contract. GetEntry returns an empty
// entry (see Entry.IsEmpty) for an unused slot rather than an error.
type Ledger interface {
	GetEntry(ctx context.Context, entryID uint64) (entities.Entry, error)
	VotingConfiguration(ctx context.Context) (entities.VotingConfiguration, error)
	HasVoted(ctx context.Context, entryID uint64, viewer common.Address) (bool, error)
}

// Wallet is the signing provider that submits transactions for a viewer.
// SwitchNetwork returns domainerrors.ErrNetworkUnknown when the chain must be
// added first.
type Wallet interface {
	Session(ctx context.Context, viewer common.Address) error
	ChainID(ctx context.Context) (uint64, error)
	SwitchNetwork(ctx context.Context, chainID uint64) error
	AddNetwork(ctx context.Context, network entities.Network) error
	SendVote(ctx context.Context, viewer common.Address, entryID uint64, value *big.Int) (common.Hash, error)
	SendRankingUpdate(ctx context.Context, viewer common.Address, points uint64) (common.Hash, error)
}

// TxWatcher waits for a receipt. It blocks until ctx is done; callers bound
// the wait with a deadline.
type TxWatcher interface {
	WaitForReceipt(ctx context.Context, txHash common.Hash) (entities.TxReceipt, error)
}

// Minter flips the ledger's minted flag for an entry.
type Minter interface {
	MintEntry(ctx context.Context, entryID uint64, registrationID string) (entities.TxReceipt, error)
}

type IPRegistry interface {
	Register(ctx context.Context, req entities.RegistrationRequest) (entities.Registration, error)
}

// ContentStorage is a content-addressed blob store. Fetch must fall back to a
// secondary gateway when the primary one cannot serve the id.
type ContentStorage interface {
	Upload(ctx context.Context, data []byte, mimeType string) (entities.StoredObject, error)
	StoreMetadata(ctx context.Context, document []byte) (entities.StoredObject, error)
	Fetch(ctx context.Context, id string) ([]byte, string, error)
	GatewayURL(id string) string
}

type ImageGenerator interface {
	EnhancePrompt(ctx context.Context, prompt string) (string, error)
	GenerateImage(ctx context.Context, prompt string, style entities.MemeStyle) (entities.GeneratedImage, error)
}

// MintAttemptRepository persists orphan records keyed by entry id.
type MintAttemptRepository interface {
	GetMintAttempt(ctx context.Context, entryID uint64) (entities.MintAttempt, bool, error)
	SaveMintAttempt(ctx context.Context, attempt entities.MintAttempt) error
	// ListOrphanedAttempts returns the oldest orphans that have been tried
	// fewer than maxAttempts times. maxAttempts <= 0 disables the cap.
	ListOrphanedAttempts(ctx context.Context, limit int, maxAttempts int) ([]entities.MintAttempt, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event events.Envelope) error
}
