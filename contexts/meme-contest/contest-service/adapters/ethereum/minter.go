package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"artix/contexts/meme-contest/contest-service/domain/entities"
	"artix/internal/platform/chain"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Minter calls mintNFT with the operator key and waits for the receipt.
type Minter struct {
	client      *chain.Client
	key         *ecdsa.PrivateKey
	contest     *bind.BoundContract
	waitTimeout time.Duration
}

func NewMinter(client *chain.Client, key *ecdsa.PrivateKey, contestAddress common.Address, waitTimeout time.Duration) *Minter {
	return &Minter{
		client:      client,
		key:         key,
		contest:     bind.NewBoundContract(contestAddress, contestABI, client, client, client),
		waitTimeout: waitTimeout,
	}
}

func (m *Minter) MintEntry(ctx context.Context, entryID uint64, registrationID string) (entities.TxReceipt, error) {
	opts, err := chain.Transactor(ctx, m.key, m.client.ChainID)
	if err != nil {
		return entities.TxReceipt{}, err
	}
	tx, err := m.contest.Transact(opts, "mintNFT", new(big.Int).SetUint64(entryID), registrationID)
	if err != nil {
		return entities.TxReceipt{}, fmt.Errorf("submit mint: %w", err)
	}
	receipt, err := chain.WaitMined(ctx, m.client, tx, m.waitTimeout)
	if err != nil {
		return entities.TxReceipt{TxHash: tx.Hash()}, fmt.Errorf("wait mint %s: %w", tx.Hash().Hex(), err)
	}
	return toReceipt(receipt), nil
}
