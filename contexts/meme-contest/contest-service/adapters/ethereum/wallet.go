package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"artix/contexts/meme-contest/contest-service/domain/entities"
	domainerrors "artix/contexts/meme-contest/contest-service/domain/errors"
	"artix/internal/platform/chain"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet is a server-held signing provider. It signs for exactly one
// address, so a session exists only for that viewer.
type Wallet struct {
	key            *ecdsa.PrivateKey
	address        common.Address
	contestAddress common.Address
	rankingAddress common.Address

	mu       sync.Mutex
	client   *chain.Client
	networks map[uint64]entities.Network
}

func NewWallet(client *chain.Client, key *ecdsa.PrivateKey, contestAddress common.Address, rankingAddress common.Address) *Wallet {
	networks := make(map[uint64]entities.Network)
	if client.ChainID != nil {
		networks[client.ChainID.Uint64()] = entities.Network{ChainID: client.ChainID.Uint64(), RPCURL: client.RPCURL}
	}
	return &Wallet{
		key:            key,
		address:        crypto.PubkeyToAddress(key.PublicKey),
		contestAddress: contestAddress,
		rankingAddress: rankingAddress,
		client:         client,
		networks:       networks,
	}
}

func (w *Wallet) Address() common.Address {
	return w.address
}

func (w *Wallet) Session(_ context.Context, viewer common.Address) error {
	if viewer != w.address {
		return domainerrors.ErrNoSigningSession
	}
	return nil
}

func (w *Wallet) ChainID(_ context.Context) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.client.ChainID.Uint64(), nil
}

// SwitchNetwork redials the RPC endpoint registered for chainID.
func (w *Wallet) SwitchNetwork(ctx context.Context, chainID uint64) error {
	w.mu.Lock()
	network, ok := w.networks[chainID]
	current := w.client
	w.mu.Unlock()
	if !ok {
		return domainerrors.ErrNetworkUnknown
	}
	if current.ChainID.Uint64() == chainID {
		return nil
	}

	next, err := chain.Dial(ctx, network.RPCURL, chainID)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.client = next
	w.mu.Unlock()
	current.Close()
	return nil
}

func (w *Wallet) AddNetwork(_ context.Context, network entities.Network) error {
	if network.ChainID == 0 || strings.TrimSpace(network.RPCURL) == "" {
		return fmt.Errorf("network %q needs a chain id and rpc url", network.Name)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.networks[network.ChainID] = network
	return nil
}

func (w *Wallet) SendVote(ctx context.Context, viewer common.Address, entryID uint64, value *big.Int) (common.Hash, error) {
	if err := w.Session(ctx, viewer); err != nil {
		return common.Hash{}, err
	}
	client := w.currentClient()
	opts, err := chain.Transactor(ctx, w.key, client.ChainID)
	if err != nil {
		return common.Hash{}, err
	}
	opts.Value = value

	contest := bind.NewBoundContract(w.contestAddress, contestABI, client, client, client)
	tx, err := contest.Transact(opts, "voteMeme", new(big.Int).SetUint64(entryID))
	if err != nil {
		return common.Hash{}, fmt.Errorf("submit vote: %w", err)
	}
	return tx.Hash(), nil
}

func (w *Wallet) SendRankingUpdate(ctx context.Context, viewer common.Address, points uint64) (common.Hash, error) {
	if w.rankingAddress == (common.Address{}) {
		return common.Hash{}, fmt.Errorf("ranking contract is not configured")
	}
	client := w.currentClient()
	opts, err := chain.Transactor(ctx, w.key, client.ChainID)
	if err != nil {
		return common.Hash{}, err
	}
	ranking := bind.NewBoundContract(w.rankingAddress, rankingABI, client, client, client)
	tx, err := ranking.Transact(opts, "updateRanking", viewer, new(big.Int).SetUint64(points), false)
	if err != nil {
		return common.Hash{}, fmt.Errorf("submit ranking update: %w", err)
	}
	return tx.Hash(), nil
}

func (w *Wallet) currentClient() *chain.Client {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.client
}
