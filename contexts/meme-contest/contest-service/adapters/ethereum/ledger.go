package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"artix/contexts/meme-contest/contest-service/domain/entities"
	"artix/internal/platform/chain"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const receiptPollInterval = 2 * time.Second

// Ledger reads the contest contract and watches transaction receipts.
type Ledger struct {
	client       *chain.Client
	contest      *bind.BoundContract
	readAttempts uint64
}

func NewLedger(client *chain.Client, contestAddress common.Address, readAttempts uint64) *Ledger {
	return &Ledger{
		client:       client,
		contest:      bind.NewBoundContract(contestAddress, contestABI, client, client, client),
		readAttempts: readAttempts,
	}
}

func (l *Ledger) GetEntry(ctx context.Context, entryID uint64) (entities.Entry, error) {
	out, err := l.call(ctx, "memes", new(big.Int).SetUint64(entryID))
	if err != nil {
		return entities.Entry{}, err
	}
	if len(out) != 10 {
		return entities.Entry{}, fmt.Errorf("memes(%d): unexpected output length %d", entryID, len(out))
	}
	return entities.Entry{
		ID:             entryID,
		Creator:        *abi.ConvertType(out[0], new(common.Address)).(*common.Address),
		ContentHash:    *abi.ConvertType(out[1], new(string)).(*string),
		Title:          *abi.ConvertType(out[2], new(string)).(*string),
		Description:    *abi.ConvertType(out[3], new(string)).(*string),
		SocialLink:     *abi.ConvertType(out[4], new(string)).(*string),
		NetworkID:      bigToUint64(out[5]),
		VoteCount:      bigToUint64(out[6]),
		SubmissionTime: time.Unix(int64(bigToUint64(out[7])), 0).UTC(),
		IsActive:       *abi.ConvertType(out[8], new(bool)).(*bool),
		HasBeenMinted:  *abi.ConvertType(out[9], new(bool)).(*bool),
	}, nil
}

func (l *Ledger) VotingConfiguration(ctx context.Context) (entities.VotingConfiguration, error) {
	out, err := l.call(ctx, "votingConfiguration")
	if err != nil {
		return entities.VotingConfiguration{}, err
	}
	if len(out) != 4 {
		return entities.VotingConfiguration{}, fmt.Errorf("votingConfiguration: unexpected output length %d", len(out))
	}
	voteCost := *abi.ConvertType(out[3], new(*big.Int)).(**big.Int)
	if voteCost == nil {
		voteCost = new(big.Int)
	}
	return entities.VotingConfiguration{
		MaxVotesPerUser: bigToUint64(out[0]),
		ContestDuration: time.Duration(bigToUint64(out[1])) * time.Second,
		MinVotesForWin:  bigToUint64(out[2]),
		VoteCost:        new(big.Int).Set(voteCost),
	}, nil
}

func (l *Ledger) HasVoted(ctx context.Context, entryID uint64, viewer common.Address) (bool, error) {
	out, err := l.call(ctx, "hasVoted", new(big.Int).SetUint64(entryID), viewer)
	if err != nil {
		return false, err
	}
	if len(out) != 1 {
		return false, fmt.Errorf("hasVoted: unexpected output length %d", len(out))
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// WaitForReceipt polls until the receipt exists or ctx ends.
func (l *Ledger) WaitForReceipt(ctx context.Context, txHash common.Hash) (entities.TxReceipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()
	var lastErr error
	for {
		receipt, err := l.client.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return toReceipt(receipt), nil
		}
		// Anything other than NotFound is an RPC hiccup; keep polling.
		lastErr = err
		if errors.Is(err, goethereum.NotFound) {
			lastErr = nil
		}
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return entities.TxReceipt{}, fmt.Errorf("%w: last rpc error: %w", ctx.Err(), lastErr)
			}
			return entities.TxReceipt{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Ledger) call(ctx context.Context, method string, params ...any) ([]any, error) {
	return chain.RetryRead(ctx, l.readAttempts, func(ctx context.Context) ([]any, error) {
		var out []any
		err := l.contest.Call(&bind.CallOpts{Context: ctx}, &out, method, params...)
		if isRevert(err) {
			return nil, chain.Permanent(err)
		}
		return out, err
	})
}

func toReceipt(receipt *types.Receipt) entities.TxReceipt {
	status := entities.TxStatusSucceeded
	if receipt.Status != types.ReceiptStatusSuccessful {
		status = entities.TxStatusReverted
	}
	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}
	return entities.TxReceipt{
		TxHash:      receipt.TxHash,
		BlockNumber: block,
		Status:      status,
		GasUsed:     receipt.GasUsed,
	}
}

func bigToUint64(value any) uint64 {
	converted := *abi.ConvertType(value, new(*big.Int)).(**big.Int)
	if converted == nil || !converted.IsUint64() {
		return 0
	}
	return converted.Uint64()
}
