// Package chain holds EVM connectivity shared by the ledger adapters:
// dialing, key handling, bounded receipt waits and read retries.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sethvargo/go-retry"
)

// ErrChainMismatch is returned when the RPC endpoint serves a different chain.
var ErrChainMismatch = errors.New("rpc endpoint chain id mismatch")

type Client struct {
	*ethclient.Client
	ChainID *big.Int
	RPCURL  string
}

// Dial connects to rpcURL and verifies it serves expectedChainID. A zero
// expectedChainID skips the check.
func Dial(ctx context.Context, rpcURL string, expectedChainID uint64) (*Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := ethclient.DialContext(dialCtx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", rpcURL, err)
	}
	chainID, err := client.ChainID(dialCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	if expectedChainID != 0 && chainID.Uint64() != expectedChainID {
		client.Close()
		return nil, fmt.Errorf("%w: want %d, got %s", ErrChainMismatch, expectedChainID, chainID)
	}
	return &Client{Client: client, ChainID: chainID, RPCURL: rpcURL}, nil
}

// ParsePrivateKey accepts a hex key with or without 0x prefix.
func ParsePrivateKey(raw string) (*ecdsa.PrivateKey, error) {
	value := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if value == "" {
		return nil, errors.New("private key is empty")
	}
	key, err := crypto.HexToECDSA(value)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

func Transactor(ctx context.Context, key *ecdsa.PrivateKey, chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// WaitMined blocks until tx is mined or timeout elapses. On timeout the
// returned error wraps context.DeadlineExceeded.
func WaitMined(ctx context.Context, backend bind.DeployBackend, tx *types.Transaction, timeout time.Duration) (*types.Receipt, error) {
	if timeout <= 0 {
		timeout = time.Minute
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return bind.WaitMined(waitCtx, backend, tx)
}

// RetryRead runs fn with bounded exponential backoff. Errors are retried
// unless the context is done; a contract-level revert should be returned
// through Permanent to stop early.
func RetryRead[T any](ctx context.Context, attempts uint64, fn func(context.Context) (T, error)) (T, error) {
	if attempts == 0 {
		attempts = 3
	}
	backoff := retry.WithMaxRetries(attempts, retry.WithCappedDuration(2*time.Second, retry.NewExponential(200*time.Millisecond)))

	var out T
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		value, err := fn(ctx)
		if err == nil {
			out = value
			return nil
		}
		var permanent permanentError
		if errors.As(err, &permanent) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		var permanent permanentError
		if errors.As(err, &permanent) {
			return out, permanent.err
		}
		return out, err
	}
	return out, nil
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent stops RetryRead from retrying err.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}
