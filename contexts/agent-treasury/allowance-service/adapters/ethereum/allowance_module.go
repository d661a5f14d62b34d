package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"artix/contexts/agent-treasury/allowance-service/domain/entities"
	domainerrors "artix/contexts/agent-treasury/allowance-service/domain/errors"
	"artix/internal/platform/chain"
	"artix/internal/shared/faults"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const allowanceModuleABIJSON = `[
  {"type":"function","name":"getTokenAllowance","stateMutability":"view",
   "inputs":[{"name":"safe","type":"address"},{"name":"delegate","type":"address"},{"name":"token","type":"address"}],
   "outputs":[{"name":"","type":"uint256[5]"}]},
  {"type":"function","name":"generateTransferHash","stateMutability":"view",
   "inputs":[
     {"name":"safe","type":"address"},
     {"name":"token","type":"address"},
     {"name":"to","type":"address"},
     {"name":"amount","type":"uint96"},
     {"name":"paymentToken","type":"address"},
     {"name":"payment","type":"uint96"},
     {"name":"nonce","type":"uint16"}],
   "outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"executeAllowanceTransfer","stateMutability":"nonpayable",
   "inputs":[
     {"name":"safe","type":"address"},
     {"name":"token","type":"address"},
     {"name":"to","type":"address"},
     {"name":"amount","type":"uint96"},
     {"name":"paymentToken","type":"address"},
     {"name":"payment","type":"uint96"},
     {"name":"delegate","type":"address"},
     {"name":"signature","type":"bytes"}],
   "outputs":[]}
]`

var allowanceModuleABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(allowanceModuleABIJSON))
	if err != nil {
		panic(fmt.Sprintf("parse allowance module abi: %v", err))
	}
	return parsed
}()

// AllowanceModule talks to a deployed Safe allowance module. Transfers are
// submitted from the delegate key, which also pays gas.
type AllowanceModule struct {
	client       *chain.Client
	key          *ecdsa.PrivateKey
	module       *bind.BoundContract
	readAttempts uint64
	waitTimeout  time.Duration
}

func NewAllowanceModule(client *chain.Client, key *ecdsa.PrivateKey, moduleAddress common.Address, readAttempts uint64, waitTimeout time.Duration) *AllowanceModule {
	return &AllowanceModule{
		client:       client,
		key:          key,
		module:       bind.NewBoundContract(moduleAddress, allowanceModuleABI, client, client, client),
		readAttempts: readAttempts,
		waitTimeout:  waitTimeout,
	}
}

func (m *AllowanceModule) GetTokenAllowance(ctx context.Context, principal, delegate, token common.Address) (entities.Allowance, error) {
	out, err := m.read(ctx, "getTokenAllowance", principal, delegate, token)
	if err != nil {
		return entities.Allowance{}, err
	}
	values := *abi.ConvertType(out[0], new([5]*big.Int)).(*[5]*big.Int)
	return toAllowance(values), nil
}

func (m *AllowanceModule) GenerateTransferHash(ctx context.Context, req entities.TransferRequest) (common.Hash, error) {
	out, err := m.read(ctx, "generateTransferHash",
		req.Principal, req.Token, req.Recipient, req.Amount, req.PaymentToken, payment(req), req.Nonce)
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte)), nil
}

func (m *AllowanceModule) SimulateTransfer(ctx context.Context, req entities.TransferRequest, signature []byte) error {
	err := m.module.Call(&bind.CallOpts{Context: ctx, From: req.Delegate}, nil, "executeAllowanceTransfer", transferArgs(req, signature)...)
	if err == nil {
		return nil
	}
	return m.classify(ctx, req, err)
}

func (m *AllowanceModule) ExecuteTransfer(ctx context.Context, req entities.TransferRequest, signature []byte) (common.Hash, error) {
	opts, err := chain.Transactor(ctx, m.key, m.client.ChainID)
	if err != nil {
		return common.Hash{}, err
	}
	tx, err := m.module.Transact(opts, "executeAllowanceTransfer", transferArgs(req, signature)...)
	if err != nil {
		return common.Hash{}, m.classify(ctx, req, err)
	}
	receipt, err := chain.WaitMined(ctx, m.client, tx, m.waitTimeout)
	if err != nil {
		return tx.Hash(), fmt.Errorf("%w: tx %s: %w", domainerrors.ErrTransferUnconfirmed, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash(), fmt.Errorf("allowance transfer %s reverted: %w", tx.Hash().Hex(), faults.ErrPreconditionFailed)
	}
	return tx.Hash(), nil
}

func (m *AllowanceModule) read(ctx context.Context, method string, params ...any) ([]any, error) {
	return chain.RetryRead(ctx, m.readAttempts, func(ctx context.Context) ([]any, error) {
		var out []any
		err := m.module.Call(&bind.CallOpts{Context: ctx}, &out, method, params...)
		if isRevert(err) {
			return nil, chain.Permanent(err)
		}
		return out, err
	})
}

// classify maps module revert reasons onto domain errors. A signature that
// no longer matches is stale if the on-chain nonce has moved on.
func (m *AllowanceModule) classify(ctx context.Context, req entities.TransferRequest, err error) error {
	if !isRevert(err) {
		return faults.Transient(err)
	}
	reason := err.Error()
	switch {
	case strings.Contains(reason, "newSpent"):
		return fmt.Errorf("%w: %v", domainerrors.ErrAllowanceExceeded, err)
	case strings.Contains(reason, "expectedDelegate") || strings.Contains(reason, "signer"):
		current, readErr := m.GetTokenAllowance(ctx, req.Principal, req.Delegate, req.Token)
		if readErr == nil && current.Nonce != req.Nonce {
			return fmt.Errorf("%w: signed %d, module at %d", domainerrors.ErrStaleNonce, req.Nonce, current.Nonce)
		}
		return fmt.Errorf("%w: %v", domainerrors.ErrSignatureRejected, err)
	}
	return fmt.Errorf("allowance transfer reverted: %w: %w", faults.ErrPreconditionFailed, err)
}

func transferArgs(req entities.TransferRequest, signature []byte) []any {
	return []any{req.Principal, req.Token, req.Recipient, req.Amount, req.PaymentToken, payment(req), req.Delegate, signature}
}

func payment(req entities.TransferRequest) *big.Int {
	if req.Payment == nil {
		return new(big.Int)
	}
	return req.Payment
}

// toAllowance decodes [amount, spent, resetTimeMin, lastResetMin, nonce].
func toAllowance(values [5]*big.Int) entities.Allowance {
	for i := range values {
		if values[i] == nil {
			values[i] = new(big.Int)
		}
	}
	allowance := entities.Allowance{
		Amount:      values[0],
		Spent:       values[1],
		ResetPeriod: time.Duration(values[2].Int64()) * time.Minute,
		Nonce:       uint16(values[4].Uint64()),
	}
	if values[3].Sign() > 0 {
		allowance.LastReset = time.Unix(values[3].Int64()*60, 0).UTC()
	}
	return allowance
}

func isRevert(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
