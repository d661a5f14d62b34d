package memory

import (
	"context"
	"encoding/binary"
	"math/big"
	"sync"
	"time"

	"artix/contexts/agent-treasury/allowance-service/domain/entities"
	domainerrors "artix/contexts/agent-treasury/allowance-service/domain/errors"
	"artix/contexts/agent-treasury/allowance-service/domain/services"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type allowanceKey struct {
	principal common.Address
	delegate  common.Address
	token     common.Address
}

// AllowanceModule behaves like the on-chain allowance module: transfers are
// checked against the delegate signature over the current nonce and the
// remaining cap, and each executed transfer bumps the nonce.
type AllowanceModule struct {
	mu         sync.Mutex
	chainID    *big.Int
	address    common.Address
	clock      *Clock
	allowances map[allowanceKey]entities.Allowance
	afterHash  func(entities.TransferRequest)
	readErr    error

	reads       int
	hashes      int
	simulations int
	executions  int
	txCount     uint64
}

func NewAllowanceModule(chainID *big.Int, address common.Address, clock *Clock) *AllowanceModule {
	if clock == nil {
		clock = &Clock{}
	}
	return &AllowanceModule{
		chainID:    new(big.Int).Set(chainID),
		address:    address,
		clock:      clock,
		allowances: make(map[allowanceKey]entities.Allowance),
	}
}

// SetAllowance is what the principal does when it configures a delegate.
func (m *AllowanceModule) SetAllowance(principal, delegate, token common.Address, allowance entities.Allowance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if allowance.Spent == nil {
		allowance.Spent = new(big.Int)
	}
	m.allowances[allowanceKey{principal, delegate, token}] = allowance
}

func (m *AllowanceModule) Allowance(principal, delegate, token common.Address) entities.Allowance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAllowance(m.allowances[allowanceKey{principal, delegate, token}])
}

// SpendOutOfBand records a transfer made by another process holding the
// same delegate key.
func (m *AllowanceModule) SpendOutOfBand(principal, delegate, token common.Address, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := allowanceKey{principal, delegate, token}
	current := cloneAllowance(m.allowances[key])
	current.Spent = new(big.Int).Add(current.Spent, amount)
	current.Nonce++
	m.allowances[key] = current
}

// AfterHash runs hook after each GenerateTransferHash call, outside the lock.
func (m *AllowanceModule) AfterHash(hook func(entities.TransferRequest)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.afterHash = hook
}

func (m *AllowanceModule) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

func (m *AllowanceModule) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *AllowanceModule) Hashes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hashes
}

func (m *AllowanceModule) Simulations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.simulations
}

func (m *AllowanceModule) Executions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executions
}

func (m *AllowanceModule) GetTokenAllowance(_ context.Context, principal, delegate, token common.Address) (entities.Allowance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.readErr != nil {
		return entities.Allowance{}, m.readErr
	}
	return cloneAllowance(m.allowances[allowanceKey{principal, delegate, token}]), nil
}

func (m *AllowanceModule) GenerateTransferHash(_ context.Context, req entities.TransferRequest) (common.Hash, error) {
	m.mu.Lock()
	m.hashes++
	hook := m.afterHash
	m.mu.Unlock()

	hash := services.TransferHash(m.chainID, m.address, req)
	if hook != nil {
		hook(req)
	}
	return hash, nil
}

func (m *AllowanceModule) SimulateTransfer(_ context.Context, req entities.TransferRequest, signature []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.simulations++
	_, err := m.check(req, signature)
	return err
}

func (m *AllowanceModule) ExecuteTransfer(_ context.Context, req entities.TransferRequest, signature []byte) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions++
	next, err := m.check(req, signature)
	if err != nil {
		return common.Hash{}, err
	}
	m.allowances[allowanceKey{req.Principal, req.Delegate, req.Token}] = next
	m.txCount++
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], m.txCount)
	return crypto.Keccak256Hash([]byte("allowance-transfer"), seed[:]), nil
}

// check must be called with mu held. It returns the allowance as it would be
// after the transfer.
func (m *AllowanceModule) check(req entities.TransferRequest, signature []byte) (entities.Allowance, error) {
	current := cloneAllowance(m.allowances[allowanceKey{req.Principal, req.Delegate, req.Token}])

	signed := req
	signed.Nonce = current.Nonce
	signer, err := services.RecoverSigner(services.TransferHash(m.chainID, m.address, signed), signature)
	if err != nil || signer != req.Delegate {
		if req.Nonce != current.Nonce {
			return entities.Allowance{}, domainerrors.ErrStaleNonce
		}
		return entities.Allowance{}, domainerrors.ErrSignatureRejected
	}

	now := m.clock.Now()
	if current.ResetPeriod > 0 && !current.LastReset.IsZero() && !now.Before(current.LastReset.Add(current.ResetPeriod)) {
		current.Spent = new(big.Int)
		current.LastReset = resetBoundary(current.LastReset, current.ResetPeriod, now)
	}
	spent := new(big.Int).Add(current.Spent, req.Amount)
	if current.Amount == nil || spent.Cmp(current.Amount) > 0 {
		return entities.Allowance{}, domainerrors.ErrAllowanceExceeded
	}
	current.Spent = spent
	current.Nonce++
	return current, nil
}

// resetBoundary snaps the reset time to the latest whole period before now.
func resetBoundary(last time.Time, period time.Duration, now time.Time) time.Time {
	elapsed := now.Sub(last)
	return last.Add(elapsed - elapsed%period)
}

func cloneAllowance(a entities.Allowance) entities.Allowance {
	out := a
	if a.Amount != nil {
		out.Amount = new(big.Int).Set(a.Amount)
	}
	out.Spent = new(big.Int)
	if a.Spent != nil {
		out.Spent.Set(a.Spent)
	}
	return out
}
