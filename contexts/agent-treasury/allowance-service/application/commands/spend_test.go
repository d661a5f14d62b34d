package commands_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	allowanceservice "artix/contexts/agent-treasury/allowance-service"
	"artix/contexts/agent-treasury/allowance-service/application/commands"
	"artix/contexts/agent-treasury/allowance-service/domain/entities"
	domainerrors "artix/contexts/agent-treasury/allowance-service/domain/errors"
	"artix/contexts/agent-treasury/allowance-service/ports"
	"artix/internal/shared/events"
	"artix/internal/shared/faults"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	account = common.HexToAddress("0xacc0000000000000000000000000000000000001")
	safe    = common.HexToAddress("0x5afe000000000000000000000000000000000001")
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.EventType)
	}
	return out
}

// newModule registers account against safe and grants the delegate cap wei.
func newModule(t *testing.T, cap int64, publisher *recordingPublisher) allowanceservice.Module {
	t.Helper()
	var pub ports.EventPublisher
	if publisher != nil {
		pub = publisher
	}
	module, err := allowanceservice.NewInMemoryModule(big.NewInt(84532), pub, nil)
	require.NoError(t, err)
	module.Clock.Set(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))

	_, err = module.Handler.Spends.RegisterDelegation(context.Background(), commands.RegisterDelegationCommand{
		Account:   account,
		Principal: safe,
	})
	require.NoError(t, err)
	module.Allowances.SetAllowance(safe, module.Signer.Address(), common.Address{}, entities.Allowance{
		Amount: big.NewInt(cap),
	})
	return module
}

func TestSpendExecutesWithinAllowance(t *testing.T) {
	publisher := &recordingPublisher{}
	module := newModule(t, 1_000, publisher)

	receipt, err := module.Handler.Spends.Spend(context.Background(), commands.SpendCommand{Account: account, Amount: big.NewInt(400)})
	require.NoError(t, err)

	assert.NotEqual(t, common.Hash{}, receipt.TxHash)
	assert.Equal(t, uint16(0), receipt.Nonce)
	assert.False(t, receipt.Retried)

	allowance := module.Allowances.Allowance(safe, module.Signer.Address(), common.Address{})
	assert.Equal(t, int64(400), allowance.Spent.Int64())
	assert.Equal(t, uint16(1), allowance.Nonce)
	assert.Equal(t, []string{"agent.delegation.registered", "agent.allowance.spent"}, publisher.types())
}

func TestSpendOverAllowanceNeverReachesSimulation(t *testing.T) {
	module := newModule(t, 1_000, nil)
	module.Allowances.SpendOutOfBand(safe, module.Signer.Address(), common.Address{}, big.NewInt(700))

	_, err := module.Handler.Spends.Spend(context.Background(), commands.SpendCommand{Account: account, Amount: big.NewInt(301)})
	assert.ErrorIs(t, err, domainerrors.ErrAllowanceExceeded)
	assert.ErrorIs(t, err, faults.ErrPreconditionFailed)

	assert.Equal(t, 0, module.Allowances.Hashes())
	assert.Equal(t, 0, module.Allowances.Simulations())
	assert.Equal(t, 0, module.Allowances.Executions())
}

func TestSpendExactRemainderSucceeds(t *testing.T) {
	module := newModule(t, 1_000, nil)
	module.Allowances.SpendOutOfBand(safe, module.Signer.Address(), common.Address{}, big.NewInt(700))

	receipt, err := module.Handler.Spends.Spend(context.Background(), commands.SpendCommand{Account: account, Amount: big.NewInt(300)})
	require.NoError(t, err)
	assert.Equal(t, uint16(1), receipt.Nonce)
	assert.Equal(t, int64(0), module.Allowances.Allowance(safe, module.Signer.Address(), common.Address{}).Remaining().Int64())
}

func TestSpendRetriesStaleNonceOnce(t *testing.T) {
	module := newModule(t, 1_000, nil)
	delegate := module.Signer.Address()
	var once sync.Once
	module.Allowances.AfterHash(func(entities.TransferRequest) {
		once.Do(func() {
			module.Allowances.SpendOutOfBand(safe, delegate, common.Address{}, big.NewInt(100))
		})
	})

	receipt, err := module.Handler.Spends.Spend(context.Background(), commands.SpendCommand{Account: account, Amount: big.NewInt(200)})
	require.NoError(t, err)
	assert.True(t, receipt.Retried)
	assert.Equal(t, uint16(1), receipt.Nonce)
	assert.Equal(t, 2, module.Allowances.Simulations())
	assert.Equal(t, 1, module.Allowances.Executions())

	allowance := module.Allowances.Allowance(safe, delegate, common.Address{})
	assert.Equal(t, int64(300), allowance.Spent.Int64())
	assert.Equal(t, uint16(2), allowance.Nonce)
}

func TestSpendReturnsSecondStaleNonce(t *testing.T) {
	module := newModule(t, 1_000, nil)
	delegate := module.Signer.Address()
	module.Allowances.AfterHash(func(entities.TransferRequest) {
		module.Allowances.SpendOutOfBand(safe, delegate, common.Address{}, big.NewInt(1))
	})

	receipt, err := module.Handler.Spends.Spend(context.Background(), commands.SpendCommand{Account: account, Amount: big.NewInt(10)})
	assert.ErrorIs(t, err, domainerrors.ErrStaleNonce)
	assert.True(t, receipt.Retried)
	assert.Equal(t, 2, module.Allowances.Simulations())
	assert.Equal(t, 0, module.Allowances.Executions())
}

func TestSpendSignatureRejectedIsTerminal(t *testing.T) {
	module := newModule(t, 1_000, nil)
	// The Safe granted the allowance to a different delegate.
	other := common.HexToAddress("0x0be0000000000000000000000000000000000009")
	module.Allowances.SetAllowance(safe, other, common.Address{}, entities.Allowance{Amount: big.NewInt(1_000)})
	spends := module.Handler.Spends
	delegation, _, err := module.Delegations.GetDelegation(context.Background(), account)
	require.NoError(t, err)
	delegation.Delegate = other
	require.NoError(t, module.Delegations.SaveDelegation(context.Background(), delegation))

	_, err = spends.Spend(context.Background(), commands.SpendCommand{Account: account, Amount: big.NewInt(10)})
	assert.ErrorIs(t, err, domainerrors.ErrSignatureRejected)
	assert.Equal(t, 1, module.Allowances.Simulations())
	assert.Equal(t, 0, module.Allowances.Executions())
}

func TestSpendWithoutDelegation(t *testing.T) {
	module := newModule(t, 1_000, nil)

	_, err := module.Handler.Spends.Spend(context.Background(), commands.SpendCommand{
		Account: common.HexToAddress("0x0000000000000000000000000000000000000abc"),
		Amount:  big.NewInt(1),
	})
	assert.ErrorIs(t, err, domainerrors.ErrDelegationNotFound)
}

func TestSpendValidatesAmount(t *testing.T) {
	module := newModule(t, 1_000, nil)
	spends := module.Handler.Spends
	tooLarge := new(big.Int).Lsh(big.NewInt(1), 96)

	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5), tooLarge} {
		_, err := spends.Spend(context.Background(), commands.SpendCommand{Account: account, Amount: amount})
		assert.ErrorIs(t, err, domainerrors.ErrInvalidSpend)
	}
	assert.Equal(t, 0, module.Allowances.Reads())
}

func TestSpendModuleReadFailureIsTransient(t *testing.T) {
	module := newModule(t, 1_000, nil)
	module.Allowances.FailReads(errors.New("rpc unavailable"))

	_, err := module.Handler.Spends.Spend(context.Background(), commands.SpendCommand{Account: account, Amount: big.NewInt(1)})
	assert.ErrorIs(t, err, domainerrors.ErrModuleUnavailable)
	assert.ErrorIs(t, err, faults.ErrTransientNetwork)
}

func TestConcurrentSpendsNeverOverspend(t *testing.T) {
	module := newModule(t, 1_000, nil)
	spends := module.Handler.Spends

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		exceeded int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := spends.Spend(context.Background(), commands.SpendCommand{Account: account, Amount: big.NewInt(100)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, domainerrors.ErrAllowanceExceeded):
				exceeded++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	assert.Equal(t, 2, exceeded)
	allowance := module.Allowances.Allowance(safe, module.Signer.Address(), common.Address{})
	assert.Equal(t, int64(1_000), allowance.Spent.Int64())
	assert.Equal(t, uint16(10), allowance.Nonce)
	assert.Equal(t, 10, module.Allowances.Executions())
}

func TestSpendHonoursElapsedResetPeriod(t *testing.T) {
	module := newModule(t, 1_000, nil)
	delegate := module.Signer.Address()
	module.Allowances.SetAllowance(safe, delegate, common.Address{}, entities.Allowance{
		Amount:      big.NewInt(1_000),
		Spent:       big.NewInt(1_000),
		ResetPeriod: 24 * time.Hour,
		LastReset:   module.Clock.Now().Add(-25 * time.Hour),
	})

	_, err := module.Handler.Spends.Spend(context.Background(), commands.SpendCommand{Account: account, Amount: big.NewInt(600)})
	require.NoError(t, err)
	assert.Equal(t, int64(600), module.Allowances.Allowance(safe, delegate, common.Address{}).Spent.Int64())
}

func TestRegisterDelegationKeepsCreationTime(t *testing.T) {
	module := newModule(t, 1_000, nil)
	ctx := context.Background()
	first, _, err := module.Delegations.GetDelegation(ctx, account)
	require.NoError(t, err)

	module.Clock.Advance(time.Hour)
	otherSafe := common.HexToAddress("0x5afe000000000000000000000000000000000002")
	updated, err := module.Handler.Spends.RegisterDelegation(ctx, commands.RegisterDelegationCommand{Account: account, Principal: otherSafe})
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, updated.CreatedAt)
	assert.Equal(t, otherSafe, updated.Principal)
	assert.Equal(t, module.Signer.Address(), updated.Delegate)

	_, err = module.Handler.Spends.RegisterDelegation(ctx, commands.RegisterDelegationCommand{Account: account})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidDelegation)
}

func TestSpendWithoutGuardUsesDefault(t *testing.T) {
	module := newModule(t, 1_000, nil)
	spends := module.Handler.Spends
	spends.Guard = nil

	receipt, err := spends.Spend(context.Background(), commands.SpendCommand{Account: account, Amount: big.NewInt(250)})
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, receipt.TxHash)
	assert.False(t, commands.DefaultSpendGuard().Held(commands.SpendKey(module.Signer.Address())))
}
