package entities

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Allowance is the module's view of what a delegate may spend for one token.
// Amounts are in the token's base units.
type Allowance struct {
	Amount      *big.Int
	Spent       *big.Int
	ResetPeriod time.Duration
	LastReset   time.Time
	Nonce       uint16
}

// Remaining is max(0, Amount - Spent).
func (a Allowance) Remaining() *big.Int {
	amount := valueOrZero(a.Amount)
	spent := valueOrZero(a.Spent)
	if spent.Cmp(amount) >= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sub(amount, spent)
}

// RemainingAt accounts for a reset period that has elapsed by now; the
// module clears Spent on the next transfer in that case.
func (a Allowance) RemainingAt(now time.Time) *big.Int {
	if a.ResetPeriod > 0 && !a.LastReset.IsZero() && !now.Before(a.LastReset.Add(a.ResetPeriod)) {
		return new(big.Int).Set(valueOrZero(a.Amount))
	}
	return a.Remaining()
}

// TransferRequest mirrors the module's AllowanceTransfer struct. Recipient is
// the delegate itself for agent spends.
type TransferRequest struct {
	Principal    common.Address
	Token        common.Address
	Recipient    common.Address
	Amount       *big.Int
	PaymentToken common.Address
	Payment      *big.Int
	Nonce        uint16
	Delegate     common.Address
}

// Delegation binds an account to the Safe whose allowance it draws on.
type Delegation struct {
	Account   common.Address
	Principal common.Address
	Delegate  common.Address
	Token     common.Address
	CreatedAt time.Time
	LastSeen  time.Time
}

type SpendReceipt struct {
	TxHash  common.Hash
	Nonce   uint16
	Amount  *big.Int
	Retried bool
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
