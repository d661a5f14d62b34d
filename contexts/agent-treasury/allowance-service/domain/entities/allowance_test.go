package entities

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRemainingNeverNegative(t *testing.T) {
	assert.Equal(t, int64(40), Allowance{Amount: big.NewInt(100), Spent: big.NewInt(60)}.Remaining().Int64())
	assert.Equal(t, int64(0), Allowance{Amount: big.NewInt(100), Spent: big.NewInt(160)}.Remaining().Int64())
	assert.Equal(t, int64(0), Allowance{}.Remaining().Int64())
}

func TestRemainingAtHonoursResetPeriod(t *testing.T) {
	reset := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	allowance := Allowance{
		Amount:      big.NewInt(100),
		Spent:       big.NewInt(100),
		ResetPeriod: time.Hour,
		LastReset:   reset,
	}

	assert.Equal(t, int64(0), allowance.RemainingAt(reset.Add(59*time.Minute)).Int64())
	assert.Equal(t, int64(100), allowance.RemainingAt(reset.Add(time.Hour)).Int64())

	allowance.ResetPeriod = 0
	assert.Equal(t, int64(0), allowance.RemainingAt(reset.Add(48*time.Hour)).Int64())
}
