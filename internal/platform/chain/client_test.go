package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryReadRecoversFromTransientErrors(t *testing.T) {
	calls := 0
	value, err := RetryRead(context.Background(), 3, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("503 from rpc")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, value)
	assert.Equal(t, 3, calls)
}

func TestRetryReadStopsOnPermanentError(t *testing.T) {
	revert := errors.New("execution reverted")
	calls := 0
	_, err := RetryRead(context.Background(), 3, func(context.Context) (string, error) {
		calls++
		return "", Permanent(revert)
	})

	assert.ErrorIs(t, err, revert)
	assert.Equal(t, 1, calls)
}

func TestRetryReadGivesUpAfterBudget(t *testing.T) {
	calls := 0
	_, err := RetryRead(context.Background(), 1, func(context.Context) (bool, error) {
		calls++
		return false, errors.New("connection refused")
	})

	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestParsePrivateKey(t *testing.T) {
	key, err := ParsePrivateKey("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)
	assert.NotNil(t, key)

	_, err = ParsePrivateKey(" ")
	assert.Error(t, err)
}
