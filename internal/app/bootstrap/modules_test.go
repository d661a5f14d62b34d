package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"artix/contexts/meme-contest/contest-service/application/commands"
	contesterrors "artix/contexts/meme-contest/contest-service/domain/errors"
	"artix/internal/platform/chain"
	"artix/internal/platform/config"
	"artix/internal/platform/messaging"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainWithoutWalletKeyDisablesSigning(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	infra := modules{chain: &chain.Client{ChainID: big.NewInt(84532)}}
	cfg := config.Config{ContestAddress: "0x3000000000000000000000000000000000000003"}

	contest, err := buildContest(context.Background(), cfg, infra, messaging.NewBus(8, logger), logger)
	require.NoError(t, err)

	viewer := common.HexToAddress("0x2000000000000000000000000000000000000002")
	_, err = contest.Handler.Votes.Vote(context.Background(), commands.VoteCommand{EntryID: 0, Viewer: viewer})
	assert.ErrorIs(t, err, contesterrors.ErrSigningNotConfigured)

	_, err = contest.Handler.Mints.Mint(context.Background(), commands.MintCommand{EntryID: 0})
	assert.ErrorIs(t, err, contesterrors.ErrSigningNotConfigured)
	assert.Equal(t, 0, contest.Store.RegistrationCalls())
}
