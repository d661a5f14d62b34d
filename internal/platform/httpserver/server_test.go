package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	allowanceservice "artix/contexts/agent-treasury/allowance-service"
	allowanceentities "artix/contexts/agent-treasury/allowance-service/domain/entities"
	auctionservice "artix/contexts/meme-contest/auction-service"
	auctionmemory "artix/contexts/meme-contest/auction-service/adapters/memory"
	auctionentities "artix/contexts/meme-contest/auction-service/domain/entities"
	contestservice "artix/contexts/meme-contest/contest-service"
	contestmemory "artix/contexts/meme-contest/contest-service/adapters/memory"
	contestentities "artix/contexts/meme-contest/contest-service/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	creator = common.HexToAddress("0x1000000000000000000000000000000000000001")
	viewer  = common.HexToAddress("0x2000000000000000000000000000000000000002")
	bidder  = common.HexToAddress("0x3000000000000000000000000000000000000003")
	safe    = common.HexToAddress("0x5afe000000000000000000000000000000000001")
)

type testServer struct {
	handler   http.Handler
	contest   contestservice.Module
	entries   *auctionmemory.Entries
	allowance allowanceservice.Module
}

func newTestServer(t *testing.T, seed ...contestentities.Entry) testServer {
	t.Helper()
	contest := contestservice.NewInMemoryModule(seed, nil)
	contest.Store.ConnectViewer(viewer)
	contest.Handler.Votes.ConfirmationTimeout = 50 * time.Millisecond

	entries := auctionmemory.NewEntries()
	auctions := auctionservice.NewInMemoryModule(entries, nil, nil)
	allowance, err := allowanceservice.NewInMemoryModule(big.NewInt(84532), nil, nil)
	require.NoError(t, err)

	server := New(contest, auctions, allowance, nil, "")
	return testServer{handler: server.Handler(), contest: contest, entries: entries, allowance: allowance}
}

func (ts testServer) do(t *testing.T, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if caller != "" {
		req.Header.Set("X-User-Id", caller)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func contestEntry(id, votes uint64) contestentities.Entry {
	return contestentities.Entry{
		ID:          id,
		Creator:     creator,
		ContentHash: "bafkserver",
		Title:       "server entry",
		VoteCount:   votes,
		IsActive:    true,
	}
}

func TestVoteRouteUsesCallerAsViewer(t *testing.T) {
	ts := newTestServer(t, contestEntry(0, 0))

	rec := ts.do(t, http.MethodPost, "/memes/0/vote", viewer.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "confirmed", body["outcome"])
	assert.Equal(t, viewer.Hex(), body["viewer"])

	rec = ts.do(t, http.MethodPost, "/memes/0/vote", viewer.Hex(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVoteRouteReportsPendingAsAccepted(t *testing.T) {
	ts := newTestServer(t, contestEntry(0, 0))
	ts.contest.Store.SetConfirmationMode(contestmemory.ConfirmNever)
	ts.contest.Store.SetVotesLand(false)

	rec := ts.do(t, http.MethodPost, "/memes/0/vote", "", map[string]string{"viewer": viewer.Hex()})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "pending", body["outcome"])
	assert.NotEmpty(t, body["tx_hash"])
}

func TestVoteRouteReportsRevertAsConflict(t *testing.T) {
	ts := newTestServer(t, contestEntry(0, 0))
	ts.contest.Store.SetConfirmationMode(contestmemory.ConfirmRevert)

	rec := ts.do(t, http.MethodPost, "/memes/0/vote", viewer.Hex(), nil)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "vote_reverted", body["code"])
	assert.NotEmpty(t, body["tx_hash"])
}

func TestEntryRoutesValidateID(t *testing.T) {
	ts := newTestServer(t, contestEntry(0, 0))

	rec := ts.do(t, http.MethodGet, "/memes/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/memes/9", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/memes?viewer="+viewer.Hex(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)
}

func TestMintRouteStatusMapping(t *testing.T) {
	ts := newTestServer(t, contestEntry(0, 1), contestEntry(1, 3))

	rec := ts.do(t, http.MethodPost, "/memes/0/mint-nft", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	ts.contest.Store.FailMints(errors.New("nonce too low"))
	rec = ts.do(t, http.MethodPost, "/memes/1/mint-nft", "", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "ip-1", decode(t, rec)["registration_id"])

	rec = ts.do(t, http.MethodPost, "/memes/1/mint-nft/retry", "", map[string]string{"registration_id": "ip-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "minted", decode(t, rec)["state"])
}

func TestGeneratedContentIsServedRaw(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/memes", "", map[string]string{"prompt": "cat at standup"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id, _ := decode(t, rec)["id"].(string)
	require.NotEmpty(t, id)

	rec = ts.do(t, http.MethodGet, "/metadata/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = ts.do(t, http.MethodGet, "/metadata/bafkmissing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuctionRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.entries.Put(auctionentities.EntrySnapshot{EntryID: 4, Creator: creator, HasBeenMinted: true})

	rec := ts.do(t, http.MethodPost, "/auctions", "", map[string]any{"entry_id": 4, "start_price_wei": "100", "duration_hours": 24})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/auctions", creator.Hex(), map[string]any{"entry_id": 4, "start_price_wei": "100", "duration_hours": 24})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	auctionID, _ := decode(t, rec)["auction_id"].(string)
	require.NotEmpty(t, auctionID)

	rec = ts.do(t, http.MethodPost, "/auctions/place-bid", bidder.Hex(), map[string]string{"auction_id": auctionID, "amount_wei": "100"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(t, http.MethodPost, "/auctions/place-bid", creator.Hex(), map[string]string{"auction_id": auctionID, "amount_wei": "500"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/auctions/place-bid", bidder.Hex(), map[string]string{"auction_id": auctionID, "amount_wei": "150"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "150", decode(t, rec)["current_price_wei"])

	rec = ts.do(t, http.MethodGet, "/auctions/"+auctionID+"/bids", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)

	rec = ts.do(t, http.MethodGet, "/auctions/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAgentRoutes(t *testing.T) {
	ts := newTestServer(t)
	account := viewer.Hex()

	rec := ts.do(t, http.MethodGet, "/agent/allowance?account="+account, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/agent/allowance", account, map[string]string{"safe_address": safe.Hex()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	delegate := ts.allowance.Signer.Address()
	assert.Equal(t, delegate.Hex(), decode(t, rec)["delegate_address"])

	ts.allowance.Allowances.SetAllowance(safe, delegate, common.Address{}, allowanceentities.Allowance{Amount: big.NewInt(1_000)})

	rec = ts.do(t, http.MethodPost, "/agent/spend", account, map[string]string{"amount_wei": "1500"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 0, ts.allowance.Allowances.Simulations())

	rec = ts.do(t, http.MethodPost, "/agent/spend", account, map[string]string{"amount_wei": "250"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["tx_hash"])

	rec = ts.do(t, http.MethodGet, "/agent/allowance", account, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "750", decode(t, rec)["remaining_wei"])

	rec = ts.do(t, http.MethodPost, "/agent/spend", account, map[string]string{"amount_wei": "lots"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpointExposesRouteCounters(t *testing.T) {
	ts := newTestServer(t, contestEntry(0, 0))
	ts.do(t, http.MethodGet, "/memes/0", "", nil)

	rec := ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `artix_http_requests_total{route="GET /memes/{id}",status="200"}`))
}
