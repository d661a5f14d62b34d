package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"sync"
	"time"

	"artix/contexts/meme-contest/contest-service/domain/entities"
	domainerrors "artix/contexts/meme-contest/contest-service/domain/errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// ConfirmationMode controls what happens to a vote after it is sent.
type ConfirmationMode string

const (
	// ConfirmImmediately applies the vote and yields a successful receipt.
	ConfirmImmediately ConfirmationMode = "immediate"
	// ConfirmNever leaves the receipt unobservable; the vote still lands
	// unless SetVotesLand(false) was called.
	ConfirmNever ConfirmationMode = "never"
	// ConfirmRevert yields a reverted receipt and leaves the ledger unchanged.
	ConfirmRevert ConfirmationMode = "revert"
)

type voteKey struct {
	entryID uint64
	viewer  common.Address
}

type txRecord struct {
	receipt entities.TxReceipt
	hang    bool
}

type storedObject struct {
	data     []byte
	mimeType string
}

// Store simulates the contest ledger and every external dependency of the
// contest service. Failure injection setters drive the tests.
type Store struct {
	mu sync.RWMutex

	entries map[uint64]entities.Entry
	config  entities.VotingConfiguration
	votes   map[voteKey]bool
	ranking map[common.Address]uint64

	sessions      map[common.Address]bool
	chainID       uint64
	knownNetworks map[uint64]entities.Network
	rejectSwitch  bool

	txs              map[common.Hash]txRecord
	txSeq            uint64
	confirmationMode ConfirmationMode
	votesLand        bool
	rankingErr       error

	getEntryErr  map[uint64]error
	hasVotedErr  error
	ledgerReads  int
	mintErrs     []error
	mintCalls    int
	registerErr  error
	registerHook func(entities.RegistrationRequest)
	registered   []entities.RegistrationRequest

	objects     map[string]storedObject
	enhanceErr  error
	generateErr error
	attempts    map[uint64]entities.MintAttempt
	now         time.Time
}

func NewStore(seed []entities.Entry) *Store {
	store := &Store{
		entries: make(map[uint64]entities.Entry, len(seed)),
		config: entities.VotingConfiguration{
			MaxVotesPerUser: 1,
			ContestDuration: 7 * 24 * time.Hour,
			MinVotesForWin:  3,
			VoteCost:        big.NewInt(100_000_000_000_000),
		},
		votes:            make(map[voteKey]bool),
		ranking:          make(map[common.Address]uint64),
		sessions:         make(map[common.Address]bool),
		chainID:          entities.BaseSepolia().ChainID,
		knownNetworks:    map[uint64]entities.Network{entities.BaseSepolia().ChainID: entities.BaseSepolia()},
		txs:              make(map[common.Hash]txRecord),
		confirmationMode: ConfirmImmediately,
		votesLand:        true,
		getEntryErr:      make(map[uint64]error),
		objects:          make(map[string]storedObject),
		attempts:         make(map[uint64]entities.MintAttempt),
	}
	for _, entry := range seed {
		store.entries[entry.ID] = entry
	}
	return store
}

// Ledger control.

func (s *Store) PutEntry(entry entities.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
}

func (s *Store) SetVotingConfiguration(cfg entities.VotingConfiguration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

func (s *Store) RecordVote(entryID uint64, viewer common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyVoteLocked(entryID, viewer)
}

func (s *Store) FailGetEntry(entryID uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.getEntryErr, entryID)
		return
	}
	s.getEntryErr[entryID] = err
}

func (s *Store) FailHasVoted(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasVotedErr = err
}

func (s *Store) LedgerReads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledgerReads
}

func (s *Store) RankingPoints(viewer common.Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ranking[viewer]
}

// Wallet control.

func (s *Store) ConnectViewer(viewer common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[viewer] = true
}

// UseChain points the wallet at chainID. With known=false the wallet forgets
// the contest network so a switch must add it first.
func (s *Store) UseChain(chainID uint64, known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chainID = chainID
	if !known {
		delete(s.knownNetworks, entities.BaseSepolia().ChainID)
	}
}

func (s *Store) RejectNetworkSwitch(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectSwitch = reject
}

func (s *Store) KnowsNetwork(chainID uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.knownNetworks[chainID]
	return ok
}

func (s *Store) SetConfirmationMode(mode ConfirmationMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmationMode = mode
}

func (s *Store) SetVotesLand(land bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votesLand = land
}

func (s *Store) FailRanking(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rankingErr = err
}

// Minting control.

// FailMints makes the next len(errs) mint calls fail in order.
func (s *Store) FailMints(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mintErrs = append(s.mintErrs, errs...)
}

func (s *Store) MintCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mintCalls
}

func (s *Store) FailRegistration(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerErr = err
}

// OnRegister runs hook inside every registration call, outside the lock.
func (s *Store) OnRegister(hook func(entities.RegistrationRequest)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerHook = hook
}

func (s *Store) RegistrationCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registered)
}

func (s *Store) FailEnhance(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enhanceErr = err
}

func (s *Store) FailGenerate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generateErr = err
}

func (s *Store) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now.UTC()
}

func (s *Store) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now.IsZero() {
		s.now = time.Now().UTC()
	}
	s.now = s.now.Add(d)
}

// ports.Ledger

func (s *Store) GetEntry(_ context.Context, entryID uint64) (entities.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgerReads++
	if err := s.getEntryErr[entryID]; err != nil {
		return entities.Entry{}, err
	}
	entry, ok := s.entries[entryID]
	if !ok {
		return entities.Entry{}, nil
	}
	return entry, nil
}

func (s *Store) VotingConfiguration(_ context.Context) (entities.VotingConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.config
	if cfg.VoteCost != nil {
		cfg.VoteCost = new(big.Int).Set(cfg.VoteCost)
	}
	return cfg, nil
}

func (s *Store) HasVoted(_ context.Context, entryID uint64, viewer common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.hasVotedErr != nil {
		return false, s.hasVotedErr
	}
	return s.votes[voteKey{entryID: entryID, viewer: viewer}], nil
}

// ports.Wallet

func (s *Store) Session(_ context.Context, viewer common.Address) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.sessions[viewer] {
		return domainerrors.ErrNoSigningSession
	}
	return nil
}

func (s *Store) ChainID(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chainID, nil
}

func (s *Store) SwitchNetwork(_ context.Context, chainID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectSwitch {
		return domainerrors.ErrUserRejected
	}
	if _, ok := s.knownNetworks[chainID]; !ok {
		return domainerrors.ErrNetworkUnknown
	}
	s.chainID = chainID
	return nil
}

func (s *Store) AddNetwork(_ context.Context, network entities.Network) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectSwitch {
		return domainerrors.ErrUserRejected
	}
	s.knownNetworks[network.ChainID] = network
	return nil
}

func (s *Store) SendVote(_ context.Context, viewer common.Address, entryID uint64, value *big.Int) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sessions[viewer] {
		return common.Hash{}, domainerrors.ErrNoSigningSession
	}
	if value == nil || s.config.VoteCost == nil || value.Cmp(s.config.VoteCost) < 0 {
		return common.Hash{}, fmt.Errorf("vote value below cost")
	}
	hash := s.nextHashLocked()
	record := txRecord{receipt: entities.TxReceipt{TxHash: hash, BlockNumber: s.txSeq, Status: entities.TxStatusSucceeded, GasUsed: 21_000}}
	switch s.confirmationMode {
	case ConfirmRevert:
		record.receipt.Status = entities.TxStatusReverted
	case ConfirmNever:
		record.hang = true
		if s.votesLand {
			s.applyVoteLocked(entryID, viewer)
		}
	default:
		s.applyVoteLocked(entryID, viewer)
	}
	s.txs[hash] = record
	return hash, nil
}

func (s *Store) SendRankingUpdate(_ context.Context, viewer common.Address, points uint64) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rankingErr != nil {
		return common.Hash{}, s.rankingErr
	}
	s.ranking[viewer] += points
	hash := s.nextHashLocked()
	s.txs[hash] = txRecord{receipt: entities.TxReceipt{TxHash: hash, BlockNumber: s.txSeq, Status: entities.TxStatusSucceeded}}
	return hash, nil
}

// ports.TxWatcher

func (s *Store) WaitForReceipt(ctx context.Context, txHash common.Hash) (entities.TxReceipt, error) {
	s.mu.RLock()
	record, ok := s.txs[txHash]
	s.mu.RUnlock()
	if !ok || record.hang {
		<-ctx.Done()
		return entities.TxReceipt{}, ctx.Err()
	}
	return record.receipt, nil
}

// ports.Minter

func (s *Store) MintEntry(_ context.Context, entryID uint64, registrationID string) (entities.TxReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mintCalls++
	if len(s.mintErrs) > 0 {
		err := s.mintErrs[0]
		s.mintErrs = s.mintErrs[1:]
		return entities.TxReceipt{}, err
	}
	entry, ok := s.entries[entryID]
	if !ok {
		return entities.TxReceipt{}, domainerrors.ErrEntryNotFound
	}
	if registrationID == "" {
		return entities.TxReceipt{}, fmt.Errorf("registration id is required")
	}
	entry.HasBeenMinted = true
	s.entries[entryID] = entry
	hash := s.nextHashLocked()
	receipt := entities.TxReceipt{TxHash: hash, BlockNumber: s.txSeq, Status: entities.TxStatusSucceeded}
	s.txs[hash] = txRecord{receipt: receipt}
	return receipt, nil
}

// ports.IPRegistry

func (s *Store) Register(_ context.Context, req entities.RegistrationRequest) (entities.Registration, error) {
	s.mu.Lock()
	s.registered = append(s.registered, req)
	hook := s.registerHook
	err := s.registerErr
	seq := len(s.registered)
	s.mu.Unlock()

	if hook != nil {
		hook(req)
	}
	if err != nil {
		return entities.Registration{}, err
	}
	s.mu.Lock()
	hash := s.nextHashLocked()
	s.mu.Unlock()
	return entities.Registration{IPID: "ip-" + strconv.Itoa(seq), TxHash: hash.Hex()}, nil
}

// ports.ContentStorage

func (s *Store) Upload(_ context.Context, data []byte, mimeType string) (entities.StoredObject, error) {
	return s.put(data, mimeType), nil
}

func (s *Store) StoreMetadata(_ context.Context, document []byte) (entities.StoredObject, error) {
	return s.put(document, "application/json"), nil
}

func (s *Store) Fetch(_ context.Context, id string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	object, ok := s.objects[id]
	if !ok {
		return nil, "", domainerrors.ErrContentNotFound
	}
	return append([]byte(nil), object.data...), object.mimeType, nil
}

func (s *Store) GatewayURL(id string) string {
	return "memory://ipfs/" + id
}

// ports.ImageGenerator

func (s *Store) EnhancePrompt(_ context.Context, prompt string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.enhanceErr != nil {
		return "", s.enhanceErr
	}
	return prompt + ", high contrast, bold caption", nil
}

func (s *Store) GenerateImage(_ context.Context, prompt string, _ entities.MemeStyle) (entities.GeneratedImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.generateErr != nil {
		return entities.GeneratedImage{}, s.generateErr
	}
	return entities.GeneratedImage{Data: []byte("png:" + prompt), MimeType: "image/png", Prompt: prompt}, nil
}

// ports.MintAttemptRepository

func (s *Store) GetMintAttempt(_ context.Context, entryID uint64) (entities.MintAttempt, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[entryID]
	return attempt, ok, nil
}

func (s *Store) SaveMintAttempt(_ context.Context, attempt entities.MintAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.EntryID] = attempt
	return nil
}

func (s *Store) ListOrphanedAttempts(_ context.Context, limit int, maxAttempts int) ([]entities.MintAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.MintAttempt, 0)
	for _, attempt := range s.attempts {
		if attempt.Orphaned() && (maxAttempts <= 0 || attempt.Attempts < maxAttempts) {
			items = append(items, attempt)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].UpdatedAt.Before(items[j].UpdatedAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// ports.Clock and ports.IDGenerator

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.now.IsZero() {
		return time.Now().UTC()
	}
	return s.now
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) put(data []byte, mimeType string) entities.StoredObject {
	sum := sha256.Sum256(data)
	id := "bafk" + hex.EncodeToString(sum[:16])
	s.mu.Lock()
	s.objects[id] = storedObject{data: append([]byte(nil), data...), mimeType: mimeType}
	s.mu.Unlock()
	return entities.StoredObject{ID: id, URL: s.GatewayURL(id)}
}

func (s *Store) applyVoteLocked(entryID uint64, viewer common.Address) {
	key := voteKey{entryID: entryID, viewer: viewer}
	if s.votes[key] {
		return
	}
	s.votes[key] = true
	if entry, ok := s.entries[entryID]; ok {
		entry.VoteCount++
		s.entries[entryID] = entry
	}
}

func (s *Store) nextHashLocked() common.Hash {
	s.txSeq++
	return crypto.Keccak256Hash([]byte("memory-tx:" + strconv.FormatUint(s.txSeq, 10)))
}
