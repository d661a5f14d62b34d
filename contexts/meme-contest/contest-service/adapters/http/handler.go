package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "artix/contexts/meme-contest/contest-service/application"
	"artix/contexts/meme-contest/contest-service/application/commands"
	"artix/contexts/meme-contest/contest-service/application/queries"
	"artix/contexts/meme-contest/contest-service/domain/entities"
	domainerrors "artix/contexts/meme-contest/contest-service/domain/errors"
	httptransport "artix/contexts/meme-contest/contest-service/transport/http"

	"github.com/ethereum/go-ethereum/common"
)

type Handler struct {
	Catalog *queries.EntryCatalog
	Votes   commands.VoteUseCase
	Mints   commands.MintUseCase
	Memes   commands.MemeUseCase
	Logger  *slog.Logger
}

// ListEntriesHandler godoc
// @Summary List contest entries
// @Description Returns every entry on the ledger, enriched with the viewer's vote status when a viewer is given.
// @Tags meme-contest
// @Produce json
// @Param viewer query string false "Viewer address"
// @Param fresh query bool false "Bypass the entry cache"
// @Success 200 {object} httptransport.ListEntriesResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /memes [get]
func (h Handler) ListEntriesHandler(ctx context.Context, req httptransport.ListEntriesRequest) (httptransport.ListEntriesResponse, error) {
	query := queries.ListEntriesQuery{Fresh: req.Fresh}
	if strings.TrimSpace(req.Viewer) != "" {
		viewer, err := parseAddress(req.Viewer)
		if err != nil {
			return httptransport.ListEntriesResponse{}, err
		}
		query.Viewer = &viewer
	}
	items, err := h.Catalog.ListEntries(ctx, query)
	if err != nil {
		return httptransport.ListEntriesResponse{}, err
	}
	resp := httptransport.ListEntriesResponse{Items: make([]httptransport.EntryResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, h.mapEntry(item))
	}
	return resp, nil
}

// GetEntryHandler godoc
// @Summary Get one contest entry
// @Tags meme-contest
// @Produce json
// @Param id path int true "Entry id"
// @Param fresh query bool false "Bypass the entry cache"
// @Success 200 {object} httptransport.EntryResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /memes/{id} [get]
func (h Handler) GetEntryHandler(ctx context.Context, entryID uint64, fresh bool) (httptransport.EntryResponse, error) {
	entry, err := h.Catalog.GetEntry(ctx, entryID, fresh)
	if err != nil {
		return httptransport.EntryResponse{}, err
	}
	return h.mapEntry(entry), nil
}

// VoteHandler godoc
// @Summary Vote for an entry
// @Description Pays the vote cost, waits for confirmation and credits the viewer's ranking. A vote whose confirmation is not observed returns 202 with outcome pending.
// @Tags meme-contest
// @Accept json
// @Produce json
// @Param id path int true "Entry id"
// @Param body body httptransport.VoteRequest true "Vote request"
// @Success 200 {object} httptransport.VoteResponse
// @Success 202 {object} httptransport.VoteResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /memes/{id}/vote [post]
func (h Handler) VoteHandler(ctx context.Context, entryID uint64, req httptransport.VoteRequest) (httptransport.VoteResponse, error) {
	viewer, err := parseAddress(req.Viewer)
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	logger := application.ResolveLogger(h.Logger)
	logger.Info("vote request received",
		"event", "http_contest_vote_received",
		"module", "meme-contest/contest-service",
		"layer", "transport",
		"entry_id", entryID,
		"viewer", viewer.Hex(),
	)

	result, err := h.Votes.Vote(ctx, commands.VoteCommand{EntryID: entryID, Viewer: viewer})
	resp := httptransport.VoteResponse{
		EntryID:      result.EntryID,
		Viewer:       result.Viewer.Hex(),
		Confirmation: string(result.Confirmation),
		Outcome:      string(result.Outcome),
		RankingError: result.RankingError,
		Entry:        h.mapEntry(result.Entry),
	}
	if result.VoteCost != nil {
		resp.VoteCost = result.VoteCost.String()
	}
	if result.TxHash != (common.Hash{}) {
		resp.TxHash = result.TxHash.Hex()
	}
	if result.RankingTxHash != (common.Hash{}) {
		resp.RankingTxHash = result.RankingTxHash.Hex()
	}
	if result.Receipt != nil {
		resp.BlockNumber = result.Receipt.BlockNumber
	}
	if result.Eligibility != nil {
		eligibility := mapEligibility(*result.Eligibility)
		resp.Eligibility = &eligibility
	}
	return resp, err
}

// EligibilityHandler godoc
// @Summary Mint eligibility of an entry
// @Tags meme-contest
// @Produce json
// @Param id path int true "Entry id"
// @Success 200 {object} httptransport.EligibilityResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /memes/{id}/eligibility [get]
func (h Handler) EligibilityHandler(ctx context.Context, entryID uint64) (httptransport.EligibilityResponse, error) {
	eligibility, err := h.Mints.Evaluate(ctx, entryID)
	if err != nil {
		return httptransport.EligibilityResponse{}, err
	}
	return mapEligibility(eligibility), nil
}

// MintHandler godoc
// @Summary Register and mint an eligible entry
// @Description Registers the entry as IP, then mints it. A registration whose mint fails is reported with 502 and resumed through the retry route.
// @Tags meme-contest
// @Produce json
// @Param id path int true "Entry id"
// @Success 200 {object} httptransport.MintResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Failure 502 {object} httptransport.ErrorResponse
// @Router /memes/{id}/mint-nft [post]
func (h Handler) MintHandler(ctx context.Context, entryID uint64) (httptransport.MintResponse, error) {
	result, err := h.Mints.Mint(ctx, commands.MintCommand{EntryID: entryID})
	if err != nil {
		return httptransport.MintResponse{}, err
	}
	return mapMint(result), nil
}

// RetryMintHandler godoc
// @Summary Resume an orphaned mint
// @Tags meme-contest
// @Accept json
// @Produce json
// @Param id path int true "Entry id"
// @Param body body httptransport.RetryMintRequest false "Recorded registration id"
// @Success 200 {object} httptransport.MintResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 502 {object} httptransport.ErrorResponse
// @Router /memes/{id}/mint-nft/retry [post]
func (h Handler) RetryMintHandler(ctx context.Context, entryID uint64, req httptransport.RetryMintRequest) (httptransport.MintResponse, error) {
	result, err := h.Mints.RetryOrphan(ctx, commands.RetryMintCommand{
		EntryID:        entryID,
		RegistrationID: strings.TrimSpace(req.RegistrationID),
	})
	if err != nil {
		return httptransport.MintResponse{}, err
	}
	return mapMint(result), nil
}

// GenerateMemeHandler godoc
// @Summary Generate a meme image
// @Tags meme-contest
// @Accept json
// @Produce json
// @Param body body httptransport.GenerateMemeRequest true "Prompt and style"
// @Success 200 {object} httptransport.GenerateMemeResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 502 {object} httptransport.ErrorResponse
// @Router /memes [post]
func (h Handler) GenerateMemeHandler(ctx context.Context, req httptransport.GenerateMemeRequest) (httptransport.GenerateMemeResponse, error) {
	result, err := h.Memes.GenerateMeme(ctx, commands.GenerateMemeCommand{Prompt: req.Prompt, Style: req.Style})
	if err != nil {
		return httptransport.GenerateMemeResponse{}, err
	}
	return httptransport.GenerateMemeResponse{
		ContentID: result.ContentID,
		ImageURL:  result.ImageURL,
		Prompt:    result.Prompt,
		Style:     result.Style,
	}, nil
}

// SubmitMemeHandler godoc
// @Summary Submit pinned meme content
// @Tags meme-contest
// @Accept json
// @Produce json
// @Param body body httptransport.SubmitMemeRequest true "Submission"
// @Success 200 {object} httptransport.SubmitMemeResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 502 {object} httptransport.ErrorResponse
// @Router /memes/submit [post]
func (h Handler) SubmitMemeHandler(ctx context.Context, req httptransport.SubmitMemeRequest) (httptransport.SubmitMemeResponse, error) {
	creator, err := parseAddress(req.UserAddress)
	if err != nil {
		return httptransport.SubmitMemeResponse{}, err
	}
	result, err := h.Memes.SubmitMeme(ctx, commands.SubmitMemeCommand{
		Creator:     creator,
		Title:       req.Title,
		Description: req.Description,
		SocialLink:  req.SocialLinks,
		NetworkID:   req.NetworkID,
		ContentID:   req.FileID,
		Tags:        req.Tags,
		Category:    req.Category,
		AIGenerated: req.AIGenerated,
		RegisterIP:  req.RegisterIP,
	})
	if err != nil {
		return httptransport.SubmitMemeResponse{}, err
	}
	resp := httptransport.SubmitMemeResponse{
		FileID:      result.ContentID,
		ImageURL:    result.ImageURL,
		MetadataID:  result.MetadataID,
		MetadataURL: result.MetadataURL,
	}
	if result.Registration != nil {
		resp.Registration = &httptransport.RegistrationResponse{IPID: result.Registration.IPID, TxHash: result.Registration.TxHash}
	}
	return resp, nil
}

// RegisterMemeHandler godoc
// @Summary Register content as IP
// @Tags meme-contest
// @Accept json
// @Produce json
// @Param body body httptransport.RegisterMemeRequest true "Content to register"
// @Success 200 {object} httptransport.RegistrationResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 502 {object} httptransport.ErrorResponse
// @Router /memes/register [post]
func (h Handler) RegisterMemeHandler(ctx context.Context, req httptransport.RegisterMemeRequest) (httptransport.RegistrationResponse, error) {
	registration, err := h.Memes.RegisterMeme(ctx, commands.RegisterMemeCommand{
		Title:       req.Title,
		Description: req.Description,
		Creator:     req.Creator,
		ImageURL:    req.ImageURL,
		Tags:        req.Tags,
		Category:    req.Category,
		AIGenerated: req.AIGenerated,
	})
	if err != nil {
		return httptransport.RegistrationResponse{}, err
	}
	return httptransport.RegistrationResponse{IPID: registration.IPID, TxHash: registration.TxHash}, nil
}

// FetchContentHandler godoc
// @Summary Fetch pinned content
// @Description Reads content by CID through the primary gateway, falling back to the public gateway.
// @Tags meme-contest
// @Produce octet-stream
// @Param cid path string true "Content id"
// @Success 200 {string} string "raw content"
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /metadata/{cid} [get]
func (h Handler) FetchContentHandler(ctx context.Context, id string) ([]byte, string, error) {
	return h.Memes.FetchContent(ctx, id)
}

func (h Handler) mapEntry(entry entities.Entry) httptransport.EntryResponse {
	resp := httptransport.EntryResponse{
		ID:            entry.ID,
		Creator:       entry.Creator.Hex(),
		ContentHash:   entry.ContentHash,
		Title:         entry.Title,
		Description:   entry.Description,
		SocialLink:    entry.SocialLink,
		NetworkID:     entry.NetworkID,
		VoteCount:     entry.VoteCount,
		IsActive:      entry.IsActive,
		HasBeenMinted: entry.HasBeenMinted,
		HasVoted:      entry.HasVoted,
		VotePending:   entry.VotePending,
	}
	if !entry.SubmissionTime.IsZero() {
		resp.SubmissionTime = entry.SubmissionTime.UTC().Format(time.RFC3339)
	}
	if entry.ContentHash != "" && h.Memes.Storage != nil {
		resp.ImageURL = h.Memes.Storage.GatewayURL(entry.ContentHash)
	}
	return resp
}

func mapEligibility(eligibility entities.Eligibility) httptransport.EligibilityResponse {
	return httptransport.EligibilityResponse{
		EntryID:        eligibility.EntryID,
		State:          string(eligibility.State),
		VoteCount:      eligibility.VoteCount,
		MinVotesForWin: eligibility.MinVotesForWin,
		VotesNeeded:    eligibility.VotesNeeded,
		RegistrationID: eligibility.RegistrationID,
	}
}

func mapMint(result commands.MintResult) httptransport.MintResponse {
	return httptransport.MintResponse{
		EntryID:            result.EntryID,
		State:              string(result.State),
		RegistrationID:     result.RegistrationID,
		RegistrationTxHash: result.RegistrationTxHash,
		MintTxHash:         result.MintTxHash,
		Resumed:            result.Resumed,
	}
}

func parseAddress(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, domainerrors.ErrInvalidViewer
	}
	address := common.HexToAddress(raw)
	if address == (common.Address{}) {
		return common.Address{}, domainerrors.ErrInvalidViewer
	}
	return address, nil
}
