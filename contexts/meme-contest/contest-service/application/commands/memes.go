package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "artix/contexts/meme-contest/contest-service/application"
	"artix/contexts/meme-contest/contest-service/domain/entities"
	domainerrors "artix/contexts/meme-contest/contest-service/domain/errors"
	"artix/contexts/meme-contest/contest-service/domain/services"
	"artix/contexts/meme-contest/contest-service/ports"

	"github.com/ethereum/go-ethereum/common"
)

const (
	memeSubmittedEventType  = "contest.meme.submitted"
	memeRegisteredEventType = "contest.meme.registered"
)

type GenerateMemeCommand struct {
	Prompt string
	Style  string
}

type GeneratedMeme struct {
	ContentID string
	ImageURL  string
	Prompt    string
	Style     string
	MimeType  string
}

type SubmitMemeCommand struct {
	Creator     common.Address
	Title       string
	Description string
	SocialLink  string
	NetworkID   uint64
	ContentID   string
	Tags        []string
	Category    string
	AIGenerated bool
	RegisterIP  bool
}

type SubmittedMeme struct {
	ContentID    string
	ImageURL     string
	MetadataID   string
	MetadataURL  string
	Registration *entities.Registration
}

type RegisterMemeCommand struct {
	Title       string
	Description string
	Creator     string
	ImageURL    string
	Tags        []string
	Category    string
	AIGenerated bool
}

// submissionDocument is the metadata stored alongside a submitted image.
type submissionDocument struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Creator     string   `json:"creator"`
	ImageURL    string   `json:"imageUrl"`
	SocialLinks string   `json:"socialLinks,omitempty"`
	NetworkID   uint64   `json:"networkId"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
	AIGenerated bool     `json:"aiGenerated"`
	SubmittedAt string   `json:"submittedAt"`
}

type MemeUseCase struct {
	Generator   ports.ImageGenerator
	Storage     ports.ContentStorage
	Registry    ports.IPRegistry
	Publisher   ports.EventPublisher
	IDGenerator ports.IDGenerator
	Clock       ports.Clock
	Logger      *slog.Logger
}

// GenerateMeme enhances the prompt, renders it in the requested style and
// pins the image. A failed enhancement falls back to the raw prompt.
func (uc MemeUseCase) GenerateMeme(ctx context.Context, cmd GenerateMemeCommand) (GeneratedMeme, error) {
	logger := application.ResolveLogger(uc.Logger)
	prompt := strings.TrimSpace(cmd.Prompt)
	if prompt == "" {
		return GeneratedMeme{}, fmt.Errorf("%w: prompt is required", domainerrors.ErrInvalidMemeRequest)
	}
	style, ok := entities.LookupStyle(cmd.Style)
	if !ok {
		return GeneratedMeme{}, fmt.Errorf("%w: unknown style %q", domainerrors.ErrInvalidMemeRequest, cmd.Style)
	}

	enhanced, err := uc.Generator.EnhancePrompt(ctx, prompt)
	if err != nil || strings.TrimSpace(enhanced) == "" {
		if err != nil {
			logger.Warn("prompt enhancement failed, using original prompt",
				"event", "contest_meme_prompt_enhance_failed",
				"module", "meme-contest/contest-service",
				"layer", "application",
				"error", err.Error(),
			)
		}
		enhanced = prompt
	}

	image, err := uc.Generator.GenerateImage(ctx, services.BuildPrompt(style, enhanced), style)
	if err != nil {
		return GeneratedMeme{}, fmt.Errorf("%w: generate image: %w", domainerrors.ErrDependencyFailed, err)
	}
	mimeType := image.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	stored, err := uc.Storage.Upload(ctx, image.Data, mimeType)
	if err != nil {
		return GeneratedMeme{}, fmt.Errorf("%w: upload image: %w", domainerrors.ErrStorageUnavailable, err)
	}

	logger.Info("meme generated",
		"event", "contest_meme_generated",
		"module", "meme-contest/contest-service",
		"layer", "application",
		"content_id", stored.ID,
		"style", style.Name,
	)
	return GeneratedMeme{
		ContentID: stored.ID,
		ImageURL:  stored.URL,
		Prompt:    enhanced,
		Style:     style.Name,
		MimeType:  mimeType,
	}, nil
}

// SubmitMeme records submission metadata for pinned content and optionally
// registers it as IP. Putting the entry on the ledger is the creator's own
// transaction.
func (uc MemeUseCase) SubmitMeme(ctx context.Context, cmd SubmitMemeCommand) (SubmittedMeme, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := validateSubmission(cmd); err != nil {
		return SubmittedMeme{}, err
	}

	imageURL := uc.Storage.GatewayURL(cmd.ContentID)
	category := strings.TrimSpace(cmd.Category)
	if category == "" {
		category = "User Generated"
	}
	document := submissionDocument{
		Title:       strings.TrimSpace(cmd.Title),
		Description: strings.TrimSpace(cmd.Description),
		Creator:     cmd.Creator.Hex(),
		ImageURL:    imageURL,
		SocialLinks: cmd.SocialLink,
		NetworkID:   cmd.NetworkID,
		Tags:        nonEmpty(cmd.Tags),
		Category:    category,
		AIGenerated: cmd.AIGenerated,
		SubmittedAt: uc.now().Format(time.RFC3339),
	}
	raw, err := json.Marshal(document)
	if err != nil {
		return SubmittedMeme{}, err
	}
	metadata, err := uc.Storage.StoreMetadata(ctx, raw)
	if err != nil {
		return SubmittedMeme{}, fmt.Errorf("%w: store metadata: %w", domainerrors.ErrStorageUnavailable, err)
	}

	result := SubmittedMeme{
		ContentID:   cmd.ContentID,
		ImageURL:    imageURL,
		MetadataID:  metadata.ID,
		MetadataURL: metadata.URL,
	}
	if cmd.RegisterIP {
		registration, err := uc.RegisterMeme(ctx, RegisterMemeCommand{
			Title:       document.Title,
			Description: document.Description,
			Creator:     document.Creator,
			ImageURL:    imageURL,
			Tags:        document.Tags,
			Category:    category,
			AIGenerated: cmd.AIGenerated,
		})
		if err != nil {
			return result, err
		}
		result.Registration = &registration
	}

	publish(ctx, uc.Publisher, uc.IDGenerator, uc.now(), logger, memeSubmittedEventType, 0, map[string]any{
		"content_id":  cmd.ContentID,
		"metadata_id": metadata.ID,
		"creator":     document.Creator,
		"network_id":  cmd.NetworkID,
	})
	logger.Info("meme submitted",
		"event", "contest_meme_submitted",
		"module", "meme-contest/contest-service",
		"layer", "application",
		"content_id", cmd.ContentID,
		"metadata_id", metadata.ID,
		"registered", result.Registration != nil,
	)
	return result, nil
}

// RegisterMeme registers arbitrary content with the IP registry.
func (uc MemeUseCase) RegisterMeme(ctx context.Context, cmd RegisterMemeCommand) (entities.Registration, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.Title) == "" || strings.TrimSpace(cmd.ImageURL) == "" {
		return entities.Registration{}, fmt.Errorf("%w: title and image url are required", domainerrors.ErrInvalidMemeRequest)
	}

	req, err := prepareRegistration(ctx, uc.Storage, entities.MemeContent{
		Title:       cmd.Title,
		Description: cmd.Description,
		Creator:     cmd.Creator,
		ImageURL:    cmd.ImageURL,
		Tags:        cmd.Tags,
		Category:    cmd.Category,
		AIGenerated: cmd.AIGenerated,
	})
	if err != nil {
		return entities.Registration{}, fmt.Errorf("%w: %w", domainerrors.ErrRegistrationFailed, err)
	}
	registration, err := uc.Registry.Register(ctx, req)
	if err != nil {
		logger.Error("ip registration failed",
			"event", "contest_meme_registration_failed",
			"module", "meme-contest/contest-service",
			"layer", "application",
			"error", err.Error(),
		)
		return entities.Registration{}, fmt.Errorf("%w: %w", domainerrors.ErrRegistrationFailed, err)
	}

	publish(ctx, uc.Publisher, uc.IDGenerator, uc.now(), logger, memeRegisteredEventType, 0, map[string]any{
		"ip_id":   registration.IPID,
		"tx_hash": registration.TxHash,
		"title":   cmd.Title,
	})
	logger.Info("meme registered",
		"event", "contest_meme_registered",
		"module", "meme-contest/contest-service",
		"layer", "application",
		"ip_id", registration.IPID,
		"tx_hash", registration.TxHash,
	)
	return registration, nil
}

// FetchContent retrieves pinned content by id through the storage gateways.
func (uc MemeUseCase) FetchContent(ctx context.Context, id string) ([]byte, string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, "", fmt.Errorf("%w: content id is required", domainerrors.ErrInvalidMemeRequest)
	}
	return uc.Storage.Fetch(ctx, id)
}

func (uc MemeUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func validateSubmission(cmd SubmitMemeCommand) error {
	switch {
	case cmd.Creator == (common.Address{}):
		return fmt.Errorf("%w: creator address is required", domainerrors.ErrInvalidMemeRequest)
	case strings.TrimSpace(cmd.Title) == "":
		return fmt.Errorf("%w: title is required", domainerrors.ErrInvalidMemeRequest)
	case strings.TrimSpace(cmd.ContentID) == "":
		return fmt.Errorf("%w: content id is required", domainerrors.ErrInvalidMemeRequest)
	}
	return nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
