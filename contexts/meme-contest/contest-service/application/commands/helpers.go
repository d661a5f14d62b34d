package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"artix/contexts/meme-contest/contest-service/domain/entities"
	"artix/contexts/meme-contest/contest-service/domain/services"
	"artix/contexts/meme-contest/contest-service/ports"
	"artix/internal/shared/events"
)

const sourceService = "contest-service"

// publish is best effort: the ledger is the source of truth and a lost
// event only affects the audit trail.
func publish(
	ctx context.Context,
	publisher ports.EventPublisher,
	ids ports.IDGenerator,
	now time.Time,
	logger *slog.Logger,
	eventType string,
	entryID uint64,
	payload map[string]any,
) {
	if publisher == nil {
		return
	}
	eventID := eventType + ":" + strconv.FormatUint(entryID, 10) + ":" + strconv.FormatInt(now.UnixNano(), 10)
	if ids != nil {
		if id, err := ids.NewID(ctx); err == nil {
			eventID = id
		}
	}
	envelope := events.Envelope{
		EventID:        eventID,
		EventType:      eventType,
		SourceService:  sourceService,
		OccurredAtUTC:  now,
		EntityType:     "entry",
		EntityID:       strconv.FormatUint(entryID, 10),
		PayloadVersion: 1,
		Payload:        payload,
	}
	if err := publisher.Publish(ctx, events.TopicContest, envelope); err != nil {
		logger.Warn("event publish failed",
			"event", "contest_event_publish_failed",
			"module", "meme-contest/contest-service",
			"layer", "application",
			"event_type", eventType,
			"entry_id", entryID,
			"error", err.Error(),
		)
	}
}

// prepareRegistration stores the IP and NFT metadata documents and returns a
// registration request pointing at them.
func prepareRegistration(ctx context.Context, storage ports.ContentStorage, content entities.MemeContent) (entities.RegistrationRequest, error) {
	ipDocument, ipHash, err := services.Digest(services.BuildIPMetadata(content))
	if err != nil {
		return entities.RegistrationRequest{}, fmt.Errorf("encode ip metadata: %w", err)
	}
	nftDocument, nftHash, err := services.Digest(services.BuildNFTMetadata(content))
	if err != nil {
		return entities.RegistrationRequest{}, fmt.Errorf("encode nft metadata: %w", err)
	}

	ipObject, err := storage.StoreMetadata(ctx, ipDocument)
	if err != nil {
		return entities.RegistrationRequest{}, fmt.Errorf("store ip metadata: %w", err)
	}
	nftObject, err := storage.StoreMetadata(ctx, nftDocument)
	if err != nil {
		return entities.RegistrationRequest{}, fmt.Errorf("store nft metadata: %w", err)
	}

	return entities.RegistrationRequest{
		Title:           content.Title,
		Description:     content.Description,
		Creator:         content.Creator,
		ImageURL:        content.ImageURL,
		MetadataURI:     ipObject.URL,
		MetadataHash:    ipHash,
		NFTMetadataURI:  nftObject.URL,
		NFTMetadataHash: nftHash,
	}, nil
}
