package ipfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"artix/contexts/meme-contest/contest-service/domain/entities"
	domainerrors "artix/contexts/meme-contest/contest-service/domain/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const maxContentBytes = 20 << 20

// ObjectAPI is the subset of the S3 client the pinning bucket needs.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKey       string
	SecretKey       string
	Gateway         string
	FallbackGateway string
	FetchAttempts   uint64
}

// Storage pins content through an S3-compatible IPFS pinning bucket and reads
// it back through public gateways. The bucket reports the CID of every object
// in its "cid" metadata.
type Storage struct {
	objects         ObjectAPI
	bucket          string
	gateway         string
	fallbackGateway string
	fetchAttempts   uint64
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewStorage(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})
	return NewStorageWithClient(client, cfg, &http.Client{Timeout: 30 * time.Second}, logger), nil
}

func NewStorageWithClient(objects ObjectAPI, cfg Config, httpClient *http.Client, logger *slog.Logger) *Storage {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	attempts := cfg.FetchAttempts
	if attempts == 0 {
		attempts = 2
	}
	return &Storage{
		objects:         objects,
		bucket:          cfg.Bucket,
		gateway:         strings.TrimRight(cfg.Gateway, "/"),
		fallbackGateway: strings.TrimRight(cfg.FallbackGateway, "/"),
		fetchAttempts:   attempts,
		httpClient:      httpClient,
		logger:          logger,
	}
}

func (s *Storage) Upload(ctx context.Context, data []byte, mimeType string) (entities.StoredObject, error) {
	return s.put(ctx, "memes/"+uuid.NewString()+extension(mimeType), data, mimeType)
}

func (s *Storage) StoreMetadata(ctx context.Context, document []byte) (entities.StoredObject, error) {
	return s.put(ctx, "metadata/"+uuid.NewString()+".json", document, "application/json")
}

func (s *Storage) GatewayURL(id string) string {
	return s.gateway + "/ipfs/" + id
}

// Fetch tries the primary gateway, then the fallback gateway with the same
// CID. Each gateway gets a bounded number of retries for transient errors.
func (s *Storage) Fetch(ctx context.Context, id string) ([]byte, string, error) {
	gateways := []string{s.gateway}
	if s.fallbackGateway != "" && s.fallbackGateway != s.gateway {
		gateways = append(gateways, s.fallbackGateway)
	}

	var lastErr error
	for i, gateway := range gateways {
		data, contentType, err := s.fetchFrom(ctx, gateway, id)
		if err == nil {
			return data, contentType, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if i+1 < len(gateways) {
			s.logger.Warn("gateway fetch failed, trying fallback",
				"event", "contest_content_gateway_failed",
				"module", "meme-contest/contest-service",
				"layer", "adapter",
				"gateway", gateway,
				"content_id", id,
				"error", err.Error(),
			)
		}
	}
	if errors.Is(lastErr, domainerrors.ErrContentNotFound) {
		return nil, "", lastErr
	}
	return nil, "", fmt.Errorf("%w: %w", domainerrors.ErrStorageUnavailable, lastErr)
}

func (s *Storage) fetchFrom(ctx context.Context, gateway string, id string) ([]byte, string, error) {
	backoff := retry.WithMaxRetries(s.fetchAttempts, retry.NewExponential(250*time.Millisecond))
	var (
		data        []byte
		contentType string
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, gateway+"/ipfs/"+id, nil)
		if err != nil {
			return err
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return domainerrors.ErrContentNotFound
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return retry.RetryableError(fmt.Errorf("gateway %s returned %d", gateway, resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("gateway %s returned %d", gateway, resp.StatusCode)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxContentBytes))
		if err != nil {
			return retry.RetryableError(err)
		}
		data = body
		contentType = resp.Header.Get("Content-Type")
		return nil
	})
	return data, contentType, err
}

func (s *Storage) put(ctx context.Context, key string, data []byte, mimeType string) (entities.StoredObject, error) {
	_, err := s.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return entities.StoredObject{}, fmt.Errorf("%w: put %s: %w", domainerrors.ErrStorageUnavailable, key, err)
	}
	head, err := s.objects.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return entities.StoredObject{}, fmt.Errorf("%w: head %s: %w", domainerrors.ErrStorageUnavailable, key, err)
	}
	cid := head.Metadata["cid"]
	if cid == "" {
		return entities.StoredObject{}, fmt.Errorf("%w: object %s has no cid", domainerrors.ErrStorageUnavailable, key)
	}
	s.logger.Info("content pinned",
		"event", "contest_content_pinned",
		"module", "meme-contest/contest-service",
		"layer", "adapter",
		"key", key,
		"cid", cid,
		"size_bytes", len(data),
	)
	return entities.StoredObject{ID: cid, URL: s.GatewayURL(cid)}, nil
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	return ""
}
