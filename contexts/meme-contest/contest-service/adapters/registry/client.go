package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"artix/contexts/meme-contest/contest-service/domain/entities"
)

// Client registers content with an IP registration service that mints the
// registry NFT and returns the new IP asset id.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

type registerRequest struct {
	EntryID         uint64 `json:"entryId,omitempty"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Creator         string `json:"creator,omitempty"`
	ImageURL        string `json:"imageUrl"`
	IPMetadataURI   string `json:"ipMetadataURI"`
	IPMetadataHash  string `json:"ipMetadataHash"`
	NFTMetadataURI  string `json:"nftMetadataURI"`
	NFTMetadataHash string `json:"nftMetadataHash"`
	AllowDuplicates bool   `json:"allowDuplicates"`
}

type registerResponse struct {
	IPID   string `json:"ipId"`
	TxHash string `json:"txHash"`
	Error  string `json:"error,omitempty"`
}

func (c *Client) Register(ctx context.Context, req entities.RegistrationRequest) (entities.Registration, error) {
	raw, err := json.Marshal(registerRequest{
		EntryID:         req.EntryID,
		Title:           req.Title,
		Description:     req.Description,
		Creator:         req.Creator,
		ImageURL:        req.ImageURL,
		IPMetadataURI:   req.MetadataURI,
		IPMetadataHash:  req.MetadataHash,
		NFTMetadataURI:  req.NFTMetadataURI,
		NFTMetadataHash: req.NFTMetadataHash,
		AllowDuplicates: true,
	})
	if err != nil {
		return entities.Registration{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ip-assets", bytes.NewReader(raw))
	if err != nil {
		return entities.Registration{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return entities.Registration{}, fmt.Errorf("ip registry request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return entities.Registration{}, fmt.Errorf("ip registry response: %w", err)
	}
	var decoded registerResponse
	_ = json.Unmarshal(body, &decoded)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := decoded.Error
		if detail == "" {
			detail = strings.TrimSpace(string(body))
		}
		return entities.Registration{}, fmt.Errorf("ip registry returned %d: %s", resp.StatusCode, detail)
	}
	if decoded.IPID == "" {
		return entities.Registration{}, fmt.Errorf("ip registry returned no ip id")
	}
	return entities.Registration{IPID: decoded.IPID, TxHash: decoded.TxHash}, nil
}
