package venice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"artix/contexts/meme-contest/contest-service/domain/entities"
	domainerrors "artix/contexts/meme-contest/contest-service/domain/errors"
)

const (
	chatModel  = "llama-3.1-405b"
	imageModel = "fluently-xl"

	systemPrompt = "You are an expert meme creator who understands internet culture, viral trends, and what makes images engaging and shareable. Your goal is to enhance meme prompts to create visually appealing and viral-worthy content."
)

type Config struct {
	BaseURL string
	APIKey  string
	Width   int
	Height  int
	Steps   int
}

// Client talks to the Venice chat and image generation endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	width      int
	height     int
	steps      int
	httpClient *http.Client
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	client := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		width:      cfg.Width,
		height:     cfg.Height,
		steps:      cfg.Steps,
		httpClient: httpClient,
	}
	if client.width <= 0 {
		client.width = 1024
	}
	if client.height <= 0 {
		client.height = 1024
	}
	if client.steps <= 0 {
		client.steps = 30
	}
	return client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type imageRequest struct {
	Model          string  `json:"model"`
	Prompt         string  `json:"prompt"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	HideWatermark  bool    `json:"hide_watermark"`
	ReturnBinary   bool    `json:"return_binary"`
	Seed           int     `json:"seed"`
	CfgScale       float64 `json:"cfg_scale"`
	StylePreset    string  `json:"style_preset,omitempty"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	SafeMode       bool    `json:"safe_mode"`
}

type imageResponse struct {
	Images []string `json:"images"`
	Error  string   `json:"error,omitempty"`
}

func (c *Client) EnhancePrompt(ctx context.Context, prompt string) (string, error) {
	var response chatResponse
	err := c.post(ctx, "/chat/completions", chatRequest{
		Model: chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Enhance this meme concept into an image prompt: " + prompt + "\n\nProvide just the enhanced prompt without any explanation or additional text."},
		},
	}, &response)
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion returned no choices", domainerrors.ErrDependencyFailed)
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func (c *Client) GenerateImage(ctx context.Context, prompt string, style entities.MemeStyle) (entities.GeneratedImage, error) {
	var response imageResponse
	err := c.post(ctx, "/image/generate", imageRequest{
		Model:          imageModel,
		Prompt:         prompt,
		Width:          c.width,
		Height:         c.height,
		Steps:          c.steps,
		HideWatermark:  true,
		Seed:           rand.IntN(1_000_000),
		CfgScale:       7.5,
		StylePreset:    style.Preset,
		NegativePrompt: style.NegativePrompt,
	}, &response)
	if err != nil {
		return entities.GeneratedImage{}, err
	}
	if response.Error != "" {
		return entities.GeneratedImage{}, fmt.Errorf("%w: image generation: %s", domainerrors.ErrDependencyFailed, response.Error)
	}
	if len(response.Images) == 0 {
		return entities.GeneratedImage{}, fmt.Errorf("%w: image generation returned no image", domainerrors.ErrDependencyFailed)
	}
	data, err := base64.StdEncoding.DecodeString(response.Images[0])
	if err != nil {
		return entities.GeneratedImage{}, fmt.Errorf("decode image: %w", err)
	}
	return entities.GeneratedImage{Data: data, MimeType: "image/png", Prompt: prompt}, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: venice %s: %w", domainerrors.ErrDependencyFailed, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: venice %s returned %d: %s", domainerrors.ErrDependencyFailed, path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
