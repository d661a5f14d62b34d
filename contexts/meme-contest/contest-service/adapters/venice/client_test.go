package venice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"artix/contexts/meme-contest/contest-service/domain/entities"
	domainerrors "artix/contexts/meme-contest/contest-service/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnhancePromptReturnsFirstChoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, chatModel, req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "penguin")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  a penguin in sunglasses  "}}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "secret"}, server.Client())
	enhanced, err := client.EnhancePrompt(context.Background(), "penguin")
	require.NoError(t, err)
	assert.Equal(t, "a penguin in sunglasses", enhanced)
}

func TestGenerateImageSendsStylePreset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/image/generate", r.URL.Path)
		var req imageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, imageModel, req.Model)
		assert.Equal(t, "Comic Book", req.StylePreset)
		assert.Equal(t, 1024, req.Width)
		assert.Equal(t, 30, req.Steps)
		_ = json.NewEncoder(w).Encode(imageResponse{Images: []string{base64.StdEncoding.EncodeToString([]byte("png"))}})
	}))
	defer server.Close()

	style, ok := entities.LookupStyle("Dank Meme")
	require.True(t, ok)
	client := NewClient(Config{BaseURL: server.URL}, server.Client())
	image, err := client.GenerateImage(context.Background(), "frog", style)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), image.Data)
	assert.Equal(t, "image/png", image.MimeType)
}

func TestGenerateImageReportsUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, server.Client())
	_, err := client.GenerateImage(context.Background(), "frog", entities.MemeStyle{})
	assert.ErrorIs(t, err, domainerrors.ErrDependencyFailed)
	assert.Contains(t, err.Error(), "429")
}
