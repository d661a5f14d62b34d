package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"artix/contexts/meme-contest/contest-service/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterPostsMetadataReferences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ip-assets", r.URL.Path)
		var body registerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ipfs://meta", body.IPMetadataURI)
		assert.Equal(t, "0xnft", body.NFTMetadataHash)
		assert.True(t, body.AllowDuplicates)
		_, _ = w.Write([]byte(`{"ipId":"0xip","txHash":"0xtx"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", server.Client())
	registration, err := client.Register(context.Background(), entities.RegistrationRequest{
		Title:           "meme",
		MetadataURI:     "ipfs://meta",
		NFTMetadataHash: "0xnft",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.Registration{IPID: "0xip", TxHash: "0xtx"}, registration)
}

func TestRegisterSurfacesServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"spg reverted"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, server.Client()).Register(context.Background(), entities.RegistrationRequest{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "spg reverted")
}

func TestRegisterRequiresIPID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, server.Client()).Register(context.Background(), entities.RegistrationRequest{Title: "x"})
	assert.Error(t, err)
}
