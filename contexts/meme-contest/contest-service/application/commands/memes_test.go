package commands_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"artix/contexts/meme-contest/contest-service/application/commands"
	domainerrors "artix/contexts/meme-contest/contest-service/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMemeAppliesStyleAndStoresImage(t *testing.T) {
	module := newModule(t)
	memes := module.Handler.Memes

	generated, err := memes.GenerateMeme(context.Background(), commands.GenerateMemeCommand{
		Prompt: "cat reviewing pull requests",
		Style:  "Dank Meme",
	})
	require.NoError(t, err)

	assert.Equal(t, "Dank Meme", generated.Style)
	assert.Equal(t, "cat reviewing pull requests, high contrast, bold caption", generated.Prompt)
	assert.Equal(t, "image/png", generated.MimeType)
	assert.True(t, strings.HasPrefix(generated.ContentID, "bafk"))

	data, mimeType, err := memes.FetchContent(context.Background(), generated.ContentID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Contains(t, string(data), "dank meme style")
}

func TestGenerateMemeFallsBackToRawPrompt(t *testing.T) {
	module := newModule(t)
	module.Store.FailEnhance(errors.New("llm overloaded"))

	generated, err := module.Handler.Memes.GenerateMeme(context.Background(), commands.GenerateMemeCommand{Prompt: "dog on a skateboard"})
	require.NoError(t, err)
	assert.Equal(t, "dog on a skateboard", generated.Prompt)
	assert.Equal(t, "Classic Meme", generated.Style)
}

func TestGenerateMemeValidatesRequest(t *testing.T) {
	module := newModule(t)
	memes := module.Handler.Memes

	_, err := memes.GenerateMeme(context.Background(), commands.GenerateMemeCommand{Prompt: "   "})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidMemeRequest)

	_, err = memes.GenerateMeme(context.Background(), commands.GenerateMemeCommand{Prompt: "x", Style: "Vaporwave"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidMemeRequest)
}

func TestGenerateMemeReportsGeneratorFailure(t *testing.T) {
	module := newModule(t)
	module.Store.FailGenerate(errors.New("quota exceeded"))

	_, err := module.Handler.Memes.GenerateMeme(context.Background(), commands.GenerateMemeCommand{Prompt: "frog"})
	assert.ErrorIs(t, err, domainerrors.ErrDependencyFailed)
}

func TestSubmitMemeStoresMetadataAndRegisters(t *testing.T) {
	module := newModule(t)
	memes := module.Handler.Memes
	ctx := context.Background()

	generated, err := memes.GenerateMeme(ctx, commands.GenerateMemeCommand{Prompt: "moon"})
	require.NoError(t, err)

	submitted, err := memes.SubmitMeme(ctx, commands.SubmitMemeCommand{
		Creator:    creator,
		Title:      "  To the moon ",
		NetworkID:  84532,
		ContentID:  generated.ContentID,
		Tags:       []string{"moon", " ", "rocket"},
		RegisterIP: true,
	})
	require.NoError(t, err)
	require.NotNil(t, submitted.Registration)
	assert.Equal(t, "ip-1", submitted.Registration.IPID)
	assert.Equal(t, generated.ContentID, submitted.ContentID)

	raw, mimeType, err := memes.FetchContent(ctx, submitted.MetadataID)
	require.NoError(t, err)
	assert.Equal(t, "application/json", mimeType)

	var document map[string]any
	require.NoError(t, json.Unmarshal(raw, &document))
	assert.Equal(t, "To the moon", document["title"])
	assert.Equal(t, "User Generated", document["category"])
	assert.Equal(t, []any{"moon", "rocket"}, document["tags"])
	assert.Equal(t, creator.Hex(), document["creator"])
}

func TestSubmitMemeWithoutRegistration(t *testing.T) {
	module := newModule(t)

	submitted, err := module.Handler.Memes.SubmitMeme(context.Background(), commands.SubmitMemeCommand{
		Creator:   creator,
		Title:     "Standalone",
		ContentID: "bafkexisting",
	})
	require.NoError(t, err)
	assert.Nil(t, submitted.Registration)
	assert.Equal(t, 0, module.Store.RegistrationCalls())
}

func TestSubmitMemeValidatesFields(t *testing.T) {
	module := newModule(t)
	memes := module.Handler.Memes

	cases := []commands.SubmitMemeCommand{
		{Title: "t", ContentID: "c"},
		{Creator: creator, ContentID: "c"},
		{Creator: creator, Title: "t"},
	}
	for _, cmd := range cases {
		_, err := memes.SubmitMeme(context.Background(), cmd)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidMemeRequest)
	}
}

func TestRegisterMemeWrapsRegistryFailure(t *testing.T) {
	module := newModule(t)
	module.Store.FailRegistration(errors.New("spg contract reverted"))

	_, err := module.Handler.Memes.RegisterMeme(context.Background(), commands.RegisterMemeCommand{
		Title:    "Registry down",
		ImageURL: "memory://ipfs/bafkx",
	})
	assert.ErrorIs(t, err, domainerrors.ErrRegistrationFailed)
}

func TestFetchContentNotFound(t *testing.T) {
	module := newModule(t)

	_, _, err := module.Handler.Memes.FetchContent(context.Background(), "bafkmissing")
	assert.ErrorIs(t, err, domainerrors.ErrContentNotFound)
}
