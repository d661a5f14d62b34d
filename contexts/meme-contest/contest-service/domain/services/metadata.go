package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"artix/contexts/meme-contest/contest-service/domain/entities"
)

type MetadataAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type IPMetadata struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	WatermarkImg string              `json:"watermarkImg,omitempty"`
	Creators     []IPCreator         `json:"creators,omitempty"`
	Attributes   []MetadataAttribute `json:"attributes"`
}

type IPCreator struct {
	Name                string `json:"name"`
	Address             string `json:"address"`
	ContributionPercent int    `json:"contributionPercent"`
}

// NFTMetadata follows the ERC-721 metadata JSON schema.
type NFTMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

func BuildIPMetadata(content entities.MemeContent) IPMetadata {
	attributes := []MetadataAttribute{
		{Key: "Category", Value: defaultString(content.Category, "meme")},
		{Key: "AI Generated", Value: strconv.FormatBool(content.AIGenerated)},
	}
	for _, tag := range content.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			attributes = append(attributes, MetadataAttribute{Key: "Tag", Value: tag})
		}
	}

	metadata := IPMetadata{
		Title:        content.Title,
		Description:  content.Description,
		WatermarkImg: content.ImageURL,
		Attributes:   attributes,
	}
	if content.Creator != "" {
		metadata.Creators = []IPCreator{{Name: content.Creator, Address: content.Creator, ContributionPercent: 100}}
	}
	return metadata
}

func BuildNFTMetadata(content entities.MemeContent) NFTMetadata {
	return NFTMetadata{
		Name:        content.Title,
		Description: content.Description,
		Image:       content.ImageURL,
	}
}

// Digest returns the JSON encoding of v and its 0x-prefixed sha256.
func Digest(v any) ([]byte, string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(raw)
	return raw, "0x" + hex.EncodeToString(sum[:]), nil
}

// BuildPrompt applies a meme style to a user prompt.
func BuildPrompt(style entities.MemeStyle, prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if style.Prefix == "" {
		return prompt
	}
	return style.Prefix + " " + prompt
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
