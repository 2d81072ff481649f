package image

import (
	"context"

	"stickerforge/internal/providers/genai"
)

// GeminiGenerator produces stickers through the Gemini image model.
type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Ready() error {
	return g.client.Ready()
}

// Model returns the configured model identifier.
func (g *GeminiGenerator) Model() string {
	return g.client.Model()
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (Asset, error) {
	if err := g.client.Ready(); err != nil {
		return Asset{}, err
	}
	ref, err := referenceBytes(req)
	if err != nil {
		return Asset{}, err
	}
	img, err := g.client.GenerateImage(ctx, genai.ImageRequest{
		Prompt: BuildStickerPrompt(req.Label),
		Reference: &genai.InlineImage{
			MimeType: req.Reference.MediaType,
			Data:     ref,
		},
		AspectRatio: SquareAspectRatio,
		RequestID:   req.RequestID,
	})
	if err != nil {
		return Asset{}, err
	}
	return Asset{Data: img.Data, Format: img.MimeType}, nil
}

var _ Generator = (*GeminiGenerator)(nil)
