package image

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"stickerforge/internal/domain"
	"stickerforge/internal/infra"
)

// OpenAIOptions configures the OpenAI image edit backend.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// OpenAIGenerator produces stickers through the OpenAI image edit endpoint,
// using the reference as the image being edited.
type OpenAIGenerator struct {
	client *openai.Client
	apiKey string
	model  string
	logger *infra.Logger
}

func NewOpenAIGenerator(opts OpenAIOptions) *OpenAIGenerator {
	cfg := openai.DefaultConfig(strings.TrimSpace(opts.APIKey))
	if base := strings.TrimRight(opts.BaseURL, "/"); base != "" {
		cfg.BaseURL = base
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = infra.DefaultOpenAIModel
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		apiKey: strings.TrimSpace(opts.APIKey),
		model:  model,
		logger: logger,
	}
}

func (g *OpenAIGenerator) Ready() error {
	if g.apiKey == "" {
		return fmt.Errorf("%w: API Key is missing. Please set OPENAI_API_KEY in the environment", domain.ErrConfiguration)
	}
	return nil
}

// Model returns the configured model identifier.
func (g *OpenAIGenerator) Model() string {
	return g.model
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerateRequest) (Asset, error) {
	if err := g.Ready(); err != nil {
		return Asset{}, err
	}
	ref, err := referenceBytes(req)
	if err != nil {
		return Asset{}, err
	}

	file, cleanup, err := spoolReference(ref, req.Reference.MediaType)
	if err != nil {
		return Asset{}, err
	}
	defer cleanup()

	edit := openai.ImageEditRequest{
		Image:  file,
		Prompt: BuildStickerPrompt(req.Label),
		Model:  g.model,
		N:      1,
		Size:   openai.CreateImageSize1024x1024,
	}
	// gpt-image models always answer with base64 and reject the parameter.
	if !strings.HasPrefix(g.model, "gpt-image") {
		edit.ResponseFormat = openai.CreateImageResponseFormatB64JSON
	}

	resp, err := g.client.CreateEditImage(ctx, edit)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			g.logger.Warn().
				Str("request_id", req.RequestID).
				Str("model", g.model).
				Int("status", apiErr.HTTPStatusCode).
				Msg("openai: image edit rejected")
		}
		return Asset{}, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return Asset{}, domain.ErrEmptyResponse
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: decode b64_json: %v", domain.ErrGeneration, err)
	}
	g.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", g.model).
		Int("bytes", len(data)).
		Msg("openai: generated image")
	return Asset{Data: data, Format: "image/png"}, nil
}

// spoolReference writes the reference to a temporary file with an extension
// matching its media type, since the edit endpoint infers the type from the
// multipart filename.
func spoolReference(data []byte, mediaType string) (*os.File, func(), error) {
	ext := ".png"
	switch mediaType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	}
	file, err := os.CreateTemp("", "stickerforge-ref-*"+ext)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	cleanup := func() {
		_ = file.Close()
		_ = os.Remove(file.Name())
	}
	if _, err := file.Write(data); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	return file, cleanup, nil
}

var _ Generator = (*OpenAIGenerator)(nil)
