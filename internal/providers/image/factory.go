package image

import (
	"fmt"

	"stickerforge/internal/infra"
	"stickerforge/internal/providers/genai"
)

// NewFromConfig selects the provider named by IMAGE_PROVIDER. A missing
// credential still yields a generator; its Ready method reports the problem.
func NewFromConfig(cfg *infra.Config, logger *infra.Logger) (Generator, error) {
	httpClient := genai.NewHTTPClient(cfg.GenerationTimeout)
	switch cfg.ImageProvider {
	case "openai":
		return NewOpenAIGenerator(OpenAIOptions{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			HTTPClient: httpClient,
			Logger:     logger,
		}), nil
	case "gemini", "":
		client, err := genai.NewClient(genai.Options{
			APIKey:     cfg.GeminiAPIKey,
			BaseURL:    cfg.GeminiBaseURL,
			Model:      cfg.GeminiModel,
			HTTPClient: httpClient,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return NewGeminiGenerator(client), nil
	default:
		return nil, fmt.Errorf("image: unknown provider %q", cfg.ImageProvider)
	}
}
