package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stickerforge/internal/domain"
	"stickerforge/internal/infra"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a thin facade over the Gemini generateContent endpoint for image
// output. It only knows how to send one prompt plus one inline image and pick
// the first image out of the reply.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// InlineImage is an image payload sent to or returned by the model.
type InlineImage struct {
	MimeType string
	Data     []byte
}

// ImageRequest represents the information required to generate one image.
type ImageRequest struct {
	Prompt      string
	Reference   *InlineImage
	AspectRatio string
	RequestID   string
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string           `json:"responseModalities,omitempty"`
	ImageConfig        *geminiImageConfig `json:"imageConfig,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. A missing API key
// is not an error here; Ready and GenerateImage report it before any network
// call is made.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("genai: invalid base url: %w", err)
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = infra.DefaultGeminiModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}, nil
}

// NewHTTPClient returns a client with the given overall timeout; zero means
// no timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// Ready reports a configuration error when no credential is set.
func (c *Client) Ready() error {
	if c == nil || c.apiKey == "" {
		return fmt.Errorf("%w: API Key is missing. Please set API_KEY or GEMINI_API_KEY in the environment", domain.ErrConfiguration)
	}
	return nil
}

// GenerateImage sends the prompt and reference image and returns the first
// inline image in the first candidate. A reply with only text fails with a
// *domain.TextResponseError; a reply with neither fails with ErrEmptyResponse.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*InlineImage, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parts := []geminiPart{{Text: req.Prompt}}
	if req.Reference != nil && len(req.Reference.Data) > 0 {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: req.Reference.MimeType,
			Data:     base64.StdEncoding.EncodeToString(req.Reference.Data),
		}})
	}
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
			ImageConfig:        &geminiImageConfig{AspectRatio: req.AspectRatio},
		},
	}

	started := time.Now()
	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), payload, &response); err != nil {
		c.logger.Warn().
			Err(err).
			Str("request_id", req.RequestID).
			Str("model", c.model).
			Msg("genai: image generation request failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}

	img, err := extractImage(response)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("request_id", req.RequestID).
			Str("model", c.model).
			Msg("genai: response carried no image")
		return nil, err
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.model).
		Int("bytes", len(img.Data)).
		Dur("elapsed", time.Since(started)).
		Msg("genai: generated image")
	return img, nil
}

func extractImage(response geminiGenerateContentResponse) (*InlineImage, error) {
	if len(response.Candidates) == 0 {
		if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%w: prompt blocked (%s)", domain.ErrEmptyResponse, response.PromptFeedback.BlockReason)
		}
		return nil, domain.ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: decode inline data: %v", domain.ErrGeneration, err)
			}
			return &InlineImage{MimeType: part.InlineData.MimeType, Data: data}, nil
		}
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	if text.Len() > 0 {
		return nil, domain.NewTextResponseError(text.String())
	}
	return nil, domain.ErrEmptyResponse
}

func (c *Client) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	endpoint := strings.TrimRight(c.baseURL, "/") + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		if trimmed := strings.TrimSpace(string(data)); trimmed != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, trimmed)
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}
