package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"stickerforge/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Options{APIKey: "test-key", BaseURL: srv.URL, Model: "gemini-test"})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func writeParts(w http.ResponseWriter, parts ...map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{map[string]any{"content": map[string]any{"role": "model", "parts": parts}}},
	})
}

func TestGenerateImageSendsPromptAndReference(t *testing.T) {
	var got geminiGenerateContentRequest
	var gotPath, gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeParts(w, map[string]any{"inlineData": map[string]any{"mimeType": "image/png", "data": base64.StdEncoding.EncodeToString([]byte("PNGDATA"))}})
	})

	img, err := client.GenerateImage(context.Background(), ImageRequest{
		Prompt:      "make a sticker",
		Reference:   &InlineImage{MimeType: "image/jpeg", Data: []byte("REF")},
		AspectRatio: "1:1",
	})
	if err != nil {
		t.Fatalf("GenerateImage returned error: %v", err)
	}
	if string(img.Data) != "PNGDATA" || img.MimeType != "image/png" {
		t.Fatalf("unexpected image: %+v", img)
	}
	if gotPath != "/models/gemini-test:generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("api key header = %q", gotKey)
	}
	parts := got.Contents[0].Parts
	if len(parts) != 2 || parts[0].Text != "make a sticker" {
		t.Fatalf("unexpected parts: %+v", parts)
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MimeType != "image/jpeg" || parts[1].InlineData.Data != base64.StdEncoding.EncodeToString([]byte("REF")) {
		t.Fatalf("reference not forwarded: %+v", parts[1].InlineData)
	}
	if got.GenerationConfig == nil || got.GenerationConfig.ImageConfig.AspectRatio != "1:1" {
		t.Fatalf("aspect ratio not forwarded: %+v", got.GenerationConfig)
	}
}

func TestGenerateImageReturnsFirstImage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeParts(w,
			map[string]any{"text": "here you go"},
			map[string]any{"inlineData": map[string]any{"mimeType": "image/png", "data": base64.StdEncoding.EncodeToString([]byte("first"))}},
			map[string]any{"inlineData": map[string]any{"mimeType": "image/png", "data": base64.StdEncoding.EncodeToString([]byte("second"))}},
		)
	})
	img, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("GenerateImage returned error: %v", err)
	}
	if string(img.Data) != "first" {
		t.Fatalf("expected first image, got %q", img.Data)
	}
}

func TestGenerateImageTextOnlyResponse(t *testing.T) {
	long := strings.Repeat("I cannot draw that. ", 20)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeParts(w, map[string]any{"text": long[:100]}, map[string]any{"text": long[100:]})
	})
	_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "p"})
	if !errors.Is(err, domain.ErrUnexpectedText) {
		t.Fatalf("expected ErrUnexpectedText, got %v", err)
	}
	var textErr *domain.TextResponseError
	if !errors.As(err, &textErr) {
		t.Fatalf("expected *TextResponseError, got %T", err)
	}
	if textErr.Text != long[:150] {
		t.Fatalf("text = %q, want first 150 chars", textErr.Text)
	}
	if !strings.HasPrefix(err.Error(), "AI returned text instead of image") {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestGenerateImageEmptyResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no candidates", `{"candidates":[]}`},
		{"no parts", `{"candidates":[{"content":{"parts":[]}}]}`},
		{"blocked", `{"promptFeedback":{"blockReason":"SAFETY"}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "p"})
			if !errors.Is(err, domain.ErrEmptyResponse) {
				t.Fatalf("expected ErrEmptyResponse, got %v", err)
			}
		})
	}
}

func TestGenerateImageAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`)
	})
	_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "p"})
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Fatalf("expected API message in error, got %v", err)
	}
}

func TestGenerateImageTransportError(t *testing.T) {
	client, err := NewClient(Options{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("connection reset")
		})},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = client.GenerateImage(context.Background(), ImageRequest{Prompt: "p"})
	if !errors.Is(err, domain.ErrGeneration) || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestGenerateImageMissingKeyFailsBeforeNetwork(t *testing.T) {
	var calls int32
	client, err := NewClient(Options{
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			return nil, errors.New("should not be called")
		})},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if !errors.Is(client.Ready(), domain.ErrConfiguration) {
		t.Fatalf("Ready = %v, want ErrConfiguration", client.Ready())
	}
	_, err = client.GenerateImage(context.Background(), ImageRequest{Prompt: "p"})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("no request should be sent without a credential")
	}
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(Options{APIKey: " k "})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if client.Model() != "gemini-2.5-flash-image" {
		t.Fatalf("Model = %q", client.Model())
	}
	if client.baseURL != defaultBaseURL {
		t.Fatalf("baseURL = %q", client.baseURL)
	}
	if client.Ready() != nil {
		t.Fatalf("Ready = %v", client.Ready())
	}
}
