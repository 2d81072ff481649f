package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrReferenceRequired = errors.New("reference image required")
	ErrUnsupportedMedia  = errors.New("unsupported media type")

	// ErrConfiguration is fatal for a batch and surfaces before any job starts.
	ErrConfiguration = errors.New("configuration error")

	ErrGeneration     = errors.New("generation failed")
	ErrUnexpectedText = errors.New("unexpected text response")
	ErrEmptyResponse  = errors.New("no image data found in response")
	ErrDecode         = errors.New("failed to decode generated image")
	ErrRender         = errors.New("failed to render sticker")
	ErrIO             = errors.New("failed to read image file")
)

// MaxResponseTextLen bounds how much model prose is kept on a failed job.
const MaxResponseTextLen = 150

// TextResponseError reports a model reply that carried text but no image,
// typically a refusal or safety message.
type TextResponseError struct {
	Text string
}

// NewTextResponseError truncates text to MaxResponseTextLen runes.
func NewTextResponseError(text string) *TextResponseError {
	runes := []rune(text)
	if len(runes) > MaxResponseTextLen {
		runes = runes[:MaxResponseTextLen]
	}
	return &TextResponseError{Text: string(runes)}
}

func (e *TextResponseError) Error() string {
	return fmt.Sprintf("AI returned text instead of image: %q...", e.Text)
}

func (e *TextResponseError) Unwrap() error {
	return ErrUnexpectedText
}

// Reason maps an error onto a short taxonomy label used by logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrUnexpectedText):
		return "unexpected_text"
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrRender):
		return "render"
	case errors.Is(err, ErrIO):
		return "io"
	default:
		return "generation"
	}
}
