package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"stickerforge/internal/domain"
	"stickerforge/internal/export"
	"stickerforge/internal/infra"
	"stickerforge/internal/labels"
	"stickerforge/internal/sticker"
)

// App carries the dependencies shared by all handlers.
type App struct {
	Session *sticker.Session
	Logger  *infra.Logger

	// ctx bounds background batch and retry work; cancelling it stops them.
	ctx context.Context
}

func NewApp(ctx context.Context, session *sticker.Session, logger *infra.Logger) *App {
	if logger == nil {
		logger = infra.NopLogger()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &App{Session: session, Logger: logger, ctx: ctx}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// fail maps a domain or orchestrator error onto the HTTP error envelope.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		a.Logger.Error().
			Err(err).
			Str("path", r.URL.Path).
			Msg("api: request failed")
	}
	a.error(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrReferenceRequired):
		return http.StatusBadRequest, "reference_required"
	case errors.Is(err, labels.ErrInvalid):
		return http.StatusBadRequest, "invalid_labels"
	case errors.Is(err, domain.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType, "unsupported_media_type"
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusServiceUnavailable, "not_configured"
	case errors.Is(err, sticker.ErrBatchRunning):
		return http.StatusConflict, "batch_running"
	case errors.Is(err, sticker.ErrJobBusy):
		return http.StatusConflict, "job_busy"
	case errors.Is(err, export.ErrNoCompletedJobs):
		return http.StatusNotFound, "nothing_to_export"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrIO):
		return http.StatusBadRequest, "bad_upload"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
