package sticker

import (
	"errors"
	"fmt"

	"stickerforge/internal/domain"
)

var (
	// ErrBatchRunning rejects a second batch or a settings change while a
	// batch is processing.
	ErrBatchRunning = errors.New("sticker: a batch is already processing")
	// ErrJobBusy rejects a retry of a job that is pending or generating.
	ErrJobBusy = errors.New("sticker: job is not in a retryable state")
	// ErrJobNotFound matches domain.ErrNotFound.
	ErrJobNotFound = fmt.Errorf("%w: sticker job", domain.ErrNotFound)
)
