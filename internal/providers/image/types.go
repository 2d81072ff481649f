package image

import (
	"context"

	"stickerforge/internal/codec"
	"stickerforge/internal/domain"
)

// SquareAspectRatio is the only aspect ratio requested from providers.
const SquareAspectRatio = "1:1"

// GenerateRequest describes one sticker generation passed to any image provider.
type GenerateRequest struct {
	Label     string
	Reference domain.ReferenceImage
	RequestID string
}

// Asset represents a generated image as returned by the provider, before
// any compositing.
type Asset struct {
	Data   []byte
	Format string
}

// Generator is the contract implemented by all image providers.
type Generator interface {
	// Generate returns the raw image for one label. Failures wrap the
	// sentinel errors in the domain package.
	Generate(ctx context.Context, req GenerateRequest) (Asset, error)
	// Ready reports domain.ErrConfiguration when the provider cannot make
	// calls at all, without touching the network.
	Ready() error
}

func referenceBytes(req GenerateRequest) ([]byte, error) {
	if req.Reference.IsZero() {
		return nil, domain.ErrReferenceRequired
	}
	data, _, err := codec.DecodeDataURL(req.Reference.Data)
	if err != nil {
		return nil, err
	}
	return data, nil
}
