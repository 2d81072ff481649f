package handlers

import (
	"fmt"
	"net/http"

	"stickerforge/internal/codec"
	"stickerforge/internal/domain"
)

const referenceField = "file"

// PutReference accepts a multipart upload in the "file" field. Replacing the
// reference clears all jobs.
func (a *App) PutReference(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, codec.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(codec.MaxUploadBytes); err != nil {
		a.fail(w, r, fmt.Errorf("%w: %v", domain.ErrIO, err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	_, header, err := r.FormFile(referenceField)
	if err != nil {
		a.fail(w, r, fmt.Errorf("%w: missing %q form file", domain.ErrReferenceRequired, referenceField))
		return
	}
	ref, err := codec.EncodeMultipart(header)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.Session.SetReference(ref); err != nil {
		a.fail(w, r, err)
		return
	}
	a.Logger.Info().
		Str("media_type", ref.MediaType).
		Int64("bytes", header.Size).
		Msg("api: reference image replaced")
	a.json(w, http.StatusOK, referenceInfo{MediaType: ref.MediaType, Bytes: int(header.Size)})
}

// DeleteReference removes the reference image and clears all jobs.
func (a *App) DeleteReference(w http.ResponseWriter, r *http.Request) {
	a.Session.ClearReference()
	w.WriteHeader(http.StatusNoContent)
}
