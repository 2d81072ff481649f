package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"stickerforge/internal/codec"
	"stickerforge/internal/domain"
	"stickerforge/internal/export"
)

func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := a.Session.Orchestrator().Jobs()
	a.json(w, http.StatusOK, batchResponse{Jobs: jobs, Stats: progress(domain.ComputeStats(jobs))})
}

func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Session.Orchestrator().Job(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, job)
}

// RetryJob claims a completed or failed job and regenerates it in the
// background. The response carries the job in its Generating state.
func (a *App) RetryJob(w http.ResponseWriter, r *http.Request) {
	retry, err := a.Session.Retry(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	go retry.Execute(a.ctx)
	a.json(w, http.StatusAccepted, retry.Job())
}

// JobImage downloads one completed sticker as PNG.
func (a *App) JobImage(w http.ResponseWriter, r *http.Request) {
	job, err := a.Session.Orchestrator().Job(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if job.Status != domain.JobStatusCompleted {
		a.error(w, http.StatusConflict, "not_completed", fmt.Sprintf("job is %s", job.Status))
		return
	}
	data, mediaType, err := codec.DecodeDataURL(job.FinalImage)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if mediaType == "" {
		mediaType = "image/png"
	}
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.SingleFilename(job.Label)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// DownloadPack returns every completed sticker in one zip archive.
func (a *App) DownloadPack(w http.ResponseWriter, r *http.Request) {
	archive, err := export.Export(a.Session.Orchestrator().Jobs())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.ArchiveName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
