package handlers

import (
	"net/http"

	"stickerforge/internal/domain"
)

type batchResponse struct {
	Jobs  []domain.StickerJob `json:"jobs"`
	Stats progressInfo        `json:"stats"`
}

// StartBatch creates one job per label and processes them in the background.
// Progress is observable through /v1/session, /v1/jobs and /v1/events.
func (a *App) StartBatch(w http.ResponseWriter, r *http.Request) {
	run, err := a.Session.Start()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	go run.Execute(a.ctx)
	jobs := run.Jobs()
	a.json(w, http.StatusAccepted, batchResponse{Jobs: jobs, Stats: progress(domain.ComputeStats(jobs))})
}
