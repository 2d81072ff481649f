package handlers

import (
	"net/http"

	"stickerforge/internal/domain"
)

type referenceInfo struct {
	MediaType string `json:"media_type"`
	Bytes     int    `json:"bytes"`
}

type progressInfo struct {
	domain.AggregateStats
	Processed int     `json:"processed"`
	Percent   float64 `json:"percent"`
}

type sessionResponse struct {
	Labels     []string            `json:"labels"`
	Reference  *referenceInfo      `json:"reference"`
	Configured bool                `json:"configured"`
	Warning    string              `json:"warning,omitempty"`
	Processing bool                `json:"processing"`
	Stats      progressInfo        `json:"stats"`
	Jobs       []domain.StickerJob `json:"jobs"`
}

func progress(stats domain.AggregateStats) progressInfo {
	return progressInfo{AggregateStats: stats, Processed: stats.Processed(), Percent: stats.Percent()}
}

// GetSession reports everything a client needs to render the current state.
func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	orch := a.Session.Orchestrator()
	jobs := orch.Jobs()
	resp := sessionResponse{
		Labels:     a.Session.Labels(),
		Configured: true,
		Processing: orch.Processing(),
		Stats:      progress(domain.ComputeStats(jobs)),
		Jobs:       jobs,
	}
	if err := orch.Ready(); err != nil {
		resp.Configured = false
		resp.Warning = err.Error()
	}
	if ref, ok := a.Session.Reference(); ok {
		resp.Reference = &referenceInfo{MediaType: ref.MediaType, Bytes: base64Len(ref.Data)}
	}
	a.json(w, http.StatusOK, resp)
}

func base64Len(s string) int {
	n := len(s) / 4 * 3
	for i := len(s) - 1; i >= 0 && s[i] == '='; i-- {
		n--
	}
	return n
}
