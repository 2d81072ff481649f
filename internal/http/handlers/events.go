package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"stickerforge/internal/domain"
	"stickerforge/internal/sticker"
)

const (
	eventBuffer    = 64
	eventHeartbeat = 15 * time.Second
)

type streamEvent struct {
	Kind       sticker.EventKind  `json:"kind"`
	Epoch      uint64             `json:"epoch"`
	Job        *domain.StickerJob `json:"job,omitempty"`
	Stats      progressInfo       `json:"stats"`
	Processing bool               `json:"processing"`
}

// Events streams job transitions as server-sent events. The final image is
// left out of the stream; fetch the job for it.
func (a *App) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.error(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}
	orch := a.Session.Orchestrator()

	events := make(chan sticker.Event, eventBuffer)
	unsubscribe := orch.Subscribe(func(ev sticker.Event) {
		select {
		case events <- ev:
		default:
			a.Logger.Warn().Msg("api: event stream lagging, dropped event")
		}
	})
	defer unsubscribe()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	snapshot := sticker.Event{Kind: sticker.EventReset, Epoch: orch.Store().Epoch(), Stats: orch.Stats()}
	if err := a.writeEvent(w, orch, snapshot); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(eventHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-a.ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev := <-events:
			if err := a.writeEvent(w, orch, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (a *App) writeEvent(w http.ResponseWriter, orch *sticker.Orchestrator, ev sticker.Event) error {
	out := streamEvent{
		Kind:       ev.Kind,
		Epoch:      ev.Epoch,
		Stats:      progress(ev.Stats),
		Processing: orch.Processing(),
	}
	if ev.Kind == sticker.EventTransition {
		job := ev.Job
		job.FinalImage = ""
		out.Job = &job
	}
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
	return err
}
