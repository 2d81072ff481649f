package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"stickerforge/internal/labels"
)

const maxLabelsBody = 64 << 10

type labelsPayload struct {
	Labels []string `json:"labels"`
}

func (a *App) GetLabels(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, labelsPayload{Labels: a.Session.Labels()})
}

// PutLabels replaces the label list from JSON {"labels": [...]} or from plain
// text with one label per line.
func (a *App) PutLabels(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxLabelsBody))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "could not read body")
		return
	}
	var list []string
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		list = labels.Parse(string(body))
	} else {
		var payload labelsPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid payload: %v", err))
			return
		}
		list = payload.Labels
	}
	updated, err := a.Session.SetLabels(list)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, labelsPayload{Labels: updated})
}
