package domain

import "time"

// JobStatus enumerates sticker job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusGenerating JobStatus = "generating"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusGenerating, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s ends a generation attempt.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether the state machine permits moving from one
// status to another. Completed and Failed only go back to Generating through
// an explicit retry.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusPending:
		return to == JobStatusGenerating
	case JobStatusGenerating:
		return to == JobStatusCompleted || to == JobStatusFailed
	case JobStatusCompleted, JobStatusFailed:
		return to == JobStatusGenerating
	}
	return false
}

// StickerJob is one label's generation and compositing unit of work.
type StickerJob struct {
	ID           string    `json:"id"`
	Label        string    `json:"label"`
	Status       JobStatus `json:"status"`
	FinalImage   string    `json:"final_image,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CheckInvariants verifies the image and error fields agree with the status.
func (j StickerJob) CheckInvariants() error {
	if !j.Status.Valid() {
		return ErrInvalidTransition
	}
	if (j.FinalImage != "") != (j.Status == JobStatusCompleted) {
		return ErrInvalidTransition
	}
	if j.ErrorMessage != "" && j.Status != JobStatusFailed {
		return ErrInvalidTransition
	}
	return nil
}
