package sticker

import (
	"context"
	"sync"

	"stickerforge/internal/domain"
	"stickerforge/internal/labels"
)

// Session holds the settings of one user session: the label list and the
// optional reference image. Jobs live in the orchestrator's store.
type Session struct {
	orch *Orchestrator

	mu        sync.RWMutex
	labels    []string
	reference *domain.ReferenceImage
}

// NewSession starts a session with the given labels, or the default list
// when none are given.
func NewSession(orch *Orchestrator, initial []string) *Session {
	initial = labels.Normalize(initial)
	if len(initial) == 0 {
		initial = domain.DefaultLabelsCopy()
	}
	return &Session{orch: orch, labels: initial}
}

// Orchestrator returns the batch runner behind the session.
func (s *Session) Orchestrator() *Orchestrator {
	return s.orch
}

// SetReference replaces the reference image and clears all jobs.
func (s *Session) SetReference(ref domain.ReferenceImage) error {
	if ref.IsZero() {
		return domain.ErrReferenceRequired
	}
	s.mu.Lock()
	s.reference = &ref
	s.mu.Unlock()
	s.orch.Clear()
	return nil
}

// ClearReference removes the reference image and clears all jobs.
func (s *Session) ClearReference() {
	s.mu.Lock()
	s.reference = nil
	s.mu.Unlock()
	s.orch.Clear()
}

// Reference returns a copy of the current reference image.
func (s *Session) Reference() (domain.ReferenceImage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.reference == nil {
		return domain.ReferenceImage{}, false
	}
	return *s.reference, true
}

// SetLabels replaces the label list. It is rejected while a batch runs.
func (s *Session) SetLabels(in []string) ([]string, error) {
	if s.orch.Processing() {
		return nil, ErrBatchRunning
	}
	normalized := labels.Normalize(in)
	if err := labels.Validate(normalized); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.labels = normalized
	s.mu.Unlock()
	return s.Labels(), nil
}

// Labels returns a copy of the label list.
func (s *Session) Labels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

// Config snapshots the batch configuration.
func (s *Session) Config() domain.BatchConfiguration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := domain.BatchConfiguration{Labels: make([]string, len(s.labels))}
	copy(cfg.Labels, s.labels)
	if s.reference != nil {
		ref := *s.reference
		cfg.Reference = &ref
	}
	return cfg
}

// Start prepares a batch from the current settings.
func (s *Session) Start() (*Run, error) {
	return s.orch.PrepareBatch(s.Config())
}

// Generate runs a full batch synchronously.
func (s *Session) Generate(ctx context.Context) ([]domain.StickerJob, error) {
	return s.orch.StartBatch(ctx, s.Config())
}

// Retry claims one job for another attempt with the current reference.
func (s *Session) Retry(id string) (*Retry, error) {
	return s.orch.PrepareRetry(id, s.Config().Reference)
}
