package sticker

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"stickerforge/internal/domain"
)

// EventKind distinguishes list replacement from a single job change.
type EventKind string

const (
	EventReset      EventKind = "reset"
	EventTransition EventKind = "transition"
)

// Event is published after every store mutation. Job is the zero value for
// EventReset.
type Event struct {
	Kind  EventKind             `json:"kind"`
	Epoch uint64                `json:"epoch"`
	Job   domain.StickerJob     `json:"job"`
	Stats domain.AggregateStats `json:"stats"`
}

// Listener receives store events synchronously and in mutation order. It may
// read from the store but must not mutate it.
type Listener func(Event)

// Store holds the ordered job list of the current session. Every status change
// is a compare-and-set keyed by job id.
type Store struct {
	mu    sync.RWMutex
	jobs  []domain.StickerJob
	index map[string]int
	epoch uint64

	// emitMu orders mutation plus notification as one unit.
	emitMu    sync.Mutex
	subMu     sync.Mutex
	listeners map[int]Listener
	nextSub   int

	now func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		index:     map[string]int{},
		listeners: map[int]Listener{},
		now:       time.Now,
	}
}

// Reset replaces the whole list and starts a new epoch.
func (s *Store) Reset(jobs []domain.StickerJob) uint64 {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.jobs = make([]domain.StickerJob, len(jobs))
	copy(s.jobs, jobs)
	s.index = make(map[string]int, len(jobs))
	for i, job := range s.jobs {
		s.index[job.ID] = i
	}
	s.epoch++
	ev := Event{Kind: EventReset, Epoch: s.epoch, Stats: domain.ComputeStats(s.jobs)}
	s.mu.Unlock()

	s.emit(ev)
	return ev.Epoch
}

// Transition applies mutate to the job with id if its current status is one
// of from. The result must be a permitted state change that keeps the job
// invariants, otherwise nothing is stored.
func (s *Store) Transition(id string, from []domain.JobStatus, mutate func(*domain.StickerJob)) (domain.StickerJob, error) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	idx, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return domain.StickerJob{}, ErrJobNotFound
	}
	current := s.jobs[idx]
	if !statusIn(current.Status, from) {
		s.mu.Unlock()
		return current, fmt.Errorf("%w: job %s is %s", ErrJobBusy, id, current.Status)
	}
	next := current
	mutate(&next)
	if !domain.CanTransition(current.Status, next.Status) {
		s.mu.Unlock()
		return current, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, next.Status)
	}
	if err := next.CheckInvariants(); err != nil {
		s.mu.Unlock()
		return current, fmt.Errorf("%w: job %s in status %s", err, id, next.Status)
	}
	next.ID = current.ID
	next.Label = current.Label
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = s.now()
	s.jobs[idx] = next
	ev := Event{Kind: EventTransition, Epoch: s.epoch, Job: next, Stats: domain.ComputeStats(s.jobs)}
	s.mu.Unlock()

	s.emit(ev)
	return next, nil
}

// Get returns the job with id.
func (s *Store) Get(id string) (domain.StickerJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.index[id]
	if !ok {
		return domain.StickerJob{}, false
	}
	return s.jobs[idx], true
}

// List returns a copy of the jobs in display order.
func (s *Store) List() []domain.StickerJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.StickerJob, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// Stats recomputes the aggregate from the current list.
func (s *Store) Stats() domain.AggregateStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.ComputeStats(s.jobs)
}

// Epoch identifies the current list; it changes on every Reset.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.listeners, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) emit(ev Event) {
	s.subMu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	fns := make([]Listener, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func statusIn(status domain.JobStatus, set []domain.JobStatus) bool {
	for _, candidate := range set {
		if status == candidate {
			return true
		}
	}
	return false
}
