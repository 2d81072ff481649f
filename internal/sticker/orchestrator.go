// Package sticker runs sticker batches: it owns the job list, walks it one
// job at a time through generation and compositing, and handles retries.
package sticker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"stickerforge/internal/domain"
	"stickerforge/internal/infra"
	"stickerforge/internal/providers/image"
)

// Compositor turns a raw generated image into the final sticker payload.
type Compositor interface {
	Composite(raw []byte, label string) (string, error)
}

// Recorder receives job lifecycle measurements.
type Recorder interface {
	BatchStarted(jobs int)
	JobStarted()
	JobCompleted(elapsed time.Duration)
	JobFailed(reason string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) BatchStarted(int)                {}
func (nopRecorder) JobStarted()                     {}
func (nopRecorder) JobCompleted(time.Duration)      {}
func (nopRecorder) JobFailed(string, time.Duration) {}

// Options wires the orchestrator's collaborators.
type Options struct {
	Generator  image.Generator
	Compositor Compositor
	Logger     *infra.Logger
	Recorder   Recorder
	Store      *Store
	NewID      func() string
}

// Orchestrator drives the job state machine. At most one batch runs at a
// time; retries may overlap with it but never touch a job the batch still
// owns.
type Orchestrator struct {
	store      *Store
	generator  image.Generator
	compositor Compositor
	logger     *infra.Logger
	recorder   Recorder
	newID      func() string

	mu         sync.Mutex
	processing bool
	done       chan struct{}
}

// NewOrchestrator validates opts and fills defaults.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Generator == nil {
		return nil, errors.New("sticker: generator is required")
	}
	if opts.Compositor == nil {
		return nil, errors.New("sticker: compositor is required")
	}
	o := &Orchestrator{
		store:      opts.Store,
		generator:  opts.Generator,
		compositor: opts.Compositor,
		logger:     opts.Logger,
		recorder:   opts.Recorder,
		newID:      opts.NewID,
	}
	if o.store == nil {
		o.store = NewStore()
	}
	if o.logger == nil {
		o.logger = infra.NopLogger()
	}
	if o.recorder == nil {
		o.recorder = nopRecorder{}
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	closed := make(chan struct{})
	close(closed)
	o.done = closed
	return o, nil
}

// Store exposes the job list.
func (o *Orchestrator) Store() *Store {
	return o.store
}

// Jobs returns the current job list.
func (o *Orchestrator) Jobs() []domain.StickerJob {
	return o.store.List()
}

// Job returns one job by id.
func (o *Orchestrator) Job(id string) (domain.StickerJob, error) {
	job, ok := o.store.Get(id)
	if !ok {
		return domain.StickerJob{}, ErrJobNotFound
	}
	return job, nil
}

// Stats recomputes progress from the job list.
func (o *Orchestrator) Stats() domain.AggregateStats {
	return o.store.Stats()
}

// Processing reports whether a batch is running.
func (o *Orchestrator) Processing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.processing
}

// Ready reports whether the generator can be called.
func (o *Orchestrator) Ready() error {
	return o.generator.Ready()
}

// Subscribe forwards store events to fn.
func (o *Orchestrator) Subscribe(fn Listener) func() {
	return o.store.Subscribe(fn)
}

// Wait blocks until no batch is processing or ctx ends.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clear empties the job list. Any running batch stops before its next job.
func (o *Orchestrator) Clear() {
	o.store.Reset(nil)
}

// Run is a prepared batch. Its jobs exist and are Pending; Execute processes them.
type Run struct {
	o         *Orchestrator
	epoch     uint64
	jobs      []domain.StickerJob
	reference domain.ReferenceImage
	done      chan struct{}
	once      sync.Once
}

// Jobs returns the jobs as created by PrepareBatch.
func (r *Run) Jobs() []domain.StickerJob {
	out := make([]domain.StickerJob, len(r.jobs))
	copy(out, r.jobs)
	return out
}

// PrepareBatch replaces the job list with one Pending job per label and marks
// the orchestrator as processing. It fails without any state change when the
// reference is missing, the generator is not configured, or a batch is
// already running.
func (o *Orchestrator) PrepareBatch(cfg domain.BatchConfiguration) (*Run, error) {
	if !cfg.HasReference() {
		return nil, domain.ErrReferenceRequired
	}
	if err := o.generator.Ready(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.processing {
		o.mu.Unlock()
		return nil, ErrBatchRunning
	}
	o.processing = true
	done := make(chan struct{})
	o.done = done
	o.mu.Unlock()

	now := time.Now()
	jobs := make([]domain.StickerJob, 0, len(cfg.Labels))
	for _, label := range cfg.Labels {
		jobs = append(jobs, domain.StickerJob{
			ID:        o.newID(),
			Label:     label,
			Status:    domain.JobStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	epoch := o.store.Reset(jobs)
	run := &Run{
		o:         o,
		epoch:     epoch,
		jobs:      jobs,
		reference: *cfg.Reference,
		done:      done,
	}
	o.recorder.BatchStarted(len(jobs))
	o.logger.Info().
		Int("jobs", len(jobs)).
		Uint64("epoch", epoch).
		Msg("sticker: batch started")
	return run, nil
}

// Execute processes the run's jobs strictly one after another. A failed job
// never stops the batch; a cancelled context or a replaced job list does,
// leaving the remaining jobs Pending. Execute runs at most once.
func (r *Run) Execute(ctx context.Context) []domain.StickerJob {
	r.once.Do(func() {
		defer r.finish()
		for _, job := range r.jobs {
			if ctx.Err() != nil {
				r.o.logger.Warn().Err(ctx.Err()).Msg("sticker: batch cancelled")
				return
			}
			if r.o.store.Epoch() != r.epoch {
				r.o.logger.Info().Uint64("epoch", r.epoch).Msg("sticker: batch superseded")
				return
			}
			claimed, err := r.o.store.Transition(job.ID, []domain.JobStatus{domain.JobStatusPending}, markGenerating)
			if err != nil {
				if errors.Is(err, ErrJobNotFound) {
					return
				}
				r.o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("sticker: skipped job")
				continue
			}
			r.o.process(ctx, claimed, r.reference)
		}
	})
	return r.o.store.List()
}

func (r *Run) finish() {
	r.o.mu.Lock()
	r.o.processing = false
	r.o.mu.Unlock()
	close(r.done)
	stats := r.o.store.Stats()
	r.o.logger.Info().
		Int("total", stats.Total).
		Int("completed", stats.Completed).
		Int("failed", stats.Failed).
		Msg("sticker: batch finished")
}

// StartBatch prepares and executes a batch, returning the final job list.
func (o *Orchestrator) StartBatch(ctx context.Context, cfg domain.BatchConfiguration) ([]domain.StickerJob, error) {
	run, err := o.PrepareBatch(cfg)
	if err != nil {
		return nil, err
	}
	return run.Execute(ctx), nil
}

// Retry is a claimed retry: its job is already Generating.
type Retry struct {
	o         *Orchestrator
	job       domain.StickerJob
	reference domain.ReferenceImage
	once      sync.Once
}

// Job returns the job as claimed.
func (r *Retry) Job() domain.StickerJob {
	return r.job
}

// PrepareRetry claims a Completed or Failed job for another attempt, clearing
// its previous result. Jobs that are Pending or Generating are rejected with
// ErrJobBusy.
func (o *Orchestrator) PrepareRetry(id string, ref *domain.ReferenceImage) (*Retry, error) {
	if ref == nil || ref.IsZero() {
		return nil, domain.ErrReferenceRequired
	}
	if _, ok := o.store.Get(id); !ok {
		return nil, ErrJobNotFound
	}
	if err := o.generator.Ready(); err != nil {
		return nil, err
	}
	claimed, err := o.store.Transition(id, []domain.JobStatus{domain.JobStatusFailed, domain.JobStatusCompleted}, markGenerating)
	if err != nil {
		return nil, err
	}
	o.logger.Info().Str("job_id", id).Str("label", claimed.Label).Msg("sticker: retry claimed")
	return &Retry{o: o, job: claimed, reference: *ref}, nil
}

// Execute runs the claimed job through generation and compositing once.
func (r *Retry) Execute(ctx context.Context) domain.StickerJob {
	result := r.job
	r.once.Do(func() {
		result = r.o.process(ctx, r.job, r.reference)
	})
	return result
}

// RetryJob claims and runs a single job.
func (o *Orchestrator) RetryJob(ctx context.Context, id string, ref *domain.ReferenceImage) (domain.StickerJob, error) {
	retry, err := o.PrepareRetry(id, ref)
	if err != nil {
		return domain.StickerJob{}, err
	}
	return retry.Execute(ctx), nil
}

// process expects job to be Generating and always moves it to Completed or
// Failed, unless the job list was replaced meanwhile.
func (o *Orchestrator) process(ctx context.Context, job domain.StickerJob, ref domain.ReferenceImage) domain.StickerJob {
	log := o.logger.With().Str("job_id", job.ID).Str("label", job.Label).Logger()
	log.Info().Msg("sticker: picked job")
	started := time.Now()
	o.recorder.JobStarted()

	final, err := o.render(ctx, job, ref)
	elapsed := time.Since(started)

	var (
		updated domain.StickerJob
		txErr   error
	)
	if err != nil {
		o.recorder.JobFailed(domain.Reason(err), elapsed)
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("sticker: job failed")
		updated, txErr = o.store.Transition(job.ID, []domain.JobStatus{domain.JobStatusGenerating}, func(j *domain.StickerJob) {
			j.Status = domain.JobStatusFailed
			j.ErrorMessage = err.Error()
		})
	} else {
		o.recorder.JobCompleted(elapsed)
		log.Info().Dur("elapsed", elapsed).Msg("sticker: job completed")
		updated, txErr = o.store.Transition(job.ID, []domain.JobStatus{domain.JobStatusGenerating}, func(j *domain.StickerJob) {
			j.Status = domain.JobStatusCompleted
			j.FinalImage = final
		})
	}
	if txErr != nil {
		log.Warn().Err(txErr).Msg("sticker: result discarded")
	}
	return updated
}

func (o *Orchestrator) render(ctx context.Context, job domain.StickerJob, ref domain.ReferenceImage) (string, error) {
	asset, err := o.generator.Generate(ctx, image.GenerateRequest{
		Label:     job.Label,
		Reference: ref,
		RequestID: job.ID,
	})
	if err != nil {
		return "", err
	}
	return o.compositor.Composite(asset.Data, job.Label)
}

func markGenerating(j *domain.StickerJob) {
	j.Status = domain.JobStatusGenerating
	j.ErrorMessage = ""
	j.FinalImage = ""
}
