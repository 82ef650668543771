// Package scheduler runs the registered background workers on their
// configured intervals.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/levijay/mediastack/internal/apperr"
)

// MinInterval is the shortest interval a worker may be scheduled at.
const MinInterval = time.Second

// Status is the lifecycle state of a worker.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusError   Status = "error"
)

// Worker is one periodic background job.
type Worker struct {
	ID          string
	Name        string
	Description string
	Interval    time.Duration
	// SkipInitialRun suppresses the immediate run on start; the first
	// execution then happens one interval after starting.
	SkipInitialRun bool
	Run            func(ctx context.Context) error
}

// WorkerInfo is the externally visible state of one worker.
type WorkerInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IntervalMs  int64      `json:"intervalMs"`
	Status      Status     `json:"status"`
	Executing   bool       `json:"executing"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
}

type entry struct {
	worker    Worker
	job       gocron.Job
	status    Status
	executing bool
	lastRun   *time.Time
	lastError string
}

// Registry owns the workers and their gocron jobs. Each worker runs at most
// one invocation at a time; a tick that fires mid-run is skipped.
type Registry struct {
	gocron gocron.Scheduler
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]*entry
	order   []string // registration order, for reverse-order shutdown
	wg      sync.WaitGroup
}

// New creates an empty registry. Start each worker after registering it, or
// use StartAll.
func New(logger zerolog.Logger) (*Registry, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		gocron:  gs,
		logger:  logger.With().Str("component", "scheduler").Logger(),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
	}, nil
}

// Register adds a worker in the stopped state.
func (r *Registry) Register(w Worker) error {
	if w.ID == "" || w.Run == nil {
		return apperr.Validation("worker needs an id and a run function")
	}
	if w.Interval < MinInterval {
		w.Interval = MinInterval
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[w.ID]; exists {
		return apperr.Conflict("worker %q already registered", w.ID)
	}
	r.entries[w.ID] = &entry{worker: w, status: StatusStopped}
	r.order = append(r.order, w.ID)

	r.logger.Info().
		Str("id", w.ID).
		Dur("interval", w.Interval).
		Bool("skipInitialRun", w.SkipInitialRun).
		Msg("Registered worker")
	return nil
}

// Start schedules a worker. An immediate first run happens unless the
// worker opts out with SkipInitialRun; a skipInitialRun argument overrides
// the worker's own setting for this start only.
func (r *Registry) Start(id string, skipInitialRun ...bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var override *bool
	if len(skipInitialRun) > 0 {
		override = &skipInitialRun[0]
	}
	return r.startLocked(id, override)
}

func (r *Registry) startLocked(id string, skipInitialRun *bool) error {
	e, ok := r.entries[id]
	if !ok {
		return apperr.NotFound("worker %q not found", id)
	}
	if e.job != nil {
		return nil // already scheduled
	}

	opts := []gocron.JobOption{
		gocron.WithName(e.worker.Name),
		gocron.WithTags(id),
	}
	skip := e.worker.SkipInitialRun
	if skipInitialRun != nil {
		skip = *skipInitialRun
	}
	if !skip {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	job, err := r.gocron.NewJob(
		gocron.DurationJob(e.worker.Interval),
		gocron.NewTask(func() { r.execute(id) }),
		opts...,
	)
	if err != nil {
		return err
	}
	e.job = job
	e.status = StatusRunning
	e.lastError = ""
	return nil
}

// Stop unschedules a worker. A run already in flight finishes on its own.
func (r *Registry) Stop(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked(id)
}

func (r *Registry) stopLocked(id string) error {
	e, ok := r.entries[id]
	if !ok {
		return apperr.NotFound("worker %q not found", id)
	}
	if e.job != nil {
		if err := r.gocron.RemoveJob(e.job.ID()); err != nil {
			r.logger.Warn().Err(err).Str("id", id).Msg("Failed to remove job")
		}
		e.job = nil
	}
	e.status = StatusStopped
	return nil
}

// Restart stops and reschedules a worker. The initial run is always skipped
// on restart; the next execution happens after one interval.
func (r *Registry) Restart(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.stopLocked(id); err != nil {
		return err
	}
	skip := true
	return r.startLocked(id, &skip)
}

// SetInterval changes a worker's period, clamped to MinInterval. A running
// worker is rescheduled in place.
func (r *Registry) SetInterval(id string, interval time.Duration) error {
	if interval < MinInterval {
		interval = MinInterval
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return apperr.NotFound("worker %q not found", id)
	}
	e.worker.Interval = interval
	if e.job == nil {
		return nil
	}

	job, err := r.gocron.Update(
		e.job.ID(),
		gocron.DurationJob(interval),
		gocron.NewTask(func() { r.execute(id) }),
		gocron.WithName(e.worker.Name),
		gocron.WithTags(id),
	)
	if err != nil {
		return err
	}
	e.job = job
	return nil
}

// RunNow triggers one execution off the scheduler thread. A worker that is
// already executing is not started a second time.
func (r *Registry) RunNow(id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return apperr.NotFound("worker %q not found", id)
	}
	if e.executing {
		r.mu.Unlock()
		return apperr.Conflict("worker %q is already running", id)
	}
	r.mu.Unlock()

	go r.execute(id)
	return nil
}

// execute runs a worker once, guarding against overlap.
func (r *Registry) execute(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok || e.executing {
		r.mu.Unlock()
		return
	}
	e.executing = true
	r.mu.Unlock()

	r.wg.Add(1)
	defer r.wg.Done()

	start := time.Now().UTC()
	err := e.worker.Run(r.ctx)

	r.mu.Lock()
	e.executing = false
	e.lastRun = &start
	if err != nil {
		e.lastError = err.Error()
		e.status = StatusError
	} else {
		e.lastError = ""
		if e.job != nil {
			e.status = StatusRunning
		}
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error().Err(err).
			Str("worker", id).
			Dur("duration", time.Since(start)).
			Msg("Worker run failed")
		return
	}
	r.logger.Debug().
		Str("worker", id).
		Dur("duration", time.Since(start)).
		Msg("Worker run completed")
}

// StartAll schedules every registered worker and starts the clock.
func (r *Registry) StartAll() error {
	r.mu.Lock()
	for _, id := range r.order {
		if err := r.startLocked(id, nil); err != nil {
			r.mu.Unlock()
			return err
		}
	}
	r.mu.Unlock()

	r.gocron.Start()
	r.logger.Info().Int("workers", len(r.order)).Msg("Scheduler started")
	return nil
}

// Shutdown stops workers in reverse registration order, cancels the shared
// context, and waits up to grace for in-flight runs to finish.
func (r *Registry) Shutdown(grace time.Duration) error {
	r.mu.Lock()
	for i := len(r.order) - 1; i >= 0; i-- {
		if err := r.stopLocked(r.order[i]); err != nil {
			r.logger.Warn().Err(err).Str("id", r.order[i]).Msg("Failed to stop worker")
		}
	}
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		r.logger.Warn().Msg("Shutdown grace expired with workers still running")
	}
	return r.gocron.Shutdown()
}

// List reports every worker in registration order.
func (r *Registry) List() []WorkerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]WorkerInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.infoLocked(r.entries[id]))
	}
	return out
}

// Get reports one worker.
func (r *Registry) Get(id string) (WorkerInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return WorkerInfo{}, apperr.NotFound("worker %q not found", id)
	}
	return r.infoLocked(e), nil
}

func (r *Registry) infoLocked(e *entry) WorkerInfo {
	info := WorkerInfo{
		ID:          e.worker.ID,
		Name:        e.worker.Name,
		Description: e.worker.Description,
		IntervalMs:  e.worker.Interval.Milliseconds(),
		Status:      e.status,
		Executing:   e.executing,
		LastRun:     e.lastRun,
		LastError:   e.lastError,
	}
	if e.job != nil {
		if next, err := e.job.NextRun(); err == nil {
			info.NextRun = &next
		}
	}
	return info
}
