package research

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"bandstand/internal/config"
	"bandstand/internal/library"
	"bandstand/internal/logging"
	"bandstand/internal/services"
)

// Orchestrator drains the research queue with exactly one worker goroutine,
// so at most one enrichment job touches the catalogs at a time. Jobs
// complete in enqueue order; a job interrupted by shutdown is reset to
// queued and restarted from its first phase on the next start.
type Orchestrator struct {
	cfg    *config.Config
	jobs   *Store
	runner *Runner
	logger *slog.Logger

	pollInterval  time.Duration
	retryInterval time.Duration

	mu         sync.RWMutex
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	lastErr    error
	currentJob *Job
}

// NewOrchestrator constructs the queue worker.
func NewOrchestrator(cfg *config.Config, store *library.Store, runner *Runner, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:           cfg,
		jobs:          NewStore(store),
		runner:        runner,
		logger:        logger.With(logging.String(logging.FieldComponent, "research")),
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
	}
}

// Jobs exposes the job store for API and CLI surfaces.
func (o *Orchestrator) Jobs() *Store {
	return o.jobs
}

// Enqueue adds an entity to the research queue.
func (o *Orchestrator) Enqueue(ctx context.Context, entityType string, entityID int64) (*Job, error) {
	return o.jobs.Enqueue(ctx, entityType, entityID)
}

// Start begins background processing. A job left researching by the
// previous process is returned to the queue first.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return errors.New("research orchestrator already running")
	}

	reset, err := o.jobs.ResetInFlight(ctx)
	if err != nil {
		o.mu.Unlock()
		return err
	}
	if reset > 0 {
		o.logger.Info("requeued interrupted research jobs", logging.Int64("count", reset))
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.running = true
	o.wg.Add(1)
	o.mu.Unlock()

	go o.runWorker(runCtx)
	return nil
}

// Stop terminates background processing and waits for the worker to finish
// its current job.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	cancel := o.cancel
	o.running = false
	o.cancel = nil
	o.mu.Unlock()

	cancel()
	o.wg.Wait()
}

// Status reports the queue depth and the job currently in flight.
func (o *Orchestrator) Status(ctx context.Context) (*Snapshot, error) {
	size, err := o.jobs.QueueSize(ctx)
	if err != nil {
		return nil, err
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	snapshot := &Snapshot{QueueSize: size, Active: o.running}
	if o.currentJob != nil {
		current := *o.currentJob
		snapshot.Current = &current
	}
	return snapshot, nil
}

// LastError returns the most recent worker error, for status surfaces.
func (o *Orchestrator) LastError() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastErr
}

func (o *Orchestrator) runWorker(ctx context.Context) {
	defer o.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := o.jobs.NextQueued(ctx)
		if err != nil {
			o.setLastError(err)
			o.logger.Error("failed to fetch next research job",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check library database access"))
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.retryInterval):
			}
			continue
		}
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.pollInterval):
			}
			continue
		}

		if err := o.processJob(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			o.setLastError(err)
		}
	}
}

func (o *Orchestrator) processJob(ctx context.Context, job *Job) error {
	jobCtx := services.WithJobID(ctx, job.ID)
	logger := o.logger.With(
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldEntityType, job.EntityType),
		logging.Int64(logging.FieldEntityID, job.EntityID))

	if err := o.jobs.MarkResearching(jobCtx, job.ID); err != nil {
		return err
	}
	o.setCurrentJob(job)
	defer o.setCurrentJob(nil)

	logger.Info("research job started")
	state := &jobState{}
	var failedPhases []string

	for _, phase := range PhaseOrder {
		phaseCtx := services.WithPhase(jobCtx, phase)
		if err := o.jobs.UpdateProgress(phaseCtx, job.ID, phase, 0, 0); err != nil {
			return o.abortJob(phaseCtx, logger, job, err)
		}
		job.Phase = phase
		o.setCurrentJob(job)

		progress := func(current, total int) {
			job.PhaseCurrent = current
			job.PhaseTotal = total
			o.setCurrentJob(job)
			if err := o.jobs.UpdateProgress(phaseCtx, job.ID, phase, current, total); err != nil {
				logger.Warn("failed to persist phase progress", logging.Error(err))
			}
		}

		err := o.runner.runPhase(phaseCtx, phase, job, state, progress)
		if err == nil {
			logger.Info("research phase completed", logging.String(logging.FieldPhase, phase))
			continue
		}
		if errors.Is(err, context.Canceled) {
			return err
		}

		// A failed phase is recorded and the job advances; only storage
		// failures abort the run.
		failedPhases = append(failedPhases, phase)
		if services.IsExpectedOutcome(err) {
			logger.Info("research phase found no match",
				logging.String(logging.FieldPhase, phase),
				logging.Error(err))
		} else {
			logger.Warn("research phase failed",
				logging.String(logging.FieldPhase, phase),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check catalog availability"))
		}
	}

	if err := o.jobs.MarkCompleted(jobCtx, job.ID, failedPhases); err != nil {
		return err
	}
	logger.Info("research job completed", logging.Int("failed_phases", len(failedPhases)))
	return nil
}

func (o *Orchestrator) abortJob(ctx context.Context, logger *slog.Logger, job *Job, cause error) error {
	logger.Error("research job aborted", logging.Error(cause))
	if err := o.jobs.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
		logger.Error("failed to record job failure", logging.Error(err))
	}
	return cause
}

func (o *Orchestrator) setCurrentJob(job *Job) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if job == nil {
		o.currentJob = nil
		return
	}
	current := *job
	o.currentJob = &current
}

func (o *Orchestrator) setLastError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastErr = err
}
