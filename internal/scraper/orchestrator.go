package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shelfscope/shelfscope/internal/progress"
)

// Batch-level fatal conditions, checked before any scraping or aggregation
// starts.
var (
	ErrNoCategories = errors.New("category list is empty")
	ErrNoLocations  = errors.New("location list is empty")
	ErrNoArtifacts  = errors.New("no artifacts produced by any task")
)

// Orchestrator expands categories x locations into tasks, runs them with
// bounded parallelism, and collects the artifact paths of tasks that
// actually produced data. One task's failure never aborts its siblings.
type Orchestrator struct {
	cfg     Config
	runner  TaskRunner
	ids     IDGenerator
	clock   Clock
	emitter progress.Emitter
	logger  *zap.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(
	cfg Config,
	runner TaskRunner,
	ids IDGenerator,
	clock Clock,
	emitter progress.Emitter,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:     cfg,
		runner:  runner,
		ids:     ids,
		clock:   clock,
		emitter: emitter,
		logger:  logger,
	}
}

// BuildTasks produces the cross product, categories outer and locations
// inner, exactly |categories| x |locations| tasks.
func (o *Orchestrator) BuildTasks(categories, locations []string) ([]Task, error) {
	if len(categories) == 0 {
		return nil, ErrNoCategories
	}
	if len(locations) == 0 {
		return nil, ErrNoLocations
	}
	tasks := make([]Task, 0, len(categories)*len(locations))
	for _, cat := range categories {
		for _, loc := range locations {
			id, err := o.ids.NewRawID()
			if err != nil {
				return nil, fmt.Errorf("assign task id: %w", err)
			}
			tasks = append(tasks, Task{ID: id, CategoryURL: cat, Location: loc})
		}
	}
	return tasks, nil
}

// taskOutcome pairs a result with the error its run ended with, keyed by
// task identity rather than submission position.
type taskOutcome struct {
	result TaskResult
	err    error
}

// Run executes the batch and returns the artifact paths of succeeded tasks
// in completion order. It returns ErrNoArtifacts when every task came back
// empty or failed.
func (o *Orchestrator) Run(ctx context.Context, categories, locations []string) ([]string, error) {
	tasks, err := o.BuildTasks(categories, locations)
	if err != nil {
		return nil, err
	}
	o.logger.Info("batch planned",
		zap.Int("categories", len(categories)),
		zap.Int("locations", len(locations)),
		zap.Int("tasks", len(tasks)),
		zap.Int("workers", o.cfg.Workers),
	)

	queue := make(chan Task, len(tasks))
	for _, t := range tasks {
		queue <- t
	}
	close(queue)

	workers := o.cfg.Workers
	if workers > len(tasks) {
		workers = len(tasks)
	}

	outcomes := make(chan taskOutcome, len(tasks))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				outcomes <- o.runOne(ctx, task)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	results := make(map[uuid.UUID]taskOutcome, len(tasks))
	var artifacts []string
	for oc := range outcomes {
		results[oc.result.Task.ID] = oc
		if path := o.artifactFor(oc); path != "" {
			artifacts = append(artifacts, path)
		}
	}

	o.logger.Info("batch finished",
		zap.Int("tasks", len(results)),
		zap.Int("artifacts", len(artifacts)),
	)
	if len(artifacts) == 0 {
		return nil, ErrNoArtifacts
	}
	return artifacts, nil
}

// runOne executes a single task, converting panics to errors so a misbehaving
// session cannot take the whole batch down.
func (o *Orchestrator) runOne(ctx context.Context, task Task) (oc taskOutcome) {
	started := o.clock.Now()
	o.emit(progress.Event{
		TaskID:   progress.UUIDToBytes(task.ID),
		TS:       started,
		Stage:    progress.StageTaskStart,
		Category: task.CategoryURL,
		Location: task.Location,
	})
	defer func() {
		if rec := recover(); rec != nil {
			oc = taskOutcome{
				result: TaskResult{Task: task, Started: started, Finished: o.clock.Now()},
				err:    fmt.Errorf("task panicked: %v", rec),
			}
		}
		o.emitFinal(task, started, oc)
	}()

	result, err := o.runner.Run(ctx, task)
	result.Task = task
	return taskOutcome{result: result, err: err}
}

func (o *Orchestrator) emitFinal(task Task, started time.Time, oc taskOutcome) {
	now := o.clock.Now()
	evt := progress.Event{
		TaskID:   progress.UUIDToBytes(task.ID),
		TS:       now,
		Category: task.CategoryURL,
		Location: task.Location,
		Dur:      now.Sub(started),
	}
	if oc.err != nil {
		evt.Stage = progress.StageTaskError
		evt.Note = oc.err.Error()
	} else {
		evt.Stage = progress.StageTaskDone
		evt.Records = int64(oc.result.Records)
		evt.ScrollCycles = int64(oc.result.ScrollCycles)
	}
	o.emit(evt)
}

// artifactFor decides whether an outcome contributes an artifact. A task that
// claims success must also have left a file on storage.
func (o *Orchestrator) artifactFor(oc taskOutcome) string {
	task := oc.result.Task
	logger := o.logger.With(
		zap.String("task_id", task.ID.String()),
		zap.String("category", task.CategoryURL),
		zap.String("location", task.Location),
	)
	if oc.err != nil {
		logger.Error("task failed", zap.Error(oc.err))
		return ""
	}
	if oc.result.ArtifactPath == "" {
		logger.Warn("no data saved for combination")
		return ""
	}
	if _, err := os.Stat(oc.result.ArtifactPath); err != nil {
		logger.Warn("task reported an artifact that is not on storage",
			zap.String("path", oc.result.ArtifactPath),
			zap.Error(err),
		)
		return ""
	}
	return oc.result.ArtifactPath
}

func (o *Orchestrator) emit(evt progress.Event) {
	if o.emitter != nil {
		o.emitter.Emit(evt)
	}
}
