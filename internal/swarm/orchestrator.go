package swarm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"thinktank/internal/config"
	"thinktank/internal/extension"
	"thinktank/internal/gateway"
	"thinktank/internal/logging"
	"thinktank/internal/persona"
)

// Orchestrator fans persona tasks out over a bounded worker pool and
// collects opinions in dispatch order. It holds only read-only state, so one
// orchestrator serves any number of concurrent rounds.
type Orchestrator struct {
	client        gateway.Client
	taskTimeout   time.Duration
	retryAttempts int
	retryBackoff  time.Duration
	maxWorkers    int
}

// New builds an orchestrator from the swarm configuration.
func New(client gateway.Client, cfg *config.Config) *Orchestrator {
	// Clamped so the attempt loop always runs at least once; a negative
	// count would otherwise leave runTask without a terminal error.
	retries := cfg.Swarm.RetryAttempts
	if retries < 0 {
		retries = 0
	}
	return &Orchestrator{
		client:        client,
		taskTimeout:   cfg.GetTaskTimeout(),
		retryAttempts: retries,
		retryBackoff:  cfg.GetRetryBackoff(),
		maxWorkers:    cfg.Swarm.MaxWorkers,
	}
}

// BuildTasks creates one task per deliberating persona in fixed dispatch
// order: Believers, then Skeptics, then Neutral. Labels number personas
// within their camp ("Believer 1", "Believer 2", ...).
func BuildTasks(reg *persona.Registry, input string, ext *extension.Context) []Task {
	personas := reg.DeliberationOrder()
	tasks := make([]Task, 0, len(personas))
	campCounts := make(map[persona.Camp]int)

	extText := ""
	if ext != nil {
		extText = ext.Text
	}

	for i, p := range personas {
		campCounts[p.Camp]++
		tasks = append(tasks, Task{
			ID:            uuid.NewString(),
			Index:         i,
			Label:         fmt.Sprintf("%s %d", p.Camp, campCounts[p.Camp]),
			Persona:       p,
			Input:         input,
			ExtensionText: extText,
		})
	}
	return tasks
}

// Deliberate dispatches all tasks concurrently and waits for every one to
// reach a terminal state. The returned slice preserves dispatch order
// regardless of completion order. It fails only when every task failed.
func (o *Orchestrator) Deliberate(ctx context.Context, tasks []Task) ([]Opinion, error) {
	log := logging.Get(logging.CategorySwarm)
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks to deliberate")
	}

	// Pool is sized to at least the task count so the default composition
	// runs fully parallel.
	limit := o.maxWorkers
	if limit < len(tasks) {
		limit = len(tasks)
	}

	log.Info("Dispatching deliberation tasks",
		zap.Int("tasks", len(tasks)),
		zap.Int("workers", limit))

	start := time.Now()
	opinions := make([]Opinion, len(tasks))

	// Plain errgroup, not WithContext: a task failure must never cancel its
	// siblings. Each task writes only its own slot, so no lock is needed.
	var g errgroup.Group
	g.SetLimit(limit)

	for i := range tasks {
		task := tasks[i]
		g.Go(func() error {
			opinions[task.Index] = o.runTask(ctx, task)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, op := range opinions {
		if !op.Succeeded() {
			failed++
		}
	}

	log.Info("Deliberation complete",
		zap.Int("succeeded", len(opinions)-failed),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))

	if failed == len(opinions) {
		return nil, &AllAgentsFailedError{Opinions: opinions}
	}
	return opinions, nil
}

// runTask drives one persona to a terminal state: succeeded, failed, or
// timed out. Transient gateway errors are retried a bounded number of times;
// fatal errors and timeouts are terminal immediately.
func (o *Orchestrator) runTask(ctx context.Context, task Task) Opinion {
	log := logging.Get(logging.CategorySwarm)
	start := time.Now()

	opinion := Opinion{
		TaskID: task.ID,
		Label:  task.Label,
		Camp:   task.Persona.Camp,
	}

	systemPrompt := task.Persona.SystemPrompt(task.ExtensionText)

	var lastErr error
	for attempt := 0; attempt <= o.retryAttempts; attempt++ {
		if attempt > 0 {
			log.Debug("Retrying task",
				zap.String("label", task.Label),
				zap.Int("attempt", attempt))
			select {
			case <-time.After(o.retryBackoff):
			case <-ctx.Done():
				opinion.Status = StatusTimedOut
				opinion.Err = ctx.Err().Error()
				opinion.Duration = time.Since(start)
				return opinion
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, o.taskTimeout)
		text, err := o.client.CompleteWithSystem(callCtx, systemPrompt, task.Input)
		cancel()

		if err == nil {
			opinion.Status = StatusSucceeded
			opinion.Text = text
			opinion.Duration = time.Since(start)
			log.Debug("Task succeeded",
				zap.String("label", task.Label),
				zap.Duration("elapsed", opinion.Duration))
			return opinion
		}

		// The per-call deadline demotes to a TimedOut opinion; the cancel
		// affects only this task's in-flight call, never its siblings.
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			opinion.Status = StatusTimedOut
			opinion.Err = fmt.Sprintf("completion exceeded %s", o.taskTimeout)
			opinion.Duration = time.Since(start)
			log.Warn("Task timed out", zap.String("label", task.Label))
			return opinion
		}

		lastErr = err
		if gateway.IsFatal(err) {
			break
		}
		// TransientError falls through to the next attempt.
	}

	opinion.Status = StatusFailed
	opinion.Err = lastErr.Error()
	opinion.Duration = time.Since(start)
	log.Warn("Task failed",
		zap.String("label", task.Label),
		zap.String("error", opinion.Err))
	return opinion
}
