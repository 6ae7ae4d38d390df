package swarm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"thinktank/internal/config"
	"thinktank/internal/extension"
	"thinktank/internal/gateway"
	"thinktank/internal/persona"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testOrchestrator(client gateway.Client, retries int) *Orchestrator {
	return &Orchestrator{
		client:        client,
		taskTimeout:   2 * time.Second,
		retryAttempts: retries,
		retryBackoff:  time.Millisecond,
		maxWorkers:    2,
	}
}

func testTasks(n int) []Task {
	tasks := make([]Task, n)
	camps := []persona.Camp{persona.CampBeliever, persona.CampSkeptic, persona.CampNeutral}
	for i := range tasks {
		camp := camps[i%len(camps)]
		tasks[i] = Task{
			ID:    fmt.Sprintf("task-%d", i),
			Index: i,
			Label: fmt.Sprintf("%s %d", camp, i),
			Persona: persona.Persona{
				Name:      fmt.Sprintf("Persona %d", i),
				Camp:      camp,
				Backstory: "b",
				Expertise: "e",
			},
			Input: "question",
		}
	}
	return tasks
}

func TestDeliberateOneOpinionPerTask(t *testing.T) {
	client := &MockLLMClient{
		CompleteWithSystemFunc: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			return "analysis", nil
		},
	}

	o := testOrchestrator(client, 0)
	tasks := testTasks(5)

	opinions, err := o.Deliberate(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Deliberate: %v", err)
	}
	if len(opinions) != len(tasks) {
		t.Fatalf("got %d opinions, want %d", len(opinions), len(tasks))
	}
	for i, op := range opinions {
		if op.TaskID != tasks[i].ID {
			t.Errorf("opinion %d has TaskID %s, want %s", i, op.TaskID, tasks[i].ID)
		}
		if !op.Succeeded() {
			t.Errorf("opinion %d status %s", i, op.Status)
		}
	}
}

func TestDeliberateOrderStableUnderRandomLatency(t *testing.T) {
	client := &MockLLMClient{
		CompleteWithSystemFunc: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
			return "analysis", nil
		},
	}

	o := testOrchestrator(client, 0)
	tasks := testTasks(8)

	opinions, err := o.Deliberate(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Deliberate: %v", err)
	}
	for i, op := range opinions {
		if op.TaskID != tasks[i].ID {
			t.Fatalf("result order diverged from dispatch order at %d: %s", i, op.TaskID)
		}
	}
}

func TestDeliberatePartialFailureStillReturns(t *testing.T) {
	var n int32
	client := &MockLLMClient{
		CompleteWithSystemFunc: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			if atomic.AddInt32(&n, 1) == 1 {
				return "", &gateway.FatalError{Op: "complete", Err: errors.New("bad request")}
			}
			return "analysis", nil
		},
	}

	o := testOrchestrator(client, 0)
	opinions, err := o.Deliberate(context.Background(), testTasks(4))
	if err != nil {
		t.Fatalf("Deliberate: %v (one failure must not fail the round)", err)
	}

	failed := 0
	for _, op := range opinions {
		if !op.Succeeded() {
			failed++
			if op.Err == "" {
				t.Error("failed opinion carries no error text")
			}
		}
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
}

func TestDeliberateAllFailed(t *testing.T) {
	client := &MockLLMClient{
		CompleteWithSystemFunc: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			return "", &gateway.FatalError{Op: "complete", Err: errors.New("invalid key")}
		},
	}

	o := testOrchestrator(client, 0)
	tasks := testTasks(3)
	_, err := o.Deliberate(context.Background(), tasks)

	var allFailed *AllAgentsFailedError
	if !errors.As(err, &allFailed) {
		t.Fatalf("want AllAgentsFailedError, got %v", err)
	}
	if len(allFailed.Opinions) != len(tasks) {
		t.Errorf("error carries %d opinions, want %d", len(allFailed.Opinions), len(tasks))
	}
	if !strings.Contains(err.Error(), "all 3 agents failed") {
		t.Errorf("error message: %v", err)
	}
}

func TestDeliberateRejectsEmptyTaskList(t *testing.T) {
	o := testOrchestrator(&MockLLMClient{}, 0)
	if _, err := o.Deliberate(context.Background(), nil); err == nil {
		t.Fatal("want error for empty task list")
	}
}

func TestRunTaskRetriesTransientErrors(t *testing.T) {
	var n int32
	client := &MockLLMClient{
		CompleteWithSystemFunc: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			if atomic.AddInt32(&n, 1) <= 2 {
				return "", &gateway.TransientError{Op: "complete", Err: errors.New("rate limited")}
			}
			return "analysis", nil
		},
	}

	o := testOrchestrator(client, 2)
	op := o.runTask(context.Background(), testTasks(1)[0])

	if op.Status != StatusSucceeded {
		t.Errorf("status = %s, want succeeded after retries", op.Status)
	}
	if got := atomic.LoadInt32(&n); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestRunTaskTransientExhaustionFails(t *testing.T) {
	client := &MockLLMClient{
		CompleteWithSystemFunc: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			return "", &gateway.TransientError{Op: "complete", Err: errors.New("upstream 503")}
		},
	}

	o := testOrchestrator(client, 2)
	op := o.runTask(context.Background(), testTasks(1)[0])

	if op.Status != StatusFailed {
		t.Errorf("status = %s, want failed", op.Status)
	}
	if client.Calls() != 3 {
		t.Errorf("calls = %d, want initial + 2 retries", client.Calls())
	}
}

func TestRunTaskFatalErrorIsNotRetried(t *testing.T) {
	client := &MockLLMClient{
		CompleteWithSystemFunc: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			return "", &gateway.FatalError{Op: "complete", Err: errors.New("unauthorized")}
		},
	}

	o := testOrchestrator(client, 5)
	op := o.runTask(context.Background(), testTasks(1)[0])

	if op.Status != StatusFailed {
		t.Errorf("status = %s, want failed", op.Status)
	}
	if client.Calls() != 1 {
		t.Errorf("calls = %d, fatal errors must not retry", client.Calls())
	}
}

func TestRunTaskTimesOut(t *testing.T) {
	client := &MockLLMClient{
		CompleteWithSystemFunc: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}

	o := testOrchestrator(client, 3)
	o.taskTimeout = 20 * time.Millisecond
	op := o.runTask(context.Background(), testTasks(1)[0])

	if op.Status != StatusTimedOut {
		t.Errorf("status = %s, want timed_out", op.Status)
	}
	if client.Calls() != 1 {
		t.Errorf("calls = %d, timeouts are terminal", client.Calls())
	}
}

func TestNewClampsNegativeRetryAttempts(t *testing.T) {
	client := &MockLLMClient{
		CompleteWithSystemFunc: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			return "", &gateway.TransientError{Op: "complete", Err: errors.New("upstream 503")}
		},
	}

	cfg := config.DefaultConfig()
	cfg.Swarm.RetryAttempts = -1

	o := New(client, cfg)
	if o.retryAttempts != 0 {
		t.Errorf("retryAttempts = %d, want clamped to 0", o.retryAttempts)
	}

	// A failing task must still reach a terminal failed state, not panic.
	op := o.runTask(context.Background(), testTasks(1)[0])
	if op.Status != StatusFailed {
		t.Errorf("status = %s, want failed", op.Status)
	}
	if op.Err == "" {
		t.Error("failed opinion carries no error text")
	}
	if client.Calls() != 1 {
		t.Errorf("calls = %d, want exactly one attempt", client.Calls())
	}
}

func TestNewReadsSwarmConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Swarm.MaxWorkers = 4
	cfg.Swarm.RetryAttempts = 1

	o := New(&MockLLMClient{}, cfg)
	if o.maxWorkers != 4 {
		t.Errorf("maxWorkers = %d", o.maxWorkers)
	}
	if o.retryAttempts != 1 {
		t.Errorf("retryAttempts = %d", o.retryAttempts)
	}
}

const rosterYAML = `
personas:
  - name: B One
    camp: Believer
    backstory: b
    expertise: e
  - name: B Two
    camp: Believer
    backstory: b
    expertise: e
  - name: S One
    camp: Skeptic
    backstory: b
    expertise: e
  - name: S Two
    camp: Skeptic
    backstory: b
    expertise: e
  - name: N One
    camp: Neutral
    backstory: b
    expertise: e
`

const forepersonYAML = `
name: Foreperson
camp: Foreperson
backstory: b
expertise: e
`

func testRegistry(t *testing.T) *persona.Registry {
	t.Helper()
	dir := t.TempDir()
	pPath := filepath.Join(dir, "personas.yaml")
	fPath := filepath.Join(dir, "foreperson.yaml")
	if err := os.WriteFile(pPath, []byte(rosterYAML), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fPath, []byte(forepersonYAML), 0644); err != nil {
		t.Fatal(err)
	}
	reg, err := persona.Load(pPath, fPath, config.CompositionConfig{Believers: 2, Skeptics: 2, Neutrals: 1})
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestBuildTasksLabelsAndOrder(t *testing.T) {
	reg := testRegistry(t)
	tasks := BuildTasks(reg, "input", nil)

	if len(tasks) != 5 {
		t.Fatalf("got %d tasks, want 5", len(tasks))
	}
	wantLabels := []string{"Believer 1", "Believer 2", "Skeptic 1", "Skeptic 2", "Neutral 1"}
	for i, task := range tasks {
		if task.Label != wantLabels[i] {
			t.Errorf("task %d label = %q, want %q", i, task.Label, wantLabels[i])
		}
		if task.Index != i {
			t.Errorf("task %d index = %d", i, task.Index)
		}
		if task.ID == "" {
			t.Errorf("task %d has no ID", i)
		}
	}
}

func TestBuildTasksCarriesExtensionText(t *testing.T) {
	reg := testRegistry(t)
	ext := &extension.Context{Name: "websec", Text: "=== Web Security Expertise ===\nprompt"}
	tasks := BuildTasks(reg, "input", ext)

	for i, task := range tasks {
		if task.ExtensionText != ext.Text {
			t.Errorf("task %d missing extension text", i)
		}
	}
}
