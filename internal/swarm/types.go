// Package swarm runs one completion per persona concurrently and collects
// every result with per-task isolation: one persona's failure never aborts
// the round.
package swarm

import (
	"fmt"
	"strings"
	"time"

	"thinktank/internal/persona"
)

// Status is the terminal state of one deliberation task.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// Task is one persona's unit of work for a single phase. Owned exclusively
// by the orchestrator until its result is folded into the opinion list.
type Task struct {
	ID            string // correlation ID, unique per round
	Index         int    // dispatch position, fixed before fan-out
	Label         string // "Believer 1", "Skeptic 2", ...
	Persona       persona.Persona
	Input         string
	ExtensionText string
}

// Opinion is the tagged outcome of one task. Exactly one Opinion is produced
// per task; failures are represented, never dropped.
type Opinion struct {
	TaskID   string        `json:"task_id"`
	Label    string        `json:"label"`
	Camp     persona.Camp  `json:"camp"`
	Text     string        `json:"text,omitempty"`
	Status   Status        `json:"status"`
	Err      string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether the opinion carries usable text.
func (o Opinion) Succeeded() bool {
	return o.Status == StatusSucceeded
}

// AllAgentsFailedError signals that every persona in a round failed. A
// synthesis over zero opinions is meaningless, so the round fails as a whole.
type AllAgentsFailedError struct {
	Opinions []Opinion
}

func (e *AllAgentsFailedError) Error() string {
	reasons := make([]string, 0, len(e.Opinions))
	for _, o := range e.Opinions {
		reasons = append(reasons, fmt.Sprintf("%s: %s (%s)", o.Label, o.Status, o.Err))
	}
	return fmt.Sprintf("all %d agents failed: %s", len(e.Opinions), strings.Join(reasons, "; "))
}
