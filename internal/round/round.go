// Package round executes one full deliberation: extension activation,
// persona fan-out (one or more phases), foreperson synthesis, and the
// threshold decision. Each round is stateless; nothing persists between
// invocations.
package round

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"thinktank/internal/config"
	"thinktank/internal/consensus"
	"thinktank/internal/decision"
	"thinktank/internal/extension"
	"thinktank/internal/gateway"
	"thinktank/internal/logging"
	"thinktank/internal/persona"
	"thinktank/internal/swarm"
)

// Stage names used in failure reporting.
const (
	StageGather     = "gather"
	StageSynthesize = "synthesize"
)

// StageError reports which stage of a round failed and carries whichever
// partial opinions were collected, for manual inspection.
type StageError struct {
	Stage    string
	Err      error
	Opinions []swarm.Opinion
}

func (e *StageError) Error() string {
	return fmt.Sprintf("round failed at %s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Result is the complete outcome of one deliberation round.
type Result struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Elapsed       time.Duration     `json:"elapsed"`
	Consensus     *consensus.Result `json:"consensus"`
	Decision      decision.Decision `json:"security_assessment"`
	Opinions      []swarm.Opinion   `json:"individual_opinions"`
	ExtensionUsed string            `json:"extension_used,omitempty"`
	Phases        int               `json:"phases"`
}

// Runner wires the deliberation pipeline. All held state is read-only after
// construction, so a single runner may serve concurrent rounds.
type Runner struct {
	cfg          *config.Config
	registry     *persona.Registry
	descriptors  []extension.Descriptor
	orchestrator *swarm.Orchestrator
	synthesizer  *consensus.Synthesizer
}

// NewRunner loads the persona roster and extension descriptors and builds
// the gateway clients. Configuration problems surface here, before any
// round starts.
func NewRunner(cfg *config.Config) (*Runner, error) {
	reg, err := persona.Load(cfg.Personas.Path, cfg.Personas.ForepersonPath, cfg.Swarm.Composition)
	if err != nil {
		return nil, err
	}

	var descriptors []extension.Descriptor
	if cfg.Extensions.Enabled {
		descriptors, err = extension.Load(cfg.Extensions.Path)
		if err != nil {
			return nil, err
		}
	}

	agentClient, err := gateway.New(cfg, cfg.LLM.AgentMaxTokens)
	if err != nil {
		return nil, err
	}
	forepersonClient, err := gateway.New(cfg, cfg.LLM.ForepersonMaxTokens)
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:          cfg,
		registry:     reg,
		descriptors:  descriptors,
		orchestrator: swarm.New(agentClient, cfg),
		synthesizer:  consensus.NewSynthesizer(forepersonClient),
	}, nil
}

// Registry exposes the loaded roster for inspection commands.
func (r *Runner) Registry() *persona.Registry { return r.registry }

// Descriptors exposes the loaded extensions for inspection commands.
func (r *Runner) Descriptors() []extension.Descriptor { return r.descriptors }

// Run executes one deliberation over the input and maps the consensus
// confidence to a decision.
func (r *Runner) Run(ctx context.Context, input string) (*Result, error) {
	log := logging.Get(logging.CategorySwarm)
	start := time.Now()
	id := uuid.NewString()

	ext := extension.Activate(input, r.descriptors)
	extName := ""
	if ext != nil {
		extName = ext.Name
	}

	phases := r.cfg.Swarm.Phases
	log.Info("Round started",
		zap.String("round", id),
		zap.Int("phases", phases),
		zap.String("extension", extName))

	var allOpinions []swarm.Opinion
	phaseInput := input

	for phase := 1; phase <= phases; phase++ {
		if phase > 1 {
			phaseInput = buildPhaseContext(input, allOpinions, r.registry.Size())
		}

		tasks := swarm.BuildTasks(r.registry, phaseInput, ext)
		opinions, err := r.orchestrator.Deliberate(ctx, tasks)
		if err != nil {
			var failed *swarm.AllAgentsFailedError
			if errors.As(err, &failed) {
				return nil, &StageError{Stage: StageGather, Err: err, Opinions: append(allOpinions, failed.Opinions...)}
			}
			return nil, &StageError{Stage: StageGather, Err: err, Opinions: allOpinions}
		}
		allOpinions = append(allOpinions, opinions...)
	}

	result, err := r.synthesizer.Synthesize(ctx, r.registry.Foreperson(), allOpinions, input)
	if err != nil {
		return nil, &StageError{Stage: StageSynthesize, Err: err, Opinions: allOpinions}
	}

	dec := decision.Map(result.Confidence)

	log.Info("Round complete",
		zap.String("round", id),
		zap.Float64("confidence", result.Confidence),
		zap.String("tag", string(dec.Tag)),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		ID:            id,
		Timestamp:     start,
		Elapsed:       time.Since(start),
		Consensus:     result,
		Decision:      dec,
		Opinions:      allOpinions,
		ExtensionUsed: extName,
		Phases:        phases,
	}, nil
}

// buildPhaseContext frames a rebuttal phase: the original question plus the
// previous phase's perspectives.
func buildPhaseContext(original string, opinions []swarm.Opinion, perPhase int) string {
	var sb strings.Builder
	sb.WriteString("Original question: ")
	sb.WriteString(original)
	sb.WriteString("\n\nPrevious perspectives:\n\n")

	// Only the most recent phase feeds the next round of rebuttals.
	last := opinions
	if len(last) > perPhase {
		last = last[len(last)-perPhase:]
	}
	for _, op := range last {
		if op.Succeeded() {
			sb.WriteString(fmt.Sprintf("[%s]: %s\n\n", op.Label, op.Text))
		} else {
			sb.WriteString(fmt.Sprintf("[%s]: perspective unavailable\n\n", op.Label))
		}
	}

	sb.WriteString("\nConsidering these perspectives, provide your updated analysis:")
	return sb.String()
}
