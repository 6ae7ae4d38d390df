// Package consensus feeds collected opinions through the foreperson persona
// and parses the structured result, including the mandatory confidence score.
package consensus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"thinktank/internal/gateway"
	"thinktank/internal/logging"
	"thinktank/internal/persona"
	"thinktank/internal/swarm"
)

// Result is the parsed foreperson synthesis.
type Result struct {
	Summary         string  `json:"summary"`
	Agreement       string  `json:"agreement,omitempty"`
	Disagreement    string  `json:"disagreement,omitempty"`
	Insights        string  `json:"insights,omitempty"`
	Recommendations string  `json:"recommendations,omitempty"`
	Confidence      float64 `json:"confidence_score"`
	Raw             string  `json:"raw"`
}

// Synthesizer runs the single foreperson completion that reduces all
// opinions into one consensus report.
type Synthesizer struct {
	client gateway.Client
}

// NewSynthesizer builds a synthesizer over the foreperson's gateway client.
func NewSynthesizer(client gateway.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

// Synthesize builds one completion over every collected opinion and parses
// the structured consensus out of the response. Failed opinions appear in
// the prompt as unavailable perspectives so partial failure stays auditable.
// A missing confidence score is a SynthesisParseError, never a default.
func (s *Synthesizer) Synthesize(ctx context.Context, foreperson persona.Persona, opinions []swarm.Opinion, originalInput string) (*Result, error) {
	log := logging.Get(logging.CategoryConsensus)

	prompt := buildSynthesisPrompt(originalInput, opinions)
	systemPrompt := foreperson.SystemPrompt("")

	start := time.Now()
	raw, err := s.client.CompleteWithSystem(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("foreperson synthesis: %w", err)
	}

	confidence, ok := extractConfidence(raw)
	if !ok {
		log.Error("No confidence score in synthesis output")
		return nil, &SynthesisParseError{Reason: "no confidence score found", Raw: raw}
	}

	sections := parseSections(raw)

	log.Info("Synthesis complete",
		zap.Float64("confidence", confidence),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		Summary:         sections["summary"],
		Agreement:       sections["agreement"],
		Disagreement:    sections["disagreement"],
		Insights:        sections["insights"],
		Recommendations: sections["recommendations"],
		Confidence:      confidence,
		Raw:             raw,
	}, nil
}

// buildSynthesisPrompt lays every opinion in front of the foreperson.
// Unsuccessful perspectives are summarized, not silently omitted.
func buildSynthesisPrompt(originalInput string, opinions []swarm.Opinion) string {
	var sb strings.Builder

	sb.WriteString("You are synthesizing a multi-agent deliberation on the following question:\n\n")
	sb.WriteString(originalInput)
	sb.WriteString(fmt.Sprintf("\n\nThe deliberation involved %d agent perspectives:\n", len(opinions)))

	for _, op := range opinions {
		if op.Succeeded() {
			sb.WriteString(fmt.Sprintf("\n[%s]:\n%s\n", op.Label, op.Text))
		} else {
			sb.WriteString(fmt.Sprintf("\n[%s]: perspective unavailable (%s)\n", op.Label, op.Status))
		}
	}

	sb.WriteString(`
As Foreperson, provide a comprehensive consensus report with:
1. Executive Summary
2. Areas of Agreement
3. Areas of Disagreement (if any)
4. Key Insights and Analysis
5. Recommendations

Format your response as a structured report. End the report with a single
line of the form "Confidence Score: N%" stating your overall confidence
(0-100) in the consensus.`)

	return sb.String()
}
