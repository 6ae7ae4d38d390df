// Package report assembles the machine-readable result object and the
// human-readable analysis report written after a round. It is consumed only
// by the CLI layer; the deliberation core never reads these artifacts back.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"thinktank/internal/logging"
	"thinktank/internal/round"
)

// KeyFindings buckets consensus bullet lines by severity, best-effort.
type KeyFindings struct {
	CriticalIssues  []string `json:"critical_issues"`
	MediumIssues    []string `json:"medium_issues"`
	LowIssues       []string `json:"low_issues"`
	Recommendations []string `json:"recommendations"`
}

// Artifact is the persisted round result.
type Artifact struct {
	PromptSummary      string            `json:"prompt_summary"`
	AnalysisTimestamp  time.Time         `json:"analysis_timestamp"`
	ConfidenceScore    float64           `json:"confidence_score"`
	SecurityAssessment assessmentJSON    `json:"security_assessment"`
	KeyFindings        KeyFindings       `json:"key_findings"`
	ConsensusReport    string            `json:"consensus_report"`
	IndividualOpinions []opinionJSON     `json:"individual_opinions"`
	ExtensionUsed      bool              `json:"extension_used"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

type assessmentJSON struct {
	Tag    string `json:"tag"`
	Action string `json:"action"`
	Reason string `json:"reason"`
}

type opinionJSON struct {
	Camp     string `json:"camp"`
	Label    string `json:"label"`
	Text     string `json:"text,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// Build assembles the artifact from a completed round.
func Build(res *round.Result, promptSummary string) *Artifact {
	a := &Artifact{
		PromptSummary:     promptSummary,
		AnalysisTimestamp: res.Timestamp,
		ConfidenceScore:   res.Consensus.Confidence,
		SecurityAssessment: assessmentJSON{
			Tag:    string(res.Decision.Tag),
			Action: res.Decision.Action,
			Reason: res.Decision.Reason,
		},
		KeyFindings:     extractKeyFindings(res.Consensus.Raw),
		ConsensusReport: res.Consensus.Raw,
		ExtensionUsed:   res.ExtensionUsed != "",
		Metadata: map[string]string{
			"round_id": res.ID,
			"elapsed":  res.Elapsed.String(),
		},
	}
	for _, op := range res.Opinions {
		a.IndividualOpinions = append(a.IndividualOpinions, opinionJSON{
			Camp:     string(op.Camp),
			Label:    op.Label,
			Text:     op.Text,
			Status:   string(op.Status),
			Error:    op.Err,
			Duration: op.Duration.String(),
		})
	}
	return a
}

// WriteJSON persists the machine-readable result object.
func (a *Artifact) WriteJSON(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	logging.Get(logging.CategoryReport).Info("JSON result written", zap.String("path", path))
	return nil
}

// WriteMarkdown persists the human-readable report with the assessment
// header up front.
func (a *Artifact) WriteMarkdown(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", a.PromptSummary))
	sb.WriteString(fmt.Sprintf("**Analysis Date**: %s\n", a.AnalysisTimestamp.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("**Confidence Score**: %.1f%%\n", a.ConfidenceScore))
	sb.WriteString(fmt.Sprintf("**Tag**: %s\n", a.SecurityAssessment.Tag))
	sb.WriteString(fmt.Sprintf("**Action**: %s\n\n", a.SecurityAssessment.Action))

	switch a.SecurityAssessment.Tag {
	case "APPROVE":
		sb.WriteString("**STATUS**: APPROVED FOR DEPLOYMENT\n\n")
	case "BLOCK":
		sb.WriteString("**STATUS**: DEPLOYMENT BLOCKED\n\n")
	default:
		sb.WriteString("**STATUS**: MANUAL REVIEW REQUIRED\n\n")
	}

	sb.WriteString(fmt.Sprintf("**Reasoning**: %s\n\n", a.SecurityAssessment.Reason))
	sb.WriteString("---\n\n## Full Consensus Report\n\n")
	sb.WriteString(a.ConsensusReport)
	sb.WriteString("\n\n---\n\n## Individual Opinions\n\n")
	for _, op := range a.IndividualOpinions {
		sb.WriteString(fmt.Sprintf("### %s (%s)\n\n", op.Label, op.Status))
		if op.Text != "" {
			sb.WriteString(op.Text)
			sb.WriteString("\n\n")
		} else if op.Error != "" {
			sb.WriteString(fmt.Sprintf("_Perspective unavailable: %s_\n\n", op.Error))
		}
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	logging.Get(logging.CategoryReport).Info("Markdown report written", zap.String("path", path))
	return nil
}

var bulletRe = regexp.MustCompile(`^(\-|\*|•|\d+\.)\s+`)

// extractKeyFindings buckets bullet lines under the most recent severity
// heading seen. Purely heuristic; the raw report stays authoritative.
func extractKeyFindings(text string) KeyFindings {
	var kf KeyFindings
	section := ""

	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "critical") || strings.Contains(lower, "blocker"):
			section = "critical"
		case strings.Contains(lower, "medium") || strings.Contains(lower, "moderate"):
			section = "medium"
		case strings.Contains(lower, "low") || strings.Contains(lower, "minor"):
			section = "low"
		case strings.Contains(lower, "recommend"):
			section = "recommendations"
		}

		trimmed := strings.TrimSpace(line)
		if section == "" || !bulletRe.MatchString(trimmed) {
			continue
		}
		switch section {
		case "critical":
			kf.CriticalIssues = append(kf.CriticalIssues, trimmed)
		case "medium":
			kf.MediumIssues = append(kf.MediumIssues, trimmed)
		case "low":
			kf.LowIssues = append(kf.LowIssues, trimmed)
		case "recommendations":
			kf.Recommendations = append(kf.Recommendations, trimmed)
		}
	}
	return kf
}

// FailureArtifact captures a failed round for manual inspection: the stage
// that failed plus whichever partial opinions were collected.
type FailureArtifact struct {
	Stage             string        `json:"failed_stage"`
	Error             string        `json:"error"`
	AnalysisTimestamp time.Time     `json:"analysis_timestamp"`
	PartialOpinions   []opinionJSON `json:"partial_opinions,omitempty"`
}

// BuildFailure assembles the failure artifact from a stage error.
func BuildFailure(stageErr *round.StageError) *FailureArtifact {
	fa := &FailureArtifact{
		Stage:             stageErr.Stage,
		Error:             stageErr.Err.Error(),
		AnalysisTimestamp: time.Now(),
	}
	for _, op := range stageErr.Opinions {
		fa.PartialOpinions = append(fa.PartialOpinions, opinionJSON{
			Camp:     string(op.Camp),
			Label:    op.Label,
			Text:     op.Text,
			Status:   string(op.Status),
			Error:    op.Err,
			Duration: op.Duration.String(),
		})
	}
	return fa
}

// WriteJSON persists the failure artifact.
func (fa *FailureArtifact) WriteJSON(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	data, err := json.MarshalIndent(fa, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal failure: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write failure: %w", err)
	}
	return nil
}
