// Package decision maps a consensus confidence score to a discrete,
// auditable decision through a fixed threshold policy.
package decision

import "fmt"

// Tag is the closed set of decision outcomes.
type Tag string

const (
	TagApprove Tag = "APPROVE"
	TagReview  Tag = "REVIEW"
	TagBlock   Tag = "BLOCK"
)

// Decision is the threshold policy outcome. Derived solely from the
// confidence score; computed once per round and never recomputed.
type Decision struct {
	Tag    Tag     `json:"tag"`
	Action string  `json:"action"`
	Reason string  `json:"reason"`
	Score  float64 `json:"confidence_score"`
}

// Map applies the threshold policy. Boundaries are exact: scores above 75
// approve, 50 through 75 inclusive escalate to review, below 50 block.
// Pure and deterministic.
func Map(confidence float64) Decision {
	switch {
	case confidence > 75:
		return Decision{
			Tag:    TagApprove,
			Action: "auto-approve",
			Reason: fmt.Sprintf("High confidence (%.1f%%) in assessment", confidence),
			Score:  confidence,
		}
	case confidence >= 50:
		return Decision{
			Tag:    TagReview,
			Action: "escalate to human",
			Reason: fmt.Sprintf("Moderate confidence (%.1f%%) requires human judgment", confidence),
			Score:  confidence,
		}
	default:
		return Decision{
			Tag:    TagBlock,
			Action: "block deployment",
			Reason: fmt.Sprintf("Low confidence (%.1f%%) indicates significant concerns", confidence),
			Score:  confidence,
		}
	}
}
