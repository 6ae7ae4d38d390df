package consensus

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SynthesisParseError reports a foreperson output with no parseable
// confidence score. This failure is loud: the round fails rather than
// running on a guessed score.
type SynthesisParseError struct {
	Reason string
	Raw    string
}

func (e *SynthesisParseError) Error() string {
	head := e.Raw
	if len(head) > 200 {
		head = head[:200] + "..."
	}
	return fmt.Sprintf("synthesis parse error: %s (output head: %q)", e.Reason, head)
}

// Confidence extraction is a best-effort pattern match over free-form model
// output and is the weakest link of the whole system. Final or restated
// scores take precedence over per-agent scores, so the LAST match of the
// highest-priority pattern wins.
var priorityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)final\s+confidence[:\s]+(\d+(?:\.\d+)?)%?`),
	regexp.MustCompile(`(?i)consensus\s+confidence[:\s]+(\d+(?:\.\d+)?)%?`),
	regexp.MustCompile(`(?i)overall\s+confidence[:\s]+(\d+(?:\.\d+)?)%?`),
	regexp.MustCompile(`(?i)final\s+score[:\s]+(\d+(?:\.\d+)?)%?`),
	regexp.MustCompile(`(?i)consensus\s+score[:\s]+(\d+(?:\.\d+)?)%?`),
	regexp.MustCompile(`(?i)confidence\s+score[:\s]*[:-]?\s*(\d+(?:\.\d+)?)%`),
}

var standardPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)confidence[:\s]+(\d+(?:\.\d+)?)%`),
	regexp.MustCompile(`(?i)credence[:\s]+(\d+(?:\.\d+)?)%`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)%\s+confidence`),
}

// extractConfidence pulls the consensus confidence score from free text.
// Priority order: explicit final/consensus phrasings anywhere, then generic
// confidence mentions in the tail of the document, then anywhere. In every
// tier the last match wins.
func extractConfidence(text string) (float64, bool) {
	if score, ok := lastMatch(text, priorityPatterns); ok {
		return score, true
	}

	// Final scores are usually restated at the end.
	tail := text
	if len(tail) > 500 {
		tail = tail[len(tail)-500:]
	}
	if score, ok := lastMatch(tail, standardPatterns); ok {
		return score, true
	}

	return lastMatch(text, standardPatterns)
}

func lastMatch(text string, patterns []*regexp.Regexp) (float64, bool) {
	for _, pat := range patterns {
		matches := pat.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		raw := matches[len(matches)-1][1]
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil || score < 0 || score > 100 {
			continue
		}
		return score, true
	}
	return 0, false
}

// sectionHeadings map report headings to result fields, matched
// case-insensitively as line prefixes after markdown decoration is stripped.
var sectionHeadings = map[string]string{
	"executive summary":     "summary",
	"areas of agreement":    "agreement",
	"agreement":             "agreement",
	"areas of disagreement": "disagreement",
	"disagreement":          "disagreement",
	"key insights":          "insights",
	"recommendations":       "recommendations",
}

// parseSections splits the report into its structured sections, best-effort.
// Unrecognized text before the first heading folds into the summary.
func parseSections(text string) map[string]string {
	sections := make(map[string]string)
	current := "summary"
	var buf strings.Builder

	flush := func() {
		body := strings.TrimSpace(buf.String())
		if body != "" {
			if prev := sections[current]; prev != "" {
				body = prev + "\n" + body
			}
			sections[current] = body
		}
		buf.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		heading := strings.ToLower(strings.TrimSpace(strings.Trim(line, "#*-=0123456789. ")))
		if key, ok := sectionHeadings[heading]; ok {
			flush()
			current = key
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	flush()

	return sections
}
