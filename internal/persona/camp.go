package persona

import "fmt"

// Camp is an agent's fixed deliberation stance. The set is closed: persona
// definitions naming any other camp are rejected at load time.
type Camp string

const (
	CampBeliever   Camp = "Believer"
	CampSkeptic    Camp = "Skeptic"
	CampNeutral    Camp = "Neutral"
	CampForeperson Camp = "Foreperson"
)

// deliberationOrder is the fixed dispatch order for fan-out. The foreperson
// never deliberates; it only synthesizes.
var deliberationOrder = []Camp{CampBeliever, CampSkeptic, CampNeutral}

// ParseCamp validates a camp string against the closed set.
func ParseCamp(s string) (Camp, error) {
	switch Camp(s) {
	case CampBeliever, CampSkeptic, CampNeutral, CampForeperson:
		return Camp(s), nil
	default:
		return "", fmt.Errorf("unknown camp %q (valid: Believer, Skeptic, Neutral, Foreperson)", s)
	}
}

// stanceInstruction returns the camp-specific framing appended to every
// agent's system prompt.
func (c Camp) stanceInstruction() string {
	switch c {
	case CampBeliever:
		return "As a Believer, you are optimistic and solution-focused. " +
			"Look for opportunities, benefits, and viable approaches. " +
			"While staying realistic, emphasize constructive possibilities."
	case CampSkeptic:
		return "As a Skeptic, you are critical and risk-focused. " +
			"Question assumptions, identify potential problems, and challenge weak points. " +
			"While being constructive, emphasize risks and limitations."
	case CampNeutral:
		return "As a Neutral observer, you are balanced and objective. " +
			"Consider both benefits and risks equally. " +
			"Provide well-reasoned analysis without strong bias in either direction."
	case CampForeperson:
		return "As the Foreperson, you synthesize multiple perspectives into a coherent consensus. " +
			"Identify areas of agreement and disagreement. " +
			"Provide balanced recommendations that acknowledge different viewpoints."
	default:
		return ""
	}
}
