// Package persona loads and validates the fixed roster of deliberation
// personas. Personas are immutable once loaded and safe to share across
// concurrent tasks.
package persona

import (
	"fmt"
	"strings"
)

// Persona is one agent identity. All fields are set at load time and never
// mutated afterwards.
type Persona struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Camp      Camp   `yaml:"camp"`
	Backstory string `yaml:"backstory"`
	Expertise string `yaml:"expertise"`

	// Optional profile fields carried through into the system prompt.
	Education string `yaml:"education"`
	Age       string `yaml:"age"`
	Gender    string `yaml:"gender"`
}

// SystemPrompt builds the agent's system prompt from its persona record,
// with the optional activated extension context injected before the stance
// instruction.
func (p Persona) SystemPrompt(extensionContext string) string {
	var sb strings.Builder

	sb.WriteString("You are an expert analyst with the following background:\n")
	sb.WriteString(fmt.Sprintf("Name: %s\n", p.Name))
	sb.WriteString(fmt.Sprintf("Professional background: %s\n", p.Backstory))
	sb.WriteString(fmt.Sprintf("Areas of expertise: %s\n", p.Expertise))
	if p.Education != "" {
		sb.WriteString(fmt.Sprintf("Education: %s\n", p.Education))
	}
	if p.Age != "" || p.Gender != "" {
		sb.WriteString(fmt.Sprintf("Age: %s, Gender: %s\n", orNA(p.Age), orNA(p.Gender)))
	}
	sb.WriteString(fmt.Sprintf("Perspective: %s\n", p.Camp))

	if extensionContext != "" {
		sb.WriteString("\n")
		sb.WriteString(extensionContext)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(p.Camp.stanceInstruction())
	sb.WriteString("\n\nProvide direct, professional responses based on your background and perspective.")

	return sb.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// validate checks required fields for one persona record.
func (p Persona) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("persona is missing a name")
	}
	if _, err := ParseCamp(string(p.Camp)); err != nil {
		return fmt.Errorf("persona %q: %w", p.Name, err)
	}
	if strings.TrimSpace(p.Backstory) == "" {
		return fmt.Errorf("persona %q is missing a backstory", p.Name)
	}
	if strings.TrimSpace(p.Expertise) == "" {
		return fmt.Errorf("persona %q is missing expertise", p.Name)
	}
	return nil
}

// slug derives a stable ID from a persona name when none is given.
func slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Join(strings.Fields(s), "-")
	return s
}
