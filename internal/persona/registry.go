package persona

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"thinktank/internal/config"
	"thinktank/internal/logging"
)

// Registry holds the validated persona roster. It exposes no mutation
// operations: personas are read-only shared state for the whole round.
type Registry struct {
	personas   []Persona // deliberating agents, load order
	foreperson Persona
	byCamp     map[Camp][]Persona
}

// personaFile is the on-disk YAML shape. A bare list and a single mapping
// are both accepted for the foreperson file.
type personaFile struct {
	Personas []Persona `yaml:"personas"`
}

// Load reads persona definitions and validates them against the required
// swarm composition. Count mismatches and missing fields are configuration
// errors; nothing partial is ever returned.
func Load(path, forepersonPath string, comp config.CompositionConfig) (*Registry, error) {
	log := logging.Get(logging.CategoryPersona)

	personas, err := readPersonas(path)
	if err != nil {
		return nil, &config.ConfigurationError{Path: path, Err: err}
	}

	foreperson, err := readForeperson(forepersonPath)
	if err != nil {
		return nil, &config.ConfigurationError{Path: forepersonPath, Err: err}
	}

	reg := &Registry{
		personas:   personas,
		foreperson: foreperson,
		byCamp:     make(map[Camp][]Persona),
	}
	for _, p := range personas {
		reg.byCamp[p.Camp] = append(reg.byCamp[p.Camp], p)
	}

	if err := reg.validateComposition(comp); err != nil {
		return nil, &config.ConfigurationError{Path: path, Err: err}
	}

	log.Info("Persona roster loaded",
		zap.Int("agents", len(personas)),
		zap.String("foreperson", foreperson.Name))

	return reg, nil
}

func readPersonas(path string) ([]Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read personas: %w", err)
	}

	var pf personaFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse personas: %w", err)
	}
	if len(pf.Personas) == 0 {
		return nil, fmt.Errorf("no personas defined")
	}

	for i := range pf.Personas {
		if err := pf.Personas[i].validate(); err != nil {
			return nil, err
		}
		if pf.Personas[i].ID == "" {
			pf.Personas[i].ID = slug(pf.Personas[i].Name)
		}
		if pf.Personas[i].Camp == CampForeperson {
			return nil, fmt.Errorf("persona %q: foreperson belongs in the foreperson file", pf.Personas[i].Name)
		}
	}

	return pf.Personas, nil
}

func readForeperson(path string) (Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("read foreperson: %w", err)
	}

	// Accept both a personas list (first entry wins) and a single mapping.
	var pf personaFile
	if err := yaml.Unmarshal(data, &pf); err == nil && len(pf.Personas) > 0 {
		return validateForeperson(pf.Personas[0])
	}

	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Persona{}, fmt.Errorf("parse foreperson: %w", err)
	}
	return validateForeperson(p)
}

func validateForeperson(p Persona) (Persona, error) {
	if err := p.validate(); err != nil {
		return Persona{}, err
	}
	if p.Camp != CampForeperson {
		return Persona{}, fmt.Errorf("foreperson persona %q has camp %s, want Foreperson", p.Name, p.Camp)
	}
	if p.ID == "" {
		p.ID = slug(p.Name)
	}
	return p, nil
}

// validateComposition requires the loaded roster to match the configured
// swarm composition exactly.
func (r *Registry) validateComposition(comp config.CompositionConfig) error {
	want := map[Camp]int{
		CampBeliever: comp.Believers,
		CampSkeptic:  comp.Skeptics,
		CampNeutral:  comp.Neutrals,
	}
	for camp, n := range want {
		if got := len(r.byCamp[camp]); got != n {
			return fmt.Errorf("composition requires %d %s personas, found %d", n, camp, got)
		}
	}
	return nil
}

// ByCamp returns the personas of one camp in load order.
func (r *Registry) ByCamp(camp Camp) []Persona {
	out := make([]Persona, len(r.byCamp[camp]))
	copy(out, r.byCamp[camp])
	return out
}

// Foreperson returns the synthesis persona.
func (r *Registry) Foreperson() Persona {
	return r.foreperson
}

// DeliberationOrder returns the deliberating personas in fixed dispatch
// order: Believers, then Skeptics, then Neutral, each in load order.
func (r *Registry) DeliberationOrder() []Persona {
	var out []Persona
	for _, camp := range deliberationOrder {
		out = append(out, r.byCamp[camp]...)
	}
	return out
}

// Size returns the number of deliberating personas (foreperson excluded).
func (r *Registry) Size() int {
	return len(r.personas)
}
