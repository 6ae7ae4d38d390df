// Package extension implements keyword-triggered domain context injection.
// Extensions are static data (keywords, priority, prompt text), not plugins:
// the only variable behavior is text substitution into agent prompts.
package extension

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"thinktank/internal/config"
	"thinktank/internal/logging"
)

// Descriptor is one extension definition. Immutable once loaded.
type Descriptor struct {
	Name         string   `yaml:"name"`
	DisplayName  string   `yaml:"display_name"`
	Keywords     []string `yaml:"keywords"`
	Priority     int      `yaml:"priority"`
	SystemPrompt string   `yaml:"system_prompt"`

	// loadOrder breaks priority ties: first loaded wins. Loading sorts
	// directory entries by name, so the tie-break is deterministic.
	loadOrder int
}

// Context is the activated extension text to merge into every agent prompt.
type Context struct {
	Name string
	Text string
}

// Load reads all *.yaml descriptors from dir. A missing directory is not an
// error: deliberation simply runs without extensions.
func Load(dir string) ([]Descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &config.ConfigurationError{Path: dir, Err: fmt.Errorf("read extensions: %w", err)}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var descriptors []Descriptor
	for i, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &config.ConfigurationError{Path: path, Err: err}
		}

		var d Descriptor
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, &config.ConfigurationError{Path: path, Err: fmt.Errorf("parse extension: %w", err)}
		}
		if err := d.validate(); err != nil {
			return nil, &config.ConfigurationError{Path: path, Err: err}
		}
		d.loadOrder = i
		descriptors = append(descriptors, d)
	}

	logging.Get(logging.CategoryExtension).Info("Extensions loaded",
		zap.Int("count", len(descriptors)))

	return descriptors, nil
}

func (d Descriptor) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("extension is missing a name")
	}
	if len(d.Keywords) == 0 {
		return fmt.Errorf("extension %q has no trigger keywords", d.Name)
	}
	if strings.TrimSpace(d.SystemPrompt) == "" {
		return fmt.Errorf("extension %q has no system prompt", d.Name)
	}
	return nil
}

// matches reports whether any keyword appears in the input,
// case-insensitively.
func (d Descriptor) matches(inputLower string) bool {
	for _, kw := range d.Keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(inputLower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Activate selects the extension context for an input, or nil when no
// descriptor matches. Among matches, highest priority wins; ties go to the
// earliest-loaded descriptor.
func Activate(input string, descriptors []Descriptor) *Context {
	log := logging.Get(logging.CategoryExtension)
	inputLower := strings.ToLower(input)

	var best *Descriptor
	for i := range descriptors {
		d := &descriptors[i]
		if !d.matches(inputLower) {
			continue
		}
		if best == nil || d.Priority > best.Priority ||
			(d.Priority == best.Priority && d.loadOrder < best.loadOrder) {
			best = d
		}
	}

	if best == nil {
		log.Debug("No extension matched")
		return nil
	}

	display := best.DisplayName
	if display == "" {
		display = best.Name
	}

	log.Info("Extension activated",
		zap.String("name", best.Name),
		zap.Int("priority", best.Priority))

	return &Context{
		Name: best.Name,
		Text: fmt.Sprintf("=== %s Expertise ===\n%s", display, best.SystemPrompt),
	}
}
