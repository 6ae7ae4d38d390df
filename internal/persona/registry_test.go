package persona

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"thinktank/internal/config"
)

const validPersonasYAML = `
personas:
  - name: Dr. Sarah Chen
    camp: Believer
    backstory: Startup CTO who shipped three security products.
    expertise: Application security, product delivery
  - name: Marcus Webb
    camp: Believer
    backstory: Platform engineer turned evangelist.
    expertise: Cloud infrastructure
  - name: Elena Volkov
    camp: Skeptic
    backstory: Incident responder with a decade of breach postmortems.
    expertise: Threat modeling, incident response
  - name: James Okafor
    camp: Skeptic
    backstory: Penetration tester.
    expertise: Offensive security
  - name: Dr. Amara Singh
    camp: Neutral
    backstory: Academic researcher in empirical software engineering.
    expertise: Risk quantification
`

const validForepersonYAML = `
name: Judge Eleanor Walsh
camp: Foreperson
backstory: Retired federal judge who moderated technical disputes.
expertise: Deliberation synthesis, conflict resolution
`

func defaultComposition() config.CompositionConfig {
	return config.CompositionConfig{Believers: 2, Skeptics: 2, Neutrals: 1}
}

func writeRoster(t *testing.T, personas, foreperson string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	pPath := filepath.Join(dir, "personas.yaml")
	fPath := filepath.Join(dir, "foreperson.yaml")
	if err := os.WriteFile(pPath, []byte(personas), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fPath, []byte(foreperson), 0644); err != nil {
		t.Fatal(err)
	}
	return pPath, fPath
}

func TestLoadValidRoster(t *testing.T) {
	pPath, fPath := writeRoster(t, validPersonasYAML, validForepersonYAML)

	reg, err := Load(pPath, fPath, defaultComposition())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if reg.Size() != 5 {
		t.Errorf("Size = %d, want 5", reg.Size())
	}
	if got := reg.Foreperson().Name; got != "Judge Eleanor Walsh" {
		t.Errorf("Foreperson = %q", got)
	}
	if n := len(reg.ByCamp(CampBeliever)); n != 2 {
		t.Errorf("Believers = %d, want 2", n)
	}
	if n := len(reg.ByCamp(CampNeutral)); n != 1 {
		t.Errorf("Neutrals = %d, want 1", n)
	}
}

func TestDeliberationOrderIsBelieversSkepticsNeutral(t *testing.T) {
	pPath, fPath := writeRoster(t, validPersonasYAML, validForepersonYAML)
	reg, err := Load(pPath, fPath, defaultComposition())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var camps []Camp
	for _, p := range reg.DeliberationOrder() {
		camps = append(camps, p.Camp)
	}
	want := []Camp{CampBeliever, CampBeliever, CampSkeptic, CampSkeptic, CampNeutral}
	for i := range want {
		if camps[i] != want[i] {
			t.Fatalf("order[%d] = %s, want %s (full order %v)", i, camps[i], want[i], camps)
		}
	}
}

func TestLoadAssignsIDsFromNames(t *testing.T) {
	pPath, fPath := writeRoster(t, validPersonasYAML, validForepersonYAML)
	reg, err := Load(pPath, fPath, defaultComposition())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := reg.DeliberationOrder()[0].ID; got != "dr.-sarah-chen" {
		t.Errorf("ID = %q, want slug of name", got)
	}
}

func TestLoadRejectsCompositionMismatch(t *testing.T) {
	pPath, fPath := writeRoster(t, validPersonasYAML, validForepersonYAML)

	_, err := Load(pPath, fPath, config.CompositionConfig{Believers: 3, Skeptics: 2, Neutrals: 1})
	var cfgErr *config.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigurationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Believer") {
		t.Errorf("error does not name the mismatched camp: %v", err)
	}
}

func TestLoadRejectsUnknownCamp(t *testing.T) {
	bad := strings.Replace(validPersonasYAML, "camp: Neutral", "camp: Contrarian", 1)
	pPath, fPath := writeRoster(t, bad, validForepersonYAML)

	_, err := Load(pPath, fPath, defaultComposition())
	if err == nil || !strings.Contains(err.Error(), "Contrarian") {
		t.Fatalf("want unknown camp error, got %v", err)
	}
}

func TestLoadRejectsMissingFields(t *testing.T) {
	bad := `
personas:
  - name: No Backstory
    camp: Believer
    expertise: something
`
	pPath, fPath := writeRoster(t, bad, validForepersonYAML)
	if _, err := Load(pPath, fPath, defaultComposition()); err == nil {
		t.Fatal("want missing backstory error")
	}
}

func TestLoadRejectsForepersonInAgentsFile(t *testing.T) {
	bad := validPersonasYAML + `
  - name: Rogue Foreperson
    camp: Foreperson
    backstory: Should not be here.
    expertise: none
`
	pPath, fPath := writeRoster(t, bad, validForepersonYAML)
	if _, err := Load(pPath, fPath, defaultComposition()); err == nil {
		t.Fatal("want rejection of Foreperson camp in agents file")
	}
}

func TestLoadForepersonAcceptsListShape(t *testing.T) {
	asList := "personas:\n" +
		"  - name: Judge Eleanor Walsh\n" +
		"    camp: Foreperson\n" +
		"    backstory: Retired federal judge.\n" +
		"    expertise: Synthesis\n"
	pPath, fPath := writeRoster(t, validPersonasYAML, asList)

	reg, err := Load(pPath, fPath, defaultComposition())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reg.Foreperson().Name != "Judge Eleanor Walsh" {
		t.Errorf("Foreperson = %q", reg.Foreperson().Name)
	}
}

func TestLoadRejectsWrongCampForeperson(t *testing.T) {
	bad := strings.Replace(validForepersonYAML, "camp: Foreperson", "camp: Believer", 1)
	pPath, fPath := writeRoster(t, validPersonasYAML, bad)
	if _, err := Load(pPath, fPath, defaultComposition()); err == nil {
		t.Fatal("want wrong camp error for foreperson file")
	}
}

func TestLoadMissingFileIsConfigurationError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), filepath.Join(t.TempDir(), "absent.yaml"), defaultComposition())
	var cfgErr *config.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigurationError, got %v", err)
	}
}

func TestSystemPromptContainsStanceAndExtension(t *testing.T) {
	p := Persona{
		Name:      "Elena Volkov",
		Camp:      CampSkeptic,
		Backstory: "Incident responder.",
		Expertise: "Threat modeling",
	}

	prompt := p.SystemPrompt("=== Web Security Expertise ===\nfocus text")
	for _, want := range []string{"Elena Volkov", "Threat modeling", "As a Skeptic", "Web Security Expertise"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestSystemPromptWithoutExtension(t *testing.T) {
	p := Persona{Name: "X", Camp: CampBeliever, Backstory: "b", Expertise: "e"}
	if strings.Contains(p.SystemPrompt(""), "Expertise ===") {
		t.Error("prompt contains extension header with no extension active")
	}
}
