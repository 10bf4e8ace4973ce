package scoring

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"lifeplan/internal/domain/models"
)

//go:embed rulesets/*.yaml
var rulesetFiles embed.FS

// Registry holds the completion ruleset for each document kind
type Registry struct {
	rulesets map[models.DocumentKind]*Ruleset
	mu       sync.RWMutex
}

// NewRegistry creates a registry and loads the embedded rulesets
func NewRegistry() (*Registry, error) {
	r := &Registry{
		rulesets: make(map[models.DocumentKind]*Ruleset),
	}

	for _, kind := range []models.DocumentKind{models.DocumentKindProfile, models.DocumentKindVision} {
		if err := r.loadRulesetFile(kind); err != nil {
			return nil, fmt.Errorf("failed to load %s ruleset: %w", kind, err)
		}
	}

	return r, nil
}

func (r *Registry) loadRulesetFile(kind models.DocumentKind) error {
	filename := fmt.Sprintf("rulesets/%s.yaml", kind)
	data, err := rulesetFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	rs, err := ParseRuleset(data)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	if rs.Kind != kind {
		return fmt.Errorf("%s declares kind %q", filename, rs.Kind)
	}

	r.Register(rs)
	return nil
}

// ParseRuleset decodes a YAML ruleset and checks every rule names a field
// registered for the ruleset's kind.
func ParseRuleset(data []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ruleset: %w", err)
	}
	if !rs.Kind.Valid() {
		return nil, fmt.Errorf("unknown document kind %q", rs.Kind)
	}
	if err := validateRules(rs.Kind, rs.Rules); err != nil {
		return nil, err
	}
	return &rs, nil
}

func validateRules(kind models.DocumentKind, rules []Rule) error {
	for _, rule := range rules {
		spec, ok := models.LookupField(rule.Field)
		if !ok {
			return fmt.Errorf("rule references unknown field %q", rule.Field)
		}
		if !spec.AllowedIn(kind) {
			return fmt.Errorf("rule field %q is not a %s field", rule.Field, kind)
		}
		if err := validateRules(kind, rule.Then); err != nil {
			return err
		}
	}
	return nil
}

// Register installs or replaces the ruleset for rs.Kind
func (r *Registry) Register(rs *Ruleset) {
	r.mu.Lock()
	r.rulesets[rs.Kind] = rs
	r.mu.Unlock()
}

// Ruleset returns the ruleset for a document kind
func (r *Registry) Ruleset(kind models.DocumentKind) (*Ruleset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs, ok := r.rulesets[kind]
	if !ok {
		return nil, fmt.Errorf("no ruleset for document kind %q", kind)
	}
	return rs, nil
}

// Score scores fields against the ruleset for kind. Unknown kinds score 0.
func (r *Registry) Score(kind models.DocumentKind, fields models.Fields) int {
	rs, err := r.Ruleset(kind)
	if err != nil {
		return 0
	}
	return Score(fields, rs)
}
