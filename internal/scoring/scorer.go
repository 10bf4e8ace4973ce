// Package scoring computes document completion percentages from declarative
// rulesets. Scoring is pure: it never touches storage and never fails.
package scoring

import (
	"math"

	"lifeplan/internal/domain/models"
)

// Predicate gates a rule's dependent sub-rules. Every condition that is set
// must hold.
type Predicate struct {
	Equals    any  `yaml:"equals,omitempty" json:"equals,omitempty"`
	NotEquals any  `yaml:"not_equals,omitempty" json:"not_equals,omitempty"`
	Truthy    bool `yaml:"truthy,omitempty" json:"truthy,omitempty"`
}

// Satisfied reports whether v meets the predicate. A nil predicate is always satisfied.
func (p *Predicate) Satisfied(v models.FieldValue) bool {
	if p == nil {
		return true
	}
	if p.Equals != nil && !v.Matches(p.Equals) {
		return false
	}
	if p.NotEquals != nil && v.Matches(p.NotEquals) {
		return false
	}
	if p.Truthy && !v.Truthy() {
		return false
	}
	return true
}

// Rule requires Field. Then lists rules that become required once Field is
// present and When is satisfied.
type Rule struct {
	Field models.FieldKey `yaml:"field" json:"field"`
	When  *Predicate      `yaml:"when,omitempty" json:"when,omitempty"`
	Then  []Rule          `yaml:"then,omitempty" json:"then,omitempty"`
}

// Ruleset is an ordered list of rules for one document kind
type Ruleset struct {
	Kind  models.DocumentKind `yaml:"kind" json:"kind"`
	Rules []Rule              `yaml:"rules" json:"rules"`
}

// Result is a detailed evaluation
type Result struct {
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Percent   int               `json:"percent"`
	Missing   []models.FieldKey `json:"missing"`
}

// Score returns round(100*completed/total), or 0 when the ruleset is empty
func Score(fields models.Fields, ruleset *Ruleset) int {
	return Evaluate(fields, ruleset).Percent
}

// Evaluate walks the ruleset and reports counters plus the required keys that
// are still missing, in rule order.
func Evaluate(fields models.Fields, ruleset *Ruleset) Result {
	var res Result
	if ruleset == nil {
		return res
	}
	for _, rule := range ruleset.Rules {
		evaluateRule(fields, rule, &res)
	}
	if res.Total > 0 {
		res.Percent = int(math.Round(100 * float64(res.Completed) / float64(res.Total)))
	}
	return res
}

func evaluateRule(fields models.Fields, rule Rule, res *Result) {
	res.Total++

	value, ok := fields.Get(rule.Field)
	if !ok || !value.IsPresent(requiredAttr(rule.Field)) {
		res.Missing = append(res.Missing, rule.Field)
		return
	}
	res.Completed++

	if len(rule.Then) == 0 || !rule.When.Satisfied(value) {
		return
	}
	for _, sub := range rule.Then {
		evaluateRule(fields, sub, res)
	}
}

func requiredAttr(key models.FieldKey) string {
	spec, ok := models.LookupField(key)
	if !ok {
		return ""
	}
	return spec.RequiredAttr
}
