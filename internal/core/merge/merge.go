// Package merge combines two personal visions into one household draft.
package merge

import (
	"fmt"
	"slices"
	"strings"

	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
)

// Guard failure codes
const (
	CodeSameSource      = "same_source"
	CodeSourceIsDraft   = "source_is_draft"
	CodeKindMismatch    = "kind_mismatch"
	CodeNotPersonal     = "not_personal"
	CodeUnsupportedKind = "unsupported_kind"
)

// GuardResult represents the outcome of a merge precondition check
type GuardResult struct {
	Allowed bool
	Code    string
	Reason  string
}

// Err converts a denied result to an InvalidStateError
func (r GuardResult) Err() error {
	if r.Allowed {
		return nil
	}
	return domain.NewInvalidState(r.Code, r.Reason)
}

// CanMerge evaluates whether two versions can be merged.
// Rules:
// - Sources must be distinct
// - Both must be committed (non-draft) visions
// - Both must be personal (no household)
func CanMerge(a, b *models.Document) GuardResult {
	if a.ID == b.ID {
		return GuardResult{Code: CodeSameSource, Reason: fmt.Sprintf("cannot merge version %s with itself", a.ID)}
	}
	for _, d := range []*models.Document{a, b} {
		if d.IsDraft {
			return GuardResult{Code: CodeSourceIsDraft, Reason: fmt.Sprintf("version %s is a draft", d.ID)}
		}
		if d.HouseholdID != nil {
			return GuardResult{Code: CodeNotPersonal, Reason: fmt.Sprintf("version %s already belongs to a household", d.ID)}
		}
	}
	if a.Kind != b.Kind {
		return GuardResult{Code: CodeKindMismatch, Reason: fmt.Sprintf("cannot merge a %s with a %s", a.Kind, b.Kind)}
	}
	if a.Kind != models.DocumentKindVision {
		return GuardResult{Code: CodeUnsupportedKind, Reason: fmt.Sprintf("only visions can be merged, got %s", a.Kind)}
	}
	return GuardResult{Allowed: true}
}

// CanConvert evaluates whether a personal version can be copied into a
// household draft.
func CanConvert(src *models.Document) GuardResult {
	if src.IsDraft {
		return GuardResult{Code: CodeSourceIsDraft, Reason: fmt.Sprintf("version %s is a draft", src.ID)}
	}
	if src.HouseholdID != nil {
		return GuardResult{Code: CodeNotPersonal, Reason: fmt.Sprintf("version %s already belongs to a household", src.ID)}
	}
	return GuardResult{Allowed: true}
}

// Source is one side of a merge
type Source struct {
	OwnerName string
	Fields    models.Fields
}

// Combine merges the fields of a and b.
//   - text present in both: owner-prefixed paragraphs, a first
//   - present in one side only: that value verbatim
//   - text lists: order-preserving union
//   - other kinds: a wins when present
//
// It returns the merged fields and the merged keys in sorted order.
func Combine(a, b Source) (models.Fields, []models.FieldKey) {
	out := make(models.Fields)

	keys := make(map[models.FieldKey]struct{})
	for k := range a.Fields {
		keys[k] = struct{}{}
	}
	for k := range b.Fields {
		keys[k] = struct{}{}
	}

	for key := range keys {
		av, aok := present(a.Fields, key)
		bv, bok := present(b.Fields, key)

		switch {
		case aok && bok:
			out[key] = combineValues(a.OwnerName, av, b.OwnerName, bv)
		case aok:
			out[key] = av
		case bok:
			out[key] = bv
		}
	}

	merged := out.Keys()
	return out, merged
}

func combineValues(aName string, av models.FieldValue, bName string, bv models.FieldValue) models.FieldValue {
	if av.Kind() != bv.Kind() {
		return av
	}
	switch av.Kind() {
	case models.FieldKindText:
		if strings.TrimSpace(av.Text()) == strings.TrimSpace(bv.Text()) {
			return av
		}
		return models.TextValue(fmt.Sprintf("%s:\n%s\n\n%s:\n%s",
			aName, strings.TrimSpace(av.Text()),
			bName, strings.TrimSpace(bv.Text()),
		))
	case models.FieldKindTextList:
		union := av.List()
		for _, item := range bv.List() {
			if !slices.Contains(union, item) {
				union = append(union, item)
			}
		}
		return models.TextListValue(union...)
	default:
		return av
	}
}

// present returns the value only when it counts as filled in, so blank
// entries never overwrite the other side.
func present(fields models.Fields, key models.FieldKey) (models.FieldValue, bool) {
	v, ok := fields.Get(key)
	if !ok {
		return models.FieldValue{}, false
	}
	attr := ""
	if spec, ok := models.LookupField(key); ok {
		attr = spec.RequiredAttr
	}
	if !v.IsPresent(attr) {
		return models.FieldValue{}, false
	}
	return v, true
}
