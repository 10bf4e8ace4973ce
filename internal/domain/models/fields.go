package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
)

// FieldKey identifies one entry of a document's field map. The set of keys is
// closed: only keys registered in fieldSpecs are accepted.
type FieldKey string

// FieldKind is the declared value type of a FieldKey
type FieldKind string

const (
	FieldKindText       FieldKind = "text"
	FieldKindBool       FieldKind = "bool"
	FieldKindInt        FieldKind = "int"
	FieldKindNumber     FieldKind = "number"
	FieldKindTextList   FieldKind = "text_list"
	FieldKindObjectList FieldKind = "object_list"
)

// Keys referenced directly by code. Everything else lives only in the registry.
const (
	FieldRelationshipStatus FieldKey = "relationship_status"
	FieldHasChildren        FieldKey = "has_children"
	FieldNumberOfChildren   FieldKey = "number_of_children"
	FieldChildrenAges       FieldKey = "children_ages"
	FieldChildren           FieldKey = "children"
	FieldProfilePictureURL  FieldKey = "profile_picture_url"
)

// FieldSpec describes a registered key
type FieldSpec struct {
	Key  FieldKey
	Kind FieldKind
	// Docs lists the document kinds that may carry the key
	Docs []DocumentKind
	// Section groups the key for change summaries. Empty means the key is not
	// tracked (personal info).
	Section string
	// AccountSourced keys are mirrored from the user account and excluded
	// from draft change tracking.
	AccountSourced bool
	// RequiredAttr, for object lists, names the attribute an element must
	// carry to count as filled in.
	RequiredAttr string
}

var (
	profileOnly = []DocumentKind{DocumentKindProfile}
	visionOnly  = []DocumentKind{DocumentKindVision}
)

func profileField(key string, kind FieldKind, section string) FieldSpec {
	return FieldSpec{Key: FieldKey(key), Kind: kind, Docs: profileOnly, Section: section}
}

func accountField(key string) FieldSpec {
	return FieldSpec{Key: FieldKey(key), Kind: FieldKindText, Docs: profileOnly, AccountSourced: true}
}

func visionField(key string) FieldSpec {
	return FieldSpec{Key: FieldKey(key), Kind: FieldKindText, Docs: visionOnly, Section: key}
}

// LifeCategories are the twelve life areas shared by profiles and visions
var LifeCategories = []string{
	"fun", "health", "travel", "love", "family", "social",
	"home", "work", "money", "stuff", "giving", "spirituality",
}

var fieldSpecs = buildFieldSpecs()

func buildFieldSpecs() map[FieldKey]FieldSpec {
	specs := []FieldSpec{
		// Personal info
		accountField("first_name"),
		accountField("last_name"),
		accountField("email"),
		accountField("phone"),
		accountField("date_of_birth"),
		accountField("profile_picture_url"),
		profileField("gender", FieldKindText, ""),
		profileField("ethnicity", FieldKindText, ""),

		// Relationship
		profileField("relationship_status", FieldKindText, "love"),
		profileField("relationship_length", FieldKindText, "love"),
		profileField("partner_name", FieldKindText, "love"),

		// Family
		profileField("has_children", FieldKindBool, "family"),
		profileField("number_of_children", FieldKindInt, "family"),
		profileField("children_ages", FieldKindTextList, "family"),
		{Key: FieldChildren, Kind: FieldKindObjectList, Docs: profileOnly, Section: "family", RequiredAttr: "first_name"},

		// Health
		profileField("units", FieldKindText, "health"),
		profileField("height", FieldKindNumber, "health"),
		profileField("weight", FieldKindNumber, "health"),
		profileField("exercise_frequency", FieldKindText, "health"),

		// Location
		profileField("living_situation", FieldKindText, "home"),
		profileField("time_at_location", FieldKindText, "home"),
		profileField("city", FieldKindText, "home"),
		profileField("state", FieldKindText, "home"),
		profileField("postal_code", FieldKindText, "home"),
		profileField("country", FieldKindText, "home"),

		// Career
		profileField("employment_type", FieldKindText, "work"),
		profileField("occupation", FieldKindText, "work"),
		profileField("company", FieldKindText, "work"),
		profileField("time_in_role", FieldKindText, "work"),
		profileField("education", FieldKindText, "work"),
		profileField("education_description", FieldKindText, "work"),

		// Financial
		profileField("currency", FieldKindText, "money"),
		profileField("household_income", FieldKindText, "money"),
		profileField("savings_retirement", FieldKindText, "money"),
		profileField("assets_equity", FieldKindText, "money"),
		profileField("consumer_debt", FieldKindText, "money"),

		// Structured lifestyle
		profileField("hobbies", FieldKindTextList, "fun"),
		profileField("leisure_time_weekly", FieldKindText, "fun"),
		profileField("travel_frequency", FieldKindText, "travel"),
		profileField("passport", FieldKindBool, "travel"),
		profileField("countries_visited", FieldKindInt, "travel"),
		{Key: "trips", Kind: FieldKindObjectList, Docs: profileOnly, Section: "travel", RequiredAttr: "destination"},
		profileField("close_friends_count", FieldKindText, "social"),
		profileField("social_preference", FieldKindText, "social"),
		profileField("lifestyle_category", FieldKindText, "stuff"),
		{Key: "vehicles", Kind: FieldKindObjectList, Docs: profileOnly, Section: "stuff", RequiredAttr: "name"},
		{Key: "items", Kind: FieldKindObjectList, Docs: profileOnly, Section: "stuff", RequiredAttr: "name"},
		profileField("spiritual_practice", FieldKindText, "spirituality"),
		profileField("meditation_frequency", FieldKindText, "spirituality"),
		profileField("personal_growth_focus", FieldKindText, "spirituality"),
		profileField("volunteer_status", FieldKindText, "giving"),
		profileField("charitable_giving", FieldKindText, "giving"),
		profileField("legacy_mindset", FieldKindText, "giving"),

		// Vision bookends
		{Key: "forward", Kind: FieldKindText, Docs: visionOnly},
		{Key: "conclusion", Kind: FieldKindText, Docs: visionOnly},
	}

	for _, category := range LifeCategories {
		specs = append(specs,
			profileField("clarity_"+category, FieldKindText, category),
			visionField(category),
		)
	}

	out := make(map[FieldKey]FieldSpec, len(specs))
	for _, s := range specs {
		out[s.Key] = s
	}
	return out
}

// LookupField returns the registered definition of a key
func LookupField(key FieldKey) (FieldSpec, bool) {
	s, ok := fieldSpecs[key]
	return s, ok
}

// RegisteredFields returns every field definition ordered by key
func RegisteredFields() []FieldSpec {
	out := make([]FieldSpec, 0, len(fieldSpecs))
	for _, s := range fieldSpecs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// AllowedIn reports whether the key may appear on a document of the given kind
func (s FieldSpec) AllowedIn(kind DocumentKind) bool {
	return slices.Contains(s.Docs, kind)
}

// FieldValue is a value tagged with its FieldKind
type FieldValue struct {
	kind    FieldKind
	text    string
	flag    bool
	num     float64
	list    []string
	objects []map[string]string
}

func TextValue(s string) FieldValue      { return FieldValue{kind: FieldKindText, text: s} }
func BoolValue(b bool) FieldValue        { return FieldValue{kind: FieldKindBool, flag: b} }
func IntValue(n int64) FieldValue        { return FieldValue{kind: FieldKindInt, num: float64(n)} }
func NumberValue(f float64) FieldValue   { return FieldValue{kind: FieldKindNumber, num: f} }
func TextListValue(items ...string) FieldValue {
	return FieldValue{kind: FieldKindTextList, list: slices.Clone(items)}
}

// ObjectListValue builds an object list. Elements are copied.
func ObjectListValue(objects ...map[string]string) FieldValue {
	cp := make([]map[string]string, len(objects))
	for i, o := range objects {
		cp[i] = cloneObject(o)
	}
	return FieldValue{kind: FieldKindObjectList, objects: cp}
}

func (v FieldValue) Kind() FieldKind             { return v.kind }
func (v FieldValue) Text() string                { return v.text }
func (v FieldValue) Bool() bool                  { return v.flag }
func (v FieldValue) Int() int64                  { return int64(v.num) }
func (v FieldValue) Number() float64             { return v.num }
func (v FieldValue) List() []string              { return slices.Clone(v.list) }
func (v FieldValue) Objects() []map[string]string {
	out := make([]map[string]string, len(v.objects))
	for i, o := range v.objects {
		out[i] = cloneObject(o)
	}
	return out
}

// IsPresent reports whether the value counts as filled in. A bool counts once
// set, including false. Object lists need at least one element carrying
// requiredAttr (any element when requiredAttr is empty).
func (v FieldValue) IsPresent(requiredAttr string) bool {
	switch v.kind {
	case FieldKindText:
		return strings.TrimSpace(v.text) != ""
	case FieldKindBool, FieldKindInt, FieldKindNumber:
		return true
	case FieldKindTextList:
		return len(v.list) > 0
	case FieldKindObjectList:
		if requiredAttr == "" {
			return len(v.objects) > 0
		}
		for _, o := range v.objects {
			if strings.TrimSpace(o[requiredAttr]) != "" {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Equal compares kind and content. Text is compared after trimming.
func (v FieldValue) Equal(other FieldValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case FieldKindText:
		return strings.TrimSpace(v.text) == strings.TrimSpace(other.text)
	case FieldKindBool:
		return v.flag == other.flag
	case FieldKindInt, FieldKindNumber:
		return v.num == other.num
	case FieldKindTextList:
		return slices.Equal(v.list, other.list)
	case FieldKindObjectList:
		return slices.EqualFunc(v.objects, other.objects, func(a, b map[string]string) bool {
			if len(a) != len(b) {
				return false
			}
			for k, av := range a {
				if bv, ok := b[k]; !ok || av != bv {
					return false
				}
			}
			return true
		})
	default:
		return true
	}
}

// Matches compares the value against a loosely typed literal, as decoded from
// YAML or JSON (string, bool, int or float).
func (v FieldValue) Matches(literal any) bool {
	switch lit := literal.(type) {
	case string:
		return v.kind == FieldKindText && v.text == lit
	case bool:
		return v.kind == FieldKindBool && v.flag == lit
	case int:
		return (v.kind == FieldKindInt || v.kind == FieldKindNumber) && v.num == float64(lit)
	case int64:
		return (v.kind == FieldKindInt || v.kind == FieldKindNumber) && v.num == float64(lit)
	case float64:
		return (v.kind == FieldKindInt || v.kind == FieldKindNumber) && v.num == lit
	default:
		return false
	}
}

// Truthy mirrors loose truthiness: non-empty text, true, non-zero numbers,
// non-empty lists.
func (v FieldValue) Truthy() bool {
	switch v.kind {
	case FieldKindText:
		return v.text != ""
	case FieldKindBool:
		return v.flag
	case FieldKindInt, FieldKindNumber:
		return v.num != 0
	case FieldKindTextList:
		return len(v.list) > 0
	case FieldKindObjectList:
		return len(v.objects) > 0
	default:
		return false
	}
}

// MarshalJSON encodes the natural JSON value
func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case FieldKindText:
		return json.Marshal(v.text)
	case FieldKindBool:
		return json.Marshal(v.flag)
	case FieldKindInt:
		return json.Marshal(int64(v.num))
	case FieldKindNumber:
		return json.Marshal(v.num)
	case FieldKindTextList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case FieldKindObjectList:
		if v.objects == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.objects)
	default:
		return []byte("null"), nil
	}
}

// maxExactInt bounds integer fields to values a float64 holds exactly
const maxExactInt = 1 << 53

// DecodeFieldValue decodes raw JSON into the kind declared for key
func DecodeFieldValue(key FieldKey, raw json.RawMessage) (FieldValue, error) {
	spec, ok := LookupField(key)
	if !ok {
		return FieldValue{}, fmt.Errorf("unknown field %q", key)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	switch spec.Kind {
	case FieldKindText:
		var s string
		if err := dec.Decode(&s); err != nil {
			return FieldValue{}, fmt.Errorf("field %q must be a string", key)
		}
		return TextValue(s), nil
	case FieldKindBool:
		var b bool
		if err := dec.Decode(&b); err != nil {
			return FieldValue{}, fmt.Errorf("field %q must be a boolean", key)
		}
		return BoolValue(b), nil
	case FieldKindInt:
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return FieldValue{}, fmt.Errorf("field %q must be an integer", key)
		}
		if i, err := n.Int64(); err == nil {
			if i > maxExactInt || i < -maxExactInt {
				return FieldValue{}, fmt.Errorf("field %q is out of range", key)
			}
			return IntValue(i), nil
		}
		// 2.0 and 1e3 are integers too
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) {
			return FieldValue{}, fmt.Errorf("field %q must be an integer", key)
		}
		if math.Abs(f) > maxExactInt {
			return FieldValue{}, fmt.Errorf("field %q is out of range", key)
		}
		return IntValue(int64(f)), nil
	case FieldKindNumber:
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return FieldValue{}, fmt.Errorf("field %q must be a number", key)
		}
		f, err := n.Float64()
		if err != nil {
			return FieldValue{}, fmt.Errorf("field %q must be a number", key)
		}
		return NumberValue(f), nil
	case FieldKindTextList:
		var items []string
		if err := dec.Decode(&items); err != nil {
			return FieldValue{}, fmt.Errorf("field %q must be a list of strings", key)
		}
		return TextListValue(items...), nil
	case FieldKindObjectList:
		var objects []map[string]string
		if err := dec.Decode(&objects); err != nil {
			return FieldValue{}, fmt.Errorf("field %q must be a list of objects with string values", key)
		}
		return FieldValue{kind: FieldKindObjectList, objects: objects}, nil
	default:
		return FieldValue{}, fmt.Errorf("field %q has unsupported kind %q", key, spec.Kind)
	}
}

// Fields is the typed field map of a document
type Fields map[FieldKey]FieldValue

// UnmarshalJSON rejects unregistered keys and values of the wrong kind. JSON
// null entries are skipped.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var raw map[FieldKey]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Fields, len(raw))
	for key, value := range raw {
		if isJSONNull(value) {
			continue
		}
		v, err := DecodeFieldValue(key, value)
		if err != nil {
			return err
		}
		out[key] = v
	}
	*f = out
	return nil
}

// Get returns the value for key and whether it is set
func (f Fields) Get(key FieldKey) (FieldValue, bool) {
	v, ok := f[key]
	return v, ok
}

// Clone returns a deep copy
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		switch v.kind {
		case FieldKindTextList:
			v.list = slices.Clone(v.list)
		case FieldKindObjectList:
			v = ObjectListValue(v.objects...)
		}
		out[k] = v
	}
	return out
}

// Keys returns the set keys in sorted order
func (f Fields) Keys() []FieldKey {
	keys := make([]FieldKey, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ValidateFor checks every key is allowed on the document kind and carries a
// value of its declared kind.
func (f Fields) ValidateFor(kind DocumentKind) error {
	for _, key := range f.Keys() {
		spec, ok := LookupField(key)
		if !ok {
			return fmt.Errorf("unknown field %q", key)
		}
		if !spec.AllowedIn(kind) {
			return fmt.Errorf("field %q is not valid on a %s", key, kind)
		}
		if f[key].kind != spec.Kind {
			return fmt.Errorf("field %q must be %s, got %s", key, spec.Kind, f[key].kind)
		}
	}
	return nil
}

// FieldPatch is a partial update. A nil entry clears the field.
type FieldPatch map[FieldKey]*FieldValue

// UnmarshalJSON decodes a patch. JSON null becomes a clear entry.
func (p *FieldPatch) UnmarshalJSON(data []byte) error {
	var raw map[FieldKey]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(FieldPatch, len(raw))
	for key, value := range raw {
		if isJSONNull(value) {
			if _, ok := LookupField(key); !ok {
				return fmt.Errorf("unknown field %q", key)
			}
			out[key] = nil
			continue
		}
		v, err := DecodeFieldValue(key, value)
		if err != nil {
			return err
		}
		out[key] = &v
	}
	*p = out
	return nil
}

// Keys returns the patched keys in sorted order
func (p FieldPatch) Keys() []FieldKey {
	keys := make([]FieldKey, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ValidateFor applies the same rules as Fields.ValidateFor to set entries
func (p FieldPatch) ValidateFor(kind DocumentKind) error {
	for _, key := range p.Keys() {
		spec, ok := LookupField(key)
		if !ok {
			return fmt.Errorf("unknown field %q", key)
		}
		if !spec.AllowedIn(kind) {
			return fmt.Errorf("field %q is not valid on a %s", key, kind)
		}
		if v := p[key]; v != nil && v.kind != spec.Kind {
			return fmt.Errorf("field %q must be %s, got %s", key, spec.Kind, v.kind)
		}
	}
	return nil
}

// ApplyTo writes the patch into fields and returns the keys whose value
// actually changed.
func (p FieldPatch) ApplyTo(fields Fields) []FieldKey {
	var changed []FieldKey
	for _, key := range p.Keys() {
		next := p[key]
		prev, had := fields[key]
		switch {
		case next == nil && had:
			delete(fields, key)
			changed = append(changed, key)
		case next != nil && (!had || !prev.Equal(*next)):
			fields[key] = *next
			changed = append(changed, key)
		}
	}
	return changed
}

func cloneObject(o map[string]string) map[string]string {
	if o == nil {
		return nil
	}
	cp := make(map[string]string, len(o))
	for k, v := range o {
		cp[k] = v
	}
	return cp
}

func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
