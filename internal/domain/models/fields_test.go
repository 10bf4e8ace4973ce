package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFieldRegistry_EveryKeyHasKindAndDocument(t *testing.T) {
	validKinds := map[FieldKind]bool{
		FieldKindText: true, FieldKindBool: true, FieldKindInt: true,
		FieldKindNumber: true, FieldKindTextList: true, FieldKindObjectList: true,
	}

	for _, spec := range RegisteredFields() {
		if !validKinds[spec.Kind] {
			t.Errorf("field %q has invalid kind %q", spec.Key, spec.Kind)
		}
		if len(spec.Docs) == 0 {
			t.Errorf("field %q belongs to no document kind", spec.Key)
		}
		if spec.Kind == FieldKindObjectList && spec.RequiredAttr == "" {
			t.Errorf("object list %q has no required attribute", spec.Key)
		}
	}
}

func TestFieldRegistry_VisionKeys(t *testing.T) {
	want := append([]string{"forward", "conclusion"}, LifeCategories...)
	for _, key := range want {
		spec, ok := LookupField(FieldKey(key))
		if !ok {
			t.Errorf("vision key %q not registered", key)
			continue
		}
		if !spec.AllowedIn(DocumentKindVision) {
			t.Errorf("key %q not allowed on visions", key)
		}
		if spec.Kind != FieldKindText {
			t.Errorf("vision key %q kind = %s, want text", key, spec.Kind)
		}
	}
}

func TestFields_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
		check   func(t *testing.T, f Fields)
	}{
		{
			name:  "natural values",
			input: `{"first_name":"Ana","has_children":false,"countries_visited":12,"height":70.5,"hobbies":["hiking"]}`,
			check: func(t *testing.T, f Fields) {
				if v, _ := f.Get("first_name"); v.Text() != "Ana" {
					t.Errorf("first_name = %q", v.Text())
				}
				if v, ok := f.Get(FieldHasChildren); !ok || v.Kind() != FieldKindBool || v.Bool() {
					t.Errorf("has_children = %+v", v)
				}
				if v, _ := f.Get("countries_visited"); v.Int() != 12 {
					t.Errorf("countries_visited = %d", v.Int())
				}
				if v, _ := f.Get("height"); v.Number() != 70.5 {
					t.Errorf("height = %v", v.Number())
				}
			},
		},
		{
			name:  "null entries are skipped",
			input: `{"partner_name":null,"city":"Austin"}`,
			check: func(t *testing.T, f Fields) {
				if _, ok := f.Get("partner_name"); ok {
					t.Error("partner_name should be absent")
				}
				if len(f) != 1 {
					t.Errorf("len = %d, want 1", len(f))
				}
			},
		},
		{
			name:    "unknown key",
			input:   `{"favourite_colour":"blue"}`,
			wantErr: "unknown field",
		},
		{
			name:    "kind mismatch",
			input:   `{"has_children":"yes"}`,
			wantErr: "must be a boolean",
		},
		{
			name:    "fractional int",
			input:   `{"countries_visited":2.5}`,
			wantErr: "must be an integer",
		},
		{
			name:    "int beyond float precision",
			input:   `{"number_of_children":1e300}`,
			wantErr: "out of range",
		},
		{
			name:    "int overflowing int64",
			input:   `{"countries_visited":99999999999999999999}`,
			wantErr: "out of range",
		},
		{
			name:  "int written with an exponent",
			input: `{"countries_visited":1e3}`,
			check: func(t *testing.T, f Fields) {
				if v, _ := f.Get("countries_visited"); v.Int() != 1000 {
					t.Errorf("countries_visited = %d", v.Int())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Fields
			err := json.Unmarshal([]byte(tt.input), &f)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, f)
		})
	}
}

func TestFields_ValidateFor(t *testing.T) {
	f := Fields{"fun": TextValue("sail more")}
	if err := f.ValidateFor(DocumentKindVision); err != nil {
		t.Errorf("vision fields rejected: %v", err)
	}
	if err := f.ValidateFor(DocumentKindProfile); err == nil {
		t.Error("expected vision key to be rejected on a profile")
	}

	bad := Fields{"city": IntValue(3)}
	if err := bad.ValidateFor(DocumentKindProfile); err == nil {
		t.Error("expected kind mismatch to be rejected")
	}
}

func TestFieldValue_IsPresent(t *testing.T) {
	tests := []struct {
		name  string
		value FieldValue
		attr  string
		want  bool
	}{
		{"blank text", TextValue("   "), "", false},
		{"text", TextValue("x"), "", true},
		{"false bool", BoolValue(false), "", true},
		{"zero int", IntValue(0), "", true},
		{"empty list", TextListValue(), "", false},
		{"list", TextListValue("a"), "", true},
		{"child without name", ObjectListValue(map[string]string{"birthday": "2015-01-01"}), "first_name", false},
		{"child with name", ObjectListValue(map[string]string{"first_name": "Mia"}), "first_name", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.IsPresent(tt.attr); got != tt.want {
				t.Errorf("IsPresent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFieldPatch_ApplyTo(t *testing.T) {
	var patch FieldPatch
	if err := json.Unmarshal([]byte(`{"city":"Denver","state":null,"country":"United States"}`), &patch); err != nil {
		t.Fatalf("unmarshal patch: %v", err)
	}

	fields := Fields{
		"city":    TextValue("Austin"),
		"state":   TextValue("TX"),
		"country": TextValue("United States"),
	}
	changed := patch.ApplyTo(fields)

	if len(changed) != 2 || changed[0] != "city" || changed[1] != "state" {
		t.Errorf("changed = %v, want [city state]", changed)
	}
	if _, ok := fields["state"]; ok {
		t.Error("state should be cleared")
	}
	if fields["city"].Text() != "Denver" {
		t.Errorf("city = %q", fields["city"].Text())
	}
}

func TestFieldValue_MarshalJSON(t *testing.T) {
	f := Fields{
		"passport": BoolValue(false),
		"children": ObjectListValue(map[string]string{"first_name": "Mia"}),
	}
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"children":[{"first_name":"Mia"}],"passport":false}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}
