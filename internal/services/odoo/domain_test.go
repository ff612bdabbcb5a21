package odoo

import (
	"testing"
)

func TestOrPrefixTokens(t *testing.T) {
	d := Or(
		C("name", "ilike", "MZ"),
		C("default_code", "ilike", "MZ"),
		C("x_lote", "ilike", "MZ"),
	)

	// An OR of N terms carries N-1 leading "|" tokens followed by the
	// N condition triples.
	if len(d) != 5 {
		t.Fatalf("expected 5 elements (2 pipes + 3 conditions), got %d", len(d))
	}
	for i := 0; i < 2; i++ {
		if d[i] != "|" {
			t.Errorf("element %d: expected pipe token, got %v", i, d[i])
		}
	}
	for i := 2; i < 5; i++ {
		cond, ok := d[i].([]interface{})
		if !ok || len(cond) != 3 {
			t.Errorf("element %d: expected condition triple, got %v", i, d[i])
		}
	}
}

func TestOrSingleCondition(t *testing.T) {
	d := Or(C("name", "ilike", "test"))
	if len(d) != 1 {
		t.Fatalf("single-term OR should carry no pipe tokens, got %d elements", len(d))
	}
}

func TestResolveProductRef(t *testing.T) {
	tests := []struct {
		ref     string
		field   string
		value   interface{}
		wantErr bool
	}{
		{ref: "local-45", field: "id", value: int64(45)},
		{ref: "123", field: "id", value: int64(123)},
		{ref: "fb-MZQ1-L05", field: "default_code", value: "MZQ1-L05"},
		{ref: "local-abc", wantErr: true},
		{ref: "not-a-ref", wantErr: true},
		{ref: "", wantErr: true},
	}

	for _, tt := range tests {
		d, err := ResolveProductRef(tt.ref)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ResolveProductRef(%q): expected error, got %v", tt.ref, d)
			}
			continue
		}
		if err != nil {
			t.Errorf("ResolveProductRef(%q): unexpected error %v", tt.ref, err)
			continue
		}
		if len(d) != 1 {
			t.Errorf("ResolveProductRef(%q): expected 1 condition, got %d", tt.ref, len(d))
			continue
		}
		cond := d[0].([]interface{})
		if cond[0] != tt.field || cond[1] != "=" || cond[2] != tt.value {
			t.Errorf("ResolveProductRef(%q) = %v, want [%s = %v]", tt.ref, cond, tt.field, tt.value)
		}
	}
}

func TestMany2OneHelpers(t *testing.T) {
	pair := []interface{}{float64(7), "Juan Perez"}

	if id, ok := Many2OneID(pair); !ok || id != 7 {
		t.Errorf("Many2OneID(pair) = %d, %v; want 7, true", id, ok)
	}
	if name, ok := Many2OneName(pair); !ok || name != "Juan Perez" {
		t.Errorf("Many2OneName(pair) = %q, %v; want Juan Perez, true", name, ok)
	}

	// Odoo sends false for unset relations
	if _, ok := Many2OneID(false); ok {
		t.Error("Many2OneID(false) should report not-ok")
	}

	// Bare numeric ids pass through
	if id, ok := Many2OneID(float64(42)); !ok || id != 42 {
		t.Errorf("Many2OneID(42) = %d, %v; want 42, true", id, ok)
	}

	if v := UnpackMany2One(pair); v != float64(7) {
		t.Errorf("UnpackMany2One(pair) = %v, want 7", v)
	}
	if v := UnpackMany2One("plain"); v != "plain" {
		t.Errorf("UnpackMany2One(plain) = %v, want unchanged", v)
	}
}

func TestAndConcatenation(t *testing.T) {
	d := And(
		Domain{C("active", "=", true)},
		Domain{C("x_etapa", "=", "1")},
	)
	if len(d) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(d))
	}
}
