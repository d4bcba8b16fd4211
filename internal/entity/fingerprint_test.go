package entity

import "testing"

func TestFingerprint_Deterministic(t *testing.T) {
	rec := Record{
		ID:   "ent-1",
		Kind: KindCompany,
		Fields: map[string]string{
			"name":    "Acme Corp",
			"country": "US",
		},
	}

	a := Fingerprint(rec, []string{"name", "country"})
	b := Fingerprint(rec, []string{"country", "name"}) // order must not matter
	if a != b {
		t.Errorf("fingerprint depends on identity field order: %q != %q", a, b)
	}
}

func TestFingerprint_UnicodeNormalization(t *testing.T) {
	// "é" composed (U+00E9) vs decomposed (e + U+0301)
	composed := Record{ID: "e", Fields: map[string]string{"name": "Café"}}
	decomposed := Record{ID: "e", Fields: map[string]string{"name": "Café"}}

	if Fingerprint(composed, []string{"name"}) != Fingerprint(decomposed, []string{"name"}) {
		t.Error("NFC-equivalent names produced different fingerprints")
	}
}

func TestFingerprint_SensitiveToIdentityFields(t *testing.T) {
	a := Record{ID: "e", Fields: map[string]string{"name": "Acme"}}
	b := Record{ID: "e", Fields: map[string]string{"name": "Globex"}}

	if Fingerprint(a, []string{"name"}) == Fingerprint(b, []string{"name"}) {
		t.Error("different names produced equal fingerprints")
	}
}

func TestIdentityChanged(t *testing.T) {
	rec := Record{
		ID:     "ent-1",
		Kind:   KindCompany,
		Fields: map[string]string{"name": "Acme", "industry": ""},
	}

	// Correcting a non-identity field does not change identity.
	if IdentityChanged(rec, map[string]string{"industry": "manufacturing"}, []string{"name"}) {
		t.Error("non-identity correction reported as identity change")
	}

	// Correcting the identity field does.
	if !IdentityChanged(rec, map[string]string{"name": "Globex"}, []string{"name"}) {
		t.Error("identity correction not detected")
	}

	// Re-asserting the same identity value is not a change.
	if IdentityChanged(rec, map[string]string{"name": "Acme"}, []string{"name"}) {
		t.Error("same-value correction reported as identity change")
	}
}

func TestFixedIDGenerator_Order(t *testing.T) {
	gen := NewFixedIDGenerator("id-1", "id-2")
	if got := gen.NewID(); got != "id-1" {
		t.Errorf("first id = %q, want id-1", got)
	}
	if got := gen.NewID(); got != "id-2" {
		t.Errorf("second id = %q, want id-2", got)
	}
}
