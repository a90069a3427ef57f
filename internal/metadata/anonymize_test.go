package metadata

import (
	"math/rand"
	"testing"

	"github.com/tssbas/SDV/internal/domain"
)

func TestAnonymize_ReplacesPIIValues(t *testing.T) {
	schema := &domain.Schema{Fields: []domain.Field{
		{Name: "email", Type: domain.FieldTypeCategorical, PII: true, PIICategory: "email"},
		{Name: "city", Type: domain.FieldTypeCategorical},
	}}
	m := New(schema)

	in := mustTable(t, []string{"email", "city"}, [][]interface{}{
		{"real@example.com", "paris"},
		{"real@example.com", "tokyo"},
	})
	rng := rand.New(rand.NewSource(1))
	out := m.Anonymize(in, rng)

	for _, v := range out.Column("email") {
		if v == "real@example.com" {
			t.Fatal("original PII value leaked into the output")
		}
		if s, ok := v.(string); !ok || s == "" {
			t.Fatalf("expected a synthetic string, got %#v", v)
		}
	}
	// Non-PII columns pass through and the input is untouched.
	if v, _ := out.Value(0, "city"); v != "paris" {
		t.Fatalf("city changed: %v", v)
	}
	if v, _ := in.Value(0, "email"); v != "real@example.com" {
		t.Fatalf("input mutated: %v", v)
	}
}

func TestAnonymize_CountryCodesComeFromKnownSet(t *testing.T) {
	schema := &domain.Schema{Fields: []domain.Field{
		{Name: "country", Type: domain.FieldTypeCategorical, PII: true, PIICategory: "country_code"},
	}}
	m := New(schema)

	in := mustTable(t, []string{"country"}, [][]interface{}{{"XX"}, {"XX"}, {"XX"}})
	rng := rand.New(rand.NewSource(1))
	out := m.Anonymize(in, rng)

	known := make(map[string]struct{}, len(countryCodes))
	for _, c := range countryCodes {
		known[c] = struct{}{}
	}
	for _, v := range out.Column("country") {
		if _, ok := known[v.(string)]; !ok {
			t.Fatalf("unexpected country code %v", v)
		}
	}
}
