package metadata

import (
	"math/rand"

	"github.com/go-faker/faker/v4"
	"github.com/tssbas/SDV/internal/domain"
	"github.com/tssbas/SDV/internal/table"
)

var countryCodes = []string{
	"US", "GB", "DE", "FR", "ES", "IT", "NL", "SE", "NO", "DK",
	"PL", "CZ", "AT", "CH", "PT", "IE", "BE", "FI", "GR", "HU",
	"CA", "MX", "BR", "AR", "CL", "JP", "KR", "CN", "IN", "AU",
}

// Anonymize replaces values of PII-flagged fields with synthetic ones.
// The original values never leave the process once a PII field is
// declared; sampled output carries faker-generated replacements.
func (m *Metadata) Anonymize(t *table.Table, rng *rand.Rand) *table.Table {
	if t == nil || t.Len() == 0 {
		return t
	}
	out := t.Copy()
	for _, col := range out.Columns() {
		field, ok := m.fields[col]
		if !ok || !field.PII {
			continue
		}
		for i := 0; i < out.Len(); i++ {
			out.SetValue(i, col, anonymousValue(field, rng))
		}
	}
	return out
}

func anonymousValue(field domain.Field, rng *rand.Rand) interface{} {
	switch field.PIICategory {
	case "name":
		return faker.Name()
	case "email":
		return faker.Email()
	case "phone_number":
		return faker.Phonenumber()
	case "country_code":
		return countryCodes[rng.Intn(len(countryCodes))]
	default:
		return faker.Word()
	}
}
