package metadata

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/tssbas/SDV/internal/domain"
	"github.com/tssbas/SDV/internal/table"
)

// MakeIDsUnique regenerates synthetic identifier values so that every
// id is unique across the whole table. Concatenating batches sampled
// independently produces duplicate ids; this runs after concatenation.
// Only duplicated (or missing) ids are replaced: the first occurrence
// of each value is kept, later occurrences get a fresh one. Integer id
// columns draw the lowest unused integer, string id columns draw a
// uuid4 from the given source so fixed-seed runs stay reproducible.
func (m *Metadata) MakeIDsUnique(t *table.Table, rng *rand.Rand) (*table.Table, error) {
	if t == nil || t.Len() == 0 {
		return t, nil
	}
	out := t.Copy()
	for _, col := range out.Columns() {
		field, ok := m.fields[col]
		if !ok || field.Type != domain.FieldTypeID {
			continue
		}

		seen := make(map[string]struct{}, out.Len())
		next := int64(0)
		for i := 0; i < out.Len(); i++ {
			v, _ := out.Value(i, col)
			if v != nil {
				key := categoryKey(v)
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					continue
				}
			}

			var fresh interface{}
			if field.Subtype == domain.SubtypeString {
				u := RandomUUID(rng)
				for _, taken := seen[u]; taken; _, taken = seen[u] {
					u = RandomUUID(rng)
				}
				fresh = u
				seen[u] = struct{}{}
			} else {
				for _, taken := seen[categoryKey(next)]; taken; _, taken = seen[categoryKey(next)] {
					next++
				}
				fresh = next
				seen[categoryKey(next)] = struct{}{}
				next++
			}
			if err := out.SetValue(i, col, fresh); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// RandomUUID draws a version-4 uuid from the given source so that
// fixed-seed sampling stays reproducible.
func RandomUUID(rng *rand.Rand) string {
	b := make([]byte, 16)
	rng.Read(b)
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	u, err := uuid.FromBytes(b)
	if err != nil {
		return uuid.New().String()
	}
	return u.String()
}
