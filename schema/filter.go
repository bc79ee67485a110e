package schema

import "slices"

// FilterTables returns a Schema without the named tables, in derivation
// order. Kept tables are shared with s, which is left as is. References into
// removed tables stay on their tables; Schema.References hides them.
func FilterTables(s *Schema, exclude []string) *Schema {
	kept := slices.DeleteFunc(slices.Clone(s.Tables), func(t *Table) bool {
		return slices.Contains(exclude, t.Name)
	})
	return &Schema{Tables: kept}
}

// References returns the references of the table that point at tables
// present in s.
func (s *Schema) References(t *Table) []Reference {
	var refs []Reference
	for _, ref := range t.References {
		if s.Table(ref.ToTable) != nil {
			refs = append(refs, ref)
		}
	}
	return refs
}
