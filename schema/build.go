package schema

import (
	"errors"
	"fmt"

	"github.com/lucasefe/docsql/docschema"
	"github.com/lucasefe/docsql/tree"
)

// ErrDuplicateColumn is returned when two columns of one table resolve to
// the same name, e.g. a field "a_b" next to a struct "a" holding "b".
var ErrDuplicateColumn = errors.New("duplicate column")

// Build derives one table per array node of t, outer arrays first. The
// reference pass is run first if it has not run yet, so every nested table
// carries its foreign key columns.
func Build(t *tree.Tree) (*Schema, error) {
	t.SynthesizeReferences()

	s := &Schema{}
	names := make(map[string]tree.NodeID)
	for _, array := range t.Arrays() {
		table, err := buildTable(t, array)
		if err != nil {
			return nil, err
		}
		if prev, ok := names[table.Name]; ok {
			return nil, &tree.SchemaError{
				Path: t.Path(array),
				Err:  fmt.Errorf("table %s already derived from %s", table.Name, t.Path(prev)),
			}
		}
		names[table.Name] = array
		s.Tables = append(s.Tables, table)
	}
	return s, nil
}

func buildTable(t *tree.Tree, anchor tree.NodeID) (*Table, error) {
	table := &Table{
		Name:        t.LongPluralAlias(anchor),
		Node:        anchor,
		PrimaryKeys: []string{IndexColumn},
	}

	seen := make(map[string]bool)
	add := func(c *Column) error {
		if seen[c.Name] {
			return &tree.SchemaError{
				Path: t.Path(c.Node),
				Err:  fmt.Errorf("%w %s in table %s", ErrDuplicateColumn, c.Name, table.Name),
			}
		}
		seen[c.Name] = true
		table.Columns = append(table.Columns, c)
		return nil
	}

	var collect func(id tree.NodeID) error
	collect = func(id tree.NodeID) error {
		n := t.Node(id)
		switch n.Kind {
		case tree.Scalar:
			return add(&Column{Name: t.ShortAlias(id), Type: n.Type, Node: id})
		case tree.Struct:
			for _, c := range n.Children {
				if err := collect(c); err != nil {
					return err
				}
			}
		}
		// Nested arrays belong to their own tables.
		return nil
	}
	if elem := t.Element(anchor); elem != tree.NoNode {
		if err := collect(elem); err != nil {
			return nil, err
		}
	}

	for _, id := range t.Chain(anchor) {
		if t.Kind(id) != tree.Array {
			continue
		}
		name := IndexColumn
		if id != anchor {
			name = t.LongAlias(id) + "_" + IndexColumn
			table.References = append(table.References, Reference{
				FromTable:   table.Name,
				FromColumns: []string{name},
				ToTable:     t.LongPluralAlias(id),
				ToColumns:   []string{IndexColumn},
			})
		}
		if err := add(&Column{Name: name, Type: docschema.BigInt, IsIndex: true, Node: id}); err != nil {
			return nil, err
		}
	}
	return table, nil
}
