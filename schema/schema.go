// Package schema defines the relational model derived from a document
// schema tree: one table per array, with ordered, typed columns that
// accumulate values as documents are walked.
package schema

import (
	"github.com/lucasefe/docsql/docschema"
	"github.com/lucasefe/docsql/tree"
)

// IndexColumn is the name of a table's own synthetic primary key.
const IndexColumn = "idx"

// Schema is the set of tables derived from one schema tree.
type Schema struct {
	// Tables holds one table per array node, outer arrays first.
	Tables []*Table
}

// Table is a flat table derived from an array node.
type Table struct {
	// Name is the long plural alias of the array node, e.g. quote_comments.
	Name string
	// Node is the array node the table was derived from.
	Node tree.NodeID
	// Columns lists data columns in schema order, then one index column per
	// enclosing array level, outermost first, the table's own idx last.
	Columns []*Column
	// PrimaryKeys lists column names that form the primary key.
	PrimaryKeys []string
	// References links each ancestor index column to its ancestor table.
	References []Reference
}

// Column is one column of a derived table.
type Column struct {
	// Name is unique within the table.
	Name string
	// Type is the declared scalar type; BIGINT for index columns.
	Type docschema.Type
	// IsIndex marks the synthetic idx columns.
	IsIndex bool
	// Node is the scalar leaf a data column reads, or the array whose row
	// counter an index column records.
	Node tree.NodeID
	// Values holds one entry per row. nil is a SQL NULL.
	Values []any
}

// Reference represents a foreign key from a child table to an ancestor.
type Reference struct {
	// FromTable is the table containing the foreign key.
	FromTable string
	// FromColumns lists the column names in the foreign key.
	FromColumns []string
	// ToTable is the referenced table.
	ToTable string
	// ToColumns lists the referenced column names.
	ToColumns []string
}

// Table returns the table with the given name, or nil.
func (s *Schema) Table(name string) *Table {
	for _, t := range s.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// ByNode returns the table derived from an array node, or nil.
func (s *Schema) ByNode(id tree.NodeID) *Table {
	for _, t := range s.Tables {
		if t.Node == id {
			return t
		}
	}
	return nil
}

// Names returns the table names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	return names
}

// Reset drops every accumulated value, keeping the definitions.
func (s *Schema) Reset() {
	for _, t := range s.Tables {
		t.Reset()
	}
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// RowCount returns the number of accumulated rows.
func (t *Table) RowCount() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// Row returns the values of row i in column order.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.Columns))
	for j, c := range t.Columns {
		row[j] = c.Values[i]
	}
	return row
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Reset drops the table's accumulated values.
func (t *Table) Reset() {
	for _, c := range t.Columns {
		c.Values = nil
	}
}
