// Package generator renders derived tables as DBML and dumps their rows as
// JSON.
//
// Basic usage:
//
//	output, err := generator.Generate(s)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.Stdout.Write(output)
package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lucasefe/docsql/docschema"
	"github.com/lucasefe/docsql/schema"
)

// Option configures DBML generation.
type Option func(*options)

type options struct {
	namespace string
}

// WithNamespace prefixes every table with a DBML schema name. "public" and
// the empty string leave names unqualified.
func WithNamespace(namespace string) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}

var dbmlTypes = map[docschema.Type]string{
	docschema.String:    "varchar",
	docschema.Int:       "int",
	docschema.Double:    "double",
	docschema.Boolean:   "boolean",
	docschema.Timestamp: "timestamp",
	docschema.BigInt:    "bigint",
	docschema.TinyInt:   "tinyint",
}

// Generate converts a Schema into DBML-formatted bytes.
// Tables and references are sorted alphabetically for deterministic output;
// columns keep their derived order. References to tables missing from s are
// left out.
func Generate(s *schema.Schema, opts ...Option) ([]byte, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var builder strings.Builder

	sortedTables := make([]*schema.Table, len(s.Tables))
	copy(sortedTables, s.Tables)
	sort.Slice(sortedTables, func(i, j int) bool {
		return sortedTables[i].Name < sortedTables[j].Name
	})

	for _, table := range sortedTables {
		if err := generateTable(&builder, table, o.namespace); err != nil {
			return nil, err
		}
		builder.WriteString("\n")
	}

	// Collect and sort all references
	var allReferences []schema.Reference
	for _, table := range sortedTables {
		allReferences = append(allReferences, s.References(table)...)
	}

	sort.Slice(allReferences, func(i, j int) bool {
		refI := allReferences[i]
		refJ := allReferences[j]

		if refI.FromTable != refJ.FromTable {
			return refI.FromTable < refJ.FromTable
		}

		if len(refI.FromColumns) > 0 && len(refJ.FromColumns) > 0 {
			if refI.FromColumns[0] != refJ.FromColumns[0] {
				return refI.FromColumns[0] < refJ.FromColumns[0]
			}
		}

		return refI.ToTable < refJ.ToTable
	})

	for _, ref := range allReferences {
		generateReference(&builder, ref, o.namespace)
	}

	return []byte(builder.String()), nil
}

// GenerateString is a convenience wrapper that returns the DBML as a string.
func GenerateString(s *schema.Schema, opts ...Option) (string, error) {
	result, err := Generate(s, opts...)
	if err != nil {
		return "", err
	}
	return string(result), nil
}

func generateTable(builder *strings.Builder, table *schema.Table, namespace string) error {
	builder.WriteString(fmt.Sprintf("Table %s {\n", GetQualifiedTableName(table.Name, namespace)))

	pk := make(map[string]bool, len(table.PrimaryKeys))
	for _, name := range table.PrimaryKeys {
		pk[name] = true
	}

	var foreign []string
	for _, column := range table.Columns {
		if err := generateColumn(builder, column, pk[column.Name]); err != nil {
			return fmt.Errorf("table %s: %w", table.Name, err)
		}
		if column.IsIndex && !pk[column.Name] {
			foreign = append(foreign, column.Name)
		}
	}

	if len(foreign) > 0 {
		builder.WriteString("\n")
		generateIndexes(builder, foreign)
	}

	builder.WriteString("}\n")
	return nil
}

func generateColumn(builder *strings.Builder, column *schema.Column, isPrimaryKey bool) error {
	typ, ok := dbmlTypes[column.Type]
	if !ok {
		return fmt.Errorf("column %s: %w %q", column.Name, docschema.ErrUnknownType, column.Type)
	}
	builder.WriteString(fmt.Sprintf("  %s %s", column.Name, typ))

	var attributes []string

	if isPrimaryKey {
		attributes = append(attributes, "pk")
	} else if column.IsIndex {
		attributes = append(attributes, "not null")
	}

	if len(attributes) > 0 {
		builder.WriteString(fmt.Sprintf(" [%s]", strings.Join(attributes, ", ")))
	}

	builder.WriteString("\n")
	return nil
}

// generateIndexes writes one index per foreign index column; the ancestor
// index columns are what child rows are joined on.
func generateIndexes(builder *strings.Builder, columns []string) {
	builder.WriteString("  indexes {\n")
	for _, column := range columns {
		builder.WriteString(fmt.Sprintf("    %s\n", column))
	}
	builder.WriteString("  }\n")
}

func generateReference(builder *strings.Builder, ref schema.Reference, namespace string) {
	fromTable := GetQualifiedTableName(ref.FromTable, namespace)
	toTable := GetQualifiedTableName(ref.ToTable, namespace)

	var fromRef, toRef string
	if len(ref.FromColumns) == 1 {
		fromRef = fmt.Sprintf("%s.%s", fromTable, ref.FromColumns[0])
	} else {
		fromRef = fmt.Sprintf("%s.(%s)", fromTable, strings.Join(ref.FromColumns, ", "))
	}

	if len(ref.ToColumns) == 1 {
		toRef = fmt.Sprintf("%s.%s", toTable, ref.ToColumns[0])
	} else {
		toRef = fmt.Sprintf("%s.(%s)", toTable, strings.Join(ref.ToColumns, ", "))
	}

	builder.WriteString(fmt.Sprintf("Ref: %s > %s\n", fromRef, toRef))
}

// GetQualifiedTableName returns a table name with schema prefix if not "public".
// For the public schema, returns just the table name.
func GetQualifiedTableName(tableName, schemaName string) string {
	if schemaName != "" && schemaName != "public" {
		return fmt.Sprintf("%s.%s", schemaName, tableName)
	}
	return tableName
}
