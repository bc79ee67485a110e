package loader

import (
	"fmt"
	"strings"

	"github.com/lucasefe/docsql/docschema"
)

// Dialect selects the SQL flavor and database/sql driver used for loading.
type Dialect string

const (
	// Postgres loads through lib/pq using COPY.
	Postgres Dialect = "postgres"
	// SQLite loads through modernc.org/sqlite using batched INSERTs.
	SQLite Dialect = "sqlite"
)

// ParseDialect converts a dialect name, case-insensitively. "postgresql" and
// "sqlite3" are accepted as aliases.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unknown dialect %q", s)
}

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

// TypeMapper defines the interface for converting schema scalar types to SQL
// column types. Implement this interface to customize type mapping behavior.
type TypeMapper interface {
	// MapType converts a scalar type to a column type for the dialect.
	MapType(t docschema.Type, dialect Dialect) string
}

// DialectTypeMapper maps scalar types using DefaultTypeMappings.
// It supports custom type overrides via the CustomMappings field.
type DialectTypeMapper struct {
	// CustomMappings allows overriding default type mappings.
	// Keys are scalar type names (case-insensitive), values are SQL types.
	CustomMappings map[string]string
}

// NewTypeMapper creates a new TypeMapper with optional custom mappings.
// If customMappings is nil, only default mappings are used.
//
// Example:
//
//	mapper := loader.NewTypeMapper(map[string]string{
//	    "TIMESTAMP": "timestamp without time zone",
//	    "STRING":    "varchar(1024)",
//	})
func NewTypeMapper(customMappings map[string]string) *DialectTypeMapper {
	lowered := make(map[string]string, len(customMappings))
	for k, v := range customMappings {
		lowered[strings.ToLower(k)] = v
	}
	return &DialectTypeMapper{CustomMappings: lowered}
}

// MapType implements TypeMapper.
// It checks CustomMappings first, then falls back to default mappings.
func (m *DialectTypeMapper) MapType(t docschema.Type, dialect Dialect) string {
	if m.CustomMappings != nil {
		if mapped, ok := m.CustomMappings[strings.ToLower(string(t))]; ok {
			return mapped
		}
	}
	return MapTypeToSQL(t, dialect)
}

// DefaultTypeMappings contains the standard scalar type to column type
// mappings per dialect.
var DefaultTypeMappings = map[Dialect]map[docschema.Type]string{
	Postgres: {
		docschema.String:    "text",
		docschema.Int:       "integer",
		docschema.Double:    "double precision",
		docschema.Boolean:   "boolean",
		docschema.Timestamp: "timestamp with time zone",
		docschema.BigInt:    "bigint",
		docschema.TinyInt:   "smallint",
	},
	SQLite: {
		docschema.String:    "TEXT",
		docschema.Int:       "INTEGER",
		docschema.Double:    "REAL",
		docschema.Boolean:   "BOOLEAN",
		docschema.Timestamp: "TIMESTAMP",
		docschema.BigInt:    "INTEGER",
		docschema.TinyInt:   "INTEGER",
	},
}

// MapTypeToSQL converts a scalar type to its column type in dialect.
// Unknown types default to the dialect's text type.
func MapTypeToSQL(t docschema.Type, dialect Dialect) string {
	mappings, ok := DefaultTypeMappings[dialect]
	if !ok {
		mappings = DefaultTypeMappings[Postgres]
	}
	if mapped, ok := mappings[docschema.Type(strings.ToUpper(string(t)))]; ok {
		return mapped
	}
	return mappings[docschema.String]
}
