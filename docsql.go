package docsql

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lucasefe/docsql/docschema"
	"github.com/lucasefe/docsql/generator"
	"github.com/lucasefe/docsql/loader"
	"github.com/lucasefe/docsql/schema"
	"github.com/lucasefe/docsql/tree"
	"github.com/lucasefe/docsql/walker"
)

// ErrNameRequired is returned when no collection name is configured.
var ErrNameRequired = errors.New("collection name is required")

type Config struct {
	// Name is the collection name; it names the root table.
	Name string
	// ExcludeBranches are dotted schema paths removed before the tree is
	// built, e.g. "comments.items".
	ExcludeBranches []string
	// ExcludeTables are derived tables that are neither populated nor
	// rendered.
	ExcludeTables []string
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Engine holds the tree and tables derived from one schema.
type Engine struct {
	tree     *tree.Tree
	schema   *schema.Schema
	walker   *walker.Walker
	warnings []string
	logger   *slog.Logger
}

// New parses a JSON schema document and derives its tables.
func New(schemaJSON []byte, config *Config) (*Engine, error) {
	v, err := docschema.Parse(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return NewFromValue(v, config)
}

// NewFromValue derives tables from an already parsed schema.
func NewFromValue(v docschema.Value, config *Config) (*Engine, error) {
	if config == nil || config.Name == "" {
		return nil, ErrNameRequired
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	v, warnings := docschema.Exclude(v, config.ExcludeBranches...)
	for _, w := range warnings {
		logger.Warn(w)
	}

	t, err := tree.Build(config.Name, v)
	if err != nil {
		return nil, err
	}
	added := t.SynthesizeReferences()

	s, err := schema.Build(t)
	if err != nil {
		return nil, err
	}
	if len(config.ExcludeTables) > 0 {
		s = schema.FilterTables(s, config.ExcludeTables)
	}

	logger.Debug("schema derived",
		"collection", config.Name,
		"nodes", t.Len(),
		"references", added,
		"tables", len(s.Tables),
	)

	return &Engine{
		tree:     t,
		schema:   s,
		walker:   walker.New(t, s, walker.WithLogger(logger)),
		warnings: warnings,
		logger:   logger,
	}, nil
}

// Tree returns the reference-augmented schema tree.
func (e *Engine) Tree() *tree.Tree {
	return e.tree
}

// Schema returns the derived tables, excluded tables removed.
func (e *Engine) Schema() *schema.Schema {
	return e.schema
}

// Warnings returns the exclusions that could not be applied.
func (e *Engine) Warnings() []string {
	return e.warnings
}

// Walk appends the rows of docs to the tables. See walker.Walker.Walk.
func (e *Engine) Walk(docs ...any) *walker.Result {
	return e.walker.Walk(docs...)
}

// WalkJSON decodes a JSON array or a stream of JSON documents and walks them.
func (e *Engine) WalkJSON(data []byte) (*walker.Result, error) {
	return e.WalkReader(bytes.NewReader(data))
}

// WalkReader walks every document decoded from r as a single walk.
func (e *Engine) WalkReader(r io.Reader) (*walker.Result, error) {
	return e.walker.WalkReader(r)
}

// DBML renders the table definitions.
func (e *Engine) DBML(opts ...generator.Option) (string, error) {
	return generator.GenerateString(e.schema, opts...)
}

// WriteToFile writes the DBML rendering of the tables to filename.
func (e *Engine) WriteToFile(filename string, opts ...generator.Option) error {
	dbmlContent, err := e.DBML(opts...)
	if err != nil {
		return err
	}

	return os.WriteFile(filename, []byte(dbmlContent), 0644)
}

// LoadIntoConnectionString creates the tables in the database at connStr and
// loads every accumulated row.
func (e *Engine) LoadIntoConnectionString(ctx context.Context, connStr string, opts ...loader.Option) (map[string]int, error) {
	opts = append([]loader.Option{loader.WithLogger(e.logger)}, opts...)
	return loader.FromConnectionString(ctx, connStr, e.schema, opts...)
}

// PatchSchema corrects declared scalar types from walk diagnostics. Each line
// of the form "wrong value <v>(<FOUND>) for <long_alias>(<DECLARED>)" changes
// the type of the field with that long alias to FOUND. Lines that do not
// parse, name composite types, or name unknown fields are reported as
// skipped.
func PatchSchema(name string, schemaJSON []byte, lines []string) (docschema.Value, []string, error) {
	v, err := docschema.Parse(schemaJSON)
	if err != nil {
		return docschema.Value{}, nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	t, err := tree.Build(name, v)
	if err != nil {
		return docschema.Value{}, nil, err
	}

	var skipped []string
	for _, line := range lines {
		p, ok := docschema.ParsePatchLine(line)
		if !ok {
			continue
		}
		if !p.Found.IsScalar() {
			skipped = append(skipped, fmt.Sprintf("%s: can't patch to %s", p.Alias, p.Found))
			continue
		}
		id, ok := t.FindByLongAlias(p.Alias)
		if !ok {
			skipped = append(skipped, fmt.Sprintf("%s: %v", p.Alias, tree.ErrNotFound))
			continue
		}
		v, err = docschema.Patch(v, t.Branch(id), p.Found)
		if err != nil {
			return docschema.Value{}, nil, err
		}
	}
	return v, skipped, nil
}
