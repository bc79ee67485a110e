// Package docsql flattens nested documents into relational tables.
//
// A document schema describes objects, arrays and scalar fields. Every array,
// including the implicit array of documents in the collection, becomes its
// own table; every scalar inside an object becomes a column. Child tables
// carry index columns that join each row back to the exact parent row it was
// produced from, plus copies of every ancestor's id field.
//
// # Basic Usage
//
//	engine, err := docsql.New(schemaJSON, &docsql.Config{Name: "quotes"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := engine.WalkJSON(documents)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors.Keys() {
//	    log.Printf("%s: %d", msg, result.Errors[msg])
//	}
//
// The schema
//
//	{"_id": {"oid": "STRING", "bsontype": "INT"},
//	 "body": "STRING",
//	 "comments": [{"body": "STRING", "items": [{"data": "STRING"}]}]}
//
// yields the tables quotes, quote_comments and quote_comment_items. The
// items table has the columns data, quotes_id_oid, quotes_idx,
// quotes_comments_idx and idx.
//
// # Configuration
//
// Use Config to drop parts of the schema before tables are derived, or to
// skip derived tables:
//
//	config := &docsql.Config{
//	    Name:            "quotes",
//	    ExcludeBranches: []string{"comments.items"},
//	    ExcludeTables:   []string{"quote_tags"},
//	}
//
// # Loading
//
// Rows accumulated by Walk can be loaded into PostgreSQL or SQLite:
//
//	counts, err := engine.LoadIntoConnectionString(ctx, os.Getenv("DATABASE_URL"))
//
// # Subpackages
//
// For advanced use cases, consider using the subpackages directly:
//
//   - github.com/lucasefe/docsql/docschema - Raw schema values, branch editing and patching
//   - github.com/lucasefe/docsql/document - Document decoding, object ids and schema inference
//   - github.com/lucasefe/docsql/tree - Schema node tree, aliases and reference synthesis
//   - github.com/lucasefe/docsql/schema - Derived tables and columns
//   - github.com/lucasefe/docsql/walker - Document walking and type reconciliation
//   - github.com/lucasefe/docsql/generator - DBML and JSON rendering
//   - github.com/lucasefe/docsql/loader - Table creation and bulk loading
//
// # Fixing Declared Types
//
// Walk diagnostics name the offending column by long alias and the type that
// was actually seen. PatchSchema feeds them back into the schema:
//
//	patched, skipped, err := docsql.PatchSchema("quotes", schemaJSON, result.Errors.Keys())
package docsql
