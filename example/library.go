//go:build ignore

// This file demonstrates using the subpackages directly.
// Run with: go run library.go
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/lucasefe/docsql/docschema"
	"github.com/lucasefe/docsql/document"
	"github.com/lucasefe/docsql/generator"
	"github.com/lucasefe/docsql/loader"
	"github.com/lucasefe/docsql/schema"
	"github.com/lucasefe/docsql/tree"
	"github.com/lucasefe/docsql/walker"
)

const documents = `
{"_id": {"$oid": "5a0b0c0d0e0f101112131415"}, "body": "first", "comments": [{"id": 1, "body": "nice", "score": 2.5}]}
{"_id": {"$oid": "5a0b0c0d0e0f101112131416"}, "body": "second", "comments": [{"id": 2, "body": ["oops"]}]}
`

func main() {
	fmt.Println("=== Example 1: Inferring a Schema ===")
	docs := inferSchema()

	fmt.Println("\n=== Example 2: Aliases ===")
	t := aliases(docs)

	fmt.Println("\n=== Example 3: Walking ===")
	s := walk(t, docs)

	fmt.Println("\n=== Example 4: DDL ===")
	for _, stmt := range loader.CreateStatements(s, loader.WithNamespace("raw")) {
		fmt.Println(stmt + ";")
	}

	fmt.Println("\n=== Example 5: Rows as JSON ===")
	if err := generator.WriteJSON(os.Stdout, s); err != nil {
		log.Fatal(err)
	}
}

func inferSchema() []any {
	docs, err := document.DecodeAll([]byte(documents))
	if err != nil {
		log.Fatalf("Failed to decode documents: %v", err)
	}

	v := document.InferSchema(docs...)
	if err := docschema.Encode(os.Stdout, v); err != nil {
		log.Fatal(err)
	}
	return docs
}

func aliases(docs []any) *tree.Tree {
	t, err := tree.Build("quotes", document.InferSchema(docs...))
	if err != nil {
		log.Fatalf("Failed to build tree: %v", err)
	}
	fmt.Printf("Synthesized %d reference nodes\n", t.SynthesizeReferences())

	body, err := t.Locate("comments", "body")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("short=%s long=%s plural=%s\n", t.ShortAlias(body), t.LongAlias(body), t.LongPluralAlias(body))
	fmt.Print(t)
	return t
}

func walk(t *tree.Tree, docs []any) *schema.Schema {
	s, err := schema.Build(t)
	if err != nil {
		log.Fatalf("Failed to derive tables: %v", err)
	}

	res := walker.New(t, s).Walk(docs...)
	for _, table := range s.Tables {
		fmt.Printf("%s: %v (%d rows)\n", table.Name, table.ColumnNames(), res.Rows[table.Name])
	}
	for _, msg := range res.Errors.Keys() {
		fmt.Printf("  %s: %d\n", msg, res.Errors[msg])
	}
	return s
}
