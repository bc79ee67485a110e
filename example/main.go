package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/lucasefe/docsql"
	"github.com/lucasefe/docsql/loader"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run main.go <schema.json> <documents.json> [output.db]")
		fmt.Println("Example: go run main.go quotes.schema.json quotes.json quotes.db")
		os.Exit(1)
	}

	schemaFile, dataFile := os.Args[1], os.Args[2]
	outputFile := "output.db"
	if len(os.Args) > 3 {
		outputFile = os.Args[3]
	}

	schemaJSON, err := os.ReadFile(schemaFile)
	if err != nil {
		log.Fatalf("Failed to read schema: %v", err)
	}
	data, err := os.ReadFile(dataFile)
	if err != nil {
		log.Fatalf("Failed to read documents: %v", err)
	}

	fmt.Printf("Deriving tables...\n")

	engine, err := docsql.New(schemaJSON, &docsql.Config{Name: "quotes"})
	if err != nil {
		log.Fatalf("Failed to derive tables: %v", err)
	}

	result, err := engine.WalkJSON(data)
	if err != nil {
		log.Fatalf("Failed to walk documents: %v", err)
	}
	for _, name := range engine.Schema().Names() {
		fmt.Printf("  %-30s %d rows\n", name, result.Rows[name])
	}
	for _, msg := range result.Errors.Keys() {
		fmt.Printf("  %s: %d\n", msg, result.Errors[msg])
	}

	fmt.Printf("Loading into SQLite file: %s\n", outputFile)

	counts, err := engine.LoadIntoConnectionString(context.Background(), outputFile,
		loader.WithDialect(loader.SQLite),
		loader.WithDropExisting(),
	)
	if err != nil {
		log.Fatalf("Failed to load: %v", err)
	}
	fmt.Printf("Successfully loaded %d tables\n", len(counts))

	dbmlContent, err := engine.DBML()
	if err != nil {
		log.Fatalf("Failed to generate DBML: %v", err)
	}

	fmt.Println("\nDBML content preview:")
	fmt.Println("---------------------")
	if len(dbmlContent) > 500 {
		fmt.Printf("%s...\n", dbmlContent[:500])
	} else {
		fmt.Println(dbmlContent)
	}
}
