package schema

import (
	"errors"
	"reflect"
	"testing"

	"github.com/lucasefe/docsql/docschema"
	"github.com/lucasefe/docsql/tree"
)

const quotesSchema = `{
	"_id": {"oid": "STRING", "bsontype": "INT"},
	"body": "STRING",
	"comments": [{
		"_id": {"oid": "STRING", "bsontype": "INT"},
		"body": "STRING",
		"items": [{"data": "STRING"}]
	}],
	"tags": ["STRING"]
}`

func buildSchema(t *testing.T, name, raw string) *Schema {
	t.Helper()
	v, err := docschema.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	tr, err := tree.Build(name, v)
	if err != nil {
		t.Fatalf("tree.Build returned error: %v", err)
	}
	s, err := Build(tr)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	return s
}

func TestBuild(t *testing.T) {
	s := buildSchema(t, "quotes", quotesSchema)

	wantTables := []string{"quotes", "quote_comments", "quote_comment_items", "quote_tags"}
	if got := s.Names(); !reflect.DeepEqual(got, wantTables) {
		t.Fatalf("Expected tables %v, got %v", wantTables, got)
	}

	tests := []struct {
		table   string
		columns []string
		refs    map[string]string
	}{
		{
			table:   "quotes",
			columns: []string{"id_oid", "id_bsontype", "body", "idx"},
		},
		{
			table:   "quote_comments",
			columns: []string{"id_oid", "id_bsontype", "body", "quotes_id_oid", "quotes_idx", "idx"},
			refs:    map[string]string{"quotes_idx": "quotes"},
		},
		{
			table: "quote_comment_items",
			columns: []string{
				"data", "quotes_id_oid", "quotes_comments_id_oid",
				"quotes_idx", "quotes_comments_idx", "idx",
			},
			refs: map[string]string{
				"quotes_idx":          "quotes",
				"quotes_comments_idx": "quote_comments",
			},
		},
		{
			table:   "quote_tags",
			columns: []string{"tags", "quotes_idx", "idx"},
			refs:    map[string]string{"quotes_idx": "quotes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			table := s.Table(tt.table)
			if table == nil {
				t.Fatalf("Table %s not found", tt.table)
			}
			if got := table.ColumnNames(); !reflect.DeepEqual(got, tt.columns) {
				t.Errorf("Expected columns %v, got %v", tt.columns, got)
			}
			if !reflect.DeepEqual(table.PrimaryKeys, []string{"idx"}) {
				t.Errorf("Expected primary key [idx], got %v", table.PrimaryKeys)
			}
			if len(table.References) != len(tt.refs) {
				t.Fatalf("Expected %d references, got %d", len(tt.refs), len(table.References))
			}
			for _, ref := range table.References {
				if ref.FromTable != tt.table {
					t.Errorf("Expected reference from %s, got %s", tt.table, ref.FromTable)
				}
				want, ok := tt.refs[ref.FromColumns[0]]
				if !ok || ref.ToTable != want || ref.ToColumns[0] != IndexColumn {
					t.Errorf("Unexpected reference %v -> %s.%v", ref.FromColumns, ref.ToTable, ref.ToColumns)
				}
			}
		})
	}
}

func TestBuildColumnTypes(t *testing.T) {
	s := buildSchema(t, "quotes", quotesSchema)
	table := s.Table("quote_comments")

	tests := []struct {
		column  string
		typ     docschema.Type
		isIndex bool
	}{
		{"id_oid", docschema.String, false},
		{"id_bsontype", docschema.Int, false},
		{"quotes_id_oid", docschema.String, false},
		{"quotes_idx", docschema.BigInt, true},
		{"idx", docschema.BigInt, true},
	}

	for _, tt := range tests {
		c := table.Column(tt.column)
		if c == nil {
			t.Errorf("Column %s not found", tt.column)
			continue
		}
		if c.Type != tt.typ || c.IsIndex != tt.isIndex {
			t.Errorf("Column %s: expected %s index=%v, got %s index=%v", tt.column, tt.typ, tt.isIndex, c.Type, c.IsIndex)
		}
	}
}

func TestBuildFlattensStructs(t *testing.T) {
	s := buildSchema(t, "people", `{"name": {"first": "STRING", "last": "STRING"}, "age": "INT"}`)

	table := s.Table("people")
	want := []string{"name_first", "name_last", "age", "idx"}
	if got := table.ColumnNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected columns %v, got %v", want, got)
	}
	if len(s.Tables) != 1 {
		t.Errorf("Expected a single table, got %v", s.Names())
	}
}

func TestBuildDuplicateColumn(t *testing.T) {
	v, err := docschema.Parse([]byte(`{"a_b": "STRING", "a": {"b": "INT"}}`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	tr, err := tree.Build("things", v)
	if err != nil {
		t.Fatalf("tree.Build returned error: %v", err)
	}

	_, err = Build(tr)
	if !errors.Is(err, ErrDuplicateColumn) {
		t.Fatalf("Expected ErrDuplicateColumn, got %v", err)
	}
	var serr *tree.SchemaError
	if !errors.As(err, &serr) || serr.Path != "things.a.b" {
		t.Errorf("Expected schema error at things.a.b, got %v", err)
	}
}

func TestBuildFreezesTree(t *testing.T) {
	v, _ := docschema.Parse([]byte(quotesSchema))
	tr, err := tree.Build("quotes", v)
	if err != nil {
		t.Fatalf("tree.Build returned error: %v", err)
	}

	first, err := Build(tr)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !tr.Frozen() {
		t.Errorf("Expected Build to run the reference pass")
	}
	second, err := Build(tr)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !reflect.DeepEqual(first.Table("quote_comment_items").ColumnNames(), second.Table("quote_comment_items").ColumnNames()) {
		t.Errorf("Expected repeated builds to agree")
	}
}

func TestRowsAndReset(t *testing.T) {
	s := buildSchema(t, "people", `{"name": "STRING"}`)
	table := s.Table("people")
	table.Column("name").Values = []any{"ada", nil}
	table.Column("idx").Values = []any{int64(1), int64(2)}

	if table.RowCount() != 2 {
		t.Fatalf("Expected 2 rows, got %d", table.RowCount())
	}
	if got := table.Row(1); !reflect.DeepEqual(got, []any{nil, int64(2)}) {
		t.Errorf("Unexpected row: %v", got)
	}

	s.Reset()
	if table.RowCount() != 0 {
		t.Errorf("Expected no rows after Reset, got %d", table.RowCount())
	}
}

func TestByNode(t *testing.T) {
	s := buildSchema(t, "quotes", quotesSchema)
	for _, table := range s.Tables {
		if got := s.ByNode(table.Node); got != table {
			t.Errorf("ByNode(%d) returned %v, want %s", table.Node, got, table.Name)
		}
	}
	if s.ByNode(tree.NoNode) != nil {
		t.Errorf("Expected nil for NoNode")
	}
}

func TestFilterTables(t *testing.T) {
	tests := []struct {
		name    string
		exclude []string
		want    []string
	}{
		{"nested level", []string{"quote_comments"}, []string{"quotes", "quote_comment_items", "quote_tags"}},
		{"several", []string{"quote_tags", "quote_comment_items"}, []string{"quotes", "quote_comments"}},
		{"unknown name", []string{"quote_likes"}, []string{"quotes", "quote_comments", "quote_comment_items", "quote_tags"}},
		{"nothing", nil, []string{"quotes", "quote_comments", "quote_comment_items", "quote_tags"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := buildSchema(t, "quotes", quotesSchema)
			filtered := FilterTables(s, tt.exclude)

			if got := filtered.Names(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected tables %v, got %v", tt.want, got)
			}
			if len(s.Tables) != 4 {
				t.Errorf("Original schema was modified, got %d tables", len(s.Tables))
			}
			for _, table := range filtered.Tables {
				if s.Table(table.Name) != table {
					t.Errorf("Expected %s to be shared with the original", table.Name)
				}
			}
		})
	}
}

func TestFilterTablesDropsDanglingReferences(t *testing.T) {
	s := buildSchema(t, "quotes", quotesSchema)
	filtered := FilterTables(s, []string{"quote_comments"})

	items := filtered.Table("quote_comment_items")
	refs := filtered.References(items)
	if len(refs) != 1 || refs[0].ToTable != "quotes" {
		t.Errorf("Expected only the reference to quotes, got %v", refs)
	}
	if len(items.References) != 2 {
		t.Errorf("Expected table references untouched, got %d", len(items.References))
	}
}
