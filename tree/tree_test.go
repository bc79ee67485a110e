package tree

import (
	"errors"
	"strings"
	"testing"

	"github.com/lucasefe/docsql/docschema"
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

func buildQuotes(t *testing.T) *Tree {
	t.Helper()
	v, err := docschema.Parse([]byte(quotesSchema))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	tr, err := Build("quotes", v)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	return tr
}

func mustLocate(t *testing.T, tr *Tree, names ...string) NodeID {
	t.Helper()
	id, err := tr.Locate(names...)
	if err != nil {
		t.Fatalf("Locate(%v) returned error: %v", names, err)
	}
	return id
}

func TestBuild(t *testing.T) {
	tr := buildQuotes(t)

	root := tr.Node(tr.Root())
	if root.Kind != Array || root.Name != "quotes" {
		t.Errorf("Expected root array named quotes, got %s %q", root.Kind, root.Name)
	}

	items := mustLocate(t, tr, "comments", "items")
	if tr.Kind(items) != Array {
		t.Errorf("Expected comments.items to be an array")
	}
	elem := tr.Node(tr.Element(items))
	if elem.Kind != Struct || elem.Name != "" {
		t.Errorf("Expected unnamed struct element, got %s %q", elem.Kind, elem.Name)
	}

	var parents []string
	for _, id := range tr.Chain(items) {
		if name := tr.Node(id).Name; name != "" {
			parents = append(parents, name)
		}
	}
	if strings.Join(parents, ".") != "quotes.comments.items" {
		t.Errorf("Unexpected chain: %v", parents)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name     string
		value    docschema.Value
		wantErr  error
		wantPath string
	}{
		{
			name: "empty array",
			value: docschema.ObjectOf(docschema.Field{
				Name:  "a",
				Value: docschema.ObjectOf(docschema.Field{Name: "b", Value: docschema.Value{Kind: docschema.List}}),
			}),
			wantErr:  ErrEmptyArray,
			wantPath: "quotes.a.b",
		},
		{
			name:     "unknown type",
			value:    docschema.ObjectOf(docschema.Field{Name: "a", Value: docschema.TypeOf("VARCHAR")}),
			wantErr:  docschema.ErrUnknownType,
			wantPath: "quotes.a",
		},
		{
			name: "list of lists",
			value: docschema.ObjectOf(docschema.Field{
				Name:  "lists",
				Value: docschema.ListOf(docschema.ListOf(docschema.TypeOf(docschema.Int))),
			}),
			wantErr:  ErrNestedArray,
			wantPath: "quotes.lists",
		},
		{
			name: "matrix inside a struct",
			value: docschema.ObjectOf(docschema.Field{
				Name: "a",
				Value: docschema.ObjectOf(docschema.Field{
					Name:  "matrix",
					Value: docschema.ListOf(docschema.ListOf(docschema.TypeOf(docschema.Int))),
				}),
			}),
			wantErr:  ErrNestedArray,
			wantPath: "quotes.a.matrix",
		},
		{
			name:     "collection of lists",
			value:    docschema.ListOf(docschema.TypeOf(docschema.String)),
			wantErr:  ErrNestedArray,
			wantPath: "quotes",
		},
		{
			name:     "empty field name",
			value:    docschema.ObjectOf(docschema.Field{Name: "", Value: docschema.TypeOf(docschema.String)}),
			wantErr:  ErrEmptyName,
			wantPath: "quotes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build("quotes", tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Build error = %v, want %v", err, tt.wantErr)
			}
			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) || schemaErr.Path != tt.wantPath {
				t.Errorf("Expected SchemaError at %s, got %v", tt.wantPath, err)
			}
		})
	}

	if _, err := Build("", docschema.ObjectOf()); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Expected ErrEmptyName for unnamed root, got %v", err)
	}
}

func TestLocateNotFound(t *testing.T) {
	tr := buildQuotes(t)

	_, err := tr.Locate("comments", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "quotes.comments.missing") {
		t.Errorf("Expected path in error, got %v", err)
	}
}

func TestAliases(t *testing.T) {
	tr := buildQuotes(t)

	tests := []struct {
		path     []string
		external string
		short    string
		long     string
		plural   string
	}{
		{nil, "quotes", "quotes", "quotes", "quotes"},
		{[]string{"_id", "oid"}, "oid", "id_oid", "quotes_id_oid", "quote_id_oid"},
		{[]string{"body"}, "body", "body", "quotes_body", "quote_body"},
		{[]string{"comments"}, "comments", "comments", "quotes_comments", "quote_comments"},
		{[]string{"comments", "_id", "oid"}, "oid", "id_oid", "quotes_comments_id_oid", "quote_comment_id_oid"},
		{[]string{"comments", "items"}, "items", "items", "quotes_comments_items", "quote_comment_items"},
		{[]string{"comments", "items", "data"}, "data", "data", "quotes_comments_items_data", "quote_comment_item_data"},
		{[]string{"tags"}, "tags", "tags", "quotes_tags", "quote_tags"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.path, "."), func(t *testing.T) {
			id := mustLocate(t, tr, tt.path...)
			if got := tr.ExternalName(id); got != tt.external {
				t.Errorf("ExternalName = %s, want %s", got, tt.external)
			}
			if got := tr.ShortAlias(id); got != tt.short {
				t.Errorf("ShortAlias = %s, want %s", got, tt.short)
			}
			if got := tr.LongAlias(id); got != tt.long {
				t.Errorf("LongAlias = %s, want %s", got, tt.long)
			}
			if got := tr.LongPluralAlias(id); got != tt.plural {
				t.Errorf("LongPluralAlias = %s, want %s", got, tt.plural)
			}
		})
	}
}

func TestScalarElementBorrowsArrayName(t *testing.T) {
	tr := buildQuotes(t)

	elem := tr.Element(mustLocate(t, tr, "tags"))
	if got := tr.ExternalName(elem); got != "tags" {
		t.Errorf("ExternalName = %s, want tags", got)
	}
	if got := tr.ShortAlias(elem); got != "tags" {
		t.Errorf("ShortAlias = %s, want tags", got)
	}
	if got := tr.LongAlias(elem); got != "quotes_tags" {
		t.Errorf("LongAlias = %s, want quotes_tags", got)
	}
}

func TestAliasesAreIdempotent(t *testing.T) {
	tr := buildQuotes(t)
	tr.SynthesizeReferences()

	for i := 0; i < tr.Len(); i++ {
		id := NodeID(i)
		if tr.ShortAlias(id) != tr.ShortAlias(id) ||
			tr.LongAlias(id) != tr.LongAlias(id) ||
			tr.LongPluralAlias(id) != tr.LongPluralAlias(id) {
			t.Errorf("Aliases of node %d are not stable", id)
		}
	}
}

func TestSingular(t *testing.T) {
	tests := map[string]string{
		"quotes":  "quote",
		"ITEMS":   "ITEM",
		"data":    "data",
		"s":       "s",
		"address": "addres",
		"":        "",
	}
	for in, expected := range tests {
		if got := Singular(in); got != expected {
			t.Errorf("Singular(%q) = %q, want %q", in, got, expected)
		}
	}
}

func TestArrayOrders(t *testing.T) {
	tr := buildQuotes(t)

	names := func(ids []NodeID) string {
		var out []string
		for _, id := range ids {
			out = append(out, tr.Node(id).Name)
		}
		return strings.Join(out, ",")
	}

	if got := names(tr.Arrays()); got != "quotes,comments,items,tags" {
		t.Errorf("Arrays() = %s", got)
	}
	if got := names(tr.ArrayNodes()); got != "items,comments,tags,quotes" {
		t.Errorf("ArrayNodes() = %s", got)
	}
}

func TestSynthesizeReferences(t *testing.T) {
	tr := buildQuotes(t)

	if added := tr.SynthesizeReferences(); added != 3 {
		t.Fatalf("SynthesizeReferences added %d nodes, want 3", added)
	}
	if !tr.Frozen() {
		t.Errorf("Expected tree to be frozen")
	}
	if added := tr.SynthesizeReferences(); added != 0 {
		t.Errorf("Second pass added %d nodes, want 0", added)
	}

	refsOf := func(array NodeID) map[string]NodeID {
		out := map[string]NodeID{}
		for _, c := range tr.Node(tr.Element(array)).Children {
			if n := tr.Node(c); n.Reference != NoNode {
				out[n.Name] = c
			}
		}
		return out
	}

	rootOid := mustLocate(t, tr, "_id", "oid")
	commentOid := mustLocate(t, tr, "comments", "_id", "oid")

	comments := refsOf(mustLocate(t, tr, "comments"))
	if len(comments) != 1 {
		t.Fatalf("Expected 1 reference on comments, got %v", comments)
	}
	ref, ok := comments["quotes_id_oid"]
	if !ok || tr.Node(ref).Reference != rootOid {
		t.Errorf("Expected comments to reference quotes _id.oid, got %v", comments)
	}

	items := refsOf(mustLocate(t, tr, "comments", "items"))
	if len(items) != 2 {
		t.Fatalf("Expected 2 references on items, got %v", items)
	}
	if tr.Node(items["quotes_comments_id_oid"]).Reference != commentOid {
		t.Errorf("Expected items to reference comments _id.oid")
	}

	for _, id := range items {
		n := tr.Node(id)
		source := tr.Node(n.Reference)
		if n.Type != source.Type {
			t.Errorf("Reference type %s differs from source type %s", n.Type, source.Type)
		}
		if tr.ShortAlias(id) != tr.LongAlias(n.Reference) || tr.LongAlias(id) != tr.LongAlias(n.Reference) {
			t.Errorf("Reference aliases must equal the source long alias")
		}
	}

	if refs := refsOf(mustLocate(t, tr)); len(refs) != 0 {
		t.Errorf("Root must not get references, got %v", refs)
	}
}

func TestIDNode(t *testing.T) {
	schema := docschema.ObjectOf(
		docschema.Field{Name: "id", Value: docschema.TypeOf(docschema.BigInt)},
		docschema.Field{Name: "lines", Value: docschema.ListOf(docschema.ObjectOf(
			docschema.Field{Name: "_id", Value: docschema.ObjectOf(
				docschema.Field{Name: "a", Value: docschema.TypeOf(docschema.String)},
			)},
			docschema.Field{Name: "sku", Value: docschema.TypeOf(docschema.String)},
		))},
	)
	tr, err := Build("orders", schema)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	id, ok := tr.IDNode(tr.Root())
	if !ok || tr.Node(id).Name != "id" {
		t.Errorf("Expected scalar id node, got %v %v", id, ok)
	}
	if _, ok := tr.IDNode(mustLocate(t, tr, "lines")); ok {
		t.Errorf("Non object id struct must not qualify as id node")
	}

	tr.SynthesizeReferences()
	lines := tr.Node(tr.Element(mustLocate(t, tr, "lines")))
	last := tr.Node(lines.Children[len(lines.Children)-1])
	if last.Name != "orders_id" || last.Type != docschema.BigInt {
		t.Errorf("Expected orders_id BIGINT reference, got %s %s", last.Name, last.Type)
	}
}

func TestBranch(t *testing.T) {
	tr := buildQuotes(t)

	if got := tr.Branch(mustLocate(t, tr, "comments", "items", "data")); got != "comments.items.data" {
		t.Errorf("Branch = %s", got)
	}
	if got := tr.Branch(tr.Root()); got != "" {
		t.Errorf("Branch(root) = %q, want empty", got)
	}

	id, ok := tr.FindByLongAlias("quotes_comments_body")
	if !ok || tr.Branch(id) != "comments.body" {
		t.Errorf("FindByLongAlias(quotes_comments_body) = %v, %v", id, ok)
	}
}

func TestString(t *testing.T) {
	tr := buildQuotes(t)
	tr.SynthesizeReferences()

	out := tr.String()
	for _, expected := range []string{
		"quotes : ARRAY",
		"--------comments : ARRAY",
		"------------------------data : STRING",
		"quotes_id_oid : STRING -> quotes._id.oid",
	} {
		if !strings.Contains(out, expected) {
			t.Errorf("String() missing %q:\n%s", expected, out)
		}
	}
}
