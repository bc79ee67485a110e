// Package walker populates derived tables from documents.
//
// A Walker pairs a frozen schema tree with the tables derived from it. Each
// call to Walk keeps its own cursors, row counters and diagnostics, so walks
// may run concurrently; their rows are appended to the shared tables under a
// lock once the walk has finished, keeping the columns of a table aligned.
//
//	w := walker.New(t, s)
//	res := w.Walk(docs...)
//	for _, msg := range res.Errors.Keys() {
//	    log.Printf("%s: %d", msg, res.Errors[msg])
//	}
package walker

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/goccy/go-json"

	"github.com/lucasefe/docsql/docschema"
	"github.com/lucasefe/docsql/document"
	"github.com/lucasefe/docsql/schema"
	"github.com/lucasefe/docsql/tree"
)

// Option configures a Walker.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for walk summaries and shape mismatches.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Walker walks documents against a schema tree and appends the resulting
// rows to the derived tables.
type Walker struct {
	tree   *tree.Tree
	schema *schema.Schema
	tables map[tree.NodeID]*schema.Table
	logger *slog.Logger

	mu sync.Mutex
}

// Result summarizes one walk.
type Result struct {
	// Documents is the number of documents walked.
	Documents int
	// Rows maps table names to the number of rows appended.
	Rows map[string]int
	// Errors counts value and shape mismatches by message.
	Errors Tally
}

// New returns a Walker for t and the tables derived from it. s may be a
// filtered subset of the derived tables; arrays without a table are still
// walked but emit nothing.
func New(t *tree.Tree, s *schema.Schema, opts ...Option) *Walker {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	tables := make(map[tree.NodeID]*schema.Table, len(s.Tables))
	for _, table := range s.Tables {
		tables[table.Node] = table
	}
	return &Walker{
		tree:   t,
		schema: s,
		tables: tables,
		logger: o.logger,
	}
}

// Walk treats docs as the elements of the root array and appends one row per
// visited array element. Row indices start at 1 for every walk, so all
// documents of one load should go through a single call.
func (w *Walker) Walk(docs ...any) *Result {
	st := w.newState()
	for _, doc := range docs {
		st.document(doc)
	}
	return w.commit(st)
}

// WalkReader decodes documents from r and walks them as one batch. r may hold
// a JSON array or a stream of concatenated documents. Nothing is appended if
// decoding fails.
func (w *Walker) WalkReader(r io.Reader) (*Result, error) {
	dec := document.NewDecoder(r)
	st := w.newState()
	for {
		doc, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document %d: %w", st.docs+1, err)
		}
		if list, ok := doc.([]any); ok {
			for _, d := range list {
				st.document(d)
			}
			continue
		}
		st.document(doc)
	}
	return w.commit(st), nil
}

func (w *Walker) newState() *state {
	st := &state{
		w:        w,
		cursors:  make(map[tree.NodeID]*cursor),
		counters: make(map[tree.NodeID]int64),
		rows:     make(map[tree.NodeID][][]any),
		errors:   make(Tally),
	}
	st.cursors[w.tree.Root()] = &cursor{}
	return st
}

func (w *Walker) commit(st *state) *Result {
	res := &Result{
		Documents: st.docs,
		Rows:      make(map[string]int, len(w.schema.Tables)),
		Errors:    st.errors,
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, table := range w.schema.Tables {
		rows := st.rows[table.Node]
		for _, row := range rows {
			for i, c := range table.Columns {
				c.Values = append(c.Values, row[i])
			}
		}
		res.Rows[table.Name] = len(rows)
	}

	w.logger.Debug("walk complete",
		"documents", st.docs,
		"tables", len(w.schema.Tables),
		"errors", st.errors.Total(),
	)
	return res
}

// cursor is the position within the array instance being iterated and the
// element at that position.
type cursor struct {
	pos  int
	elem any
}

type state struct {
	w        *Walker
	cursors  map[tree.NodeID]*cursor
	counters map[tree.NodeID]int64
	rows     map[tree.NodeID][][]any
	errors   Tally
	docs     int
}

func (s *state) document(doc any) {
	s.docs++
	s.element(s.w.tree.Root(), doc)
}

// element visits one element of array id. Counter and cursor are advanced
// before any descendant is resolved; the row is emitted after the element's
// nested arrays have been walked.
func (s *state) element(id tree.NodeID, v any) {
	t := s.w.tree

	c := s.cursors[id]
	c.pos++
	c.elem = v
	s.counters[id]++

	elem := t.Element(id)
	switch t.Kind(elem) {
	case tree.Struct:
		s.structure(elem, v)
	case tree.Array:
		s.array(elem, v)
	}
	s.emit(id)
}

func (s *state) structure(id tree.NodeID, v any) {
	if v == nil {
		return
	}
	t := s.w.tree

	m, ok := v.(map[string]any)
	if !ok {
		if _, isOID := v.(document.ObjectID); !isOID || !t.IsObjectID(id) {
			s.mismatch(v, id, docschema.Struct)
		}
		return
	}

	for _, child := range t.Node(id).Children {
		switch t.Kind(child) {
		case tree.Struct:
			s.structure(child, m[t.Name(child)])
		case tree.Array:
			s.array(child, m[t.Name(child)])
		}
	}
}

func (s *state) array(id tree.NodeID, v any) {
	if v == nil {
		return
	}
	list, ok := v.([]any)
	if !ok {
		s.mismatch(v, id, docschema.Array)
		return
	}

	s.cursors[id] = &cursor{}
	for _, e := range list {
		s.element(id, e)
	}
}

func (s *state) mismatch(v any, id tree.NodeID, declared docschema.Type) {
	alias := s.w.tree.LongAlias(id)
	s.errors.Add(diagnostic(v, alias, declared))
	s.w.logger.Debug("document shape mismatch", "node", alias, "want", declared, "got", document.TypeOf(v))
}

func (s *state) emit(array tree.NodeID) {
	table := s.w.tables[array]
	if table == nil {
		return
	}

	row := make([]any, len(table.Columns))
	for i, col := range table.Columns {
		if col.IsIndex {
			row[i] = s.counters[col.Node]
			continue
		}
		v, ok := s.value(col.Node)
		if !ok {
			continue
		}
		row[i] = s.reconcile(v, col)
	}
	s.rows[array] = append(s.rows[array], row)
}

// value resolves the live value of a node by walking from the root through
// the current element of every enclosing array. Reference nodes resolve
// through the node they borrow from.
func (s *state) value(id tree.NodeID) (any, bool) {
	t := s.w.tree
	if ref := t.Reference(id); ref != tree.NoNode {
		id = ref
	}

	chain := t.Chain(id)
	var cur any
	for i := 1; i < len(chain); i++ {
		parent := chain[i-1]
		if t.Kind(parent) == tree.Array {
			c := s.cursors[parent]
			if c == nil || c.pos == 0 {
				return nil, false
			}
			cur = c.elem
			continue
		}

		name := t.Name(chain[i])
		switch x := cur.(type) {
		case map[string]any:
			v, ok := x[name]
			if !ok {
				return nil, false
			}
			cur = v
		case document.ObjectID:
			v, ok := x.Field(name)
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

// reconcile converts v to the column's declared type. Mismatches store NULL,
// or an empty string when a composite lands on a STRING column, and are
// counted.
func (s *state) reconcile(v any, col *schema.Column) any {
	if v == nil {
		return nil
	}

	rt := document.TypeOf(v)
	switch {
	case rt == col.Type, docschema.Widens(rt, col.Type):
		return document.Convert(v, col.Type)
	case rt == docschema.ObjectID && col.Type == docschema.String:
		return v.(document.ObjectID).Hex()
	}

	s.errors.Add(diagnostic(v, s.w.tree.LongAlias(col.Node), col.Type))
	if rt.IsComposite() && col.Type == docschema.String {
		return ""
	}
	return nil
}

func diagnostic(v any, alias string, declared docschema.Type) string {
	return fmt.Sprintf("wrong value %s(%s) for %s(%s)", formatValue(v), document.TypeOf(v), alias, declared)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case document.ObjectID:
		return x.Hex()
	case map[string]any, []any:
		if b, err := json.Marshal(x); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}
