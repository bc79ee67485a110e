// Package tree holds the structural model of a document schema.
//
// A Tree is an arena of nodes addressed by NodeID. Parent and reference
// links are indices into the arena, so the tree is never cyclic in memory
// and can be shared read-only once built.
//
// Basic usage:
//
//	v, err := docschema.Parse(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	t, err := tree.Build("quotes", v)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	t.SynthesizeReferences()
package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lucasefe/docsql/docschema"
)

var (
	// ErrEmptyArray is returned for an array schema without an element type.
	ErrEmptyArray = errors.New("array element type is required")
	// ErrEmptyName is returned for a missing root name or an empty field name.
	ErrEmptyName = errors.New("empty name")
	// ErrNotFound is returned when a path does not name a node.
	ErrNotFound = errors.New("node not found")
	// ErrNestedArray is returned for an array whose element is an array.
	// Such an element has no name to derive a table from.
	ErrNestedArray = errors.New("array element must not be an array")
)

// SchemaError reports a structural problem at a schema path.
type SchemaError struct {
	Path string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s: %v", e.Path, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// NodeID addresses a node in a Tree.
type NodeID int

// NoNode marks an absent parent or reference.
const NoNode NodeID = -1

// Kind is the shape of a node.
type Kind int

const (
	Struct Kind = iota
	Array
	Scalar
)

func (k Kind) String() string {
	switch k {
	case Struct:
		return "STRUCT"
	case Array:
		return "ARRAY"
	default:
		return "SCALAR"
	}
}

// Node is one element of the schema tree.
type Node struct {
	Kind Kind
	// Type is the scalar tag, set only for Scalar nodes.
	Type docschema.Type
	// Name is the declared field name; empty for array elements.
	Name string
	// Parent is NoNode for the root.
	Parent NodeID
	// Reference is set on synthetic foreign key nodes and names the id node
	// whose identity they borrow.
	Reference NodeID
	Children  []NodeID
}

// Tree is an arena of schema nodes. The root is always an Array node named
// after the collection, whose element is the document schema.
type Tree struct {
	nodes  []Node
	frozen bool
}

// Build converts a raw schema into a Tree rooted at an implicit array named
// name. It fails on the first structural error.
func Build(name string, v docschema.Value) (*Tree, error) {
	if name == "" {
		return nil, &SchemaError{Path: "<root>", Err: ErrEmptyName}
	}

	t := &Tree{}
	root := t.add(Node{Kind: Array, Name: name, Parent: NoNode, Reference: NoNode})
	if _, err := t.load(root, "", v, name); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) add(n Node) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, n)
	if n.Parent != NoNode {
		t.nodes[n.Parent].Children = append(t.nodes[n.Parent].Children, id)
	}
	return id
}

func (t *Tree) load(parent NodeID, name string, v docschema.Value, path string) (NodeID, error) {
	switch v.Kind {
	case docschema.Object:
		id := t.add(Node{Kind: Struct, Name: name, Parent: parent, Reference: NoNode})
		for _, f := range v.Fields {
			if f.Name == "" {
				return NoNode, &SchemaError{Path: path, Err: ErrEmptyName}
			}
			if _, err := t.load(id, f.Name, f.Value, path+"."+f.Name); err != nil {
				return NoNode, err
			}
		}
		return id, nil
	case docschema.List:
		elem, ok := v.Elem()
		if !ok {
			return NoNode, &SchemaError{Path: path, Err: ErrEmptyArray}
		}
		if t.nodes[parent].Kind == Array {
			return NoNode, &SchemaError{Path: path, Err: ErrNestedArray}
		}
		id := t.add(Node{Kind: Array, Name: name, Parent: parent, Reference: NoNode})
		if _, err := t.load(id, "", elem, path); err != nil {
			return NoNode, err
		}
		return id, nil
	case docschema.Scalar:
		if !v.Type.IsScalar() {
			return NoNode, &SchemaError{Path: path, Err: fmt.Errorf("%w %q", docschema.ErrUnknownType, v.Type)}
		}
		return t.add(Node{Kind: Scalar, Type: v.Type, Name: name, Parent: parent, Reference: NoNode}), nil
	}
	return NoNode, &SchemaError{Path: path, Err: docschema.ErrUnknownShape}
}

// Root returns the implicit root array.
func (t *Tree) Root() NodeID {
	return 0
}

// Len returns the number of nodes, synthetic ones included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns a copy of the node with the given id.
func (t *Tree) Node(id NodeID) Node {
	n := t.nodes[id]
	n.Children = append([]NodeID(nil), n.Children...)
	return n
}

// Kind returns the kind of a node.
func (t *Tree) Kind(id NodeID) Kind {
	return t.nodes[id].Kind
}

// Name returns the declared name of a node.
func (t *Tree) Name(id NodeID) string {
	return t.nodes[id].Name
}

// Reference returns the node a synthetic node borrows from, or NoNode.
func (t *Tree) Reference(id NodeID) NodeID {
	return t.nodes[id].Reference
}

// Parent returns the parent of a node, or NoNode for the root.
func (t *Tree) Parent(id NodeID) NodeID {
	return t.nodes[id].Parent
}

// Element returns the element node of an array, or NoNode.
func (t *Tree) Element(id NodeID) NodeID {
	n := t.nodes[id]
	if n.Kind != Array || len(n.Children) == 0 {
		return NoNode
	}
	return n.Children[0]
}

// Frozen reports whether the reference pass has run.
func (t *Tree) Frozen() bool {
	return t.frozen
}

// Chain returns the ids from the root down to and including id.
func (t *Tree) Chain(id NodeID) []NodeID {
	var chain []NodeID
	for cur := id; cur != NoNode; cur = t.nodes[cur].Parent {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Path returns the dotted declared-name path of a node, starting with the
// root name.
func (t *Tree) Path(id NodeID) string {
	var parts []string
	for _, c := range t.Chain(id) {
		if name := t.nodes[c].Name; name != "" {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ".")
}

// Branch returns the dotted path of a node relative to the document, as used
// by docschema.Exclude and docschema.Patch.
func (t *Tree) Branch(id NodeID) string {
	path := t.Path(id)
	root := t.nodes[t.Root()].Name
	if path == root {
		return ""
	}
	return strings.TrimPrefix(path, root+".")
}

// Locate finds a node by declared names below the root, stepping through
// array elements transparently. An empty path returns the root.
func (t *Tree) Locate(names ...string) (NodeID, error) {
	cur := t.Root()
	for i, name := range names {
		for t.nodes[cur].Kind == Array {
			cur = t.Element(cur)
		}
		next := NoNode
		for _, c := range t.nodes[cur].Children {
			if t.nodes[c].Name == name && t.nodes[c].Reference == NoNode {
				next = c
				break
			}
		}
		if next == NoNode {
			path := t.nodes[t.Root()].Name + "." + strings.Join(names[:i+1], ".")
			return NoNode, &SchemaError{Path: path, Err: ErrNotFound}
		}
		cur = next
	}
	return cur, nil
}

// Arrays returns every array node in pre-order, the root first.
func (t *Tree) Arrays() []NodeID {
	var out []NodeID
	t.walk(t.Root(), func(id NodeID) {
		if t.nodes[id].Kind == Array {
			out = append(out, id)
		}
	}, nil)
	return out
}

// ArrayNodes returns every array node deepest-first: nested arrays precede
// the arrays that contain them.
func (t *Tree) ArrayNodes() []NodeID {
	var out []NodeID
	t.walk(t.Root(), nil, func(id NodeID) {
		if t.nodes[id].Kind == Array {
			out = append(out, id)
		}
	})
	return out
}

func (t *Tree) walk(id NodeID, pre, post func(NodeID)) {
	if pre != nil {
		pre(id)
	}
	for _, c := range t.nodes[id].Children {
		t.walk(c, pre, post)
	}
	if post != nil {
		post(id)
	}
}

// String renders the tree one node per line, indented by depth.
func (t *Tree) String() string {
	var b strings.Builder
	t.walk(t.Root(), func(id NodeID) {
		n := t.nodes[id]
		depth := len(t.Chain(id)) - 1
		b.WriteString(strings.Repeat("----", depth))
		name := n.Name
		if name == "" {
			name = "[]"
		}
		value := n.Kind.String()
		if n.Kind == Scalar {
			value = string(n.Type)
		}
		fmt.Fprintf(&b, "%s : %s", name, value)
		if n.Reference != NoNode {
			fmt.Fprintf(&b, " -> %s", t.Path(n.Reference))
		}
		b.WriteString("\n")
	}, nil)
	return b.String()
}
