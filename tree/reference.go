package tree

import "github.com/lucasefe/docsql/docschema"

// SynthesizeReferences gives every array a visible foreign key column for
// each enclosing array that has an identifier. For an array A and every
// ancestor array AA with an id node, a scalar child borrowing that id node
// is appended to A's element struct; its name is the id node's long alias.
//
// Arrays are processed deepest-first. The pass runs once: afterwards the
// tree is frozen and further calls add nothing. It returns the number of
// nodes added.
func (t *Tree) SynthesizeReferences() int {
	if t.frozen {
		return 0
	}

	added := 0
	for _, a := range t.ArrayNodes() {
		elem := t.Element(a)
		if elem == NoNode || t.nodes[elem].Kind != Struct {
			continue
		}
		for _, ancestor := range t.Chain(a) {
			if ancestor == a || t.nodes[ancestor].Kind != Array {
				continue
			}
			idNode, ok := t.IDNode(ancestor)
			if !ok {
				continue
			}
			t.add(Node{
				Kind:      Scalar,
				Type:      t.nodes[idNode].Type,
				Name:      t.LongAlias(idNode),
				Parent:    elem,
				Reference: idNode,
			})
			added++
		}
	}
	t.frozen = true
	return added
}

// IDNode returns the identifier of an array's elements: the "_id" or "id"
// field of the element struct, or its "oid" leaf when the identifier is an
// object id composite. Only scalar identifiers qualify.
func (t *Tree) IDNode(array NodeID) (NodeID, bool) {
	elem := t.Element(array)
	if elem == NoNode || t.nodes[elem].Kind != Struct {
		return NoNode, false
	}

	for _, c := range t.nodes[elem].Children {
		n := t.nodes[c]
		if n.Reference != NoNode || (n.Name != "_id" && n.Name != "id") {
			continue
		}
		switch n.Kind {
		case Scalar:
			return c, true
		case Struct:
			if oid, ok := t.objectIDLeaf(c); ok {
				return oid, true
			}
		}
	}
	return NoNode, false
}

// objectIDLeaf returns the oid leaf of a {oid: STRING, bsontype: INT}
// composite.
func (t *Tree) objectIDLeaf(id NodeID) (NodeID, bool) {
	children := t.nodes[id].Children
	if len(children) != 2 {
		return NoNode, false
	}

	oid, tag := NoNode, NoNode
	for _, c := range children {
		n := t.nodes[c]
		if n.Kind != Scalar {
			return NoNode, false
		}
		switch n.Name {
		case "oid":
			oid = c
		case "bsontype":
			tag = c
		}
	}
	if oid == NoNode || tag == NoNode || t.nodes[oid].Type != docschema.String || !t.nodes[tag].Type.IsNumeric() {
		return NoNode, false
	}
	return oid, true
}

// IsObjectID reports whether a struct node is the object id composite.
func (t *Tree) IsObjectID(id NodeID) bool {
	if t.nodes[id].Kind != Struct {
		return false
	}
	_, ok := t.objectIDLeaf(id)
	return ok
}
