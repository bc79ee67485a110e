package tree

import "strings"

// ExternalName returns the declared name without one leading underscore.
// Array elements have no name of their own and borrow their array's.
func (t *Tree) ExternalName(id NodeID) string {
	n := t.nodes[id]
	if n.Name == "" {
		if n.Parent != NoNode && t.nodes[n.Parent].Kind == Array {
			return t.ExternalName(n.Parent)
		}
		return ""
	}
	return strings.TrimPrefix(n.Name, "_")
}

// ShortAlias joins the external names of the node and its ancestors up to
// the nearest enclosing array. It is unique among the columns of one table.
// A reference node answers with the long alias of the node it references.
func (t *Tree) ShortAlias(id NodeID) string {
	if ref := t.nodes[id].Reference; ref != NoNode {
		return t.LongAlias(ref)
	}

	parts := []string{}
	if name := t.ExternalName(id); name != "" {
		parts = append(parts, name)
	}
	for cur := t.nodes[id].Parent; cur != NoNode; cur = t.nodes[cur].Parent {
		n := t.nodes[cur]
		if n.Kind == Array {
			break
		}
		if n.Name != "" {
			parts = append(parts, strings.TrimPrefix(n.Name, "_"))
		}
	}
	return joinReversed(parts)
}

// LongAlias joins the external names of every named node from the root down
// to id. It is unique across the whole tree.
func (t *Tree) LongAlias(id NodeID) string {
	if ref := t.nodes[id].Reference; ref != NoNode {
		return t.LongAlias(ref)
	}

	var parts []string
	for _, c := range t.Chain(id) {
		if name := t.nodes[c].Name; name != "" {
			parts = append(parts, strings.TrimPrefix(name, "_"))
		}
	}
	return strings.Join(parts, "_")
}

// LongPluralAlias is LongAlias with every enclosing array contributing its
// singular form, so nested tables read naturally: quotes -> comments ->
// items becomes quote_comment_items.
func (t *Tree) LongPluralAlias(id NodeID) string {
	if ref := t.nodes[id].Reference; ref != NoNode {
		return t.LongPluralAlias(ref)
	}

	var parts []string
	for _, c := range t.Chain(id) {
		n := t.nodes[c]
		if n.Name == "" {
			continue
		}
		name := strings.TrimPrefix(n.Name, "_")
		if n.Kind == Array && c != id {
			name = Singular(name)
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, "_")
}

// Singular strips one trailing "s" or "S".
func Singular(name string) string {
	if len(name) > 1 && (strings.HasSuffix(name, "s") || strings.HasSuffix(name, "S")) {
		return name[:len(name)-1]
	}
	return name
}

// FindByLongAlias returns the declared node whose long alias is alias.
// Synthetic reference nodes are skipped.
func (t *Tree) FindByLongAlias(alias string) (NodeID, bool) {
	for i := range t.nodes {
		id := NodeID(i)
		if t.nodes[id].Reference != NoNode || t.nodes[id].Name == "" {
			continue
		}
		if t.LongAlias(id) == alias {
			return id, true
		}
	}
	return NoNode, false
}

func joinReversed(parts []string) string {
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "_")
}
