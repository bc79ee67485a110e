package docschema

import (
	"fmt"
	"regexp"
	"strings"
)

// Branches lists the dotted paths of every leaf in v, in schema order.
// Array elements are transparent: a field inside a list of objects is
// addressed as "list.field". Empty objects and lists are listed as leaves.
func Branches(v Value) []string {
	var branches []string
	collectBranches(v, "", &branches)
	return branches
}

func collectBranches(v Value, prefix string, out *[]string) {
	switch v.Kind {
	case Object:
		for _, f := range v.Fields {
			path := joinPath(prefix, f.Name)
			before := len(*out)
			collectBranches(f.Value, path, out)
			if len(*out) == before && f.Value.Kind != Scalar {
				*out = append(*out, path)
			}
		}
	case List:
		if elem, ok := v.Elem(); ok {
			collectBranches(elem, prefix, out)
		}
	default:
		if prefix != "" {
			*out = append(*out, prefix)
		}
	}
}

// Exclude returns a copy of v without the given branches. Branches that
// cannot be located are reported in the returned warnings and otherwise
// ignored; v itself is never modified.
func Exclude(v Value, branches ...string) (Value, []string) {
	out := v.Clone()
	var warnings []string
	for _, branch := range branches {
		parts := splitBranch(branch)
		if len(parts) == 0 {
			continue
		}
		if !removeBranch(&out, parts) {
			warnings = append(warnings, fmt.Sprintf("can't exclude %s: %v", branch, ErrBranchNotFound))
		}
	}
	return out, warnings
}

func removeBranch(v *Value, parts []string) bool {
	switch v.Kind {
	case List:
		if len(v.Elems) == 0 {
			return false
		}
		return removeBranch(&v.Elems[0], parts)
	case Object:
		for i := range v.Fields {
			if v.Fields[i].Name != parts[0] {
				continue
			}
			if len(parts) == 1 {
				v.Fields = append(v.Fields[:i], v.Fields[i+1:]...)
				return true
			}
			return removeBranch(&v.Fields[i].Value, parts[1:])
		}
	}
	return false
}

// Patch returns a copy of v with the node at branch replaced by a scalar of
// type t.
func Patch(v Value, branch string, t Type) (Value, error) {
	if !t.IsScalar() {
		return Value{}, fmt.Errorf("patch %s: %w %q", branch, ErrUnknownType, t)
	}
	parts := splitBranch(branch)
	if len(parts) == 0 {
		return Value{}, fmt.Errorf("patch: empty branch")
	}
	out := v.Clone()
	if !setBranch(&out, parts, TypeOf(t)) {
		return Value{}, fmt.Errorf("patch %s: %w", branch, ErrBranchNotFound)
	}
	return out, nil
}

func setBranch(v *Value, parts []string, leaf Value) bool {
	switch v.Kind {
	case List:
		if len(v.Elems) == 0 {
			return false
		}
		return setBranch(&v.Elems[0], parts, leaf)
	case Object:
		for i := range v.Fields {
			if v.Fields[i].Name != parts[0] {
				continue
			}
			if len(parts) == 1 {
				// A list of scalars keeps its shape; only the element changes.
				if elem, ok := v.Fields[i].Value.Elem(); ok && elem.Kind == Scalar {
					v.Fields[i].Value.Elems[0] = leaf
					return true
				}
				v.Fields[i].Value = leaf
				return true
			}
			return setBranch(&v.Fields[i].Value, parts[1:], leaf)
		}
	}
	return false
}

// Merge returns a copy of primary where every scalar leaf that secondary
// declares with a different, known type takes the secondary type. TINYINT
// in secondary never overrides, since it only says no value was seen.
func Merge(primary, secondary Value) Value {
	out := primary.Clone()
	mergeInto(&out, secondary)
	return out
}

func mergeInto(p *Value, s Value) {
	switch {
	case p.Kind == Scalar && s.Kind == Scalar:
		if s.Type != p.Type && s.Type != TinyInt {
			p.Type = s.Type
		}
	case p.Kind == Object && s.Kind == Object:
		for i := range p.Fields {
			if sv, ok := s.Field(p.Fields[i].Name); ok {
				mergeInto(&p.Fields[i].Value, sv)
			}
		}
	case p.Kind == List && s.Kind == List:
		if len(p.Elems) > 0 && len(s.Elems) > 0 {
			mergeInto(&p.Elems[0], s.Elems[0])
		}
	}
}

// PatchLine is one type correction parsed from a diagnostic line.
type PatchLine struct {
	// Alias is the long alias of the offending column.
	Alias string
	// Found is the runtime type that was seen.
	Found Type
	// Declared is the type the schema declared.
	Declared Type
}

var patchLineRE = regexp.MustCompile(`wrong value .*\((\w+)\) for ([^\s()]+)\((\w+)\)`)

// ParsePatchLine extracts a PatchLine from a diagnostic of the form
// "wrong value <value>(<TYPE>) for <alias>(<TYPE>)". Surrounding quotes and
// occurrence counts are ignored.
func ParsePatchLine(line string) (PatchLine, bool) {
	m := patchLineRE.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return PatchLine{}, false
	}
	return PatchLine{
		Alias:    m[2],
		Found:    Type(m[1]),
		Declared: Type(m[3]),
	}, true
}
