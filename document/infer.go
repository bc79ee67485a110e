package document

import (
	"sort"

	"github.com/lucasefe/docsql/docschema"
)

// InferSchema builds a schema describing every sample document. Field types
// are unified across samples: integers widen to BIGINT or DOUBLE, richer
// containers win over empty ones, and fields only ever seen as null are
// typed TINYINT. Object keys are sorted since decoded maps carry no order.
func InferSchema(docs ...any) docschema.Value {
	var (
		out  docschema.Value
		seen bool
	)
	for _, doc := range docs {
		v, ok := inferValue(doc)
		if !ok {
			continue
		}
		if !seen {
			out, seen = v, true
			continue
		}
		out = unify(out, v)
	}
	if !seen {
		return docschema.ObjectOf()
	}
	return finalize(out)
}

// inferValue returns false for values carrying no type information: null
// and empty lists.
func inferValue(v any) (docschema.Value, bool) {
	switch x := v.(type) {
	case nil:
		return docschema.Value{}, false
	case ObjectID:
		return docschema.ObjectIDValue(), true
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		obj := docschema.ObjectOf()
		obj.Fields = []docschema.Field{}
		for _, k := range keys {
			child, ok := inferValue(x[k])
			if !ok {
				child = docschema.TypeOf(docschema.TinyInt)
			}
			obj.Fields = append(obj.Fields, docschema.Field{Name: k, Value: child})
		}
		return obj, true
	case []any:
		var (
			elem docschema.Value
			seen bool
		)
		for _, item := range x {
			v, ok := inferValue(item)
			if !ok {
				continue
			}
			if !seen {
				elem, seen = v, true
				continue
			}
			elem = unify(elem, v)
		}
		if !seen {
			return docschema.Value{Kind: docschema.List, Elems: []docschema.Value{}}, true
		}
		return docschema.ListOf(elem), true
	}

	t := TypeOf(v)
	if !t.IsScalar() {
		t = docschema.String
	}
	return docschema.TypeOf(t), true
}

func unify(a, b docschema.Value) docschema.Value {
	if isUnknown(a) {
		return b
	}
	if isUnknown(b) {
		return a
	}

	switch {
	case a.Kind == docschema.Object && b.Kind == docschema.Object:
		if a.IsObjectID() || b.IsObjectID() {
			return docschema.ObjectIDValue()
		}
		out := docschema.ObjectOf()
		out.Fields = []docschema.Field{}
		for _, f := range a.Fields {
			if bv, ok := b.Field(f.Name); ok {
				out.Fields = append(out.Fields, docschema.Field{Name: f.Name, Value: unify(f.Value, bv)})
			} else {
				out.Fields = append(out.Fields, f)
			}
		}
		for _, f := range b.Fields {
			if _, ok := a.Field(f.Name); !ok {
				out.Fields = append(out.Fields, f)
			}
		}
		return out
	case a.Kind == docschema.List && b.Kind == docschema.List:
		ae, aok := a.Elem()
		be, bok := b.Elem()
		switch {
		case aok && bok:
			return docschema.ListOf(unify(ae, be))
		case aok:
			return a
		}
		return b
	case a.Kind == docschema.Scalar && b.Kind == docschema.Scalar:
		if a.Type == b.Type {
			return a
		}
		if docschema.Widens(a.Type, b.Type) {
			return b
		}
		if docschema.Widens(b.Type, a.Type) {
			return a
		}
		return b
	case a.Kind != docschema.Scalar && b.Kind == docschema.Scalar:
		return a
	}
	return b
}

// isUnknown reports whether v says nothing about the field's type.
func isUnknown(v docschema.Value) bool {
	switch v.Kind {
	case docschema.Scalar:
		return v.Type == docschema.TinyInt
	case docschema.List:
		return len(v.Elems) == 0
	}
	return false
}

// finalize types lists that never held an element as TINYINT.
func finalize(v docschema.Value) docschema.Value {
	switch v.Kind {
	case docschema.Object:
		for i := range v.Fields {
			v.Fields[i].Value = finalize(v.Fields[i].Value)
		}
	case docschema.List:
		if len(v.Elems) == 0 {
			return docschema.TypeOf(docschema.TinyInt)
		}
		v.Elems = []docschema.Value{finalize(v.Elems[0])}
	}
	return v
}
