// Package docschema defines raw document schema values as they appear in a
// schema file: objects mapping field names to schemas, one-element lists
// describing array elements, and scalar type tags.
//
// Field order is preserved so that derived tables list their columns in the
// order the schema declares them.
package docschema

import (
	"errors"
	"strings"
)

var (
	// ErrUnknownType is returned for a scalar tag outside the known set.
	ErrUnknownType = errors.New("unknown scalar type")
	// ErrUnknownShape is returned for a schema value that is neither an
	// object, a list nor a type tag.
	ErrUnknownShape = errors.New("unknown schema shape")
	// ErrBranchNotFound is returned when a dotted branch does not exist.
	ErrBranchNotFound = errors.New("branch not found")
)

// Type is a scalar type tag. The composite tags (STRUCT, ARRAY, OBJECTID,
// NULL) never appear in a schema; they classify runtime values.
type Type string

const (
	String    Type = "STRING"
	Int       Type = "INT"
	Double    Type = "DOUBLE"
	Boolean   Type = "BOOLEAN"
	Timestamp Type = "TIMESTAMP"
	BigInt    Type = "BIGINT"
	// TinyInt marks a field for which only null values were seen.
	TinyInt Type = "TINYINT"

	Struct   Type = "STRUCT"
	Array    Type = "ARRAY"
	ObjectID Type = "OBJECTID"
	Null     Type = "NULL"
)

var scalarTypes = map[Type]bool{
	String:    true,
	Int:       true,
	Double:    true,
	Boolean:   true,
	Timestamp: true,
	BigInt:    true,
	TinyInt:   true,
}

// ParseType converts a schema tag to a Type. Matching is case-insensitive.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if !scalarTypes[t] {
		return "", false
	}
	return t, true
}

// IsScalar reports whether t may appear as a schema leaf.
func (t Type) IsScalar() bool {
	return scalarTypes[t]
}

// IsComposite reports whether t classifies an object, list or object id.
func (t Type) IsComposite() bool {
	return t == Struct || t == Array || t == ObjectID
}

var numericRank = map[Type]int{
	TinyInt: 1,
	Int:     2,
	BigInt:  3,
	Double:  4,
}

// IsNumeric reports whether t is one of the numeric tags.
func (t Type) IsNumeric() bool {
	return numericRank[t] > 0
}

// Widens reports whether a value of type from can be stored in a column of
// type to without loss: an integer into a wider integer or a floating point
// column.
func Widens(from, to Type) bool {
	return from.IsNumeric() && to.IsNumeric() && numericRank[from] < numericRank[to]
}

// Kind is the shape of a schema value.
type Kind int

const (
	Scalar Kind = iota
	Object
	List
)

func (k Kind) String() string {
	switch k {
	case Object:
		return "object"
	case List:
		return "list"
	default:
		return "scalar"
	}
}

// Field is one named entry of an object schema.
type Field struct {
	Name  string
	Value Value
}

// Value is a raw schema value.
type Value struct {
	Kind Kind
	// Type is set for scalars.
	Type Type
	// Fields is set for objects, in declaration order.
	Fields []Field
	// Elems is set for lists. Only the first element is meaningful.
	Elems []Value
}

// TypeOf returns a scalar schema value.
func TypeOf(t Type) Value {
	return Value{Kind: Scalar, Type: t}
}

// ObjectOf returns an object schema value with the given fields.
func ObjectOf(fields ...Field) Value {
	return Value{Kind: Object, Fields: fields}
}

// ListOf returns a list schema value with elem as its element.
func ListOf(elem Value) Value {
	return Value{Kind: List, Elems: []Value{elem}}
}

// ObjectIDValue returns the object identifier composite {oid, bsontype}.
func ObjectIDValue() Value {
	return ObjectOf(
		Field{Name: "oid", Value: TypeOf(String)},
		Field{Name: "bsontype", Value: TypeOf(Int)},
	)
}

// IsObjectID reports whether v is the object identifier composite.
func (v Value) IsObjectID() bool {
	if v.Kind != Object || len(v.Fields) != 2 {
		return false
	}
	oid, ok := v.Field("oid")
	if !ok || oid.Kind != Scalar || oid.Type != String {
		return false
	}
	tag, ok := v.Field("bsontype")
	return ok && tag.Kind == Scalar && tag.Type.IsNumeric()
}

// Field returns the named field of an object value.
func (v Value) Field(name string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Elem returns the element schema of a list value.
func (v Value) Elem() (Value, bool) {
	if v.Kind != List || len(v.Elems) == 0 {
		return Value{}, false
	}
	return v.Elems[0], true
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	out := Value{Kind: v.Kind, Type: v.Type}
	if v.Fields != nil {
		out.Fields = make([]Field, len(v.Fields))
		for i, f := range v.Fields {
			out.Fields[i] = Field{Name: f.Name, Value: f.Value.Clone()}
		}
	}
	if v.Elems != nil {
		out.Elems = make([]Value, len(v.Elems))
		for i, e := range v.Elems {
			out.Elems[i] = e.Clone()
		}
	}
	return out
}

// Equal reports whether two schema values are structurally identical,
// including field order.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Type != o.Type || len(v.Fields) != len(o.Fields) || len(v.Elems) != len(o.Elems) {
		return false
	}
	for i := range v.Fields {
		if v.Fields[i].Name != o.Fields[i].Name || !v.Fields[i].Value.Equal(o.Fields[i].Value) {
			return false
		}
	}
	for i := range v.Elems {
		if !v.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}
