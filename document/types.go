package document

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/goccy/go-json"

	"github.com/lucasefe/docsql/docschema"
)

// TypeOf classifies a runtime value. Integers that fit in 32 bits are INT,
// wider ones BIGINT. Floating point values without a fractional part are
// classified as integers, matching how schemas are inferred.
func TypeOf(v any) docschema.Type {
	switch x := v.(type) {
	case nil:
		return docschema.Null
	case string:
		return docschema.String
	case bool:
		return docschema.Boolean
	case int:
		return intType(int64(x))
	case int8, int16, int32, uint8, uint16:
		return docschema.Int
	case int64:
		return intType(x)
	case uint32:
		return intType(int64(x))
	case uint:
		if uint64(x) > math.MaxInt64 {
			return docschema.Double
		}
		return intType(int64(x))
	case uint64:
		if x > math.MaxInt64 {
			return docschema.Double
		}
		return intType(int64(x))
	case float32:
		return floatType(float64(x))
	case float64:
		return floatType(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return intType(i)
		}
		return docschema.Double
	case time.Time:
		return docschema.Timestamp
	case ObjectID:
		return docschema.ObjectID
	case map[string]any:
		return docschema.Struct
	case []any:
		return docschema.Array
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Struct:
		return docschema.Struct
	case reflect.Slice, reflect.Array:
		return docschema.Array
	}
	return docschema.Type(fmt.Sprintf("%T", v))
}

func intType(i int64) docschema.Type {
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return docschema.Int
	}
	return docschema.BigInt
}

func floatType(f float64) docschema.Type {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return docschema.Double
	}
	if f >= math.MinInt64 && f < math.MaxInt64 {
		return intType(int64(f))
	}
	return docschema.Double
}

// Convert returns v in the canonical Go representation of type t: int64 for
// INT, BIGINT and TINYINT, float64 for DOUBLE, and the value itself for
// STRING, BOOLEAN and TIMESTAMP. The caller must have checked that TypeOf(v)
// is t or widens to t.
func Convert(v any, t docschema.Type) any {
	switch t {
	case docschema.Double:
		if f, ok := toFloat(v); ok {
			return f
		}
	case docschema.Int, docschema.BigInt, docschema.TinyInt:
		if i, ok := toInt(v); ok {
			return i
		}
	}
	return v
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint:
		return int64(x), true
	case uint64:
		return int64(x), true
	case float32:
		return int64(x), true
	case float64:
		return int64(x), true
	case json.Number:
		i, err := x.Int64()
		if err == nil {
			return i, true
		}
		f, err := x.Float64()
		return int64(f), err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	if i, ok := toInt(v); ok {
		return float64(i), true
	}
	return 0, false
}
