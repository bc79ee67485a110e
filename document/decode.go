// Package document decodes document instances and classifies their runtime
// values against schema type tags.
//
// Documents are plain Go values: map[string]any for objects, []any for
// lists, and string, bool, int64, float64, time.Time or ObjectID for
// scalars. MongoDB extended JSON wrappers ($oid, $date, $numberLong,
// $numberInt, $numberDouble) are unwrapped while decoding.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Decode decodes a single JSON document.
func Decode(data []byte) (any, error) {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return Normalize(raw)
}

// DecodeAll decodes either a JSON array of documents or a stream of
// concatenated (for example newline-delimited) documents.
func DecodeAll(data []byte) ([]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		doc, err := Decode(trimmed)
		if err != nil {
			return nil, err
		}
		docs, ok := doc.([]any)
		if !ok {
			return nil, fmt.Errorf("decode documents: expected a list")
		}
		return docs, nil
	}

	var docs []any
	dec := NewDecoder(bytes.NewReader(trimmed))
	for {
		doc, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode document %d: %w", len(docs)+1, err)
		}
		docs = append(docs, doc)
	}
}

// Decoder reads a stream of JSON documents.
type Decoder struct {
	dec *json.Decoder
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &Decoder{dec: dec}
}

// Next returns the next document, or io.EOF when the stream is exhausted.
func (d *Decoder) Next() (any, error) {
	var raw any
	if err := d.dec.Decode(&raw); err != nil {
		return nil, err
	}
	return Normalize(raw)
}

// Normalize converts a value produced by a JSON decoder into document form:
// json.Number becomes int64 or float64 and extended JSON wrappers are
// unwrapped. Malformed wrappers such as {"$oid": "zz"} are kept as objects
// so a single bad value does not fail the document. Values already in
// document form pass through unchanged.
func Normalize(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		return normalizeNumber(string(x))
	case map[string]any:
		if len(x) == 1 {
			if out, ok := unwrapExtended(x); ok {
				return out, nil
			}
		}
		out := make(map[string]any, len(x))
		for k, item := range x {
			n, err := Normalize(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			n, err := Normalize(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	}
	return v, nil
}

func normalizeNumber(s string) (any, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return f, nil
}

// unwrapExtended converts a single-key extended JSON wrapper. A wrapper
// whose payload does not parse is not converted and stays a plain object.
func unwrapExtended(m map[string]any) (any, bool) {
	for key, raw := range m {
		switch key {
		case "$oid":
			s, ok := raw.(string)
			if !ok {
				return nil, false
			}
			id, err := ObjectIDFromHex(s)
			if err != nil {
				return nil, false
			}
			return id, true
		case "$date":
			t, err := parseDate(raw)
			if err != nil {
				return nil, false
			}
			return t, true
		case "$numberLong", "$numberInt":
			s, ok := raw.(string)
			if !ok {
				return nil, false
			}
			i, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, false
			}
			return i, true
		case "$numberDouble":
			s, ok := raw.(string)
			if !ok {
				return nil, false
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, false
			}
			return f, true
		}
	}
	return nil, false
}

func parseDate(raw any) (time.Time, error) {
	switch x := raw.(type) {
	case string:
		t, err := time.Parse(time.RFC3339Nano, x)
		if err != nil {
			return time.Time{}, fmt.Errorf("$date: %w", err)
		}
		return t.UTC(), nil
	case json.Number:
		ms, err := x.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("$date: %w", err)
		}
		return time.UnixMilli(ms).UTC(), nil
	case map[string]any:
		n, ok := unwrapExtended(x)
		if !ok {
			return time.Time{}, fmt.Errorf("$date: unsupported value")
		}
		ms, isInt := n.(int64)
		if !isInt {
			return time.Time{}, fmt.Errorf("$date: unsupported value")
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("$date: unsupported value %v", raw)
}
