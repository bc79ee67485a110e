package docschema

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
)

// Parse decodes a JSON schema document. Object keys keep their order.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec, "")
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return Value{}, fmt.Errorf("parse schema: unexpected data after top-level value")
		}
		return Value{}, fmt.Errorf("parse schema: %w", err)
	}
	return v, nil
}

// ParseReader reads a whole JSON schema document from r.
func ParseReader(r io.Reader) (Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Value{}, fmt.Errorf("read schema: %w", err)
	}
	return Parse(data)
}

func parseValue(dec *json.Decoder, path string) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, fmt.Errorf("parse schema at %s: %w", displayPath(path), err)
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			v := Value{Kind: Object, Fields: []Field{}}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, fmt.Errorf("parse schema at %s: %w", displayPath(path), err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("parse schema at %s: %w: non-string key", displayPath(path), ErrUnknownShape)
				}
				child, err := parseValue(dec, joinPath(path, key))
				if err != nil {
					return Value{}, err
				}
				v.Fields = append(v.Fields, Field{Name: key, Value: child})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("parse schema at %s: %w", displayPath(path), err)
			}
			return v, nil
		case '[':
			v := Value{Kind: List, Elems: []Value{}}
			for dec.More() {
				elem, err := parseValue(dec, path)
				if err != nil {
					return Value{}, err
				}
				v.Elems = append(v.Elems, elem)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("parse schema at %s: %w", displayPath(path), err)
			}
			return v, nil
		}
	case string:
		typ, ok := ParseType(t)
		if !ok {
			return Value{}, fmt.Errorf("parse schema at %s: %w %q", displayPath(path), ErrUnknownType, t)
		}
		return TypeOf(typ), nil
	}
	return Value{}, fmt.Errorf("parse schema at %s: %w: %v", displayPath(path), ErrUnknownShape, tok)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalJSON implements json.Marshaler, keeping field order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes v to w as indented JSON followed by a newline.
func Encode(w io.Writer, v Value) error {
	compact, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "    "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err = w.Write(out.Bytes())
	return err
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.Kind {
	case Object:
		buf.WriteByte('{')
		for i, f := range v.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Name)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case List:
		buf.WriteByte('[')
		for i, e := range v.Elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		if !v.Type.IsScalar() {
			return fmt.Errorf("encode schema: %w %q", ErrUnknownType, v.Type)
		}
		buf.WriteString(`"` + string(v.Type) + `"`)
	}
	return nil
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func displayPath(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}

func splitBranch(branch string) []string {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		return nil
	}
	return strings.Split(branch, ".")
}
