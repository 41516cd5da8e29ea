// Package payload provides total, path-based lookup over decoded webhook bodies.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// Payload is a decoded JSON webhook body. Any key may be absent at any depth.
type Payload map[string]interface{}

// Decode parses a JSON object into a Payload. Numbers are kept as json.Number.
func Decode(data []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	if p == nil {
		p = Payload{}
	}
	return p, nil
}

// Value is the result of a lookup: either a concrete value or absent.
// Present values may be empty strings, zero or false.
type Value struct {
	raw     interface{}
	present bool
}

// Absent is the zero Value
var Absent = Value{}

// Of wraps v as a present Value, or Absent when v is nil
func Of(v interface{}) Value {
	if v == nil {
		return Absent
	}
	return Value{raw: v, present: true}
}

// Lookup resolves a dotted path such as "pullrequest.author.display_name".
// Segments may carry bracket indices ("push.changes[0].new.name"). Lookup
// never fails: a missing key, a null, or a path running through a non-object
// yields Absent.
func Lookup(p map[string]interface{}, path string) Value {
	if p == nil || path == "" {
		return Absent
	}
	v, err := jsonpath.Get(toJSONPath(path), map[string]interface{}(p))
	if err != nil {
		return Absent
	}
	return Of(v)
}

// Lookup resolves path relative to p
func (p Payload) Lookup(path string) Value {
	return Lookup(p, path)
}

func toJSONPath(path string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, seg := range strings.Split(path, ".") {
		name, index, hasIndex := strings.Cut(seg, "[")
		if name != "" {
			b.WriteString("[")
			b.WriteString(strconv.Quote(name))
			b.WriteString("]")
		}
		if hasIndex {
			b.WriteString("[")
			b.WriteString(index)
		}
	}
	return b.String()
}

// Present reports whether the lookup resolved to a value
func (v Value) Present() bool {
	return v.present
}

// Raw returns the underlying value, nil when absent
func (v Value) Raw() interface{} {
	return v.raw
}

// String renders the value as text. Absent renders as "".
func (v Value) String() string {
	if !v.present {
		return ""
	}
	switch t := v.raw.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Bool returns the boolean value, false when absent or not a bool
func (v Value) Bool() bool {
	b, _ := v.raw.(bool)
	return b
}

// NonEmpty reports whether the value is present and renders as non-blank text
func (v Value) NonEmpty() bool {
	return v.present && strings.TrimSpace(v.String()) != ""
}

// List returns the elements of an array value, nil otherwise
func (v Value) List() []interface{} {
	l, _ := v.raw.([]interface{})
	return l
}

// Object returns the value as a nested payload, nil when it is not an object
func (v Value) Object() Payload {
	switch t := v.raw.(type) {
	case map[string]interface{}:
		return Payload(t)
	case Payload:
		return t
	}
	return nil
}

// Objects returns the object elements of an array value, skipping non-objects
func (v Value) Objects() []Payload {
	list := v.List()
	out := make([]Payload, 0, len(list))
	for _, item := range list {
		if obj := Of(item).Object(); obj != nil {
			out = append(out, obj)
		}
	}
	return out
}
