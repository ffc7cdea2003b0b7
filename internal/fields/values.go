// internal/fields/values.go
//
// Raw request values.
//
// Context
//   API callers send a flat key/value map, either JSON or form-encoded.  Keys
//   are the field names with a "registry_" prefix (the bare name is accepted
//   too), plus "_"-prefixed directives such as "_email_to_client".  Values is
//   the neutral shape both encodings collapse into before sanitation.
//
// Notes
//   •  Prefixed keys that are not in the schema are kept as custom
//      passthrough fields.  Unprefixed unknown keys (e.g. “apikey”) are
//      dropped.
//   •  Values never aliases caller slices; Clone before mutating.
//
//------------------------------------------------------------------------------

package fields

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Prefix is the wire prefix of registration fields.
const Prefix = "registry_"

// Value is either a scalar or a list.
type Value struct {
	Text   string
	List   []string
	IsList bool
}

// Scalar builds a text Value.
func Scalar(s string) Value { return Value{Text: s} }

// ListOf builds a list Value.
func ListOf(items ...string) Value {
	out := make([]string, len(items))
	copy(out, items)
	return Value{List: out, IsList: true}
}

// Items returns the value as a list: the list itself, or a comma split of
// the text.
func (v Value) Items() []string {
	if v.IsList {
		out := make([]string, len(v.List))
		copy(out, v.List)
		return out
	}
	t := strings.TrimSpace(v.Text)
	if t == "" {
		return nil
	}
	return strings.Split(t, ",")
}

// String returns the scalar, or the list joined with ", ".
func (v Value) String() string {
	if v.IsList {
		return strings.Join(v.List, ", ")
	}
	return v.Text
}

// Values maps bare field names to raw values.
type Values map[string]Value

// Text returns the scalar form of name.
func (v Values) Text(name string) (string, bool) {
	val, ok := v[name]
	if !ok {
		return "", false
	}
	return val.String(), true
}

// List returns the list form of name.
func (v Values) List(name string) ([]string, bool) {
	val, ok := v[name]
	if !ok {
		return nil, false
	}
	return val.Items(), true
}

// Has reports whether name is present.
func (v Values) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// Clone returns a deep copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		if val.IsList {
			val = ListOf(val.List...)
		}
		out[k] = val
	}
	return out
}

// Add records one raw key/value pair.  raw may be a string, a number, a
// bool, a []string, a []any (JSON array), or nil (ignored).
func (v Values) Add(s *Schema, key string, raw any) {
	name, ok := canonical(s, key)
	if !ok || raw == nil {
		return
	}
	switch x := raw.(type) {
	case string:
		v[name] = Scalar(x)
	case []string:
		if len(x) == 1 && !isListField(s, name) {
			v[name] = Scalar(x[0])
			return
		}
		v[name] = ListOf(x...)
	case []any:
		items := make([]string, 0, len(x))
		for _, e := range x {
			if e != nil {
				items = append(items, scalarString(e))
			}
		}
		v[name] = ListOf(items...)
	default:
		v[name] = Scalar(scalarString(x))
	}
}

// canonical maps a wire key to its bare field name.
func canonical(s *Schema, key string) (string, bool) {
	key = strings.TrimSpace(strings.TrimSuffix(key, "[]"))
	switch {
	case key == "":
		return "", false
	case strings.HasPrefix(key, "_"):
		return key, true // directive
	case strings.HasPrefix(key, Prefix):
		name := strings.TrimPrefix(key, Prefix)
		return name, name != ""
	case s.Has(key):
		return key, true
	}
	return "", false
}

func isListField(s *Schema, name string) bool {
	d, ok := s.Lookup(name)
	return ok && d.Kind.IsList()
}

func scalarString(x any) string {
	switch t := x.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// IsTrue interprets boolean-ish text: 1, true, yes, on, y.
func IsTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on", "y", "checked":
		return true
	}
	return false
}
