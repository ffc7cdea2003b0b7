// internal/fields/definition.go
//
// Registration field schema: YAML definition loader.
//
// Context
//   Every field a registration may carry is declared once, in schema.yaml.
//   The declaration names the field, picks a sanitation kind, and marks it
//   required-on-create, optional (outside the defaulted core set), and/or
//   public (returned by the API).  The sanitizer, the request mapper, and
//   the response builder all read the same Schema, guaranteeing a single
//   source of truth.
//
// Workflow
//   •  Default() parses the embedded schema.yaml once and caches it.
//   •  LoadSchema parses an operator-supplied file (config
//      `registrar.schema_file`) and validates its structure.
//   •  Lookup offers read-only access to a field by name.
//
//------------------------------------------------------------------------------

package fields

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// Kind selects the sanitation applied to a field.
type Kind string

const (
	KindText    Kind = "text"
	KindTitle   Kind = "title"
	KindProduct Kind = "product"
	KindEmail   Kind = "email"
	KindList    Kind = "list"
	KindDomains Kind = "domains"
	KindSites   Kind = "sites"
	KindDate    Kind = "date"
	KindMoney   Kind = "money"
	KindFlag    Kind = "flag"
)

// IsList reports whether values of this kind are ordered string lists.
func (k Kind) IsList() bool {
	return k == KindList || k == KindDomains || k == KindSites
}

var knownKinds = map[Kind]bool{
	KindText: true, KindTitle: true, KindProduct: true, KindEmail: true,
	KindList: true, KindDomains: true, KindSites: true, KindDate: true,
	KindMoney: true, KindFlag: true,
}

// Def describes one registration field.
type Def struct {
	Name     string `yaml:"name"`     // Bare name, without the "registry_" prefix.
	Kind     Kind   `yaml:"kind"`     // Sanitation kind.
	Required bool   `yaml:"required"` // Must be present on create.
	Optional bool   `yaml:"optional"` // Never back-filled from defaults.
	Public   bool   `yaml:"public"`   // Returned by the public API.
}

// Schema is an ordered, validated field list.
type Schema struct {
	Fields []Def `yaml:"fields"`

	index map[string]int
}

// Lookup returns the definition of name.
func (s *Schema) Lookup(name string) (Def, bool) {
	i, ok := s.index[name]
	if !ok {
		return Def{}, false
	}
	return s.Fields[i], true
}

// Has reports whether name is a schema field.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

//go:embed schema.yaml
var embedded []byte

var (
	defaultOnce   sync.Once
	defaultSchema *Schema
)

// Default returns the embedded schema.  It panics if the embedded file is
// malformed, which only a broken build can cause.
func Default() *Schema {
	defaultOnce.Do(func() {
		s, err := ParseSchema(embedded, "schema.yaml")
		if err != nil {
			panic("fields: embedded schema: " + err.Error())
		}
		defaultSchema = s
	})
	return defaultSchema
}

// LoadSchema reads and validates a schema file.
func LoadSchema(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file %s: %w", path, err)
	}
	return ParseSchema(raw, path)
}

// ParseSchema parses YAML bytes.  src is used in error messages only.
func ParseSchema(raw []byte, src string) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", src, err)
	}
	if err := validateSchema(&s, src); err != nil {
		return nil, err
	}
	return &s, nil
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

// validateSchema enforces structural rules and builds the name index.
func validateSchema(s *Schema, src string) error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %s: no fields declared", src)
	}
	s.index = make(map[string]int, len(s.Fields))
	for i, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema %s: field %d missing 'name'", src, i)
		}
		if !knownKinds[f.Kind] {
			return fmt.Errorf("schema %s: field '%s' has unknown kind %q", src, f.Name, f.Kind)
		}
		if f.Required && f.Optional {
			return fmt.Errorf("schema %s: field '%s' cannot be both required and optional", src, f.Name)
		}
		if _, dup := s.index[f.Name]; dup {
			return fmt.Errorf("schema %s: duplicate field name '%s'", src, f.Name)
		}
		s.index[f.Name] = i
	}
	for _, must := range []string{"key", "product", "email"} {
		if _, ok := s.index[must]; !ok {
			return errors.New("schema " + src + ": missing core field '" + must + "'")
		}
	}
	return nil
}
