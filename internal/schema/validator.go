// Package schema validates model output against JSON schemas before it is
// trusted as structured data.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalid wraps every document-level validation failure.
var ErrInvalid = errors.New("schema validation failed")

// Validator compiles schemas once and reuses them.
type Validator struct {
	cache sync.Map // schema JSON -> *gojsonschema.Schema
}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks doc against schemaData. schemaData may be a JSON string,
// raw bytes, or any value that marshals to a schema object.
func (v *Validator) Validate(schemaData any, doc []byte) error {
	compiled, err := v.compile(schemaData)
	if err != nil {
		return fmt.Errorf("invalid schema definition: %w", err)
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		// Not JSON at all.
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return fmt.Errorf("%w:\n- %s", ErrInvalid, dumpErrors(errs))
}

func (v *Validator) compile(schemaData any) (*gojsonschema.Schema, error) {
	var raw []byte
	switch s := schemaData.(type) {
	case string:
		raw = []byte(s)
	case []byte:
		raw = s
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	key := string(raw)

	if val, ok := v.cache.Load(key); ok {
		return val.(*gojsonschema.Schema), nil
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, err
	}
	v.cache.Store(key, compiled)
	return compiled, nil
}

// dumpErrors keeps the first three messages.
func dumpErrors(errs []string) string {
	if len(errs) <= 3 {
		return strings.Join(errs, "\n- ")
	}
	return strings.Join(errs[:3], "\n- ") + fmt.Sprintf("\n... and %d more", len(errs)-3)
}
