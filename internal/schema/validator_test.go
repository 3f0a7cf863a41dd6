package schema

import (
	"errors"
	"testing"
)

const itemsSchema = `{
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {"type": "array", "items": {"type": "string"}}
  }
}`

func TestValidate(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"valid", `{"items": ["a", "b"]}`, false},
		{"empty array", `{"items": []}`, false},
		{"missing field", `{}`, true},
		{"wrong item type", `{"items": [1]}`, true},
		{"not json", `here is your JSON: {`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(itemsSchema, []byte(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestValidate_BadSchema(t *testing.T) {
	v := NewValidator()
	err := v.Validate(`{"type": 12}`, []byte(`{}`))
	if err == nil {
		t.Fatal("expected error for invalid schema")
	}
	if errors.Is(err, ErrInvalid) {
		t.Error("schema errors should not be reported as document errors")
	}
}

func TestValidate_CachesCompiledSchema(t *testing.T) {
	v := NewValidator()
	schema := map[string]any{"type": "object"}
	for i := 0; i < 3; i++ {
		if err := v.Validate(schema, []byte(`{}`)); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	}
	n := 0
	v.cache.Range(func(_, _ any) bool { n++; return true })
	if n != 1 {
		t.Errorf("expected 1 cached schema, got %d", n)
	}
}
