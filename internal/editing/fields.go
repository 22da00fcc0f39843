package editing

import (
	"fmt"
	"unicode/utf8"

	"github.com/invopop/jsonschema"

	"github.com/custodia-labs/quill-core/internal/core/domain"
)

// FieldSet declares the structured document fields that commands may write.
// The catalog is reflected from these tags.
type FieldSet struct {
	Synopsis         string `json:"synopsis" jsonschema:"maxLength=4000,description=Back cover synopsis"`
	SynopsisFeedback string `json:"synopsis_feedback" jsonschema:"maxLength=40000,description=Rendered coaching notes on the synopsis"`
	Logline          string `json:"logline" jsonschema:"maxLength=300,description=One sentence pitch"`
	Genre            string `json:"genre" jsonschema:"maxLength=80"`
	Audience         string `json:"audience" jsonschema:"maxLength=120,description=Intended readership"`
	Tagline          string `json:"tagline" jsonschema:"maxLength=160"`
}

// Field describes one catalog entry
type Field struct {
	Key         string
	Description string
	MaxLength   int // 0 means unbounded
}

// FieldCatalog validates structured field keys and values
type FieldCatalog struct {
	fields map[string]Field
	order  []string
}

// NewFieldCatalog reflects the catalog from FieldSet
func NewFieldCatalog() *FieldCatalog {
	return catalogFromSchema((&jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}).Reflect(&FieldSet{}))
}

func catalogFromSchema(schema *jsonschema.Schema) *FieldCatalog {
	c := &FieldCatalog{fields: make(map[string]Field)}
	if schema == nil || schema.Properties == nil {
		return c
	}
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		f := Field{Key: pair.Key}
		if pair.Value != nil {
			f.Description = pair.Value.Description
			if pair.Value.MaxLength != nil {
				f.MaxLength = int(*pair.Value.MaxLength)
			}
		}
		c.fields[f.Key] = f
		c.order = append(c.order, f.Key)
	}
	return c
}

// Lookup returns the field for a key
func (c *FieldCatalog) Lookup(key string) (Field, bool) {
	f, ok := c.fields[key]
	return f, ok
}

// Keys returns field keys in declaration order
func (c *FieldCatalog) Keys() []string {
	return append([]string(nil), c.order...)
}

// Validate checks that key is known and value fits its length limit
func (c *FieldCatalog) Validate(key, value string) error {
	f, ok := c.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownField, key)
	}
	if f.MaxLength > 0 && utf8.RuneCountInString(value) > f.MaxLength {
		return fmt.Errorf("%w: %s exceeds %d characters", domain.ErrInvalidInput, key, f.MaxLength)
	}
	return nil
}
