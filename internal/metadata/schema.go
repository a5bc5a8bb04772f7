// Package metadata reconciles AI-suggested invoice/PO metadata onto Box
// files and searches the applied metadata for unmatched documents.
package metadata

import (
	"os"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/iancoleman/strcase"
	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/boxflow/pkg/box"
)

// DateSentinel is the default for date fields with no usable value.
const DateSentinel = "1900-01-01T00:00:00Z"

// Unknown is the default for text and enum fields with no usable value.
const Unknown = "Unknown"

// Invoice/PO template field keys.
const (
	FieldDocumentType        = "documentType"
	FieldDocumentDate        = "documentDate"
	FieldTotal               = "total"
	FieldVendor              = "vendor"
	FieldInvoiceNumber       = "invoiceNumber"
	FieldPurchaseOrderNumber = "purchaseOrderNumber"
)

// Document types.
const (
	DocInvoice       = "Invoice"
	DocPurchaseOrder = "Purchase Order"
)

// Schema is a metadata template definition together with the default value
// of every field.
type Schema struct {
	TemplateKey string      `yaml:"template_key"`
	DisplayName string      `yaml:"display_name"`
	Fields      []FieldSpec `yaml:"fields"`
}

// FieldSpec defines one template field and its sentinel default.
type FieldSpec struct {
	Key         string   `yaml:"key"`
	DisplayName string   `yaml:"display_name"`
	Type        string   `yaml:"type"`
	Description string   `yaml:"description"`
	Options     []string `yaml:"options"`
	Default     any      `yaml:"default"`
}

// Defaults maps each field key to its sentinel value.
type Defaults map[string]any

// Keys returns the field keys in sorted order.
func (d Defaults) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InvoiceSchema returns the built-in invoice/PO template.
func InvoiceSchema() Schema {
	return Schema{
		TemplateKey: "invoicePO",
		DisplayName: "Invoice & PO",
		Fields: []FieldSpec{
			{Key: FieldDocumentType, Type: box.FieldEnum, Description: "Invoice or purchase order",
				Options: []string{DocInvoice, DocPurchaseOrder, Unknown}, Default: Unknown},
			{Key: FieldDocumentDate, Type: box.FieldDate, Default: DateSentinel},
			{Key: FieldTotal, Type: box.FieldString, Default: Unknown},
			{Key: FieldVendor, Type: box.FieldString, Default: Unknown},
			{Key: FieldInvoiceNumber, Type: box.FieldString, Default: Unknown},
			{Key: FieldPurchaseOrderNumber, Type: box.FieldString, Default: Unknown},
		},
	}
}

// LoadSchema reads a YAML schema file and validates it.
func LoadSchema(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, eris.Wrapf(err, "metadata: read schema %s", path)
	}
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Schema{}, eris.Wrapf(err, "metadata: parse schema %s", path)
	}
	if err := s.Validate(); err != nil {
		return Schema{}, err
	}
	return s, nil
}

// Validate checks that every field has a key, a supported type and exactly
// one non-empty default, and that enum defaults are among the options.
func (s Schema) Validate() error {
	if err := validation.ValidateStruct(&s,
		validation.Field(&s.TemplateKey, validation.Required, validation.Length(1, 64)),
		validation.Field(&s.Fields, validation.Required),
	); err != nil {
		return eris.Wrap(err, "metadata: invalid schema")
	}

	seen := make(map[string]bool, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		err := validation.ValidateStruct(f,
			validation.Field(&f.Key, validation.Required),
			validation.Field(&f.Type, validation.Required,
				validation.In(box.FieldString, box.FieldFloat, box.FieldDate, box.FieldEnum)),
			validation.Field(&f.Options, validation.When(f.Type == box.FieldEnum, validation.Required)),
			validation.Field(&f.Default, validation.NotNil),
		)
		if err != nil {
			return eris.Wrapf(err, "metadata: invalid field %d (%s)", i, f.Key)
		}
		if seen[f.Key] {
			return eris.Errorf("metadata: duplicate field %s", f.Key)
		}
		seen[f.Key] = true

		if def, ok := f.Default.(string); ok && strings.TrimSpace(def) == "" {
			return eris.Errorf("metadata: default of %s is blank", f.Key)
		}

		if f.Type == box.FieldEnum {
			def, _ := f.Default.(string)
			if !contains(f.Options, def) {
				return eris.Errorf("metadata: default %v of enum %s is not an option", f.Default, f.Key)
			}
		}
		if f.Type == box.FieldDate {
			def, _ := f.Default.(string)
			if _, ok := parseISO(def); !ok {
				return eris.Errorf("metadata: default %v of date %s is not ISO-8601", f.Default, f.Key)
			}
		}
	}
	return nil
}

// Defaults returns the defaults table for s.
func (s Schema) Defaults() Defaults {
	d := make(Defaults, len(s.Fields))
	for _, f := range s.Fields {
		d[f.Key] = f.Default
	}
	return d
}

// DateFields returns the keys of date-typed fields.
func (s Schema) DateFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Type == box.FieldDate {
			out = append(out, f.Key)
		}
	}
	return out
}

// TemplateFields converts s to Box template field definitions, deriving
// display names from keys where none is given.
func (s Schema) TemplateFields() []box.TemplateField {
	out := make([]box.TemplateField, 0, len(s.Fields))
	for _, f := range s.Fields {
		tf := box.TemplateField{
			Type:        f.Type,
			Key:         f.Key,
			DisplayName: f.DisplayName,
			Description: f.Description,
		}
		if tf.DisplayName == "" {
			tf.DisplayName = DisplayName(f.Key)
		}
		for _, o := range f.Options {
			tf.Options = append(tf.Options, box.FieldOption{Key: o})
		}
		out = append(out, tf)
	}
	return out
}

// DisplayName turns a field key such as "purchaseOrderNumber" into
// "Purchase Order Number".
func DisplayName(key string) string {
	return cases.Title(language.English).String(strcase.ToDelimited(key, ' '))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
