package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/boxflow/pkg/box"
)

func TestInvoiceSchema_Valid(t *testing.T) {
	s := InvoiceSchema()
	require.NoError(t, s.Validate())

	d := s.Defaults()
	assert.Equal(t, []string{
		FieldDocumentDate, FieldDocumentType, FieldInvoiceNumber,
		FieldPurchaseOrderNumber, FieldTotal, FieldVendor,
	}, d.Keys())
	assert.Equal(t, DateSentinel, d[FieldDocumentDate])
	assert.Equal(t, Unknown, d[FieldPurchaseOrderNumber])
	assert.Equal(t, []string{FieldDocumentDate}, s.DateFields())
}

func TestSchema_TemplateFields(t *testing.T) {
	fields := InvoiceSchema().TemplateFields()
	require.Len(t, fields, 6)

	assert.Equal(t, FieldDocumentType, fields[0].Key)
	assert.Equal(t, box.FieldEnum, fields[0].Type)
	assert.Equal(t, "Document Type", fields[0].DisplayName)
	require.Len(t, fields[0].Options, 3)
	assert.Equal(t, DocInvoice, fields[0].Options[0].Key)

	assert.Equal(t, "Purchase Order Number", fields[5].DisplayName)
	assert.Empty(t, fields[5].Options)
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"invoiceNumber":       "Invoice Number",
		"purchaseOrderNumber": "Purchase Order Number",
		"total":               "Total",
		"vendor_name":         "Vendor Name",
	}
	for key, want := range tests {
		assert.Equal(t, want, DisplayName(key), key)
	}
}

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Schema)
		wantErr string
	}{
		{"missing template key", func(s *Schema) { s.TemplateKey = "" }, "TemplateKey"},
		{"no fields", func(s *Schema) { s.Fields = nil }, "Fields"},
		{"duplicate key", func(s *Schema) { s.Fields = append(s.Fields, FieldSpec{Key: FieldTotal, Type: box.FieldString, Default: "0"}) }, "duplicate"},
		{"bad type", func(s *Schema) { s.Fields[2].Type = "blob" }, "Type"},
		{"enum default not an option", func(s *Schema) { s.Fields[0].Default = "Receipt" }, "Receipt"},
		{"enum without options", func(s *Schema) { s.Fields[0].Options = nil }, "Options"},
		{"bad date default", func(s *Schema) { s.Fields[1].Default = "yesterday" }, "yesterday"},
		{"missing default", func(s *Schema) { s.Fields[3].Default = nil }, "Default"},
		{"blank default", func(s *Schema) { s.Fields[3].Default = "  " }, "blank"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := InvoiceSchema()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
template_key: receipts
display_name: Receipts
fields:
  - key: merchant
    type: string
    default: Unknown
  - key: paidOn
    type: date
    default: "1900-01-01T00:00:00Z"
  - key: amount
    type: float
    default: 0
`), 0o600))

	s, err := LoadSchema(path)
	require.NoError(t, err)
	assert.Equal(t, "receipts", s.TemplateKey)
	assert.Equal(t, []string{"paidOn"}, s.DateFields())
	assert.Equal(t, 0, s.Defaults()["amount"])
}

func TestLoadSchema_Errors(t *testing.T) {
	_, err := LoadSchema(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("template_key: [oops"), 0o600))
	_, err = LoadSchema(path)
	require.Error(t, err)
}
