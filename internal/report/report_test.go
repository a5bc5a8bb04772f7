package report

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/boxflow/internal/metadata"
)

func sampleMatches() []metadata.Match {
	return []metadata.Match{
		{FileID: "f1", FileName: "A1111.txt", Fields: map[string]any{
			metadata.FieldInvoiceNumber: "A1111", metadata.FieldDocumentType: "Invoice", metadata.FieldTotal: "$1,050.00",
		}},
		{FileID: "f2", FileName: "A5555.txt", Fields: map[string]any{
			metadata.FieldInvoiceNumber: "A5555", metadata.FieldDocumentType: "Invoice",
		}},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"table", FormatTable, false},
		{" JSON ", FormatJSON, false},
		{"xlsx", FormatXLSX, false},
		{"notion", FormatNotion, false},
		{"csv", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewTable(t *testing.T) {
	tbl := NewTable(sampleMatches(), []string{metadata.FieldInvoiceNumber, metadata.FieldTotal})
	assert.Equal(t, []string{"File", "File ID", "Invoice Number", "Total"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"A1111.txt", "f1", "A1111", "$1,050.00"}, tbl.Rows[0])
	assert.Equal(t, []string{"A5555.txt", "f2", "A5555", ""}, tbl.Rows[1])
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, NewTable(sampleMatches(), []string{metadata.FieldInvoiceNumber})))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "File "))
	assert.Contains(t, lines[0], "Invoice Number")
	assert.Contains(t, lines[1], "A1111")
	assert.Equal(t, strings.Index(lines[0], "File ID"), strings.Index(lines[1], "f1"))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleMatches()))

	var got []metadata.Match
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "f1", got[0].FileID)
	assert.Equal(t, "A1111", got[0].Fields[metadata.FieldInvoiceNumber])

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unmatched.xlsx")
	tbl := NewTable(sampleMatches(), []string{metadata.FieldInvoiceNumber})
	require.NoError(t, WriteXLSX(path, "", tbl))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet["Unmatched"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Invoice Number", sheet.Rows[0].Cells[2].String())
	assert.Equal(t, "A5555", sheet.Rows[2].Cells[2].String())
}
