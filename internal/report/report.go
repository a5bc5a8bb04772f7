// Package report renders metadata search results as a terminal table, JSON,
// an XLSX workbook or rows in a Notion database.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/boxflow/internal/metadata"
)

// Output formats.
const (
	FormatTable  = "table"
	FormatJSON   = "json"
	FormatXLSX   = "xlsx"
	FormatNotion = "notion"
)

// Formats lists the supported output formats.
var Formats = []string{FormatTable, FormatJSON, FormatXLSX, FormatNotion}

// ParseFormat validates a --format value.
func ParseFormat(s string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(s))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", eris.Errorf("report: unknown format %q (want one of %s)", s, strings.Join(Formats, ", "))
}

// Table is a rectangular view of matches: one row per file, one column per
// field, after the file name and id.
type Table struct {
	Fields  []string
	Headers []string
	Rows    [][]string
}

// NewTable lays out matches with the given field columns.
func NewTable(matches []metadata.Match, fields []string) Table {
	t := Table{Fields: fields}
	t.Headers = append(t.Headers, "File", "File ID")
	for _, f := range fields {
		t.Headers = append(t.Headers, metadata.DisplayName(f))
	}
	for _, m := range matches {
		row := make([]string, 0, len(fields)+2)
		row = append(row, m.FileName, m.FileID)
		for _, f := range fields {
			row = append(row, cell(m.Fields[f]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// WriteTable prints t as aligned columns.
func WriteTable(w io.Writer, t Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return eris.Wrap(tw.Flush(), "report: write table")
}

// WriteJSON writes matches as an indented JSON array.
func WriteJSON(w io.Writer, matches []metadata.Match) error {
	if matches == nil {
		matches = []metadata.Match{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(matches), "report: write json")
}

func cell(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
