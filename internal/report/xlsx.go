package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// WriteXLSX saves t as a single-sheet workbook at path.
func WriteXLSX(path, sheetName string, t Table) error {
	if sheetName == "" {
		sheetName = "Unmatched"
	}
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	addRow(sheet, t.Headers)
	for _, r := range t.Rows {
		addRow(sheet, r)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
