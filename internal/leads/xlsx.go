package leads

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// readXLSX returns all rows of the first sheet as string slices.
func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("xlsx: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
