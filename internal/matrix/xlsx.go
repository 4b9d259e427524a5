package matrix

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/csvsub/runtime/internal/errhandling"
)

// readWorkbook returns the formatted cell values of one worksheet. Rows
// without any value are dropped, matching how blank lines are skipped in
// delimited input.
func readWorkbook(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errhandling.NewIOError("open", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errhandling.NewIOError("read", path, fmt.Errorf("workbook has no sheets"))
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errhandling.NewIOError("read", path, fmt.Errorf("sheet %q: %w", sheet, err))
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		records = append(records, row)
	}
	return records, nil
}
