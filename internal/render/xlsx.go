package render

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/kjstillabower/solar-dashboard-service/internal/models"
)

// StatsSheet is the worksheet name used by WriteStatsXLSX.
const StatsSheet = "Region Stats"

// WriteStatsXLSX writes the stats table as a single-sheet workbook.
// NaN cells are left blank.
func WriteStatsXLSX(w io.Writer, table models.StatsTable) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", StatsSheet); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}

	columns := table.Columns
	if len(columns) == 0 {
		columns = models.StatsColumns
	}
	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(StatsSheet, cell, h); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err == nil {
		_ = f.SetRowStyle(StatsSheet, 1, 1, headerStyle)
	}

	for r, row := range table.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetCellValue(StatsSheet, cell, row.Country); err != nil {
			return fmt.Errorf("xlsx row %d: %w", r, err)
		}
		for c, v := range row.Values() {
			if math.IsNaN(v) {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+2, r+2)
			if err := f.SetCellValue(StatsSheet, cell, v); err != nil {
				return fmt.Errorf("xlsx row %d: %w", r, err)
			}
		}
	}
	_ = f.SetColWidth(StatsSheet, "A", "A", 18)
	_ = f.SetColWidth(StatsSheet, "B", "H", 13)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
