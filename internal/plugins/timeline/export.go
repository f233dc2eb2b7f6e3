package timeline

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// RecapContentType is the MIME type of the recap workbook.
const RecapContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// recapHeaders are the columns of the recap sheet, in order.
var recapHeaders = []string{
	"ID", "Name", "Plate", "Location", "Title", "Start", "End",
	"Duration", "Status", "Payment", "Price", "Start Driver", "End Driver",
}

// RecapFileName returns the download name for a month recap.
func RecapFileName(f Filter) string {
	return fmt.Sprintf("timeline_%s_%04d_%02d.xlsx", f.Endpoint, f.Year, int(f.Month))
}

// BuildRecap writes one sheet row per interval that touches the month.
// Rows without intervals are listed once with empty interval columns.
func BuildRecap(grid MonthGrid, rows []CalendarRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := writeRecap(f, grid.Title(), grid, rows); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// writeRecap renames the default sheet to sheet and fills it.
func writeRecap(f *excelize.File, sheet string, grid MonthGrid, rows []CalendarRow) error {
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming recap sheet: %w", err)
	}

	for i, h := range recapHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("writing recap header: %w", err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(recapHeaders), 1)
		_ = f.SetCellStyle(sheet, "A1", last, bold)
	}

	line := 2
	write := func(values ...any) error {
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, line)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("writing recap row %d: %w", line, err)
			}
		}
		line++
		return nil
	}

	const stamp = "2006-01-02 15:04"
	for _, row := range rows {
		if row.Placeholder {
			continue
		}
		written := false
		for _, iv := range row.Usage {
			if _, ok := Layout(grid, iv.Start, iv.End, DefaultLayoutOptions); !ok {
				continue
			}
			if err := write(row.ID, row.Name, row.Plate, row.Location, iv.Title,
				iv.Start.Format(stamp), iv.End.Format(stamp), iv.Duration,
				StyleFor(iv.OrderStatus).Label, iv.PaymentStatus, iv.Price,
				iv.StartDriver, iv.EndDriver,
			); err != nil {
				return err
			}
			written = true
		}
		if !written {
			if err := write(row.ID, row.Name, row.Plate, row.Location); err != nil {
				return err
			}
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 10)
	_ = f.SetColWidth(sheet, "B", "E", 24)
	_ = f.SetColWidth(sheet, "F", "G", 18)
	return nil
}
