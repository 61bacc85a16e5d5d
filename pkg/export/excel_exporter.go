package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelSheet is the worksheet name used for spreadsheet exports.
const ExcelSheet = "Reports"

// ExcelExporter renders datasets into an .xlsx workbook with a styled header row.
type ExcelExporter struct{}

// NewExcelExporter constructs an Excel exporter.
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

// Render writes one upper-cased header row followed by one row per record.
func (e *ExcelExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName(f.GetSheetName(0), ExcelSheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4F81BD"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, header := range data.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStr(ExcelSheet, cell, strings.ToUpper(header)); err != nil {
			return nil, fmt.Errorf("write header %s: %w", header, err)
		}
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(data.Headers), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(ExcelSheet, "A1", lastHeader, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, row := range data.Rows {
		for col, header := range data.Headers {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := writeCell(f, cell, row[header], data.Numeric, header); err != nil {
				return nil, fmt.Errorf("write row %d: %w", i+1, err)
			}
		}
	}

	if err := styleNumericColumns(f, data); err != nil {
		return nil, err
	}

	for col := range data.Headers {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(ExcelSheet, name, name, 16); err != nil {
			return nil, fmt.Errorf("size column %s: %w", name, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// styleNumericColumns applies a fixed-decimal number format to the data cells
// of every numeric column so readers display e.g. 1000.00 rather than 1000.
func styleNumericColumns(f *excelize.File, data Dataset) error {
	styles := make(map[int]int)
	for col, header := range data.Headers {
		precision, ok := data.Numeric[header]
		if !ok {
			continue
		}
		style, cached := styles[precision]
		if !cached {
			var err error
			style, err = f.NewStyle(numberStyle(precision))
			if err != nil {
				return fmt.Errorf("create number style: %w", err)
			}
			styles[precision] = style
		}
		first, err := excelize.CoordinatesToCellName(col+1, 2)
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(col+1, len(data.Rows)+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(ExcelSheet, first, last, style); err != nil {
			return fmt.Errorf("style column %s: %w", header, err)
		}
	}
	return nil
}

func numberStyle(precision int) *excelize.Style {
	switch {
	case precision <= 0:
		return &excelize.Style{NumFmt: 1}
	case precision == 2:
		return &excelize.Style{NumFmt: 2}
	default:
		format := "0." + strings.Repeat("0", precision)
		return &excelize.Style{CustomNumFmt: &format}
	}
}

func writeCell(f *excelize.File, cell, value string, numeric map[string]int, header string) error {
	if precision, ok := numeric[header]; ok && value != "" {
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			return f.SetCellFloat(ExcelSheet, cell, n, precision, 64)
		}
	}
	return f.SetCellStr(ExcelSheet, cell, value)
}
