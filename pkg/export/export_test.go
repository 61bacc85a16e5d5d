package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"id", "date", "amount"},
		Rows: []map[string]string{
			{"id": "1", "date": "2024-01-01", "amount": "100.50"},
			{"id": "2", "date": "2024-01-02", "amount": "200.00"},
		},
		Numeric: map[string]int{"amount": 2},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"id", "date", "amount"}, records[0])
	assert.Equal(t, []string{"2", "2024-01-02", "200.00"}, records[2])
}

func TestCSVExporterRejectsEmpty(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{Headers: []string{"id"}})
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestExcelExporterRender(t *testing.T) {
	out, err := NewExcelExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	assert.Equal(t, ExcelSheet, f.GetSheetName(0))
	rows, err := f.GetRows(ExcelSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "DATE", "AMOUNT"}, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "100.50", rows[1][2])
}

func TestExcelExporterFormatsNumericColumns(t *testing.T) {
	data := Dataset{
		Headers: []string{"id", "amount", "rate"},
		Rows: []map[string]string{
			{"id": "1", "amount": "1000", "rate": "0.5"},
			{"id": "2", "amount": "250.1", "rate": "1.25"},
		},
		Numeric: map[string]int{"id": 0, "amount": 2, "rate": 3},
	}
	out, err := NewExcelExporter().Render(data)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows(ExcelSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1", "1000.00", "0.500"}, rows[1])
	assert.Equal(t, []string{"2", "250.10", "1.250"}, rows[2])

	amount, err := f.GetCellValue(ExcelSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", amount)
}

func TestExcelExporterHeaderStyled(t *testing.T) {
	out, err := NewExcelExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	headerStyle, err := f.GetCellStyle(ExcelSheet, "A1")
	require.NoError(t, err)
	dataStyle, err := f.GetCellStyle(ExcelSheet, "A2")
	require.NoError(t, err)
	assert.NotZero(t, headerStyle)
	assert.NotEqual(t, headerStyle, dataStyle)
}

func TestExcelExporterRejectsEmpty(t *testing.T) {
	_, err := NewExcelExporter().Render(Dataset{Headers: []string{"id"}})
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(Document{
		Title: "Sales Report",
		Lines: []string{"1. 2024-01-01 | Sales | $100.50 | alice | north"},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterPaginates(t *testing.T) {
	lines := make([]string, 120)
	for i := range lines {
		lines[i] = fmt.Sprintf("%d. 2024-01-01 | Sales | $1.00 | user | region", i+1)
	}
	doc := Document{Title: "Sales Report", Lines: lines}

	pdf := NewPDFExporter().build(doc)
	require.NoError(t, pdf.Error())
	assert.Greater(t, pdf.PageCount(), 1)

	short := NewPDFExporter().build(Document{Title: "Sales Report", Lines: lines[:5]})
	assert.Equal(t, 1, short.PageCount())
}

func TestPDFExporterEncodesAccents(t *testing.T) {
	pdf := NewPDFExporter().build(Document{
		Title: "Sales Report",
		Lines: []string{"1. 2024-01-01 | Sales | $1.00 | Müller | Zürich"},
	})
	pdf.SetCompression(false)
	buf := &bytes.Buffer{}
	require.NoError(t, pdf.Output(buf))

	assert.True(t, bytes.Contains(buf.Bytes(), []byte("M\xfcller | Z\xfcrich")))
	assert.False(t, bytes.Contains(buf.Bytes(), []byte("M\xc3\xbcller")))
}

func TestPDFExporterRejectsEmpty(t *testing.T) {
	_, err := NewPDFExporter().Render(Document{Title: "Sales Report"})
	assert.ErrorIs(t, err, ErrEmptyDataset)
}
