package fetcher

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func buildTestXLSX(t *testing.T, sheets map[string][][]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestParseXLSX_Basic(t *testing.T) {
	data := buildTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"Name of Individual or Entity", "Type", "Committees"},
			{"Ivan Petrov", "Individual", "2024/123"},
		},
	})

	rows, err := ParseXLSX(data, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Name of Individual or Entity", "Type", "Committees"}, rows[0])
	assert.Equal(t, []string{"Ivan Petrov", "Individual", "2024/123"}, rows[1])
}

func TestParseXLSX_SkipRows(t *testing.T) {
	data := buildTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"generated on 2024-01-01"},
			{"Name", "Type"},
			{"a", "b"},
		},
	})

	rows, err := ParseXLSX(data, XLSXOptions{SkipRows: 1})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Name", "Type"}, rows[0])
}

func TestParseXLSX_SheetName(t *testing.T) {
	data := buildTestXLSX(t, map[string][][]string{
		"Cover": {{"ignore"}},
		"List":  {{"x", "y"}},
	})

	rows, err := ParseXLSX(data, XLSXOptions{SheetName: "List"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"x", "y"}, rows[0])
}

func TestParseXLSX_SheetNameNotFound(t *testing.T) {
	data := buildTestXLSX(t, map[string][][]string{"Sheet1": {{"a"}}})

	_, err := ParseXLSX(data, XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestParseXLSX_SheetIndexOutOfRange(t *testing.T) {
	data := buildTestXLSX(t, map[string][][]string{"Sheet1": {{"a"}}})

	_, err := ParseXLSX(data, XLSXOptions{SheetIndex: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestParseXLSX_NotASpreadsheet(t *testing.T) {
	_, err := ParseXLSX([]byte("<html>not xlsx</html>"), XLSXOptions{})
	assert.Error(t, err)
}
