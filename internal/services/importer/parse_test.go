package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xuri/excelize/v2"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        Format
	}{
		{"missions.csv", "", FormatCSV},
		{"MISSIONS.XLSX", "", FormatXLSX},
		{"old.xls", "application/octet-stream", FormatXLS},
		{"upload", "text/csv; charset=utf-8", FormatCSV},
		{"upload", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", FormatXLSX},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.filename, tt.contentType)
		require.NoError(t, err, tt.filename)
		assert.Equal(t, tt.want, got, tt.filename)
	}

	_, err := DetectFormat("photo.png", "image/png")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestParseRowsCSV(t *testing.T) {
	data := "\xef\xbb\xbfTitle;Client;Address\n" +
		"Site A;ACME;\"1 rue X; Lyon\"\n" +
		";;\n" +
		"Site B;Bouygues;2 rue Y\n"

	headers, rows, err := ParseRows(FormatCSV, []byte(data))
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "client", "address"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Number)
	assert.Equal(t, "1 rue X; Lyon", rows[0].Data["address"])
	assert.Equal(t, 4, rows[1].Number, "blank line keeps its number")
	assert.Equal(t, "Bouygues", rows[1].Data["client"])
}

func TestParseRowsCSVShortLines(t *testing.T) {
	_, rows, err := ParseRows(FormatCSV, []byte("title,client,address\nSite A,ACME\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	_, ok := rows[0].Data["address"]
	assert.False(t, ok)
}

func TestParseRowsEmpty(t *testing.T) {
	_, _, err := ParseRows(FormatCSV, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestParseRowsXLSX(t *testing.T) {
	data := buildXLSX(t, [][]interface{}{
		{"Title", "Client", "Date"},
		{"Site A", "ACME", 45667},
	})

	headers, rows, err := ParseRows(FormatXLSX, data)
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "client", "date"}, headers)
	require.Len(t, rows, 1)
	assert.Equal(t, "Site A", rows[0].Data["title"])
	assert.Equal(t, "45667", rows[0].Data["date"])
}

func TestParseRowsRejectsCorruptWorkbook(t *testing.T) {
	_, _, err := ParseRows(FormatXLSX, []byte("not a zip"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, _, err = ParseRows(FormatXLS, []byte("not a workbook"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func buildXLSX(t *testing.T, lines [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &line))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}
