package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xuri/excelize/v2"
)

// Format is a supported spreadsheet encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLS  Format = "xls"
	FormatXLSX Format = "xlsx"
)

// Row is one data line of the file. Number is the 1-based line in the
// sheet, so the first data row is 2. Keys are lower-cased header names.
type Row struct {
	Number int
	Data   map[string]string
}

// maxXLSRows bounds how much of a legacy workbook is read
const maxXLSRows = 65536

var mimeFormats = map[string]Format{
	"text/csv":                 FormatCSV,
	"application/csv":          FormatCSV,
	"text/plain":               FormatCSV,
	"application/vnd.ms-excel": FormatXLS,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": FormatXLSX,
}

// DetectFormat picks the format from the file extension, then the MIME type
func DetectFormat(filename, contentType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xls":
		return FormatXLS, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if f, ok := mimeFormats[mediaType]; ok {
			return f, nil
		}
	}
	return "", apperr.Validation("unsupported file type %q: expected .csv, .xls or .xlsx", filename)
}

// ParseRows reads the first sheet of data into rows keyed by lower-cased
// header. Fully blank lines are skipped.
func ParseRows(format Format, data []byte) (headers []string, rows []Row, err error) {
	var grid [][]string
	switch format {
	case FormatCSV:
		grid, err = readCSV(data)
	case FormatXLSX:
		grid, err = readXLSX(data)
	case FormatXLS:
		grid, err = readXLS(data)
	default:
		return nil, nil, apperr.Validation("unsupported format %q", format)
	}
	if err != nil {
		return nil, nil, apperr.Validation("unreadable %s file: %v", format, err)
	}
	if len(grid) == 0 {
		return nil, nil, apperr.Validation("file is empty")
	}

	for _, h := range grid[0] {
		headers = append(headers, strings.ToLower(strings.TrimSpace(h)))
	}

	for i, line := range grid[1:] {
		row := Row{Number: i + 2, Data: make(map[string]string, len(headers))}
		blank := true
		for j, h := range headers {
			if h == "" || j >= len(line) {
				continue
			}
			v := strings.TrimSpace(line[j])
			row.Data[h] = v
			if v != "" {
				blank = false
			}
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return headers, rows, nil
}

// readCSV accepts comma or semicolon separated files, with or without a BOM
func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.Comma = sniffDelimiter(data)

	var grid [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		grid = append(grid, rec)
	}
	return grid, nil
}

// sniffDelimiter prefers ';' when the header line has more of them than commas
func sniffDelimiter(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}
	if bytes.Count(header, []byte(";")) > bytes.Count(header, []byte(",")) {
		return ';'
	}
	return ','
}

// readXLSX reads raw cell values so dates arrive as serial numbers
func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}

// readXLS converts panics from malformed workbooks into errors
func readXLS(data []byte) (grid [][]string, err error) {
	defer func() {
		if p := recover(); p != nil {
			grid, err = nil, fmt.Errorf("malformed workbook: %v", p)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	for i := 0; i <= int(sheet.MaxRow) && i < maxXLSRows; i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		line := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			line = append(line, row.Col(j))
		}
		grid = append(grid, line)
	}
	return grid, nil
}

// xlsRow returns nil for rows the sheet never stored; the library
// dereferences the missing row itself in that case.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}
