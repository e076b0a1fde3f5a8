// Package tabular reads uploaded spreadsheets into a header plus string rows.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format identifies a supported upload encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// ErrUnsupportedFormat is returned for file extensions other than .csv, .xls and .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported file type")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a parsed sheet. Every row has exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// FormatFromFilename picks the parser from the file extension.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".csv":
		return FormatCSV, nil
	case ".xls", ".xlsx":
		return FormatExcel, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Parse decodes r according to format.
func Parse(r io.Reader, format Format) (*Table, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(r)
	case FormatExcel:
		return ParseExcel(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ParseCSV decodes UTF-8 comma separated text whose first record is the header.
func ParseCSV(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return fromRecords(records)
}

// ParseExcel decodes the first worksheet of an Office Open XML workbook.
func ParseExcel(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close() //nolint:errcheck

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("spreadsheet does not contain any sheets")
	}
	// Raw values keep typed date cells as serial numbers instead of their
	// display text, which varies with the cell's number format.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return fromRecords(rows)
}

func fromRecords(records [][]string) (*Table, error) {
	records = dropBlank(records)
	if len(records) == 0 {
		return nil, errors.New("file has no header row")
	}

	header := make([]string, len(records[0]))
	for i, name := range records[0] {
		header[i] = strings.TrimSpace(name)
	}
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return nil, errors.New("file has an empty header row")
	}

	table := &Table{Columns: header, Rows: make([][]string, 0, len(records)-1)}
	for _, record := range records[1:] {
		row := make([]string, len(header))
		for i := range header {
			if i < len(record) {
				row[i] = strings.TrimSpace(record[i])
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func dropBlank(records [][]string) [][]string {
	kept := records[:0]
	for _, record := range records {
		for _, cell := range record {
			if strings.TrimSpace(cell) != "" {
				kept = append(kept, record)
				break
			}
		}
	}
	return kept
}
