package decoder

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lead-import-api/internal/models"
	"github.com/xuri/excelize/v2"
)

// xlsxSignature is the ZIP local-file-header magic every .xlsx starts with.
var xlsxSignature = []byte{0x50, 0x4B, 0x03, 0x04}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode turns an uploaded file into its header row and an ordered
// sequence of raw row records (header → cell value, all strings).
// rows[i] corresponds to spreadsheet data row i+1; ordering is exactly
// file order. Returns models.ErrUnsupportedFormat before any job exists
// when the payload does not match the declared source.
func Decode(data []byte, source models.Source) ([]string, []map[string]string, error) {
	switch source {
	case models.SourceCSVUpload:
		if bytes.HasPrefix(data, xlsxSignature) {
			return nil, nil, fmt.Errorf("%w: binary payload declared as CSV", models.ErrUnsupportedFormat)
		}
		return decodeCSV(data)
	case models.SourceXLSXUpload:
		if !bytes.HasPrefix(data, xlsxSignature) {
			return nil, nil, fmt.Errorf("%w: missing XLSX signature", models.ErrUnsupportedFormat)
		}
		return decodeXLSX(data)
	default:
		return nil, nil, fmt.Errorf("%w: unknown source %q", models.ErrUnsupportedFormat, source)
	}
}

// decodeCSV reads RFC-4180 CSV: quoted fields may contain commas and
// newlines, "" escapes a quote, and a line is a logical record only once
// quote balance is satisfied. Blank lines are dropped by the reader; the
// first record is the header.
func decodeCSV(data []byte) ([]string, []map[string]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%w: empty file", models.ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrUnsupportedFormat, err)
	}
	headers := trimHeaders(header)

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, nil, fmt.Errorf("%w: malformed CSV at line %d: %v", models.ErrUnsupportedFormat, parseErr.Line, parseErr.Err)
			}
			return nil, nil, fmt.Errorf("%w: %v", models.ErrUnsupportedFormat, err)
		}
		if row, ok := buildRow(headers, record); ok {
			rows = append(rows, row)
		}
	}

	return headers, rows, nil
}

// decodeXLSX reads the first worksheet only. Empty cells default to ""
// so downstream code sees a uniform type.
func decodeXLSX(data []byte) ([]string, []map[string]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrUnsupportedFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%w: workbook has no sheets", models.ErrUnsupportedFormat)
	}

	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrUnsupportedFormat, err)
	}

	// The first non-blank row is the header, matching CSV behaviour.
	start := 0
	for start < len(cells) && isBlank(cells[start]) {
		start++
	}
	if start == len(cells) {
		return nil, nil, fmt.Errorf("%w: empty worksheet", models.ErrUnsupportedFormat)
	}
	headers := trimHeaders(cells[start])

	var rows []map[string]string
	for _, record := range cells[start+1:] {
		if row, ok := buildRow(headers, record); ok {
			rows = append(rows, row)
		}
	}

	return headers, rows, nil
}

// buildRow maps a record onto the header row. Cells beyond the header
// width are dropped; missing trailing cells become "". Fully blank
// records are skipped (ok == false).
func buildRow(headers []string, record []string) (map[string]string, bool) {
	if isBlank(record) {
		return nil, false
	}
	row := make(map[string]string, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		// First occurrence wins for duplicate header names.
		if _, exists := row[h]; exists {
			continue
		}
		if i < len(record) {
			row[h] = record[i]
		} else {
			row[h] = ""
		}
	}
	return row, true
}

func trimHeaders(record []string) []string {
	headers := make([]string, len(record))
	for i, h := range record {
		headers[i] = strings.TrimSpace(h)
	}
	return headers
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
