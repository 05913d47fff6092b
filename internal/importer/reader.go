package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"catalog-service/internal/models"
	"github.com/xuri/excelize/v2"
)

// RawRow is one data row keyed by normalized header.
// Number is the file row, with the header as row 1.
type RawRow struct {
	Number int
	Values map[string]string
}

func (r RawRow) blank() bool {
	for _, v := range r.Values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// RowReader yields data rows in file order and returns io.EOF when done.
// A *MalformedRowError affects only that row.
type RowReader interface {
	Next() (RawRow, error)
	Close() error
}

// DetectFormat picks the reader from the file extension
func DetectFormat(path string) (models.ImportFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return models.ImportFormatCSV, nil
	case ".xlsx", ".xlsm":
		return models.ImportFormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported file type %q", filepath.Ext(path))
}

// OpenReader opens path through src and reads its header row. An empty
// format is detected from the extension.
func OpenReader(ctx context.Context, src Source, path string, format models.ImportFormat) (RowReader, error) {
	if format == "" {
		detected, err := DetectFormat(path)
		if err != nil {
			return nil, &FileAccessError{Path: path, Err: fmt.Errorf("%w: %w", ErrFileUnreadable, err)}
		}
		format = detected
	}

	rc, err := src.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	var reader RowReader
	switch format {
	case models.ImportFormatCSV:
		reader, err = newCSVRowReader(rc)
	case models.ImportFormatXLSX:
		reader, err = newXLSXRowReader(rc)
		rc.Close()
	default:
		rc.Close()
		return nil, &FileAccessError{Path: path, Err: fmt.Errorf("%w: unsupported format %q", ErrFileUnreadable, format)}
	}
	if err != nil {
		return nil, &FileAccessError{Path: path, Err: fmt.Errorf("%w: %w", ErrFileUnreadable, err)}
	}
	return reader, nil
}

func normalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(strings.ToLower(h))
		// Remove required marker if present
		h = strings.TrimSuffix(h, " *")
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func buildRow(headers, record []string, number int) RawRow {
	row := RawRow{Number: number, Values: make(map[string]string, len(headers))}
	for i, value := range record {
		if i < len(headers) && headers[i] != "" {
			row.Values[headers[i]] = strings.TrimSpace(value)
		}
	}
	return row
}

// csvRowReader numbers rows the way a spreadsheet shows them: a quoted
// multi-line field stays in one row and empty lines still take a number.
type csvRowReader struct {
	rc       io.ReadCloser
	r        *csv.Reader
	headers  []string
	row      int
	lastLine int
}

func newCSVRowReader(rc io.ReadCloser) (*csvRowReader, error) {
	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1

	headers, err := r.Read()
	if err != nil {
		rc.Close()
		if err == io.EOF {
			return nil, errors.New("missing header row")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	c := &csvRowReader{rc: rc, r: r, headers: normalizeHeaders(headers), row: 1}
	c.lastLine = c.recordEnd(headers)
	return c, nil
}

func (c *csvRowReader) recordEnd(record []string) int {
	last := len(record) - 1
	line, _ := c.r.FieldPos(last)
	return line + strings.Count(record[last], "\n")
}

func (c *csvRowReader) advance(startLine, endLine int) {
	skipped := startLine - c.lastLine - 1
	if skipped < 0 {
		skipped = 0
	}
	c.row += 1 + skipped
	c.lastLine = endLine
}

func (c *csvRowReader) Next() (RawRow, error) {
	for {
		record, err := c.r.Read()
		if err == io.EOF {
			return RawRow{}, io.EOF
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				c.advance(parseErr.StartLine, parseErr.Line)
				return RawRow{Number: c.row}, &MalformedRowError{Row: c.row, Err: err}
			}
			return RawRow{}, fmt.Errorf("error reading row %d: %w", c.row+1, err)
		}
		start, _ := c.r.FieldPos(0)
		c.advance(start, c.recordEnd(record))

		row := buildRow(c.headers, record, c.row)
		if row.blank() {
			continue
		}
		return row, nil
	}
}

func (c *csvRowReader) Close() error {
	return c.rc.Close()
}

type xlsxRowReader struct {
	f       *excelize.File
	rows    *excelize.Rows
	headers []string
	row     int
}

func newXLSXRowReader(r io.Reader) (*xlsxRowReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, errors.New("no sheets found in Excel file")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if !rows.Next() {
		rows.Close()
		f.Close()
		return nil, errors.New("missing header row")
	}
	headers, err := rows.Columns()
	if err != nil {
		rows.Close()
		f.Close()
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	return &xlsxRowReader{f: f, rows: rows, headers: normalizeHeaders(headers), row: 1}, nil
}

func (x *xlsxRowReader) Next() (RawRow, error) {
	for x.rows.Next() {
		x.row++
		cols, err := x.rows.Columns()
		if err != nil {
			return RawRow{Number: x.row}, &MalformedRowError{Row: x.row, Err: err}
		}
		row := buildRow(x.headers, cols, x.row)
		if row.blank() {
			continue
		}
		return row, nil
	}
	if err := x.rows.Error(); err != nil {
		return RawRow{}, fmt.Errorf("error reading row %d: %w", x.row+1, err)
	}
	return RawRow{}, io.EOF
}

func (x *xlsxRowReader) Close() error {
	x.rows.Close()
	return x.f.Close()
}
