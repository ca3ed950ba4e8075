package parser

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

// ErrMalformedInput is returned when the input has no header row or no data
// rows, or cannot be read as tabular data at all.
var ErrMalformedInput = errors.New("malformed input")

// ParsedFile is the normalized output of a parse: the header row plus every
// data row keyed by header. Parsing is deterministic: same bytes always yield
// the same headers and rows.
type ParsedFile struct {
	Headers []string
	Rows    []map[string]string
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse turns raw CSV bytes into headers plus rows. It strips a UTF-8 BOM,
// sniffs comma vs tab delimiters, trims every field and skips blank lines.
func Parse(raw []byte) (*ParsedFile, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	if delimiter(raw) == '\t' {
		r.Comma = '\t'
	}

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read header row: %v", ErrMalformedInput, err)
	}
	headers := trimAll(header)
	if blank(headers) {
		return nil, fmt.Errorf("%w: header row is empty", ErrMalformedInput)
	}

	var rows []map[string]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		record = trimAll(record)
		if blank(record) {
			continue
		}
		rows = append(rows, zipRow(headers, record))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrMalformedInput)
	}
	return &ParsedFile{Headers: headers, Rows: rows}, nil
}

// ParseWorkbook reads the first sheet of an XLSX workbook into the same shape
// Parse produces. Brokers increasingly export .xlsx instead of .csv.
func ParseWorkbook(raw []byte) (*ParsedFile, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open workbook: %v", ErrMalformedInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformedInput)
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: header row is empty", ErrMalformedInput)
	}

	headers := trimAll(records[0])
	if blank(headers) {
		return nil, fmt.Errorf("%w: header row is empty", ErrMalformedInput)
	}
	var rows []map[string]string
	for _, record := range records[1:] {
		record = trimAll(record)
		if blank(record) {
			continue
		}
		rows = append(rows, zipRow(headers, record))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrMalformedInput)
	}
	return &ParsedFile{Headers: headers, Rows: rows}, nil
}

// ParseAuto dispatches on the file extension: .xlsx goes through the workbook
// path, everything else is treated as CSV.
func ParseAuto(filename string, raw []byte) (*ParsedFile, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return ParseWorkbook(raw)
	}
	return Parse(raw)
}

// SampleRows returns up to n rows for inference sampling.
func (p *ParsedFile) SampleRows(n int) []map[string]string {
	if len(p.Rows) <= n {
		return p.Rows
	}
	return p.Rows[:n]
}

func delimiter(raw []byte) rune {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	if !bytes.ContainsRune(line, ',') && bytes.ContainsRune(line, '\t') {
		return '\t'
	}
	return ','
}

func trimAll(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.TrimSpace(f)
	}
	return out
}

func blank(fields []string) bool {
	for _, f := range fields {
		if f != "" {
			return false
		}
	}
	return true
}

func zipRow(headers, record []string) map[string]string {
	row := make(map[string]string, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		if i < len(record) {
			row[h] = record[i]
		} else {
			row[h] = ""
		}
	}
	return row
}
