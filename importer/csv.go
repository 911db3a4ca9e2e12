package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Acquisition failures abort the whole run before any row is processed.
var (
	ErrFileTooLarge      = errors.New("file exceeds the maximum accepted size")
	ErrEmptyFile         = errors.New("file contains no data rows")
	ErrMissingNameColumn = errors.New("file has no name column")
)

// RawRow maps normalized column names to cell values. Header names are
// trimmed and lowercased at parse time, which also absorbs the trailing
// space some exports carry in the "mission " header.
type RawRow map[string]string

func (r RawRow) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// CheckFileSize enforces the acquisition cap before any parsing happens.
func CheckFileSize(size int64, maxSize int64) error {
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, size, maxSize)
	}
	return nil
}

// ParseCSV reads delimiter-separated content into rows. The delimiter is
// sniffed from the header line: semicolon when present, comma otherwise.
func ParseCSV(content []byte) ([]RawRow, error) {
	firstLine, _, _ := strings.Cut(string(content), "\n")
	delimiter := ','
	if strings.Contains(firstLine, ";") {
		delimiter = ';'
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	hasName := false
	for i, h := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		if columns[i] == "name" {
			hasName = true
		}
	}
	if !hasName {
		return nil, ErrMissingNameColumn
	}

	var rows []RawRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}

		row := make(RawRow, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		// Rows without a name are export artifacts, not data.
		if row.Get("name") == "" {
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}
