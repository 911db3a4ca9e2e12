package importer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SmartjectsSheet is the workbook sheet the import data must live in.
const SmartjectsSheet = "smartjects"

// WorkbookInfo describes an XLSX file's structure for validation and the
// validate-xlsx tool.
type WorkbookInfo struct {
	Valid     bool     `json:"valid"`
	Sheets    []string `json:"sheets"`
	HasSheet  bool     `json:"has_smartjects_sheet"`
	RowCount  int      `json:"smartjects_rows"`
	Columns   []string `json:"smartjects_columns"`
	ErrorText string   `json:"error,omitempty"`
}

// ValidateWorkbook inspects an XLSX file without extracting its rows.
func ValidateWorkbook(content []byte) *WorkbookInfo {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return &WorkbookInfo{Valid: false, ErrorText: err.Error()}
	}
	defer f.Close()

	info := &WorkbookInfo{Sheets: f.GetSheetList()}
	for _, sheet := range info.Sheets {
		if sheet == SmartjectsSheet {
			info.HasSheet = true
		}
	}
	if !info.HasSheet {
		info.ErrorText = fmt.Sprintf("required sheet %q not found", SmartjectsSheet)
		return info
	}

	rows, err := f.GetRows(SmartjectsSheet)
	if err != nil {
		info.ErrorText = err.Error()
		return info
	}
	if len(rows) > 0 {
		info.Columns = rows[0]
		info.RowCount = len(rows) - 1
	}
	info.Valid = true
	return info
}

// ParseXLSX extracts the smartjects sheet into the same row shape ParseCSV
// produces, so the pipeline is format-agnostic.
func ParseXLSX(content []byte) ([]RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	found := false
	for _, sheet := range f.GetSheetList() {
		if sheet == SmartjectsSheet {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("sheet %q not found in workbook (available: %s)",
			SmartjectsSheet, strings.Join(f.GetSheetList(), ", "))
	}

	sheetRows, err := f.GetRows(SmartjectsSheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", SmartjectsSheet, err)
	}
	if len(sheetRows) < 2 {
		return nil, ErrEmptyFile
	}

	columns := make([]string, len(sheetRows[0]))
	hasName := false
	for i, h := range sheetRows[0] {
		columns[i] = strings.ToLower(strings.TrimSpace(h))
		if columns[i] == "name" {
			hasName = true
		}
	}
	if !hasName {
		return nil, ErrMissingNameColumn
	}

	var rows []RawRow
	for _, cells := range sheetRows[1:] {
		row := make(RawRow, len(columns))
		for i, col := range columns {
			if i < len(cells) {
				row[col] = cells[i]
			}
		}
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
