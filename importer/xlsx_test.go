package importer

import (
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, sheet string, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	content := buildWorkbook(t, SmartjectsSheet, [][]interface{}{
		{"Name", "Industries", "Team"},
		{"Smart Energy Monitor", "['Energy']", "MIT, Stanford University"},
		{"", "ignored", ""},
		{"Water Tracker", "['Utilities']", ""},
	})

	rows, err := ParseXLSX(content)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Get("name") != "Smart Energy Monitor" {
		t.Fatalf("name = %q", rows[0].Get("name"))
	}
	if rows[0].Get("team") != "MIT, Stanford University" {
		t.Fatalf("team = %q", rows[0].Get("team"))
	}
}

func TestParseXLSXMissingSheet(t *testing.T) {
	content := buildWorkbook(t, "data", [][]interface{}{
		{"Name"},
		{"A"},
	})
	if _, err := ParseXLSX(content); err == nil {
		t.Fatalf("expected missing-sheet error")
	}
}

func TestParseXLSXHeaderOnly(t *testing.T) {
	content := buildWorkbook(t, SmartjectsSheet, [][]interface{}{
		{"Name", "Industries"},
	})
	if _, err := ParseXLSX(content); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("got %v", err)
	}
}

func TestValidateWorkbook(t *testing.T) {
	content := buildWorkbook(t, SmartjectsSheet, [][]interface{}{
		{"Name", "Industries"},
		{"A", "['Energy']"},
		{"B", "['Energy']"},
	})
	info := ValidateWorkbook(content)
	if !info.Valid || !info.HasSheet {
		t.Fatalf("info = %+v", info)
	}
	if info.RowCount != 2 || len(info.Columns) != 2 {
		t.Fatalf("info = %+v", info)
	}

	info = ValidateWorkbook(buildWorkbook(t, "data", [][]interface{}{{"Name"}}))
	if info.Valid || info.HasSheet || info.ErrorText == "" {
		t.Fatalf("info = %+v", info)
	}

	info = ValidateWorkbook([]byte("not a workbook"))
	if info.Valid || info.ErrorText == "" {
		t.Fatalf("info = %+v", info)
	}
}
