// validate-xlsx checks whether an XLSX workbook is importable: the file
// must open, contain a "smartjects" sheet, and carry a "name" column.
// No database connection is needed.
//
// Usage:
//   go run ./cmd/validate-xlsx file.xlsx [file2.xlsx ...]
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/smartjects/importer_backend/config"
	"github.com/smartjects/importer_backend/importer"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: validate-xlsx file.xlsx [file2.xlsx ...]")
		os.Exit(2)
	}

	maxSize := config.GetBotConfig().MaxFileSize
	exitCode := 0
	for _, path := range os.Args[1:] {
		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			exitCode = 1
			continue
		}
		if err := importer.CheckFileSize(int64(len(content)), maxSize); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			exitCode = 1
			continue
		}

		info := importer.ValidateWorkbook(content)
		out, _ := json.MarshalIndent(info, "", "  ")
		fmt.Printf("%s:\n%s\n", path, out)
		if !info.Valid {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}
