package tabular

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format is the on-disk encoding, chosen by file extension.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// ReadFile reads a CSV or XLSX file based on its extension.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	if FormatOf(path) == FormatXLSX {
		return ReadXLSX(f)
	}
	return ReadCSV(f)
}

// WriteFile writes t next to path and renames it into place, so a failed
// write never leaves a partial output file.
func WriteFile(path string, t *Table) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".devicelink-*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if FormatOf(path) == FormatXLSX {
		err = WriteXLSX(tmp, t, "Results")
	} else {
		err = WriteCSV(tmp, t)
	}
	if err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move output into place: %w", err)
	}
	return nil
}
