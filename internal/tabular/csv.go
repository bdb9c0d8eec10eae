package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const sniffBytes = 2048

// delimiters are tried in this order; ties go to the earlier one.
var delimiters = []rune{',', ';', '\t', '|'}

// ReadCSV decodes a CSV stream. A UTF-8 or UTF-16 byte order mark is honoured
// and stripped, and the delimiter is sniffed from the header line.
func ReadCSV(r io.Reader) (*Table, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	br := bufio.NewReaderSize(decoded, sniffBytes)
	sample, err := br.Peek(sniffBytes)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	cr := csv.NewReader(br)
	cr.Comma = SniffDelimiter(sample)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse csv: %w: empty input", ErrMissingColumns)
	}
	t := NewTable(records[0]...)
	for _, rec := range records[1:] {
		if isBlankRecord(rec) {
			continue
		}
		t.Append(rec...)
	}
	return t, nil
}

// SniffDelimiter picks the candidate delimiter that occurs most often in the
// first line of sample, outside quotes. It falls back to a comma.
func SniffDelimiter(sample []byte) rune {
	if i := bytes.IndexAny(sample, "\r\n"); i >= 0 {
		sample = sample[:i]
	}
	counts := make(map[rune]int, len(delimiters))
	quoted := false
	for _, r := range string(sample) {
		if r == '"' {
			quoted = !quoted
			continue
		}
		if !quoted {
			counts[r]++
		}
	}
	best, bestCount := ',', 0
	for _, d := range delimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

// WriteCSV writes t as comma-separated UTF-8 without a byte order mark.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(pad(row, len(t.Header))); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}

func pad(row []string, n int) []string {
	if len(row) >= n {
		return row
	}
	out := make([]string, n)
	copy(out, row)
	return out
}
