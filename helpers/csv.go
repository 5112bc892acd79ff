package helpers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spektr-org/tally/engine"
)

// ============================================================================
// CSV HELPER - Stats sheet exports in and reports out
// ============================================================================
// Header cells are kept as written. engine.NewRowView normalizes them, so
// "Total Attendance" and "total_attendance" exports both read the same.
// ============================================================================

// ParseRowsCSV parses a stats export into rows, one per data line.
// Blank lines and short rows are tolerated; malformed lines are skipped.
func ParseRowsCSV(data []byte) ([]engine.Row, error) {
	return ReadRowsCSV(bytes.NewReader(data))
}

// ReadRowsCSV is ParseRowsCSV over a reader.
func ReadRowsCSV(r io.Reader) ([]engine.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(headers[i], "\ufeff"))
	}

	var rows []engine.Row
	for {
		line, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}

		row := make(engine.Row, len(headers))
		blank := true
		for i, val := range line {
			if i >= len(headers) || headers[i] == "" {
				break
			}
			val = strings.TrimSpace(val)
			if val != "" {
				blank = false
			}
			row[headers[i]] = val
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// LoadRowsCSV reads a stats export from disk.
func LoadRowsCSV(path string) ([]engine.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadRowsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return rows, nil
}

// ParseCSVView parses CSV into a RecordView (convenience wrapper).
func ParseCSVView(data []byte) (engine.RecordView, error) {
	rows, err := ParseRowsCSV(data)
	if err != nil {
		return nil, err
	}
	return engine.NewRowView(rows), nil
}

// ============================================================================
// WRITERS
// ============================================================================

// WriteReportCSV writes report rows with a header line.
func WriteReportCSV(w io.Writer, rows []engine.ReportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"location", "period", "year", "metric", "label", "total", "average", "count"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Location,
			r.Period,
			strconv.Itoa(r.Year),
			r.Key,
			r.Label,
			strconv.Itoa(r.Total),
			strconv.FormatFloat(r.Average, 'f', 2, 64),
			strconv.Itoa(r.Count),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRowsCSV writes rows with the union of their columns, sorted, except
// location and timestamp which lead.
func WriteRowsCSV(w io.Writer, rows []engine.Row) error {
	seen := make(map[string]bool)
	var rest []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] && k != "location" && k != "timestamp" {
				rest = append(rest, k)
			}
			seen[k] = true
		}
	}
	sort.Strings(rest)
	columns := append([]string{"location", "timestamp"}, rest...)

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, r := range rows {
		record := make([]string, len(columns))
		for i, c := range columns {
			record[i] = r[c]
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
