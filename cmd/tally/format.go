package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spektr-org/tally/catalog"
	"github.com/spektr-org/tally/engine"
	"github.com/spektr-org/tally/helpers"
)

// ============================================================================
// OUTPUT FORMATS
// ============================================================================

var formats = map[string]bool{"json": true, "pretty": true, "text": true, "csv": true}

func parseFormat(f string) (string, error) {
	f = strings.ToLower(strings.TrimSpace(f))
	if !formats[f] {
		return "", fmt.Errorf("unsupported format %q (json, pretty, text, csv)", f)
	}
	return f, nil
}

func writeResponse(w io.Writer, resp *engine.Response, format string) error {
	switch format {
	case "csv":
		return writeResponseCSV(w, resp)
	case "text":
		return writeResponseText(w, resp)
	}
	return writeJSON(w, resp, format)
}

func writeResponseText(w io.Writer, resp *engine.Response) error {
	lines := []string{resp.Text}
	if resp.Narrative != "" {
		lines = append(lines, "", resp.Narrative)
	}
	if resp.Table != nil && len(resp.Table.Rows) > 0 {
		lines = append(lines, "", renderTable(resp.Table))
	}
	if len(resp.Suggestions) > 0 {
		lines = append(lines, "")
		for _, s := range resp.Suggestions {
			lines = append(lines, "  - "+s)
		}
	}
	if resp.RecordID != "" {
		lines = append(lines, "", "recorded as "+resp.RecordID)
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

// writeResponseCSV prefers the report rows, then the table, then the
// reply as a one-cell sheet.
func writeResponseCSV(w io.Writer, resp *engine.Response) error {
	if len(resp.Report) > 0 {
		return helpers.WriteReportCSV(w, resp.Report)
	}

	cw := csv.NewWriter(w)
	if resp.Table != nil && len(resp.Table.Columns) > 0 {
		header := make([]string, len(resp.Table.Columns))
		for i, c := range resp.Table.Columns {
			header[i] = c.Label
		}
		cw.Write(header)
		for _, row := range resp.Table.Rows {
			cw.Write(row)
		}
	} else {
		cw.Write([]string{"reply"})
		cw.Write([]string{resp.Text})
	}
	cw.Flush()
	return cw.Error()
}

func writeExtract(w io.Writer, out extractOutput, metrics *catalog.MetricCatalog, format string) error {
	switch format {
	case "json", "pretty":
		return writeJSON(w, out, format)
	}

	keys := make([]string, 0, len(out.Extracted))
	for k := range out.Extracted {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return metrics.Position(keys[i]) < metrics.Position(keys[j]) })

	if format == "csv" {
		cw := csv.NewWriter(w)
		cw.Write([]string{"location", "metric", "label", "value"})
		for _, k := range keys {
			cw.Write([]string{out.Location, k, metrics.Label(k), strconv.Itoa(out.Extracted[k])})
		}
		cw.Flush()
		return cw.Error()
	}

	if len(keys) == 0 {
		_, err := fmt.Fprintln(w, "No stats found.")
		return err
	}
	if out.Location != "" {
		fmt.Fprintf(w, "%s\n", out.Location)
	}
	for _, k := range keys {
		fmt.Fprintf(w, "  %-24s %d\n", metrics.Label(k), out.Extracted[k])
	}
	if len(out.Missing) > 0 {
		fmt.Fprintf(w, "Anything for %s?\n", strings.Join(out.Missing, ", "))
	}
	return nil
}

func writeJSON(w io.Writer, v any, format string) error {
	var (
		out []byte
		err error
	)
	if format == "pretty" {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// renderTable lays a table out in padded columns.
func renderTable(t *engine.TableData) string {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = len(c.Label)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(t.Title + "\n")
	}
	line := func(cells []string, right func(int) bool) {
		var l strings.Builder
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if right(i) {
				fmt.Fprintf(&l, "%*s  ", widths[i], cell)
			} else {
				fmt.Fprintf(&l, "%-*s  ", widths[i], cell)
			}
		}
		b.WriteString(strings.TrimRight(l.String(), " ") + "\n")
	}

	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Label
	}
	isRight := func(i int) bool { return t.Columns[i].Align == "right" }
	line(header, isRight)
	for _, row := range t.Rows {
		line(row, isRight)
	}
	return strings.TrimRight(b.String(), "\n")
}
