// Package render turns finished report tables into text: aligned terminal
// tables or CSV. Presentation only — every value arrives already rounded
// by the metric layer.
package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/metrika-lab/metrika/internal/report"
)

// Text writes an aligned table with a colored header. NULL cells render
// empty.
func Text(w io.Writer, t report.Table) error {
	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = len(col)
	}
	cells := make([][]string, len(t.Rows))
	for ri, r := range t.Rows {
		cells[ri] = make([]string, len(t.Columns))
		for ci, col := range t.Columns {
			s := r.Get(col).Display()
			cells[ri][ci] = s
			if len(s) > widths[ci] {
				widths[ci] = len(s)
			}
		}
	}

	title := color.New(color.FgCyan, color.Bold)
	header := color.New(color.Bold)
	if _, err := title.Fprintf(w, "== %s ==\n", t.Name); err != nil {
		return err
	}

	headerCells := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		headerCells[i] = pad(col, widths[i])
	}
	if _, err := header.Fprintln(w, strings.Join(headerCells, "  ")); err != nil {
		return err
	}

	rule := make([]string, len(t.Columns))
	for i, width := range widths {
		rule[i] = strings.Repeat("-", width)
	}
	if _, err := fmt.Fprintln(w, strings.Join(rule, "  ")); err != nil {
		return err
	}

	for _, rowCells := range cells {
		for i := range rowCells {
			rowCells[i] = pad(rowCells[i], widths[i])
		}
		if _, err := fmt.Fprintln(w, strings.Join(rowCells, "  ")); err != nil {
			return err
		}
	}
	return nil
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// CSV writes the table as delimited text, header row first.
func CSV(w io.Writer, t report.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	cells := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, col := range t.Columns {
			cells[i] = r.Get(col).Display()
		}
		if err := cw.Write(cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
