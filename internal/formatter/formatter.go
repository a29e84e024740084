// Package formatter serializes a ScrapeResult for display, copy and download.
// Every function here is pure.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raysh454/scrapeform/internal/model"
)

// Format renders r in format f. Unknown formats render as JSON.
func Format(r *model.ScrapeResult, f model.OutputFormat) string {
	switch model.ParseFormat(string(f)) {
	case model.FormatCSV:
		return CSV(r)
	case model.FormatText:
		return Text(r)
	default:
		return JSON(r)
	}
}

// JSON pretty-prints r with two-space indentation in category order.
func JSON(r *model.ScrapeResult) string {
	compact, err := r.MarshalJSON()
	if err != nil {
		// string slices always encode
		return "null"
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return string(compact)
	}
	return out.String()
}

// CSV writes a header of category names followed by one row per index up
// to the longest category. Short categories contribute empty cells.
// Values are not quoted.
func CSV(r *model.ScrapeResult) string {
	if r.Len() == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.Join(r.Categories(), ","))
	b.WriteByte('\n')

	for i, n := 0, r.MaxLen(); i < n; i++ {
		row := make([]string, 0, r.Len())
		r.Each(func(_ string, values []string) {
			if i < len(values) {
				row = append(row, values[i])
			} else {
				row = append(row, "")
			}
		})
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	return b.String()
}

// Text writes each category as a "=== NAME ===" block followed by its values
// one per line and a blank separator line.
func Text(r *model.ScrapeResult) string {
	var b strings.Builder
	r.Each(func(category string, values []string) {
		fmt.Fprintf(&b, "=== %s ===\n", strings.ToUpper(category))
		b.WriteString(strings.Join(values, "\n"))
		b.WriteString("\n\n")
	})
	return b.String()
}

// RFC4180 is the quoted CSV variant. It has the same shape as CSV but fields
// containing commas, quotes or newlines are quoted. It is not what Format
// produces for model.FormatCSV.
func RFC4180(r *model.ScrapeResult) (string, error) {
	if r.Len() == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(r.Categories()); err != nil {
		return "", fmt.Errorf("writing csv header: %w", err)
	}
	for i, n := 0, r.MaxLen(); i < n; i++ {
		row := make([]string, 0, r.Len())
		r.Each(func(_ string, values []string) {
			cell := ""
			if i < len(values) {
				cell = values[i]
			}
			row = append(row, cell)
		})
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("writing csv row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing csv: %w", err)
	}
	return buf.String(), nil
}
