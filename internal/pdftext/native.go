package pdftext

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// horizontal gaps are measured in multiples of the font size
	cellGapFactor  = 1.5
	spaceGapFactor = 0.2
)

// readNative extracts text with the pure Go reader, row by row, so table
// cells on one line stay on one line separated by " | ".
func readNative(path string, maxPages int) (text string, pages int, err error) {
	// the reader panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	total := r.NumPage()
	if maxPages > 0 && total > maxPages {
		total = maxPages
	}

	var b strings.Builder
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pages++
		rows, rowErr := page.GetTextByRow()
		if rowErr != nil {
			// fall back to the plain stream for this page
			plain, plainErr := page.GetPlainText(nil)
			if plainErr != nil {
				return "", pages, fmt.Errorf("page %d: %w", i, rowErr)
			}
			b.WriteString(plain)
			b.WriteString("\n\f")
			continue
		}
		// PDF coordinates grow upwards
		sort.SliceStable(rows, func(a, c int) bool { return rows[a].Position > rows[c].Position })
		for _, row := range rows {
			line := joinRow(row.Content)
			if strings.TrimSpace(line) == "" {
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteByte('\f')
	}
	return b.String(), pages, nil
}

// joinRow joins the text runs of one row from left to right. Small gaps
// become a space, wide gaps a cell marker.
func joinRow(texts []pdf.Text) string {
	runs := make([]pdf.Text, len(texts))
	copy(runs, texts)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

	var b strings.Builder
	var prevEnd float64
	lastSpace := true
	for i, t := range runs {
		if t.S == "" {
			continue
		}
		if i > 0 {
			size := t.FontSize
			if size <= 0 {
				size = 10
			}
			gap := t.X - prevEnd
			switch {
			case gap > size*cellGapFactor:
				b.WriteString(" | ")
				lastSpace = true
			case gap > size*spaceGapFactor && !lastSpace && t.S != " ":
				b.WriteByte(' ')
				lastSpace = true
			}
		}
		b.WriteString(t.S)
		lastSpace = strings.HasSuffix(t.S, " ")
		prevEnd = t.X + t.W
	}
	return b.String()
}
