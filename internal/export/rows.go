// Package export writes extracted records as CSV or XLSX tables.
package export

import (
	"time"

	"github.com/joseph-ayodele/access-form-extractor/internal/schema"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Row is one exported form: its record plus where it came from.
type Row struct {
	Record    schema.Record
	Source    string
	Status    string
	CreatedAt time.Time
}

// RowsOf wraps bare records.
func RowsOf(recs ...schema.Record) []Row {
	out := make([]Row, len(recs))
	for i, r := range recs {
		out[i] = Row{Record: r}
	}
	return out
}
