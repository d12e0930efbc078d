package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/joseph-ayodele/access-form-extractor/internal/schema"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type CSVOptions struct {
	BOM   bool // prefix a UTF-8 byte order mark so spreadsheet tools detect the encoding
	Comma rune // default ','
}

// WriteCSV writes the alias header then one line per row, columns in form
// order. Set fields are joined with ", ".
func WriteCSV(w io.Writer, rows []Row, opts CSVOptions) error {
	if opts.BOM {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("csv bom: %w", err)
		}
	}
	cw := csv.NewWriter(w)
	if opts.Comma != 0 {
		cw.Comma = opts.Comma
	}
	if err := cw.Write(schema.Aliases()); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	for i, r := range rows {
		if err := cw.Write(r.Record.Row()); err != nil {
			return fmt.Errorf("csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv flush: %w", err)
	}
	return nil
}
