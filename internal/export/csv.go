package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV streams shaped rows to w as they're drained, matching
// §4.7.1's "no full materialisation beyond one page" note — the
// Shaped struct already holds the one page a Query/Aggregate call
// returns, and this writer never buffers a second copy of it.
func WriteCSV(w io.Writer, s *Shaped) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(s.Headers))
	for _, row := range s.Rows {
		for i, h := range s.Headers {
			record[i] = formatCell(row[h])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
