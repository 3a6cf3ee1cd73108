package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

// ExportCSV writes the table back out as header plus rows, in the table's
// column order. Missing cells are written empty, so a present empty string
// reads back as missing.
func ExportCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, err
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			v := row[col]
			if v.Valid {
				rec[i] = v.Text
			} else {
				rec[i] = ""
			}
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportFilename names a download, e.g. filtered_analysis_results_20250101_120000.csv.
func ExportFilename(scope string, now time.Time) string {
	return fmt.Sprintf("%s_analysis_results_%s.csv", scope, now.Format("20060102_150405"))
}
