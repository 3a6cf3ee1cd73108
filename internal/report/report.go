package report

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Recognized columns. Any other column is carried through untouched.
const (
	ColumnComment = "comment"
	ColumnLabel   = "sentiment_label"
	ColumnScore   = "sentiment_score"
	ColumnSummary = "summary"
)

// Value is a single cell. Text holds the cell exactly as it should be written
// back out; Valid is false for missing cells.
type Value struct {
	Text  string
	Valid bool
}

// Null returns a missing cell.
func Null() Value { return Value{} }

// Text returns a present cell.
func Text(s string) Value { return Value{Text: s, Valid: true} }

// Float parses the cell as a decimal number. Missing, non-numeric, hex, NaN
// and infinite cells are reported as undefined.
func (v Value) Float() (float64, bool) {
	if !v.Valid {
		return 0, false
	}
	s := strings.TrimSpace(v.Text)
	if isHexNumber(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// isHexNumber matches the hex float spellings ParseFloat accepts but which
// are text in a report, such as 0x1p-1.
func isHexNumber(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// Row is one analyzed comment keyed by column name. Rows are shared between a
// Table and the views derived from it and must not be modified after load.
type Row map[string]Value

// Get returns the cell for col, or a missing cell.
func (r Row) Get(col string) Value { return r[col] }

// Comment returns the free-text comment.
func (r Row) Comment() (string, bool) {
	v := r[ColumnComment]
	return v.Text, v.Valid
}

// Label returns the sentiment label.
func (r Row) Label() (string, bool) {
	v := r[ColumnLabel]
	return v.Text, v.Valid
}

// Score returns the classifier confidence.
func (r Row) Score() (float64, bool) {
	return r[ColumnScore].Float()
}

// Table is the ordered set of rows from one loaded file. Columns keep the
// order in which they were first seen in the source.
type Table struct {
	Columns []string
	Rows    []Row
}

// Len returns the row count.
func (t Table) Len() int { return len(t.Rows) }

// HasColumn reports whether the table carries the named column.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// WithRows returns a table with the same columns over a different row set.
func (t Table) WithRows(rows []Row) Table {
	return Table{Columns: t.Columns, Rows: rows}
}

// Report is the canonical result of one load.
type Report struct {
	Format         Format
	Table          Table
	Metadata       Metadata
	Summary        SentimentSummary
	Visualizations Visualizations
	LoadedAt       time.Time
}
