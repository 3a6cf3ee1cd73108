package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Format is the declared encoding of an uploaded report.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseError is the only failure a load can produce. It carries the
// underlying parser error.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("parse report: %v", e.Err)
	}
	return fmt.Sprintf("parse %s report: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseFormat resolves a declared format, file name or MIME type.
func ParseFormat(declared string) (Format, error) {
	s := strings.ToLower(strings.TrimSpace(declared))
	if mt, _, err := mime.ParseMediaType(s); err == nil && strings.Contains(mt, "/") {
		s = mt
	}
	switch {
	case s == "json", s == "application/json", s == "text/json", filepath.Ext(s) == ".json":
		return FormatJSON, nil
	case s == "csv", s == "text/csv", s == "application/csv", filepath.Ext(s) == ".csv":
		return FormatCSV, nil
	}
	return "", &ParseError{Err: fmt.Errorf("unsupported report format %q", declared)}
}

// Load turns raw bytes into a Report. now stamps the synthesized analysis date
// of CSV reports. On failure nothing is returned but a *ParseError.
func Load(data []byte, format Format, now time.Time) (*Report, error) {
	var (
		rep *Report
		err error
	)
	switch format {
	case FormatJSON:
		rep, err = loadJSON(data)
	case FormatCSV:
		rep, err = loadCSV(data, now)
	default:
		return nil, &ParseError{Format: format, Err: errors.New("unsupported report format")}
	}
	if err != nil {
		return nil, &ParseError{Format: format, Err: err}
	}
	rep.Format = format
	rep.LoadedAt = now
	return rep, nil
}

func loadJSON(data []byte) (*Report, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !gjson.ValidBytes(data) {
		var probe any
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, err
		}
		return nil, errors.New("invalid JSON document")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, errors.New("report must be a JSON object")
	}
	table, err := tableFromJSON(doc.Get("data"))
	if err != nil {
		return nil, err
	}
	return &Report{
		Table:          table,
		Metadata:       metadataFromJSON(doc.Get("metadata")),
		Summary:        summaryFromJSON(doc.Get("sentiment_analysis")),
		Visualizations: visualizationsFromJSON(doc.Get("visualizations")),
	}, nil
}

func tableFromJSON(data gjson.Result) (Table, error) {
	var t Table
	if !data.Exists() || data.Type == gjson.Null {
		return t, nil
	}
	if !data.IsArray() {
		return t, errors.New(`"data" must be an array of objects`)
	}
	seen := make(map[string]bool)
	var err error
	i := 0
	data.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			err = fmt.Errorf("data[%d] is not an object", i)
			return false
		}
		row := make(Row)
		item.ForEach(func(key, val gjson.Result) bool {
			col := key.String()
			if !seen[col] {
				seen[col] = true
				t.Columns = append(t.Columns, col)
			}
			row[col] = valueFromJSON(val)
			return true
		})
		t.Rows = append(t.Rows, row)
		i++
		return true
	})
	if err != nil {
		return Table{}, err
	}
	return t, nil
}

func valueFromJSON(v gjson.Result) Value {
	switch v.Type {
	case gjson.Null:
		return Null()
	case gjson.String:
		return Text(v.Str)
	default:
		return Text(v.Raw)
	}
}

func metadataFromJSON(r gjson.Result) Metadata {
	if !r.IsObject() {
		return Metadata{}
	}
	m := Metadata{Raw: json.RawMessage(r.Raw)}
	if v := r.Get("total_comments"); v.Type == gjson.Number {
		n := int(v.Int())
		m.TotalComments = &n
	}
	if v := r.Get("analysis_date"); v.Type == gjson.String {
		m.AnalysisDate = v.Str
	}
	if v := r.Get("processing_time_minutes"); v.Type == gjson.Number {
		f := v.Float()
		m.ProcessingTimeMinutes = &f
	}
	return m
}

func summaryFromJSON(r gjson.Result) SentimentSummary {
	if !r.IsObject() {
		return SentimentSummary{}
	}
	s := SentimentSummary{Present: true, Raw: json.RawMessage(r.Raw)}
	if v := r.Get("average_confidence"); v.Type == gjson.Number {
		s.AverageConfidence = v.Float()
	}
	if v := r.Get("positive_percentage"); v.Type == gjson.Number {
		s.PositivePercentage = v.Float()
	}
	if v := r.Get("negative_percentage"); v.Type == gjson.Number {
		s.NegativePercentage = v.Float()
	}
	if dist := r.Get("distribution"); dist.IsObject() {
		dist.ForEach(func(key, val gjson.Result) bool {
			if val.Type == gjson.Number {
				s.Distribution = append(s.Distribution, LabelCount{Label: key.String(), Count: int(val.Int())})
			}
			return true
		})
	}
	return s
}

func visualizationsFromJSON(r gjson.Result) Visualizations {
	if !r.IsObject() {
		return Visualizations{}
	}
	v := Visualizations{Raw: json.RawMessage(r.Raw)}
	if wc := r.Get("wordcloud"); wc.Type == gjson.String {
		v.WordCloud = wc.Str
	}
	return v
}

// Cell spellings read as missing, matching what upstream tooling writes for NaN.
var naValues = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true, "-1.#QNAN": true,
	"-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true, "<NA>": true, "N/A": true,
	"NA": true, "NULL": true, "NaN": true, "None": true, "n/a": true, "nan": true, "null": true,
}

func loadCSV(data []byte, now time.Time) (*Report, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if line, open := unterminatedQuote(data); open {
		return nil, fmt.Errorf("line %d: EOF inside quoted field", line)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var t Table
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if t.Columns == nil {
			t.Columns = headerColumns(rec)
			continue
		}
		if len(rec) > len(t.Columns) {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(t.Columns), len(rec))
		}
		row := make(Row, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(rec) && !naValues[rec[i]] {
				row[col] = Text(rec[i])
			} else {
				row[col] = Null()
			}
		}
		t.Rows = append(t.Rows, row)
	}
	if t.Columns == nil {
		return nil, errors.New("no columns to parse from file")
	}

	total := t.Len()
	return &Report{
		Table: t,
		Metadata: Metadata{
			TotalComments: &total,
			AnalysisDate:  now.Format(time.RFC3339),
		},
		Summary: computeSummary(t),
	}, nil
}

// headerColumns names blank headers by position and suffixes duplicates so
// every column stays addressable.
func headerColumns(rec []string) []string {
	cols := make([]string, len(rec))
	used := make(map[string]int)
	for i, name := range rec {
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for used[name] > 0 {
			name = fmt.Sprintf("%s.%d", base, used[base])
			used[base]++
		}
		used[name]++
		cols[i] = name
	}
	return cols
}

// unterminatedQuote reports whether a quoted field is still open at the end of
// data, and the line it opened on. Quotes that do not start a field are
// literal text.
func unterminatedQuote(data []byte) (int, bool) {
	const (
		fieldStart = iota
		unquoted
		quoted
		quoteInQuoted
	)
	state := fieldStart
	line, openLine := 1, 0
	for _, b := range data {
		switch state {
		case fieldStart:
			switch b {
			case '"':
				state = quoted
				openLine = line
			case ',', '\r', '\n':
			default:
				state = unquoted
			}
		case unquoted:
			if b == ',' || b == '\n' {
				state = fieldStart
			}
		case quoted:
			if b == '"' {
				state = quoteInQuoted
			}
		case quoteInQuoted:
			switch b {
			case '"':
				state = quoted
			case ',', '\n':
				state = fieldStart
			case '\r':
			default:
				state = unquoted
			}
		}
		if b == '\n' {
			line++
		}
	}
	return openLine, state == quoted
}
