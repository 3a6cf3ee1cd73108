package report

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// Metadata describes the upstream analysis run.
type Metadata struct {
	TotalComments         *int
	AnalysisDate          string
	ProcessingTimeMinutes *float64

	// Raw is the metadata object exactly as it appeared in a JSON report.
	Raw json.RawMessage
}

type metadataJSON struct {
	TotalComments         *int     `json:"total_comments,omitempty"`
	AnalysisDate          string   `json:"analysis_date,omitempty"`
	ProcessingTimeMinutes *float64 `json:"processing_time_minutes,omitempty"`
}

// MarshalJSON passes a JSON report's metadata through verbatim.
func (m Metadata) MarshalJSON() ([]byte, error) {
	if len(m.Raw) > 0 {
		return m.Raw, nil
	}
	return json.Marshal(metadataJSON{
		TotalComments:         m.TotalComments,
		AnalysisDate:          m.AnalysisDate,
		ProcessingTimeMinutes: m.ProcessingTimeMinutes,
	})
}

// LabelCount is the number of rows carrying one sentiment label.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Distribution is a label histogram in display order.
type Distribution []LabelCount

// MarshalJSON renders the histogram as an object whose keys keep display order.
func (d Distribution) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, lc := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(lc.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(lc.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Lookup returns the count for an exact label.
func (d Distribution) Lookup(label string) (int, bool) {
	for _, lc := range d {
		if lc.Label == label {
			return lc.Count, true
		}
	}
	return 0, false
}

// SentimentSummary is the report-level sentiment rollup. JSON reports carry
// their own; CSV reports get one computed at load time.
type SentimentSummary struct {
	Present            bool
	AverageConfidence  float64
	PositivePercentage float64
	NegativePercentage float64
	Distribution       Distribution

	Raw json.RawMessage
}

// MarshalJSON passes a JSON report's summary through verbatim.
func (s SentimentSummary) MarshalJSON() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	if !s.Present {
		return []byte("{}"), nil
	}
	dist := s.Distribution
	if dist == nil {
		dist = Distribution{}
	}
	return json.Marshal(struct {
		Distribution       Distribution `json:"distribution"`
		AverageConfidence  float64      `json:"average_confidence"`
		PositivePercentage float64      `json:"positive_percentage"`
		NegativePercentage float64      `json:"negative_percentage"`
	}{dist, s.AverageConfidence, s.PositivePercentage, s.NegativePercentage})
}

// CountLabels tallies labels over rows, most frequent first. Ties keep the
// order in which labels were first seen. Rows without a label are skipped.
func CountLabels(rows []Row) Distribution {
	index := make(map[string]int)
	var out Distribution
	for _, row := range rows {
		label, ok := row.Label()
		if !ok {
			continue
		}
		i, seen := index[label]
		if !seen {
			i = len(out)
			index[label] = i
			out = append(out, LabelCount{Label: label})
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// MeanScore averages the defined scores.
func MeanScore(rows []Row) (float64, bool) {
	var sum float64
	n := 0
	for _, row := range rows {
		if s, ok := row.Score(); ok {
			sum += s
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// computeSummary derives the summary for a CSV table. Percentages use the
// upper-case label when present and fall back to the lower-case one, over the
// full row count.
func computeSummary(t Table) SentimentSummary {
	if !t.HasColumn(ColumnLabel) {
		return SentimentSummary{}
	}
	dist := CountLabels(t.Rows)
	avg := 0.0
	if t.HasColumn(ColumnScore) {
		avg, _ = MeanScore(t.Rows)
	}
	total := t.Len()
	return SentimentSummary{
		Present:            true,
		AverageConfidence:  avg,
		PositivePercentage: percentage(labelCount(dist, "POSITIVE", "positive"), total),
		NegativePercentage: percentage(labelCount(dist, "NEGATIVE", "negative"), total),
		Distribution:       dist,
	}
}

func labelCount(d Distribution, primary, fallback string) int {
	if n, ok := d.Lookup(primary); ok {
		return n
	}
	n, _ := d.Lookup(fallback)
	return n
}

func percentage(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
