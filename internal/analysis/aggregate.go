// Package analysis filters a loaded table and derives the aggregates shown
// alongside it. Everything here is a pure function of its arguments.
package analysis

import (
	"sentiment_dashboard/internal/report"
)

// Options tunes the aggregates.
type Options struct {
	TopWords        int
	SamplesPerLabel int
	StopWords       []string
}

// DefaultOptions returns the stock ranking sizes and stop words.
func DefaultOptions() Options {
	return Options{
		TopWords:        20,
		SamplesPerLabel: 5,
		StopWords:       append([]string(nil), DefaultStopWords...),
	}
}

// LabelSamples holds the first comments seen under one label.
type LabelSamples struct {
	Label    string   `json:"label"`
	Comments []string `json:"comments"`
}

// Result is a filtered view plus its aggregates.
type Result struct {
	View    report.Table `json:"-"`
	Showing int          `json:"showing"`
	Total   int          `json:"total"`

	CategoryCounts report.Distribution `json:"category_counts"`
	ScoreStats     ScoreStats          `json:"score_stats"`
	ScoreByLabel   []LabelScoreStats   `json:"score_by_label,omitempty"`
	Histogram      []Bin               `json:"histogram,omitempty"`
	WordFrequency  []WordCount         `json:"word_frequency"`
	Samples        []LabelSamples      `json:"samples"`
}

// FilterAndAggregate applies c to t and computes the aggregates over the
// surviving rows. It never fails: missing columns yield empty aggregates.
func FilterAndAggregate(t report.Table, c Criteria, opts Options) Result {
	view := Filter(t, c)
	res := Result{
		View:    view,
		Showing: view.Len(),
		Total:   t.Len(),
	}
	hasLabel := view.HasColumn(report.ColumnLabel)
	hasScore := view.HasColumn(report.ColumnScore)
	hasComment := view.HasColumn(report.ColumnComment)

	if hasLabel {
		res.CategoryCounts = report.CountLabels(view.Rows)
	}
	if hasScore {
		res.ScoreStats = Stats(view.Rows)
		res.Histogram = Histogram(view.Rows)
		if hasLabel {
			res.ScoreByLabel = StatsByLabel(view.Rows)
		}
	}
	if hasComment {
		res.WordFrequency = TopWords(view.Rows, StopWordSet(opts.StopWords), opts.TopWords)
		if hasLabel {
			res.Samples = Samples(view.Rows, opts.SamplesPerLabel)
		}
	}
	return res
}

// Samples returns, per label in first-seen order, the first n comments under
// that label. Rows without a comment are skipped.
func Samples(rows []report.Row, n int) []LabelSamples {
	if n <= 0 {
		return nil
	}
	labels := DistinctLabels(rows)
	index := make(map[string]int, len(labels))
	out := make([]LabelSamples, len(labels))
	for i, l := range labels {
		index[l] = i
		out[i] = LabelSamples{Label: l, Comments: []string{}}
	}
	for _, row := range rows {
		label, ok := row.Label()
		if !ok {
			continue
		}
		comment, ok := row.Comment()
		if !ok {
			continue
		}
		s := &out[index[label]]
		if len(s.Comments) < n {
			s.Comments = append(s.Comments, comment)
		}
	}
	return out
}
