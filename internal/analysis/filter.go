package analysis

import (
	"sentiment_dashboard/internal/report"
)

// Criteria selects rows from a table. A nil or empty AllowedLabels admits every
// label.
type Criteria struct {
	AllowedLabels []string `json:"allowed_labels,omitempty"`
	MinScore      float64  `json:"min_score"`
}

// FilterControls describes which filters make sense for a table and their
// starting values.
type FilterControls struct {
	Labels        []string `json:"labels,omitempty"`
	LabelFilter   bool     `json:"label_filter"`
	ScoreFilter   bool     `json:"score_filter"`
	ScoreMin      float64  `json:"score_min"`
	ScoreMax      float64  `json:"score_max"`
	ScoreStep     float64  `json:"score_step"`
	DefaultCutoff float64  `json:"default_cutoff"`
}

// DefaultCriteria admits every row of t.
func DefaultCriteria(t report.Table) Criteria {
	return Criteria{AllowedLabels: DistinctLabels(t.Rows)}
}

// Controls returns the filter widgets t supports.
func Controls(t report.Table) FilterControls {
	fc := FilterControls{
		LabelFilter: t.HasColumn(report.ColumnLabel),
		ScoreFilter: t.HasColumn(report.ColumnScore),
		ScoreMax:    1,
		ScoreStep:   0.1,
	}
	if fc.LabelFilter {
		fc.Labels = DistinctLabels(t.Rows)
	}
	return fc
}

// DistinctLabels lists the labels present in rows in first-seen order.
func DistinctLabels(rows []report.Row) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, row := range rows {
		label, ok := row.Label()
		if !ok {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}

// Filter returns the ordered subsequence of t's rows matching c. Rows without
// a label are never excluded by the label filter and rows without a score are
// never excluded by the threshold.
func Filter(t report.Table, c Criteria) report.Table {
	var allowed map[string]struct{}
	if len(c.AllowedLabels) > 0 && t.HasColumn(report.ColumnLabel) {
		allowed = make(map[string]struct{}, len(c.AllowedLabels))
		for _, l := range c.AllowedLabels {
			allowed[l] = struct{}{}
		}
	}
	threshold := t.HasColumn(report.ColumnScore)

	var rows []report.Row
	for _, row := range t.Rows {
		if allowed != nil {
			if label, ok := row.Label(); ok {
				if _, in := allowed[label]; !in {
					continue
				}
			}
		}
		if threshold {
			if score, ok := row.Score(); ok && score < c.MinScore {
				continue
			}
		}
		rows = append(rows, row)
	}
	return t.WithRows(rows)
}
