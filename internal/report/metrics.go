package report

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// KeyMetrics is the headline block shown above the results.
type KeyMetrics struct {
	TotalComments         int      `json:"total_comments"`
	TotalCommentsDisplay  string   `json:"total_comments_display"`
	AverageConfidence     float64  `json:"average_confidence"`
	PositivePercentage    float64  `json:"positive_percentage"`
	NegativePercentage    float64  `json:"negative_percentage"`
	AnalysisDate          string   `json:"analysis_date,omitempty"`
	ProcessingTimeMinutes *float64 `json:"processing_time_minutes,omitempty"`
}

const analysisDateLayout = "2006-01-02 15:04:05"

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// KeyMetrics summarizes the report. Total comments falls back to the row
// count; the sentiment figures default to zero when the summary lacks them.
func (r *Report) KeyMetrics() KeyMetrics {
	total := r.Table.Len()
	if r.Metadata.TotalComments != nil {
		total = *r.Metadata.TotalComments
	}
	km := KeyMetrics{
		TotalComments:         total,
		TotalCommentsDisplay:  humanize.Comma(int64(total)),
		AverageConfidence:     r.Summary.AverageConfidence,
		PositivePercentage:    r.Summary.PositivePercentage,
		NegativePercentage:    r.Summary.NegativePercentage,
		ProcessingTimeMinutes: r.Metadata.ProcessingTimeMinutes,
	}
	if r.Metadata.AnalysisDate != "" {
		km.AnalysisDate = FormatAnalysisDate(r.Metadata.AnalysisDate)
	}
	return km
}

// FormatAnalysisDate renders an ISO-8601 timestamp for display. Unparseable
// input is returned unchanged.
func FormatAnalysisDate(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(analysisDateLayout)
		}
	}
	return raw
}
