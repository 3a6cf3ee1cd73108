package analysis

import (
	"math"
	"sort"

	"sentiment_dashboard/internal/report"
)

// HistogramBins is the number of equal-width confidence buckets over [0, 1].
const HistogramBins = 20

// ScoreStats describes the defined scores of a row set. Defined is false when
// there are none, in which case every figure is zero.
type ScoreStats struct {
	Defined bool    `json:"defined"`
	Count   int     `json:"count"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	Median  float64 `json:"median"`
	Max     float64 `json:"max"`
}

// LabelScoreStats is ScoreStats restricted to one label.
type LabelScoreStats struct {
	Label string     `json:"label"`
	Stats ScoreStats `json:"stats"`
}

// Bin is one histogram bucket. Upper is exclusive except for the last bucket.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

func definedScores(rows []report.Row) []float64 {
	var out []float64
	for _, row := range rows {
		if s, ok := row.Score(); ok {
			out = append(out, s)
		}
	}
	return out
}

// Stats computes the summary statistics of the defined scores in rows.
// Standard deviation is the sample deviation and is zero for a single value.
func Stats(rows []report.Row) ScoreStats {
	return statsOf(definedScores(rows))
}

func statsOf(scores []float64) ScoreStats {
	n := len(scores)
	if n == 0 {
		return ScoreStats{}
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	var sum float64
	for _, s := range sorted {
		sum += s
	}
	mean := sum / float64(n)

	var std float64
	if n > 1 {
		var sq float64
		for _, s := range sorted {
			d := s - mean
			sq += d * d
		}
		std = math.Sqrt(sq / float64(n-1))
	}

	return ScoreStats{
		Defined: true,
		Count:   n,
		Mean:    mean,
		Std:     std,
		Min:     sorted[0],
		Median:  quantile(sorted, 0.5),
		Max:     sorted[n-1],
	}
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// StatsByLabel computes score statistics per label, labels in first-seen order.
func StatsByLabel(rows []report.Row) []LabelScoreStats {
	groups := make(map[string][]float64)
	labels := DistinctLabels(rows)
	for _, row := range rows {
		label, ok := row.Label()
		if !ok {
			continue
		}
		if s, ok := row.Score(); ok {
			groups[label] = append(groups[label], s)
		}
	}
	out := make([]LabelScoreStats, 0, len(labels))
	for _, label := range labels {
		out = append(out, LabelScoreStats{Label: label, Stats: statsOf(groups[label])})
	}
	return out
}

// Histogram buckets the defined scores of rows into HistogramBins equal bins
// over [0, 1]. Scores outside the range land in the edge buckets.
func Histogram(rows []report.Row) []Bin {
	bins := make([]Bin, HistogramBins)
	for i := range bins {
		bins[i].Lower = float64(i) / HistogramBins
		bins[i].Upper = float64(i+1) / HistogramBins
	}
	for _, s := range definedScores(rows) {
		var i int
		switch {
		case s <= 0:
			i = 0
		case s >= 1:
			i = HistogramBins - 1
		default:
			i = int(math.Floor(s * HistogramBins))
		}
		bins[i].Count++
	}
	return bins
}
