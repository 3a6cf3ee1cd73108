package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sentiment_dashboard/internal/report"
)

func loadCSV(t *testing.T, in string) report.Table {
	t.Helper()
	rep, err := report.Load([]byte(in), report.FormatCSV, time.Unix(0, 0).UTC())
	require.NoError(t, err)
	return rep.Table
}

func loadJSON(t *testing.T, in string) report.Table {
	t.Helper()
	rep, err := report.Load([]byte(in), report.FormatJSON, time.Unix(0, 0).UTC())
	require.NoError(t, err)
	return rep.Table
}

const mixedCSV = `comment,sentiment_label,sentiment_score
Great product and great service,POSITIVE,0.95
Terrible delivery experience,NEGATIVE,0.40
Okay product,NEUTRAL,
Great value for money,POSITIVE,0.75
Service was terrible,NEGATIVE,0.85
`

func comments(tab report.Table) []string {
	var out []string
	for _, row := range tab.Rows {
		c, _ := row.Comment()
		out = append(out, c)
	}
	return out
}

func TestFilterByLabelAndScore(t *testing.T) {
	tab := loadCSV(t, mixedCSV)

	view := Filter(tab, Criteria{AllowedLabels: []string{"POSITIVE", "NEUTRAL"}, MinScore: 0.8})
	require.Equal(t, []string{"Great product and great service", "Okay product"}, comments(view))
	require.Equal(t, tab.Columns, view.Columns)
}

func TestFilterEmptyLabelsMeansAll(t *testing.T) {
	tab := loadCSV(t, mixedCSV)
	require.Equal(t, tab.Rows, Filter(tab, Criteria{}).Rows)
	require.Equal(t, tab.Rows, Filter(tab, Criteria{AllowedLabels: []string{}}).Rows)
}

func TestFilterFullCriteriaIsIdentity(t *testing.T) {
	tables := map[string]report.Table{
		"csv": loadCSV(t, mixedCSV),
		"sparse json": loadJSON(t, `{"data": [
			{"comment": "a", "sentiment_label": "POSITIVE", "sentiment_score": 0.2},
			{"comment": "b"},
			{"comment": "c", "sentiment_label": "NEGATIVE"},
			{"comment": "d", "sentiment_score": "n/a"}
		]}`),
		"no label column": loadCSV(t, "comment,sentiment_score\nx,0.1\ny,0.9\n"),
		"empty":           loadJSON(t, `{}`),
	}
	for name, tab := range tables {
		t.Run(name, func(t *testing.T) {
			view := Filter(tab, DefaultCriteria(tab))
			require.Equal(t, tab.Rows, view.Rows)
		})
	}
}

func TestFilterIsIdempotent(t *testing.T) {
	tab := loadCSV(t, mixedCSV)
	for _, cutoff := range []float64{0, 0.4, 0.5, 0.85, 0.96, 1} {
		for _, labels := range [][]string{nil, {"POSITIVE"}, {"NEGATIVE", "NEUTRAL"}, {"MISSING"}} {
			c := Criteria{AllowedLabels: labels, MinScore: cutoff}
			once := FilterAndAggregate(tab, c, DefaultOptions())
			twice := FilterAndAggregate(once.View, c, DefaultOptions())
			require.Equal(t, once.View.Rows, twice.View.Rows, "min=%v labels=%v", cutoff, labels)
			require.Equal(t, once.CategoryCounts, twice.CategoryCounts)
			require.Equal(t, once.WordFrequency, twice.WordFrequency)
		}
	}
}

func TestStatsOfThreeScores(t *testing.T) {
	tab := loadCSV(t, "sentiment_score\n0.9\n0.8\n0.7\n")
	st := Stats(tab.Rows)
	require.True(t, st.Defined)
	require.Equal(t, 3, st.Count)
	require.InDelta(t, 0.8, st.Mean, 1e-9)
	require.InDelta(t, 0.7, st.Min, 1e-9)
	require.InDelta(t, 0.9, st.Max, 1e-9)
	require.InDelta(t, 0.8, st.Median, 1e-9)
	require.InDelta(t, 0.1, st.Std, 1e-9)
}

func TestStatsEdgeCases(t *testing.T) {
	one := Stats(loadCSV(t, "sentiment_score\n0.42\n").Rows)
	require.Equal(t, 1, one.Count)
	require.Equal(t, 0.0, one.Std)
	require.Equal(t, 0.42, one.Median)

	even := Stats(loadCSV(t, "sentiment_score\n0.1\n0.4\n0.2\n0.9\n").Rows)
	require.InDelta(t, 0.3, even.Median, 1e-9)

	none := Stats(loadCSV(t, "sentiment_score\n\nabc\n").Rows)
	require.Equal(t, ScoreStats{}, none)
}

func TestTopWords(t *testing.T) {
	tab := loadCSV(t, mixedCSV)
	words := TopWords(tab.Rows, StopWordSet(DefaultStopWords), 20)
	require.Equal(t, []WordCount{
		{"great", 3},
		{"product", 2},
		{"service", 2},
		{"terrible", 2},
		{"delivery", 1},
		{"experience", 1},
		{"okay", 1},
		{"value", 1},
		{"money", 1},
		{"was", 1},
	}, words)
}

func TestTopWordsRules(t *testing.T) {
	var b strings.Builder
	b.WriteString("comment\n")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "\"word%02d THE and Of an ox é é é\"\n", i)
	}
	b.WriteString("\"Ünïcode ünïcode through\"\n")
	tab := loadCSV(t, b.String())

	stop := StopWordSet(DefaultStopWords)
	words := TopWords(tab.Rows, stop, 20)
	require.Len(t, words, 20)
	for _, w := range words {
		_, isStop := stop[w.Word]
		require.False(t, isStop, w.Word)
		require.Greater(t, len([]rune(w.Word)), 2, w.Word)
	}
	require.Equal(t, WordCount{"ünïcode", 2}, words[0])
	require.Equal(t, WordCount{"word00", 1}, words[1])
	require.Equal(t, WordCount{"word18", 1}, words[19])

	require.Len(t, TopWords(tab.Rows, stop, 100), 31)
	require.Nil(t, TopWords(tab.Rows, stop, 0))
}

func TestSamples(t *testing.T) {
	var b strings.Builder
	b.WriteString("comment,sentiment_label\n")
	for i := 0; i < 7; i++ {
		fmt.Fprintf(&b, "pos %d,POSITIVE\n", i)
	}
	b.WriteString(",NEGATIVE\nneg 1,NEGATIVE\n")
	samples := Samples(loadCSV(t, b.String()).Rows, 5)
	require.Equal(t, []LabelSamples{
		{Label: "POSITIVE", Comments: []string{"pos 0", "pos 1", "pos 2", "pos 3", "pos 4"}},
		{Label: "NEGATIVE", Comments: []string{"neg 1"}},
	}, samples)
}

func TestSamplesWithoutCommentsAreEmptyLists(t *testing.T) {
	samples := Samples(loadCSV(t, "comment,sentiment_label\n,NEUTRAL\nok,POSITIVE\n").Rows, 5)
	require.Equal(t, []LabelSamples{
		{Label: "NEUTRAL", Comments: []string{}},
		{Label: "POSITIVE", Comments: []string{"ok"}},
	}, samples)

	raw, err := json.Marshal(samples[0])
	require.NoError(t, err)
	require.JSONEq(t, `{"label": "NEUTRAL", "comments": []}`, string(raw))
}

func TestFilterAndAggregate(t *testing.T) {
	tab := loadCSV(t, mixedCSV)
	res := FilterAndAggregate(tab, Criteria{AllowedLabels: []string{"POSITIVE", "NEGATIVE"}, MinScore: 0.5}, DefaultOptions())

	require.Equal(t, 3, res.Showing)
	require.Equal(t, 5, res.Total)
	require.Equal(t, report.Distribution{{Label: "POSITIVE", Count: 2}, {Label: "NEGATIVE", Count: 1}}, res.CategoryCounts)
	require.Equal(t, 3, res.ScoreStats.Count)
	require.Len(t, res.Histogram, HistogramBins)
	require.Equal(t, 1, res.Histogram[19].Count)
	require.Equal(t, 1, res.Histogram[15].Count)
	require.Equal(t, 1, res.Histogram[17].Count)
	require.Len(t, res.ScoreByLabel, 2)
	require.Equal(t, 2, res.ScoreByLabel[0].Stats.Count)
	require.Len(t, res.Samples, 2)
}

func TestFilterAndAggregateMissingColumns(t *testing.T) {
	tab := loadCSV(t, "other\n1\n2\n")
	res := FilterAndAggregate(tab, Criteria{AllowedLabels: []string{"POSITIVE"}, MinScore: 0.9}, DefaultOptions())
	require.Equal(t, 2, res.Showing)
	require.Nil(t, res.CategoryCounts)
	require.False(t, res.ScoreStats.Defined)
	require.Nil(t, res.WordFrequency)
	require.Nil(t, res.Samples)

	empty := FilterAndAggregate(report.Table{}, Criteria{}, DefaultOptions())
	require.Equal(t, 0, empty.Showing)
}

func TestControls(t *testing.T) {
	fc := Controls(loadCSV(t, mixedCSV))
	require.True(t, fc.LabelFilter)
	require.True(t, fc.ScoreFilter)
	require.Equal(t, []string{"POSITIVE", "NEGATIVE", "NEUTRAL"}, fc.Labels)

	fc = Controls(loadCSV(t, "comment\nx\n"))
	require.False(t, fc.LabelFilter)
	require.False(t, fc.ScoreFilter)
}
