package report

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.March, 4, 10, 30, 0, 0, time.UTC)

const jsonReport = `{
  "metadata": {"total_comments": 1200, "analysis_date": "2025-02-01T08:15:00Z", "processing_time_minutes": 3.5},
  "sentiment_analysis": {"average_confidence": 0.91, "positive_percentage": 66.7, "negative_percentage": 33.3, "distribution": {"POSITIVE": 2, "NEGATIVE": 1}},
  "visualizations": {"wordcloud": ""},
  "data": [
    {"comment": "first", "sentiment_label": "POSITIVE", "sentiment_score": 0.9},
    {"comment": "second", "sentiment_label": "NEGATIVE", "sentiment_score": 0.8, "summary": "short"},
    {"comment": "third", "sentiment_label": "POSITIVE", "sentiment_score": 0.7}
  ]
}`

func TestLoadJSONKeepsRowOrder(t *testing.T) {
	rep, err := Load([]byte(jsonReport), FormatJSON, testNow)
	require.NoError(t, err)
	require.Equal(t, 3, rep.Table.Len())
	require.Equal(t, []string{"comment", "sentiment_label", "sentiment_score", "summary"}, rep.Table.Columns)

	var comments []string
	for _, row := range rep.Table.Rows {
		c, ok := row.Comment()
		require.True(t, ok)
		comments = append(comments, c)
	}
	require.Equal(t, []string{"first", "second", "third"}, comments)

	require.False(t, rep.Table.Rows[0].Get(ColumnSummary).Valid)
	require.Equal(t, "short", rep.Table.Rows[1].Get(ColumnSummary).Text)
}

func TestLoadJSONPassesSummaryThrough(t *testing.T) {
	rep, err := Load([]byte(jsonReport), FormatJSON, testNow)
	require.NoError(t, err)

	// The summary disagrees with data on purpose; it is trusted as given.
	require.InDelta(t, 66.7, rep.Summary.PositivePercentage, 1e-9)
	require.Equal(t, Distribution{{"POSITIVE", 2}, {"NEGATIVE", 1}}, rep.Summary.Distribution)
	require.Equal(t, 1200, *rep.Metadata.TotalComments)

	raw, err := json.Marshal(rep.Metadata)
	require.NoError(t, err)
	require.JSONEq(t, `{"total_comments": 1200, "analysis_date": "2025-02-01T08:15:00Z", "processing_time_minutes": 3.5}`, string(raw))
}

func TestLoadJSONWithoutData(t *testing.T) {
	rep, err := Load([]byte(`{"metadata": {"total_comments": "many"}}`), FormatJSON, testNow)
	require.NoError(t, err)
	require.Equal(t, 0, rep.Table.Len())
	require.Nil(t, rep.Metadata.TotalComments)
	require.False(t, rep.Summary.Present)
	require.Equal(t, 0, rep.KeyMetrics().TotalComments)
}

func TestLoadJSONFailures(t *testing.T) {
	cases := map[string]string{
		"malformed":     `{"data": [`,
		"not an object": `[1, 2, 3]`,
		"data scalar":   `{"data": 5}`,
		"row scalar":    `{"data": [{"comment": "ok"}, "nope"]}`,
		"empty":         ``,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			rep, err := Load([]byte(in), FormatJSON, testNow)
			require.Nil(t, rep)
			var perr *ParseError
			require.True(t, errors.As(err, &perr), "want ParseError, got %v", err)
			require.Equal(t, FormatJSON, perr.Format)
			require.NotEmpty(t, perr.Error())
		})
	}
}

func TestLoadCSVAllPositive(t *testing.T) {
	in := "comment,sentiment_label,sentiment_score\nnice,POSITIVE,0.9\ngreat,POSITIVE,0.7\n"
	rep, err := Load([]byte(in), FormatCSV, testNow)
	require.NoError(t, err)
	require.True(t, rep.Summary.Present)
	require.Equal(t, 100.0, rep.Summary.PositivePercentage)
	require.Equal(t, 0.0, rep.Summary.NegativePercentage)
	require.InDelta(t, 0.8, rep.Summary.AverageConfidence, 1e-9)
	require.Equal(t, 2, *rep.Metadata.TotalComments)
	require.Equal(t, testNow.Format(time.RFC3339), rep.Metadata.AnalysisDate)
}

func TestLoadCSVPercentagesStayInRange(t *testing.T) {
	in := "comment,sentiment_label\na,positive\nb,negative\nc,NEUTRAL\nd,negative\ne,\n"
	rep, err := Load([]byte(in), FormatCSV, testNow)
	require.NoError(t, err)
	require.Equal(t, 20.0, rep.Summary.PositivePercentage)
	require.Equal(t, 40.0, rep.Summary.NegativePercentage)
	require.LessOrEqual(t, rep.Summary.PositivePercentage+rep.Summary.NegativePercentage, 100.0)
	require.Equal(t, 0.0, rep.Summary.AverageConfidence)
	require.Equal(t, Distribution{{"negative", 2}, {"positive", 1}, {"NEUTRAL", 1}}, rep.Summary.Distribution)
}

func TestLoadCSVUpperCaseWinsOverLowerCase(t *testing.T) {
	in := "sentiment_label\nPOSITIVE\npositive\npositive\nNEGATIVE\n"
	rep, err := Load([]byte(in), FormatCSV, testNow)
	require.NoError(t, err)
	require.Equal(t, 25.0, rep.Summary.PositivePercentage)
	require.Equal(t, 25.0, rep.Summary.NegativePercentage)
}

func TestLoadCSVWithoutLabelColumn(t *testing.T) {
	rep, err := Load([]byte("comment,extra\nhello,1\n"), FormatCSV, testNow)
	require.NoError(t, err)
	require.False(t, rep.Summary.Present)
	raw, err := json.Marshal(rep.Summary)
	require.NoError(t, err)
	require.Equal(t, "{}", string(raw))
}

func TestLoadCSVCells(t *testing.T) {
	in := "\xEF\xBB\xBFcomment,sentiment_score,,comment\nhi,NaN,x\nthere,0.5,y,z\n"
	rep, err := Load([]byte(in), FormatCSV, testNow)
	require.NoError(t, err)
	require.Equal(t, []string{"comment", "sentiment_score", "Unnamed: 2", "comment.1"}, rep.Table.Columns)

	_, ok := rep.Table.Rows[0].Score()
	require.False(t, ok)
	require.False(t, rep.Table.Rows[0].Get("comment.1").Valid)

	score, ok := rep.Table.Rows[1].Score()
	require.True(t, ok)
	require.Equal(t, 0.5, score)
}

func TestLoadCSVQuoteInsideField(t *testing.T) {
	in := "comment,sentiment_label,sentiment_score\nGreat \"product\" overall,POSITIVE,0.9\n\"quoted, \"\"twice\"\"\",NEGATIVE,0.2\n"
	rep, err := Load([]byte(in), FormatCSV, testNow)
	require.NoError(t, err)
	require.Equal(t, 2, rep.Table.Len())

	c, ok := rep.Table.Rows[0].Comment()
	require.True(t, ok)
	require.Equal(t, `Great "product" overall`, c)
	score, ok := rep.Table.Rows[0].Score()
	require.True(t, ok)
	require.Equal(t, 0.9, score)

	c, _ = rep.Table.Rows[1].Comment()
	require.Equal(t, `quoted, "twice"`, c)
}

func TestLoadCSVHexScoreIsText(t *testing.T) {
	rep, err := Load([]byte("comment,sentiment_score\na,0x1p-1\nb,-0X10\nc,0.5\n"), FormatCSV, testNow)
	require.NoError(t, err)
	for i, want := range []bool{false, false, true} {
		_, ok := rep.Table.Rows[i].Score()
		require.Equal(t, want, ok, "row %d", i)
	}
	require.Equal(t, "0x1p-1", rep.Table.Rows[0].Get(ColumnScore).Text)
	require.InDelta(t, 0.5, rep.Summary.AverageConfidence, 1e-9)
}

func TestLoadCSVFailures(t *testing.T) {
	cases := map[string]string{
		"empty":       "",
		"blank lines": "\n\n",
		"too many":    "a,b\n1,2\n1,2,3\n",
		"bad quote":   "a,b\n\"1,2\n",
		"open quote":  "a,b\n1,2\n3,\"x \"\" y\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			rep, err := Load([]byte(in), FormatCSV, testNow)
			require.Nil(t, rep)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			require.Equal(t, FormatCSV, perr.Format)
		})
	}
}

func TestLoadUnknownFormat(t *testing.T) {
	_, err := Load([]byte("x"), Format("xml"), testNow)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"json":                    FormatJSON,
		"CSV":                     FormatCSV,
		"results.json":            FormatJSON,
		"my results.csv":          FormatCSV,
		"text/csv; charset=utf-8": FormatCSV,
		"application/json":        FormatJSON,
	}
	for in, want := range cases {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseFormat("report.xlsx")
	require.Error(t, err)
}

func TestSampleReport(t *testing.T) {
	rep := SampleReport(testNow)
	require.Equal(t, 3, rep.Table.Len())
	require.InDelta(t, 66.666, rep.Summary.PositivePercentage, 0.01)
	require.Equal(t, "Quality not satisfactory, needs improvement.", rep.Table.Rows[1].Get(ColumnSummary).Text)
}
