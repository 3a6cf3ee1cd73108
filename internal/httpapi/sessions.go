package httpapi

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sentiment_dashboard/internal/analysis"
	"sentiment_dashboard/internal/ingest"
	"sentiment_dashboard/internal/report"
	"sentiment_dashboard/internal/session"
	"sentiment_dashboard/internal/store"
)

type overviewResponse struct {
	Session      session.Info            `json:"session"`
	Format       report.Format           `json:"format"`
	KeyMetrics   report.KeyMetrics       `json:"key_metrics"`
	Metadata     report.Metadata         `json:"metadata"`
	Summary      report.SentimentSummary `json:"sentiment_analysis"`
	Columns      []string                `json:"columns"`
	RowCount     int                     `json:"row_count"`
	Filters      analysis.FilterControls `json:"filters"`
	HasWordCloud bool                    `json:"has_wordcloud"`
}

func buildOverview(info session.Info, rep *report.Report) overviewResponse {
	return overviewResponse{
		Session:      info,
		Format:       rep.Format,
		KeyMetrics:   rep.KeyMetrics(),
		Metadata:     rep.Metadata,
		Summary:      rep.Summary,
		Columns:      nonNil(rep.Table.Columns),
		RowCount:     rep.Table.Len(),
		Filters:      analysis.Controls(rep.Table),
		HasWordCloud: rep.Visualizations.WordCloud != "",
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *Router) createSession(c *gin.Context) {
	up, ok := r.readUpload(c)
	if !ok {
		return
	}
	info := r.Sessions.Create()
	rep, err := r.Ingest.Load(c.Request.Context(), ingest.Request{
		SessionID: info.ID,
		Filename:  up.filename,
		Format:    up.format,
		Source:    store.SourceUpload,
		Data:      up.data,
	})
	if err != nil {
		// The session stays, empty, so the client can retry against it.
		var perr *report.ParseError
		if errors.As(err, &perr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": perr.Error(), "session_id": info.ID})
			return
		}
		r.fail(c, err)
		return
	}
	info, _ = r.Sessions.Info(info.ID)
	c.JSON(http.StatusCreated, buildOverview(info, rep))
}

func (r *Router) replaceReport(c *gin.Context) {
	id := c.Param("id")
	if _, err := r.Sessions.Info(id); err != nil {
		r.fail(c, err)
		return
	}
	up, ok := r.readUpload(c)
	if !ok {
		return
	}
	rep, err := r.Ingest.Load(c.Request.Context(), ingest.Request{
		SessionID: id,
		Filename:  up.filename,
		Format:    up.format,
		Source:    store.SourceUpload,
		Data:      up.data,
	})
	if err != nil {
		r.fail(c, err)
		return
	}
	info, _ := r.Sessions.Info(id)
	c.JSON(http.StatusOK, buildOverview(info, rep))
}

func (r *Router) overview(c *gin.Context) {
	rep, info, err := r.Sessions.Report(c.Param("id"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, buildOverview(info, rep))
}

// criteria reads label= (repeatable) and min_score= from the query.
func criteria(c *gin.Context) (analysis.Criteria, error) {
	crit := analysis.Criteria{AllowedLabels: c.QueryArray("label")}
	if raw := c.Query("min_score"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return crit, fmt.Errorf("min_score must be a number, got %q", raw)
		}
		crit.MinScore = v
	}
	return crit, nil
}

type viewResponse struct {
	analysis.Result
	Criteria analysis.Criteria `json:"criteria"`
	Columns  []string          `json:"columns"`
	Rows     rowsJSON          `json:"rows"`
}

func (r *Router) view(c *gin.Context) {
	crit, err := criteria(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rep, _, err := r.Sessions.Report(c.Param("id"))
	if err != nil {
		r.fail(c, err)
		return
	}
	res := analysis.FilterAndAggregate(rep.Table, crit, r.Analysis)
	r.Metrics.RecordView()
	c.JSON(http.StatusOK, viewResponse{
		Result:   res,
		Criteria: crit,
		Columns:  nonNil(res.View.Columns),
		Rows:     rowsJSON(res.View),
	})
}

func (r *Router) export(c *gin.Context) {
	scope := c.DefaultQuery("scope", "filtered")
	if scope != "filtered" && scope != "full" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be filtered or full"})
		return
	}
	crit, err := criteria(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rep, _, err := r.Sessions.Report(c.Param("id"))
	if err != nil {
		r.fail(c, err)
		return
	}
	table := rep.Table
	if scope == "filtered" {
		table = analysis.Filter(rep.Table, crit)
	}
	data, err := report.ExportCSV(table)
	if err != nil {
		r.fail(c, err)
		return
	}
	r.Metrics.RecordExport()
	name := report.ExportFilename(scope, r.now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (r *Router) wordCloud(c *gin.Context) {
	rep, _, err := r.Sessions.Report(c.Param("id"))
	if err != nil {
		r.fail(c, err)
		return
	}
	img, err := rep.Visualizations.DecodeWordCloud()
	switch {
	case errors.Is(err, report.ErrNoWordCloud):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.Header("X-Image-Width", strconv.Itoa(img.Width))
		c.Header("X-Image-Height", strconv.Itoa(img.Height))
		c.Data(http.StatusOK, img.ContentType(), img.Data)
	}
}

func (r *Router) deleteSession(c *gin.Context) {
	if err := r.Sessions.Delete(c.Param("id")); err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) sample(c *gin.Context) {
	rep := report.SampleReport(r.now())
	c.JSON(http.StatusOK, gin.H{
		"columns": rep.Table.Columns,
		"rows":    rowsJSON(rep.Table),
	})
}
