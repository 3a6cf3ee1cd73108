package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sentiment_dashboard/internal/analysis"
	"sentiment_dashboard/internal/ingest"
	"sentiment_dashboard/internal/metrics"
	"sentiment_dashboard/internal/queue"
	"sentiment_dashboard/internal/report"
	"sentiment_dashboard/internal/session"
	"sentiment_dashboard/internal/store"
)

// Deps are the components the router serves from. Queue may be nil when the
// drop-folder watcher is off.
type Deps struct {
	Sessions       *session.Registry
	Ingest         *ingest.Service
	Store          *store.Store
	Queue          *queue.Queue
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
	MaxUploadBytes int64
	Analysis       analysis.Options
}

// Router builds HTTP handlers for /api and /ops.
type Router struct {
	Deps
	now func() time.Time
}

func NewRouter(d Deps) *Router {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	return &Router{Deps: d, now: time.Now}
}

func (r *Router) Register(e *gin.Engine) {
	api := e.Group("/api")
	api.POST("/sessions", r.createSession)
	api.PUT("/sessions/:id/report", r.replaceReport)
	api.GET("/sessions/:id", r.overview)
	api.GET("/sessions/:id/view", r.view)
	api.GET("/sessions/:id/export", r.export)
	api.GET("/sessions/:id/wordcloud", r.wordCloud)
	api.DELETE("/sessions/:id", r.deleteSession)
	api.GET("/uploads", r.uploads)
	api.GET("/sample", r.sample)

	ops := e.Group("/ops")
	ops.GET("/health", r.health)
	ops.GET("/status", r.status)
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	}
}

func (r *Router) uploads(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	list, err := r.Store.ListUploads(c.Request.Context(), c.Query("session"), limit)
	if err != nil {
		r.Logger.Error("list uploads failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list uploads"})
		return
	}
	if list == nil {
		list = []store.Upload{}
	}
	c.JSON(http.StatusOK, gin.H{"uploads": list, "count": len(list)})
}

func (r *Router) health(c *gin.Context) {
	if err := r.Store.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) status(c *gin.Context) {
	body := gin.H{
		"sessions": r.Sessions.Len(),
		"metrics":  r.Metrics.Snapshot(),
	}
	if r.Queue != nil {
		body["queue"] = r.Queue.Stats()
		body["queue_healthy"] = r.Queue.Healthy()
	}
	if counts, err := r.Store.CountByStatus(c.Request.Context()); err != nil {
		r.Logger.Warn("count uploads failed", zap.Error(err))
	} else {
		body["uploads"] = counts
	}
	c.JSON(http.StatusOK, body)
}

// fail maps domain errors onto status codes.
func (r *Router) fail(c *gin.Context, err error) {
	var perr *report.ParseError
	switch {
	case errors.As(err, &perr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": perr.Error()})
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrEmpty):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		r.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
