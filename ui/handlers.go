package ui

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kpidash/domain/core"
	"kpidash/internal/dashboard"
	"kpidash/internal/errors"
	"kpidash/internal/filters"
)

// pageData feeds templates/index.html
type pageData struct {
	Title  string
	View   *dashboard.View
	Charts []string
	Query  string
	Error  string
	Code   string
	Notes  template.HTML
	Live   bool
	Now    time.Time
}

func (s *Server) handleIndex(c *gin.Context) {
	data := pageData{Title: "KPI Dashboard", Live: s.events != nil, Now: time.Now()}
	data.Notes = s.notes()

	state, err := filters.ParseQuery(c.Request.URL.Query())
	if err != nil {
		s.renderError(c, data, err)
		return
	}

	view, err := s.service.Build(c.Request.Context(), state)
	if err != nil {
		s.renderError(c, data, err)
		return
	}
	data.View = view
	data.Charts = view.AvailableCharts()
	data.Query = state.Query().Encode()
	s.renderTemplate(c, http.StatusOK, "index.html", data)
}

// renderError shows the page with only the error banner
func (s *Server) renderError(c *gin.Context, data pageData, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("dashboard failed: %v", err)
	} else {
		s.logger.Warn("dashboard unavailable: %v", err)
	}
	data.Error = errors.UserMessage(err)
	data.Code = errors.GetCode(err)
	s.renderTemplate(c, status, "index.html", data)
}

// notes re-reads the notes file on every page so edits show without a restart
func (s *Server) notes() template.HTML {
	notes, err := loadNotes(s.notesFile)
	if err != nil {
		s.logger.Warn("notes unavailable: %v", err)
		return ""
	}
	return notes
}

func (s *Server) handleChart(c *gin.Context) {
	state, err := filters.ParseQuery(c.Request.URL.Query())
	if err != nil {
		s.respondError(c, err)
		return
	}

	res, err := s.service.Load(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	etag := chartETag(state, res.Summary.Fingerprint)
	c.Header("Cache-Control", "no-cache")
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	var buf bytes.Buffer
	if err := s.service.RenderChart(c.Request.Context(), c.Param("name"), state, &buf); err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/svg+xml", buf.Bytes())
}

// chartETag changes when the selection or the workbook on disk changes
func chartETag(state filters.State, fp core.FileFingerprint) string {
	return `"` + state.Hash().Short() + "-" + core.Hash(fp).Short() + `"`
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":   "ok",
		"workbook": s.service.Path(),
		"uptime":   time.Since(s.started).Round(time.Second).String(),
		"cache":    s.service.CacheStats(),
	}
	if loadedAt, ok := s.service.LoadedAt(); ok {
		body["loaded_at"] = loadedAt
		if res, err := s.service.Load(c.Request.Context()); err == nil {
			body["fingerprint"] = core.Hash(res.Summary.Fingerprint).Short()
		}
	}
	c.JSON(http.StatusOK, body)
}
