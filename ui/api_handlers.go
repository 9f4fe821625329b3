package ui

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kpidash/internal/api"
	"kpidash/internal/errors"
	"kpidash/internal/filters"
)

const (
	defaultRecordLimit  = 100
	defaultHistoryLimit = 20
	defaultBreakdownTop = 10
)

// filterState parses the filter parameters, answering 400 on failure
func (s *Server) filterState(c *gin.Context) (filters.State, bool) {
	state, err := filters.ParseQuery(c.Request.URL.Query())
	if err != nil {
		s.respondError(c, err)
		return filters.State{}, false
	}
	return state, true
}

// intQuery reads a positive integer parameter
func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.InvalidInput(name + " must be a positive integer")
	}
	return n, nil
}

func (s *Server) handleSummary(c *gin.Context) {
	state, ok := s.filterState(c)
	if !ok {
		return
	}
	res, filtered, err := s.service.Filtered(c.Request.Context(), state)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary":       res.Summary,
		"options":       filters.BuildOptions(res.Table),
		"filtered_rows": filtered.NumRows(),
	})
}

func (s *Server) handleKPIs(c *gin.Context) {
	state, ok := s.filterState(c)
	if !ok {
		return
	}
	kpis, err := s.service.KPIs(c.Request.Context(), state)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, kpis)
}

func (s *Server) handleData(c *gin.Context) {
	state, ok := s.filterState(c)
	if !ok {
		return
	}
	limit, err := intQuery(c, "limit", defaultRecordLimit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	records, total, err := s.service.Records(c.Request.Context(), state, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"records":  records,
		"returned": len(records),
		"total":    total,
	})
}

func (s *Server) handleBreakdown(c *gin.Context) {
	state, ok := s.filterState(c)
	if !ok {
		return
	}
	top, err := intQuery(c, "top", defaultBreakdownTop)
	if err != nil {
		s.respondError(c, err)
		return
	}
	groups, err := s.service.Breakdown(c.Request.Context(), state, c.Query("column"), top)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (s *Server) handleTimeseries(c *gin.Context) {
	state, ok := s.filterState(c)
	if !ok {
		return
	}
	freq := c.DefaultQuery("freq", "D")
	buckets, err := s.service.Timeseries(c.Request.Context(), state, freq)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"frequency": freq, "buckets": buckets})
}

func (s *Server) handleHistory(c *gin.Context) {
	limit, err := intQuery(c, "limit", defaultHistoryLimit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	records, err := s.service.History(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loads": records})
}

// handleReload drops the cached workbook and loads it again
func (s *Server) handleReload(c *gin.Context) {
	s.service.Reload()
	res, err := s.service.Load(c.Request.Context())
	if err != nil {
		s.broadcast(api.Event{Type: api.EventLoadError, Source: s.service.Path(), Message: errors.UserMessage(err)})
		s.respondError(c, err)
		return
	}
	s.logger.Info("workbook reloaded on request: %d rows", res.Table.NumRows())
	s.broadcast(api.Event{Type: api.EventReload, Source: res.Summary.SourceFile, Rows: res.Table.NumRows()})
	c.JSON(http.StatusOK, gin.H{"status": "reloaded", "summary": res.Summary})
}

func (s *Server) broadcast(event api.Event) {
	if s.events != nil {
		s.events.Broadcast(event)
	}
}
