// Package api is the JSON API of the dashboard, served on its own port.
package api

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"kpidash/internal"
	"kpidash/internal/dashboard"
	"kpidash/internal/errors"
	"kpidash/internal/filters"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// pageParams are the paging knobs shared by the list endpoints
type pageParams struct {
	Limit int `validate:"min=0,max=5000"`
	Top   int `validate:"min=0,max=100"`
}

var validate = validator.New()

// Handler serves the dashboard service over chi
type Handler struct {
	service   *dashboard.Service
	hub       *EventHub
	telemetry *dashboard.Telemetry
	logger    *internal.Logger
	started   time.Time
}

// NewHandler wires the service. hub and telemetry may be nil.
func NewHandler(service *dashboard.Service, hub *EventHub, telemetry *dashboard.Telemetry) *Handler {
	return &Handler{
		service:   service,
		hub:       hub,
		telemetry: telemetry,
		logger:    internal.DefaultLogger.Named("API"),
		started:   time.Now(),
	}
}

// Routes returns the full router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", h.Health)
	if h.telemetry != nil {
		r.Handle("/metrics", h.telemetry.Handler())
	}
	if h.hub != nil {
		r.Handle("/events", h.hub)
	}
	r.Get("/charts/{name}", h.Chart)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/summary", h.Summary)
		r.Get("/kpis", h.KPIs)
		r.Get("/data", h.Data)
		r.Get("/breakdown", h.Breakdown)
		r.Get("/timeseries", h.Timeseries)
		r.Get("/outliers", h.Outliers)
		r.Get("/pivot", h.Pivot)
		r.Get("/profile", h.Profile)
		r.Get("/history", h.History)
		r.Post("/reload", h.Reload)
	})
	return r
}

// respondError renders err with the status its code maps to
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("[%s] %s %s: %v", middleware.GetReqID(r.Context()), r.Method, r.URL.Path, err)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: errors.UserMessage(err), Code: errors.GetCode(err)})
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) (filters.State, bool) {
	state, err := filters.ParseQuery(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return filters.State{}, false
	}
	return state, true
}

func (h *Handler) paging(w http.ResponseWriter, r *http.Request) (pageParams, bool) {
	var p pageParams
	var err error
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		if p.Limit, err = strconv.Atoi(raw); err != nil {
			h.respondError(w, r, errors.InvalidInput("limit must be an integer"))
			return p, false
		}
	}
	if raw := q.Get("top"); raw != "" {
		if p.Top, err = strconv.Atoi(raw); err != nil {
			h.respondError(w, r, errors.InvalidInput("top must be an integer"))
			return p, false
		}
	}
	if err := validate.Struct(p); err != nil {
		h.respondError(w, r, errors.InvalidInput(err.Error()))
		return p, false
	}
	return p, true
}

// Health reports liveness and the cache state
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":   "ok",
		"workbook": h.service.Path(),
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"cache":    h.service.CacheStats(),
	}
	if loadedAt, ok := h.service.LoadedAt(); ok {
		body["loaded_at"] = loadedAt
	}
	if h.hub != nil {
		body["listeners"] = h.hub.ClientCount()
	}
	render.JSON(w, r, body)
}

// Summary handles GET /api/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	state, ok := h.state(w, r)
	if !ok {
		return
	}
	res, filtered, err := h.service.Filtered(r.Context(), state)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"summary":       res.Summary,
		"options":       filters.BuildOptions(res.Table),
		"filtered_rows": filtered.NumRows(),
	})
}

// KPIs handles GET /api/kpis
func (h *Handler) KPIs(w http.ResponseWriter, r *http.Request) {
	state, ok := h.state(w, r)
	if !ok {
		return
	}
	kpis, err := h.service.KPIs(r.Context(), state)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	render.JSON(w, r, kpis)
}

// Data handles GET /api/data?limit=&periods=&calculated=&normalize=
func (h *Handler) Data(w http.ResponseWriter, r *http.Request) {
	state, ok := h.state(w, r)
	if !ok {
		return
	}
	p, ok := h.paging(w, r)
	if !ok {
		return
	}
	if p.Limit == 0 {
		p.Limit = 100
	}
	var err error
	opts := dashboard.ExportOptions{Limit: p.Limit}
	q := r.URL.Query()
	for name, flag := range map[string]*bool{"periods": &opts.Periods, "calculated": &opts.Calculated, "normalize": &opts.Normalize} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		if *flag, err = strconv.ParseBool(raw); err != nil {
			h.respondError(w, r, errors.InvalidInput(name+" must be true or false"))
			return
		}
	}
	records, total, err := h.service.Export(r.Context(), state, opts)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"records":  records,
		"returned": len(records),
		"total":    total,
	})
}

// Breakdown handles GET /api/breakdown?column=&top=
func (h *Handler) Breakdown(w http.ResponseWriter, r *http.Request) {
	state, ok := h.state(w, r)
	if !ok {
		return
	}
	p, ok := h.paging(w, r)
	if !ok {
		return
	}
	if p.Top == 0 {
		p.Top = 10
	}
	groups, err := h.service.Breakdown(r.Context(), state, r.URL.Query().Get("column"), p.Top)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"groups": groups})
}

// Timeseries handles GET /api/timeseries?freq=D|W|M|Y
func (h *Handler) Timeseries(w http.ResponseWriter, r *http.Request) {
	state, ok := h.state(w, r)
	if !ok {
		return
	}
	freq := r.URL.Query().Get("freq")
	if freq == "" {
		freq = "D"
	}
	buckets, err := h.service.Timeseries(r.Context(), state, freq)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"frequency": freq, "buckets": buckets})
}

// Outliers handles GET /api/outliers?column=&method=iqr|zscore
func (h *Handler) Outliers(w http.ResponseWriter, r *http.Request) {
	state, ok := h.state(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	report, err := h.service.Outliers(r.Context(), state, q.Get("column"), q.Get("method"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

// Pivot handles GET /api/pivot?index=&columns=&values=&agg=sum|mean|count
func (h *Handler) Pivot(w http.ResponseWriter, r *http.Request) {
	state, ok := h.state(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	pivot, err := h.service.Pivot(r.Context(), state, q.Get("index"), q.Get("columns"), q.Get("values"), q.Get("agg"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	render.JSON(w, r, pivot)
}

// Profile handles GET /api/profile
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	state, ok := h.state(w, r)
	if !ok {
		return
	}
	profiles, err := h.service.Profile(r.Context(), state)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"columns": profiles})
}

// History handles GET /api/history?limit=
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	p, ok := h.paging(w, r)
	if !ok {
		return
	}
	if p.Limit == 0 {
		p.Limit = 20
	}
	records, err := h.service.History(r.Context(), p.Limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"loads": records})
}

// Reload handles POST /api/reload and tells listening pages
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	h.service.Reload()
	res, err := h.service.Load(r.Context())
	if err != nil {
		if h.hub != nil {
			h.hub.Broadcast(Event{Type: EventLoadError, Source: h.service.Path(), Message: errors.UserMessage(err)})
		}
		h.respondError(w, r, err)
		return
	}
	if h.hub != nil {
		h.hub.Broadcast(Event{Type: EventReload, Source: res.Summary.SourceFile, Rows: res.Table.NumRows()})
	}
	render.JSON(w, r, map[string]interface{}{"status": "reloaded", "summary": res.Summary})
}

// Chart handles GET /charts/{name}
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	state, ok := h.state(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.service.RenderChart(r.Context(), chi.URLParam(r, "name"), state, &buf); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("writing chart: %v", err)
	}
}
