package ui

import (
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kpidash/internal"
	"kpidash/internal/api"
	"kpidash/internal/dashboard"
)

// Options configure the HTML server
type Options struct {
	GinMode   string
	NotesFile string
	Telemetry *dashboard.Telemetry
	Events    *api.EventHub
}

// Server is the gin application serving the dashboard page, its charts and
// the JSON endpoints
type Server struct {
	router    *gin.Engine
	service   *dashboard.Service
	templates *template.Template
	telemetry *dashboard.Telemetry
	events    *api.EventHub
	notesFile string
	logger    *internal.Logger
	started   time.Time
}

// NewServer builds the router. Templates are parsed eagerly so a broken
// template fails at startup.
func NewServer(service *dashboard.Service, opts Options) (*Server, error) {
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:    gin.New(),
		service:   service,
		templates: templates,
		telemetry: opts.Telemetry,
		events:    opts.Events,
		notesFile: opts.NotesFile,
		logger:    internal.DefaultLogger.Named("UI"),
		started:   time.Now(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())

	staticFS, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		s.logger.Error("static files unavailable: %v", err)
		return
	}
	s.router.StaticFS("/static", http.FS(staticFS))
}

// requestLogger logs one line per request at DEBUG, errors at WARN
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		elapsed := time.Since(start).Round(time.Microsecond)
		if status >= http.StatusInternalServerError {
			s.logger.Warn("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, elapsed)
			return
		}
		s.logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, elapsed)
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/charts/:name", s.handleChart)
	s.router.GET("/health", s.handleHealth)
	if s.telemetry != nil {
		s.router.GET("/metrics", gin.WrapH(s.telemetry.Handler()))
	}
	if s.events != nil {
		s.router.GET("/events", gin.WrapH(s.events))
	}

	group := s.router.Group("/api")
	{
		group.GET("/summary", s.handleSummary)
		group.GET("/kpis", s.handleKPIs)
		group.GET("/data", s.handleData)
		group.GET("/breakdown", s.handleBreakdown)
		group.GET("/timeseries", s.handleTimeseries)
		group.GET("/history", s.handleHistory)
		group.POST("/reload", s.handleReload)
	}
}
