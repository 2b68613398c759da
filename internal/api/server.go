package api

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"golden-hour/config"
	"golden-hour/internal/display"
	"golden-hour/internal/geolocation"
	"golden-hour/internal/log"
	"golden-hour/internal/metrics"
	"golden-hour/internal/session"
	"golden-hour/internal/suntimes"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

//go:embed templates/*.html
var templates embed.FS

type Server struct {
	router      *gin.Engine
	server      *http.Server
	session     *session.Session
	format      display.Formatter
	port        int
	config      *config.Config
	configPath  string
	configMutex sync.RWMutex
	now         func() time.Time
}

type ServerConfig struct {
	Port       int
	Session    *session.Session
	Formatter  display.Formatter
	Gatherer   prometheus.Gatherer
	Config     *config.Config
	ConfigPath string
}

func NewServer(cfg ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:     router,
		session:    cfg.Session,
		format:     cfg.Formatter,
		port:       cfg.Port,
		config:     cfg.Config,
		configPath: cfg.ConfigPath,
		now:        time.Now,
	}

	s.setupRoutes(cfg.Gatherer)
	return s
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	tmpl := template.Must(template.ParseFS(templates, "templates/*.html"))
	s.router.SetHTMLTemplate(tmpl)

	s.router.GET("/", s.dashboardHandler)
	s.router.GET("/dashboard", s.dashboardHandler)
	s.router.HEAD("/", s.dashboardHandler)
	s.router.HEAD("/dashboard", s.dashboardHandler)

	s.router.GET("/health", s.healthHandler)
	if gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(metrics.Handler(gatherer)))
	}

	api := s.router.Group("/api/v1")
	{
		api.GET("/status", s.statusHandler)
		api.POST("/permission", s.permissionHandler)

		api.GET("/config/location", s.getLocationConfigHandler)
		api.PUT("/config/location", s.updateLocationConfigHandler)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}

	log.Infof("API server starting on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) dashboardHandler(c *gin.Context) {
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"title": "Golden Hour",
		"view":  s.format.View(s.session.Snapshot(), s.now()),
	})
}

type statusResponse struct {
	session.Snapshot
	Display display.View `json:"display"`
}

func (s *Server) status() statusResponse {
	snap := s.session.Snapshot()
	return statusResponse{Snapshot: snap, Display: s.format.View(snap, s.now())}
}

func (s *Server) healthHandler(c *gin.Context) {
	snap := s.session.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"state":     snap.State,
		"timestamp": s.now(),
	})
}

func (s *Server) statusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.status())
}

// permissionHandler is the user's grant. It runs the whole pipeline
// before answering.
func (s *Server) permissionHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	if err := s.session.Grant(ctx); err != nil {
		c.JSON(grantStatus(err), gin.H{
			"error":   err.Error(),
			"display": s.status().Display,
		})
		return
	}
	c.JSON(http.StatusOK, s.status())
}

func grantStatus(err error) int {
	switch {
	case errors.Is(err, geolocation.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, session.ErrThrottled):
		return http.StatusTooManyRequests
	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, suntimes.ErrNetworkFailure), errors.Is(err, suntimes.ErrMalformedData):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type LocationConfigRequest struct {
	Provider   string  `json:"provider"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	IPEndpoint string  `json:"ip_endpoint"`
	AutoGrant  bool    `json:"auto_grant"`
}

type LocationConfigResponse LocationConfigRequest

func (s *Server) getLocationConfigHandler(c *gin.Context) {
	s.configMutex.RLock()
	defer s.configMutex.RUnlock()

	cfg := s.config.Location
	c.JSON(http.StatusOK, LocationConfigResponse{
		Provider:   cfg.Provider,
		Latitude:   cfg.Latitude,
		Longitude:  cfg.Longitude,
		IPEndpoint: cfg.IPEndpoint,
		AutoGrant:  cfg.AutoGrant,
	})
}

func (s *Server) updateLocationConfigHandler(c *gin.Context) {
	var req LocationConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if strings.TrimSpace(req.Provider) == "" {
		req.Provider = "static"
	}
	if strings.EqualFold(req.Provider, "static") {
		coords := geolocation.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude}
		if !coords.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid coordinates %s", coords)})
			return
		}
	}

	s.configMutex.Lock()
	s.config.Location = config.LocationConfig{
		Provider:   req.Provider,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		IPEndpoint: req.IPEndpoint,
		AutoGrant:  req.AutoGrant,
	}
	loc := s.config.Location
	s.configMutex.Unlock()

	s.session.SetLocator(geolocation.New(loc.Provider, loc.Latitude, loc.Longitude, loc.IPEndpoint))

	if err := config.SaveLocation(s.configPath, loc); err != nil {
		log.Warnf("Failed to save config to file: %v", err)
		c.JSON(http.StatusOK, gin.H{
			"message": "Configuration applied but not persisted to file",
			"warning": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Location configuration updated; grant access again to refresh",
	})
}
