// Package server exposes the interview orchestrator and the integrity
// monitor over HTTP: a REST surface for the interview lifecycle plus a
// websocket for live signal ingest.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/interviewlab/sentinel/config"
	"github.com/interviewlab/sentinel/integrity"
	"github.com/interviewlab/sentinel/orchestrator"
	"github.com/interviewlab/sentinel/session"
)

// Server wires the orchestrator, the session store and the integrity
// registry into the HTTP surface.
type Server struct {
	cfg      *config.Root
	engine   *orchestrator.Engine
	store    *session.Store
	monitors *integrity.Registry
	catalog  *config.Catalog
	log      *logrus.Entry
}

func New(cfg *config.Root, engine *orchestrator.Engine, store *session.Store, monitors *integrity.Registry, catalog *config.Catalog, log *logrus.Logger) *Server {
	return &Server{
		cfg:      cfg,
		engine:   engine,
		store:    store,
		monitors: monitors,
		catalog:  catalog,
		log:      log.WithField("component", "server"),
	}
}

// Router builds the gin engine with every route attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests(), s.cors())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := r.Group("/api")
	{
		interview := api.Group("/interview")
		{
			interview.POST("/start", s.startInterview)
			interview.POST("/respond", s.respond)
			interview.POST("/end", s.endInterview)
			interview.GET("/status/:sessionId", s.interviewStatus)
		}

		integ := api.Group("/integrity")
		{
			integ.POST("/event", s.logIntegrityEvent)
			integ.GET("/events/:sessionId", s.listIntegrityEvents)
			integ.GET("/state/:sessionId", s.signalState)
		}

		admin := api.Group("/admin")
		{
			admin.GET("/sessions", s.listSessions)
			admin.GET("/report/:sessionId", s.getReport)
		}

		api.GET("/topics", s.listTopics)
	}

	r.GET("/ws/:sessionId", s.handleSignals)

	return r
}

// writeError maps domain errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, orchestrator.ErrSessionEnded), errors.Is(err, orchestrator.ErrNotStarted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, orchestrator.ErrEvaluationFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// logRequests writes one logrus line per request.
func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("request")
	}
}

// cors allows the configured origins. An empty list or "*" allows
// everyone, which is how development deployments run.
func (s *Server) cors() gin.HandlerFunc {
	allowAll := len(s.cfg.Server.AllowedOrigins) == 0
	allowed := make(map[string]bool, len(s.cfg.Server.AllowedOrigins))
	for _, o := range s.cfg.Server.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case origin == "":
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
