package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/admitted/internal/browser"
	"github.com/GriffinCanCode/admitted/internal/infrastructure/logging"
	"github.com/GriffinCanCode/admitted/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/admitted/internal/shared/id"
)

// SessionLister reports live sessions. *browser.Supervisor implements it.
type SessionLister interface {
	Sessions() []browser.Info
}

// Options configure the status server.
type Options struct {
	Addr        string
	Development bool
	CORS        CORSConfig
}

// Server wraps the status HTTP server and its dependencies.
type Server struct {
	router   *gin.Engine
	http     *http.Server
	sessions SessionLister
	metrics  *monitoring.Metrics
	logger   *logging.Logger
	started  time.Time
	listener net.Listener
	served   chan error
}

// New creates a status server. sessions, metrics and logger may be nil.
func New(opts Options, sessions SessionLister, metrics *monitoring.Metrics, logger *logging.Logger) *Server {
	if !opts.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.CORS.AllowOrigins == nil {
		opts.CORS = DefaultCORSConfig()
	}

	s := &Server{
		router:   gin.New(),
		sessions: sessions,
		metrics:  metrics,
		logger:   logging.OrNop(logger).Named("server"),
		started:  time.Now(),
	}
	s.router.Use(gin.Recovery())
	s.router.Use(monitoring.Middleware(metrics))
	s.router.Use(corsMiddleware(opts.CORS))

	s.router.GET("/healthz", s.health)
	s.router.GET("/sessions", s.listSessions)
	s.router.GET("/sessions/:id", s.getSession)
	if metrics != nil {
		s.router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	s.listener = ln
	s.served = make(chan error, 1)
	s.logger.Info("Starting status server", zap.String("addr", ln.Addr().String()))
	go func() {
		err := s.http.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.served <- err
	}()
	return nil
}

// Addr is the bound address once started, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.http.Addr
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.served == nil {
		return nil
	}
	s.logger.Info("Shutting down status server")
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown status server: %w", err)
	}
	return <-s.served
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"uptime":   time.Since(s.started).Round(time.Second).String(),
		"sessions": len(s.list()),
	})
}

func (s *Server) listSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": s.list()})
}

func (s *Server) getSession(c *gin.Context) {
	sid, _, err := id.ParseSessionID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, info := range s.list() {
		if info.ID == sid {
			c.JSON(http.StatusOK, info)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("session %s not found", sid)})
}

func (s *Server) list() []browser.Info {
	if s.sessions == nil {
		return []browser.Info{}
	}
	out := s.sessions.Sessions()
	if out == nil {
		out = []browser.Info{}
	}
	return out
}
