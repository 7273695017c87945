// Package server exposes the REST and WebSocket surface of the
// dashboard.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"fleetdash/internal/config"
	"fleetdash/internal/hub"
	"fleetdash/internal/logger"
	"fleetdash/internal/service"
)

// Server wraps the gin engine and the monitoring façade.
type Server struct {
	engine  *gin.Engine
	monitor *service.Monitor
	hub     *hub.Hub
	addr    string
	log     logger.Logger
	started time.Time
}

func New(cfg *config.Config, monitor *service.Monitor, h *hub.Hub, log logger.Logger) *Server {
	if log == nil {
		log = logger.Noop()
	}
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	if cfg.Server.Mode != "release" {
		engine.Use(gin.Logger())
	}
	engine.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	s := &Server{
		engine:  engine,
		monitor: monitor,
		hub:     h,
		addr:    cfg.Server.Addr,
		log:     log,
		started: time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	{
		servers := api.Group("/servers")
		{
			servers.GET("", s.listServers)
			servers.GET("/:id", s.serverDetail)
			servers.POST("/:id/start", s.startContainer)
			servers.POST("/:id/stop", s.stopContainer)
			servers.POST("/:id/restart", s.restartContainer)
			servers.GET("/:id/stats", s.serverStats)
			servers.GET("/:id/stats/history", s.serverStatsHistory)
			servers.GET("/:id/logs", s.containerLogs)
		}

		commands := api.Group("/commands")
		{
			commands.POST("/execute", s.executeCommand)
			commands.POST("/script", s.executeScript)
			commands.GET("/history", s.commandHistory)
			commands.GET("/templates", s.commandTemplates)
		}

		monitoring := api.Group("/monitoring")
		{
			monitoring.GET("/ping/:id", s.pingReport)
			monitoring.GET("/alerts", s.allAlerts)
			monitoring.GET("/alerts/:id", s.hostAlerts)
			monitoring.GET("/thresholds", s.getThresholds)
			monitoring.POST("/thresholds", s.setThreshold)
			monitoring.GET("/overview", s.overview)
		}

		api.GET("/health", s.health)
	}

	s.engine.GET("/ws", s.hub.Handler())
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
