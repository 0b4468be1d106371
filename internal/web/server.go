package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"congress-alpha/internal/broker"
	"congress-alpha/internal/config"
	"congress-alpha/internal/engine"
	"congress-alpha/internal/logger"
	"congress-alpha/internal/storage"
)

type Server struct {
	httpServer *http.Server
	engine     *engine.Engine
	lock       *engine.CycleLock
	broker     *broker.Client
	repo       *storage.Repository
	config     *config.Config
	logger     *logger.Logger
}

func NewServer(
	eng *engine.Engine,
	lock *engine.CycleLock,
	bc *broker.Client,
	repo *storage.Repository,
	cfg *config.Config,
	log *logger.Logger,
) *Server {
	s := &Server{
		engine: eng,
		lock:   lock,
		broker: bc,
		repo:   repo,
		config: cfg,
		logger: log,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.GET("/signals", s.listSignals)
		api.POST("/signals", s.createSignal)
		api.GET("/signals/pending", s.pendingSignals)
		api.GET("/signals/:id", s.getSignal)
		api.POST("/signals/:id/confirm", s.confirmSignal)
		api.POST("/signals/:id/reject", s.rejectSignal)
		api.DELETE("/signals/:id", s.deleteSignal)

		api.POST("/actions/trade", s.triggerTrade)
		api.GET("/actions/status", s.actionStatus)

		api.GET("/portfolio", s.portfolio)
		api.GET("/proxies", s.openProxies)
		api.GET("/trades", s.tradeHistory)
		api.GET("/events", s.recentEvents)
		api.GET("/health", s.health)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("web server starting", "port", s.config.Web.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
