package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"healthScope/internal/metrics"
	"healthScope/internal/model"
	"healthScope/internal/tracker"
)

const shutdownTimeout = 5 * time.Second

// Refresher schedules an out-of-band refresh of the pinned account.
type Refresher interface {
	Trigger()
}

// Server exposes the badge, account statuses and metrics over HTTP so an
// extension or widget can poll them.
type Server struct {
	tracker   *tracker.Tracker
	refresher Refresher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	router    *gin.Engine
}

func NewServer(t *tracker.Tracker, refresher Refresher, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		tracker:   t,
		refresher: refresher,
		metrics:   m,
		logger:    logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))
	router.Use(requestLogger(s.logger))
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/badge", s.getBadge)
		v1.GET("/accounts", s.listAccounts)
		v1.GET("/accounts/:network/:address", s.getAccount)
		v1.POST("/refresh", s.postRefresh)
	}
	return router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

type accountsResponse struct {
	Pinned   string                `json:"pinned,omitempty"`
	Accounts []model.AccountStatus `json:"accounts"`
}

func (s *Server) getBadge(c *gin.Context) {
	c.JSON(http.StatusOK, s.tracker.Badge())
}

func (s *Server) listAccounts(c *gin.Context) {
	resp := accountsResponse{Accounts: s.tracker.Statuses()}
	if pinned, ok := s.tracker.Pinned(); ok {
		resp.Pinned = pinned.Key().String()
	}
	c.JSON(http.StatusOK, resp)
}

// getAccount returns the latest status. With ?max_age=<duration> it fetches
// first, serving from cache when the cached entry is young enough.
func (s *Server) getAccount(c *gin.Context) {
	key, err := model.ParseAccountKey(c.Param("network") + ":" + c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, ok := s.tracker.Account(key); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not tracked"})
		return
	}

	if raw := c.Query("max_age"); raw != "" {
		maxAge, err := time.ParseDuration(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid max_age: %v", err)})
			return
		}
		status, _ := s.tracker.RefreshAccount(c.Request.Context(), key, maxAge)
		c.JSON(http.StatusOK, status)
		return
	}

	status, ok := s.tracker.Status(key)
	if !ok {
		account, _ := s.tracker.Account(key)
		status = model.AccountStatus{Account: account}
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) postRefresh(c *gin.Context) {
	if s.refresher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not running"})
		return
	}
	s.refresher.Trigger()
	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
