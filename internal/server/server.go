// Package server 通过 HTTP 对外提供 Sandflake ID
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sandflake/internal/config"
	"sandflake/pkg/idgen/core"
	"sandflake/pkg/idgen/sandflake"
)

// Issuer 发放ID的最小接口
type Issuer interface {
	NextID() (sandflake.ID, error)
	NextObjectID(class sandflake.ObjectClass) (sandflake.ID, error)
	NextIDBatch(n int) ([]sandflake.ID, error)
}

// Generator 服务依赖的生成器能力
type Generator interface {
	Issuer
	core.IConfigurableGenerator
	core.IMonitorableGenerator
}

var _ Generator = (*sandflake.Generator)(nil)

// Server HTTP服务
type Server struct {
	gen    Generator
	auth   *authenticator
	router *gin.Engine
	http   *http.Server
	cfg    config.ServerConfig
	logger *zap.Logger
}

// New 创建服务并注册路由
func New(cfg *config.Config, gen Generator, logger *zap.Logger) (*Server, error) {
	if gen == nil {
		return nil, errors.New("server: generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	auth, err := newAuthenticator(cfg.Auth, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		newGeneratorCollector(gen, strconv.FormatInt(gen.GetNodeID(), 10)),
		collectors.NewGoCollector(),
	)

	s := &Server{
		gen:    gen,
		auth:   auth,
		cfg:    cfg.Server,
		logger: logger,
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	s.registerRoutes(router, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	s.router = router

	s.http = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s, nil
}

func (s *Server) registerRoutes(router *gin.Engine, metrics http.Handler) {
	router.GET("/health", s.health)

	authorized := router.Group("/", s.auth.middleware())
	authorized.GET("/metrics", gin.WrapH(metrics))

	v1 := authorized.Group("/v1")
	v1.GET("/ids", s.nextIDs)
	v1.GET("/ids/decode/:id", s.decodeID)
	v1.GET("/ids/:class", s.nextObjectID)
}

// Handler 返回路由，便于测试
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 监听直到 ctx 取消，然后在 shutdown_timeout 内优雅关闭
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTPServer listening", zap.String("addr", s.cfg.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.logger.Error("Server closed unexpect", zap.Error(err))
		return err
	case <-ctx.Done():
	}

	s.logger.Info("HTTPServer closing", zap.String("addr", s.cfg.Addr))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
