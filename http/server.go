// Package http 提供HTTP服务器功能
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server HTTP服务器
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           5000,
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
		MaxBodyBytes:   1 << 20,
	}
}

// NewServer 创建HTTP服务器
func NewServer(config ServerConfig, h *Handlers) *Server {
	defaults := DefaultServerConfig()
	if config.Port == 0 {
		config.Port = defaults.Port
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = defaults.AllowedOrigins
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      NewHandler(config, h),
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
			IdleTimeout:  120 * time.Second,
		},
		config: config,
		logger: h.logger,
	}
}

// NewHandler 注册路由并包装中间件
func NewHandler(config ServerConfig, h *Handlers) http.Handler {
	mux := http.NewServeMux()
	RegisterHandlers(mux, h)

	chain := Chain(
		RecoveryMiddleware(h.logger),              // 1. 恢复中间件（最先执行，捕获panic）
		LoggerMiddleware(h.logger, h.metrics),     // 2. 日志与指标
		SecurityHeadersMiddleware,                 // 3. 安全头中间件
		CORSMiddleware(config.AllowedOrigins),     // 4. CORS中间件
		RequestSizeMiddleware(config.MaxBodyBytes), // 5. 请求大小限制
	)
	return chain(mux)
}

// Start 启动服务器，监听失败时返回错误
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop 停止服务器
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

// Addr 返回服务器地址
func (s *Server) Addr() string {
	return s.server.Addr
}
