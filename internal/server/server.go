// Package server assembles the HTTP stack and runs it until the context ends.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/maxviazov/module-progress-console/internal/config"
	"github.com/maxviazov/module-progress-console/internal/handler"
	"github.com/maxviazov/module-progress-console/internal/middleware"
	"github.com/maxviazov/module-progress-console/internal/service"
)

type Server struct {
	cfg     *config.Config
	log     zerolog.Logger
	backend *Backend
	http    *http.Server
}

// New wires the engine around an already opened backend.
func New(cfg *config.Config, backend *Backend, logger zerolog.Logger) *Server {
	log := logger.With().Str("module", "server").Logger()
	return &Server{
		cfg:     cfg,
		log:     log,
		backend: backend,
		http: &http.Server{
			Addr:              ":" + strconv.Itoa(cfg.App.Port),
			Handler:           NewEngine(cfg, backend, logger, prometheus.NewRegistry()),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// NewEngine builds the gin engine: recovery, request id, logging and metrics,
// error rendering, CORS, then the API routes and /metrics.
func NewEngine(cfg *config.Config, backend *Backend, logger zerolog.Logger, reg *prometheus.Registry) *gin.Engine {
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(logger, middleware.NewMetrics(reg)),
		middleware.ErrorHandler(logger),
		cors.New(corsConfig(cfg.CORS)),
	)

	svc := service.NewCourseService(backend.Courses, backend.Tx, logger)
	handler.Register(r, backend.Courses, backend.Courses, svc)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	return r
}

// corsConfig lets the admin UI read Content-Range from another origin.
func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderContentRange, middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			cc.AllowAllOrigins = true
			return cc
		}
	}
	cc.AllowOrigins = c.AllowedOrigins
	if len(cc.AllowOrigins) == 0 {
		cc.AllowAllOrigins = true
	}
	return cc
}

// Run listens on the configured port.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve blocks until ctx is done, then drains in-flight requests
// within app.shutdown_timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info().Str("addr", ln.Addr().String()).Str("driver", s.cfg.Data.Driver).Msg("http server listening")
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		timeout := time.Duration(s.cfg.App.ShutdownTimeout) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.log.Info().Dur("timeout", timeout).Msg("shutting down")
		return s.http.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.backend.Close()
	return err
}
