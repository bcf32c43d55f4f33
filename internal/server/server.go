// Package server wires the HTTP surface over the ingestion pipeline and
// the dashboard queries.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fintelhq/fintel/internal/anomaly"
	"github.com/fintelhq/fintel/internal/config"
	"github.com/fintelhq/fintel/internal/dashboard"
	"github.com/fintelhq/fintel/internal/invoice"
	"github.com/fintelhq/fintel/internal/observability"
	obslogger "github.com/fintelhq/fintel/internal/observability/logger"
	obsmetrics "github.com/fintelhq/fintel/internal/observability/metrics"
	obstracing "github.com/fintelhq/fintel/internal/observability/tracing"
	"github.com/fintelhq/fintel/internal/processing"
	"github.com/fintelhq/fintel/internal/providers"
	"github.com/fintelhq/fintel/internal/ratelimit"
	"github.com/fintelhq/fintel/internal/vendors"
	"github.com/fintelhq/fintel/pkg/db"
)

var Module = fx.Module("http.server",
	config.Module,
	db.Module,
	fx.Provide(registerGin),
	invoice.Module,
	vendors.Module,
	anomaly.Module,
	providers.Module,
	processing.Module,
	dashboard.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// NewEngine builds the gin engine with the observability middleware stack.
func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	processingSvc processing.Service
	dashboardSvc  dashboard.Service
	uploadLimiter *ratelimit.UploadLimiter
}

// ServerParams collects everything the HTTP surface needs.
type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	ProcessingSvc processing.Service
	DashboardSvc  dashboard.Service
	UploadLimiter *ratelimit.UploadLimiter `optional:"true"`
}

// NewServer registers the API routes.
func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		processingSvc: p.ProcessingSvc,
		dashboardSvc:  p.DashboardSvc,
		uploadLimiter: p.UploadLimiter,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.POST("/invoices/upload", s.uploadInvoice)
	api.GET("/invoices/history", s.invoiceHistory)
	api.GET("/vendors", s.listVendors)
	api.GET("/anomalies", s.listAnomalies)
	api.GET("/dashboard/stats", s.dashboardStats)
	api.GET("/dashboard/anomaly-trends", s.anomalyTrends)
}
