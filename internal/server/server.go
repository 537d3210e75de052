package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	billingreport "github.com/smallbiznis/billingpulse/internal/billingreport/domain"
	"github.com/smallbiznis/billingpulse/internal/clock"
	"github.com/smallbiznis/billingpulse/internal/config"
	"github.com/smallbiznis/billingpulse/internal/idempotency"
	"github.com/smallbiznis/billingpulse/internal/observability"
	obslogger "github.com/smallbiznis/billingpulse/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/billingpulse/internal/observability/metrics"
	obstracing "github.com/smallbiznis/billingpulse/internal/observability/tracing"
	provider "github.com/smallbiznis/billingpulse/internal/provider/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
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
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
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

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	reports       billingreport.Service
	client        provider.Client
	guard         idempotency.Guard
	clock         clock.Clock
	reportMetrics *obsmetrics.ReportMetrics
	log           *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Reports       billingreport.Service
	Client        provider.Client
	Guard         idempotency.Guard
	Clock         clock.Clock
	ReportMetrics *obsmetrics.ReportMetrics `optional:"true"`
	Log           *zap.Logger
}

func NewServer(p ServerParams) *Server {
	guard := p.Guard
	if guard == nil {
		guard = idempotency.NoopGuard{}
	}
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		reports:       p.Reports,
		client:        p.Client,
		guard:         guard,
		clock:         p.Clock,
		reportMetrics: p.ReportMetrics,
		log:           p.Log.Named("http.server"),
	}

	svc.registerBillingRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerBillingRoutes() {
	api := s.engine.Group("/api/billing")

	api.GET("/status", s.GetProviderStatus)
	api.GET("/dashboard-stats", s.GetDashboardStats)

	// -------- Customers --------
	api.GET("/customers", s.ListCustomers)
	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers/:id", s.GetCustomerByID)

	// -------- Payments --------
	api.GET("/payments", s.ListPayments)
	api.GET("/payments/date-range", s.ListPaymentsInRange)
	api.POST("/payments", s.CreatePayment)
	api.GET("/recent-activities", s.GetRecentActivities)
	api.POST("/generate-boleto", s.GenerateBoleto)

	// -------- Reports --------
	api.GET("/overdue-customers", s.GetOverdueCustomers)
	api.GET("/overdue-customers/export.pdf", s.ExportOverdueCustomersPDF)
	api.GET("/reports/period", s.GetPeriodReport)
	api.GET("/reports/period/export.xlsx", s.ExportPeriodReportXLSX)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

// today is the current calendar date in the reporting timezone.
func (s *Server) today() provider.Date {
	return provider.DateOf(s.clock.Now().In(s.cfg.Location()))
}
