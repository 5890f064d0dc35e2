package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-monitoring-api/api/swagger"
	"github.com/noah-isme/sma-monitoring-api/internal/handler"
	"github.com/noah-isme/sma-monitoring-api/internal/middleware"
	"github.com/noah-isme/sma-monitoring-api/internal/service"
	"github.com/noah-isme/sma-monitoring-api/pkg/config"
	"github.com/noah-isme/sma-monitoring-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-monitoring-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-monitoring-api/pkg/middleware/requestid"
)

type routerDeps struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *service.MetricsService
	monitoring *handler.MonitoringHandler
	probes     *handler.MetricsHandler
}

func newRouter(deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.logger, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(deps.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	r.GET("/health", deps.probes.Health)
	r.GET("/ready", deps.probes.Ready)
	r.GET("/metrics", deps.probes.Prometheus)

	if deps.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if !deps.cfg.Monitoring.Enabled {
		return r
	}

	api := r.Group(deps.cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	monitoring := api.Group("/monitoring")
	monitoring.GET("/transcriptions", deps.monitoring.Transcriptions)
	monitoring.GET("/analyses", deps.monitoring.Analyses)
	monitoring.GET("/costs", deps.monitoring.Costs)
	monitoring.GET("/costs/export", deps.monitoring.CostsExport)
	monitoring.GET("/system", deps.probes.System)

	return r
}
