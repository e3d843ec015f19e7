package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/travelog-backend/internal/http/handlers"
	httpMW "github.com/yungbote/travelog-backend/internal/http/middleware"
	"github.com/yungbote/travelog-backend/internal/observability"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	TracingEnabled bool
	CORSOrigins    []string
	// MaxMultipartMemory caps the part of a multipart body kept in memory.
	MaxMultipartMemory int64

	AuthMiddleware *httpMW.AuthMiddleware
	Metrics        *observability.Metrics

	PlanHandler   *httpH.PlanHandler
	RecordHandler *httpH.RecordHandler
	SweepHandler  *httpH.SweepHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.MaxMultipartMemory > 0 {
		r.MaxMultipartMemory = cfg.MaxMultipartMemory
	}
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")

	public := api.Group("/public")
	{
		if cfg.AuthMiddleware != nil {
			public.Use(cfg.AuthMiddleware.OptionalAuth())
		}
		if cfg.RecordHandler != nil {
			public.GET("/users/:id/records", cfg.RecordHandler.ListPublicUserRecords)
			public.GET("/plans/:id/records", cfg.RecordHandler.ListPublicPlanRecords)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Plans
		if cfg.PlanHandler != nil {
			protected.POST("/plans", cfg.PlanHandler.SavePlan)
			protected.GET("/plans", cfg.PlanHandler.ListMyPlans)
			protected.GET("/plans/:id", cfg.PlanHandler.GetPlan)
			protected.DELETE("/plans/:id", cfg.PlanHandler.DeletePlan)
		}

		// Records
		if cfg.RecordHandler != nil {
			protected.POST("/records", cfg.RecordHandler.CreateRecord)
			protected.GET("/records", cfg.RecordHandler.ListMyRecords)
			protected.GET("/records/:id", cfg.RecordHandler.GetRecord)
			protected.PATCH("/records/:id", cfg.RecordHandler.UpdateRecord)
			protected.DELETE("/records/:id", cfg.RecordHandler.DeleteRecord)
			protected.GET("/plans/:id/records", cfg.RecordHandler.ListPlanRecords)
		}

		// Admin
		if cfg.SweepHandler != nil {
			admin := protected.Group("/admin")
			if cfg.AuthMiddleware != nil {
				admin.Use(cfg.AuthMiddleware.RequireAdmin())
			}
			admin.POST("/sweep", cfg.SweepHandler.RunSweep)
		}
	}

	return r
}
