package app

import (
	"context"

	"github.com/yungbote/travelog-backend/internal/http"
	httpH "github.com/yungbote/travelog-backend/internal/http/handlers"
	httpMW "github.com/yungbote/travelog-backend/internal/http/middleware"
	"github.com/yungbote/travelog-backend/internal/observability"
	"github.com/yungbote/travelog-backend/internal/platform/authtoken"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health *httpH.HealthHandler
	Plan   *httpH.PlanHandler
	Record *httpH.RecordHandler
	Sweep  *httpH.SweepHandler
}

func wireMiddleware(log *logger.Logger, cfg Config) (Middleware, error) {
	log.Info("Wiring middleware...")
	verifier, err := authtoken.NewVerifier(cfg.JWTSecretKey)
	if err != nil {
		return Middleware{}, err
	}
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, verifier, cfg.AdminUserIDs),
	}, nil
}

func wireHandlers(log *logger.Logger, cfg Config, serviceset Services, ping func(ctx context.Context) error) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(ping),
		Plan:   httpH.NewPlanHandler(serviceset.Plan, serviceset.PlanDetail),
		Record: httpH.NewRecordHandler(serviceset.Record, int64(cfg.RecordMaxImageBytes)),
		Sweep:  httpH.NewSweepHandler(serviceset.Sweep),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:                log,
		ServiceName:        cfg.Otel.ServiceName,
		TracingEnabled:     cfg.Otel.Enabled,
		CORSOrigins:        cfg.CORSOrigins,
		MaxMultipartMemory: 4 * int64(cfg.RecordMaxImageBytes),
		AuthMiddleware:     middleware.Auth,
		Metrics:            metrics,
		PlanHandler:        handlers.Plan,
		RecordHandler:      handlers.Record,
		SweepHandler:       handlers.Sweep,
		HealthHandler:      handlers.Health,
	})
}
