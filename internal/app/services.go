package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/travelog-backend/internal/data/aggregates"
	"github.com/yungbote/travelog-backend/internal/jobs/sweep"
	"github.com/yungbote/travelog-backend/internal/observability"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
	"github.com/yungbote/travelog-backend/internal/services"
)

type Services struct {
	Plan          services.PlanService
	PlanDetail    services.PlanDetailService
	PlanLifecycle services.PlanLifecycleService
	Record        services.RecordService
	Sweep         *sweep.Scheduler
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")
	tx := aggregates.NewGormTxRunner(db)

	lifecycle := services.NewPlanLifecycleService(log, reposet.Plan)

	loc, err := cfg.SweepLocation()
	if err != nil {
		return Services{}, err
	}
	scheduler, err := sweep.New(log, lifecycle, metrics, sweep.Config{
		Spec:     cfg.SweepCron,
		Location: loc,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init sweep scheduler: %w", err)
	}

	var store services.ImageStore
	if clients.Bucket != nil {
		store = clients.Bucket
	}

	return Services{
		Plan: services.NewPlanService(log, tx, reposet.Plan, reposet.PlaceVisit, reposet.Directory),
		PlanDetail: services.NewPlanDetailService(
			log,
			reposet.Plan,
			reposet.PlaceVisit,
			reposet.Directory,
			clients.Weather,
			metrics,
			cfg.WeatherConcurrency,
		),
		PlanLifecycle: lifecycle,
		Record: services.NewRecordService(
			log,
			services.RecordServiceConfig{
				DeletePolicy:      cfg.RecordDeletePolicy,
				UploadConcurrency: cfg.RecordUploadConcurrency,
				MaxImageBytes:     cfg.RecordMaxImageBytes,
			},
			tx,
			reposet.Plan,
			reposet.Record,
			reposet.RecordImage,
			reposet.Review,
			reposet.Directory,
			store,
			metrics,
		),
		Sweep: scheduler,
	}, nil
}
