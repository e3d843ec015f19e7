package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/travelog-backend/internal/data/repos"
	types "github.com/yungbote/travelog-backend/internal/domain"
	"github.com/yungbote/travelog-backend/internal/observability"
	"github.com/yungbote/travelog-backend/internal/platform/dbctx"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

// SweepReport summarizes one TransitionDuePlans pass.
type SweepReport struct {
	Day       string           `json:"day" yaml:"day"`
	Started   int              `json:"started" yaml:"started"`
	Completed int              `json:"completed" yaml:"completed"`
	Failed    int              `json:"failed" yaml:"failed"`
	Errors    []PlanSweepError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

type PlanSweepError struct {
	PlanID uuid.UUID `json:"plan_id" yaml:"plan_id"`
	Target string    `json:"target" yaml:"target"`
	Error  string    `json:"error" yaml:"error"`
}

type PlanLifecycleService interface {
	// TransitionDuePlans starts plans beginning on today's date, then completes
	// plans ending on it. A failure on one plan is recorded in the report and
	// does not stop the others; only a failed listing aborts the pass.
	TransitionDuePlans(ctx context.Context, today time.Time) (*SweepReport, error)
}

type planLifecycleService struct {
	log   *logger.Logger
	plans repos.PlanRepo
}

func NewPlanLifecycleService(log *logger.Logger, plans repos.PlanRepo) PlanLifecycleService {
	return &planLifecycleService{
		log:   log.With("service", "PlanLifecycleService"),
		plans: plans,
	}
}

func (s *planLifecycleService) TransitionDuePlans(ctx context.Context, today time.Time) (report *SweepReport, err error) {
	day := types.DateOf(today)
	ctx, span := observability.StartSpan(ctx, "plans.sweep", attribute.String("day", types.FormatDate(day)))
	defer func() { observability.EndSpan(span, err) }()

	report = &SweepReport{Day: types.FormatDate(day)}
	dbc := dbctx.Context{Ctx: ctx}

	starting, err := s.plans.ListStartingOn(dbc, day)
	if err != nil {
		return report, fmt.Errorf("list plans starting %s: %w", report.Day, err)
	}
	for _, p := range starting {
		if s.advance(dbc, p, types.PlanStatusInProgress, report) {
			report.Started++
		}
	}

	// Runs after the start pass so a plan that starts and ends today finishes COMPLETED.
	ending, err := s.plans.ListEndingOn(dbc, day)
	if err != nil {
		return report, fmt.Errorf("list plans ending %s: %w", report.Day, err)
	}
	for _, p := range ending {
		if s.advance(dbc, p, types.PlanStatusCompleted, report) {
			report.Completed++
		}
	}

	s.log.Info("Plan sweep finished",
		"day", report.Day,
		"started", report.Started,
		"completed", report.Completed,
		"failed", report.Failed,
	)
	return report, nil
}

func (s *planLifecycleService) advance(dbc dbctx.Context, p *types.TravelPlan, next types.PlanStatus, report *SweepReport) bool {
	if p == nil {
		return false
	}
	from := p.Status
	if err := p.Advance(next); err != nil {
		s.log.Debug("Skipping plan", "plan_id", p.ID, "from", from, "to", next, "reason", err.Error())
		return false
	}
	ok, err := s.plans.UpdateStatus(dbc, p.ID, from, next)
	if err != nil {
		p.Status = from
		report.Failed++
		report.Errors = append(report.Errors, PlanSweepError{PlanID: p.ID, Target: string(next), Error: err.Error()})
		s.log.Error("Plan status transition failed", "plan_id", p.ID, "from", from, "to", next, "error", err)
		return false
	}
	if !ok {
		s.log.Debug("Plan status changed concurrently; skipped", "plan_id", p.ID, "expected", from, "to", next)
		return false
	}
	return true
}
