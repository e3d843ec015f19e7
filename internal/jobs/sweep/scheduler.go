// Package sweep runs the daily plan status sweep on a cron schedule.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/travelog-backend/internal/observability"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
	"github.com/yungbote/travelog-backend/internal/services"
)

// DefaultSpec fires at midnight. robfig/cron v1 specs carry a seconds field.
const DefaultSpec = "0 0 0 * * *"

const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

// ErrStopped is returned by RunOnce once Stop has been called.
var ErrStopped = errors.New("plan sweep scheduler stopped")

type Config struct {
	Spec     string
	Location *time.Location
}

type Scheduler struct {
	log      *logger.Logger
	plans    services.PlanLifecycleService
	metrics  *observability.Metrics
	spec     string
	loc      *time.Location
	now      func() time.Time
	group    singleflight.Group
	inflight sync.WaitGroup

	mu       sync.Mutex
	cron     *cron.Cron
	stopping bool
}

func New(baseLog *logger.Logger, plans services.PlanLifecycleService, metrics *observability.Metrics, cfg Config) (*Scheduler, error) {
	spec := cfg.Spec
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := cron.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid sweep cron spec %q: %w", spec, err)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		log:     baseLog.With("component", "PlanSweep"),
		plans:   plans,
		metrics: metrics,
		spec:    spec,
		loc:     loc,
		now:     time.Now,
	}, nil
}

// Start registers the cron job. Runs fired by the schedule are detached from
// ctx cancellation so shutdown never interrupts a pass halfway.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	s.stopping = false
	c := cron.NewWithLocation(s.loc)
	runCtx := context.WithoutCancel(ctx)
	if err := c.AddFunc(s.spec, func() { s.fire(runCtx) }); err != nil {
		return fmt.Errorf("register sweep: %w", err)
	}
	c.Start()
	s.cron = c
	s.log.Info("Plan sweep scheduled", "spec", s.spec, "timezone", s.loc.String())
	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish. Runs that
// fire after Stop was entered are refused.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.stopping = true
	s.mu.Unlock()
	if c != nil {
		c.Stop()
	}
	s.inflight.Wait()
}

func (s *Scheduler) fire(ctx context.Context) {
	_, err := s.RunOnce(ctx, s.now().In(s.loc), TriggerCron)
	switch {
	case errors.Is(err, ErrStopped):
		s.log.Info("Scheduled plan sweep skipped; scheduler stopping")
	case err != nil:
		s.log.Error("Scheduled plan sweep failed", "error", err)
	}
}

// enter registers a run with inflight unless Stop has begun. The check and
// the Add share the lock Stop takes before it waits.
func (s *Scheduler) enter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.inflight.Add(1)
	return true
}

// Today is the current date in the scheduler's time zone.
func (s *Scheduler) Today() time.Time {
	return s.now().In(s.loc)
}

// RunOnce sweeps for the date of today. A call made while another run for the
// same day is in progress joins that run instead of starting a second one.
func (s *Scheduler) RunOnce(ctx context.Context, today time.Time, trigger string) (*services.SweepReport, error) {
	if !s.enter() {
		return nil, ErrStopped
	}
	defer s.inflight.Done()

	key := today.In(s.loc).Format("2006-01-02")
	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		return s.run(ctx, today, trigger)
	})
	if shared {
		s.log.Info("Plan sweep already running; joined", "day", key, "trigger", trigger)
	}
	report, _ := v.(*services.SweepReport)
	return report, err
}

func (s *Scheduler) run(ctx context.Context, today time.Time, trigger string) (report *services.SweepReport, err error) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Plan sweep panic", "trigger", trigger, "panic", r)
			err = fmt.Errorf("plan sweep panic: %v", r)
		}
		if report != nil {
			s.metrics.ObserveSweep(trigger, report.Started, report.Completed, report.Failed, time.Since(started))
		} else {
			s.metrics.ObserveSweep(trigger, 0, 0, 0, time.Since(started))
		}
	}()
	report, err = s.plans.TransitionDuePlans(ctx, today.In(s.loc))
	if err != nil {
		return report, err
	}
	s.log.Info("Plan sweep run",
		"trigger", trigger,
		"day", report.Day,
		"started", report.Started,
		"completed", report.Completed,
		"failed", report.Failed,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return report, nil
}
