package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/travelog-backend/internal/data/repos"
	types "github.com/yungbote/travelog-backend/internal/domain"
	"github.com/yungbote/travelog-backend/internal/observability"
	"github.com/yungbote/travelog-backend/internal/platform/apierr"
	"github.com/yungbote/travelog-backend/internal/platform/dbctx"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

type VisitDetail struct {
	VisitID     uuid.UUID `json:"visit_id"`
	PlaceID     uuid.UUID `json:"place_id"`
	PlaceName   string    `json:"place_name"`
	Address     string    `json:"address"`
	XCoord      string    `json:"x_coord"`
	YCoord      string    `json:"y_coord"`
	Category    string    `json:"category"`
	VisitDate   string    `json:"visit_date"`
	Order       int       `json:"order"`
	ImageURL    string    `json:"image_url"`
	Temperature *float64  `json:"temperature"`
}

type PlanDetail struct {
	ID              uuid.UUID        `json:"id"`
	UserID          uuid.UUID        `json:"user_id"`
	Name            string           `json:"name"`
	DestinationID   uuid.UUID        `json:"destination_id"`
	DestinationName string           `json:"destination_name"`
	StartDate       string           `json:"start_date"`
	EndDate         string           `json:"end_date"`
	Status          types.PlanStatus `json:"status"`
	Visits          []*VisitDetail   `json:"visits"`
}

type PlanDetailService interface {
	// Compose assembles a plan with its ordered visits and the current
	// temperature at each place. A visit whose weather cannot be fetched keeps
	// a nil temperature.
	Compose(ctx context.Context, planID uuid.UUID) (*PlanDetail, error)
}

type planDetailService struct {
	log         *logger.Logger
	plans       repos.PlanRepo
	visits      repos.PlaceVisitRepo
	directory   repos.DirectoryRepo
	weather     WeatherLookup
	metrics     *observability.Metrics
	concurrency int
}

func NewPlanDetailService(
	log *logger.Logger,
	plans repos.PlanRepo,
	visits repos.PlaceVisitRepo,
	directory repos.DirectoryRepo,
	weather WeatherLookup,
	metrics *observability.Metrics,
	concurrency int,
) PlanDetailService {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &planDetailService{
		log:         log.With("service", "PlanDetailService"),
		plans:       plans,
		visits:      visits,
		directory:   directory,
		weather:     weather,
		metrics:     metrics,
		concurrency: concurrency,
	}
}

func (s *planDetailService) Compose(ctx context.Context, planID uuid.UUID) (detail *PlanDetail, err error) {
	const op = "plan.detail"
	ctx, span := observability.StartSpan(ctx, op, attribute.String("plan_id", planID.String()))
	defer func() { observability.EndSpan(span, err) }()
	dbc := dbctx.Context{Ctx: ctx}

	plan, err := s.plans.GetByID(dbc, planID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	if plan == nil {
		return nil, apierr.NotFound(op, "plan %s not found", planID)
	}
	if err := authorizeOwner(ctx, op, plan.UserID); err != nil {
		return nil, err
	}
	dest, err := s.directory.GetDestination(dbc, plan.DestinationID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	if dest == nil {
		return nil, apierr.NotFound(op, "destination %s not found", plan.DestinationID)
	}
	visits, err := s.visits.ListByPlanID(dbc, plan.ID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	placeIDs := make([]uuid.UUID, 0, len(visits))
	for _, v := range visits {
		placeIDs = append(placeIDs, v.PlaceID)
	}
	places, err := s.directory.GetPlacesByIDs(dbc, placeIDs)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	placeByID := make(map[uuid.UUID]*types.Place, len(places))
	for _, p := range places {
		placeByID[p.ID] = p
	}

	detail = &PlanDetail{
		ID:              plan.ID,
		UserID:          plan.UserID,
		Name:            plan.Name,
		DestinationID:   dest.ID,
		DestinationName: dest.Name,
		StartDate:       types.FormatDate(plan.StartDate),
		EndDate:         types.FormatDate(plan.EndDate),
		Status:          plan.Status,
		Visits:          make([]*VisitDetail, len(visits)),
	}
	for i, v := range visits {
		vd := &VisitDetail{
			VisitID:   v.ID,
			PlaceID:   v.PlaceID,
			VisitDate: types.FormatDate(v.VisitDate),
			Order:     v.OrderIndex,
		}
		if p := placeByID[v.PlaceID]; p != nil {
			vd.PlaceName = p.Name
			vd.Address = p.Address
			vd.XCoord = p.XCoord
			vd.YCoord = p.YCoord
			vd.Category = p.Category
			vd.ImageURL = p.ImageURL
		}
		detail.Visits[i] = vd
	}

	s.fillTemperatures(ctx, detail.Visits)
	return detail, nil
}

// fillTemperatures never fails: each visit's lookup is independent and a
// failure only leaves that visit's temperature nil.
func (s *planDetailService) fillTemperatures(ctx context.Context, visits []*VisitDetail) {
	if s.weather == nil || len(visits) == 0 {
		return
	}
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, vd := range visits {
		vd := vd
		g.Go(func() error {
			x, y, err := GridCoordinates(vd.XCoord, vd.YCoord)
			if err != nil {
				s.log.Warn("Visit coordinates unusable for weather", "visit_id", vd.VisitID, "place_id", vd.PlaceID, "error", err)
				return nil
			}
			obs, err := s.weather.CurrentWeather(ctx, x, y)
			s.metrics.IncWeatherLookup(err)
			if err != nil {
				s.log.Warn("Weather lookup failed", "visit_id", vd.VisitID, "x", x, "y", y, "error", err)
				return nil
			}
			if obs != nil {
				vd.Temperature = obs.Temperature
			}
			return nil
		})
	}
	_ = g.Wait()
}

// GridCoordinates floors decimal coordinate strings to the integer grid the
// weather service expects.
func GridCoordinates(xs, ys string) (int, int, error) {
	x, err := floorCoord(xs)
	if err != nil {
		return 0, 0, fmt.Errorf("x_coord: %w", err)
	}
	y, err := floorCoord(ys)
	if err != nil {
		return 0, 0, fmt.Errorf("y_coord: %w", err)
	}
	return x, y, nil
}

func floorCoord(s string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("coordinate %q is not finite", s)
	}
	return int(math.Floor(f)), nil
}
