package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/travelog-backend/internal/data/aggregates"
	"github.com/yungbote/travelog-backend/internal/data/repos"
	types "github.com/yungbote/travelog-backend/internal/domain"
	"github.com/yungbote/travelog-backend/internal/platform/apierr"
	"github.com/yungbote/travelog-backend/internal/platform/dbctx"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

type PlaceVisitInput struct {
	PlaceID   uuid.UUID `json:"place_id"`
	VisitDate string    `json:"visit_date"`
	Order     int       `json:"order"`
}

type SavePlanInput struct {
	DestinationID uuid.UUID         `json:"destination_id"`
	Name          string            `json:"name"`
	StartDate     string            `json:"start_date"`
	EndDate       string            `json:"end_date"`
	Visits        []PlaceVisitInput `json:"visits"`
}

type PlanSummary struct {
	ID                 uuid.UUID        `json:"id"`
	Name               string           `json:"name"`
	DestinationID      uuid.UUID        `json:"destination_id"`
	DestinationName    string           `json:"destination_name"`
	DestinationAddress string           `json:"destination_address"`
	StartDate          string           `json:"start_date"`
	EndDate            string           `json:"end_date"`
	Status             types.PlanStatus `json:"status"`
}

type PlanService interface {
	Save(ctx context.Context, userID uuid.UUID, in SavePlanInput) (*types.TravelPlan, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*PlanSummary, error)
	// Delete removes the plan and its place visits. Records written against
	// the plan are left alone.
	Delete(ctx context.Context, planID uuid.UUID) error
}

type planService struct {
	log       *logger.Logger
	tx        aggregates.TxRunner
	plans     repos.PlanRepo
	visits    repos.PlaceVisitRepo
	directory repos.DirectoryRepo
}

func NewPlanService(log *logger.Logger, tx aggregates.TxRunner, plans repos.PlanRepo, visits repos.PlaceVisitRepo, directory repos.DirectoryRepo) PlanService {
	return &planService{
		log:       log.With("service", "PlanService"),
		tx:        tx,
		plans:     plans,
		visits:    visits,
		directory: directory,
	}
}

func (s *planService) Save(ctx context.Context, userID uuid.UUID, in SavePlanInput) (*types.TravelPlan, error) {
	const op = "plan.save"
	dbc := dbctx.Context{Ctx: ctx}

	if err := authorizeOwner(ctx, op, userID); err != nil {
		return nil, err
	}
	user, err := s.directory.GetUser(dbc, userID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	if user == nil {
		return nil, apierr.NotFound(op, "user %s not found", userID)
	}
	dest, err := s.directory.GetDestination(dbc, in.DestinationID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	if dest == nil {
		return nil, apierr.NotFound(op, "destination %s not found", in.DestinationID)
	}

	plan, visits, err := s.buildPlan(dbc, userID, in)
	if err != nil {
		return nil, err
	}

	err = s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		if _, err := s.plans.Create(dbc, []*types.TravelPlan{plan}); err != nil {
			return err
		}
		for _, v := range visits {
			v.PlanID = plan.ID
		}
		_, err := s.visits.Create(dbc, visits)
		return err
	})
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	s.log.Info("Plan saved", "plan_id", plan.ID, "user_id", userID, "visits", len(visits))
	return plan, nil
}

func (s *planService) buildPlan(dbc dbctx.Context, userID uuid.UUID, in SavePlanInput) (*types.TravelPlan, []*types.PlaceVisit, error) {
	const op = "plan.save"
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, nil, apierr.Validation(op, "name is required")
	}
	start, err := types.ParseDate(in.StartDate)
	if err != nil {
		return nil, nil, apierr.Validation(op, "start_date: %v", err)
	}
	end, err := types.ParseDate(in.EndDate)
	if err != nil {
		return nil, nil, apierr.Validation(op, "end_date: %v", err)
	}
	if types.DateBefore(end, start) {
		return nil, nil, apierr.Validation(op, "start_date %s is after end_date %s", in.StartDate, in.EndDate)
	}

	placeIDs := make([]uuid.UUID, 0, len(in.Visits))
	seenOrder := map[int]bool{}
	visits := make([]*types.PlaceVisit, 0, len(in.Visits))
	for i, v := range in.Visits {
		d, err := types.ParseDate(v.VisitDate)
		if err != nil {
			return nil, nil, apierr.Validation(op, "visits[%d].visit_date: %v", i, err)
		}
		if types.DateBefore(d, start) || types.DateBefore(end, d) {
			return nil, nil, apierr.Validation(op, "visits[%d].visit_date %s is outside the plan dates", i, v.VisitDate)
		}
		if seenOrder[v.Order] {
			return nil, nil, apierr.Validation(op, "visits[%d].order %d is duplicated", i, v.Order)
		}
		seenOrder[v.Order] = true
		placeIDs = append(placeIDs, v.PlaceID)
		visits = append(visits, &types.PlaceVisit{
			ID:         uuid.New(),
			PlaceID:    v.PlaceID,
			VisitDate:  d,
			OrderIndex: v.Order,
		})
	}
	if len(placeIDs) > 0 {
		places, err := s.directory.GetPlacesByIDs(dbc, placeIDs)
		if err != nil {
			return nil, nil, apierr.Wrap(apierr.KindInternal, op, err)
		}
		known := make(map[uuid.UUID]bool, len(places))
		for _, p := range places {
			known[p.ID] = true
		}
		for i, id := range placeIDs {
			if !known[id] {
				return nil, nil, apierr.Validation(op, "visits[%d].place_id %s does not exist", i, id)
			}
		}
	}

	now := time.Now().UTC()
	plan := &types.TravelPlan{
		ID:            uuid.Must(uuid.NewV7()),
		UserID:        userID,
		DestinationID: in.DestinationID,
		Name:          name,
		StartDate:     start,
		EndDate:       end,
		Status:        types.PlanStatusNotStarted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return plan, visits, nil
}

func (s *planService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*PlanSummary, error) {
	const op = "plan.list"
	dbc := dbctx.Context{Ctx: ctx}
	if err := authorizeOwner(ctx, op, userID); err != nil {
		return nil, err
	}
	user, err := s.directory.GetUser(dbc, userID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	if user == nil {
		return nil, apierr.NotFound(op, "user %s not found", userID)
	}
	plans, err := s.plans.ListByUser(dbc, userID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}

	destIDs := make([]uuid.UUID, 0, len(plans))
	for _, p := range plans {
		destIDs = append(destIDs, p.DestinationID)
	}
	dests, err := s.directory.GetDestinationsByIDs(dbc, destIDs)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, op, err)
	}
	byID := make(map[uuid.UUID]*types.Destination, len(dests))
	for _, d := range dests {
		byID[d.ID] = d
	}

	out := make([]*PlanSummary, 0, len(plans))
	for _, p := range plans {
		sum := &PlanSummary{
			ID:            p.ID,
			Name:          p.Name,
			DestinationID: p.DestinationID,
			StartDate:     types.FormatDate(p.StartDate),
			EndDate:       types.FormatDate(p.EndDate),
			Status:        p.Status,
		}
		if d := byID[p.DestinationID]; d != nil {
			sum.DestinationName = d.Name
			sum.DestinationAddress = d.Address
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *planService) Delete(ctx context.Context, planID uuid.UUID) error {
	const op = "plan.delete"
	plan, err := s.plans.GetByID(dbctx.Context{Ctx: ctx}, planID)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, op, err)
	}
	if plan == nil {
		return apierr.NotFound(op, "plan %s not found", planID)
	}
	if err := authorizeOwner(ctx, op, plan.UserID); err != nil {
		return err
	}
	err = s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		if err := s.visits.FullDeleteByPlanIDs(dbc, []uuid.UUID{planID}); err != nil {
			return err
		}
		return s.plans.FullDeleteByIDs(dbc, []uuid.UUID{planID})
	})
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, op, err)
	}
	s.log.Info("Plan deleted", "plan_id", planID)
	return nil
}
