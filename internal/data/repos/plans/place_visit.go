package plans

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/travelog-backend/internal/domain"
	"github.com/yungbote/travelog-backend/internal/platform/dbctx"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

type PlaceVisitRepo interface {
	Create(dbc dbctx.Context, rows []*types.PlaceVisit) ([]*types.PlaceVisit, error)
	ListByPlanID(dbc dbctx.Context, planID uuid.UUID) ([]*types.PlaceVisit, error)
	FullDeleteByPlanIDs(dbc dbctx.Context, planIDs []uuid.UUID) error
}

type placeVisitRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlaceVisitRepo(db *gorm.DB, baseLog *logger.Logger) PlaceVisitRepo {
	return &placeVisitRepo{db: db, log: baseLog.With("repo", "PlaceVisitRepo")}
}

func (r *placeVisitRepo) Create(dbc dbctx.Context, rows []*types.PlaceVisit) ([]*types.PlaceVisit, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.PlaceVisit{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByPlanID returns the itinerary in visiting order.
func (r *placeVisitRepo) ListByPlanID(dbc dbctx.Context, planID uuid.UUID) ([]*types.PlaceVisit, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.PlaceVisit
	if planID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("plan_id = ?", planID).
		Order("order_index ASC").
		Order("visit_date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *placeVisitRepo) FullDeleteByPlanIDs(dbc dbctx.Context, planIDs []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(planIDs) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("plan_id IN ?", planIDs).
		Delete(&types.PlaceVisit{}).Error
}
