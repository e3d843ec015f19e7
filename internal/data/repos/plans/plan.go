package plans

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/travelog-backend/internal/domain"
	"github.com/yungbote/travelog-backend/internal/platform/dbctx"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

type PlanRepo interface {
	Create(dbc dbctx.Context, rows []*types.TravelPlan) ([]*types.TravelPlan, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TravelPlan, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.TravelPlan, error)

	// ListStartingOn returns plans starting on day that are not already IN_PROGRESS.
	ListStartingOn(dbc dbctx.Context, day datatypes.Date) ([]*types.TravelPlan, error)
	// ListEndingOn returns plans ending on day that are not already COMPLETED.
	ListEndingOn(dbc dbctx.Context, day datatypes.Date) ([]*types.TravelPlan, error)

	// UpdateStatus is a compare-and-set on status; ok is false when the row
	// was no longer in status from.
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, from, to types.PlanStatus) (ok bool, err error)

	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type planRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlanRepo(db *gorm.DB, baseLog *logger.Logger) PlanRepo {
	return &planRepo{db: db, log: baseLog.With("repo", "PlanRepo")}
}

func (r *planRepo) Create(dbc dbctx.Context, rows []*types.TravelPlan) ([]*types.TravelPlan, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.TravelPlan{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.Must(uuid.NewV7())
		}
		if row.Status == "" {
			row.Status = types.PlanStatusNotStarted
		}
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *planRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TravelPlan, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var rows []*types.TravelPlan
	if err := t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *planRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.TravelPlan, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.TravelPlan
	if userID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("start_date DESC").
		Order("id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *planRepo) ListStartingOn(dbc dbctx.Context, day datatypes.Date) ([]*types.TravelPlan, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.TravelPlan
	if err := t.WithContext(dbc.Ctx).
		Where("start_date = ? AND status <> ?", types.DateOf(time.Time(day)), types.PlanStatusInProgress).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *planRepo) ListEndingOn(dbc dbctx.Context, day datatypes.Date) ([]*types.TravelPlan, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.TravelPlan
	if err := t.WithContext(dbc.Ctx).
		Where("end_date = ? AND status <> ?", types.DateOf(time.Time(day)), types.PlanStatusCompleted).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *planRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, from, to types.PlanStatus) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.TravelPlan{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *planRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&types.TravelPlan{}).Error
}
