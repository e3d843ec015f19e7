package records

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/travelog-backend/internal/domain"
	"github.com/yungbote/travelog-backend/internal/platform/dbctx"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

type RecordRepo interface {
	Create(dbc dbctx.Context, rows []*types.TravelRecord) ([]*types.TravelRecord, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TravelRecord, error)

	// Listings are newest first. publicOnly restricts to is_public rows.
	ListByUser(dbc dbctx.Context, userID uuid.UUID, publicOnly bool) ([]*types.TravelRecord, error)
	ListByPlan(dbc dbctx.Context, planID uuid.UUID, publicOnly bool) ([]*types.TravelRecord, error)

	// UpdateContent writes the mutable columns; plan_id and user_id are never touched.
	UpdateContent(dbc dbctx.Context, row *types.TravelRecord) error
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type recordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	return &recordRepo{db: db, log: baseLog.With("repo", "RecordRepo")}
}

func (r *recordRepo) Create(dbc dbctx.Context, rows []*types.TravelRecord) ([]*types.TravelRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.TravelRecord{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.Must(uuid.NewV7())
		}
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *recordRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TravelRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var rows []*types.TravelRecord
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

func (r *recordRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, publicOnly bool) ([]*types.TravelRecord, error) {
	return r.list(dbc, "user_id", userID, publicOnly)
}

func (r *recordRepo) ListByPlan(dbc dbctx.Context, planID uuid.UUID, publicOnly bool) ([]*types.TravelRecord, error) {
	return r.list(dbc, "plan_id", planID, publicOnly)
}

func (r *recordRepo) list(dbc dbctx.Context, column string, id uuid.UUID, publicOnly bool) ([]*types.TravelRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.TravelRecord
	if id == uuid.Nil {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).Where(column+" = ?", id)
	if publicOnly {
		q = q.Where("is_public = ?", true)
	}
	if err := q.Order("id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recordRepo) UpdateContent(dbc dbctx.Context, row *types.TravelRecord) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.ID == uuid.Nil {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	return t.WithContext(dbc.Ctx).
		Model(&types.TravelRecord{}).
		Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"title":      row.Title,
			"content":    row.Content,
			"is_public":  row.IsPublic,
			"updated_at": row.UpdatedAt,
		}).Error
}

func (r *recordRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&types.TravelRecord{}).Error
}
