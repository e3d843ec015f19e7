package records

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/travelog-backend/internal/domain"
	"github.com/yungbote/travelog-backend/internal/platform/dbctx"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

type RecordImageRepo interface {
	Create(dbc dbctx.Context, rows []*types.RecordImage) ([]*types.RecordImage, error)
	// ListByRecordIDs returns images grouped by record, each group in position order.
	ListByRecordIDs(dbc dbctx.Context, recordIDs []uuid.UUID) ([]*types.RecordImage, error)
	FullDeleteByRecordIDs(dbc dbctx.Context, recordIDs []uuid.UUID) error
}

type recordImageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordImageRepo(db *gorm.DB, baseLog *logger.Logger) RecordImageRepo {
	return &recordImageRepo{db: db, log: baseLog.With("repo", "RecordImageRepo")}
}

func (r *recordImageRepo) Create(dbc dbctx.Context, rows []*types.RecordImage) ([]*types.RecordImage, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.RecordImage{}, nil
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

func (r *recordImageRepo) ListByRecordIDs(dbc dbctx.Context, recordIDs []uuid.UUID) ([]*types.RecordImage, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.RecordImage
	if len(recordIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("record_id IN ?", recordIDs).
		Order("record_id ASC").
		Order("position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recordImageRepo) FullDeleteByRecordIDs(dbc dbctx.Context, recordIDs []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(recordIDs) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("record_id IN ?", recordIDs).
		Delete(&types.RecordImage{}).Error
}
