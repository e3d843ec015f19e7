package records

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/travelog-backend/internal/domain"
	"github.com/yungbote/travelog-backend/internal/platform/dbctx"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

type ReviewRepo interface {
	GetByDestinationAndUser(dbc dbctx.Context, destinationID, userID uuid.UUID) (*types.DestinationReview, error)
	ListByRecordIDs(dbc dbctx.Context, recordIDs []uuid.UUID) ([]*types.DestinationReview, error)

	// Upsert inserts row, or when a review for (destination, user) already
	// exists, overwrites its rating, texts and record link. The returned row is
	// the stored one, so its ID is the surviving review's ID.
	Upsert(dbc dbctx.Context, row *types.DestinationReview) (*types.DestinationReview, error)

	// DetachRecord clears record_id on reviews pointing at recordIDs.
	DetachRecord(dbc dbctx.Context, recordIDs []uuid.UUID) error

	// DetachRecordExcept clears record_id on every review pointing at
	// recordID other than keepID.
	DetachRecordExcept(dbc dbctx.Context, recordID, keepID uuid.UUID) error
}

type reviewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewRepo(db *gorm.DB, baseLog *logger.Logger) ReviewRepo {
	return &reviewRepo{db: db, log: baseLog.With("repo", "ReviewRepo")}
}

func (r *reviewRepo) GetByDestinationAndUser(dbc dbctx.Context, destinationID, userID uuid.UUID) (*types.DestinationReview, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if destinationID == uuid.Nil || userID == uuid.Nil {
		return nil, nil
	}
	var rows []*types.DestinationReview
	if err := t.WithContext(dbc.Ctx).
		Where("destination_id = ? AND user_id = ?", destinationID, userID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *reviewRepo) ListByRecordIDs(dbc dbctx.Context, recordIDs []uuid.UUID) ([]*types.DestinationReview, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.DestinationReview
	if len(recordIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("record_id IN ?", recordIDs).
		Order("updated_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *reviewRepo) Upsert(dbc dbctx.Context, row *types.DestinationReview) (*types.DestinationReview, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil, nil
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	if err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "destination_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"rating",
				"short_text",
				"detailed_text",
				"record_id",
				"updated_at",
			}),
		}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.GetByDestinationAndUser(dbc, row.DestinationID, row.UserID)
}

func (r *reviewRepo) DetachRecord(dbc dbctx.Context, recordIDs []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(recordIDs) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.DestinationReview{}).
		Where("record_id IN ?", recordIDs).
		Updates(map[string]interface{}{
			"record_id":  nil,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *reviewRepo) DetachRecordExcept(dbc dbctx.Context, recordID, keepID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if recordID == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.DestinationReview{}).
		Where("record_id = ? AND id <> ?", recordID, keepID).
		Updates(map[string]interface{}{
			"record_id":  nil,
			"updated_at": time.Now().UTC(),
		}).Error
}
