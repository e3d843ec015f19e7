package directory

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/travelog-backend/internal/domain"
	"github.com/yungbote/travelog-backend/internal/platform/dbctx"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

// DirectoryRepo resolves references to users, destinations and places. A
// missing row is reported as (nil, nil); callers decide whether that is a
// NotFound or a validation failure.
type DirectoryRepo interface {
	GetUser(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
	GetDestination(dbc dbctx.Context, id uuid.UUID) (*types.Destination, error)
	GetDestinationsByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Destination, error)
	GetPlacesByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Place, error)
}

type directoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDirectoryRepo(db *gorm.DB, baseLog *logger.Logger) DirectoryRepo {
	return &directoryRepo{db: db, log: baseLog.With("repo", "DirectoryRepo")}
}

func (r *directoryRepo) GetUser(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	var rows []*types.User
	if err := r.getByIDs(dbc, []uuid.UUID{id}, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *directoryRepo) GetDestination(dbc dbctx.Context, id uuid.UUID) (*types.Destination, error) {
	rows, err := r.GetDestinationsByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *directoryRepo) GetDestinationsByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Destination, error) {
	var rows []*types.Destination
	if err := r.getByIDs(dbc, ids, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *directoryRepo) GetPlacesByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Place, error) {
	var rows []*types.Place
	if err := r.getByIDs(dbc, ids, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *directoryRepo) getByIDs(dbc dbctx.Context, ids []uuid.UUID, dest interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	clean := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).Where("id IN ?", clean).Find(dest).Error
}
