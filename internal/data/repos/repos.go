package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/travelog-backend/internal/data/repos/directory"
	"github.com/yungbote/travelog-backend/internal/data/repos/plans"
	"github.com/yungbote/travelog-backend/internal/data/repos/records"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

type PlanRepo = plans.PlanRepo
type PlaceVisitRepo = plans.PlaceVisitRepo

type RecordRepo = records.RecordRepo
type RecordImageRepo = records.RecordImageRepo
type ReviewRepo = records.ReviewRepo

type DirectoryRepo = directory.DirectoryRepo

func NewPlanRepo(db *gorm.DB, baseLog *logger.Logger) PlanRepo {
	return plans.NewPlanRepo(db, baseLog)
}

func NewPlaceVisitRepo(db *gorm.DB, baseLog *logger.Logger) PlaceVisitRepo {
	return plans.NewPlaceVisitRepo(db, baseLog)
}

func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	return records.NewRecordRepo(db, baseLog)
}

func NewRecordImageRepo(db *gorm.DB, baseLog *logger.Logger) RecordImageRepo {
	return records.NewRecordImageRepo(db, baseLog)
}

func NewReviewRepo(db *gorm.DB, baseLog *logger.Logger) ReviewRepo {
	return records.NewReviewRepo(db, baseLog)
}

func NewDirectoryRepo(db *gorm.DB, baseLog *logger.Logger) DirectoryRepo {
	return directory.NewDirectoryRepo(db, baseLog)
}
