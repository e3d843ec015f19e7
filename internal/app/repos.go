package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/travelog-backend/internal/data/repos"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

type Repos struct {
	Plan        repos.PlanRepo
	PlaceVisit  repos.PlaceVisitRepo
	Record      repos.RecordRepo
	RecordImage repos.RecordImageRepo
	Review      repos.ReviewRepo
	Directory   repos.DirectoryRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Plan:        repos.NewPlanRepo(db, log),
		PlaceVisit:  repos.NewPlaceVisitRepo(db, log),
		Record:      repos.NewRecordRepo(db, log),
		RecordImage: repos.NewRecordImageRepo(db, log),
		Review:      repos.NewReviewRepo(db, log),
		Directory:   repos.NewDirectoryRepo(db, log),
	}
}
