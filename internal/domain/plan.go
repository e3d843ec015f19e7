package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PlanStatus string

const (
	PlanStatusNotStarted PlanStatus = "NOT_STARTED"
	PlanStatusInProgress PlanStatus = "IN_PROGRESS"
	PlanStatusCompleted  PlanStatus = "COMPLETED"
)

func (s PlanStatus) rank() int {
	switch s {
	case PlanStatusNotStarted:
		return 0
	case PlanStatusInProgress:
		return 1
	case PlanStatusCompleted:
		return 2
	default:
		return -1
	}
}

func (s PlanStatus) Valid() bool { return s.rank() >= 0 }

// CanTransition reports whether a plan may move from s to next. Status only
// moves forward; a missed start may jump straight to COMPLETED.
func (s PlanStatus) CanTransition(next PlanStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() > s.rank()
}

type TravelPlan struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	DestinationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"destination_id"`
	Name          string         `gorm:"not null;column:name" json:"name"`
	StartDate     datatypes.Date `gorm:"not null;index;column:start_date" json:"start_date"`
	EndDate       datatypes.Date `gorm:"not null;index;column:end_date" json:"end_date"`
	Status        PlanStatus     `gorm:"type:varchar(16);not null;index;default:'NOT_STARTED'" json:"status"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (TravelPlan) TableName() string { return "travel_plan" }

// Advance moves the plan to next, refusing regressions and no-op moves.
func (p *TravelPlan) Advance(next PlanStatus) error {
	if p.Status == "" {
		p.Status = PlanStatusNotStarted
	}
	if !p.Status.CanTransition(next) {
		return fmt.Errorf("plan %s: illegal status transition %s -> %s", p.ID, p.Status, next)
	}
	p.Status = next
	return nil
}

type PlaceVisit struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PlanID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_place_visit_plan_order,priority:1" json:"plan_id"`
	PlaceID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"place_id"`
	VisitDate  datatypes.Date `gorm:"not null;column:visit_date" json:"visit_date"`
	OrderIndex int            `gorm:"not null;column:order_index;index:idx_place_visit_plan_order,priority:2" json:"order_index"`
}

func (PlaceVisit) TableName() string { return "place_visit" }
