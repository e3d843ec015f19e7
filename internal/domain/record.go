package domain

import (
	"time"

	"github.com/google/uuid"
)

type TravelRecord struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PlanID   uuid.UUID `gorm:"type:uuid;not null;index" json:"plan_id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Title    string    `gorm:"not null;column:title" json:"title"`
	Content  string    `gorm:"type:text;column:content" json:"content"`
	IsPublic bool      `gorm:"not null;default:false;index;column:is_public" json:"is_public"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Images []*RecordImage `gorm:"-" json:"images,omitempty"`
}

func (TravelRecord) TableName() string { return "travel_record" }

// CoverURL is the first image in attachment order, or "" when there are none.
func (r *TravelRecord) CoverURL() string {
	if r == nil || len(r.Images) == 0 {
		return ""
	}
	return r.Images[0].URL
}

type RecordImage struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RecordID uuid.UUID `gorm:"type:uuid;not null;index:idx_record_image_position,priority:1" json:"record_id"`
	URL      string    `gorm:"not null;column:url" json:"url"`
	Position int       `gorm:"not null;column:position;index:idx_record_image_position,priority:2" json:"position"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (RecordImage) TableName() string { return "record_image" }
