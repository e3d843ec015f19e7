package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinRating = 1
	MaxRating = 5
)

// DestinationReview is unique per (destination, user). RecordID points at the
// record that produced or last touched it and is cleared when that record is
// deleted; the review itself outlives the record.
type DestinationReview struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	DestinationID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_destination_review_user,priority:1" json:"destination_id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_destination_review_user,priority:2" json:"user_id"`
	Rating        int        `gorm:"not null;column:rating" json:"rating"`
	ShortText     string     `gorm:"column:short_text" json:"short_text"`
	DetailedText  string     `gorm:"type:text;column:detailed_text" json:"detailed_text"`
	RecordID      *uuid.UUID `gorm:"type:uuid;index" json:"record_id,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (DestinationReview) TableName() string { return "destination_review" }

func ValidRating(r int) bool { return r >= MinRating && r <= MaxRating }
