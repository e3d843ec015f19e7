package domain

import (
	"github.com/google/uuid"
)

// Directory tables are owned by other services; this one only reads them.

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`
}

func (User) TableName() string { return "user" }

type Destination struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name    string    `gorm:"not null;column:name" json:"name"`
	Address string    `gorm:"column:address" json:"address"`
}

func (Destination) TableName() string { return "destination" }

type Place struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string    `gorm:"not null;column:name" json:"name"`
	Address  string    `gorm:"column:address" json:"address"`
	XCoord   string    `gorm:"column:x_coord" json:"x_coord"`
	YCoord   string    `gorm:"column:y_coord" json:"y_coord"`
	Category string    `gorm:"column:category" json:"category"`
	ImageURL string    `gorm:"column:image_url" json:"image_url"`
}

func (Place) TableName() string { return "place" }
