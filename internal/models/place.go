package models

import (
	"time"
)

// Place is the canonical record for a point of interest, shared across plans.
// ExternalID is the map provider's id; NULL for manually entered places.
type Place struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ExternalID *string `gorm:"type:varchar(100);uniqueIndex" json:"external_id"`
	Name       string  `gorm:"type:varchar(255);not null;index:idx_places_name_location,priority:1" json:"name"`
	Address    string  `gorm:"type:varchar(500)" json:"address"`
	Category   string  `gorm:"type:varchar(100)" json:"category"`
	Latitude   float64 `gorm:"type:double precision;index:idx_places_name_location,priority:2" json:"latitude"`
	Longitude  float64 `gorm:"type:double precision;index:idx_places_name_location,priority:3" json:"longitude"`
	ImageURL   string  `gorm:"type:text" json:"image_url"`
}
