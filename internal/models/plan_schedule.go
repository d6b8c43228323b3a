package models

import (
	"time"
)

// PlanSchedule is one visit in a plan. Items sharing (PlanID, DayNumber) form a
// bucket whose OrderIndex values are always exactly 0..n-1.
type PlanSchedule struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PlanID     uint   `gorm:"not null;index:idx_plan_schedules_bucket,priority:1" json:"plan_id"`
	DayNumber  int    `gorm:"not null;index:idx_plan_schedules_bucket,priority:2" json:"day_number"`
	OrderIndex int    `gorm:"not null;index:idx_plan_schedules_bucket,priority:3" json:"order_index"`
	PlaceID    uint   `gorm:"not null;index" json:"place_id"`
	Memo       string `gorm:"type:text" json:"memo"`

	// Relationships
	Place Place `gorm:"foreignKey:PlaceID" json:"place,omitempty"`
}
