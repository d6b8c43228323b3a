package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Plan is a trip owned by a single user and shared with its members
type Plan struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	OwnerID    uint      `gorm:"index;not null" json:"owner_id"`
	Title      string    `gorm:"type:varchar(255)" json:"title"`
	RegionName string    `gorm:"type:varchar(255)" json:"region_name"` // comma separated
	StartDate  time.Time `gorm:"type:date" json:"start_date"`
	EndDate    time.Time `gorm:"type:date" json:"end_date"`
	IsPublic   bool      `gorm:"default:false" json:"is_public"`
	ShareUUID  string    `gorm:"type:varchar(36);uniqueIndex" json:"share_uuid"`

	// Relationships
	Members   []PlanMember   `gorm:"foreignKey:PlanID" json:"members,omitempty"`
	Schedules []PlanSchedule `gorm:"foreignKey:PlanID" json:"schedules,omitempty"`
}

// Regions splits the stored region list
func (p Plan) Regions() []string {
	if p.RegionName == "" {
		return []string{}
	}
	return strings.Split(p.RegionName, ",")
}

// SetRegions joins regions into the stored representation
func (p *Plan) SetRegions(regions []string) {
	p.RegionName = strings.Join(regions, ",")
}

// Days returns the number of trip days covered by the date range, at least 1
func (p Plan) Days() int {
	if p.StartDate.IsZero() || p.EndDate.IsZero() || p.EndDate.Before(p.StartDate) {
		return 1
	}
	return int(p.EndDate.Sub(p.StartDate).Hours()/24) + 1
}
