package models

import (
	"time"
)

// MemberRole is the permission level a member holds on a plan
type MemberRole string

const (
	RoleOwner  MemberRole = "OWNER"
	RoleEditor MemberRole = "EDITOR"
	RoleViewer MemberRole = "VIEWER"
)

// MemberStatus tracks the invitation lifecycle
type MemberStatus string

const (
	MemberStatusInvited MemberStatus = "INVITED"
	MemberStatusJoined  MemberStatus = "JOINED"
)

func (r MemberRole) rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	}
	return 0
}

// Valid reports whether r is one of the known roles
func (r MemberRole) Valid() bool {
	return r.rank() > 0
}

// Satisfies reports whether r grants at least the required level
func (r MemberRole) Satisfies(required MemberRole) bool {
	return r.Valid() && r.rank() >= required.rank()
}

// PlanMember links a User to a Plan with a role
type PlanMember struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PlanID   uint         `gorm:"uniqueIndex:idx_plan_members_plan_user;not null" json:"plan_id"`
	UserID   uint         `gorm:"uniqueIndex:idx_plan_members_plan_user;index;not null" json:"user_id"`
	Role     MemberRole   `gorm:"type:varchar(20);not null" json:"role"`
	Status   MemberStatus `gorm:"type:varchar(20);not null" json:"status"`
	JoinedAt *time.Time   `json:"joined_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
