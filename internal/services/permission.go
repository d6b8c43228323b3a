package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tripplan_app_echo/internal/models"
)

// PermissionGuard checks a caller's membership role on a plan
type PermissionGuard struct {
	db *gorm.DB
}

func NewPermissionGuard(db *gorm.DB) *PermissionGuard {
	return &PermissionGuard{db: db}
}

// Authorize returns ErrPermissionDenied unless userID holds a role on planID at
// least as strong as required. It only reads.
func (g *PermissionGuard) Authorize(ctx context.Context, planID, userID uint, required models.MemberRole) error {
	_, err := g.Member(ctx, planID, userID, required)
	return err
}

// Member is Authorize that also hands back the member row
func (g *PermissionGuard) Member(ctx context.Context, planID, userID uint, required models.MemberRole) (*models.PlanMember, error) {
	var member models.PlanMember
	err := g.db.WithContext(ctx).
		Where("plan_id = ? AND user_id = ?", planID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionDenied
		}
		return nil, fmt.Errorf("lookup plan member: %w", err)
	}

	if !member.Role.Satisfies(required) {
		return nil, ErrPermissionDenied
	}
	return &member, nil
}

// AuthorizeRead lets anyone read a public plan and any member read a private one.
// A missing or deleted plan is ErrNotFound.
func (g *PermissionGuard) AuthorizeRead(ctx context.Context, planID, userID uint) error {
	var plan models.Plan
	err := g.db.WithContext(ctx).Select("id", "is_public").First(&plan, planID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("lookup plan: %w", err)
	}
	if plan.IsPublic {
		return nil
	}
	return g.Authorize(ctx, planID, userID, models.RoleViewer)
}
