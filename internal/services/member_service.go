package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"tripplan_app_echo/internal/models"
)

// InvitationQueue schedules delivery of an invitation. Enqueue runs inside the
// invite transaction so an invite and its notice commit together.
type InvitationQueue interface {
	EnqueueInvitation(tx *gorm.DB, planID, userID uint) error
}

// Invitation is a pending invite as shown to the invitee
type Invitation struct {
	PlanID    uint      `json:"plan_id"`
	PlanTitle string    `json:"plan_title"`
	OwnerName string    `json:"owner_name"`
	Role      string    `json:"role"`
	InvitedAt time.Time `json:"invited_at"`
}

type MemberService struct {
	db       *gorm.DB
	guard    *PermissionGuard
	queue    InvitationQueue
	notifier Notifier
	logger   *slog.Logger
}

// NewMemberService creates the service. queue may be nil.
func NewMemberService(db *gorm.DB, guard *PermissionGuard, queue InvitationQueue, notifier Notifier, logger *slog.Logger) *MemberService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &MemberService{db: db, guard: guard, queue: queue, notifier: notifier, logger: logger}
}

// ListMembers returns the members of a readable plan with their users
func (s *MemberService) ListMembers(ctx context.Context, userID, planID uint) ([]models.PlanMember, error) {
	if err := s.guard.AuthorizeRead(ctx, planID, userID); err != nil {
		return nil, err
	}
	var members []models.PlanMember
	if err := s.db.WithContext(ctx).Preload("User").Where("plan_id = ?", planID).Order("id").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// Invite adds targetUserID as an INVITED member. Only the owner invites, and
// OWNER is never handed out.
func (s *MemberService) Invite(ctx context.Context, ownerID, planID, targetUserID uint, role models.MemberRole) (*models.PlanMember, error) {
	if role == "" {
		role = models.RoleEditor
	}
	if role != models.RoleEditor && role != models.RoleViewer {
		return nil, fmt.Errorf("%w: invited role must be EDITOR or VIEWER", ErrInvalidArgument)
	}
	if ownerID == targetUserID {
		return nil, fmt.Errorf("%w: cannot invite yourself", ErrInvalidArgument)
	}
	if err := s.guard.Authorize(ctx, planID, ownerID, models.RoleOwner); err != nil {
		return nil, err
	}

	member := models.PlanMember{
		PlanID: planID,
		UserID: targetUserID,
		Role:   role,
		Status: models.MemberStatusInvited,
	}
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", targetUserID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: user %d", ErrNotFound, targetUserID)
		}

		if err := tx.Omit("User").Create(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: user is already a member or invited", ErrInvalidArgument)
			}
			return fmt.Errorf("create member: %w", err)
		}
		if s.queue != nil {
			return s.queue.EnqueueInvitation(tx, planID, targetUserID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("member invited", "plan_id", planID, "inviter", ownerID, "target", targetUserID, "role", role)
	s.notifier.Notify(planID)
	return &member, nil
}

// Accept turns the caller's invitation into a membership
func (s *MemberService) Accept(ctx context.Context, userID, planID uint) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.PlanMember{}).
		Where("plan_id = ? AND user_id = ? AND status = ?", planID, userID, models.MemberStatusInvited).
		Updates(map[string]interface{}{"status": models.MemberStatusJoined, "joined_at": &now})
	if result.Error != nil {
		return fmt.Errorf("accept invitation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: no pending invitation", ErrNotFound)
	}
	s.notifier.Notify(planID)
	return nil
}

// ListInvitations returns the caller's pending invitations, newest first
func (s *MemberService) ListInvitations(ctx context.Context, userID uint) ([]Invitation, error) {
	var invitations []Invitation
	err := s.db.WithContext(ctx).
		Table("plan_members").
		Select("plans.id AS plan_id, plans.title AS plan_title, users.nickname AS owner_name, "+
			"plan_members.role AS role, plan_members.created_at AS invited_at").
		Joins("JOIN plans ON plans.id = plan_members.plan_id AND plans.deleted_at IS NULL").
		Joins("JOIN users ON users.id = plans.owner_id").
		Where("plan_members.user_id = ? AND plan_members.status = ?", userID, models.MemberStatusInvited).
		Order("plan_members.created_at DESC").
		Scan(&invitations).Error
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invitations, nil
}

// ChangeRole switches a non-owner member between EDITOR and VIEWER
func (s *MemberService) ChangeRole(ctx context.Context, ownerID, planID, targetUserID uint, role models.MemberRole) error {
	if role != models.RoleEditor && role != models.RoleViewer {
		return fmt.Errorf("%w: role must be EDITOR or VIEWER", ErrInvalidArgument)
	}
	if err := s.guard.Authorize(ctx, planID, ownerID, models.RoleOwner); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Model(&models.PlanMember{}).
		Where("plan_id = ? AND user_id = ? AND role <> ?", planID, targetUserID, models.RoleOwner).
		Update("role", role)
	if result.Error != nil {
		return fmt.Errorf("change role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: member", ErrNotFound)
	}
	s.notifier.Notify(planID)
	return nil
}

// Kick removes a member; the owner cannot be removed
func (s *MemberService) Kick(ctx context.Context, ownerID, planID, targetUserID uint) error {
	if err := s.guard.Authorize(ctx, planID, ownerID, models.RoleOwner); err != nil {
		return err
	}
	if ownerID == targetUserID {
		return fmt.Errorf("%w: the owner cannot be removed", ErrInvalidArgument)
	}
	return s.remove(ctx, planID, targetUserID)
}

// Leave removes the caller from a plan; the owner cannot leave
func (s *MemberService) Leave(ctx context.Context, userID, planID uint) error {
	member, err := s.guard.Member(ctx, planID, userID, models.RoleViewer)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return fmt.Errorf("%w: not a member", ErrNotFound)
		}
		return err
	}
	if member.Role == models.RoleOwner {
		return fmt.Errorf("%w: the owner cannot leave the plan", ErrInvalidArgument)
	}
	return s.remove(ctx, planID, userID)
}

func (s *MemberService) remove(ctx context.Context, planID, userID uint) error {
	result := s.db.WithContext(ctx).
		Where("plan_id = ? AND user_id = ? AND role <> ?", planID, userID, models.RoleOwner).
		Delete(&models.PlanMember{})
	if result.Error != nil {
		return fmt.Errorf("remove member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: member", ErrNotFound)
	}
	s.logger.Info("member removed", "plan_id", planID, "user_id", userID)
	s.notifier.Notify(planID)
	return nil
}
