package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tripplan_app_echo/internal/models"
)

// PlanInput holds the fields for a new plan
type PlanInput struct {
	Regions   []string
	StartDate time.Time
	EndDate   time.Time
	IsPublic  *bool
}

// PlanPatch holds optional plan changes; nil fields are left alone
type PlanPatch struct {
	Title     *string
	Regions   []string
	StartDate *time.Time
	EndDate   *time.Time
	IsPublic  *bool
}

type PlanService struct {
	db       *gorm.DB
	guard    *PermissionGuard
	notifier Notifier
	logger   *slog.Logger
}

func NewPlanService(db *gorm.DB, guard *PermissionGuard, notifier Notifier, logger *slog.Logger) *PlanService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &PlanService{db: db, guard: guard, notifier: notifier, logger: logger}
}

// CreatePlan stores a plan and its OWNER membership together
func (s *PlanService) CreatePlan(ctx context.Context, userID uint, in PlanInput) (*models.Plan, error) {
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.StartDate.After(in.EndDate) {
		return nil, fmt.Errorf("%w: end date is before start date", ErrInvalidArgument)
	}

	plan := models.Plan{
		OwnerID:   userID,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		ShareUUID: uuid.NewString(),
	}
	plan.SetRegions(in.Regions)
	plan.Title = "New trip"
	if len(in.Regions) > 0 {
		plan.Title = strings.Join(in.Regions, ", ") + " trip"
	}
	if in.IsPublic != nil {
		plan.IsPublic = *in.IsPublic
	}

	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&plan).Error; err != nil {
			return fmt.Errorf("create plan: %w", err)
		}
		return tx.Create(newOwner(plan.ID, userID)).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("plan created", "plan_id", plan.ID, "user_id", userID)
	return &plan, nil
}

func newOwner(planID, userID uint) *models.PlanMember {
	now := time.Now()
	return &models.PlanMember{
		PlanID:   planID,
		UserID:   userID,
		Role:     models.RoleOwner,
		Status:   models.MemberStatusJoined,
		JoinedAt: &now,
	}
}

// ListMyPlans returns the plans the user has joined, newest first
func (s *PlanService) ListMyPlans(ctx context.Context, userID uint) ([]models.Plan, error) {
	var plans []models.Plan
	err := s.db.WithContext(ctx).
		Joins("JOIN plan_members ON plan_members.plan_id = plans.id").
		Where("plan_members.user_id = ? AND plan_members.status = ?", userID, models.MemberStatusJoined).
		Order("plans.created_at DESC").
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// GetPlanDetail returns the plan with its members and ordered schedules
func (s *PlanService) GetPlanDetail(ctx context.Context, userID, planID uint) (*models.Plan, error) {
	if err := s.guard.AuthorizeRead(ctx, planID, userID); err != nil {
		return nil, err
	}

	var plan models.Plan
	err := s.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Members.User").
		Preload("Schedules", func(db *gorm.DB) *gorm.DB { return db.Order("day_number, order_index") }).
		Preload("Schedules.Place").
		First(&plan, planID).Error
	if err != nil {
		return nil, translateTxError(err)
	}
	return &plan, nil
}

// UpdatePlan applies a patch; only the owner may change a plan
func (s *PlanService) UpdatePlan(ctx context.Context, userID, planID uint, patch PlanPatch) (*models.Plan, error) {
	if err := s.guard.Authorize(ctx, planID, userID, models.RoleOwner); err != nil {
		return nil, err
	}

	var plan models.Plan
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.First(&plan, planID).Error; err != nil {
			return err
		}
		if patch.Title != nil {
			plan.Title = *patch.Title
		}
		if patch.Regions != nil {
			plan.SetRegions(patch.Regions)
		}
		if patch.StartDate != nil {
			plan.StartDate = *patch.StartDate
		}
		if patch.EndDate != nil {
			plan.EndDate = *patch.EndDate
		}
		if patch.IsPublic != nil {
			plan.IsPublic = *patch.IsPublic
		}
		if plan.StartDate.After(plan.EndDate) && !plan.EndDate.IsZero() {
			return fmt.Errorf("%w: end date is before start date", ErrInvalidArgument)
		}
		return tx.Omit(clause.Associations).Save(&plan).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(planID)
	return &plan, nil
}

// UpdateVisibility toggles whether non-members can read the plan
func (s *PlanService) UpdateVisibility(ctx context.Context, userID, planID uint, isPublic bool) error {
	if err := s.guard.Authorize(ctx, planID, userID, models.RoleOwner); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Model(&models.Plan{}).Where("id = ?", planID).Update("is_public", isPublic)
	if result.Error != nil {
		return fmt.Errorf("update visibility: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	s.notifier.Notify(planID)
	return nil
}

// DeletePlan soft-deletes the plan and removes its schedules and members in
// the same transaction. Places stay; other plans may use them.
func (s *PlanService) DeletePlan(ctx context.Context, userID, planID uint) error {
	if err := s.guard.Authorize(ctx, planID, userID, models.RoleOwner); err != nil {
		return err
	}

	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		result := tx.Delete(&models.Plan{}, planID)
		if result.Error != nil {
			return fmt.Errorf("delete plan: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("plan_id = ?", planID).Delete(&models.PlanSchedule{}).Error; err != nil {
			return fmt.Errorf("delete plan schedules: %w", err)
		}
		if err := tx.Where("plan_id = ?", planID).Delete(&models.PlanMember{}).Error; err != nil {
			return fmt.Errorf("delete plan members: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("plan deleted", "plan_id", planID, "user_id", userID)
	s.notifier.Notify(planID)
	return nil
}

// CopyPlan creates a private copy of a readable plan owned by userID, with
// every schedule at the same day and position
func (s *PlanService) CopyPlan(ctx context.Context, userID, sourcePlanID uint) (*models.Plan, error) {
	if err := s.guard.AuthorizeRead(ctx, sourcePlanID, userID); err != nil {
		return nil, err
	}

	var copied models.Plan
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var source models.Plan
		if err := tx.First(&source, sourcePlanID).Error; err != nil {
			return err
		}

		copied = models.Plan{
			OwnerID:    userID,
			Title:      source.Title + " (copy)",
			RegionName: source.RegionName,
			StartDate:  source.StartDate,
			EndDate:    source.EndDate,
			IsPublic:   false,
			ShareUUID:  uuid.NewString(),
		}
		if err := tx.Omit(clause.Associations).Create(&copied).Error; err != nil {
			return fmt.Errorf("create plan copy: %w", err)
		}
		if err := tx.Create(newOwner(copied.ID, userID)).Error; err != nil {
			return fmt.Errorf("create owner: %w", err)
		}

		var schedules []models.PlanSchedule
		if err := tx.Where("plan_id = ?", sourcePlanID).Order("day_number, order_index").Find(&schedules).Error; err != nil {
			return fmt.Errorf("load source schedules: %w", err)
		}
		if len(schedules) == 0 {
			return nil
		}
		clones := make([]models.PlanSchedule, len(schedules))
		for i, sch := range schedules {
			clones[i] = models.PlanSchedule{
				PlanID:     copied.ID,
				DayNumber:  sch.DayNumber,
				OrderIndex: sch.OrderIndex,
				PlaceID:    sch.PlaceID,
				Memo:       sch.Memo,
			}
		}
		return tx.Omit(clause.Associations).Create(&clones).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("plan copied", "source_plan_id", sourcePlanID, "plan_id", copied.ID, "user_id", userID)
	return &copied, nil
}

// PurgeDeletedPlans hard-deletes plans soft-deleted before cutoff and returns how many went
func PurgeDeletedPlans(db *gorm.DB, cutoff time.Time) (int64, error) {
	var purged int64
	err := db.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		err := tx.Unscoped().Model(&models.Plan{}).
			Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		// Leftovers from a delete that raced with an insert
		if err := tx.Where("plan_id IN ?", ids).Delete(&models.PlanSchedule{}).Error; err != nil {
			return err
		}
		if err := tx.Where("plan_id IN ?", ids).Delete(&models.PlanMember{}).Error; err != nil {
			return err
		}
		result := tx.Unscoped().Where("id IN ?", ids).Delete(&models.Plan{})
		purged = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, fmt.Errorf("purge deleted plans: %w", err)
	}
	return purged, nil
}
