package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tripplan_app_echo/internal/models"
)

// AddScheduleInput describes a new visit. Either PlaceID (an existing place)
// or Place (a reference to resolve) must be given. A nil OrderIndex appends.
type AddScheduleInput struct {
	DayNumber  int
	OrderIndex *int
	PlaceID    *uint
	Place      PlaceRef
	Memo       string
}

// UpdateScheduleInput changes the place and/or memo; ordering is never touched
type UpdateScheduleInput struct {
	PlaceID *uint
	Memo    *string
}

// MoveScheduleInput is the destination of a move. TargetOrder beyond the end
// of the destination day is clamped, not rejected.
type MoveScheduleInput struct {
	TargetDay   int
	TargetOrder int
}

// ScheduleService owns the per-day ordering of plan schedules. Within every
// (plan, day) bucket the order indexes stay exactly 0..n-1: each mutation does
// its shifts and positional write in a single transaction under the bucket
// lock, checks the bucket before committing, and notifies collaborators only
// after the commit.
type ScheduleService struct {
	db       *gorm.DB
	guard    *PermissionGuard
	resolver *PlaceResolver
	notifier Notifier
	logger   *slog.Logger
}

func NewScheduleService(db *gorm.DB, guard *PermissionGuard, resolver *PlaceResolver, notifier Notifier, logger *slog.Logger) *ScheduleService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ScheduleService{db: db, guard: guard, resolver: resolver, notifier: notifier, logger: logger}
}

// List returns the plan's schedules ordered by day and position, places included
func (s *ScheduleService) List(ctx context.Context, userID, planID uint) ([]models.PlanSchedule, error) {
	if err := s.guard.AuthorizeRead(ctx, planID, userID); err != nil {
		return nil, err
	}
	return listSchedules(s.db.WithContext(ctx), planID)
}

func listSchedules(db *gorm.DB, planID uint) ([]models.PlanSchedule, error) {
	var schedules []models.PlanSchedule
	err := db.Preload("Place").
		Where("plan_id = ?", planID).
		Order("day_number, order_index").
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

// Add inserts a visit into a day. Without an explicit index it is appended;
// with one, the index is clamped to [0, count] and later items move up by one.
func (s *ScheduleService) Add(ctx context.Context, userID, planID uint, in AddScheduleInput) (*models.PlanSchedule, error) {
	if in.DayNumber < 1 {
		return nil, fmt.Errorf("%w: day number must be at least 1", ErrInvalidArgument)
	}
	if err := s.guard.Authorize(ctx, planID, userID, models.RoleEditor); err != nil {
		return nil, err
	}

	var created models.PlanSchedule
	var outcome ResolveOutcome
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		placeID, how, err := s.placeFor(ctx, tx, in)
		if err != nil {
			return err
		}
		outcome = how

		store := scheduleStore{tx: tx}
		if err := store.lockBuckets(planID, in.DayNumber); err != nil {
			return err
		}
		stats, err := store.stats(planID, in.DayNumber)
		if err != nil {
			return err
		}

		order := stats.MaxIndex + 1
		if in.OrderIndex != nil {
			order = clamp(*in.OrderIndex, 0, stats.Total)
			if err := store.push(planID, in.DayNumber, order); err != nil {
				return err
			}
		}

		created = models.PlanSchedule{
			PlanID:     planID,
			DayNumber:  in.DayNumber,
			OrderIndex: order,
			PlaceID:    placeID,
			Memo:       in.Memo,
		}
		if err := tx.Omit(clause.Associations).Create(&created).Error; err != nil {
			return fmt.Errorf("create schedule: %w", err)
		}
		return store.verify(planID, in.DayNumber)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("schedule added",
		"plan_id", planID, "schedule_id", created.ID, "user_id", userID,
		"day", created.DayNumber, "order", created.OrderIndex, "place_outcome", outcome)
	s.notifier.Notify(planID)
	return &created, nil
}

// placeFor returns the place for a new schedule. An explicit PlaceID must exist;
// otherwise the reference goes through the resolver inside tx, so a newly
// created place rolls back together with a failed schedule insert.
func (s *ScheduleService) placeFor(ctx context.Context, tx *gorm.DB, in AddScheduleInput) (uint, ResolveOutcome, error) {
	if in.PlaceID != nil {
		if err := placeExists(tx, *in.PlaceID); err != nil {
			return 0, "", err
		}
		return *in.PlaceID, ResolveFound, nil
	}
	res, err := s.resolver.WithTx(tx).Resolve(ctx, in.Place)
	if err != nil {
		return 0, "", err
	}
	return res.PlaceID, res.Outcome, nil
}

func placeExists(db *gorm.DB, placeID uint) error {
	var count int64
	if err := db.Model(&models.Place{}).Where("id = ?", placeID).Count(&count).Error; err != nil {
		return fmt.Errorf("check place: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: place %d", ErrNotFound, placeID)
	}
	return nil
}

// Update changes the place and/or memo of a schedule
func (s *ScheduleService) Update(ctx context.Context, userID, planID, scheduleID uint, in UpdateScheduleInput) (*models.PlanSchedule, error) {
	if err := s.guard.Authorize(ctx, planID, userID, models.RoleEditor); err != nil {
		return nil, err
	}

	var schedule *models.PlanSchedule
	changed := false
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		store := scheduleStore{tx: tx}
		var err error
		schedule, err = store.lock(planID, scheduleID)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.PlaceID != nil && *in.PlaceID != schedule.PlaceID {
			if err := placeExists(tx, *in.PlaceID); err != nil {
				return err
			}
			updates["place_id"] = *in.PlaceID
		}
		if in.Memo != nil && *in.Memo != schedule.Memo {
			updates["memo"] = *in.Memo
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(schedule).Updates(updates).Error; err != nil {
			return fmt.Errorf("update schedule: %w", err)
		}
		if in.PlaceID != nil {
			schedule.PlaceID = *in.PlaceID
		}
		if in.Memo != nil {
			schedule.Memo = *in.Memo
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("schedule updated", "plan_id", planID, "schedule_id", scheduleID, "user_id", userID)
		s.notifier.Notify(planID)
	}
	return schedule, nil
}

// Delete removes a schedule and pulls the rest of its day down to close the gap
func (s *ScheduleService) Delete(ctx context.Context, userID, planID, scheduleID uint) error {
	if err := s.guard.Authorize(ctx, planID, userID, models.RoleEditor); err != nil {
		return err
	}

	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		store := scheduleStore{tx: tx}
		schedule, err := store.lockWithBuckets(planID, scheduleID)
		if err != nil {
			return err
		}

		if err := tx.Delete(&models.PlanSchedule{}, schedule.ID).Error; err != nil {
			return fmt.Errorf("delete schedule: %w", err)
		}
		if err := store.pull(planID, schedule.DayNumber, schedule.OrderIndex); err != nil {
			return err
		}
		return store.verify(planID, schedule.DayNumber)
	})
	if err != nil {
		return err
	}

	s.logger.Info("schedule deleted", "plan_id", planID, "schedule_id", scheduleID, "user_id", userID)
	s.notifier.Notify(planID)
	return nil
}

// Move repositions a schedule, within its day or onto another day.
//
// Cross-day: the source day is pulled closed, the destination day is pushed
// open at the target, then the item is written there. Same day: only the items
// between the old and new position shift by one, towards the vacated slot.
// Moving onto the current position is a no-op and notifies nobody.
func (s *ScheduleService) Move(ctx context.Context, userID, planID, scheduleID uint, in MoveScheduleInput) (*models.PlanSchedule, error) {
	if in.TargetDay < 1 {
		return nil, fmt.Errorf("%w: target day must be at least 1", ErrInvalidArgument)
	}
	if err := s.guard.Authorize(ctx, planID, userID, models.RoleEditor); err != nil {
		return nil, err
	}

	var schedule *models.PlanSchedule
	moved := false
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		store := scheduleStore{tx: tx}
		var err error
		schedule, err = store.lockWithBuckets(planID, scheduleID, in.TargetDay)
		if err != nil {
			return err
		}

		curDay, curOrder := schedule.DayNumber, schedule.OrderIndex
		sameDay := curDay == in.TargetDay
		if sameDay && curOrder == in.TargetOrder {
			return nil
		}

		target, err := s.clampTarget(store, planID, in, sameDay)
		if err != nil {
			return err
		}
		if sameDay && target == curOrder {
			return nil
		}

		switch {
		case !sameDay:
			if err := store.pull(planID, curDay, curOrder); err != nil {
				return err
			}
			if err := store.push(planID, in.TargetDay, target); err != nil {
				return err
			}
		case curOrder < target:
			if err := store.shift(planID, curDay, curOrder+1, target, -1); err != nil {
				return err
			}
		default:
			if err := store.shift(planID, curDay, target, curOrder-1, 1); err != nil {
				return err
			}
		}

		err = tx.Model(schedule).Updates(map[string]interface{}{
			"day_number":  in.TargetDay,
			"order_index": target,
		}).Error
		if err != nil {
			return fmt.Errorf("write schedule position: %w", err)
		}
		schedule.DayNumber, schedule.OrderIndex = in.TargetDay, target

		if err := store.verify(planID, in.TargetDay); err != nil {
			return err
		}
		if !sameDay {
			if err := store.verify(planID, curDay); err != nil {
				return err
			}
		}
		moved = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if moved {
		s.logger.Info("schedule moved",
			"plan_id", planID, "schedule_id", scheduleID, "user_id", userID,
			"day", schedule.DayNumber, "order", schedule.OrderIndex)
		s.notifier.Notify(planID)
	}
	return schedule, nil
}

// clampTarget bounds the destination index by one past the last item of the
// destination day, counting the moving item once
func (s *ScheduleService) clampTarget(store scheduleStore, planID uint, in MoveScheduleInput, sameDay bool) (int, error) {
	stats, err := store.stats(planID, in.TargetDay)
	if err != nil {
		return 0, err
	}
	upper := stats.Total
	if sameDay {
		upper = stats.Total - 1
	}
	if upper < 0 {
		return 0, ErrConflict
	}
	return clamp(in.TargetOrder, 0, upper), nil
}
