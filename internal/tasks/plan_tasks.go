package tasks

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tripplan_app_echo/internal/models"
	"tripplan_app_echo/internal/services"
)

const purgeRecurrence = "FREQ=DAILY"

// PurgeDeletedPlansArgs are the arguments of the purge task
type PurgeDeletedPlansArgs struct {
	RetentionDays int `json:"retention_days"`
}

// PurgeDeletedPlansTaskDef hard-deletes plans that have been soft-deleted for
// longer than the retention window
type PurgeDeletedPlansTaskDef struct {
	DefaultRetentionDays int
}

func NewPurgeDeletedPlansTask(retentionDays int) *PurgeDeletedPlansTaskDef {
	return &PurgeDeletedPlansTaskDef{DefaultRetentionDays: retentionDays}
}

func (t *PurgeDeletedPlansTaskDef) TaskID() string {
	return "purge_deleted_plans"
}

// CreateTask builds the daily recurring task, first due at due
func (t *PurgeDeletedPlansTaskDef) CreateTask(due time.Time) (*models.ScheduledTask, error) {
	rule := purgeRecurrence
	return BuildScheduledTask(t.TaskID(), PurgeDeletedPlansArgs{RetentionDays: t.DefaultRetentionDays},
		due, &rule, models.ScheduledTaskTypeRecurring, 1)
}

func (t *PurgeDeletedPlansTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	args := PurgeDeletedPlansArgs{RetentionDays: t.DefaultRetentionDays}
	if err := decodeArgs(task, &args); err != nil {
		return nil, err
	}
	if args.RetentionDays < 0 {
		return nil, fmt.Errorf("retention_days must not be negative")
	}

	cutoff := time.Now().AddDate(0, 0, -args.RetentionDays)
	purged, err := services.PurgeDeletedPlans(db.WithContext(ctx), cutoff)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"status": "success",
		"purged": purged,
		"cutoff": cutoff.Format(time.RFC3339),
	}, nil
}

// EnsurePurgeTask creates the recurring purge task unless one is already
// scheduled. It reports whether a task was created.
func EnsurePurgeTask(ctx context.Context, db *gorm.DB, def *PurgeDeletedPlansTaskDef) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.ScheduledTask{}).
		Where("task_name = ? AND status IN ?", def.TaskID(),
			[]models.ScheduledTaskStatus{models.ScheduledTaskStatusActive, models.ScheduledTaskStatusRunning}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check purge task: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	task, err := def.CreateTask(time.Now())
	if err != nil {
		return false, err
	}
	if err := db.WithContext(ctx).Create(task).Error; err != nil {
		return false, fmt.Errorf("create purge task: %w", err)
	}
	return true, nil
}
