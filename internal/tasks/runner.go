package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"tripplan_app_echo/internal/models"
)

// Runner executes due scheduled tasks against a registry
type Runner struct {
	db       *gorm.DB
	registry *Registry
	logger   *slog.Logger
	now      func() time.Time
}

func NewRunner(db *gorm.DB, registry *Registry, logger *slog.Logger) *Runner {
	return &Runner{db: db, registry: registry, logger: logger, now: time.Now}
}

// RunDue executes every active task whose due time has passed and returns how
// many were run. A task is claimed by moving it to running first, so two
// workers never execute the same row.
func (r *Runner) RunDue(ctx context.Context) (int, error) {
	var pending []models.ScheduledTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, r.now()).
		Order("due").
		Find(&pending).Error
	if err != nil {
		return 0, fmt.Errorf("fetch pending tasks: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}
	r.logger.Info("found pending tasks", "count", len(pending))

	ran := 0
	for _, task := range pending {
		if ctx.Err() != nil {
			return ran, ctx.Err()
		}
		claimed, err := r.claim(ctx, task)
		if err != nil {
			return ran, err
		}
		if !claimed {
			continue
		}
		r.execute(ctx, task)
		ran++
	}
	return ran, nil
}

func (r *Runner) claim(ctx context.Context, task models.ScheduledTask) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ScheduledTask{}).
		Where("id = ? AND status = ?", task.ID, models.ScheduledTaskStatusActive).
		Update("status", models.ScheduledTaskStatusRunning)
	if result.Error != nil {
		return false, fmt.Errorf("claim task %d: %w", task.ID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *Runner) execute(ctx context.Context, task models.ScheduledTask) {
	logger := r.logger.With("task", task.TaskName, "task_id", task.ID)
	startTime := r.now()

	history := models.ScheduledTaskHistory{
		ScheduledTaskID: task.ID,
		TaskName:        task.TaskName,
		RunAt:           startTime,
		AttemptNumber:   attemptOf(task),
		Arguments:       task.Arguments,
	}

	handler, found := r.registry.Get(task.TaskName)
	if !found {
		logger.Error("task handler not found")
		history.Status = "handler_not_found"
		history.Result = map[string]interface{}{"error": "handler not found"}
		r.finish(ctx, task, history, false)
		return
	}

	result, err := handler(ctx, r.db.WithContext(ctx), task)
	history.RuntimeMs = int(r.now().Sub(startTime).Milliseconds())
	if err != nil {
		logger.Error("task failed", "error", err)
		history.Status = "failure"
		history.Result = map[string]interface{}{"error": err.Error()}
		r.finish(ctx, task, history, false)
		return
	}

	logger.Info("task completed", "runtime_ms", history.RuntimeMs)
	history.Status = "success"
	history.Result = result
	r.finish(ctx, task, history, true)
}

// finish records the run and moves the task to its next state. Recurring tasks
// advance to their next occurrence even after a failed run.
func (r *Runner) finish(ctx context.Context, task models.ScheduledTask, history models.ScheduledTaskHistory, ok bool) {
	db := r.db.WithContext(ctx)
	if err := db.Create(&history).Error; err != nil {
		r.logger.Error("failed to write task history", "task_id", task.ID, "error", err)
	}

	runAt := history.RunAt
	updates := map[string]interface{}{"last_run": &runAt}
	switch {
	case task.TaskType == models.ScheduledTaskTypeRecurring:
		ref := r.now()
		if task.Due.After(ref) {
			ref = task.Due
		}
		if next := task.NextDueAfter(ref); !next.IsZero() {
			updates["status"] = models.ScheduledTaskStatusActive
			updates["due"] = next
		} else {
			updates["status"] = models.ScheduledTaskStatusDone
		}
	case ok:
		updates["status"] = models.ScheduledTaskStatusDone
	default:
		updates["status"] = models.ScheduledTaskStatusFailure
	}

	if err := db.Model(&models.ScheduledTask{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
		r.logger.Error("failed to update task", "task_id", task.ID, "error", err)
	}
}

// attemptOf reads the attempt counter that retrying tasks carry in their arguments
func attemptOf(task models.ScheduledTask) int {
	if v, ok := task.Arguments["attempt"].(float64); ok && v >= 1 {
		return int(v)
	}
	return 1
}

// Loop runs RunDue once immediately and then on every tick until ctx ends
func (r *Runner) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunDue(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("task run failed", "error", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
