package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"tripplan_app_echo/internal/models"
	"tripplan_app_echo/internal/services"
)

const (
	invitationMaxAttempt = 3
	invitationRetryDelay = 5 * time.Minute
)

// SendInvitationArgs are the arguments of an invitation email task
type SendInvitationArgs struct {
	PlanID  uint `json:"plan_id"`
	UserID  uint `json:"user_id"`
	Attempt int  `json:"attempt"`
}

// SendInvitationTaskDef emails a user that they were invited to a plan. It
// also queues those emails for the member service.
type SendInvitationTaskDef struct {
	mailer services.Mailer
	appURL string
	logger *slog.Logger
}

func NewSendInvitationTask(mailer services.Mailer, appURL string, logger *slog.Logger) *SendInvitationTaskDef {
	return &SendInvitationTaskDef{mailer: mailer, appURL: strings.TrimRight(appURL, "/"), logger: logger}
}

func (t *SendInvitationTaskDef) TaskID() string {
	return "send_invitation"
}

// CreateTask builds a ScheduledTask record for this task
func (t *SendInvitationTaskDef) CreateTask(args SendInvitationArgs, due time.Time) (*models.ScheduledTask, error) {
	if args.Attempt == 0 {
		args.Attempt = 1
	}
	return BuildScheduledTask(t.TaskID(), args, due, nil, models.ScheduledTaskTypeOneTime, invitationMaxAttempt)
}

// EnqueueInvitation stores an invitation task using the caller's transaction
func (t *SendInvitationTaskDef) EnqueueInvitation(tx *gorm.DB, planID, userID uint) error {
	task, err := t.CreateTask(SendInvitationArgs{PlanID: planID, UserID: userID}, time.Now())
	if err != nil {
		return err
	}
	if err := tx.Create(task).Error; err != nil {
		return fmt.Errorf("enqueue invitation: %w", err)
	}
	return nil
}

func (t *SendInvitationTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	var args SendInvitationArgs
	if err := decodeArgs(task, &args); err != nil {
		return nil, err
	}
	if args.Attempt == 0 {
		args.Attempt = 1
	}

	var member models.PlanMember
	err := db.Preload("User").
		Where("plan_id = ? AND user_id = ?", args.PlanID, args.UserID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[string]interface{}{"status": "skipped", "message": "invitation withdrawn"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member: %w", err)
	}
	if member.Status != models.MemberStatusInvited {
		return map[string]interface{}{"status": "skipped", "message": "invitation already accepted"}, nil
	}
	if member.User.Email == "" {
		return map[string]interface{}{"status": "skipped", "message": "invitee has no email"}, nil
	}

	var plan models.Plan
	if err := db.First(&plan, args.PlanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return map[string]interface{}{"status": "skipped", "message": "plan deleted"}, nil
		}
		return nil, fmt.Errorf("failed to fetch plan: %w", err)
	}
	var owner models.User
	if err := db.First(&owner, plan.OwnerID).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch owner: %w", err)
	}

	subject, body := t.invitationMessage(owner, member, plan)
	if sendErr := t.mailer.SendEmail([]string{member.User.Email}, subject, body); sendErr != nil {
		if args.Attempt >= task.MaxAttempt {
			return nil, fmt.Errorf("max attempts (%d) reached: %w", task.MaxAttempt, sendErr)
		}

		retry := args
		retry.Attempt++
		next, err := BuildScheduledTask(t.TaskID(), retry, time.Now().Add(invitationRetryDelay), nil,
			models.ScheduledTaskTypeOneTime, task.MaxAttempt)
		if err != nil {
			return nil, err
		}
		if err := db.Create(next).Error; err != nil {
			return nil, fmt.Errorf("failed to create retry task: %w", err)
		}
		t.logger.Warn("invitation email failed, rescheduled",
			"plan_id", args.PlanID, "user_id", args.UserID, "next_attempt", retry.Attempt, "error", sendErr)
		return map[string]interface{}{
			"status":        "rescheduled",
			"error":         sendErr.Error(),
			"retry_task_id": next.ID,
		}, nil
	}

	return map[string]interface{}{"status": "success", "email": member.User.Email}, nil
}

func (t *SendInvitationTaskDef) invitationMessage(owner models.User, member models.PlanMember, plan models.Plan) (string, string) {
	inviter := owner.Nickname
	if inviter == "" {
		inviter = "Someone"
	}
	subject := fmt.Sprintf("%s invited you to \"%s\"", inviter, plan.Title)

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", member.User.Nickname)
	fmt.Fprintf(&b, "%s invited you to plan \"%s\" as %s.\n", inviter, plan.Title, strings.ToLower(string(member.Role)))
	if !plan.StartDate.IsZero() {
		fmt.Fprintf(&b, "Trip dates: %s to %s\n", plan.StartDate.Format("2006-01-02"), plan.EndDate.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "\nOpen %s/plans/%d to accept the invitation.\n", t.appURL, plan.ID)
	return subject, b.String()
}
