package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"tripplan_app_echo/internal/config"
	"tripplan_app_echo/internal/models"
	"tripplan_app_echo/internal/services"
	"tripplan_app_echo/internal/tasks"
)

func main() {
	taskName := flag.String("task_name", "", "Name of the task (mandatory)")
	argsStr := flag.String("arguments", "{}", "JSON arguments for the task")
	dueStr := flag.String("due", "", "Due date (mandatory, format: 2006-01-02 15:04 or RFC3339)")
	taskType := flag.String("tasktype", "onetime", "Task type: onetime or recurring")
	recurring := flag.String("recurring", "", "RRULE for recurring tasks, e.g. FREQ=DAILY")
	maxAttempt := flag.Int("max_attempt", 3, "Max attempts")
	flag.Parse()

	cfg := config.Load()
	registry := tasks.NewRegistry()
	tasks.DefineTasks(registry,
		tasks.NewPurgeDeletedPlansTask(cfg.PurgeRetentionDays),
		tasks.NewSendInvitationTask(nil, cfg.AppURL, slog.Default()),
	)

	if *taskName == "" || *dueStr == "" {
		fmt.Println("Usage: schedule_task -task_name <name> -due <YYYY-MM-DD HH:MM> [options]")
		fmt.Printf("Known tasks: %s\n", strings.Join(registry.Names(), ", "))
		flag.PrintDefaults()
		os.Exit(1)
	}
	if _, ok := registry.Get(*taskName); !ok {
		log.Fatalf("Unknown task %q, known tasks: %s", *taskName, strings.Join(registry.Names(), ", "))
	}

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(*argsStr), &args); err != nil {
		log.Fatalf("Invalid JSON arguments: %v", err)
	}

	due, err := time.Parse(time.RFC3339, *dueStr)
	if err != nil {
		due, err = time.ParseInLocation("2006-01-02 15:04", *dueStr, time.Local)
		if err != nil {
			log.Fatalf("Invalid due date format. Use '2006-01-02 15:04' (Local) or RFC3339: %v", err)
		}
	}

	task := models.ScheduledTask{
		TaskName:   *taskName,
		Arguments:  args,
		Due:        due,
		TaskType:   models.ScheduledTaskType(*taskType),
		MaxAttempt: *maxAttempt,
		Status:     models.ScheduledTaskStatusActive,
	}
	switch task.TaskType {
	case models.ScheduledTaskTypeOneTime:
	case models.ScheduledTaskTypeRecurring:
		if *recurring == "" {
			log.Fatal("-recurring is required for recurring tasks")
		}
		task.RecurringInterval = recurring
		if task.NextDueAfter(due).IsZero() {
			log.Fatalf("Invalid or exhausted recurrence rule %q", *recurring)
		}
	default:
		log.Fatalf("Unknown task type %q", *taskType)
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	db, err := services.InitDB(cfg.DatabaseURL, false)
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}
	if err := db.Create(&task).Error; err != nil {
		log.Fatalf("Failed to create task: %v", err)
	}

	fmt.Printf("Successfully created task ID: %d\n", task.ID)
	fmt.Printf("Task: %s\nDue: %s\nType: %s\n", task.TaskName, task.Due, task.TaskType)
}
