package services

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tripplan_app_echo/internal/models"
)

var testDBSeq int64

// newTestDB opens a private in-memory SQLite database with the full schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:services_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingNotifier struct {
	mu    sync.Mutex
	plans []uint
}

func (n *recordingNotifier) Notify(planID uint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.plans = append(n.plans, planID)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.plans)
}

type fixture struct {
	db        *gorm.DB
	notifier  *recordingNotifier
	guard     *PermissionGuard
	resolver  *PlaceResolver
	schedules *ScheduleService
	plans     *PlanService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	guard := NewPermissionGuard(db)
	resolver := NewPlaceResolver(db, nil, time.Minute, discardLogger())
	return &fixture{
		db:        db,
		notifier:  notifier,
		guard:     guard,
		resolver:  resolver,
		schedules: NewScheduleService(db, guard, resolver, notifier, discardLogger()),
		plans:     NewPlanService(db, guard, notifier, discardLogger()),
	}
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := models.User{FirebaseUID: "uid-" + name, Nickname: name, Email: name + "@example.com"}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// seedPlan creates a private plan owned by owner
func seedPlan(t *testing.T, db *gorm.DB, owner *models.User) *models.Plan {
	t.Helper()
	plan := models.Plan{
		OwnerID:   owner.ID,
		Title:     "Test trip",
		StartDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC),
		ShareUUID: fmt.Sprintf("share-%d-%d", owner.ID, atomic.AddInt64(&testDBSeq, 1)),
	}
	require.NoError(t, db.Omit("Members", "Schedules").Create(&plan).Error)
	require.NoError(t, db.Create(newOwner(plan.ID, owner.ID)).Error)
	return &plan
}

func seedMember(t *testing.T, db *gorm.DB, planID, userID uint, role models.MemberRole) {
	t.Helper()
	member := models.PlanMember{PlanID: planID, UserID: userID, Role: role, Status: models.MemberStatusJoined}
	require.NoError(t, db.Omit("User").Create(&member).Error)
}

func seedPlace(t *testing.T, db *gorm.DB, name string) *models.Place {
	t.Helper()
	place := models.Place{Name: name, Latitude: 37.5, Longitude: 127.0}
	require.NoError(t, db.Create(&place).Error)
	return &place
}

// dayOrder returns the schedule ids of one day in position order and checks
// that the positions are exactly 0..n-1
func dayOrder(t *testing.T, db *gorm.DB, planID uint, day int) []uint {
	t.Helper()
	var schedules []models.PlanSchedule
	require.NoError(t, db.Where("plan_id = ? AND day_number = ?", planID, day).
		Order("order_index").Find(&schedules).Error)
	ids := make([]uint, len(schedules))
	for i, s := range schedules {
		require.Equal(t, i, s.OrderIndex, "day %d is not dense", day)
		ids[i] = s.ID
	}
	return ids
}
