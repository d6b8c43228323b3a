package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripplan_app_echo/internal/models"
)

func TestCreatePlanAddsOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := seedUser(t, f.db, "owner")

	plan, err := f.plans.CreatePlan(ctx, owner.ID, PlanInput{
		Regions:   []string{"Seoul", "Busan"},
		StartDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "Seoul, Busan trip", plan.Title)
	assert.Equal(t, []string{"Seoul", "Busan"}, plan.Regions())
	assert.False(t, plan.IsPublic)
	assert.NotEmpty(t, plan.ShareUUID)
	assert.NoError(t, f.guard.Authorize(ctx, plan.ID, owner.ID, models.RoleOwner))

	mine, err := f.plans.ListMyPlans(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, plan.ID, mine[0].ID)

	_, err = f.plans.CreatePlan(ctx, owner.ID, PlanInput{
		StartDate: time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestUpdatePlanOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := seedUser(t, f.db, "owner")
	editor := seedUser(t, f.db, "editor")
	plan := seedPlan(t, f.db, owner)
	seedMember(t, f.db, plan.ID, editor.ID, models.RoleEditor)

	title := "Renamed"
	_, err := f.plans.UpdatePlan(ctx, editor.ID, plan.ID, PlanPatch{Title: &title})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	updated, err := f.plans.UpdatePlan(ctx, owner.ID, plan.ID, PlanPatch{Title: &title, Regions: []string{"Jeju"}})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "Jeju", updated.RegionName)

	early := plan.StartDate.AddDate(0, 0, -10)
	_, err = f.plans.UpdatePlan(ctx, owner.ID, plan.ID, PlanPatch{EndDate: &early})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	require.NoError(t, f.plans.UpdateVisibility(ctx, owner.ID, plan.ID, true))
	detail, err := f.plans.GetPlanDetail(ctx, seedUser(t, f.db, "guest").ID, plan.ID)
	require.NoError(t, err)
	assert.True(t, detail.IsPublic)
	assert.Len(t, detail.Members, 2)
}

func TestDeletePlanRemovesSchedulesAndMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := seedUser(t, f.db, "owner")
	editor := seedUser(t, f.db, "editor")
	plan := seedPlan(t, f.db, owner)
	seedMember(t, f.db, plan.ID, editor.ID, models.RoleEditor)
	addN(t, f, owner.ID, plan.ID, 1, 2)

	assert.ErrorIs(t, f.plans.DeletePlan(ctx, editor.ID, plan.ID), ErrPermissionDenied)
	require.NoError(t, f.plans.DeletePlan(ctx, owner.ID, plan.ID))

	_, err := f.plans.GetPlanDetail(ctx, owner.ID, plan.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var schedules, members int64
	f.db.Model(&models.PlanSchedule{}).Where("plan_id = ?", plan.ID).Count(&schedules)
	f.db.Model(&models.PlanMember{}).Where("plan_id = ?", plan.ID).Count(&members)
	assert.Zero(t, schedules)
	assert.Zero(t, members)
	assert.Equal(t, int64(1), countPlaces(t, f.db), "places outlive plans")
}

func TestCopyPlanClonesSchedules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := seedUser(t, f.db, "owner")
	reader := seedUser(t, f.db, "reader")
	plan := seedPlan(t, f.db, owner)
	addN(t, f, owner.ID, plan.ID, 1, 2)
	addN(t, f, owner.ID, plan.ID, 2, 1)

	_, err := f.plans.CopyPlan(ctx, reader.ID, plan.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	require.NoError(t, f.plans.UpdateVisibility(ctx, owner.ID, plan.ID, true))
	copied, err := f.plans.CopyPlan(ctx, reader.ID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, reader.ID, copied.OwnerID)
	assert.False(t, copied.IsPublic)
	assert.NoError(t, f.guard.Authorize(ctx, copied.ID, reader.ID, models.RoleOwner))

	assert.Len(t, dayOrder(t, f.db, copied.ID, 1), 2)
	assert.Len(t, dayOrder(t, f.db, copied.ID, 2), 1)
}

func TestPurgeDeletedPlans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := seedUser(t, f.db, "owner")
	old := seedPlan(t, f.db, owner)
	recent := seedPlan(t, f.db, owner)
	kept := seedPlan(t, f.db, owner)

	require.NoError(t, f.plans.DeletePlan(ctx, owner.ID, old.ID))
	require.NoError(t, f.plans.DeletePlan(ctx, owner.ID, recent.ID))
	require.NoError(t, f.db.Model(&models.Plan{}).Unscoped().Where("id = ?", old.ID).
		Update("deleted_at", time.Now().AddDate(0, 0, -40)).Error)

	purged, err := PurgeDeletedPlans(f.db, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	var remaining []uint
	require.NoError(t, f.db.Unscoped().Model(&models.Plan{}).Order("id").Pluck("id", &remaining).Error)
	assert.Equal(t, []uint{recent.ID, kept.ID}, remaining)
}
