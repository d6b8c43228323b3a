package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tripplan_app_echo/internal/models"
)

type recordingQueue struct {
	invites [][2]uint
	fail    bool
}

func (q *recordingQueue) EnqueueInvitation(tx *gorm.DB, planID, userID uint) error {
	if q.fail {
		return errors.New("queue unavailable")
	}
	q.invites = append(q.invites, [2]uint{planID, userID})
	return nil
}

func newMemberService(f *fixture, queue InvitationQueue) *MemberService {
	return NewMemberService(f.db, f.guard, queue, f.notifier, discardLogger())
}

func TestInviteAndAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	queue := &recordingQueue{}
	members := newMemberService(f, queue)
	owner := seedUser(t, f.db, "owner")
	friend := seedUser(t, f.db, "friend")
	plan := seedPlan(t, f.db, owner)

	member, err := members.Invite(ctx, owner.ID, plan.ID, friend.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, member.Role)
	assert.Equal(t, models.MemberStatusInvited, member.Status)
	assert.Equal(t, [][2]uint{{plan.ID, friend.ID}}, queue.invites)

	invitations, err := members.ListInvitations(ctx, friend.ID)
	require.NoError(t, err)
	require.Len(t, invitations, 1)
	assert.Equal(t, plan.ID, invitations[0].PlanID)
	assert.Equal(t, "owner", invitations[0].OwnerName)

	_, err = members.Invite(ctx, owner.ID, plan.ID, friend.ID, models.RoleViewer)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	require.NoError(t, members.Accept(ctx, friend.ID, plan.ID))
	assert.ErrorIs(t, members.Accept(ctx, friend.ID, plan.ID), ErrNotFound)

	invitations, err = members.ListInvitations(ctx, friend.ID)
	require.NoError(t, err)
	assert.Empty(t, invitations)

	list, err := members.ListMembers(ctx, friend.ID, plan.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestInviteValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	members := newMemberService(f, &recordingQueue{})
	owner := seedUser(t, f.db, "owner")
	editor := seedUser(t, f.db, "editor")
	friend := seedUser(t, f.db, "friend")
	plan := seedPlan(t, f.db, owner)
	seedMember(t, f.db, plan.ID, editor.ID, models.RoleEditor)

	_, err := members.Invite(ctx, owner.ID, plan.ID, owner.ID, models.RoleEditor)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = members.Invite(ctx, owner.ID, plan.ID, friend.ID, models.RoleOwner)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = members.Invite(ctx, editor.ID, plan.ID, friend.ID, models.RoleViewer)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = members.Invite(ctx, owner.ID, plan.ID, 4242, models.RoleViewer)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInviteRollsBackWhenQueueFails(t *testing.T) {
	f := newFixture(t)
	members := newMemberService(f, &recordingQueue{fail: true})
	owner := seedUser(t, f.db, "owner")
	friend := seedUser(t, f.db, "friend")
	plan := seedPlan(t, f.db, owner)

	_, err := members.Invite(context.Background(), owner.ID, plan.ID, friend.ID, models.RoleViewer)
	require.Error(t, err)

	var count int64
	f.db.Model(&models.PlanMember{}).Where("plan_id = ? AND user_id = ?", plan.ID, friend.ID).Count(&count)
	assert.Zero(t, count)
}

func TestKickLeaveAndChangeRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	members := newMemberService(f, nil)
	owner := seedUser(t, f.db, "owner")
	editor := seedUser(t, f.db, "editor")
	viewer := seedUser(t, f.db, "viewer")
	plan := seedPlan(t, f.db, owner)
	seedMember(t, f.db, plan.ID, editor.ID, models.RoleEditor)
	seedMember(t, f.db, plan.ID, viewer.ID, models.RoleViewer)

	assert.ErrorIs(t, members.ChangeRole(ctx, owner.ID, plan.ID, editor.ID, models.RoleOwner), ErrInvalidArgument)
	assert.ErrorIs(t, members.ChangeRole(ctx, editor.ID, plan.ID, viewer.ID, models.RoleEditor), ErrPermissionDenied)
	assert.ErrorIs(t, members.ChangeRole(ctx, owner.ID, plan.ID, owner.ID, models.RoleViewer), ErrNotFound)

	require.NoError(t, members.ChangeRole(ctx, owner.ID, plan.ID, viewer.ID, models.RoleEditor))
	assert.NoError(t, f.guard.Authorize(ctx, plan.ID, viewer.ID, models.RoleEditor))

	assert.ErrorIs(t, members.Kick(ctx, owner.ID, plan.ID, owner.ID), ErrInvalidArgument)
	assert.ErrorIs(t, members.Kick(ctx, editor.ID, plan.ID, viewer.ID), ErrPermissionDenied)
	require.NoError(t, members.Kick(ctx, owner.ID, plan.ID, viewer.ID))
	assert.ErrorIs(t, f.guard.Authorize(ctx, plan.ID, viewer.ID, models.RoleViewer), ErrPermissionDenied)

	assert.ErrorIs(t, members.Leave(ctx, owner.ID, plan.ID), ErrInvalidArgument)
	require.NoError(t, members.Leave(ctx, editor.ID, plan.ID))
	assert.ErrorIs(t, members.Leave(ctx, editor.ID, plan.ID), ErrNotFound)
}
