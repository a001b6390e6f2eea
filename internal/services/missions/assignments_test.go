package missions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/testutil"
)

func countAssignments(t *testing.T, fx *fixture, missionID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, fx.db.Model(&models.MissionAssignment{}).Where("mission_id = ?", missionID).Count(&n).Error)
	return n
}

func TestAssignUsersTwoCoordinators(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()
	m := testutil.CreateMission(t, fx.db, "site", nil)

	res, err := fx.svc.AssignUsers(ctx, fx.admin, m.ID, []string{fx.c1.ID, fx.c2.ID})
	require.NoError(t, err)
	assert.Len(t, res.Created, 2)
	assert.Equal(t, models.MissionStatusAssigned, res.Mission.Status)
	require.NotNil(t, res.Mission.UserID)
	assert.Equal(t, fx.c1.ID, *res.Mission.UserID)
	assert.EqualValues(t, 2, countAssignments(t, fx, m.ID))

	stored, err := fx.svc.Get(ctx, fx.admin, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MissionStatusAssigned, stored.Status)
	assert.Equal(t, fx.c1.ID, *stored.UserID)
}

func TestAssignUsersIsIdempotent(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()
	m := testutil.CreateMission(t, fx.db, "site", nil)

	_, err := fx.svc.AssignUsers(ctx, fx.admin, m.ID, []string{fx.c1.ID})
	require.NoError(t, err)
	res, err := fx.svc.AssignUsers(ctx, fx.admin, m.ID, []string{fx.c1.ID, fx.c1.ID})
	require.NoError(t, err)

	assert.Empty(t, res.Created)
	assert.EqualValues(t, 1, countAssignments(t, fx, m.ID))
}

func TestAssignUsersOwnerIsFirstID(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()
	m := testutil.CreateMission(t, fx.db, "site", nil)

	_, err := fx.svc.AssignUsers(ctx, fx.admin, m.ID, []string{fx.c1.ID})
	require.NoError(t, err)
	res, err := fx.svc.AssignUsers(ctx, fx.admin, m.ID, []string{fx.c2.ID, fx.c1.ID})
	require.NoError(t, err)

	require.Len(t, res.Created, 1)
	assert.Equal(t, fx.c2.ID, res.Created[0].UserID)
	assert.Equal(t, fx.c2.ID, *res.Mission.UserID)
}

func TestAssignUsersRejections(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()
	m := testutil.CreateMission(t, fx.db, "site", &fx.c1.ID)

	_, err := fx.svc.AssignUsers(ctx, fx.c1, m.ID, []string{fx.c2.ID})
	assert.True(t, apperr.Is(err, apperr.KindForbidden), "got %v", err)

	_, err = fx.svc.AssignUsers(ctx, fx.admin, m.ID, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

	_, err = fx.svc.AssignUsers(ctx, fx.admin, m.ID, []string{" "})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

	_, err = fx.svc.AssignUsers(ctx, fx.admin, m.ID, []string{"ghost"})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

	_, err = fx.svc.AssignUsers(ctx, fx.admin, "missing", []string{fx.c2.ID})
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)

	stored, err := fx.svc.Get(ctx, fx.admin, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MissionStatusPlanned, stored.Status)
	assert.Zero(t, countAssignments(t, fx, m.ID))
}

func TestAssignUsersFlagsNotifiedAssignments(t *testing.T) {
	notifier := &recordingNotifier{online: map[string]bool{}}
	fx := setup(t, notifier)
	notifier.online[fx.c1.ID] = true
	ctx := context.Background()
	m := testutil.CreateMission(t, fx.db, "site", nil)

	res, err := fx.svc.AssignUsers(ctx, fx.admin, m.ID, []string{fx.c1.ID, fx.c2.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{fx.c1.ID}, notifier.delivered)

	var rows []models.MissionAssignment
	require.NoError(t, fx.db.Where("mission_id = ?", m.ID).Find(&rows).Error)
	notified := map[string]bool{}
	for _, r := range rows {
		notified[r.UserID] = r.Notified
	}
	assert.True(t, notified[fx.c1.ID])
	assert.False(t, notified[fx.c2.ID])

	for _, a := range res.Created {
		assert.Equal(t, a.UserID == fx.c1.ID, a.Notified)
	}
}

func TestRemoveAssignment(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()
	m := testutil.CreateMission(t, fx.db, "site", nil)

	_, err := fx.svc.AssignUsers(ctx, fx.admin, m.ID, []string{fx.c1.ID, fx.c2.ID})
	require.NoError(t, err)

	assert.True(t, apperr.Is(fx.svc.RemoveAssignment(ctx, fx.c1, m.ID, fx.c2.ID), apperr.KindForbidden))

	require.NoError(t, fx.svc.RemoveAssignment(ctx, fx.admin, m.ID, fx.c2.ID))
	assert.EqualValues(t, 1, countAssignments(t, fx, m.ID))

	require.NoError(t, fx.svc.RemoveAssignment(ctx, fx.admin, m.ID, fx.c2.ID))
	assert.EqualValues(t, 1, countAssignments(t, fx, m.ID))
}

func TestAssignedUsers(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()
	m := testutil.CreateMission(t, fx.db, "site", nil)

	_, err := fx.svc.AssignUsers(ctx, fx.admin, m.ID, []string{fx.c1.ID, fx.c2.ID})
	require.NoError(t, err)

	users, err := fx.svc.AssignedUsers(ctx, fx.c2, m.ID)
	require.NoError(t, err)
	var ids []string
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []string{fx.c1.ID, fx.c2.ID}, ids)

	other := testutil.CreateMission(t, fx.db, "other", nil)
	_, err = fx.svc.AssignedUsers(ctx, fx.c1, other.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
