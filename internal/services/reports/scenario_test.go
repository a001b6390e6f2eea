package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/cspsgo/internal/config"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/services/missions"
	"github.com/xelth-com/cspsgo/internal/services/visits"
)

// Admin plans a mission, assigns it, the coordinator visits and validates
// the report.
func TestMissionLifecycle(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	missionSvc := missions.NewService(fx.db, nil, &config.Config{DefaultRegion: "FR"})
	visitSvc := visits.NewService(fx.db, fx.files, nil)

	m, err := missionSvc.Create(ctx, fx.admin, missions.MissionInput{
		Title:   "Site A",
		Client:  "ACME",
		Address: "12 avenue Jean Jaurès, Lyon",
		Date:    "2025-01-10",
		Time:    "09:00",
		Type:    "CSPS",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MissionStatusPlanned, m.Status)

	assigned, err := missionSvc.AssignUsers(ctx, fx.admin, m.ID, []string{fx.c1.ID})
	require.NoError(t, err)
	assert.Equal(t, models.MissionStatusAssigned, assigned.Mission.Status)
	assert.Equal(t, fx.c1.ID, *assigned.Mission.UserID)
	assert.Len(t, assigned.Created, 1)

	v, err := visitSvc.Create(ctx, fx.c1, visits.VisitInput{
		MissionID: m.ID,
		VisitDate: "2025-01-10",
		Photos:    []visits.PhotoInput{{URL: "http://localhost:3001/files/visits/p1.jpg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, v.PhotoCount)
	assert.Equal(t, models.MissionStatusInProgress, fx.missionStatus(t, m.ID))

	r, err := fx.svc.Create(ctx, fx.c1, ReportInput{MissionID: m.ID, VisitID: &v.ID, Title: "Rapport Site A"})
	require.NoError(t, err)

	validated, err := fx.svc.Update(ctx, fx.c1, r.ID, ReportUpdate{Status: statusPtr(models.ReportStatusValidated)})
	require.NoError(t, err)
	require.NotNil(t, validated.ValidatedAt)
	assert.WithinDuration(t, fx.now, *validated.ValidatedAt, time.Second)

	final, err := missionSvc.Get(ctx, fx.admin, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MissionStatusCompleted, final.Status)
}
