package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/cspsgo/internal/config"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/services/importer"
	"github.com/xelth-com/cspsgo/internal/testutil"
)

func TestRenderImport(t *testing.T) {
	color.NoColor = true

	res := &importer.Result{
		Imported: []models.Mission{{
			ID: "m-1", Title: "Site A", Client: "ACME",
			Date: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), Time: "09:00",
			Type: models.MissionTypeCSPS, Status: models.MissionStatusPlanned,
		}},
		Ignored: []importer.IgnoredRow{{Row: 3, Data: map[string]string{"title": "Site A"}, Reason: "mission already exists"}},
		Errors:  []importer.RowError{{Row: 4, Data: map[string]string{"title": "Site B"}, Message: `invalid date format: "demain"`}},
		Summary: importer.Summary{Total: 3, Imported: 1, Ignored: 1, Errors: 1},
	}

	var buf bytes.Buffer
	renderImport(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "2025-01-10")
	assert.Contains(t, out, "mission already exists")
	assert.Contains(t, out, "invalid date format")
	assert.Contains(t, out, "3 rows, 1 imported, 1 ignored, 1 errors")
}

func TestRenderUsers(t *testing.T) {
	var buf bytes.Buffer
	renderUsers(&buf, []models.UserAuth{{ID: "u-1", Username: "jdupont", Email: "j@csps.test", LastName: "Dupont", Role: models.RoleCoordinator, IsActive: true}})

	out := buf.String()
	assert.Contains(t, out, "jdupont")
	assert.Contains(t, out, "Dupont")
	assert.Contains(t, out, "coordinator")
}

func TestSeed(t *testing.T) {
	db := testutil.NewDB(t)
	cfg := &config.Config{JWTSecret: "seed", DefaultRegion: "FR"}
	ctx := context.Background()

	require.NoError(t, seed(ctx, cfg, db))

	var userCount, missionCount, assignmentCount int64
	db.Model(&models.UserAuth{}).Count(&userCount)
	db.Model(&models.Mission{}).Count(&missionCount)
	db.Model(&models.MissionAssignment{}).Count(&assignmentCount)
	assert.EqualValues(t, len(demoUsers), userCount)
	assert.EqualValues(t, len(demoMissions), missionCount)
	assert.EqualValues(t, len(demoMissions), assignmentCount)

	require.NoError(t, seed(ctx, cfg, db), "seeding twice is a no-op")
	db.Model(&models.Mission{}).Count(&missionCount)
	assert.EqualValues(t, len(demoMissions), missionCount)
}
