package visits

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/database"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/storage"
	"github.com/xelth-com/cspsgo/internal/testutil"
	"github.com/xelth-com/cspsgo/internal/workflow"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	seq     int
	failPut bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Upload(ctx context.Context, data []byte, folder, filename, contentType string) (*storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return nil, errors.New("bucket unavailable")
	}
	m.seq++
	key := fmt.Sprintf("%s/%d-%s", folder, m.seq, filename)
	m.objects[key] = data
	return &storage.Object{URL: "/files/" + key, Key: key}, nil
}

func (m *memStore) Download(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

type stubAnalyzer struct {
	err   error
	calls int
}

func (a *stubAnalyzer) AnalyzePhoto(ctx context.Context, data []byte, mimeType string) (*models.PhotoAnalysis, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &models.PhotoAnalysis{
		Observation: "Absence de garde-corps",
		RiskLevel:   models.RiskLevelHigh,
		Confidence:  0.8,
	}, nil
}

type fixture struct {
	db       *database.DB
	svc      *Service
	files    *memStore
	analyzer *stubAnalyzer
	admin    workflow.Actor
	c1       workflow.Actor
	c2       workflow.Actor
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	files := newMemStore()
	analyzer := &stubAnalyzer{}
	return &fixture{
		db:       db,
		svc:      NewService(db, files, analyzer),
		files:    files,
		analyzer: analyzer,
		admin:    testutil.ActorFor(testutil.CreateUser(t, db, models.RoleAdmin, "admin")),
		c1:       testutil.ActorFor(testutil.CreateUser(t, db, models.RoleCoordinator, "coord")),
		c2:       testutil.ActorFor(testutil.CreateUser(t, db, models.RoleCoordinator, "coord")),
	}
}

func missionStatus(t *testing.T, fx *fixture, id string) models.MissionStatus {
	t.Helper()
	var m models.Mission
	require.NoError(t, fx.db.First(&m, "id = ?", id).Error)
	return m.Status
}

func setStatus(t *testing.T, fx *fixture, id string, status models.MissionStatus) {
	t.Helper()
	require.NoError(t, fx.db.Model(&models.Mission{}).Where("id = ?", id).Update("status", status).Error)
}

func TestCreateVisitStartsMission(t *testing.T) {
	for _, from := range []models.MissionStatus{models.MissionStatusPlanned, models.MissionStatusAssigned, models.MissionStatusInProgress} {
		t.Run(string(from), func(t *testing.T) {
			fx := setup(t)
			m := testutil.CreateMission(t, fx.db, "site", &fx.c1.ID)
			setStatus(t, fx, m.ID, from)

			v, err := fx.svc.Create(context.Background(), fx.c1, VisitInput{
				MissionID: m.ID,
				VisitDate: "2025-01-10",
				Notes:     "RAS",
				Photos:    []PhotoInput{{URL: "/files/p1.jpg", Key: "p1.jpg"}},
			})
			require.NoError(t, err)
			assert.Equal(t, 1, v.PhotoCount)
			assert.Len(t, v.Photos, 1)
			assert.NotEmpty(t, v.Photos[0].ID)
			assert.Equal(t, fx.c1.ID, v.UserID)
			assert.Equal(t, models.MissionStatusInProgress, missionStatus(t, fx, m.ID))
		})
	}
}

func TestCreateVisitRejectedOnTerminalMission(t *testing.T) {
	for _, from := range []models.MissionStatus{models.MissionStatusCompleted, models.MissionStatusValidated} {
		t.Run(string(from), func(t *testing.T) {
			fx := setup(t)
			m := testutil.CreateMission(t, fx.db, "site", &fx.c1.ID)
			setStatus(t, fx, m.ID, from)

			_, err := fx.svc.Create(context.Background(), fx.c1, VisitInput{MissionID: m.ID})
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

			var n int64
			fx.db.Model(&models.Visit{}).Count(&n)
			assert.Zero(t, n)
			assert.Equal(t, from, missionStatus(t, fx, m.ID))
		})
	}
}

func TestCreateVisitOutOfScope(t *testing.T) {
	fx := setup(t)
	m := testutil.CreateMission(t, fx.db, "site", &fx.c2.ID)

	_, err := fx.svc.Create(context.Background(), fx.c1, VisitInput{MissionID: m.ID})
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
	assert.Equal(t, models.MissionStatusPlanned, missionStatus(t, fx, m.ID))
}

func TestListAndGetScoping(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	mine := testutil.CreateMission(t, fx.db, "mine", &fx.c1.ID)
	theirs := testutil.CreateMission(t, fx.db, "theirs", &fx.c2.ID)

	v1, err := fx.svc.Create(ctx, fx.c1, VisitInput{MissionID: mine.ID})
	require.NoError(t, err)
	v2, err := fx.svc.Create(ctx, fx.c2, VisitInput{MissionID: theirs.ID})
	require.NoError(t, err)

	list, err := fx.svc.List(ctx, fx.c1, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, v1.ID, list[0].ID)

	all, err := fx.svc.List(ctx, fx.admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := fx.svc.List(ctx, fx.admin, theirs.ID)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, v2.ID, filtered[0].ID)

	_, err = fx.svc.Get(ctx, fx.c1, v2.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateAndDeleteVisit(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	m := testutil.CreateMission(t, fx.db, "site", &fx.c1.ID)
	require.NoError(t, fx.db.Create(&models.MissionAssignment{MissionID: m.ID, UserID: fx.c2.ID, AssignedByID: fx.admin.ID}).Error)

	v, err := fx.svc.Create(ctx, fx.c1, VisitInput{MissionID: m.ID})
	require.NoError(t, err)

	notes := "Échafaudage conforme"
	_, err = fx.svc.Update(ctx, fx.c2, v.ID, VisitUpdate{Notes: &notes})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	updated, err := fx.svc.Update(ctx, fx.c1, v.ID, VisitUpdate{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)

	bad := "hier"
	_, err = fx.svc.Update(ctx, fx.c1, v.ID, VisitUpdate{VisitDate: &bad})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, fx.svc.Delete(ctx, fx.admin, v.ID))
	_, err = fx.svc.Get(ctx, fx.admin, v.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
