package missions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/config"
	"github.com/xelth-com/cspsgo/internal/database"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/testutil"
	"github.com/xelth-com/cspsgo/internal/workflow"
)

type recordingNotifier struct {
	mu        sync.Mutex
	online    map[string]bool
	delivered []string
}

func (n *recordingNotifier) SendToUser(userID string, message interface{}) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.online[userID] {
		return false
	}
	n.delivered = append(n.delivered, userID)
	return true
}

type fixture struct {
	db    *database.DB
	svc   *Service
	admin workflow.Actor
	c1    workflow.Actor
	c2    workflow.Actor
}

func setup(t *testing.T, notifier Notifier) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	return &fixture{
		db:    db,
		svc:   NewService(db, notifier, &config.Config{DefaultRegion: "FR"}),
		admin: testutil.ActorFor(testutil.CreateUser(t, db, models.RoleAdmin, "admin")),
		c1:    testutil.ActorFor(testutil.CreateUser(t, db, models.RoleCoordinator, "coord")),
		c2:    testutil.ActorFor(testutil.CreateUser(t, db, models.RoleCoordinator, "coord")),
	}
}

func siteA() MissionInput {
	return MissionInput{
		Title:   "Site A",
		Client:  "ACME",
		Address: "12 avenue Jean Jaurès, Lyon",
		Date:    "2025-01-10",
		Time:    "09:00",
		Type:    "CSPS",
	}
}

func TestCreateDefaultsToPlanned(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	m, err := fx.svc.Create(ctx, fx.admin, siteA())
	require.NoError(t, err)
	assert.Equal(t, models.MissionStatusPlanned, m.Status)
	assert.Nil(t, m.UserID)
	assert.False(t, m.Imported)
}

func TestCreateRoundTrip(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	in := siteA()
	in.RefClient = "REF-42"
	in.EndDate = "12/01/2025"
	in.Type = "aeu"
	in.Description = "Gros oeuvre, phase 2"
	in.Status = "assignee"
	in.ContactFirstName = "Marie"
	in.ContactLastName = "Durand"
	in.ContactEmail = "marie@acme.fr"
	in.ContactPhone = "06 12 34 56 78"
	in.RefBusiness = "AFF-7"
	in.UserID = &fx.c1.ID

	created, err := fx.svc.Create(ctx, fx.admin, in)
	require.NoError(t, err)

	got, err := fx.svc.Get(ctx, fx.admin, created.ID)
	require.NoError(t, err)

	assert.Equal(t, "Site A", got.Title)
	assert.Equal(t, "ACME", got.Client)
	assert.Equal(t, "REF-42", got.RefClient)
	assert.Equal(t, "12 avenue Jean Jaurès, Lyon", got.Address)
	assert.True(t, got.Date.Equal(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "09:00", got.Time)
	require.NotNil(t, got.EndDate)
	assert.True(t, got.EndDate.Equal(time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, models.MissionTypeAEU, got.Type)
	assert.Equal(t, "Gros oeuvre, phase 2", got.Description)
	assert.Equal(t, models.MissionStatusAssigned, got.Status)
	assert.Equal(t, "Marie", got.ContactFirstName)
	assert.Equal(t, "Durand", got.ContactLastName)
	assert.Equal(t, "marie@acme.fr", got.ContactEmail)
	assert.Equal(t, "+33 6 12 34 56 78", got.ContactPhone)
	assert.Equal(t, "AFF-7", got.RefBusiness)
	require.NotNil(t, got.UserID)
	assert.Equal(t, fx.c1.ID, *got.UserID)
	require.NotNil(t, got.User)
	assert.Equal(t, fx.c1.ID, got.User.ID)
}

func TestCreateValidation(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	tests := map[string]func(in *MissionInput){
		"missing title":  func(in *MissionInput) { in.Title = "  " },
		"bad date":       func(in *MissionInput) { in.Date = "demain" },
		"bad time":       func(in *MissionInput) { in.Time = "midi" },
		"unknown type":   func(in *MissionInput) { in.Type = "Audit" },
		"unknown status": func(in *MissionInput) { in.Status = "annulee" },
		"bad email":      func(in *MissionInput) { in.ContactEmail = "not-an-email" },
		"end before":     func(in *MissionInput) { in.EndDate = "2025-01-01" },
		"unknown owner":  func(in *MissionInput) { id := "00000000-0000-0000-0000-000000000000"; in.UserID = &id },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := siteA()
			mutate(&in)
			_, err := fx.svc.Create(ctx, fx.admin, in)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}
}

func TestCoordinatorOwnsCreatedMission(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	in := siteA()
	in.UserID = &fx.c2.ID
	m, err := fx.svc.Create(ctx, fx.c1, in)
	require.NoError(t, err)
	require.NotNil(t, m.UserID)
	assert.Equal(t, fx.c1.ID, *m.UserID)
}

func TestReadScoping(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	owned := testutil.CreateMission(t, fx.db, "owned", &fx.c1.ID)
	assigned := testutil.CreateMission(t, fx.db, "assigned", &fx.c2.ID)
	foreign := testutil.CreateMission(t, fx.db, "foreign", &fx.c2.ID)
	unowned := testutil.CreateMission(t, fx.db, "unowned", nil)

	require.NoError(t, fx.db.Create(&models.MissionAssignment{
		MissionID: assigned.ID, UserID: fx.c1.ID, AssignedByID: fx.admin.ID,
	}).Error)

	list, err := fx.svc.List(ctx, fx.c1, Filter{})
	require.NoError(t, err)
	var titles []string
	for _, m := range list {
		titles = append(titles, m.Title)
	}
	assert.ElementsMatch(t, []string{"owned", "assigned"}, titles)

	_, err = fx.svc.Get(ctx, fx.c1, owned.ID)
	assert.NoError(t, err)
	_, err = fx.svc.Get(ctx, fx.c1, assigned.ID)
	assert.NoError(t, err)

	for _, id := range []string{foreign.ID, unowned.ID, "missing"} {
		_, err = fx.svc.Get(ctx, fx.c1, id)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
		assert.False(t, apperr.Is(err, apperr.KindForbidden))
	}

	all, err := fx.svc.List(ctx, fx.admin, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestListFilters(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	a := testutil.CreateMission(t, fx.db, "a", &fx.c1.ID)
	b := testutil.CreateMission(t, fx.db, "b", nil)
	require.NoError(t, fx.db.Model(b).Updates(map[string]interface{}{
		"client": "Bouygues Bâtiment",
		"status": models.MissionStatusInProgress,
		"date":   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}).Error)

	list, err := fx.svc.List(ctx, fx.admin, Filter{Client: "bouygues"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	list, err = fx.svc.List(ctx, fx.admin, Filter{Status: models.MissionStatusPlanned})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	list, err = fx.svc.List(ctx, fx.admin, Filter{From: &from})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	list, err = fx.svc.List(ctx, fx.admin, Filter{UserID: fx.c1.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	_, err = fx.svc.List(ctx, fx.admin, Filter{Status: "annulee"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestGenericUpdateBypassesTransitions(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	m := testutil.CreateMission(t, fx.db, "site", &fx.c1.ID)

	status := "terminee"
	title := "Site A bis"
	updated, err := fx.svc.Update(ctx, fx.c1, m.ID, MissionUpdate{Status: &status, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, models.MissionStatusCompleted, updated.Status)

	back := "planifiee"
	updated, err = fx.svc.Update(ctx, fx.c1, m.ID, MissionUpdate{Status: &back})
	require.NoError(t, err)
	assert.Equal(t, models.MissionStatusPlanned, updated.Status)
	assert.Equal(t, "Site A bis", updated.Title)

	bad := "annulee"
	_, err = fx.svc.Update(ctx, fx.c1, m.ID, MissionUpdate{Status: &bad})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUpdateRejectsBlankRequiredFields(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	m := testutil.CreateMission(t, fx.db, "site", &fx.c1.ID)
	blank := "   "
	for name, u := range map[string]MissionUpdate{
		"title":   {Title: &blank},
		"client":  {Client: &blank},
		"address": {Address: &blank},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := fx.svc.Update(ctx, fx.admin, m.ID, u)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}

	stored, err := fx.svc.Get(ctx, fx.admin, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Title, stored.Title)

	padded := "  Site A bis  "
	updated, err := fx.svc.Update(ctx, fx.admin, m.ID, MissionUpdate{Title: &padded})
	require.NoError(t, err)
	assert.Equal(t, "Site A bis", updated.Title)
	assert.Equal(t, "  Site A bis  ", padded, "caller's value is left as is")
}

func TestUpdateAndDeletePermissions(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	m := testutil.CreateMission(t, fx.db, "site", &fx.c2.ID)
	require.NoError(t, fx.db.Create(&models.MissionAssignment{
		MissionID: m.ID, UserID: fx.c1.ID, AssignedByID: fx.admin.ID,
	}).Error)

	title := "renamed"
	_, err := fx.svc.Update(ctx, fx.c1, m.ID, MissionUpdate{Title: &title})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = fx.svc.Update(ctx, fx.c2, m.ID, MissionUpdate{UserID: &fx.c1.ID})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	err = fx.svc.Delete(ctx, fx.c1, m.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	require.NoError(t, fx.svc.Delete(ctx, fx.c2, m.ID))

	var count int64
	fx.db.Model(&models.MissionAssignment{}).Where("mission_id = ?", m.ID).Count(&count)
	assert.Zero(t, count)

	_, err = fx.svc.Get(ctx, fx.admin, m.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
