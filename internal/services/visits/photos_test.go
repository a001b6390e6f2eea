package visits

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/testutil"
)

func newVisit(t *testing.T, fx *fixture) *models.Visit {
	t.Helper()
	m := testutil.CreateMission(t, fx.db, "site", &fx.c1.ID)
	v, err := fx.svc.Create(context.Background(), fx.c1, VisitInput{MissionID: m.ID})
	require.NoError(t, err)
	return v
}

func TestAddPhotoStoresAndCounts(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	v := newVisit(t, fx)

	updated, err := fx.svc.AddPhoto(ctx, fx.c1, v.ID, PhotoUpload{Filename: "dalle.png", Data: pngHeader, Comment: "R+2"})
	require.NoError(t, err)
	require.Len(t, updated.Photos, 1)
	assert.Equal(t, 1, updated.PhotoCount)
	assert.Equal(t, "R+2", updated.Photos[0].Comment)
	assert.Nil(t, updated.Photos[0].Analysis)
	assert.Len(t, fx.files.objects, 1)

	updated, err = fx.svc.AddPhoto(ctx, fx.c1, v.ID, PhotoUpload{Filename: "acces.png", Data: pngHeader, Analyze: true})
	require.NoError(t, err)
	require.Len(t, updated.Photos, 2)
	assert.Equal(t, 2, updated.PhotoCount)
	require.NotNil(t, updated.Photos[1].Analysis)
	assert.Equal(t, models.RiskLevelHigh, updated.Photos[1].Analysis.RiskLevel)

	stored, err := fx.svc.Get(ctx, fx.admin, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.PhotoCount)
}

func TestAddPhotoRejectsNonImages(t *testing.T) {
	fx := setup(t)
	v := newVisit(t, fx)

	_, err := fx.svc.AddPhoto(context.Background(), fx.c1, v.ID, PhotoUpload{Filename: "x.txt", Data: []byte("hello")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = fx.svc.AddPhoto(context.Background(), fx.c1, v.ID, PhotoUpload{Filename: "x.png"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAddPhotoUpstreamFailures(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	v := newVisit(t, fx)

	fx.files.failPut = true
	_, err := fx.svc.AddPhoto(ctx, fx.c1, v.ID, PhotoUpload{Filename: "a.png", Data: pngHeader})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
	assert.Equal(t, "failed to upload photo", apperr.Message(err))

	fx.files.failPut = false
	fx.analyzer.err = errors.New("quota exceeded")
	_, err = fx.svc.AddPhoto(ctx, fx.c1, v.ID, PhotoUpload{Filename: "a.png", Data: pngHeader, Analyze: true})
	require.Error(t, err)
	assert.Equal(t, "failed to analyze photo", apperr.Message(err))
	assert.Empty(t, fx.files.objects)

	stored, err := fx.svc.Get(ctx, fx.c1, v.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.PhotoCount)
}

func TestUpdateAnalyzeAndRemovePhoto(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	v := newVisit(t, fx)

	withPhoto, err := fx.svc.AddPhoto(ctx, fx.c1, v.ID, PhotoUpload{Filename: "a.png", Data: pngHeader})
	require.NoError(t, err)
	photoID := withPhoto.Photos[0].ID

	comment, validated := "Garde-corps posé", true
	updated, err := fx.svc.UpdatePhoto(ctx, fx.c1, v.ID, photoID, PhotoUpdate{Comment: &comment, Validated: &validated})
	require.NoError(t, err)
	assert.Equal(t, comment, updated.Photos[0].Comment)
	assert.True(t, updated.Photos[0].Validated)

	_, err = fx.svc.UpdatePhoto(ctx, fx.c1, v.ID, "missing", PhotoUpdate{Comment: &comment})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	analyzed, err := fx.svc.AnalyzePhoto(ctx, fx.c1, v.ID, photoID)
	require.NoError(t, err)
	require.NotNil(t, analyzed.Photos[0].Analysis)
	assert.Equal(t, 1, fx.analyzer.calls)

	removed, err := fx.svc.RemovePhoto(ctx, fx.c1, v.ID, photoID)
	require.NoError(t, err)
	assert.Empty(t, removed.Photos)
	assert.Zero(t, removed.PhotoCount)
	assert.Empty(t, fx.files.objects)
}

func TestAnalyzePhotoWithoutAnalyzer(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	fx.svc.analyzer = nil
	v := newVisit(t, fx)

	withPhoto, err := fx.svc.AddPhoto(ctx, fx.c1, v.ID, PhotoUpload{Filename: "a.png", Data: pngHeader})
	require.NoError(t, err)

	_, err = fx.svc.AnalyzePhoto(ctx, fx.c1, v.ID, withPhoto.Photos[0].ID)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
}
