package visits

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/workflow"
	"gorm.io/gorm"
)

// MaxPhotoSize is the largest accepted photo upload
const MaxPhotoSize = 15 << 20

// PhotoUpload is a photo file sent by a coordinator
type PhotoUpload struct {
	Filename string
	Data     []byte
	Comment  string
	Analyze  bool
}

// PhotoUpdate carries editable photo fields. Nil fields are kept.
type PhotoUpdate struct {
	Comment   *string `json:"comment"`
	Validated *bool   `json:"validated"`
}

// errNoAnalyzer is returned when analysis is requested without a configured model
var errNoAnalyzer = errors.New("AI analysis is not configured")

// AddPhoto stores an uploaded photo and appends it to the visit, optionally
// running AI analysis first
func (s *Service) AddPhoto(ctx context.Context, actor workflow.Actor, visitID string, up PhotoUpload) (*models.Visit, error) {
	if len(up.Data) == 0 {
		return nil, apperr.Validation("photo is empty")
	}
	if len(up.Data) > MaxPhotoSize {
		return nil, apperr.Validation("photo exceeds %d MB", MaxPhotoSize>>20)
	}
	mimeType := http.DetectContentType(up.Data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, apperr.Validation("unsupported photo type %s", mimeType)
	}

	visit, err := s.findWritable(ctx, actor, visitID)
	if err != nil {
		return nil, err
	}

	obj, err := s.files.Upload(ctx, up.Data, path.Join("visits", visit.ID), up.Filename, mimeType)
	if err != nil {
		return nil, apperr.Upstream("upload photo", err)
	}

	photo := models.Photo{
		ID:         uuid.NewString(),
		URL:        obj.URL,
		Key:        obj.Key,
		Comment:    up.Comment,
		UploadedAt: time.Now().UTC(),
	}

	if up.Analyze {
		analysis, err := s.analyze(ctx, up.Data, mimeType)
		if err != nil {
			s.discard(ctx, obj.Key)
			return nil, err
		}
		photo.Analysis = analysis
	}

	updated, err := s.mutate(ctx, visit.ID, func(v *models.Visit) error {
		v.Photos = append(v.Photos, photo)
		return nil
	})
	if err != nil {
		s.discard(ctx, obj.Key)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"visitId": visit.ID, "photoId": photo.ID}).Info("Photo added")
	return updated, nil
}

// UpdatePhoto edits a photo's comment and validated flag
func (s *Service) UpdatePhoto(ctx context.Context, actor workflow.Actor, visitID, photoID string, u PhotoUpdate) (*models.Visit, error) {
	visit, err := s.findWritable(ctx, actor, visitID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, visit.ID, func(v *models.Visit) error {
		i := v.FindPhoto(photoID)
		if i < 0 {
			return apperr.NotFound("photo")
		}
		if u.Comment != nil {
			v.Photos[i].Comment = *u.Comment
		}
		if u.Validated != nil {
			v.Photos[i].Validated = *u.Validated
		}
		return nil
	})
}

// AnalyzePhoto downloads a stored photo, runs AI analysis and keeps the result
func (s *Service) AnalyzePhoto(ctx context.Context, actor workflow.Actor, visitID, photoID string) (*models.Visit, error) {
	visit, err := s.findWritable(ctx, actor, visitID)
	if err != nil {
		return nil, err
	}
	i := visit.FindPhoto(photoID)
	if i < 0 {
		return nil, apperr.NotFound("photo")
	}
	key := visit.Photos[i].Key
	if key == "" {
		return nil, apperr.Validation("photo %s has no stored file", photoID)
	}

	data, err := s.files.Download(ctx, key)
	if err != nil {
		return nil, apperr.Upstream("download photo", err)
	}
	analysis, err := s.analyze(ctx, data, http.DetectContentType(data))
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, visit.ID, func(v *models.Visit) error {
		j := v.FindPhoto(photoID)
		if j < 0 {
			return apperr.NotFound("photo")
		}
		v.Photos[j].Analysis = analysis
		return nil
	})
}

// RemovePhoto deletes the stored file, then drops the photo from the visit
func (s *Service) RemovePhoto(ctx context.Context, actor workflow.Actor, visitID, photoID string) (*models.Visit, error) {
	visit, err := s.findWritable(ctx, actor, visitID)
	if err != nil {
		return nil, err
	}
	i := visit.FindPhoto(photoID)
	if i < 0 {
		return nil, apperr.NotFound("photo")
	}

	if key := visit.Photos[i].Key; key != "" {
		if err := s.files.Delete(ctx, key); err != nil {
			return nil, apperr.Upstream("delete photo", err)
		}
	}

	return s.mutate(ctx, visit.ID, func(v *models.Visit) error {
		if j := v.FindPhoto(photoID); j >= 0 {
			v.Photos = append(v.Photos[:j], v.Photos[j+1:]...)
		}
		return nil
	})
}

func (s *Service) analyze(ctx context.Context, data []byte, mimeType string) (*models.PhotoAnalysis, error) {
	if s.analyzer == nil {
		return nil, apperr.Upstream("analyze photo", errNoAnalyzer)
	}
	analysis, err := s.analyzer.AnalyzePhoto(ctx, data, mimeType)
	if err != nil {
		return nil, apperr.Upstream("analyze photo", err)
	}
	return analysis, nil
}

// mutate reloads the visit, applies fn and saves it in one transaction
func (s *Service) mutate(ctx context.Context, visitID string, fn func(v *models.Visit) error) (*models.Visit, error) {
	var visit models.Visit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&visit, "id = ?", visitID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("visit")
			}
			return apperr.Internal("load visit", err)
		}
		if err := fn(&visit); err != nil {
			return err
		}
		if err := tx.Save(&visit).Error; err != nil {
			return apperr.Internal("update visit", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &visit, nil
}

// discard removes an uploaded file that could not be attached
func (s *Service) discard(ctx context.Context, key string) {
	if err := s.files.Delete(ctx, key); err != nil {
		s.log.WithField("key", key).Warnf("Failed to discard uploaded photo: %v", err)
	}
}
