// Package visits records coordinator site visits and their photos.
package visits

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/config"
	"github.com/xelth-com/cspsgo/internal/database"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/services/missions"
	"github.com/xelth-com/cspsgo/internal/storage"
	"github.com/xelth-com/cspsgo/internal/utils"
	"github.com/xelth-com/cspsgo/internal/workflow"
	"gorm.io/gorm"
)

// PhotoAnalyzer assesses a site photo
type PhotoAnalyzer interface {
	AnalyzePhoto(ctx context.Context, data []byte, mimeType string) (*models.PhotoAnalysis, error)
}

// Service handles visit operations
type Service struct {
	db       *database.DB
	files    storage.FileStorage
	analyzer PhotoAnalyzer
	log      *logrus.Entry
}

// NewService creates a new visit service. analyzer may be nil when AI
// analysis is not configured.
func NewService(db *database.DB, files storage.FileStorage, analyzer PhotoAnalyzer) *Service {
	return &Service{
		db:       db,
		files:    files,
		analyzer: analyzer,
		log:      config.GetLogger().WithField("module", "visits"),
	}
}

// PhotoInput references a photo that is already stored
type PhotoInput struct {
	URL     string `json:"url" validate:"required"`
	Key     string `json:"key"`
	Comment string `json:"comment"`
}

// VisitInput is the accepted shape of a new visit
type VisitInput struct {
	MissionID string       `json:"missionId" validate:"required"`
	VisitDate string       `json:"visitDate"`
	Notes     string       `json:"notes"`
	Photos    []PhotoInput `json:"photos" validate:"dive"`
}

// VisitUpdate carries editable visit fields. Nil fields are kept.
type VisitUpdate struct {
	VisitDate *string `json:"visitDate"`
	Notes     *string `json:"notes"`
}

// Create records a visit and moves the mission to en_cours in the same
// transaction. Visits on completed or validated missions are rejected.
func (s *Service) Create(ctx context.Context, actor workflow.Actor, in VisitInput) (*models.Visit, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	visitDate := time.Now().UTC()
	if strings.TrimSpace(in.VisitDate) != "" {
		d, err := parseVisitDate(in.VisitDate)
		if err != nil {
			return nil, err
		}
		visitDate = d
	}

	now := time.Now().UTC()
	visit := &models.Visit{
		UserID:    actor.ID,
		VisitDate: visitDate,
		Notes:     in.Notes,
	}
	for _, p := range in.Photos {
		visit.Photos = append(visit.Photos, models.Photo{
			ID:         uuid.NewString(),
			URL:        p.URL,
			Key:        p.Key,
			Comment:    p.Comment,
			UploadedAt: now,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mission, err := missions.FindScoped(tx, actor, in.MissionID)
		if err != nil {
			return err
		}
		if mission.Status.IsTerminal() {
			return apperr.Validation("cannot record a visit on a mission with status %s", mission.Status)
		}

		visit.MissionID = mission.ID
		if err := tx.Create(visit).Error; err != nil {
			return apperr.Internal("create visit", err)
		}
		return missions.ApplyEvent(tx, mission, workflow.EventVisitStarted)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"visitId":   visit.ID,
		"missionId": visit.MissionID,
		"photos":    visit.PhotoCount,
	}).Info("Visit recorded")
	return visit, nil
}

// List returns visits on missions actor may read, newest first
func (s *Service) List(ctx context.Context, actor workflow.Actor, missionID string) ([]models.Visit, error) {
	q := missions.Scope(s.db.WithContext(ctx).Model(&models.Visit{}).
		Joins("JOIN missions ON missions.id = visits.mission_id"), actor)
	if missionID != "" {
		q = q.Where("visits.mission_id = ?", missionID)
	}

	var visits []models.Visit
	if err := q.Order("visits.visit_date DESC").Find(&visits).Error; err != nil {
		return nil, apperr.Internal("list visits", err)
	}
	return visits, nil
}

// Get returns a visit whose mission actor may read
func (s *Service) Get(ctx context.Context, actor workflow.Actor, id string) (*models.Visit, error) {
	return findScoped(s.db.WithContext(ctx), actor, id)
}

// Update edits notes and visit date
func (s *Service) Update(ctx context.Context, actor workflow.Actor, id string, u VisitUpdate) (*models.Visit, error) {
	visit, err := s.findWritable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if u.VisitDate != nil {
		d, err := parseVisitDate(*u.VisitDate)
		if err != nil {
			return nil, err
		}
		visit.VisitDate = d
	}
	if u.Notes != nil {
		visit.Notes = *u.Notes
	}

	if err := s.db.WithContext(ctx).Save(visit).Error; err != nil {
		return nil, apperr.Internal("update visit", err)
	}
	return visit, nil
}

// Delete removes a visit, then its stored photos
func (s *Service) Delete(ctx context.Context, actor workflow.Actor, id string) error {
	visit, err := s.findWritable(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Visit{}, "id = ?", visit.ID).Error; err != nil {
		return apperr.Internal("delete visit", err)
	}

	for _, p := range visit.Photos {
		if p.Key == "" {
			continue
		}
		if err := s.files.Delete(ctx, p.Key); err != nil {
			s.log.WithFields(logrus.Fields{"visitId": visit.ID, "key": p.Key}).Warnf("Failed to delete photo file: %v", err)
		}
	}
	return nil
}

// findScoped loads a visit through its mission's read scope
func findScoped(tx *gorm.DB, actor workflow.Actor, id string) (*models.Visit, error) {
	var visit models.Visit
	err := missions.Scope(tx.Model(&models.Visit{}).
		Joins("JOIN missions ON missions.id = visits.mission_id"), actor).
		Where("visits.id = ?", id).
		First(&visit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("visit")
	}
	if err != nil {
		return nil, apperr.Internal("load visit", err)
	}
	return &visit, nil
}

// findWritable allows admins and the coordinator who recorded the visit
func (s *Service) findWritable(ctx context.Context, actor workflow.Actor, id string) (*models.Visit, error) {
	visit, err := findScoped(s.db.WithContext(ctx), actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.Can(workflow.CapManageAllRecords) && visit.UserID != actor.ID {
		return nil, apperr.Forbidden("only the author may modify visit %s", visit.ID)
	}
	return visit, nil
}

func parseVisitDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := utils.ParseDate(s)
	if err != nil {
		return time.Time{}, apperr.Validation("visitDate: %v", err)
	}
	return d, nil
}
