// Package reports compiles mission reports and drives their review workflow.
package reports

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/config"
	"github.com/xelth-com/cspsgo/internal/database"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/services/mailer"
	"github.com/xelth-com/cspsgo/internal/services/missions"
	"github.com/xelth-com/cspsgo/internal/services/printer"
	"github.com/xelth-com/cspsgo/internal/storage"
	"github.com/xelth-com/cspsgo/internal/utils"
	"github.com/xelth-com/cspsgo/internal/workflow"
	"gorm.io/gorm"
)

// ReportRenderer turns a report into PDF bytes
type ReportRenderer interface {
	RenderReport(doc printer.ReportDocument) ([]byte, error)
}

// Service handles report operations
type Service struct {
	db       *database.DB
	files    storage.FileStorage
	renderer ReportRenderer
	mail     mailer.Mailer
	baseURL  string
	now      func() time.Time
	log      *logrus.Entry
}

// NewService creates a new report service
func NewService(db *database.DB, files storage.FileStorage, renderer ReportRenderer, mail mailer.Mailer, cfg *config.Config) *Service {
	return &Service{
		db:       db,
		files:    files,
		renderer: renderer,
		mail:     mail,
		baseURL:  cfg.BaseURL,
		now:      func() time.Time { return time.Now().UTC() },
		log:      config.GetLogger().WithField("module", "reports"),
	}
}

// ReportInput is the accepted shape of a new report
type ReportInput struct {
	MissionID            string   `json:"missionId" validate:"required"`
	VisitID              *string  `json:"visitId"`
	Title                string   `json:"title" validate:"required"`
	Content              string   `json:"content"`
	Header               string   `json:"header"`
	Footer               string   `json:"footer"`
	Observations         string   `json:"observations"`
	ConformityPercentage *float64 `json:"conformityPercentage" validate:"omitempty,min=0,max=100"`
	RecipientEmail       string   `json:"recipientEmail" validate:"omitempty,email"`
}

// ReportUpdate carries editable report fields. Nil fields are kept.
type ReportUpdate struct {
	Title                *string              `json:"title" validate:"omitempty,min=1"`
	Content              *string              `json:"content"`
	Header               *string              `json:"header"`
	Footer               *string              `json:"footer"`
	Observations         *string              `json:"observations"`
	ConformityPercentage *float64             `json:"conformityPercentage" validate:"omitempty,min=0,max=100"`
	RecipientEmail       *string              `json:"recipientEmail" validate:"omitempty,email"`
	Status               *models.ReportStatus `json:"status"`
}

// Filter narrows a report listing. Zero fields are ignored.
type Filter struct {
	Status    models.ReportStatus
	MissionID string
}

// Create stores a draft report on a mission the actor may read. A referenced
// visit must belong to that mission and is flagged reportGenerated.
func (s *Service) Create(ctx context.Context, actor workflow.Actor, in ReportInput) (*models.Report, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.RecipientEmail = strings.TrimSpace(in.RecipientEmail)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	report := &models.Report{
		UserID:         actor.ID,
		Title:          in.Title,
		Content:        in.Content,
		Header:         in.Header,
		Footer:         in.Footer,
		Observations:   in.Observations,
		Status:         models.ReportStatusDraft,
		RecipientEmail: in.RecipientEmail,
	}
	if in.ConformityPercentage != nil {
		report.ConformityPercentage = *in.ConformityPercentage
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mission, err := missions.FindScoped(tx, actor, in.MissionID)
		if err != nil {
			return err
		}
		report.MissionID = mission.ID

		if in.VisitID != nil && *in.VisitID != "" {
			var visit models.Visit
			err := tx.Where("id = ? AND mission_id = ?", *in.VisitID, mission.ID).First(&visit).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Validation("visit %s does not belong to mission %s", *in.VisitID, mission.ID)
			}
			if err != nil {
				return apperr.Internal("load visit", err)
			}
			report.VisitID = &visit.ID

			if err := tx.Model(&visit).Update("report_generated", true).Error; err != nil {
				return apperr.Internal("flag visit", err)
			}
		}

		if err := tx.Create(report).Error; err != nil {
			return apperr.Internal("create report", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"reportId": report.ID, "missionId": report.MissionID}).Info("Report created")
	return report, nil
}

// List returns every report for admins, otherwise the actor's own reports
func (s *Service) List(ctx context.Context, actor workflow.Actor, f Filter) ([]models.Report, error) {
	q := scope(s.db.WithContext(ctx).Model(&models.Report{}), actor)
	if f.Status != "" {
		if !f.Status.IsValid() {
			return nil, apperr.Validation("unknown report status %q", f.Status)
		}
		q = q.Where("status = ?", f.Status)
	}
	if f.MissionID != "" {
		q = q.Where("mission_id = ?", f.MissionID)
	}

	var reports []models.Report
	if err := q.Order("created_at DESC").Find(&reports).Error; err != nil {
		return nil, apperr.Internal("list reports", err)
	}
	return reports, nil
}

// Get returns a report the actor may read
func (s *Service) Get(ctx context.Context, actor workflow.Actor, id string) (*models.Report, error) {
	return findScoped(s.db.WithContext(ctx).Preload("Mission"), actor, id)
}

// Update edits report fields and moves its status. Validated and
// sent-to-client need CapFinalizeReports; both push the mission forward
// in the same transaction as the report write.
func (s *Service) Update(ctx context.Context, actor workflow.Actor, id string, u ReportUpdate) (*models.Report, error) {
	u.Title = trimmed(u.Title)
	u.RecipientEmail = trimmed(u.RecipientEmail)
	if err := utils.ValidateStruct(u); err != nil {
		return nil, err
	}
	if u.Status != nil && !u.Status.IsValid() {
		return nil, apperr.Validation("unknown report status %q", *u.Status)
	}

	var report *models.Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		report, err = findScoped(tx, actor, id)
		if err != nil {
			return err
		}

		if u.Status != nil && *u.Status != report.Status {
			if err := s.transition(tx, actor, report, *u.Status); err != nil {
				return err
			}
		}

		setString(&report.Title, u.Title)
		setString(&report.Content, u.Content)
		setString(&report.Header, u.Header)
		setString(&report.Footer, u.Footer)
		setString(&report.Observations, u.Observations)
		setString(&report.RecipientEmail, u.RecipientEmail)
		if u.ConformityPercentage != nil {
			report.ConformityPercentage = *u.ConformityPercentage
		}

		if err := tx.Save(report).Error; err != nil {
			return apperr.Internal("update report", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Delete removes a report
func (s *Service) Delete(ctx context.Context, actor workflow.Actor, id string) error {
	report, err := findScoped(s.db.WithContext(ctx), actor, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Report{}, "id = ?", report.ID).Error; err != nil {
		return apperr.Internal("delete report", err)
	}
	return nil
}

// transition checks and applies a status change on report, writing the
// mission side effect with tx. The report itself is saved by the caller.
func (s *Service) transition(tx *gorm.DB, actor workflow.Actor, report *models.Report, to models.ReportStatus) error {
	if workflow.RequiresFinalize(to) {
		if err := workflow.Require(actor, workflow.CapFinalizeReports); err != nil {
			return err
		}
	}
	if !workflow.CanTransitionReport(report.Status, to) {
		return apperr.Validation("cannot move report from %s to %s", report.Status, to)
	}

	result := workflow.ApplyReportStatus(to, s.now())
	result.Apply(report)

	if result.MissionEvent != "" {
		var mission models.Mission
		if err := tx.First(&mission, "id = ?", report.MissionID).Error; err != nil {
			return apperr.Internal("load mission", err)
		}
		if err := missions.ApplyEvent(tx, &mission, result.MissionEvent); err != nil {
			return err
		}
	}

	s.log.WithFields(logrus.Fields{
		"reportId":  report.ID,
		"missionId": report.MissionID,
		"status":    to,
	}).Info("Report status changed")
	return nil
}

func scope(tx *gorm.DB, actor workflow.Actor) *gorm.DB {
	if actor.Can(workflow.CapViewAllMissions) {
		return tx
	}
	return tx.Where("reports.user_id = ?", actor.ID)
}

// findScoped loads a report the actor may read. Out-of-scope reports are
// reported as not found.
func findScoped(tx *gorm.DB, actor workflow.Actor, id string) (*models.Report, error) {
	var report models.Report
	err := scope(tx.Model(&models.Report{}), actor).Where("reports.id = ?", id).First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("report")
	}
	if err != nil {
		return nil, apperr.Internal("load report", err)
	}
	return &report, nil
}

// trimmed returns a trimmed copy of a set field
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
