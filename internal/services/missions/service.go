// Package missions manages missions, their read scoping and the assignment
// ledger.
package missions

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/config"
	"github.com/xelth-com/cspsgo/internal/database"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/workflow"
)

// Notifier pushes a message to a connected user and reports delivery
type Notifier interface {
	SendToUser(userID string, message interface{}) bool
}

// Service handles mission operations
type Service struct {
	db       *database.DB
	notifier Notifier
	region   string
	log      *logrus.Entry
}

// NewService creates a new mission service. notifier may be nil.
func NewService(db *database.DB, notifier Notifier, cfg *config.Config) *Service {
	return &Service{
		db:       db,
		notifier: notifier,
		region:   cfg.DefaultRegion,
		log:      config.GetLogger().WithField("module", "missions"),
	}
}

// Filter narrows a mission listing. Zero fields are ignored.
type Filter struct {
	Status models.MissionStatus
	Type   models.MissionType
	Client string
	From   *time.Time
	To     *time.Time
	UserID string
}

// Create stores a new mission. Coordinators always own what they create.
func (s *Service) Create(ctx context.Context, actor workflow.Actor, in MissionInput) (*models.Mission, error) {
	mission, err := BuildMission(in, s.region)
	if err != nil {
		return nil, err
	}

	if !actor.Can(workflow.CapManageAllRecords) {
		mission.UserID = &actor.ID
	} else if mission.UserID != nil {
		if err := s.ensureUsersExist(ctx, []string{*mission.UserID}); err != nil {
			return nil, err
		}
	}
	mission.Status = workflow.InitialMissionStatus(mission.Status)

	if err := s.db.WithContext(ctx).Create(mission).Error; err != nil {
		return nil, apperr.Internal("create mission", err)
	}

	s.log.WithFields(logrus.Fields{"missionId": mission.ID, "actor": actor.ID}).Info("Mission created")
	return mission, nil
}

// List returns the missions actor may read, ordered by date and time
func (s *Service) List(ctx context.Context, actor workflow.Actor, f Filter) ([]models.Mission, error) {
	q := Scope(s.db.WithContext(ctx).Model(&models.Mission{}), actor)

	if f.Status != "" {
		if !f.Status.IsValid() {
			return nil, apperr.Validation("unknown mission status %q", f.Status)
		}
		q = q.Where("missions.status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("missions.type = ?", f.Type)
	}
	if client := strings.TrimSpace(f.Client); client != "" {
		q = q.Where("LOWER(missions.client) LIKE ?", "%"+strings.ToLower(client)+"%")
	}
	if f.From != nil {
		q = q.Where("missions.date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("missions.date <= ?", *f.To)
	}
	if f.UserID != "" {
		q = q.Where("missions.user_id = ?", f.UserID)
	}

	var missions []models.Mission
	if err := q.Preload("User").Order("missions.date ASC, missions.time ASC").Find(&missions).Error; err != nil {
		return nil, apperr.Internal("list missions", err)
	}
	return missions, nil
}

// Get returns one mission within actor's read scope
func (s *Service) Get(ctx context.Context, actor workflow.Actor, id string) (*models.Mission, error) {
	return FindScoped(s.db.WithContext(ctx).Preload("User"), actor, id)
}

// Update applies a generic field update. Status is written as given,
// without consulting the transition table.
func (s *Service) Update(ctx context.Context, actor workflow.Actor, id string, u MissionUpdate) (*models.Mission, error) {
	mission, err := FindScoped(s.db.WithContext(ctx), actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireWrite(actor, mission); err != nil {
		return nil, err
	}

	if u.UserID != nil {
		if err := workflow.Require(actor, workflow.CapAssignMissions); err != nil {
			return nil, err
		}
		if owner := strings.TrimSpace(*u.UserID); owner == "" {
			mission.UserID = nil
		} else {
			if err := s.ensureUsersExist(ctx, []string{owner}); err != nil {
				return nil, err
			}
			mission.UserID = &owner
		}
	}
	if err := u.apply(mission, s.region); err != nil {
		return nil, err
	}

	mission.User = nil
	if err := s.db.WithContext(ctx).Save(mission).Error; err != nil {
		return nil, apperr.Internal("update mission", err)
	}
	return mission, nil
}

// Delete removes a mission together with its visits, reports and assignments
func (s *Service) Delete(ctx context.Context, actor workflow.Actor, id string) error {
	mission, err := FindScoped(s.db.WithContext(ctx), actor, id)
	if err != nil {
		return err
	}
	if err := s.requireWrite(actor, mission); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Mission{}, "id = ?", mission.ID).Error; err != nil {
		return apperr.Internal("delete mission", err)
	}

	s.log.WithFields(logrus.Fields{"missionId": mission.ID, "actor": actor.ID}).Info("Mission deleted")
	return nil
}

// requireWrite allows admins and the owning coordinator
func (s *Service) requireWrite(actor workflow.Actor, mission *models.Mission) error {
	if actor.Can(workflow.CapManageAllRecords) || mission.OwnedBy(actor.ID) {
		return nil
	}
	return apperr.Forbidden("only the mission owner may modify mission %s", mission.ID)
}

// ensureUsersExist fails with a validation error naming the unknown ids
func (s *Service) ensureUsersExist(ctx context.Context, ids []string) error {
	var found []string
	if err := s.db.WithContext(ctx).Model(&models.UserAuth{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return apperr.Internal("look up users", err)
	}

	known := make(map[string]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	var missing []string
	for _, id := range ids {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return apperr.Validation("unknown user(s): %s", strings.Join(missing, ", "))
	}
	return nil
}
