package missions

import (
	"errors"

	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/workflow"
	"gorm.io/gorm"
)

// Scope restricts a query on missions to what actor may read: everything
// for admins, otherwise owned or assigned missions.
func Scope(tx *gorm.DB, actor workflow.Actor) *gorm.DB {
	if actor.Can(workflow.CapViewAllMissions) {
		return tx
	}
	return tx.Where(
		"(missions.user_id = ? OR missions.id IN (SELECT mission_id FROM mission_assignments WHERE user_id = ?))",
		actor.ID, actor.ID,
	)
}

// FindScoped loads a mission the actor may read. Missing and out-of-scope
// missions are both reported as not found.
func FindScoped(tx *gorm.DB, actor workflow.Actor, id string) (*models.Mission, error) {
	var mission models.Mission
	err := Scope(tx.Model(&models.Mission{}), actor).Where("missions.id = ?", id).First(&mission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("mission")
	}
	if err != nil {
		return nil, apperr.Internal("load mission", err)
	}
	return &mission, nil
}

// ApplyEvent moves mission through the transition table and persists the
// new status with tx. A disallowed event is a validation error.
func ApplyEvent(tx *gorm.DB, mission *models.Mission, event workflow.MissionEvent) error {
	next, err := workflow.NextMissionStatus(mission.Status, event)
	if err != nil {
		return apperr.Validation("mission %s: %v", mission.ID, err)
	}
	if next == mission.Status {
		return nil
	}
	if err := tx.Model(mission).Update("status", next).Error; err != nil {
		return apperr.Internal("update mission status", err)
	}
	mission.Status = next
	return nil
}
