package missions

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/workflow"
	"gorm.io/gorm"
)

// AssignmentNotification is pushed to a coordinator when a mission is assigned
type AssignmentNotification struct {
	Type         string    `json:"type"`
	MissionID    string    `json:"missionId"`
	Title        string    `json:"title"`
	Client       string    `json:"client"`
	Address      string    `json:"address"`
	Date         time.Time `json:"date"`
	Time         string    `json:"time"`
	AssignedByID string    `json:"assignedById"`
}

// NotificationMissionAssigned is the websocket message type for new assignments
const NotificationMissionAssigned = "MISSION_ASSIGNED"

// AssignResult is the outcome of AssignUsers
type AssignResult struct {
	Mission *models.Mission            `json:"mission"`
	Created []models.MissionAssignment `json:"created"`
}

// AssignUsers assigns coordinators to a mission. Users already assigned are
// skipped. The mission moves to assignee and is owned by the first id given.
func (s *Service) AssignUsers(ctx context.Context, actor workflow.Actor, missionID string, userIDs []string) (*AssignResult, error) {
	if err := workflow.Require(actor, workflow.CapAssignMissions); err != nil {
		return nil, err
	}

	ids := uniqueIDs(userIDs)
	if len(ids) == 0 {
		return nil, apperr.Validation("userIds must contain at least one user")
	}
	if err := s.ensureUsersExist(ctx, ids); err != nil {
		return nil, err
	}

	result := &AssignResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mission, err := FindScoped(tx, actor, missionID)
		if err != nil {
			return err
		}

		var existing []string
		if err := tx.Model(&models.MissionAssignment{}).
			Where("mission_id = ? AND user_id IN ?", mission.ID, ids).
			Pluck("user_id", &existing).Error; err != nil {
			return apperr.Internal("load assignments", err)
		}
		already := make(map[string]bool, len(existing))
		for _, id := range existing {
			already[id] = true
		}

		for _, id := range ids {
			if already[id] {
				continue
			}
			a := models.MissionAssignment{
				MissionID:    mission.ID,
				UserID:       id,
				AssignedByID: actor.ID,
			}
			if err := tx.Create(&a).Error; err != nil {
				return apperr.Internal("create assignment", err)
			}
			result.Created = append(result.Created, a)
		}

		if err := ApplyEvent(tx, mission, workflow.EventAssigned); err != nil {
			return err
		}
		owner := ids[0]
		if err := tx.Model(mission).Update("user_id", owner).Error; err != nil {
			return apperr.Internal("set mission owner", err)
		}
		mission.UserID = &owner

		result.Mission = mission
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyAssigned(ctx, result)

	s.log.WithFields(logrus.Fields{
		"missionId": missionID,
		"actor":     actor.ID,
		"created":   len(result.Created),
	}).Info("Mission assigned")
	return result, nil
}

// notifyAssigned pushes each new assignment and flags the delivered ones
func (s *Service) notifyAssigned(ctx context.Context, result *AssignResult) {
	if s.notifier == nil {
		return
	}

	m := result.Mission
	for i := range result.Created {
		a := &result.Created[i]
		delivered := s.notifier.SendToUser(a.UserID, AssignmentNotification{
			Type:         NotificationMissionAssigned,
			MissionID:    m.ID,
			Title:        m.Title,
			Client:       m.Client,
			Address:      m.Address,
			Date:         m.Date,
			Time:         m.Time,
			AssignedByID: a.AssignedByID,
		})
		if !delivered {
			continue
		}
		if err := s.db.WithContext(ctx).Model(a).Update("notified", true).Error; err != nil {
			s.log.WithField("assignmentId", a.ID).Warnf("Failed to flag assignment as notified: %v", err)
			continue
		}
		a.Notified = true
	}
}

// RemoveAssignment deletes the (mission, user) pairing. A missing pairing is not an error.
func (s *Service) RemoveAssignment(ctx context.Context, actor workflow.Actor, missionID, userID string) error {
	if err := workflow.Require(actor, workflow.CapAssignMissions); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("mission_id = ? AND user_id = ?", missionID, userID).
		Delete(&models.MissionAssignment{})
	if res.Error != nil {
		return apperr.Internal("remove assignment", res.Error)
	}

	if res.RowsAffected > 0 {
		s.log.WithFields(logrus.Fields{"missionId": missionID, "userId": userID}).Info("Assignment removed")
	}
	return nil
}

// AssignedUsers returns the users assigned to a mission in assignment order
func (s *Service) AssignedUsers(ctx context.Context, actor workflow.Actor, missionID string) ([]models.UserAuth, error) {
	mission, err := FindScoped(s.db.WithContext(ctx), actor, missionID)
	if err != nil {
		return nil, err
	}

	var users []models.UserAuth
	if err := s.db.WithContext(ctx).
		Joins("JOIN mission_assignments ON mission_assignments.user_id = user_auths.id").
		Where("mission_assignments.mission_id = ?", mission.ID).
		Order("mission_assignments.created_at ASC").
		Find(&users).Error; err != nil {
		return nil, apperr.Internal("load assigned users", err)
	}
	return users, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
