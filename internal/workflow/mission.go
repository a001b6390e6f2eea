// Package workflow holds the status machines for missions and reports and
// the role permission matrix. It performs no I/O.
package workflow

import (
	"fmt"

	"github.com/xelth-com/cspsgo/internal/models"
)

// MissionEvent is a side-effecting operation that moves a mission's status
type MissionEvent string

const (
	EventAssigned           MissionEvent = "assigned"
	EventVisitStarted       MissionEvent = "visit_started"
	EventReportValidated    MissionEvent = "report_validated"
	EventReportSentToClient MissionEvent = "report_sent_to_client"
)

// missionTransitions is keyed by (current status, event). A missing entry
// means the event is not allowed from that status. The generic update path
// never consults this table.
var missionTransitions = map[models.MissionStatus]map[MissionEvent]models.MissionStatus{
	models.MissionStatusPlanned: {
		EventAssigned:           models.MissionStatusAssigned,
		EventVisitStarted:       models.MissionStatusInProgress,
		EventReportValidated:    models.MissionStatusCompleted,
		EventReportSentToClient: models.MissionStatusCompleted,
	},
	models.MissionStatusAssigned: {
		EventAssigned:           models.MissionStatusAssigned,
		EventVisitStarted:       models.MissionStatusInProgress,
		EventReportValidated:    models.MissionStatusCompleted,
		EventReportSentToClient: models.MissionStatusCompleted,
	},
	models.MissionStatusInProgress: {
		EventAssigned:           models.MissionStatusAssigned,
		EventVisitStarted:       models.MissionStatusInProgress,
		EventReportValidated:    models.MissionStatusCompleted,
		EventReportSentToClient: models.MissionStatusCompleted,
	},
	models.MissionStatusCompleted: {
		EventAssigned:           models.MissionStatusAssigned,
		EventReportValidated:    models.MissionStatusCompleted,
		EventReportSentToClient: models.MissionStatusCompleted,
	},
	models.MissionStatusValidated: {
		EventAssigned:           models.MissionStatusAssigned,
		EventReportValidated:    models.MissionStatusValidated,
		EventReportSentToClient: models.MissionStatusValidated,
	},
}

// TransitionError reports an event that is not allowed from the current status
type TransitionError struct {
	From  string
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s is not allowed while status is %s", e.Event, e.From)
}

// NextMissionStatus returns the status a mission moves to when event happens
func NextMissionStatus(current models.MissionStatus, event MissionEvent) (models.MissionStatus, error) {
	next, ok := missionTransitions[current][event]
	if !ok {
		return current, &TransitionError{From: string(current), Event: string(event)}
	}
	return next, nil
}

// InitialMissionStatus returns the status for a new mission. A valid
// requested status wins.
func InitialMissionStatus(requested models.MissionStatus) models.MissionStatus {
	if requested.IsValid() {
		return requested
	}
	return models.MissionStatusPlanned
}
