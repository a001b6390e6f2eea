package workflow

import (
	"time"

	"github.com/xelth-com/cspsgo/internal/models"
)

// reportRank orders the forward path of a report. Rejected sits outside it.
var reportRank = map[models.ReportStatus]int{
	models.ReportStatusDraft:        0,
	models.ReportStatusSubmitted:    1,
	models.ReportStatusValidated:    2,
	models.ReportStatusSentToClient: 3,
	models.ReportStatusArchived:     4,
}

// CanTransitionReport reports whether a report may move from one status to another.
//
// Valid transitions:
// - staying in the same status
// - any forward move along draft -> submitted -> validated -> sent to client -> archived
// - any non-archived status -> rejected
// - rejected -> draft or submitted (rework)
func CanTransitionReport(from, to models.ReportStatus) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if from == to {
		return true
	}
	if to == models.ReportStatusRejected {
		return from != models.ReportStatusArchived
	}
	if from == models.ReportStatusRejected {
		return to == models.ReportStatusDraft || to == models.ReportStatusSubmitted
	}
	return reportRank[to] > reportRank[from]
}

// RequiresFinalize reports whether moving to status needs CapFinalizeReports
func RequiresFinalize(status models.ReportStatus) bool {
	return status == models.ReportStatusValidated || status == models.ReportStatusSentToClient
}

// ReportTransitionResult captures the new status of a report together with
// the side effects the caller must persist.
type ReportTransitionResult struct {
	NewStatus      models.ReportStatus
	SentAt         *time.Time
	ValidatedAt    *time.Time
	SentToClientAt *time.Time
	// MissionEvent is empty when the owning mission is unaffected
	MissionEvent MissionEvent
}

// ApplyReportStatus computes the timestamps and mission event for moving a
// report into status. The caller passes now to keep this deterministic.
func ApplyReportStatus(status models.ReportStatus, now time.Time) ReportTransitionResult {
	result := ReportTransitionResult{NewStatus: status}

	switch status {
	case models.ReportStatusSubmitted:
		result.SentAt = &now
	case models.ReportStatusValidated:
		result.ValidatedAt = &now
		result.MissionEvent = EventReportValidated
	case models.ReportStatusSentToClient:
		result.SentToClientAt = &now
		result.MissionEvent = EventReportSentToClient
	}

	return result
}

// Apply copies the result onto r, leaving unset timestamps untouched
func (res ReportTransitionResult) Apply(r *models.Report) {
	r.Status = res.NewStatus
	if res.SentAt != nil {
		r.SentAt = res.SentAt
	}
	if res.ValidatedAt != nil {
		r.ValidatedAt = res.ValidatedAt
	}
	if res.SentToClientAt != nil {
		r.SentToClientAt = res.SentToClientAt
	}
}
