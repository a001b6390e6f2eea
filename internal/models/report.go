package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportStatus is the review state of a report
type ReportStatus string

const (
	ReportStatusDraft        ReportStatus = "brouillon"
	ReportStatusSubmitted    ReportStatus = "envoye"
	ReportStatusValidated    ReportStatus = "valide"
	ReportStatusRejected     ReportStatus = "rejete"
	ReportStatusArchived     ReportStatus = "archive"
	ReportStatusSentToClient ReportStatus = "envoye_client"
)

// ReportStatuses lists every persisted report status
var ReportStatuses = []ReportStatus{
	ReportStatusDraft,
	ReportStatusSubmitted,
	ReportStatusValidated,
	ReportStatusRejected,
	ReportStatusArchived,
	ReportStatusSentToClient,
}

// IsValid reports whether s is a known report status
func (s ReportStatus) IsValid() bool {
	for _, known := range ReportStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Report is the compiled findings document for a mission
type Report struct {
	ID                   string       `gorm:"primaryKey;type:uuid" json:"id"`
	MissionID            string       `gorm:"type:uuid;not null;index" json:"missionId"`
	VisitID              *string      `gorm:"type:uuid;index" json:"visitId,omitempty"`
	UserID               string       `gorm:"type:uuid;not null;index" json:"userId"`
	Title                string       `gorm:"not null" json:"title"`
	Content              string       `gorm:"type:text" json:"content"`
	Header               string       `gorm:"type:text" json:"header,omitempty"`
	Footer               string       `gorm:"type:text" json:"footer,omitempty"`
	Observations         string       `gorm:"type:text" json:"observations,omitempty"`
	Status               ReportStatus `gorm:"not null;index" json:"status"`
	ConformityPercentage float64      `gorm:"not null;default:0" json:"conformityPercentage"`
	RecipientEmail       string       `json:"recipientEmail,omitempty"`
	PDFURL               string       `gorm:"column:pdf_url" json:"pdfUrl,omitempty"`
	SentAt               *time.Time   `json:"sentAt,omitempty"`
	ValidatedAt          *time.Time   `json:"validatedAt,omitempty"`
	SentToClientAt       *time.Time   `json:"sentToClientAt,omitempty"`
	CreatedAt            time.Time    `json:"createdAt"`
	UpdatedAt            time.Time    `json:"updatedAt"`

	// Relations
	Mission *Mission `gorm:"foreignKey:MissionID;constraint:OnDelete:CASCADE" json:"mission,omitempty"`
	Visit   *Visit   `gorm:"foreignKey:VisitID;constraint:OnDelete:SET NULL" json:"visit,omitempty"`
}

// TableName specifies the table name for Report model
func (Report) TableName() string {
	return "reports"
}

// BeforeCreate assigns a UUID when none was provided
func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
