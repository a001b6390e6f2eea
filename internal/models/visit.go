package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RiskLevel is the AI-estimated severity of what a photo shows
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "faible"
	RiskLevelMedium   RiskLevel = "moyen"
	RiskLevelHigh     RiskLevel = "eleve"
	RiskLevelCritical RiskLevel = "critique"
)

// IsValid reports whether r is a known risk level
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical:
		return true
	}
	return false
}

// PhotoAnalysis is the result of running a site photo through the vision model
type PhotoAnalysis struct {
	Observation    string    `json:"observation"`
	Recommendation string    `json:"recommendation"`
	RiskLevel      RiskLevel `json:"riskLevel"`
	Confidence     float64   `json:"confidence"`
	References     []string  `json:"references,omitempty"`
}

// Photo is a site photo attached to a visit
type Photo struct {
	ID         string         `json:"id"`
	URL        string         `json:"url"`
	Key        string         `json:"key,omitempty"`
	Analysis   *PhotoAnalysis `json:"analysis,omitempty"`
	Comment    string         `json:"comment,omitempty"`
	Validated  bool           `json:"validated"`
	UploadedAt time.Time      `json:"uploadedAt"`
}

// Visit is one coordinator site visit against a mission
type Visit struct {
	ID              string                     `gorm:"primaryKey;type:uuid" json:"id"`
	MissionID       string                     `gorm:"type:uuid;not null;index" json:"missionId"`
	UserID          string                     `gorm:"type:uuid;not null;index" json:"userId"`
	VisitDate       time.Time                  `gorm:"not null" json:"visitDate"`
	Photos          datatypes.JSONSlice[Photo] `json:"photos"`
	PhotoCount      int                        `gorm:"not null;default:0" json:"photoCount"`
	Notes           string                     `gorm:"type:text" json:"notes,omitempty"`
	ReportGenerated bool                       `json:"reportGenerated"`
	CreatedAt       time.Time                  `json:"createdAt"`
	UpdatedAt       time.Time                  `json:"updatedAt"`

	// Relations
	Mission *Mission `gorm:"foreignKey:MissionID;constraint:OnDelete:CASCADE" json:"mission,omitempty"`
}

// TableName specifies the table name for Visit model
func (Visit) TableName() string {
	return "visits"
}

// BeforeCreate assigns a UUID when none was provided
func (v *Visit) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// BeforeSave keeps PhotoCount in step with the photo list
func (v *Visit) BeforeSave(tx *gorm.DB) error {
	v.PhotoCount = len(v.Photos)
	return nil
}

// FindPhoto returns the index of the photo with the given id, or -1
func (v *Visit) FindPhoto(photoID string) int {
	for i, p := range v.Photos {
		if p.ID == photoID {
			return i
		}
	}
	return -1
}
