package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MissionAssignment records that a coordinator was tasked with a mission.
// (mission, user) pairs are deduplicated when assigning, not by a constraint.
type MissionAssignment struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	MissionID    string    `gorm:"type:uuid;not null;index" json:"missionId"`
	UserID       string    `gorm:"type:uuid;not null;index" json:"userId"`
	AssignedByID string    `gorm:"type:uuid;not null" json:"assignedById"`
	Notified     bool      `gorm:"not null;default:false" json:"notified"`
	CreatedAt    time.Time `json:"createdAt"`

	// Relations
	Mission *Mission  `gorm:"foreignKey:MissionID;constraint:OnDelete:CASCADE" json:"mission,omitempty"`
	User    *UserAuth `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// TableName specifies the table name for MissionAssignment model
func (MissionAssignment) TableName() string {
	return "mission_assignments"
}

// BeforeCreate assigns a UUID when none was provided
func (a *MissionAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
