package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MissionStatus is the lifecycle state of a mission
type MissionStatus string

const (
	MissionStatusPlanned    MissionStatus = "planifiee"
	MissionStatusAssigned   MissionStatus = "assignee"
	MissionStatusInProgress MissionStatus = "en_cours"
	MissionStatusCompleted  MissionStatus = "terminee"
	MissionStatusValidated  MissionStatus = "validee"
)

// MissionStatuses lists every persisted mission status
var MissionStatuses = []MissionStatus{
	MissionStatusPlanned,
	MissionStatusAssigned,
	MissionStatusInProgress,
	MissionStatusCompleted,
	MissionStatusValidated,
}

// IsValid reports whether s is a known mission status
func (s MissionStatus) IsValid() bool {
	for _, known := range MissionStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further site work may happen on the mission
func (s MissionStatus) IsTerminal() bool {
	return s == MissionStatusCompleted || s == MissionStatusValidated
}

// MissionType is the kind of engagement
type MissionType string

const (
	MissionTypeCSPS   MissionType = "CSPS"
	MissionTypeAEU    MissionType = "AEU"
	MissionTypeDivers MissionType = "Divers"
)

// ParseMissionType matches s case-insensitively against the known types
func ParseMissionType(s string) (MissionType, bool) {
	for _, t := range []MissionType{MissionTypeCSPS, MissionTypeAEU, MissionTypeDivers} {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

// Mission is a scheduled site-safety coordination engagement
type Mission struct {
	ID          string        `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string        `gorm:"not null" json:"title"`
	Client      string        `gorm:"not null;index" json:"client"`
	RefClient   string        `json:"refClient,omitempty"`
	Address     string        `gorm:"not null" json:"address"`
	Date        time.Time     `gorm:"not null;index" json:"date"`
	Time        string        `gorm:"size:5;not null" json:"time"`
	EndDate     *time.Time    `json:"endDate,omitempty"`
	Type        MissionType   `gorm:"not null" json:"type"`
	Description string        `gorm:"type:text" json:"description,omitempty"`
	Status      MissionStatus `gorm:"not null;index" json:"status"`

	ContactFirstName string `json:"contactFirstName,omitempty"`
	ContactLastName  string `json:"contactLastName,omitempty"`
	ContactEmail     string `json:"contactEmail,omitempty"`
	ContactPhone     string `json:"contactPhone,omitempty"`
	RefBusiness      string `json:"refBusiness,omitempty"`

	UserID   *string `gorm:"type:uuid;index" json:"userId,omitempty"`
	Imported bool    `json:"imported"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	User *UserAuth `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
}

// TableName specifies the table name for Mission model
func (Mission) TableName() string {
	return "missions"
}

// BeforeCreate assigns a UUID when none was provided
func (m *Mission) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// OwnedBy reports whether userID is the mission's coordinator
func (m *Mission) OwnedBy(userID string) bool {
	return m.UserID != nil && *m.UserID == userID
}
