package workflow

import (
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/models"
)

// Capability is a permission checked at the start of an operation
type Capability string

const (
	CapViewAllMissions  Capability = "view_all_missions"
	CapManageAllRecords Capability = "manage_all_records"
	CapAssignMissions   Capability = "assign_missions"
	CapImportMissions   Capability = "import_missions"
	CapManageUsers      Capability = "manage_users"
	CapFinalizeReports  Capability = "finalize_reports"
)

// roleCapabilities is the whole permission matrix. Admins do not hold
// CapFinalizeReports.
var roleCapabilities = map[models.Role]map[Capability]bool{
	models.RoleAdmin: {
		CapViewAllMissions:  true,
		CapManageAllRecords: true,
		CapAssignMissions:   true,
		CapImportMissions:   true,
		CapManageUsers:      true,
	},
	models.RoleCoordinator: {
		CapFinalizeReports: true,
	},
}

var capabilityDescriptions = map[Capability]string{
	CapViewAllMissions:  "view all missions",
	CapManageAllRecords: "manage records of other users",
	CapAssignMissions:   "assign missions",
	CapImportMissions:   "import missions",
	CapManageUsers:      "manage users",
	CapFinalizeReports:  "validate or send reports",
}

// Actor is the authenticated caller of an operation
type Actor struct {
	ID   string
	Role models.Role
}

// Can reports whether the actor's role grants c
func (a Actor) Can(c Capability) bool {
	return roleCapabilities[a.Role][c]
}

// IsAdmin reports whether the actor is an administrator
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Require returns a forbidden error unless the actor holds c
func Require(a Actor, c Capability) error {
	if a.Can(c) {
		return nil
	}
	return apperr.Forbidden("role %s is not allowed to %s", a.Role, capabilityDescriptions[c])
}
