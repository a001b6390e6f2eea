package missions

import (
	"strings"

	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/utils"
)

// MissionInput is the accepted shape of a new mission, from the API or an
// import row
type MissionInput struct {
	Title            string  `json:"title" validate:"required"`
	Client           string  `json:"client" validate:"required"`
	RefClient        string  `json:"refClient"`
	Address          string  `json:"address" validate:"required"`
	Date             string  `json:"date" validate:"required"`
	Time             string  `json:"time" validate:"required"`
	EndDate          string  `json:"endDate"`
	Type             string  `json:"type" validate:"required"`
	Description      string  `json:"description"`
	Status           string  `json:"status"`
	ContactFirstName string  `json:"contactFirstName"`
	ContactLastName  string  `json:"contactLastName"`
	ContactEmail     string  `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone     string  `json:"contactPhone"`
	RefBusiness      string  `json:"refBusiness"`
	UserID           *string `json:"userId"`
}

// BuildMission validates in and converts it to an unsaved mission.
// Phone numbers are normalized for region.
func BuildMission(in MissionInput, region string) (*models.Mission, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Client = strings.TrimSpace(in.Client)
	in.Address = strings.TrimSpace(in.Address)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Type = strings.TrimSpace(in.Type)
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)

	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	date, err := utils.ParseDate(in.Date)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	clock, err := utils.ParseTimeOfDay(in.Time)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	missionType, ok := models.ParseMissionType(in.Type)
	if !ok {
		return nil, apperr.Validation("unknown mission type %q", in.Type)
	}

	status := models.MissionStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	if status != "" && !status.IsValid() {
		return nil, apperr.Validation("unknown mission status %q", in.Status)
	}

	m := &models.Mission{
		Title:            in.Title,
		Client:           in.Client,
		RefClient:        strings.TrimSpace(in.RefClient),
		Address:          in.Address,
		Date:             date,
		Time:             clock,
		Type:             missionType,
		Description:      in.Description,
		Status:           status,
		ContactFirstName: strings.TrimSpace(in.ContactFirstName),
		ContactLastName:  strings.TrimSpace(in.ContactLastName),
		ContactEmail:     in.ContactEmail,
		ContactPhone:     utils.NormalizePhone(in.ContactPhone, region),
		RefBusiness:      strings.TrimSpace(in.RefBusiness),
	}

	if end := strings.TrimSpace(in.EndDate); end != "" {
		endDate, err := utils.ParseDate(end)
		if err != nil {
			return nil, apperr.Validation("endDate: %v", err)
		}
		if endDate.Before(date) {
			return nil, apperr.Validation("endDate is before date")
		}
		m.EndDate = &endDate
	}

	if in.UserID != nil && strings.TrimSpace(*in.UserID) != "" {
		id := strings.TrimSpace(*in.UserID)
		m.UserID = &id
	}

	return m, nil
}

// MissionUpdate carries the fields of a generic update. Nil fields are kept.
// Status may be set to any known value.
type MissionUpdate struct {
	Title            *string `json:"title" validate:"omitempty,min=1"`
	Client           *string `json:"client" validate:"omitempty,min=1"`
	RefClient        *string `json:"refClient"`
	Address          *string `json:"address" validate:"omitempty,min=1"`
	Date             *string `json:"date"`
	Time             *string `json:"time"`
	EndDate          *string `json:"endDate"`
	Type             *string `json:"type"`
	Description      *string `json:"description"`
	Status           *string `json:"status"`
	ContactFirstName *string `json:"contactFirstName"`
	ContactLastName  *string `json:"contactLastName"`
	ContactEmail     *string `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone     *string `json:"contactPhone"`
	RefBusiness      *string `json:"refBusiness"`
	UserID           *string `json:"userId"`
}

// apply copies the set fields of u onto m. Strings are trimmed before
// validation so a blank title, client or address is rejected.
func (u MissionUpdate) apply(m *models.Mission, region string) error {
	trimFields(&u.Title, &u.Client, &u.RefClient, &u.Address, &u.Description,
		&u.ContactFirstName, &u.ContactLastName, &u.ContactEmail, &u.RefBusiness)
	if err := utils.ValidateStruct(u); err != nil {
		return err
	}

	setString(&m.Title, u.Title)
	setString(&m.Client, u.Client)
	setString(&m.RefClient, u.RefClient)
	setString(&m.Address, u.Address)
	setString(&m.Description, u.Description)
	setString(&m.ContactFirstName, u.ContactFirstName)
	setString(&m.ContactLastName, u.ContactLastName)
	setString(&m.ContactEmail, u.ContactEmail)
	setString(&m.RefBusiness, u.RefBusiness)

	if u.ContactPhone != nil {
		m.ContactPhone = utils.NormalizePhone(*u.ContactPhone, region)
	}
	if u.Date != nil {
		date, err := utils.ParseDate(*u.Date)
		if err != nil {
			return apperr.Validation("%v", err)
		}
		m.Date = date
	}
	if u.Time != nil {
		clock, err := utils.ParseTimeOfDay(*u.Time)
		if err != nil {
			return apperr.Validation("%v", err)
		}
		m.Time = clock
	}
	if u.EndDate != nil {
		if strings.TrimSpace(*u.EndDate) == "" {
			m.EndDate = nil
		} else {
			endDate, err := utils.ParseDate(*u.EndDate)
			if err != nil {
				return apperr.Validation("endDate: %v", err)
			}
			m.EndDate = &endDate
		}
	}
	if u.Type != nil {
		missionType, ok := models.ParseMissionType(*u.Type)
		if !ok {
			return apperr.Validation("unknown mission type %q", *u.Type)
		}
		m.Type = missionType
	}
	if u.Status != nil {
		status := models.MissionStatus(strings.ToLower(strings.TrimSpace(*u.Status)))
		if !status.IsValid() {
			return apperr.Validation("unknown mission status %q", *u.Status)
		}
		m.Status = status
	}
	return nil
}

// trimFields replaces each set field with a trimmed copy, leaving the
// caller's strings untouched
func trimFields(fields ...**string) {
	for _, f := range fields {
		if *f != nil {
			trimmed := strings.TrimSpace(**f)
			*f = &trimmed
		}
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
