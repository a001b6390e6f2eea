// Package importer turns CSV and Excel files into missions, reporting every
// row as imported, ignored or failed.
package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/config"
	"github.com/xelth-com/cspsgo/internal/database"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/services/missions"
	"github.com/xelth-com/cspsgo/internal/workflow"
)

// RequiredColumns must all be present in the header line
var RequiredColumns = []string{"title", "client", "address", "date", "time", "type"}

// IgnoredRow is a row skipped because an identical mission already exists
type IgnoredRow struct {
	Row    int               `json:"row"`
	Data   map[string]string `json:"data"`
	Reason string            `json:"reason"`
}

// RowError is a row that could not be imported
type RowError struct {
	Row     int               `json:"row"`
	Data    map[string]string `json:"data"`
	Message string            `json:"message"`
}

// Summary counts the outcome of an import
type Summary struct {
	Total    int `json:"total"`
	Imported int `json:"imported"`
	Ignored  int `json:"ignored"`
	Errors   int `json:"errors"`
}

// Result partitions the rows of a file. Each row lands in exactly one list.
type Result struct {
	Imported []models.Mission `json:"imported"`
	Ignored  []IgnoredRow     `json:"ignored"`
	Errors   []RowError       `json:"errors"`
	Summary  Summary          `json:"summary"`
}

// Service imports missions in bulk
type Service struct {
	db     *database.DB
	region string
	log    *logrus.Entry
}

// NewService creates a new import service
func NewService(db *database.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		region: cfg.DefaultRegion,
		log:    config.GetLogger().WithField("module", "importer"),
	}
}

// Import reads filename's content and creates one mission per valid row.
// File level problems (format, missing columns) fail the whole call; row
// level problems are collected in the result and never stop the batch.
func (s *Service) Import(ctx context.Context, actor workflow.Actor, filename, contentType string, data []byte) (*Result, error) {
	if err := workflow.Require(actor, workflow.CapImportMissions); err != nil {
		return nil, err
	}

	format, err := DetectFormat(filename, contentType)
	if err != nil {
		return nil, err
	}
	headers, rows, err := ParseRows(format, data)
	if err != nil {
		return nil, err
	}
	if missing := missingColumns(headers); len(missing) > 0 {
		return nil, apperr.Validation("missing required columns: %s", strings.Join(missing, ", "))
	}

	result := &Result{
		Imported: []models.Mission{},
		Ignored:  []IgnoredRow{},
		Errors:   []RowError{},
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mission, reason, err := s.importRow(ctx, actor, row)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, RowError{Row: row.Number, Data: row.Data, Message: rowMessage(err)})
		case reason != "":
			result.Ignored = append(result.Ignored, IgnoredRow{Row: row.Number, Data: row.Data, Reason: reason})
		default:
			result.Imported = append(result.Imported, *mission)
		}
	}

	result.Summary = Summary{
		Total:    len(rows),
		Imported: len(result.Imported),
		Ignored:  len(result.Ignored),
		Errors:   len(result.Errors),
	}

	s.log.WithFields(logrus.Fields{
		"file":     filename,
		"actor":    actor.ID,
		"total":    result.Summary.Total,
		"imported": result.Summary.Imported,
		"ignored":  result.Summary.Ignored,
		"errors":   result.Summary.Errors,
	}).Info("Mission import finished")

	return result, nil
}

// importRow returns the created mission, or a non-empty reason when the row
// duplicates an existing mission
func (s *Service) importRow(ctx context.Context, actor workflow.Actor, row Row) (mission *models.Mission, reason string, err error) {
	defer func() {
		if p := recover(); p != nil {
			s.log.WithFields(logrus.Fields{"row": row.Number, "panic": p}).Error("Import row panicked")
			mission, reason, err = nil, "", fmt.Errorf("unexpected error: %v", p)
		}
	}()

	mission, err = missions.BuildMission(rowInput(row), s.region)
	if err != nil {
		return nil, "", err
	}

	if mission.UserID != nil && *mission.UserID != actor.ID {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.UserAuth{}).Where("id = ?", *mission.UserID).Count(&count).Error; err != nil {
			return nil, "", apperr.Internal("look up user", err)
		}
		if count == 0 {
			return nil, "", apperr.Validation("unknown user %q", *mission.UserID)
		}
	}

	duplicate, err := s.isDuplicate(ctx, mission)
	if err != nil {
		return nil, "", err
	}
	if duplicate {
		return nil, "mission already exists", nil
	}

	mission.Imported = true
	mission.Status = workflow.InitialMissionStatus(mission.Status)
	if err := s.db.WithContext(ctx).Create(mission).Error; err != nil {
		return nil, "", apperr.Internal("create mission", err)
	}
	return mission, "", nil
}

// isDuplicate matches on title, client, address and calendar date
func (s *Service) isDuplicate(ctx context.Context, m *models.Mission) (bool, error) {
	var candidates []models.Mission
	err := s.db.WithContext(ctx).
		Select("id", "date").
		Where("title = ? AND client = ? AND address = ?", m.Title, m.Client, m.Address).
		Find(&candidates).Error
	if err != nil {
		return false, apperr.Internal("check duplicates", err)
	}
	for _, c := range candidates {
		if c.Date.UTC().Format("2006-01-02") == m.Date.Format("2006-01-02") {
			return true, nil
		}
	}
	return false, nil
}

// rowMessage keeps the client-safe text of application errors and the raw
// text of anything else, such as a recovered panic
func rowMessage(err error) string {
	if apperr.KindOf(err) == apperr.KindInternal {
		return err.Error()
	}
	return apperr.Message(err)
}

// columnKey folds header spellings such as "Ref Client" or "contact_email"
func columnKey(header string) string {
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(header))
}

func missingColumns(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[columnKey(h)] = true
	}
	var missing []string
	for _, c := range RequiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

func rowInput(row Row) missions.MissionInput {
	fields := make(map[string]string, len(row.Data))
	for k, v := range row.Data {
		fields[columnKey(k)] = v
	}

	in := missions.MissionInput{
		Title:            fields["title"],
		Client:           fields["client"],
		RefClient:        fields["refclient"],
		Address:          fields["address"],
		Date:             fields["date"],
		Time:             fields["time"],
		EndDate:          fields["enddate"],
		Type:             fields["type"],
		Description:      fields["description"],
		Status:           fields["status"],
		ContactFirstName: fields["contactfirstname"],
		ContactLastName:  fields["contactlastname"],
		ContactEmail:     fields["contactemail"],
		ContactPhone:     fields["contactphone"],
		RefBusiness:      fields["refbusiness"],
	}
	if id := fields["userid"]; id != "" {
		in.UserID = &id
	}
	return in
}
