package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/services/missions"
	"github.com/xelth-com/cspsgo/internal/utils"
)

// maxImportSize bounds an uploaded mission spreadsheet
const maxImportSize = 10 << 20

// AssignRequest lists the coordinators to put on a mission
type AssignRequest struct {
	UserIDs []string `json:"userIds"`
}

func (r *Router) listMissions(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	filter := missions.Filter{
		Status: models.MissionStatus(q.Get("status")),
		Type:   models.MissionType(q.Get("type")),
		Client: q.Get("client"),
		UserID: q.Get("userId"),
	}
	var err error
	if filter.From, err = queryDate(q.Get("from")); err != nil {
		respondAppError(w, req, err)
		return
	}
	if filter.To, err = queryDate(q.Get("to")); err != nil {
		respondAppError(w, req, err)
		return
	}

	list, err := r.missions.List(req.Context(), actor(req), filter)
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (r *Router) createMission(w http.ResponseWriter, req *http.Request) {
	var in missions.MissionInput
	if err := decodeJSON(req, &in); err != nil {
		respondAppError(w, req, err)
		return
	}

	mission, err := r.missions.Create(req.Context(), actor(req), in)
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, mission)
}

func (r *Router) getMission(w http.ResponseWriter, req *http.Request) {
	mission, err := r.missions.Get(req.Context(), actor(req), mux.Vars(req)["id"])
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, mission)
}

func (r *Router) updateMission(w http.ResponseWriter, req *http.Request) {
	var u missions.MissionUpdate
	if err := decodeJSON(req, &u); err != nil {
		respondAppError(w, req, err)
		return
	}

	mission, err := r.missions.Update(req.Context(), actor(req), mux.Vars(req)["id"], u)
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, mission)
}

func (r *Router) deleteMission(w http.ResponseWriter, req *http.Request) {
	if err := r.missions.Delete(req.Context(), actor(req), mux.Vars(req)["id"]); err != nil {
		respondAppError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// importMissions expects a multipart form with the spreadsheet in "file"
func (r *Router) importMissions(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, maxImportSize+1<<20)
	file, header, err := req.FormFile("file")
	if err != nil {
		respondAppError(w, req, apperr.Validation("multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportSize+1))
	if err != nil {
		respondAppError(w, req, apperr.Validation("failed to read upload: %v", err))
		return
	}
	if len(data) > maxImportSize {
		respondAppError(w, req, apperr.Validation("file exceeds %d MB", maxImportSize>>20))
		return
	}

	result, err := r.importer.Import(req.Context(), actor(req), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (r *Router) assignMission(w http.ResponseWriter, req *http.Request) {
	var body AssignRequest
	if err := decodeJSON(req, &body); err != nil {
		respondAppError(w, req, err)
		return
	}

	result, err := r.missions.AssignUsers(req.Context(), actor(req), mux.Vars(req)["id"], body.UserIDs)
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (r *Router) listAssignments(w http.ResponseWriter, req *http.Request) {
	assigned, err := r.missions.AssignedUsers(req.Context(), actor(req), mux.Vars(req)["id"])
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, assigned)
}

func (r *Router) removeAssignment(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	if err := r.missions.RemoveAssignment(req.Context(), actor(req), vars["id"], vars["userId"]); err != nil {
		respondAppError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// queryDate parses an optional date filter
func queryDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := utils.ParseDate(raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	return &t, nil
}
