package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/services/visits"
)

func (r *Router) listVisits(w http.ResponseWriter, req *http.Request) {
	list, err := r.visits.List(req.Context(), actor(req), req.URL.Query().Get("missionId"))
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (r *Router) createVisit(w http.ResponseWriter, req *http.Request) {
	var in visits.VisitInput
	if err := decodeJSON(req, &in); err != nil {
		respondAppError(w, req, err)
		return
	}

	visit, err := r.visits.Create(req.Context(), actor(req), in)
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, visit)
}

func (r *Router) getVisit(w http.ResponseWriter, req *http.Request) {
	visit, err := r.visits.Get(req.Context(), actor(req), mux.Vars(req)["id"])
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, visit)
}

func (r *Router) updateVisit(w http.ResponseWriter, req *http.Request) {
	var u visits.VisitUpdate
	if err := decodeJSON(req, &u); err != nil {
		respondAppError(w, req, err)
		return
	}

	visit, err := r.visits.Update(req.Context(), actor(req), mux.Vars(req)["id"], u)
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, visit)
}

func (r *Router) deleteVisit(w http.ResponseWriter, req *http.Request) {
	if err := r.visits.Delete(req.Context(), actor(req), mux.Vars(req)["id"]); err != nil {
		respondAppError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// addPhoto expects a multipart form: "photo" file, optional "comment" and
// "analyze=true"
func (r *Router) addPhoto(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, visits.MaxPhotoSize+1<<20)
	file, header, err := req.FormFile("photo")
	if err != nil {
		respondAppError(w, req, apperr.Validation("multipart field \"photo\" is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, visits.MaxPhotoSize+1))
	if err != nil {
		respondAppError(w, req, apperr.Validation("failed to read upload: %v", err))
		return
	}
	if len(data) > visits.MaxPhotoSize {
		respondAppError(w, req, apperr.Validation("photo exceeds %d MB", visits.MaxPhotoSize>>20))
		return
	}

	analyze, _ := strconv.ParseBool(req.FormValue("analyze"))
	visit, err := r.visits.AddPhoto(req.Context(), actor(req), mux.Vars(req)["id"], visits.PhotoUpload{
		Filename: header.Filename,
		Data:     data,
		Comment:  req.FormValue("comment"),
		Analyze:  analyze,
	})
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, visit)
}

func (r *Router) updatePhoto(w http.ResponseWriter, req *http.Request) {
	var u visits.PhotoUpdate
	if err := decodeJSON(req, &u); err != nil {
		respondAppError(w, req, err)
		return
	}

	vars := mux.Vars(req)
	visit, err := r.visits.UpdatePhoto(req.Context(), actor(req), vars["id"], vars["photoId"], u)
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, visit)
}

func (r *Router) analyzePhoto(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	visit, err := r.visits.AnalyzePhoto(req.Context(), actor(req), vars["id"], vars["photoId"])
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, visit)
}

func (r *Router) removePhoto(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	visit, err := r.visits.RemovePhoto(req.Context(), actor(req), vars["id"], vars["photoId"])
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, visit)
}
