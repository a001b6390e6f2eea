package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/services/users"
)

func (r *Router) listUsers(w http.ResponseWriter, req *http.Request) {
	list, err := r.users.List(req.Context(), actor(req), models.Role(req.URL.Query().Get("role")))
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (r *Router) createUser(w http.ResponseWriter, req *http.Request) {
	var in users.UserInput
	if err := decodeJSON(req, &in); err != nil {
		respondAppError(w, req, err)
		return
	}

	caller := actor(req)
	user, err := r.users.Create(req.Context(), &caller, in)
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

func (r *Router) getUser(w http.ResponseWriter, req *http.Request) {
	user, err := r.users.Get(req.Context(), actor(req), mux.Vars(req)["id"])
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
