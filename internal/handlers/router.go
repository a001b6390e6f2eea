package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/buildinfo"
	"github.com/xelth-com/cspsgo/internal/config"
	"github.com/xelth-com/cspsgo/internal/database"
	"github.com/xelth-com/cspsgo/internal/middleware"
	"github.com/xelth-com/cspsgo/internal/services/importer"
	"github.com/xelth-com/cspsgo/internal/services/missions"
	"github.com/xelth-com/cspsgo/internal/services/reports"
	"github.com/xelth-com/cspsgo/internal/services/users"
	"github.com/xelth-com/cspsgo/internal/services/visits"
	"github.com/xelth-com/cspsgo/internal/websocket"
	"github.com/xelth-com/cspsgo/internal/workflow"
)

var log = config.GetLogger().WithField("module", "handlers")

// Services are the collaborators the HTTP layer dispatches to
type Services struct {
	Users    *users.Service
	Missions *missions.Service
	Importer *importer.Service
	Visits   *visits.Service
	Reports  *reports.Service
	Hub      *websocket.Hub
	// FilesDir is served under /files/ when photos and PDFs are stored on disk
	FilesDir string
}

// Router wraps the mux router and the services behind it
type Router struct {
	*mux.Router
	db       *database.DB
	users    *users.Service
	missions *missions.Service
	importer *importer.Service
	visits   *visits.Service
	reports  *reports.Service
	hub      *websocket.Hub
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *database.DB, svc Services) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		db:       db,
		users:    svc.Users,
		missions: svc.Missions,
		importer: svc.Importer,
		visits:   svc.Visits,
		reports:  svc.Reports,
		hub:      svc.Hub,
	}

	r.Use(middleware.RequestIDMiddleware, middleware.LoggingMiddleware)

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")

	authenticate := middleware.AuthMiddleware(r.users)

	// Websocket notifications, token passed as ?token=
	r.Handle("/ws", authenticate(http.HandlerFunc(r.serveWs))).Methods("GET")

	// API routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authenticate)
	api.HandleFunc("/me", r.me).Methods("GET")

	api.HandleFunc("/users", r.listUsers).Methods("GET")
	api.HandleFunc("/users", r.createUser).Methods("POST")
	api.HandleFunc("/users/{id}", r.getUser).Methods("GET")

	api.HandleFunc("/missions", r.listMissions).Methods("GET")
	api.HandleFunc("/missions", r.createMission).Methods("POST")
	api.HandleFunc("/missions/import", r.importMissions).Methods("POST")
	api.HandleFunc("/missions/{id}", r.getMission).Methods("GET")
	api.HandleFunc("/missions/{id}", r.updateMission).Methods("PUT")
	api.HandleFunc("/missions/{id}", r.deleteMission).Methods("DELETE")
	api.HandleFunc("/missions/{id}/assign", r.assignMission).Methods("POST")
	api.HandleFunc("/missions/{id}/assignments", r.listAssignments).Methods("GET")
	api.HandleFunc("/missions/{id}/assignments/{userId}", r.removeAssignment).Methods("DELETE")

	api.HandleFunc("/visits", r.listVisits).Methods("GET")
	api.HandleFunc("/visits", r.createVisit).Methods("POST")
	api.HandleFunc("/visits/{id}", r.getVisit).Methods("GET")
	api.HandleFunc("/visits/{id}", r.updateVisit).Methods("PUT")
	api.HandleFunc("/visits/{id}", r.deleteVisit).Methods("DELETE")
	api.HandleFunc("/visits/{id}/photos", r.addPhoto).Methods("POST")
	api.HandleFunc("/visits/{id}/photos/{photoId}", r.updatePhoto).Methods("PUT")
	api.HandleFunc("/visits/{id}/photos/{photoId}", r.removePhoto).Methods("DELETE")
	api.HandleFunc("/visits/{id}/photos/{photoId}/analyze", r.analyzePhoto).Methods("POST")

	api.HandleFunc("/reports", r.listReports).Methods("GET")
	api.HandleFunc("/reports", r.createReport).Methods("POST")
	api.HandleFunc("/reports/{id}", r.getReport).Methods("GET")
	api.HandleFunc("/reports/{id}", r.updateReport).Methods("PUT")
	api.HandleFunc("/reports/{id}", r.deleteReport).Methods("DELETE")
	api.HandleFunc("/reports/{id}/pdf", r.reportPDF).Methods("GET")
	api.HandleFunc("/reports/{id}/send", r.sendReport).Methods("POST")

	// Static files written by the local storage driver
	if svc.FilesDir != "" {
		r.PathPrefix("/files/").Handler(http.StripPrefix("/files/", http.FileServer(http.Dir(svc.FilesDir))))
	}

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := r.db.Ping(req.Context()); err != nil {
		log.WithError(err).Warn("health check: database unreachable")
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]interface{}{
		"status": status,
		"build":  buildinfo.Get(),
	})
}

// actor returns the authenticated caller. Routes under /api always have one.
func actor(req *http.Request) workflow.Actor {
	a, _ := middleware.ActorFromContext(req.Context())
	return a
}

// decodeJSON reads the request body into v
func decodeJSON(req *http.Request, v interface{}) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return apperr.Validation("invalid request payload: %v", err)
	}
	return nil
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondAppError maps a service error onto its status code. Causes of
// internal and upstream failures are logged, never sent.
func respondAppError(w http.ResponseWriter, req *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= 500 {
		log.WithError(err).WithFields(logrus.Fields{
			"path":      req.URL.Path,
			"requestId": middleware.GetRequestID(req.Context()),
		}).Error("Request failed")
	}
	respondError(w, status, apperr.Message(err))
}
