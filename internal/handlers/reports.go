package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/services/reports"
)

// SendRequest optionally overrides the report recipient
type SendRequest struct {
	Recipient string `json:"recipient"`
}

func (r *Router) listReports(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	list, err := r.reports.List(req.Context(), actor(req), reports.Filter{
		Status:    models.ReportStatus(q.Get("status")),
		MissionID: q.Get("missionId"),
	})
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (r *Router) createReport(w http.ResponseWriter, req *http.Request) {
	var in reports.ReportInput
	if err := decodeJSON(req, &in); err != nil {
		respondAppError(w, req, err)
		return
	}

	report, err := r.reports.Create(req.Context(), actor(req), in)
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, report)
}

func (r *Router) getReport(w http.ResponseWriter, req *http.Request) {
	report, err := r.reports.Get(req.Context(), actor(req), mux.Vars(req)["id"])
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (r *Router) updateReport(w http.ResponseWriter, req *http.Request) {
	var u reports.ReportUpdate
	if err := decodeJSON(req, &u); err != nil {
		respondAppError(w, req, err)
		return
	}

	report, err := r.reports.Update(req.Context(), actor(req), mux.Vars(req)["id"], u)
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (r *Router) deleteReport(w http.ResponseWriter, req *http.Request) {
	if err := r.reports.Delete(req.Context(), actor(req), mux.Vars(req)["id"]); err != nil {
		respondAppError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reportPDF streams the rendered report; ?download=1 forces an attachment
func (r *Router) reportPDF(w http.ResponseWriter, req *http.Request) {
	pdf, report, err := r.reports.RenderPDF(req.Context(), actor(req), mux.Vars(req)["id"])
	if err != nil {
		respondAppError(w, req, err)
		return
	}

	disposition := "inline"
	if download, _ := strconv.ParseBool(req.URL.Query().Get("download")); download {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, reports.PDFFilename(report.Mission, report)))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func (r *Router) sendReport(w http.ResponseWriter, req *http.Request) {
	var body SendRequest
	if req.ContentLength != 0 {
		if err := decodeJSON(req, &body); err != nil {
			respondAppError(w, req, err)
			return
		}
	}

	report, err := r.reports.SendToClient(req.Context(), actor(req), mux.Vars(req)["id"], body.Recipient)
	if err != nil {
		respondAppError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
