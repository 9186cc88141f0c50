package handlers

import (
	"net/http"
	"strconv"
	"time"

	"familypoints/internal/models"
	"familypoints/internal/service"
)

// ReportHandler serves point reports and the dashboard summary
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

const childNotFound = "Family member not found"

type reportQuery struct {
	childID int64
	start   time.Time
	end     time.Time
}

// parseReportQuery reads childId, startDate and endDate. A date-only endDate
// covers that whole day.
func parseReportQuery(r *http.Request) (reportQuery, bool) {
	q := r.URL.Query()
	childID, err := strconv.ParseInt(q.Get("childId"), 10, 64)
	if err != nil || childID <= 0 {
		return reportQuery{}, false
	}
	start, err := models.ParseFlexTime(q.Get("startDate"))
	if err != nil {
		return reportQuery{}, false
	}
	end, err := models.ParseFlexTime(q.Get("endDate"))
	if err != nil {
		return reportQuery{}, false
	}
	return reportQuery{childID: childID, start: start.Time, end: end.EndOfDay()}, true
}

// Points returns the completed points of a child in the window
func (h *ReportHandler) Points(w http.ResponseWriter, r *http.Request) {
	query, ok := parseReportQuery(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidParameters, "", nil)
		return
	}

	report, err := h.reportService.Points(r.Context(), GetUserFromContext(r.Context()), query.childID, query.start, query.end)
	if err != nil {
		respondWithServiceError(w, err, childNotFound, "Failed to fetch points report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Actions returns every action of a child in the window
func (h *ReportHandler) Actions(w http.ResponseWriter, r *http.Request) {
	query, ok := parseReportQuery(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidParameters, "", nil)
		return
	}

	actions, err := h.reportService.Actions(r.Context(), GetUserFromContext(r.Context()), query.childID, query.start, query.end)
	if err != nil {
		respondWithServiceError(w, err, childNotFound, "Failed to fetch actions report")
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

// Summary returns the weekly and monthly figures, optionally for ?childId=
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	var childID *int64
	if raw := r.URL.Query().Get("childId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondWithError(w, http.StatusBadRequest, ErrInvalidParameters, "", nil)
			return
		}
		childID = &id
	}

	summary, err := h.reportService.Summary(r.Context(), GetUserFromContext(r.Context()), childID)
	if err != nil {
		respondWithServiceError(w, err, childNotFound, "Failed to fetch summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
