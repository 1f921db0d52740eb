package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/conradkoh/jcep-sub000/internal/middleware"
	"github.com/conradkoh/jcep-sub000/internal/models"
	"github.com/conradkoh/jcep-sub000/internal/repository"
	"github.com/conradkoh/jcep-sub000/internal/service"
	"github.com/conradkoh/jcep-sub000/pkg/validator"
)

// ApplicationHandler handles programme application requests
type ApplicationHandler struct {
	appService *service.ApplicationService
}

// NewApplicationHandler creates a new application handler
func NewApplicationHandler(appService *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{
		appService: appService,
	}
}

// AgeGroupChoiceRequest is one ranked age-group preference
type AgeGroupChoiceRequest struct {
	AgeGroup string `json:"age_group" validate:"required,oneof=junior intermediate senior advanced"`
	Reason   string `json:"reason" validate:"required"`
}

// SubmitApplicationRequest represents a public programme application
type SubmitApplicationRequest struct {
	FullName      string                 `json:"full_name" validate:"required"`
	Email         string                 `json:"email" validate:"required,email"`
	Phone         string                 `json:"phone" validate:"required"`
	DateOfBirth   string                 `json:"date_of_birth" validate:"required"`
	School        string                 `json:"school" validate:"required"`
	GuardianName  string                 `json:"guardian_name" validate:"required"`
	GuardianPhone string                 `json:"guardian_phone" validate:"required"`
	FirstChoice   AgeGroupChoiceRequest  `json:"first_choice" validate:"required"`
	SecondChoice  *AgeGroupChoiceRequest `json:"second_choice"`
	Acknowledged  bool                   `json:"acknowledged"`
}

// Submit handles a public programme application
// @Summary Submit a programme application
// @Description Accepts a public application; no authentication required
// @Tags Applications
// @Accept json
// @Produce json
// @Param request body SubmitApplicationRequest true "Application details"
// @Success 201 {object} models.Application "Application recorded"
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /applications [post]
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	dateOfBirth, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "date_of_birth must be formatted as YYYY-MM-DD")
		return
	}

	input := service.SubmitApplicationInput{
		FullName:      validator.SanitizeString(req.FullName),
		Email:         validator.SanitizeEmail(req.Email),
		Phone:         validator.SanitizeString(req.Phone),
		DateOfBirth:   dateOfBirth,
		School:        validator.SanitizeString(req.School),
		GuardianName:  validator.SanitizeString(req.GuardianName),
		GuardianPhone: validator.SanitizeString(req.GuardianPhone),
		FirstChoice: models.AgeGroupChoice{
			AgeGroup: req.FirstChoice.AgeGroup,
			Reason:   validator.SanitizeString(req.FirstChoice.Reason),
		},
		Acknowledged: req.Acknowledged,
	}
	if req.SecondChoice != nil {
		input.SecondChoice = &models.AgeGroupChoice{
			AgeGroup: req.SecondChoice.AgeGroup,
			Reason:   validator.SanitizeString(req.SecondChoice.Reason),
		}
	}

	app, err := h.appService.Submit(input)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	slog.Info("Application received", "application_id", app.ID, "year", app.ApplicationYear)
	respondWithJSON(w, http.StatusCreated, app)
}

// List retrieves applications. The archived filter is tri-state: omitted
// returns everything, false returns active entries, true archived entries.
// @Summary List applications
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param year query int false "Filter by application year"
// @Param archived query bool false "Filter to archived (true) or active (false) entries; omit for all"
// @Success 200 {array} models.Application
// @Router /applications [get]
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, err := parseApplicationFilters(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	apps, err := h.appService.List(filters)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, apps)
}

// Get retrieves a single application
// @Summary Get an application
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} models.Application
// @Failure 404 {object} map[string]string "Not found"
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	app, err := h.appService.GetByID(r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, app)
}

// Archive flags an application as archived
// @Summary Archive an application
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} map[string]string "Archived"
// @Failure 409 {object} map[string]string "Already archived"
// @Router /applications/{id}/archive [post]
func (h *ApplicationHandler) Archive(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	if err := h.appService.Archive(r.PathValue("id"), userID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Application archived"})
}

// Unarchive restores an archived application
// @Summary Unarchive an application
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} map[string]string "Unarchived"
// @Failure 409 {object} map[string]string "Not archived"
// @Router /applications/{id}/unarchive [post]
func (h *ApplicationHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	if err := h.appService.Unarchive(r.PathValue("id"), userID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Application unarchived"})
}

// CountByYear returns per-year application counts
// @Summary Count applications by year
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ApplicationYearCount
// @Router /applications/count-by-year [get]
func (h *ApplicationHandler) CountByYear(w http.ResponseWriter, r *http.Request) {
	counts, err := h.appService.CountByYear()
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, counts)
}

// Export streams applications as CSV
// @Summary Export applications as CSV
// @Tags Applications
// @Produce text/csv
// @Security BearerAuth
// @Param year query int false "Filter by application year"
// @Param archived query bool false "Filter to archived (true) or active (false) entries; omit for all"
// @Success 200 {string} string "CSV payload"
// @Router /applications/export [get]
func (h *ApplicationHandler) Export(w http.ResponseWriter, r *http.Request) {
	filters, err := parseApplicationFilters(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	apps, err := h.appService.List(filters)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("applications-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	writer := csv.NewWriter(w)
	header := []string{
		"id", "full_name", "email", "phone", "date_of_birth", "school",
		"guardian_name", "guardian_phone",
		"first_choice_age_group", "first_choice_reason",
		"second_choice_age_group", "second_choice_reason",
		"acknowledged", "application_year", "archived", "created_at",
	}
	if err := writer.Write(header); err != nil {
		slog.Error("Failed to write CSV header", "error", err)
		return
	}

	for _, app := range apps {
		secondGroup, secondReason := "", ""
		if app.SecondChoice != nil {
			secondGroup = app.SecondChoice.AgeGroup
			secondReason = app.SecondChoice.Reason
		}
		record := []string{
			app.ID,
			app.FullName,
			app.Email,
			app.Phone,
			app.DateOfBirth.Format("2006-01-02"),
			app.School,
			app.GuardianName,
			app.GuardianPhone,
			app.FirstChoice.AgeGroup,
			app.FirstChoice.Reason,
			secondGroup,
			secondReason,
			strconv.FormatBool(app.Acknowledged),
			strconv.Itoa(app.ApplicationYear),
			strconv.FormatBool(app.IsArchived()),
			app.CreatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			slog.Error("Failed to write CSV record", "application_id", app.ID, "error", err)
			return
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Error("Failed to flush CSV", "error", err)
	}
}

func parseApplicationFilters(r *http.Request) (repository.ApplicationFilters, error) {
	filters := repository.ApplicationFilters{}

	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			return filters, fmt.Errorf("year must be an integer")
		}
		filters.Year = &year
	}

	if archivedStr := r.URL.Query().Get("archived"); archivedStr != "" {
		archived, err := strconv.ParseBool(archivedStr)
		if err != nil {
			return filters, fmt.Errorf("archived must be a boolean")
		}
		filters.Archived = &archived
	}

	return filters, nil
}
