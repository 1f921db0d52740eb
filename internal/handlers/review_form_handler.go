package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/conradkoh/jcep-sub000/internal/middleware"
	"github.com/conradkoh/jcep-sub000/internal/models"
	"github.com/conradkoh/jcep-sub000/internal/repository"
	"github.com/conradkoh/jcep-sub000/internal/service"
	"github.com/conradkoh/jcep-sub000/pkg/validator"
)

// ReviewFormHandler handles rotation review form requests
type ReviewFormHandler struct {
	formService *service.ReviewFormService
}

// NewReviewFormHandler creates a new review form handler
func NewReviewFormHandler(formService *service.ReviewFormService) *ReviewFormHandler {
	return &ReviewFormHandler{
		formService: formService,
	}
}

// sessionAccess builds a SessionAccess from the authenticated request context
func sessionAccess(r *http.Request) (service.SessionAccess, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		return service.SessionAccess{}, false
	}
	roles, _ := middleware.GetUserRoles(r)
	return service.SessionAccess{UserID: userID, Roles: roles}, true
}

// tokenAccess builds a TokenAccess from the token path segment
func tokenAccess(r *http.Request) service.TokenAccess {
	return service.TokenAccess{Secret: r.PathValue("token")}
}

// QARequest is one question/answer pair. The question text travels with the
// answer so wording changes never rewrite history. Empty answers are allowed;
// drafts are saved incrementally.
type QARequest struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer"`
}

func (q QARequest) toModel() models.QA {
	return models.QA{Question: q.Question, Answer: q.Answer}
}

// CreateReviewFormRequest represents a request to open a new review form
type CreateReviewFormRequest struct {
	RotationYear          int     `json:"rotation_year" validate:"required,gte=2000"`
	RotationQuarter       int     `json:"rotation_quarter" validate:"required,gte=1,lte=4"`
	BuddyUserID           string  `json:"buddy_user_id" validate:"required"`
	JuniorCommanderUserID *string `json:"junior_commander_user_id"`
	JuniorCommanderName   string  `json:"junior_commander_name" validate:"required"`
	AgeGroup              string  `json:"age_group" validate:"required,oneof=junior intermediate senior advanced"`
	EvaluationDate        string  `json:"evaluation_date" validate:"required"`
	BuddyEmail            string  `json:"buddy_email" validate:"omitempty,email"`
	JCEmail               string  `json:"jc_email" validate:"omitempty,email"`
}

// BuddyEvaluationRequest is a wholesale write of the buddy evaluation section
type BuddyEvaluationRequest struct {
	Attitude       QARequest `json:"attitude" validate:"required"`
	Teamwork       QARequest `json:"teamwork" validate:"required"`
	Strengths      QARequest `json:"strengths" validate:"required"`
	AreasForGrowth QARequest `json:"areas_for_growth" validate:"required"`
}

// JCReflectionRequest is a wholesale write of the JC reflection section
type JCReflectionRequest struct {
	EnjoyedMost            QARequest `json:"enjoyed_most" validate:"required"`
	Challenges             QARequest `json:"challenges" validate:"required"`
	Learnings              QARequest `json:"learnings" validate:"required"`
	Goals                  QARequest `json:"goals" validate:"required"`
	NextRotationPreference *string   `json:"next_rotation_preference" validate:"omitempty,oneof=continue_same_buddy new_buddy take_break graduate"`
}

// JCFeedbackRequest is a wholesale write of the JC feedback section
type JCFeedbackRequest struct {
	BuddySupport QARequest `json:"buddy_support" validate:"required"`
	Suggestions  QARequest `json:"suggestions" validate:"required"`
}

// ParticularsRequest replaces the rotation and participant details
type ParticularsRequest struct {
	RotationYear          int     `json:"rotation_year" validate:"required,gte=2000"`
	RotationQuarter       int     `json:"rotation_quarter" validate:"required,gte=1,lte=4"`
	JuniorCommanderUserID *string `json:"junior_commander_user_id"`
	JuniorCommanderName   string  `json:"junior_commander_name" validate:"required"`
	AgeGroup              string  `json:"age_group" validate:"required,oneof=junior intermediate senior advanced"`
	EvaluationDate        string  `json:"evaluation_date" validate:"required"`
}

// VisibilityRequest toggles cross-party response visibility
type VisibilityRequest struct {
	BuddyResponsesVisibleToJC *bool `json:"buddy_responses_visible_to_jc"`
	JCResponsesVisibleToBuddy *bool `json:"jc_responses_visible_to_buddy"`
}

// Create opens a new review form and returns it with the access links
// @Summary Create a review form
// @Tags ReviewForms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateReviewFormRequest true "Review form details"
// @Success 201 {object} map[string]interface{} "Created form and access links"
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /review-forms [post]
func (h *ReviewFormHandler) Create(w http.ResponseWriter, r *http.Request) {
	access, ok := sessionAccess(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req CreateReviewFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	evaluationDate, err := time.Parse("2006-01-02", req.EvaluationDate)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "evaluation_date must be formatted as YYYY-MM-DD")
		return
	}

	form, links, err := h.formService.Create(service.CreateReviewFormInput{
		RotationYear:          req.RotationYear,
		RotationQuarter:       req.RotationQuarter,
		BuddyUserID:           req.BuddyUserID,
		JuniorCommanderUserID: req.JuniorCommanderUserID,
		JuniorCommanderName:   validator.SanitizeString(req.JuniorCommanderName),
		AgeGroup:              req.AgeGroup,
		EvaluationDate:        evaluationDate,
		BuddyEmail:            validator.SanitizeEmail(req.BuddyEmail),
		JCEmail:               validator.SanitizeEmail(req.JCEmail),
	}, access.UserID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"form":  form,
		"links": links,
	})
}

// List retrieves review forms visible to the caller
// @Summary List review forms
// @Tags ReviewForms
// @Produce json
// @Security BearerAuth
// @Param rotation_year query int false "Filter by rotation year"
// @Param status query string false "Filter by status"
// @Success 200 {array} service.ReviewFormView
// @Router /review-forms [get]
func (h *ReviewFormHandler) List(w http.ResponseWriter, r *http.Request) {
	access, ok := sessionAccess(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	filters := repository.ReviewFormFilters{}
	if yearStr := r.URL.Query().Get("rotation_year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "rotation_year must be an integer")
			return
		}
		filters.RotationYear = &year
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filters.Status = &status
	}

	views, err := h.formService.List(access, filters)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, views)
}

// RotationYears returns the distinct rotation years with forms
// @Summary List rotation years
// @Tags ReviewForms
// @Produce json
// @Security BearerAuth
// @Success 200 {array} int
// @Router /review-forms/rotation-years [get]
func (h *ReviewFormHandler) RotationYears(w http.ResponseWriter, r *http.Request) {
	access, ok := sessionAccess(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	years, err := h.formService.GetRotationYears(access)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, years)
}

// Get retrieves a review form as seen by the authenticated caller
// @Summary Get a review form
// @Tags ReviewForms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {object} service.ReviewFormView
// @Failure 404 {object} map[string]string "Not found"
// @Router /review-forms/{id} [get]
func (h *ReviewFormHandler) Get(w http.ResponseWriter, r *http.Request) {
	access, ok := sessionAccess(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	view, err := h.formService.Get(access, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// GetByToken retrieves a review form via an anonymous access link
// @Summary Get a review form by access token
// @Tags ReviewForms
// @Produce json
// @Param token path string true "Access token"
// @Success 200 {object} service.ReviewFormView
// @Failure 404 {object} map[string]string "Unknown token"
// @Failure 410 {object} map[string]string "Expired token"
// @Router /review-forms/token/{token} [get]
func (h *ReviewFormHandler) GetByToken(w http.ResponseWriter, r *http.Request) {
	view, err := h.formService.Get(tokenAccess(r), "")
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

func (h *ReviewFormHandler) updateBuddyEvaluation(w http.ResponseWriter, r *http.Request, access service.AccessContext, formID string) {
	var req BuddyEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.formService.UpdateBuddyEvaluation(access, formID, service.BuddyEvaluationInput{
		Attitude:       req.Attitude.toModel(),
		Teamwork:       req.Teamwork.toModel(),
		Strengths:      req.Strengths.toModel(),
		AreasForGrowth: req.AreasForGrowth.toModel(),
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

func (h *ReviewFormHandler) updateJCReflection(w http.ResponseWriter, r *http.Request, access service.AccessContext, formID string) {
	var req JCReflectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.formService.UpdateJCReflection(access, formID, service.JCReflectionInput{
		EnjoyedMost:            req.EnjoyedMost.toModel(),
		Challenges:             req.Challenges.toModel(),
		Learnings:              req.Learnings.toModel(),
		Goals:                  req.Goals.toModel(),
		NextRotationPreference: req.NextRotationPreference,
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

func (h *ReviewFormHandler) updateJCFeedback(w http.ResponseWriter, r *http.Request, access service.AccessContext, formID string) {
	var req JCFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.formService.UpdateJCFeedback(access, formID, service.JCFeedbackInput{
		BuddySupport: req.BuddySupport.toModel(),
		Suggestions:  req.Suggestions.toModel(),
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// UpdateBuddyEvaluation replaces the buddy evaluation section (session path)
// @Summary Update the buddy evaluation section
// @Tags ReviewForms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Param request body BuddyEvaluationRequest true "Section content"
// @Success 200 {object} service.ReviewFormView
// @Failure 409 {object} map[string]string "Form already submitted"
// @Router /review-forms/{id}/buddy-evaluation [put]
func (h *ReviewFormHandler) UpdateBuddyEvaluation(w http.ResponseWriter, r *http.Request) {
	access, ok := sessionAccess(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	h.updateBuddyEvaluation(w, r, access, r.PathValue("id"))
}

// UpdateBuddyEvaluationByToken replaces the buddy evaluation section (token path)
// @Summary Update the buddy evaluation section via access token
// @Tags ReviewForms
// @Accept json
// @Produce json
// @Param token path string true "Access token"
// @Param request body BuddyEvaluationRequest true "Section content"
// @Success 200 {object} service.ReviewFormView
// @Router /review-forms/token/{token}/buddy-evaluation [put]
func (h *ReviewFormHandler) UpdateBuddyEvaluationByToken(w http.ResponseWriter, r *http.Request) {
	h.updateBuddyEvaluation(w, r, tokenAccess(r), "")
}

// UpdateJCReflection replaces the JC reflection section (session path)
// @Summary Update the JC reflection section
// @Tags ReviewForms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Param request body JCReflectionRequest true "Section content"
// @Success 200 {object} service.ReviewFormView
// @Router /review-forms/{id}/jc-reflection [put]
func (h *ReviewFormHandler) UpdateJCReflection(w http.ResponseWriter, r *http.Request) {
	access, ok := sessionAccess(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	h.updateJCReflection(w, r, access, r.PathValue("id"))
}

// UpdateJCReflectionByToken replaces the JC reflection section (token path)
// @Summary Update the JC reflection section via access token
// @Tags ReviewForms
// @Accept json
// @Produce json
// @Param token path string true "Access token"
// @Param request body JCReflectionRequest true "Section content"
// @Success 200 {object} service.ReviewFormView
// @Router /review-forms/token/{token}/jc-reflection [put]
func (h *ReviewFormHandler) UpdateJCReflectionByToken(w http.ResponseWriter, r *http.Request) {
	h.updateJCReflection(w, r, tokenAccess(r), "")
}

// UpdateJCFeedback replaces the JC feedback section (session path)
// @Summary Update the JC feedback section
// @Tags ReviewForms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Param request body JCFeedbackRequest true "Section content"
// @Success 200 {object} service.ReviewFormView
// @Router /review-forms/{id}/jc-feedback [put]
func (h *ReviewFormHandler) UpdateJCFeedback(w http.ResponseWriter, r *http.Request) {
	access, ok := sessionAccess(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	h.updateJCFeedback(w, r, access, r.PathValue("id"))
}

// UpdateJCFeedbackByToken replaces the JC feedback section (token path)
// @Summary Update the JC feedback section via access token
// @Tags ReviewForms
// @Accept json
// @Produce json
// @Param token path string true "Access token"
// @Param request body JCFeedbackRequest true "Section content"
// @Success 200 {object} service.ReviewFormView
// @Router /review-forms/token/{token}/jc-feedback [put]
func (h *ReviewFormHandler) UpdateJCFeedbackByToken(w http.ResponseWriter, r *http.Request) {
	h.updateJCFeedback(w, r, tokenAccess(r), "")
}

// UpdateParticulars replaces the rotation and participant details
// @Summary Update form particulars
// @Tags ReviewForms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Param request body ParticularsRequest true "Particulars"
// @Success 200 {object} service.ReviewFormView
// @Failure 409 {object} map[string]string "Form already submitted"
// @Router /review-forms/{id}/particulars [put]
func (h *ReviewFormHandler) UpdateParticulars(w http.ResponseWriter, r *http.Request) {
	access, ok := sessionAccess(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req ParticularsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	evaluationDate, err := time.Parse("2006-01-02", req.EvaluationDate)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "evaluation_date must be formatted as YYYY-MM-DD")
		return
	}

	view, err := h.formService.UpdateParticulars(access, r.PathValue("id"), service.ParticularsInput{
		RotationYear:          req.RotationYear,
		RotationQuarter:       req.RotationQuarter,
		JuniorCommanderUserID: req.JuniorCommanderUserID,
		JuniorCommanderName:   validator.SanitizeString(req.JuniorCommanderName),
		AgeGroup:              req.AgeGroup,
		EvaluationDate:        evaluationDate,
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// Submit finalizes a review form (session path)
// @Summary Submit a review form
// @Tags ReviewForms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {object} service.ReviewFormView
// @Failure 422 {object} map[string]string "Sections missing"
// @Failure 409 {object} map[string]string "Already submitted"
// @Router /review-forms/{id}/submit [post]
func (h *ReviewFormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	access, ok := sessionAccess(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	view, err := h.formService.Submit(access, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// SubmitByToken finalizes a review form (token path)
// @Summary Submit a review form via access token
// @Tags ReviewForms
// @Produce json
// @Param token path string true "Access token"
// @Success 200 {object} service.ReviewFormView
// @Router /review-forms/token/{token}/submit [post]
func (h *ReviewFormHandler) SubmitByToken(w http.ResponseWriter, r *http.Request) {
	view, err := h.formService.Submit(tokenAccess(r), "")
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// UpdateVisibility toggles cross-party response visibility
// @Summary Update response visibility
// @Tags ReviewForms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Param request body VisibilityRequest true "Visibility flags"
// @Success 200 {object} service.ReviewFormView
// @Router /review-forms/{id}/visibility [put]
func (h *ReviewFormHandler) UpdateVisibility(w http.ResponseWriter, r *http.Request) {
	access, ok := sessionAccess(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req VisibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	view, err := h.formService.UpdateVisibility(access, r.PathValue("id"), service.VisibilityInput{
		BuddyResponsesVisibleToJC: req.BuddyResponsesVisibleToJC,
		JCResponsesVisibleToBuddy: req.JCResponsesVisibleToBuddy,
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// RegenerateTokens replaces both access tokens, invalidating old links
// @Summary Regenerate access tokens
// @Tags ReviewForms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {object} service.AccessLinks
// @Router /review-forms/{id}/regenerate-tokens [post]
func (h *ReviewFormHandler) RegenerateTokens(w http.ResponseWriter, r *http.Request) {
	access, ok := sessionAccess(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	links, err := h.formService.RegenerateTokens(access, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, links)
}

// GetLinks returns the current access links for a form
// @Summary Get access links
// @Tags ReviewForms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {object} service.AccessLinks
// @Router /review-forms/{id}/links [get]
func (h *ReviewFormHandler) GetLinks(w http.ResponseWriter, r *http.Request) {
	access, ok := sessionAccess(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	links, err := h.formService.GetAccessLinks(access, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, links)
}

// Delete removes a review form
// @Summary Delete a review form
// @Tags ReviewForms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {object} map[string]string "Deleted"
// @Router /review-forms/{id} [delete]
func (h *ReviewFormHandler) Delete(w http.ResponseWriter, r *http.Request) {
	access, ok := sessionAccess(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	if err := h.formService.Delete(access, r.PathValue("id")); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Review form deleted"})
}
