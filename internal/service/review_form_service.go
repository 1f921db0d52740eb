package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/conradkoh/jcep-sub000/internal/auth"
	"github.com/conradkoh/jcep-sub000/internal/config"
	"github.com/conradkoh/jcep-sub000/internal/email"
	"github.com/conradkoh/jcep-sub000/internal/models"
	"github.com/conradkoh/jcep-sub000/internal/repository"
)

// ReviewFormService handles business logic for rotation review forms
type ReviewFormService struct {
	formRepo  *repository.ReviewFormRepository
	userRepo  *repository.UserRepository
	auditRepo *repository.AuditRepository
	emailSvc  *email.Service
	tokenTTL  time.Duration
	baseURL   string
}

// NewReviewFormService creates a new review form service
func NewReviewFormService(
	formRepo *repository.ReviewFormRepository,
	userRepo *repository.UserRepository,
	auditRepo *repository.AuditRepository,
	emailSvc *email.Service,
	reviewCfg *config.ReviewConfig,
	appCfg *config.AppConfig,
) *ReviewFormService {
	return &ReviewFormService{
		formRepo:  formRepo,
		userRepo:  userRepo,
		auditRepo: auditRepo,
		emailSvc:  emailSvc,
		tokenTTL:  reviewCfg.TokenTTL,
		baseURL:   appCfg.BaseURL,
	}
}

// ReviewFormView is a review form prepared for one specific caller: sections
// the caller may not see are stripped, and the derived completeness state is
// attached. Access tokens never appear in views.
type ReviewFormView struct {
	models.ReviewForm
	Role         FormRole            `json:"role"`
	Completeness models.Completeness `json:"completeness"`
}

// AccessLinks are the token-bearing URLs handed to the two participants.
type AccessLinks struct {
	BuddyLink string `json:"buddy_link"`
	JCLink    string `json:"jc_link"`
}

// CreateReviewFormInput holds the fields needed to open a new review form
type CreateReviewFormInput struct {
	RotationYear          int
	RotationQuarter       int
	BuddyUserID           string
	JuniorCommanderUserID *string
	JuniorCommanderName   string
	AgeGroup              string
	EvaluationDate        time.Time
	BuddyEmail            string
	JCEmail               string
}

// BuddyEvaluationInput is a wholesale write of the buddy evaluation section
type BuddyEvaluationInput struct {
	Attitude       models.QA
	Teamwork       models.QA
	Strengths      models.QA
	AreasForGrowth models.QA
}

// JCReflectionInput is a wholesale write of the JC reflection section
type JCReflectionInput struct {
	EnjoyedMost            models.QA
	Challenges             models.QA
	Learnings              models.QA
	Goals                  models.QA
	NextRotationPreference *string
}

// JCFeedbackInput is a wholesale write of the JC feedback section
type JCFeedbackInput struct {
	BuddySupport models.QA
	Suggestions  models.QA
}

// VisibilityInput toggles who may see the other party's responses. Nil fields
// keep the current value; at least one must be set.
type VisibilityInput struct {
	BuddyResponsesVisibleToJC *bool
	JCResponsesVisibleToBuddy *bool
}

// resolveAccess turns a caller identity into a FormAccess for one form. Token
// callers are located by their token; session callers by form ID. An unknown
// token and a missing form are deliberately indistinguishable.
func (s *ReviewFormService) resolveAccess(access AccessContext, formID string) (*FormAccess, error) {
	switch a := access.(type) {
	case TokenAccess:
		form, kind, err := s.formRepo.GetByAccessToken(a.Secret)
		if errors.Is(err, repository.ErrReviewFormNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		if auth.AccessTokenExpired(form.TokenExpiresAt, time.Now()) {
			return nil, ErrTokenExpired
		}

		role := FormRoleJC
		if kind == repository.TokenKindBuddy {
			role = FormRoleBuddy
		}
		return &FormAccess{Form: form, Role: role}, nil

	case SessionAccess:
		form, err := s.formRepo.GetByID(formID)
		if errors.Is(err, repository.ErrReviewFormNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return s.sessionAccessFor(a, form)

	default:
		return nil, ErrPermissionDenied
	}
}

func (s *ReviewFormService) sessionAccessFor(a SessionAccess, form *models.ReviewForm) (*FormAccess, error) {
	userID := a.UserID
	if contains(a.Roles, "admin") {
		return &FormAccess{Form: form, Role: FormRoleAdmin, ActorUserID: &userID}, nil
	}
	if form.BuddyUserID == a.UserID {
		return &FormAccess{Form: form, Role: FormRoleBuddy, ActorUserID: &userID}, nil
	}
	if form.JuniorCommanderUserID != nil && *form.JuniorCommanderUserID == a.UserID {
		return &FormAccess{Form: form, Role: FormRoleJC, ActorUserID: &userID}, nil
	}
	return nil, ErrPermissionDenied
}

// buildView copies the form and strips the sections the caller may not see
func buildView(access *FormAccess) *ReviewFormView {
	form := *access.Form

	view := &ReviewFormView{
		ReviewForm:   form,
		Role:         access.Role,
		Completeness: form.CompletenessState(),
	}

	if !access.CanSeeBuddyResponses() {
		view.BuddyEvaluation = nil
	}
	if !access.CanSeeJCResponses() {
		view.JCReflection = nil
		view.JCFeedback = nil
		view.NextRotationPreference = nil
	}

	return view
}

func (s *ReviewFormService) accessLinks(form *models.ReviewForm) *AccessLinks {
	return &AccessLinks{
		BuddyLink: fmt.Sprintf("%s/review/token/%s", s.baseURL, form.BuddyAccessToken),
		JCLink:    fmt.Sprintf("%s/review/token/%s", s.baseURL, form.JCAccessToken),
	}
}

// generateTokenPair creates two fresh access tokens and verifies neither is
// already in use. A collision is astronomically unlikely, so it is treated as
// an error rather than retried; the unique constraint is the final backstop.
func (s *ReviewFormService) generateTokenPair() (string, string, error) {
	buddyToken, err := auth.GenerateAccessToken()
	if err != nil {
		return "", "", err
	}
	jcToken, err := auth.GenerateAccessToken()
	if err != nil {
		return "", "", err
	}
	if buddyToken == jcToken {
		return "", "", repository.ErrTokenCollision
	}

	for _, token := range []string{buddyToken, jcToken} {
		exists, err := s.formRepo.TokenExists(token)
		if err != nil {
			return "", "", err
		}
		if exists {
			return "", "", repository.ErrTokenCollision
		}
	}

	return buddyToken, jcToken, nil
}

// Create opens a new review form in draft status and issues both access tokens
func (s *ReviewFormService) Create(input CreateReviewFormInput, createdBy string) (*models.ReviewForm, *AccessLinks, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, nil, err
	}

	buddy, err := s.userRepo.GetByID(input.BuddyUserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil, fmt.Errorf("%w: buddy user not found", ErrValidation)
	}
	if err != nil {
		return nil, nil, err
	}

	buddyToken, jcToken, err := s.generateTokenPair()
	if err != nil {
		return nil, nil, err
	}

	var tokenExpiresAt *time.Time
	if s.tokenTTL > 0 {
		expiry := time.Now().Add(s.tokenTTL)
		tokenExpiresAt = &expiry
	}

	form := &models.ReviewForm{
		SchemaVersion:         1,
		BuddyAccessToken:      buddyToken,
		JCAccessToken:         jcToken,
		TokenExpiresAt:        tokenExpiresAt,
		RotationYear:          input.RotationYear,
		RotationQuarter:       input.RotationQuarter,
		BuddyUserID:           input.BuddyUserID,
		BuddyName:             buddy.FirstName + " " + buddy.LastName,
		JuniorCommanderUserID: input.JuniorCommanderUserID,
		JuniorCommanderName:   input.JuniorCommanderName,
		AgeGroup:              input.AgeGroup,
		EvaluationDate:        input.EvaluationDate,
		Status:                models.StatusDraft,
		CreatedBy:             createdBy,
	}

	if err := s.formRepo.Create(form); err != nil {
		return nil, nil, err
	}

	links := s.accessLinks(form)

	s.audit(&createdBy, "create", "review_form", fmt.Sprintf("Created review form %s for %s / %s (%d Q%d)",
		form.ID, form.BuddyName, form.JuniorCommanderName, form.RotationYear, form.RotationQuarter))

	// Invites are best effort; the links are returned to the caller anyway.
	if input.BuddyEmail != "" {
		if err := s.emailSvc.SendReviewFormInvite(input.BuddyEmail, form.BuddyName, form.JuniorCommanderName, links.BuddyLink); err != nil {
			slog.Error("Failed to send buddy invite", "form_id", form.ID, "error", err)
		}
	}
	if input.JCEmail != "" {
		if err := s.emailSvc.SendReviewFormInvite(input.JCEmail, form.JuniorCommanderName, form.BuddyName, links.JCLink); err != nil {
			slog.Error("Failed to send JC invite", "form_id", form.ID, "error", err)
		}
	}

	return form, links, nil
}

func validateCreateInput(input CreateReviewFormInput) error {
	if input.RotationQuarter < 1 || input.RotationQuarter > 4 {
		return fmt.Errorf("%w: rotation quarter must be between 1 and 4", ErrValidation)
	}
	if input.RotationYear < 2000 {
		return fmt.Errorf("%w: rotation year is invalid", ErrValidation)
	}
	if !models.ValidAgeGroup(input.AgeGroup) {
		return fmt.Errorf("%w: unknown age group %q", ErrValidation, input.AgeGroup)
	}
	if input.JuniorCommanderName == "" {
		return fmt.Errorf("%w: junior commander name is required", ErrValidation)
	}
	if input.EvaluationDate.IsZero() {
		return fmt.Errorf("%w: evaluation date is required", ErrValidation)
	}
	return nil
}

// Get retrieves a review form as seen by the caller
func (s *ReviewFormService) Get(access AccessContext, formID string) (*ReviewFormView, error) {
	formAccess, err := s.resolveAccess(access, formID)
	if err != nil {
		return nil, err
	}
	return buildView(formAccess), nil
}

// List retrieves review forms. Admins see everything and may filter freely;
// buddies see only their own forms.
func (s *ReviewFormService) List(access SessionAccess, filters repository.ReviewFormFilters) ([]ReviewFormView, error) {
	isAdmin := contains(access.Roles, "admin")
	if !isAdmin {
		filters.BuddyUserID = &access.UserID
	}

	forms, err := s.formRepo.GetAll(filters)
	if err != nil {
		return nil, err
	}

	views := make([]ReviewFormView, 0, len(forms))
	for i := range forms {
		formAccess, err := s.sessionAccessFor(access, &forms[i])
		if err != nil {
			continue
		}
		views = append(views, *buildView(formAccess))
	}

	return views, nil
}

// GetRotationYears returns the distinct rotation years with forms
func (s *ReviewFormService) GetRotationYears(access SessionAccess) ([]int, error) {
	if !contains(access.Roles, "admin") {
		return nil, ErrPermissionDenied
	}
	return s.formRepo.GetRotationYears()
}

// editableAccess resolves access and rejects any write to a submitted form
func (s *ReviewFormService) editableAccess(access AccessContext, formID string) (*FormAccess, error) {
	formAccess, err := s.resolveAccess(access, formID)
	if err != nil {
		return nil, err
	}
	if formAccess.Form.Status == models.StatusSubmitted {
		return nil, ErrFormSubmitted
	}
	return formAccess, nil
}

// nextStatus advances draft to in_progress on the first section write
func nextStatus(current string) string {
	if current == models.StatusDraft {
		return models.StatusInProgress
	}
	return current
}

// UpdateBuddyEvaluation replaces the buddy evaluation section wholesale
func (s *ReviewFormService) UpdateBuddyEvaluation(access AccessContext, formID string, input BuddyEvaluationInput) (*ReviewFormView, error) {
	formAccess, err := s.editableAccess(access, formID)
	if err != nil {
		return nil, err
	}
	if !formAccess.CanEditBuddyEvaluation() {
		return nil, ErrPermissionDenied
	}

	section := &models.BuddyEvaluation{
		Attitude:       input.Attitude,
		Teamwork:       input.Teamwork,
		Strengths:      input.Strengths,
		AreasForGrowth: input.AreasForGrowth,
		CompletedAt:    time.Now(),
		CompletedBy:    formAccess.ActorUserID,
	}

	status := nextStatus(formAccess.Form.Status)
	if err := s.formRepo.UpdateBuddyEvaluation(formAccess.Form.ID, section, status); err != nil {
		return nil, err
	}

	formAccess.Form.BuddyEvaluation = section
	formAccess.Form.Status = status

	s.audit(formAccess.ActorUserID, "update", "review_form",
		fmt.Sprintf("Updated buddy evaluation on form %s", formAccess.Form.ID))

	return buildView(formAccess), nil
}

// UpdateJCReflection replaces the JC reflection section wholesale, along with
// the next-rotation preference
func (s *ReviewFormService) UpdateJCReflection(access AccessContext, formID string, input JCReflectionInput) (*ReviewFormView, error) {
	formAccess, err := s.editableAccess(access, formID)
	if err != nil {
		return nil, err
	}
	if !formAccess.CanEditJCSections() {
		return nil, ErrPermissionDenied
	}
	if input.NextRotationPreference != nil && !models.ValidNextRotationPreference(*input.NextRotationPreference) {
		return nil, fmt.Errorf("%w: unknown next rotation preference %q", ErrValidation, *input.NextRotationPreference)
	}

	section := &models.JCReflection{
		EnjoyedMost: input.EnjoyedMost,
		Challenges:  input.Challenges,
		Learnings:   input.Learnings,
		Goals:       input.Goals,
		CompletedAt: time.Now(),
		CompletedBy: formAccess.ActorUserID,
	}

	status := nextStatus(formAccess.Form.Status)
	if err := s.formRepo.UpdateJCReflection(formAccess.Form.ID, section, input.NextRotationPreference, status); err != nil {
		return nil, err
	}

	formAccess.Form.JCReflection = section
	formAccess.Form.NextRotationPreference = input.NextRotationPreference
	formAccess.Form.Status = status

	s.audit(formAccess.ActorUserID, "update", "review_form",
		fmt.Sprintf("Updated JC reflection on form %s", formAccess.Form.ID))

	return buildView(formAccess), nil
}

// UpdateJCFeedback replaces the JC feedback section wholesale
func (s *ReviewFormService) UpdateJCFeedback(access AccessContext, formID string, input JCFeedbackInput) (*ReviewFormView, error) {
	formAccess, err := s.editableAccess(access, formID)
	if err != nil {
		return nil, err
	}
	if !formAccess.CanEditJCSections() {
		return nil, ErrPermissionDenied
	}

	section := &models.JCFeedback{
		BuddySupport: input.BuddySupport,
		Suggestions:  input.Suggestions,
		CompletedAt:  time.Now(),
		CompletedBy:  formAccess.ActorUserID,
	}

	status := nextStatus(formAccess.Form.Status)
	if err := s.formRepo.UpdateJCFeedback(formAccess.Form.ID, section, status); err != nil {
		return nil, err
	}

	formAccess.Form.JCFeedback = section
	formAccess.Form.Status = status

	s.audit(formAccess.ActorUserID, "update", "review_form",
		fmt.Sprintf("Updated JC feedback on form %s", formAccess.Form.ID))

	return buildView(formAccess), nil
}

// ParticularsInput replaces the rotation and participant details of a form
type ParticularsInput struct {
	RotationYear          int
	RotationQuarter       int
	JuniorCommanderUserID *string
	JuniorCommanderName   string
	AgeGroup              string
	EvaluationDate        time.Time
}

// UpdateParticulars changes the rotation and participant details. Admins and
// the buddy of record may edit; submitted forms are frozen like any other
// write.
func (s *ReviewFormService) UpdateParticulars(access AccessContext, formID string, input ParticularsInput) (*ReviewFormView, error) {
	formAccess, err := s.editableAccess(access, formID)
	if err != nil {
		return nil, err
	}
	if !formAccess.CanEditParticulars() {
		return nil, ErrPermissionDenied
	}

	if input.RotationQuarter < 1 || input.RotationQuarter > 4 {
		return nil, fmt.Errorf("%w: rotation quarter must be between 1 and 4", ErrValidation)
	}
	if input.RotationYear < 2000 {
		return nil, fmt.Errorf("%w: rotation year is invalid", ErrValidation)
	}
	if !models.ValidAgeGroup(input.AgeGroup) {
		return nil, fmt.Errorf("%w: unknown age group %q", ErrValidation, input.AgeGroup)
	}
	if input.JuniorCommanderName == "" {
		return nil, fmt.Errorf("%w: junior commander name is required", ErrValidation)
	}
	if input.EvaluationDate.IsZero() {
		return nil, fmt.Errorf("%w: evaluation date is required", ErrValidation)
	}

	form := formAccess.Form
	form.RotationYear = input.RotationYear
	form.RotationQuarter = input.RotationQuarter
	form.JuniorCommanderUserID = input.JuniorCommanderUserID
	form.JuniorCommanderName = input.JuniorCommanderName
	form.AgeGroup = input.AgeGroup
	form.EvaluationDate = input.EvaluationDate

	if err := s.formRepo.UpdateParticulars(form.ID, form); err != nil {
		return nil, err
	}

	s.audit(formAccess.ActorUserID, "update", "review_form",
		fmt.Sprintf("Updated particulars on form %s", form.ID))

	return buildView(formAccess), nil
}

// Submit finalizes a form. Every section must have been saved at least once;
// answers are not required to be complete.
func (s *ReviewFormService) Submit(access AccessContext, formID string) (*ReviewFormView, error) {
	formAccess, err := s.editableAccess(access, formID)
	if err != nil {
		return nil, err
	}
	if !formAccess.Form.HasAllSections() {
		return nil, ErrIncompleteForm
	}

	if err := s.formRepo.Submit(formAccess.Form.ID, formAccess.ActorUserID); err != nil {
		return nil, err
	}

	now := time.Now()
	formAccess.Form.Status = models.StatusSubmitted
	formAccess.Form.SubmittedAt = &now
	formAccess.Form.SubmittedBy = formAccess.ActorUserID

	s.audit(formAccess.ActorUserID, "submit", "review_form",
		fmt.Sprintf("Submitted review form %s", formAccess.Form.ID))

	return buildView(formAccess), nil
}

// UpdateVisibility toggles who may see the other party's responses. Admin
// only, and permitted even after submission since it reveals rather than
// edits.
func (s *ReviewFormService) UpdateVisibility(access SessionAccess, formID string, input VisibilityInput) (*ReviewFormView, error) {
	formAccess, err := s.resolveAccess(access, formID)
	if err != nil {
		return nil, err
	}
	if !formAccess.CanManage() {
		return nil, ErrPermissionDenied
	}
	if input.BuddyResponsesVisibleToJC == nil && input.JCResponsesVisibleToBuddy == nil {
		return nil, fmt.Errorf("%w: at least one visibility flag must be provided", ErrValidation)
	}

	buddyVisible := formAccess.Form.BuddyResponsesVisibleToJC
	if input.BuddyResponsesVisibleToJC != nil {
		buddyVisible = *input.BuddyResponsesVisibleToJC
	}
	jcVisible := formAccess.Form.JCResponsesVisibleToBuddy
	if input.JCResponsesVisibleToBuddy != nil {
		jcVisible = *input.JCResponsesVisibleToBuddy
	}

	if err := s.formRepo.UpdateVisibility(formAccess.Form.ID, buddyVisible, jcVisible, access.UserID); err != nil {
		return nil, err
	}

	now := time.Now()
	formAccess.Form.BuddyResponsesVisibleToJC = buddyVisible
	formAccess.Form.JCResponsesVisibleToBuddy = jcVisible
	formAccess.Form.VisibilityChangedAt = &now
	formAccess.Form.VisibilityChangedBy = &access.UserID

	s.audit(&access.UserID, "update", "review_form",
		fmt.Sprintf("Changed visibility on form %s (buddy_visible_to_jc=%t, jc_visible_to_buddy=%t)",
			formAccess.Form.ID, buddyVisible, jcVisible))

	return buildView(formAccess), nil
}

// RegenerateTokens replaces both access tokens, invalidating any previously
// shared links. Admin only.
func (s *ReviewFormService) RegenerateTokens(access SessionAccess, formID string) (*AccessLinks, error) {
	formAccess, err := s.resolveAccess(access, formID)
	if err != nil {
		return nil, err
	}
	if !formAccess.CanManage() {
		return nil, ErrPermissionDenied
	}

	buddyToken, jcToken, err := s.generateTokenPair()
	if err != nil {
		return nil, err
	}

	var tokenExpiresAt *time.Time
	if s.tokenTTL > 0 {
		expiry := time.Now().Add(s.tokenTTL)
		tokenExpiresAt = &expiry
	}

	if err := s.formRepo.UpdateTokens(formAccess.Form.ID, buddyToken, jcToken, tokenExpiresAt); err != nil {
		return nil, err
	}

	formAccess.Form.BuddyAccessToken = buddyToken
	formAccess.Form.JCAccessToken = jcToken
	formAccess.Form.TokenExpiresAt = tokenExpiresAt

	s.audit(&access.UserID, "regenerate_tokens", "review_form",
		fmt.Sprintf("Regenerated access tokens for form %s", formAccess.Form.ID))

	return s.accessLinks(formAccess.Form), nil
}

// GetAccessLinks returns the current token-bearing links. Admin only.
func (s *ReviewFormService) GetAccessLinks(access SessionAccess, formID string) (*AccessLinks, error) {
	formAccess, err := s.resolveAccess(access, formID)
	if err != nil {
		return nil, err
	}
	if !formAccess.CanManage() {
		return nil, ErrPermissionDenied
	}
	return s.accessLinks(formAccess.Form), nil
}

// Delete removes a review form entirely. Admin only.
func (s *ReviewFormService) Delete(access SessionAccess, formID string) error {
	formAccess, err := s.resolveAccess(access, formID)
	if err != nil {
		return err
	}
	if !formAccess.CanManage() {
		return ErrPermissionDenied
	}

	if err := s.formRepo.Delete(formAccess.Form.ID); err != nil {
		return err
	}

	s.audit(&access.UserID, "delete", "review_form",
		fmt.Sprintf("Deleted review form %s", formAccess.Form.ID))

	return nil
}

// RemindPending emails every participant of an unsubmitted form whose user
// account is known. Returns the number of reminders sent.
func (s *ReviewFormService) RemindPending() (int, error) {
	forms, err := s.formRepo.GetUnsubmitted()
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range forms {
		form := &forms[i]
		if auth.AccessTokenExpired(form.TokenExpiresAt, time.Now()) {
			continue
		}
		links := s.accessLinks(form)

		if !form.IsBuddyEvaluationComplete() {
			if buddy, err := s.userRepo.GetByID(form.BuddyUserID); err == nil {
				if err := s.emailSvc.SendPendingReviewReminder(buddy.Email, form.BuddyName, links.BuddyLink); err == nil {
					sent++
				}
			}
		}

		jcDone := form.IsJCReflectionComplete() && form.IsJCFeedbackComplete()
		if !jcDone && form.JuniorCommanderUserID != nil {
			if jc, err := s.userRepo.GetByID(*form.JuniorCommanderUserID); err == nil {
				if err := s.emailSvc.SendPendingReviewReminder(jc.Email, form.JuniorCommanderName, links.JCLink); err == nil {
					sent++
				}
			}
		}
	}

	return sent, nil
}

// audit writes an audit log entry, never failing the calling operation
func (s *ReviewFormService) audit(userID *string, action, resource, details string) {
	if err := s.auditRepo.Create(&models.AuditLog{
		UserID:   userID,
		Action:   action,
		Resource: resource,
		Details:  details,
	}); err != nil {
		slog.Error("Failed to write audit log", "action", action, "resource", resource, "error", err)
	}
}
