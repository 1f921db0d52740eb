package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/conradkoh/jcep-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrReviewFormNotFound = errors.New("review form not found")
	ErrTokenCollision     = errors.New("access token already in use")
)

// Token kinds returned by GetByAccessToken.
const (
	TokenKindBuddy = "buddy"
	TokenKindJC    = "jc"
)

// ReviewFormRepository handles review form database operations
type ReviewFormRepository struct {
	db *sql.DB
}

// NewReviewFormRepository creates a new review form repository
func NewReviewFormRepository(db *sql.DB) *ReviewFormRepository {
	return &ReviewFormRepository{db: db}
}

const reviewFormColumns = `
	id, schema_version, buddy_access_token, jc_access_token, token_expires_at,
	buddy_responses_visible_to_jc, jc_responses_visible_to_buddy, visibility_changed_at, visibility_changed_by,
	rotation_year, rotation_quarter, buddy_user_id, buddy_name, junior_commander_user_id, junior_commander_name,
	age_group, evaluation_date, next_rotation_preference,
	buddy_evaluation, jc_reflection, jc_feedback,
	status, submitted_at, submitted_by, created_by, created_at, updated_at
`

// marshalSection serializes a section pointer for a JSONB column. A nil
// pointer becomes SQL NULL.
func marshalSection[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal section: %w", err)
	}
	return data, nil
}

// unmarshalSection deserializes a JSONB column. SQL NULL becomes a nil pointer.
func unmarshalSection[T any](data []byte) (*T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal section: %w", err)
	}
	return v, nil
}

func scanReviewForm(row interface{ Scan(...any) error }) (*models.ReviewForm, error) {
	form := &models.ReviewForm{}
	var evalJSON, reflectionJSON, feedbackJSON []byte

	err := row.Scan(
		&form.ID,
		&form.SchemaVersion,
		&form.BuddyAccessToken,
		&form.JCAccessToken,
		&form.TokenExpiresAt,
		&form.BuddyResponsesVisibleToJC,
		&form.JCResponsesVisibleToBuddy,
		&form.VisibilityChangedAt,
		&form.VisibilityChangedBy,
		&form.RotationYear,
		&form.RotationQuarter,
		&form.BuddyUserID,
		&form.BuddyName,
		&form.JuniorCommanderUserID,
		&form.JuniorCommanderName,
		&form.AgeGroup,
		&form.EvaluationDate,
		&form.NextRotationPreference,
		&evalJSON,
		&reflectionJSON,
		&feedbackJSON,
		&form.Status,
		&form.SubmittedAt,
		&form.SubmittedBy,
		&form.CreatedBy,
		&form.CreatedAt,
		&form.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if form.BuddyEvaluation, err = unmarshalSection[models.BuddyEvaluation](evalJSON); err != nil {
		return nil, err
	}
	if form.JCReflection, err = unmarshalSection[models.JCReflection](reflectionJSON); err != nil {
		return nil, err
	}
	if form.JCFeedback, err = unmarshalSection[models.JCFeedback](feedbackJSON); err != nil {
		return nil, err
	}

	return form, nil
}

// Create inserts a new review form
func (r *ReviewFormRepository) Create(form *models.ReviewForm) error {
	query := `
		INSERT INTO review_forms (
			id, schema_version, buddy_access_token, jc_access_token, token_expires_at,
			buddy_responses_visible_to_jc, jc_responses_visible_to_buddy,
			rotation_year, rotation_quarter, buddy_user_id, buddy_name,
			junior_commander_user_id, junior_commander_name, age_group, evaluation_date,
			next_rotation_preference, buddy_evaluation, jc_reflection, jc_feedback,
			status, created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`

	if form.ID == "" {
		form.ID = uuid.NewString()
	}
	now := time.Now()
	if form.CreatedAt.IsZero() {
		form.CreatedAt = now
	}
	form.UpdatedAt = now

	evalJSON, err := marshalSection(form.BuddyEvaluation)
	if err != nil {
		return err
	}
	reflectionJSON, err := marshalSection(form.JCReflection)
	if err != nil {
		return err
	}
	feedbackJSON, err := marshalSection(form.JCFeedback)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		query,
		form.ID,
		form.SchemaVersion,
		form.BuddyAccessToken,
		form.JCAccessToken,
		form.TokenExpiresAt,
		form.BuddyResponsesVisibleToJC,
		form.JCResponsesVisibleToBuddy,
		form.RotationYear,
		form.RotationQuarter,
		form.BuddyUserID,
		form.BuddyName,
		form.JuniorCommanderUserID,
		form.JuniorCommanderName,
		form.AgeGroup,
		form.EvaluationDate,
		form.NextRotationPreference,
		evalJSON,
		reflectionJSON,
		feedbackJSON,
		form.Status,
		form.CreatedBy,
		form.CreatedAt,
		form.UpdatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return ErrTokenCollision
	}
	if err != nil {
		return fmt.Errorf("failed to create review form: %w", err)
	}

	return nil
}

// GetByID retrieves a review form by ID
func (r *ReviewFormRepository) GetByID(id string) (*models.ReviewForm, error) {
	query := `SELECT ` + reviewFormColumns + ` FROM review_forms WHERE id = $1`

	form, err := scanReviewForm(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrReviewFormNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review form: %w", err)
	}

	return form, nil
}

// GetByAccessToken retrieves a review form by either access token and reports
// which token matched. An unknown token is indistinguishable from a missing
// form.
func (r *ReviewFormRepository) GetByAccessToken(token string) (*models.ReviewForm, string, error) {
	query := `SELECT ` + reviewFormColumns + ` FROM review_forms WHERE buddy_access_token = $1 OR jc_access_token = $1`

	form, err := scanReviewForm(r.db.QueryRow(query, token))
	if err == sql.ErrNoRows {
		return nil, "", ErrReviewFormNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get review form by token: %w", err)
	}

	kind := TokenKindJC
	if form.BuddyAccessToken == token {
		kind = TokenKindBuddy
	}

	return form, kind, nil
}

// TokenExists reports whether a token is already assigned to any form
func (r *ReviewFormRepository) TokenExists(token string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM review_forms
			WHERE buddy_access_token = $1 OR jc_access_token = $1
		)
	`

	var exists bool
	if err := r.db.QueryRow(query, token).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check token existence: %w", err)
	}

	return exists, nil
}

// ReviewFormFilters holds filter parameters for review form queries
type ReviewFormFilters struct {
	RotationYear *int
	BuddyUserID  *string
	Status       *string
}

// GetAll retrieves review forms matching the filters, newest first
func (r *ReviewFormRepository) GetAll(filters ReviewFormFilters) ([]models.ReviewForm, error) {
	query := `SELECT ` + reviewFormColumns + ` FROM review_forms WHERE 1=1`

	args := []interface{}{}
	argPos := 1

	if filters.RotationYear != nil {
		query += fmt.Sprintf(` AND rotation_year = $%d`, argPos)
		args = append(args, *filters.RotationYear)
		argPos++
	}

	if filters.BuddyUserID != nil {
		query += fmt.Sprintf(` AND buddy_user_id = $%d`, argPos)
		args = append(args, *filters.BuddyUserID)
		argPos++
	}

	if filters.Status != nil {
		query += fmt.Sprintf(` AND status = $%d`, argPos)
		args = append(args, *filters.Status)
		argPos++
	}

	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get review forms: %w", err)
	}
	defer rows.Close()

	var forms []models.ReviewForm
	for rows.Next() {
		form, err := scanReviewForm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review form: %w", err)
		}
		forms = append(forms, *form)
	}

	return forms, nil
}

// GetUnsubmitted retrieves all forms that have not yet been submitted
func (r *ReviewFormRepository) GetUnsubmitted() ([]models.ReviewForm, error) {
	query := `SELECT ` + reviewFormColumns + ` FROM review_forms WHERE status <> $1 ORDER BY created_at`

	rows, err := r.db.Query(query, models.StatusSubmitted)
	if err != nil {
		return nil, fmt.Errorf("failed to get unsubmitted review forms: %w", err)
	}
	defer rows.Close()

	var forms []models.ReviewForm
	for rows.Next() {
		form, err := scanReviewForm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review form: %w", err)
		}
		forms = append(forms, *form)
	}

	return forms, nil
}

// GetRotationYears returns the distinct rotation years, most recent first
func (r *ReviewFormRepository) GetRotationYears() ([]int, error) {
	query := `SELECT DISTINCT rotation_year FROM review_forms ORDER BY rotation_year DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var year int
		if err := rows.Scan(&year); err != nil {
			return nil, fmt.Errorf("failed to scan rotation year: %w", err)
		}
		years = append(years, year)
	}

	return years, nil
}

// UpdateBuddyEvaluation replaces the buddy evaluation section wholesale and
// advances the form status
func (r *ReviewFormRepository) UpdateBuddyEvaluation(id string, section *models.BuddyEvaluation, status string) error {
	data, err := marshalSection(section)
	if err != nil {
		return err
	}

	query := `
		UPDATE review_forms
		SET buddy_evaluation = $1, status = $2, updated_at = $3
		WHERE id = $4
	`

	return r.execExpectingRow(query, data, status, time.Now(), id)
}

// UpdateJCReflection replaces the JC reflection section wholesale, records the
// next-rotation preference, and advances the form status
func (r *ReviewFormRepository) UpdateJCReflection(id string, section *models.JCReflection, preference *string, status string) error {
	data, err := marshalSection(section)
	if err != nil {
		return err
	}

	query := `
		UPDATE review_forms
		SET jc_reflection = $1, next_rotation_preference = $2, status = $3, updated_at = $4
		WHERE id = $5
	`

	return r.execExpectingRow(query, data, preference, status, time.Now(), id)
}

// UpdateJCFeedback replaces the JC feedback section wholesale and advances the
// form status
func (r *ReviewFormRepository) UpdateJCFeedback(id string, section *models.JCFeedback, status string) error {
	data, err := marshalSection(section)
	if err != nil {
		return err
	}

	query := `
		UPDATE review_forms
		SET jc_feedback = $1, status = $2, updated_at = $3
		WHERE id = $4
	`

	return r.execExpectingRow(query, data, status, time.Now(), id)
}

// UpdateParticulars replaces the rotation and participant details
func (r *ReviewFormRepository) UpdateParticulars(id string, form *models.ReviewForm) error {
	query := `
		UPDATE review_forms
		SET rotation_year = $1, rotation_quarter = $2, junior_commander_user_id = $3,
		    junior_commander_name = $4, age_group = $5, evaluation_date = $6, updated_at = $7
		WHERE id = $8
	`

	return r.execExpectingRow(query,
		form.RotationYear,
		form.RotationQuarter,
		form.JuniorCommanderUserID,
		form.JuniorCommanderName,
		form.AgeGroup,
		form.EvaluationDate,
		time.Now(),
		id,
	)
}

// UpdateVisibility sets both visibility flags and records who changed them
func (r *ReviewFormRepository) UpdateVisibility(id string, buddyVisibleToJC, jcVisibleToBuddy bool, changedBy string) error {
	query := `
		UPDATE review_forms
		SET buddy_responses_visible_to_jc = $1, jc_responses_visible_to_buddy = $2,
		    visibility_changed_at = $3, visibility_changed_by = $4, updated_at = $3
		WHERE id = $5
	`

	return r.execExpectingRow(query, buddyVisibleToJC, jcVisibleToBuddy, time.Now(), changedBy, id)
}

// Submit marks a form as submitted
func (r *ReviewFormRepository) Submit(id string, submittedBy *string) error {
	query := `
		UPDATE review_forms
		SET status = $1, submitted_at = $2, submitted_by = $3, updated_at = $2
		WHERE id = $4
	`

	return r.execExpectingRow(query, models.StatusSubmitted, time.Now(), submittedBy, id)
}

// UpdateTokens replaces both access tokens in a single statement so a form
// never carries one old and one new token
func (r *ReviewFormRepository) UpdateTokens(id, buddyToken, jcToken string, expiresAt *time.Time) error {
	query := `
		UPDATE review_forms
		SET buddy_access_token = $1, jc_access_token = $2, token_expires_at = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.db.Exec(query, buddyToken, jcToken, expiresAt, time.Now(), id)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return ErrTokenCollision
	}
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	if rows == 0 {
		return ErrReviewFormNotFound
	}

	return nil
}

// Delete deletes a review form
func (r *ReviewFormRepository) Delete(id string) error {
	query := `DELETE FROM review_forms WHERE id = $1`
	return r.execExpectingRow(query, id)
}

func (r *ReviewFormRepository) execExpectingRow(query string, args ...any) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update review form: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update review form: %w", err)
	}
	if rows == 0 {
		return ErrReviewFormNotFound
	}

	return nil
}
