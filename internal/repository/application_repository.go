package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conradkoh/jcep-sub000/internal/models"
	"github.com/google/uuid"
)

var ErrApplicationNotFound = errors.New("application not found")

// ApplicationRepository handles programme application database operations
type ApplicationRepository struct {
	db *sql.DB
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `
	id, full_name, email, phone, date_of_birth, school, guardian_name, guardian_phone,
	first_choice_age_group, first_choice_reason, second_choice_age_group, second_choice_reason,
	acknowledged, application_year, archived_at, archived_by, created_at
`

func scanApplication(row interface{ Scan(...any) error }) (*models.Application, error) {
	app := &models.Application{}
	var secondGroup, secondReason sql.NullString

	err := row.Scan(
		&app.ID,
		&app.FullName,
		&app.Email,
		&app.Phone,
		&app.DateOfBirth,
		&app.School,
		&app.GuardianName,
		&app.GuardianPhone,
		&app.FirstChoice.AgeGroup,
		&app.FirstChoice.Reason,
		&secondGroup,
		&secondReason,
		&app.Acknowledged,
		&app.ApplicationYear,
		&app.ArchivedAt,
		&app.ArchivedBy,
		&app.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if secondGroup.Valid {
		app.SecondChoice = &models.AgeGroupChoice{
			AgeGroup: secondGroup.String,
			Reason:   secondReason.String,
		}
	}

	return app, nil
}

// Create inserts a new application
func (r *ApplicationRepository) Create(app *models.Application) error {
	query := `
		INSERT INTO applications (
			id, full_name, email, phone, date_of_birth, school, guardian_name, guardian_phone,
			first_choice_age_group, first_choice_reason, second_choice_age_group, second_choice_reason,
			acknowledged, application_year, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now()
	}

	var secondGroup, secondReason *string
	if app.SecondChoice != nil {
		secondGroup = &app.SecondChoice.AgeGroup
		secondReason = &app.SecondChoice.Reason
	}

	_, err := r.db.Exec(
		query,
		app.ID,
		app.FullName,
		app.Email,
		app.Phone,
		app.DateOfBirth,
		app.School,
		app.GuardianName,
		app.GuardianPhone,
		app.FirstChoice.AgeGroup,
		app.FirstChoice.Reason,
		secondGroup,
		secondReason,
		app.Acknowledged,
		app.ApplicationYear,
		app.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return nil
}

// GetByID retrieves an application by ID
func (r *ApplicationRepository) GetByID(id string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	app, err := scanApplication(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	return app, nil
}

// ApplicationFilters holds filter parameters for application queries.
// Archived is tri-state: nil returns everything, false returns active
// entries only, true returns archived entries only.
type ApplicationFilters struct {
	Year     *int
	Archived *bool
}

// GetAll retrieves applications matching the filters, newest first
func (r *ApplicationRepository) GetAll(filters ApplicationFilters) ([]models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE 1=1`

	args := []interface{}{}
	argPos := 1

	if filters.Archived != nil {
		if *filters.Archived {
			query += ` AND archived_at IS NOT NULL`
		} else {
			query += ` AND archived_at IS NULL`
		}
	}

	if filters.Year != nil {
		query += fmt.Sprintf(` AND application_year = $%d`, argPos)
		args = append(args, *filters.Year)
		argPos++
	}

	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get applications: %w", err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, *app)
	}

	return apps, nil
}

// Archive marks an application as archived
func (r *ApplicationRepository) Archive(id, archivedBy string) error {
	query := `
		UPDATE applications
		SET archived_at = $1, archived_by = $2
		WHERE id = $3
	`

	result, err := r.db.Exec(query, time.Now(), archivedBy, id)
	if err != nil {
		return fmt.Errorf("failed to archive application: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to archive application: %w", err)
	}
	if rows == 0 {
		return ErrApplicationNotFound
	}

	return nil
}

// Unarchive clears the archive markers on an application
func (r *ApplicationRepository) Unarchive(id string) error {
	query := `
		UPDATE applications
		SET archived_at = NULL, archived_by = NULL
		WHERE id = $1
	`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to unarchive application: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to unarchive application: %w", err)
	}
	if rows == 0 {
		return ErrApplicationNotFound
	}

	return nil
}

// CountByYear returns per-year application counts, most recent year first.
// Archived applications are included; archiving hides, it does not delete.
func (r *ApplicationRepository) CountByYear() ([]models.ApplicationYearCount, error) {
	query := `
		SELECT application_year, COUNT(*)
		FROM applications
		GROUP BY application_year
		ORDER BY application_year DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to count applications by year: %w", err)
	}
	defer rows.Close()

	var counts []models.ApplicationYearCount
	for rows.Next() {
		var c models.ApplicationYearCount
		if err := rows.Scan(&c.Year, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan application count: %w", err)
		}
		counts = append(counts, c)
	}

	return counts, nil
}

// Delete deletes an application
func (r *ApplicationRepository) Delete(id string) error {
	query := `DELETE FROM applications WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	if rows == 0 {
		return ErrApplicationNotFound
	}

	return nil
}
