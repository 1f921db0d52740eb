package models

import "time"

// AgeGroupChoice is one ranked age-group preference on an application.
type AgeGroupChoice struct {
	AgeGroup string `json:"age_group"`
	Reason   string `json:"reason"`
}

// Application is a single programme application. It has no lifecycle beyond
// active/archived.
type Application struct {
	ID            string    `json:"id" db:"id"`
	FullName      string    `json:"full_name" db:"full_name"`
	Email         string    `json:"email" db:"email"`
	Phone         string    `json:"phone" db:"phone"`
	DateOfBirth   time.Time `json:"date_of_birth" db:"date_of_birth"`
	School        string    `json:"school" db:"school"`
	GuardianName  string    `json:"guardian_name" db:"guardian_name"`
	GuardianPhone string    `json:"guardian_phone" db:"guardian_phone"`

	FirstChoice  AgeGroupChoice  `json:"first_choice"`
	SecondChoice *AgeGroupChoice `json:"second_choice,omitempty"`

	Acknowledged    bool `json:"acknowledged" db:"acknowledged"`
	ApplicationYear int  `json:"application_year" db:"application_year"`

	ArchivedAt *time.Time `json:"archived_at,omitempty" db:"archived_at"`
	ArchivedBy *string    `json:"archived_by,omitempty" db:"archived_by"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// IsArchived reports whether the application has been archived.
func (a *Application) IsArchived() bool {
	return a.ArchivedAt != nil
}

// ApplicationYearCount is the number of applications received in one year.
type ApplicationYearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}
