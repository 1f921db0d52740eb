package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/conradkoh/jcep-sub000/internal/email"
	"github.com/conradkoh/jcep-sub000/internal/models"
	"github.com/conradkoh/jcep-sub000/internal/repository"
)

// ApplicationService handles business logic for programme applications
type ApplicationService struct {
	appRepo   *repository.ApplicationRepository
	auditRepo *repository.AuditRepository
	emailSvc  *email.Service
}

// NewApplicationService creates a new application service
func NewApplicationService(
	appRepo *repository.ApplicationRepository,
	auditRepo *repository.AuditRepository,
	emailSvc *email.Service,
) *ApplicationService {
	return &ApplicationService{
		appRepo:   appRepo,
		auditRepo: auditRepo,
		emailSvc:  emailSvc,
	}
}

// SubmitApplicationInput holds the fields of a public programme application
type SubmitApplicationInput struct {
	FullName      string
	Email         string
	Phone         string
	DateOfBirth   time.Time
	School        string
	GuardianName  string
	GuardianPhone string
	FirstChoice   models.AgeGroupChoice
	SecondChoice  *models.AgeGroupChoice
	Acknowledged  bool
}

// Submit records a new public application for the current year
func (s *ApplicationService) Submit(input SubmitApplicationInput) (*models.Application, error) {
	if !input.Acknowledged {
		return nil, fmt.Errorf("%w: the acknowledgement must be accepted", ErrValidation)
	}
	if !models.ValidAgeGroup(input.FirstChoice.AgeGroup) {
		return nil, fmt.Errorf("%w: unknown age group %q", ErrValidation, input.FirstChoice.AgeGroup)
	}
	if input.FirstChoice.Reason == "" {
		return nil, fmt.Errorf("%w: a reason for the first choice is required", ErrValidation)
	}
	if input.SecondChoice != nil {
		if !models.ValidAgeGroup(input.SecondChoice.AgeGroup) {
			return nil, fmt.Errorf("%w: unknown age group %q", ErrValidation, input.SecondChoice.AgeGroup)
		}
		if input.SecondChoice.AgeGroup == input.FirstChoice.AgeGroup {
			return nil, fmt.Errorf("%w: second choice must differ from first choice", ErrValidation)
		}
	}

	app := &models.Application{
		FullName:        input.FullName,
		Email:           input.Email,
		Phone:           input.Phone,
		DateOfBirth:     input.DateOfBirth,
		School:          input.School,
		GuardianName:    input.GuardianName,
		GuardianPhone:   input.GuardianPhone,
		FirstChoice:     input.FirstChoice,
		SecondChoice:    input.SecondChoice,
		Acknowledged:    input.Acknowledged,
		ApplicationYear: time.Now().Year(),
	}

	if err := s.appRepo.Create(app); err != nil {
		return nil, err
	}

	s.audit(nil, "create", "application",
		fmt.Sprintf("Received application %s for year %d", app.ID, app.ApplicationYear))

	// Confirmation is best effort; the application is already recorded.
	if err := s.emailSvc.SendApplicationReceived(app.Email, app.FullName, app.ApplicationYear); err != nil {
		slog.Error("Failed to send application confirmation", "application_id", app.ID, "error", err)
	}

	return app, nil
}

// GetByID retrieves one application
func (s *ApplicationService) GetByID(id string) (*models.Application, error) {
	app, err := s.appRepo.GetByID(id)
	if errors.Is(err, repository.ErrApplicationNotFound) {
		return nil, ErrNotFound
	}
	return app, err
}

// List retrieves applications matching the filters
func (s *ApplicationService) List(filters repository.ApplicationFilters) ([]models.Application, error) {
	return s.appRepo.GetAll(filters)
}

// Archive flags an application as archived without deleting it
func (s *ApplicationService) Archive(id, archivedBy string) error {
	app, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if app.IsArchived() {
		return ErrAlreadyArchived
	}

	if err := s.appRepo.Archive(id, archivedBy); err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.audit(&archivedBy, "archive", "application", fmt.Sprintf("Archived application %s", id))
	return nil
}

// Unarchive clears the archive flag on an application
func (s *ApplicationService) Unarchive(id, actorID string) error {
	app, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if !app.IsArchived() {
		return ErrNotArchived
	}

	if err := s.appRepo.Unarchive(id); err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.audit(&actorID, "unarchive", "application", fmt.Sprintf("Unarchived application %s", id))
	return nil
}

// CountByYear returns per-year application counts, archived included
func (s *ApplicationService) CountByYear() ([]models.ApplicationYearCount, error) {
	return s.appRepo.CountByYear()
}

func (s *ApplicationService) audit(userID *string, action, resource, details string) {
	if err := s.auditRepo.Create(&models.AuditLog{
		UserID:   userID,
		Action:   action,
		Resource: resource,
		Details:  details,
	}); err != nil {
		slog.Error("Failed to write audit log", "action", action, "resource", resource, "error", err)
	}
}
