package service

import "errors"

// Sentinel errors shared across services. Handlers map these to HTTP status
// codes with errors.Is.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTokenExpired     = errors.New("access token has expired")
	ErrValidation       = errors.New("validation failed")

	// ErrFormSubmitted is returned for any write against a submitted form.
	// Submission is terminal for everyone, including admins.
	ErrFormSubmitted = errors.New("review form has been submitted and can no longer be modified")

	// ErrIncompleteForm is returned when a form is submitted before every
	// section has been saved at least once.
	ErrIncompleteForm = errors.New("all sections must be filled in before submission")

	ErrAlreadyArchived = errors.New("application is already archived")
	ErrNotArchived     = errors.New("application is not archived")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user account is inactive")
)
