package handlers

// Common error message constants shared across handlers
const (
	ErrMsgInvalidRequestBody = "Invalid request body"
	ErrMsgUnauthorized       = "Unauthorized"
	ErrMsgPermissionDenied   = "Permission denied"
	ErrMsgNotFound           = "Not found"
	ErrMsgTokenExpired       = "Access link has expired"
	ErrMsgInternalError      = "Internal server error"
)

// API path constants
const (
	AuthAPIBasePath = "/api/v1/auth"
)
