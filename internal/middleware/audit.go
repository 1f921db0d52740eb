package middleware

import (
	"database/sql"
	"net/http"

	"github.com/conradkoh/jcep-sub000/internal/models"
	"github.com/conradkoh/jcep-sub000/internal/repository"
)

// AuditMiddleware logs security-related actions
type AuditMiddleware struct {
	auditRepo *repository.AuditRepository
}

// NewAuditMiddleware creates a new audit middleware
func NewAuditMiddleware(db *sql.DB) *AuditMiddleware {
	return &AuditMiddleware{
		auditRepo: repository.NewAuditRepository(db),
	}
}

// Log logs an action to the audit log after the handler has run
func (m *AuditMiddleware) Log(action, resource string, details string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			var userID *string
			if id, ok := GetUserID(r); ok {
				userID = &id
			}
			var userEmail *string
			if email, ok := GetUserEmail(r); ok {
				userEmail = &email
			}

			entry := &models.AuditLog{
				UserID:    userID,
				UserEmail: userEmail,
				Action:    action,
				Resource:  resource,
				Details:   details,
				IPAddress: clientIP(r),
				UserAgent: r.UserAgent(),
			}

			// Save to database (ignore errors to not block the request)
			_ = m.auditRepo.Create(entry)
		})
	}
}

// LogAction logs a specific action
func (m *AuditMiddleware) LogAction(userID, userEmail *string, action, resource, details, ipAddress, userAgent string) error {
	entry := &models.AuditLog{
		UserID:    userID,
		UserEmail: userEmail,
		Action:    action,
		Resource:  resource,
		Details:   details,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	return m.auditRepo.Create(entry)
}
