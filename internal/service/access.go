package service

import (
	"github.com/conradkoh/jcep-sub000/internal/models"
)

// AccessContext identifies who is asking: an authenticated session or the
// bearer of an anonymous access token.
type AccessContext interface {
	accessContext()
}

// SessionAccess is an authenticated user with their resolved roles.
type SessionAccess struct {
	UserID string
	Roles  []string
}

func (SessionAccess) accessContext() {}

// TokenAccess is an anonymous caller presenting a review form access token.
type TokenAccess struct {
	Secret string
}

func (TokenAccess) accessContext() {}

// FormRole is the role a caller holds on one specific review form.
type FormRole string

const (
	FormRoleAdmin FormRole = "admin"
	FormRoleBuddy FormRole = "buddy"
	FormRoleJC    FormRole = "junior_commander"
)

// FormAccess is the resolved relationship between a caller and a form. All
// permission decisions flow from it.
type FormAccess struct {
	Form *models.ReviewForm
	Role FormRole

	// ActorUserID is nil for token-based callers, who act anonymously.
	ActorUserID *string
}

// CanEditBuddyEvaluation reports whether the caller may write the buddy
// evaluation section. Submitted-state checks happen separately.
func (a *FormAccess) CanEditBuddyEvaluation() bool {
	return a.Role == FormRoleAdmin || a.Role == FormRoleBuddy
}

// CanEditJCSections reports whether the caller may write the JC reflection
// and feedback sections.
func (a *FormAccess) CanEditJCSections() bool {
	return a.Role == FormRoleAdmin || a.Role == FormRoleJC
}

// CanEditParticulars reports whether the caller may change the form's
// rotation and participant details.
func (a *FormAccess) CanEditParticulars() bool {
	return a.Role == FormRoleAdmin || a.Role == FormRoleBuddy
}

// CanSeeBuddyResponses reports whether the buddy evaluation may be shown to
// the caller. The buddy always sees their own answers; the JC only once an
// admin flips the visibility flag.
func (a *FormAccess) CanSeeBuddyResponses() bool {
	switch a.Role {
	case FormRoleAdmin, FormRoleBuddy:
		return true
	case FormRoleJC:
		return a.Form.BuddyResponsesVisibleToJC
	}
	return false
}

// CanSeeJCResponses reports whether the JC reflection and feedback may be
// shown to the caller.
func (a *FormAccess) CanSeeJCResponses() bool {
	switch a.Role {
	case FormRoleAdmin, FormRoleJC:
		return true
	case FormRoleBuddy:
		return a.Form.JCResponsesVisibleToBuddy
	}
	return false
}

// CanManage reports whether the caller may perform administrative operations
// on the form: visibility changes, token regeneration, and deletion.
func (a *FormAccess) CanManage() bool {
	return a.Role == FormRoleAdmin
}
