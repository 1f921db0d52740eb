package service

import (
	"testing"

	"github.com/conradkoh/jcep-sub000/internal/models"
	"github.com/stretchr/testify/assert"
)

func formWithVisibility(buddyVisibleToJC, jcVisibleToBuddy bool) *models.ReviewForm {
	return &models.ReviewForm{
		ID:                        "form-1",
		BuddyResponsesVisibleToJC: buddyVisibleToJC,
		JCResponsesVisibleToBuddy: jcVisibleToBuddy,
		Status:                    models.StatusInProgress,
	}
}

func TestFormAccessEditRights(t *testing.T) {
	form := formWithVisibility(false, false)

	admin := &FormAccess{Form: form, Role: FormRoleAdmin}
	buddy := &FormAccess{Form: form, Role: FormRoleBuddy}
	jc := &FormAccess{Form: form, Role: FormRoleJC}

	assert.True(t, admin.CanEditBuddyEvaluation())
	assert.True(t, admin.CanEditJCSections())

	assert.True(t, buddy.CanEditBuddyEvaluation())
	assert.False(t, buddy.CanEditJCSections())

	assert.False(t, jc.CanEditBuddyEvaluation())
	assert.True(t, jc.CanEditJCSections())
}

func TestFormAccessVisibilityDefaults(t *testing.T) {
	form := formWithVisibility(false, false)

	buddy := &FormAccess{Form: form, Role: FormRoleBuddy}
	jc := &FormAccess{Form: form, Role: FormRoleJC}

	// Each party always sees their own responses.
	assert.True(t, buddy.CanSeeBuddyResponses())
	assert.True(t, jc.CanSeeJCResponses())

	// Cross-visibility is off until an admin flips the flags.
	assert.False(t, buddy.CanSeeJCResponses())
	assert.False(t, jc.CanSeeBuddyResponses())
}

func TestFormAccessVisibilityFlags(t *testing.T) {
	form := formWithVisibility(true, true)

	buddy := &FormAccess{Form: form, Role: FormRoleBuddy}
	jc := &FormAccess{Form: form, Role: FormRoleJC}

	assert.True(t, buddy.CanSeeJCResponses())
	assert.True(t, jc.CanSeeBuddyResponses())
}

func TestFormAccessManage(t *testing.T) {
	form := formWithVisibility(false, false)

	assert.True(t, (&FormAccess{Form: form, Role: FormRoleAdmin}).CanManage())
	assert.False(t, (&FormAccess{Form: form, Role: FormRoleBuddy}).CanManage())
	assert.False(t, (&FormAccess{Form: form, Role: FormRoleJC}).CanManage())
}

func TestBuildViewRedaction(t *testing.T) {
	pref := models.PreferenceNewBuddy
	form := formWithVisibility(false, false)
	form.BuddyEvaluation = &models.BuddyEvaluation{Attitude: models.QA{Question: "q", Answer: "a"}}
	form.JCReflection = &models.JCReflection{EnjoyedMost: models.QA{Question: "q", Answer: "a"}}
	form.JCFeedback = &models.JCFeedback{BuddySupport: models.QA{Question: "q", Answer: "a"}}
	form.NextRotationPreference = &pref

	buddyView := buildView(&FormAccess{Form: form, Role: FormRoleBuddy})
	assert.NotNil(t, buddyView.BuddyEvaluation)
	assert.Nil(t, buddyView.JCReflection)
	assert.Nil(t, buddyView.JCFeedback)
	assert.Nil(t, buddyView.NextRotationPreference)

	jcView := buildView(&FormAccess{Form: form, Role: FormRoleJC})
	assert.Nil(t, jcView.BuddyEvaluation)
	assert.NotNil(t, jcView.JCReflection)
	assert.NotNil(t, jcView.JCFeedback)
	assert.NotNil(t, jcView.NextRotationPreference)

	adminView := buildView(&FormAccess{Form: form, Role: FormRoleAdmin})
	assert.NotNil(t, adminView.BuddyEvaluation)
	assert.NotNil(t, adminView.JCReflection)

	// Redaction must not mutate the underlying form.
	assert.NotNil(t, form.BuddyEvaluation)
	assert.NotNil(t, form.JCReflection)
}

func TestBuildViewCompletenessIgnoresRedaction(t *testing.T) {
	form := formWithVisibility(false, false)
	form.BuddyEvaluation = &models.BuddyEvaluation{
		Attitude:       models.QA{Question: "q", Answer: "a"},
		Teamwork:       models.QA{Question: "q", Answer: "a"},
		Strengths:      models.QA{Question: "q", Answer: "a"},
		AreasForGrowth: models.QA{Question: "q", Answer: "a"},
	}

	// The JC cannot read the buddy section but still sees its progress.
	view := buildView(&FormAccess{Form: form, Role: FormRoleJC})
	assert.Nil(t, view.BuddyEvaluation)
	assert.True(t, view.Completeness.BuddyEvaluation)
}

func TestNextStatus(t *testing.T) {
	assert.Equal(t, models.StatusInProgress, nextStatus(models.StatusDraft))
	assert.Equal(t, models.StatusInProgress, nextStatus(models.StatusInProgress))
}
