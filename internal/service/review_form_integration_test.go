package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conradkoh/jcep-sub000/internal/config"
	"github.com/conradkoh/jcep-sub000/internal/email"
	"github.com/conradkoh/jcep-sub000/internal/models"
	"github.com/conradkoh/jcep-sub000/internal/repository"
	"github.com/conradkoh/jcep-sub000/internal/service"
	"github.com/conradkoh/jcep-sub000/internal/testutil"
)

func newReviewFormService(t *testing.T, containers *testutil.TestContainers) *service.ReviewFormService {
	t.Helper()

	return service.NewReviewFormService(
		repository.NewReviewFormRepository(containers.DB),
		repository.NewUserRepository(containers.DB),
		repository.NewAuditRepository(containers.DB),
		email.NewService(&config.EmailConfig{Enabled: false}),
		&config.ReviewConfig{TokenTTL: 0},
		&config.AppConfig{BaseURL: "http://localhost:3000"},
	)
}

func adminAccess(f *testutil.Fixtures) service.SessionAccess {
	return service.SessionAccess{UserID: f.AdminUser.ID, Roles: []string{"admin"}}
}

func buddyAccess(f *testutil.Fixtures) service.SessionAccess {
	return service.SessionAccess{UserID: f.BuddyUser.ID, Roles: []string{"buddy"}}
}

func qa(question, answer string) models.QA {
	return models.QA{Question: question, Answer: answer}
}

func createTestForm(t *testing.T, svc *service.ReviewFormService, f *testutil.Fixtures) (*models.ReviewForm, *service.AccessLinks) {
	t.Helper()

	form, links, err := svc.Create(service.CreateReviewFormInput{
		RotationYear:        2026,
		RotationQuarter:     1,
		BuddyUserID:         f.BuddyUser.ID,
		JuniorCommanderName: "Jamie Tan",
		AgeGroup:            models.AgeGroupJunior,
		EvaluationDate:      time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}, f.AdminUser.ID)
	require.NoError(t, err)
	require.NotNil(t, form)
	require.NotNil(t, links)
	return form, links
}

// tokenFromLink extracts the trailing token from an access link
func tokenFromLink(link string) string {
	for i := len(link) - 1; i >= 0; i-- {
		if link[i] == '/' {
			return link[i+1:]
		}
	}
	return link
}

func TestReviewFormLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)
	fixtures := testutil.SetupFixtures(t, containers.DB)

	svc := newReviewFormService(t, containers)
	form, links := createTestForm(t, svc, fixtures)

	assert.Equal(t, models.StatusDraft, form.Status)
	buddyToken := service.TokenAccess{Secret: tokenFromLink(links.BuddyLink)}
	jcToken := service.TokenAccess{Secret: tokenFromLink(links.JCLink)}

	// The buddy token resolves to the buddy role and cannot see JC sections.
	view, err := svc.Get(buddyToken, "")
	require.NoError(t, err)
	assert.Equal(t, service.FormRoleBuddy, view.Role)
	assert.Nil(t, view.JCReflection)
	assert.Nil(t, view.JCFeedback)

	// Submission before any sections exist is rejected.
	_, err = svc.Submit(buddyToken, "")
	assert.ErrorIs(t, err, service.ErrIncompleteForm)

	// First section write moves the form out of draft.
	view, err = svc.UpdateBuddyEvaluation(buddyToken, "", service.BuddyEvaluationInput{
		Attitude:       qa("How was their attitude?", "Consistently positive"),
		Teamwork:       qa("How did they work with others?", "Great collaborator"),
		Strengths:      qa("What are their strengths?", "Curiosity"),
		AreasForGrowth: qa("Where can they grow?", "Public speaking"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, view.Status)
	assert.True(t, view.Completeness.BuddyEvaluation)
	// Token writers have no user account to attribute.
	assert.Nil(t, view.BuddyEvaluation.CompletedBy)

	// The buddy token cannot touch JC sections.
	_, err = svc.UpdateJCFeedback(buddyToken, "", service.JCFeedbackInput{
		BuddySupport: qa("Did your buddy support you?", "Yes"),
		Suggestions:  qa("Any suggestions?", "None"),
	})
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	// Still missing two sections.
	_, err = svc.Submit(jcToken, "")
	assert.ErrorIs(t, err, service.ErrIncompleteForm)

	// The buddy of record may fix the particulars; the JC may not.
	particulars := service.ParticularsInput{
		RotationYear:        2026,
		RotationQuarter:     2,
		JuniorCommanderName: "Jamie Tan",
		AgeGroup:            models.AgeGroupIntermediate,
		EvaluationDate:      time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
	}
	view, err = svc.UpdateParticulars(buddyAccess(fixtures), form.ID, particulars)
	require.NoError(t, err)
	assert.Equal(t, 2, view.RotationQuarter)
	assert.Equal(t, models.AgeGroupIntermediate, view.AgeGroup)

	_, err = svc.UpdateParticulars(jcToken, "", particulars)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	preference := models.PreferenceContinueSameBuddy
	_, err = svc.UpdateJCReflection(jcToken, "", service.JCReflectionInput{
		EnjoyedMost:            qa("What did you enjoy most?", "The drone project"),
		Challenges:             qa("What was challenging?", "Time management"),
		Learnings:              qa("What did you learn?", "Soldering"),
		Goals:                  qa("Goals for next rotation?", "Lead a project"),
		NextRotationPreference: &preference,
	})
	require.NoError(t, err)

	view, err = svc.UpdateJCFeedback(jcToken, "", service.JCFeedbackInput{
		BuddySupport: qa("Did your buddy support you?", "Always available"),
		Suggestions:  qa("Any suggestions?", "More hands-on sessions"),
	})
	require.NoError(t, err)
	assert.True(t, view.Completeness.JCReflection)
	assert.True(t, view.Completeness.JCFeedback)

	// All sections present: submission succeeds.
	view, err = svc.Submit(jcToken, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, view.Status)
	require.NotNil(t, view.SubmittedAt)

	// Submitted forms are frozen for everyone, including admins.
	_, err = svc.UpdateBuddyEvaluation(adminAccess(fixtures), form.ID, service.BuddyEvaluationInput{
		Attitude:       qa("q", "a"),
		Teamwork:       qa("q", "a"),
		Strengths:      qa("q", "a"),
		AreasForGrowth: qa("q", "a"),
	})
	assert.ErrorIs(t, err, service.ErrFormSubmitted)
	_, err = svc.Submit(adminAccess(fixtures), form.ID)
	assert.ErrorIs(t, err, service.ErrFormSubmitted)
	_, err = svc.UpdateParticulars(adminAccess(fixtures), form.ID, particulars)
	assert.ErrorIs(t, err, service.ErrFormSubmitted)

	// Visibility changes remain allowed after submission.
	visible := true
	view, err = svc.UpdateVisibility(adminAccess(fixtures), form.ID, service.VisibilityInput{
		JCResponsesVisibleToBuddy: &visible,
	})
	require.NoError(t, err)
	assert.True(t, view.JCResponsesVisibleToBuddy)

	// The buddy can now read JC responses.
	view, err = svc.Get(buddyToken, "")
	require.NoError(t, err)
	require.NotNil(t, view.JCReflection)
	assert.Equal(t, "The drone project", view.JCReflection.EnjoyedMost.Answer)
}

func TestReviewFormSubmitAcceptsIncompleteAnswers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)
	fixtures := testutil.SetupFixtures(t, containers.DB)

	svc := newReviewFormService(t, containers)
	form, _ := createTestForm(t, svc, fixtures)

	admin := adminAccess(fixtures)

	// Sections saved with blank answers still count as present.
	_, err := svc.UpdateBuddyEvaluation(admin, form.ID, service.BuddyEvaluationInput{
		Attitude: qa("How was their attitude?", "  "),
	})
	require.NoError(t, err)
	_, err = svc.UpdateJCReflection(admin, form.ID, service.JCReflectionInput{
		EnjoyedMost: qa("What did you enjoy most?", ""),
	})
	require.NoError(t, err)
	_, err = svc.UpdateJCFeedback(admin, form.ID, service.JCFeedbackInput{
		BuddySupport: qa("Did your buddy support you?", ""),
	})
	require.NoError(t, err)

	view, err := svc.Submit(admin, form.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, view.Status)
	// Completeness still reflects the trimmed answers.
	assert.False(t, view.Completeness.BuddyEvaluation)
}

func TestReviewFormTokenExpiryAndRegeneration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)
	fixtures := testutil.SetupFixtures(t, containers.DB)

	svc := newReviewFormService(t, containers)
	form, links := createTestForm(t, svc, fixtures)

	buddySecret := tokenFromLink(links.BuddyLink)

	// An unknown token is indistinguishable from a missing form.
	_, err := svc.Get(service.TokenAccess{Secret: "no-such-token"}, "")
	assert.ErrorIs(t, err, service.ErrNotFound)

	// Expire the tokens directly; the service reports Gone-style expiry,
	// not a 404.
	past := time.Now().Add(-time.Hour)
	_, err = containers.DB.Exec(`UPDATE review_forms SET token_expires_at = $1 WHERE id = $2`, past, form.ID)
	require.NoError(t, err)

	_, err = svc.Get(service.TokenAccess{Secret: buddySecret}, "")
	assert.ErrorIs(t, err, service.ErrTokenExpired)

	// Regeneration replaces both tokens at once and revives access.
	newLinks, err := svc.RegenerateTokens(adminAccess(fixtures), form.ID)
	require.NoError(t, err)
	assert.NotEqual(t, links.BuddyLink, newLinks.BuddyLink)
	assert.NotEqual(t, links.JCLink, newLinks.JCLink)

	_, err = svc.Get(service.TokenAccess{Secret: buddySecret}, "")
	assert.ErrorIs(t, err, service.ErrNotFound)

	view, err := svc.Get(service.TokenAccess{Secret: tokenFromLink(newLinks.BuddyLink)}, "")
	require.NoError(t, err)
	assert.Equal(t, service.FormRoleBuddy, view.Role)
}

func TestReviewFormListPermissions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)
	fixtures := testutil.SetupFixtures(t, containers.DB)

	svc := newReviewFormService(t, containers)
	form, _ := createTestForm(t, svc, fixtures)

	otherBuddy := testutil.CreateTestUser(t, containers.DB, "buddy2@test.org", "Ben", "Other", "buddy")
	_, _, err := svc.Create(service.CreateReviewFormInput{
		RotationYear:        2025,
		RotationQuarter:     4,
		BuddyUserID:         otherBuddy.ID,
		JuniorCommanderName: "Casey Lim",
		AgeGroup:            models.AgeGroupSenior,
		EvaluationDate:      time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
	}, fixtures.AdminUser.ID)
	require.NoError(t, err)

	// Admins see everything.
	views, err := svc.List(adminAccess(fixtures), repository.ReviewFormFilters{})
	require.NoError(t, err)
	assert.Len(t, views, 2)

	// Buddies see only their own forms, regardless of filters.
	views, err = svc.List(buddyAccess(fixtures), repository.ReviewFormFilters{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, form.ID, views[0].ID)

	// A signed-in user who is not a participant cannot read the form.
	_, err = svc.Get(service.SessionAccess{UserID: otherBuddy.ID, Roles: []string{"buddy"}}, form.ID)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	// Rotation years are an admin view.
	years, err := svc.GetRotationYears(adminAccess(fixtures))
	require.NoError(t, err)
	assert.Equal(t, []int{2026, 2025}, years)

	_, err = svc.GetRotationYears(buddyAccess(fixtures))
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	// Year filter narrows the admin listing.
	year := 2025
	views, err = svc.List(adminAccess(fixtures), repository.ReviewFormFilters{RotationYear: &year})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 2025, views[0].RotationYear)
}
