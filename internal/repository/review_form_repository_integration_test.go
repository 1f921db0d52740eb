package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conradkoh/jcep-sub000/internal/models"
	"github.com/conradkoh/jcep-sub000/internal/repository"
	"github.com/conradkoh/jcep-sub000/internal/testutil"
)

func newTestReviewForm(fixtures *testutil.Fixtures, buddyToken, jcToken string) *models.ReviewForm {
	return &models.ReviewForm{
		SchemaVersion:       1,
		BuddyAccessToken:    buddyToken,
		JCAccessToken:       jcToken,
		RotationYear:        2026,
		RotationQuarter:     1,
		BuddyUserID:         fixtures.BuddyUser.ID,
		BuddyName:           "Alex Lim",
		JuniorCommanderName: "Jamie Tan",
		AgeGroup:            models.AgeGroupJunior,
		EvaluationDate:      time.Now(),
		Status:              models.StatusDraft,
		CreatedBy:           fixtures.AdminUser.ID,
	}
}

func TestReviewFormTokenUniqueness(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)
	fixtures := testutil.SetupFixtures(t, containers.DB)

	repo := repository.NewReviewFormRepository(containers.DB)

	first := newTestReviewForm(fixtures, "buddy-token-one", "jc-token-one")
	require.NoError(t, repo.Create(first))

	// A token assigned to an existing form cannot be reused; the insert
	// surfaces the collision instead of retrying.
	dup := newTestReviewForm(fixtures, "buddy-token-one", "jc-token-two")
	err := repo.Create(dup)
	assert.ErrorIs(t, err, repository.ErrTokenCollision)

	// Collisions across the two token columns count too.
	dup = newTestReviewForm(fixtures, "jc-token-one", "jc-token-three")
	err = repo.Create(dup)
	assert.ErrorIs(t, err, repository.ErrTokenCollision)

	exists, err := repo.TokenExists("buddy-token-one")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.TokenExists("jc-token-one")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.TokenExists("never-issued")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReviewFormUpdateTokensCollision(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)
	fixtures := testutil.SetupFixtures(t, containers.DB)

	repo := repository.NewReviewFormRepository(containers.DB)

	first := newTestReviewForm(fixtures, "buddy-token-a", "jc-token-a")
	require.NoError(t, repo.Create(first))

	second := newTestReviewForm(fixtures, "buddy-token-b", "jc-token-b")
	require.NoError(t, repo.Create(second))

	// Regenerating into a token another form already holds is an error and
	// must leave the form's original pair intact.
	err := repo.UpdateTokens(second.ID, "buddy-token-fresh", "jc-token-a", nil)
	assert.ErrorIs(t, err, repository.ErrTokenCollision)

	stored, kind, err := repo.GetByAccessToken("buddy-token-b")
	require.NoError(t, err)
	assert.Equal(t, second.ID, stored.ID)
	assert.Equal(t, repository.TokenKindBuddy, kind)

	stored, kind, err = repo.GetByAccessToken("jc-token-b")
	require.NoError(t, err)
	assert.Equal(t, second.ID, stored.ID)
	assert.Equal(t, repository.TokenKindJC, kind)

	// A clean pair replaces both tokens in one statement.
	expiry := time.Now().Add(24 * time.Hour)
	require.NoError(t, repo.UpdateTokens(second.ID, "buddy-token-fresh", "jc-token-fresh", &expiry))

	_, _, err = repo.GetByAccessToken("buddy-token-b")
	assert.ErrorIs(t, err, repository.ErrReviewFormNotFound)

	stored, _, err = repo.GetByAccessToken("jc-token-fresh")
	require.NoError(t, err)
	require.NotNil(t, stored.TokenExpiresAt)
	assert.WithinDuration(t, expiry, *stored.TokenExpiresAt, time.Second)

	err = repo.UpdateTokens("00000000-0000-0000-0000-000000000000", "buddy-token-x", "jc-token-x", nil)
	assert.ErrorIs(t, err, repository.ErrReviewFormNotFound)
}
