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

func newApplicationService(t *testing.T, containers *testutil.TestContainers) *service.ApplicationService {
	t.Helper()

	return service.NewApplicationService(
		repository.NewApplicationRepository(containers.DB),
		repository.NewAuditRepository(containers.DB),
		email.NewService(&config.EmailConfig{Enabled: false}),
	)
}

func submitTestApplication(t *testing.T, svc *service.ApplicationService, fullName, email string) *models.Application {
	t.Helper()

	app, err := svc.Submit(service.SubmitApplicationInput{
		FullName:      fullName,
		Email:         email,
		Phone:         "+65 9123 4567",
		DateOfBirth:   time.Date(2012, 6, 1, 0, 0, 0, 0, time.UTC),
		School:        "Riverside Secondary",
		GuardianName:  "Pat Lee",
		GuardianPhone: "+65 9765 4321",
		FirstChoice: models.AgeGroupChoice{
			AgeGroup: models.AgeGroupJunior,
			Reason:   "I want to learn robotics",
		},
		Acknowledged: true,
	})
	require.NoError(t, err)
	return app
}

func TestApplicationArchiveFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)
	fixtures := testutil.SetupFixtures(t, containers.DB)

	svc := newApplicationService(t, containers)

	first := submitTestApplication(t, svc, "Dana Ong", "dana@test.org")
	second := submitTestApplication(t, svc, "Eli Wong", "eli@test.org")

	assert.Equal(t, time.Now().Year(), first.ApplicationYear)
	assert.False(t, first.IsArchived())

	require.NoError(t, svc.Archive(first.ID, fixtures.AdminUser.ID))

	// The archived filter is tri-state: active-only, archived-only, or both.
	activeOnly, archivedOnly := false, true

	apps, err := svc.List(repository.ApplicationFilters{Archived: &activeOnly})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, second.ID, apps[0].ID)

	apps, err = svc.List(repository.ApplicationFilters{Archived: &archivedOnly})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, first.ID, apps[0].ID)

	apps, err = svc.List(repository.ApplicationFilters{})
	require.NoError(t, err)
	assert.Len(t, apps, 2)

	// Archiving twice is a conflict, not a no-op.
	err = svc.Archive(first.ID, fixtures.AdminUser.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyArchived)

	// Counts include archived entries: archiving hides, it does not delete.
	counts, err := svc.CountByYear()
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, time.Now().Year(), counts[0].Year)
	assert.Equal(t, 2, counts[0].Count)

	// Unarchiving restores the entry.
	require.NoError(t, svc.Unarchive(first.ID, fixtures.AdminUser.ID))

	restored, err := svc.GetByID(first.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsArchived())

	err = svc.Unarchive(first.ID, fixtures.AdminUser.ID)
	assert.ErrorIs(t, err, service.ErrNotArchived)

	// Unknown IDs map to not found.
	err = svc.Archive("00000000-0000-0000-0000-000000000000", fixtures.AdminUser.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestApplicationSecondChoicePersistence(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	svc := newApplicationService(t, containers)

	app, err := svc.Submit(service.SubmitApplicationInput{
		FullName:      "Farah Nair",
		Email:         "farah@test.org",
		Phone:         "+65 9000 0000",
		DateOfBirth:   time.Date(2010, 2, 14, 0, 0, 0, 0, time.UTC),
		School:        "Hillview Secondary",
		GuardianName:  "Nadia Nair",
		GuardianPhone: "+65 9111 1111",
		FirstChoice: models.AgeGroupChoice{
			AgeGroup: models.AgeGroupSenior,
			Reason:   "Ready for harder challenges",
		},
		SecondChoice: &models.AgeGroupChoice{
			AgeGroup: models.AgeGroupIntermediate,
			Reason:   "Fallback if senior is full",
		},
		Acknowledged: true,
	})
	require.NoError(t, err)

	stored, err := svc.GetByID(app.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.SecondChoice)
	assert.Equal(t, models.AgeGroupIntermediate, stored.SecondChoice.AgeGroup)
	assert.Equal(t, "Fallback if senior is full", stored.SecondChoice.Reason)

	// An omitted second choice round-trips as nil, not as an empty value.
	other := submitTestApplication(t, svc, "Gina Teo", "gina@test.org")
	stored, err = svc.GetByID(other.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.SecondChoice)
}
