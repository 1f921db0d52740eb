package service

import (
	"testing"
	"time"

	"github.com/conradkoh/jcep-sub000/internal/models"
	"github.com/stretchr/testify/assert"
)

func validCreateInput() CreateReviewFormInput {
	return CreateReviewFormInput{
		RotationYear:        2026,
		RotationQuarter:     2,
		BuddyUserID:         "buddy-1",
		JuniorCommanderName: "Alex Tan",
		AgeGroup:            models.AgeGroupJunior,
		EvaluationDate:      time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	}
}

func TestValidateCreateInput(t *testing.T) {
	assert.NoError(t, validateCreateInput(validCreateInput()))

	badQuarter := validCreateInput()
	badQuarter.RotationQuarter = 5
	assert.ErrorIs(t, validateCreateInput(badQuarter), ErrValidation)

	badAgeGroup := validCreateInput()
	badAgeGroup.AgeGroup = "toddler"
	assert.ErrorIs(t, validateCreateInput(badAgeGroup), ErrValidation)

	noName := validCreateInput()
	noName.JuniorCommanderName = ""
	assert.ErrorIs(t, validateCreateInput(noName), ErrValidation)

	noDate := validCreateInput()
	noDate.EvaluationDate = time.Time{}
	assert.ErrorIs(t, validateCreateInput(noDate), ErrValidation)
}

func validApplicationInput() SubmitApplicationInput {
	return SubmitApplicationInput{
		FullName:      "Jamie Lee",
		Email:         "jamie@example.com",
		Phone:         "91234567",
		DateOfBirth:   time.Date(2012, 3, 14, 0, 0, 0, 0, time.UTC),
		School:        "Hillview Secondary",
		GuardianName:  "Pat Lee",
		GuardianPhone: "98765432",
		FirstChoice:   models.AgeGroupChoice{AgeGroup: models.AgeGroupJunior, Reason: "I enjoy outdoor activities"},
		Acknowledged:  true,
	}
}

// Validation runs before any repository access, so a zero-value service is
// enough to exercise the rejection paths.
func TestSubmitApplicationValidation(t *testing.T) {
	svc := &ApplicationService{}

	notAcknowledged := validApplicationInput()
	notAcknowledged.Acknowledged = false
	_, err := svc.Submit(notAcknowledged)
	assert.ErrorIs(t, err, ErrValidation)

	badGroup := validApplicationInput()
	badGroup.FirstChoice.AgeGroup = "adult"
	_, err = svc.Submit(badGroup)
	assert.ErrorIs(t, err, ErrValidation)

	noReason := validApplicationInput()
	noReason.FirstChoice.Reason = ""
	_, err = svc.Submit(noReason)
	assert.ErrorIs(t, err, ErrValidation)

	sameChoice := validApplicationInput()
	sameChoice.SecondChoice = &models.AgeGroupChoice{AgeGroup: models.AgeGroupJunior, Reason: "backup"}
	_, err = svc.Submit(sameChoice)
	assert.ErrorIs(t, err, ErrValidation)

	badSecond := validApplicationInput()
	badSecond.SecondChoice = &models.AgeGroupChoice{AgeGroup: "adult", Reason: "backup"}
	_, err = svc.Submit(badSecond)
	assert.ErrorIs(t, err, ErrValidation)
}
