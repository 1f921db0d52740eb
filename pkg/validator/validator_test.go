package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	AgeGroup string `validate:"omitempty,oneof=junior intermediate senior advanced"`
}

func TestValidateStruct(t *testing.T) {
	valid := sampleRequest{Email: "a@example.com", Password: "longenough", AgeGroup: "junior"}
	assert.NoError(t, ValidateStruct(&valid))

	missing := sampleRequest{Password: "longenough"}
	err := ValidateStruct(&missing)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Email is required")

	short := sampleRequest{Email: "a@example.com", Password: "short"}
	err = ValidateStruct(&short)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least 8 characters")

	badEnum := sampleRequest{Email: "a@example.com", Password: "longenough", AgeGroup: "toddler"}
	err = ValidateStruct(&badEnum)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of")
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("someone@example.org"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail(""))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("  hello\x00 "))
	assert.Equal(t, "user@example.com", SanitizeEmail("  USER@Example.COM "))
}
