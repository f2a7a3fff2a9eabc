// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type passwordFixture struct {
	Password string `validate:"strong_password"`
}

type usernameFixture struct {
	Username string `validate:"username"`
}

func TestStrongPasswordValidation(t *testing.T) {
	valid := []string{"Abcdef1!", "P@ssw0rdLong", "Zx9#aaaa"}
	for _, p := range valid {
		assert.NoError(t, ValidateStruct(passwordFixture{Password: p}), p)
	}

	invalid := []string{"short1!", "alllowercase1!", "ALLUPPERCASE1!", "NoNumbers!!", "NoSpecial123"}
	for _, p := range invalid {
		assert.Error(t, ValidateStruct(passwordFixture{Password: p}), p)
	}
}

func TestUsernameValidation(t *testing.T) {
	assert.NoError(t, ValidateStruct(usernameFixture{Username: "maker_42"}))
	assert.Error(t, ValidateStruct(usernameFixture{Username: "ab"}))
	assert.Error(t, ValidateStruct(usernameFixture{Username: "bad name!"}))
}

func TestGetValidationErrors(t *testing.T) {
	type form struct {
		Email string `validate:"required,email"`
	}

	errs := GetValidationErrors(ValidateStruct(form{Email: "not-an-email"}))
	assert.Len(t, errs, 1)
	assert.Equal(t, "email", errs[0].Field)
	assert.Equal(t, "Invalid email format", errs[0].Message)

	assert.Empty(t, GetValidationErrors(nil))
	assert.Empty(t, GetValidationErrors(ValidateStruct(form{Email: "ok@example.com"})))
}
