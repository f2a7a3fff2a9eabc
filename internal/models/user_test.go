// internal/models/user_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPasswordHashing(t *testing.T) {
	user := &User{}
	require.NoError(t, user.SetPassword("SuperSecret123!"))

	assert.NotEqual(t, "SuperSecret123!", user.PasswordHash)
	assert.NoError(t, user.CheckPassword("SuperSecret123!"))
	assert.Error(t, user.CheckPassword("wrong-password"))
}

func TestUserCanSell(t *testing.T) {
	assert.True(t, (&User{Role: UserRoleSeller}).CanSell())
	assert.True(t, (&User{Role: UserRoleAdmin}).CanSell())
	assert.False(t, (&User{Role: UserRoleBuyer}).CanSell())
}
