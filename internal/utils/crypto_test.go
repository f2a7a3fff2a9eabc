// internal/utils/crypto_test.go
package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateLicenseKeyFormat(t *testing.T) {
	key, err := GenerateLicenseKey()
	require.NoError(t, err)

	parts := strings.Split(key, "-")
	require.Len(t, parts, 5)
	assert.Equal(t, "FH", parts[0])
	for _, group := range parts[1:] {
		assert.Len(t, group, 4)
		assert.Equal(t, strings.ToUpper(group), group)
	}
}

func TestGenerateLicenseKeyUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := GenerateLicenseKey()
		require.NoError(t, err)
		assert.False(t, seen[key], "duplicate license key %s", key)
		seen[key] = true
	}
}

func TestDownloadTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	token := SignDownloadToken(secret, "file-1", "access-1", time.Now())

	fileID, accessID, err := VerifyDownloadToken(secret, token, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "file-1", fileID)
	assert.Equal(t, "access-1", accessID)
}

func TestDownloadTokenExpired(t *testing.T) {
	secret := "test-secret"
	token := SignDownloadToken(secret, "file-1", "access-1", time.Now().Add(-time.Hour))

	_, _, err := VerifyDownloadToken(secret, token, 15*time.Minute)
	assert.ErrorContains(t, err, "expired")
}

func TestDownloadTokenWrongSecret(t *testing.T) {
	token := SignDownloadToken("secret-a", "file-1", "access-1", time.Now())

	_, _, err := VerifyDownloadToken("secret-b", token, 15*time.Minute)
	assert.ErrorContains(t, err, "signature")
}

func TestDownloadTokenTampered(t *testing.T) {
	secret := "test-secret"
	token := SignDownloadToken(secret, "file-1", "access-1", time.Now())

	_, _, err := VerifyDownloadToken(secret, token[:len(token)-2], 15*time.Minute)
	assert.Error(t, err)

	_, _, err = VerifyDownloadToken(secret, "not-a-token", 15*time.Minute)
	assert.Error(t, err)
}

func TestHashStringDeterministic(t *testing.T) {
	assert.Equal(t, HashString("abc"), HashString("abc"))
	assert.NotEqual(t, HashString("abc"), HashString("abd"))
	assert.Len(t, HashString("anything"), 64)
}
