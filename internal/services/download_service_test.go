// internal/services/download_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabhub/fabhub-backend/internal/models"
)

func makeAccess(downloadCount, maxDownloads int, expiresAt time.Time, revoked bool, createdAt time.Time) models.DownloadAccess {
	a := models.DownloadAccess{
		DownloadCount: downloadCount,
		MaxDownloads:  maxDownloads,
		ExpiresAt:     expiresAt,
		Revoked:       revoked,
	}
	a.ID = uuid.New()
	a.CreatedAt = createdAt
	return a
}

func TestPickDownloadAccessSkipsExhaustedRecord(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)

	// Newest first, as the query orders them. The fresh record comes from a
	// second purchase of the same item and must win over the used-up one.
	fresh := makeAccess(0, 5, future, false, now)
	exhausted := makeAccess(5, 5, future, false, now.Add(-time.Hour))

	picked, err := pickDownloadAccess([]models.DownloadAccess{fresh, exhausted}, now)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, picked.ID)

	// Same outcome when the exhausted record sorts first
	picked, err = pickDownloadAccess([]models.DownloadAccess{exhausted, fresh}, now)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, picked.ID)
}

func TestPickDownloadAccessSkipsRevokedAndExpired(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)

	revoked := makeAccess(0, 5, future, true, now)
	expired := makeAccess(0, 5, now.Add(-time.Hour), false, now.Add(-time.Minute))
	usable := makeAccess(3, 5, future, false, now.Add(-2*time.Hour))

	picked, err := pickDownloadAccess([]models.DownloadAccess{revoked, expired, usable}, now)
	require.NoError(t, err)
	assert.Equal(t, usable.ID, picked.ID)
}

func TestPickDownloadAccessErrorsWhenNothingUsable(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)

	_, err := pickDownloadAccess(nil, now)
	assert.EqualError(t, err, "no download access for this file")

	exhausted := makeAccess(5, 5, future, false, now)
	_, err = pickDownloadAccess([]models.DownloadAccess{exhausted}, now)
	assert.EqualError(t, err, "download limit reached")

	revoked := makeAccess(0, 5, future, true, now)
	_, err = pickDownloadAccess([]models.DownloadAccess{revoked}, now)
	assert.EqualError(t, err, "download access has been revoked")

	expired := makeAccess(0, 5, now.Add(-time.Hour), false, now)
	_, err = pickDownloadAccess([]models.DownloadAccess{expired}, now)
	assert.EqualError(t, err, "download access has expired")
}
