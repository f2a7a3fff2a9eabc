// internal/models/purchase_test.go
package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPurchaseStatusIsTerminal(t *testing.T) {
	assert.True(t, PurchaseStatusCompleted.IsTerminal())
	assert.True(t, PurchaseStatusCancelled.IsTerminal())

	assert.False(t, PurchaseStatusPendingPayment.IsTerminal())
	assert.False(t, PurchaseStatusPaymentProcessing.IsTerminal())
	assert.False(t, PurchaseStatusInEscrow.IsTerminal())
}

func TestDownloadAccessExhausted(t *testing.T) {
	access := DownloadAccess{DownloadCount: 4, MaxDownloads: 5}
	assert.False(t, access.Exhausted())

	access.DownloadCount = 5
	assert.True(t, access.Exhausted())

	access.DownloadCount = 6
	assert.True(t, access.Exhausted())
}

func TestDownloadAccessUsable(t *testing.T) {
	now := time.Now()
	access := DownloadAccess{
		DownloadCount: 0,
		MaxDownloads:  5,
		ExpiresAt:     now.Add(time.Hour),
	}
	assert.True(t, access.Usable(now))

	expired := access
	expired.ExpiresAt = now.Add(-time.Hour)
	assert.False(t, expired.Usable(now))

	revoked := access
	revoked.Revoked = true
	assert.False(t, revoked.Usable(now))

	exhausted := access
	exhausted.DownloadCount = 5
	assert.False(t, exhausted.Usable(now))
}
