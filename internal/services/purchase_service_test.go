// internal/services/purchase_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fabhub/fabhub-backend/internal/config"
	"github.com/fabhub/fabhub-backend/internal/models"
)

func newQuoteService() *PurchaseService {
	return &PurchaseService{
		config: &config.Config{
			Payment: config.PaymentConfig{
				PlatformFeePercent: 10.0,
				TaxRatePercent:     8.0,
			},
			Marketplace: config.MarketplaceConfig{
				EscrowThresholdCents: 50000,
			},
		},
	}
}

func TestQuoteAppliesTierMultiplier(t *testing.T) {
	s := newQuoteService()

	quote := s.Quote(2000, &models.LicenseTier{Code: models.LicenseCodeCommercial, PriceMultiplier: 2.5})

	assert.Equal(t, int64(5000), quote.AmountCents)
	assert.Equal(t, int64(500), quote.PlatformFeeCents)
	assert.Equal(t, int64(400), quote.TaxCents)
	assert.Equal(t, int64(5400), quote.TotalCents)
}

func TestQuotePersonalTierKeepsBasePrice(t *testing.T) {
	s := newQuoteService()

	quote := s.Quote(1299, &models.LicenseTier{Code: models.LicenseCodePersonal, PriceMultiplier: 1.0})

	assert.Equal(t, int64(1299), quote.AmountCents)
	assert.Equal(t, quote.AmountCents+quote.TaxCents, quote.TotalCents)
}

func TestQuoteOpenSourceTierIsFree(t *testing.T) {
	s := newQuoteService()

	quote := s.Quote(250000, &models.LicenseTier{Code: models.LicenseCodeOpenSource, PriceMultiplier: 0.0})

	assert.Zero(t, quote.AmountCents)
	assert.Zero(t, quote.PlatformFeeCents)
	assert.Zero(t, quote.TaxCents)
	assert.Zero(t, quote.TotalCents)
}

func TestQuoteRoundsHalfUp(t *testing.T) {
	s := newQuoteService()

	// 1001 * 2.5 = 2502.5, rounds to 2503
	quote := s.Quote(1001, &models.LicenseTier{PriceMultiplier: 2.5})
	assert.Equal(t, int64(2503), quote.AmountCents)

	// fee 10% of 2503 = 250.3, rounds to 250; tax 8% = 200.24, rounds to 200
	assert.Equal(t, int64(250), quote.PlatformFeeCents)
	assert.Equal(t, int64(200), quote.TaxCents)
}

func TestEscrowEligibleThresholdIsExclusive(t *testing.T) {
	s := newQuoteService()

	assert.False(t, s.EscrowEligible(0))
	assert.False(t, s.EscrowEligible(49999))
	assert.False(t, s.EscrowEligible(50000))
	assert.True(t, s.EscrowEligible(50001))
	assert.True(t, s.EscrowEligible(1000000))
}

func TestQuoteFeeNeverChargedToBuyer(t *testing.T) {
	s := newQuoteService()

	for _, base := range []int64{0, 1, 999, 50000, 123456789} {
		quote := s.Quote(base, &models.LicenseTier{PriceMultiplier: 5.0})
		assert.Equal(t, quote.AmountCents+quote.TaxCents, quote.TotalCents,
			"total must exclude the platform fee for base %d", base)
	}
}
