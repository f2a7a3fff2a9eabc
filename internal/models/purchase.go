// internal/models/purchase.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// LicenseTier is one of the four fixed license tiers seeded at migration.
// Pricing: amount_cents = round(item.price_cents * PriceMultiplier).
type LicenseTier struct {
	BaseModel
	Code                  LicenseCode `json:"code" gorm:"type:varchar(20);uniqueIndex;not null"`
	Name                  string      `json:"name" gorm:"size:100;not null"`
	PriceMultiplier       float64     `json:"price_multiplier" gorm:"type:decimal(5,2);not null"`
	CommercialUse         bool        `json:"commercial_use" gorm:"default:false"`
	RedistributionAllowed bool        `json:"redistribution_allowed" gorm:"default:false"`
	ResaleAllowed         bool        `json:"resale_allowed" gorm:"default:false"`
	AttributionRequired   bool        `json:"attribution_required" gorm:"default:false"`
}

type Purchase struct {
	BaseModel
	ItemID                uuid.UUID      `json:"item_id" gorm:"type:uuid;not null;index"`
	BuyerID               uuid.UUID      `json:"buyer_id" gorm:"type:uuid;not null;index"`
	SellerID              uuid.UUID      `json:"seller_id" gorm:"type:uuid;not null;index"`
	LicenseTierID         uuid.UUID      `json:"license_tier_id" gorm:"type:uuid;not null"`
	AmountCents           int64          `json:"amount_cents" gorm:"not null"`
	PlatformFeeCents      int64          `json:"platform_fee_cents" gorm:"not null"`
	TaxCents              int64          `json:"tax_cents" gorm:"not null"`
	TotalCents            int64          `json:"total_cents" gorm:"not null"`
	Status                PurchaseStatus `json:"status" gorm:"type:varchar(30);default:'pending_payment';index"`
	LicenseKey            string         `json:"license_key" gorm:"size:64;uniqueIndex"`
	DownloadExpiresAt     *time.Time     `json:"download_expires_at"`
	StripePaymentIntentID string         `json:"-" gorm:"size:255;index"`
	CancelReason          string         `json:"cancel_reason,omitempty" gorm:"type:text"`
	FulfilledAt           *time.Time     `json:"fulfilled_at"`

	// Relationships
	Item        MarketplaceItem    `json:"item,omitempty" gorm:"foreignKey:ItemID"`
	Buyer       User               `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
	Seller      User               `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
	LicenseTier LicenseTier        `json:"license_tier,omitempty" gorm:"foreignKey:LicenseTierID"`
	Escrow      *EscrowTransaction `json:"escrow,omitempty" gorm:"foreignKey:PurchaseID"`
	Grant       *LicenseGrant      `json:"grant,omitempty" gorm:"foreignKey:PurchaseID"`
}

// EscrowTransaction holds captured funds for a high-value purchase until
// buyer approval, timeout, or dispute.
type EscrowTransaction struct {
	BaseModel
	PurchaseID      uuid.UUID    `json:"purchase_id" gorm:"type:uuid;uniqueIndex;not null"`
	AmountCents     int64        `json:"amount_cents" gorm:"not null"`
	Status          EscrowStatus `json:"status" gorm:"type:varchar(20);default:'holding';index"`
	ReleaseDate     time.Time    `json:"release_date" gorm:"index"`
	BuyerApproved   bool         `json:"buyer_approved" gorm:"default:false"`
	SellerDelivered bool         `json:"seller_delivered" gorm:"default:false"`
	DisputeReason   string       `json:"dispute_reason,omitempty" gorm:"type:text"`
	DisputedAt      *time.Time   `json:"disputed_at"`
	ReleasedAt      *time.Time   `json:"released_at"`

	// Relationships
	Purchase Purchase `json:"purchase,omitempty" gorm:"foreignKey:PurchaseID"`
}

// LicenseGrant asserts the buyer's rights to use a purchased item under a
// tier's terms. Immutable except for the revocation flag.
type LicenseGrant struct {
	BaseModel
	PurchaseID    uuid.UUID  `json:"purchase_id" gorm:"type:uuid;uniqueIndex;not null"`
	LicenseTierID uuid.UUID  `json:"license_tier_id" gorm:"type:uuid;not null"`
	LicenseeID    uuid.UUID  `json:"licensee_id" gorm:"type:uuid;not null;index"`
	LicensorID    uuid.UUID  `json:"licensor_id" gorm:"type:uuid;not null;index"`
	ItemID        uuid.UUID  `json:"item_id" gorm:"type:uuid;not null;index"`
	GrantedAt     time.Time  `json:"granted_at"`
	Revoked       bool       `json:"revoked" gorm:"default:false"`
	RevokedAt     *time.Time `json:"revoked_at"`

	// Relationships
	Purchase    Purchase        `json:"purchase,omitempty" gorm:"foreignKey:PurchaseID"`
	LicenseTier LicenseTier     `json:"license_tier,omitempty" gorm:"foreignKey:LicenseTierID"`
	Item        MarketplaceItem `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

// DownloadAccess is a count- and time-limited permission to download one
// DRM-protected file under a purchase.
type DownloadAccess struct {
	BaseModel
	PurchaseID     uuid.UUID  `json:"purchase_id" gorm:"type:uuid;not null;index"`
	FileID         uuid.UUID  `json:"file_id" gorm:"type:uuid;not null;index"`
	UserID         uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	DownloadCount  int        `json:"download_count" gorm:"default:0"`
	MaxDownloads   int        `json:"max_downloads" gorm:"not null"`
	ExpiresAt      time.Time  `json:"expires_at"`
	Revoked        bool       `json:"revoked" gorm:"default:false"`
	LastDownloadIP string     `json:"-" gorm:"size:45"`
	LastDownloadAt *time.Time `json:"last_download_at"`

	// Relationships
	Purchase Purchase `json:"purchase,omitempty" gorm:"foreignKey:PurchaseID"`
	File     ItemFile `json:"file,omitempty" gorm:"foreignKey:FileID"`
}

// Exhausted reports whether the download quota is used up.
func (d *DownloadAccess) Exhausted() bool {
	return d.DownloadCount >= d.MaxDownloads
}

// Usable reports whether a download may be authorized at the given time.
func (d *DownloadAccess) Usable(now time.Time) bool {
	return !d.Revoked && !d.Exhausted() && now.Before(d.ExpiresAt)
}
