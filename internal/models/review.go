// internal/models/review.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is a buyer's rating of an item, gated on a verified purchase.
type Review struct {
	BaseModel
	ItemID           uuid.UUID  `json:"item_id" gorm:"type:uuid;not null;index"`
	PurchaseID       uuid.UUID  `json:"purchase_id" gorm:"type:uuid;uniqueIndex;not null"`
	ReviewerID       uuid.UUID  `json:"reviewer_id" gorm:"type:uuid;not null;index"`
	Rating            int        `json:"rating" gorm:"not null"`
	Title             string     `json:"title" gorm:"size:255"`
	Content           string     `json:"content" gorm:"type:text"`
	VerifiedPurchase  bool       `json:"verified_purchase" gorm:"default:true"`
	SellerResponse    string     `json:"seller_response,omitempty" gorm:"type:text"`
	SellerRespondedAt *time.Time `json:"seller_responded_at"`

	// Relationships
	Item     MarketplaceItem `json:"item,omitempty" gorm:"foreignKey:ItemID"`
	Purchase Purchase        `json:"purchase,omitempty" gorm:"foreignKey:PurchaseID"`
	Reviewer User            `json:"reviewer,omitempty" gorm:"foreignKey:ReviewerID"`
}
