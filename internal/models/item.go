// internal/models/item.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type MarketplaceItem struct {
	BaseModel
	SellerID      uuid.UUID      `json:"seller_id" gorm:"type:uuid;not null;index"`
	Title         string         `json:"title" gorm:"size:255;not null"`
	Description   string         `json:"description" gorm:"type:text"`
	Category      string         `json:"category" gorm:"size:100;index"`
	PriceCents    int64          `json:"price_cents" gorm:"not null"`
	Images        pq.StringArray `json:"images" gorm:"type:text[]"`
	Tags          pq.StringArray `json:"tags" gorm:"type:text[]"`
	Status        ItemStatus     `json:"status" gorm:"type:varchar(20);default:'draft';index"`
	Featured      bool           `json:"featured" gorm:"default:false"`
	ViewCount     int64          `json:"view_count" gorm:"default:0"`
	PurchaseCount int64          `json:"purchase_count" gorm:"default:0"`
	Rating        float64        `json:"rating" gorm:"type:decimal(3,2);default:0"`
	ReviewCount   int64          `json:"review_count" gorm:"default:0"`

	// Relationships
	Seller    User       `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
	Files     []ItemFile `json:"files,omitempty" gorm:"foreignKey:ItemID"`
	Purchases []Purchase `json:"purchases,omitempty" gorm:"foreignKey:ItemID"`
	Reviews   []Review   `json:"reviews,omitempty" gorm:"foreignKey:ItemID"`
}

// ItemFile is a deliverable attached to a marketplace item. DRM-protected
// files get per-purchase DownloadAccess records at fulfillment.
type ItemFile struct {
	BaseModel
	ItemID       uuid.UUID `json:"item_id" gorm:"type:uuid;not null;index"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	StorageKey   string    `json:"-" gorm:"size:512;not null"`
	SizeBytes    int64     `json:"size_bytes"`
	MimeType     string    `json:"mime_type" gorm:"size:100"`
	DRMProtected bool      `json:"drm_protected" gorm:"default:true"`

	// Relationships
	Item MarketplaceItem `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}
