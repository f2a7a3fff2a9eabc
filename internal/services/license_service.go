// internal/services/license_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabhub/fabhub-backend/internal/models"
)

// LicenseService exposes the fixed tier registry and manages grants.
type LicenseService struct {
	db *gorm.DB
}

func NewLicenseService(db *gorm.DB) *LicenseService {
	return &LicenseService{db: db}
}

// ListLicenseTiers returns the seeded catalog in multiplier order.
func (s *LicenseService) ListLicenseTiers() ([]models.LicenseTier, error) {
	var tiers []models.LicenseTier
	if err := s.db.Order("price_multiplier ASC").Find(&tiers).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch license tiers: %w", err)
	}
	return tiers, nil
}

func (s *LicenseService) GetTierByCode(code models.LicenseCode) (*models.LicenseTier, error) {
	var tier models.LicenseTier
	if err := s.db.Where("code = ?", code).First(&tier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("license tier not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &tier, nil
}

// CreateGrant records the buyer's license at fulfillment. At most one grant
// per purchase; a second call is a conflict, not an upsert.
func (s *LicenseService) CreateGrant(tx *gorm.DB, purchase *models.Purchase) (*models.LicenseGrant, error) {
	var existing models.LicenseGrant
	if err := tx.Where("purchase_id = ?", purchase.ID).First(&existing).Error; err == nil {
		return nil, errors.New("license grant already exists for this purchase")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	grant := &models.LicenseGrant{
		PurchaseID:    purchase.ID,
		LicenseTierID: purchase.LicenseTierID,
		LicenseeID:    purchase.BuyerID,
		LicensorID:    purchase.SellerID,
		ItemID:        purchase.ItemID,
		GrantedAt:     time.Now(),
	}

	if err := tx.Create(grant).Error; err != nil {
		return nil, fmt.Errorf("failed to create license grant: %w", err)
	}

	return grant, nil
}

func (s *LicenseService) GetGrant(id uuid.UUID, userID uuid.UUID) (*models.LicenseGrant, error) {
	var grant models.LicenseGrant
	if err := s.db.Preload("LicenseTier").Preload("Item").First(&grant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("license grant not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if grant.LicenseeID != userID && grant.LicensorID != userID {
		return nil, errors.New("unauthorized to view license grant")
	}

	return &grant, nil
}

func (s *LicenseService) ListGrantsForUser(userID uuid.UUID) ([]models.LicenseGrant, error) {
	var grants []models.LicenseGrant
	if err := s.db.Where("licensee_id = ?", userID).
		Preload("LicenseTier").Preload("Item").
		Order("granted_at DESC").
		Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch license grants: %w", err)
	}
	return grants, nil
}

// VerifyLicenseKey resolves a license key to its grant, for third parties
// checking that a buyer really holds a license.
func (s *LicenseService) VerifyLicenseKey(licenseKey string) (*models.LicenseGrant, error) {
	var purchase models.Purchase
	if err := s.db.Where("license_key = ?", licenseKey).First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("license key not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	var grant models.LicenseGrant
	if err := s.db.Where("purchase_id = ?", purchase.ID).
		Preload("LicenseTier").Preload("Item").
		First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("no grant issued for this license key")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if grant.Revoked {
		return nil, errors.New("license grant has been revoked")
	}

	return &grant, nil
}

// RevokeGrant flips the revocation flag; admin only, grants are otherwise
// immutable.
func (s *LicenseService) RevokeGrant(id uuid.UUID) (*models.LicenseGrant, error) {
	var grant models.LicenseGrant
	if err := s.db.First(&grant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("license grant not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if grant.Revoked {
		return nil, errors.New("license grant already revoked")
	}

	now := time.Now()
	grant.Revoked = true
	grant.RevokedAt = &now

	if err := s.db.Save(&grant).Error; err != nil {
		return nil, fmt.Errorf("failed to revoke license grant: %w", err)
	}

	return &grant, nil
}
