// internal/services/download_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/fabhub/fabhub-backend/internal/config"
	"github.com/fabhub/fabhub-backend/internal/models"
	"github.com/fabhub/fabhub-backend/internal/utils"
)

// DownloadService gates file delivery behind purchase-scoped access records.
// Protected files are never served directly; every download goes through
// AuthorizeDownload, which enforces the per-purchase count and expiry.
type DownloadService struct {
	db             *gorm.DB
	config         *config.Config
	storageService *StorageService
}

type DownloadGrantResponse struct {
	URL           string    `json:"url"`
	FileName      string    `json:"file_name"`
	ExpiresAt     time.Time `json:"expires_at"`
	DownloadsLeft int       `json:"downloads_left"`
}

func NewDownloadService(db *gorm.DB, cfg *config.Config, storageService *StorageService) *DownloadService {
	return &DownloadService{
		db:             db,
		config:         cfg,
		storageService: storageService,
	}
}

// SetupDownloadAccess creates one access record per protected file of the
// purchased item. Called inside the fulfillment transaction.
func (s *DownloadService) SetupDownloadAccess(tx *gorm.DB, purchase *models.Purchase) error {
	expiresAt := time.Now().AddDate(0, 0, s.config.Marketplace.DownloadExpiryDays)
	if purchase.DownloadExpiresAt != nil {
		expiresAt = *purchase.DownloadExpiresAt
	}

	for _, file := range purchase.Item.Files {
		if !file.DRMProtected {
			continue
		}

		access := &models.DownloadAccess{
			PurchaseID:   purchase.ID,
			FileID:       file.ID,
			UserID:       purchase.BuyerID,
			MaxDownloads: s.config.Marketplace.MaxDownloadsPerFile,
			ExpiresAt:    expiresAt,
		}

		if err := tx.Create(access).Error; err != nil {
			return fmt.Errorf("failed to create download access: %w", err)
		}
	}

	return nil
}

// AuthorizeDownload checks the caller's access records and, if one is
// usable, burns one download and returns a short-lived URL for the file.
func (s *DownloadService) AuthorizeDownload(userID, fileID uuid.UUID, clientIP string) (*DownloadGrantResponse, error) {
	var accesses []models.DownloadAccess
	if err := s.db.Where("user_id = ? AND file_id = ?", userID, fileID).
		Preload("File").
		Order("created_at DESC").
		Find(&accesses).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	now := time.Now()

	access, err := pickDownloadAccess(accesses, now)
	if err != nil {
		return nil, err
	}

	// Burn one download atomically; the WHERE clause rejects a concurrent
	// request that would push the count past the limit.
	result := s.db.Model(&models.DownloadAccess{}).
		Where("id = ? AND download_count < max_downloads AND revoked = ?", access.ID, false).
		Updates(map[string]interface{}{
			"download_count":   gorm.Expr("download_count + 1"),
			"last_download_ip": clientIP,
			"last_download_at": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to record download: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, errors.New("download limit reached")
	}

	url, urlExpiry, err := s.buildDownloadURL(&access.File, access.ID)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"file_id": fileID,
		"ip":      clientIP,
	}).Info("Download authorized")

	return &DownloadGrantResponse{
		URL:           url,
		FileName:      access.File.Name,
		ExpiresAt:     urlExpiry,
		DownloadsLeft: access.MaxDownloads - access.DownloadCount - 1,
	}, nil
}

// pickDownloadAccess chooses which access record to burn. A user can hold
// several records for the same file (repeat purchases under different
// tiers), so an exhausted or revoked one must not shadow a still-usable
// one. When nothing is usable the newest record decides the error.
func pickDownloadAccess(accesses []models.DownloadAccess, now time.Time) (*models.DownloadAccess, error) {
	if len(accesses) == 0 {
		return nil, errors.New("no download access for this file")
	}

	for i := range accesses {
		if accesses[i].Usable(now) {
			return &accesses[i], nil
		}
	}

	newest := &accesses[0]
	switch {
	case newest.Revoked:
		return nil, errors.New("download access has been revoked")
	case now.After(newest.ExpiresAt):
		return nil, errors.New("download access has expired")
	default:
		return nil, errors.New("download limit reached")
	}
}

// buildDownloadURL prefers an S3 presigned GET; without object storage it
// falls back to an HMAC-signed token the local file endpoint verifies.
func (s *DownloadService) buildDownloadURL(file *models.ItemFile, accessID uuid.UUID) (string, time.Time, error) {
	ttl := time.Duration(s.config.Marketplace.DownloadURLExpiryMins) * time.Minute
	expiry := time.Now().Add(ttl)

	if s.storageService.Presigning() {
		url, err := s.storageService.GeneratePresignedURL(file.StorageKey, ttl)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("failed to generate download URL: %w", err)
		}
		return url, expiry, nil
	}

	token := utils.SignDownloadToken(s.config.Marketplace.DownloadTokenSecret,
		file.ID.String(), accessID.String(), time.Now())
	url := fmt.Sprintf("http://%s:%s/v1/downloads/file?token=%s",
		s.config.Server.Host, s.config.Server.Port, token)
	return url, expiry, nil
}

// VerifyDownloadToken resolves a local download token back to its file.
func (s *DownloadService) VerifyDownloadToken(token string) (*models.ItemFile, error) {
	ttl := time.Duration(s.config.Marketplace.DownloadURLExpiryMins) * time.Minute

	fileID, accessID, err := utils.VerifyDownloadToken(s.config.Marketplace.DownloadTokenSecret, token, ttl)
	if err != nil {
		return nil, errors.New("invalid or expired download token")
	}

	var access models.DownloadAccess
	if err := s.db.First(&access, "id = ?", accessID).Error; err != nil {
		return nil, errors.New("download access not found")
	}
	if access.Revoked {
		return nil, errors.New("download access has been revoked")
	}

	var file models.ItemFile
	if err := s.db.First(&file, "id = ?", fileID).Error; err != nil {
		return nil, errors.New("file not found")
	}

	return &file, nil
}

func (s *DownloadService) ListAccessForUser(userID uuid.UUID) ([]models.DownloadAccess, error) {
	var accesses []models.DownloadAccess
	if err := s.db.Where("user_id = ?", userID).
		Preload("File").
		Order("created_at DESC").
		Find(&accesses).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch download access: %w", err)
	}
	return accesses, nil
}

// RevokeAccess cuts off future downloads for a purchase; admin only.
func (s *DownloadService) RevokeAccess(purchaseID uuid.UUID) error {
	result := s.db.Model(&models.DownloadAccess{}).
		Where("purchase_id = ? AND revoked = ?", purchaseID, false).
		Update("revoked", true)
	if result.Error != nil {
		return fmt.Errorf("failed to revoke download access: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("no active download access for this purchase")
	}

	logrus.WithField("purchase_id", purchaseID).Warn("Download access revoked")
	return nil
}
