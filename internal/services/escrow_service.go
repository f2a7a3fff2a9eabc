// internal/services/escrow_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/fabhub/fabhub-backend/internal/config"
	"github.com/fabhub/fabhub-backend/internal/database"
	"github.com/fabhub/fabhub-backend/internal/models"
)

// EscrowService drives the holding -> released | disputed state machine.
// Release happens on buyer approval, on the hold deadline, or by admin
// resolution of a dispute.
type EscrowService struct {
	db                  *gorm.DB
	config              *config.Config
	notificationService *NotificationService
}

func NewEscrowService(db *gorm.DB, cfg *config.Config, notificationService *NotificationService) *EscrowService {
	return &EscrowService{
		db:                  db,
		config:              cfg,
		notificationService: notificationService,
	}
}

func (s *EscrowService) GetEscrow(id uuid.UUID, userID uuid.UUID) (*models.EscrowTransaction, error) {
	var escrow models.EscrowTransaction
	if err := s.db.Preload("Purchase").Preload("Purchase.Item").First(&escrow, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("escrow transaction not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if escrow.Purchase.BuyerID != userID && escrow.Purchase.SellerID != userID {
		return nil, errors.New("unauthorized to view escrow transaction")
	}

	return &escrow, nil
}

// ApproveDelivery is the buyer's confirmation that the goods are acceptable.
// Approval releases the escrow immediately.
func (s *EscrowService) ApproveDelivery(escrowID uuid.UUID, buyerID uuid.UUID) (*models.EscrowTransaction, error) {
	var released *models.EscrowTransaction

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var escrow models.EscrowTransaction
		if err := tx.Preload("Purchase").Preload("Purchase.Item").First(&escrow, escrowID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("escrow transaction not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if escrow.Purchase.BuyerID != buyerID {
			return errors.New("only the buyer can approve delivery")
		}

		if escrow.Status != models.EscrowStatusHolding {
			return errors.New("escrow is not in holding state")
		}

		escrow.BuyerApproved = true

		if err := s.releaseTx(tx, &escrow); err != nil {
			return err
		}

		released = &escrow
		return nil
	})
	if err != nil {
		return nil, err
	}

	go s.notificationService.NotifyEscrowReleased(released)

	return released, nil
}

// MarkDelivered lets the seller flag the order as delivered. It does not
// release funds by itself; that still needs buyer approval or the deadline.
func (s *EscrowService) MarkDelivered(escrowID uuid.UUID, sellerID uuid.UUID) (*models.EscrowTransaction, error) {
	var escrow models.EscrowTransaction
	if err := s.db.Preload("Purchase").First(&escrow, escrowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("escrow transaction not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if escrow.Purchase.SellerID != sellerID {
		return nil, errors.New("only the seller can mark delivery")
	}

	if escrow.Status != models.EscrowStatusHolding {
		return nil, errors.New("escrow is not in holding state")
	}

	escrow.SellerDelivered = true
	if err := s.db.Save(&escrow).Error; err != nil {
		return nil, fmt.Errorf("failed to update escrow: %w", err)
	}

	return &escrow, nil
}

// DisputeEscrow moves a holding escrow to disputed. A disputed escrow is
// frozen: the timeout sweep skips it until an admin resolves.
func (s *EscrowService) DisputeEscrow(escrowID uuid.UUID, buyerID uuid.UUID, reason string) (*models.EscrowTransaction, error) {
	if reason == "" {
		return nil, errors.New("dispute reason is required")
	}

	var escrow models.EscrowTransaction
	if err := s.db.Preload("Purchase").Preload("Purchase.Item").First(&escrow, escrowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("escrow transaction not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if escrow.Purchase.BuyerID != buyerID {
		return nil, errors.New("only the buyer can dispute an escrow")
	}

	if escrow.Status != models.EscrowStatusHolding {
		return nil, errors.New("only holding escrows can be disputed")
	}

	now := time.Now()
	escrow.Status = models.EscrowStatusDisputed
	escrow.DisputeReason = reason
	escrow.DisputedAt = &now

	if err := s.db.Save(&escrow).Error; err != nil {
		return nil, fmt.Errorf("failed to dispute escrow: %w", err)
	}

	go s.notificationService.NotifyEscrowDisputed(&escrow)

	logrus.WithFields(logrus.Fields{
		"escrow_id": escrow.ID,
		"buyer_id":  buyerID,
	}).Warn("Escrow disputed")

	return &escrow, nil
}

// ResolveDispute is the admin decision on a disputed escrow. releaseToSeller
// true releases the funds; false cancels the purchase and revokes access.
func (s *EscrowService) ResolveDispute(escrowID uuid.UUID, releaseToSeller bool, resolution string) (*models.EscrowTransaction, error) {
	var resolved *models.EscrowTransaction

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var escrow models.EscrowTransaction
		if err := tx.Preload("Purchase").Preload("Purchase.Item").First(&escrow, escrowID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("escrow transaction not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if escrow.Status != models.EscrowStatusDisputed {
			return errors.New("escrow is not disputed")
		}

		if releaseToSeller {
			escrow.DisputeReason = fmt.Sprintf("%s (resolved: %s)", escrow.DisputeReason, resolution)
			if err := s.releaseTx(tx, &escrow); err != nil {
				return err
			}
		} else {
			// Refund path: cancel the purchase and pull access back
			now := time.Now()
			escrow.ReleasedAt = &now
			escrow.DisputeReason = fmt.Sprintf("%s (refunded: %s)", escrow.DisputeReason, resolution)
			if err := tx.Save(&escrow).Error; err != nil {
				return fmt.Errorf("failed to update escrow: %w", err)
			}

			if err := tx.Model(&models.Purchase{}).
				Where("id = ?", escrow.PurchaseID).
				Updates(map[string]interface{}{
					"status":        models.PurchaseStatusCancelled,
					"cancel_reason": "escrow dispute resolved in buyer's favor",
				}).Error; err != nil {
				return fmt.Errorf("failed to cancel purchase: %w", err)
			}

			if err := tx.Model(&models.LicenseGrant{}).
				Where("purchase_id = ?", escrow.PurchaseID).
				Updates(map[string]interface{}{"revoked": true, "revoked_at": now}).Error; err != nil {
				return fmt.Errorf("failed to revoke license grant: %w", err)
			}

			if err := tx.Model(&models.DownloadAccess{}).
				Where("purchase_id = ?", escrow.PurchaseID).
				Update("revoked", true).Error; err != nil {
				return fmt.Errorf("failed to revoke download access: %w", err)
			}
		}

		resolved = &escrow
		return nil
	})
	if err != nil {
		return nil, err
	}

	if releaseToSeller {
		go s.notificationService.NotifyEscrowReleased(resolved)
	}

	return resolved, nil
}

// ReleaseDueEscrows releases every holding escrow whose hold deadline has
// passed. Disputed escrows are left alone. Called by the background sweep.
func (s *EscrowService) ReleaseDueEscrows() (int, error) {
	var due []models.EscrowTransaction
	if err := s.db.Where("status = ? AND release_date <= ?", models.EscrowStatusHolding, time.Now()).
		Preload("Purchase").Preload("Purchase.Item").
		Find(&due).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch due escrows: %w", err)
	}

	released := 0
	for i := range due {
		escrow := &due[i]
		err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
			// Re-check under the transaction; the buyer may have disputed
			// between the scan and now
			var current models.EscrowTransaction
			if err := tx.First(&current, escrow.ID).Error; err != nil {
				return err
			}
			if current.Status != models.EscrowStatusHolding {
				return nil
			}

			escrow.Status = current.Status
			return s.releaseTx(tx, escrow)
		})
		if err != nil {
			logrus.WithError(err).WithField("escrow_id", escrow.ID).Error("Failed to release escrow")
			continue
		}

		if escrow.Status == models.EscrowStatusReleased {
			released++
			go s.notificationService.NotifyEscrowReleased(escrow)
		}
	}

	return released, nil
}

func (s *EscrowService) ListEscrows(status models.EscrowStatus, page, limit int) ([]models.EscrowTransaction, int64, error) {
	query := s.db.Model(&models.EscrowTransaction{}).Preload("Purchase")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count escrows: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var escrows []models.EscrowTransaction
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&escrows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch escrows: %w", err)
	}

	return escrows, total, nil
}

// releaseTx flips the escrow to released and completes its purchase. Must
// run inside a transaction; the caller handles notifications.
func (s *EscrowService) releaseTx(tx *gorm.DB, escrow *models.EscrowTransaction) error {
	now := time.Now()
	escrow.Status = models.EscrowStatusReleased
	escrow.ReleasedAt = &now

	if err := tx.Save(escrow).Error; err != nil {
		return fmt.Errorf("failed to release escrow: %w", err)
	}

	if err := tx.Model(&models.Purchase{}).
		Where("id = ? AND status = ?", escrow.PurchaseID, models.PurchaseStatusInEscrow).
		Update("status", models.PurchaseStatusCompleted).Error; err != nil {
		return fmt.Errorf("failed to complete purchase: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"escrow_id":    escrow.ID,
		"purchase_id":  escrow.PurchaseID,
		"amount_cents": escrow.AmountCents,
	}).Info("Escrow released")

	return nil
}
