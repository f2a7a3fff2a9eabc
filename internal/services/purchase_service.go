// internal/services/purchase_service.go
package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"
	"gorm.io/gorm"

	"github.com/fabhub/fabhub-backend/internal/config"
	"github.com/fabhub/fabhub-backend/internal/database"
	"github.com/fabhub/fabhub-backend/internal/models"
	"github.com/fabhub/fabhub-backend/internal/utils"
)

type PurchaseService struct {
	db                  *gorm.DB
	config              *config.Config
	licenseService      *LicenseService
	downloadService     *DownloadService
	notificationService *NotificationService
}

type CreatePurchaseRequest struct {
	ItemID      uuid.UUID          `json:"item_id" validate:"required"`
	LicenseCode models.LicenseCode `json:"license_code" validate:"required"`
}

type RefundPurchaseRequest struct {
	PurchaseID uuid.UUID `json:"purchase_id" validate:"required"`
	Reason     string    `json:"reason" validate:"required"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
}

func NewPurchaseService(
	db *gorm.DB,
	cfg *config.Config,
	licenseService *LicenseService,
	downloadService *DownloadService,
	notificationService *NotificationService,
) *PurchaseService {
	// Initialize Stripe
	stripe.Key = cfg.Payment.StripeSecretKey

	return &PurchaseService{
		db:                  db,
		config:              cfg,
		licenseService:      licenseService,
		downloadService:     downloadService,
		notificationService: notificationService,
	}
}

// PriceQuote carries the computed charge breakdown for a purchase.
// amount = round(base * multiplier); total = amount + tax. The platform fee
// is deducted from seller proceeds via the processor, never added to the
// buyer's total.
type PriceQuote struct {
	AmountCents      int64 `json:"amount_cents"`
	PlatformFeeCents int64 `json:"platform_fee_cents"`
	TaxCents         int64 `json:"tax_cents"`
	TotalCents       int64 `json:"total_cents"`
}

// EscrowEligible reports whether a charge of the given amount is held in
// escrow at fulfillment. The threshold is exclusive: an amount exactly at
// the threshold settles directly.
func (s *PurchaseService) EscrowEligible(amountCents int64) bool {
	return amountCents > s.config.Marketplace.EscrowThresholdCents
}

// Quote computes the charge breakdown for a base price under a tier.
func (s *PurchaseService) Quote(basePriceCents int64, tier *models.LicenseTier) PriceQuote {
	amount := int64(math.Round(float64(basePriceCents) * tier.PriceMultiplier))
	fee := int64(math.Round(float64(amount) * s.config.Payment.PlatformFeePercent / 100))
	tax := int64(math.Round(float64(amount) * s.config.Payment.TaxRatePercent / 100))

	return PriceQuote{
		AmountCents:      amount,
		PlatformFeeCents: fee,
		TaxCents:         tax,
		TotalCents:       amount + tax,
	}
}

func (s *PurchaseService) CreatePurchase(buyerID uuid.UUID, req *CreatePurchaseRequest) (*models.Purchase, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var item models.MarketplaceItem
	if err := s.db.Preload("Seller").First(&item, req.ItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("item not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if item.Status != models.ItemStatusActive {
		return nil, errors.New("item is not available for purchase")
	}

	if item.SellerID == buyerID {
		return nil, errors.New("cannot purchase your own item")
	}

	tier, err := s.licenseService.GetTierByCode(req.LicenseCode)
	if err != nil {
		return nil, err
	}

	quote := s.Quote(item.PriceCents, tier)

	licenseKey, err := utils.GenerateLicenseKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate license key: %w", err)
	}

	downloadExpiry := time.Now().AddDate(0, 0, s.config.Marketplace.DownloadExpiryDays)

	purchase := &models.Purchase{
		ItemID:            item.ID,
		BuyerID:           buyerID,
		SellerID:          item.SellerID,
		LicenseTierID:     tier.ID,
		AmountCents:       quote.AmountCents,
		PlatformFeeCents:  quote.PlatformFeeCents,
		TaxCents:          quote.TaxCents,
		TotalCents:        quote.TotalCents,
		Status:            models.PurchaseStatusPendingPayment,
		LicenseKey:        licenseKey,
		DownloadExpiresAt: &downloadExpiry,
	}

	if err := s.db.Create(purchase).Error; err != nil {
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}

	return purchase, nil
}

// ProcessPurchase creates the payment intent as a destination charge against
// the seller's connected account, with the platform fee as application fee.
// Free (open_source tier) purchases skip the processor and fulfill directly.
func (s *PurchaseService) ProcessPurchase(purchaseID uuid.UUID, buyerID uuid.UUID) (*PaymentIntentResponse, error) {
	var purchase models.Purchase
	if err := s.db.Preload("Seller").First(&purchase, purchaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("purchase not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if purchase.BuyerID != buyerID {
		return nil, errors.New("unauthorized to process purchase")
	}

	if purchase.Status != models.PurchaseStatusPendingPayment {
		return nil, errors.New("purchase is not awaiting payment")
	}

	if purchase.TotalCents == 0 {
		if err := s.FulfillPurchase(purchase.ID); err != nil {
			return nil, err
		}
		return &PaymentIntentResponse{Status: "free"}, nil
	}

	if purchase.Seller.StripeAccountID == "" {
		return nil, errors.New("seller has no connected payout account")
	}

	params := &stripe.PaymentIntentParams{
		Amount:               stripe.Int64(purchase.TotalCents),
		Currency:             stripe.String("usd"),
		ApplicationFeeAmount: stripe.Int64(purchase.PlatformFeeCents),
		TransferData: &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(purchase.Seller.StripeAccountID),
		},
	}
	params.AddMetadata("purchase_id", purchase.ID.String())
	params.AddMetadata("buyer_id", purchase.BuyerID.String())

	pi, err := paymentintent.New(params)
	if err != nil {
		// Processor rejection is terminal for this purchase
		purchase.Status = models.PurchaseStatusCancelled
		purchase.CancelReason = "payment processor error"
		s.db.Save(&purchase)
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	purchase.Status = models.PurchaseStatusPaymentProcessing
	purchase.StripePaymentIntentID = pi.ID
	if err := s.db.Save(&purchase).Error; err != nil {
		return nil, fmt.Errorf("failed to update purchase: %w", err)
	}

	return &PaymentIntentResponse{
		ClientSecret: pi.ClientSecret,
		PaymentID:    pi.ID,
		Status:       string(pi.Status),
	}, nil
}

// ConfirmPayment is the webhook/confirm path: checks the intent state with
// the processor and fulfills or cancels accordingly.
func (s *PurchaseService) ConfirmPayment(paymentIntentID string) error {
	var purchase models.Purchase
	if err := s.db.Where("stripe_payment_intent_id = ?", paymentIntentID).First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("purchase not found for payment intent")
		}
		return fmt.Errorf("database error: %w", err)
	}

	if purchase.Status != models.PurchaseStatusPaymentProcessing {
		return errors.New("purchase is not awaiting payment confirmation")
	}

	pi, err := paymentintent.Get(paymentIntentID, nil)
	if err != nil {
		return fmt.Errorf("failed to get payment intent: %w", err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return s.FulfillPurchase(purchase.ID)

	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresPaymentMethod, stripe.PaymentIntentStatusProcessing:
		// Still in flight; leave status alone
		return nil

	default:
		purchase.Status = models.PurchaseStatusCancelled
		purchase.CancelReason = "payment failed"
		if err := s.db.Save(&purchase).Error; err != nil {
			return fmt.Errorf("failed to update purchase: %w", err)
		}
		return nil
	}
}

// FulfillPurchase runs after payment confirmation. High-value purchases go
// to escrow; everything gets a license grant and per-file download access.
func (s *PurchaseService) FulfillPurchase(purchaseID uuid.UUID) error {
	var fulfilled models.Purchase

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var purchase models.Purchase
		if err := tx.Preload("Item").Preload("Item.Files").Preload("Buyer").First(&purchase, purchaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("purchase not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if purchase.Status.IsTerminal() || purchase.Status == models.PurchaseStatusInEscrow {
			return errors.New("purchase already fulfilled")
		}

		now := time.Now()
		purchase.FulfilledAt = &now

		if s.EscrowEligible(purchase.AmountCents) {
			purchase.Status = models.PurchaseStatusInEscrow

			escrow := &models.EscrowTransaction{
				PurchaseID:  purchase.ID,
				AmountCents: purchase.AmountCents,
				Status:      models.EscrowStatusHolding,
				ReleaseDate: now.AddDate(0, 0, s.config.Marketplace.EscrowHoldDays),
			}
			if err := tx.Create(escrow).Error; err != nil {
				return fmt.Errorf("failed to create escrow: %w", err)
			}
			purchase.Escrow = escrow
		} else {
			purchase.Status = models.PurchaseStatusCompleted
		}

		if _, err := s.licenseService.CreateGrant(tx, &purchase); err != nil {
			return err
		}

		if err := s.downloadService.SetupDownloadAccess(tx, &purchase); err != nil {
			return err
		}

		if err := tx.Save(&purchase).Error; err != nil {
			return fmt.Errorf("failed to update purchase: %w", err)
		}

		if err := tx.Model(&models.MarketplaceItem{}).
			Where("id = ?", purchase.ItemID).
			UpdateColumn("purchase_count", gorm.Expr("purchase_count + 1")).Error; err != nil {
			return fmt.Errorf("failed to update purchase count: %w", err)
		}

		fulfilled = purchase
		return nil
	})
	if err != nil {
		return err
	}

	// Side effects outside the transaction
	go func() {
		if fulfilled.Status == models.PurchaseStatusInEscrow && fulfilled.Escrow != nil {
			s.notificationService.NotifyEscrowHeld(&fulfilled, fulfilled.Escrow)
		}
		s.notificationService.NotifyPurchaseFulfilled(&fulfilled)
	}()

	return nil
}

func (s *PurchaseService) CancelPurchase(purchaseID uuid.UUID, buyerID uuid.UUID, reason string) error {
	var purchase models.Purchase
	if err := s.db.First(&purchase, purchaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("purchase not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	if purchase.BuyerID != buyerID {
		return errors.New("unauthorized to cancel purchase")
	}

	if purchase.Status != models.PurchaseStatusPendingPayment {
		return errors.New("only unpaid purchases can be cancelled")
	}

	purchase.Status = models.PurchaseStatusCancelled
	purchase.CancelReason = reason

	if err := s.db.Save(&purchase).Error; err != nil {
		return fmt.Errorf("failed to cancel purchase: %w", err)
	}

	return nil
}

func (s *PurchaseService) GetPurchase(id uuid.UUID, userID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := s.db.Preload("Item").Preload("LicenseTier").Preload("Escrow").Preload("Grant").
		First(&purchase, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("purchase not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if purchase.BuyerID != userID && purchase.SellerID != userID {
		return nil, errors.New("unauthorized to view purchase")
	}

	return &purchase, nil
}

func (s *PurchaseService) GetPurchaseHistory(userID uuid.UUID, params utils.PaginationParams) ([]models.Purchase, int64, error) {
	query := s.db.Model(&models.Purchase{}).
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Preload("Item").Preload("LicenseTier")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count purchases: %w", err)
	}

	allowedSortFields := []string{"created_at", "total_cents", "status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var purchases []models.Purchase
	if err := query.Find(&purchases).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch purchases: %w", err)
	}

	return purchases, total, nil
}

// ProcessRefund refunds a completed purchase through the processor and
// revokes downstream access. Admin only.
func (s *PurchaseService) ProcessRefund(req *RefundPurchaseRequest) error {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var purchase models.Purchase
	if err := s.db.First(&purchase, req.PurchaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("purchase not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	if purchase.Status != models.PurchaseStatusCompleted {
		return errors.New("can only refund completed purchases")
	}

	if purchase.StripePaymentIntentID != "" {
		params := &stripe.RefundParams{
			PaymentIntent: stripe.String(purchase.StripePaymentIntentID),
			Amount:        stripe.Int64(purchase.TotalCents),
			Reason:        stripe.String("requested_by_customer"),
		}

		if _, err := refund.New(params); err != nil {
			return fmt.Errorf("failed to process refund: %w", err)
		}
	}

	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		purchase.Status = models.PurchaseStatusCancelled
		purchase.CancelReason = req.Reason

		if err := tx.Save(&purchase).Error; err != nil {
			return fmt.Errorf("failed to update purchase: %w", err)
		}

		// Pull the license and downloads back
		if err := tx.Model(&models.LicenseGrant{}).
			Where("purchase_id = ?", purchase.ID).
			Updates(map[string]interface{}{"revoked": true, "revoked_at": time.Now()}).Error; err != nil {
			return fmt.Errorf("failed to revoke license grant: %w", err)
		}

		if err := tx.Model(&models.DownloadAccess{}).
			Where("purchase_id = ?", purchase.ID).
			Update("revoked", true).Error; err != nil {
			return fmt.Errorf("failed to revoke download access: %w", err)
		}

		logrus.WithField("purchase_id", purchase.ID).Info("Purchase refunded")
		return nil
	})
}
