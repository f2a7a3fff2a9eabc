// internal/handlers/purchase.go
package handlers

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/fabhub/fabhub-backend/internal/config"
	"github.com/fabhub/fabhub-backend/internal/services"
	"github.com/fabhub/fabhub-backend/internal/utils"
)

type PurchaseHandler struct {
	purchaseService *services.PurchaseService
	licenseService  *services.LicenseService
	config          *config.Config
}

func NewPurchaseHandler(purchaseService *services.PurchaseService, licenseService *services.LicenseService, cfg *config.Config) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
		licenseService:  licenseService,
		config:          cfg,
	}
}

// POST /purchases
func (h *PurchaseHandler) CreatePurchase(c *gin.Context) {
	buyerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	purchase, err := h.purchaseService.CreatePurchase(buyerID, &req)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Item")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{"purchase": purchase})
}

// POST /purchases/:id/pay
func (h *PurchaseHandler) ProcessPurchase(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	buyerID, ok := currentUserID(c)
	if !ok {
		return
	}

	payment, err := h.purchaseService.ProcessPurchase(id, buyerID)
	if err != nil {
		if strings.Contains(err.Error(), "unauthorized") {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Purchase")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"payment": payment})
}

// POST /purchases/confirm
// Called by the payment confirmation webhook or the frontend return path.
func (h *PurchaseHandler) ConfirmPayment(c *gin.Context) {
	var req struct {
		PaymentIntentID string `json:"payment_intent_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if err := h.purchaseService.ConfirmPayment(req.PaymentIntentID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Purchase")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Payment confirmed"})
}

// POST /webhooks/stripe
// Processor-originated payment events. The signature check ties the payload
// to the shared webhook secret; unsigned or tampered requests are rejected
// before any purchase state is touched.
func (h *PurchaseHandler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid payload", nil)
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"),
		h.config.Payment.StripeWebhookSecret)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid webhook signature", nil)
		return
	}

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			utils.BadRequestResponse(c, "Invalid event payload", nil)
			return
		}

		// Duplicate deliveries and events for already-settled purchases are
		// acked so the processor stops retrying
		if err := h.purchaseService.ConfirmPayment(pi.ID); err != nil {
			logrus.WithFields(logrus.Fields{
				"event_type":     event.Type,
				"payment_intent": pi.ID,
			}).WithError(err).Warn("Webhook event not applied")
		}
	}

	utils.SuccessResponse(c, gin.H{"received": true})
}

// POST /purchases/:id/cancel
func (h *PurchaseHandler) CancelPurchase(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	buyerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	c.ShouldBindJSON(&req)

	if err := h.purchaseService.CancelPurchase(id, buyerID, req.Reason); err != nil {
		if strings.Contains(err.Error(), "unauthorized") {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Purchase")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Purchase cancelled"})
}

// GET /purchases/:id
func (h *PurchaseHandler) GetPurchase(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	purchase, err := h.purchaseService.GetPurchase(id, userID)
	if err != nil {
		if strings.Contains(err.Error(), "unauthorized") {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		utils.NotFoundResponse(c, "Purchase")
		return
	}

	utils.SuccessResponse(c, gin.H{"purchase": purchase})
}

// GET /purchases
func (h *PurchaseHandler) GetPurchaseHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)

	purchases, total, err := h.purchaseService.GetPurchaseHistory(userID, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(purchases, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /licenses/tiers
func (h *PurchaseHandler) ListLicenseTiers(c *gin.Context) {
	tiers, err := h.licenseService.ListLicenseTiers()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"tiers": tiers})
}

// GET /licenses/grants
func (h *PurchaseHandler) ListMyGrants(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	grants, err := h.licenseService.ListGrantsForUser(userID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"grants": grants})
}

// GET /licenses/grants/:id
func (h *PurchaseHandler) GetGrant(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	grant, err := h.licenseService.GetGrant(id, userID)
	if err != nil {
		if strings.Contains(err.Error(), "unauthorized") {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		utils.NotFoundResponse(c, "License grant")
		return
	}

	utils.SuccessResponse(c, gin.H{"grant": grant})
}

// GET /licenses/verify/:key
// Public endpoint for third parties to check a license key.
func (h *PurchaseHandler) VerifyLicenseKey(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		utils.BadRequestResponse(c, "License key required", nil)
		return
	}

	grant, err := h.licenseService.VerifyLicenseKey(key)
	if err != nil {
		utils.SuccessResponse(c, gin.H{"valid": false, "reason": err.Error()})
		return
	}

	utils.SuccessResponse(c, gin.H{
		"valid": true,
		"grant": gin.H{
			"item_id":    grant.ItemID,
			"tier":       grant.LicenseTier.Code,
			"granted_at": grant.GrantedAt,
		},
	})
}
