// internal/handlers/escrow.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fabhub/fabhub-backend/internal/services"
	"github.com/fabhub/fabhub-backend/internal/utils"
)

type EscrowHandler struct {
	escrowService *services.EscrowService
}

func NewEscrowHandler(escrowService *services.EscrowService) *EscrowHandler {
	return &EscrowHandler{
		escrowService: escrowService,
	}
}

// GET /escrows/:id
func (h *EscrowHandler) GetEscrow(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	escrow, err := h.escrowService.GetEscrow(id, userID)
	if err != nil {
		if strings.Contains(err.Error(), "unauthorized") {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		utils.NotFoundResponse(c, "Escrow transaction")
		return
	}

	utils.SuccessResponse(c, gin.H{"escrow": escrow})
}

// POST /escrows/:id/approve
func (h *EscrowHandler) ApproveDelivery(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	buyerID, ok := currentUserID(c)
	if !ok {
		return
	}

	escrow, err := h.escrowService.ApproveDelivery(id, buyerID)
	if err != nil {
		if strings.Contains(err.Error(), "only the buyer") {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Escrow transaction")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Delivery approved, funds released",
		"escrow":  escrow,
	})
}

// POST /escrows/:id/delivered
func (h *EscrowHandler) MarkDelivered(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	sellerID, ok := currentUserID(c)
	if !ok {
		return
	}

	escrow, err := h.escrowService.MarkDelivered(id, sellerID)
	if err != nil {
		if strings.Contains(err.Error(), "only the seller") {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Escrow transaction")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"escrow": escrow})
}

// POST /escrows/:id/dispute
func (h *EscrowHandler) DisputeEscrow(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	buyerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Dispute reason is required", err.Error())
		return
	}

	escrow, err := h.escrowService.DisputeEscrow(id, buyerID, req.Reason)
	if err != nil {
		if strings.Contains(err.Error(), "only the buyer") {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Escrow transaction")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Escrow disputed",
		"escrow":  escrow,
	})
}
