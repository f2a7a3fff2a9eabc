// internal/handlers/admin.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fabhub/fabhub-backend/internal/models"
	"github.com/fabhub/fabhub-backend/internal/services"
	"github.com/fabhub/fabhub-backend/internal/utils"
)

type AdminHandler struct {
	adminService    *services.AdminService
	escrowService   *services.EscrowService
	purchaseService *services.PurchaseService
	licenseService  *services.LicenseService
	downloadService *services.DownloadService
}

func NewAdminHandler(
	adminService *services.AdminService,
	escrowService *services.EscrowService,
	purchaseService *services.PurchaseService,
	licenseService *services.LicenseService,
	downloadService *services.DownloadService,
) *AdminHandler {
	return &AdminHandler{
		adminService:    adminService,
		escrowService:   escrowService,
		purchaseService: purchaseService,
		licenseService:  licenseService,
		downloadService: downloadService,
	}
}

// GET /admin/users
func (h *AdminHandler) SearchUsers(c *gin.Context) {
	params := services.UserSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
	}

	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		params.Role = &r
	}
	if status := c.Query("status"); status != "" {
		s := models.UserStatus(status)
		params.Status = &s
	}

	users, total, err := h.adminService.SearchUsers(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(users, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// PUT /admin/users/:id/status
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	status := models.UserStatus(req.Status)
	switch status {
	case models.UserStatusActive, models.UserStatusSuspended, models.UserStatusBanned:
	default:
		utils.BadRequestResponse(c, "Invalid status", nil)
		return
	}

	user, err := h.adminService.SetUserStatus(id, status)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "User")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"user": user})
}

// PUT /admin/items/:id/suspend
func (h *AdminHandler) SuspendItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	c.ShouldBindJSON(&req)

	item, err := h.adminService.SuspendItem(id, req.Reason)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Item")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"item": item})
}

// PUT /admin/items/:id/reinstate
func (h *AdminHandler) ReinstateItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	item, err := h.adminService.ReinstateItem(id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Item")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"item": item})
}

// PUT /admin/items/:id/featured
func (h *AdminHandler) SetItemFeatured(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Featured *bool `json:"featured" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	item, err := h.adminService.SetItemFeatured(id, *req.Featured)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Item")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"item": item})
}

// GET /admin/escrows
func (h *AdminHandler) ListEscrows(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	status := models.EscrowStatus(c.Query("status"))

	escrows, total, err := h.escrowService.ListEscrows(status, params.Page, params.Limit)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(escrows, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /admin/escrows/:id/resolve
func (h *AdminHandler) ResolveDispute(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		ReleaseToSeller *bool  `json:"release_to_seller" binding:"required"`
		Resolution      string `json:"resolution" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	escrow, err := h.escrowService.ResolveDispute(id, *req.ReleaseToSeller, req.Resolution)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Escrow transaction")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"escrow": escrow})
}

// POST /admin/purchases/refund
func (h *AdminHandler) ProcessRefund(c *gin.Context) {
	var req services.RefundPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.purchaseService.ProcessRefund(&req); err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Purchase")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Refund processed"})
}

// PUT /admin/grants/:id/revoke
func (h *AdminHandler) RevokeGrant(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	grant, err := h.licenseService.RevokeGrant(id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "License grant")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"grant": grant})
}

// PUT /admin/purchases/:id/revoke-downloads
func (h *AdminHandler) RevokeDownloads(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.downloadService.RevokeAccess(id); err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Download access revoked"})
}

// GET /admin/audit-logs
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	action := c.Query("action")

	var userID *uuid.UUID
	if userIDStr := c.Query("user_id"); userIDStr != "" {
		if parsed, err := uuid.Parse(userIDStr); err == nil {
			userID = &parsed
		}
	}

	logs, total, err := h.adminService.GetAuditLogs(params, action, userID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(logs, total, params)
	utils.PaginatedResponse(c, result)
}
