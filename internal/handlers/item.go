// internal/handlers/item.go
package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fabhub/fabhub-backend/internal/services"
	"github.com/fabhub/fabhub-backend/internal/utils"
)

type ItemHandler struct {
	itemService    *services.ItemService
	storageService *services.StorageService
}

func NewItemHandler(itemService *services.ItemService, storageService *services.StorageService) *ItemHandler {
	return &ItemHandler{
		itemService:    itemService,
		storageService: storageService,
	}
}

// POST /items
func (h *ItemHandler) CreateItem(c *gin.Context) {
	sellerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	item, err := h.itemService.CreateItem(sellerID, &req)
	if err != nil {
		if strings.Contains(err.Error(), "only sellers") {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{"item": item})
}

// GET /items/:id
func (h *ItemHandler) GetItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var viewerID *uuid.UUID
	if userIDStr, exists := utils.GetUserIDFromContext(c); exists {
		if parsed, err := uuid.Parse(userIDStr); err == nil {
			viewerID = &parsed
		}
	}

	item, err := h.itemService.GetItem(id, viewerID)
	if err != nil {
		utils.NotFoundResponse(c, "Item")
		return
	}

	utils.SuccessResponse(c, gin.H{"item": item})
}

// PUT /items/:id
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	sellerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	item, err := h.itemService.UpdateItem(id, sellerID, &req)
	if err != nil {
		if strings.Contains(err.Error(), "unauthorized") {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Item")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"item": item})
}

// DELETE /items/:id
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	sellerID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.itemService.DeleteItem(id, sellerID); err != nil {
		if strings.Contains(err.Error(), "unauthorized") {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Item")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Item deleted"})
}

// POST /items/:id/files
func (h *ItemHandler) AddFile(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	sellerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.AddItemFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	file, err := h.itemService.AddFile(id, sellerID, &req)
	if err != nil {
		if strings.Contains(err.Error(), "unauthorized") {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "Item")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{"file": file})
}

// POST /items/:id/files/upload
func (h *ItemHandler) UploadFile(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	sellerID, ok := currentUserID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "No file provided", nil)
		return
	}
	defer file.Close()

	options := h.storageService.GetDefaultUploadOptions("item_files")
	result, err := h.storageService.UploadFile(file, header, options)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	drmProtected := true
	if v := c.PostForm("drm_protected"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			drmProtected = parsed
		}
	}

	record, err := h.itemService.AddFile(id, sellerID, &services.AddItemFileRequest{
		Name:         header.Filename,
		StorageKey:   result.Key,
		SizeBytes:    result.Size,
		MimeType:     result.MimeType,
		DRMProtected: &drmProtected,
	})
	if err != nil {
		if strings.Contains(err.Error(), "unauthorized") {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{"file": record})
}

// GET /items
func (h *ItemHandler) SearchItems(c *gin.Context) {
	params := services.ItemSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
	}

	if sellerIDStr := c.Query("seller_id"); sellerIDStr != "" {
		if sellerID, err := uuid.Parse(sellerIDStr); err == nil {
			params.SellerID = &sellerID
		}
	}
	if minPriceStr := c.Query("min_price"); minPriceStr != "" {
		if minPrice, err := strconv.ParseInt(minPriceStr, 10, 64); err == nil {
			params.MinPrice = &minPrice
		}
	}
	if maxPriceStr := c.Query("max_price"); maxPriceStr != "" {
		if maxPrice, err := strconv.ParseInt(maxPriceStr, 10, 64); err == nil {
			params.MaxPrice = &maxPrice
		}
	}
	if minRatingStr := c.Query("min_rating"); minRatingStr != "" {
		if minRating, err := strconv.ParseFloat(minRatingStr, 64); err == nil {
			params.MinRating = &minRating
		}
	}

	items, total, err := h.itemService.SearchItems(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(items, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /items/popular
func (h *ItemHandler) GetPopularItems(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	items, err := h.itemService.GetPopularItems(limit)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"items": items})
}

// GET /items/featured
func (h *ItemHandler) GetFeaturedItems(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	items, err := h.itemService.GetFeaturedItems(limit)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"items": items})
}

// GET /sellers/me/items
func (h *ItemHandler) GetMyItems(c *gin.Context) {
	sellerID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)

	items, total, err := h.itemService.GetSellerItems(sellerID, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(items, total, params)
	utils.PaginatedResponse(c, result)
}
