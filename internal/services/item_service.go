// internal/services/item_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabhub/fabhub-backend/internal/models"
	"github.com/fabhub/fabhub-backend/internal/utils"
)

type ItemService struct {
	db *gorm.DB
}

type CreateItemRequest struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Description string   `json:"description"`
	Category    string   `json:"category" validate:"required,max=100"`
	PriceCents  int64    `json:"price_cents" validate:"min=0"`
	Images      []string `json:"images,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type UpdateItemRequest struct {
	Title       *string            `json:"title,omitempty"`
	Description *string            `json:"description,omitempty"`
	Category    *string            `json:"category,omitempty"`
	PriceCents  *int64             `json:"price_cents,omitempty"`
	Images      []string           `json:"images,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	Status      *models.ItemStatus `json:"status,omitempty"`
}

type AddItemFileRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	StorageKey   string `json:"storage_key" validate:"required"`
	SizeBytes    int64  `json:"size_bytes"`
	MimeType     string `json:"mime_type"`
	DRMProtected *bool  `json:"drm_protected,omitempty"`
}

type ItemSearchParams struct {
	utils.PaginationParams
	SellerID  *uuid.UUID
	MinPrice  *int64
	MaxPrice  *int64
	MinRating *float64
}

func NewItemService(db *gorm.DB) *ItemService {
	return &ItemService{db: db}
}

func (s *ItemService) CreateItem(sellerID uuid.UUID, req *CreateItemRequest) (*models.MarketplaceItem, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var seller models.User
	if err := s.db.First(&seller, sellerID).Error; err != nil {
		return nil, errors.New("seller not found")
	}

	if !seller.CanSell() {
		return nil, errors.New("only sellers can list items")
	}

	if seller.Status != models.UserStatusActive {
		return nil, errors.New("seller account is not active")
	}

	item := &models.MarketplaceItem{
		SellerID:    sellerID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		Images:      req.Images,
		Tags:        req.Tags,
		Status:      models.ItemStatusDraft,
	}

	if err := s.db.Create(item).Error; err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	return item, nil
}

func (s *ItemService) GetItem(id uuid.UUID, viewerID *uuid.UUID) (*models.MarketplaceItem, error) {
	var item models.MarketplaceItem
	if err := s.db.Preload("Seller").Preload("Files").First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("item not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	// Drafts and suspended items are visible to the owner only
	if item.Status != models.ItemStatusActive {
		if viewerID == nil || *viewerID != item.SellerID {
			return nil, errors.New("item not found")
		}
	}

	// Count views for non-owner reads; losing one under a race is fine
	if viewerID == nil || *viewerID != item.SellerID {
		go s.incrementViewCount(item.ID)
	}

	return &item, nil
}

func (s *ItemService) UpdateItem(id uuid.UUID, sellerID uuid.UUID, req *UpdateItemRequest) (*models.MarketplaceItem, error) {
	var item models.MarketplaceItem
	if err := s.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("item not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if item.SellerID != sellerID {
		return nil, errors.New("unauthorized to update item")
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			return nil, errors.New("price cannot be negative")
		}
		item.PriceCents = *req.PriceCents
	}
	if req.Images != nil {
		item.Images = req.Images
	}
	if req.Tags != nil {
		item.Tags = req.Tags
	}
	if req.Status != nil {
		switch *req.Status {
		case models.ItemStatusDraft, models.ItemStatusActive:
			item.Status = *req.Status
		default:
			return nil, errors.New("invalid status transition")
		}
	}

	if err := s.db.Save(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	return &item, nil
}

// DeleteItem soft-deletes; existing purchases keep their download access.
func (s *ItemService) DeleteItem(id uuid.UUID, sellerID uuid.UUID) error {
	var item models.MarketplaceItem
	if err := s.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("item not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	if item.SellerID != sellerID {
		return errors.New("unauthorized to delete item")
	}

	// Refuse deletion with purchases stuck mid-flight
	var pendingCount int64
	if err := s.db.Model(&models.Purchase{}).
		Where("item_id = ? AND status IN (?, ?, ?)", id,
			models.PurchaseStatusPendingPayment,
			models.PurchaseStatusPaymentProcessing,
			models.PurchaseStatusInEscrow).
		Count(&pendingCount).Error; err != nil {
		return fmt.Errorf("failed to check pending purchases: %w", err)
	}

	if pendingCount > 0 {
		return errors.New("cannot delete item with pending purchases")
	}

	if err := s.db.Delete(&item).Error; err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	return nil
}

func (s *ItemService) AddFile(itemID, sellerID uuid.UUID, req *AddItemFileRequest) (*models.ItemFile, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var item models.MarketplaceItem
	if err := s.db.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("item not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if item.SellerID != sellerID {
		return nil, errors.New("unauthorized to add files")
	}

	drm := true
	if req.DRMProtected != nil {
		drm = *req.DRMProtected
	}

	file := &models.ItemFile{
		ItemID:       itemID,
		Name:         req.Name,
		StorageKey:   req.StorageKey,
		SizeBytes:    req.SizeBytes,
		MimeType:     req.MimeType,
		DRMProtected: drm,
	}

	if err := s.db.Create(file).Error; err != nil {
		return nil, fmt.Errorf("failed to add file: %w", err)
	}

	return file, nil
}

func (s *ItemService) SearchItems(params ItemSearchParams) ([]models.MarketplaceItem, int64, error) {
	query := s.db.Model(&models.MarketplaceItem{}).
		Where("status = ?", models.ItemStatusActive).
		Preload("Seller")

	if params.SellerID != nil {
		query = query.Where("seller_id = ?", *params.SellerID)
	}
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Search != "" {
		searchTerm := "%" + params.Search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", searchTerm, searchTerm)
	}
	if params.MinPrice != nil {
		query = query.Where("price_cents >= ?", *params.MinPrice)
	}
	if params.MaxPrice != nil {
		query = query.Where("price_cents <= ?", *params.MaxPrice)
	}
	if params.MinRating != nil {
		query = query.Where("rating >= ?", *params.MinRating)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	allowedSortFields := []string{"created_at", "price_cents", "rating", "purchase_count", "view_count"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var items []models.MarketplaceItem
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch items: %w", err)
	}

	return items, total, nil
}

func (s *ItemService) GetSellerItems(sellerID uuid.UUID, params utils.PaginationParams) ([]models.MarketplaceItem, int64, error) {
	query := s.db.Model(&models.MarketplaceItem{}).Where("seller_id = ?", sellerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	allowedSortFields := []string{"created_at", "price_cents", "rating", "purchase_count"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var items []models.MarketplaceItem
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch items: %w", err)
	}

	return items, total, nil
}

func (s *ItemService) GetPopularItems(limit int) ([]models.MarketplaceItem, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var items []models.MarketplaceItem
	if err := s.db.Where("status = ?", models.ItemStatusActive).
		Order("purchase_count DESC, rating DESC").
		Limit(limit).
		Preload("Seller").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch popular items: %w", err)
	}

	return items, nil
}

func (s *ItemService) GetFeaturedItems(limit int) ([]models.MarketplaceItem, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var items []models.MarketplaceItem
	if err := s.db.Where("status = ? AND featured = ?", models.ItemStatusActive, true).
		Order("created_at DESC").
		Limit(limit).
		Preload("Seller").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch featured items: %w", err)
	}

	return items, nil
}

func (s *ItemService) incrementViewCount(itemID uuid.UUID) {
	s.db.Model(&models.MarketplaceItem{}).
		Where("id = ?", itemID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
}
