// internal/services/review_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabhub/fabhub-backend/internal/database"
	"github.com/fabhub/fabhub-backend/internal/models"
	"github.com/fabhub/fabhub-backend/internal/utils"
)

// ReviewService handles verified-purchase reviews. Only a buyer who paid
// for the item can review it, and only once per purchase.
type ReviewService struct {
	db                  *gorm.DB
	notificationService *NotificationService
}

type CreateReviewRequest struct {
	PurchaseID uuid.UUID `json:"purchase_id" validate:"required"`
	Rating     int       `json:"rating" validate:"required,min=1,max=5"`
	Title      string    `json:"title" validate:"max=255"`
	Content    string    `json:"content" validate:"max=5000"`
}

type SellerResponseRequest struct {
	Response string `json:"response" validate:"required,max=2000"`
}

func NewReviewService(db *gorm.DB, notificationService *NotificationService) *ReviewService {
	return &ReviewService{
		db:                  db,
		notificationService: notificationService,
	}
}

// CreateReview posts a review against a purchase. The purchase must belong
// to the reviewer and be paid for (completed, or in escrow awaiting
// release). One review per purchase.
func (s *ReviewService) CreateReview(reviewerID uuid.UUID, req *CreateReviewRequest) (*models.Review, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var purchase models.Purchase
	if err := s.db.Preload("Item").First(&purchase, req.PurchaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("purchase not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if purchase.BuyerID != reviewerID {
		return nil, errors.New("only the buyer can review this purchase")
	}

	if purchase.Status != models.PurchaseStatusCompleted && purchase.Status != models.PurchaseStatusInEscrow {
		return nil, errors.New("purchase must be paid before reviewing")
	}

	var existing models.Review
	if err := s.db.Where("purchase_id = ?", purchase.ID).First(&existing).Error; err == nil {
		return nil, errors.New("purchase already has a review")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	review := &models.Review{
		PurchaseID:       purchase.ID,
		ItemID:           purchase.ItemID,
		ReviewerID:       reviewerID,
		Rating:           req.Rating,
		Title:            req.Title,
		Content:          req.Content,
		VerifiedPurchase: true,
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(review).Error; err != nil {
			return fmt.Errorf("failed to create review: %w", err)
		}
		return s.recalculateItemRating(tx, purchase.ItemID)
	})
	if err != nil {
		return nil, err
	}

	// Reload with relations for the notification
	s.db.Preload("Item").Preload("Reviewer").First(review, review.ID)
	go s.notificationService.NotifyReviewPosted(review)

	return review, nil
}

func (s *ReviewService) UpdateReview(reviewID, reviewerID uuid.UUID, rating int, title, content string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, errors.New("rating must be between 1 and 5")
	}

	var review models.Review
	if err := s.db.First(&review, reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("review not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if review.ReviewerID != reviewerID {
		return nil, errors.New("unauthorized to update review")
	}

	review.Rating = rating
	review.Title = title
	review.Content = content

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Save(&review).Error; err != nil {
			return fmt.Errorf("failed to update review: %w", err)
		}
		return s.recalculateItemRating(tx, review.ItemID)
	})
	if err != nil {
		return nil, err
	}

	return &review, nil
}

func (s *ReviewService) DeleteReview(reviewID, userID uuid.UUID, isAdmin bool) error {
	var review models.Review
	if err := s.db.First(&review, reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("review not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	if review.ReviewerID != userID && !isAdmin {
		return errors.New("unauthorized to delete review")
	}

	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Delete(&review).Error; err != nil {
			return fmt.Errorf("failed to delete review: %w", err)
		}
		return s.recalculateItemRating(tx, review.ItemID)
	})
}

// RespondToReview attaches the seller's single public response.
func (s *ReviewService) RespondToReview(reviewID, sellerID uuid.UUID, req *SellerResponseRequest) (*models.Review, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var review models.Review
	if err := s.db.Preload("Item").First(&review, reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("review not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if review.Item.SellerID != sellerID {
		return nil, errors.New("only the item's seller can respond")
	}

	if review.SellerResponse != "" {
		return nil, errors.New("review already has a seller response")
	}

	now := time.Now()
	review.SellerResponse = req.Response
	review.SellerRespondedAt = &now

	if err := s.db.Save(&review).Error; err != nil {
		return nil, fmt.Errorf("failed to save response: %w", err)
	}

	return &review, nil
}

func (s *ReviewService) GetItemReviews(itemID uuid.UUID, params utils.PaginationParams) ([]models.Review, int64, error) {
	query := s.db.Model(&models.Review{}).
		Where("item_id = ?", itemID).
		Preload("Reviewer")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	allowedSortFields := []string{"created_at", "rating"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var reviews []models.Review
	if err := query.Find(&reviews).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch reviews: %w", err)
	}

	return reviews, total, nil
}

// recalculateItemRating recomputes the denormalized rating fields from the
// review rows. Runs inside the same transaction as the review write.
func (s *ReviewService) recalculateItemRating(tx *gorm.DB, itemID uuid.UUID) error {
	var stats struct {
		Avg   float64
		Count int64
	}
	if err := tx.Model(&models.Review{}).
		Where("item_id = ?", itemID).
		Select("COALESCE(AVG(rating), 0) as avg, COUNT(*) as count").
		Scan(&stats).Error; err != nil {
		return fmt.Errorf("failed to aggregate reviews: %w", err)
	}

	if err := tx.Model(&models.MarketplaceItem{}).
		Where("id = ?", itemID).
		Updates(map[string]interface{}{
			"rating":       stats.Avg,
			"review_count": stats.Count,
		}).Error; err != nil {
		return fmt.Errorf("failed to update item rating: %w", err)
	}

	return nil
}
