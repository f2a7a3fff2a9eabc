// internal/services/admin_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/fabhub/fabhub-backend/internal/models"
	"github.com/fabhub/fabhub-backend/internal/utils"
)

// AdminService holds moderation operations reserved for platform staff.
type AdminService struct {
	db *gorm.DB
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

type UserSearchParams struct {
	utils.PaginationParams
	Role   *models.UserRole
	Status *models.UserStatus
}

func (s *AdminService) SearchUsers(params UserSearchParams) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{})

	if params.Role != nil {
		query = query.Where("role = ?", *params.Role)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Search != "" {
		searchTerm := "%" + params.Search + "%"
		query = query.Where("username ILIKE ? OR email ILIKE ?", searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	allowedSortFields := []string{"created_at", "username", "email"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, total, nil
}

func (s *AdminService) SetUserStatus(userID uuid.UUID, status models.UserStatus) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if user.Role == models.UserRoleAdmin {
		return nil, errors.New("cannot change status of an admin account")
	}

	user.Status = status
	if err := s.db.Save(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"status":  status,
	}).Warn("User status changed by admin")

	return &user, nil
}

// SuspendItem pulls an item from the catalog. Existing purchases keep
// their download access.
func (s *AdminService) SuspendItem(itemID uuid.UUID, reason string) (*models.MarketplaceItem, error) {
	var item models.MarketplaceItem
	if err := s.db.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("item not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	item.Status = models.ItemStatusSuspended
	if err := s.db.Save(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to suspend item: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"item_id": itemID,
		"reason":  reason,
	}).Warn("Item suspended by admin")

	return &item, nil
}

func (s *AdminService) ReinstateItem(itemID uuid.UUID) (*models.MarketplaceItem, error) {
	var item models.MarketplaceItem
	if err := s.db.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("item not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if item.Status != models.ItemStatusSuspended {
		return nil, errors.New("item is not suspended")
	}

	item.Status = models.ItemStatusActive
	if err := s.db.Save(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to reinstate item: %w", err)
	}

	return &item, nil
}

func (s *AdminService) SetItemFeatured(itemID uuid.UUID, featured bool) (*models.MarketplaceItem, error) {
	var item models.MarketplaceItem
	if err := s.db.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("item not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	item.Featured = featured
	if err := s.db.Save(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	return &item, nil
}

func (s *AdminService) GetAuditLogs(params utils.PaginationParams, action string, userID *uuid.UUID) ([]models.AuditLog, int64, error) {
	query := s.db.Model(&models.AuditLog{}).Preload("User")

	if action != "" {
		query = query.Where("action = ?", action)
	}
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "action"})
	query = utils.ApplyPagination(query, params)

	var logs []models.AuditLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}

	return logs, total, nil
}
