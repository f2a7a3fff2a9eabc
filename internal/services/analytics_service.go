// internal/services/analytics_service.go
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/fabhub/fabhub-backend/internal/models"
)

type AnalyticsService struct {
	db *gorm.DB
}

// SellerDashboard aggregates a seller's sales figures over a window.
type SellerDashboard struct {
	TotalSalesCents     int64            `json:"total_sales_cents"`
	TotalFeesCents      int64            `json:"total_fees_cents"`
	NetRevenueCents     int64            `json:"net_revenue_cents"`
	SalesCount          int64            `json:"sales_count"`
	PendingEscrowCents  int64            `json:"pending_escrow_cents"`
	AverageRating       float64          `json:"average_rating"`
	TotalReviews        int64            `json:"total_reviews"`
	ActiveItems         int64            `json:"active_items"`
	SalesByItem         []ItemSalesEntry `json:"sales_by_item"`
	RevenueByDay        []DailyRevenue   `json:"revenue_by_day"`
}

type ItemSalesEntry struct {
	ItemID     uuid.UUID `json:"item_id"`
	Title      string    `json:"title"`
	SalesCount int64     `json:"sales_count"`
	GrossCents int64     `json:"gross_cents"`
}

type DailyRevenue struct {
	Date       time.Time `json:"date"`
	GrossCents int64     `json:"gross_cents"`
	SalesCount int64     `json:"sales_count"`
}

// PlatformOverview is the admin-facing snapshot of marketplace health.
type PlatformOverview struct {
	TotalUsers        int64 `json:"total_users"`
	TotalSellers      int64 `json:"total_sellers"`
	TotalItems        int64 `json:"total_items"`
	TotalPurchases    int64 `json:"total_purchases"`
	GrossVolumeCents  int64 `json:"gross_volume_cents"`
	PlatformFeesCents int64 `json:"platform_fees_cents"`
	EscrowHeldCents   int64 `json:"escrow_held_cents"`
	OpenDisputes      int64 `json:"open_disputes"`
	TotalProjects     int64 `json:"total_projects"`
	TotalComments     int64 `json:"total_comments"`
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: db}
}

// Sales that count toward revenue: paid and not refunded
var revenueStatuses = []models.PurchaseStatus{
	models.PurchaseStatusCompleted,
	models.PurchaseStatusInEscrow,
}

func (s *AnalyticsService) GetSellerDashboard(sellerID uuid.UUID, from, to time.Time) (*SellerDashboard, error) {
	dashboard := &SellerDashboard{}

	var totals struct {
		Gross int64
		Fees  int64
		Count int64
	}
	if err := s.db.Model(&models.Purchase{}).
		Where("seller_id = ? AND status IN ? AND created_at BETWEEN ? AND ?",
			sellerID, revenueStatuses, from, to).
		Select("COALESCE(SUM(amount_cents), 0) as gross, COALESCE(SUM(platform_fee_cents), 0) as fees, COUNT(*) as count").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate sales: %w", err)
	}
	dashboard.TotalSalesCents = totals.Gross
	dashboard.TotalFeesCents = totals.Fees
	dashboard.NetRevenueCents = totals.Gross - totals.Fees
	dashboard.SalesCount = totals.Count

	if err := s.db.Model(&models.Purchase{}).
		Where("seller_id = ? AND status = ?", sellerID, models.PurchaseStatusInEscrow).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&dashboard.PendingEscrowCents).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate escrow: %w", err)
	}

	var ratingStats struct {
		Avg   float64
		Count int64
	}
	if err := s.db.Model(&models.Review{}).
		Joins("JOIN marketplace_items ON marketplace_items.id = reviews.item_id").
		Where("marketplace_items.seller_id = ?", sellerID).
		Select("COALESCE(AVG(reviews.rating), 0) as avg, COUNT(*) as count").
		Scan(&ratingStats).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate reviews: %w", err)
	}
	dashboard.AverageRating = ratingStats.Avg
	dashboard.TotalReviews = ratingStats.Count

	if err := s.db.Model(&models.MarketplaceItem{}).
		Where("seller_id = ? AND status = ?", sellerID, models.ItemStatusActive).
		Count(&dashboard.ActiveItems).Error; err != nil {
		return nil, fmt.Errorf("failed to count active items: %w", err)
	}

	if err := s.db.Model(&models.Purchase{}).
		Joins("JOIN marketplace_items ON marketplace_items.id = purchases.item_id").
		Where("purchases.seller_id = ? AND purchases.status IN ? AND purchases.created_at BETWEEN ? AND ?",
			sellerID, revenueStatuses, from, to).
		Select("purchases.item_id, marketplace_items.title, COUNT(*) as sales_count, COALESCE(SUM(purchases.amount_cents), 0) as gross_cents").
		Group("purchases.item_id, marketplace_items.title").
		Order("gross_cents DESC").
		Limit(20).
		Scan(&dashboard.SalesByItem).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate sales by item: %w", err)
	}

	if err := s.db.Model(&models.Purchase{}).
		Where("seller_id = ? AND status IN ? AND created_at BETWEEN ? AND ?",
			sellerID, revenueStatuses, from, to).
		Select("DATE(created_at) as date, COALESCE(SUM(amount_cents), 0) as gross_cents, COUNT(*) as sales_count").
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&dashboard.RevenueByDay).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate daily revenue: %w", err)
	}

	return dashboard, nil
}

func (s *AnalyticsService) GetPlatformOverview() (*PlatformOverview, error) {
	overview := &PlatformOverview{}

	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{query: s.db.Model(&models.User{}), dest: &overview.TotalUsers},
		{query: s.db.Model(&models.User{}).Where("role = ?", models.UserRoleSeller), dest: &overview.TotalSellers},
		{query: s.db.Model(&models.MarketplaceItem{}).Where("status = ?", models.ItemStatusActive), dest: &overview.TotalItems},
		{query: s.db.Model(&models.Purchase{}).Where("status IN ?", revenueStatuses), dest: &overview.TotalPurchases},
		{query: s.db.Model(&models.EscrowTransaction{}).Where("status = ?", models.EscrowStatusDisputed), dest: &overview.OpenDisputes},
		{query: s.db.Model(&models.Project{}).Where("status = ?", models.ProjectStatusPublished), dest: &overview.TotalProjects},
		{query: s.db.Model(&models.Comment{}), dest: &overview.TotalComments},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count: %w", err)
		}
	}

	var volume struct {
		Gross int64
		Fees  int64
	}
	if err := s.db.Model(&models.Purchase{}).
		Where("status IN ?", revenueStatuses).
		Select("COALESCE(SUM(amount_cents), 0) as gross, COALESCE(SUM(platform_fee_cents), 0) as fees").
		Scan(&volume).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate volume: %w", err)
	}
	overview.GrossVolumeCents = volume.Gross
	overview.PlatformFeesCents = volume.Fees

	if err := s.db.Model(&models.EscrowTransaction{}).
		Where("status = ?", models.EscrowStatusHolding).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&overview.EscrowHeldCents).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate held escrow: %w", err)
	}

	return overview, nil
}

// RecordDailySnapshot persists yesterday's headline metrics as rows, so
// trends survive row churn in the source tables. Idempotent per day.
func (s *AnalyticsService) RecordDailySnapshot() error {
	day := time.Now().AddDate(0, 0, -1).Truncate(24 * time.Hour)

	overview, err := s.GetPlatformOverview()
	if err != nil {
		return err
	}

	metrics := map[string]float64{
		"total_users":         float64(overview.TotalUsers),
		"total_purchases":     float64(overview.TotalPurchases),
		"gross_volume_cents":  float64(overview.GrossVolumeCents),
		"platform_fees_cents": float64(overview.PlatformFeesCents),
		"escrow_held_cents":   float64(overview.EscrowHeldCents),
	}

	for name, value := range metrics {
		var existing models.PlatformAnalytics
		err := s.db.Where("metric_name = ? AND metric_date = ? AND metric_period = ?",
			name, day, "daily").First(&existing).Error
		if err == nil {
			continue
		}

		snapshot := &models.PlatformAnalytics{
			MetricName:   name,
			MetricValue:  value,
			MetricDate:   day,
			MetricPeriod: "daily",
		}
		if err := s.db.Create(snapshot).Error; err != nil {
			logrus.WithError(err).WithField("metric", name).Error("Failed to record snapshot")
		}
	}

	return nil
}

func (s *AnalyticsService) GetMetricHistory(metricName string, days int) ([]models.PlatformAnalytics, error) {
	if days <= 0 || days > 365 {
		days = 30
	}

	since := time.Now().AddDate(0, 0, -days)

	var rows []models.PlatformAnalytics
	if err := s.db.Where("metric_name = ? AND metric_period = ? AND metric_date >= ?",
		metricName, "daily", since).
		Order("metric_date ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch metric history: %w", err)
	}

	return rows, nil
}
