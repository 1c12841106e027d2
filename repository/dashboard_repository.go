package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pharmadirect/pharmacy-backend/models"
)

// DashboardRepository serves the aggregate reads behind the admin
// dashboard. Grouped counts are pushed into SQL; per-order breakdowns
// (revenue buckets, top sellers) are computed by the service from the
// orders returned here.
type DashboardRepository interface {
	OrdersInRange(ctx context.Context, from, to time.Time) ([]models.Order, error)
	ProductCounts(ctx context.Context) (total, rxRequired int64, err error)
	ProductCountsByCategory(ctx context.Context) (map[string]int64, error)
	DistinctCustomerCount(ctx context.Context) (int64, error)
	OrdersByRegion(ctx context.Context) (map[string]int64, error)
}

// GormDashboardRepository implements DashboardRepository using GORM.
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewGormDashboardRepository creates a new instance of GormDashboardRepository.
func NewGormDashboardRepository(db *gorm.DB) DashboardRepository {
	return &GormDashboardRepository{db: db}
}

// OrdersInRange returns every order placed inside [from, to] with its
// items, for in-memory statistics passes.
func (r *GormDashboardRepository) OrdersInRange(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_date >= ? AND order_date <= ?", from, to).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormDashboardRepository) ProductCounts(ctx context.Context) (int64, int64, error) {
	var total, rx int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("rx_required = ?", true).
		Count(&rx).Error
	if err != nil {
		return 0, 0, err
	}
	return total, rx, nil
}

type nameCount struct {
	Name  string
	Count int64
}

func (r *GormDashboardRepository) ProductCountsByCategory(ctx context.Context) (map[string]int64, error) {
	var rows []nameCount
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("categories.name AS name, COUNT(products.id) AS count").
		Joins("JOIN categories ON categories.id = products.category_id").
		Group("categories.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Count
	}
	return out, nil
}

func (r *GormDashboardRepository) DistinctCustomerCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Distinct("user_id").
		Count(&count).Error
	return count, err
}

// OrdersByRegion groups on the shipping region frozen onto each order,
// so no address-book join is needed and edits there cannot rewrite
// history.
func (r *GormDashboardRepository) OrdersByRegion(ctx context.Context) (map[string]int64, error) {
	var rows []nameCount
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("ship_region AS name, COUNT(*) AS count").
		Group("ship_region").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Count
	}
	return out, nil
}
