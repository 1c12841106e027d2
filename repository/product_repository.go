package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmadirect/pharmacy-backend/models"
)

// DefaultProductPageSize is used when the caller passes no usable size.
const DefaultProductPageSize = 12

var productSortFields = map[string]string{
	"name":  "name",
	"price": "price",
	"date":  "created_at",
}

// ProductFilter is the catalog browsing filter set.
type ProductFilter struct {
	Search     string
	CategoryID *uuid.UUID
	Brand      string
	Form       string
	RxRequired *bool
	MinPrice   *int64
	MaxPrice   *int64
}

// Normalize trims the search term, drops negative prices and swaps an
// inverted price range.
func (f ProductFilter) Normalize() ProductFilter {
	f.Search = strings.TrimSpace(f.Search)
	if f.MinPrice != nil && *f.MinPrice < 0 {
		zero := int64(0)
		f.MinPrice = &zero
	}
	if f.MaxPrice != nil && *f.MaxPrice < 0 {
		f.MaxPrice = nil
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		f.MinPrice, f.MaxPrice = f.MaxPrice, f.MinPrice
	}
	return f
}

// ProductRepository is the read-only catalog gateway plus the paged
// browse query. FindByID returns (nil, nil) for an unknown product so
// cart pricing can skip dangling lines instead of failing.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindPaged(ctx context.Context, filter ProductFilter, page PageRequest) (*PagedResult[models.Product], error)
}

// GormProductRepository implements ProductRepository using GORM.
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new instance of GormProductRepository.
func NewGormProductRepository(db *gorm.DB) ProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("id = ?", id).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormProductRepository) FindPaged(ctx context.Context, filter ProductFilter, page PageRequest) (*PagedResult[models.Product], error) {
	filter = filter.Normalize()
	page = page.Normalize(DefaultProductPageSize, productSortFields, "name", false)

	query := r.db.WithContext(ctx).Model(&models.Product{})

	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR brand ILIKE ? OR description ILIKE ?", term, term, term)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Brand != "" {
		query = query.Where("brand = ?", filter.Brand)
	}
	if filter.Form != "" {
		query = query.Where("form = ?", filter.Form)
	}
	if filter.RxRequired != nil {
		query = query.Where("rx_required = ?", *filter.RxRequired)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	column := productSortFields[normalizeSortKey(page.SortBy)]
	dir := "ASC"
	if page.SortDesc {
		dir = "DESC"
	}

	var products []models.Product
	if err := query.
		Preload("Category").
		Order(column + " " + dir).
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&products).Error; err != nil {
		return nil, err
	}

	return &PagedResult[models.Product]{
		Items:      products,
		PageNumber: page.Number,
		PageSize:   page.Size,
		TotalCount: total,
	}, nil
}
