package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pharmadirect/pharmacy-backend/models"
)

// DefaultOrderPageSize is used when the caller passes no usable size.
const DefaultOrderPageSize = 10

// orderSortFields maps request sort keys to column expressions.
var orderSortFields = map[string]string{
	"orderdate":   "order_date",
	"totalamount": "total_amount",
	"status":      "status",
}

// OrderFilter is the admin/reporting filter set. Zero values mean
// "no constraint".
type OrderFilter struct {
	Search          string
	UserID          string
	Status          *models.OrderStatus
	MinDate         *time.Time
	MaxDate         *time.Time
	MinAmount       *int64
	MaxAmount       *int64
	HasPrescription *bool
}

// Normalize repairs inverted ranges by swapping them rather than
// rejecting the request.
func (f OrderFilter) Normalize() OrderFilter {
	if f.MinAmount != nil && f.MaxAmount != nil && *f.MinAmount > *f.MaxAmount {
		f.MinAmount, f.MaxAmount = f.MaxAmount, f.MinAmount
	}
	if f.MinDate != nil && f.MaxDate != nil && f.MinDate.After(*f.MaxDate) {
		f.MinDate, f.MaxDate = f.MaxDate, f.MinDate
	}
	return f
}

// OrderRepository defines the interface for order data access. Status
// is only ever changed through Transition, which consults the
// transition table under a row lock.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	FindByUserID(ctx context.Context, userID string) ([]models.Order, error)
	SetSessionID(ctx context.Context, orderID uuid.UUID, sessionID string) error
	SetPrescriptionID(ctx context.Context, orderID, prescriptionID uuid.UUID) error
	Transition(ctx context.Context, orderID uuid.UUID, to models.OrderStatus, mutate func(*models.Order)) (*models.Order, bool, error)
	DeleteIfPending(ctx context.Context, orderID uuid.UUID) (bool, error)
	FindPaged(ctx context.Context, filter OrderFilter, page PageRequest) (*PagedResult[models.Order], error)
}

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new instance of GormOrderRepository.
func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

// Create persists the order together with its line items in one
// transaction.
func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByID loads an order with its items. Returns (nil, nil) when no
// such order exists.
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindBySessionID loads the order holding the given checkout-session
// id. Returns (nil, nil) when no order matches; webhook confirmation
// treats that as a harmless no-op.
func (r *GormOrderRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("session_id = ?", sessionID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByUserID returns the user's orders, newest first.
func (r *GormOrderRepository) FindByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("order_date DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// SetSessionID records the checkout-session id on the order.
func (r *GormOrderRepository) SetSessionID(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("session_id", sessionID).Error
}

// SetPrescriptionID links a prescription to the order.
func (r *GormOrderRepository) SetPrescriptionID(ctx context.Context, orderID, prescriptionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("prescription_id", prescriptionID).Error
}

// Transition moves the order to the target status if the transition
// table allows it, under a row-level lock so concurrent confirmations
// cannot both apply. mutate, if non-nil, runs on the locked order only
// when the transition is applied (for recording payment ids alongside
// the status change). Returns the order as last seen, whether the
// transition was applied, and any storage error. A missing order
// returns (nil, false, nil); a refused transition returns the order
// unchanged with applied == false.
func (r *GormOrderRepository) Transition(ctx context.Context, orderID uuid.UUID, to models.OrderStatus, mutate func(*models.Order)) (*models.Order, bool, error) {
	var order models.Order
	applied := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", orderID).
			First(&order).Error
		if err != nil {
			return err
		}

		if !models.CanTransition(order.Status, to) {
			return nil
		}

		order.Status = to
		if mutate != nil {
			mutate(&order)
		}
		if err := tx.Omit(clause.Associations).Save(&order).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &order, applied, nil
}

// DeleteIfPending removes the order and its items, but only while it is
// still Pending. A paid or approved order is never deletable through
// this path; the call reports false and leaves it untouched.
func (r *GormOrderRepository) DeleteIfPending(ctx context.Context, orderID uuid.UUID) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", orderID).
			First(&order).Error
		if err != nil {
			return err
		}
		if order.Status != models.StatusPending {
			return nil
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&order).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// FindPaged runs the admin/reporting query: filter, count, sort, slice.
// The caller is expected to have normalized the page request; the
// filter is normalized here so inverted ranges never reach SQL.
func (r *GormOrderRepository) FindPaged(ctx context.Context, filter OrderFilter, page PageRequest) (*PagedResult[models.Order], error) {
	filter = filter.Normalize()
	page = page.Normalize(DefaultOrderPageSize, orderSortFields, "orderdate", true)

	query := r.db.WithContext(ctx).Model(&models.Order{})

	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		query = query.Where(
			"CAST(id AS TEXT) ILIKE ? OR session_id ILIKE ? OR payment_intent_id ILIKE ?",
			term, term, term,
		)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.MinDate != nil {
		query = query.Where("order_date >= ?", *filter.MinDate)
	}
	if filter.MaxDate != nil {
		query = query.Where("order_date <= ?", *filter.MaxDate)
	}
	if filter.MinAmount != nil {
		query = query.Where("total_amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("total_amount <= ?", *filter.MaxAmount)
	}
	if filter.HasPrescription != nil {
		if *filter.HasPrescription {
			query = query.Where("prescription_id IS NOT NULL")
		} else {
			query = query.Where("prescription_id IS NULL")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	column := orderSortFields[normalizeSortKey(page.SortBy)]
	dir := "ASC"
	if page.SortDesc {
		dir = "DESC"
	}
	orderExpr := column + " " + dir
	if column == "total_amount" {
		orderExpr += ", order_date " + dir
	}

	var orders []models.Order
	if err := query.
		Preload("Items").
		Order(orderExpr).
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&orders).Error; err != nil {
		return nil, err
	}

	return &PagedResult[models.Order]{
		Items:      orders,
		PageNumber: page.Number,
		PageSize:   page.Size,
		TotalCount: total,
	}, nil
}
