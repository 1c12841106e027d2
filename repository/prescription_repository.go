package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pharmadirect/pharmacy-backend/models"
)

// PrescriptionRepository defines data access for prescriptions and the
// transactional verification write that also advances the linked order.
type PrescriptionRepository interface {
	Create(ctx context.Context, p *models.Prescription) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Prescription, error)
	FindWithOrder(ctx context.Context, id uuid.UUID) (*models.Prescription, error)
	FindByUserID(ctx context.Context, userID string) ([]models.Prescription, error)
	FindUnassignedByUser(ctx context.Context, userID string) ([]models.Prescription, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Prescription, error)
	FindPending(ctx context.Context) ([]models.Prescription, error)
	HasPending(ctx context.Context) (bool, error)
	Assign(ctx context.Context, prescriptionID, orderID uuid.UUID) error
	ApplyVerification(ctx context.Context, p *models.Prescription, orderTo models.OrderStatus) (bool, error)
}

// GormPrescriptionRepository implements PrescriptionRepository using GORM.
type GormPrescriptionRepository struct {
	db *gorm.DB
}

// NewGormPrescriptionRepository creates a new instance of GormPrescriptionRepository.
func NewGormPrescriptionRepository(db *gorm.DB) PrescriptionRepository {
	return &GormPrescriptionRepository{db: db}
}

func (r *GormPrescriptionRepository) Create(ctx context.Context, p *models.Prescription) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *GormPrescriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Prescription, error) {
	var p models.Prescription
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindWithOrder loads a prescription with its linked order and order
// items materialized, so callers never lean on lazy loading.
func (r *GormPrescriptionRepository) FindWithOrder(ctx context.Context, id uuid.UUID) (*models.Prescription, error) {
	var p models.Prescription
	err := r.db.WithContext(ctx).
		Preload("Order").
		Preload("Order.Items").
		Where("id = ?", id).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormPrescriptionRepository) FindByUserID(ctx context.Context, userID string) ([]models.Prescription, error) {
	var out []models.Prescription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("upload_date DESC").
		Find(&out).Error
	return out, err
}

// FindUnassignedByUser returns the user's prescriptions not yet linked
// to any order, most recent first.
func (r *GormPrescriptionRepository) FindUnassignedByUser(ctx context.Context, userID string) ([]models.Prescription, error) {
	var out []models.Prescription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND order_id IS NULL", userID).
		Order("upload_date DESC").
		Find(&out).Error
	return out, err
}

func (r *GormPrescriptionRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Prescription, error) {
	var out []models.Prescription
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("upload_date DESC").
		Find(&out).Error
	return out, err
}

// FindPending lists prescriptions awaiting verification, with their
// orders materialized for the review screen.
func (r *GormPrescriptionRepository) FindPending(ctx context.Context) ([]models.Prescription, error) {
	var out []models.Prescription
	err := r.db.WithContext(ctx).
		Preload("Order").
		Preload("Order.Items").
		Where("status = ?", models.PrescriptionPending).
		Order("upload_date ASC").
		Find(&out).Error
	return out, err
}

func (r *GormPrescriptionRepository) HasPending(ctx context.Context) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Prescription{}).
		Where("status = ?", models.PrescriptionPending).
		Count(&count).Error
	return count > 0, err
}

// Assign links an unassigned prescription to an order.
func (r *GormPrescriptionRepository) Assign(ctx context.Context, prescriptionID, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Prescription{}).
		Where("id = ? AND order_id IS NULL", prescriptionID).
		Update("order_id", orderID).Error
}

// ApplyVerification persists the verified prescription and, when it is
// linked to an order, advances that order to orderTo in the same
// transaction. The order row is locked and the transition table
// consulted; a refused transition leaves the order untouched and
// reports false. Prescription fields must already be set by the caller.
func (r *GormPrescriptionRepository) ApplyVerification(ctx context.Context, p *models.Prescription, orderTo models.OrderStatus) (bool, error) {
	orderChanged := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(p).Error; err != nil {
			return err
		}

		orderID, linked := p.AssignedOrder()
		if !linked {
			return nil
		}

		var order models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", orderID).
			First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if !models.CanTransition(order.Status, orderTo) {
			return nil
		}

		order.Status = orderTo
		if err := tx.Omit(clause.Associations).Save(&order).Error; err != nil {
			return err
		}
		orderChanged = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return orderChanged, nil
}
