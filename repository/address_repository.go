package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmadirect/pharmacy-backend/models"
)

// AddressRepository defines data access for the per-user address book.
type AddressRepository interface {
	Create(ctx context.Context, a *models.Address) error
	FindByIDAndUser(ctx context.Context, id uuid.UUID, userID string) (*models.Address, error)
	FindByUser(ctx context.Context, userID string) ([]models.Address, error)
	SetDefault(ctx context.Context, id uuid.UUID, userID string) (bool, error)
}

// GormAddressRepository implements AddressRepository using GORM.
type GormAddressRepository struct {
	db *gorm.DB
}

// NewGormAddressRepository creates a new instance of GormAddressRepository.
func NewGormAddressRepository(db *gorm.DB) AddressRepository {
	return &GormAddressRepository{db: db}
}

func (r *GormAddressRepository) Create(ctx context.Context, a *models.Address) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// FindByIDAndUser returns (nil, nil) when the address does not exist or
// belongs to someone else; ownership is part of the lookup.
func (r *GormAddressRepository) FindByIDAndUser(ctx context.Context, id uuid.UUID, userID string) (*models.Address, error) {
	var a models.Address
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormAddressRepository) FindByUser(ctx context.Context, userID string) ([]models.Address, error) {
	var out []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at ASC").
		Find(&out).Error
	return out, err
}

// SetDefault marks one address default and clears the flag on the rest
// of the user's book in a single transaction.
func (r *GormAddressRepository) SetDefault(ctx context.Context, id uuid.UUID, userID string) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Address{}).
			Where("id = ? AND user_id = ?", id, userID).
			Update("is_default", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Model(&models.Address{}).
			Where("user_id = ? AND id <> ?", userID, id).
			Update("is_default", false).Error; err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}
