package repositories

import (
	"errors"
	"time"

	"moa_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrCardNotFound = errors.New("premium card not found")
	// ErrActiveCardExists - у профиля уже есть активная привязка.
	ErrActiveCardExists = errors.New("active premium card already exists")
)

type PremiumCardRepository interface {
	Create(card *models.PremiumCard) error
	FindByID(id int64) (*models.PremiumCard, error)
	FindActiveByProfile(profileID int64) (*models.PremiumCard, error)

	SetGatewayOrderID(id int64, gatewayOrderID string) error

	// Activate помечает запись активной, если у профиля нет другой активной.
	Activate(id int64, bindingID, pan, expiryDate string) error
	Deactivate(id int64) error
	Delete(id int64) error
}

type PremiumCardRepositoryImpl struct {
	db *gorm.DB
}

func NewPremiumCardRepository(db *gorm.DB) PremiumCardRepository {
	return &PremiumCardRepositoryImpl{db: db}
}

func (r *PremiumCardRepositoryImpl) Create(card *models.PremiumCard) error {
	return r.db.Create(card).Error
}

func (r *PremiumCardRepositoryImpl) FindByID(id int64) (*models.PremiumCard, error) {
	var card models.PremiumCard
	err := r.db.First(&card, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return &card, nil
}

func (r *PremiumCardRepositoryImpl) FindActiveByProfile(profileID int64) (*models.PremiumCard, error) {
	var card models.PremiumCard
	err := r.db.Where("profile_id = ? AND active = ?", profileID, true).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return &card, nil
}

func (r *PremiumCardRepositoryImpl) SetGatewayOrderID(id int64, gatewayOrderID string) error {
	result := r.db.Model(&models.PremiumCard{}).Where("id = ?", id).Updates(map[string]interface{}{
		"gateway_order_id": gatewayOrderID,
		"updated_at":       time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (r *PremiumCardRepositoryImpl) Activate(id int64, bindingID, pan, expiryDate string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var card models.PremiumCard
		if err := tx.First(&card, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCardNotFound
			}
			return err
		}

		var activeCount int64
		if err := tx.Model(&models.PremiumCard{}).
			Where("profile_id = ? AND active = ? AND id <> ?", card.ProfileID, true, id).
			Count(&activeCount).Error; err != nil {
			return err
		}
		if activeCount > 0 {
			return ErrActiveCardExists
		}

		return tx.Model(&card).Updates(map[string]interface{}{
			"active":      true,
			"binding_id":  bindingID,
			"pan":         pan,
			"expiry_date": expiryDate,
			"updated_at":  time.Now(),
		}).Error
	})
}

func (r *PremiumCardRepositoryImpl) Deactivate(id int64) error {
	result := r.db.Model(&models.PremiumCard{}).Where("id = ?", id).Updates(map[string]interface{}{
		"active":     false,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (r *PremiumCardRepositoryImpl) Delete(id int64) error {
	result := r.db.Where("id = ?", id).Delete(&models.PremiumCard{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}
	return nil
}
