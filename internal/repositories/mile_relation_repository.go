package repositories

import (
	"errors"
	"time"

	"moa_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrMileRelationNotFound = errors.New("mile relation not found")
	// ErrMileRelationSettled - заморозка уже разрешена, повторная операция
	// с кассой по ней запрещена.
	ErrMileRelationSettled = errors.New("mile relation already settled")
)

type MileRelationRepository interface {
	Create(relation *models.MileRelation) error
	FindByTransactionUUID(transactionUUID string) (*models.MileRelation, error)
	FindByOrder(orderID int64) (*models.MileRelation, error)

	// Claim закрывает заморозку охраняемым UPDATE. Вызывается до похода
	// в кассу: из конкурирующих callback'ов ровно один получает nil,
	// остальные - ErrMileRelationSettled.
	Claim(transactionUUID string) error
	// Reopen возвращает заморозку в нерешённое состояние после сбоя
	// операции с кассой.
	Reopen(transactionUUID string) error
	// SetBonus фиксирует бонус, начисленный кассой при расчёте.
	SetBonus(transactionUUID string, bonusMileCount int64) error
}

type MileRelationRepositoryImpl struct {
	db *gorm.DB
}

func NewMileRelationRepository(db *gorm.DB) MileRelationRepository {
	return &MileRelationRepositoryImpl{db: db}
}

func (r *MileRelationRepositoryImpl) Create(relation *models.MileRelation) error {
	return r.db.Create(relation).Error
}

func (r *MileRelationRepositoryImpl) FindByTransactionUUID(transactionUUID string) (*models.MileRelation, error) {
	var relation models.MileRelation
	err := r.db.Where("transaction_uuid = ?", transactionUUID).First(&relation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMileRelationNotFound
		}
		return nil, err
	}
	return &relation, nil
}

func (r *MileRelationRepositoryImpl) FindByOrder(orderID int64) (*models.MileRelation, error) {
	var relation models.MileRelation
	err := r.db.Where("order_id = ?", orderID).First(&relation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMileRelationNotFound
		}
		return nil, err
	}
	return &relation, nil
}

func (r *MileRelationRepositoryImpl) Claim(transactionUUID string) error {
	result := r.db.Model(&models.MileRelation{}).
		Where("transaction_uuid = ? AND settled = ?", transactionUUID, false).
		Updates(map[string]interface{}{
			"settled":    true,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMileRelationSettled
	}
	return nil
}

func (r *MileRelationRepositoryImpl) Reopen(transactionUUID string) error {
	result := r.db.Model(&models.MileRelation{}).
		Where("transaction_uuid = ?", transactionUUID).
		Updates(map[string]interface{}{
			"settled":    false,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMileRelationNotFound
	}
	return nil
}

func (r *MileRelationRepositoryImpl) SetBonus(transactionUUID string, bonusMileCount int64) error {
	result := r.db.Model(&models.MileRelation{}).
		Where("transaction_uuid = ?", transactionUUID).
		Updates(map[string]interface{}{
			"bonus_mile_count": bonusMileCount,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMileRelationNotFound
	}
	return nil
}
