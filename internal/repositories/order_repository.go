package repositories

import (
	"errors"
	"time"

	"moa_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrAlreadyProcessed - заказ уже рассчитан, повторный расчёт запрещён.
	ErrAlreadyProcessed = errors.New("order already processed")
)

type OrderRepository interface {
	Create(order *models.Order) error
	FindByID(id int64) (*models.Order, error)
	FindByNumber(number string) (*models.Order, error)
	FindByGatewayOrderID(gatewayOrderID string) (*models.Order, error)
	FindByProfile(profileID int64) ([]models.Order, error)

	SetGatewayOrderID(id int64, gatewayOrderID string) error
	MarkPaid(id int64, paidAt time.Time) error
	UpdateStatus(id int64, status models.OrderStatus) error

	// MarkProcessed взводит processed охраняемым UPDATE.
	// Возвращает ErrAlreadyProcessed, если флаг уже стоял.
	MarkProcessed(id int64) error

	// ClearProcessed откатывает processed после сбоя расчёта с кассой,
	// чтобы следующий callback повторил расчёт.
	ClearProcessed(id int64) error

	FindExpired(now time.Time) ([]models.Order, error)
	Delete(id int64) error
}

type OrderRepositoryImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &OrderRepositoryImpl{db: db}
}

func (r *OrderRepositoryImpl) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *OrderRepositoryImpl) FindByID(id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepositoryImpl) FindByNumber(number string) (*models.Order, error) {
	var order models.Order
	err := r.db.Where("number = ?", number).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepositoryImpl) FindByGatewayOrderID(gatewayOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.Where("gateway_order_id = ?", gatewayOrderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepositoryImpl) FindByProfile(profileID int64) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (r *OrderRepositoryImpl) SetGatewayOrderID(id int64, gatewayOrderID string) error {
	result := r.db.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"gateway_order_id": gatewayOrderID,
		"updated_at":       time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepositoryImpl) MarkPaid(id int64, paidAt time.Time) error {
	result := r.db.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     models.OrderStatusPaid,
		"paid_at":    paidAt,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepositoryImpl) UpdateStatus(id int64, status models.OrderStatus) error {
	result := r.db.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepositoryImpl) MarkProcessed(id int64) error {
	// Охрана processed = false делает расчёт идемпотентным при гонке
	// callback'а подтверждения и фонового воркера.
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND processed = ?", id, false).
		Updates(map[string]interface{}{
			"processed":  true,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}

func (r *OrderRepositoryImpl) ClearProcessed(id int64) error {
	result := r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed":  false,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepositoryImpl) FindExpired(now time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Where("status = ? AND expires_at < ?", models.OrderStatusCreated, now).
		Order("expires_at ASC").
		Find(&orders).Error
	return orders, err
}

func (r *OrderRepositoryImpl) Delete(id int64) error {
	result := r.db.Where("id = ?", id).Delete(&models.Order{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
