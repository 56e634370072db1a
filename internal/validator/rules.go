package validator

import (
	"log"

	"moa_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules регистрирует все кастомные функции валидации в
// переданном экземпляре валидатора.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// Если правило не удалось зарегистрировать, приложение
			// не должно запускаться.
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	// 'is-order-status': проверяет статус заказа
	mustRegister("is-order-status", validateOrderStatus)

	// 'is-payment-system': проверяет платёжную систему мобильной оплаты
	mustRegister("is-payment-system", validatePaymentSystem)
}

func validateOrderStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // 'required' обрабатывает пустые
	}
	switch models.OrderStatus(value) {
	case models.OrderStatusCreated, models.OrderStatusPaid, models.OrderStatusCancelled, models.OrderStatusExpired:
		return true
	default:
		return false
	}
}

func validatePaymentSystem(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch value {
	case "apple", "google":
		return true
	default:
		return false
	}
}
