package apperrors

import (
	"net/http"
)

/*
Этот файл содержит фабрики и предопределенные переменные
для общих ошибок бизнес-логики и домена платёжных саг.
*/

// ErrNotFound - фабрика для ошибки "не найдено" (404).
// Используется, когда ошибка репозитория (типа gorm.ErrRecordNotFound)
// должна быть преобразована в AppError.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrConflict - общая фабрика для конфликтов (409)
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidOperation - фабрика для невалидных операций (400)
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// --- Заказы и оплата ---

// ErrOrderNotFound - заказ не найден либо принадлежит другому профилю.
var ErrOrderNotFound = New(
	CodeNotFound,
	"order",
	"Order not found",
	http.StatusNotFound,
)

// ErrCartOrProducts - в запросе должен быть указан ровно один из cart_id / products.
var ErrCartOrProducts = New(
	CodeValidationFailed,
	"order",
	"Exactly one of cart_id or products must be provided",
	http.StatusBadRequest,
)

// ErrMilesWithCart - списание миль поддерживается только для явной товарной позиции.
var ErrMilesWithCart = New(
	CodeValidationFailed,
	"order",
	"Mile redemption is not supported for cart_id orders",
	http.StatusBadRequest,
)

// ErrMilesExceedAmount - сумма списания миль превышает стоимость корзины.
var ErrMilesExceedAmount = New(
	CodeValidationFailed,
	"order",
	"Mile redemption exceeds the order amount",
	http.StatusBadRequest,
)

// --- Премиальные карты ---

// ErrCardAlreadyBound - у профиля уже есть активная привязанная карта.
var ErrCardAlreadyBound = New(
	CodeAlreadyExists,
	"privileges",
	"Card is already bound for this profile",
	http.StatusConflict,
)

// ErrCardNotFound - активная привязанная карта не найдена.
var ErrCardNotFound = New(
	CodeNotFound,
	"privileges",
	"No active bound card for this profile",
	http.StatusNotFound,
)

// --- Auth ---

// ErrInvalidAuthToken - неверный или просроченный токен.
var ErrInvalidAuthToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)
