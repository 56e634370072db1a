package apperrors

// ErrorCode - тип для кодов ошибок
type ErrorCode string

// Общие, не-доменные коды ошибок
const (
	// Системные и неизвестные ошибки
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError ErrorCode = "DATABASE_ERROR"
	CodeUnknownError  ErrorCode = "UNKNOWN_ERROR"

	// Общие ошибки бизнес-логики
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Ошибки взаимодействия со сторонними сервисами (касса, ПСС, банк).
	// Business - сервис ответил, но responseCode/errorCode не нулевой.
	// Transport - сервис недоступен, таймаут или невалидное тело ответа.
	CodeUpstreamBusiness  ErrorCode = "UPSTREAM_BUSINESS_ERROR"
	CodeUpstreamTransport ErrorCode = "UPSTREAM_TRANSPORT_ERROR"

	// Аутентификация и авторизация
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// Коды конверта мобильного API ({responseCode, responseMessage, data}).
// Значения закреплены контрактом с мобильным клиентом.
const (
	WireOK                  = 0
	WireBadJSON             = 11
	WireMissingParam        = 12
	WireNotFound            = 13
	WireAlreadyBound        = 21
	WireUnauthorized        = 22
	WireUpstreamBusiness    = 30
	WireUpstreamUnavailable = 31
	WireInternal            = 90
)

// WireCode возвращает код конверта мобильного API для кода ошибки приложения.
func (c ErrorCode) WireCode() int {
	switch c {
	case CodeValidationFailed:
		return WireMissingParam
	case CodeNotFound:
		return WireNotFound
	case CodeAlreadyExists, CodeConflict:
		return WireAlreadyBound
	case CodeUnauthorized, CodeForbidden, CodeInvalidToken:
		return WireUnauthorized
	case CodeUpstreamBusiness:
		return WireUpstreamBusiness
	case CodeUpstreamTransport:
		return WireUpstreamUnavailable
	default:
		return WireInternal
	}
}
