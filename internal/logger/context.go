package logger

import (
	"context"
	"log/slog"
)

// Ключи для context
type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	profileIDKey   contextKey = "profile_id"
	sagaContextKey contextKey = "saga"
)

// WithRequestID добавляет request ID в context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithProfileID добавляет id профиля в context
func WithProfileID(ctx context.Context, profileID int64) context.Context {
	return context.WithValue(ctx, profileIDKey, profileID)
}

// WithSaga помечает context именем саги (order_create, pay_web, card_binding...)
func WithSaga(ctx context.Context, saga string) context.Context {
	return context.WithValue(ctx, sagaContextKey, saga)
}

// GetRequestID извлекает request ID из context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetProfileID извлекает id профиля из context (0 - не задан)
func GetProfileID(ctx context.Context) int64 {
	if profileID, ok := ctx.Value(profileIDKey).(int64); ok {
		return profileID
	}
	return 0
}

// FromContext создает логгер с полями из context.
// Автоматически добавляет request_id, profile_id и имя саги если они есть.
func FromContext(ctx context.Context) *slog.Logger {
	logger := GetLogger()

	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}

	if profileID := GetProfileID(ctx); profileID != 0 {
		fields = append(fields, "profile_id", profileID)
	}

	if saga, ok := ctx.Value(sagaContextKey).(string); ok && saga != "" {
		fields = append(fields, "saga", saga)
	}

	if len(fields) > 0 {
		logger = logger.With(fields...)
	}

	return logger
}

// CtxDebug логирует debug с контекстом
func CtxDebug(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Debug(msg, args...)
}

// CtxInfo логирует info с контекстом
func CtxInfo(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Info(msg, args...)
}

// CtxWarn логирует warning с контекстом
func CtxWarn(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Warn(msg, args...)
}

// CtxError логирует error с контекстом
func CtxError(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Error(msg, args...)
}

// CtxWithError логирует error с error объектом
func CtxWithError(ctx context.Context, msg string, err error, args ...any) {
	fields := append([]any{"error", err.Error()}, args...)
	FromContext(ctx).Error(msg, fields...)
}
