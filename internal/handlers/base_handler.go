package handlers

import (
	"moa_backend/internal/logger"
	"moa_backend/internal/validator"
	"moa_backend/pkg/apperrors"
	"moa_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
)

type BaseHandler struct {
	validator *validator.Validator
}

func NewBaseHandler(v *validator.Validator) *BaseHandler {
	return &BaseHandler{
		validator: v,
	}
}

func (h *BaseHandler) BindAndValidate_JSON(c *gin.Context, obj interface{}) bool {
	ctx := c.Request.Context()

	if err := c.ShouldBind(obj); err != nil {
		logger.CtxWithError(ctx, "Failed to bind JSON body", err, "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return false
	}

	if err := h.validator.Validate(obj); err != nil {
		if vErr, ok := err.(*validator.ValidationError); ok {
			logger.CtxWarn(ctx, "Validation failed", "errors", vErr.Errors, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.ValidationError(vErr.Errors))
		} else {
			logger.CtxWithError(ctx, "Internal validator error", err, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.InternalError(err))
		}
		return false
	}
	return true
}

func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		logger.CtxWarn(ctx, "Service error",
			"error", appErr.Message,
			"details", appErr.Details,
			"path", c.Request.URL.Path,
		)
		apperrors.HandleError(c, appErr)
	} else {
		logger.CtxWithError(ctx, "Internal server error", err, "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.InternalError(err))
	}
}

// GetAndAuthorizeProfileID извлекает профиль, положенный AuthMiddleware.
func (h *BaseHandler) GetAndAuthorizeProfileID(c *gin.Context) (int64, bool) {
	ctx := c.Request.Context()

	val, exists := c.Get(string(contextkeys.ProfileIDContextKey))
	if !exists {
		logger.CtxWarn(ctx, "Unauthorized access: profile not found in context",
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
		)
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("Profile not authenticated"))
		return 0, false
	}

	profileID, ok := val.(int64)
	if !ok || profileID == 0 {
		logger.CtxWarn(ctx, "Unauthorized access: invalid profile in context",
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
		)
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("Invalid profile in context"))
		return 0, false
	}

	return profileID, true
}

// RequireQuery возвращает обязательный query-параметр.
func (h *BaseHandler) RequireQuery(c *gin.Context, key string) (string, bool) {
	value := c.Query(key)
	if value == "" {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Missing required query parameter: "+key))
		return "", false
	}
	return value, true
}
