package apperrors

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// WireResponse - конверт ответа мобильного API. Успех и ошибка отдаются
// одинаковой структурой, клиент различает их по responseCode.
type WireResponse struct {
	ResponseCode    int         `json:"responseCode"`
	ResponseMessage string      `json:"responseMessage"`
	Data            interface{} `json:"data,omitempty"`
}

// OK отдает успешный ответ в конверте мобильного API.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, WireResponse{
		ResponseCode:    WireOK,
		ResponseMessage: "OK",
		Data:            data,
	})
}

// GinErrorHandler - обработчик ошибок для Gin
type GinErrorHandler struct {
	Debug bool
}

// HandleGinError - основная логика обработки ошибок для Gin.
// Ошибка сериализуется в конверт мобильного API с ненулевым responseCode.
func (h *GinErrorHandler) HandleGinError(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = InternalError(err)
		if !h.Debug {
			// В продакшене скрываем детали
			appErr.Message = "Internal server error"
			appErr.Details = nil
		}
	}

	if appErr.HTTPCode >= 500 {
		log.Printf("Server error: %v", appErr.Unwrap())
	}

	c.JSON(appErr.HTTPCode, WireResponse{
		ResponseCode:    appErr.Code.WireCode(),
		ResponseMessage: appErr.Message,
		Data:            appErr.Details,
	})
}

// HandleError - быстрая функция-помощник для Gin
func HandleError(c *gin.Context, err error) {
	handler := &GinErrorHandler{Debug: true}
	handler.HandleGinError(c, err)
}

// AsAppError - пытается преобразовать error в *AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
