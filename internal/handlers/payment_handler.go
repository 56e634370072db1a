package handlers

import (
	"context"

	"moa_backend/internal/dto"
	"moa_backend/internal/middleware"
	paymentservice "moa_backend/internal/services/payment"
	"moa_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	*BaseHandler
	paymentService *paymentservice.Service
}

func NewPaymentHandler(base *BaseHandler, paymentService *paymentservice.Service) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler:    base,
		paymentService: paymentService,
	}
}

func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup) {
	pay := r.Group("")
	pay.Use(middleware.AuthMiddleware())
	{
		pay.POST("/payWeb", h.PayWeb)
		pay.POST("/payApple", h.PayApple)
		pay.POST("/payGoogle", h.PayGoogle)
	}

	// Callback возврата из платёжной формы, авторизации нет
	r.GET("/confirmPay", h.ConfirmPay)
}

// PayWeb godoc
// @Summary Начать веб-оплату заказа
// @Description Регистрирует заказ в платёжном шлюзе и возвращает ссылку на платёжную форму
// @Tags payments
// @Accept json
// @Produce json
// @Param payment body dto.PayWebRequest true "Номер заказа"
// @Success 200 {object} apperrors.WireResponse{data=dto.PayWebResponse}
// @Failure 400 {object} apperrors.WireResponse
// @Failure 502 {object} apperrors.WireResponse
// @Security BearerAuth
// @Router /payWeb [post]
func (h *PaymentHandler) PayWeb(c *gin.Context) {
	profileID, ok := h.GetAndAuthorizeProfileID(c)
	if !ok {
		return
	}

	var req dto.PayWebRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.paymentService.PayWeb(c.Request.Context(), profileID, req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	apperrors.OK(c, resp)
}

// PayApple godoc
// @Summary Оплатить заказ токеном Apple Pay
// @Tags payments
// @Accept json
// @Produce json
// @Param payment body dto.PayMobileRequest true "Номер заказа и платёжный токен"
// @Success 200 {object} apperrors.WireResponse{data=dto.PayMobileResponse}
// @Failure 400 {object} apperrors.WireResponse
// @Failure 502 {object} apperrors.WireResponse
// @Security BearerAuth
// @Router /payApple [post]
func (h *PaymentHandler) PayApple(c *gin.Context) {
	h.payMobile(c, h.paymentService.PayApple)
}

// PayGoogle godoc
// @Summary Оплатить заказ токеном Google Pay
// @Tags payments
// @Accept json
// @Produce json
// @Param payment body dto.PayMobileRequest true "Номер заказа и платёжный токен"
// @Success 200 {object} apperrors.WireResponse{data=dto.PayMobileResponse}
// @Failure 400 {object} apperrors.WireResponse
// @Failure 502 {object} apperrors.WireResponse
// @Security BearerAuth
// @Router /payGoogle [post]
func (h *PaymentHandler) PayGoogle(c *gin.Context) {
	h.payMobile(c, h.paymentService.PayGoogle)
}

func (h *PaymentHandler) payMobile(
	c *gin.Context,
	pay func(ctx context.Context, profileID int64, req dto.PayMobileRequest) (*dto.PayMobileResponse, error),
) {
	profileID, ok := h.GetAndAuthorizeProfileID(c)
	if !ok {
		return
	}

	var req dto.PayMobileRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := pay(c.Request.Context(), profileID, req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	apperrors.OK(c, resp)
}

// ConfirmPay godoc
// @Summary Подтвердить оплату после возврата из шлюза
// @Description Опрашивает шлюз и завершает оплату: рассчитывает заказ либо отменяет его с возвратом миль
// @Tags payments
// @Produce json
// @Param orderNumber query string true "Номер заказа"
// @Success 200 {object} apperrors.WireResponse{data=dto.ConfirmPayResponse}
// @Failure 404 {object} apperrors.WireResponse
// @Router /confirmPay [get]
func (h *PaymentHandler) ConfirmPay(c *gin.Context) {
	orderNumber, ok := h.RequireQuery(c, "orderNumber")
	if !ok {
		return
	}

	resp, err := h.paymentService.Confirm(c.Request.Context(), orderNumber)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	apperrors.OK(c, resp)
}
