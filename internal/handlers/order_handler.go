package handlers

import (
	"strconv"

	"moa_backend/internal/dto"
	"moa_backend/internal/middleware"
	orderservice "moa_backend/internal/services/order"
	"moa_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	*BaseHandler
	orderService *orderservice.Service
}

func NewOrderHandler(base *BaseHandler, orderService *orderservice.Service) *OrderHandler {
	return &OrderHandler{
		BaseHandler:  base,
		orderService: orderService,
	}
}

func (h *OrderHandler) RegisterRoutes(r *gin.RouterGroup) {
	orders := r.Group("")
	orders.Use(middleware.AuthMiddleware())
	{
		orders.POST("/onpass/order", h.CreateOrder)
		orders.GET("/order", h.GetOrder)
		orders.GET("/orders", h.ListOrders)
	}
}

// CreateOrder godoc
// @Summary Оформить заказ
// @Description Замораживает мили, раскладывает скидку по строкам и регистрирует заказ у партнёра
// @Tags orders
// @Accept json
// @Produce json
// @Param order body dto.CreateOrderRequest true "Параметры заказа"
// @Success 200 {object} apperrors.WireResponse{data=dto.OrderResponse}
// @Failure 400 {object} apperrors.WireResponse
// @Failure 502 {object} apperrors.WireResponse
// @Security BearerAuth
// @Router /onpass/order [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	profileID, ok := h.GetAndAuthorizeProfileID(c)
	if !ok {
		return
	}

	var req dto.CreateOrderRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.orderService.Create(c.Request.Context(), profileID, req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	apperrors.OK(c, resp)
}

// GetOrder godoc
// @Summary Получить заказ по номеру
// @Tags orders
// @Produce json
// @Param number query string true "Номер заказа"
// @Success 200 {object} apperrors.WireResponse{data=dto.OrderResponse}
// @Failure 404 {object} apperrors.WireResponse
// @Security BearerAuth
// @Router /order [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	profileID, ok := h.GetAndAuthorizeProfileID(c)
	if !ok {
		return
	}
	number, ok := h.RequireQuery(c, "number")
	if !ok {
		return
	}

	resp, err := h.orderService.Get(c.Request.Context(), profileID, number)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	apperrors.OK(c, resp)
}

// ListOrders godoc
// @Summary Заказы участника по данным партнёра
// @Description Активные либо архивные (archive=true) заказы, постранично
// @Tags orders
// @Produce json
// @Param archive query bool false "Архивные заказы вместо активных"
// @Param page query int false "Номер страницы, с 1"
// @Param per_page query int false "Размер страницы, по умолчанию 20"
// @Success 200 {object} apperrors.WireResponse{data=dto.OrderListResponse}
// @Failure 502 {object} apperrors.WireResponse
// @Security BearerAuth
// @Router /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	profileID, ok := h.GetAndAuthorizeProfileID(c)
	if !ok {
		return
	}

	query := dto.OrderListQuery{
		Archive: c.Query("archive") == "true",
	}
	query.Page, _ = strconv.Atoi(c.Query("page"))
	query.PerPage, _ = strconv.Atoi(c.Query("per_page"))

	resp, err := h.orderService.List(c.Request.Context(), profileID, query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	apperrors.OK(c, resp)
}
