package handlers

import (
	"moa_backend/internal/middleware"
	privilegesservice "moa_backend/internal/services/privileges"
	"moa_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type PrivilegesHandler struct {
	*BaseHandler
	privilegesService *privilegesservice.Service
}

func NewPrivilegesHandler(base *BaseHandler, privilegesService *privilegesservice.Service) *PrivilegesHandler {
	return &PrivilegesHandler{
		BaseHandler:       base,
		privilegesService: privilegesService,
	}
}

func (h *PrivilegesHandler) RegisterRoutes(r *gin.RouterGroup) {
	privileges := r.Group("/privileges")

	protected := privileges.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.POST("/bindCard", h.BindCard)
		protected.POST("/unbindCard", h.UnbindCard)
		protected.GET("/card", h.GetCard)
		protected.GET("/packets", h.GetPackets)
		protected.GET("/order", h.GetPremiumOrder)
		protected.GET("/orders", h.GetPremiumOrders)
	}

	// Callback возврата из формы предавторизации, авторизации нет
	privileges.GET("/confirmBinding", h.ConfirmBinding)
}

// BindCard godoc
// @Summary Начать привязку карты к премиальной программе
// @Description Регистрирует предавторизационный заказ в шлюзе и возвращает ссылку на платёжную форму
// @Tags privileges
// @Produce json
// @Success 200 {object} apperrors.WireResponse{data=dto.BindCardResponse}
// @Failure 409 {object} apperrors.WireResponse "Карта уже привязана"
// @Failure 502 {object} apperrors.WireResponse
// @Security BearerAuth
// @Router /privileges/bindCard [post]
func (h *PrivilegesHandler) BindCard(c *gin.Context) {
	profileID, ok := h.GetAndAuthorizeProfileID(c)
	if !ok {
		return
	}

	resp, err := h.privilegesService.Bind(c.Request.Context(), profileID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	apperrors.OK(c, resp)
}

// ConfirmBinding godoc
// @Summary Завершить привязку карты после возврата из шлюза
// @Tags privileges
// @Produce json
// @Param orderNumber query string true "Номер предавторизационного заказа"
// @Success 200 {object} apperrors.WireResponse{data=dto.ConfirmBindingResponse}
// @Failure 404 {object} apperrors.WireResponse
// @Router /privileges/confirmBinding [get]
func (h *PrivilegesHandler) ConfirmBinding(c *gin.Context) {
	orderNumber, ok := h.RequireQuery(c, "orderNumber")
	if !ok {
		return
	}

	resp, err := h.privilegesService.ConfirmBinding(c.Request.Context(), orderNumber)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	apperrors.OK(c, resp)
}

// UnbindCard godoc
// @Summary Отвязать карту от премиальной программы
// @Tags privileges
// @Produce json
// @Success 200 {object} apperrors.WireResponse
// @Failure 404 {object} apperrors.WireResponse "Активной привязки нет"
// @Security BearerAuth
// @Router /privileges/unbindCard [post]
func (h *PrivilegesHandler) UnbindCard(c *gin.Context) {
	profileID, ok := h.GetAndAuthorizeProfileID(c)
	if !ok {
		return
	}

	if err := h.privilegesService.Unbind(c.Request.Context(), profileID); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	apperrors.OK(c, nil)
}

// GetCard godoc
// @Summary Активная привязка карты профиля
// @Tags privileges
// @Produce json
// @Success 200 {object} apperrors.WireResponse{data=dto.CardResponse}
// @Failure 404 {object} apperrors.WireResponse
// @Security BearerAuth
// @Router /privileges/card [get]
func (h *PrivilegesHandler) GetCard(c *gin.Context) {
	profileID, ok := h.GetAndAuthorizeProfileID(c)
	if !ok {
		return
	}

	resp, err := h.privilegesService.Card(c.Request.Context(), profileID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	apperrors.OK(c, resp)
}

// GetPackets godoc
// @Summary Премиальные пакеты партнёра
// @Tags privileges
// @Produce json
// @Success 200 {object} apperrors.WireResponse{data=[]dto.PacketResponse}
// @Failure 502 {object} apperrors.WireResponse
// @Security BearerAuth
// @Router /privileges/packets [get]
func (h *PrivilegesHandler) GetPackets(c *gin.Context) {
	resp, err := h.privilegesService.Packets(c.Request.Context())
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	apperrors.OK(c, resp)
}

// GetPremiumOrder godoc
// @Summary Премиальный заказ по номеру
// @Tags privileges
// @Produce json
// @Param number query string true "Номер заказа"
// @Success 200 {object} apperrors.WireResponse{data=dto.PartnerOrderResponse}
// @Failure 502 {object} apperrors.WireResponse
// @Security BearerAuth
// @Router /privileges/order [get]
func (h *PrivilegesHandler) GetPremiumOrder(c *gin.Context) {
	if _, ok := h.GetAndAuthorizeProfileID(c); !ok {
		return
	}
	number, ok := h.RequireQuery(c, "number")
	if !ok {
		return
	}

	resp, err := h.privilegesService.PremiumOrder(c.Request.Context(), number)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	apperrors.OK(c, resp)
}

// GetPremiumOrders godoc
// @Summary Премиальные заказы участника
// @Tags privileges
// @Produce json
// @Success 200 {object} apperrors.WireResponse{data=[]dto.PartnerOrderResponse}
// @Failure 502 {object} apperrors.WireResponse
// @Security BearerAuth
// @Router /privileges/orders [get]
func (h *PrivilegesHandler) GetPremiumOrders(c *gin.Context) {
	profileID, ok := h.GetAndAuthorizeProfileID(c)
	if !ok {
		return
	}

	resp, err := h.privilegesService.PremiumOrders(c.Request.Context(), profileID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	apperrors.OK(c, resp)
}
