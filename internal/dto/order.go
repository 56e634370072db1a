package dto

import (
	"time"

	"moa_backend/internal/models"
)

// CreateOrderRequest - оформление заказа.
// Передаётся либо cart_id, либо products - ровно одно из двух.
type CreateOrderRequest struct {
	CartID   *string               `json:"cart_id"`
	Products []OrderProductRequest `json:"products" validate:"omitempty,min=1,max=1,dive"`

	// MileCount - сколько миль клиент хочет потратить на скидку.
	MileCount int64  `json:"mile_count" validate:"gte=0"`
	Email     string `json:"email" validate:"omitempty,email"`
}

type OrderProductRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

type OrderResponse struct {
	Number    string               `json:"number"`
	PssQR     string               `json:"pss_qr,omitempty"`
	Status    models.OrderStatus   `json:"status"`
	Amount    int64                `json:"amount"`
	MileCount int64                `json:"mile_count"`
	Products  []models.ProductLine `json:"products,omitempty"`
	StockID   *int64               `json:"stock_id,omitempty"`
	PointID   *int64               `json:"point_id,omitempty"`
	Stock     string               `json:"stock,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	// EstimatedDate - горизонт действия заказа, до него заказ можно оплатить.
	EstimatedDate time.Time  `json:"estimated_date"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

// PartnerOrderResponse - проекция заказа из партнёрского сервиса.
type PartnerOrderResponse struct {
	QR        string `json:"qr,omitempty"`
	Number    string `json:"number"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	CreatedAt string `json:"created_at"`
}

// OrderListQuery - выборка заказов участника: активные либо архивные,
// постранично.
type OrderListQuery struct {
	Archive bool
	Page    int
	PerPage int
}

// OrderListResponse - страница заказов участника.
type OrderListResponse struct {
	Orders  []PartnerOrderResponse `json:"orders"`
	Page    int                    `json:"page"`
	PerPage int                    `json:"per_page"`
	Total   int                    `json:"total"`
}
