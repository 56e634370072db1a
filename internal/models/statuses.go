package models

// OrderStatus - жизненный цикл локального заказа.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
)

// Статусы заказа в платёжном шлюзе (getOrderStatusExtended).
const (
	GatewayStatusRegistered = 0 // заказ зарегистрирован, не оплачен
	GatewayStatusPreAuth    = 1 // предавторизация, сумма захолдирована
	GatewayStatusPaid       = 2 // полная авторизация суммы
	GatewayStatusReversed   = 3
	GatewayStatusRefunded   = 4
	GatewayStatusDeclined   = 6
)
