package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	OrderHandler      *OrderHandler
	PaymentHandler    *PaymentHandler
	PrivilegesHandler *PrivilegesHandler
}
