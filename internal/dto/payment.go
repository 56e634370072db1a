package dto

// PayWebRequest - запуск веб-оплаты заказа.
type PayWebRequest struct {
	OrderNumber string `json:"order_number" validate:"required"`
}

// PayWebResponse - ссылка на платёжную форму шлюза.
type PayWebResponse struct {
	FormURL string `json:"form_url"`
}

// PayMobileRequest - оплата токеном Apple Pay / Google Pay.
type PayMobileRequest struct {
	OrderNumber  string `json:"order_number" validate:"required"`
	PaymentToken string `json:"payment_token" validate:"required"`
}

// PayMobileResponse - результат мобильной оплаты.
// Мобильный платёж синхронный: к моменту ответа заказ либо оплачен, либо нет.
type PayMobileResponse struct {
	OrderNumber string `json:"order_number"`
	Paid        bool   `json:"paid"`
}

// ConfirmPayResponse - итог подтверждения оплаты после возврата из шлюза.
type ConfirmPayResponse struct {
	OrderNumber    string `json:"order_number"`
	Paid           bool   `json:"paid"`
	BonusMileCount int64  `json:"bonus_mile_count,omitempty"`
	RedirectURL    string `json:"redirect_url,omitempty"`
}
