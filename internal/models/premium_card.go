package models

// PremiumCard - привязка банковской карты к премиальной программе партнёра.
// На профиль допускается не более одной активной записи.
type PremiumCard struct {
	BaseModel
	ProfileID int64 `gorm:"not null;index"`

	// BindingID - идентификатор связки в платёжном шлюзе.
	BindingID string `gorm:"index"`
	// GatewayOrderID - предавторизационный заказ, через который карта привязывалась.
	GatewayOrderID string

	// PAN и ExpiryDate - маскированные реквизиты из ответа шлюза.
	PAN        string
	ExpiryDate string

	Active bool `gorm:"not null;default:false"`
}
