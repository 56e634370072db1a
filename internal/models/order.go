package models

import (
	"time"

	"gorm.io/datatypes"
)

// Order - локальный заказ на покупку у партнёра за деньги и мили.
// Number - бизнес-номер "MOA.<uuid>", под ним заказ известен шлюзу и партнёру.
// GatewayOrderID присваивается шлюзом при регистрации платежа и до неё пуст.
type Order struct {
	BaseModel
	ProfileID int64  `gorm:"not null;index"`
	Number    string `gorm:"not null;uniqueIndex"`

	GatewayOrderID string `gorm:"index"`

	// PssQR - идентификатор заказа у партнёра, присваивается при регистрации.
	PssQR string `gorm:"index"`
	// StockID/PointID - склад и точка выдачи, назначенные партнёром.
	// У кастомных корзин склада нет.
	StockID *int64
	PointID *int64
	// Stock - название склада из ответа регистрации, для проекций клиенту.
	Stock string

	// TransactionUUID - дескриптор транзакции в кассовом сервисе, выдаётся
	// qr/info при оформлении. Мили по нему заморожены, только если есть
	// строка MileRelation.
	TransactionUUID string `gorm:"index"`

	// CartID - корзина партнёра, если заказ оформлен по корзине.
	CartID *string

	// Products - снимок строк заказа после разложения скидки,
	// в том виде, в котором они ушли партнёру.
	Products datatypes.JSON `gorm:"type:jsonb"`

	// Amount - денежная часть к оплате в минорных единицах.
	Amount int64 `gorm:"not null"`
	// MileCount - списываемые мили.
	MileCount int64 `gorm:"not null;default:0"`

	Status OrderStatus `gorm:"default:'created'"`

	// Processed - заказ рассчитан с кассой (мили списаны/начислены, чек отправлен).
	// Взводится ровно один раз охраняемым UPDATE.
	Processed bool `gorm:"not null;default:false"`

	Email string

	PaidAt    *time.Time
	ExpiresAt time.Time
}

// ProductLine - строка заказа в снимке Order.Products.
type ProductLine struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}
