package models

// MileRelation - связь заказа с операцией по милям в кассовом сервисе.
// Хранит дескриптор заморозки и бонус, начисленный при расчёте.
type MileRelation struct {
	BaseModel
	OrderID int64 `gorm:"not null;index"`

	TransactionUUID string `gorm:"not null;uniqueIndex"`

	// FrozenMileCount - сколько миль удерживает заморозка.
	FrozenMileCount int64 `gorm:"not null"`
	// BonusMileCount - бонусные мили, начисленные кассой при списании.
	BonusMileCount int64 `gorm:"not null;default:0"`

	// Settled - заморозка разрешена: мили списаны либо возвращены.
	Settled bool `gorm:"not null;default:false"`
}
