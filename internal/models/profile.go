package models

// Profile - профиль клиента программы лояльности.
// Источник истины по балансу миль - кассовый сервис, здесь только
// идентификация и контакты для чеков.
type Profile struct {
	BaseModel
	// LoyaltyID - номер участника программы, им профиль представляется
	// кассовому и партнёрскому сервисам.
	LoyaltyID string `gorm:"not null;uniqueIndex"`
	Email     string
	Phone     string
	FirstName string
	LastName  string
}
