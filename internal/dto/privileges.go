package dto

// BindCardResponse - ссылка на форму предавторизации для привязки карты.
type BindCardResponse struct {
	FormURL string `json:"form_url"`
}

// CardResponse - активная привязка карты профиля.
type CardResponse struct {
	PAN        string `json:"pan"`
	ExpiryDate string `json:"expiry_date"`
	Active     bool   `json:"active"`
}

// ConfirmBindingResponse - итог подтверждения привязки.
type ConfirmBindingResponse struct {
	Bound       bool   `json:"bound"`
	PAN         string `json:"pan,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// PacketResponse - премиальный пакет партнёра.
type PacketResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
}
