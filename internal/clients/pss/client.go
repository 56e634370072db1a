package pss

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"moa_backend/internal/clients/api"
	"moa_backend/internal/config"
)

// Коды конверта партнёрского сервиса, имеющие выделенную обработку.
const (
	CodeCardAlreadyBound = 21
	CodeNotPremium       = 13
)

// Client - партнёрский сервис: каталог товаров, регистрация заказов,
// премиальная программа и привязка карт.
type Client struct {
	api *api.Client
	cfg *config.Config
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		api: api.New("pss", cfg.Pss.URL, cfg.Pss.Token, 15*time.Second),
		cfg: cfg,
	}
}

// Product - позиция каталога партнёра. Цена в минорных единицах.
type Product struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// OrderLine - строка заказа при регистрации у партнёра.
type OrderLine struct {
	ProductID int64 `json:"productId"`
	Price     int64 `json:"price"`
	Quantity  int64 `json:"quantity"`
}

type registerOrderRequest struct {
	ProfileNumber string      `json:"profileNumber"`
	BrandTag      string      `json:"brandTag"`
	CartID        *string     `json:"cartId,omitempty"`
	Products      []OrderLine `json:"products,omitempty"`
}

// OrderRegistration - результат регистрации заказа: партнёр присваивает
// заказу свой QR, точку выдачи и пересчитанную сумму.
type OrderRegistration struct {
	QR            string  `json:"qr"`
	StockID       *int64  `json:"stockId"`
	PointID       *int64  `json:"pointId"`
	Sum           int64   `json:"sum"`
	EstimatedDate string  `json:"estimatedDate"`
	Refunded      bool    `json:"refunded"`
	Stock         string  `json:"stock"`
}

type registerOrderResponse struct {
	Order OrderRegistration `json:"order"`
}

// OrderProduct - позиция заказа в проекции партнёра.
// Цена может отсутствовать у кастомных позиций.
type OrderProduct struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    *int64 `json:"price"`
	Quantity int64  `json:"quantity"`
}

// Order - заказ в представлении партнёра.
type Order struct {
	QR            string         `json:"qr"`
	Number        string         `json:"number"`
	Status        string         `json:"status"`
	Amount        int64          `json:"amount"`
	Refunded      bool           `json:"refunded"`
	EstimatedDate string         `json:"estimatedDate"`
	Products      []OrderProduct `json:"products"`
	CreatedAt     string         `json:"createdAt"`
}

// CardBinding - привязка карты к премиальной программе.
type CardBinding struct {
	BindingID  string `json:"bindingId"`
	PAN        string `json:"pan"`
	ExpiryDate string `json:"expiryDate"`
}

// Packet - премиальный пакет партнёра.
type Packet struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
}

// GetProduct возвращает позицию каталога по идентификатору.
func (c *Client) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	query := url.Values{}
	query.Set("id", strconv.FormatInt(productID, 10))

	var product Product
	if err := c.api.Call(ctx, http.MethodGet, "seller/product", query, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// RegisterOrder регистрирует заказ у партнёра. Передаётся либо корзина
// партнёра, либо явные строки заказа; QR заказу присваивает партнёр.
func (c *Client) RegisterOrder(ctx context.Context, profileNumber string, cartID *string, lines []OrderLine) (*OrderRegistration, error) {
	var resp registerOrderResponse
	err := c.api.Call(ctx, http.MethodPost, "seller/order", nil, registerOrderRequest{
		ProfileNumber: profileNumber,
		BrandTag:      c.cfg.Pss.BrandTag,
		CartID:        cartID,
		Products:      lines,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

// Order возвращает заказ партнёра по его QR.
func (c *Client) Order(ctx context.Context, qr string) (*Order, error) {
	query := url.Values{}
	query.Set("qr", qr)

	var order Order
	if err := c.api.Call(ctx, http.MethodGet, "seller/order", query, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// AllOrders возвращает заказы участника у партнёра.
func (c *Client) AllOrders(ctx context.Context, profileNumber string) ([]Order, error) {
	query := url.Values{}
	query.Set("number", profileNumber)
	query.Set("brandTag", c.cfg.Pss.BrandTag)

	var orders []Order
	if err := c.api.Call(ctx, http.MethodGet, "seller/allOrder", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// BindCard привязывает карту участника к премиальной программе.
// Конверт с кодом 21 означает "карта уже привязана", 13 - "профиль не премиальный".
func (c *Client) BindCard(ctx context.Context, profileNumber, bindingID string) error {
	return c.api.Call(ctx, http.MethodPost, "privileges/bindCard", nil, map[string]string{
		"number":    profileNumber,
		"bindingId": bindingID,
	}, nil)
}

// UnbindCard отвязывает карту от премиальной программы.
func (c *Client) UnbindCard(ctx context.Context, profileNumber, bindingID string) error {
	return c.api.Call(ctx, http.MethodPost, "privileges/unbindCard", nil, map[string]string{
		"number":    profileNumber,
		"bindingId": bindingID,
	}, nil)
}

// Packets возвращает доступные премиальные пакеты.
func (c *Client) Packets(ctx context.Context) ([]Packet, error) {
	var packets []Packet
	if err := c.api.Call(ctx, http.MethodGet, "privileges/packets", nil, nil, &packets); err != nil {
		return nil, err
	}
	return packets, nil
}

// PremiumOrder возвращает премиальный заказ по номеру.
func (c *Client) PremiumOrder(ctx context.Context, number string) (*Order, error) {
	query := url.Values{}
	query.Set("number", number)

	var order Order
	if err := c.api.Call(ctx, http.MethodGet, "privileges/order", query, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// PremiumOrders возвращает премиальные заказы участника.
func (c *Client) PremiumOrders(ctx context.Context, profileNumber string) ([]Order, error) {
	query := url.Values{}
	query.Set("number", profileNumber)

	var orders []Order
	if err := c.api.Call(ctx, http.MethodGet, "privileges/orders", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
