package kassa

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"moa_backend/internal/clients/api"
	"moa_backend/internal/config"
)

// Client - кассовый сервис программы лояльности. Все операции с милями
// идут по дескриптору транзакции (transaction_uuid), который выдаёт qr/info.
type Client struct {
	api *api.Client
	cfg *config.Config
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		api: api.New("kassa", cfg.Kassa.URL, cfg.Kassa.Token, 15*time.Second),
		cfg: cfg,
	}
}

type infoResponse struct {
	TransactionUUID string `json:"transaction_uuid"`
}

type reserveRequest struct {
	TransactionUUID  string `json:"transaction_uuid"`
	MileCount        int64  `json:"mile_count"`
	OrganizationName string `json:"organization_name"`
	PointName        string `json:"point_name"`
}

type freezeRequest struct {
	TransactionUUID  string `json:"transaction_uuid"`
	ConfirmationCode string `json:"confirmation_code"`
}

type collectRequest struct {
	TransactionUUID string  `json:"transaction_uuid"`
	Receipt         Receipt `json:"receipt"`
}

type redeemRequest struct {
	TransactionUUID  string  `json:"transaction_uuid"`
	Receipt          Receipt `json:"receipt"`
	ConfirmationCode string  `json:"confirmation_code"`
}

type unfreezeRequest struct {
	TransactionUUID string `json:"transaction_uuid"`
}

type settleResponse struct {
	BonusMileCount int64 `json:"bonus_mile_count"`
}

// ReceiptProduct - позиция фискального чека.
type ReceiptProduct struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Price    int64  `json:"price"`
	Amount   int64  `json:"amount"`
}

// Receipt - фискальный чек, передаётся кассе вместе с расчётом заказа.
type Receipt struct {
	FnNumber         string           `json:"fn_number"`
	Date             string           `json:"date"`
	OrganizationName string           `json:"organization_name"`
	OrganizationINN  string           `json:"organization_inn"`
	PointName        string           `json:"point_name"`
	KktNumber        string           `json:"kkt_number"`
	Operator         string           `json:"operator"`
	Type             int              `json:"type"`
	Amount           int64            `json:"amount"`
	URL              string           `json:"url"`
	Products         []ReceiptProduct `json:"products"`
}

// Info возвращает дескриптор транзакции для персонального QR участника.
// С него начинается любая операция с милями по заказу.
func (c *Client) Info(ctx context.Context, qr string) (string, error) {
	query := url.Values{}
	query.Set("qr", qr)

	var resp infoResponse
	if err := c.api.Call(ctx, http.MethodGet, "qr/info", query, nil, &resp); err != nil {
		return "", err
	}
	return resp.TransactionUUID, nil
}

// Reserve резервирует mileCount миль под транзакцию перед заморозкой.
func (c *Client) Reserve(ctx context.Context, transactionUUID string, mileCount int64) error {
	return c.api.Call(ctx, http.MethodPost, "rcc", nil, reserveRequest{
		TransactionUUID:  transactionUUID,
		MileCount:        mileCount,
		OrganizationName: c.cfg.Kassa.OrganizationName,
		PointName:        c.cfg.Kassa.PointName,
	}, nil)
}

// Freeze удерживает зарезервированные мили на счёте участника.
func (c *Client) Freeze(ctx context.Context, transactionUUID string) error {
	return c.api.Call(ctx, http.MethodPost, "miles/freeze", nil, freezeRequest{
		TransactionUUID:  transactionUUID,
		ConfirmationCode: c.cfg.Kassa.ConfirmCode,
	}, nil)
}

// Unfreeze снимает заморозку, мили возвращаются на счёт.
func (c *Client) Unfreeze(ctx context.Context, transactionUUID string) error {
	return c.api.Call(ctx, http.MethodPost, "miles/unfreeze", nil,
		unfreezeRequest{TransactionUUID: transactionUUID}, nil)
}

// Redeem списывает замороженные мили насовсем и фиксирует чек.
// Касса может вернуть бонусное начисление за операцию.
func (c *Client) Redeem(ctx context.Context, transactionUUID string, receipt Receipt) (int64, error) {
	var resp settleResponse
	err := c.api.Call(ctx, http.MethodPut, "miles/redeem", nil, redeemRequest{
		TransactionUUID:  transactionUUID,
		Receipt:          receipt,
		ConfirmationCode: c.cfg.Kassa.ConfirmCode,
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.BonusMileCount, nil
}

// Collect рассчитывает заказ без заморозки: начисляет мили за денежную
// часть покупки и фиксирует чек.
func (c *Client) Collect(ctx context.Context, transactionUUID string, receipt Receipt) (int64, error) {
	var resp settleResponse
	err := c.api.Call(ctx, http.MethodPost, "miles/collect", nil, collectRequest{
		TransactionUUID: transactionUUID,
		Receipt:         receipt,
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.BonusMileCount, nil
}
