package alfabank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moa_backend/internal/config"
	"moa_backend/internal/logger"
	"moa_backend/pkg/apperrors"
)

const domain = "alfabank"

// errAlreadyUnbound - код шлюза "связка уже деактивирована", не считается отказом.
const errAlreadyUnbound = 2

// PreAuthAmount - сумма предавторизации при привязке карты, минорные единицы.
const PreAuthAmount = 100

// Client - платёжный шлюз. REST-эндпоинты (*.do) принимают параметры
// формой, мобильные платежи (Apple/Google Pay) - JSON-телом.
type Client struct {
	cfg  *config.Config
	http *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 20 * time.Second},
	}
}

// gatewayResponse - общие поля ответов REST-эндпоинтов шлюза.
// errorCode приходит то числом, то строкой, то отсутствует вовсе.
type gatewayResponse struct {
	ErrorCode    json.Number `json:"errorCode"`
	ErrorMessage string      `json:"errorMessage"`
}

func (g *gatewayResponse) code() int {
	if g.ErrorCode == "" {
		return 0
	}
	code, err := strconv.Atoi(g.ErrorCode.String())
	if err != nil {
		return -1
	}
	return code
}

// RegisteredOrder - результат регистрации заказа в шлюзе.
type RegisteredOrder struct {
	gatewayResponse
	OrderID string `json:"orderId"`
	FormURL string `json:"formUrl"`
}

// OrderStatus - развёрнутый статус заказа в шлюзе.
type OrderStatus struct {
	gatewayResponse
	OrderStatus int    `json:"orderStatus"`
	ActionCode  int    `json:"actionCode"`
	Amount      int64  `json:"amount"`
	BindingID   string `json:"bindingId"`

	CardAuthInfo CardAuthInfo `json:"cardAuthInfo"`
	PayerData    PayerData    `json:"payerData"`
}

// CardAuthInfo - маскированные реквизиты карты из ответа шлюза.
type CardAuthInfo struct {
	PAN        string `json:"pan"`
	Expiration string `json:"expiration"`
}

// PayerData - контакты плательщика, введённые на платёжной форме.
type PayerData struct {
	Email string `json:"email"`
}

// CartItem - позиция корзины для фискализации на стороне шлюза.
type CartItem struct {
	PositionID int64  `json:"positionId"`
	Name       string `json:"name"`
	Quantity   Amount `json:"quantity"`
	ItemAmount int64  `json:"itemAmount"`
	ItemCode   string `json:"itemCode"`
	ItemPrice  int64  `json:"itemPrice"`
}

// Amount - количество позиции в формате шлюза.
type Amount struct {
	Value   int64  `json:"value"`
	Measure string `json:"measure"`
}

// OrderBundle - корзина заказа в формате шлюза.
type OrderBundle struct {
	CartItems struct {
		Items []CartItem `json:"items"`
	} `json:"cartItems"`
}

type mobilePaymentRequest struct {
	Merchant     string `json:"merchant"`
	OrderNumber  string `json:"orderNumber"`
	PaymentToken string `json:"paymentToken"`
}

type mobilePaymentResponse struct {
	Success bool `json:"success"`
	Data    struct {
		OrderID string `json:"orderId"`
	} `json:"data"`
	Error struct {
		Code        int    `json:"code"`
		Description string `json:"description"`
		Message     string `json:"message"`
	} `json:"error"`
}

// RegisterOrder регистрирует заказ в шлюзе и возвращает orderId с платёжной формой.
// bundle (если не nil) уходит в orderBundle для фискализации.
func (c *Client) RegisterOrder(ctx context.Context, orderNumber string, amount int64, returnURL string, bundle *OrderBundle) (*RegisteredOrder, error) {
	form := c.credentials()
	form.Set("orderNumber", orderNumber)
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("returnUrl", returnURL)

	if bundle != nil {
		raw, err := json.Marshal(bundle)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		form.Set("orderBundle", string(raw))
	}

	var resp RegisteredOrder
	if err := c.postForm(ctx, "rest/register.do", form, &resp); err != nil {
		return nil, err
	}
	if code := resp.code(); code != 0 {
		return nil, c.businessError(code, resp.ErrorMessage)
	}
	return &resp, nil
}

// RegisterPreAuth регистрирует предавторизационный заказ (холд без списания).
// clientId заставляет шлюз создать связку карты при успешном холде.
func (c *Client) RegisterPreAuth(ctx context.Context, orderNumber string, amount int64, returnURL, clientID string) (*RegisteredOrder, error) {
	form := c.credentials()
	form.Set("orderNumber", orderNumber)
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("returnUrl", returnURL)
	form.Set("clientId", clientID)

	var resp RegisteredOrder
	if err := c.postForm(ctx, "rest/registerPreAuth.do", form, &resp); err != nil {
		return nil, err
	}
	if code := resp.code(); code != 0 {
		return nil, c.businessError(code, resp.ErrorMessage)
	}
	return &resp, nil
}

// GetOrderStatus возвращает развёрнутый статус заказа шлюза.
func (c *Client) GetOrderStatus(ctx context.Context, gatewayOrderID string) (*OrderStatus, error) {
	form := c.credentials()
	form.Set("orderId", gatewayOrderID)

	var resp OrderStatus
	if err := c.postForm(ctx, "rest/getOrderStatusExtended.do", form, &resp); err != nil {
		return nil, err
	}
	if code := resp.code(); code != 0 {
		return nil, c.businessError(code, resp.ErrorMessage)
	}
	return &resp, nil
}

// Reverse отменяет заказ шлюза: снимает холд либо возвращает списание.
func (c *Client) Reverse(ctx context.Context, gatewayOrderID string) error {
	form := c.credentials()
	form.Set("orderId", gatewayOrderID)

	var resp gatewayResponse
	if err := c.postForm(ctx, "rest/reverse.do", form, &resp); err != nil {
		return err
	}
	if code := resp.code(); code != 0 {
		return c.businessError(code, resp.ErrorMessage)
	}
	return nil
}

// UnbindCard деактивирует связку карты в шлюзе.
// Уже деактивированная связка отказом не считается.
func (c *Client) UnbindCard(ctx context.Context, bindingID string) error {
	form := c.credentials()
	form.Set("bindingId", bindingID)

	var resp gatewayResponse
	if err := c.postForm(ctx, "rest/unBindCard.do", form, &resp); err != nil {
		return err
	}
	if code := resp.code(); code != 0 && code != errAlreadyUnbound {
		return c.businessError(code, resp.ErrorMessage)
	}
	return nil
}

// PayApple проводит платёж токеном Apple Pay, возвращает orderId шлюза.
func (c *Client) PayApple(ctx context.Context, orderNumber, paymentToken string) (string, error) {
	return c.payMobile(ctx, "applepay/payment.do", orderNumber, paymentToken)
}

// PayGoogle проводит платёж токеном Google Pay, возвращает orderId шлюза.
func (c *Client) PayGoogle(ctx context.Context, orderNumber, paymentToken string) (string, error) {
	return c.payMobile(ctx, "google/payment.do", orderNumber, paymentToken)
}

func (c *Client) payMobile(ctx context.Context, path, orderNumber, paymentToken string) (string, error) {
	payload, err := json.Marshal(mobilePaymentRequest{
		Merchant:     c.cfg.AlfaBank.Merchant,
		OrderNumber:  orderNumber,
		PaymentToken: paymentToken,
	})
	if err != nil {
		return "", apperrors.InternalError(err)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.InternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp mobilePaymentResponse
	err = c.do(req, &resp)
	logger.UpstreamLog(domain, "POST "+path, time.Since(start), err)
	if err != nil {
		return "", err
	}
	if !resp.Success {
		message := resp.Error.Message
		if message == "" {
			message = resp.Error.Description
		}
		return "", c.businessError(resp.Error.Code, message)
	}
	return resp.Data.OrderID, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path),
		strings.NewReader(form.Encode()))
	if err != nil {
		return apperrors.InternalError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	err = c.do(req, out)
	logger.UpstreamLog(domain, "POST "+path, time.Since(start), err)
	return err
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.UpstreamTransport(err, domain, fmt.Sprintf("request to %s failed", req.URL.Path))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.UpstreamTransport(err, domain, "reading gateway response failed")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.UpstreamTransport(err, domain, fmt.Sprintf("malformed response of %s", req.URL.Path))
	}
	return nil
}

func (c *Client) credentials() url.Values {
	form := url.Values{}
	form.Set("userName", c.cfg.AlfaBank.Login)
	form.Set("password", c.cfg.AlfaBank.Password)
	return form
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.AlfaBank.URL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) businessError(code int, message string) *apperrors.AppError {
	appErr := apperrors.UpstreamBusiness(domain, code)
	if message != "" {
		appErr.Message = message
	}
	return appErr
}
