package payment

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"moa_backend/internal/clients/alfabank"
	"moa_backend/internal/clients/kassa"
	"moa_backend/internal/clients/pss"
	"moa_backend/internal/config"
	"moa_backend/internal/dto"
	"moa_backend/internal/logger"
	"moa_backend/internal/models"
	"moa_backend/internal/repositories"
	"moa_backend/pkg/apperrors"
)

const (
	// Подтверждение оплаты опрашивает шлюз ограниченно: статус либо
	// становится терминальным, либо заказ считается неоплаченным.
	pollAttempts = 5
	pollInterval = time.Second

	receiptDateLayout = "2006-01-02 15:04:05"
)

// Gateway - операции платёжного шлюза, нужные проведению оплаты.
type Gateway interface {
	RegisterOrder(ctx context.Context, orderNumber string, amount int64, returnURL string, bundle *alfabank.OrderBundle) (*alfabank.RegisteredOrder, error)
	GetOrderStatus(ctx context.Context, gatewayOrderID string) (*alfabank.OrderStatus, error)
	PayApple(ctx context.Context, orderNumber, paymentToken string) (string, error)
	PayGoogle(ctx context.Context, orderNumber, paymentToken string) (string, error)
}

// MileLedger - операции кассового сервиса, нужные расчёту заказа.
// Чек уходит в кассу внутри самого расчёта.
type MileLedger interface {
	Redeem(ctx context.Context, transactionUUID string, receipt kassa.Receipt) (int64, error)
	Collect(ctx context.Context, transactionUUID string, receipt kassa.Receipt) (int64, error)
	Unfreeze(ctx context.Context, transactionUUID string) error
}

// Partner - партнёрский сервис: строки чека для заказа по корзине
// известны только ему.
type Partner interface {
	Order(ctx context.Context, qr string) (*pss.Order, error)
}

// ReceiptSender отправляет чек покупателю.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, to string, order *models.Order, lines []models.ProductLine, bonusMileCount int64) error
}

type Service struct {
	cfg       *config.Config
	orders    repositories.OrderRepository
	relations repositories.MileRelationRepository
	profiles  repositories.ProfileRepository
	gateway   Gateway
	ledger    MileLedger
	partner   Partner
	receipts  ReceiptSender

	pollInterval time.Duration
}

func NewService(
	cfg *config.Config,
	orders repositories.OrderRepository,
	relations repositories.MileRelationRepository,
	profiles repositories.ProfileRepository,
	gateway Gateway,
	ledger MileLedger,
	partner Partner,
	receipts ReceiptSender,
) *Service {
	return &Service{
		cfg:          cfg,
		orders:       orders,
		relations:    relations,
		profiles:     profiles,
		gateway:      gateway,
		ledger:       ledger,
		partner:      partner,
		receipts:     receipts,
		pollInterval: pollInterval,
	}
}

// PayWeb регистрирует заказ в шлюзе и возвращает ссылку на платёжную форму.
// Заказ, полностью покрытый милями, рассчитывается сразу без шлюза.
func (s *Service) PayWeb(ctx context.Context, profileID int64, req dto.PayWebRequest) (*dto.PayWebResponse, error) {
	order, err := s.payableOrder(profileID, req.OrderNumber)
	if err != nil {
		return nil, err
	}

	if order.Amount == 0 {
		if err := s.settle(ctx, order); err != nil {
			return nil, err
		}
		return &dto.PayWebResponse{FormURL: s.cfg.App.RedirectURL}, nil
	}

	registered, err := s.gateway.RegisterOrder(ctx, order.Number, order.Amount,
		s.cfg.App.ConfirmURL, s.orderBundle(order))
	if err != nil {
		return nil, err
	}

	if err := s.orders.SetGatewayOrderID(order.ID, registered.OrderID); err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.PayWebResponse{FormURL: registered.FormURL}, nil
}

// PayApple проводит платёж токеном Apple Pay и сразу подтверждает его.
func (s *Service) PayApple(ctx context.Context, profileID int64, req dto.PayMobileRequest) (*dto.PayMobileResponse, error) {
	return s.payMobile(ctx, profileID, req, s.gateway.PayApple)
}

// PayGoogle проводит платёж токеном Google Pay и сразу подтверждает его.
func (s *Service) PayGoogle(ctx context.Context, profileID int64, req dto.PayMobileRequest) (*dto.PayMobileResponse, error) {
	return s.payMobile(ctx, profileID, req, s.gateway.PayGoogle)
}

func (s *Service) payMobile(
	ctx context.Context,
	profileID int64,
	req dto.PayMobileRequest,
	pay func(ctx context.Context, orderNumber, paymentToken string) (string, error),
) (*dto.PayMobileResponse, error) {
	order, err := s.payableOrder(profileID, req.OrderNumber)
	if err != nil {
		return nil, err
	}

	gatewayOrderID, err := pay(ctx, order.Number, req.PaymentToken)
	if err != nil {
		return nil, err
	}
	if err := s.orders.SetGatewayOrderID(order.ID, gatewayOrderID); err != nil {
		return nil, apperrors.InternalError(err)
	}
	order.GatewayOrderID = gatewayOrderID

	confirmed, err := s.Confirm(ctx, order.Number)
	if err != nil {
		return nil, err
	}
	return &dto.PayMobileResponse{
		OrderNumber: order.Number,
		Paid:        confirmed.Paid,
	}, nil
}

// Confirm опрашивает шлюз и завершает оплату: оплаченный заказ
// рассчитывается, неоплаченный отменяется с возвратом миль.
// Повторный вызов по рассчитанному заказу - идемпотентный no-op
// с тем же бонусом, что вернул первый расчёт.
func (s *Service) Confirm(ctx context.Context, orderNumber string) (*dto.ConfirmPayResponse, error) {
	order, err := s.orders.FindByNumber(orderNumber)
	if err != nil {
		return nil, apperrors.ErrOrderNotFound
	}

	if order.Processed {
		var bonus int64
		if relation, err := s.relations.FindByOrder(order.ID); err == nil {
			bonus = relation.BonusMileCount
		}
		return &dto.ConfirmPayResponse{
			OrderNumber:    order.Number,
			Paid:           order.Status == models.OrderStatusPaid,
			BonusMileCount: bonus,
			RedirectURL:    s.cfg.App.RedirectURL,
		}, nil
	}

	if order.GatewayOrderID == "" {
		return nil, apperrors.NewBadRequestError("order has no registered payment")
	}

	status := alfabank.PollOrderStatus(ctx, s.gateway.GetOrderStatus,
		order.GatewayOrderID, pollAttempts, s.pollInterval,
		func(st *alfabank.OrderStatus) bool {
			return st.OrderStatus != models.GatewayStatusRegistered
		})

	if status != nil {
		s.captureReceiptEmail(ctx, order, status.PayerData.Email)
	}

	if status == nil || status.OrderStatus != models.GatewayStatusPaid {
		if err := s.cancelUnpaid(ctx, order); err != nil {
			return nil, err
		}
		return &dto.ConfirmPayResponse{
			OrderNumber: order.Number,
			Paid:        false,
			RedirectURL: s.cfg.App.RedirectURL,
		}, nil
	}

	if err := s.settle(ctx, order); err != nil {
		return nil, err
	}

	relation, relErr := s.relations.FindByOrder(order.ID)
	var bonus int64
	if relErr == nil {
		bonus = relation.BonusMileCount
	}

	return &dto.ConfirmPayResponse{
		OrderNumber:    order.Number,
		Paid:           true,
		BonusMileCount: bonus,
		RedirectURL:    s.cfg.App.RedirectURL,
	}, nil
}

// settle рассчитывает оплаченный заказ с кассой ровно один раз:
// списывает замороженные мили либо начисляет мили за денежную часть,
// передавая чек внутри операции. Сбой кассы откатывает processed,
// расчёт повторится на следующем callback'е.
func (s *Service) settle(ctx context.Context, order *models.Order) error {
	if err := s.orders.MarkProcessed(order.ID); err != nil {
		if errors.Is(err, repositories.ErrAlreadyProcessed) {
			return nil
		}
		return apperrors.InternalError(err)
	}

	// Расчёт не отменяется вместе с входящим запросом.
	bg := context.WithoutCancel(ctx)

	lines := s.receiptLines(bg, order)
	receipt := s.buildReceipt(order, lines)

	var bonus int64
	relation, relErr := s.relations.FindByOrder(order.ID)
	switch {
	case relErr == nil:
		// Охранный Claim до похода в кассу: из конкурирующих callback'ов
		// списывает ровно один, а уже возвращённая заморозка повторно
		// не списывается.
		claimErr := s.relations.Claim(relation.TransactionUUID)
		switch {
		case claimErr == nil:
			redeemed, err := s.ledger.Redeem(bg, relation.TransactionUUID, receipt)
			if err != nil {
				s.rollbackSettlement(ctx, order, relation.TransactionUUID)
				return err
			}
			bonus = redeemed
			if err := s.relations.SetBonus(relation.TransactionUUID, redeemed); err != nil {
				logger.CtxWarn(ctx, "mile bonus write failed",
					"order", order.Number, "error", err.Error())
			}
			relation.BonusMileCount = redeemed
		case errors.Is(claimErr, repositories.ErrMileRelationSettled):
			bonus = relation.BonusMileCount
		default:
			s.rollbackSettlement(ctx, order, "")
			return apperrors.InternalError(claimErr)
		}
	case errors.Is(relErr, repositories.ErrMileRelationNotFound):
		collected, err := s.ledger.Collect(bg, order.TransactionUUID, receipt)
		if err != nil {
			s.rollbackSettlement(ctx, order, "")
			return err
		}
		bonus = collected
		// Бонус полного расчёта хранится там же, где бонус списания,
		// чтобы повторное подтверждение вернуло то же значение.
		if err := s.relations.Create(&models.MileRelation{
			OrderID:         order.ID,
			TransactionUUID: order.TransactionUUID,
			BonusMileCount:  collected,
			Settled:         true,
		}); err != nil {
			logger.CtxWarn(ctx, "mile bonus write failed",
				"order", order.Number, "error", err.Error())
		}
	default:
		s.rollbackSettlement(ctx, order, "")
		return apperrors.InternalError(relErr)
	}

	now := time.Now()
	if err := s.orders.MarkPaid(order.ID, now); err != nil {
		return apperrors.InternalError(err)
	}
	order.Status = models.OrderStatusPaid
	order.PaidAt = &now
	order.Processed = true

	if order.Email != "" {
		if err := s.receipts.SendReceipt(bg, order.Email, order, lines, bonus); err != nil {
			logger.CtxWarn(ctx, "receipt email failed",
				"order", order.Number, "error", err.Error())
		}
	}

	return nil
}

// rollbackSettlement возвращает заказ и заморозку в состояние до расчёта.
func (s *Service) rollbackSettlement(ctx context.Context, order *models.Order, transactionUUID string) {
	if transactionUUID != "" {
		if err := s.relations.Reopen(transactionUUID); err != nil {
			logger.CtxError(ctx, "mile relation reopen failed",
				"order", order.Number, "error", err.Error())
		}
	}
	if err := s.orders.ClearProcessed(order.ID); err != nil {
		logger.CtxError(ctx, "processed rollback failed",
			"order", order.Number, "error", err.Error())
	}
}

// cancelUnpaid отменяет неоплаченный заказ и возвращает мили.
// Охранный Claim гарантирует один возврат на заморозку даже при
// конкурирующих callback'ах.
func (s *Service) cancelUnpaid(ctx context.Context, order *models.Order) error {
	relation, err := s.relations.FindByOrder(order.ID)
	if err == nil {
		claimErr := s.relations.Claim(relation.TransactionUUID)
		switch {
		case claimErr == nil:
			bg := context.WithoutCancel(ctx)
			if err := s.ledger.Unfreeze(bg, relation.TransactionUUID); err != nil {
				logger.CtxError(ctx, "mile unfreeze failed",
					"order", order.Number, "error", err.Error())
				if reopenErr := s.relations.Reopen(relation.TransactionUUID); reopenErr != nil {
					logger.CtxError(ctx, "mile relation reopen failed",
						"order", order.Number, "error", reopenErr.Error())
				}
				return err
			}
		case errors.Is(claimErr, repositories.ErrMileRelationSettled):
			// Мили уже возвращены или списаны другим callback'ом.
		default:
			return apperrors.InternalError(claimErr)
		}
	}

	if err := s.orders.UpdateStatus(order.ID, models.OrderStatusCancelled); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

// captureReceiptEmail сохраняет почту, введённую на платёжной форме,
// в профиле участника для будущих чеков.
func (s *Service) captureReceiptEmail(ctx context.Context, order *models.Order, email string) {
	if email == "" || email == order.Email {
		return
	}
	if err := s.profiles.UpdateEmail(order.ProfileID, email); err != nil {
		logger.CtxWarn(ctx, "receipt email update failed",
			"order", order.Number, "error", err.Error())
		return
	}
	if order.Email == "" {
		order.Email = email
	}
}

func (s *Service) payableOrder(profileID int64, orderNumber string) (*models.Order, error) {
	order, err := s.orders.FindByNumber(orderNumber)
	if err != nil || order.ProfileID != profileID {
		return nil, apperrors.ErrOrderNotFound
	}
	if order.Processed || order.Status != models.OrderStatusCreated {
		return nil, apperrors.NewBadRequestError("order is not payable")
	}
	return order, nil
}

func (s *Service) orderLines(order *models.Order) []models.ProductLine {
	if len(order.Products) == 0 {
		return nil
	}
	var lines []models.ProductLine
	if err := json.Unmarshal(order.Products, &lines); err != nil {
		return nil
	}
	return lines
}

// receiptLines возвращает строки чека: снимок заказа, а для заказов по
// корзине - позиции из партнёрского сервиса. Позиция без цены попадает
// в чек с нулевой ценой.
func (s *Service) receiptLines(ctx context.Context, order *models.Order) []models.ProductLine {
	if lines := s.orderLines(order); lines != nil {
		return lines
	}
	if order.PssQR == "" {
		return nil
	}

	partnerOrder, err := s.partner.Order(ctx, order.PssQR)
	if err != nil {
		logger.CtxWarn(ctx, "partner order fetch for receipt failed",
			"order", order.Number, "error", err.Error())
		return nil
	}

	lines := make([]models.ProductLine, 0, len(partnerOrder.Products))
	for _, p := range partnerOrder.Products {
		var price int64
		if p.Price != nil {
			price = *p.Price
		} else {
			logger.CtxWarn(ctx, "receipt product without price",
				"order", order.Number, "product_id", p.ID)
		}
		lines = append(lines, models.ProductLine{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     price,
			Quantity:  p.Quantity,
		})
	}
	return lines
}

// buildReceipt собирает фискальный чек заказа для кассового сервиса.
func (s *Service) buildReceipt(order *models.Order, lines []models.ProductLine) kassa.Receipt {
	products := make([]kassa.ReceiptProduct, 0, len(lines))
	for _, line := range lines {
		products = append(products, kassa.ReceiptProduct{
			ID:       line.ProductID,
			Name:     line.Name,
			Quantity: line.Quantity,
			Price:    line.Price,
			Amount:   line.Price * line.Quantity,
		})
	}
	return kassa.Receipt{
		FnNumber:         s.cfg.Kassa.FnNumber,
		Date:             order.CreatedAt.Format(receiptDateLayout),
		OrganizationName: s.cfg.Kassa.OrganizationName,
		OrganizationINN:  s.cfg.Kassa.OrganizationINN,
		PointName:        s.cfg.Kassa.PointName,
		KktNumber:        s.cfg.Kassa.KktNumber,
		Operator:         s.cfg.Kassa.Operator,
		Amount:           order.Amount,
		Products:         products,
	}
}

// orderBundle собирает корзину заказа для фискализации на стороне шлюза.
func (s *Service) orderBundle(order *models.Order) *alfabank.OrderBundle {
	lines := s.orderLines(order)
	if lines == nil {
		return nil
	}

	bundle := &alfabank.OrderBundle{}
	for i, line := range lines {
		bundle.CartItems.Items = append(bundle.CartItems.Items, alfabank.CartItem{
			PositionID: int64(i + 1),
			Name:       line.Name,
			Quantity:   alfabank.Amount{Value: line.Quantity, Measure: "шт"},
			ItemAmount: line.Price * line.Quantity,
			ItemCode:   strconv.FormatInt(line.ProductID, 10),
			ItemPrice:  line.Price,
		})
	}
	return bundle
}
