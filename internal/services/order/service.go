package order

import (
	"context"
	"encoding/json"
	"time"

	"moa_backend/internal/cache"
	"moa_backend/internal/clients/pss"
	"moa_backend/internal/config"
	"moa_backend/internal/dto"
	"moa_backend/internal/logger"
	"moa_backend/internal/models"
	"moa_backend/internal/repositories"
	"moa_backend/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MileLedger - операции кассового сервиса, нужные оформлению заказа.
type MileLedger interface {
	Info(ctx context.Context, qr string) (string, error)
	Reserve(ctx context.Context, transactionUUID string, mileCount int64) error
	Freeze(ctx context.Context, transactionUUID string) error
	Unfreeze(ctx context.Context, transactionUUID string) error
}

// Partner - операции партнёрского сервиса, нужные оформлению заказа.
type Partner interface {
	GetProduct(ctx context.Context, productID int64) (*pss.Product, error)
	RegisterOrder(ctx context.Context, profileNumber string, cartID *string, lines []pss.OrderLine) (*pss.OrderRegistration, error)
	AllOrders(ctx context.Context, profileNumber string) ([]pss.Order, error)
}

type Service struct {
	cfg       *config.Config
	orders    repositories.OrderRepository
	relations repositories.MileRelationRepository
	profiles  repositories.ProfileRepository
	ledger    MileLedger
	partner   Partner
	cache     cache.OrderCache
}

func NewService(
	cfg *config.Config,
	orders repositories.OrderRepository,
	relations repositories.MileRelationRepository,
	profiles repositories.ProfileRepository,
	ledger MileLedger,
	partner Partner,
	orderCache cache.OrderCache,
) *Service {
	return &Service{
		cfg:       cfg,
		orders:    orders,
		relations: relations,
		profiles:  profiles,
		ledger:    ledger,
		partner:   partner,
		cache:     orderCache,
	}
}

// Create оформляет заказ: получает у кассы дескриптор транзакции,
// резервирует и замораживает мили, раскладывает скидку по строкам и
// регистрирует заказ у партнёра. Любой сбой после заморозки возвращает
// мили на счёт, локальная запись при этом не создаётся.
func (s *Service) Create(ctx context.Context, profileID int64, req dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	profile, err := s.profiles.FindByID(profileID)
	if err != nil {
		return nil, apperrors.ErrInvalidAuthToken
	}

	hasCart := req.CartID != nil && *req.CartID != ""
	hasProducts := len(req.Products) > 0
	if hasCart == hasProducts {
		return nil, apperrors.ErrCartOrProducts
	}
	if hasCart && req.MileCount > 0 {
		return nil, apperrors.ErrMilesWithCart
	}

	var (
		snapshot []models.ProductLine
		lines    []pss.OrderLine
		amount   int64
	)

	if hasProducts {
		item := req.Products[0]
		product, err := s.partner.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}

		gross := product.Price * item.Quantity
		if req.MileCount*config.MilePrice > gross {
			return nil, apperrors.ErrMilesExceedAmount
		}

		snapshot = SplitDiscount(models.ProductLine{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  item.Quantity,
		}, req.MileCount)
		amount = TotalAmount(snapshot)

		for _, line := range snapshot {
			lines = append(lines, pss.OrderLine{
				ProductID: line.ProductID,
				Price:     line.Price,
				Quantity:  line.Quantity,
			})
		}
	}

	// Дескриптор транзакции нужен любому заказу: расчёт с кассой после
	// оплаты идёт по нему и без заморозки миль.
	transactionUUID, err := s.ledger.Info(ctx, profile.LoyaltyID)
	if err != nil {
		return nil, err
	}

	frozen := false
	if req.MileCount > 0 {
		if err := s.ledger.Reserve(ctx, transactionUUID, req.MileCount); err != nil {
			return nil, err
		}
		if err := s.ledger.Freeze(ctx, transactionUUID); err != nil {
			return nil, err
		}
		frozen = true
	}

	committed := false
	defer func() {
		if committed || !frozen {
			return
		}
		// Компенсация выполняется и при отменённом запросе.
		bg := context.WithoutCancel(ctx)
		if err := s.ledger.Unfreeze(bg, transactionUUID); err != nil {
			logger.CtxError(ctx, "mile unfreeze compensation failed",
				"transaction_uuid", transactionUUID, "error", err.Error())
		}
	}()

	registration, err := s.partner.RegisterOrder(ctx, profile.LoyaltyID, req.CartID, lines)
	if err != nil {
		return nil, err
	}
	if hasCart {
		// Сумму корзины знает только партнёр.
		amount = registration.Sum
	}

	email := req.Email
	if email == "" {
		email = profile.Email
	}

	order := &models.Order{
		ProfileID:       profileID,
		Number:          config.OrderNumberPrefix + s.cfg.DevPrefix() + uuid.New().String(),
		PssQR:           registration.QR,
		StockID:         registration.StockID,
		PointID:         registration.PointID,
		Stock:           registration.Stock,
		TransactionUUID: transactionUUID,
		CartID:          req.CartID,
		Amount:          amount,
		MileCount:       req.MileCount,
		Status:          models.OrderStatusCreated,
		Email:           email,
		ExpiresAt:       time.Now().AddDate(0, 0, s.cfg.App.OrderExpirationDays),
	}
	if snapshot != nil {
		raw, err := json.Marshal(snapshot)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		order.Products = datatypes.JSON(raw)
	}

	if err := s.orders.Create(order); err != nil {
		return nil, apperrors.InternalError(err)
	}

	if frozen {
		relation := &models.MileRelation{
			OrderID:         order.ID,
			TransactionUUID: transactionUUID,
			FrozenMileCount: req.MileCount,
		}
		if err := s.relations.Create(relation); err != nil {
			return nil, apperrors.InternalError(err)
		}
	}

	committed = true

	if err := s.cache.Delete(ctx, profile.LoyaltyID); err != nil {
		logger.CtxWarn(ctx, "order cache invalidation failed", "error", err.Error())
	}

	return toResponse(order, snapshot), nil
}

// Get возвращает локальный заказ профиля по номеру.
func (s *Service) Get(ctx context.Context, profileID int64, number string) (*dto.OrderResponse, error) {
	order, err := s.orders.FindByNumber(number)
	if err != nil || order.ProfileID != profileID {
		return nil, apperrors.ErrOrderNotFound
	}
	return toResponse(order, nil), nil
}

// List возвращает страницу заказов участника по данным партнёра.
// Проекция кэшируется, у партнёра спрашиваем только на промахе.
func (s *Service) List(ctx context.Context, profileID int64, q dto.OrderListQuery) (*dto.OrderListResponse, error) {
	profile, err := s.profiles.FindByID(profileID)
	if err != nil {
		return nil, apperrors.ErrInvalidAuthToken
	}

	orders, err := s.cache.Get(ctx, profile.LoyaltyID)
	if err != nil {
		orders, err = s.partner.AllOrders(ctx, profile.LoyaltyID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, profile.LoyaltyID, orders); err != nil {
			logger.CtxWarn(ctx, "order cache write failed", "error", err.Error())
		}
	}

	now := time.Now()
	filtered := make([]pss.Order, 0, len(orders))
	for _, o := range orders {
		if archived(o, now) == q.Archive {
			filtered = append(filtered, o)
		}
	}

	page, perPage := q.Page, q.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	start := (page - 1) * perPage
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + perPage
	if end > len(filtered) {
		end = len(filtered)
	}

	result := make([]dto.PartnerOrderResponse, 0, end-start)
	for _, o := range filtered[start:end] {
		result = append(result, dto.PartnerOrderResponse{
			QR:        o.QR,
			Number:    o.Number,
			Status:    o.Status,
			Amount:    o.Amount,
			CreatedAt: o.CreatedAt,
		})
	}
	return &dto.OrderListResponse{
		Orders:  result,
		Page:    page,
		PerPage: perPage,
		Total:   len(filtered),
	}, nil
}

// archived относит заказ к архиву, когда он возвращён либо его срок
// действия истёк.
func archived(o pss.Order, now time.Time) bool {
	if o.Refunded {
		return true
	}
	if o.EstimatedDate == "" {
		return false
	}
	estimated, err := time.Parse(time.RFC3339, o.EstimatedDate)
	if err != nil {
		return false
	}
	return estimated.Before(now)
}

func toResponse(order *models.Order, snapshot []models.ProductLine) *dto.OrderResponse {
	if snapshot == nil && len(order.Products) > 0 {
		// Снимок строк хранится рядом с заказом.
		_ = json.Unmarshal(order.Products, &snapshot)
	}
	return &dto.OrderResponse{
		Number:        order.Number,
		PssQR:         order.PssQR,
		Status:        order.Status,
		Amount:        order.Amount,
		MileCount:     order.MileCount,
		Products:      snapshot,
		StockID:       order.StockID,
		PointID:       order.PointID,
		Stock:         order.Stock,
		CreatedAt:     order.CreatedAt,
		EstimatedDate: order.ExpiresAt,
		PaidAt:        order.PaidAt,
	}
}
