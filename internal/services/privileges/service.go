package privileges

import (
	"context"
	"strconv"
	"strings"
	"time"

	"moa_backend/internal/clients/alfabank"
	"moa_backend/internal/clients/pss"
	"moa_backend/internal/config"
	"moa_backend/internal/dto"
	"moa_backend/internal/logger"
	"moa_backend/internal/models"
	"moa_backend/internal/repositories"
	"moa_backend/pkg/apperrors"
)

const (
	pollAttempts = 5
	pollInterval = time.Second
)

// Gateway - операции платёжного шлюза, нужные привязке карты.
type Gateway interface {
	RegisterPreAuth(ctx context.Context, orderNumber string, amount int64, returnURL, clientID string) (*alfabank.RegisteredOrder, error)
	GetOrderStatus(ctx context.Context, gatewayOrderID string) (*alfabank.OrderStatus, error)
	Reverse(ctx context.Context, gatewayOrderID string) error
	UnbindCard(ctx context.Context, bindingID string) error
}

// Partner - операции премиальной программы партнёра.
type Partner interface {
	BindCard(ctx context.Context, profileNumber, bindingID string) error
	UnbindCard(ctx context.Context, profileNumber, bindingID string) error
	Packets(ctx context.Context) ([]pss.Packet, error)
	PremiumOrder(ctx context.Context, number string) (*pss.Order, error)
	PremiumOrders(ctx context.Context, profileNumber string) ([]pss.Order, error)
}

type Service struct {
	cfg      *config.Config
	cards    repositories.PremiumCardRepository
	profiles repositories.ProfileRepository
	gateway  Gateway
	partner  Partner

	pollInterval time.Duration
}

func NewService(
	cfg *config.Config,
	cards repositories.PremiumCardRepository,
	profiles repositories.ProfileRepository,
	gateway Gateway,
	partner Partner,
) *Service {
	return &Service{
		cfg:          cfg,
		cards:        cards,
		profiles:     profiles,
		gateway:      gateway,
		partner:      partner,
		pollInterval: pollInterval,
	}
}

// Bind начинает привязку карты: регистрирует в шлюзе предавторизационный
// заказ на символическую сумму и возвращает ссылку на платёжную форму.
// Идентификатор локальной записи зашивается в номер заказа.
func (s *Service) Bind(ctx context.Context, profileID int64) (*dto.BindCardResponse, error) {
	profile, err := s.profiles.FindByID(profileID)
	if err != nil {
		return nil, apperrors.ErrInvalidAuthToken
	}

	if _, err := s.cards.FindActiveByProfile(profileID); err == nil {
		return nil, apperrors.ErrCardAlreadyBound
	}

	card := &models.PremiumCard{ProfileID: profileID}
	if err := s.cards.Create(card); err != nil {
		return nil, apperrors.InternalError(err)
	}

	orderNumber := config.BindingOrderPrefix + s.cfg.DevPrefix() + strconv.FormatInt(card.ID, 10)
	registered, err := s.gateway.RegisterPreAuth(ctx, orderNumber, alfabank.PreAuthAmount,
		s.cfg.App.BindingConfirmURL, profile.LoyaltyID)
	if err != nil {
		if delErr := s.cards.Delete(card.ID); delErr != nil {
			logger.CtxWarn(ctx, "stale binding record cleanup failed",
				"card_id", card.ID, "error", delErr.Error())
		}
		return nil, err
	}

	if err := s.cards.SetGatewayOrderID(card.ID, registered.OrderID); err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.BindCardResponse{FormURL: registered.FormURL}, nil
}

// ConfirmBinding завершает привязку после возврата клиента из шлюза.
// Холд предавторизации снимается всегда, независимо от исхода: и при
// успешной привязке, и при любом сбое.
func (s *Service) ConfirmBinding(ctx context.Context, orderNumber string) (*dto.ConfirmBindingResponse, error) {
	cardID, err := s.cardIDFromOrderNumber(orderNumber)
	if err != nil {
		return nil, err
	}

	card, err := s.cards.FindByID(cardID)
	if err != nil {
		return nil, apperrors.ErrCardNotFound
	}
	if card.Active {
		return &dto.ConfirmBindingResponse{
			Bound:       true,
			PAN:         card.PAN,
			RedirectURL: s.cfg.App.RedirectURL,
		}, nil
	}
	if card.GatewayOrderID == "" {
		return nil, apperrors.NewBadRequestError("binding has no registered pre-auth order")
	}

	profile, err := s.profiles.FindByID(card.ProfileID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	defer func() {
		// Снятие холда выполняется и при отменённом запросе.
		bg := context.WithoutCancel(ctx)
		if err := s.gateway.Reverse(bg, card.GatewayOrderID); err != nil {
			logger.CtxError(ctx, "pre-auth reversal failed",
				"gateway_order_id", card.GatewayOrderID, "error", err.Error())
		}
	}()

	status := alfabank.PollOrderStatus(ctx, s.gateway.GetOrderStatus,
		card.GatewayOrderID, pollAttempts, s.pollInterval,
		func(st *alfabank.OrderStatus) bool {
			return st.OrderStatus != models.GatewayStatusRegistered
		})
	if status == nil || status.OrderStatus != models.GatewayStatusPreAuth || status.BindingID == "" {
		return &dto.ConfirmBindingResponse{Bound: false, RedirectURL: s.cfg.App.RedirectURL}, nil
	}

	if err := s.partner.BindCard(ctx, profile.LoyaltyID, status.BindingID); err != nil {
		switch apperrors.UpstreamCodeOf(err) {
		case pss.CodeCardAlreadyBound:
			return nil, apperrors.ErrCardAlreadyBound
		case pss.CodeNotPremium:
			return nil, apperrors.NewBadRequestError("profile is not premium")
		}
		return nil, err
	}

	if err := s.cards.Activate(card.ID, status.BindingID,
		status.CardAuthInfo.PAN, status.CardAuthInfo.Expiration); err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.ConfirmBindingResponse{
		Bound:       true,
		PAN:         status.CardAuthInfo.PAN,
		RedirectURL: s.cfg.App.RedirectURL,
	}, nil
}

// Unbind отвязывает активную карту: сначала в шлюзе, затем у партнёра,
// последней деактивируется локальная запись.
func (s *Service) Unbind(ctx context.Context, profileID int64) error {
	profile, err := s.profiles.FindByID(profileID)
	if err != nil {
		return apperrors.ErrInvalidAuthToken
	}

	card, err := s.cards.FindActiveByProfile(profileID)
	if err != nil {
		return apperrors.ErrCardNotFound
	}

	if err := s.gateway.UnbindCard(ctx, card.BindingID); err != nil {
		return err
	}
	if err := s.partner.UnbindCard(ctx, profile.LoyaltyID, card.BindingID); err != nil {
		return err
	}
	if err := s.cards.Deactivate(card.ID); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

// Card возвращает активную привязку профиля.
func (s *Service) Card(ctx context.Context, profileID int64) (*dto.CardResponse, error) {
	card, err := s.cards.FindActiveByProfile(profileID)
	if err != nil {
		return nil, apperrors.ErrCardNotFound
	}
	return &dto.CardResponse{
		PAN:        card.PAN,
		ExpiryDate: card.ExpiryDate,
		Active:     card.Active,
	}, nil
}

// Packets возвращает премиальные пакеты партнёра.
func (s *Service) Packets(ctx context.Context) ([]dto.PacketResponse, error) {
	packets, err := s.partner.Packets(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]dto.PacketResponse, 0, len(packets))
	for _, p := range packets {
		result = append(result, dto.PacketResponse{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
		})
	}
	return result, nil
}

// PremiumOrder возвращает премиальный заказ по номеру.
func (s *Service) PremiumOrder(ctx context.Context, number string) (*dto.PartnerOrderResponse, error) {
	order, err := s.partner.PremiumOrder(ctx, number)
	if err != nil {
		return nil, err
	}
	return &dto.PartnerOrderResponse{
		Number:    order.Number,
		Status:    order.Status,
		Amount:    order.Amount,
		CreatedAt: order.CreatedAt,
	}, nil
}

// PremiumOrders возвращает премиальные заказы участника.
func (s *Service) PremiumOrders(ctx context.Context, profileID int64) ([]dto.PartnerOrderResponse, error) {
	profile, err := s.profiles.FindByID(profileID)
	if err != nil {
		return nil, apperrors.ErrInvalidAuthToken
	}

	orders, err := s.partner.PremiumOrders(ctx, profile.LoyaltyID)
	if err != nil {
		return nil, err
	}

	result := make([]dto.PartnerOrderResponse, 0, len(orders))
	for _, o := range orders {
		result = append(result, dto.PartnerOrderResponse{
			Number:    o.Number,
			Status:    o.Status,
			Amount:    o.Amount,
			CreatedAt: o.CreatedAt,
		})
	}
	return result, nil
}

func (s *Service) cardIDFromOrderNumber(orderNumber string) (int64, error) {
	raw := strings.TrimPrefix(orderNumber, config.BindingOrderPrefix)
	raw = strings.TrimPrefix(raw, s.cfg.DevPrefix())
	cardID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewBadRequestError("malformed binding order number")
	}
	return cardID, nil
}
