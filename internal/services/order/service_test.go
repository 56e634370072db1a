package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"moa_backend/internal/cache"
	"moa_backend/internal/clients/pss"
	"moa_backend/internal/config"
	"moa_backend/internal/dto"
	"moa_backend/internal/models"
	"moa_backend/internal/repositories"
	"moa_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderRepo struct {
	orders []*models.Order
	nextID int64
}

func (r *fakeOrderRepo) Create(order *models.Order) error {
	r.nextID++
	order.ID = r.nextID
	order.CreatedAt = time.Now()
	r.orders = append(r.orders, order)
	return nil
}

func (r *fakeOrderRepo) FindByID(id int64) (*models.Order, error) {
	for _, o := range r.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, repositories.ErrOrderNotFound
}

func (r *fakeOrderRepo) FindByNumber(number string) (*models.Order, error) {
	for _, o := range r.orders {
		if o.Number == number {
			return o, nil
		}
	}
	return nil, repositories.ErrOrderNotFound
}

func (r *fakeOrderRepo) FindByGatewayOrderID(gatewayOrderID string) (*models.Order, error) {
	for _, o := range r.orders {
		if o.GatewayOrderID == gatewayOrderID {
			return o, nil
		}
	}
	return nil, repositories.ErrOrderNotFound
}

func (r *fakeOrderRepo) FindByProfile(profileID int64) ([]models.Order, error) {
	var out []models.Order
	for _, o := range r.orders {
		if o.ProfileID == profileID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) SetGatewayOrderID(id int64, gatewayOrderID string) error {
	o, err := r.FindByID(id)
	if err != nil {
		return err
	}
	o.GatewayOrderID = gatewayOrderID
	return nil
}

func (r *fakeOrderRepo) MarkPaid(id int64, paidAt time.Time) error {
	o, err := r.FindByID(id)
	if err != nil {
		return err
	}
	o.Status = models.OrderStatusPaid
	o.PaidAt = &paidAt
	return nil
}

func (r *fakeOrderRepo) UpdateStatus(id int64, status models.OrderStatus) error {
	o, err := r.FindByID(id)
	if err != nil {
		return err
	}
	o.Status = status
	return nil
}

func (r *fakeOrderRepo) MarkProcessed(id int64) error {
	o, err := r.FindByID(id)
	if err != nil {
		return err
	}
	if o.Processed {
		return repositories.ErrAlreadyProcessed
	}
	o.Processed = true
	return nil
}

func (r *fakeOrderRepo) ClearProcessed(id int64) error {
	o, err := r.FindByID(id)
	if err != nil {
		return err
	}
	o.Processed = false
	return nil
}

func (r *fakeOrderRepo) FindExpired(now time.Time) ([]models.Order, error) {
	var out []models.Order
	for _, o := range r.orders {
		if o.Status == models.OrderStatusCreated && o.ExpiresAt.Before(now) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) Delete(id int64) error {
	for i, o := range r.orders {
		if o.ID == id {
			r.orders = append(r.orders[:i], r.orders[i+1:]...)
			return nil
		}
	}
	return repositories.ErrOrderNotFound
}

type fakeRelationRepo struct {
	relations []*models.MileRelation
}

func (r *fakeRelationRepo) Create(relation *models.MileRelation) error {
	relation.ID = int64(len(r.relations) + 1)
	r.relations = append(r.relations, relation)
	return nil
}

func (r *fakeRelationRepo) FindByTransactionUUID(transactionUUID string) (*models.MileRelation, error) {
	for _, rel := range r.relations {
		if rel.TransactionUUID == transactionUUID {
			return rel, nil
		}
	}
	return nil, repositories.ErrMileRelationNotFound
}

func (r *fakeRelationRepo) FindByOrder(orderID int64) (*models.MileRelation, error) {
	for _, rel := range r.relations {
		if rel.OrderID == orderID {
			return rel, nil
		}
	}
	return nil, repositories.ErrMileRelationNotFound
}

func (r *fakeRelationRepo) Claim(transactionUUID string) error {
	rel, err := r.FindByTransactionUUID(transactionUUID)
	if err != nil {
		return err
	}
	if rel.Settled {
		return repositories.ErrMileRelationSettled
	}
	rel.Settled = true
	return nil
}

func (r *fakeRelationRepo) Reopen(transactionUUID string) error {
	rel, err := r.FindByTransactionUUID(transactionUUID)
	if err != nil {
		return err
	}
	rel.Settled = false
	return nil
}

func (r *fakeRelationRepo) SetBonus(transactionUUID string, bonusMileCount int64) error {
	rel, err := r.FindByTransactionUUID(transactionUUID)
	if err != nil {
		return err
	}
	rel.BonusMileCount = bonusMileCount
	return nil
}

type fakeProfileRepo struct {
	profile *models.Profile
}

func (r *fakeProfileRepo) Create(profile *models.Profile) error { return nil }

func (r *fakeProfileRepo) FindByID(id int64) (*models.Profile, error) {
	if r.profile == nil || r.profile.ID != id {
		return nil, repositories.ErrProfileNotFound
	}
	return r.profile, nil
}

func (r *fakeProfileRepo) FindByLoyaltyID(loyaltyID string) (*models.Profile, error) {
	if r.profile == nil || r.profile.LoyaltyID != loyaltyID {
		return nil, repositories.ErrProfileNotFound
	}
	return r.profile, nil
}

func (r *fakeProfileRepo) UpdateEmail(id int64, email string) error { return nil }

// fakeLedger пишет последовательность вызовов кассы, чтобы проверять
// порядок info → rcc → freeze.
type fakeLedger struct {
	calls         []string
	unfreezeCalls int
	infoErr       error
	reserveErr    error
	freezeErr     error
}

func (l *fakeLedger) Info(ctx context.Context, qr string) (string, error) {
	l.calls = append(l.calls, "info")
	if l.infoErr != nil {
		return "", l.infoErr
	}
	return "tx-1", nil
}

func (l *fakeLedger) Reserve(ctx context.Context, transactionUUID string, mileCount int64) error {
	l.calls = append(l.calls, "reserve "+transactionUUID)
	return l.reserveErr
}

func (l *fakeLedger) Freeze(ctx context.Context, transactionUUID string) error {
	l.calls = append(l.calls, "freeze "+transactionUUID)
	return l.freezeErr
}

func (l *fakeLedger) Unfreeze(ctx context.Context, transactionUUID string) error {
	l.calls = append(l.calls, "unfreeze "+transactionUUID)
	l.unfreezeCalls++
	return nil
}

func (l *fakeLedger) freezeCalls() int {
	n := 0
	for _, c := range l.calls {
		if c == "freeze tx-1" {
			n++
		}
	}
	return n
}

type fakePartner struct {
	product      *pss.Product
	registration *pss.OrderRegistration
	registerErr  error
	registered   int
	allOrders    []pss.Order
	allCalls     int
}

func (p *fakePartner) GetProduct(ctx context.Context, productID int64) (*pss.Product, error) {
	if p.product == nil {
		return nil, apperrors.UpstreamBusiness("pss", 13)
	}
	return p.product, nil
}

func (p *fakePartner) RegisterOrder(ctx context.Context, profileNumber string, cartID *string, lines []pss.OrderLine) (*pss.OrderRegistration, error) {
	if p.registerErr != nil {
		return nil, p.registerErr
	}
	p.registered++
	return p.registration, nil
}

func (p *fakePartner) AllOrders(ctx context.Context, profileNumber string) ([]pss.Order, error) {
	p.allCalls++
	return p.allOrders, nil
}

type fakeCache struct {
	store   map[string][]pss.Order
	deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string][]pss.Order{}}
}

func (c *fakeCache) Get(ctx context.Context, profileNumber string) ([]pss.Order, error) {
	orders, ok := c.store[profileNumber]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return orders, nil
}

func (c *fakeCache) Set(ctx context.Context, profileNumber string, orders []pss.Order) error {
	c.store[profileNumber] = orders
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, profileNumber string) error {
	c.deletes++
	delete(c.store, profileNumber)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.OrderExpirationDays = 365
	return cfg
}

type deps struct {
	orders    *fakeOrderRepo
	relations *fakeRelationRepo
	profiles  *fakeProfileRepo
	ledger    *fakeLedger
	partner   *fakePartner
	cache     *fakeCache
}

func newTestService() (*Service, *deps) {
	stockID := int64(3)
	pointID := int64(11)
	d := &deps{
		orders:    &fakeOrderRepo{},
		relations: &fakeRelationRepo{},
		profiles: &fakeProfileRepo{profile: &models.Profile{
			BaseModel: models.BaseModel{ID: 1},
			LoyaltyID: "100200300",
			Email:     "client@example.com",
		}},
		ledger: &fakeLedger{},
		partner: &fakePartner{
			product: &pss.Product{ID: 7, Name: "Абонемент", Price: 10000},
			registration: &pss.OrderRegistration{
				QR:      "pss-qr-1",
				StockID: &stockID,
				PointID: &pointID,
				Sum:     69700,
				Stock:   "Шереметьево D1",
			},
		},
		cache: newFakeCache(),
	}
	svc := NewService(testConfig(), d.orders, d.relations, d.profiles, d.ledger, d.partner, d.cache)
	return svc, d
}

func productsRequest(quantity, miles int64) dto.CreateOrderRequest {
	return dto.CreateOrderRequest{
		Products:  []dto.OrderProductRequest{{ProductID: 7, Quantity: quantity}},
		MileCount: miles,
	}
}

func TestCreate_WithMiles(t *testing.T) {
	svc, d := newTestService()

	resp, err := svc.Create(context.Background(), 1, productsRequest(7, 3))
	require.NoError(t, err)

	assert.Equal(t, int64(69700), resp.Amount)
	assert.Equal(t, int64(3), resp.MileCount)
	assert.Equal(t, models.OrderStatusCreated, resp.Status)
	require.Len(t, resp.Products, 2)

	require.Len(t, d.orders.orders, 1)
	order := d.orders.orders[0]
	assert.Equal(t, "tx-1", order.TransactionUUID)
	assert.NotEmpty(t, order.Products, "снимок строк должен лежать рядом с заказом")

	require.Len(t, d.relations.relations, 1)
	assert.Equal(t, order.ID, d.relations.relations[0].OrderID)
	assert.Equal(t, int64(3), d.relations.relations[0].FrozenMileCount)
	assert.False(t, d.relations.relations[0].Settled)

	assert.Equal(t, 0, d.ledger.unfreezeCalls, "успешное оформление не компенсируется")
	assert.Equal(t, 1, d.cache.deletes)
}

func TestCreate_LedgerCallOrder(t *testing.T) {
	svc, d := newTestService()

	_, err := svc.Create(context.Background(), 1, productsRequest(7, 3))
	require.NoError(t, err)

	// Сначала дескриптор транзакции, затем резерв, затем заморозка -
	// все по одному дескриптору.
	assert.Equal(t, []string{"info", "reserve tx-1", "freeze tx-1"}, d.ledger.calls)
}

func TestCreate_WithoutMilesSkipsFreeze(t *testing.T) {
	svc, d := newTestService()

	_, err := svc.Create(context.Background(), 1, productsRequest(2, 0))
	require.NoError(t, err)

	// Дескриптор нужен и без миль: по нему пойдёт collect после оплаты.
	assert.Equal(t, []string{"info"}, d.ledger.calls)
	assert.Equal(t, "tx-1", d.orders.orders[0].TransactionUUID)
	assert.Empty(t, d.relations.relations, "без заморозки связка не создаётся")
}

func TestCreate_PersistsPartnerRegistration(t *testing.T) {
	svc, d := newTestService()

	resp, err := svc.Create(context.Background(), 1, productsRequest(7, 3))
	require.NoError(t, err)

	order := d.orders.orders[0]
	assert.Equal(t, "pss-qr-1", order.PssQR)
	require.NotNil(t, order.StockID)
	assert.Equal(t, int64(3), *order.StockID)
	require.NotNil(t, order.PointID)
	assert.Equal(t, int64(11), *order.PointID)
	assert.Equal(t, "Шереметьево D1", order.Stock)

	assert.Equal(t, "pss-qr-1", resp.PssQR)
	assert.Equal(t, "Шереметьево D1", resp.Stock)
	require.NotNil(t, resp.PointID)
	assert.Equal(t, int64(11), *resp.PointID)
}

func TestCreate_PartnerFailureUnfreezesOnce(t *testing.T) {
	svc, d := newTestService()
	d.partner.registerErr = apperrors.UpstreamBusiness("pss", 90)

	_, err := svc.Create(context.Background(), 1, productsRequest(7, 3))
	require.Error(t, err)

	assert.Equal(t, 1, d.ledger.freezeCalls())
	assert.Equal(t, 1, d.ledger.unfreezeCalls, "мили возвращаются ровно один раз")
	assert.Empty(t, d.orders.orders, "локальная запись при сбое не создаётся")
	assert.Empty(t, d.relations.relations)
}

func TestCreate_PartnerFailureWithoutMiles(t *testing.T) {
	svc, d := newTestService()
	d.partner.registerErr = errors.New("dial tcp: connection refused")

	_, err := svc.Create(context.Background(), 1, productsRequest(2, 0))
	require.Error(t, err)

	assert.Equal(t, 0, d.ledger.freezeCalls())
	assert.Equal(t, 0, d.ledger.unfreezeCalls, "без заморозки компенсировать нечего")
}

func TestCreate_ReserveFailureAborts(t *testing.T) {
	svc, d := newTestService()
	d.ledger.reserveErr = apperrors.UpstreamBusiness("kassa", 5)

	_, err := svc.Create(context.Background(), 1, productsRequest(7, 3))
	require.Error(t, err)

	assert.Equal(t, 0, d.ledger.freezeCalls(), "после сбоя резерва заморозки нет")
	assert.Equal(t, 0, d.ledger.unfreezeCalls)
	assert.Empty(t, d.orders.orders)
	assert.Equal(t, 0, d.partner.registered)
}

func TestCreate_CartWithMilesRejected(t *testing.T) {
	svc, d := newTestService()
	cartID := "cart-42"

	_, err := svc.Create(context.Background(), 1, dto.CreateOrderRequest{
		CartID:    &cartID,
		MileCount: 5,
	})

	assert.ErrorIs(t, err, apperrors.ErrMilesWithCart)
	assert.Empty(t, d.ledger.calls)
}

func TestCreate_ExactlyOneOfCartOrProducts(t *testing.T) {
	svc, _ := newTestService()
	cartID := "cart-42"

	_, err := svc.Create(context.Background(), 1, dto.CreateOrderRequest{})
	assert.ErrorIs(t, err, apperrors.ErrCartOrProducts)

	_, err = svc.Create(context.Background(), 1, dto.CreateOrderRequest{
		CartID:   &cartID,
		Products: []dto.OrderProductRequest{{ProductID: 7, Quantity: 1}},
	})
	assert.ErrorIs(t, err, apperrors.ErrCartOrProducts)
}

func TestCreate_MilesExceedAmount(t *testing.T) {
	svc, d := newTestService()

	// 2 единицы по 10000 = 20000, а 300 миль стоят 30000
	_, err := svc.Create(context.Background(), 1, productsRequest(2, 300))

	assert.ErrorIs(t, err, apperrors.ErrMilesExceedAmount)
	assert.Empty(t, d.ledger.calls, "проверка суммы идёт до похода в кассу")
}

func TestCreate_CartOrder(t *testing.T) {
	svc, d := newTestService()
	cartID := "cart-42"
	d.partner.registration = &pss.OrderRegistration{QR: "pss-qr-2", Sum: 12300}

	resp, err := svc.Create(context.Background(), 1, dto.CreateOrderRequest{CartID: &cartID})
	require.NoError(t, err)

	assert.Equal(t, int64(12300), resp.Amount, "сумму корзины считает партнёр")
	require.Len(t, d.orders.orders, 1)
	require.NotNil(t, d.orders.orders[0].CartID)
	assert.Equal(t, cartID, *d.orders.orders[0].CartID)
	assert.Equal(t, "pss-qr-2", d.orders.orders[0].PssQR)
	assert.Empty(t, d.relations.relations, "без миль связка не создаётся")
}

func TestGet_OwnershipEnforced(t *testing.T) {
	svc, _ := newTestService()

	resp, err := svc.Create(context.Background(), 1, productsRequest(1, 0))
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), 1, resp.Number)
	require.NoError(t, err)
	assert.Equal(t, resp.Number, got.Number)

	_, err = svc.Get(context.Background(), 2, resp.Number)
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
}

func TestList_CachesPartnerProjection(t *testing.T) {
	svc, d := newTestService()
	d.partner.allOrders = []pss.Order{
		{QR: "pss-qr-1", Number: "MOA.1", Status: "paid", Amount: 69700, CreatedAt: "2026-08-01T10:00:00Z"},
	}

	first, err := svc.List(context.Background(), 1, dto.OrderListQuery{})
	require.NoError(t, err)
	require.Len(t, first.Orders, 1)
	assert.Equal(t, "MOA.1", first.Orders[0].Number)
	assert.Equal(t, "pss-qr-1", first.Orders[0].QR)
	assert.Equal(t, 1, d.partner.allCalls)

	// Повторный запрос обслуживается из кэша
	second, err := svc.List(context.Background(), 1, dto.OrderListQuery{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, d.partner.allCalls)
}

func TestList_SplitsActiveAndArchive(t *testing.T) {
	svc, d := newTestService()
	past := time.Now().Add(-time.Hour).Format(time.RFC3339)
	future := time.Now().Add(24 * time.Hour).Format(time.RFC3339)
	d.partner.allOrders = []pss.Order{
		{Number: "MOA.1", Status: "created", EstimatedDate: future},
		{Number: "MOA.2", Status: "paid", EstimatedDate: past},
		{Number: "MOA.3", Status: "paid", Refunded: true, EstimatedDate: future},
	}

	active, err := svc.List(context.Background(), 1, dto.OrderListQuery{})
	require.NoError(t, err)
	require.Len(t, active.Orders, 1)
	assert.Equal(t, "MOA.1", active.Orders[0].Number)
	assert.Equal(t, 1, active.Total)

	archive, err := svc.List(context.Background(), 1, dto.OrderListQuery{Archive: true})
	require.NoError(t, err)
	require.Len(t, archive.Orders, 2)
	assert.Equal(t, "MOA.2", archive.Orders[0].Number)
	assert.Equal(t, "MOA.3", archive.Orders[1].Number)
}

func TestList_Paginates(t *testing.T) {
	svc, d := newTestService()
	d.partner.allOrders = []pss.Order{
		{Number: "MOA.1"}, {Number: "MOA.2"}, {Number: "MOA.3"},
	}

	page, err := svc.List(context.Background(), 1, dto.OrderListQuery{Page: 2, PerPage: 2})
	require.NoError(t, err)

	require.Len(t, page.Orders, 1)
	assert.Equal(t, "MOA.3", page.Orders[0].Number)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.Total)
}

func TestCreate_InvalidatesListCache(t *testing.T) {
	svc, d := newTestService()
	d.partner.allOrders = []pss.Order{{Number: "MOA.1", Status: "created"}}

	_, err := svc.List(context.Background(), 1, dto.OrderListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, d.partner.allCalls)

	_, err = svc.Create(context.Background(), 1, productsRequest(1, 0))
	require.NoError(t, err)

	_, err = svc.List(context.Background(), 1, dto.OrderListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, d.partner.allCalls, "оформление заказа сбрасывает кэш списка")
}
