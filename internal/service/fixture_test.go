package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/itqanpos/ITQN/internal/clock"
	"github.com/itqanpos/ITQN/internal/config"
	"github.com/itqanpos/ITQN/internal/logger"
	"github.com/itqanpos/ITQN/internal/model"
	"github.com/itqanpos/ITQN/internal/repository"
	"github.com/itqanpos/ITQN/internal/testutil"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixtureNow = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

const fixtureDate = "2024-06-15"

// recordingBroadcaster captures realtime pushes.
type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []RealtimeEvent
}

func (b *recordingBroadcaster) BroadcastToTenant(_ uuid.UUID, message []byte) {
	var ev RealtimeEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return
	}
	b.mu.Lock()
	b.messages = append(b.messages, ev)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) eventTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lo.Map(b.messages, func(e RealtimeEvent, _ int) string { return e.Event })
}

type fixture struct {
	t     testing.TB
	ctx   context.Context
	db    *gorm.DB
	clock *clock.Fixed
	hub   *recordingBroadcaster

	tenantRepo     repository.TenantRepository
	userRepo       repository.UserRepository
	sequenceRepo   repository.SequenceRepository
	productRepo    repository.ProductRepository
	logRepo        repository.InventoryLogRepository
	orderRepo      repository.OrderRepository
	saleRepo       repository.SaleRepository
	treasuryRepo   repository.TreasuryRepository
	commissionRepo repository.CommissionRepository
	auditRepo      repository.AuditRepository
	eventRepo      repository.EventRepository

	runner      *TxRunner
	events      *EventPublisher
	sequence    SequenceService
	inventory   InventoryService
	treasury    TreasuryService
	commissions CommissionService
	orders      OrderService
	invoices    InvoiceService
	fulfillment FulfillmentService
	tenants     TenantService
	users       UserService
	audit       AuditService

	tenantID uuid.UUID
	ownerID  uuid.UUID
}

// newFixture provisions one tenant with no tax, a 5% commission rate and a
// low-stock threshold of 2.
func newFixture(t testing.TB) *fixture {
	t.Helper()
	return newFixtureOn(t, testutil.NewDB(t))
}

func newFixtureOn(t testing.TB, db *gorm.DB) *fixture {
	t.Helper()

	log := logger.NewNop()
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		db:    db,
		clock: clock.NewFixed(fixtureNow),
		hub:   &recordingBroadcaster{},

		tenantRepo:     repository.NewTenantRepository(db),
		userRepo:       repository.NewUserRepository(db),
		sequenceRepo:   repository.NewSequenceRepository(db),
		productRepo:    repository.NewProductRepository(db),
		logRepo:        repository.NewInventoryLogRepository(db),
		orderRepo:      repository.NewOrderRepository(db),
		saleRepo:       repository.NewSaleRepository(db),
		treasuryRepo:   repository.NewTreasuryRepository(db),
		commissionRepo: repository.NewCommissionRepository(db),
		auditRepo:      repository.NewAuditRepository(db),
		eventRepo:      repository.NewEventRepository(db),
	}

	f.runner = NewTxRunner(repository.NewTransactionManager(db), RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}, log)
	f.events = NewEventPublisher(f.eventRepo, f.hub, f.clock, log)
	f.sequence = NewSequenceService(f.sequenceRepo, f.clock)
	f.inventory = NewInventoryService(f.productRepo, f.logRepo, f.tenantRepo, f.auditRepo, f.events, f.runner, log)
	f.treasury = NewTreasuryService(f.treasuryRepo, f.tenantRepo, f.auditRepo, f.runner, f.clock, log)
	f.commissions = NewCommissionService(f.commissionRepo, f.userRepo, f.tenantRepo)
	f.orders = NewOrderService(f.orderRepo, f.productRepo, f.tenantRepo, f.auditRepo, f.sequence, f.runner)
	f.invoices = NewInvoiceService(f.saleRepo, f.sequence, f.runner)
	f.fulfillment = f.fulfillmentWith(f.inventory, f.orderRepo)
	f.tenants = NewTenantService(f.tenantRepo, f.userRepo, f.sequenceRepo, f.treasuryRepo, f.auditRepo, f.runner,
		config.GetDefaultConfig().Fulfillment, f.clock, log)
	f.users = NewUserService(f.userRepo, f.auditRepo, f.runner, f.clock, []byte("test-secret"), time.Hour)
	f.audit = NewAuditService(f.auditRepo, f.userRepo)

	tenant, err := f.tenants.Provision(f.ctx, ProvisionTenantRequest{
		Name:              "Corner Shop",
		TaxRate:           lo.ToPtr(decimal.Zero),
		CommissionRate:    lo.ToPtr(decimal.NewFromInt(5)),
		LowStockThreshold: lo.ToPtr(2),
		Owner: OwnerRequest{
			Username: "owner",
			Email:    "owner@corner.test",
			Password: "secret123",
		},
	})
	require.NoError(t, err)
	f.tenantID = uuid.MustParse(tenant.ID)
	f.ownerID = uuid.MustParse(tenant.Owner.ID)
	return f
}

// fulfillmentWith builds a fulfillment service with replaced collaborators.
func (f *fixture) fulfillmentWith(inventory InventoryService, orderRepo repository.OrderRepository) FulfillmentService {
	return NewFulfillmentService(
		orderRepo, f.saleRepo, f.userRepo, f.tenantRepo, f.productRepo, f.commissionRepo, f.auditRepo,
		f.sequence, inventory, f.treasury, f.commissions, f.events, f.runner, f.clock, logger.NewNop(),
	)
}

func (f *fixture) addUser(role string, eligible bool, rate *decimal.Decimal) uuid.UUID {
	f.t.Helper()
	u := model.User{
		TenantID:           f.tenantID,
		Username:           role,
		Email:              uuid.NewString() + "@corner.test",
		Password:           "not-a-hash",
		Role:               role,
		CommissionEligible: eligible,
		CommissionRate:     rate,
	}
	require.NoError(f.t, f.userRepo.Create(f.ctx, &u))
	return u.ID
}

func (f *fixture) addProduct(name, price string, stock int) uuid.UUID {
	f.t.Helper()
	p := model.Product{
		TenantID:  f.tenantID,
		SKU:       "SKU-" + name,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		CostPrice: decimal.Zero,
		Stock:     stock,
	}
	require.NoError(f.t, f.productRepo.Create(f.ctx, &p))
	return p.ID
}

func item(productID uuid.UUID, qty int) OrderItemRequest {
	return OrderItemRequest{ProductID: productID.String(), Quantity: qty}
}

func (f *fixture) createOrder(actorID uuid.UUID, method string, items ...OrderItemRequest) uuid.UUID {
	f.t.Helper()
	resp, err := f.orders.CreateOrder(f.ctx, f.tenantID, actorID, CreateOrderRequest{
		CustomerName:  "Walk-in",
		Items:         items,
		PaymentMethod: method,
	})
	require.NoError(f.t, err)
	return uuid.MustParse(resp.ID)
}

func (f *fixture) setTenant(column string, value interface{}) {
	f.t.Helper()
	require.NoError(f.t, f.db.Model(&model.Tenant{}).Where("id = ?", f.tenantID).Update(column, value).Error)
}

func (f *fixture) order(id uuid.UUID) *model.Order {
	f.t.Helper()
	o, err := f.orderRepo.FindByID(f.ctx, f.tenantID, id)
	require.NoError(f.t, err)
	return o
}

func (f *fixture) stock(productID uuid.UUID) int {
	f.t.Helper()
	p, err := f.productRepo.FindByID(f.ctx, f.tenantID, productID)
	require.NoError(f.t, err)
	return p.Stock
}

func (f *fixture) balance() decimal.Decimal {
	f.t.Helper()
	account, err := f.treasuryRepo.FindAccount(f.ctx, f.tenantID, model.MainTreasuryAccount)
	require.NoError(f.t, err)
	return account.Balance
}

func (f *fixture) daily(date string) model.DailyTreasury {
	f.t.Helper()
	var d model.DailyTreasury
	require.NoError(f.t, f.db.Where("tenant_id = ? AND date = ?", f.tenantID, date).First(&d).Error)
	return d
}

func (f *fixture) counter(domain string) *model.SequenceCounter {
	f.t.Helper()
	var c model.SequenceCounter
	require.NoError(f.t, f.db.Where("tenant_id = ? AND domain = ?", f.tenantID, domain).First(&c).Error)
	return &c
}

// count returns the tenant's rows of m.
func (f *fixture) count(m interface{}) int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Model(m).Where("tenant_id = ?", f.tenantID).Count(&n).Error)
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
