package service

import (
	"testing"

	ierr "github.com/itqanpos/ITQN/internal/errors"
	"github.com/itqanpos/ITQN/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderPricesItems(t *testing.T) {
	f := newFixture(t)
	f.setTenant("tax_rate", dec("14"))
	cashier := f.addUser(model.RoleCashier, false, nil)
	coffee := f.addProduct("Coffee", "50", 10)

	got, err := f.orders.CreateOrder(f.ctx, f.tenantID, cashier, CreateOrderRequest{
		CustomerName:  "Nour",
		Items:         []OrderItemRequest{item(coffee, 2)},
		PaymentMethod: model.PaymentMethodCard,
	})
	require.NoError(t, err)

	assert.Equal(t, "ORD-2024-000001", got.OrderNumber)
	assert.Equal(t, model.OrderStatusPending, got.Status)
	assert.Equal(t, "100.00", got.Subtotal)
	assert.Equal(t, "14.00", got.Tax)
	assert.Equal(t, "114.00", got.Total)
	assert.Equal(t, "114.00", got.PaymentAmount)
	assert.Equal(t, model.PaymentStatusPaid, got.PaymentStatus)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Coffee", got.Items[0].ProductName)
	assert.Equal(t, "50.00", got.Items[0].UnitPrice)

	// stock is untouched until approval
	assert.Equal(t, 10, f.stock(coffee))

	stored, err := f.orders.GetOrder(f.ctx, f.tenantID, got.ID)
	require.NoError(t, err)
	assert.Equal(t, got.OrderNumber, stored.OrderNumber)
	assert.Len(t, stored.Items, 1)
}

func TestCreateOrderDiscountAndCredit(t *testing.T) {
	f := newFixture(t)
	cashier := f.addUser(model.RoleCashier, false, nil)
	tea := f.addProduct("Tea", "12.5", 10)

	got, err := f.orders.CreateOrder(f.ctx, f.tenantID, cashier, CreateOrderRequest{
		Items:         []OrderItemRequest{item(tea, 4)},
		Discount:      dec("10"),
		PaymentMethod: model.PaymentMethodCredit,
	})
	require.NoError(t, err)
	assert.Equal(t, "40.00", got.Total)
	assert.Equal(t, "0.00", got.PaymentAmount)
	assert.Equal(t, model.PaymentStatusUnpaid, got.PaymentStatus)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	cashier := f.addUser(model.RoleCashier, false, nil)
	tea := f.addProduct("Tea", "10", 10)

	tests := []struct {
		name  string
		req   CreateOrderRequest
		check func(error) bool
	}{
		{"no items", CreateOrderRequest{PaymentMethod: model.PaymentMethodCash}, ierr.IsInvalidArgument},
		{"unknown payment method", CreateOrderRequest{Items: []OrderItemRequest{item(tea, 1)}, PaymentMethod: "barter"}, ierr.IsInvalidArgument},
		{"zero quantity", CreateOrderRequest{Items: []OrderItemRequest{item(tea, 0)}, PaymentMethod: model.PaymentMethodCash}, ierr.IsInvalidArgument},
		{"bad product id", CreateOrderRequest{Items: []OrderItemRequest{{ProductID: "tea", Quantity: 1}}, PaymentMethod: model.PaymentMethodCash}, ierr.IsInvalidArgument},
		{"discount above subtotal", CreateOrderRequest{Items: []OrderItemRequest{item(tea, 1)}, Discount: dec("11"), PaymentMethod: model.PaymentMethodCash}, ierr.IsInvalidArgument},
		{"negative discount", CreateOrderRequest{Items: []OrderItemRequest{item(tea, 1)}, Discount: dec("-1"), PaymentMethod: model.PaymentMethodCash}, ierr.IsInvalidArgument},
		{"unknown product", CreateOrderRequest{Items: []OrderItemRequest{item(uuid.New(), 1)}, PaymentMethod: model.PaymentMethodCash}, ierr.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.CreateOrder(f.ctx, f.tenantID, cashier, tt.req)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}

	_, err := f.orders.CreateOrder(f.ctx, f.tenantID, uuid.Nil, CreateOrderRequest{})
	assert.True(t, ierr.IsUnauthenticated(err))

	// failed attempts do not consume order numbers
	assert.Equal(t, int64(0), f.count(&model.Order{}))
	assert.Equal(t, int64(0), f.counter(model.SequenceDomainOrder).LastNumber)
}

func TestProductsAreTenantScoped(t *testing.T) {
	f := newFixture(t)
	cashier := f.addUser(model.RoleCashier, false, nil)

	other, err := f.tenants.Provision(f.ctx, ProvisionTenantRequest{
		Name:  "Other",
		Owner: OwnerRequest{Username: "o", Email: "o@other.test", Password: "secret123"},
	})
	require.NoError(t, err)
	foreign := f.addProduct("Foreign", "1", 1)
	require.NoError(t, f.db.Model(&model.Product{}).Where("id = ?", foreign).
		Update("tenant_id", uuid.MustParse(other.ID)).Error)

	_, err = f.orders.CreateOrder(f.ctx, f.tenantID, cashier, CreateOrderRequest{
		Items:         []OrderItemRequest{item(foreign, 1)},
		PaymentMethod: model.PaymentMethodCash,
	})
	assert.True(t, ierr.IsNotFound(err))
}

func TestListOrdersFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	cashier := f.addUser(model.RoleCashier, false, nil)
	tea := f.addProduct("Tea", "10", 10)

	first := f.createOrder(cashier, model.PaymentMethodCash, item(tea, 1))
	f.createOrder(cashier, model.PaymentMethodCash, item(tea, 1))
	_, err := f.fulfillment.Reject(f.ctx, f.tenantID, first, f.ownerID, RejectOrderRequest{})
	require.NoError(t, err)

	pending, total, err := f.orders.ListOrders(f.ctx, f.tenantID, OrderFilter{Status: model.OrderStatusPending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, pending, 1)
	assert.Equal(t, "ORD-2024-000002", pending[0].OrderNumber)

	_, total, err = f.orders.ListOrders(f.ctx, f.tenantID, OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, err = f.orders.GetOrder(f.ctx, f.tenantID, "not-a-uuid")
	assert.True(t, ierr.IsInvalidArgument(err))
	_, err = f.orders.GetOrder(f.ctx, f.tenantID, uuid.NewString())
	assert.True(t, ierr.IsNotFound(err))
}
