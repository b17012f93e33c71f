package repository_test

import (
	"context"
	"errors"
	"testing"

	ierr "github.com/itqanpos/ITQN/internal/errors"
	"github.com/itqanpos/ITQN/internal/model"
	"github.com/itqanpos/ITQN/internal/repository"
	"github.com/itqanpos/ITQN/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTenant(t *testing.T, db *gorm.DB) *model.Tenant {
	t.Helper()
	tenant := &model.Tenant{
		Name:          "Shop",
		Currency:      "EGP",
		TaxRate:       decimal.Zero,
		InvoicePrefix: "INV",
		StockPolicy:   model.StockPolicyAllowNegative,
	}
	require.NoError(t, repository.NewTenantRepository(db).Create(context.Background(), tenant))
	return tenant
}

func TestProductUpdateStockIsVersioned(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tenant := newTenant(t, db)
	repo := repository.NewProductRepository(db)

	product := &model.Product{TenantID: tenant.ID, SKU: "A", Name: "A", Price: decimal.NewFromInt(5), Stock: 3}
	require.NoError(t, repo.Create(ctx, product))

	first, err := repo.FindByID(ctx, tenant.ID, product.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, tenant.ID, product.ID)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStock(ctx, first, 1))
	assert.Equal(t, int64(1), first.Version)

	err = repo.UpdateStock(ctx, second, 2)
	assert.True(t, ierr.IsConflict(err))
	assert.True(t, ierr.IsRetryable(err))

	stored, err := repo.FindByID(ctx, tenant.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Stock)
}

func TestDuplicateSKUIsConflict(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tenant := newTenant(t, db)
	other := newTenant(t, db)
	repo := repository.NewProductRepository(db)

	require.NoError(t, repo.Create(ctx, &model.Product{TenantID: tenant.ID, SKU: "A", Name: "A", Price: decimal.NewFromInt(1)}))
	err := repo.Create(ctx, &model.Product{TenantID: tenant.ID, SKU: "A", Name: "B", Price: decimal.NewFromInt(1)})
	assert.True(t, ierr.IsConflict(err))
	assert.False(t, ierr.IsRetryable(err))
	assert.Equal(t, "product with this sku already exists", ierr.DisplayMessage(err))

	// SKUs are unique per tenant only
	require.NoError(t, repo.Create(ctx, &model.Product{TenantID: other.ID, SKU: "A", Name: "A", Price: decimal.NewFromInt(1)}))
}

func TestLookupsAreTenantScoped(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tenant := newTenant(t, db)
	other := newTenant(t, db)
	repo := repository.NewProductRepository(db)

	product := &model.Product{TenantID: tenant.ID, SKU: "A", Name: "A", Price: decimal.NewFromInt(1)}
	require.NoError(t, repo.Create(ctx, product))

	_, err := repo.FindByID(ctx, other.ID, product.ID)
	assert.True(t, ierr.IsNotFound(err))
	assert.Equal(t, "product not found", ierr.DisplayMessage(err))

	found, err := repo.FindByIDs(ctx, other.ID, []uuid.UUID{product.ID})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestOrderTransitionRequiresExpectedStatus(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tenant := newTenant(t, db)
	repo := repository.NewOrderRepository(db)

	order := &model.Order{
		TenantID:      tenant.ID,
		OrderNumber:   "ORD-2024-000001",
		Status:        model.OrderStatusPending,
		Subtotal:      decimal.NewFromInt(10),
		Total:         decimal.NewFromInt(10),
		PaymentMethod: model.PaymentMethodCash,
		PaymentStatus: model.PaymentStatusPaid,
		Items: []model.OrderItem{
			{ProductID: uuid.New(), ProductName: "A", Quantity: 1, UnitPrice: decimal.NewFromInt(10), LineTotal: decimal.NewFromInt(10)},
		},
	}
	require.NoError(t, repo.Create(ctx, order))

	require.NoError(t, repo.Transition(ctx, order, model.OrderStatusPending, map[string]interface{}{
		"status": model.OrderStatusRejected,
	}))

	err := repo.Transition(ctx, order, model.OrderStatusPending, map[string]interface{}{
		"status": model.OrderStatusCompleted,
	})
	assert.True(t, ierr.IsInvalidState(err))
	assert.Equal(t, "Order ORD-2024-000001 is no longer pending", ierr.DisplayMessage(err))

	stored, err := repo.FindByIDForUpdate(ctx, tenant.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusRejected, stored.Status)
	assert.Len(t, stored.Items, 1)
}

func TestSequenceSaveIsVersioned(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tenant := newTenant(t, db)
	repo := repository.NewSequenceRepository(db)

	require.NoError(t, repo.Create(ctx, &model.SequenceCounter{
		TenantID: tenant.ID, Domain: model.SequenceDomainInvoice, Prefix: "INV", Year: 2024,
	}))

	a, err := repo.FindForUpdate(ctx, tenant.ID, model.SequenceDomainInvoice)
	require.NoError(t, err)
	b, err := repo.FindForUpdate(ctx, tenant.ID, model.SequenceDomainInvoice)
	require.NoError(t, err)

	a.Advance(2024)
	require.NoError(t, repo.Save(ctx, a))

	b.Advance(2024)
	assert.True(t, ierr.IsConflict(repo.Save(ctx, b)))

	stored, err := repo.FindForUpdate(ctx, tenant.ID, model.SequenceDomainInvoice)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-000001", stored.Formatted())
}

func TestRunInTxRollsBackAndJoins(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tenant := newTenant(t, db)
	tm := repository.NewTransactionManager(db)
	repo := repository.NewProductRepository(db)
	boom := errors.New("boom")

	err := tm.RunInTx(ctx, func(txCtx context.Context) error {
		assert.True(t, repository.InTx(txCtx))
		if err := repo.Create(txCtx, &model.Product{TenantID: tenant.ID, SKU: "A", Name: "A", Price: decimal.NewFromInt(1)}); err != nil {
			return err
		}
		// a nested call joins the outer transaction
		return tm.RunInTx(txCtx, func(inner context.Context) error {
			if err := repo.Create(inner, &model.Product{TenantID: tenant.ID, SKU: "B", Name: "B", Price: decimal.NewFromInt(1)}); err != nil {
				return err
			}
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, repository.InTx(ctx))

	_, total, err := repo.List(ctx, tenant.ID, 1, 10, "")
	require.NoError(t, err)
	assert.Zero(t, total)
}
