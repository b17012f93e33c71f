package service

import (
	"testing"
	"time"

	"github.com/itqanpos/ITQN/internal/auth"
	ierr "github.com/itqanpos/ITQN/internal/errors"
	"github.com/itqanpos/ITQN/internal/model"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionAppliesDefaults(t *testing.T) {
	f := newFixture(t)

	got, err := f.tenants.Provision(f.ctx, ProvisionTenantRequest{
		Name:  "Second Shop",
		Owner: OwnerRequest{Username: "boss", Email: "Boss@Second.test", Password: "secret123"},
	})
	require.NoError(t, err)

	assert.Equal(t, "EGP", got.Currency)
	assert.Equal(t, "14", got.TaxRate)
	assert.Equal(t, "INV", got.InvoicePrefix)
	assert.Equal(t, "5", got.CommissionRate)
	assert.Equal(t, model.StockPolicyAllowNegative, got.StockPolicy)
	assert.Equal(t, 10, got.LowStockThreshold)
	assert.Equal(t, model.RoleOwner, got.Owner.Role)
	assert.Equal(t, "boss@second.test", got.Owner.Email)

	tenantID := uuid.MustParse(got.ID)
	var counters []model.SequenceCounter
	require.NoError(t, f.db.Where("tenant_id = ?", tenantID).Order("domain").Find(&counters).Error)
	require.Len(t, counters, 2)
	assert.Equal(t, model.SequenceDomainInvoice, counters[0].Domain)
	assert.Equal(t, "INV", counters[0].Prefix)
	assert.Equal(t, model.SequenceDomainOrder, counters[1].Domain)
	assert.Equal(t, "ORD", counters[1].Prefix)
	for _, c := range counters {
		assert.Equal(t, 2024, c.Year)
		assert.Equal(t, int64(0), c.LastNumber)
	}

	account, err := f.treasuryRepo.FindAccount(f.ctx, tenantID, model.MainTreasuryAccount)
	require.NoError(t, err)
	assert.True(t, account.Balance.IsZero())

	var daily model.DailyTreasury
	require.NoError(t, f.db.Where("tenant_id = ? AND date = ?", tenantID, fixtureDate).First(&daily).Error)
	assert.True(t, daily.Balanced())
}

func TestProvisionRejectsTakenEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.tenants.Provision(f.ctx, ProvisionTenantRequest{
		Name:  "Copycat",
		Owner: OwnerRequest{Username: "owner", Email: "OWNER@corner.test", Password: "secret123"},
	})
	require.Error(t, err)
	assert.True(t, ierr.IsConflict(err))
	assert.False(t, ierr.IsRetryable(err))
	assert.Equal(t, "email already exists", ierr.DisplayMessage(err))

	var tenants int64
	require.NoError(t, f.db.Model(&model.Tenant{}).Count(&tenants).Error)
	assert.Equal(t, int64(1), tenants)
}

func TestProvisionValidation(t *testing.T) {
	f := newFixture(t)
	owner := OwnerRequest{Username: "x", Email: "x@shop.test", Password: "secret123"}

	tests := []struct {
		name string
		req  ProvisionTenantRequest
	}{
		{"blank name", ProvisionTenantRequest{Name: "  ", Owner: owner}},
		{"tax above 100", ProvisionTenantRequest{Name: "S", TaxRate: lo.ToPtr(decimal.NewFromInt(101)), Owner: owner}},
		{"negative commission", ProvisionTenantRequest{Name: "S", CommissionRate: lo.ToPtr(decimal.NewFromInt(-1)), Owner: owner}},
		{"unknown stock policy", ProvisionTenantRequest{Name: "S", StockPolicy: "backorder", Owner: owner}},
		{"negative threshold", ProvisionTenantRequest{Name: "S", LowStockThreshold: lo.ToPtr(-1), Owner: owner}},
		{"missing password", ProvisionTenantRequest{Name: "S", Owner: OwnerRequest{Email: "y@shop.test"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tenants.Provision(f.ctx, tt.req)
			assert.True(t, ierr.IsInvalidArgument(err), "got %v", err)
		})
	}
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)

	got, err := f.users.CreateUser(f.ctx, f.tenantID, f.ownerID, CreateUserRequest{
		Username:           "amira",
		Email:              "Amira@corner.test",
		Password:           "secret123",
		Role:               model.RoleSales,
		CommissionEligible: true,
		CommissionRate:     lo.ToPtr(dec("3")),
	})
	require.NoError(t, err)
	assert.Equal(t, "amira@corner.test", got.Email)
	assert.Equal(t, f.tenantID.String(), got.TenantID)
	require.NotNil(t, got.CommissionRate)
	assert.Equal(t, "3", *got.CommissionRate)

	seller := uuid.MustParse(got.ID)
	_, err = f.users.CreateUser(f.ctx, f.tenantID, seller, CreateUserRequest{
		Username: "intruder", Email: "i@corner.test", Password: "secret123", Role: model.RoleAdmin,
	})
	assert.True(t, ierr.IsPermissionDenied(err))

	_, err = f.users.CreateUser(f.ctx, f.tenantID, f.ownerID, CreateUserRequest{
		Username: "dup", Email: "amira@corner.test", Password: "secret123", Role: model.RoleCashier,
	})
	assert.True(t, ierr.IsConflict(err))

	_, err = f.users.CreateUser(f.ctx, f.tenantID, f.ownerID, CreateUserRequest{
		Username: "x", Email: "x@corner.test", Password: "secret123", Role: "janitor",
	})
	assert.True(t, ierr.IsInvalidArgument(err))

	_, err = f.users.CreateUser(f.ctx, f.tenantID, uuid.New(), CreateUserRequest{
		Username: "x", Email: "x@corner.test", Password: "secret123", Role: model.RoleCashier,
	})
	assert.True(t, ierr.IsUnauthenticated(err))

	users, total, err := f.users.ListUsers(f.ctx, f.tenantID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, users, 2)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	// tokens are verified against the wall clock
	now := time.Now().UTC().Truncate(time.Second)
	f.clock.Set(now)

	got, err := f.users.Login(f.ctx, LoginUserRequest{Email: "OWNER@corner.test", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour).Format(time.RFC3339), got.ExpiresAt)

	identity, err := auth.ParseToken([]byte("test-secret"), got.Token)
	require.NoError(t, err)
	assert.Equal(t, f.ownerID, identity.UserID)
	assert.Equal(t, f.tenantID, identity.TenantID)
	assert.Equal(t, model.RoleOwner, identity.Role)

	for _, req := range []LoginUserRequest{
		{Email: "owner@corner.test", Password: "wrong"},
		{Email: "nobody@corner.test", Password: "secret123"},
	} {
		_, err := f.users.Login(f.ctx, req)
		assert.True(t, ierr.IsUnauthenticated(err))
		assert.Equal(t, "invalid email or password", ierr.DisplayMessage(err))
	}
}
