package service

import (
	"context"
	"testing"

	ierr "github.com/itqanpos/ITQN/internal/errors"
	"github.com/itqanpos/ITQN/internal/model"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) compute(actorID uuid.UUID, total string, override *decimal.Decimal) (*model.Commission, error) {
	var c *model.Commission
	err := f.runner.Run(f.ctx, "compute commission", func(txCtx context.Context) error {
		var err error
		c, err = f.commissions.Compute(txCtx, f.tenantID, actorID, CommissionSource{
			SaleID:        uuid.New(),
			InvoiceNumber: "INV-2024-000001",
			Total:         dec(total),
		}, override)
		return err
	})
	return c, err
}

func TestCommissionRatePrecedence(t *testing.T) {
	f := newFixture(t)
	withRate := f.addUser(model.RoleSales, true, lo.ToPtr(dec("2")))
	plain := f.addUser(model.RoleSales, true, nil)

	c, err := f.compute(withRate, "200", lo.ToPtr(dec("10")))
	require.NoError(t, err)
	assert.True(t, c.Amount.Equal(dec("20")))

	c, err = f.compute(withRate, "200", nil)
	require.NoError(t, err)
	assert.True(t, c.Amount.Equal(dec("4")))

	// tenant rate, rounded to cents
	c, err = f.compute(plain, "33.33", nil)
	require.NoError(t, err)
	assert.True(t, c.Amount.Equal(dec("1.67")), c.Amount.String())
	assert.Equal(t, model.CommissionPending, c.Status)

	_, err = f.compute(plain, "0", nil)
	assert.True(t, ierr.IsInvalidArgument(err))
	_, err = f.compute(uuid.Nil, "10", nil)
	assert.True(t, ierr.IsInvalidArgument(err))
	_, err = f.compute(plain, "10", lo.ToPtr(dec("150")))
	assert.True(t, ierr.IsInvalidArgument(err))
	_, err = f.compute(uuid.New(), "10", nil)
	assert.True(t, ierr.IsNotFound(err))
}

func TestListCommissions(t *testing.T) {
	f := newFixture(t)
	a := f.addUser(model.RoleSales, true, nil)
	b := f.addUser(model.RoleSales, true, nil)
	for _, actor := range []uuid.UUID{a, a, b} {
		_, err := f.compute(actor, "100", nil)
		require.NoError(t, err)
	}

	all, total, err := f.commissions.List(f.ctx, f.tenantID, CommissionFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	mine, total, err := f.commissions.List(f.ctx, f.tenantID, CommissionFilter{ActorID: b.String(), Status: model.CommissionPending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, mine, 1)
	assert.Equal(t, "5.00", mine[0].Amount)

	paged, total, err := f.commissions.List(f.ctx, f.tenantID, CommissionFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, paged, 1)

	_, _, err = f.commissions.List(f.ctx, f.tenantID, CommissionFilter{Status: "void"})
	assert.True(t, ierr.IsInvalidArgument(err))
	_, _, err = f.commissions.List(f.ctx, f.tenantID, CommissionFilter{ActorID: "me"})
	assert.True(t, ierr.IsInvalidArgument(err))
}
