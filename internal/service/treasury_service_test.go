package service

import (
	"context"
	"testing"

	ierr "github.com/itqanpos/ITQN/internal/errors"
	"github.com/itqanpos/ITQN/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) apply(m Movement) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := f.runner.Run(f.ctx, "apply movement", func(txCtx context.Context) error {
		var err error
		balance, err = f.treasury.ApplyMovement(txCtx, f.tenantID, m)
		return err
	})
	return balance, err
}

func TestLedgerRollupStaysBalanced(t *testing.T) {
	f := newFixture(t)

	movements := []Movement{
		{Kind: model.MovementOpening, Amount: dec("100")},
		{Kind: model.MovementIncome, Amount: dec("50.5"), Reference: "INV-2024-000001"},
		{Kind: model.MovementExpense, Amount: dec("20.25"), Reference: "supplies"},
		{Kind: model.MovementIncome, Amount: dec("12.5"), Date: "2024-06-16"},
		{Kind: model.MovementExpense, Amount: dec("200"), Reference: "rent"},
	}
	var balance decimal.Decimal
	for _, m := range movements {
		var err error
		balance, err = f.apply(m)
		require.NoError(t, err)
	}

	// balance may go negative
	assert.True(t, balance.Equal(dec("-57.25")), balance.String())
	assert.True(t, f.balance().Equal(dec("-57.25")))

	today := f.daily(fixtureDate)
	assert.True(t, today.OpeningBalance.Equal(dec("100")))
	assert.True(t, today.Income.Equal(dec("50.5")))
	assert.True(t, today.Expense.Equal(dec("220.25")))
	assert.True(t, today.ClosingBalance.Equal(dec("-69.75")))

	var rows []model.DailyTreasury
	require.NoError(t, f.db.Where("tenant_id = ?", f.tenantID).Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, d := range rows {
		assert.True(t, d.Balanced(), "rollup %s is not balanced", d.Date)
	}

	moves, err := f.treasuryRepo.ListMovements(f.ctx, f.tenantID, fixtureDate)
	require.NoError(t, err)
	assert.Len(t, moves, 4)
	last := moves[len(moves)-1]
	assert.Equal(t, model.MovementExpense, last.Kind)
	assert.True(t, last.BalanceAfter.Equal(dec("-57.25")))
}

func TestApplyMovementValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		m    Movement
	}{
		{"zero amount", Movement{Kind: model.MovementIncome, Amount: decimal.Zero}},
		{"negative amount", Movement{Kind: model.MovementExpense, Amount: dec("-5")}},
		{"unknown kind", Movement{Kind: "refund", Amount: dec("5")}},
		{"bad date", Movement{Kind: model.MovementIncome, Amount: dec("5"), Date: "15/06/2024"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.apply(tt.m)
			assert.True(t, ierr.IsInvalidArgument(err), "got %v", err)
		})
	}

	assert.True(t, f.balance().IsZero())
	assert.Equal(t, int64(0), f.count(&model.TreasuryMovement{}))
}

func TestApplyMovementWithoutAccountIsNotFound(t *testing.T) {
	f := newFixture(t)

	err := f.runner.Run(f.ctx, "apply movement", func(txCtx context.Context) error {
		_, err := f.treasury.ApplyMovement(txCtx, uuid.New(), Movement{Kind: model.MovementIncome, Amount: dec("1")})
		return err
	})
	assert.True(t, ierr.IsNotFound(err))
}

func TestRecordExpenseAndSeedOpening(t *testing.T) {
	f := newFixture(t)

	got, err := f.treasury.SeedOpening(f.ctx, f.tenantID, f.ownerID, SeedOpeningRequest{Amount: dec("500")})
	require.NoError(t, err)
	assert.Equal(t, "500.00", got.Balance)
	assert.Equal(t, "EGP", got.Currency)

	got, err = f.treasury.RecordExpense(f.ctx, f.tenantID, f.ownerID, RecordExpenseRequest{Amount: dec("75.5"), Reference: "cleaning"})
	require.NoError(t, err)
	assert.Equal(t, "424.50", got.Balance)

	rows, err := f.treasury.ListDaily(f.ctx, f.tenantID, fixtureDate, fixtureDate)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "500.00", rows[0].OpeningBalance)
	assert.Equal(t, "75.50", rows[0].Expense)
	assert.Equal(t, "424.50", rows[0].ClosingBalance)

	logs, total, err := f.audit.GetAuditLogs(f.ctx, f.tenantID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total) // provisioning plus the two movements
	assert.Equal(t, "owner", logs[0].Username)

	_, err = f.treasury.ListDaily(f.ctx, f.tenantID, "yesterday", "")
	assert.True(t, ierr.IsInvalidArgument(err))

	_, err = f.treasury.RecordExpense(f.ctx, f.tenantID, uuid.Nil, RecordExpenseRequest{Amount: dec("1")})
	assert.True(t, ierr.IsUnauthenticated(err))
}
