package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	ierr "github.com/itqanpos/ITQN/internal/errors"
	"github.com/itqanpos/ITQN/internal/logger"
	"github.com/itqanpos/ITQN/internal/model"
	"github.com/itqanpos/ITQN/internal/repository"
	"github.com/itqanpos/ITQN/internal/testutil"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) setCounter(domain string, year int, last int64) {
	f.t.Helper()
	require.NoError(f.t, f.db.Model(&model.SequenceCounter{}).
		Where("tenant_id = ? AND domain = ?", f.tenantID, domain).
		Updates(map[string]interface{}{"year": year, "last_number": last}).Error)
}

func TestGenerateInvoiceNumberContinuesAndRollsOver(t *testing.T) {
	f := newFixture(t)
	f.setCounter(model.SequenceDomainInvoice, 2024, 3)

	got, err := f.invoices.GenerateInvoiceNumber(f.ctx, f.tenantID, f.ownerID)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-000004", got.InvoiceNumber)
	c := f.counter(model.SequenceDomainInvoice)
	assert.Equal(t, 2024, c.Year)
	assert.Equal(t, int64(4), c.LastNumber)

	f.clock.Set(time.Date(2025, time.January, 1, 0, 5, 0, 0, time.UTC))
	got, err = f.invoices.GenerateInvoiceNumber(f.ctx, f.tenantID, f.ownerID)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-000001", got.InvoiceNumber)
	c = f.counter(model.SequenceDomainInvoice)
	assert.Equal(t, 2025, c.Year)
	assert.Equal(t, int64(1), c.LastNumber)
}

func TestAllocateRestartsAfterLargeNumberInOldYear(t *testing.T) {
	f := newFixture(t)
	f.setCounter(model.SequenceDomainInvoice, 2023, 9999)

	var number string
	err := f.runner.Run(f.ctx, "allocate", func(txCtx context.Context) error {
		var err error
		number, err = f.sequence.Allocate(txCtx, f.tenantID, model.SequenceDomainInvoice)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-000001", number)
}

func TestAllocateTwiceInOneTransaction(t *testing.T) {
	f := newFixture(t)

	var first, second string
	err := f.runner.Run(f.ctx, "allocate twice", func(txCtx context.Context) error {
		var err error
		if first, err = f.sequence.Allocate(txCtx, f.tenantID, model.SequenceDomainInvoice); err != nil {
			return err
		}
		second, err = f.sequence.Allocate(txCtx, f.tenantID, model.SequenceDomainInvoice)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-000001", first)
	assert.Equal(t, "INV-2024-000002", second)
}

func TestAllocateDomainsAreIndependent(t *testing.T) {
	f := newFixture(t)

	inv, err := f.sequence.Allocate(f.ctx, f.tenantID, model.SequenceDomainInvoice)
	require.NoError(t, err)
	ord, err := f.sequence.Allocate(f.ctx, f.tenantID, model.SequenceDomainOrder)
	require.NoError(t, err)

	assert.Equal(t, "INV-2024-000001", inv)
	assert.Equal(t, "ORD-2024-000001", ord)
}

func TestAllocateErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.sequence.Allocate(f.ctx, uuid.New(), model.SequenceDomainInvoice)
	assert.True(t, ierr.IsNotFound(err))

	_, err = f.sequence.Allocate(f.ctx, uuid.Nil, model.SequenceDomainInvoice)
	assert.True(t, ierr.IsInvalidArgument(err))

	_, err = f.sequence.Allocate(f.ctx, f.tenantID, "")
	assert.True(t, ierr.IsInvalidArgument(err))

	_, err = f.invoices.GenerateInvoiceNumber(f.ctx, f.tenantID, uuid.Nil)
	assert.True(t, ierr.IsUnauthenticated(err))
}

func TestConcurrentInvoiceNumbersAreGapFree(t *testing.T) {
	f := newFixture(t)
	const n = 25

	var mu sync.Mutex
	var numbers []string
	var errs []error

	var wg conc.WaitGroup
	for i := 0; i < n; i++ {
		wg.Go(func() {
			got, err := f.invoices.GenerateInvoiceNumber(f.ctx, f.tenantID, f.ownerID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, got.InvoiceNumber)
		})
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Strings(numbers)
	want := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		want = append(want, model.FormatSequence("INV", 2024, int64(i)))
	}
	assert.Equal(t, want, numbers)
	assert.Equal(t, int64(n), f.counter(model.SequenceDomainInvoice).LastNumber)
}

func TestConcurrentInvoiceNumbersAcrossConnections(t *testing.T) {
	f := newFixtureOn(t, testutil.NewFileDB(t, 8))
	runner := NewTxRunner(repository.NewTransactionManager(f.db), RetryPolicy{
		MaxAttempts:     40,
		InitialInterval: 2 * time.Millisecond,
		MaxInterval:     50 * time.Millisecond,
	}, logger.NewNop())
	invoices := NewInvoiceService(f.saleRepo, f.sequence, runner)
	const n = 20

	var mu sync.Mutex
	var numbers []string
	var errs []error

	var wg conc.WaitGroup
	for i := 0; i < n; i++ {
		wg.Go(func() {
			got, err := invoices.GenerateInvoiceNumber(f.ctx, f.tenantID, f.ownerID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, got.InvoiceNumber)
		})
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Strings(numbers)
	want := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		want = append(want, model.FormatSequence("INV", 2024, int64(i)))
	}
	assert.Equal(t, want, numbers)
	assert.Equal(t, int64(n), f.counter(model.SequenceDomainInvoice).LastNumber)
}
