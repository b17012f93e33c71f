package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/itqanpos/ITQN/internal/config"
	ierr "github.com/itqanpos/ITQN/internal/errors"
	"github.com/itqanpos/ITQN/internal/logger"
	"github.com/itqanpos/ITQN/internal/repository"
)

// RetryPolicy bounds how often a unit of work is retried after losing a
// concurrent write race.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func RetryPolicyFromConfig(cfg config.FulfillmentConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialBackoff,
		MaxInterval:     cfg.MaxBackoff,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.RandomizationFactor = 0.5
	b.Multiplier = 2
	b.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// TxRunner executes a unit of work in one transaction and transparently
// re-runs the whole unit when it fails with a Conflict.
type TxRunner struct {
	txManager repository.TransactionManager
	policy    RetryPolicy
	log       *logger.Logger
}

func NewTxRunner(txManager repository.TransactionManager, policy RetryPolicy, log *logger.Logger) *TxRunner {
	return &TxRunner{txManager: txManager, policy: policy, log: log}
}

// Run calls fn inside a fresh transaction per attempt. Errors other than
// Conflict are returned unchanged after the first attempt. When ctx already
// carries a transaction fn joins it and is not retried here; the owner of
// the outer transaction is responsible for retries.
func (r *TxRunner) Run(ctx context.Context, op string, fn func(txCtx context.Context) error) error {
	if repository.InTx(ctx) {
		return fn(ctx)
	}

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := r.txManager.RunInTx(ctx, fn)
		if err == nil {
			return nil
		}
		if ierr.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, r.policy.backOff(ctx), func(err error, wait time.Duration) {
		r.log.Warnw("transaction conflict, retrying",
			"op", op,
			"attempt", attempt,
			"wait", wait.String(),
			"error", err,
		)
	})

	if err != nil && ierr.IsRetryable(err) {
		r.log.Errorw("transaction conflict retries exhausted", "op", op, "attempts", attempt)
		return ierr.WithError(err).
			WithHintf("%s could not complete because of concurrent updates, please retry", op).
			Mark(ierr.ErrConflict)
	}
	return err
}
