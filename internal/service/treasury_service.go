package service

import (
	"context"
	"time"

	"github.com/itqanpos/ITQN/internal/clock"
	ierr "github.com/itqanpos/ITQN/internal/errors"
	"github.com/itqanpos/ITQN/internal/logger"
	"github.com/itqanpos/ITQN/internal/model"
	"github.com/itqanpos/ITQN/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

// Movement describes one ledger change.
type Movement struct {
	Kind      string
	Amount    decimal.Decimal
	Date      string // YYYY-MM-DD; empty means today
	Reference string
	ActorID   *uuid.UUID
}

type RecordExpenseRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Date      string          `json:"date"`
	Reference string          `json:"reference" binding:"max=100"`
}

type SeedOpeningRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Date   string          `json:"date"`
}

type TreasuryBalanceResponse struct {
	AccountCode string `json:"account_code"`
	Balance     string `json:"balance"`
	Currency    string `json:"currency"`
}

type DailyTreasuryResponse struct {
	Date           string `json:"date"`
	OpeningBalance string `json:"opening_balance"`
	Income         string `json:"income"`
	Expense        string `json:"expense"`
	ClosingBalance string `json:"closing_balance"`
	SalesCount     int    `json:"sales_count"`
	SalesTotal     string `json:"sales_total"`
	IsClosed       bool   `json:"is_closed"`
}

// --- Interface ---

// TreasuryService is the ledger store: the running cash balance plus the
// per-day rollup.
type TreasuryService interface {
	// ApplyMovement must run inside the caller's transaction. Income and
	// expense are additive; opening replaces the balance.
	ApplyMovement(ctx context.Context, tenantID uuid.UUID, m Movement) (decimal.Decimal, error)
	// RecordSale counts a completed sale of any payment method in the day's rollup.
	RecordSale(ctx context.Context, tenantID uuid.UUID, date string, total decimal.Decimal) error
	Today() string

	RecordExpense(ctx context.Context, tenantID, actorID uuid.UUID, req RecordExpenseRequest) (TreasuryBalanceResponse, error)
	SeedOpening(ctx context.Context, tenantID, actorID uuid.UUID, req SeedOpeningRequest) (TreasuryBalanceResponse, error)
	GetBalance(ctx context.Context, tenantID uuid.UUID) (TreasuryBalanceResponse, error)
	ListDaily(ctx context.Context, tenantID uuid.UUID, from, to string) ([]DailyTreasuryResponse, error)
}

type treasuryService struct {
	treasuryRepo repository.TreasuryRepository
	tenantRepo   repository.TenantRepository
	auditRepo    repository.AuditRepository
	runner       *TxRunner
	clock        clock.Clock
	log          *logger.Logger
}

func NewTreasuryService(
	treasuryRepo repository.TreasuryRepository,
	tenantRepo repository.TenantRepository,
	auditRepo repository.AuditRepository,
	runner *TxRunner,
	clk clock.Clock,
	log *logger.Logger,
) TreasuryService {
	return &treasuryService{
		treasuryRepo: treasuryRepo,
		tenantRepo:   tenantRepo,
		auditRepo:    auditRepo,
		runner:       runner,
		clock:        clk,
		log:          log,
	}
}

// --- Implementation ---

func (s *treasuryService) Today() string {
	return clock.DateKey(s.clock.Now())
}

func (s *treasuryService) ApplyMovement(ctx context.Context, tenantID uuid.UUID, m Movement) (decimal.Decimal, error) {
	if tenantID == uuid.Nil {
		return decimal.Zero, ierr.NewError("missing tenant").
			WithHint("tenant is required").
			Mark(ierr.ErrInvalidArgument)
	}
	if !lo.Contains([]string{model.MovementIncome, model.MovementExpense, model.MovementOpening}, m.Kind) {
		return decimal.Zero, ierr.Newf("unknown movement kind %q", m.Kind).
			WithHint("movement kind must be income, expense or opening").
			Mark(ierr.ErrInvalidArgument)
	}
	if !m.Amount.IsPositive() {
		return decimal.Zero, ierr.Newf("non-positive amount %s", m.Amount).
			WithHint("amount must be greater than zero").
			Mark(ierr.ErrInvalidArgument)
	}
	date, err := s.normalizeDate(m.Date)
	if err != nil {
		return decimal.Zero, err
	}

	account, err := s.treasuryRepo.FindAccountForUpdate(ctx, tenantID, model.MainTreasuryAccount)
	if err != nil {
		return decimal.Zero, err
	}

	before := account.Balance
	switch m.Kind {
	case model.MovementIncome:
		account.Balance = account.Balance.Add(m.Amount)
	case model.MovementExpense:
		account.Balance = account.Balance.Sub(m.Amount)
	case model.MovementOpening:
		account.Balance = m.Amount
	}
	if err := s.treasuryRepo.SaveBalance(ctx, account); err != nil {
		return decimal.Zero, err
	}

	daily, err := s.dailyFor(ctx, tenantID, date)
	if err != nil {
		return decimal.Zero, err
	}
	switch m.Kind {
	case model.MovementIncome:
		daily.Income = daily.Income.Add(m.Amount)
	case model.MovementExpense:
		daily.Expense = daily.Expense.Add(m.Amount)
	case model.MovementOpening:
		daily.OpeningBalance = m.Amount
	}
	daily.Recompute()
	if err := s.treasuryRepo.SaveDaily(ctx, daily); err != nil {
		return decimal.Zero, err
	}

	movement := model.TreasuryMovement{
		TenantID:      tenantID,
		AccountID:     account.ID,
		Kind:          m.Kind,
		Amount:        m.Amount,
		BalanceBefore: before,
		BalanceAfter:  account.Balance,
		Date:          date,
		Reference:     m.Reference,
		CreatedBy:     m.ActorID,
	}
	if err := s.treasuryRepo.CreateMovement(ctx, &movement); err != nil {
		return decimal.Zero, err
	}

	if account.Balance.IsNegative() {
		s.log.Infow("treasury balance is negative",
			"tenant_id", tenantID,
			"balance", account.Balance.String(),
			"reference", m.Reference,
		)
	}
	return account.Balance, nil
}

func (s *treasuryService) RecordSale(ctx context.Context, tenantID uuid.UUID, date string, total decimal.Decimal) error {
	date, err := s.normalizeDate(date)
	if err != nil {
		return err
	}
	daily, err := s.dailyFor(ctx, tenantID, date)
	if err != nil {
		return err
	}
	daily.SalesCount++
	daily.SalesTotal = daily.SalesTotal.Add(total)
	return s.treasuryRepo.SaveDaily(ctx, daily)
}

// dailyFor returns the rollup row for date, creating it with zero figures
// on the first movement of the day. Two transactions creating the same row
// collide on the unique index and one of them retries.
func (s *treasuryService) dailyFor(ctx context.Context, tenantID uuid.UUID, date string) (*model.DailyTreasury, error) {
	daily, err := s.treasuryRepo.FindDailyForUpdate(ctx, tenantID, date)
	if err == nil {
		return daily, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	daily = &model.DailyTreasury{
		TenantID:       tenantID,
		Date:           date,
		OpeningBalance: decimal.Zero,
		Income:         decimal.Zero,
		Expense:        decimal.Zero,
		ClosingBalance: decimal.Zero,
		SalesTotal:     decimal.Zero,
	}
	if err := s.treasuryRepo.CreateDaily(ctx, daily); err != nil {
		return nil, err
	}
	return daily, nil
}

func (s *treasuryService) normalizeDate(date string) (string, error) {
	if date == "" {
		return s.Today(), nil
	}
	if _, err := time.Parse(clock.DateLayout, date); err != nil {
		return "", ierr.WithError(err).
			WithHintf("date %q must be formatted as YYYY-MM-DD", date).
			Mark(ierr.ErrInvalidArgument)
	}
	return date, nil
}

func (s *treasuryService) RecordExpense(ctx context.Context, tenantID, actorID uuid.UUID, req RecordExpenseRequest) (TreasuryBalanceResponse, error) {
	return s.applyWithAudit(ctx, tenantID, actorID, model.ActionRecordExpense, Movement{
		Kind:      model.MovementExpense,
		Amount:    req.Amount,
		Date:      req.Date,
		Reference: req.Reference,
		ActorID:   &actorID,
	})
}

func (s *treasuryService) SeedOpening(ctx context.Context, tenantID, actorID uuid.UUID, req SeedOpeningRequest) (TreasuryBalanceResponse, error) {
	return s.applyWithAudit(ctx, tenantID, actorID, model.ActionSeedOpening, Movement{
		Kind:      model.MovementOpening,
		Amount:    req.Amount,
		Date:      req.Date,
		Reference: "opening balance",
		ActorID:   &actorID,
	})
}

func (s *treasuryService) applyWithAudit(ctx context.Context, tenantID, actorID uuid.UUID, action string, m Movement) (TreasuryBalanceResponse, error) {
	if actorID == uuid.Nil {
		return TreasuryBalanceResponse{}, errUnauthenticated()
	}

	var balance decimal.Decimal
	err := s.runner.Run(ctx, action, func(txCtx context.Context) error {
		var err error
		balance, err = s.ApplyMovement(txCtx, tenantID, m)
		if err != nil {
			return err
		}
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			TenantID:   tenantID,
			UserID:     &actorID,
			Action:     action,
			EntityID:   model.MainTreasuryAccount,
			EntityName: m.Reference,
			Details: map[string]interface{}{
				"kind":    m.Kind,
				"amount":  m.Amount.StringFixed(2),
				"date":    m.Date,
				"balance": balance.StringFixed(2),
			},
		})
	})
	if err != nil {
		return TreasuryBalanceResponse{}, err
	}

	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return TreasuryBalanceResponse{}, err
	}
	return TreasuryBalanceResponse{
		AccountCode: model.MainTreasuryAccount,
		Balance:     balance.StringFixed(2),
		Currency:    tenant.Currency,
	}, nil
}

func (s *treasuryService) GetBalance(ctx context.Context, tenantID uuid.UUID) (TreasuryBalanceResponse, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return TreasuryBalanceResponse{}, err
	}
	account, err := s.treasuryRepo.FindAccount(ctx, tenantID, model.MainTreasuryAccount)
	if err != nil {
		return TreasuryBalanceResponse{}, err
	}
	return TreasuryBalanceResponse{
		AccountCode: account.AccountCode,
		Balance:     account.Balance.StringFixed(2),
		Currency:    tenant.Currency,
	}, nil
}

func (s *treasuryService) ListDaily(ctx context.Context, tenantID uuid.UUID, from, to string) ([]DailyTreasuryResponse, error) {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(clock.DateLayout, d); err != nil {
			return nil, ierr.WithError(err).
				WithHintf("date %q must be formatted as YYYY-MM-DD", d).
				Mark(ierr.ErrInvalidArgument)
		}
	}

	rows, err := s.treasuryRepo.ListDaily(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(d model.DailyTreasury, _ int) DailyTreasuryResponse {
		return DailyTreasuryResponse{
			Date:           d.Date,
			OpeningBalance: d.OpeningBalance.StringFixed(2),
			Income:         d.Income.StringFixed(2),
			Expense:        d.Expense.StringFixed(2),
			ClosingBalance: d.ClosingBalance.StringFixed(2),
			SalesCount:     d.SalesCount,
			SalesTotal:     d.SalesTotal.StringFixed(2),
			IsClosed:       d.IsClosed,
		}
	}), nil
}
