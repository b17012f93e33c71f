package service

import (
	"context"

	ierr "github.com/itqanpos/ITQN/internal/errors"
	"github.com/itqanpos/ITQN/internal/model"
	"github.com/itqanpos/ITQN/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CommissionSource identifies the sale a commission is owed for.
type CommissionSource struct {
	SaleID        uuid.UUID
	InvoiceNumber string
	Total         decimal.Decimal
}

type CommissionFilter struct {
	ActorID string
	Status  string
	Page    int
	Limit   int
}

type CommissionResponse struct {
	ID            string `json:"id"`
	ActorID       string `json:"actor_id"`
	SaleID        string `json:"sale_id"`
	InvoiceNumber string `json:"invoice_number"`
	SaleTotal     string `json:"sale_total"`
	Rate          string `json:"rate"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

type CommissionService interface {
	// Compute creates a pending commission for actorID inside the caller's
	// transaction. The rate is rateOverride, else the actor's own rate, else
	// the tenant default.
	Compute(ctx context.Context, tenantID, actorID uuid.UUID, source CommissionSource, rateOverride *decimal.Decimal) (*model.Commission, error)
	List(ctx context.Context, tenantID uuid.UUID, filter CommissionFilter) ([]CommissionResponse, int64, error)
}

type commissionService struct {
	commissionRepo repository.CommissionRepository
	userRepo       repository.UserRepository
	tenantRepo     repository.TenantRepository
}

func NewCommissionService(
	commissionRepo repository.CommissionRepository,
	userRepo repository.UserRepository,
	tenantRepo repository.TenantRepository,
) CommissionService {
	return &commissionService{
		commissionRepo: commissionRepo,
		userRepo:       userRepo,
		tenantRepo:     tenantRepo,
	}
}

func (s *commissionService) Compute(ctx context.Context, tenantID, actorID uuid.UUID, source CommissionSource, rateOverride *decimal.Decimal) (*model.Commission, error) {
	if actorID == uuid.Nil {
		return nil, errInvalidArgument("commission requires an actor")
	}
	if !source.Total.IsPositive() {
		return nil, errInvalidArgument("commission requires a positive sale total")
	}

	actor, err := s.userRepo.FindByID(ctx, tenantID, actorID)
	if err != nil {
		return nil, err
	}

	rate, err := s.resolveRate(ctx, tenantID, actor, rateOverride)
	if err != nil {
		return nil, err
	}

	commission := model.Commission{
		TenantID:      tenantID,
		ActorID:       actor.ID,
		SaleID:        source.SaleID,
		InvoiceNumber: source.InvoiceNumber,
		SaleTotal:     source.Total,
		Rate:          rate,
		Amount:        source.Total.Mul(rate).Div(hundred).Round(2),
		Status:        model.CommissionPending,
	}
	if err := s.commissionRepo.Create(ctx, &commission); err != nil {
		return nil, err
	}
	return &commission, nil
}

func (s *commissionService) resolveRate(ctx context.Context, tenantID uuid.UUID, actor *model.User, rateOverride *decimal.Decimal) (decimal.Decimal, error) {
	var rate decimal.Decimal
	switch {
	case rateOverride != nil:
		rate = *rateOverride
	case actor.CommissionRate != nil:
		rate = *actor.CommissionRate
	default:
		tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
		if err != nil {
			return decimal.Zero, err
		}
		rate = tenant.CommissionRate
	}

	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return decimal.Zero, ierr.Newf("commission rate %s out of range", rate).
			WithHint("commission rate must be between 0 and 100").
			Mark(ierr.ErrInvalidArgument)
	}
	return rate, nil
}

func (s *commissionService) List(ctx context.Context, tenantID uuid.UUID, filter CommissionFilter) ([]CommissionResponse, int64, error) {
	repoFilter := repository.CommissionFilter{
		Status: filter.Status,
		Page:   lo.Ternary(filter.Page > 0, filter.Page, 1),
		Limit:  lo.Ternary(filter.Limit > 0, filter.Limit, 20),
	}
	if filter.Status != "" && filter.Status != model.CommissionPending && filter.Status != model.CommissionPaid {
		return nil, 0, errInvalidArgument("status must be pending or paid")
	}
	if filter.ActorID != "" {
		actorID, err := uuid.Parse(filter.ActorID)
		if err != nil {
			return nil, 0, errInvalidArgument("invalid actor_id")
		}
		repoFilter.ActorID = &actorID
	}

	commissions, total, err := s.commissionRepo.List(ctx, tenantID, repoFilter)
	if err != nil {
		return nil, 0, err
	}
	return lo.Map(commissions, func(c model.Commission, _ int) CommissionResponse {
		return toCommissionResponse(c)
	}), total, nil
}

func toCommissionResponse(c model.Commission) CommissionResponse {
	return CommissionResponse{
		ID:            c.ID.String(),
		ActorID:       c.ActorID.String(),
		SaleID:        c.SaleID.String(),
		InvoiceNumber: c.InvoiceNumber,
		SaleTotal:     c.SaleTotal.StringFixed(2),
		Rate:          c.Rate.String(),
		Amount:        c.Amount.StringFixed(2),
		Status:        c.Status,
		CreatedAt:     c.CreatedAt.Format(timeLayout),
	}
}
