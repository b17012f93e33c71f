package service

import (
	"context"
	"strings"

	"github.com/itqanpos/ITQN/internal/clock"
	"github.com/itqanpos/ITQN/internal/config"
	ierr "github.com/itqanpos/ITQN/internal/errors"
	"github.com/itqanpos/ITQN/internal/logger"
	"github.com/itqanpos/ITQN/internal/model"
	"github.com/itqanpos/ITQN/internal/repository"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// orderNumberPrefix prefixes order numbers; invoices use the tenant prefix.
const orderNumberPrefix = "ORD"

// --- DTOs ---

type OwnerRequest struct {
	Username string `json:"username" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// ProvisionTenantRequest leaves optional settings empty to take the
// configured defaults.
type ProvisionTenantRequest struct {
	Name              string           `json:"name" binding:"required,max=255"`
	Currency          string           `json:"currency" binding:"omitempty,len=3"`
	TaxRate           *decimal.Decimal `json:"tax_rate"`
	InvoicePrefix     string           `json:"invoice_prefix" binding:"omitempty,alphanum,max=10"`
	CommissionRate    *decimal.Decimal `json:"commission_rate"`
	StockPolicy       string           `json:"stock_policy" binding:"omitempty,oneof=allow_negative reject_negative"`
	LowStockThreshold *int             `json:"low_stock_threshold" binding:"omitempty,min=0"`
	Owner             OwnerRequest     `json:"owner" binding:"required"`
}

type TenantResponse struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Currency          string       `json:"currency"`
	TaxRate           string       `json:"tax_rate"`
	InvoicePrefix     string       `json:"invoice_prefix"`
	CommissionRate    string       `json:"commission_rate"`
	StockPolicy       string       `json:"stock_policy"`
	LowStockThreshold int          `json:"low_stock_threshold"`
	Owner             UserResponse `json:"owner"`
}

// --- Interface ---

// TenantService onboards tenants with everything fulfillment requires:
// sequence counters, the main treasury account and today's rollup.
type TenantService interface {
	Provision(ctx context.Context, req ProvisionTenantRequest) (TenantResponse, error)
}

type tenantService struct {
	tenantRepo   repository.TenantRepository
	userRepo     repository.UserRepository
	sequenceRepo repository.SequenceRepository
	treasuryRepo repository.TreasuryRepository
	auditRepo    repository.AuditRepository
	runner       *TxRunner
	defaults     config.FulfillmentConfig
	clock        clock.Clock
	log          *logger.Logger
}

func NewTenantService(
	tenantRepo repository.TenantRepository,
	userRepo repository.UserRepository,
	sequenceRepo repository.SequenceRepository,
	treasuryRepo repository.TreasuryRepository,
	auditRepo repository.AuditRepository,
	runner *TxRunner,
	defaults config.FulfillmentConfig,
	clk clock.Clock,
	log *logger.Logger,
) TenantService {
	return &tenantService{
		tenantRepo:   tenantRepo,
		userRepo:     userRepo,
		sequenceRepo: sequenceRepo,
		treasuryRepo: treasuryRepo,
		auditRepo:    auditRepo,
		runner:       runner,
		defaults:     defaults,
		clock:        clk,
		log:          log,
	}
}

// --- Implementation ---

func (s *tenantService) Provision(ctx context.Context, req ProvisionTenantRequest) (TenantResponse, error) {
	tenant, err := s.tenantFromRequest(req)
	if err != nil {
		return TenantResponse{}, err
	}
	if req.Owner.Email == "" || req.Owner.Password == "" {
		return TenantResponse{}, errInvalidArgument("owner email and password are required")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Owner.Password), bcrypt.DefaultCost)
	if err != nil {
		return TenantResponse{}, ierr.WithError(err).WithMessage("hash password").Mark(ierr.ErrInternal)
	}

	var owner model.User
	err = s.runner.Run(ctx, "provision tenant", func(txCtx context.Context) error {
		// fresh copies per attempt; a failed attempt may have assigned ids
		t := tenant
		owner = model.User{
			Username: req.Owner.Username,
			Email:    strings.ToLower(req.Owner.Email),
			Password: string(hashedPassword),
			Role:     model.RoleOwner,
		}

		if err := ensureEmailAvailable(txCtx, s.userRepo, owner.Email); err != nil {
			return err
		}
		if err := s.tenantRepo.Create(txCtx, &t); err != nil {
			return err
		}
		owner.TenantID = t.ID
		if err := s.userRepo.Create(txCtx, &owner); err != nil {
			return err
		}

		now := s.clock.Now()
		for _, counter := range []model.SequenceCounter{
			{TenantID: t.ID, Domain: model.SequenceDomainInvoice, Prefix: t.InvoicePrefix, Year: now.Year()},
			{TenantID: t.ID, Domain: model.SequenceDomainOrder, Prefix: orderNumberPrefix, Year: now.Year()},
		} {
			if err := s.sequenceRepo.Create(txCtx, &counter); err != nil {
				return err
			}
		}

		if err := s.treasuryRepo.CreateAccount(txCtx, &model.TreasuryAccount{
			TenantID:    t.ID,
			AccountCode: model.MainTreasuryAccount,
			Balance:     decimal.Zero,
		}); err != nil {
			return err
		}
		if err := s.treasuryRepo.CreateDaily(txCtx, &model.DailyTreasury{
			TenantID:       t.ID,
			Date:           clock.DateKey(now),
			OpeningBalance: decimal.Zero,
			Income:         decimal.Zero,
			Expense:        decimal.Zero,
			ClosingBalance: decimal.Zero,
			SalesTotal:     decimal.Zero,
		}); err != nil {
			return err
		}

		if err := s.auditRepo.Log(txCtx, &model.AuditLog{
			TenantID:   t.ID,
			UserID:     &owner.ID,
			Action:     model.ActionProvisionTenant,
			EntityID:   t.ID.String(),
			EntityName: t.Name,
			Details: map[string]interface{}{
				"currency":       t.Currency,
				"invoice_prefix": t.InvoicePrefix,
				"stock_policy":   t.StockPolicy,
			},
		}); err != nil {
			return err
		}
		tenant = t
		return nil
	})
	if err != nil {
		return TenantResponse{}, err
	}

	s.log.Infow("tenant provisioned", "tenant_id", tenant.ID, "owner_id", owner.ID)
	return TenantResponse{
		ID:                tenant.ID.String(),
		Name:              tenant.Name,
		Currency:          tenant.Currency,
		TaxRate:           tenant.TaxRate.String(),
		InvoicePrefix:     tenant.InvoicePrefix,
		CommissionRate:    tenant.CommissionRate.String(),
		StockPolicy:       tenant.StockPolicy,
		LowStockThreshold: tenant.LowStockThreshold,
		Owner:             toUserResponse(owner),
	}, nil
}

func (s *tenantService) tenantFromRequest(req ProvisionTenantRequest) (model.Tenant, error) {
	if strings.TrimSpace(req.Name) == "" {
		return model.Tenant{}, errInvalidArgument("tenant name is required")
	}

	tenant := model.Tenant{
		Name:              req.Name,
		Currency:          strings.ToUpper(lo.Ternary(req.Currency == "", s.defaults.DefaultCurrency, req.Currency)),
		TaxRate:           lo.FromPtrOr(req.TaxRate, s.defaults.TaxRate()),
		InvoicePrefix:     lo.Ternary(req.InvoicePrefix == "", s.defaults.DefaultInvoicePrefix, req.InvoicePrefix),
		CommissionRate:    lo.FromPtrOr(req.CommissionRate, s.defaults.CommissionRate()),
		StockPolicy:       lo.Ternary(req.StockPolicy == "", s.defaults.DefaultStockPolicy, req.StockPolicy),
		LowStockThreshold: lo.FromPtrOr(req.LowStockThreshold, s.defaults.DefaultLowStockAlert),
	}

	switch {
	case tenant.TaxRate.IsNegative() || tenant.TaxRate.GreaterThan(hundred):
		return model.Tenant{}, errInvalidArgument("tax_rate must be between 0 and 100")
	case tenant.CommissionRate.IsNegative() || tenant.CommissionRate.GreaterThan(hundred):
		return model.Tenant{}, errInvalidArgument("commission_rate must be between 0 and 100")
	case tenant.StockPolicy != model.StockPolicyAllowNegative && tenant.StockPolicy != model.StockPolicyRejectNegative:
		return model.Tenant{}, errInvalidArgument("stock_policy must be allow_negative or reject_negative")
	case tenant.LowStockThreshold < 0:
		return model.Tenant{}, errInvalidArgument("low_stock_threshold must not be negative")
	}
	return tenant, nil
}
