package service

import (
	"context"
	"slices"

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

type RejectOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// OrderStatusChange is a requested status flip delivered by an order
// listener. Before is the status the sender observed.
type OrderStatusChange struct {
	TenantID uuid.UUID
	OrderID  uuid.UUID
	ActorID  uuid.UUID
	Before   string
	After    string
	Reason   string
}

type FulfillmentResponse struct {
	Order      OrderResponse       `json:"order"`
	Sale       SaleResponse        `json:"sale"`
	Commission *CommissionResponse `json:"commission,omitempty"`
	Replayed   bool                `json:"replayed"` // true when an idempotent checkout returned an earlier sale
}

// --- Interface ---

// FulfillmentService moves orders out of pending. Approval turns an order
// into an invoice together with its stock, ledger and commission effects in
// one transaction; rejection only touches the order.
type FulfillmentService interface {
	Approve(ctx context.Context, tenantID, orderID, approverID uuid.UUID) (FulfillmentResponse, error)
	Reject(ctx context.Context, tenantID, orderID, approverID uuid.UUID, req RejectOrderRequest) (OrderResponse, error)
	// Checkout creates and fulfills an order in one transaction. A repeated
	// idempotencyKey returns the original sale with no new effects.
	Checkout(ctx context.Context, tenantID, actorID uuid.UUID, req CreateOrderRequest, idempotencyKey string) (FulfillmentResponse, error)
	OnOrderStatusChange(ctx context.Context, change OrderStatusChange) error
}

type fulfillmentService struct {
	orderRepo      repository.OrderRepository
	saleRepo       repository.SaleRepository
	userRepo       repository.UserRepository
	tenantRepo     repository.TenantRepository
	commissionRepo repository.CommissionRepository
	auditRepo      repository.AuditRepository
	builder        *orderBuilder
	sequence       SequenceService
	inventory      InventoryService
	treasury       TreasuryService
	commissions    CommissionService
	events         *EventPublisher
	runner         *TxRunner
	clock          clock.Clock
	log            *logger.Logger
}

func NewFulfillmentService(
	orderRepo repository.OrderRepository,
	saleRepo repository.SaleRepository,
	userRepo repository.UserRepository,
	tenantRepo repository.TenantRepository,
	productRepo repository.ProductRepository,
	commissionRepo repository.CommissionRepository,
	auditRepo repository.AuditRepository,
	sequence SequenceService,
	inventory InventoryService,
	treasury TreasuryService,
	commissions CommissionService,
	events *EventPublisher,
	runner *TxRunner,
	clk clock.Clock,
	log *logger.Logger,
) FulfillmentService {
	return &fulfillmentService{
		orderRepo:      orderRepo,
		saleRepo:       saleRepo,
		userRepo:       userRepo,
		tenantRepo:     tenantRepo,
		commissionRepo: commissionRepo,
		auditRepo:      auditRepo,
		builder:        newOrderBuilder(productRepo, tenantRepo, sequence),
		sequence:       sequence,
		inventory:      inventory,
		treasury:       treasury,
		commissions:    commissions,
		events:         events,
		runner:         runner,
		clock:          clk,
		log:            log,
	}
}

// fulfillment collects what one successful transaction produced.
type fulfillment struct {
	order      *model.Order
	sale       *model.Sale
	commission *model.Commission
	events     []model.OutboxEvent
	replayed   bool
}

// --- Implementation ---

func (s *fulfillmentService) Approve(ctx context.Context, tenantID, orderID, approverID uuid.UUID) (FulfillmentResponse, error) {
	if approverID == uuid.Nil {
		return FulfillmentResponse{}, errUnauthenticated()
	}

	var result *fulfillment
	err := s.runner.Run(ctx, "approve order", func(txCtx context.Context) error {
		if _, err := s.requireApprover(txCtx, tenantID, approverID); err != nil {
			return err
		}
		tenant, err := s.tenantRepo.FindByID(txCtx, tenantID)
		if err != nil {
			return err
		}

		// re-read under lock: two approvals of the same order race here
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, tenantID, orderID)
		if err != nil {
			return err
		}
		if !order.IsPending() {
			return ierr.Newf("order %s is %s", order.ID, order.Status).
				WithHintf("Order %s is already %s", order.OrderNumber, order.Status).
				Mark(ierr.ErrInvalidState)
		}

		result, err = s.fulfill(txCtx, tenant, order, approverID, model.ActionApproveOrder)
		return err
	})
	if err != nil {
		s.log.Warnw("order approval failed",
			"tenant_id", tenantID,
			"order_id", orderID,
			"details", ierr.ReportableDetails(err),
			"error", err,
		)
		return FulfillmentResponse{}, err
	}

	s.events.Flush(ctx, result.events)
	s.log.Infow("order fulfilled",
		"tenant_id", tenantID,
		"order_id", orderID,
		"invoice_number", result.sale.InvoiceNumber,
		"total", result.sale.Total.StringFixed(2),
	)
	return toFulfillmentResponse(result)
}

func (s *fulfillmentService) Reject(ctx context.Context, tenantID, orderID, approverID uuid.UUID, req RejectOrderRequest) (OrderResponse, error) {
	if approverID == uuid.Nil {
		return OrderResponse{}, errUnauthenticated()
	}
	reason := lo.Ternary(req.Reason == "", model.DefaultRejectionReason, req.Reason)

	var order *model.Order
	var events []model.OutboxEvent
	err := s.runner.Run(ctx, "reject order", func(txCtx context.Context) error {
		if _, err := s.requireApprover(txCtx, tenantID, approverID); err != nil {
			return err
		}

		var err error
		order, err = s.orderRepo.FindByIDForUpdate(txCtx, tenantID, orderID)
		if err != nil {
			return err
		}
		if !order.IsPending() {
			return ierr.Newf("order %s is %s", order.ID, order.Status).
				WithHintf("Order %s is already %s", order.OrderNumber, order.Status).
				Mark(ierr.ErrInvalidState)
		}

		now := s.clock.Now()
		if err := s.orderRepo.Transition(txCtx, order, model.OrderStatusPending, map[string]interface{}{
			"status":           model.OrderStatusRejected,
			"rejected_by":      approverID,
			"rejected_at":      now,
			"rejection_reason": reason,
		}); err != nil {
			return err
		}
		order.Status = model.OrderStatusRejected
		order.RejectedBy = &approverID
		order.RejectedAt = &now
		order.RejectionReason = reason

		if err := s.auditRepo.Log(txCtx, &model.AuditLog{
			TenantID:   tenantID,
			UserID:     &approverID,
			Action:     model.ActionRejectOrder,
			EntityID:   order.ID.String(),
			EntityName: order.OrderNumber,
			Details:    map[string]interface{}{"reason": reason},
		}); err != nil {
			return err
		}

		ev, err := s.events.Record(txCtx, tenantID, model.EventOrderRejected, map[string]interface{}{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
			"reason":       reason,
		})
		if err != nil {
			return err
		}
		events = []model.OutboxEvent{ev}
		return nil
	})
	if err != nil {
		return OrderResponse{}, err
	}

	s.events.Flush(ctx, events)
	return toOrderResponse(*order), nil
}

func (s *fulfillmentService) Checkout(ctx context.Context, tenantID, actorID uuid.UUID, req CreateOrderRequest, idempotencyKey string) (FulfillmentResponse, error) {
	if actorID == uuid.Nil {
		return FulfillmentResponse{}, errUnauthenticated()
	}
	if len(idempotencyKey) > 100 {
		return FulfillmentResponse{}, errInvalidArgument("idempotency key must be at most 100 characters")
	}

	var result *fulfillment
	err := s.runner.Run(ctx, "checkout", func(txCtx context.Context) error {
		if idempotencyKey != "" {
			previous, err := s.replay(txCtx, tenantID, idempotencyKey)
			if err != nil && !ierr.IsNotFound(err) {
				return err
			}
			if previous != nil {
				result = previous
				return nil
			}
		}

		if _, err := s.userRepo.FindByID(txCtx, tenantID, actorID); err != nil {
			if ierr.IsNotFound(err) {
				return errUnauthenticated()
			}
			return err
		}
		tenant, err := s.tenantRepo.FindByID(txCtx, tenantID)
		if err != nil {
			return err
		}

		order, err := s.builder.build(txCtx, tenantID, actorID, req)
		if err != nil {
			return err
		}
		if idempotencyKey != "" {
			order.IdempotencyKey = &idempotencyKey
		}
		// a concurrent checkout with the same key fails here on the unique
		// index and the retry replays its sale
		if err := s.orderRepo.Create(txCtx, order); err != nil {
			return err
		}

		result, err = s.fulfill(txCtx, tenant, order, actorID, model.ActionCheckout)
		return err
	})
	if err != nil {
		return FulfillmentResponse{}, err
	}

	if result.replayed {
		s.log.Infow("checkout replayed",
			"tenant_id", tenantID,
			"idempotency_key", idempotencyKey,
			"invoice_number", result.sale.InvoiceNumber,
		)
	} else {
		s.events.Flush(ctx, result.events)
	}
	return toFulfillmentResponse(result)
}

func (s *fulfillmentService) OnOrderStatusChange(ctx context.Context, change OrderStatusChange) error {
	if change.Before != model.OrderStatusPending || change.Before == change.After {
		return nil
	}

	var err error
	switch change.After {
	case model.OrderStatusApproved, model.OrderStatusCompleted:
		_, err = s.Approve(ctx, change.TenantID, change.OrderID, change.ActorID)
	case model.OrderStatusRejected:
		_, err = s.Reject(ctx, change.TenantID, change.OrderID, change.ActorID, RejectOrderRequest{Reason: change.Reason})
	default:
		return nil
	}

	// duplicate delivery of an already handled change
	if ierr.IsInvalidState(err) {
		s.log.Infow("ignoring status change for order that is no longer pending",
			"tenant_id", change.TenantID,
			"order_id", change.OrderID,
			"requested", change.After,
		)
		return nil
	}
	return err
}

func (s *fulfillmentService) requireApprover(ctx context.Context, tenantID, approverID uuid.UUID) (*model.User, error) {
	approver, err := s.userRepo.FindByID(ctx, tenantID, approverID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHint("you do not have permission to approve or reject orders").
				Mark(ierr.ErrPermissionDenied)
		}
		return nil, err
	}
	if !approver.CanApprove() {
		return nil, errPermissionDenied(approver.Role)
	}
	return approver, nil
}

// fulfill applies every effect of a completed order inside ctx's
// transaction. Any failure aborts the whole transaction.
func (s *fulfillmentService) fulfill(ctx context.Context, tenant *model.Tenant, order *model.Order, actorID uuid.UUID, action string) (*fulfillment, error) {
	now := s.clock.Now()
	date := clock.DateKey(now)

	invoiceNumber, err := s.sequence.Allocate(ctx, tenant.ID, model.SequenceDomainInvoice)
	if err != nil {
		return nil, err
	}

	sale := model.Sale{
		TenantID:      tenant.ID,
		InvoiceNumber: invoiceNumber,
		OrderID:       order.ID,
		CustomerName:  order.CustomerName,
		Subtotal:      order.Subtotal,
		Discount:      order.Discount,
		Tax:           order.Tax,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		PaymentAmount: order.PaymentAmount,
		Change:        decimal.Max(order.PaymentAmount.Sub(order.Total), decimal.Zero),
		Notes:         order.Notes,
		CreatedBy:     &actorID,
	}
	if err := sale.SetItems(lo.Map(order.Items, func(i model.OrderItem, _ int) model.SaleItem {
		return model.SaleItem{
			ProductID:   i.ProductID,
			ProductName: i.ProductName,
			Quantity:    i.Quantity,
			UnitPrice:   i.UnitPrice,
			CostPrice:   i.CostPrice,
			LineTotal:   i.LineTotal,
		}
	})); err != nil {
		return nil, ierr.WithError(err).WithMessage("encode sale items").Mark(ierr.ErrInternal)
	}
	if err := s.saleRepo.Create(ctx, &sale); err != nil {
		return nil, err
	}

	changes, err := s.deductStock(ctx, tenant.ID, order, invoiceNumber, actorID)
	if err != nil {
		return nil, err
	}

	if order.PaymentMethod == model.PaymentMethodCash {
		// only cash actually received reaches the drawer
		settled := decimal.Min(order.PaymentAmount, order.Total)
		if settled.IsPositive() {
			if _, err := s.treasury.ApplyMovement(ctx, tenant.ID, Movement{
				Kind:      model.MovementIncome,
				Amount:    settled,
				Date:      date,
				Reference: invoiceNumber,
				ActorID:   &actorID,
			}); err != nil {
				return nil, err
			}
		}
	}
	if err := s.treasury.RecordSale(ctx, tenant.ID, date, order.Total); err != nil {
		return nil, err
	}

	commission, err := s.commissionFor(ctx, tenant.ID, order, &sale)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.Transition(ctx, order, model.OrderStatusPending, map[string]interface{}{
		"status":      model.OrderStatusCompleted,
		"approved_by": actorID,
		"approved_at": now,
		"sale_id":     sale.ID,
	}); err != nil {
		return nil, err
	}
	order.Status = model.OrderStatusCompleted
	order.ApprovedBy = &actorID
	order.ApprovedAt = &now
	order.SaleID = &sale.ID

	if err := s.auditRepo.Log(ctx, &model.AuditLog{
		TenantID:   tenant.ID,
		UserID:     &actorID,
		Action:     action,
		EntityID:   order.ID.String(),
		EntityName: invoiceNumber,
		Details: map[string]interface{}{
			"order_number":   order.OrderNumber,
			"sale_id":        sale.ID.String(),
			"total":          order.Total.StringFixed(2),
			"payment_method": order.PaymentMethod,
			"items":          len(changes),
		},
	}); err != nil {
		return nil, err
	}

	completed, err := s.events.Record(ctx, tenant.ID, model.EventSaleCompleted, map[string]interface{}{
		"sale_id":        sale.ID.String(),
		"order_id":       order.ID.String(),
		"invoice_number": invoiceNumber,
		"total":          order.Total.StringFixed(2),
		"payment_method": order.PaymentMethod,
	})
	if err != nil {
		return nil, err
	}
	alerts, err := recordStockAlerts(ctx, s.events, tenant.ID, changes, invoiceNumber)
	if err != nil {
		return nil, err
	}

	return &fulfillment{
		order:      order,
		sale:       &sale,
		commission: commission,
		events:     append([]model.OutboxEvent{completed}, alerts...),
	}, nil
}

// deductStock applies one negative delta per distinct product, in product
// id order so concurrent fulfillments touch shared rows in the same order.
func (s *fulfillmentService) deductStock(ctx context.Context, tenantID uuid.UUID, order *model.Order, invoiceNumber string, actorID uuid.UUID) ([]StockChange, error) {
	quantities := make(map[uuid.UUID]int, len(order.Items))
	for _, item := range order.Items {
		quantities[item.ProductID] += item.Quantity
	}
	productIDs := lo.Keys(quantities)
	slices.SortFunc(productIDs, func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})

	changes := make([]StockChange, 0, len(productIDs))
	for _, productID := range productIDs {
		change, err := s.inventory.ApplyDelta(ctx, tenantID, productID, -quantities[productID], StockReference{
			Type:      model.InventoryLogSale,
			Reference: invoiceNumber,
			ActorID:   &actorID,
		})
		if err != nil {
			return nil, ierr.WithError(err).
				WithReportableDetails(map[string]any{
					"order_id":       order.ID.String(),
					"order_number":   order.OrderNumber,
					"product_id":     productID.String(),
					"invoice_number": invoiceNumber,
				}).
				Error()
		}
		changes = append(changes, change)
	}
	return changes, nil
}

func (s *fulfillmentService) commissionFor(ctx context.Context, tenantID uuid.UUID, order *model.Order, sale *model.Sale) (*model.Commission, error) {
	if order.CreatedBy == nil || !sale.Total.IsPositive() {
		return nil, nil
	}
	seller, err := s.userRepo.FindByID(ctx, tenantID, *order.CreatedBy)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.log.Warnw("order creator no longer exists, skipping commission",
				"tenant_id", tenantID,
				"order_id", order.ID,
				"created_by", *order.CreatedBy,
			)
			return nil, nil
		}
		return nil, err
	}
	if !seller.CommissionEligible {
		return nil, nil
	}
	return s.commissions.Compute(ctx, tenantID, seller.ID, CommissionSource{
		SaleID:        sale.ID,
		InvoiceNumber: sale.InvoiceNumber,
		Total:         sale.Total,
	}, nil)
}

// replay loads the outcome of an earlier checkout with the same key.
func (s *fulfillmentService) replay(ctx context.Context, tenantID uuid.UUID, key string) (*fulfillment, error) {
	order, err := s.orderRepo.FindByIdempotencyKey(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	sale, err := s.saleRepo.FindByOrderID(ctx, tenantID, order.ID)
	if err != nil {
		return nil, err
	}
	commission, err := s.commissionRepo.FindBySaleID(ctx, tenantID, sale.ID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	return &fulfillment{
		order:      order,
		sale:       sale,
		commission: commission,
		replayed:   true,
	}, nil
}

func toFulfillmentResponse(f *fulfillment) (FulfillmentResponse, error) {
	sale, err := toSaleResponse(*f.sale)
	if err != nil {
		return FulfillmentResponse{}, err
	}
	resp := FulfillmentResponse{
		Order:    toOrderResponse(*f.order),
		Sale:     sale,
		Replayed: f.replayed,
	}
	if f.commission != nil {
		c := toCommissionResponse(*f.commission)
		resp.Commission = &c
	}
	return resp, nil
}
