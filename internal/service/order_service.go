package service

import (
	"context"
	"time"

	"github.com/itqanpos/ITQN/internal/model"
	"github.com/itqanpos/ITQN/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const timeLayout = time.RFC3339

var paymentMethods = []string{
	model.PaymentMethodCash,
	model.PaymentMethodCard,
	model.PaymentMethodTransfer,
	model.PaymentMethodCredit,
}

// --- DTOs ---

type OrderItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type CreateOrderRequest struct {
	CustomerName  string             `json:"customer_name" binding:"max=255"`
	Items         []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	Discount      decimal.Decimal    `json:"discount"`
	PaymentMethod string             `json:"payment_method" binding:"required,oneof=cash card transfer credit"`
	PaymentAmount *decimal.Decimal   `json:"payment_amount"` // defaults to the order total, or 0 for credit
	Notes         string             `json:"notes"`
}

type OrderFilter struct {
	Status string
	Page   int
	Limit  int
}

type OrderItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

type OrderResponse struct {
	ID              string              `json:"id"`
	OrderNumber     string              `json:"order_number"`
	Status          string              `json:"status"`
	CustomerName    string              `json:"customer_name"`
	Items           []OrderItemResponse `json:"items"`
	Subtotal        string              `json:"subtotal"`
	Discount        string              `json:"discount"`
	Tax             string              `json:"tax"`
	Total           string              `json:"total"`
	PaymentMethod   string              `json:"payment_method"`
	PaymentStatus   string              `json:"payment_status"`
	PaymentAmount   string              `json:"payment_amount"`
	Notes           string              `json:"notes"`
	CreatedBy       *string             `json:"created_by"`
	ApprovedBy      *string             `json:"approved_by"`
	ApprovedAt      *string             `json:"approved_at"`
	RejectedBy      *string             `json:"rejected_by"`
	RejectionReason string              `json:"rejection_reason,omitempty"`
	SaleID          *string             `json:"sale_id"`
	CreatedAt       string              `json:"created_at"`
}

// --- Interface ---

type OrderService interface {
	CreateOrder(ctx context.Context, tenantID, actorID uuid.UUID, req CreateOrderRequest) (OrderResponse, error)
	GetOrder(ctx context.Context, tenantID uuid.UUID, id string) (OrderResponse, error)
	ListOrders(ctx context.Context, tenantID uuid.UUID, filter OrderFilter) ([]OrderResponse, int64, error)
}

type orderService struct {
	orderRepo repository.OrderRepository
	auditRepo repository.AuditRepository
	builder   *orderBuilder
	runner    *TxRunner
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	tenantRepo repository.TenantRepository,
	auditRepo repository.AuditRepository,
	sequence SequenceService,
	runner *TxRunner,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		auditRepo: auditRepo,
		builder:   newOrderBuilder(productRepo, tenantRepo, sequence),
		runner:    runner,
	}
}

// --- Implementation ---

func (s *orderService) CreateOrder(ctx context.Context, tenantID, actorID uuid.UUID, req CreateOrderRequest) (OrderResponse, error) {
	if actorID == uuid.Nil {
		return OrderResponse{}, errUnauthenticated()
	}

	var order *model.Order
	err := s.runner.Run(ctx, "create order", func(txCtx context.Context) error {
		var err error
		order, err = s.builder.build(txCtx, tenantID, actorID, req)
		if err != nil {
			return err
		}
		if err := s.orderRepo.Create(txCtx, order); err != nil {
			return err
		}
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			TenantID:   tenantID,
			UserID:     &actorID,
			Action:     model.ActionCreateOrder,
			EntityID:   order.ID.String(),
			EntityName: order.OrderNumber,
			Details: map[string]interface{}{
				"total":          order.Total.StringFixed(2),
				"payment_method": order.PaymentMethod,
				"items":          len(order.Items),
			},
		})
	})
	if err != nil {
		return OrderResponse{}, err
	}
	return toOrderResponse(*order), nil
}

func (s *orderService) GetOrder(ctx context.Context, tenantID uuid.UUID, id string) (OrderResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return OrderResponse{}, errInvalidArgument("invalid order id")
	}
	order, err := s.orderRepo.FindByID(ctx, tenantID, orderID)
	if err != nil {
		return OrderResponse{}, err
	}
	return toOrderResponse(*order), nil
}

func (s *orderService) ListOrders(ctx context.Context, tenantID uuid.UUID, filter OrderFilter) ([]OrderResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	orders, total, err := s.orderRepo.List(ctx, tenantID, repository.OrderFilter{
		Status: filter.Status,
		Page:   filter.Page,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, 0, err
	}
	return lo.Map(orders, func(o model.Order, _ int) OrderResponse {
		return toOrderResponse(o)
	}), total, nil
}

// orderBuilder validates an order request against the tenant catalog and
// prices it. Shared by order intake and direct checkout.
type orderBuilder struct {
	productRepo repository.ProductRepository
	tenantRepo  repository.TenantRepository
	sequence    SequenceService
}

func newOrderBuilder(productRepo repository.ProductRepository, tenantRepo repository.TenantRepository, sequence SequenceService) *orderBuilder {
	return &orderBuilder{productRepo: productRepo, tenantRepo: tenantRepo, sequence: sequence}
}

func (b *orderBuilder) build(ctx context.Context, tenantID, actorID uuid.UUID, req CreateOrderRequest) (*model.Order, error) {
	if len(req.Items) == 0 {
		return nil, errInvalidArgument("order must contain at least one item")
	}
	if !lo.Contains(paymentMethods, req.PaymentMethod) {
		return nil, errInvalidArgument("payment_method must be one of cash, card, transfer, credit")
	}
	if req.Discount.IsNegative() {
		return nil, errInvalidArgument("discount must not be negative")
	}
	if req.PaymentAmount != nil && req.PaymentAmount.IsNegative() {
		return nil, errInvalidArgument("payment_amount must not be negative")
	}

	productIDs := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, errInvalidArgument("invalid product_id " + item.ProductID)
		}
		if item.Quantity <= 0 {
			return nil, errInvalidArgument("item quantity must be greater than zero")
		}
		productIDs = append(productIDs, id)
	}

	tenant, err := b.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	products, err := b.productRepo.FindByIDs(ctx, tenantID, lo.Uniq(productIDs))
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(products, func(p model.Product) uuid.UUID { return p.ID })

	subtotal := decimal.Zero
	items := make([]model.OrderItem, 0, len(req.Items))
	for i, item := range req.Items {
		product, ok := byID[productIDs[i]]
		if !ok {
			return nil, errNotFound("product " + item.ProductID)
		}
		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, model.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   product.Price,
			CostPrice:   product.CostPrice,
			LineTotal:   lineTotal,
		})
	}

	if req.Discount.GreaterThan(subtotal) {
		return nil, errInvalidArgument("discount must not exceed the subtotal")
	}
	taxable := subtotal.Sub(req.Discount)
	tax := taxable.Mul(tenant.TaxRate).Div(hundred).Round(2)
	total := taxable.Add(tax)

	paid := total
	if req.PaymentMethod == model.PaymentMethodCredit {
		paid = decimal.Zero
	}
	if req.PaymentAmount != nil {
		paid = *req.PaymentAmount
	}

	number, err := b.sequence.Allocate(ctx, tenantID, model.SequenceDomainOrder)
	if err != nil {
		return nil, err
	}

	return &model.Order{
		TenantID:      tenantID,
		OrderNumber:   number,
		Status:        model.OrderStatusPending,
		CustomerName:  req.CustomerName,
		Items:         items,
		Subtotal:      subtotal,
		Discount:      req.Discount,
		Tax:           tax,
		Total:         total,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: paymentStatus(paid, total),
		PaymentAmount: paid,
		Notes:         req.Notes,
		CreatedBy:     &actorID,
	}, nil
}

func paymentStatus(paid, total decimal.Decimal) string {
	switch {
	case paid.GreaterThanOrEqual(total):
		return model.PaymentStatusPaid
	case paid.IsPositive():
		return model.PaymentStatusPartial
	default:
		return model.PaymentStatusUnpaid
	}
}

func toOrderResponse(o model.Order) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID.String(),
		OrderNumber:     o.OrderNumber,
		Status:          o.Status,
		CustomerName:    o.CustomerName,
		Subtotal:        o.Subtotal.StringFixed(2),
		Discount:        o.Discount.StringFixed(2),
		Tax:             o.Tax.StringFixed(2),
		Total:           o.Total.StringFixed(2),
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   o.PaymentStatus,
		PaymentAmount:   o.PaymentAmount.StringFixed(2),
		Notes:           o.Notes,
		CreatedBy:       uuidString(o.CreatedBy),
		ApprovedBy:      uuidString(o.ApprovedBy),
		RejectedBy:      uuidString(o.RejectedBy),
		RejectionReason: o.RejectionReason,
		SaleID:          uuidString(o.SaleID),
		CreatedAt:       o.CreatedAt.Format(timeLayout),
		Items: lo.Map(o.Items, func(i model.OrderItem, _ int) OrderItemResponse {
			return OrderItemResponse{
				ProductID:   i.ProductID.String(),
				ProductName: i.ProductName,
				Quantity:    i.Quantity,
				UnitPrice:   i.UnitPrice.StringFixed(2),
				LineTotal:   i.LineTotal.StringFixed(2),
			}
		}),
	}
	if o.ApprovedAt != nil {
		s := o.ApprovedAt.Format(timeLayout)
		resp.ApprovedAt = &s
	}
	return resp
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
