package service

import (
	"context"
	"fmt"

	ierr "github.com/itqanpos/ITQN/internal/errors"
	"github.com/itqanpos/ITQN/internal/logger"
	"github.com/itqanpos/ITQN/internal/model"
	"github.com/itqanpos/ITQN/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// DTOs
type CreateProductRequest struct {
	SKU          string          `json:"sku" binding:"required,max=100"`
	Name         string          `json:"name" binding:"required,max=255"`
	Price        decimal.Decimal `json:"price" binding:"required"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	InitialStock int             `json:"initial_stock" binding:"min=0"`
}

type RestockRequest struct {
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Note     string `json:"note" binding:"max=50"`
}

type ProductResponse struct {
	ID        string `json:"id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Price     string `json:"price"`
	CostPrice string `json:"cost_price"`
}

type InventoryLogResponse struct {
	ID         string  `json:"id"`
	ProductID  string  `json:"product_id"`
	Type       string  `json:"type"`
	Delta      int     `json:"delta"`
	StockAfter int     `json:"stock_after"`
	Reference  string  `json:"reference"`
	CreatedBy  *string `json:"created_by"`
	CreatedAt  string  `json:"created_at"`
}

// StockReference describes why stock moved.
type StockReference struct {
	Type      string // sale, restock, adjustment
	Reference string // invoice number for sales
	ActorID   *uuid.UUID
}

// StockChange is the outcome of one applied delta.
type StockChange struct {
	ProductID   uuid.UUID
	ProductName string
	Delta       int
	StockBefore int
	StockAfter  int
	Negative    bool // stock ended below zero
	Low         bool // stock ended at or below the tenant's alert threshold
}

type InventoryService interface {
	// ApplyDelta must run inside the caller's transaction. It writes the new
	// stock level and exactly one inventory log entry.
	ApplyDelta(ctx context.Context, tenantID, productID uuid.UUID, delta int, ref StockReference) (StockChange, error)

	CreateProduct(ctx context.Context, tenantID, actorID uuid.UUID, req CreateProductRequest) (ProductResponse, error)
	GetProducts(ctx context.Context, tenantID uuid.UUID, page, limit int, search string) ([]ProductResponse, int64, error)
	Restock(ctx context.Context, tenantID, productID, actorID uuid.UUID, req RestockRequest) (ProductResponse, error)
	ListLogs(ctx context.Context, tenantID, productID uuid.UUID, page, limit int) ([]InventoryLogResponse, int64, error)
}

type inventoryService struct {
	productRepo      repository.ProductRepository
	inventoryLogRepo repository.InventoryLogRepository
	tenantRepo       repository.TenantRepository
	auditRepo        repository.AuditRepository
	events           *EventPublisher
	runner           *TxRunner
	log              *logger.Logger
}

func NewInventoryService(
	productRepo repository.ProductRepository,
	inventoryLogRepo repository.InventoryLogRepository,
	tenantRepo repository.TenantRepository,
	auditRepo repository.AuditRepository,
	events *EventPublisher,
	runner *TxRunner,
	log *logger.Logger,
) InventoryService {
	return &inventoryService{
		productRepo:      productRepo,
		inventoryLogRepo: inventoryLogRepo,
		tenantRepo:       tenantRepo,
		auditRepo:        auditRepo,
		events:           events,
		runner:           runner,
		log:              log,
	}
}

func (s *inventoryService) ApplyDelta(ctx context.Context, tenantID, productID uuid.UUID, delta int, ref StockReference) (StockChange, error) {
	if delta == 0 {
		return StockChange{}, errInvalidArgument("stock delta must not be zero")
	}

	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return StockChange{}, err
	}
	product, err := s.productRepo.FindByIDForUpdate(ctx, tenantID, productID)
	if err != nil {
		return StockChange{}, err
	}

	before := product.Stock
	after := before + delta
	// increases are always accepted so a shortfall can be restocked
	if delta < 0 && after < 0 && tenant.RejectsNegativeStock() {
		return StockChange{}, ierr.Newf("product %s stock %d cannot absorb delta %d", product.ID, before, delta).
			WithHintf("insufficient stock for %s (available %d, requested %d)", product.Name, before, -delta).
			Mark(ierr.ErrInvalidState)
	}

	if err := s.productRepo.UpdateStock(ctx, product, after); err != nil {
		return StockChange{}, err
	}

	entry := model.InventoryLog{
		TenantID:   tenantID,
		ProductID:  product.ID,
		Type:       lo.Ternary(ref.Type == "", model.InventoryLogAdjustment, ref.Type),
		Delta:      delta,
		StockAfter: after,
		Reference:  ref.Reference,
		CreatedBy:  ref.ActorID,
	}
	if err := s.inventoryLogRepo.Create(ctx, &entry); err != nil {
		return StockChange{}, err
	}

	change := StockChange{
		ProductID:   product.ID,
		ProductName: product.Name,
		Delta:       delta,
		StockBefore: before,
		StockAfter:  after,
		Negative:    after < 0,
		Low:         after <= tenant.LowStockThreshold,
	}
	if change.Negative {
		// allow_negative keeps the sale; the shortfall is surfaced as a stock alert
		s.log.Warnw("stock went negative",
			"tenant_id", tenantID,
			"product_id", product.ID,
			"stock_after", after,
			"reference", ref.Reference,
			"policy", tenant.StockPolicy,
		)
	}
	return change, nil
}

// stockAlerts turns changes into outbox events for stock-alert consumers.
func (s *inventoryService) stockAlerts(ctx context.Context, tenantID uuid.UUID, changes []StockChange, reference string) ([]model.OutboxEvent, error) {
	return recordStockAlerts(ctx, s.events, tenantID, changes, reference)
}

func recordStockAlerts(ctx context.Context, events *EventPublisher, tenantID uuid.UUID, changes []StockChange, reference string) ([]model.OutboxEvent, error) {
	var out []model.OutboxEvent
	for _, c := range changes {
		if !c.Negative && !c.Low {
			continue
		}
		eventType := lo.Ternary(c.Negative, model.EventStockNegative, model.EventStockLow)
		ev, err := events.Record(ctx, tenantID, eventType, map[string]interface{}{
			"product_id":   c.ProductID.String(),
			"product_name": c.ProductName,
			"stock":        c.StockAfter,
			"reference":    reference,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *inventoryService) CreateProduct(ctx context.Context, tenantID, actorID uuid.UUID, req CreateProductRequest) (ProductResponse, error) {
	if actorID == uuid.Nil {
		return ProductResponse{}, errUnauthenticated()
	}
	if req.Price.IsNegative() || req.CostPrice.IsNegative() {
		return ProductResponse{}, errInvalidArgument("prices must not be negative")
	}

	product := model.Product{
		TenantID:  tenantID,
		SKU:       req.SKU,
		Name:      req.Name,
		Price:     req.Price,
		CostPrice: req.CostPrice,
	}

	err := s.runner.Run(ctx, "create product", func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		if req.InitialStock > 0 {
			if _, err := s.ApplyDelta(txCtx, tenantID, product.ID, req.InitialStock, StockReference{
				Type:      model.InventoryLogRestock,
				Reference: "initial stock",
				ActorID:   &actorID,
			}); err != nil {
				return err
			}
		}
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			TenantID:   tenantID,
			UserID:     &actorID,
			Action:     model.ActionCreateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details: map[string]interface{}{
				"sku":           req.SKU,
				"price":         req.Price.StringFixed(2),
				"initial_stock": req.InitialStock,
			},
		})
	})
	if err != nil {
		return ProductResponse{}, err
	}

	product.Stock = req.InitialStock
	return toProductResponse(product), nil
}

func (s *inventoryService) GetProducts(ctx context.Context, tenantID uuid.UUID, page, limit int, search string) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	products, total, err := s.productRepo.List(ctx, tenantID, page, limit, search)
	if err != nil {
		return nil, 0, err
	}
	return lo.Map(products, func(p model.Product, _ int) ProductResponse {
		return toProductResponse(p)
	}), total, nil
}

func (s *inventoryService) Restock(ctx context.Context, tenantID, productID, actorID uuid.UUID, req RestockRequest) (ProductResponse, error) {
	if actorID == uuid.Nil {
		return ProductResponse{}, errUnauthenticated()
	}
	if req.Quantity <= 0 {
		return ProductResponse{}, errInvalidArgument("restock quantity must be greater than zero")
	}

	var change StockChange
	var alerts []model.OutboxEvent
	err := s.runner.Run(ctx, "restock product", func(txCtx context.Context) error {
		var err error
		change, err = s.ApplyDelta(txCtx, tenantID, productID, req.Quantity, StockReference{
			Type:      model.InventoryLogRestock,
			Reference: req.Note,
			ActorID:   &actorID,
		})
		if err != nil {
			return err
		}
		// a restock can leave stock negative or still low
		alerts, err = s.stockAlerts(txCtx, tenantID, []StockChange{change}, req.Note)
		if err != nil {
			return err
		}
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			TenantID:   tenantID,
			UserID:     &actorID,
			Action:     model.ActionRestockProduct,
			EntityID:   productID.String(),
			EntityName: change.ProductName,
			Details: map[string]interface{}{
				"quantity":    req.Quantity,
				"stock_after": change.StockAfter,
			},
		})
	})
	if err != nil {
		return ProductResponse{}, err
	}
	s.events.Flush(ctx, alerts)

	product, err := s.productRepo.FindByID(ctx, tenantID, productID)
	if err != nil {
		return ProductResponse{}, err
	}
	return toProductResponse(*product), nil
}

func (s *inventoryService) ListLogs(ctx context.Context, tenantID, productID uuid.UUID, page, limit int) ([]InventoryLogResponse, int64, error) {
	if _, err := s.productRepo.FindByID(ctx, tenantID, productID); err != nil {
		return nil, 0, err
	}
	entries, total, err := s.inventoryLogRepo.ListByProduct(ctx, tenantID, productID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return lo.Map(entries, func(e model.InventoryLog, _ int) InventoryLogResponse {
		resp := InventoryLogResponse{
			ID:         e.ID.String(),
			ProductID:  e.ProductID.String(),
			Type:       e.Type,
			Delta:      e.Delta,
			StockAfter: e.StockAfter,
			Reference:  e.Reference,
			CreatedAt:  e.CreatedAt.Format(timeLayout),
		}
		if e.CreatedBy != nil {
			s := e.CreatedBy.String()
			resp.CreatedBy = &s
		}
		return resp
	}), total, nil
}

func toProductResponse(p model.Product) ProductResponse {
	return ProductResponse{
		ID:        p.ID.String(),
		SKU:       p.SKU,
		Name:      p.Name,
		Stock:     p.Stock,
		Price:     p.Price.StringFixed(2),
		CostPrice: p.CostPrice.StringFixed(2),
	}
}
