package service

import (
	"context"

	ierr "github.com/itqanpos/ITQN/internal/errors"
	"github.com/itqanpos/ITQN/internal/model"
	"github.com/itqanpos/ITQN/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// --- DTOs ---

type InvoiceNumberResponse struct {
	InvoiceNumber string `json:"invoice_number"`
}

type SaleItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

type SaleResponse struct {
	ID            string             `json:"id"`
	InvoiceNumber string             `json:"invoice_number"`
	OrderID       string             `json:"order_id"`
	CustomerName  string             `json:"customer_name"`
	Items         []SaleItemResponse `json:"items"`
	Subtotal      string             `json:"subtotal"`
	Discount      string             `json:"discount"`
	Tax           string             `json:"tax"`
	Total         string             `json:"total"`
	PaymentMethod string             `json:"payment_method"`
	PaymentStatus string             `json:"payment_status"`
	PaymentAmount string             `json:"payment_amount"`
	Change        string             `json:"change"`
	CreatedBy     *string            `json:"created_by"`
	CreatedAt     string             `json:"created_at"`
}

// --- Interface ---

type InvoiceService interface {
	// GenerateInvoiceNumber allocates the next invoice number in its own
	// retried transaction.
	GenerateInvoiceNumber(ctx context.Context, tenantID, actorID uuid.UUID) (InvoiceNumberResponse, error)
	GetSale(ctx context.Context, tenantID uuid.UUID, id string) (SaleResponse, error)
}

type invoiceService struct {
	saleRepo repository.SaleRepository
	sequence SequenceService
	runner   *TxRunner
}

func NewInvoiceService(saleRepo repository.SaleRepository, sequence SequenceService, runner *TxRunner) InvoiceService {
	return &invoiceService{
		saleRepo: saleRepo,
		sequence: sequence,
		runner:   runner,
	}
}

// --- Implementation ---

func (s *invoiceService) GenerateInvoiceNumber(ctx context.Context, tenantID, actorID uuid.UUID) (InvoiceNumberResponse, error) {
	if actorID == uuid.Nil {
		return InvoiceNumberResponse{}, errUnauthenticated()
	}

	var number string
	err := s.runner.Run(ctx, "generate invoice number", func(txCtx context.Context) error {
		var err error
		number, err = s.sequence.Allocate(txCtx, tenantID, model.SequenceDomainInvoice)
		return err
	})
	if err != nil {
		return InvoiceNumberResponse{}, err
	}
	return InvoiceNumberResponse{InvoiceNumber: number}, nil
}

func (s *invoiceService) GetSale(ctx context.Context, tenantID uuid.UUID, id string) (SaleResponse, error) {
	saleID, err := uuid.Parse(id)
	if err != nil {
		return SaleResponse{}, errInvalidArgument("invalid sale id")
	}
	sale, err := s.saleRepo.FindByID(ctx, tenantID, saleID)
	if err != nil {
		return SaleResponse{}, err
	}
	return toSaleResponse(*sale)
}

func toSaleResponse(sale model.Sale) (SaleResponse, error) {
	items, err := sale.ItemList()
	if err != nil {
		return SaleResponse{}, ierr.WithError(err).
			WithMessage("decode sale items").
			Mark(ierr.ErrInternal)
	}
	return SaleResponse{
		ID:            sale.ID.String(),
		InvoiceNumber: sale.InvoiceNumber,
		OrderID:       sale.OrderID.String(),
		CustomerName:  sale.CustomerName,
		Subtotal:      sale.Subtotal.StringFixed(2),
		Discount:      sale.Discount.StringFixed(2),
		Tax:           sale.Tax.StringFixed(2),
		Total:         sale.Total.StringFixed(2),
		PaymentMethod: sale.PaymentMethod,
		PaymentStatus: sale.PaymentStatus,
		PaymentAmount: sale.PaymentAmount.StringFixed(2),
		Change:        sale.Change.StringFixed(2),
		CreatedBy:     uuidString(sale.CreatedBy),
		CreatedAt:     sale.CreatedAt.Format(timeLayout),
		Items: lo.Map(items, func(i model.SaleItem, _ int) SaleItemResponse {
			return SaleItemResponse{
				ProductID:   i.ProductID.String(),
				ProductName: i.ProductName,
				Quantity:    i.Quantity,
				UnitPrice:   i.UnitPrice.StringFixed(2),
				LineTotal:   i.LineTotal.StringFixed(2),
			}
		}),
	}, nil
}
