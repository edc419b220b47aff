package quotation

import (
	"context"
	"time"

	"github.com/google/uuid"
	appbilling "github.com/retailbill/backend/internal/application/billing"
	"github.com/retailbill/backend/internal/domain/billing"
	"github.com/retailbill/backend/internal/domain/quotation"
	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/retailbill/backend/internal/domain/tax"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QuotationService provides application-level quotation operations
type QuotationService struct {
	quotationRepo quotation.QuotationRepository
	invoiceRepo   billing.InvoiceRepository
	sequenceRepo  billing.SequenceRepository
	calc          tax.Calculator
	eventBus      shared.EventPublisher
	logger        *zap.Logger
}

// QuotationServiceOption is a functional option for configuring QuotationService
type QuotationServiceOption func(*QuotationService)

// WithEventPublisher sets the post-commit event publisher
func WithEventPublisher(publisher shared.EventPublisher) QuotationServiceOption {
	return func(s *QuotationService) {
		s.eventBus = publisher
	}
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) QuotationServiceOption {
	return func(s *QuotationService) {
		s.logger = logger
	}
}

// NewQuotationService creates a new QuotationService
func NewQuotationService(
	quotationRepo quotation.QuotationRepository,
	invoiceRepo billing.InvoiceRepository,
	sequenceRepo billing.SequenceRepository,
	calc tax.Calculator,
	opts ...QuotationServiceOption,
) *QuotationService {
	s := &QuotationService{
		quotationRepo: quotationRepo,
		invoiceRepo:   invoiceRepo,
		sequenceRepo:  sequenceRepo,
		calc:          calc,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateQuotationRequest is the payload for creating a quotation
type CreateQuotationRequest struct {
	CustomerID    uuid.UUID                      `json:"customer_id" binding:"required"`
	CustomerName  string                         `json:"customer_name" binding:"required"`
	CustomerPhone string                         `json:"customer_phone"`
	Segment       string                         `json:"segment" binding:"required,segment"`
	Jurisdiction  string                         `json:"jurisdiction"`
	Items         []appbilling.LineItemRequest   `json:"items"`
	BulkPricing   *appbilling.BulkPricingRequest `json:"bulk_pricing"`
	ValidUntil    time.Time                      `json:"valid_until" binding:"required"`
	Remark        string                         `json:"remark"`
}

// UpdateQuotationRequest is the payload for repricing a quotation
type UpdateQuotationRequest struct {
	Items       []appbilling.LineItemRequest   `json:"items"`
	BulkPricing *appbilling.BulkPricingRequest `json:"bulk_pricing"`
	Remark      string                         `json:"remark"`
}

// ConvertQuotationRequest carries the payment parameters for conversion
type ConvertQuotationRequest struct {
	PaymentStatus string                     `json:"payment_status" binding:"required"`
	DownPayment   decimal.Decimal            `json:"down_payment"`
	EMI           *appbilling.EMIPlanRequest `json:"emi"`
}

// ExtendValidityRequest pushes a quotation's expiry forward
type ExtendValidityRequest struct {
	ValidUntil time.Time `json:"valid_until" binding:"required"`
}

// QuotationResponse represents a quotation in API responses
type QuotationResponse struct {
	ID              uuid.UUID         `json:"id"`
	TenantID        uuid.UUID         `json:"tenant_id"`
	QuotationNumber string            `json:"quotation_number"`
	CustomerID      uuid.UUID         `json:"customer_id"`
	CustomerName    string            `json:"customer_name"`
	Segment         string            `json:"segment"`
	Items           billing.LineItems `json:"items"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	TotalGST        decimal.Decimal   `json:"total_gst"`
	GrandTotal      decimal.Decimal   `json:"grand_total"`
	Status          string            `json:"status"`
	ValidUntil      time.Time         `json:"valid_until"`
	InvoiceID       *uuid.UUID        `json:"converted_invoice_id,omitempty"`
	Remark          string            `json:"remark,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Version         int               `json:"version"`
}

// QuotationListFilter defines filtering options for quotation list queries
type QuotationListFilter struct {
	Search     string     `form:"search"`
	CustomerID *uuid.UUID `form:"customer_id"`
	Status     string     `form:"status"`
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
}

// CreateQuotation prices the request and persists a new open quotation
func (s *QuotationService) CreateQuotation(ctx context.Context, tenantID uuid.UUID, req CreateQuotationRequest) (*QuotationResponse, error) {
	segment := billing.Segment(req.Segment)
	if !segment.IsValid() {
		return nil, shared.NewDomainError("INVALID_SEGMENT", "Segment must be electronics or furniture")
	}

	items, err := toLineItems(req.Items)
	if err != nil {
		return nil, err
	}

	seq, err := s.sequenceRepo.Next(ctx, tenantID, "quotation:"+segment.Prefix())
	if err != nil {
		return nil, err
	}

	q, err := quotation.NewQuotation(
		tenantID,
		quotation.FormatQuotationNumber(segment, seq),
		req.CustomerID,
		req.CustomerName,
		req.CustomerPhone,
		segment,
		toJurisdiction(req.Jurisdiction),
		items,
		toBulkPricing(req.BulkPricing),
		req.ValidUntil,
		s.calc,
	)
	if err != nil {
		return nil, err
	}
	q.Remark = req.Remark

	if err := s.quotationRepo.Save(ctx, q); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, q)
	return toQuotationResponse(q), nil
}

// GetQuotation gets a quotation by ID
func (s *QuotationService) GetQuotation(ctx context.Context, tenantID, id uuid.UUID) (*QuotationResponse, error) {
	q, err := s.findQuotation(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return toQuotationResponse(q), nil
}

// ListQuotations lists quotations with filtering
func (s *QuotationService) ListQuotations(ctx context.Context, tenantID uuid.UUID, filter QuotationListFilter) ([]QuotationResponse, int64, error) {
	domainFilter := quotation.QuotationFilter{
		CustomerID: filter.CustomerID,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search
	if filter.Status != "" {
		status := quotation.Status(filter.Status)
		domainFilter.Status = &status
	}

	quotations, err := s.quotationRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.quotationRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]QuotationResponse, len(quotations))
	for i := range quotations {
		responses[i] = *toQuotationResponse(&quotations[i])
	}
	return responses, total, nil
}

// UpdateQuotation reprices an open quotation
func (s *QuotationService) UpdateQuotation(ctx context.Context, tenantID, id uuid.UUID, req UpdateQuotationRequest) (*QuotationResponse, error) {
	q, err := s.findQuotation(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	items, err := toLineItems(req.Items)
	if err != nil {
		return nil, err
	}
	if err := q.UpdateItems(items, toBulkPricing(req.BulkPricing), s.calc); err != nil {
		return nil, err
	}
	if req.Remark != "" {
		q.Remark = req.Remark
	}

	if err := s.quotationRepo.SaveWithLock(ctx, q); err != nil {
		return nil, err
	}
	return toQuotationResponse(q), nil
}

// ExtendValidity pushes the quotation's expiry forward
func (s *QuotationService) ExtendValidity(ctx context.Context, tenantID, id uuid.UUID, req ExtendValidityRequest) (*QuotationResponse, error) {
	q, err := s.findQuotation(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := q.ExtendValidity(req.ValidUntil); err != nil {
		return nil, err
	}
	if err := s.quotationRepo.SaveWithLock(ctx, q); err != nil {
		return nil, err
	}
	return toQuotationResponse(q), nil
}

// CancelQuotation withdraws a quotation
func (s *QuotationService) CancelQuotation(ctx context.Context, tenantID, id uuid.UUID) (*QuotationResponse, error) {
	q, err := s.findQuotation(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := q.Cancel(); err != nil {
		return nil, err
	}
	if err := s.quotationRepo.SaveWithLock(ctx, q); err != nil {
		return nil, err
	}
	return toQuotationResponse(q), nil
}

// ConvertQuotation turns an open quotation into an invoice. The invoice
// number is drawn here, at conversion, never at quotation time.
func (s *QuotationService) ConvertQuotation(ctx context.Context, tenantID, id uuid.UUID, req ConvertQuotationRequest) (*QuotationResponse, *appbilling.InvoiceResponse, error) {
	q, err := s.findQuotation(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}

	mode := billing.TaxModeGST
	if q.TotalGST.IsZero() {
		mode = billing.TaxModeNonGST
	}
	seq, err := s.sequenceRepo.Next(ctx, tenantID, "invoice:"+q.Segment.Prefix()+"_"+string(mode))
	if err != nil {
		return nil, nil, err
	}
	invoiceNumber := billing.FormatInvoiceNumber(q.Segment, mode, seq)

	var emiInput *billing.EMIPlanInput
	if req.EMI != nil {
		emiInput = &billing.EMIPlanInput{
			DownPayment:          req.EMI.DownPayment,
			NumberOfInstallments: req.EMI.NumberOfInstallments,
			StartDate:            req.EMI.StartDate,
		}
	}

	invoice, err := q.ConvertToInvoice(invoiceNumber, billing.PaymentStatus(req.PaymentStatus), req.DownPayment, emiInput, s.calc)
	if err != nil {
		return nil, nil, err
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, nil, err
	}
	if err := s.quotationRepo.SaveWithLock(ctx, q); err != nil {
		return nil, nil, err
	}

	s.publishEvents(ctx, q)
	s.publishInvoiceEvents(ctx, invoice)
	s.logger.Info("quotation converted",
		zap.String("quotation_number", q.QuotationNumber),
		zap.String("invoice_number", invoiceNumber),
	)

	return toQuotationResponse(q), appbilling.ToInvoiceResponse(invoice, nil), nil
}

// ExpireOpenQuotations marks every lapsed open quotation as expired and
// returns how many were swept
func (s *QuotationService) ExpireOpenQuotations(ctx context.Context, tenantID uuid.UUID, now time.Time) (int, error) {
	lapsed, err := s.quotationRepo.FindOpenExpiredBefore(ctx, tenantID, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range lapsed {
		q := &lapsed[i]
		if err := q.MarkExpired(now); err != nil {
			continue
		}
		if err := s.quotationRepo.SaveWithLock(ctx, q); err != nil {
			s.logger.Warn("failed to persist quotation expiry",
				zap.String("quotation_number", q.QuotationNumber),
				zap.Error(err),
			)
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *QuotationService) findQuotation(ctx context.Context, tenantID, id uuid.UUID) (*quotation.Quotation, error) {
	q, err := s.quotationRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Quotation not found")
	}
	return q, nil
}

func (s *QuotationService) publishEvents(ctx context.Context, q *quotation.Quotation) {
	events := q.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	q.ClearDomainEvents()
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish quotation events", zap.Error(err))
	}
}

func (s *QuotationService) publishInvoiceEvents(ctx context.Context, invoice *billing.Invoice) {
	events := invoice.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	invoice.ClearDomainEvents()
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish invoice events", zap.Error(err))
	}
}

func toLineItems(reqs []appbilling.LineItemRequest) (billing.LineItems, error) {
	items := make(billing.LineItems, 0, len(reqs))
	for _, r := range reqs {
		item, err := billing.NewLineItem(r.Name, r.Quantity, r.Rate, r.GSTSlab, r.HSNCode, r.IsPriceInclusive)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

func toBulkPricing(req *appbilling.BulkPricingRequest) *billing.BulkPricingDetails {
	if req == nil {
		return nil
	}
	return &billing.BulkPricingDetails{
		TotalPrice:       req.TotalPrice,
		GSTRate:          req.GSTRate,
		IsPriceInclusive: req.IsPriceInclusive,
		IsTaxExempt:      req.IsTaxExempt,
	}
}

func toJurisdiction(raw string) tax.Jurisdiction {
	if tax.Jurisdiction(raw) == tax.JurisdictionInterState {
		return tax.JurisdictionInterState
	}
	return tax.JurisdictionIntraState
}

func toQuotationResponse(q *quotation.Quotation) *QuotationResponse {
	return &QuotationResponse{
		ID:              q.ID,
		TenantID:        q.TenantID,
		QuotationNumber: q.QuotationNumber,
		CustomerID:      q.CustomerID,
		CustomerName:    q.CustomerName,
		Segment:         string(q.Segment),
		Items:           q.Items,
		Subtotal:        q.Subtotal,
		TotalGST:        q.TotalGST,
		GrandTotal:      q.GrandTotal,
		Status:          string(q.Status),
		ValidUntil:      q.ValidUntil,
		InvoiceID:       q.ConvertedInvoiceID,
		Remark:          q.Remark,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
		Version:         q.Version,
	}
}
