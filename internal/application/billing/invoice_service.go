package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/billing"
	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/retailbill/backend/internal/domain/tax"
	"github.com/retailbill/backend/internal/infrastructure/cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const summaryCacheTTL = 2 * time.Minute

// InvoiceService provides application-level billing operations
type InvoiceService struct {
	invoiceRepo  billing.InvoiceRepository
	sequenceRepo billing.SequenceRepository
	calc         tax.Calculator
	eventBus     shared.EventPublisher
	summaryCache *cache.TTLCache[billing.InvoiceSummary]
	logger       *zap.Logger
}

// InvoiceServiceOption is a functional option for configuring InvoiceService
type InvoiceServiceOption func(*InvoiceService)

// WithEventPublisher sets the post-commit event publisher
func WithEventPublisher(publisher shared.EventPublisher) InvoiceServiceOption {
	return func(s *InvoiceService) {
		s.eventBus = publisher
	}
}

// WithSummaryCache sets the cache used for tenant billing summaries
func WithSummaryCache(c *cache.TTLCache[billing.InvoiceSummary]) InvoiceServiceOption {
	return func(s *InvoiceService) {
		s.summaryCache = c
	}
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) InvoiceServiceOption {
	return func(s *InvoiceService) {
		s.logger = logger
	}
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	sequenceRepo billing.SequenceRepository,
	calc tax.Calculator,
	opts ...InvoiceServiceOption,
) *InvoiceService {
	s := &InvoiceService{
		invoiceRepo:  invoiceRepo,
		sequenceRepo: sequenceRepo,
		calc:         calc,
		summaryCache: cache.NewTTLCache[billing.InvoiceSummary](summaryCacheTTL),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ===================== Requests and Responses =====================

// LineItemRequest is one invoice line in API requests
type LineItemRequest struct {
	Name             string          `json:"name" binding:"required"`
	Quantity         decimal.Decimal `json:"quantity" binding:"required"`
	Rate             decimal.Decimal `json:"rate" binding:"required"`
	GSTSlab          decimal.Decimal `json:"gst_slab"`
	HSNCode          string          `json:"hsn_code"`
	IsPriceInclusive bool            `json:"is_price_inclusive"`
}

// BulkPricingRequest carries the bulk total override in API requests
type BulkPricingRequest struct {
	TotalPrice       decimal.Decimal `json:"total_price" binding:"required"`
	GSTRate          decimal.Decimal `json:"gst_rate"`
	IsPriceInclusive bool            `json:"is_price_inclusive"`
	IsTaxExempt      bool            `json:"is_tax_exempt"`
}

// EMIPlanRequest carries EMI plan parameters in API requests
type EMIPlanRequest struct {
	DownPayment          decimal.Decimal `json:"down_payment"`
	NumberOfInstallments int             `json:"number_of_installments" binding:"required"`
	StartDate            time.Time       `json:"start_date" binding:"required"`
}

// CreateInvoiceRequest is the payload for creating an invoice
type CreateInvoiceRequest struct {
	CustomerID    uuid.UUID           `json:"customer_id" binding:"required"`
	CustomerName  string              `json:"customer_name" binding:"required"`
	CustomerPhone string              `json:"customer_phone"`
	Segment       string              `json:"segment" binding:"required,segment"`
	Jurisdiction  string              `json:"jurisdiction"`
	Items         []LineItemRequest   `json:"items"`
	BulkPricing   *BulkPricingRequest `json:"bulk_pricing"`
	PaymentStatus string              `json:"payment_status" binding:"required"`
	DownPayment   decimal.Decimal     `json:"down_payment"`
	EMI           *EMIPlanRequest     `json:"emi"`
	Remark        string              `json:"remark"`
}

// UpdateInvoiceRequest is the payload for editing an invoice's items.
// InvoiceNumber is accepted for round-trip convenience but never applied:
// the number assigned at creation is immutable.
type UpdateInvoiceRequest struct {
	InvoiceNumber string              `json:"invoice_number"`
	Items         []LineItemRequest   `json:"items"`
	BulkPricing   *BulkPricingRequest `json:"bulk_pricing"`
	Remark        string              `json:"remark"`
}

// InstallmentPaymentRequest records a payment against one installment
type InstallmentPaymentRequest struct {
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	Method     string          `json:"method" binding:"required"`
	Reference  string          `json:"reference"`
	RecordedBy string          `json:"recorded_by"`
}

// PaymentRequest records a payment against a non-EMI balance
type PaymentRequest struct {
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	Method     string          `json:"method" binding:"required"`
	Reference  string          `json:"reference"`
	RecordedBy string          `json:"recorded_by"`
}

// ChangeDueDateRequest moves an installment's due date
type ChangeDueDateRequest struct {
	NewDueDate time.Time `json:"new_due_date" binding:"required"`
	Reason     string    `json:"reason"`
	Actor      string    `json:"actor"`
}

// ChangeStatusRequest assigns a payment category. Changing to emi carries
// the plan parameters for the schedule generated by the transition.
type ChangeStatusRequest struct {
	Status string          `json:"status" binding:"required"`
	EMI    *EMIPlanRequest `json:"emi"`
}

// ResetRequest is the payload for the destructive reset to pending
type ResetRequest struct {
	Reason string `json:"reason" binding:"required"`
	Actor  string `json:"actor"`
}

// ScheduleDeliveryRequest schedules delivery of the sold goods
type ScheduleDeliveryRequest struct {
	Date time.Time `json:"date" binding:"required"`
}

// InstallmentResponse is one schedule slot in API responses
type InstallmentResponse struct {
	InstallmentNumber int             `json:"installment_number"`
	DueDate           time.Time       `json:"due_date"`
	Amount            decimal.Decimal `json:"amount"`
	Paid              bool            `json:"paid"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	PaymentDate       *time.Time      `json:"payment_date,omitempty"`
	FromOverpayment   bool            `json:"from_overpayment,omitempty"`
	DueDateChanges    int             `json:"due_date_changes"`
}

// EMIPlanResponse is the EMI plan in API responses
type EMIPlanResponse struct {
	MonthlyAmount        decimal.Decimal       `json:"monthly_amount"`
	NumberOfInstallments int                   `json:"number_of_installments"`
	DownPayment          decimal.Decimal       `json:"down_payment"`
	EMIAmount            decimal.Decimal       `json:"emi_amount"`
	StartDate            time.Time             `json:"start_date"`
	TotalPaid            decimal.Decimal       `json:"total_paid"`
	TotalRemaining       decimal.Decimal       `json:"total_remaining"`
	Schedule             []InstallmentResponse `json:"schedule"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID               uuid.UUID                          `json:"id"`
	TenantID         uuid.UUID                          `json:"tenant_id"`
	InvoiceNumber    string                             `json:"invoice_number"`
	CustomerID       uuid.UUID                          `json:"customer_id"`
	CustomerName     string                             `json:"customer_name"`
	CustomerPhone    string                             `json:"customer_phone,omitempty"`
	Segment          string                             `json:"segment"`
	Items            billing.LineItems                  `json:"items"`
	Subtotal         decimal.Decimal                    `json:"subtotal"`
	TotalGST         decimal.Decimal                    `json:"total_gst"`
	GrandTotal       decimal.Decimal                    `json:"grand_total"`
	PaymentStatus    string                             `json:"payment_status"`
	OriginalCategory string                             `json:"original_payment_category"`
	DeliveryStatus   string                             `json:"delivery_status"`
	FullyPaid        bool                               `json:"fully_paid"`
	DownPayment      decimal.Decimal                    `json:"down_payment"`
	RemainingBalance decimal.Decimal                    `json:"remaining_balance"`
	EMI              *EMIPlanResponse                   `json:"emi,omitempty"`
	DueDateFlags     billing.CustomerDueDateChangeFlags `json:"due_date_flags"`
	ScheduledDate    *time.Time                         `json:"scheduled_delivery_date,omitempty"`
	DeliveredAt      *time.Time                         `json:"delivered_at,omitempty"`
	PaymentDate      *time.Time                         `json:"payment_date,omitempty"`
	ExcessCredit     *decimal.Decimal                   `json:"excess_credit,omitempty"`
	Remark           string                             `json:"remark,omitempty"`
	CreatedAt        time.Time                          `json:"created_at"`
	UpdatedAt        time.Time                          `json:"updated_at"`
	Version          int                                `json:"version"`
}

// InvoiceListFilter defines filtering options for invoice list queries
type InvoiceListFilter struct {
	Search        string     `form:"search"`
	CustomerID    *uuid.UUID `form:"customer_id"`
	PaymentStatus string     `form:"payment_status"`
	Delivery      string     `form:"delivery_status"`
	FullyPaid     *bool      `form:"fully_paid"`
	FromDate      *time.Time `form:"from_date"`
	ToDate        *time.Time `form:"to_date"`
	Page          int        `form:"page"`
	PageSize      int        `form:"page_size"`
}

// ===================== Operations =====================

// CreateInvoice prices the request, draws the next invoice number from the
// tenant's atomic sequence and persists the new invoice
func (s *InvoiceService) CreateInvoice(ctx context.Context, tenantID uuid.UUID, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	segment := billing.Segment(req.Segment)
	if !segment.IsValid() {
		return nil, shared.NewDomainError("INVALID_SEGMENT", "Segment must be electronics or furniture")
	}

	items, err := toLineItems(req.Items)
	if err != nil {
		return nil, err
	}
	bulk := toBulkPricing(req.BulkPricing)
	jurisdiction := toJurisdiction(req.Jurisdiction)

	// The tax mode is part of the invoice number, so the request has to be
	// priced before the sequence is drawn.
	totals, err := billing.ComputeTotals(items, s.calc, jurisdiction, bulk)
	if err != nil {
		return nil, err
	}
	mode := billing.TaxModeGST
	if totals.TotalGST.IsZero() {
		mode = billing.TaxModeNonGST
	}

	seq, err := s.sequenceRepo.Next(ctx, tenantID, sequenceName(segment, mode))
	if err != nil {
		return nil, err
	}
	invoiceNumber := billing.FormatInvoiceNumber(segment, mode, seq)

	var emiInput *billing.EMIPlanInput
	if req.EMI != nil {
		emiInput = &billing.EMIPlanInput{
			DownPayment:          req.EMI.DownPayment,
			NumberOfInstallments: req.EMI.NumberOfInstallments,
			StartDate:            req.EMI.StartDate,
		}
	}
	downPayment := req.DownPayment
	if req.EMI != nil && downPayment.IsZero() {
		downPayment = req.EMI.DownPayment
	}

	invoice, err := billing.NewInvoice(
		tenantID,
		invoiceNumber,
		req.CustomerID,
		req.CustomerName,
		req.CustomerPhone,
		segment,
		jurisdiction,
		items,
		bulk,
		billing.PaymentStatus(req.PaymentStatus),
		downPayment,
		emiInput,
		s.calc,
	)
	if err != nil {
		return nil, err
	}
	invoice.Remark = req.Remark

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, invoice)
	s.logger.Info("invoice created",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("tenant_id", tenantID.String()),
	)

	return ToInvoiceResponse(invoice, nil), nil
}

// GetInvoice gets an invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, tenantID, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return ToInvoiceResponse(invoice, nil), nil
}

// ListInvoices lists invoices with filtering
func (s *InvoiceService) ListInvoices(ctx context.Context, tenantID uuid.UUID, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	domainFilter := billing.InvoiceFilter{
		CustomerID: filter.CustomerID,
		FullyPaid:  filter.FullyPaid,
		FromDate:   filter.FromDate,
		ToDate:     filter.ToDate,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search

	if filter.PaymentStatus != "" {
		status := billing.PaymentStatus(filter.PaymentStatus)
		domainFilter.PaymentStatus = &status
	}
	if filter.Delivery != "" {
		delivery := billing.DeliveryStatus(filter.Delivery)
		domainFilter.Delivery = &delivery
	}

	invoices, err := s.invoiceRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.invoiceRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = *ToInvoiceResponse(&invoices[i], nil)
	}
	return responses, total, nil
}

// GetSummary returns the tenant's billing summary, served from the TTL
// cache when fresh
func (s *InvoiceService) GetSummary(ctx context.Context, tenantID uuid.UUID) (*billing.InvoiceSummary, error) {
	key := summaryCacheKey(tenantID)
	if cached, ok := s.summaryCache.Get(key); ok {
		return &cached, nil
	}

	summary, err := s.invoiceRepo.Summarize(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	s.summaryCache.Set(key, *summary)
	return summary, nil
}

// UpdateInvoice replaces the invoice's items and reconciles derived state.
// Any invoice number in the payload is ignored.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, tenantID, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	items, err := toLineItems(req.Items)
	if err != nil {
		return nil, err
	}

	if err := invoice.UpdateItems(items, toBulkPricing(req.BulkPricing), s.calc); err != nil {
		return nil, err
	}
	if req.Remark != "" {
		invoice.Remark = req.Remark
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, invoice)
	return ToInvoiceResponse(invoice, nil), nil
}

// RecordInstallmentPayment settles an installment and redistributes the
// remaining schedule
func (s *InvoiceService) RecordInstallmentPayment(ctx context.Context, tenantID, id uuid.UUID, installmentNumber int, req InstallmentPaymentRequest) (*InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	outcome, err := invoice.RecordInstallmentPayment(installmentNumber, req.Amount, billing.InstallmentPaymentRecord{
		Method:     req.Method,
		Reference:  req.Reference,
		RecordedBy: req.RecordedBy,
	})
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, invoice)
	s.logger.Info("installment payment recorded",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Int("installment", installmentNumber),
		zap.String("amount", req.Amount.StringFixed(2)),
	)

	return ToInvoiceResponse(invoice, outcome), nil
}

// RecordPayment applies a direct payment to a non-EMI invoice
func (s *InvoiceService) RecordPayment(ctx context.Context, tenantID, id uuid.UUID, req PaymentRequest) (*InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := invoice.RecordPayment(req.Amount, req.Method, req.Reference, req.RecordedBy); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, invoice)
	return ToInvoiceResponse(invoice, nil), nil
}

// ChangeInstallmentDueDate moves an installment's due date and refreshes
// the churn flags
func (s *InvoiceService) ChangeInstallmentDueDate(ctx context.Context, tenantID, id uuid.UUID, installmentNumber int, req ChangeDueDateRequest) (*InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := invoice.ChangeInstallmentDueDate(installmentNumber, req.NewDueDate, req.Reason, req.Actor); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, invoice)
	return ToInvoiceResponse(invoice, nil), nil
}

// ChangePaymentStatus assigns a payment category
func (s *InvoiceService) ChangePaymentStatus(ctx context.Context, tenantID, id uuid.UUID, req ChangeStatusRequest) (*InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	var emiInput *billing.EMIPlanInput
	if req.EMI != nil {
		emiInput = &billing.EMIPlanInput{
			DownPayment:          req.EMI.DownPayment,
			NumberOfInstallments: req.EMI.NumberOfInstallments,
			StartDate:            req.EMI.StartDate,
		}
	}
	if err := invoice.ChangePaymentStatus(billing.PaymentStatus(req.Status), emiInput); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, invoice)
	return ToInvoiceResponse(invoice, nil), nil
}

// ResetToPending clears all payment state on an invoice
func (s *InvoiceService) ResetToPending(ctx context.Context, tenantID, id uuid.UUID, req ResetRequest) (*InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := invoice.ResetToPending(req.Reason, req.Actor); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, invoice)
	s.logger.Warn("invoice payment state reset",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("reason", req.Reason),
	)

	return ToInvoiceResponse(invoice, nil), nil
}

// ScheduleDelivery schedules delivery of the sold goods
func (s *InvoiceService) ScheduleDelivery(ctx context.Context, tenantID, id uuid.UUID, req ScheduleDeliveryRequest) (*InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := invoice.ScheduleDelivery(req.Date); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, invoice)
	return ToInvoiceResponse(invoice, nil), nil
}

// MarkDelivered completes delivery
func (s *InvoiceService) MarkDelivered(ctx context.Context, tenantID, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := invoice.MarkDelivered(); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, invoice)
	return ToInvoiceResponse(invoice, nil), nil
}

// DeleteInvoice removes an invoice
func (s *InvoiceService) DeleteInvoice(ctx context.Context, tenantID, id uuid.UUID) error {
	invoice, err := s.findInvoice(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if err := s.invoiceRepo.DeleteForTenant(ctx, tenantID, id); err != nil {
		return err
	}

	invoice.ClearDomainEvents()
	invoice.AddDomainEvent(billing.NewInvoiceDeletedEvent(invoice))
	s.afterCommit(ctx, invoice)
	return nil
}

// ===================== Helpers =====================

func (s *InvoiceService) findInvoice(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}
	return invoice, nil
}

// afterCommit publishes the aggregate's events and drops the tenant's
// cached summary. Called only after a successful save.
func (s *InvoiceService) afterCommit(ctx context.Context, invoice *billing.Invoice) {
	s.summaryCache.Invalidate(summaryCacheKey(invoice.TenantID))

	events := invoice.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	invoice.ClearDomainEvents()

	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish invoice events",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Error(err),
		)
	}
}

func summaryCacheKey(tenantID uuid.UUID) string {
	return "summary:" + tenantID.String()
}

func sequenceName(segment billing.Segment, mode billing.TaxMode) string {
	return "invoice:" + segment.Prefix() + "_" + string(mode)
}

func toLineItems(reqs []LineItemRequest) (billing.LineItems, error) {
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

func toBulkPricing(req *BulkPricingRequest) *billing.BulkPricingDetails {
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

// ToInvoiceResponse maps an invoice aggregate to its API representation
func ToInvoiceResponse(inv *billing.Invoice, outcome *billing.PaymentOutcome) *InvoiceResponse {
	resp := &InvoiceResponse{
		ID:               inv.ID,
		TenantID:         inv.TenantID,
		InvoiceNumber:    inv.InvoiceNumber,
		CustomerID:       inv.CustomerID,
		CustomerName:     inv.CustomerName,
		CustomerPhone:    inv.CustomerPhone,
		Segment:          string(inv.Segment),
		Items:            inv.Items,
		Subtotal:         inv.Subtotal,
		TotalGST:         inv.TotalGST,
		GrandTotal:       inv.GrandTotal,
		PaymentStatus:    inv.PaymentStatus.String(),
		OriginalCategory: inv.OriginalPaymentCategory.String(),
		DeliveryStatus:   string(inv.DeliveryStatus),
		FullyPaid:        inv.FullyPaid,
		DownPayment:      inv.Payment.DownPayment,
		RemainingBalance: inv.Payment.RemainingBalance,
		DueDateFlags:     inv.DueDateFlags,
		ScheduledDate:    inv.ScheduledDeliveryDate,
		DeliveredAt:      inv.DeliveredAt,
		PaymentDate:      inv.PaymentDate,
		Remark:           inv.Remark,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
		Version:          inv.Version,
	}

	if outcome != nil && outcome.ExcessCredit.IsPositive() {
		excess := outcome.ExcessCredit
		resp.ExcessCredit = &excess
	}

	if inv.EMI != nil {
		plan := &EMIPlanResponse{
			MonthlyAmount:        inv.EMI.MonthlyAmount,
			NumberOfInstallments: inv.EMI.NumberOfInstallments,
			DownPayment:          inv.EMI.DownPayment,
			EMIAmount:            inv.EMI.EMIAmount,
			StartDate:            inv.EMI.StartDate,
			TotalPaid:            inv.EMI.TotalPaid,
			TotalRemaining:       inv.EMI.TotalRemaining,
			Schedule:             make([]InstallmentResponse, len(inv.EMI.Schedule)),
		}
		for i, inst := range inv.EMI.Schedule {
			plan.Schedule[i] = InstallmentResponse{
				InstallmentNumber: inst.InstallmentNumber,
				DueDate:           inst.DueDate,
				Amount:            inst.Amount,
				Paid:              inst.Paid,
				PaidAmount:        inst.PaidAmount,
				PaymentDate:       inst.PaymentDate,
				FromOverpayment:   inst.AppliedFromOverpayment,
				DueDateChanges:    inst.DueDateChangeCount,
			}
		}
		resp.EMI = plan
	}

	return resp
}
