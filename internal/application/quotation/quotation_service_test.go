package quotation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	appbilling "github.com/retailbill/backend/internal/application/billing"
	"github.com/retailbill/backend/internal/domain/billing"
	"github.com/retailbill/backend/internal/domain/quotation"
	"github.com/retailbill/backend/internal/domain/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockQuotationRepository struct {
	mock.Mock
}

func (m *mockQuotationRepository) FindByID(ctx context.Context, id uuid.UUID) (*quotation.Quotation, error) {
	args := m.Called(ctx, id)
	if q := args.Get(0); q != nil {
		return q.(*quotation.Quotation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockQuotationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*quotation.Quotation, error) {
	args := m.Called(ctx, tenantID, id)
	if q := args.Get(0); q != nil {
		return q.(*quotation.Quotation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockQuotationRepository) FindByQuotationNumber(ctx context.Context, tenantID uuid.UUID, quotationNumber string) (*quotation.Quotation, error) {
	args := m.Called(ctx, tenantID, quotationNumber)
	if q := args.Get(0); q != nil {
		return q.(*quotation.Quotation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockQuotationRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter quotation.QuotationFilter) ([]quotation.Quotation, error) {
	args := m.Called(ctx, tenantID, filter)
	if qs := args.Get(0); qs != nil {
		return qs.([]quotation.Quotation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockQuotationRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter quotation.QuotationFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockQuotationRepository) FindOpenExpiredBefore(ctx context.Context, tenantID uuid.UUID, cutoff time.Time) ([]quotation.Quotation, error) {
	args := m.Called(ctx, tenantID, cutoff)
	if qs := args.Get(0); qs != nil {
		return qs.([]quotation.Quotation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockQuotationRepository) Save(ctx context.Context, q *quotation.Quotation) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

func (m *mockQuotationRepository) SaveWithLock(ctx context.Context, q *quotation.Quotation) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

func (m *mockQuotationRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

type mockInvoiceRepository struct {
	mock.Mock
	billing.InvoiceRepository
}

func (m *mockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

type mockSequenceRepository struct {
	mock.Mock
}

func (m *mockSequenceRepository) Next(ctx context.Context, tenantID uuid.UUID, name string) (int64, error) {
	args := m.Called(ctx, tenantID, name)
	return args.Get(0).(int64), args.Error(1)
}

func openQuotation(t *testing.T, tenantID uuid.UUID) *quotation.Quotation {
	t.Helper()
	item, err := billing.NewLineItem("Dining Table", decimal.NewFromInt(1), decimal.NewFromInt(20000), decimal.NewFromInt(18), "9403", false)
	require.NoError(t, err)

	q, err := quotation.NewQuotation(
		tenantID, "QT_FU_001", uuid.New(), "Ravi Kumar", "9000000002",
		billing.SegmentFurniture, tax.JurisdictionIntraState,
		billing.LineItems{*item}, nil, time.Now().AddDate(0, 0, 15),
		tax.NewGSTCalculator(),
	)
	require.NoError(t, err)
	q.ClearDomainEvents()
	return q
}

func TestCreateQuotation_DrawsNumberFromSequence(t *testing.T) {
	quotationRepo := new(mockQuotationRepository)
	seqRepo := new(mockSequenceRepository)
	tenantID := uuid.New()

	seqRepo.On("Next", mock.Anything, tenantID, "quotation:FU").Return(int64(4), nil)
	quotationRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	service := NewQuotationService(quotationRepo, new(mockInvoiceRepository), seqRepo, tax.NewGSTCalculator())
	resp, err := service.CreateQuotation(context.Background(), tenantID, CreateQuotationRequest{
		CustomerID:   uuid.New(),
		CustomerName: "Ravi Kumar",
		Segment:      "furniture",
		Jurisdiction: "INTRA_STATE",
		Items: []appbilling.LineItemRequest{
			{Name: "Dining Table", Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(20000), GSTSlab: decimal.NewFromInt(18), HSNCode: "9403"},
		},
		ValidUntil: time.Now().AddDate(0, 0, 15),
	})
	require.NoError(t, err)

	assert.Equal(t, "QT_FU_004", resp.QuotationNumber)
	assert.Equal(t, "23600", resp.GrandTotal.String())
	seqRepo.AssertExpectations(t)
}

func TestConvertQuotation_DrawsInvoiceNumberAtConversion(t *testing.T) {
	quotationRepo := new(mockQuotationRepository)
	invoiceRepo := new(mockInvoiceRepository)
	seqRepo := new(mockSequenceRepository)
	tenantID := uuid.New()
	q := openQuotation(t, tenantID)

	quotationRepo.On("FindByIDForTenant", mock.Anything, tenantID, q.ID).Return(q, nil)
	seqRepo.On("Next", mock.Anything, tenantID, "invoice:FU_GST").Return(int64(11), nil)
	invoiceRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	quotationRepo.On("SaveWithLock", mock.Anything, q).Return(nil)

	service := NewQuotationService(quotationRepo, invoiceRepo, seqRepo, tax.NewGSTCalculator())
	quoteResp, invoiceResp, err := service.ConvertQuotation(context.Background(), tenantID, q.ID, ConvertQuotationRequest{
		PaymentStatus: "paid",
	})
	require.NoError(t, err)

	assert.Equal(t, "converted", quoteResp.Status)
	assert.Equal(t, "FU_GST_011", invoiceResp.InvoiceNumber)
	assert.Equal(t, quoteResp.GrandTotal.String(), invoiceResp.GrandTotal.String())
	seqRepo.AssertExpectations(t)
	invoiceRepo.AssertExpectations(t)
}

func TestConvertQuotation_ClosedQuotationFails(t *testing.T) {
	quotationRepo := new(mockQuotationRepository)
	tenantID := uuid.New()
	q := openQuotation(t, tenantID)
	require.NoError(t, q.Cancel())

	quotationRepo.On("FindByIDForTenant", mock.Anything, tenantID, q.ID).Return(q, nil)
	seqRepo := new(mockSequenceRepository)
	seqRepo.On("Next", mock.Anything, tenantID, mock.Anything).Return(int64(1), nil)

	service := NewQuotationService(quotationRepo, new(mockInvoiceRepository), seqRepo, tax.NewGSTCalculator())
	_, _, err := service.ConvertQuotation(context.Background(), tenantID, q.ID, ConvertQuotationRequest{
		PaymentStatus: "paid",
	})
	assert.Error(t, err)
}

func TestExpireOpenQuotations(t *testing.T) {
	quotationRepo := new(mockQuotationRepository)
	tenantID := uuid.New()
	first := openQuotation(t, tenantID)
	second := openQuotation(t, tenantID)
	now := first.ValidUntil.AddDate(0, 1, 0)

	quotationRepo.On("FindOpenExpiredBefore", mock.Anything, tenantID, now).Return([]quotation.Quotation{*first, *second}, nil)
	quotationRepo.On("SaveWithLock", mock.Anything, mock.Anything).Return(nil)

	service := NewQuotationService(quotationRepo, new(mockInvoiceRepository), new(mockSequenceRepository), tax.NewGSTCalculator())
	expired, err := service.ExpireOpenQuotations(context.Background(), tenantID, now)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)
}
