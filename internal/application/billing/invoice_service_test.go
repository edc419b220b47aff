package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/billing"
	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/retailbill/backend/internal/domain/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ===================== Mocks =====================

type mockInvoiceRepository struct {
	mock.Mock
}

func (m *mockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if inv := args.Get(0); inv != nil {
		return inv.(*billing.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if inv := args.Get(0); inv != nil {
		return inv.(*billing.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInvoiceRepository) FindByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, invoiceNumber)
	if inv := args.Get(0); inv != nil {
		return inv.(*billing.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	args := m.Called(ctx, tenantID, filter)
	if invs := args.Get(0); invs != nil {
		return invs.([]billing.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter billing.InvoiceFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInvoiceRepository) FindEMIDueBefore(ctx context.Context, tenantID uuid.UUID, cutoff time.Time) ([]billing.Invoice, error) {
	args := m.Called(ctx, tenantID, cutoff)
	if invs := args.Get(0); invs != nil {
		return invs.([]billing.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInvoiceRepository) Summarize(ctx context.Context, tenantID uuid.UUID) (*billing.InvoiceSummary, error) {
	args := m.Called(ctx, tenantID)
	if s := args.Get(0); s != nil {
		return s.(*billing.InvoiceSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *mockInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *mockInvoiceRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

type mockSequenceRepository struct {
	mock.Mock
}

func (m *mockSequenceRepository) Next(ctx context.Context, tenantID uuid.UUID, name string) (int64, error) {
	args := m.Called(ctx, tenantID, name)
	return args.Get(0).(int64), args.Error(1)
}

// ===================== Helpers =====================

func newTestService(invoiceRepo *mockInvoiceRepository, seqRepo *mockSequenceRepository) *InvoiceService {
	return NewInvoiceService(invoiceRepo, seqRepo, tax.NewGSTCalculator())
}

func gstCreateRequest() CreateInvoiceRequest {
	return CreateInvoiceRequest{
		CustomerID:    uuid.New(),
		CustomerName:  "Asha Nair",
		CustomerPhone: "9000000001",
		Segment:       "electronics",
		Jurisdiction:  "INTRA_STATE",
		Items: []LineItemRequest{
			{Name: "Refrigerator", Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(10000), GSTSlab: decimal.NewFromInt(18), HSNCode: "8418"},
		},
		PaymentStatus: "pending",
	}
}

func storedInvoice(t *testing.T, tenantID uuid.UUID) *billing.Invoice {
	t.Helper()
	item, err := billing.NewLineItem("Refrigerator", decimal.NewFromInt(1), decimal.NewFromInt(12000), decimal.Zero, "8418", false)
	require.NoError(t, err)

	inv, err := billing.NewInvoice(
		tenantID, "EL_NGST_004", uuid.New(), "Asha Nair", "9000000001",
		billing.SegmentElectronics, tax.JurisdictionIntraState,
		billing.LineItems{*item}, nil, billing.PaymentStatusEMI, decimal.Zero,
		&billing.EMIPlanInput{NumberOfInstallments: 12, StartDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		tax.NewGSTCalculator(),
	)
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

// ===================== Tests =====================

func TestCreateInvoice_DrawsNumberFromSequence(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepository)
	seqRepo := new(mockSequenceRepository)
	tenantID := uuid.New()

	seqRepo.On("Next", mock.Anything, tenantID, "invoice:EL_GST").Return(int64(7), nil)
	invoiceRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	service := newTestService(invoiceRepo, seqRepo)
	resp, err := service.CreateInvoice(context.Background(), tenantID, gstCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, "EL_GST_007", resp.InvoiceNumber)
	assert.Equal(t, "11800", resp.GrandTotal.String())
	seqRepo.AssertExpectations(t)
	invoiceRepo.AssertExpectations(t)
}

func TestCreateInvoice_ZeroRatedUsesNonGSTSequence(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepository)
	seqRepo := new(mockSequenceRepository)
	tenantID := uuid.New()

	req := gstCreateRequest()
	req.Segment = "furniture"
	req.Items[0].GSTSlab = decimal.Zero

	seqRepo.On("Next", mock.Anything, tenantID, "invoice:FU_NGST").Return(int64(1), nil)
	invoiceRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	service := newTestService(invoiceRepo, seqRepo)
	resp, err := service.CreateInvoice(context.Background(), tenantID, req)
	require.NoError(t, err)

	assert.Equal(t, "FU_NGST_001", resp.InvoiceNumber)
}

func TestCreateInvoice_InvalidSegment(t *testing.T) {
	service := newTestService(new(mockInvoiceRepository), new(mockSequenceRepository))

	req := gstCreateRequest()
	req.Segment = "grocery"

	_, err := service.CreateInvoice(context.Background(), uuid.New(), req)
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_SEGMENT", domainErr.Code)
}

func TestUpdateInvoice_IgnoresPayloadInvoiceNumber(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepository)
	seqRepo := new(mockSequenceRepository)
	tenantID := uuid.New()
	inv := storedInvoice(t, tenantID)

	invoiceRepo.On("FindByIDForTenant", mock.Anything, tenantID, inv.ID).Return(inv, nil)
	invoiceRepo.On("SaveWithLock", mock.Anything, inv).Return(nil)

	service := newTestService(invoiceRepo, seqRepo)
	resp, err := service.UpdateInvoice(context.Background(), tenantID, inv.ID, UpdateInvoiceRequest{
		InvoiceNumber: "EL_GST_999",
		Items: []LineItemRequest{
			{Name: "Refrigerator", Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(9000), HSNCode: "8418"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "EL_NGST_004", resp.InvoiceNumber)
	assert.Equal(t, "9000", resp.GrandTotal.String())
	// The EMI tail was respread against the edited total.
	assert.Equal(t, "9000", resp.EMI.TotalRemaining.String())
}

func TestUpdateInvoice_ConcurrencyConflictPropagates(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepository)
	tenantID := uuid.New()
	inv := storedInvoice(t, tenantID)

	invoiceRepo.On("FindByIDForTenant", mock.Anything, tenantID, inv.ID).Return(inv, nil)
	invoiceRepo.On("SaveWithLock", mock.Anything, inv).Return(shared.ErrConcurrencyConflict)

	service := newTestService(invoiceRepo, new(mockSequenceRepository))
	_, err := service.UpdateInvoice(context.Background(), tenantID, inv.ID, UpdateInvoiceRequest{
		Items: []LineItemRequest{
			{Name: "Refrigerator", Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(9000)},
		},
	})
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
}

func TestRecordInstallmentPayment_Succeeds(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepository)
	tenantID := uuid.New()
	inv := storedInvoice(t, tenantID)

	invoiceRepo.On("FindByIDForTenant", mock.Anything, tenantID, inv.ID).Return(inv, nil)
	invoiceRepo.On("SaveWithLock", mock.Anything, inv).Return(nil)

	service := newTestService(invoiceRepo, new(mockSequenceRepository))
	resp, err := service.RecordInstallmentPayment(context.Background(), tenantID, inv.ID, 1, InstallmentPaymentRequest{
		Amount: decimal.NewFromInt(1000),
		Method: "cash",
	})
	require.NoError(t, err)

	assert.Equal(t, "11000", resp.RemainingBalance.String())
	assert.True(t, resp.EMI.Schedule[0].Paid)
	invoiceRepo.AssertExpectations(t)
}

func TestRecordInstallmentPayment_DomainErrorSkipsSave(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepository)
	tenantID := uuid.New()
	inv := storedInvoice(t, tenantID)

	invoiceRepo.On("FindByIDForTenant", mock.Anything, tenantID, inv.ID).Return(inv, nil)

	service := newTestService(invoiceRepo, new(mockSequenceRepository))
	_, err := service.RecordInstallmentPayment(context.Background(), tenantID, inv.ID, 99, InstallmentPaymentRequest{
		Amount: decimal.NewFromInt(1000),
		Method: "cash",
	})
	require.Error(t, err)
	invoiceRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestGetInvoice_NotFound(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepository)
	tenantID := uuid.New()
	id := uuid.New()

	invoiceRepo.On("FindByIDForTenant", mock.Anything, tenantID, id).Return(nil, nil)

	service := newTestService(invoiceRepo, new(mockSequenceRepository))
	_, err := service.GetInvoice(context.Background(), tenantID, id)
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestGetSummary_ServedFromCacheUntilMutation(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepository)
	tenantID := uuid.New()
	summary := &billing.InvoiceSummary{
		TotalInvoices:    3,
		TotalBilled:      decimal.NewFromInt(30000),
		TotalOutstanding: decimal.NewFromInt(12000),
	}

	invoiceRepo.On("Summarize", mock.Anything, tenantID).Return(summary, nil).Once()

	service := newTestService(invoiceRepo, new(mockSequenceRepository))
	first, err := service.GetSummary(context.Background(), tenantID)
	require.NoError(t, err)
	second, err := service.GetSummary(context.Background(), tenantID)
	require.NoError(t, err)

	assert.Equal(t, first.TotalInvoices, second.TotalInvoices)
	invoiceRepo.AssertExpectations(t)

	// A mutation invalidates the cached summary.
	inv := storedInvoice(t, tenantID)
	invoiceRepo.On("FindByIDForTenant", mock.Anything, tenantID, inv.ID).Return(inv, nil)
	invoiceRepo.On("SaveWithLock", mock.Anything, inv).Return(nil)
	invoiceRepo.On("Summarize", mock.Anything, tenantID).Return(summary, nil).Once()

	_, err = service.RecordInstallmentPayment(context.Background(), tenantID, inv.ID, 1, InstallmentPaymentRequest{
		Amount: decimal.NewFromInt(1000),
		Method: "cash",
	})
	require.NoError(t, err)

	_, err = service.GetSummary(context.Background(), tenantID)
	require.NoError(t, err)
	invoiceRepo.AssertExpectations(t)
}

func TestDeleteInvoice(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepository)
	tenantID := uuid.New()
	inv := storedInvoice(t, tenantID)

	invoiceRepo.On("FindByIDForTenant", mock.Anything, tenantID, inv.ID).Return(inv, nil)
	invoiceRepo.On("DeleteForTenant", mock.Anything, tenantID, inv.ID).Return(nil)

	service := newTestService(invoiceRepo, new(mockSequenceRepository))
	require.NoError(t, service.DeleteInvoice(context.Background(), tenantID, inv.ID))
	invoiceRepo.AssertExpectations(t)
}
